package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ellavondegurechaff/cardrush/cardrush/database/models"
)

// Hub is the connection registry and fanout broadcaster. It keeps at most one
// live connection per user and pushes every event to the whole connection set
// at the instant of broadcast. Delivery is best-effort: undelivered events are
// not persisted, a reconnecting client reconciles with a full-state fetch.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*Client

	heartbeat time.Duration
}

func NewHub(heartbeat time.Duration) *Hub {
	return &Hub{
		clients:   make(map[string]*Client),
		heartbeat: heartbeat,
	}
}

// register adds a connection for a user, replacing any existing one as a
// single atomic step: look up, close old, insert new. The old peer gets a
// normal close so well-behaved clients know they were superseded.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	old := h.clients[c.userID]
	h.clients[c.userID] = c
	h.mu.Unlock()

	if old != nil {
		slog.Info("Replacing existing viewer connection",
			slog.String("type", "ws"),
			slog.String("user_id", c.userID),
			slog.String("username", c.username))
		old.closeWith(websocket.CloseNormalClosure, "Replaced by new connection")
	}

	slog.Info("Viewer connected",
		slog.String("type", "ws"),
		slog.String("user_id", c.userID),
		slog.String("username", c.username))
}

// unregister drops the connection and stops its write pump. The identity
// check keeps a replaced connection's teardown from removing its successor.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.userID]; ok && cur == c {
		delete(h.clients, c.userID)
	}
	close(c.send)
	h.mu.Unlock()

	slog.Info("Viewer disconnected",
		slog.String("type", "ws"),
		slog.String("user_id", c.userID))
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Connected reports whether the user currently has a live connection.
func (h *Hub) Connected(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.clients[userID]
	return ok
}

// Broadcast pushes one event to every live connection. Slow consumers have
// the frame dropped rather than stalling the fanout.
func (h *Hub) Broadcast(msgType string, data any) {
	payload, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		slog.Error("Failed to marshal broadcast payload",
			slog.String("type", "ws"),
			slog.String("event", msgType),
			slog.Any("error", err))
		return
	}

	h.mu.Lock()
	delivered, dropped := 0, 0
	for _, c := range h.clients {
		if c.enqueue(payload) {
			delivered++
		} else {
			dropped++
		}
	}
	h.mu.Unlock()

	slog.Debug("Broadcast dispatched",
		slog.String("type", "ws"),
		slog.String("event", msgType),
		slog.Int("delivered", delivered),
		slog.Int("dropped", dropped))
}

// CardUpdated implements services.Broadcaster.
func (h *Hub) CardUpdated(card *models.Card, ownerUsername string) {
	h.Broadcast(EventCardUpdated, CardPayload{Card: *card, OwnerUsername: ownerUsername})
}

// CardExpired implements services.Broadcaster.
func (h *Hub) CardExpired(card *models.Card) {
	h.Broadcast(EventCardExpired, CardPayload{Card: *card})
}

// LeaderboardUpdated implements services.Broadcaster.
func (h *Hub) LeaderboardUpdated(userID, username string, totalPoints int64) {
	h.Broadcast(EventLeaderboardUpdated, LeaderboardEntry{
		UserID:      userID,
		Username:    username,
		TotalPoints: totalPoints,
	})
}

// Run drives the heartbeat until the context is cancelled. A connection that
// did not answer the previous ping, by pong or by any other inbound frame,
// is terminated.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case <-ticker.C:
			h.sweepConnections()
		}
	}
}

func (h *Hub) sweepConnections() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if !c.alive.Load() {
			slog.Info("Terminating unresponsive viewer connection",
				slog.String("type", "ws"),
				slog.String("user_id", c.userID))
			c.conn.Close()
			continue
		}
		c.alive.Store(false)
		if err := c.ping(); err != nil {
			c.conn.Close()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.closeWith(websocket.CloseGoingAway, "Server shutting down")
	}
}
