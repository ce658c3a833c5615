package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 32
	maxMessageSize = 1024
)

// Client is one live viewer connection. Exactly one Client per authenticated
// user is registered at a time; a reconnect replaces the previous one.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	userID   string
	username string

	send      chan []byte
	alive     atomic.Bool
	closeOnce sync.Once
	writeMu   sync.Mutex
}

func newClient(hub *Hub, conn *websocket.Conn, userID, username string) *Client {
	c := &Client{
		hub:      hub,
		conn:     conn,
		userID:   userID,
		username: username,
		send:     make(chan []byte, sendBufferSize),
	}
	c.alive.Store(true)
	return c
}

func (c *Client) UserID() string { return c.userID }

// readPump consumes inbound frames. Any inbound traffic, pong frames
// included, counts as liveness; an application-level PING gets a PONG reply.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("Viewer connection read error",
					slog.String("type", "ws"),
					slog.String("user_id", c.userID),
					slog.Any("error", err))
			}
			return
		}
		c.alive.Store(true)

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("Invalid realtime message",
				slog.String("type", "ws"),
				slog.String("user_id", c.userID),
				slog.Any("error", err))
			continue
		}
		if msg.Type == "PING" {
			c.enqueue(mustMarshal(Message{Type: "PONG"}))
		}
	}
}

// writePump drains the send channel onto the socket. Closing the channel
// makes it write a close frame and exit.
func (c *Client) writePump() {
	defer c.conn.Close()

	for data := range c.send {
		c.writeMu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := c.conn.WriteMessage(websocket.TextMessage, data)
		c.writeMu.Unlock()
		if err != nil {
			return
		}
	}

	c.writeMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
}

// enqueue hands a frame to the write pump without ever blocking the caller.
// A full buffer means the viewer is too slow; the frame is dropped and the
// client reconciles with a full-state fetch on reconnect.
func (c *Client) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeWith sends a close frame with the given code and tears the
// connection down. Safe to call more than once.
func (c *Client) closeWith(code int, reason string) {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
		c.writeMu.Unlock()
		c.conn.Close()
	})
}

func (c *Client) ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func mustMarshal(msg Message) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		panic(err)
	}
	return data
}
