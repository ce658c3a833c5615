package realtime

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ellavondegurechaff/cardrush/cardrush/auth"
	"github.com/ellavondegurechaff/cardrush/cardrush/database/models"
)

func newTestServer(t *testing.T) (*Hub, *auth.TokenManager, *httptest.Server) {
	t.Helper()
	hub := NewHub(30 * time.Second)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	server := httptest.NewServer(NewHandler(hub, tokens))
	t.Cleanup(server.Close)
	return hub, tokens, server
}

func wsURL(server *httptest.Server, token string) string {
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	if token != "" {
		url += "?token=" + token
	}
	return url
}

func dial(t *testing.T, server *httptest.Server, tokens *auth.TokenManager, user *models.User) *websocket.Conn {
	t.Helper()
	token, err := tokens.Issue(user)
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHandler_RejectsMissingToken(t *testing.T) {
	_, _, server := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, ""), nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, CloseCodeUnauthorized, closeErr.Code)
}

func TestHandler_RejectsInvalidToken(t *testing.T) {
	hub, _, server := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "garbage"), nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, CloseCodeUnauthorized, closeErr.Code)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestBroadcastDelivery(t *testing.T) {
	hub, tokens, server := newTestServer(t)

	conn := dial(t, server, tokens, &models.User{ID: "u1", Username: "alice"})
	require.Eventually(t, func() bool { return hub.Connected("u1") },
		time.Second, 10*time.Millisecond)

	owner := "u1"
	expires := time.Now().Add(30 * time.Second).UTC()
	hub.CardUpdated(&models.Card{ID: 7, Name: "Blue Falcon", OwnerID: &owner, ExpiresAt: &expires}, "alice")

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string `json:"type"`
		Data struct {
			ID            int64  `json:"id"`
			OwnerUsername string `json:"ownerUsername"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, EventCardUpdated, msg.Type)
	assert.Equal(t, int64(7), msg.Data.ID)
	assert.Equal(t, "alice", msg.Data.OwnerUsername)
}

func TestApplicationPing(t *testing.T) {
	hub, tokens, server := newTestServer(t)

	conn := dial(t, server, tokens, &models.User{ID: "u1", Username: "alice"})
	require.Eventually(t, func() bool { return hub.Connected("u1") },
		time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Message{Type: "PING"}))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var reply Message
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "PONG", reply.Type)
}

func TestConnectionReplacement(t *testing.T) {
	hub, tokens, server := newTestServer(t)
	user := &models.User{ID: "u1", Username: "alice"}

	first := dial(t, server, tokens, user)
	require.Eventually(t, func() bool { return hub.Connected("u1") },
		time.Second, 10*time.Millisecond)

	second := dial(t, server, tokens, user)

	// The first connection is told it was superseded.
	first.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := first.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
	assert.Equal(t, "Replaced by new connection", closeErr.Text)

	// The replacement still receives broadcasts.
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	hub.LeaderboardUpdated("u1", "alice", 42)

	second.SetReadDeadline(time.Now().Add(time.Second))
	var msg Message
	require.NoError(t, second.ReadJSON(&msg))
	assert.Equal(t, EventLeaderboardUpdated, msg.Type)
}

func TestCardExpiredPayloadClearsOwnership(t *testing.T) {
	hub, tokens, server := newTestServer(t)

	conn := dial(t, server, tokens, &models.User{ID: "u1", Username: "alice"})
	require.Eventually(t, func() bool { return hub.Connected("u1") },
		time.Second, 10*time.Millisecond)

	hub.CardExpired(&models.Card{ID: 3, Name: "Lapsed"})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string `json:"type"`
		Data struct {
			ID      int64   `json:"id"`
			OwnerID *string `json:"ownerId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, EventCardExpired, msg.Type)
	assert.Equal(t, int64(3), msg.Data.ID)
	assert.Nil(t, msg.Data.OwnerID)
}
