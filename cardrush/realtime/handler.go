package realtime

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ellavondegurechaff/cardrush/cardrush/auth"
)

// CloseCodeUnauthorized is sent when the handshake token is missing or
// invalid. Clients must not auto-retry after receiving it.
const CloseCodeUnauthorized = 4001

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from the separately served frontend.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades viewer connections. The bearer token rides in the
// handshake query string and is verified synchronously before the connection
// is registered; a bad token gets a 4001 close and nothing else.
type Handler struct {
	hub    *Hub
	tokens *auth.TokenManager
}

func NewHandler(hub *Hub, tokens *auth.TokenManager) *Handler {
	return &Handler{hub: hub, tokens: tokens}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	claims, authErr := h.verify(token)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("Websocket upgrade failed",
			slog.String("type", "ws"),
			slog.Any("error", err))
		return
	}

	if authErr != "" {
		// The close code is the contract here: 4001 tells the client not to
		// retry with the same token.
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(CloseCodeUnauthorized, authErr))
		conn.Close()
		slog.Info("Rejected viewer connection",
			slog.String("type", "ws"),
			slog.String("reason", authErr),
			slog.String("remote", r.RemoteAddr))
		return
	}

	client := newClient(h.hub, conn, claims.UserID, claims.Username)
	h.hub.register(client)

	go client.writePump()
	go client.readPump()
}

func (h *Handler) verify(token string) (*auth.Claims, string) {
	if token == "" {
		return nil, "Unauthorized: No token provided"
	}
	claims, err := h.tokens.Verify(token)
	if err != nil {
		return nil, "Unauthorized: Invalid token"
	}
	return claims, ""
}
