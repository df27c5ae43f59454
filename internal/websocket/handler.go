package websocket

import (
	"context"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/mmynk/tripsplit/internal/middleware"
)

// Authorizer decides whether the bearer of token may watch groupID.
type Authorizer func(ctx context.Context, token, groupID string) error

// HandleWebSocket returns an HTTP handler that upgrades authorized requests
// to WebSocket and runs them as Hub clients.
//
// The group comes from the "group" query parameter. Browsers cannot set
// headers on a WebSocket handshake, so the token is read from the "token"
// query parameter, falling back to the Authorization header.
func HandleWebSocket(hub *Hub, authorize Authorizer, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID := r.URL.Query().Get("group")
		if groupID == "" {
			http.Error(w, "group query parameter required", http.StatusBadRequest)
			return
		}

		token := r.URL.Query().Get("token")
		if token == "" {
			token, _ = middleware.BearerToken(r.Header.Get("Authorization"))
		}
		if err := authorize(r.Context(), token, groupID); err != nil {
			logger.Warn("websocket: rejected subscriber", "group_id", groupID, "error", err)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // Browser clients are served from other origins
		})
		if err != nil {
			logger.Error("websocket: accept", "error", err)
			return
		}

		client := NewClient(hub, conn, groupID)
		client.Run(r.Context())
	}
}
