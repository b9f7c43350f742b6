package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

const writeTimeout = 5 * time.Second

// WebSocketHandler streams hub events to a browser over a WebSocket.
type WebSocketHandler struct {
	hub   *Hub
	isDev bool
}

// NewWebSocketHandler creates a WebSocket handler for hub. Cross-origin
// connections are accepted only in development.
func NewWebSocketHandler(hub *Hub, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, isDev: isDev}
}

type clientMessage struct {
	Type string `json:"type"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: h.isDev,
	})
	if err != nil {
		slog.Warn("Failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	id, events := h.hub.Subscribe()
	defer h.hub.Unsubscribe(id)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		defer cancel()
		h.inputLoop(ctx, ws, id)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeJSON(ctx, ws, ev); err != nil {
				slog.Debug("WebSocket write error", "error", err, "subscriber_id", id)
				return
			}
		}
	}
}

// inputLoop answers client pings and returns when the client goes away.
func (h *WebSocketHandler) inputLoop(ctx context.Context, ws *websocket.Conn, id string) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "subscriber_id", id)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			if err := writeJSON(ctx, ws, map[string]string{"type": "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
				return
			}
		}
	}
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
