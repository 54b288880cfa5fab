package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"psyched/internal/hub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checks belong to the CORS configuration; the installation's
	// viewers connect from a local page.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleCanvasSocket attaches a viewer connection to a canvas. Unknown
// canvases are rejected before the upgrade; after the upgrade the connection
// only receives broadcast frames, so the read loop exists to notice
// disconnects (and to drain client keepalive messages).
func handleCanvasSocket(reg *hub.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "canvas")
		if !reg.Has(slug) {
			writeJSONError(w, http.StatusNotFound, "unknown canvas: "+slug)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the error response.
			logEvent(r, "websocket upgrade failed", err)
			return
		}
		recipient := hub.NewWSRecipient(conn)
		if !reg.Join(slug, recipient) {
			_ = recipient.Close()
			return
		}
		defer func() {
			reg.Leave(slug, recipient)
			_ = recipient.Close()
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logEvent(r, "canvas connection error", err)
				}
				return
			}
		}
	}
}
