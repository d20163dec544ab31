// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in editor test page.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler upgrades the HTTP connection and hands it to a new
// Session backed by the process-wide store and hub.
func WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	NewWebSocketHandler(GetStore(), GetHub())(w, r)
}

// NewWebSocketHandler returns an upgrade handler bound to the given store and
// hub. The session registers itself only after its liveness probe succeeds.
func NewWebSocketHandler(store *Store, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		session := NewSession(conn, store, hub, r.RemoteAddr)
		go session.Run()
	}
}

// HealthHandler provides a liveness endpoint with a constant response and no
// session semantics.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "Ok")
}
