package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AnshRaj112/ecoscan-backend/internal/middleware"
	"github.com/AnshRaj112/ecoscan-backend/internal/services"
)

const (
	wsPongWait   = 90 * time.Second
	wsPingPeriod = 30 * time.Second
	wsWriteWait  = 10 * time.Second
)

var eventsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS for WebSocket is handled at the HTTP layer already.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn adapts a gorilla connection to services.EventConn. The hub
// serialises WriteJSON calls per connection.
type wsConn struct {
	conn *websocket.Conn
}

func (c wsConn) WriteJSON(v interface{}) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(v)
}

func (c wsConn) Close() error { return c.conn.Close() }

// EventFeed streams notices and community updates to the caller. Browser clients
// authenticate with ?token= and/or ?device_id= since they cannot set headers.
func (h *Handler) EventFeed(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	caller := id.Key()

	// Make sure a coordinator exists so merges and bonus checks run for
	// callers that connect before any other request.
	if _, _, ok := h.withCoordinator(w, r); !ok {
		return
	}

	conn, err := eventsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var sink services.EventConn = wsConn{conn: conn}
	unregister := h.Events.Register(caller, sink)
	defer unregister()
	h.log.Debugw("event feed connected", "caller", caller)

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				// WriteControl may run concurrently with the hub's writes.
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadLimit(4 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		// Client frames only keep the connection alive.
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	}
}
