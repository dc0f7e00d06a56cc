package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/stranka-dev/stranka/internal/logging"
)

const writeTimeout = 10 * time.Second

// reloadMessage is what the browser-side snippet listens for.
type reloadMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// reloadHub tracks connected development browsers and tells them to refresh
// after a content reload. Development only; the production router never
// exposes the /ws endpoint.
type reloadHub struct {
	logger logging.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newReloadHub(logger logging.Logger) *reloadHub {
	return &reloadHub{
		logger: logger.WithComponent("reload"),
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// handleReloadSocket upgrades the connection and parks it until the client
// goes away. The dev CSP's connect-src admits exactly these local origins.
func (s *Server) handleReloadSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "websocket upgrade failed")
		return
	}

	s.hub.add(conn)
	defer s.hub.remove(conn)

	// Reads are discarded; the socket exists only for server→browser pushes.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

func (h *reloadHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *reloadHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
	_ = conn.CloseNow()
}

// broadcastReload notifies every connected browser. Slow or dead connections
// are dropped rather than allowed to stall the batch.
func (h *reloadHub) broadcastReload() {
	payload, err := json.Marshal(reloadMessage{Type: "reload", Timestamp: time.Now()})
	if err != nil {
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			h.remove(conn)
		}
		cancel()
	}
}

func (h *reloadHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(h.conns, conn)
	}
}
