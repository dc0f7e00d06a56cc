package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stranka-dev/stranka/internal/config"
	"github.com/stranka-dev/stranka/internal/logging"
)

func devServerWithHub(t *testing.T) *Server {
	t.Helper()
	cfg := testConfig(t, "development")
	cfg.Development = config.DevelopmentConfig{HotReload: true}
	s, err := New(cfg, logging.New(&logging.Config{Output: io.Discard}))
	require.NoError(t, err)
	require.NotNil(t, s.hub)
	return s
}

func TestReloadBroadcast(t *testing.T) {
	s := devServerWithHub(t)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+ts.URL[len("http"):]+"/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	// Accept registers the connection before the read loop starts; give the
	// handler goroutine a moment to get there.
	require.Eventually(t, func() bool {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		return len(s.hub.conns) == 1
	}, 2*time.Second, 10*time.Millisecond)

	s.hub.broadcastReload()

	kind, payload, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, kind)

	var msg reloadMessage
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, "reload", msg.Type)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestProductionRouterHasNoReloadSocket(t *testing.T) {
	s := testServer(t, "production")
	rec := get(s.Router(), "http://example.com/ws", "example.com", nil)

	// Falls through to the content page route and 404s.
	assert.Equal(t, 404, rec.Code)
}
