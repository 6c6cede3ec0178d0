package event

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/kanban/internal/eventbus"
)

func TestServer_ForwardsFilteredEvents(t *testing.T) {
	bus := eventbus.New()
	srv := httptest.NewServer(NewServer(bus))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?types=addTask"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The subscription is registered after the upgrade completes, so keep
	// publishing until the first event arrives.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				bus.PublishNew("addBoard", "b1")
				bus.PublishNew("addTask", "t1")
			}
		}
	}()

	var ev eventbus.Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "addTask", ev.Type)
	assert.Equal(t, "t1", ev.ResourceID)
}

func TestServer_AllowedOrigins(t *testing.T) {
	tests := []struct {
		name   string
		opts   []Option
		origin string
		ok     bool
	}{
		{"same origin only by default", nil, "http://ui.example", false},
		{"no origin header", nil, "", true},
		{"wildcard", []Option{WithAllowedOrigins("*")}, "http://ui.example", true},
		{"listed origin", []Option{WithAllowedOrigins("http://ui.example")}, "http://UI.example", true},
		{"unlisted origin", []Option{WithAllowedOrigins("http://ui.example")}, "http://evil.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(NewServer(eventbus.New(), tt.opts...))
			defer srv.Close()

			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, res, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
			if tt.ok {
				require.NoError(t, err)
				conn.Close()
				return
			}
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			assert.Equal(t, http.StatusForbidden, res.StatusCode)
		})
	}
}
