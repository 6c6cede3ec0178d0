package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/kanban/internal/board"
	"github.com/kazz187/kanban/internal/config"
	"github.com/kazz187/kanban/internal/event"
	"github.com/kazz187/kanban/internal/eventbus"
)

func newTestServer(t *testing.T, origins ...string) *httptest.Server {
	t.Helper()
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	store := board.NewStore(nil)
	env := &config.BaseEnv{AllowedOrigins: origins}
	srv := NewServer(env, board.NewServer(store), event.NewServer(eventbus.New(), event.WithAllowedOrigins(origins...)))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestServer_Routes(t *testing.T) {
	ts := newTestServer(t)

	res, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = ts.Client().Get(ts.URL + "/api/state")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "application/json")

	res, err = ts.Client().Get(ts.URL + "/api/nope")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestServer_GRPCHealth(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/grpc.health.v1.Health/Check", strings.NewReader("{}"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestServer_CORS(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/state", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_CORSRestrictedOrigins(t *testing.T) {
	ts := newTestServer(t, "http://ui.example")
	preflight := func(origin string) string {
		req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/state", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
		res, err := ts.Client().Do(req)
		require.NoError(t, err)
		defer res.Body.Close()
		return res.Header.Get("Access-Control-Allow-Origin")
	}
	assert.Equal(t, "http://ui.example", preflight("http://ui.example"))
	assert.Empty(t, preflight("http://evil.example"))
}

func newListenServer() *Server {
	env := &config.BaseEnv{HTTPHost: "127.0.0.1", HTTPPort: "0"}
	return NewServer(env, board.NewServer(board.NewStore(nil)), event.NewServer(eventbus.New()))
}

func TestServer_ShutdownBeforeListen(t *testing.T) {
	srv := newListenServer()
	require.NoError(t, srv.Shutdown(context.Background()))
	assert.ErrorIs(t, srv.ListenAndServe(context.Background()), http.ErrServerClosed)
}

func TestServer_ShutdownWhileStarting(t *testing.T) {
	srv := newListenServer()
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(context.Background())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-ctx.Done():
		t.Fatal("ListenAndServe did not return after Shutdown")
	}
}
