package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/telenode/internal/api/middleware"
	"github.com/GriffinCanCode/telenode/internal/api/ws"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/config"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

type stubNode struct{}

func (stubNode) ID() string             { return "id" }
func (stubNode) Name() string           { return "node" }
func (stubNode) CommandNames() []string { return []string{"status"} }
func (stubNode) Components(context.Context) ([]types.Component, error) {
	return nil, nil
}

func (stubNode) Invoke(context.Context, types.Invocation) (any, error) {
	return actor.OK, nil
}

func get(h http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Development = true
	cfg.Auth.Secret = "secret"
	srv := NewServer(cfg, stubNode{}, ws.NewHub(nil, nil), monitoring.NewMetrics(), nil)
	h := srv.Handler()

	w := get(h, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	assert.Equal(t, http.StatusUnauthorized, get(h, "/components", "").Code)

	token, err := middleware.IssueToken([]byte("secret"), "ci", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get(h, "/components", token).Code)

	w = get(h, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")

	w = get(h, "/metrics/json", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_requests":4`)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	cfg := config.Default()
	srv := NewServer(cfg, stubNode{}, nil, monitoring.NewMetrics(), nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
