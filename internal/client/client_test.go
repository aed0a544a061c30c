package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apihttp "github.com/GriffinCanCode/telenode/internal/api/http"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

type fakeNode struct {
	invoke func(types.Invocation) (any, error)
}

func (f *fakeNode) ID() string   { return "id" }
func (f *fakeNode) Name() string { return "node" }

func (f *fakeNode) CommandNames() []string {
	return []string{"kill", "send", "spawn sink csv", "status"}
}

func (f *fakeNode) Invoke(_ context.Context, inv types.Invocation) (any, error) {
	return f.invoke(inv)
}

func (f *fakeNode) Components(context.Context) ([]types.Component, error) {
	return nil, nil
}

func newTestClient(t *testing.T, node *fakeNode) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	apihttp.NewHandlers(node, nil, nil).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
}

func TestInvokeAndStatus(t *testing.T) {
	node := &fakeNode{invoke: func(inv types.Invocation) (any, error) {
		switch inv.FullName {
		case "status":
			return `{"node":{}}`, nil
		case "send":
			return actor.Atom("pong"), nil
		}
		return actor.OK, nil
	}}
	c := newTestClient(t, node)
	ctx := context.Background()

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "node", health["node"])

	res, err := c.Invoke(ctx, "spawn sink csv", []string{"-l", "out"}, map[string]any{"export": map[string]any{"write": "out.csv"}})
	require.NoError(t, err)
	assert.Equal(t, "spawn sink csv", res.Command)
	assert.Equal(t, "ok", res.Result)

	doc, err := c.Status(ctx, "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"node":{}}`, doc)

	reply, err := c.Send(ctx, "csv", "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", reply)

	require.NoError(t, c.Kill(ctx, "csv"))

	comps, err := c.Components(ctx)
	require.NoError(t, err)
	assert.Empty(t, comps)
}

func TestDispatcherErrorsKeepCode(t *testing.T) {
	node := &fakeNode{invoke: func(types.Invocation) (any, error) {
		return nil, types.Errorf(types.CodeUnknownComponent, "no component labelled x")
	}}
	c := newTestClient(t, node)

	err := c.Kill(context.Background(), "x")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, types.CodeUnknownComponent, apiErr.Code)
	assert.ErrorIs(t, err, types.ErrUnknownComponent)

	for i := 0; i < 5; i++ {
		_ = c.Kill(context.Background(), "x")
	}
	assert.Equal(t, resilience.Closed, c.Breaker().State())
}

func TestBreakerOpensOnServerFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	for i := 0; i < 5; i++ {
		_, _ = c.Health(context.Background())
	}

	assert.Equal(t, resilience.Open, c.Breaker().State())
	assert.EqualValues(t, 3, hits.Load())

	_, err := c.Health(context.Background())
	assert.ErrorIs(t, err, resilience.ErrOpen)
}

func TestRetryRefused(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "refused", err: fmt.Errorf("post: %w", refused), want: true},
		{name: "reset", err: os.NewSyscallError("read", syscall.ECONNRESET), want: false},
		{name: "other", err: errors.New("tls handshake"), want: false},
		{name: "no error", err: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := retryRefused(context.Background(), nil, tt.err)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := retryRefused(ctx, nil, refused)
	assert.False(t, got)
	assert.ErrorIs(t, err, context.Canceled)
}
