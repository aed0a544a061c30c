package actor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echo() HandlerFunc {
	return func(ctx context.Context, msg any) (any, error) {
		if msg == "boom" {
			panic("boom")
		}
		return msg, nil
	}
}

type recorder struct {
	mu         sync.Mutex
	seen       []any
	terminated bool
	started    *Actor
	termErr    error
}

func (r *recorder) Start(ctx context.Context, self *Actor) error {
	r.started = self
	return nil
}

func (r *recorder) Receive(ctx context.Context, env *Envelope) {
	r.mu.Lock()
	r.seen = append(r.seen, env.Message)
	r.mu.Unlock()
	env.Reply(env.Message, nil)
}

func (r *recorder) Terminate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terminated = true
	return r.termErr
}

func TestRequestReply(t *testing.T) {
	sys := NewSystem(nil)
	a := sys.Spawn("echo", echo())

	v, err := a.Request(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	require.NoError(t, a.Terminate(context.Background()))
	assert.False(t, a.Alive())
}

func TestMailboxOrder(t *testing.T) {
	sys := NewSystem(nil)
	rec := &recorder{}
	a := sys.Spawn("rec", rec)

	for i := 0; i < 100; i++ {
		a.Send(i)
	}
	require.NoError(t, a.Terminate(context.Background()))

	require.Len(t, rec.seen, 100)
	for i, v := range rec.seen {
		assert.Equal(t, i, v)
	}
	assert.True(t, rec.terminated)
	assert.Same(t, a, rec.started)
}

func TestStopDrainsQueuedMessages(t *testing.T) {
	sys := NewSystem(nil)
	rec := &recorder{}
	a := sys.Spawn("rec", rec)

	a.Send("first")
	a.Stop(nil)
	<-a.Done()

	_, err := a.Request(context.Background(), "late")
	assert.ErrorIs(t, err, ErrExited)
	assert.False(t, a.TrySend("later"))
	assert.Equal(t, []any{"first"}, rec.seen)
}

func TestPanicTerminatesWithError(t *testing.T) {
	sys := NewSystem(nil)
	a := sys.Spawn("echo", echo())

	downs := make(chan Down, 1)
	a.Monitor(func(d Down) { downs <- d })

	_, err := a.Request(context.Background(), "boom")
	require.Error(t, err)

	select {
	case d := <-downs:
		assert.Same(t, a, d.Actor)
		assert.Error(t, d.Reason)
	case <-time.After(time.Second):
		t.Fatal("no down notification")
	}
	assert.Error(t, a.Err())
}

func TestStopReasonIsReported(t *testing.T) {
	sys := NewSystem(nil)
	a := sys.Spawn("echo", echo())
	reason := errors.New("fatal")

	downs := make(chan Down, 1)
	a.Monitor(func(d Down) { downs <- d })
	a.Stop(reason)

	d := <-downs
	assert.ErrorIs(t, d.Reason, reason)
}

func TestTerminatorErrorBecomesReason(t *testing.T) {
	sys := NewSystem(nil)
	flushErr := errors.New("flush failed")
	a := sys.Spawn("rec", &recorder{termErr: flushErr})

	err := a.Terminate(context.Background())
	assert.ErrorIs(t, err, flushErr)
}

func TestDemonitor(t *testing.T) {
	sys := NewSystem(nil)
	a := sys.Spawn("echo", echo())

	fired := make(chan struct{}, 1)
	ref := a.Monitor(func(Down) { fired <- struct{}{} })
	a.Demonitor(ref)
	require.NoError(t, a.Terminate(context.Background()))

	select {
	case <-fired:
		t.Fatal("demonitored callback fired")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestMonitorAfterExitFiresImmediately(t *testing.T) {
	sys := NewSystem(nil)
	a := sys.Spawn("echo", echo())
	require.NoError(t, a.Terminate(context.Background()))

	fired := false
	a.Monitor(func(Down) { fired = true })
	assert.True(t, fired)
}

func TestSystemCounters(t *testing.T) {
	sys := NewSystem(nil)
	a := sys.Spawn("plain", echo())
	b := sys.Spawn("worker", echo(), Detached())

	assert.Equal(t, 2, sys.Running())
	assert.Equal(t, 1, sys.Detached())
	assert.Positive(t, sys.Workers())

	require.NoError(t, b.Terminate(context.Background()))
	assert.Equal(t, 1, sys.Running())
	assert.Equal(t, 0, sys.Detached())

	require.NoError(t, a.Terminate(context.Background()))
	assert.Equal(t, 0, sys.Running())
}

func TestSystemDirectory(t *testing.T) {
	sys := NewSystem(nil)
	a := sys.Spawn("fs", echo())
	defer a.Terminate(context.Background())

	sys.Put("filesystem", a)
	got, ok := sys.Get("filesystem")
	require.True(t, ok)
	assert.Same(t, a, got)

	sys.Erase("filesystem")
	_, ok = sys.Get("filesystem")
	assert.False(t, ok)
}

func TestRequestTimeout(t *testing.T) {
	sys := NewSystem(nil)
	block := make(chan struct{})
	a := sys.Spawn("slow", HandlerFunc(func(ctx context.Context, msg any) (any, error) {
		<-block
		return nil, nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := a.Request(ctx, StatusRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(block)
	require.NoError(t, a.Terminate(context.Background()))
}
