package actor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/telenode/internal/shared/promise"
)

// ErrExited is returned for requests addressed to an actor that is no
// longer running.
var ErrExited = errors.New("actor exited")

// Actor is a handle to one running component. Handles compare by pointer.
type Actor struct {
	id       uint64
	name     string
	sys      *System
	behavior Behavior
	detached bool

	mu        sync.Mutex
	queue     []*Envelope
	closed    bool // no further messages are accepted
	downFired bool // monitors have been notified
	monitors  map[MonitorRef]func(Down)
	nextRef   MonitorRef
	notify    chan struct{}

	reason error // exit reason, readable after done is closed
	done   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// ID returns the process-unique actor id.
func (a *Actor) ID() uint64 {
	return a.id
}

// Name returns the name the actor was spawned with.
func (a *Actor) Name() string {
	return a.name
}

// String implements fmt.Stringer.
func (a *Actor) String() string {
	return fmt.Sprintf("%s#%d", a.name, a.id)
}

// Send delivers msg without waiting for a reply. Messages to an exited
// actor are dropped.
func (a *Actor) Send(msg any) {
	a.enqueue(&Envelope{Message: msg})
}

// TrySend is Send that reports whether the mailbox accepted msg.
func (a *Actor) TrySend(msg any) bool {
	return a.enqueue(&Envelope{Message: msg})
}

// Ask delivers msg and returns the promise its reply is delivered to.
func (a *Actor) Ask(msg any) *promise.Promise {
	p := promise.New()
	if !a.enqueue(&Envelope{Message: msg, promise: p}) {
		p.Fail(fmt.Errorf("%s: %w", a, ErrExited))
	}
	return p
}

// Request delivers msg and waits for the reply or for ctx to end.
func (a *Actor) Request(ctx context.Context, msg any) (any, error) {
	return a.Ask(msg).Wait(ctx)
}

// Stop asks the actor to exit after the messages already queued and closes
// the mailbox to new ones. A non-nil reason marks the exit as abnormal.
func (a *Actor) Stop(reason error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.queue = append(a.queue, &Envelope{Message: exitSignal{reason: reason}})
	a.closed = true
	a.mu.Unlock()
	a.wake()
}

// Terminate stops the actor and waits for its exit. It returns the exit
// reason, or ctx.Err() if ctx ends first.
func (a *Actor) Terminate(ctx context.Context) error {
	a.Stop(nil)
	select {
	case <-a.done:
		return a.reason
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the actor has exited.
func (a *Actor) Done() <-chan struct{} {
	return a.done
}

// Err returns the exit reason. Only meaningful after Done is closed.
func (a *Actor) Err() error {
	select {
	case <-a.done:
		return a.reason
	default:
		return nil
	}
}

// Alive reports whether the actor still runs.
func (a *Actor) Alive() bool {
	select {
	case <-a.done:
		return false
	default:
		return true
	}
}

// Monitor registers fn to be called once when the actor exits. If the
// actor is already gone fn runs immediately.
func (a *Actor) Monitor(fn func(Down)) MonitorRef {
	a.mu.Lock()
	a.nextRef++
	ref := a.nextRef
	if !a.downFired {
		a.monitors[ref] = fn
		a.mu.Unlock()
		return ref
	}
	a.mu.Unlock()

	fn(Down{Actor: a, Reason: a.reason})
	return ref
}

// Demonitor cancels a monitor registration. Unknown refs are ignored.
func (a *Actor) Demonitor(ref MonitorRef) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.monitors, ref)
}

func (a *Actor) enqueue(env *Envelope) bool {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return false
	}
	a.queue = append(a.queue, env)
	a.mu.Unlock()
	a.wake()
	return true
}

func (a *Actor) wake() {
	select {
	case a.notify <- struct{}{}:
	default:
	}
}

// next blocks for the next envelope.
func (a *Actor) next() *Envelope {
	for {
		a.mu.Lock()
		if len(a.queue) > 0 {
			env := a.queue[0]
			a.queue[0] = nil
			a.queue = a.queue[1:]
			a.mu.Unlock()
			return env
		}
		a.mu.Unlock()
		<-a.notify
	}
}

func (a *Actor) run() {
	var reason error
	defer func() {
		a.finish(reason)
	}()

	if s, ok := a.behavior.(Starter); ok {
		if err := a.start(s); err != nil {
			reason = err
			return
		}
	}

	for {
		env := a.next()
		if sig, ok := env.Message.(exitSignal); ok {
			reason = sig.reason
			return
		}
		if err := a.dispatch(env); err != nil {
			reason = err
			return
		}
	}
}

func (a *Actor) start(s Starter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = a.panicError(r)
		}
	}()
	return s.Start(a.ctx, a)
}

func (a *Actor) dispatch(env *Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = a.panicError(r)
			if env.promise != nil && !env.promise.Fulfilled() {
				env.promise.Fail(err)
			}
		}
	}()
	a.behavior.Receive(a.ctx, env)
	return nil
}

func (a *Actor) panicError(r any) error {
	a.sys.logger.Error("Actor crashed",
		zap.Stringer("actor", a),
		zap.Any("panic", r),
		zap.ByteString("stack", debug.Stack()),
	)
	return fmt.Errorf("%s: panic: %v", a, r)
}

func (a *Actor) finish(reason error) {
	a.cancel()

	a.mu.Lock()
	a.closed = true
	pending := a.queue
	a.queue = nil
	a.mu.Unlock()

	for _, env := range pending {
		if env.promise != nil {
			env.promise.Fail(fmt.Errorf("%s: %w", a, ErrExited))
		}
	}

	if t, ok := a.behavior.(Terminator); ok {
		if err := a.terminate(t); err != nil {
			a.sys.logger.Warn("Actor terminated with error", zap.Stringer("actor", a), zap.Error(err))
			if reason == nil {
				reason = err
			}
		}
	}

	a.reason = reason
	a.sys.running.Add(-1)
	if a.detached {
		a.sys.detached.Add(-1)
	}
	close(a.done)

	a.mu.Lock()
	a.downFired = true
	monitors := a.monitors
	a.monitors = nil
	a.mu.Unlock()

	for _, fn := range monitors {
		fn(Down{Actor: a, Reason: reason})
	}
}

func (a *Actor) terminate(t Terminator) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = a.panicError(r)
		}
	}()
	return t.Terminate(context.Background())
}
