package actor

import (
	"context"

	"github.com/GriffinCanCode/telenode/internal/shared/promise"
)

// Atom is a zero-argument typed message, e.g. Atom("status").
type Atom string

// OK is the conventional acknowledgement.
const OK = Atom("ok")

// StatusRequest asks a component for its status payload. Components reply
// with a map[string]any.
type StatusRequest struct{}

// Envelope carries one mailbox message and, for requests, the promise the
// reply goes to.
type Envelope struct {
	Message any
	promise *promise.Promise
}

// Reply fulfils the request promise. It is a no-op for plain sends.
func (e *Envelope) Reply(v any, err error) {
	if e.promise != nil {
		e.promise.Resolve(v, err)
	}
}

// Promise exposes the request promise for deferred replies. Behaviors that
// take it must not call Reply. Nil for plain sends.
func (e *Envelope) Promise() *promise.Promise {
	return e.promise
}

// IsRequest reports whether the sender waits for a reply.
func (e *Envelope) IsRequest() bool {
	return e.promise != nil
}

// Behavior processes mailbox messages one at a time.
type Behavior interface {
	Receive(ctx context.Context, env *Envelope)
}

// HandlerFunc adapts a request/response function to a Behavior.
type HandlerFunc func(ctx context.Context, msg any) (any, error)

// Receive implements Behavior.
func (f HandlerFunc) Receive(ctx context.Context, env *Envelope) {
	env.Reply(f(ctx, env.Message))
}

// Starter is implemented by behaviors that need their own handle or must
// do work before the first message.
type Starter interface {
	Start(ctx context.Context, self *Actor) error
}

// Terminator is implemented by behaviors that flush or release resources
// when their actor exits.
type Terminator interface {
	Terminate(ctx context.Context) error
}

// Down notifies a monitor that an actor exited. Reason is nil for a
// normal exit.
type Down struct {
	Actor  *Actor
	Reason error
}

// MonitorRef identifies one monitor registration.
type MonitorRef uint64

// exitSignal is the mailbox marker produced by Stop.
type exitSignal struct {
	reason error
}
