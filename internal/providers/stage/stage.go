// Package stage holds what every pipeline component shares: the common
// control messages and reporting to the accountant.
package stage

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/telenode/internal/domain/component"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
)

// Common atoms understood by every component.
const (
	Status = actor.Atom("status")
	Ping   = actor.Atom("ping")
	Pong   = actor.Atom("pong")
	Flush  = actor.Atom("flush")
)

// Report carries one measurement to the accountant.
type Report struct {
	Actor string
	Key   string
	Value float64
}

// StatusFunc produces a component status payload.
type StatusFunc func(ctx context.Context) map[string]any

// Handle answers StatusRequest and the common atoms. It reports whether
// the message was consumed. Unknown atoms are answered with an error.
func Handle(ctx context.Context, env *actor.Envelope, status StatusFunc) bool {
	switch m := env.Message.(type) {
	case actor.StatusRequest:
		env.Reply(status(ctx), nil)
		return true
	case actor.Atom:
		switch m {
		case Status:
			env.Reply(status(ctx), nil)
		case Ping:
			env.Reply(Pong, nil)
		default:
			env.Reply(nil, fmt.Errorf("unsupported atom %q", m))
		}
		return true
	}
	return false
}

// Reject answers messages a component does not understand.
func Reject(env *actor.Envelope) {
	env.Reply(nil, fmt.Errorf("unexpected message %T", env.Message))
}

// Emit sends a measurement to the accountant when one is running.
func Emit(sys *actor.System, label, key string, value float64) bool {
	acc, ok := sys.Get(component.AccountantName)
	if !ok {
		return false
	}
	return acc.TrySend(Report{Actor: label, Key: key, Value: value})
}
