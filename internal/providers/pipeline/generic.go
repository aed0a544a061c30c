package pipeline

import (
	"context"

	"github.com/GriffinCanCode/telenode/internal/domain/component"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/providers/stage"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

// Generic is a query stage (exporter, eraser, counter, explorer, pivoter).
// It records its options and counts what it receives; batches are
// released on arrival.
type Generic struct {
	kind     string
	options  types.Settings
	args     []string
	messages uint64
	batches  uint64
	events   uint64
}

// GenericFactory returns the factory for one query stage kind.
func GenericFactory(kind string) component.Factory {
	return func(ctx context.Context, host component.Host, args component.SpawnArguments) (*actor.Actor, error) {
		g := &Generic{
			kind:    kind,
			options: args.Options().Clone(),
			args:    append([]string(nil), args.Invocation.Arguments...),
		}
		return host.System().Spawn(args.Label, g), nil
	}
}

// Receive implements actor.Behavior.
func (g *Generic) Receive(ctx context.Context, env *actor.Envelope) {
	g.messages++
	if b, ok := env.Message.(*types.Batch); ok {
		g.batches++
		g.events += uint64(b.Len())
		b.Release()
		env.Reply(actor.OK, nil)
		return
	}
	if !stage.Handle(ctx, env, g.status) {
		stage.Reject(env)
	}
}

func (g *Generic) status(ctx context.Context) map[string]any {
	out := map[string]any{
		"kind":     g.kind,
		"messages": g.messages,
		"batches":  g.batches,
		"events":   g.events,
	}
	if len(g.args) > 0 {
		out["arguments"] = g.args
	}
	if len(g.options) > 0 {
		out["options"] = map[string]any(g.options)
	}
	return out
}
