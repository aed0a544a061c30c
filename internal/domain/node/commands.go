package node

import (
	"context"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/telenode/internal/domain/component"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/telenode/internal/shared/promise"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

// Command handles one invocation on the node goroutine. It must fulfil rp
// exactly once, possibly later from another goroutine.
type Command func(ctx context.Context, c *Control, inv types.Invocation, rp *promise.Promise)

// Commands maps full command names to handlers.
type Commands map[string]Command

// Names returns the command names of t.
func (t Commands) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	return names
}

// Builtins returns kill, send and status plus one spawn entry per factory.
func Builtins(components component.Table) Commands {
	cmds := Commands{
		"kill":   killCommand,
		"send":   sendCommand,
		"status": statusCommand,
	}
	for name := range components {
		cmds[name] = spawnCommand
	}
	return cmds
}

// ResolveCommands merges extra into a copy of base; base wins on collision.
func ResolveCommands(base Commands, extra func() Commands) Commands {
	out := make(Commands, len(base))
	for name, cmd := range base {
		out[name] = cmd
	}
	if extra == nil {
		return out
	}
	for name, cmd := range extra() {
		if _, ok := out[name]; !ok {
			out[name] = cmd
		}
	}
	return out
}

func (c *Control) dispatch(ctx context.Context, inv types.Invocation, rp *promise.Promise) {
	cmd, ok := c.commands[inv.FullName]
	if !ok {
		// Names are validated before an invocation reaches the node.
		c.logger.Error("No handler for command", zap.String("command", inv.FullName))
		rp.Fail(types.Errorf(types.CodeUnspecified, "no handler for command %q", inv.FullName))
		return
	}

	timer := monitoring.NewTimer(c.metrics, inv.FullName)
	rp.Then(func(_ any, err error) {
		if err != nil {
			timer.Stop(string(types.CodeOf(err)))
			return
		}
		timer.Stop("ok")
	})

	c.logger.Debug("Dispatching command",
		zap.String("command", inv.FullName),
		zap.Strings("arguments", inv.Arguments),
	)
	cmd(ctx, c, inv, rp)
}

func killCommand(ctx context.Context, c *Control, inv types.Invocation, rp *promise.Promise) {
	if len(inv.Arguments) != 1 {
		rp.Fail(types.Errorf(types.CodeSyntax, "kill expects exactly one argument, got %d", len(inv.Arguments)))
		return
	}
	label := inv.Arguments[0]
	comp, ok := c.registry.Lookup(label)
	if !ok {
		rp.Fail(types.Errorf(types.CodeUnknownComponent, "no component labelled %s", label))
		return
	}

	// A requested exit is not a crash.
	c.demonitor(comp.Actor)
	c.logger.Info("Terminating component", zap.String("label", label), zap.String("type", comp.Type))

	go func() {
		err := comp.Actor.Terminate(context.Background())
		finish := func(c *Control) {
			c.registry.Remove(comp.Actor)
			c.componentsChanged()
			c.metrics.RecordKill(comp.Type)
			c.emit(EventKilled, comp.Label, comp.Type, err)
			if err != nil {
				rp.Fail(err)
				return
			}
			rp.Deliver(actor.OK)
		}
		if !c.post(finish) {
			// The node is shutting down and drops its registry anyway.
			if err != nil {
				rp.Fail(err)
				return
			}
			rp.Deliver(actor.OK)
		}
	}()
}

func sendCommand(ctx context.Context, c *Control, inv types.Invocation, rp *promise.Promise) {
	if len(inv.Arguments) != 2 {
		rp.Fail(types.Errorf(types.CodeSyntax, "send expects a label and a message, got %d arguments", len(inv.Arguments)))
		return
	}
	label, tag := inv.Arguments[0], inv.Arguments[1]
	target := c.registry.FindByLabel(label)
	if target == nil {
		rp.Fail(types.Errorf(types.CodeUnknownComponent, "no component labelled %s", label))
		return
	}

	go func() {
		rp.Resolve(target.Request(ctx, actor.Atom(tag)))
	}()
}

func spawnCommand(ctx context.Context, c *Control, inv types.Invocation, rp *promise.Promise) {
	rp.Resolve(c.spawn(ctx, inv))
}
