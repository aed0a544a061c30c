package node

import (
	"context"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/telenode/internal/domain/component"
	"github.com/GriffinCanCode/telenode/internal/domain/registry"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/logging"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

type putMsg struct {
	actor *actor.Actor
	typ   string
}

// Mailbox messages of the node actor. callMsg runs a continuation on the
// node goroutine.
type (
	invokeMsg      struct{ inv types.Invocation }
	getByTypeMsg   struct{ typ string }
	getByLabelMsg  struct{ label string }
	getByLabelsMsg struct{ labels []string }
	componentsMsg  struct{}
	signalMsg      struct{ code int }
	downMsg        struct{ down actor.Down }
	callMsg        struct{ fn func(*Control) }
)

// Control is the node state. It is only touched from the node goroutine,
// and command handlers receive it explicitly.
type Control struct {
	name    string
	dir     string
	timeout time.Duration

	sys        *actor.System
	self       *actor.Actor
	locator    component.Locator
	filesystem *actor.Actor

	registry   *registry.Registry
	components component.Table
	commands   Commands
	monitors   map[*actor.Actor]actor.MonitorRef

	logger   *logging.Logger
	metrics  *monitoring.Metrics
	observer func(Event)
}

// Start implements actor.Starter.
func (c *Control) Start(ctx context.Context, self *actor.Actor) error {
	c.self = self
	return nil
}

// Receive implements actor.Behavior.
func (c *Control) Receive(ctx context.Context, env *actor.Envelope) {
	switch m := env.Message.(type) {
	case invokeMsg:
		c.dispatch(ctx, m.inv, env.Promise())
	case putMsg:
		env.Reply(actor.OK, c.put(m.actor, m.typ))
	case getByTypeMsg:
		env.Reply(c.registry.FindByType(m.typ), nil)
	case getByLabelMsg:
		env.Reply(c.registry.FindByLabel(m.label), nil)
	case getByLabelsMsg:
		out := make([]*actor.Actor, len(m.labels))
		for i, label := range m.labels {
			out[i] = c.registry.FindByLabel(label)
		}
		env.Reply(out, nil)
	case componentsMsg:
		env.Reply(c.registry.Components(), nil)
	case signalMsg:
		c.logger.Info("Received signal",
			zap.Int("code", m.code),
			zap.String("signal", syscall.Signal(m.code).String()),
		)
	case downMsg:
		c.handleDown(m.down)
	case callMsg:
		m.fn(c)
	default:
		c.logger.Error("Unexpected message", zap.Any("message", env.Message))
		env.Reply(nil, types.Errorf(types.CodeUnspecified, "unexpected message %T", env.Message))
	}
}

// post schedules fn on the node goroutine. It reports false once the node
// has stopped accepting messages.
func (c *Control) post(fn func(*Control)) bool {
	return c.self.TrySend(callMsg{fn: fn})
}

// Name returns the node name.
func (c *Control) Name() string {
	return c.name
}

// Registry exposes the registry to command handlers.
func (c *Control) Registry() *registry.Registry {
	return c.registry
}

// System implements component.Host.
func (c *Control) System() *actor.System {
	return c.sys
}

// Logger implements component.Host.
func (c *Control) Logger() *logging.Logger {
	return c.logger
}

// Metrics implements component.Host.
func (c *Control) Metrics() *monitoring.Metrics {
	return c.metrics
}

// FindByType implements component.Host.
func (c *Control) FindByType(typ string) []*actor.Actor {
	return c.registry.FindByType(typ)
}

// FindByLabel implements component.Host.
func (c *Control) FindByLabel(label string) *actor.Actor {
	return c.registry.FindByLabel(label)
}

// Locator implements component.Host.
func (c *Control) Locator() component.Locator {
	return c.locator
}

func (c *Control) put(a *actor.Actor, typ string) error {
	if registry.IsSingleton(typ) && len(c.registry.FindByType(typ)) > 0 {
		return types.Errorf(types.CodeDuplicateLabel, "%s is a singleton and already running", typ)
	}
	label := c.registry.NextLabel(typ)
	if !c.registry.Add(a, typ, label) {
		return types.Errorf(types.CodeDuplicateLabel, "label %s is taken", label)
	}
	c.monitor(a)
	c.componentsChanged()
	c.logger.Info("Component registered", zap.String("label", label), zap.String("type", typ))
	c.emit(EventRegistered, label, typ, nil)
	return nil
}

func (c *Control) componentsChanged() {
	c.metrics.SetComponentsActive(c.registry.Len())
}

func (c *Control) emit(kind EventKind, label, typ string, reason error) {
	if c.observer == nil {
		return
	}
	ev := Event{Kind: kind, Node: c.name, Label: label, Type: typ, Time: time.Now()}
	if reason != nil {
		ev.Reason = reason.Error()
	}
	c.observer(ev)
}
