// Package stagetest provides a component.Host for exercising factories
// without a node.
package stagetest

import (
	"context"
	"sync"

	"github.com/GriffinCanCode/telenode/internal/domain/component"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/logging"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

// Host is an in-memory component.Host. Its Locator reads the same tables.
type Host struct {
	Sys *actor.System
	Log *logging.Logger
	Met *monitoring.Metrics

	mu      sync.Mutex
	byType  map[string][]*actor.Actor
	byLabel map[string]*actor.Actor
}

// NewHost creates an empty host with its own actor system.
func NewHost() *Host {
	return &Host{
		Sys:     actor.NewSystem(nil),
		Log:     logging.NewNop(),
		Met:     monitoring.NewMetrics(),
		byType:  make(map[string][]*actor.Actor),
		byLabel: make(map[string]*actor.Actor),
	}
}

// Add registers a under label and type.
func (h *Host) Add(label, typ string, a *actor.Actor) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byLabel[label] = a
	h.byType[typ] = append(h.byType[typ], a)
}

// Args builds spawn arguments for a command with the given options.
func Args(fullName, label, dir string, opts types.Settings) component.SpawnArguments {
	if opts == nil {
		opts = types.Settings{}
	}
	return component.SpawnArguments{
		Invocation: types.Invocation{FullName: fullName, Options: opts},
		Dir:        dir,
		Label:      label,
	}
}

func (h *Host) System() *actor.System        { return h.Sys }
func (h *Host) Logger() *logging.Logger      { return h.Log }
func (h *Host) Metrics() *monitoring.Metrics { return h.Met }
func (h *Host) Locator() component.Locator   { return h }

func (h *Host) FindByType(typ string) []*actor.Actor {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*actor.Actor(nil), h.byType[typ]...)
}

func (h *Host) FindByLabel(label string) *actor.Actor {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.byLabel[label]
}

func (h *Host) GetByType(ctx context.Context, typ string) ([]*actor.Actor, error) {
	return h.FindByType(typ), nil
}

func (h *Host) GetByLabel(ctx context.Context, label string) (*actor.Actor, error) {
	return h.FindByLabel(label), nil
}

// Collector is a component that keeps every message it receives.
type Collector struct {
	mu   sync.Mutex
	msgs []any
}

// Receive implements actor.Behavior.
func (c *Collector) Receive(ctx context.Context, env *actor.Envelope) {
	c.mu.Lock()
	c.msgs = append(c.msgs, env.Message)
	c.mu.Unlock()
	env.Reply(actor.OK, nil)
}

// Messages returns a copy of the received messages.
func (c *Collector) Messages() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.msgs...)
}
