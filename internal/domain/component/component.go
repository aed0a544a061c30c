// Package component defines how the node constructs pipeline components.
//
// A Factory turns SpawnArguments into a running actor. Factories are
// collected in a Table keyed by full command name ("spawn source csv") and
// resolved once at node start-up.
package component

import (
	"context"

	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/logging"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

// Well-known System directory names.
const (
	AccountantName = "accountant"
	FilesystemName = "filesystem"
)

// SpawnArguments is everything a factory needs for one spawn attempt.
type SpawnArguments struct {
	Invocation types.Invocation
	Dir        string
	Label      string
}

// Options is a shorthand for the invocation options.
func (a SpawnArguments) Options() types.Settings {
	return a.Invocation.Options
}

// Host is the node as seen by a factory. Factories run on the node
// goroutine, so Host reads the registry directly.
type Host interface {
	System() *actor.System
	Logger() *logging.Logger
	Metrics() *monitoring.Metrics
	FindByType(typ string) []*actor.Actor
	FindByLabel(label string) *actor.Actor
	// Locator is for use by running components after the factory
	// returned. Calling it from inside a factory deadlocks.
	Locator() Locator
}

// Locator resolves components through the node mailbox.
type Locator interface {
	GetByType(ctx context.Context, typ string) ([]*actor.Actor, error)
	GetByLabel(ctx context.Context, label string) (*actor.Actor, error)
}

// Factory constructs one component.
type Factory func(ctx context.Context, host Host, args SpawnArguments) (*actor.Actor, error)

// Table maps full command names to factories.
type Table map[string]Factory

// Names returns the command names of t.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	return names
}

// Resolve merges the table returned by extra into a copy of base. Entries
// of base win on collision. extra may be nil.
func Resolve(base Table, extra func() Table) Table {
	out := make(Table, len(base))
	for name, f := range base {
		out[name] = f
	}
	if extra == nil {
		return out
	}
	for name, f := range extra() {
		if _, ok := out[name]; !ok {
			out[name] = f
		}
	}
	return out
}

// TypeOf derives the component type from a spawn command name:
// "spawn source csv" is a "source", "spawn type-registry" a
// "type-registry".
func TypeOf(fullName string) string {
	inv := types.Invocation{FullName: fullName}
	tokens := inv.Tokens()
	if len(tokens) < 2 {
		return ""
	}
	return tokens[1]
}
