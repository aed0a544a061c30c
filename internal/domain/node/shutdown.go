package node

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/telenode/internal/domain/component"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

// shutdownPriority lists the types torn down first, in order. Everything
// else follows, then the filesystem.
var shutdownPriority = []string{
	"accountant",
	"source",
	"importer",
	"archive",
	"index",
	"exporter",
}

// shutdownOrder returns comps in teardown order. The filesystem type comes
// last, followed by fs when it is not registered.
func shutdownOrder(comps []types.Component, fs *actor.Actor) []types.Component {
	out := make([]types.Component, 0, len(comps)+1)
	taken := make(map[*actor.Actor]bool, len(comps))
	appendType := func(typ string) {
		for _, comp := range comps {
			if comp.Type == typ && !taken[comp.Actor] {
				out = append(out, comp)
				taken[comp.Actor] = true
			}
		}
	}

	for _, typ := range shutdownPriority {
		appendType(typ)
	}
	for _, comp := range comps {
		if comp.Type != component.FilesystemName && !taken[comp.Actor] {
			out = append(out, comp)
			taken[comp.Actor] = true
		}
	}
	appendType(component.FilesystemName)

	if fs != nil && !taken[fs] {
		out = append(out, types.Component{Actor: fs, Type: component.FilesystemName, Label: component.FilesystemName})
	}
	return out
}

// Terminate implements actor.Terminator. It tears the components down one
// at a time in shutdown order. Errors are logged and do not stop the
// sequence. There is no timeout: a component that never exits stalls the
// node.
func (c *Control) Terminate(ctx context.Context) error {
	start := time.Now()
	comps := c.registry.Components()
	c.logger.Info("Shutting down", zap.Int("components", len(comps)))

	for _, comp := range comps {
		c.demonitor(comp.Actor)
	}

	for _, comp := range shutdownOrder(comps, c.filesystem) {
		c.logger.Debug("Stopping component", zap.String("label", comp.Label), zap.String("type", comp.Type))
		if err := comp.Actor.Terminate(ctx); err != nil {
			c.logger.Warn("Component exited with error",
				zap.String("label", comp.Label),
				zap.String("type", comp.Type),
				zap.Error(err),
			)
		}
		c.registry.Remove(comp.Actor)
		c.emit(EventStopped, comp.Label, comp.Type, nil)
	}

	c.sys.Erase(component.AccountantName)
	c.sys.Erase(component.FilesystemName)
	c.componentsChanged()
	c.metrics.RecordShutdown(time.Since(start))
	c.logger.Info("Shutdown complete", zap.Duration("duration", time.Since(start)))
	return nil
}
