package node

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
)

// monitor routes the exit of a into the node mailbox.
func (c *Control) monitor(a *actor.Actor) {
	if _, ok := c.monitors[a]; ok {
		return
	}
	self := c.self
	c.monitors[a] = a.Monitor(func(d actor.Down) {
		self.Send(downMsg{down: d})
	})
}

func (c *Control) demonitor(a *actor.Actor) {
	if ref, ok := c.monitors[a]; ok {
		a.Demonitor(ref)
		delete(c.monitors, a)
	}
}

// handleDown reaps a component that exited without being asked to. Handles
// that are no longer registered are ignored.
func (c *Control) handleDown(d actor.Down) {
	delete(c.monitors, d.Actor)

	var label, typ string
	for _, comp := range c.registry.Components() {
		if comp.Actor == d.Actor {
			label, typ = comp.Label, comp.Type
			break
		}
	}
	if label == "" {
		return
	}

	c.registry.Remove(d.Actor)
	c.componentsChanged()
	if d.Reason != nil {
		c.metrics.RecordCrash(typ)
		c.logger.Warn("Component terminated unexpectedly",
			zap.String("label", label),
			zap.String("type", typ),
			zap.Error(d.Reason),
		)
		c.emit(EventCrashed, label, typ, d.Reason)
		return
	}
	c.logger.Info("Component exited", zap.String("label", label), zap.String("type", typ))
	c.emit(EventStopped, label, typ, nil)
}
