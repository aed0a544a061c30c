package registry

import (
	"fmt"

	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

var singletons = map[string]struct{}{
	"accountant":    {},
	"archive":       {},
	"eraser":        {},
	"filesystem":    {},
	"importer":      {},
	"index":         {},
	"type-registry": {},
}

// SystemLabel names the node's own entry in status documents. It is never
// handed to a component.
const SystemLabel = "system"

// IsSingleton reports whether at most one component of typ may run.
func IsSingleton(typ string) bool {
	_, ok := singletons[typ]
	return ok
}

// Registry is the authoritative set of running components.
type Registry struct {
	byLabel map[string]*types.Component
	order   []*types.Component
	seq     map[string]int
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byLabel: make(map[string]*types.Component),
		seq:     make(map[string]int),
	}
}

// Add registers handle under label. It fails without mutation if the label
// is taken or reserved.
func (r *Registry) Add(handle *actor.Actor, typ, label string) bool {
	if label == SystemLabel {
		return false
	}
	if _, taken := r.byLabel[label]; taken {
		return false
	}
	c := &types.Component{Actor: handle, Type: typ, Label: label}
	r.byLabel[label] = c
	r.order = append(r.order, c)
	return true
}

// Remove drops every entry for handle. Unknown handles are ignored.
func (r *Registry) Remove(handle *actor.Actor) {
	kept := r.order[:0]
	for _, c := range r.order {
		if c.Actor == handle {
			delete(r.byLabel, c.Label)
			continue
		}
		kept = append(kept, c)
	}
	for i := len(kept); i < len(r.order); i++ {
		r.order[i] = nil
	}
	r.order = kept
}

// FindByLabel returns the handle registered under label, or nil.
func (r *Registry) FindByLabel(label string) *actor.Actor {
	if c, ok := r.byLabel[label]; ok {
		return c.Actor
	}
	return nil
}

// Lookup returns the full entry for label.
func (r *Registry) Lookup(label string) (types.Component, bool) {
	c, ok := r.byLabel[label]
	if !ok {
		return types.Component{}, false
	}
	return *c, true
}

// FindByType returns the handles of typ in insertion order.
func (r *Registry) FindByType(typ string) []*actor.Actor {
	var out []*actor.Actor
	for _, c := range r.order {
		if c.Type == typ {
			out = append(out, c.Actor)
		}
	}
	return out
}

// Components returns a snapshot of all entries in insertion order.
func (r *Registry) Components() []types.Component {
	out := make([]types.Component, len(r.order))
	for i, c := range r.order {
		out[i] = *c
	}
	return out
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	return len(r.order)
}

// NextLabel generates a label for a component of typ. Singletons are
// labelled by their type. Other types get "typ-N" where N grows
// monotonically per type and skips labels that are in use.
func (r *Registry) NextLabel(typ string) string {
	if IsSingleton(typ) {
		return typ
	}
	n := r.seq[typ]
	if count := len(r.FindByType(typ)); count > n {
		n = count
	}
	for {
		n++
		label := fmt.Sprintf("%s-%d", typ, n)
		if _, taken := r.byLabel[label]; !taken {
			r.seq[typ] = n
			return label
		}
	}
}
