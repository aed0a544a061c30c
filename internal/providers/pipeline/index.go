package pipeline

import (
	"context"
	"sort"

	"github.com/GriffinCanCode/telenode/internal/domain/component"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/providers/stage"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

// Index counts events per schema and maps field names to the schemas
// that carry them.
type Index struct {
	label    string
	sys      *actor.System
	counts   map[string]uint64
	postings map[string]map[string]struct{}
	lastID   uint64
}

// NewIndex creates an empty index.
func NewIndex(label string, sys *actor.System) *Index {
	return &Index{
		label:    label,
		sys:      sys,
		counts:   make(map[string]uint64),
		postings: make(map[string]map[string]struct{}),
	}
}

// IndexFactory spawns an index.
func IndexFactory(ctx context.Context, host component.Host, args component.SpawnArguments) (*actor.Actor, error) {
	return host.System().Spawn(args.Label, NewIndex(args.Label, host.System())), nil
}

// Receive implements actor.Behavior.
func (ix *Index) Receive(ctx context.Context, env *actor.Envelope) {
	switch m := env.Message.(type) {
	case *types.Batch:
		ix.add(m)
		m.Release()
		env.Reply(actor.OK, nil)
	case Lookup:
		env.Reply(ix.lookup(m.Field), nil)
	default:
		if !stage.Handle(ctx, env, ix.status) {
			stage.Reject(env)
		}
	}
}

func (ix *Index) add(b *types.Batch) {
	ix.counts[b.Schema] += uint64(b.Len())
	for _, f := range b.Fields {
		schemas, ok := ix.postings[f]
		if !ok {
			schemas = make(map[string]struct{})
			ix.postings[f] = schemas
		}
		schemas[b.Schema] = struct{}{}
	}
	if b.Len() > 0 {
		ix.lastID = b.FirstID + uint64(b.Len()) - 1
	}
	stage.Emit(ix.sys, ix.label, "index.events", float64(b.Len()))
}

func (ix *Index) lookup(field string) []string {
	out := make([]string, 0, len(ix.postings[field]))
	for s := range ix.postings[field] {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (ix *Index) status(ctx context.Context) map[string]any {
	var total uint64
	schemas := make(map[string]any, len(ix.counts))
	for s, n := range ix.counts {
		schemas[s] = n
		total += n
	}
	return map[string]any{
		"events":  total,
		"schemas": schemas,
		"fields":  len(ix.postings),
		"last-id": ix.lastID,
	}
}
