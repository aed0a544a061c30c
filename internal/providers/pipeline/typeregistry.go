package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/GriffinCanCode/telenode/internal/domain/component"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/providers/filesystem"
	"github.com/GriffinCanCode/telenode/internal/providers/stage"
	"github.com/GriffinCanCode/telenode/internal/shared/paths"
)

const fsTimeout = 5 * time.Second

// TypeRegistry remembers every schema that passed through the importer.
type TypeRegistry struct {
	fs      *actor.Actor
	schemas map[string][]string
	dirty   bool
}

// TypeRegistryFactory spawns the type registry and loads the persisted
// schemas.
func TypeRegistryFactory(ctx context.Context, host component.Host, args component.SpawnArguments) (*actor.Actor, error) {
	sys := host.System()
	tr := &TypeRegistry{schemas: make(map[string][]string)}
	if fs, ok := sys.Get(component.FilesystemName); ok {
		tr.fs = fs
		if err := tr.load(ctx); err != nil {
			return nil, err
		}
	}
	return sys.Spawn(args.Label, tr), nil
}

// Receive implements actor.Behavior.
func (tr *TypeRegistry) Receive(ctx context.Context, env *actor.Envelope) {
	switch m := env.Message.(type) {
	case Schema:
		if old, ok := tr.schemas[m.Name]; !ok || !equalFields(old, m.Fields) {
			tr.schemas[m.Name] = m.Fields
			tr.dirty = true
		}
		env.Reply(actor.OK, nil)
	case Types:
		env.Reply(tr.list(), nil)
	default:
		if !stage.Handle(ctx, env, tr.status) {
			stage.Reject(env)
		}
	}
}

// Terminate persists the registry when it changed.
func (tr *TypeRegistry) Terminate(ctx context.Context) error {
	if tr.fs == nil || !tr.dirty {
		return nil
	}
	data, err := yaml.Marshal(tr.list())
	if err != nil {
		return fmt.Errorf("failed to encode types: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, fsTimeout)
	defer cancel()
	if _, err := tr.fs.Request(ctx, filesystem.Write{Path: paths.Types, Data: data}); err != nil {
		return fmt.Errorf("failed to persist types: %w", err)
	}
	return nil
}

func (tr *TypeRegistry) load(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, fsTimeout)
	defer cancel()
	v, err := tr.fs.Request(ctx, filesystem.Read{Path: paths.Types})
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read types: %w", err)
	}
	var list []Schema
	if err := yaml.Unmarshal(v.([]byte), &list); err != nil {
		return fmt.Errorf("failed to decode types: %w", err)
	}
	for _, s := range list {
		tr.schemas[s.Name] = s.Fields
	}
	return nil
}

func (tr *TypeRegistry) list() []Schema {
	out := make([]Schema, 0, len(tr.schemas))
	for name, fields := range tr.schemas {
		out = append(out, Schema{Name: name, Fields: fields})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (tr *TypeRegistry) status(ctx context.Context) map[string]any {
	names := make([]string, 0, len(tr.schemas))
	for name := range tr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return map[string]any{"types": names}
}

func equalFields(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
