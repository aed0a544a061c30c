package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/telenode/internal/domain/component"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/logging"
	"github.com/GriffinCanCode/telenode/internal/providers/filesystem"
	"github.com/GriffinCanCode/telenode/internal/providers/stage"
	"github.com/GriffinCanCode/telenode/internal/shared/paths"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

const (
	resolveTimeout = 2 * time.Second
	resolveEvery   = time.Second
)

// Consumer types the importer forwards batches to.
var consumerTypes = []string{"archive", "index", "sink", "exporter"}

// Importer assigns event IDs and distributes batches.
type Importer struct {
	label   string
	sys     *actor.System
	locator component.Locator
	fs      *actor.Actor
	logger  *logging.Logger

	nextID   uint64
	batches  uint64
	schemas  map[string]bool
	targets  []*actor.Actor
	resolved time.Time
}

// ImporterFactory spawns the importer, resuming the ID sequence from the
// file system when one was persisted.
func ImporterFactory(ctx context.Context, host component.Host, args component.SpawnArguments) (*actor.Actor, error) {
	sys := host.System()
	imp := &Importer{
		label:   args.Label,
		sys:     sys,
		locator: host.Locator(),
		logger:  host.Logger().Named(args.Label),
		schemas: make(map[string]bool),
	}
	if fs, ok := sys.Get(component.FilesystemName); ok {
		imp.fs = fs
		next, err := readNextID(ctx, fs)
		if err != nil {
			return nil, err
		}
		imp.nextID = next
	}
	return sys.Spawn(args.Label, imp), nil
}

func readNextID(ctx context.Context, fs *actor.Actor) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()
	v, err := fs.Request(ctx, filesystem.Read{Path: paths.ImporterNextID})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read id block: %w", err)
	}
	next, err := strconv.ParseUint(strings.TrimSpace(string(v.([]byte))), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt id block: %w", err)
	}
	return next, nil
}

// Receive implements actor.Behavior.
func (imp *Importer) Receive(ctx context.Context, env *actor.Envelope) {
	switch m := env.Message.(type) {
	case *types.Batch:
		imp.ingest(ctx, m)
		env.Reply(actor.OK, nil)
	default:
		if !stage.Handle(ctx, env, imp.status) {
			stage.Reject(env)
		}
	}
}

// Terminate persists the next free ID.
func (imp *Importer) Terminate(ctx context.Context) error {
	if imp.fs == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()
	data := []byte(strconv.FormatUint(imp.nextID, 10) + "\n")
	if _, err := imp.fs.Request(ctx, filesystem.Write{Path: paths.ImporterNextID, Data: data}); err != nil {
		return fmt.Errorf("failed to persist id block: %w", err)
	}
	return nil
}

func (imp *Importer) ingest(ctx context.Context, b *types.Batch) {
	n := b.Len()
	b.FirstID = imp.nextID
	imp.nextID += uint64(n)
	imp.batches++

	if !imp.schemas[b.Schema] {
		imp.schemas[b.Schema] = true
		imp.announce(ctx, b)
	}

	targets := imp.consumers(ctx)
	b.Retain(len(targets))
	for _, t := range targets {
		if !t.TrySend(b) {
			b.Release()
		}
	}
	b.Release()

	stage.Emit(imp.sys, imp.label, "importer.events", float64(n))
}

func (imp *Importer) announce(ctx context.Context, b *types.Batch) {
	regs, err := imp.lookup(ctx, "type-registry")
	if err != nil {
		return
	}
	for _, r := range regs {
		r.TrySend(Schema{Name: b.Schema, Fields: append([]string(nil), b.Fields...)})
	}
}

// consumers returns the current downstream components. The set is
// refreshed periodically and whenever a cached consumer has exited.
func (imp *Importer) consumers(ctx context.Context) []*actor.Actor {
	stale := time.Since(imp.resolved) > resolveEvery
	for _, t := range imp.targets {
		if !t.Alive() {
			stale = true
			break
		}
	}
	if !stale {
		return imp.targets
	}

	var targets []*actor.Actor
	for _, typ := range consumerTypes {
		found, err := imp.lookup(ctx, typ)
		if err != nil {
			return imp.targets
		}
		targets = append(targets, found...)
	}
	imp.targets = targets
	imp.resolved = time.Now()
	return targets
}

func (imp *Importer) lookup(ctx context.Context, typ string) ([]*actor.Actor, error) {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()
	found, err := imp.locator.GetByType(ctx, typ)
	if err != nil {
		imp.logger.Warn("Failed to resolve consumers", zap.String("type", typ), zap.Error(err))
	}
	return found, err
}

func (imp *Importer) status(ctx context.Context) map[string]any {
	return map[string]any{
		"next-id":   imp.nextID,
		"batches":   imp.batches,
		"schemas":   len(imp.schemas),
		"consumers": len(imp.targets),
	}
}
