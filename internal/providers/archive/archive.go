// Package archive stores imported batches in compressed segments on the
// node file system.
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/telenode/internal/domain/component"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/logging"
	"github.com/GriffinCanCode/telenode/internal/providers/filesystem"
	"github.com/GriffinCanCode/telenode/internal/providers/stage"
	"github.com/GriffinCanCode/telenode/internal/shared/id"
	"github.com/GriffinCanCode/telenode/internal/shared/paths"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

const (
	// DefaultSegmentSize is the number of events that triggers a flush.
	DefaultSegmentSize = 4096

	ioTimeout = 10 * time.Second
)

// Load asks the archive for the batches of one segment. The reply is
// []*types.Batch; the caller releases them.
type Load struct {
	Segment string
}

// Segments asks for the IDs of all flushed segments, oldest first.
type Segments struct{}

// Archive is the archive behavior.
type Archive struct {
	label       string
	fs          *actor.Actor
	sys         *actor.System
	logger      *logging.Logger
	segmentSize int

	buffered []*types.Batch
	events   int
	segments []string
	stored   uint64
}

// Factory spawns an archive. It requires the node file system.
func Factory(ctx context.Context, host component.Host, args component.SpawnArguments) (*actor.Actor, error) {
	sys := host.System()
	fs, ok := sys.Get(component.FilesystemName)
	if !ok {
		return nil, errors.New("archive requires a filesystem")
	}
	a := &Archive{
		label:       args.Label,
		fs:          fs,
		sys:         sys,
		logger:      host.Logger().Named(args.Label),
		segmentSize: args.Options().GetInt("archive.segment-size", DefaultSegmentSize),
	}
	if a.segmentSize <= 0 {
		return nil, fmt.Errorf("invalid archive.segment-size %d", a.segmentSize)
	}
	return sys.Spawn(args.Label, a), nil
}

// Receive implements actor.Behavior.
func (a *Archive) Receive(ctx context.Context, env *actor.Envelope) {
	switch m := env.Message.(type) {
	case *types.Batch:
		a.buffered = append(a.buffered, m)
		a.events += m.Len()
		if a.events >= a.segmentSize {
			if _, err := a.flush(ctx); err != nil {
				env.Reply(nil, err)
				return
			}
		}
		env.Reply(actor.OK, nil)
	case Load:
		env.Reply(a.load(ctx, m.Segment))
	case Segments:
		env.Reply(append([]string(nil), a.segments...), nil)
	case actor.Atom:
		if m == stage.Flush {
			env.Reply(a.flush(ctx))
			return
		}
		stage.Handle(ctx, env, a.status)
	default:
		if !stage.Handle(ctx, env, a.status) {
			stage.Reject(env)
		}
	}
}

// Terminate flushes buffered batches.
func (a *Archive) Terminate(ctx context.Context) error {
	_, err := a.flush(ctx)
	return err
}

// flush writes the buffered batches as one segment and returns its ID.
func (a *Archive) flush(ctx context.Context) (string, error) {
	if len(a.buffered) == 0 {
		return "", nil
	}
	seg := &segment{
		ID:      id.NewSegmentID().String(),
		Created: time.Now().UnixNano(),
		Events:  uint64(a.events),
		Batches: a.buffered,
	}
	data, err := encodeSegment(seg)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, ioTimeout)
	defer cancel()
	if _, err := a.fs.Request(ctx, filesystem.Write{Path: paths.Segment(seg.ID), Data: data}); err != nil {
		a.logger.Error("Failed to write segment", zap.String("segment", seg.ID), zap.Error(err))
		return "", fmt.Errorf("failed to write segment %s: %w", seg.ID, err)
	}

	for _, b := range a.buffered {
		b.Release()
	}
	a.buffered = nil
	a.stored += seg.Events
	a.events = 0
	a.segments = append(a.segments, seg.ID)

	a.logger.Debug("Segment flushed",
		zap.String("segment", seg.ID),
		zap.Uint64("events", seg.Events),
		zap.Int("bytes", len(data)),
	)
	stage.Emit(a.sys, a.label, "archive.segment-bytes", float64(len(data)))
	return seg.ID, nil
}

func (a *Archive) load(ctx context.Context, segID string) ([]*types.Batch, error) {
	if err := paths.ValidateID(segID); err != nil {
		return nil, fmt.Errorf("invalid segment: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, ioTimeout)
	defer cancel()
	v, err := a.fs.Request(ctx, filesystem.MMap{Path: paths.Segment(segID)})
	if err != nil {
		return nil, err
	}
	mapped := v.([]byte)
	seg, err := decodeSegment(mapped)
	// The decoded segment owns its memory.
	if _, uerr := a.fs.Request(ctx, filesystem.Unmap{Data: mapped}); uerr != nil {
		a.logger.Warn("Failed to release segment mapping", zap.String("segment", segID), zap.Error(uerr))
	}
	if err != nil {
		return nil, err
	}
	out := make([]*types.Batch, 0, len(seg.Batches))
	for _, b := range seg.Batches {
		nb := types.NewBatch(b.Schema, b.Fields, b.Rows)
		nb.FirstID = b.FirstID
		out = append(out, nb)
	}
	return out, nil
}

func (a *Archive) status(ctx context.Context) map[string]any {
	return map[string]any{
		"segment-size":     a.segmentSize,
		"segments":         len(a.segments),
		"buffered-batches": len(a.buffered),
		"buffered-events":  a.events,
		"stored-events":    a.stored,
	}
}
