// Package sink implements the export components that write batches to a
// file or standard output.
package sink

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/telenode/internal/domain/component"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/logging"
	"github.com/GriffinCanCode/telenode/internal/providers/stage"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

// Stdout is the export.write value that selects standard output.
const Stdout = "-"

// Sink is the sink behavior.
type Sink struct {
	label     string
	format    string
	sys       *actor.System
	self      *actor.Actor
	logger    *logging.Logger
	out       *bufio.Writer
	closer    io.Closer
	writer    Writer
	maxEvents uint64

	events  uint64
	batches uint64
	failed  uint64
}

// Factory returns the factory for one output format.
func Factory(format string) component.Factory {
	return func(ctx context.Context, host component.Host, args component.SpawnArguments) (*actor.Actor, error) {
		newWriter, ok := Formats[format]
		if !ok {
			return nil, fmt.Errorf("unsupported format %q", format)
		}
		opts := args.Options()
		target := opts.GetString("export.write", Stdout)

		var w io.Writer = os.Stdout
		var closer io.Closer
		if target != Stdout {
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create output directory: %w", err)
			}
			f, err := os.Create(target)
			if err != nil {
				return nil, fmt.Errorf("failed to create %s: %w", target, err)
			}
			w, closer = f, f
		}

		out := bufio.NewWriter(w)
		s := &Sink{
			label:     args.Label,
			format:    format,
			sys:       host.System(),
			logger:    host.Logger().Named(args.Label),
			out:       out,
			closer:    closer,
			writer:    newWriter(out),
			maxEvents: uint64(opts.GetInt("export.max-events", 0)),
		}
		return host.System().Spawn(args.Label, s), nil
	}
}

// Start implements actor.Starter.
func (s *Sink) Start(ctx context.Context, self *actor.Actor) error {
	s.self = self
	return nil
}

// Receive implements actor.Behavior.
func (s *Sink) Receive(ctx context.Context, env *actor.Envelope) {
	switch m := env.Message.(type) {
	case *types.Batch:
		err := s.write(m)
		m.Release()
		if err != nil {
			env.Reply(nil, err)
			return
		}
		env.Reply(actor.OK, nil)
	case actor.Atom:
		if m == stage.Flush {
			env.Reply(actor.OK, s.out.Flush())
			return
		}
		stage.Handle(ctx, env, s.status)
	default:
		if !stage.Handle(ctx, env, s.status) {
			stage.Reject(env)
		}
	}
}

func (s *Sink) write(b *types.Batch) error {
	if s.maxEvents > 0 && s.events >= s.maxEvents {
		return nil
	}
	if s.maxEvents > 0 && s.events+uint64(b.Len()) > s.maxEvents {
		keep := int(s.maxEvents - s.events)
		b = &types.Batch{Schema: b.Schema, Fields: b.Fields, Rows: b.Rows[:keep], FirstID: b.FirstID}
	}
	if err := s.writer.Write(b); err != nil {
		s.failed++
		s.logger.Error("Failed to write batch", zap.String("schema", b.Schema), zap.Error(err))
		return err
	}
	s.events += uint64(b.Len())
	s.batches++
	stage.Emit(s.sys, s.label, "sink.events", float64(b.Len()))

	if s.maxEvents > 0 && s.events >= s.maxEvents {
		s.logger.Info("Sink reached event limit", zap.Uint64("events", s.events))
		s.self.Stop(nil)
	}
	return nil
}

// Terminate flushes the output and closes it unless it is stdout.
func (s *Sink) Terminate(ctx context.Context) error {
	err := s.writer.Close()
	if ferr := s.out.Flush(); err == nil {
		err = ferr
	}
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Sink) status(ctx context.Context) map[string]any {
	return map[string]any{
		"format":  s.format,
		"events":  s.events,
		"batches": s.batches,
		"failed":  s.failed,
	}
}
