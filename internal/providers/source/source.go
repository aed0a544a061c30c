// Package source implements the import components that read events from
// files or standard input and hand them to the importer in batches.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/telenode/internal/domain/component"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/logging"
	"github.com/GriffinCanCode/telenode/internal/providers/stage"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

// DefaultBatchSize is the number of events per batch.
const DefaultBatchSize = 1024

// readNext drives the read loop through the mailbox so status requests
// interleave with reading.
type readNext struct{}

// Source is the source behavior.
type Source struct {
	label     string
	format    string
	sys       *actor.System
	self      *actor.Actor
	importer  *actor.Actor
	logger    *logging.Logger
	opts      types.Settings
	batchSize int
	stdin     io.Reader

	newDecoder NewDecoderFunc
	inputs     []string
	current    *input
	decoder    Decoder

	events  uint64
	batches uint64
	skipped uint64
	done    bool
}

// Factory returns the factory for one input format.
func Factory(format string) component.Factory {
	return func(ctx context.Context, host component.Host, args component.SpawnArguments) (*actor.Actor, error) {
		importers := host.FindByType("importer")
		if len(importers) == 0 {
			return nil, errors.New("source requires an importer")
		}
		src, err := newSource(format, args, host.System(), importers[0], host.Logger().Named(args.Label), os.Stdin)
		if err != nil {
			return nil, err
		}
		return host.System().Spawn(args.Label, src), nil
	}
}

func newSource(format string, args component.SpawnArguments, sys *actor.System, importer *actor.Actor, logger *logging.Logger, stdin io.Reader) (*Source, error) {
	opts := args.Options()
	s := &Source{
		label:     args.Label,
		format:    format,
		sys:       sys,
		importer:  importer,
		logger:    logger,
		opts:      opts,
		batchSize: opts.GetInt("import.batch-size", DefaultBatchSize),
		stdin:     stdin,
	}
	if s.batchSize <= 0 {
		return nil, fmt.Errorf("invalid import.batch-size %d", s.batchSize)
	}
	if format == "test" {
		s.decoder = newGenerator(opts)
		return s, nil
	}
	newDecoder, ok := Formats[format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	s.newDecoder = newDecoder
	inputs, err := expand(opts.GetString("import.read", Stdin))
	if err != nil {
		return nil, err
	}
	s.inputs = inputs
	return s, nil
}

// Start implements actor.Starter.
func (s *Source) Start(ctx context.Context, self *actor.Actor) error {
	s.self = self
	self.Send(readNext{})
	return nil
}

// Receive implements actor.Behavior.
func (s *Source) Receive(ctx context.Context, env *actor.Envelope) {
	if _, ok := env.Message.(readNext); ok {
		s.read()
		return
	}
	if !stage.Handle(ctx, env, s.status) {
		stage.Reject(env)
	}
}

// Terminate closes the open input.
func (s *Source) Terminate(ctx context.Context) error {
	if s.current != nil {
		return s.current.Close()
	}
	return nil
}

// read decodes up to one batch worth of events, ships them and schedules
// the next round. At the end of input the source stops normally.
func (s *Source) read() {
	pending := make(map[string]*types.Batch)
	var order []string
	n, failures := 0, 0
	for n < s.batchSize {
		rec, err := s.decode()
		if errors.Is(err, io.EOF) {
			s.done = true
			break
		}
		if err != nil {
			s.skipped++
			failures++
			s.logger.Warn("Skipping malformed input", zap.Error(err))
			if failures > s.batchSize {
				s.abandon()
			}
			continue
		}
		key := rec.schema + "\x00" + strings.Join(rec.fields, "\x00")
		b, ok := pending[key]
		if !ok {
			b = types.NewBatch(rec.schema, rec.fields, make([]types.Event, 0, s.batchSize))
			pending[key] = b
			order = append(order, key)
		}
		b.Rows = append(b.Rows, rec.row)
		n++
	}

	for _, key := range order {
		b := pending[key]
		s.events += uint64(b.Len())
		s.batches++
		if !s.importer.TrySend(b) {
			b.Release()
			s.logger.Warn("Importer gone, stopping source")
			s.self.Stop(nil)
			return
		}
	}
	if n > 0 {
		stage.Emit(s.sys, s.label, "source.events", float64(n))
	}

	if s.done {
		s.logger.Info("Source exhausted", zap.Uint64("events", s.events), zap.Uint64("batches", s.batches))
		s.self.Stop(nil)
		return
	}
	s.self.Send(readNext{})
}

// decode returns the next record across all inputs.
func (s *Source) decode() (record, error) {
	for {
		if s.decoder == nil {
			if len(s.inputs) == 0 {
				return record{}, io.EOF
			}
			in, err := openInput(s.inputs[0], s.stdin, s.opts.GetString("import.charset", ""))
			s.inputs = s.inputs[1:]
			if err != nil {
				return record{}, err
			}
			s.current = in
			s.decoder = s.newDecoder(in.reader, s.opts)
		}
		rec, err := s.decoder.Decode()
		if !errors.Is(err, io.EOF) {
			return rec, err
		}
		if s.newDecoder == nil {
			return record{}, io.EOF
		}
		s.current.Close()
		s.current = nil
		s.decoder = nil
	}
}

// abandon gives up on the current input after persistent read errors.
func (s *Source) abandon() {
	if s.current == nil {
		return
	}
	s.logger.Error("Abandoning unreadable input", zap.String("input", s.current.name))
	s.current.Close()
	s.current = nil
	s.decoder = nil
}

func (s *Source) status(ctx context.Context) map[string]any {
	out := map[string]any{
		"format":     s.format,
		"events":     s.events,
		"batches":    s.batches,
		"skipped":    s.skipped,
		"batch-size": s.batchSize,
		"done":       s.done,
	}
	if s.current != nil {
		out["input"] = s.current.name
		out["charset"] = s.current.charset
	}
	return out
}
