// Package accountant collects measurements reported by components and
// summarizes them in its status.
package accountant

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/telenode/internal/domain/component"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/logging"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/telenode/internal/providers/filesystem"
	"github.com/GriffinCanCode/telenode/internal/providers/stage"
	"github.com/GriffinCanCode/telenode/internal/shared/id"
	"github.com/GriffinCanCode/telenode/internal/shared/paths"
)

// Report is a single measurement.
type Report = stage.Report

// DefaultWindow bounds the samples kept per key.
const DefaultWindow = 1024

const flushTimeout = 5 * time.Second

type series struct {
	samples []float64
	total   uint64
	last    float64
	updated time.Time
}

func (s *series) add(v float64, window int) {
	if len(s.samples) == window {
		copy(s.samples, s.samples[1:])
		s.samples = s.samples[:window-1]
	}
	s.samples = append(s.samples, v)
	s.total++
	s.last = v
	s.updated = time.Now()
}

func (s *series) summary() map[string]any {
	mean, std := stat.MeanStdDev(s.samples, nil)
	if len(s.samples) < 2 {
		std = 0
	}
	return map[string]any{
		"count":  s.total,
		"last":   s.last,
		"mean":   mean,
		"stddev": std,
		"min":    floats.Min(s.samples),
		"max":    floats.Max(s.samples),
	}
}

// Accountant is the accountant behavior.
type Accountant struct {
	window  int
	fs      *actor.Actor
	metrics *monitoring.Metrics
	logger  *logging.Logger

	series map[string]map[string]*series
}

// New creates an accountant. fs may be nil, in which case nothing is
// persisted.
func New(window int, fs *actor.Actor, metrics *monitoring.Metrics, logger *logging.Logger) *Accountant {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Accountant{
		window:  window,
		fs:      fs,
		metrics: metrics,
		logger:  logger,
		series:  make(map[string]map[string]*series),
	}
}

// Factory spawns the accountant and publishes it in the system directory.
func Factory(ctx context.Context, host component.Host, args component.SpawnArguments) (*actor.Actor, error) {
	sys := host.System()
	fs, _ := sys.Get(component.FilesystemName)
	acc := New(args.Options().GetInt("accountant.window", DefaultWindow), fs, host.Metrics(), host.Logger().Named(args.Label))
	a := sys.Spawn(args.Label, acc)
	sys.Put(component.AccountantName, a)
	return a, nil
}

// Receive implements actor.Behavior.
func (acc *Accountant) Receive(ctx context.Context, env *actor.Envelope) {
	switch m := env.Message.(type) {
	case Report:
		acc.record(m)
		env.Reply(actor.OK, nil)
	case actor.Atom:
		if m == stage.Flush {
			env.Reply(acc.flush(ctx))
			return
		}
		stage.Handle(ctx, env, acc.status)
	default:
		if !stage.Handle(ctx, env, acc.status) {
			stage.Reject(env)
		}
	}
}

// Terminate writes a final snapshot.
func (acc *Accountant) Terminate(ctx context.Context) error {
	_, err := acc.flush(ctx)
	return err
}

func (acc *Accountant) record(r Report) {
	keys, ok := acc.series[r.Actor]
	if !ok {
		keys = make(map[string]*series)
		acc.series[r.Actor] = keys
	}
	s, ok := keys[r.Key]
	if !ok {
		s = &series{}
		keys[r.Key] = s
	}
	s.add(r.Value, acc.window)
	acc.metrics.SetComponentValue(r.Actor, r.Key, r.Value)
}

func (acc *Accountant) status(ctx context.Context) map[string]any {
	out := make(map[string]any, len(acc.series))
	for name, keys := range acc.series {
		summaries := make(map[string]any, len(keys))
		for key, s := range keys {
			summaries[key] = s.summary()
		}
		out[name] = summaries
	}
	return out
}

type line struct {
	Actor   string    `json:"actor"`
	Key     string    `json:"key"`
	Value   float64   `json:"value"`
	Count   uint64    `json:"count"`
	Updated time.Time `json:"updated"`
}

// snapshot renders the last value of every series as JSON lines, sorted by
// actor and key.
func (acc *Accountant) snapshot() ([]byte, error) {
	var lines []line
	for name, keys := range acc.series {
		for key, s := range keys {
			lines = append(lines, line{Actor: name, Key: key, Value: s.last, Count: s.total, Updated: s.updated})
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Actor != lines[j].Actor {
			return lines[i].Actor < lines[j].Actor
		}
		return lines[i].Key < lines[j].Key
	})

	var buf bytes.Buffer
	for _, l := range lines {
		b, err := sonic.Marshal(l)
		if err != nil {
			return nil, fmt.Errorf("failed to encode snapshot: %w", err)
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// flush persists a snapshot and returns its path.
func (acc *Accountant) flush(ctx context.Context) (string, error) {
	if acc.fs == nil || len(acc.series) == 0 {
		return "", nil
	}
	data, err := acc.snapshot()
	if err != nil {
		return "", err
	}
	path := paths.Snapshot(id.NewSnapshotID().String())

	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	if _, err := acc.fs.Request(ctx, filesystem.Write{Path: path, Data: data}); err != nil {
		acc.logger.Error("Failed to persist snapshot", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("failed to persist snapshot: %w", err)
	}
	acc.logger.Debug("Snapshot persisted", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}
