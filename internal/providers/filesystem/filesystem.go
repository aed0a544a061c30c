package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/telenode/internal/domain/component"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/logging"
	"github.com/GriffinCanCode/telenode/internal/providers/stage"
)

var (
	// ErrOutsideRoot is returned for paths that escape the root directory.
	ErrOutsideRoot = errors.New("path escapes filesystem root")
	// ErrNotMapped is returned when unmapping bytes that are no live mapping.
	ErrNotMapped = errors.New("not a mapped region")
)

type counter struct {
	successful uint64
	failed     uint64
	bytes      uint64
}

func (c *counter) record(n int, err error) {
	if err != nil {
		c.failed++
		return
	}
	c.successful++
	c.bytes += uint64(n)
}

func (c *counter) status() map[string]any {
	return map[string]any{
		"successful": c.successful,
		"failed":     c.failed,
		"bytes":      c.bytes,
	}
}

// FS is the file-system behavior rooted at one directory.
type FS struct {
	root   string
	logger *logging.Logger

	writes counter
	reads  counter
	mmaps  counter

	mappings [][]byte
}

// New creates a file-system behavior rooted at root.
func New(root string, logger *logging.Logger) *FS {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FS{root: root, logger: logger}
}

// Factory spawns the file-system component rooted at the node directory.
func Factory(ctx context.Context, host component.Host, args component.SpawnArguments) (*actor.Actor, error) {
	if err := os.MkdirAll(args.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", args.Dir, err)
	}
	fs := New(args.Dir, host.Logger().Named(args.Label))
	return host.System().Spawn(args.Label, fs, actor.Detached()), nil
}

// Receive implements actor.Behavior.
func (f *FS) Receive(ctx context.Context, env *actor.Envelope) {
	switch m := env.Message.(type) {
	case Write:
		err := f.write(m.Path, m.Data)
		f.writes.record(len(m.Data), err)
		if err != nil {
			env.Reply(nil, err)
			return
		}
		env.Reply(actor.OK, nil)
	case Read:
		data, err := f.read(m.Path)
		f.reads.record(len(data), err)
		env.Reply(data, err)
	case MMap:
		data, err := f.mmap(m.Path)
		f.mmaps.record(len(data), err)
		env.Reply(data, err)
	case Unmap:
		if err := f.unmap(m.Data); err != nil {
			env.Reply(nil, err)
			return
		}
		env.Reply(actor.OK, nil)
	default:
		if !stage.Handle(ctx, env, f.status) {
			stage.Reject(env)
		}
	}
}

// Terminate releases all mappings.
func (f *FS) Terminate(ctx context.Context) error {
	var errs []error
	for _, m := range f.mappings {
		if err := unix.Munmap(m); err != nil {
			errs = append(errs, err)
		}
	}
	f.mappings = nil
	return errors.Join(errs...)
}

func (f *FS) resolve(path string) (string, error) {
	if !filepath.IsLocal(path) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return filepath.Join(f.root, path), nil
}

func (f *FS) write(path string, data []byte) error {
	full, err := f.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create parent of %s: %w", path, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		f.logger.Warn("Write failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (f *FS) read(path string) ([]byte, error) {
	full, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func (f *FS) mmap(path string) ([]byte, error) {
	full, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		return []byte{}, nil
	}
	data, err := unix.Mmap(int(file.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("failed to map %s: %w", path, err)
	}
	f.mappings = append(f.mappings, data)
	return data, nil
}

// unmap releases the mapping starting at data. Empty files are never
// mapped, so empty data is accepted as is.
func (f *FS) unmap(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	for i, m := range f.mappings {
		if &m[0] != &data[0] {
			continue
		}
		f.mappings = append(f.mappings[:i], f.mappings[i+1:]...)
		if err := unix.Munmap(m); err != nil {
			return fmt.Errorf("failed to unmap: %w", err)
		}
		return nil
	}
	return ErrNotMapped
}

// footprint walks the root and sums regular file sizes.
func (f *FS) footprint(ctx context.Context) (files, bytes int64, err error) {
	var nfiles, nbytes atomic.Int64
	conf := fastwalk.Config{Follow: false}

	err = fastwalk.Walk(&conf, f.root, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		nfiles.Add(1)
		nbytes.Add(info.Size())
		return nil
	})
	return nfiles.Load(), nbytes.Load(), err
}

func (f *FS) status(ctx context.Context) map[string]any {
	out := map[string]any{
		"type": "posix",
		"root": f.root,
		"operations": map[string]any{
			"writes": f.writes.status(),
			"reads":  f.reads.status(),
			"mmaps":  f.mmaps.status(),
		},
		"mapped-regions": len(f.mappings),
	}
	files, size, err := f.footprint(ctx)
	if err != nil {
		out["footprint"] = err.Error()
		return out
	}
	out["footprint"] = map[string]any{"files": files, "bytes": size}
	return out
}
