package providers

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/telenode/internal/domain/node"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

func TestComponentsTable(t *testing.T) {
	table := Components()

	for _, name := range []string{
		"spawn accountant", "spawn archive", "spawn importer", "spawn index",
		"spawn type-registry", "spawn eraser", "spawn exporter", "spawn counter",
		"spawn explorer", "spawn pivoter",
		"spawn source csv", "spawn source json", "spawn source suricata",
		"spawn source syslog", "spawn source test", "spawn source zeek",
		"spawn sink ascii", "spawn sink csv", "spawn sink json", "spawn sink zeek",
	} {
		assert.Contains(t, table, name)
	}
	assert.NotContains(t, table, "spawn filesystem")
	assert.Len(t, table, 20)
}

func TestNodeEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	dir := t.TempDir()
	out := filepath.Join(dir, "export", "events.json")
	sys := actor.NewSystem(nil)
	before := types.BatchInstances()

	n, err := node.Start(ctx, sys, node.Options{
		Name:       "test",
		Dir:        filepath.Join(dir, "node.db"),
		Components: Components(),
		Filesystem: Filesystem,
		Metrics:    monitoring.NewMetrics(),
	})
	require.NoError(t, err)

	spawn := func(name string, opts types.Settings) {
		t.Helper()
		if opts == nil {
			opts = types.Settings{}
		}
		_, err := n.Invoke(ctx, types.Invocation{FullName: name, Options: opts})
		require.NoError(t, err, name)
	}
	spawn("spawn accountant", nil)
	spawn("spawn importer", nil)
	spawn("spawn archive", types.Settings{"archive": types.Settings{"segment-size": 32}})
	spawn("spawn index", nil)
	spawn("spawn type-registry", nil)
	spawn("spawn sink json", types.Settings{"export": types.Settings{"write": out}})
	spawn("spawn source test", types.Settings{"spawn": types.Settings{"source": types.Settings{"max-events": 50, "batch-size": 20}}})

	require.Eventually(t, func() bool {
		comps, err := n.Components(ctx)
		if err != nil {
			return false
		}
		for _, c := range comps {
			if c.Type == "source" {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)

	v, err := n.Invoke(ctx, types.Invocation{FullName: "status", Options: types.Settings{}})
	require.NoError(t, err)
	status := v.(string)
	assert.Contains(t, status, `"importer"`)
	assert.Contains(t, status, `"filesystem"`)

	require.NoError(t, n.Stop(ctx))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 50)

	segments, err := filepath.Glob(filepath.Join(dir, "node.db", "archive", "seg_*.cbor.zst"))
	require.NoError(t, err)
	assert.NotEmpty(t, segments)

	snapshots, err := filepath.Glob(filepath.Join(dir, "node.db", "accountant", "*.jsonl"))
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)

	_, err = os.Stat(filepath.Join(dir, "node.db", "type-registry", "types.yaml"))
	assert.NoError(t, err)

	_, ok := sys.Get("accountant")
	assert.False(t, ok)
	_, ok = sys.Get("filesystem")
	assert.False(t, ok)
	assert.Equal(t, before, types.BatchInstances())
}
