package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/telenode/internal/domain/component"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/providers/filesystem"
	"github.com/GriffinCanCode/telenode/internal/providers/stage/stagetest"
	"github.com/GriffinCanCode/telenode/internal/shared/paths"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

func withFS(t *testing.T, host *stagetest.Host) string {
	t.Helper()
	dir := t.TempDir()
	fs, err := filesystem.Factory(context.Background(), host, stagetest.Args("spawn filesystem", "filesystem", dir, nil))
	require.NoError(t, err)
	host.Sys.Put(component.FilesystemName, fs)
	t.Cleanup(func() { _ = fs.Terminate(context.Background()) })
	return dir
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func batch(schema string, n int) *types.Batch {
	rows := make([]types.Event, n)
	for i := range rows {
		rows[i] = types.Event{int64(i), "x"}
	}
	return types.NewBatch(schema, []string{"ts", "msg"}, rows)
}

// barrier waits until a has processed everything queued before it.
func barrier(t *testing.T, a *actor.Actor) {
	t.Helper()
	_, err := a.Request(testCtx(t), actor.StatusRequest{})
	require.NoError(t, err)
}

func TestImporterDistributes(t *testing.T) {
	host := stagetest.NewHost()
	dir := withFS(t, host)
	ctx := testCtx(t)

	idx, err := IndexFactory(ctx, host, stagetest.Args("spawn index", "index", dir, nil))
	require.NoError(t, err)
	host.Add("index", "index", idx)

	sinkLog := &stagetest.Collector{}
	sink := host.Sys.Spawn("sink-1", sinkLog)
	host.Add("sink-1", "sink", sink)

	tr, err := TypeRegistryFactory(ctx, host, stagetest.Args("spawn type-registry", "type-registry", dir, nil))
	require.NoError(t, err)
	host.Add("type-registry", "type-registry", tr)

	imp, err := ImporterFactory(ctx, host, stagetest.Args("spawn importer", "importer", dir, nil))
	require.NoError(t, err)

	b1, b2, b3 := batch("zeek.conn", 3), batch("zeek.dns", 2), batch("zeek.conn", 4)
	for _, b := range []*types.Batch{b1, b2, b3} {
		_, err := imp.Request(ctx, b)
		require.NoError(t, err)
	}
	barrier(t, idx)
	barrier(t, tr)

	assert.Equal(t, uint64(0), b1.FirstID)
	assert.Equal(t, uint64(3), b2.FirstID)
	assert.Equal(t, uint64(5), b3.FirstID)

	msgs := sinkLog.Messages()
	require.Len(t, msgs, 3)
	assert.Same(t, b2, msgs[1])

	got, err := idx.Request(ctx, actor.StatusRequest{})
	require.NoError(t, err)
	status := got.(map[string]any)
	assert.Equal(t, uint64(9), status["events"])
	assert.Equal(t, uint64(8), status["last-id"])

	got, err = idx.Request(ctx, Lookup{Field: "msg"})
	require.NoError(t, err)
	assert.Equal(t, []string{"zeek.conn", "zeek.dns"}, got)

	got, err = tr.Request(ctx, Types{})
	require.NoError(t, err)
	assert.Equal(t, []Schema{
		{Name: "zeek.conn", Fields: []string{"ts", "msg"}},
		{Name: "zeek.dns", Fields: []string{"ts", "msg"}},
	}, got)

	got, err = imp.Request(ctx, actor.StatusRequest{})
	require.NoError(t, err)
	assert.Equal(t, uint64(9), got.(map[string]any)["next-id"])
	assert.Equal(t, 2, got.(map[string]any)["consumers"])

	// The collector never releases; everything else has.
	for _, b := range msgs {
		b.(*types.Batch).Release()
	}

	require.NoError(t, imp.Terminate(ctx))
	require.NoError(t, tr.Terminate(ctx))

	data, err := os.ReadFile(filepath.Join(dir, paths.ImporterNextID))
	require.NoError(t, err)
	assert.Equal(t, "9\n", string(data))

	resumed, err := ImporterFactory(ctx, host, stagetest.Args("spawn importer", "importer", dir, nil))
	require.NoError(t, err)
	got, err = resumed.Request(ctx, actor.StatusRequest{})
	require.NoError(t, err)
	assert.Equal(t, uint64(9), got.(map[string]any)["next-id"])
	require.NoError(t, resumed.Terminate(ctx))

	reloaded, err := TypeRegistryFactory(ctx, host, stagetest.Args("spawn type-registry", "type-registry", dir, nil))
	require.NoError(t, err)
	got, err = reloaded.Request(ctx, actor.StatusRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"zeek.conn", "zeek.dns"}, got.(map[string]any)["types"])
	require.NoError(t, reloaded.Terminate(ctx))
	require.NoError(t, idx.Terminate(ctx))
}

func TestImporterWithoutConsumersReleases(t *testing.T) {
	host := stagetest.NewHost()
	ctx := testCtx(t)
	imp, err := ImporterFactory(ctx, host, stagetest.Args("spawn importer", "importer", "", nil))
	require.NoError(t, err)

	before := types.BatchInstances()
	b := batch("test", 5)
	_, err = imp.Request(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, before, types.BatchInstances())
	require.NoError(t, imp.Terminate(ctx))
}

func TestImporterCorruptIDBlock(t *testing.T) {
	host := stagetest.NewHost()
	dir := withFS(t, host)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "importer"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, paths.ImporterNextID), []byte("nope"), 0o644))

	_, err := ImporterFactory(testCtx(t), host, stagetest.Args("spawn importer", "importer", dir, nil))
	assert.Error(t, err)
}

func TestGenericStage(t *testing.T) {
	host := stagetest.NewHost()
	ctx := testCtx(t)
	inv := stagetest.Args("spawn counter", "counter-1", "", types.Settings{"counter": types.Settings{"estimate": true}})
	inv.Invocation.Arguments = []string{"#type == \"zeek.conn\""}

	a, err := GenericFactory("counter")(ctx, host, inv)
	require.NoError(t, err)

	before := types.BatchInstances()
	_, err = a.Request(ctx, batch("zeek.conn", 4))
	require.NoError(t, err)
	assert.Equal(t, before, types.BatchInstances())

	got, err := a.Request(ctx, actor.Atom("status"))
	require.NoError(t, err)
	status := got.(map[string]any)
	assert.Equal(t, "counter", status["kind"])
	assert.Equal(t, uint64(4), status["events"])
	assert.Equal(t, uint64(2), status["messages"])
	assert.Equal(t, []string{"#type == \"zeek.conn\""}, status["arguments"])

	_, err = a.Request(ctx, "bogus")
	assert.Error(t, err)
	require.NoError(t, a.Terminate(ctx))
}
