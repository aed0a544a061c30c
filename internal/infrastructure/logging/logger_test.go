package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsBadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.log")
	cfg := DefaultConfig()
	cfg.OutputPaths = []string{os.DevNull}
	cfg.File = path

	logger, err := New(cfg)
	require.NoError(t, err)
	logger.Named("importer").Info("Component spawned", zap.String("label", "importer"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"logger":"importer"`)
	assert.Contains(t, string(data), `"label":"importer"`)
}

func TestSetLevelAffectsChildren(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputPaths = []string{os.DevNull}
	logger, err := New(cfg)
	require.NoError(t, err)

	child := logger.Named("archive")
	assert.False(t, child.Core().Enabled(zap.DebugLevel))
	require.NoError(t, logger.SetLevel("debug"))
	assert.True(t, child.Core().Enabled(zap.DebugLevel))
	assert.Error(t, logger.SetLevel("nope"))
}

func TestNopLogger(t *testing.T) {
	l := NewNop()
	assert.NotPanics(t, func() { l.Named("x").Info("dropped") })
}

func TestFromZapKeepsCore(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := FromZap(zap.New(core))

	l.Named("index").Info("Component spawned", zap.String("label", "index"))
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "index", entries[0].LoggerName)
	assert.Equal(t, "index", entries[0].ContextMap()["label"])
}
