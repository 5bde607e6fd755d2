package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeProductionModeIsNoop(t *testing.T) {
	t.Cleanup(Close)
	dir := t.TempDir()

	require.NoError(t, Initialize(dir, Options{DebugMode: false}))
	assert.False(t, IsDebugMode())

	Pipeline("should go nowhere")
	_, err := os.Stat(filepath.Join(dir, "logs"))
	assert.True(t, os.IsNotExist(err), "production mode must not create log files")
}

func TestInitializeDebugModeWritesFiles(t *testing.T) {
	t.Cleanup(Close)
	dir := t.TempDir()

	require.NoError(t, Initialize(dir, Options{DebugMode: true, Level: "debug"}))
	require.True(t, IsDebugMode())

	Get(CategoryPipeline).Info("session started")
	Close()

	files, err := filepath.Glob(filepath.Join(dir, "logs", "*_pipeline.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "session started")
}

func TestCategoryFiltering(t *testing.T) {
	t.Cleanup(Close)
	dir := t.TempDir()

	require.NoError(t, Initialize(dir, Options{
		DebugMode:  true,
		Categories: map[string]bool{"cache": false},
	}))

	assert.False(t, IsCategoryEnabled(CategoryCache))
	assert.True(t, IsCategoryEnabled(CategoryRouter), "unlisted categories default to enabled")

	Cache("filtered out")
	Close()

	files, _ := filepath.Glob(filepath.Join(dir, "logs", "*_cache.log"))
	assert.Empty(t, files, "disabled category must not open a file")
}

func TestInitializeRequiresBaseDir(t *testing.T) {
	assert.Error(t, Initialize("", Options{}))
}

func TestLevelGate(t *testing.T) {
	t.Cleanup(Close)
	dir := t.TempDir()

	require.NoError(t, Initialize(dir, Options{DebugMode: true, Level: "warn"}))

	l := Get(CategoryRouter)
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("kept warn")
	l.Error("kept error")
	Close()

	files, err := filepath.Glob(filepath.Join(dir, "logs", "*_router.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)

	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "kept warn")
	assert.Contains(t, string(data), "kept error")
}
