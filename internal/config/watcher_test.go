package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mautops/expense-approval/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, level string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := "log:\n  level: " + level + "\n  format: json\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestWatcher_NotifiesCallbackOnFileChange(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "info")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)

	w := config.NewWatcher(cfg, path)
	seen := make(chan string, 1)
	w.OnChange(func(updated *config.Config) {
		seen <- updated.Log.Level
	})
	require.NoError(t, w.Start())
	defer w.Stop()

	writeConfigFile(t, dir, "debug")

	select {
	case level := <-seen:
		assert.Equal(t, "debug", level)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config change notification")
	}
}

func TestWatcher_CurrentReturnsInitialConfigBeforeAnyChange(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "warn")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	w := config.NewWatcher(cfg, path)
	assert.Equal(t, cfg, w.Current())
}
