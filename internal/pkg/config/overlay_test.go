package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func TestApplyYAMLOverlay_FillsUnsetKey(t *testing.T) {
	t.Setenv("OVERLAY_TEST_TOKEN", "")
	os.Unsetenv("OVERLAY_TEST_TOKEN")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("OVERLAY_TEST_TOKEN: from-file\n"), 0o600))

	ApplyYAMLOverlay(discardLogger(), path)

	assert.Equal(t, "from-file", os.Getenv("OVERLAY_TEST_TOKEN"))
}

func TestApplyYAMLOverlay_EnvWins(t *testing.T) {
	t.Setenv("OVERLAY_TEST_TOKEN", "from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("OVERLAY_TEST_TOKEN: from-file\n"), 0o600))

	ApplyYAMLOverlay(discardLogger(), path)

	assert.Equal(t, "from-env", os.Getenv("OVERLAY_TEST_TOKEN"))
}

func TestApplyYAMLOverlay_MissingFileIsNotFatal(t *testing.T) {
	ApplyYAMLOverlay(discardLogger(), filepath.Join(t.TempDir(), "does-not-exist.yaml"))
}

func TestApplyYAMLOverlay_MalformedFileIsNotFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid: yaml"), 0o600))

	ApplyYAMLOverlay(discardLogger(), path)
}
