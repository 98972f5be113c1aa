package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/telerobot/internal/config"
	"github.com/oshokin/telerobot/internal/telemetry"
)

// TestRun_FlushesTracingWhenStorageFails replaces the package-level telemetry
// setup, so it must not run in parallel.
func TestRun_FlushesTracingWhenStorageFails(t *testing.T) {
	dir := t.TempDir()

	// A regular file where the state directory should be.
	blocked := filepath.Join(dir, "state")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), config.DefaultFilePermissions))

	settingsPath := filepath.Join(dir, "telerobot.yaml")
	require.NoError(t, config.Save(settingsPath, &config.Config{
		ServerAddress: "127.0.0.1:0",
		Storage:       config.Storage{Driver: config.StorageFile, Path: blocked},
	}))

	var shutdowns int

	original := setupTelemetry
	setupTelemetry = func(context.Context, string, string) (telemetry.ShutdownFunc, error) {
		return func(context.Context) error {
			shutdowns++

			return nil
		}, nil
	}

	t.Cleanup(func() {
		setupTelemetry = original
	})

	err := Run(context.Background(), &Options{ConfigPath: settingsPath})
	require.ErrorContains(t, err, "open storage")
	require.Equal(t, 1, shutdowns)
}
