package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields, format validations and defaults.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing address.
	require.Error(t, Validate(new(Config)))

	// Bad address.
	require.Error(t, Validate(&Config{ServerAddress: "no-port"}))

	// Unknown driver.
	require.ErrorIs(t, Validate(&Config{
		ServerAddress: "127.0.0.1:50051",
		Storage:       Storage{Driver: "mongo"},
	}), errUnknownStorageDriver)

	// Negative size.
	require.ErrorIs(t, Validate(&Config{
		ServerAddress: "127.0.0.1:50051",
		Actor:         Actor{MailboxSize: -1},
	}), errNegativeSetting)

	// Defaults.
	cfg := &Config{ServerAddress: "127.0.0.1:50051"}
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.Equal(t, StorageFile, cfg.Storage.Driver)
	require.Equal(t, DefaultStatePath, cfg.Storage.Path)
	require.Equal(t, DefaultArbitrationWindow, cfg.Actor.ArbitrationWindow)
	require.Equal(t, DefaultMailboxSize, cfg.Actor.MailboxSize)
	require.Equal(t, DefaultIdleTimeout, cfg.Actor.IdleTimeout)
	require.Equal(t, DefaultServiceName, cfg.Telemetry.ServiceName)

	cfg = &Config{ServerAddress: ":50051", Storage: Storage{Driver: "SQLite"}}
	require.NoError(t, Validate(cfg))
	require.Equal(t, StorageSQLite, cfg.Storage.Driver)
	require.Equal(t, DefaultDatabasePath, cfg.Storage.Path)
}

// TestSaveLoadRoundtrip ensures YAML and TOML settings are persisted and loaded back.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"settings.yaml", "settings.toml"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), name)
			cfg := &Config{
				ServerAddress: "127.0.0.1:50051",
				Timeout:       3 * time.Second,
				Storage:       Storage{Driver: StorageSQLite, Path: "robots.db"},
				Actor:         Actor{ArbitrationWindow: 4 * time.Second, MailboxSize: 8},
			}

			require.NoError(t, Save(path, cfg))

			loaded, err := Load(path)
			require.NoError(t, err)
			require.Equal(t, cfg.ServerAddress, loaded.ServerAddress)
			require.Equal(t, 3*time.Second, loaded.Timeout)
			require.Equal(t, StorageSQLite, loaded.Storage.Driver)
			require.Equal(t, "robots.db", loaded.Storage.Path)
			require.Equal(t, 4*time.Second, loaded.Actor.ArbitrationWindow)
			require.Equal(t, 8, loaded.Actor.MailboxSize)

			_, err = os.Stat(path)
			require.NoError(t, err)
		})
	}
}

// TestLoad_EnvOverrides verifies TELEROBOT_* variables win over the file.
func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	contents := "server_addr: 127.0.0.1:50051\nactor:\n  arbitration_window: 10s\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), DefaultFilePermissions))

	t.Setenv("TELEROBOT_ARBITRATION_WINDOW", "2s")
	t.Setenv("TELEROBOT_STORAGE_DRIVER", "sqlite")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, cfg.Actor.ArbitrationWindow)
	require.Equal(t, StorageSQLite, cfg.Storage.Driver)
}

// TestLoad_MissingFile returns a read error.
func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
