package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/telerobot/internal/config"
	"github.com/oshokin/telerobot/internal/domain/robot"
)

// TestOpenStorage_Drivers checks that both drivers store state and commands.
func TestOpenStorage_Drivers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.Storage
	}{
		{
			name: "file",
			cfg:  config.Storage{Driver: config.StorageFile, Path: filepath.Join(t.TempDir(), "state")},
		},
		{
			name: "sqlite",
			cfg:  config.Storage{Driver: config.StorageSQLite, Path: filepath.Join(t.TempDir(), "robots.db")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()

			store, err := openStorage(ctx, &tt.cfg)
			require.NoError(t, err)

			defer func() {
				require.NoError(t, store.close())
			}()

			now := time.Now().UTC().Truncate(time.Second)

			require.NoError(t, store.states.Save(ctx, robot.NewState("r1", now)))

			loaded, err := store.states.Load(ctx, "r1")
			require.NoError(t, err)
			require.Equal(t, robot.TaskIdle, loaded.Task)

			cmd := &robot.DiscreteCommand{ID: "c1", RobotID: "r1", Type: robot.CommandStop, User: "u", Timestamp: now}
			require.NoError(t, store.commands.Append(ctx, cmd))

			got, err := store.commands.Get(ctx, "c1")
			require.NoError(t, err)
			require.Equal(t, robot.CommandStop, got.Type)
		})
	}

	_, err := openStorage(context.Background(), &config.Storage{Driver: "mongo"})
	require.Error(t, err)
}

// TestResolveListenAddress covers override, port extraction and missing config.
func TestResolveListenAddress(t *testing.T) {
	t.Parallel()

	addr, err := resolveListenAddress("robots.example.com:8080", "")
	require.NoError(t, err)
	require.Equal(t, ":8080", addr)

	addr, err = resolveListenAddress("robots.example.com:8080", "127.0.0.1:9090")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9090", addr)

	_, err = resolveListenAddress("", "")
	require.ErrorIs(t, err, ErrNoServerAddress)

	_, err = resolveListenAddress("no-port", "")
	require.Error(t, err)
}
