package integration

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gopkg.in/yaml.v3"

	api "github.com/oshokin/telerobot/internal/api/grpc/robot"
	"github.com/oshokin/telerobot/internal/config"
	"github.com/oshokin/telerobot/internal/service/client"
)

// TestGRPC_Roundtrip starts the real server and drives one robot through discrete and stream control.
func TestGRPC_Roundtrip(t *testing.T) {
	t.Parallel()

	addr := reservePort(t)

	stop := startGRPC(t, addr, config.Storage{
		Driver: config.StorageFile,
		Path:   filepath.Join(t.TempDir(), "state"),
	})
	defer stop()

	ctx := context.Background()
	c := dial(t, addr)

	health, err := c.Health(ctx)
	require.NoError(t, err)
	require.Equal(t, "SERVING", health)

	status, err := c.Status(ctx, "arm-1")
	require.NoError(t, err)
	require.Equal(t, "Idle", status.Task)
	require.Equal(t, "Ready", status.Status)

	resp, err := c.Move(ctx, "arm-1", "x", 5, "tester")
	require.NoError(t, err)
	require.Equal(t, "accepted", resp.Status)
	require.Equal(t, 5, resp.State.X)

	resp, err = c.Rotate(ctx, "arm-1", -90, "tester")
	require.NoError(t, err)
	require.Equal(t, 270, resp.State.Rotation)

	stream, err := c.Stream(ctx)
	require.NoError(t, err)

	require.NoError(t, stream.Send(&api.StreamFrame{RobotID: "arm-1", X: 1, Y: 2, Z: 3, Rotation: 45}))

	summary, err := stream.CloseAndRecv()
	require.NoError(t, err)
	require.Equal(t, 1, summary.Accepted)

	resp, err = c.Stop(ctx, "arm-1", "tester")
	require.NoError(t, err)
	require.Equal(t, "rejected", resp.Status)

	history, err := c.CommandHistory(ctx, "arm-1")
	require.NoError(t, err)
	require.Len(t, history.Commands, 2)

	record, err := c.Command(ctx, history.Commands[0].ID)
	require.NoError(t, err)
	require.Equal(t, "Move", record.CommandType)
	require.Equal(t, "tester", record.User)
}

// TestGRPC_PersistsAcrossRestart checks that state and stream history survive a restart on SQLite.
func TestGRPC_PersistsAcrossRestart(t *testing.T) {
	t.Parallel()

	storage := config.Storage{
		Driver: config.StorageSQLite,
		Path:   filepath.Join(t.TempDir(), "robots.db"),
	}

	ctx := context.Background()

	addr := reservePort(t)
	stop := startGRPC(t, addr, storage)

	c := dial(t, addr)

	_, err := c.Move(ctx, "arm-2", "z", -3, "tester")
	require.NoError(t, err)

	stream, err := c.Stream(ctx)
	require.NoError(t, err)

	for i := range 3 {
		require.NoError(t, stream.Send(&api.StreamFrame{RobotID: "arm-2", X: float64(i), Y: 7, Z: -3, Rotation: 10}))
	}

	_, err = stream.CloseAndRecv()
	require.NoError(t, err)

	stop()

	addr = reservePort(t)
	stop = startGRPC(t, addr, storage)
	defer stop()

	c = dial(t, addr)

	status, err := c.Status(ctx, "arm-2")
	require.NoError(t, err)
	require.Equal(t, 2, status.X)
	require.Equal(t, 7, status.Y)
	require.Equal(t, "VR Streaming", status.Task)

	recent, err := c.RecentStream(ctx, "arm-2")
	require.NoError(t, err)
	require.Len(t, recent.Commands, 3)

	// The stream heartbeat is not persisted, so discrete control is free after a restart.
	resp, err := c.Stop(ctx, "arm-2", "tester")
	require.NoError(t, err)
	require.Equal(t, "accepted", resp.Status)

	history, err := c.CommandHistory(ctx, "arm-2")
	require.NoError(t, err)
	require.Len(t, history.Commands, 2)
}

// TestGRPC_WatchStatus receives the initial state and a later change.
func TestGRPC_WatchStatus(t *testing.T) {
	t.Parallel()

	addr := reservePort(t)

	stop := startGRPC(t, addr, config.Storage{Path: filepath.Join(t.TempDir(), "state")})
	defer stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := dial(t, addr)

	watch, err := c.Watch(ctx, "arm-3")
	require.NoError(t, err)

	first, err := watch.Recv()
	require.NoError(t, err)
	require.Equal(t, "Idle", first.Mode)

	_, err = c.Rotate(ctx, "arm-3", 30, "tester")
	require.NoError(t, err)

	next, err := watch.Recv()
	require.NoError(t, err)
	require.Equal(t, 30, next.Rotation)
	require.Equal(t, "Rotating", next.Mode)
}

// TestGRPC_UpdateCommand edits a logged command through the robot-ctl operation.
func TestGRPC_UpdateCommand(t *testing.T) {
	t.Parallel()

	addr := reservePort(t)

	stop := startGRPC(t, addr, config.Storage{
		Driver: config.StorageSQLite,
		Path:   filepath.Join(t.TempDir(), "robots.db"),
	})
	defer stop()

	ctx := context.Background()
	c := dial(t, addr)

	resp, err := c.Stop(ctx, "arm-4", "tester")
	require.NoError(t, err)
	require.Equal(t, "accepted", resp.Status)

	var out bytes.Buffer

	opts := &client.Options{
		ConfigPath:    filepath.Join(t.TempDir(), "absent.yaml"),
		ServerAddress: addr,
		User:          "editor",
		Out:           &out,
	}

	err = client.UpdateCommand(ctx, opts, resp.ID, &client.CommandEdit{
		RobotID:  "arm-4",
		Type:     "Move",
		Axis:     "y",
		Distance: 7,
	})
	require.NoError(t, err)

	var printed api.CommandRecord
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &printed))
	require.Equal(t, resp.ID, printed.ID)

	record, err := c.Command(ctx, resp.ID)
	require.NoError(t, err)
	require.Equal(t, "Move", record.CommandType)
	require.Equal(t, "Y", record.Axis)
	require.Equal(t, 7, record.Distance)
	require.Equal(t, "editor", record.User)

	_, err = c.UpdateCommand(ctx, "missing", &api.CommandRequest{RobotID: "arm-4", CommandType: "Stop", User: "editor"})
	require.Equal(t, codes.NotFound, status.Code(errors.Unwrap(err)))
}
