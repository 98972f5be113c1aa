package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/telerobot/internal/domain/robot"
	"github.com/oshokin/telerobot/internal/repository/command"
	"github.com/oshokin/telerobot/internal/repository/state"
)

func openTempStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "telerobot.db")

	store, err := Open(context.Background(), path)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store, path
}

// TestOpen_RequiresPath rejects an empty database path.
func TestOpen_RequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), " ")
	require.Error(t, err)
}

// TestStore_StateRoundtrip saves, updates and reloads one robot.
func TestStore_StateRoundtrip(t *testing.T) {
	t.Parallel()

	store, _ := openTempStore(t)
	ctx := context.Background()

	_, err := store.Load(ctx, "TX-010")
	require.ErrorIs(t, err, state.ErrNotFound)

	ts := time.Date(2026, time.October, 19, 8, 0, 0, 0, time.UTC)
	st := robot.NewState("TX-010", ts)
	st.X = 5
	require.NoError(t, store.Save(ctx, st))

	st.Rotation = 270
	st.RecentStreamCommands = []robot.StreamCommand{{X: 1.25, Rotation: 10, Timestamp: ts}}
	require.NoError(t, store.Save(ctx, st))

	got, err := store.Load(ctx, "TX-010")
	require.NoError(t, err)
	require.Equal(t, 5, got.X)
	require.Equal(t, 270, got.Rotation)
	require.Equal(t, robot.TaskIdle, got.Task)
	require.True(t, ts.Equal(got.LastUpdate))
	require.Len(t, got.RecentStreamCommands, 1)
	require.InDelta(t, 1.25, got.RecentStreamCommands[0].X, 0)
}

// TestStore_SurvivesReopen checks durability across process restarts.
func TestStore_SurvivesReopen(t *testing.T) {
	t.Parallel()

	store, path := openTempStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, robot.NewState("TX-011", time.Now())))
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)

	defer func() {
		_ = reopened.Close()
	}()

	got, err := reopened.Load(ctx, "TX-011")
	require.NoError(t, err)
	require.Equal(t, robot.StatusReady, got.Status)
}

// TestStore_CommandLog appends commands and queries them back.
func TestStore_CommandLog(t *testing.T) {
	t.Parallel()

	store, _ := openTempStore(t)
	ctx := context.Background()
	ts := time.Now().UTC().Truncate(time.Millisecond)

	first := &robot.DiscreteCommand{ID: "a", RobotID: "TX-1", Type: robot.CommandMove, Axis: robot.AxisZ, Distance: 3, User: "op", Timestamp: ts}
	second := &robot.DiscreteCommand{ID: "b", RobotID: "TX-1", Type: robot.CommandRotate, RotateAngle: 45, User: "op", Timestamp: ts}
	other := &robot.DiscreteCommand{ID: "c", RobotID: "TX-2", Type: robot.CommandStop, User: "op", Timestamp: ts}

	for _, cmd := range []*robot.DiscreteCommand{first, second, other} {
		require.NoError(t, store.Append(ctx, cmd))
	}

	list, err := store.ListByRobot(ctx, "TX-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "a", list[0].ID)
	require.Equal(t, robot.AxisZ, list[0].Axis)
	require.Equal(t, "b", list[1].ID)

	got, err := store.Get(ctx, "c")
	require.NoError(t, err)
	require.Equal(t, robot.CommandStop, got.Type)
	require.True(t, ts.Equal(got.Timestamp))

	_, err = store.Get(ctx, "zzz")
	require.ErrorIs(t, err, command.ErrNotFound)

	// Duplicate ids are refused.
	require.Error(t, store.Append(ctx, first))
}

// TestStore_UpdateCommand replaces a logged command without moving it.
func TestStore_UpdateCommand(t *testing.T) {
	t.Parallel()

	store, _ := openTempStore(t)
	ctx := context.Background()
	ts := time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

	err := store.Update(ctx, &robot.DiscreteCommand{ID: "missing", RobotID: "TX-020"})
	require.ErrorIs(t, err, command.ErrNotFound)

	for _, id := range []string{"u1", "u2"} {
		require.NoError(t, store.Append(ctx, &robot.DiscreteCommand{
			ID: id, RobotID: "TX-020", Type: robot.CommandStop, User: "op", Timestamp: ts,
		}))
	}

	require.NoError(t, store.Update(ctx, &robot.DiscreteCommand{
		ID:        "u1",
		RobotID:   "TX-020",
		Type:      robot.CommandMove,
		Axis:      robot.AxisZ,
		Distance:  -4,
		User:      "editor",
		Timestamp: ts.Add(time.Minute),
	}))

	list, err := store.ListByRobot(ctx, "TX-020")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "u1", list[0].ID)
	require.Equal(t, robot.CommandMove, list[0].Type)
	require.Equal(t, robot.AxisZ, list[0].Axis)
	require.Equal(t, -4, list[0].Distance)
	require.Equal(t, "editor", list[0].User)
	require.True(t, ts.Add(time.Minute).Equal(list[0].Timestamp))
	require.Equal(t, "u2", list[1].ID)
}
