package robot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func pose(n int) StreamCommand {
	return StreamCommand{X: float64(n)}
}

// TestHistory_EvictsOldestFirst pushes 25 commands and expects entries 6..25 in order.
func TestHistory_EvictsOldestFirst(t *testing.T) {
	t.Parallel()

	var h History

	for i := 1; i <= 25; i++ {
		h.Push(pose(i))
		require.LessOrEqual(t, h.Len(), HistoryCapacity)
	}

	got := h.Snapshot()
	require.Len(t, got, HistoryCapacity)

	for i, cmd := range got {
		require.InDelta(t, float64(i+6), cmd.X, 0)
	}
}

// TestHistory_SnapshotIsACopy ensures later pushes do not leak into earlier snapshots.
func TestHistory_SnapshotIsACopy(t *testing.T) {
	t.Parallel()

	var h History

	h.Push(pose(1))
	snap := h.Snapshot()
	h.Push(pose(2))

	require.Len(t, snap, 1)
	require.Equal(t, 2, h.Len())

	snap[0].X = 99
	require.InDelta(t, 1.0, h.Snapshot()[0].X, 0)
}

// TestHistory_RestoreAndReset covers reload from persisted state and full reset.
func TestHistory_RestoreAndReset(t *testing.T) {
	t.Parallel()

	var h History

	cmds := make([]StreamCommand, 0, 30)
	for i := 1; i <= 30; i++ {
		cmds = append(cmds, pose(i))
	}

	h.Restore(cmds)
	got := h.Snapshot()
	require.Len(t, got, HistoryCapacity)
	require.InDelta(t, 11.0, got[0].X, 0)
	require.InDelta(t, 30.0, got[HistoryCapacity-1].X, 0)

	h.Reset()
	require.Zero(t, h.Len())
	require.Empty(t, h.Snapshot())
}
