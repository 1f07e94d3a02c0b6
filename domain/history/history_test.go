package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkboard-backend/domain/config"
	"inkboard-backend/domain/core/aggregates"
	"inkboard-backend/domain/core/entities"
	"inkboard-backend/domain/core/valueobjects"
)

// snapshotWithNodes builds a snapshot carrying n nodes so entries are
// distinguishable by node count.
func snapshotWithNodes(t *testing.T, n int) aggregates.Snapshot {
	t.Helper()
	canvas, err := aggregates.NewCanvas("user-1", "h", config.DefaultDomainConfig())
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		node, err := entities.NewNode(entities.NodeTypeNote, valueobjects.Position{X: float64(i)}, entities.NodeData{})
		require.NoError(t, err)
		require.NoError(t, canvas.AddNode(node))
	}
	return canvas.Snapshot()
}

func TestUninitializedHistory(t *testing.T) {
	h := New(10)
	assert.Equal(t, StateUninitialized, h.State())
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())

	_, ok := h.Undo()
	assert.False(t, ok)
	_, ok = h.Redo()
	assert.False(t, ok)

	err := h.Record(snapshotWithNodes(t, 1))
	assert.Error(t, err, "recording before seed must fail")
}

func TestSeedMakesReady(t *testing.T) {
	h := New(10)
	h.Seed(snapshotWithNodes(t, 0))

	assert.Equal(t, StateReady, h.State())
	assert.Equal(t, 1, h.Depth())
	assert.False(t, h.CanUndo(), "seed state is the floor")
	assert.False(t, h.CanRedo())
}

func TestUndoRedoDuality(t *testing.T) {
	h := New(10)
	h.Seed(snapshotWithNodes(t, 0))
	require.NoError(t, h.Record(snapshotWithNodes(t, 1)))
	require.NoError(t, h.Record(snapshotWithNodes(t, 2)))

	snap, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, 1, snap.NodeCount())

	snap, ok = h.Undo()
	require.True(t, ok)
	assert.Equal(t, 0, snap.NodeCount())
	assert.False(t, h.CanUndo())

	snap, ok = h.Redo()
	require.True(t, ok)
	assert.Equal(t, 1, snap.NodeCount())

	snap, ok = h.Redo()
	require.True(t, ok)
	assert.Equal(t, 2, snap.NodeCount())
	assert.False(t, h.CanRedo())
}

func TestUndoAtFloorIsNoOp(t *testing.T) {
	h := New(10)
	h.Seed(snapshotWithNodes(t, 0))

	snap, ok := h.Undo()
	assert.False(t, ok)
	assert.Equal(t, 0, snap.NodeCount())
	assert.Equal(t, 0, h.Cursor())
}

func TestRedoAtTopIsNoOp(t *testing.T) {
	h := New(10)
	h.Seed(snapshotWithNodes(t, 0))
	require.NoError(t, h.Record(snapshotWithNodes(t, 1)))

	snap, ok := h.Redo()
	assert.False(t, ok)
	assert.Equal(t, 1, snap.NodeCount())
}

func TestRecordAfterUndoTruncatesFuture(t *testing.T) {
	h := New(10)
	h.Seed(snapshotWithNodes(t, 0))
	require.NoError(t, h.Record(snapshotWithNodes(t, 1)))
	require.NoError(t, h.Record(snapshotWithNodes(t, 2)))

	_, ok := h.Undo()
	require.True(t, ok)
	require.True(t, h.CanRedo())

	require.NoError(t, h.Record(snapshotWithNodes(t, 5)))

	assert.False(t, h.CanRedo(), "the undone branch is gone")
	assert.Equal(t, 3, h.Depth())

	snap, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, 1, snap.NodeCount())

	snap, ok = h.Redo()
	require.True(t, ok)
	assert.Equal(t, 5, snap.NodeCount(), "redo reaches the new branch, not the old one")
}

func TestMaxDepthEvictsOldest(t *testing.T) {
	h := New(3)
	h.Seed(snapshotWithNodes(t, 0))
	require.NoError(t, h.Record(snapshotWithNodes(t, 1)))
	require.NoError(t, h.Record(snapshotWithNodes(t, 2)))
	require.NoError(t, h.Record(snapshotWithNodes(t, 3)))

	assert.Equal(t, 3, h.Depth())

	// Walk to the floor: the seed entry was evicted, so the oldest
	// reachable state is the one-node snapshot.
	for h.CanUndo() {
		h.Undo()
	}
	snap, _ := h.Undo()
	assert.Equal(t, 1, snap.NodeCount())
}

func TestSeedAgainDiscardsStack(t *testing.T) {
	h := New(10)
	h.Seed(snapshotWithNodes(t, 0))
	require.NoError(t, h.Record(snapshotWithNodes(t, 1)))

	h.Seed(snapshotWithNodes(t, 7))
	assert.Equal(t, 1, h.Depth())
	assert.False(t, h.CanUndo())
}

func TestReset(t *testing.T) {
	h := New(10)
	h.Seed(snapshotWithNodes(t, 0))
	require.NoError(t, h.Record(snapshotWithNodes(t, 1)))

	h.Reset()
	assert.Equal(t, StateUninitialized, h.State())
	assert.Equal(t, 0, h.Depth())
	assert.Error(t, h.Record(snapshotWithNodes(t, 1)))
}
