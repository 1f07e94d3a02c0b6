package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkboard-backend/application/ports"
	"inkboard-backend/domain/core/valueobjects"
	pkgerrors "inkboard-backend/pkg/errors"
)

func testDoc(id string, version int64) ports.CanvasDocument {
	return ports.CanvasDocument{
		ID:      id,
		OwnerID: "user-1",
		Name:    "canvas",
		Version: version,
		Nodes:   []ports.NodeRecord{{ID: "n1", Type: "note"}},
	}
}

func TestSaveAndLoad(t *testing.T) {
	repo := NewCanvasRepository()
	ctx := context.Background()

	version, err := repo.Save(ctx, testDoc("c1", 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	doc, err := repo.Load(ctx, valueobjects.CanvasID("c1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Version)
	assert.Len(t, doc.Nodes, 1)
}

func TestSaveVersionChecks(t *testing.T) {
	repo := NewCanvasRepository()
	ctx := context.Background()

	_, err := repo.Save(ctx, testDoc("c1", 0))
	require.NoError(t, err)

	t.Run("create over existing conflicts", func(t *testing.T) {
		_, err := repo.Save(ctx, testDoc("c1", 0))
		assert.True(t, pkgerrors.IsConflict(err))
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		_, err := repo.Save(ctx, testDoc("c1", 99))
		assert.True(t, pkgerrors.IsConflict(err))
	})

	t.Run("matching version increments", func(t *testing.T) {
		version, err := repo.Save(ctx, testDoc("c1", 1))
		require.NoError(t, err)
		assert.Equal(t, int64(2), version)
	})

	t.Run("update of absent canvas conflicts", func(t *testing.T) {
		_, err := repo.Save(ctx, testDoc("missing", 3))
		assert.True(t, pkgerrors.IsConflict(err))
	})
}

func TestLoadUnknownCanvas(t *testing.T) {
	repo := NewCanvasRepository()

	_, err := repo.Load(context.Background(), valueobjects.CanvasID("nope"))
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestLoadReturnsIsolatedCopy(t *testing.T) {
	repo := NewCanvasRepository()
	ctx := context.Background()

	_, err := repo.Save(ctx, testDoc("c1", 0))
	require.NoError(t, err)

	doc, err := repo.Load(ctx, valueobjects.CanvasID("c1"))
	require.NoError(t, err)
	doc.Nodes[0].ID = "mutated"

	again, err := repo.Load(ctx, valueobjects.CanvasID("c1"))
	require.NoError(t, err)
	assert.Equal(t, "n1", again.Nodes[0].ID)
}

func TestDelete(t *testing.T) {
	repo := NewCanvasRepository()
	ctx := context.Background()

	_, err := repo.Save(ctx, testDoc("c1", 0))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "user-1", valueobjects.CanvasID("c1")))
	_, err = repo.Load(ctx, valueobjects.CanvasID("c1"))
	assert.True(t, pkgerrors.IsNotFound(err))

	assert.NoError(t, repo.Delete(ctx, "user-1", valueobjects.CanvasID("c1")), "deleting twice is a no-op")
}

func TestListByOwner(t *testing.T) {
	repo := NewCanvasRepository()
	ctx := context.Background()

	_, err := repo.Save(ctx, testDoc("c1", 0))
	require.NoError(t, err)
	_, err = repo.Save(ctx, testDoc("c2", 0))
	require.NoError(t, err)

	other := testDoc("c3", 0)
	other.OwnerID = "user-2"
	_, err = repo.Save(ctx, other)
	require.NoError(t, err)

	summaries, err := repo.ListByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	for _, s := range summaries {
		assert.Equal(t, 1, s.NodeCount)
		assert.NotEmpty(t, s.UpdatedAt)
	}

	none, err := repo.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}
