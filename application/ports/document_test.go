package ports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkboard-backend/domain/config"
	"inkboard-backend/domain/core/aggregates"
	"inkboard-backend/domain/core/entities"
	"inkboard-backend/domain/core/valueobjects"
)

func buildCanvas(t *testing.T) *aggregates.Canvas {
	t.Helper()
	cfg := config.DefaultDomainConfig()
	canvas, err := aggregates.NewCanvas("user-1", "doc test", cfg)
	require.NoError(t, err)

	group, err := entities.NewNode(entities.NodeTypeNote, valueobjects.Position{X: 0, Y: 0}, entities.NodeData{Content: "group"})
	require.NoError(t, err)
	group.Resize(valueobjects.Size{Width: 600, Height: 400})
	require.NoError(t, canvas.AddNode(group))

	child, err := entities.NewNode(entities.NodeTypeNote, valueobjects.Position{X: 40, Y: 40}, entities.NodeData{Content: "child", Color: "#aabbcc"})
	require.NoError(t, err)
	child.SetParent(group.ID())
	require.NoError(t, canvas.AddNode(child))

	_, err = canvas.AddEdge(group.ID(), child.ID(), entities.EdgeTypeBezier, true)
	require.NoError(t, err)

	canvas.SetSelection(map[valueobjects.NodeID]struct{}{child.ID(): {}})
	return canvas
}

func TestDocumentRoundTrip(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	canvas := buildCanvas(t)

	doc := DocumentFromCanvas(canvas, 3)
	require.Len(t, doc.Nodes, 2)
	require.Len(t, doc.Edges, 1)
	assert.Equal(t, int64(3), doc.Version)

	restored, err := CanvasFromDocument(doc, cfg)
	require.NoError(t, err)

	assert.Equal(t, canvas.ID(), restored.ID())
	assert.Equal(t, canvas.OwnerID(), restored.OwnerID())
	assert.Equal(t, canvas.Name(), restored.Name())
	assert.Equal(t, canvas.NodeCount(), restored.NodeCount())
	assert.Equal(t, canvas.EdgeCount(), restored.EdgeCount())

	for _, original := range canvas.Nodes() {
		node, err := restored.GetNode(original.ID())
		require.NoError(t, err)
		assert.Equal(t, original.Type(), node.Type())
		assert.Equal(t, original.Position(), node.Position())
		assert.Equal(t, original.Size(), node.Size())
		assert.Equal(t, original.ParentID(), node.ParentID())
		assert.Equal(t, original.Data().Content, node.Data().Content)
		assert.Equal(t, original.Selected(), node.Selected(), "selection survives a reload")
	}

	for _, original := range canvas.Edges() {
		edges := restored.OutgoingEdges(original.Source())
		require.Len(t, edges, 1)
		assert.Equal(t, original.ID(), edges[0].ID())
		assert.Equal(t, original.Type(), edges[0].Type())
		assert.Equal(t, original.Animated(), edges[0].Animated())
	}
}

func TestNodeRecordOmitsUnsetParts(t *testing.T) {
	node, err := entities.NewNode(entities.NodeTypePlain, valueobjects.Position{X: 1, Y: 2}, entities.NodeData{})
	require.NoError(t, err)

	record := NodeRecordFrom(node)
	assert.Zero(t, record.Width, "unset size stays zero so the default applies on render")
	assert.Zero(t, record.Height)
	assert.Empty(t, record.ParentID)
	assert.False(t, record.Selected)
}

func TestCanvasFromDocumentRejectsBadRecords(t *testing.T) {
	cfg := config.DefaultDomainConfig()

	t.Run("malformed node id", func(t *testing.T) {
		doc := CanvasDocument{
			ID:      valueobjects.NewCanvasID().String(),
			OwnerID: "user-1",
			Name:    "c",
			Nodes:   []NodeRecord{{ID: "not-a-uuid", Type: "note"}},
		}
		_, err := CanvasFromDocument(doc, cfg)
		assert.Error(t, err)
	})

	t.Run("unknown node type", func(t *testing.T) {
		doc := CanvasDocument{
			ID:      valueobjects.NewCanvasID().String(),
			OwnerID: "user-1",
			Name:    "c",
			Nodes:   []NodeRecord{{ID: valueobjects.NewNodeID().String(), Type: "hologram"}},
		}
		_, err := CanvasFromDocument(doc, cfg)
		assert.Error(t, err)
	})

	t.Run("edge referencing missing node", func(t *testing.T) {
		doc := CanvasDocument{
			ID:      valueobjects.NewCanvasID().String(),
			OwnerID: "user-1",
			Name:    "c",
			Edges: []EdgeRecord{{
				ID:     valueobjects.NewEdgeID().String(),
				Source: valueobjects.NewNodeID().String(),
				Target: valueobjects.NewNodeID().String(),
				Type:   "default",
			}},
		}
		_, err := CanvasFromDocument(doc, cfg)
		assert.Error(t, err)
	})
}
