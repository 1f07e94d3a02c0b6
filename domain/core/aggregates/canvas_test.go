package aggregates

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkboard-backend/domain/config"
	"inkboard-backend/domain/core/entities"
	"inkboard-backend/domain/core/valueobjects"
	pkgerrors "inkboard-backend/pkg/errors"
)

func newTestCanvas(t *testing.T) *Canvas {
	t.Helper()
	canvas, err := NewCanvas("user-1", "Test Canvas", config.DefaultDomainConfig())
	require.NoError(t, err)
	return canvas
}

func addTestNode(t *testing.T, canvas *Canvas, x, y float64) *entities.Node {
	t.Helper()
	node, err := entities.NewNode(entities.NodeTypeNote, valueobjects.Position{X: x, Y: y}, entities.NodeData{})
	require.NoError(t, err)
	require.NoError(t, canvas.AddNode(node))
	return node
}

func TestNewCanvas(t *testing.T) {
	canvas := newTestCanvas(t)
	assert.Equal(t, "user-1", canvas.OwnerID())
	assert.Equal(t, "Test Canvas", canvas.Name())
	assert.Equal(t, 0, canvas.NodeCount())
	assert.Equal(t, valueobjects.DefaultViewport(), canvas.Viewport())

	_, err := NewCanvas("", "x", nil)
	assert.Error(t, err)

	unnamed, err := NewCanvas("user-1", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Untitled", unnamed.Name())
}

func TestAddNodeRejectsDuplicateID(t *testing.T) {
	canvas := newTestCanvas(t)
	node := addTestNode(t, canvas, 0, 0)

	err := canvas.AddNode(node)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
	assert.Equal(t, 1, canvas.NodeCount())
}

func TestRemoveNodeCascadesEdges(t *testing.T) {
	canvas := newTestCanvas(t)
	a := addTestNode(t, canvas, 0, 0)
	b := addTestNode(t, canvas, 100, 0)
	c := addTestNode(t, canvas, 200, 0)

	_, err := canvas.AddEdge(a.ID(), b.ID(), entities.EdgeTypeDefault, false)
	require.NoError(t, err)
	_, err = canvas.AddEdge(b.ID(), c.ID(), entities.EdgeTypeDefault, false)
	require.NoError(t, err)
	surviving, err := canvas.AddEdge(a.ID(), c.ID(), entities.EdgeTypeDefault, false)
	require.NoError(t, err)

	canvas.RemoveNode(b.ID())

	assert.Equal(t, 2, canvas.NodeCount())
	assert.Equal(t, 1, canvas.EdgeCount())
	assert.Equal(t, surviving.ID(), canvas.Edges()[0].ID())
	assert.NoError(t, canvas.Validate())
}

func TestRemoveNodeAbsentIsNoOp(t *testing.T) {
	canvas := newTestCanvas(t)
	addTestNode(t, canvas, 0, 0)
	canvas.MarkEventsAsCommitted()

	canvas.RemoveNode(valueobjects.NewNodeID())

	assert.Equal(t, 1, canvas.NodeCount())
	assert.Empty(t, canvas.GetUncommittedEvents())
}

func TestUpdateNodeDataShallowMerge(t *testing.T) {
	canvas := newTestCanvas(t)
	node, err := entities.NewNode(entities.NodeTypeNote, valueobjects.Position{}, entities.NodeData{
		Content: "original",
		Color:   "blue",
	})
	require.NoError(t, err)
	require.NoError(t, canvas.AddNode(node))

	content := "patched"
	err = canvas.UpdateNodeData(node.ID(), entities.NodeDataPatch{Content: &content})
	require.NoError(t, err)

	got, err := canvas.GetNode(node.ID())
	require.NoError(t, err)
	assert.Equal(t, "patched", got.Data().Content)
	assert.Equal(t, "blue", got.Data().Color, "untouched fields survive the patch")

	err = canvas.UpdateNodeData(valueobjects.NewNodeID(), entities.NodeDataPatch{Content: &content})
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestMoveAndResizeNode(t *testing.T) {
	canvas := newTestCanvas(t)
	node := addTestNode(t, canvas, 0, 0)

	require.NoError(t, canvas.MoveNode(node.ID(), valueobjects.Position{X: 50, Y: 60}))
	assert.Equal(t, valueobjects.Position{X: 50, Y: 60}, node.Position())

	require.NoError(t, canvas.ResizeNode(node.ID(), valueobjects.Size{Width: 400, Height: 250}))
	assert.Equal(t, valueobjects.Size{Width: 400, Height: 250}, node.Size())

	assert.True(t, pkgerrors.IsNotFound(canvas.MoveNode(valueobjects.NewNodeID(), valueobjects.Position{})))
}

func TestSetSelectionIsExclusive(t *testing.T) {
	canvas := newTestCanvas(t)
	a := addTestNode(t, canvas, 0, 0)
	b := addTestNode(t, canvas, 100, 0)
	c := addTestNode(t, canvas, 200, 0)

	canvas.SetSelection(map[valueobjects.NodeID]struct{}{a.ID(): {}, b.ID(): {}})
	assert.True(t, a.Selected())
	assert.True(t, b.Selected())
	assert.False(t, c.Selected())

	canvas.SetSelection(map[valueobjects.NodeID]struct{}{c.ID(): {}})
	assert.False(t, a.Selected())
	assert.False(t, b.Selected())
	assert.True(t, c.Selected())

	canvas.SetSelection(nil)
	assert.Empty(t, canvas.SelectedIDs())
}

func TestAddEdgeRequiresBothEndpoints(t *testing.T) {
	canvas := newTestCanvas(t)
	a := addTestNode(t, canvas, 0, 0)

	_, err := canvas.AddEdge(a.ID(), valueobjects.NewNodeID(), entities.EdgeTypeDefault, false)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Equal(t, 0, canvas.EdgeCount())

	_, err = canvas.AddEdge(valueobjects.NewNodeID(), a.ID(), entities.EdgeTypeDefault, false)
	assert.Error(t, err)
}

func TestAddEdgeRejectsSelfEdge(t *testing.T) {
	canvas := newTestCanvas(t)
	a := addTestNode(t, canvas, 0, 0)

	_, err := canvas.AddEdge(a.ID(), a.ID(), entities.EdgeTypeDefault, false)
	assert.Error(t, err)
}

func TestRemoveEdge(t *testing.T) {
	canvas := newTestCanvas(t)
	a := addTestNode(t, canvas, 0, 0)
	b := addTestNode(t, canvas, 100, 0)
	edge, err := canvas.AddEdge(a.ID(), b.ID(), entities.EdgeTypeDefault, false)
	require.NoError(t, err)

	require.NoError(t, canvas.RemoveEdge(edge.ID()))
	assert.Equal(t, 0, canvas.EdgeCount())

	assert.True(t, pkgerrors.IsNotFound(canvas.RemoveEdge(edge.ID())))
}

func TestNodesInRectUsesCenterPoint(t *testing.T) {
	canvas := newTestCanvas(t)

	// Default size 300x200, so the center is position + (150, 100).
	inside := addTestNode(t, canvas, 0, 0)
	addTestNode(t, canvas, 500, 500)

	// Position outside the rect but whose center falls inside.
	straddling := addTestNode(t, canvas, -140, -90)

	// Node overlapping the rect whose center is outside it.
	overlapping, err := entities.NewNode(entities.NodeTypeNote, valueobjects.Position{X: 180, Y: 0}, entities.NodeData{})
	require.NoError(t, err)
	require.NoError(t, canvas.AddNode(overlapping))

	rect := valueobjects.NewRect(0, 0, 200, 200)
	got := canvas.NodesInRect(rect)

	ids := make([]valueobjects.NodeID, 0, len(got))
	for _, n := range got {
		ids = append(ids, n.ID())
	}
	assert.ElementsMatch(t, []valueobjects.NodeID{inside.ID(), straddling.ID()}, ids)
}

func TestIncomingOutgoingEdges(t *testing.T) {
	canvas := newTestCanvas(t)
	a := addTestNode(t, canvas, 0, 0)
	b := addTestNode(t, canvas, 100, 0)
	c := addTestNode(t, canvas, 200, 0)

	ab, err := canvas.AddEdge(a.ID(), b.ID(), entities.EdgeTypeDefault, false)
	require.NoError(t, err)
	cb, err := canvas.AddEdge(c.ID(), b.ID(), entities.EdgeTypeDefault, false)
	require.NoError(t, err)
	bc, err := canvas.AddEdge(b.ID(), c.ID(), entities.EdgeTypeDefault, false)
	require.NoError(t, err)

	incoming := canvas.IncomingEdges(b.ID())
	require.Len(t, incoming, 2)
	assert.Equal(t, ab.ID(), incoming[0].ID())
	assert.Equal(t, cb.ID(), incoming[1].ID())

	outgoing := canvas.OutgoingEdges(b.ID())
	require.Len(t, outgoing, 1)
	assert.Equal(t, bc.ID(), outgoing[0].ID())

	assert.Empty(t, canvas.IncomingEdges(a.ID()))
}

func TestSnapshotRestore(t *testing.T) {
	canvas := newTestCanvas(t)
	a := addTestNode(t, canvas, 0, 0)
	b := addTestNode(t, canvas, 100, 0)
	_, err := canvas.AddEdge(a.ID(), b.ID(), entities.EdgeTypeDefault, false)
	require.NoError(t, err)

	snapshot := canvas.Snapshot()

	canvas.RemoveNode(a.ID())
	addTestNode(t, canvas, 999, 999)
	require.Equal(t, 2, canvas.NodeCount())
	require.Equal(t, 0, canvas.EdgeCount())

	canvas.MarkEventsAsCommitted()
	canvas.Restore(snapshot)

	assert.Equal(t, 2, canvas.NodeCount())
	assert.Equal(t, 1, canvas.EdgeCount())
	assert.True(t, canvas.HasNode(a.ID()))
	assert.True(t, canvas.HasNode(b.ID()))
	assert.Empty(t, canvas.GetUncommittedEvents(), "restore raises no events")
	assert.NoError(t, canvas.Validate())
}

func TestSnapshotIsIsolatedFromLaterMutation(t *testing.T) {
	canvas := newTestCanvas(t)
	node := addTestNode(t, canvas, 0, 0)

	snapshot := canvas.Snapshot()
	require.NoError(t, canvas.MoveNode(node.ID(), valueobjects.Position{X: 999, Y: 999}))

	canvas.Restore(snapshot)
	restored, err := canvas.GetNode(node.ID())
	require.NoError(t, err)
	assert.Equal(t, valueobjects.Position{X: 0, Y: 0}, restored.Position())
}

func TestDomainEventsAccumulateAndClear(t *testing.T) {
	canvas := newTestCanvas(t)
	a := addTestNode(t, canvas, 0, 0)
	b := addTestNode(t, canvas, 100, 0)
	_, err := canvas.AddEdge(a.ID(), b.ID(), entities.EdgeTypeDefault, false)
	require.NoError(t, err)

	pending := canvas.GetUncommittedEvents()
	require.Len(t, pending, 3)
	assert.Equal(t, "canvas.node_added", pending[0].GetEventType())
	assert.Equal(t, "canvas.edge_added", pending[2].GetEventType())

	canvas.MarkEventsAsCommitted()
	assert.Empty(t, canvas.GetUncommittedEvents())
}

func TestRandomMutationsKeepEdgeEndpointsValid(t *testing.T) {
	canvas := newTestCanvas(t)
	rng := rand.New(rand.NewSource(42))

	var nodeIDs []valueobjects.NodeID
	var edgeIDs []valueobjects.EdgeID

	// Mostly known ids, occasionally a fresh one so absent-id paths get
	// exercised too.
	pickNode := func() valueobjects.NodeID {
		if len(nodeIDs) == 0 || rng.Intn(10) == 0 {
			return valueobjects.NewNodeID()
		}
		return nodeIDs[rng.Intn(len(nodeIDs))]
	}
	pickEdge := func() valueobjects.EdgeID {
		if len(edgeIDs) == 0 || rng.Intn(10) == 0 {
			return valueobjects.NewEdgeID()
		}
		return edgeIDs[rng.Intn(len(edgeIDs))]
	}

	for i := 0; i < 500; i++ {
		switch rng.Intn(4) {
		case 0:
			node, err := entities.NewNode(entities.NodeTypeNote, valueobjects.Position{
				X: float64(rng.Intn(2000)),
				Y: float64(rng.Intn(2000)),
			}, entities.NodeData{})
			require.NoError(t, err)
			if err := canvas.AddNode(node); err == nil {
				nodeIDs = append(nodeIDs, node.ID())
			}
		case 1:
			canvas.RemoveNode(pickNode())
		case 2:
			if edge, err := canvas.AddEdge(pickNode(), pickNode(), entities.EdgeTypeDefault, false); err == nil {
				edgeIDs = append(edgeIDs, edge.ID())
			}
		case 3:
			_ = canvas.RemoveEdge(pickEdge())
		}

		require.NoError(t, canvas.Validate(), "invariant broken after mutation %d", i)
	}
}
