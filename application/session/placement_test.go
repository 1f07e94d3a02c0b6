package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkboard-backend/domain/config"
	"inkboard-backend/domain/core/entities"
	"inkboard-backend/domain/core/valueobjects"
)

func testNode(t *testing.T, x, y float64) *entities.Node {
	t.Helper()
	node, err := entities.NewNode(entities.NodeTypeNote, valueobjects.Position{X: x, Y: y}, entities.NodeData{})
	require.NoError(t, err)
	return node
}

func TestAtPaneClick(t *testing.T) {
	p := NewPlacement(config.DefaultDomainConfig())

	viewport, err := valueobjects.NewViewport(-100, 50, 2)
	require.NoError(t, err)

	pos := p.AtPaneClick(viewport, 400, 300)
	assert.Equal(t, viewport.ToCanvas(400, 300), pos)
	assert.InDelta(t, 250.0, pos.X, 1e-9)
	assert.InDelta(t, 125.0, pos.Y, 1e-9)
}

func TestAtDropInsideContainer(t *testing.T) {
	p := NewPlacement(config.DefaultDomainConfig())

	container := testNode(t, 100, 100)
	container.Resize(valueobjects.Size{Width: 400, Height: 300})

	pos, parent := p.AtDrop(valueobjects.Position{X: 150, Y: 180}, []*entities.Node{container})

	assert.Equal(t, container.ID(), parent)
	assert.InDelta(t, 50.0, pos.X, 1e-9)
	assert.InDelta(t, 80.0, pos.Y, 1e-9)
}

func TestAtDropOutsideContainers(t *testing.T) {
	p := NewPlacement(config.DefaultDomainConfig())

	container := testNode(t, 100, 100)

	pos, parent := p.AtDrop(valueobjects.Position{X: 900, Y: 900}, []*entities.Node{container})

	assert.True(t, parent.IsZero(), "no parent outside all containers")
	assert.Equal(t, valueobjects.Position{X: 900, Y: 900}, pos)
}

func TestAtDropIgnoresAutoSizedNodes(t *testing.T) {
	p := NewPlacement(config.DefaultDomainConfig())

	// An auto-sized note renders at the default 300x200 but is not a
	// container; dropping onto it must not re-parent the new node.
	note := testNode(t, 0, 0)

	pos, parent := p.AtDrop(valueobjects.Position{X: 150, Y: 100}, []*entities.Node{note})
	assert.True(t, parent.IsZero())
	assert.Equal(t, valueobjects.Position{X: 150, Y: 100}, pos)
}

func TestSiblingOf(t *testing.T) {
	p := NewPlacement(config.DefaultDomainConfig())

	parent := testNode(t, 100, 250)
	parent.Resize(valueobjects.Size{Width: 500, Height: 120})

	pos := p.SiblingOf(parent)
	assert.InDelta(t, 680.0, pos.X, 1e-9, "parent x + width + gap")
	assert.InDelta(t, 250.0, pos.Y, 1e-9, "same vertical position")
}

func TestSiblingOfDefaultWidth(t *testing.T) {
	p := NewPlacement(config.DefaultDomainConfig())

	parent := testNode(t, 0, 0)
	pos := p.SiblingOf(parent)
	assert.InDelta(t, 380.0, pos.X, 1e-9)
}

func TestPasteOffset(t *testing.T) {
	p := NewPlacement(config.DefaultDomainConfig())

	dx, dy := p.PasteOffset()
	assert.Equal(t, 25.0, dx)
	assert.Equal(t, 25.0, dy)
}
