package session

import (
	"inkboard-backend/domain/config"
	"inkboard-backend/domain/core/entities"
	"inkboard-backend/domain/core/valueobjects"
)

// Placement decides where newly created nodes land on the canvas. The
// rules are deterministic and do no overlap checking.
type Placement struct {
	cfg *config.DomainConfig
}

// NewPlacement creates a placement policy from the domain config
func NewPlacement(cfg *config.DomainConfig) *Placement {
	return &Placement{cfg: cfg}
}

// AtPaneClick converts a screen-space click into a canvas position
func (p *Placement) AtPaneClick(viewport valueobjects.Viewport, screenX, screenY float64) valueobjects.Position {
	return viewport.ToCanvas(screenX, screenY)
}

// AtDrop places a dropped node. When the drop point falls inside a
// container node's bounds, the returned position is relative to that
// container and its id is returned as the parent. Only nodes with an
// explicit size qualify as containers; auto-sized notes never capture
// a drop. Containment is best-effort metadata: nothing else in the
// model enforces it.
func (p *Placement) AtDrop(drop valueobjects.Position, containers []*entities.Node) (valueobjects.Position, valueobjects.NodeID) {
	for _, container := range containers {
		size := container.Size()
		if size.IsZero() {
			continue
		}
		bounds := valueobjects.NewRect(
			container.Position().X, container.Position().Y,
			container.Position().X+size.Width, container.Position().Y+size.Height,
		)
		if bounds.Contains(drop) {
			relative := valueobjects.Position{
				X: drop.X - container.Position().X,
				Y: drop.Y - container.Position().Y,
			}
			return relative, container.ID()
		}
	}
	return drop, valueobjects.NodeID{}
}

// SiblingOf places an AI-derived node beside its parent: same vertical
// position, offset horizontally by the parent's width plus a fixed gap.
func (p *Placement) SiblingOf(parent *entities.Node) valueobjects.Position {
	size := parent.Size().OrDefault(p.cfg.DefaultNodeWidth, p.cfg.DefaultNodeHeight)
	return parent.Position().Offset(size.Width+p.cfg.SiblingGap, 0)
}

// PasteOffset is the fixed delta applied to pasted clones so they do
// not land exactly on top of their originals.
func (p *Placement) PasteOffset() (float64, float64) {
	return p.cfg.PasteOffset, p.cfg.PasteOffset
}
