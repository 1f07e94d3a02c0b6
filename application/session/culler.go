package session

import (
	"sync"
	"time"

	"inkboard-backend/domain/config"
	"inkboard-backend/domain/core/entities"
	"inkboard-backend/domain/core/valueobjects"
)

// NodeBounds is one node's axis-aligned bounding box, fed to the culler
type NodeBounds struct {
	ID       valueobjects.NodeID
	Position valueobjects.Position
	Size     valueobjects.Size
}

// CullDelta lists only the nodes whose visibility changed in one pass
type CullDelta struct {
	Hidden []valueobjects.NodeID
	Shown  []valueobjects.NodeID
}

// IsEmpty reports whether the pass changed nothing
func (d CullDelta) IsEmpty() bool {
	return len(d.Hidden) == 0 && len(d.Shown) == 0
}

// BoundsSource produces the current node bounding boxes
type BoundsSource func() []NodeBounds

// Culler derives per-node visibility from the viewport transform. It
// keeps the hidden set as an ephemeral overlay on the side of the graph
// so visibility never leaks into persisted or history state. Viewport
// changes arriving faster than one frame coalesce into a single
// recompute pass.
type Culler struct {
	source  BoundsSource
	onDelta func(CullDelta)

	buffer        float64
	defaultWidth  float64
	defaultHeight float64
	frame         time.Duration

	mu       sync.Mutex
	hidden   map[valueobjects.NodeID]struct{}
	viewport valueobjects.Viewport
	screenW  float64
	screenH  float64
	timer    *time.Timer
	armed    bool
	closed   bool
}

// NewCuller creates a culler over the given bounds source. onDelta is
// invoked after each pass that changed at least one node's visibility;
// it may be nil.
func NewCuller(source BoundsSource, onDelta func(CullDelta), cfg *config.DomainConfig) *Culler {
	return &Culler{
		source:        source,
		onDelta:       onDelta,
		buffer:        cfg.CullBuffer,
		defaultWidth:  cfg.DefaultNodeWidth,
		defaultHeight: cfg.DefaultNodeHeight,
		frame:         cfg.CullFrame,
		hidden:        make(map[valueobjects.NodeID]struct{}),
		viewport:      valueobjects.DefaultViewport(),
	}
}

// SetViewport records the latest viewport and screen size and schedules
// a recompute. Calls within one frame window collapse into a single
// pass over the latest values.
func (c *Culler) SetViewport(viewport valueobjects.Viewport, screenW, screenH float64) {
	c.mu.Lock()
	c.viewport = viewport
	c.screenW = screenW
	c.screenH = screenH

	if c.closed || c.armed {
		c.mu.Unlock()
		return
	}
	c.armed = true
	c.timer = time.AfterFunc(c.frame, func() {
		c.mu.Lock()
		c.armed = false
		closed := c.closed
		c.mu.Unlock()
		if !closed {
			c.Recompute()
		}
	})
	c.mu.Unlock()
}

// Recompute runs one culling pass immediately against the latest
// viewport. A node is visible iff its bounding box intersects the
// buffered visible rect; only changed flags appear in the delta.
func (c *Culler) Recompute() CullDelta {
	bounds := c.source()

	c.mu.Lock()
	visible := c.viewport.VisibleRect(c.screenW, c.screenH).Expand(c.buffer)

	var delta CullDelta
	seen := make(map[valueobjects.NodeID]struct{}, len(bounds))
	for _, b := range bounds {
		seen[b.ID] = struct{}{}
		size := b.Size.OrDefault(c.defaultWidth, c.defaultHeight)
		box := valueobjects.NewRect(
			b.Position.X, b.Position.Y,
			b.Position.X+size.Width, b.Position.Y+size.Height,
		)

		_, wasHidden := c.hidden[b.ID]
		nowHidden := !visible.Intersects(box)
		if nowHidden == wasHidden {
			continue
		}
		if nowHidden {
			c.hidden[b.ID] = struct{}{}
			delta.Hidden = append(delta.Hidden, b.ID)
		} else {
			delete(c.hidden, b.ID)
			delta.Shown = append(delta.Shown, b.ID)
		}
	}

	// Drop stale entries for nodes that no longer exist
	for id := range c.hidden {
		if _, ok := seen[id]; !ok {
			delete(c.hidden, id)
		}
	}
	c.mu.Unlock()

	if c.onDelta != nil && !delta.IsEmpty() {
		c.onDelta(delta)
	}
	return delta
}

// IsHidden reports whether a node is currently culled
func (c *Culler) IsHidden(id valueobjects.NodeID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.hidden[id]
	return ok
}

// HiddenIDs returns the current hidden overlay set
func (c *Culler) HiddenIDs() []valueobjects.NodeID {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]valueobjects.NodeID, 0, len(c.hidden))
	for id := range c.hidden {
		ids = append(ids, id)
	}
	return ids
}

// Close cancels any armed recompute
func (c *Culler) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
}

// BoundsOf adapts a node list into culler input
func BoundsOf(nodes []*entities.Node) []NodeBounds {
	bounds := make([]NodeBounds, 0, len(nodes))
	for _, n := range nodes {
		bounds = append(bounds, NodeBounds{
			ID:       n.ID(),
			Position: n.Position(),
			Size:     n.Size(),
		})
	}
	return bounds
}
