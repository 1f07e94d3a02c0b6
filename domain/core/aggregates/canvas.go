package aggregates

import (
	"time"

	"inkboard-backend/domain/config"
	"inkboard-backend/domain/core/entities"
	"inkboard-backend/domain/core/valueobjects"
	"inkboard-backend/domain/events"
	pkgerrors "inkboard-backend/pkg/errors"
)

// Canvas is the aggregate root for one canvas document.
// It is the single source of truth for nodes and edges: all mutation goes
// through it, and it enforces the graph invariants (unique node ids, no
// dangling edge endpoints).
type Canvas struct {
	id       valueobjects.CanvasID
	ownerID  string
	name     string
	nodes    map[valueobjects.NodeID]*entities.Node
	order    []valueobjects.NodeID // insertion order, doubles as z-order
	edges    map[valueobjects.EdgeID]*entities.Edge
	edgeIDs  []valueobjects.EdgeID
	viewport valueobjects.Viewport
	cfg      *config.DomainConfig

	createdAt time.Time
	updatedAt time.Time

	events []events.DomainEvent
}

// NewCanvas creates an empty canvas aggregate
func NewCanvas(ownerID, name string, cfg *config.DomainConfig) (*Canvas, error) {
	if ownerID == "" {
		return nil, pkgerrors.NewValidationError("ownerID required")
	}
	if name == "" {
		name = "Untitled"
	}
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	now := time.Now()
	return &Canvas{
		id:        valueobjects.NewCanvasID(),
		ownerID:   ownerID,
		name:      name,
		nodes:     make(map[valueobjects.NodeID]*entities.Node),
		edges:     make(map[valueobjects.EdgeID]*entities.Edge),
		viewport:  valueobjects.DefaultViewport(),
		cfg:       cfg,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructCanvas recreates a canvas from a stored document. Nodes are
// inserted before edges so the endpoint invariant holds at every step.
func ReconstructCanvas(
	id valueobjects.CanvasID,
	ownerID, name string,
	nodes []*entities.Node,
	edges []*entities.Edge,
	cfg *config.DomainConfig,
) (*Canvas, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("canvas id required for reconstruction")
	}
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	now := time.Now()
	canvas := &Canvas{
		id:        id,
		ownerID:   ownerID,
		name:      name,
		nodes:     make(map[valueobjects.NodeID]*entities.Node, len(nodes)),
		edges:     make(map[valueobjects.EdgeID]*entities.Edge, len(edges)),
		viewport:  valueobjects.DefaultViewport(),
		cfg:       cfg,
		createdAt: now,
		updatedAt: now,
	}

	for _, node := range nodes {
		if _, exists := canvas.nodes[node.ID()]; exists {
			return nil, pkgerrors.NewDuplicateIDError("node", node.ID().String())
		}
		canvas.nodes[node.ID()] = node
		canvas.order = append(canvas.order, node.ID())
	}

	for _, edge := range edges {
		if _, ok := canvas.nodes[edge.Source()]; !ok {
			return nil, pkgerrors.NewInvalidEdgeError(edge.Source().String())
		}
		if _, ok := canvas.nodes[edge.Target()]; !ok {
			return nil, pkgerrors.NewInvalidEdgeError(edge.Target().String())
		}
		canvas.edges[edge.ID()] = edge
		canvas.edgeIDs = append(canvas.edgeIDs, edge.ID())
	}

	return canvas, nil
}

// ID returns the canvas's unique identifier
func (c *Canvas) ID() valueobjects.CanvasID {
	return c.id
}

// OwnerID returns the owning user's id
func (c *Canvas) OwnerID() string {
	return c.ownerID
}

// Name returns the canvas's name
func (c *Canvas) Name() string {
	return c.name
}

// Rename changes the canvas's display name
func (c *Canvas) Rename(name string) error {
	if name == "" {
		return pkgerrors.NewValidationError("canvas name cannot be empty")
	}
	c.name = name
	c.updatedAt = time.Now()
	return nil
}

// Viewport returns the current pan/zoom transform
func (c *Canvas) Viewport() valueobjects.Viewport {
	return c.viewport
}

// SetViewport updates the pan/zoom transform. The viewport is transient:
// it is not a document edit and raises no event.
func (c *Canvas) SetViewport(v valueobjects.Viewport) {
	c.viewport = v
}

// NodeCount returns the number of nodes
func (c *Canvas) NodeCount() int {
	return len(c.nodes)
}

// EdgeCount returns the number of edges
func (c *Canvas) EdgeCount() int {
	return len(c.edges)
}

// CreatedAt returns when the canvas was created
func (c *Canvas) CreatedAt() time.Time {
	return c.createdAt
}

// UpdatedAt returns when the canvas was last mutated
func (c *Canvas) UpdatedAt() time.Time {
	return c.updatedAt
}

// AddNode appends a node to the canvas
func (c *Canvas) AddNode(node *entities.Node) error {
	if node == nil {
		return pkgerrors.NewValidationError("node cannot be nil")
	}

	if _, exists := c.nodes[node.ID()]; exists {
		return pkgerrors.NewDuplicateIDError("node", node.ID().String())
	}

	if len(c.nodes) >= c.cfg.MaxNodesPerCanvas {
		return pkgerrors.NewValidationError("maximum nodes reached")
	}

	c.nodes[node.ID()] = node
	c.order = append(c.order, node.ID())
	c.updatedAt = time.Now()

	c.addEvent(events.NewNodeAdded(c.id, node.ID(), string(node.Type()), c.updatedAt))

	return nil
}

// RemoveNode removes a node and cascades removal of every edge touching it,
// preserving the endpoint invariant. No-op if the id is absent.
func (c *Canvas) RemoveNode(nodeID valueobjects.NodeID) {
	if _, exists := c.nodes[nodeID]; !exists {
		return
	}

	removed := 0
	remaining := c.edgeIDs[:0]
	for _, edgeID := range c.edgeIDs {
		if c.edges[edgeID].Touches(nodeID) {
			delete(c.edges, edgeID)
			removed++
		} else {
			remaining = append(remaining, edgeID)
		}
	}
	c.edgeIDs = remaining

	delete(c.nodes, nodeID)
	for i, id := range c.order {
		if id.Equals(nodeID) {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}

	c.updatedAt = time.Now()
	c.addEvent(events.NewNodeRemoved(c.id, nodeID, removed, c.updatedAt))
}

// UpdateNodeData shallow-merges a patch into the node's payload
func (c *Canvas) UpdateNodeData(nodeID valueobjects.NodeID, patch entities.NodeDataPatch) error {
	node, exists := c.nodes[nodeID]
	if !exists {
		return pkgerrors.NewNotFoundError("node")
	}

	node.ApplyPatch(patch)
	c.updatedAt = time.Now()
	c.addEvent(events.NewNodeUpdated(c.id, nodeID, "data", c.updatedAt))

	return nil
}

// MoveNode moves a node to a new position
func (c *Canvas) MoveNode(nodeID valueobjects.NodeID, position valueobjects.Position) error {
	node, exists := c.nodes[nodeID]
	if !exists {
		return pkgerrors.NewNotFoundError("node")
	}

	node.MoveTo(position)
	c.updatedAt = time.Now()
	c.addEvent(events.NewNodeUpdated(c.id, nodeID, "position", c.updatedAt))

	return nil
}

// ResizeNode sets an explicit size on a node
func (c *Canvas) ResizeNode(nodeID valueobjects.NodeID, size valueobjects.Size) error {
	node, exists := c.nodes[nodeID]
	if !exists {
		return pkgerrors.NewNotFoundError("node")
	}

	node.Resize(size)
	c.updatedAt = time.Now()
	c.addEvent(events.NewNodeUpdated(c.id, nodeID, "size", c.updatedAt))

	return nil
}

// SetSelection sets selected=true for exactly the given ids and false for
// all others. A pure UI concern: no event, no updatedAt bump.
func (c *Canvas) SetSelection(ids map[valueobjects.NodeID]struct{}) {
	for nodeID, node := range c.nodes {
		_, want := ids[nodeID]
		node.SetSelected(want)
	}
}

// SelectedIDs returns the ids of currently selected nodes in z-order
func (c *Canvas) SelectedIDs() []valueobjects.NodeID {
	var out []valueobjects.NodeID
	for _, id := range c.order {
		if c.nodes[id].Selected() {
			out = append(out, id)
		}
	}
	return out
}

// AddEdge connects two nodes. Both endpoints must exist in the canvas.
func (c *Canvas) AddEdge(source, target valueobjects.NodeID, edgeType entities.EdgeType, animated bool) (*entities.Edge, error) {
	if _, ok := c.nodes[source]; !ok {
		return nil, pkgerrors.NewInvalidEdgeError(source.String())
	}
	if _, ok := c.nodes[target]; !ok {
		return nil, pkgerrors.NewInvalidEdgeError(target.String())
	}
	if !c.cfg.AllowSelfEdges && source.Equals(target) {
		return nil, pkgerrors.NewValidationError("cannot connect node to itself")
	}
	if !c.cfg.AllowDuplicateEdges {
		for _, edge := range c.edges {
			if edge.Source().Equals(source) && edge.Target().Equals(target) {
				return nil, pkgerrors.NewConflictError("edge already exists")
			}
		}
	}
	if len(c.edges) >= c.cfg.MaxEdgesPerCanvas {
		return nil, pkgerrors.NewValidationError("maximum edges reached")
	}

	edge, err := entities.NewEdge(source, target, edgeType, animated)
	if err != nil {
		return nil, err
	}

	c.edges[edge.ID()] = edge
	c.edgeIDs = append(c.edgeIDs, edge.ID())
	c.updatedAt = time.Now()

	c.addEvent(events.NewEdgeAdded(c.id, edge.ID(), source, target, c.updatedAt))

	return edge, nil
}

// RemoveEdge deletes an edge by id
func (c *Canvas) RemoveEdge(edgeID valueobjects.EdgeID) error {
	if _, exists := c.edges[edgeID]; !exists {
		return pkgerrors.NewNotFoundError("edge")
	}

	delete(c.edges, edgeID)
	for i, id := range c.edgeIDs {
		if id.Equals(edgeID) {
			c.edgeIDs = append(c.edgeIDs[:i], c.edgeIDs[i+1:]...)
			break
		}
	}

	c.updatedAt = time.Now()
	c.addEvent(events.NewEdgeRemoved(c.id, edgeID, c.updatedAt))

	return nil
}

// GetNode retrieves a node by id
func (c *Canvas) GetNode(nodeID valueobjects.NodeID) (*entities.Node, error) {
	node, exists := c.nodes[nodeID]
	if !exists {
		return nil, pkgerrors.NewNotFoundError("node")
	}
	return node, nil
}

// HasNode checks existence without an error
func (c *Canvas) HasNode(nodeID valueobjects.NodeID) bool {
	_, exists := c.nodes[nodeID]
	return exists
}

// Nodes returns all nodes in z-order
func (c *Canvas) Nodes() []*entities.Node {
	nodes := make([]*entities.Node, 0, len(c.order))
	for _, id := range c.order {
		nodes = append(nodes, c.nodes[id])
	}
	return nodes
}

// Edges returns all edges in insertion order
func (c *Canvas) Edges() []*entities.Edge {
	edges := make([]*entities.Edge, 0, len(c.edgeIDs))
	for _, id := range c.edgeIDs {
		edges = append(edges, c.edges[id])
	}
	return edges
}

// NodesInRect returns the nodes whose center point lies inside rect.
// Used by rectangle selection and backlink zoom.
func (c *Canvas) NodesInRect(rect valueobjects.Rect) []*entities.Node {
	var out []*entities.Node
	for _, id := range c.order {
		node := c.nodes[id]
		size := node.Size().OrDefault(c.cfg.DefaultNodeWidth, c.cfg.DefaultNodeHeight)
		center := node.Position().Offset(size.Width/2, size.Height/2)
		if rect.Contains(center) {
			out = append(out, node)
		}
	}
	return out
}

// IncomingEdges returns edges whose target is the given node
func (c *Canvas) IncomingEdges(nodeID valueobjects.NodeID) []*entities.Edge {
	var out []*entities.Edge
	for _, id := range c.edgeIDs {
		if c.edges[id].Target().Equals(nodeID) {
			out = append(out, c.edges[id])
		}
	}
	return out
}

// OutgoingEdges returns edges whose source is the given node
func (c *Canvas) OutgoingEdges(nodeID valueobjects.NodeID) []*entities.Edge {
	var out []*entities.Edge
	for _, id := range c.edgeIDs {
		if c.edges[id].Source().Equals(nodeID) {
			out = append(out, c.edges[id])
		}
	}
	return out
}

// Validate ensures canvas invariants
func (c *Canvas) Validate() error {
	for _, edge := range c.edges {
		if _, ok := c.nodes[edge.Source()]; !ok {
			return pkgerrors.NewInvalidEdgeError(edge.Source().String())
		}
		if _, ok := c.nodes[edge.Target()]; !ok {
			return pkgerrors.NewInvalidEdgeError(edge.Target().String())
		}
	}

	if len(c.order) != len(c.nodes) {
		return pkgerrors.NewInternalError("node order out of sync with node set")
	}
	if len(c.edgeIDs) != len(c.edges) {
		return pkgerrors.NewInternalError("edge order out of sync with edge set")
	}

	return nil
}

// Snapshot captures an immutable deep copy of the node/edge state
func (c *Canvas) Snapshot() Snapshot {
	nodes := make([]*entities.Node, 0, len(c.order))
	for _, id := range c.order {
		nodes = append(nodes, c.nodes[id].Clone())
	}
	edges := make([]*entities.Edge, 0, len(c.edgeIDs))
	for _, id := range c.edgeIDs {
		edges = append(edges, c.edges[id].Clone())
	}
	return Snapshot{nodes: nodes, edges: edges}
}

// Restore replaces the node/edge state with a snapshot's contents.
// Restoration is a replay, not an edit: it raises no domain events, so a
// history application never re-enters the recording path.
func (c *Canvas) Restore(snapshot Snapshot) {
	c.nodes = make(map[valueobjects.NodeID]*entities.Node, len(snapshot.nodes))
	c.order = c.order[:0]
	for _, node := range snapshot.nodes {
		clone := node.Clone()
		c.nodes[clone.ID()] = clone
		c.order = append(c.order, clone.ID())
	}

	c.edges = make(map[valueobjects.EdgeID]*entities.Edge, len(snapshot.edges))
	c.edgeIDs = c.edgeIDs[:0]
	for _, edge := range snapshot.edges {
		clone := edge.Clone()
		c.edges[clone.ID()] = clone
		c.edgeIDs = append(c.edgeIDs, clone.ID())
	}

	c.updatedAt = time.Now()
}

// GetUncommittedEvents returns all uncommitted domain events
func (c *Canvas) GetUncommittedEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(c.events))
	copy(out, c.events)
	return out
}

// MarkEventsAsCommitted clears all uncommitted events
func (c *Canvas) MarkEventsAsCommitted() {
	c.events = c.events[:0]
}

func (c *Canvas) addEvent(event events.DomainEvent) {
	c.events = append(c.events, event)
}
