package ports

import (
	"inkboard-backend/domain/config"
	"inkboard-backend/domain/core/aggregates"
	"inkboard-backend/domain/core/entities"
	"inkboard-backend/domain/core/valueobjects"
)

// NodeRecord is the persisted wire form of a node.
// The transient hidden flag is deliberately absent: visibility is derived
// from the viewport and recomputed after every load.
type NodeRecord struct {
	ID       string                `json:"id"`
	Type     string                `json:"type"`
	Position valueobjects.Position `json:"position"`
	Width    float64               `json:"width,omitempty"`
	Height   float64               `json:"height,omitempty"`
	ParentID string                `json:"parentId,omitempty"`
	Data     entities.NodeData     `json:"data"`
	Selected bool                  `json:"selected,omitempty"`
}

// EdgeRecord is the persisted wire form of an edge
type EdgeRecord struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Type     string `json:"type"`
	Animated bool   `json:"animated,omitempty"`
}

// CanvasDocument is the full persisted form of one canvas: a single JSON
// document, overwritten whole on save. Version carries the optimistic
// concurrency counter; zero means "new document".
type CanvasDocument struct {
	ID      string       `json:"id"`
	OwnerID string       `json:"ownerId"`
	Name    string       `json:"name"`
	Nodes   []NodeRecord `json:"nodes"`
	Edges   []EdgeRecord `json:"edges"`
	Version int64        `json:"version"`
}

// CanvasSummary is the listing form of a canvas (no node/edge payload)
type CanvasSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	NodeCount int    `json:"nodeCount"`
	EdgeCount int    `json:"edgeCount"`
	UpdatedAt string `json:"updatedAt"`
}

// DocumentFromCanvas serializes an aggregate into its persisted form
func DocumentFromCanvas(canvas *aggregates.Canvas, version int64) CanvasDocument {
	doc := CanvasDocument{
		ID:      canvas.ID().String(),
		OwnerID: canvas.OwnerID(),
		Name:    canvas.Name(),
		Nodes:   make([]NodeRecord, 0, canvas.NodeCount()),
		Edges:   make([]EdgeRecord, 0, canvas.EdgeCount()),
		Version: version,
	}

	for _, node := range canvas.Nodes() {
		doc.Nodes = append(doc.Nodes, NodeRecordFrom(node))
	}

	for _, edge := range canvas.Edges() {
		doc.Edges = append(doc.Edges, EdgeRecordFrom(edge))
	}

	return doc
}

// NodeRecordFrom converts a single node entity into its wire form
func NodeRecordFrom(node *entities.Node) NodeRecord {
	record := NodeRecord{
		ID:       node.ID().String(),
		Type:     string(node.Type()),
		Position: node.Position(),
		Data:     node.Data(),
		Selected: node.Selected(),
	}
	if size := node.Size(); !size.IsZero() {
		record.Width = size.Width
		record.Height = size.Height
	}
	if parent := node.ParentID(); !parent.IsZero() {
		record.ParentID = parent.String()
	}
	return record
}

// EdgeRecordFrom converts a single edge entity into its wire form
func EdgeRecordFrom(edge *entities.Edge) EdgeRecord {
	return EdgeRecord{
		ID:       edge.ID().String(),
		Source:   edge.Source().String(),
		Target:   edge.Target().String(),
		Type:     string(edge.Type()),
		Animated: edge.Animated(),
	}
}

// CanvasFromDocument deserializes a persisted document back into an
// aggregate, re-validating every invariant on the way in.
func CanvasFromDocument(doc CanvasDocument, cfg *config.DomainConfig) (*aggregates.Canvas, error) {
	nodes := make([]*entities.Node, 0, len(doc.Nodes))
	for _, record := range doc.Nodes {
		nodeID, err := valueobjects.NewNodeIDFromString(record.ID)
		if err != nil {
			return nil, err
		}

		var size valueobjects.Size
		if record.Width != 0 || record.Height != 0 {
			size, err = valueobjects.NewSize(record.Width, record.Height)
			if err != nil {
				return nil, err
			}
		}

		var parentID valueobjects.NodeID
		if record.ParentID != "" {
			parentID, err = valueobjects.NewNodeIDFromString(record.ParentID)
			if err != nil {
				return nil, err
			}
		}

		node, err := entities.ReconstructNode(
			nodeID,
			entities.NodeType(record.Type),
			record.Position,
			size,
			record.Data,
			parentID,
		)
		if err != nil {
			return nil, err
		}
		if record.Selected {
			node.SetSelected(true)
		}
		nodes = append(nodes, node)
	}

	edges := make([]*entities.Edge, 0, len(doc.Edges))
	for _, record := range doc.Edges {
		edgeID, err := valueobjects.NewEdgeIDFromString(record.ID)
		if err != nil {
			return nil, err
		}
		source, err := valueobjects.NewNodeIDFromString(record.Source)
		if err != nil {
			return nil, err
		}
		target, err := valueobjects.NewNodeIDFromString(record.Target)
		if err != nil {
			return nil, err
		}

		edge, err := entities.ReconstructEdge(edgeID, source, target, entities.EdgeType(record.Type), record.Animated)
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}

	return aggregates.ReconstructCanvas(
		valueobjects.CanvasID(doc.ID),
		doc.OwnerID,
		doc.Name,
		nodes,
		edges,
		cfg,
	)
}
