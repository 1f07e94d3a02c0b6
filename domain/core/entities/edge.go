package entities

import (
	"time"

	"inkboard-backend/domain/core/valueobjects"
	pkgerrors "inkboard-backend/pkg/errors"
)

// EdgeType selects the visual/animation variant of an edge
type EdgeType string

const (
	EdgeTypeDefault EdgeType = "default"
	EdgeTypeStep    EdgeType = "step"
	EdgeTypeBezier  EdgeType = "bezier"
)

// Edge is a directed visual connection between two nodes
type Edge struct {
	id        valueobjects.EdgeID
	source    valueobjects.NodeID
	target    valueobjects.NodeID
	edgeType  EdgeType
	animated  bool
	createdAt time.Time
}

// NewEdge creates a new edge with validation. Endpoint existence is the
// canvas aggregate's responsibility.
func NewEdge(source, target valueobjects.NodeID, edgeType EdgeType, animated bool) (*Edge, error) {
	if source.IsZero() || target.IsZero() {
		return nil, pkgerrors.NewValidationError("edge endpoints required")
	}
	if edgeType == "" {
		edgeType = EdgeTypeDefault
	}

	return &Edge{
		id:        valueobjects.NewEdgeID(),
		source:    source,
		target:    target,
		edgeType:  edgeType,
		animated:  animated,
		createdAt: time.Now(),
	}, nil
}

// ReconstructEdge recreates an edge from stored data
func ReconstructEdge(id valueobjects.EdgeID, source, target valueobjects.NodeID, edgeType EdgeType, animated bool) (*Edge, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("edge id required for reconstruction")
	}
	if source.IsZero() || target.IsZero() {
		return nil, pkgerrors.NewValidationError("edge endpoints required")
	}
	if edgeType == "" {
		edgeType = EdgeTypeDefault
	}

	return &Edge{
		id:        id,
		source:    source,
		target:    target,
		edgeType:  edgeType,
		animated:  animated,
		createdAt: time.Now(),
	}, nil
}

// ID returns the edge's unique identifier
func (e *Edge) ID() valueobjects.EdgeID {
	return e.id
}

// Source returns the source node id
func (e *Edge) Source() valueobjects.NodeID {
	return e.source
}

// Target returns the target node id
func (e *Edge) Target() valueobjects.NodeID {
	return e.target
}

// Type returns the edge's visual variant
func (e *Edge) Type() EdgeType {
	return e.edgeType
}

// Animated reports whether the edge animates
func (e *Edge) Animated() bool {
	return e.animated
}

// Touches reports whether the edge has the given node as either endpoint
func (e *Edge) Touches(nodeID valueobjects.NodeID) bool {
	return e.source.Equals(nodeID) || e.target.Equals(nodeID)
}

// Clone returns a copy of the edge
func (e *Edge) Clone() *Edge {
	clone := *e
	return &clone
}
