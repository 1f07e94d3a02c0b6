package events

import (
	"time"

	"inkboard-backend/domain/core/valueobjects"
)

// NodeAdded is raised when a node is added to a canvas
type NodeAdded struct {
	BaseEvent
	CanvasID string              `json:"canvas_id"`
	NodeID   valueobjects.NodeID `json:"node_id"`
	NodeType string              `json:"node_type"`
}

// NewNodeAdded creates a NodeAdded event
func NewNodeAdded(canvasID valueobjects.CanvasID, nodeID valueobjects.NodeID, nodeType string, timestamp time.Time) NodeAdded {
	return NodeAdded{
		BaseEvent: BaseEvent{
			AggregateID: canvasID.String(),
			EventType:   "canvas.node_added",
			Timestamp:   timestamp,
		},
		CanvasID: canvasID.String(),
		NodeID:   nodeID,
		NodeType: nodeType,
	}
}

// NodeRemoved is raised when a node is removed from a canvas, along with
// every edge that touched it.
type NodeRemoved struct {
	BaseEvent
	CanvasID     string              `json:"canvas_id"`
	NodeID       valueobjects.NodeID `json:"node_id"`
	RemovedEdges int                 `json:"removed_edges"`
}

// NewNodeRemoved creates a NodeRemoved event
func NewNodeRemoved(canvasID valueobjects.CanvasID, nodeID valueobjects.NodeID, removedEdges int, timestamp time.Time) NodeRemoved {
	return NodeRemoved{
		BaseEvent: BaseEvent{
			AggregateID: canvasID.String(),
			EventType:   "canvas.node_removed",
			Timestamp:   timestamp,
		},
		CanvasID:     canvasID.String(),
		NodeID:       nodeID,
		RemovedEdges: removedEdges,
	}
}

// NodeUpdated is raised when a node's payload, position, or size changes
type NodeUpdated struct {
	BaseEvent
	CanvasID string              `json:"canvas_id"`
	NodeID   valueobjects.NodeID `json:"node_id"`
	Change   string              `json:"change"`
}

// NewNodeUpdated creates a NodeUpdated event
func NewNodeUpdated(canvasID valueobjects.CanvasID, nodeID valueobjects.NodeID, change string, timestamp time.Time) NodeUpdated {
	return NodeUpdated{
		BaseEvent: BaseEvent{
			AggregateID: canvasID.String(),
			EventType:   "canvas.node_updated",
			Timestamp:   timestamp,
		},
		CanvasID: canvasID.String(),
		NodeID:   nodeID,
		Change:   change,
	}
}

// EdgeAdded is raised when two nodes are connected
type EdgeAdded struct {
	BaseEvent
	CanvasID string              `json:"canvas_id"`
	EdgeID   valueobjects.EdgeID `json:"edge_id"`
	SourceID valueobjects.NodeID `json:"source_id"`
	TargetID valueobjects.NodeID `json:"target_id"`
}

// NewEdgeAdded creates an EdgeAdded event
func NewEdgeAdded(canvasID valueobjects.CanvasID, edgeID valueobjects.EdgeID, source, target valueobjects.NodeID, timestamp time.Time) EdgeAdded {
	return EdgeAdded{
		BaseEvent: BaseEvent{
			AggregateID: canvasID.String(),
			EventType:   "canvas.edge_added",
			Timestamp:   timestamp,
		},
		CanvasID: canvasID.String(),
		EdgeID:   edgeID,
		SourceID: source,
		TargetID: target,
	}
}

// EdgeRemoved is raised when an edge is deleted
type EdgeRemoved struct {
	BaseEvent
	CanvasID string              `json:"canvas_id"`
	EdgeID   valueobjects.EdgeID `json:"edge_id"`
}

// NewEdgeRemoved creates an EdgeRemoved event
func NewEdgeRemoved(canvasID valueobjects.CanvasID, edgeID valueobjects.EdgeID, timestamp time.Time) EdgeRemoved {
	return EdgeRemoved{
		BaseEvent: BaseEvent{
			AggregateID: canvasID.String(),
			EventType:   "canvas.edge_removed",
			Timestamp:   timestamp,
		},
		CanvasID: canvasID.String(),
		EdgeID:   edgeID,
	}
}

// CanvasSaved is raised after a canvas document is persisted
type CanvasSaved struct {
	BaseEvent
	CanvasID  string `json:"canvas_id"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
	Version   int64  `json:"version"`
}

// NewCanvasSaved creates a CanvasSaved event
func NewCanvasSaved(canvasID valueobjects.CanvasID, nodeCount, edgeCount int, version int64, timestamp time.Time) CanvasSaved {
	return CanvasSaved{
		BaseEvent: BaseEvent{
			AggregateID: canvasID.String(),
			EventType:   "canvas.saved",
			Timestamp:   timestamp,
		},
		CanvasID:  canvasID.String(),
		NodeCount: nodeCount,
		EdgeCount: edgeCount,
		Version:   version,
	}
}
