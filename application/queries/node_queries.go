package queries

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"inkboard-backend/application/queries/bus"
	"inkboard-backend/application/session"
	"inkboard-backend/domain/core/aggregates"
	"inkboard-backend/domain/core/valueobjects"
)

// GetBacklinksQuery finds the nodes whose edges point at a node
type GetBacklinksQuery struct {
	CanvasID string `json:"canvas_id" validate:"required"`
	UserID   string `json:"user_id"`
	NodeID   string `json:"node_id" validate:"required"`
}

// Validate validates the query
func (q *GetBacklinksQuery) Validate() error {
	if q.CanvasID == "" || q.NodeID == "" {
		return errors.New("canvas ID and node ID are required")
	}
	return nil
}

// Backlink is one incoming reference to a node
type Backlink struct {
	EdgeID   string `json:"edgeId"`
	SourceID string `json:"sourceId"`
}

// NodesInRectQuery finds nodes whose center lies inside a canvas-space
// rectangle. Used by rectangle selection.
type NodesInRectQuery struct {
	CanvasID string  `json:"canvas_id" validate:"required"`
	UserID   string  `json:"user_id"`
	X1       float64 `json:"x1"`
	Y1       float64 `json:"y1"`
	X2       float64 `json:"x2"`
	Y2       float64 `json:"y2"`
}

// Validate validates the query
func (q *NodesInRectQuery) Validate() error {
	if q.CanvasID == "" {
		return errors.New("canvas ID is required")
	}
	return nil
}

// NodeQueryHandler handles per-node read queries. Registered on the
// query bus for both query types.
type NodeQueryHandler struct {
	sessions *session.Manager
	logger   *zap.Logger
}

// NewNodeQueryHandler creates a new handler instance
func NewNodeQueryHandler(sessions *session.Manager, logger *zap.Logger) *NodeQueryHandler {
	return &NodeQueryHandler{sessions: sessions, logger: logger}
}

// Handle implements bus.QueryHandler
func (h *NodeQueryHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	switch q := query.(type) {
	case *GetBacklinksQuery:
		return h.backlinks(ctx, q)
	case *NodesInRectQuery:
		return h.nodesInRect(ctx, q)
	default:
		return nil, fmt.Errorf("unexpected query type %T", query)
	}
}

func (h *NodeQueryHandler) backlinks(ctx context.Context, q *GetBacklinksQuery) ([]Backlink, error) {
	sess, err := h.sessions.Acquire(ctx, valueobjects.CanvasID(q.CanvasID), q.UserID)
	if err != nil {
		return nil, err
	}

	nodeID, err := valueobjects.NewNodeIDFromString(q.NodeID)
	if err != nil {
		return nil, err
	}

	var backlinks []Backlink
	err = sess.Read(func(canvas *aggregates.Canvas) error {
		if !canvas.HasNode(nodeID) {
			return errors.New("node not found")
		}
		for _, edge := range canvas.IncomingEdges(nodeID) {
			backlinks = append(backlinks, Backlink{
				EdgeID:   edge.ID().String(),
				SourceID: edge.Source().String(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return backlinks, nil
}

func (h *NodeQueryHandler) nodesInRect(ctx context.Context, q *NodesInRectQuery) ([]string, error) {
	sess, err := h.sessions.Acquire(ctx, valueobjects.CanvasID(q.CanvasID), q.UserID)
	if err != nil {
		return nil, err
	}

	rect := valueobjects.NewRect(q.X1, q.Y1, q.X2, q.Y2)
	var ids []string
	err = sess.Read(func(canvas *aggregates.Canvas) error {
		for _, node := range canvas.NodesInRect(rect) {
			ids = append(ids, node.ID().String())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
