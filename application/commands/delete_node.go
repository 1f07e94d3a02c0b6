package commands

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"inkboard-backend/application/commands/bus"
	"inkboard-backend/application/session"
	"inkboard-backend/domain/core/aggregates"
	"inkboard-backend/domain/core/valueobjects"
)

// DeleteNodeCommand removes a node and every edge touching it. Deleting
// an absent node is a no-op.
type DeleteNodeCommand struct {
	CanvasID string `json:"canvas_id" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
	NodeID   string `json:"node_id" validate:"required"`
}

// Validate validates the command
func (cmd *DeleteNodeCommand) Validate() error {
	if cmd.CanvasID == "" || cmd.UserID == "" || cmd.NodeID == "" {
		return errors.New("canvas ID, user ID and node ID are required")
	}
	return nil
}

// DeleteEdgeCommand removes one edge
type DeleteEdgeCommand struct {
	CanvasID string `json:"canvas_id" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
	EdgeID   string `json:"edge_id" validate:"required"`
}

// Validate validates the command
func (cmd *DeleteEdgeCommand) Validate() error {
	if cmd.CanvasID == "" || cmd.UserID == "" || cmd.EdgeID == "" {
		return errors.New("canvas ID, user ID and edge ID are required")
	}
	return nil
}

// DeleteHandler handles node and edge deletion. Registered on the
// command bus for both command types.
type DeleteHandler struct {
	sessions *session.Manager
	logger   *zap.Logger
}

// NewDeleteHandler creates a new handler instance
func NewDeleteHandler(sessions *session.Manager, logger *zap.Logger) *DeleteHandler {
	return &DeleteHandler{sessions: sessions, logger: logger}
}

// Handle implements bus.CommandHandler
func (h *DeleteHandler) Handle(ctx context.Context, cmd bus.Command) error {
	switch c := cmd.(type) {
	case *DeleteNodeCommand:
		return h.deleteNode(ctx, c)
	case *DeleteEdgeCommand:
		return h.deleteEdge(ctx, c)
	default:
		return fmt.Errorf("unexpected command type %T", cmd)
	}
}

func (h *DeleteHandler) deleteNode(ctx context.Context, cmd *DeleteNodeCommand) error {
	sess, err := h.sessions.Acquire(ctx, valueobjects.CanvasID(cmd.CanvasID), cmd.UserID)
	if err != nil {
		return err
	}

	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return err
	}
	return sess.Mutate(func(canvas *aggregates.Canvas) error {
		canvas.RemoveNode(nodeID)
		return nil
	})
}

func (h *DeleteHandler) deleteEdge(ctx context.Context, cmd *DeleteEdgeCommand) error {
	sess, err := h.sessions.Acquire(ctx, valueobjects.CanvasID(cmd.CanvasID), cmd.UserID)
	if err != nil {
		return err
	}

	edgeID, err := valueobjects.NewEdgeIDFromString(cmd.EdgeID)
	if err != nil {
		return err
	}
	return sess.Mutate(func(canvas *aggregates.Canvas) error {
		return canvas.RemoveEdge(edgeID)
	})
}
