package commands

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"inkboard-backend/application/session"
	"inkboard-backend/domain/core/aggregates"
	"inkboard-backend/domain/core/entities"
	"inkboard-backend/domain/core/valueobjects"
)

// UpdateNodeCommand shallow-merges a data patch into an existing node
type UpdateNodeCommand struct {
	CanvasID string                 `json:"canvas_id" validate:"required"`
	UserID   string                 `json:"user_id" validate:"required"`
	NodeID   string                 `json:"node_id" validate:"required"`
	Patch    entities.NodeDataPatch `json:"patch"`
}

// Validate validates the command
func (cmd UpdateNodeCommand) Validate() error {
	if cmd.CanvasID == "" {
		return errors.New("canvas ID is required")
	}
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.NodeID == "" {
		return errors.New("node ID is required")
	}
	if cmd.Patch.Content != nil && len(*cmd.Patch.Content) > MaxContentSize {
		return errors.New("content exceeds maximum size")
	}
	return nil
}

// MoveNodeCommand updates a node's canvas position
type MoveNodeCommand struct {
	CanvasID string  `json:"canvas_id" validate:"required"`
	UserID   string  `json:"user_id" validate:"required"`
	NodeID   string  `json:"node_id" validate:"required"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// Validate validates the command
func (cmd MoveNodeCommand) Validate() error {
	if cmd.CanvasID == "" || cmd.UserID == "" || cmd.NodeID == "" {
		return errors.New("canvas ID, user ID and node ID are required")
	}
	return nil
}

// ResizeNodeCommand updates a node's size
type ResizeNodeCommand struct {
	CanvasID string  `json:"canvas_id" validate:"required"`
	UserID   string  `json:"user_id" validate:"required"`
	NodeID   string  `json:"node_id" validate:"required"`
	Width    float64 `json:"width" validate:"gt=0"`
	Height   float64 `json:"height" validate:"gt=0"`
}

// Validate validates the command
func (cmd ResizeNodeCommand) Validate() error {
	if cmd.CanvasID == "" || cmd.UserID == "" || cmd.NodeID == "" {
		return errors.New("canvas ID, user ID and node ID are required")
	}
	if cmd.Width <= 0 || cmd.Height <= 0 {
		return errors.New("width and height must be positive")
	}
	return nil
}

// UpdateNodeHandler handles node data, position and size updates
type UpdateNodeHandler struct {
	sessions *session.Manager
	logger   *zap.Logger
}

// NewUpdateNodeHandler creates a new handler instance
func NewUpdateNodeHandler(sessions *session.Manager, logger *zap.Logger) *UpdateNodeHandler {
	return &UpdateNodeHandler{sessions: sessions, logger: logger}
}

// HandleUpdate applies a data patch
func (h *UpdateNodeHandler) HandleUpdate(ctx context.Context, cmd UpdateNodeCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	sess, err := h.sessions.Acquire(ctx, valueobjects.CanvasID(cmd.CanvasID), cmd.UserID)
	if err != nil {
		return err
	}

	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return err
	}
	return sess.Mutate(func(canvas *aggregates.Canvas) error {
		return canvas.UpdateNodeData(nodeID, cmd.Patch)
	})
}

// HandleMove applies a position change
func (h *UpdateNodeHandler) HandleMove(ctx context.Context, cmd MoveNodeCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	sess, err := h.sessions.Acquire(ctx, valueobjects.CanvasID(cmd.CanvasID), cmd.UserID)
	if err != nil {
		return err
	}

	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return err
	}
	position, err := valueobjects.NewPosition(cmd.X, cmd.Y)
	if err != nil {
		return err
	}
	return sess.Mutate(func(canvas *aggregates.Canvas) error {
		return canvas.MoveNode(nodeID, position)
	})
}

// HandleResize applies a size change
func (h *UpdateNodeHandler) HandleResize(ctx context.Context, cmd ResizeNodeCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	sess, err := h.sessions.Acquire(ctx, valueobjects.CanvasID(cmd.CanvasID), cmd.UserID)
	if err != nil {
		return err
	}

	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return err
	}
	size, err := valueobjects.NewSize(cmd.Width, cmd.Height)
	if err != nil {
		return err
	}
	return sess.Mutate(func(canvas *aggregates.Canvas) error {
		return canvas.ResizeNode(nodeID, size)
	})
}
