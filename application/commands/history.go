package commands

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"inkboard-backend/application/session"
	"inkboard-backend/domain/core/valueobjects"
)

// UndoCommand steps the canvas back one history entry
type UndoCommand struct {
	CanvasID string `json:"canvas_id" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
}

// Validate validates the command
func (cmd UndoCommand) Validate() error {
	if cmd.CanvasID == "" || cmd.UserID == "" {
		return errors.New("canvas ID and user ID are required")
	}
	return nil
}

// RedoCommand steps the canvas forward one history entry
type RedoCommand struct {
	CanvasID string `json:"canvas_id" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
}

// Validate validates the command
func (cmd RedoCommand) Validate() error {
	if cmd.CanvasID == "" || cmd.UserID == "" {
		return errors.New("canvas ID and user ID are required")
	}
	return nil
}

// HistoryResult reports whether a step was applied and what remains
// available. A step at the stack boundary is a no-op, not an error.
type HistoryResult struct {
	Applied bool `json:"applied"`
	CanUndo bool `json:"can_undo"`
	CanRedo bool `json:"can_redo"`
}

// HistoryHandler handles undo and redo
type HistoryHandler struct {
	sessions *session.Manager
	logger   *zap.Logger
}

// NewHistoryHandler creates a new handler instance
func NewHistoryHandler(sessions *session.Manager, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{sessions: sessions, logger: logger}
}

// HandleUndo executes an undo step
func (h *HistoryHandler) HandleUndo(ctx context.Context, cmd UndoCommand) (HistoryResult, error) {
	if err := cmd.Validate(); err != nil {
		return HistoryResult{}, err
	}

	sess, err := h.sessions.Acquire(ctx, valueobjects.CanvasID(cmd.CanvasID), cmd.UserID)
	if err != nil {
		return HistoryResult{}, err
	}

	applied := sess.Undo()
	return HistoryResult{
		Applied: applied,
		CanUndo: sess.CanUndo(),
		CanRedo: sess.CanRedo(),
	}, nil
}

// HandleRedo executes a redo step
func (h *HistoryHandler) HandleRedo(ctx context.Context, cmd RedoCommand) (HistoryResult, error) {
	if err := cmd.Validate(); err != nil {
		return HistoryResult{}, err
	}

	sess, err := h.sessions.Acquire(ctx, valueobjects.CanvasID(cmd.CanvasID), cmd.UserID)
	if err != nil {
		return HistoryResult{}, err
	}

	applied := sess.Redo()
	return HistoryResult{
		Applied: applied,
		CanUndo: sess.CanUndo(),
		CanRedo: sess.CanRedo(),
	}, nil
}
