package commands

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"inkboard-backend/application/ports"
	"inkboard-backend/application/session"
	"inkboard-backend/domain/core/aggregates"
	"inkboard-backend/domain/core/valueobjects"
)

// CreateCanvasCommand creates a new empty canvas
type CreateCanvasCommand struct {
	UserID string `json:"user_id" validate:"required"`
	Name   string `json:"name" validate:"required,min=1,max=200"`
}

// Validate validates the command
func (cmd CreateCanvasCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.Name == "" {
		return errors.New("canvas name is required")
	}
	if len(cmd.Name) > 200 {
		return errors.New("canvas name exceeds maximum length")
	}
	return nil
}

// RenameCanvasCommand renames a canvas
type RenameCanvasCommand struct {
	CanvasID string `json:"canvas_id" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
	Name     string `json:"name" validate:"required,min=1,max=200"`
}

// Validate validates the command
func (cmd RenameCanvasCommand) Validate() error {
	if cmd.CanvasID == "" || cmd.UserID == "" {
		return errors.New("canvas ID and user ID are required")
	}
	if cmd.Name == "" {
		return errors.New("canvas name is required")
	}
	return nil
}

// DeleteCanvasCommand deletes a canvas document and drops its session
type DeleteCanvasCommand struct {
	CanvasID string `json:"canvas_id" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
}

// Validate validates the command
func (cmd DeleteCanvasCommand) Validate() error {
	if cmd.CanvasID == "" || cmd.UserID == "" {
		return errors.New("canvas ID and user ID are required")
	}
	return nil
}

// CloseCanvasCommand flushes and releases a canvas session
type CloseCanvasCommand struct {
	CanvasID string `json:"canvas_id" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
}

// Validate validates the command
func (cmd CloseCanvasCommand) Validate() error {
	if cmd.CanvasID == "" || cmd.UserID == "" {
		return errors.New("canvas ID and user ID are required")
	}
	return nil
}

// CanvasLifecycleHandler handles canvas create, rename, delete and close
type CanvasLifecycleHandler struct {
	sessions *session.Manager
	repo     ports.CanvasRepository
	logger   *zap.Logger
}

// NewCanvasLifecycleHandler creates a new handler instance
func NewCanvasLifecycleHandler(sessions *session.Manager, repo ports.CanvasRepository, logger *zap.Logger) *CanvasLifecycleHandler {
	return &CanvasLifecycleHandler{sessions: sessions, repo: repo, logger: logger}
}

// HandleCreate creates and persists a new empty canvas
func (h *CanvasLifecycleHandler) HandleCreate(ctx context.Context, cmd CreateCanvasCommand) (ports.CanvasDocument, error) {
	if err := cmd.Validate(); err != nil {
		return ports.CanvasDocument{}, err
	}

	doc, err := h.sessions.NewAggregate(ctx, cmd.UserID, cmd.Name)
	if err != nil {
		return ports.CanvasDocument{}, err
	}

	h.logger.Info("canvas created",
		zap.String("canvas_id", doc.ID),
		zap.String("user_id", cmd.UserID),
	)
	return doc, nil
}

// HandleRename renames a canvas through its session
func (h *CanvasLifecycleHandler) HandleRename(ctx context.Context, cmd RenameCanvasCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	sess, err := h.sessions.Acquire(ctx, valueobjects.CanvasID(cmd.CanvasID), cmd.UserID)
	if err != nil {
		return err
	}
	return sess.MutateTransient(func(canvas *aggregates.Canvas) error {
		return canvas.Rename(cmd.Name)
	})
}

// HandleDelete removes the stored document and evicts any live session
// without flushing it, since a flush would resurrect the document.
func (h *CanvasLifecycleHandler) HandleDelete(ctx context.Context, cmd DeleteCanvasCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	canvasID := valueobjects.CanvasID(cmd.CanvasID)

	// Verify ownership before destroying anything
	if _, err := h.sessions.Acquire(ctx, canvasID, cmd.UserID); err != nil {
		return err
	}

	h.sessions.Evict(canvasID)
	if err := h.repo.Delete(ctx, cmd.UserID, canvasID); err != nil {
		return err
	}

	h.logger.Info("canvas deleted",
		zap.String("canvas_id", cmd.CanvasID),
		zap.String("user_id", cmd.UserID),
	)
	return nil
}

// HandleClose flushes pending edits and releases the session
func (h *CanvasLifecycleHandler) HandleClose(ctx context.Context, cmd CloseCanvasCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	canvasID := valueobjects.CanvasID(cmd.CanvasID)
	if _, err := h.sessions.Acquire(ctx, canvasID, cmd.UserID); err != nil {
		return err
	}
	return h.sessions.Release(ctx, canvasID)
}
