package commands

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"inkboard-backend/application/commands/bus"
	"inkboard-backend/application/session"
	"inkboard-backend/domain/core/valueobjects"
)

// SetViewportCommand records a pan/zoom change. The viewport is not
// persisted and not undoable; it drives visibility culling only.
type SetViewportCommand struct {
	CanvasID     string  `json:"canvas_id" validate:"required"`
	UserID       string  `json:"user_id" validate:"required"`
	PanX         float64 `json:"pan_x"`
	PanY         float64 `json:"pan_y"`
	Zoom         float64 `json:"zoom" validate:"gt=0"`
	ScreenWidth  float64 `json:"screen_width" validate:"gt=0"`
	ScreenHeight float64 `json:"screen_height" validate:"gt=0"`
}

// Validate validates the command
func (cmd *SetViewportCommand) Validate() error {
	if cmd.CanvasID == "" || cmd.UserID == "" {
		return errors.New("canvas ID and user ID are required")
	}
	if cmd.Zoom <= 0 {
		return errors.New("zoom must be positive")
	}
	if cmd.ScreenWidth <= 0 || cmd.ScreenHeight <= 0 {
		return errors.New("screen size must be positive")
	}
	return nil
}

// SetViewportHandler handles SetViewportCommand. Registered on the
// command bus.
type SetViewportHandler struct {
	sessions *session.Manager
	logger   *zap.Logger
}

// NewSetViewportHandler creates a new handler instance
func NewSetViewportHandler(sessions *session.Manager, logger *zap.Logger) *SetViewportHandler {
	return &SetViewportHandler{sessions: sessions, logger: logger}
}

// Handle implements bus.CommandHandler
func (h *SetViewportHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(*SetViewportCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}

	sess, err := h.sessions.Acquire(ctx, valueobjects.CanvasID(c.CanvasID), c.UserID)
	if err != nil {
		return err
	}

	viewport, err := valueobjects.NewViewport(c.PanX, c.PanY, c.Zoom)
	if err != nil {
		return err
	}
	return sess.SetViewport(viewport, c.ScreenWidth, c.ScreenHeight)
}
