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

// CreateEdgeCommand connects two existing nodes. Both endpoints must be
// present on the canvas.
type CreateEdgeCommand struct {
	CanvasID string `json:"canvas_id" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
	Source   string `json:"source" validate:"required"`
	Target   string `json:"target" validate:"required"`
	Type     string `json:"type" validate:"omitempty,oneof=default step bezier"`
	Animated bool   `json:"animated"`
}

// Validate validates the command
func (cmd CreateEdgeCommand) Validate() error {
	if cmd.CanvasID == "" || cmd.UserID == "" {
		return errors.New("canvas ID and user ID are required")
	}
	if cmd.Source == "" || cmd.Target == "" {
		return errors.New("source and target node IDs are required")
	}
	return nil
}

// CreateEdgeHandler handles CreateEdgeCommand
type CreateEdgeHandler struct {
	sessions *session.Manager
	logger   *zap.Logger
}

// NewCreateEdgeHandler creates a new handler instance
func NewCreateEdgeHandler(sessions *session.Manager, logger *zap.Logger) *CreateEdgeHandler {
	return &CreateEdgeHandler{sessions: sessions, logger: logger}
}

// Handle executes the create edge command
func (h *CreateEdgeHandler) Handle(ctx context.Context, cmd CreateEdgeCommand) (*entities.Edge, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	sess, err := h.sessions.Acquire(ctx, valueobjects.CanvasID(cmd.CanvasID), cmd.UserID)
	if err != nil {
		return nil, err
	}

	source, err := valueobjects.NewNodeIDFromString(cmd.Source)
	if err != nil {
		return nil, err
	}
	target, err := valueobjects.NewNodeIDFromString(cmd.Target)
	if err != nil {
		return nil, err
	}

	var edge *entities.Edge
	err = sess.Mutate(func(canvas *aggregates.Canvas) error {
		edge, err = canvas.AddEdge(source, target, entities.EdgeType(cmd.Type), cmd.Animated)
		return err
	})
	if err != nil {
		return nil, err
	}
	return edge, nil
}
