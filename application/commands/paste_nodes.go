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

// PasteNodesCommand clones the given nodes with fresh ids at a fixed
// offset from the originals and selects exactly the pasted set.
type PasteNodesCommand struct {
	CanvasID string   `json:"canvas_id" validate:"required"`
	UserID   string   `json:"user_id" validate:"required"`
	NodeIDs  []string `json:"node_ids" validate:"required,min=1"`
}

// Validate validates the command
func (cmd PasteNodesCommand) Validate() error {
	if cmd.CanvasID == "" || cmd.UserID == "" {
		return errors.New("canvas ID and user ID are required")
	}
	if len(cmd.NodeIDs) == 0 {
		return errors.New("at least one node ID is required")
	}
	return nil
}

// SelectNodesCommand sets the selection to exactly the given nodes.
// Selection is exclusive and is not an undoable edit.
type SelectNodesCommand struct {
	CanvasID string   `json:"canvas_id" validate:"required"`
	UserID   string   `json:"user_id" validate:"required"`
	NodeIDs  []string `json:"node_ids"`
}

// Validate validates the command
func (cmd SelectNodesCommand) Validate() error {
	if cmd.CanvasID == "" || cmd.UserID == "" {
		return errors.New("canvas ID and user ID are required")
	}
	return nil
}

// PasteNodesHandler handles paste and selection commands
type PasteNodesHandler struct {
	sessions *session.Manager
	logger   *zap.Logger
}

// NewPasteNodesHandler creates a new handler instance
func NewPasteNodesHandler(sessions *session.Manager, logger *zap.Logger) *PasteNodesHandler {
	return &PasteNodesHandler{sessions: sessions, logger: logger}
}

// Handle executes the paste command and returns the pasted clones
func (h *PasteNodesHandler) Handle(ctx context.Context, cmd PasteNodesCommand) ([]*entities.Node, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	sess, err := h.sessions.Acquire(ctx, valueobjects.CanvasID(cmd.CanvasID), cmd.UserID)
	if err != nil {
		return nil, err
	}

	ids, err := parseNodeIDs(cmd.NodeIDs)
	if err != nil {
		return nil, err
	}

	pasted, err := sess.PasteNodes(ids)
	if err != nil {
		return nil, err
	}

	h.logger.Info("nodes pasted",
		zap.String("canvas_id", cmd.CanvasID),
		zap.Int("count", len(pasted)),
	)
	return pasted, nil
}

// HandleSelect applies an exclusive selection
func (h *PasteNodesHandler) HandleSelect(ctx context.Context, cmd SelectNodesCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	sess, err := h.sessions.Acquire(ctx, valueobjects.CanvasID(cmd.CanvasID), cmd.UserID)
	if err != nil {
		return err
	}

	ids, err := parseNodeIDs(cmd.NodeIDs)
	if err != nil {
		return err
	}

	selection := make(map[valueobjects.NodeID]struct{}, len(ids))
	for _, id := range ids {
		selection[id] = struct{}{}
	}
	return sess.MutateTransient(func(canvas *aggregates.Canvas) error {
		canvas.SetSelection(selection)
		return nil
	})
}

func parseNodeIDs(raw []string) ([]valueobjects.NodeID, error) {
	ids := make([]valueobjects.NodeID, 0, len(raw))
	for _, r := range raw {
		id, err := valueobjects.NewNodeIDFromString(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
