package queries

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"inkboard-backend/application/ports"
	"inkboard-backend/application/queries/bus"
)

// ListCanvasesQuery lists every canvas owned by a user
type ListCanvasesQuery struct {
	UserID string `json:"user_id" validate:"required"`
}

// Validate validates the query
func (q *ListCanvasesQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	return nil
}

// ListCanvasesHandler handles ListCanvasesQuery. Registered on the
// query bus.
type ListCanvasesHandler struct {
	repo   ports.CanvasRepository
	logger *zap.Logger
}

// NewListCanvasesHandler creates a new handler instance
func NewListCanvasesHandler(repo ports.CanvasRepository, logger *zap.Logger) *ListCanvasesHandler {
	return &ListCanvasesHandler{repo: repo, logger: logger}
}

// Handle implements bus.QueryHandler
func (h *ListCanvasesHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(*ListCanvasesQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", query)
	}

	summaries, err := h.repo.ListByOwner(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	return summaries, nil
}
