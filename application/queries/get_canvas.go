package queries

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"inkboard-backend/application/ports"
	"inkboard-backend/application/queries/bus"
	"inkboard-backend/application/session"
	"inkboard-backend/domain/core/valueobjects"
)

// GetCanvasQuery fetches the full state of one canvas. An empty UserID
// skips the ownership check, used by the read-only public view.
type GetCanvasQuery struct {
	CanvasID string `json:"canvas_id" validate:"required"`
	UserID   string `json:"user_id"`
}

// Validate validates the query
func (q *GetCanvasQuery) Validate() error {
	if q.CanvasID == "" {
		return errors.New("canvas ID is required")
	}
	return nil
}

// CanvasView is the full read model of an open canvas. HiddenNodeIDs is
// the culler's ephemeral overlay; it is never part of the document.
type CanvasView struct {
	Document      ports.CanvasDocument `json:"document"`
	HiddenNodeIDs []string             `json:"hiddenNodeIds"`
	CanUndo       bool                 `json:"canUndo"`
	CanRedo       bool                 `json:"canRedo"`
	Unsaved       bool                 `json:"unsaved"`
}

// GetCanvasHandler handles GetCanvasQuery. Registered on the query bus.
type GetCanvasHandler struct {
	sessions *session.Manager
	logger   *zap.Logger
}

// NewGetCanvasHandler creates a new handler instance
func NewGetCanvasHandler(sessions *session.Manager, logger *zap.Logger) *GetCanvasHandler {
	return &GetCanvasHandler{sessions: sessions, logger: logger}
}

// Handle implements bus.QueryHandler
func (h *GetCanvasHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(*GetCanvasQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", query)
	}

	sess, err := h.sessions.Acquire(ctx, valueobjects.CanvasID(q.CanvasID), q.UserID)
	if err != nil {
		return nil, err
	}

	doc, err := sess.Document()
	if err != nil {
		return nil, err
	}

	hidden := sess.Culler().HiddenIDs()
	hiddenIDs := make([]string, 0, len(hidden))
	for _, id := range hidden {
		hiddenIDs = append(hiddenIDs, id.String())
	}

	return &CanvasView{
		Document:      doc,
		HiddenNodeIDs: hiddenIDs,
		CanUndo:       sess.CanUndo(),
		CanRedo:       sess.CanRedo(),
		Unsaved:       sess.Unsaved(),
	}, nil
}
