package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"inkboard-backend/application/commands"
	"inkboard-backend/application/commands/bus"
	"inkboard-backend/application/ports"
	"inkboard-backend/pkg/auth"
	"inkboard-backend/pkg/common"
	pkgerrors "inkboard-backend/pkg/errors"
	"inkboard-backend/pkg/utils"
)

// EdgeHandler handles edge-related HTTP requests
type EdgeHandler struct {
	createEdge *commands.CreateEdgeHandler
	commandBus *bus.CommandBus
	errs       *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewEdgeHandler creates a new edge handler
func NewEdgeHandler(
	createEdge *commands.CreateEdgeHandler,
	commandBus *bus.CommandBus,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *EdgeHandler {
	return &EdgeHandler{
		createEdge: createEdge,
		commandBus: commandBus,
		errs:       errs,
		logger:     logger,
	}
}

// CreateEdgeRequest is the request body for creating an edge
type CreateEdgeRequest struct {
	Source   string `json:"source" validate:"required"`
	Target   string `json:"target" validate:"required"`
	Type     string `json:"type" validate:"omitempty,oneof=default step bezier"`
	Animated bool   `json:"animated"`
}

// CreateEdge handles POST /canvases/{canvasID}/edges
func (h *EdgeHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	var req CreateEdgeRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodySize); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	edge, err := h.createEdge.Handle(r.Context(), commands.CreateEdgeCommand{
		CanvasID: chi.URLParam(r, "canvasID"),
		UserID:   userCtx.UserID,
		Source:   req.Source,
		Target:   req.Target,
		Type:     req.Type,
		Animated: req.Animated,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, ports.EdgeRecordFrom(edge))
}

// DeleteEdge handles DELETE /canvases/{canvasID}/edges/{edgeID}
func (h *EdgeHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	cmd := &commands.DeleteEdgeCommand{
		CanvasID: chi.URLParam(r, "canvasID"),
		UserID:   userCtx.UserID,
		EdgeID:   chi.URLParam(r, "edgeID"),
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
