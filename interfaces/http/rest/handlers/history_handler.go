package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"inkboard-backend/application/commands"
	"inkboard-backend/application/ports"
	"inkboard-backend/pkg/auth"
	"inkboard-backend/pkg/common"
	pkgerrors "inkboard-backend/pkg/errors"
	"inkboard-backend/pkg/utils"
)

// HistoryHandler handles undo/redo, paste and selection requests
type HistoryHandler struct {
	history *commands.HistoryHandler
	paste   *commands.PasteNodesHandler
	errs    *pkgerrors.ErrorHandler
	logger  *zap.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(
	history *commands.HistoryHandler,
	paste *commands.PasteNodesHandler,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		paste:   paste,
		errs:    errs,
		logger:  logger,
	}
}

// NodeIDsRequest is the request body for paste and selection operations
type NodeIDsRequest struct {
	NodeIDs []string `json:"nodeIds" validate:"max=500"`
}

// Undo handles POST /canvases/{canvasID}/undo. Undoing past the oldest
// state is a no-op reported through the applied flag.
func (h *HistoryHandler) Undo(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	result, err := h.history.HandleUndo(r.Context(), commands.UndoCommand{
		CanvasID: chi.URLParam(r, "canvasID"),
		UserID:   userCtx.UserID,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// Redo handles POST /canvases/{canvasID}/redo
func (h *HistoryHandler) Redo(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	result, err := h.history.HandleRedo(r.Context(), commands.RedoCommand{
		CanvasID: chi.URLParam(r, "canvasID"),
		UserID:   userCtx.UserID,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// PasteNodes handles POST /canvases/{canvasID}/paste. Clones of the given
// nodes are inserted at a fixed offset and become the selection.
func (h *HistoryHandler) PasteNodes(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	var req NodeIDsRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodySize); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	nodes, err := h.paste.Handle(r.Context(), commands.PasteNodesCommand{
		CanvasID: chi.URLParam(r, "canvasID"),
		UserID:   userCtx.UserID,
		NodeIDs:  req.NodeIDs,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	records := make([]ports.NodeRecord, 0, len(nodes))
	for _, node := range nodes {
		records = append(records, ports.NodeRecordFrom(node))
	}
	common.RespondJSON(w, http.StatusCreated, records)
}

// SelectNodes handles PUT /canvases/{canvasID}/selection. An empty list
// clears the selection.
func (h *HistoryHandler) SelectNodes(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	var req NodeIDsRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodySize); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("invalid request body").WithCause(err))
		return
	}

	err = h.paste.HandleSelect(r.Context(), commands.SelectNodesCommand{
		CanvasID: chi.URLParam(r, "canvasID"),
		UserID:   userCtx.UserID,
		NodeIDs:  req.NodeIDs,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
