package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"inkboard-backend/application/commands"
	"inkboard-backend/application/commands/bus"
	"inkboard-backend/application/queries"
	querybus "inkboard-backend/application/queries/bus"
	"inkboard-backend/pkg/auth"
	"inkboard-backend/pkg/common"
	pkgerrors "inkboard-backend/pkg/errors"
	"inkboard-backend/pkg/utils"
)

const maxBodySize = 1 << 20

// CanvasHandler handles canvas lifecycle and read requests
type CanvasHandler struct {
	lifecycle  *commands.CanvasLifecycleHandler
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errs       *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewCanvasHandler creates a new canvas handler
func NewCanvasHandler(
	lifecycle *commands.CanvasLifecycleHandler,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *CanvasHandler {
	return &CanvasHandler{
		lifecycle:  lifecycle,
		commandBus: commandBus,
		queryBus:   queryBus,
		errs:       errs,
		logger:     logger,
	}
}

// CreateCanvasRequest is the request body for creating a canvas
type CreateCanvasRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// RenameCanvasRequest is the request body for renaming a canvas
type RenameCanvasRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// ViewportRequest is the request body for reporting the client viewport
type ViewportRequest struct {
	PanX         float64 `json:"panX"`
	PanY         float64 `json:"panY"`
	Zoom         float64 `json:"zoom" validate:"required,gt=0"`
	ScreenWidth  float64 `json:"screenWidth" validate:"required,gt=0"`
	ScreenHeight float64 `json:"screenHeight" validate:"required,gt=0"`
}

// CreateCanvas handles POST /canvases
func (h *CanvasHandler) CreateCanvas(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	var req CreateCanvasRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodySize); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	doc, err := h.lifecycle.HandleCreate(r.Context(), commands.CreateCanvasCommand{
		UserID: userCtx.UserID,
		Name:   req.Name,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, doc)
}

// ListCanvases handles GET /canvases
func (h *CanvasHandler) ListCanvases(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), &queries.ListCanvasesQuery{UserID: userCtx.UserID})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetCanvas handles GET /canvases/{canvasID}
func (h *CanvasHandler) GetCanvas(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), &queries.GetCanvasQuery{
		CanvasID: chi.URLParam(r, "canvasID"),
		UserID:   userCtx.UserID,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// ViewCanvas handles GET /view/{canvasID}, the public read-only view.
// No owner is attached, so the session serves the canvas to anyone
// holding its id.
func (h *CanvasHandler) ViewCanvas(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), &queries.GetCanvasQuery{
		CanvasID: chi.URLParam(r, "canvasID"),
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// RenameCanvas handles PATCH /canvases/{canvasID}
func (h *CanvasHandler) RenameCanvas(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	var req RenameCanvasRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodySize); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	err = h.lifecycle.HandleRename(r.Context(), commands.RenameCanvasCommand{
		CanvasID: chi.URLParam(r, "canvasID"),
		UserID:   userCtx.UserID,
		Name:     req.Name,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"name": req.Name})
}

// DeleteCanvas handles DELETE /canvases/{canvasID}
func (h *CanvasHandler) DeleteCanvas(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	err = h.lifecycle.HandleDelete(r.Context(), commands.DeleteCanvasCommand{
		CanvasID: chi.URLParam(r, "canvasID"),
		UserID:   userCtx.UserID,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CloseCanvas handles POST /canvases/{canvasID}/close. Pending changes are
// flushed before the session is released.
func (h *CanvasHandler) CloseCanvas(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	err = h.lifecycle.HandleClose(r.Context(), commands.CloseCanvasCommand{
		CanvasID: chi.URLParam(r, "canvasID"),
		UserID:   userCtx.UserID,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetViewport handles PUT /canvases/{canvasID}/viewport
func (h *CanvasHandler) SetViewport(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	var req ViewportRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodySize); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	cmd := &commands.SetViewportCommand{
		CanvasID:     chi.URLParam(r, "canvasID"),
		UserID:       userCtx.UserID,
		PanX:         req.PanX,
		PanY:         req.PanY,
		Zoom:         req.Zoom,
		ScreenWidth:  req.ScreenWidth,
		ScreenHeight: req.ScreenHeight,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
