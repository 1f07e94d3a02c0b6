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

// AIHandler handles AI-assisted node generation and chat
type AIHandler struct {
	sibling *commands.GenerateSiblingHandler
	errs    *pkgerrors.ErrorHandler
	logger  *zap.Logger
}

// NewAIHandler creates a new AI handler
func NewAIHandler(sibling *commands.GenerateSiblingHandler, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *AIHandler {
	return &AIHandler{
		sibling: sibling,
		errs:    errs,
		logger:  logger,
	}
}

// GenerateSiblingRequest is the request body for AI sibling generation
type GenerateSiblingRequest struct {
	Kind string `json:"kind" validate:"required,oneof=tldr keypoints"`
}

// ChatRequest is the request body for one chat turn on a node
type ChatRequest struct {
	Message string `json:"message" validate:"required,max=10000"`
}

// GenerateSibling handles POST /canvases/{canvasID}/nodes/{nodeID}/siblings.
// The generated node lands beside its parent, inherits its color, and is
// linked to it with a new edge.
func (h *AIHandler) GenerateSibling(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	var req GenerateSiblingRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodySize); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	node, err := h.sibling.Handle(r.Context(), commands.GenerateSiblingCommand{
		CanvasID: chi.URLParam(r, "canvasID"),
		UserID:   userCtx.UserID,
		ParentID: chi.URLParam(r, "nodeID"),
		Kind:     req.Kind,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, ports.NodeRecordFrom(node))
}

// Chat handles POST /canvases/{canvasID}/nodes/{nodeID}/chat
func (h *AIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	var req ChatRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodySize); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	reply, err := h.sibling.HandleChat(r.Context(), commands.ChatCommand{
		CanvasID: chi.URLParam(r, "canvasID"),
		UserID:   userCtx.UserID,
		NodeID:   chi.URLParam(r, "nodeID"),
		Message:  req.Message,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, reply)
}
