package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"inkboard-backend/application/commands"
	"inkboard-backend/application/commands/bus"
	"inkboard-backend/application/ports"
	"inkboard-backend/application/queries"
	querybus "inkboard-backend/application/queries/bus"
	"inkboard-backend/domain/core/entities"
	"inkboard-backend/pkg/auth"
	"inkboard-backend/pkg/common"
	pkgerrors "inkboard-backend/pkg/errors"
	"inkboard-backend/pkg/utils"
)

// NodeHandler handles node-related HTTP requests
type NodeHandler struct {
	createNode *commands.CreateNodeHandler
	updateNode *commands.UpdateNodeHandler
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errs       *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(
	createNode *commands.CreateNodeHandler,
	updateNode *commands.UpdateNodeHandler,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *NodeHandler {
	return &NodeHandler{
		createNode: createNode,
		updateNode: updateNode,
		commandBus: commandBus,
		queryBus:   queryBus,
		errs:       errs,
		logger:     logger,
	}
}

// CreateNodeRequest is the request body for creating a node.
// Placement selects how x/y are interpreted: absolute canvas coordinates
// (the default), a pane click in screen coordinates, or a drag-drop point
// that may land inside a container.
type CreateNodeRequest struct {
	Type      string            `json:"type" validate:"required"`
	Placement string            `json:"placement" validate:"omitempty,oneof=absolute pane-click drop"`
	X         float64           `json:"x"`
	Y         float64           `json:"y"`
	Width     float64           `json:"width" validate:"omitempty,gt=0"`
	Height    float64           `json:"height" validate:"omitempty,gt=0"`
	Content   string            `json:"content"`
	Color     string            `json:"color"`
	ImageURL  string            `json:"imageUrl"`
	VideoID   string            `json:"videoId"`
	Sources   []entities.Source `json:"sources"`
}

// UpdateNodeRequest is the request body for patching node data
type UpdateNodeRequest struct {
	Patch entities.NodeDataPatch `json:"patch"`
}

// MoveNodeRequest is the request body for moving a node
type MoveNodeRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ResizeNodeRequest is the request body for resizing a node
type ResizeNodeRequest struct {
	Width  float64 `json:"width" validate:"required,gt=0"`
	Height float64 `json:"height" validate:"required,gt=0"`
}

// CreateNode handles POST /canvases/{canvasID}/nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	var req CreateNodeRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodySize); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	node, err := h.createNode.Handle(r.Context(), commands.CreateNodeCommand{
		CanvasID:  chi.URLParam(r, "canvasID"),
		UserID:    userCtx.UserID,
		Type:      req.Type,
		Placement: req.Placement,
		X:         req.X,
		Y:         req.Y,
		Width:     req.Width,
		Height:    req.Height,
		Content:   req.Content,
		Color:     req.Color,
		ImageURL:  req.ImageURL,
		VideoID:   req.VideoID,
		Sources:   req.Sources,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, ports.NodeRecordFrom(node))
}

// UpdateNode handles PATCH /canvases/{canvasID}/nodes/{nodeID}
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	var req UpdateNodeRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodySize); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("invalid request body").WithCause(err))
		return
	}

	err = h.updateNode.HandleUpdate(r.Context(), commands.UpdateNodeCommand{
		CanvasID: chi.URLParam(r, "canvasID"),
		UserID:   userCtx.UserID,
		NodeID:   chi.URLParam(r, "nodeID"),
		Patch:    req.Patch,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MoveNode handles PUT /canvases/{canvasID}/nodes/{nodeID}/position
func (h *NodeHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	var req MoveNodeRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodySize); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("invalid request body").WithCause(err))
		return
	}

	err = h.updateNode.HandleMove(r.Context(), commands.MoveNodeCommand{
		CanvasID: chi.URLParam(r, "canvasID"),
		UserID:   userCtx.UserID,
		NodeID:   chi.URLParam(r, "nodeID"),
		X:        req.X,
		Y:        req.Y,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ResizeNode handles PUT /canvases/{canvasID}/nodes/{nodeID}/size
func (h *NodeHandler) ResizeNode(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	var req ResizeNodeRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodySize); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	err = h.updateNode.HandleResize(r.Context(), commands.ResizeNodeCommand{
		CanvasID: chi.URLParam(r, "canvasID"),
		UserID:   userCtx.UserID,
		NodeID:   chi.URLParam(r, "nodeID"),
		Width:    req.Width,
		Height:   req.Height,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteNode handles DELETE /canvases/{canvasID}/nodes/{nodeID}.
// Edges touching the node are removed with it.
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	cmd := &commands.DeleteNodeCommand{
		CanvasID: chi.URLParam(r, "canvasID"),
		UserID:   userCtx.UserID,
		NodeID:   chi.URLParam(r, "nodeID"),
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetBacklinks handles GET /canvases/{canvasID}/nodes/{nodeID}/backlinks
func (h *NodeHandler) GetBacklinks(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), &queries.GetBacklinksQuery{
		CanvasID: chi.URLParam(r, "canvasID"),
		UserID:   userCtx.UserID,
		NodeID:   chi.URLParam(r, "nodeID"),
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// NodesInRect handles GET /canvases/{canvasID}/selection. The rectangle
// comes in as x1/y1/x2/y2 query parameters in canvas coordinates.
func (h *NodeHandler) NodesInRect(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	coords := make([]float64, 4)
	for i, name := range []string{"x1", "y1", "x2", "y2"} {
		value, err := strconv.ParseFloat(r.URL.Query().Get(name), 64)
		if err != nil {
			h.errs.Handle(w, r, pkgerrors.NewValidationError(name+" must be a number"))
			return
		}
		coords[i] = value
	}

	result, err := h.queryBus.Ask(r.Context(), &queries.NodesInRectQuery{
		CanvasID: chi.URLParam(r, "canvasID"),
		UserID:   userCtx.UserID,
		X1:       coords[0],
		Y1:       coords[1],
		X2:       coords[2],
		Y2:       coords[3],
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}
