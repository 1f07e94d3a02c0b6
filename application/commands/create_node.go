package commands

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"inkboard-backend/application/session"
	"inkboard-backend/domain/core/entities"
	"inkboard-backend/domain/core/valueobjects"
)

// Placement mode for CreateNodeCommand
const (
	PlacementAbsolute  = "absolute"
	PlacementPaneClick = "pane-click"
	PlacementDrop      = "drop"
)

// CreateNodeCommand creates a node on a canvas. Placement selects how
// the coordinates are interpreted: absolute canvas coordinates, a
// screen-space pane click, or a drop point checked against container
// nodes for parent-relative positioning.
type CreateNodeCommand struct {
	CanvasID  string            `json:"canvas_id" validate:"required"`
	UserID    string            `json:"user_id" validate:"required"`
	Type      string            `json:"type" validate:"required"`
	Placement string            `json:"placement" validate:"omitempty,oneof=absolute pane-click drop"`
	X         float64           `json:"x"`
	Y         float64           `json:"y"`
	Width     float64           `json:"width" validate:"omitempty,gt=0"`
	Height    float64           `json:"height" validate:"omitempty,gt=0"`
	Content   string            `json:"content"`
	Color     string            `json:"color"`
	ImageURL  string            `json:"image_url"`
	VideoID   string            `json:"video_id"`
	Sources   []entities.Source `json:"sources"`
}

// Validate validates the command
func (cmd CreateNodeCommand) Validate() error {
	if cmd.CanvasID == "" {
		return errors.New("canvas ID is required")
	}
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if !entities.ValidNodeType(entities.NodeType(cmd.Type)) {
		return errors.New("unknown node type")
	}
	if len(cmd.Content) > MaxContentSize {
		return errors.New("content exceeds maximum size")
	}
	return nil
}

// MaxContentSize bounds node content accepted from the API
const MaxContentSize = 200_000

// CreateNodeHandler handles CreateNodeCommand
type CreateNodeHandler struct {
	sessions *session.Manager
	logger   *zap.Logger
}

// NewCreateNodeHandler creates a new handler instance
func NewCreateNodeHandler(sessions *session.Manager, logger *zap.Logger) *CreateNodeHandler {
	return &CreateNodeHandler{sessions: sessions, logger: logger}
}

// Handle executes the create node command
func (h *CreateNodeHandler) Handle(ctx context.Context, cmd CreateNodeCommand) (*entities.Node, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	sess, err := h.sessions.Acquire(ctx, valueobjects.CanvasID(cmd.CanvasID), cmd.UserID)
	if err != nil {
		return nil, err
	}

	position, parentID, err := resolvePlacement(sess, cmd)
	if err != nil {
		return nil, err
	}

	var size valueobjects.Size
	if cmd.Width > 0 && cmd.Height > 0 {
		size, err = valueobjects.NewSize(cmd.Width, cmd.Height)
		if err != nil {
			return nil, err
		}
	}

	data := entities.NodeData{
		Content:  cmd.Content,
		Color:    cmd.Color,
		Sources:  cmd.Sources,
		ImageURL: cmd.ImageURL,
		VideoID:  cmd.VideoID,
	}

	node, err := sess.CreateNode(entities.NodeType(cmd.Type), position, size, data, parentID)
	if err != nil {
		return nil, err
	}

	h.logger.Info("node created",
		zap.String("canvas_id", cmd.CanvasID),
		zap.String("node_id", node.ID().String()),
		zap.String("type", cmd.Type),
	)
	return node, nil
}

func resolvePlacement(sess *session.Session, cmd CreateNodeCommand) (valueobjects.Position, valueobjects.NodeID, error) {
	switch cmd.Placement {
	case PlacementPaneClick:
		position, err := sess.PlacePaneClick(cmd.X, cmd.Y)
		return position, valueobjects.NodeID{}, err
	case PlacementDrop:
		drop, err := valueobjects.NewPosition(cmd.X, cmd.Y)
		if err != nil {
			return valueobjects.Position{}, valueobjects.NodeID{}, err
		}
		return sess.PlaceDrop(drop)
	default:
		position, err := valueobjects.NewPosition(cmd.X, cmd.Y)
		return position, valueobjects.NodeID{}, err
	}
}
