package commands

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"inkboard-backend/application/ports"
	"inkboard-backend/application/session"
	"inkboard-backend/domain/core/aggregates"
	"inkboard-backend/domain/core/entities"
	"inkboard-backend/domain/core/valueobjects"
	pkgerrors "inkboard-backend/pkg/errors"
)

// Sibling kinds
const (
	SiblingTLDR      = "tldr"
	SiblingKeyPoints = "keypoints"
)

// GenerateSiblingCommand derives an AI node (summary or key points)
// from an existing node and places it beside the parent.
type GenerateSiblingCommand struct {
	CanvasID string `json:"canvas_id" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
	ParentID string `json:"parent_id" validate:"required"`
	Kind     string `json:"kind" validate:"required,oneof=tldr keypoints"`
}

// Validate validates the command
func (cmd GenerateSiblingCommand) Validate() error {
	if cmd.CanvasID == "" || cmd.UserID == "" || cmd.ParentID == "" {
		return errors.New("canvas ID, user ID and parent ID are required")
	}
	if cmd.Kind != SiblingTLDR && cmd.Kind != SiblingKeyPoints {
		return errors.New("kind must be tldr or keypoints")
	}
	return nil
}

// ChatCommand appends one user turn to a node's AI conversation and
// records the assistant's reply.
type ChatCommand struct {
	CanvasID string `json:"canvas_id" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
	NodeID   string `json:"node_id" validate:"required"`
	Message  string `json:"message" validate:"required,max=10000"`
}

// Validate validates the command
func (cmd ChatCommand) Validate() error {
	if cmd.CanvasID == "" || cmd.UserID == "" || cmd.NodeID == "" {
		return errors.New("canvas ID, user ID and node ID are required")
	}
	if cmd.Message == "" {
		return errors.New("message is required")
	}
	return nil
}

// GenerateSiblingHandler derives AI content from existing nodes. It
// validates every collaborator response before anything touches the
// canvas, so a malformed completion can never corrupt the graph.
type GenerateSiblingHandler struct {
	sessions    *session.Manager
	ai          ports.AIService
	transcripts ports.TranscriptService
	logger      *zap.Logger
}

// NewGenerateSiblingHandler creates a new handler instance
func NewGenerateSiblingHandler(sessions *session.Manager, ai ports.AIService, transcripts ports.TranscriptService, logger *zap.Logger) *GenerateSiblingHandler {
	return &GenerateSiblingHandler{
		sessions:    sessions,
		ai:          ai,
		transcripts: transcripts,
		logger:      logger,
	}
}

// Handle executes the generate sibling command
func (h *GenerateSiblingHandler) Handle(ctx context.Context, cmd GenerateSiblingCommand) (*entities.Node, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	sess, err := h.sessions.Acquire(ctx, valueobjects.CanvasID(cmd.CanvasID), cmd.UserID)
	if err != nil {
		return nil, err
	}

	parentID, err := valueobjects.NewNodeIDFromString(cmd.ParentID)
	if err != nil {
		return nil, err
	}

	source, err := h.sourceText(ctx, sess, parentID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(source) == "" {
		return nil, pkgerrors.NewValidationError("parent node has no content to summarize")
	}

	var nodeType entities.NodeType
	var content string
	switch cmd.Kind {
	case SiblingTLDR:
		nodeType = entities.NodeTypeTLDR
		content, err = h.ai.Complete(ctx, "Summarize the following content in a short paragraph.", source)
		if err != nil {
			return nil, pkgerrors.NewExternalError("ai completion failed", err)
		}
	case SiblingKeyPoints:
		nodeType = entities.NodeTypeKeyPoints
		var points struct {
			KeyPoints []string `json:"keyPoints"`
		}
		if err := h.ai.CompleteJSON(ctx, `Extract the key points from the following content as JSON: {"keyPoints": ["..."]}`, source, &points); err != nil {
			return nil, pkgerrors.NewExternalError("ai completion failed", err)
		}
		if len(points.KeyPoints) == 0 {
			return nil, pkgerrors.NewExternalError("ai returned no key points", nil)
		}
		content = "- " + strings.Join(points.KeyPoints, "\n- ")
	}

	if strings.TrimSpace(content) == "" {
		return nil, pkgerrors.NewExternalError("ai returned empty content", nil)
	}

	node, err := sess.CreateSibling(parentID, nodeType, entities.NodeData{Content: content})
	if err != nil {
		return nil, err
	}

	h.logger.Info("ai sibling created",
		zap.String("canvas_id", cmd.CanvasID),
		zap.String("parent_id", cmd.ParentID),
		zap.String("kind", cmd.Kind),
	)
	return node, nil
}

// HandleChat executes one chat turn against a node
func (h *GenerateSiblingHandler) HandleChat(ctx context.Context, cmd ChatCommand) (entities.ChatMessage, error) {
	if err := cmd.Validate(); err != nil {
		return entities.ChatMessage{}, err
	}

	sess, err := h.sessions.Acquire(ctx, valueobjects.CanvasID(cmd.CanvasID), cmd.UserID)
	if err != nil {
		return entities.ChatMessage{}, err
	}

	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return entities.ChatMessage{}, err
	}

	var history []entities.ChatMessage
	var content string
	err = sess.Read(func(canvas *aggregates.Canvas) error {
		node, err := canvas.GetNode(nodeID)
		if err != nil {
			return err
		}
		history = node.Data().Chat
		content = node.Data().Content
		if node.Data().Transcript != "" {
			content = node.Data().Transcript
		}
		return nil
	})
	if err != nil {
		return entities.ChatMessage{}, err
	}

	prompt := buildChatPrompt(history, cmd.Message)
	answer, err := h.ai.Complete(ctx, prompt, content)
	if err != nil {
		return entities.ChatMessage{}, pkgerrors.NewExternalError("ai completion failed", err)
	}

	reply := entities.ChatMessage{Role: "assistant", Content: answer}
	chat := append(append([]entities.ChatMessage{}, history...),
		entities.ChatMessage{Role: "user", Content: cmd.Message},
		reply,
	)
	err = sess.Mutate(func(canvas *aggregates.Canvas) error {
		return canvas.UpdateNodeData(nodeID, entities.NodeDataPatch{Chat: &chat})
	})
	if err != nil {
		return entities.ChatMessage{}, err
	}
	return reply, nil
}

// sourceText resolves the text to feed the AI: the node's transcript
// for video nodes (fetched on demand), otherwise its content.
func (h *GenerateSiblingHandler) sourceText(ctx context.Context, sess *session.Session, parentID valueobjects.NodeID) (string, error) {
	var nodeType entities.NodeType
	var data entities.NodeData
	err := sess.Read(func(canvas *aggregates.Canvas) error {
		node, err := canvas.GetNode(parentID)
		if err != nil {
			return err
		}
		nodeType = node.Type()
		data = node.Data()
		return nil
	})
	if err != nil {
		return "", err
	}

	if nodeType != entities.NodeTypeYouTube {
		return data.Content, nil
	}
	if data.Transcript != "" {
		return data.Transcript, nil
	}
	if h.transcripts == nil || data.VideoID == "" {
		return "", pkgerrors.NewValidationError("video node has no transcript")
	}

	transcript, err := h.transcripts.Fetch(ctx, data.VideoID)
	if err != nil {
		return "", pkgerrors.NewExternalError("transcript fetch failed", err)
	}

	// Cache the transcript on the node so the next request skips the fetch
	err = sess.Mutate(func(canvas *aggregates.Canvas) error {
		return canvas.UpdateNodeData(parentID, entities.NodeDataPatch{Transcript: &transcript})
	})
	if err != nil {
		return "", err
	}
	return transcript, nil
}

func buildChatPrompt(history []entities.ChatMessage, message string) string {
	var b strings.Builder
	b.WriteString("You are answering questions about the provided content.\n")
	for _, turn := range history {
		b.WriteString(turn.Role)
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	b.WriteString("user: ")
	b.WriteString(message)
	return b.String()
}
