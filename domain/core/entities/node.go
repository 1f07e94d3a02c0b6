package entities

import (
	"time"

	"inkboard-backend/domain/core/valueobjects"
	pkgerrors "inkboard-backend/pkg/errors"
)

// NodeType selects the rendering/behavior variant of a node
type NodeType string

const (
	NodeTypePlain     NodeType = "plain"
	NodeTypeNote      NodeType = "note"
	NodeTypeTLDR      NodeType = "tldr"
	NodeTypeKeyPoints NodeType = "keypoints"
	NodeTypeReference NodeType = "reference"
	NodeTypeImage     NodeType = "image"
	NodeTypeYouTube   NodeType = "youtube"
)

// ValidNodeType reports whether t is a known node type
func ValidNodeType(t NodeType) bool {
	switch t {
	case NodeTypePlain, NodeTypeNote, NodeTypeTLDR, NodeTypeKeyPoints,
		NodeTypeReference, NodeTypeImage, NodeTypeYouTube:
		return true
	default:
		return false
	}
}

// Source records the provenance of generated content
type Source struct {
	Text     string `json:"text"`
	Page     int    `json:"page,omitempty"`
	FileName string `json:"fileName,omitempty"`
}

// ChatMessage is one turn of a node's AI conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NodeData is the variant-specific payload of a node
type NodeData struct {
	Content    string        `json:"content,omitempty"`
	Color      string        `json:"color,omitempty"`
	Sources    []Source      `json:"sources,omitempty"`
	Chat       []ChatMessage `json:"chat,omitempty"`
	ImageURL   string        `json:"imageUrl,omitempty"`
	VideoID    string        `json:"videoId,omitempty"`
	Transcript string        `json:"transcript,omitempty"`
}

// NodeDataPatch is a shallow-merge patch for NodeData; nil fields are
// left untouched.
type NodeDataPatch struct {
	Content    *string        `json:"content,omitempty"`
	Color      *string        `json:"color,omitempty"`
	Sources    *[]Source      `json:"sources,omitempty"`
	Chat       *[]ChatMessage `json:"chat,omitempty"`
	ImageURL   *string        `json:"imageUrl,omitempty"`
	VideoID    *string        `json:"videoId,omitempty"`
	Transcript *string        `json:"transcript,omitempty"`
}

// Node is a positioned, typed unit of content on the canvas
type Node struct {
	id        valueobjects.NodeID
	nodeType  NodeType
	position  valueobjects.Position
	size      valueobjects.Size
	data      NodeData
	parentID  valueobjects.NodeID
	selected  bool
	createdAt time.Time
	updatedAt time.Time
}

// NewNode creates a new node with validation
func NewNode(nodeType NodeType, position valueobjects.Position, data NodeData) (*Node, error) {
	if !ValidNodeType(nodeType) {
		return nil, pkgerrors.NewValidationError("unknown node type: " + string(nodeType))
	}

	now := time.Now()
	return &Node{
		id:        valueobjects.NewNodeID(),
		nodeType:  nodeType,
		position:  position,
		data:      data,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructNode recreates a node from stored data with preserved identity
func ReconstructNode(
	id valueobjects.NodeID,
	nodeType NodeType,
	position valueobjects.Position,
	size valueobjects.Size,
	data NodeData,
	parentID valueobjects.NodeID,
) (*Node, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("node id required for reconstruction")
	}
	if !ValidNodeType(nodeType) {
		return nil, pkgerrors.NewValidationError("unknown node type: " + string(nodeType))
	}

	now := time.Now()
	return &Node{
		id:        id,
		nodeType:  nodeType,
		position:  position,
		size:      size,
		data:      data,
		parentID:  parentID,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ID returns the node's unique identifier
func (n *Node) ID() valueobjects.NodeID {
	return n.id
}

// Type returns the node's variant tag
func (n *Node) Type() NodeType {
	return n.nodeType
}

// Position returns the node's position in canvas space
func (n *Node) Position() valueobjects.Position {
	return n.position
}

// Size returns the node's explicit size; zero means auto-size
func (n *Node) Size() valueobjects.Size {
	return n.size
}

// Data returns a copy of the node's payload
func (n *Node) Data() NodeData {
	return n.data.clone()
}

// ParentID returns the container node id when the node was dropped into a
// group; zero otherwise. Best-effort metadata, not a structural invariant.
func (n *Node) ParentID() valueobjects.NodeID {
	return n.parentID
}

// Selected reports the transient UI selection flag
func (n *Node) Selected() bool {
	return n.selected
}

// UpdatedAt returns when the node was last mutated
func (n *Node) UpdatedAt() time.Time {
	return n.updatedAt
}

// MoveTo moves the node to a new position
func (n *Node) MoveTo(position valueobjects.Position) {
	if position.Equals(n.position) {
		return
	}
	n.position = position
	n.updatedAt = time.Now()
}

// Resize sets an explicit size on the node
func (n *Node) Resize(size valueobjects.Size) {
	n.size = size
	n.updatedAt = time.Now()
}

// SetParent records group containment metadata
func (n *Node) SetParent(parentID valueobjects.NodeID) {
	n.parentID = parentID
	n.updatedAt = time.Now()
}

// SetSelected sets the transient selection flag.
// Selection changes do not touch updatedAt: they are not edits.
func (n *Node) SetSelected(selected bool) {
	n.selected = selected
}

// ApplyPatch shallow-merges a patch into the node's data
func (n *Node) ApplyPatch(patch NodeDataPatch) {
	if patch.Content != nil {
		n.data.Content = *patch.Content
	}
	if patch.Color != nil {
		n.data.Color = *patch.Color
	}
	if patch.Sources != nil {
		n.data.Sources = append([]Source(nil), (*patch.Sources)...)
	}
	if patch.Chat != nil {
		n.data.Chat = append([]ChatMessage(nil), (*patch.Chat)...)
	}
	if patch.ImageURL != nil {
		n.data.ImageURL = *patch.ImageURL
	}
	if patch.VideoID != nil {
		n.data.VideoID = *patch.VideoID
	}
	if patch.Transcript != nil {
		n.data.Transcript = *patch.Transcript
	}
	n.updatedAt = time.Now()
}

// Clone returns a deep copy of the node preserving its identity.
// Used for history snapshots.
func (n *Node) Clone() *Node {
	clone := *n
	clone.data = n.data.clone()
	return &clone
}

// CloneWithNewID returns a copy with a fresh id, offset position, and no
// parent. Used by paste.
func (n *Node) CloneWithNewID(offsetX, offsetY float64) *Node {
	clone := n.Clone()
	clone.id = valueobjects.NewNodeID()
	clone.position = n.position.Offset(offsetX, offsetY)
	clone.parentID = valueobjects.NodeID{}
	clone.selected = false
	now := time.Now()
	clone.createdAt = now
	clone.updatedAt = now
	return clone
}

func (d NodeData) clone() NodeData {
	out := d
	if d.Sources != nil {
		out.Sources = append([]Source(nil), d.Sources...)
	}
	if d.Chat != nil {
		out.Chat = append([]ChatMessage(nil), d.Chat...)
	}
	return out
}
