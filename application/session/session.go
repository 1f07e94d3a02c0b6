package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"inkboard-backend/application/ports"
	"inkboard-backend/domain/config"
	"inkboard-backend/domain/core/aggregates"
	"inkboard-backend/domain/core/entities"
	"inkboard-backend/domain/core/valueobjects"
	"inkboard-backend/domain/events"
	"inkboard-backend/domain/history"
	pkgerrors "inkboard-backend/pkg/errors"
)

// State is the session lifecycle state
type State int

const (
	// StateLoading means the stored document is still being fetched.
	// Mutations are rejected and no saves are issued, so an empty local
	// state can never clobber not-yet-loaded remote data.
	StateLoading State = iota
	// StateReady means the canvas is loaded and editable
	StateReady
	// StateClosed means the session has been released
	StateClosed
)

// Session owns one open canvas: the aggregate, its undo/redo history,
// the save synchronizer, and the visibility culler. All mutation goes
// through the session so history recording and save scheduling cannot
// be bypassed.
type Session struct {
	canvasID valueobjects.CanvasID

	mu      sync.Mutex
	state   State
	canvas  *aggregates.Canvas
	version int64
	loadErr error

	history   *history.History
	sync      *Synchronizer
	culler    *Culler
	placement *Placement

	repo   ports.CanvasRepository
	bus    ports.EventBus
	cfg    *config.DomainConfig
	logger *zap.Logger

	ready chan struct{}
}

func newSession(canvasID valueobjects.CanvasID, repo ports.CanvasRepository, bus ports.EventBus, cfg *config.DomainConfig, logger *zap.Logger) *Session {
	s := &Session{
		canvasID:  canvasID,
		state:     StateLoading,
		history:   history.New(cfg.MaxHistoryDepth),
		placement: NewPlacement(cfg),
		repo:      repo,
		bus:       bus,
		cfg:       cfg,
		logger:    logger.With(zap.String("canvas_id", canvasID.String())),
		ready:     make(chan struct{}),
	}
	s.sync = NewSynchronizer(repo, s.document, s.committed, cfg, s.logger)
	s.culler = NewCuller(s.nodeBounds, nil, cfg)
	return s
}

// attach completes the load: Loading -> Ready. Seeds the history with
// the freshly loaded state and runs an initial culling pass.
func (s *Session) attach(canvas *aggregates.Canvas, version int64) {
	s.mu.Lock()
	s.canvas = canvas
	s.version = version
	s.state = StateReady
	s.history.Seed(canvas.Snapshot())
	s.mu.Unlock()

	s.culler.Recompute()
	close(s.ready)
}

// fail marks the load as failed. The session stays unusable; mutations
// keep being rejected so nothing overwrites the unknown stored state.
func (s *Session) fail(err error) {
	s.mu.Lock()
	s.loadErr = err
	s.state = StateClosed
	s.mu.Unlock()
	close(s.ready)
}

// CanvasID returns the canvas this session owns
func (s *Session) CanvasID() valueobjects.CanvasID {
	return s.canvasID
}

// State returns the lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Version returns the last stored version seen by this session
func (s *Session) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Document returns the current persisted form of the canvas
func (s *Session) Document() (ports.CanvasDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return ports.CanvasDocument{}, s.notReadyError()
	}
	return ports.DocumentFromCanvas(s.canvas, s.version), nil
}

// Unsaved reports whether edits are known to be missing from storage
func (s *Session) Unsaved() bool {
	return s.sync.Unsaved()
}

// Culler exposes the session's visibility overlay
func (s *Session) Culler() *Culler {
	return s.culler
}

// Mutate applies fn to the aggregate under the session lock. On success
// the new state is recorded in history, domain events are published,
// and a debounced save is scheduled. This is the only path by which
// history entries are created.
func (s *Session) Mutate(fn func(*aggregates.Canvas) error) error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return s.notReadyError()
	}

	if err := fn(s.canvas); err != nil {
		s.mu.Unlock()
		return err
	}

	// A mutation that changed nothing (removing an absent node, say)
	// emits no events; recording it would push a duplicate snapshot and
	// make the next undo appear to do nothing.
	pending := s.canvas.GetUncommittedEvents()
	if len(pending) == 0 {
		s.mu.Unlock()
		return nil
	}

	if err := s.history.Record(s.canvas.Snapshot()); err != nil {
		s.logger.Warn("history record failed", zap.Error(err))
	}
	s.canvas.MarkEventsAsCommitted()
	s.mu.Unlock()

	s.publish(pending)
	s.sync.Schedule()
	s.culler.Recompute()
	return nil
}

// MutateTransient applies fn without recording a history entry. Used
// for selection changes, which are saved but are not undoable edits.
func (s *Session) MutateTransient(fn func(*aggregates.Canvas) error) error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return s.notReadyError()
	}
	if err := fn(s.canvas); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.sync.Schedule()
	return nil
}

// Read runs fn against the aggregate under the session lock. fn must
// not retain references past its return.
func (s *Session) Read(fn func(*aggregates.Canvas) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return s.notReadyError()
	}
	return fn(s.canvas)
}

// Undo steps the canvas back one history entry. A no-op at the bottom
// of the stack. Restoring emits no domain events and records no history
// entry, so replayed state can never re-enter the stack.
func (s *Session) Undo() bool {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return false
	}
	snapshot, ok := s.history.Undo()
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.canvas.Restore(snapshot)
	s.mu.Unlock()

	s.sync.Schedule()
	s.culler.Recompute()
	return true
}

// Redo steps the canvas forward one history entry. A no-op at the top.
func (s *Session) Redo() bool {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return false
	}
	snapshot, ok := s.history.Redo()
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.canvas.Restore(snapshot)
	s.mu.Unlock()

	s.sync.Schedule()
	s.culler.Recompute()
	return true
}

// CanUndo reports whether an undo step is available
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

// CanRedo reports whether a redo step is available
func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// SetViewport records the latest pan/zoom and screen size. The viewport
// is not persisted and not undoable; it only drives culling.
func (s *Session) SetViewport(viewport valueobjects.Viewport, screenW, screenH float64) error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return s.notReadyError()
	}
	s.canvas.SetViewport(viewport)
	s.mu.Unlock()

	s.culler.SetViewport(viewport, screenW, screenH)
	return nil
}

// CreateNode builds a node from the given parts, inserts it, and makes
// it the sole selection.
func (s *Session) CreateNode(nodeType entities.NodeType, position valueobjects.Position, size valueobjects.Size, data entities.NodeData, parentID valueobjects.NodeID) (*entities.Node, error) {
	node, err := entities.NewNode(nodeType, position, data)
	if err != nil {
		return nil, err
	}
	if !size.IsZero() {
		node.Resize(size)
	}
	if !parentID.IsZero() {
		node.SetParent(parentID)
	}

	err = s.Mutate(func(canvas *aggregates.Canvas) error {
		if !parentID.IsZero() && !canvas.HasNode(parentID) {
			return pkgerrors.NewNotFoundError("parent node")
		}
		if err := canvas.AddNode(node); err != nil {
			return err
		}
		canvas.SetSelection(map[valueobjects.NodeID]struct{}{node.ID(): {}})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// CreateSibling places an AI-derived node beside its parent, inheriting
// the parent's color, and connects parent to child with an edge.
func (s *Session) CreateSibling(parentID valueobjects.NodeID, nodeType entities.NodeType, data entities.NodeData) (*entities.Node, error) {
	var node *entities.Node
	err := s.Mutate(func(canvas *aggregates.Canvas) error {
		parent, err := canvas.GetNode(parentID)
		if err != nil {
			return err
		}
		if data.Color == "" {
			data.Color = parent.Data().Color
		}

		node, err = entities.NewNode(nodeType, s.placement.SiblingOf(parent), data)
		if err != nil {
			return err
		}
		if err := canvas.AddNode(node); err != nil {
			return err
		}
		if _, err := canvas.AddEdge(parentID, node.ID(), entities.EdgeTypeDefault, false); err != nil {
			return err
		}
		canvas.SetSelection(map[valueobjects.NodeID]struct{}{node.ID(): {}})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// PasteNodes clones the given nodes with fresh ids at a fixed offset
// and selects exactly the pasted set.
func (s *Session) PasteNodes(ids []valueobjects.NodeID) ([]*entities.Node, error) {
	dx, dy := s.placement.PasteOffset()

	var pasted []*entities.Node
	err := s.Mutate(func(canvas *aggregates.Canvas) error {
		clones := make([]*entities.Node, 0, len(ids))
		for _, id := range ids {
			original, err := canvas.GetNode(id)
			if err != nil {
				return err
			}
			clones = append(clones, original.CloneWithNewID(dx, dy))
		}

		selection := make(map[valueobjects.NodeID]struct{}, len(clones))
		for _, clone := range clones {
			if err := canvas.AddNode(clone); err != nil {
				return err
			}
			selection[clone.ID()] = struct{}{}
		}
		canvas.SetSelection(selection)
		pasted = clones
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pasted, nil
}

// PlaceDrop resolves a drop position against group-node containment
func (s *Session) PlaceDrop(drop valueobjects.Position) (valueobjects.Position, valueobjects.NodeID, error) {
	var position valueobjects.Position
	var parentID valueobjects.NodeID
	err := s.Read(func(canvas *aggregates.Canvas) error {
		position, parentID = s.placement.AtDrop(drop, canvas.Nodes())
		return nil
	})
	return position, parentID, err
}

// PlacePaneClick converts a screen click to canvas space using the
// session's current viewport.
func (s *Session) PlacePaneClick(screenX, screenY float64) (valueobjects.Position, error) {
	var position valueobjects.Position
	err := s.Read(func(canvas *aggregates.Canvas) error {
		position = s.placement.AtPaneClick(canvas.Viewport(), screenX, screenY)
		return nil
	})
	return position, err
}

// Close flushes pending edits and releases the session's resources
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	wasReady := s.state == StateReady
	s.state = StateClosed
	s.mu.Unlock()

	s.culler.Close()

	var err error
	if wasReady {
		err = s.sync.Flush(ctx)
	}
	s.sync.Close()
	s.history.Reset()
	return err
}

// document captures the current persisted form under the session lock.
// Called by the synchronizer when its debounce timer fires.
func (s *Session) document() (ports.CanvasDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canvas == nil {
		return ports.CanvasDocument{}, false
	}
	return ports.DocumentFromCanvas(s.canvas, s.version), true
}

// committed records the stored version after a successful save and
// notifies subscribers that the canvas was persisted.
func (s *Session) committed(version int64) {
	s.mu.Lock()
	s.version = version
	var saved []events.DomainEvent
	if s.canvas != nil {
		saved = append(saved, events.NewCanvasSaved(
			s.canvasID,
			s.canvas.NodeCount(),
			s.canvas.EdgeCount(),
			version,
			time.Now(),
		))
	}
	s.mu.Unlock()

	s.publish(saved)
}

func (s *Session) nodeBounds() []NodeBounds {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canvas == nil {
		return nil
	}
	return BoundsOf(s.canvas.Nodes())
}

func (s *Session) publish(pending []events.DomainEvent) {
	if s.bus == nil {
		return
	}
	for _, event := range pending {
		if err := s.bus.Publish(context.Background(), event); err != nil {
			s.logger.Warn("event publish failed",
				zap.String("event_type", event.GetEventType()),
				zap.Error(err),
			)
		}
	}
}

func (s *Session) notReadyError() error {
	switch s.state {
	case StateLoading:
		return pkgerrors.NewUnavailableError("canvas is still loading")
	default:
		if s.loadErr != nil {
			return s.loadErr
		}
		return pkgerrors.NewUnavailableError("canvas session is closed")
	}
}
