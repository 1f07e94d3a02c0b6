package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"inkboard-backend/application/ports"
	"inkboard-backend/domain/config"
	"inkboard-backend/domain/core/aggregates"
	"inkboard-backend/domain/core/valueobjects"
	"inkboard-backend/pkg/common"
	pkgerrors "inkboard-backend/pkg/errors"
)

// Manager tracks the open session for each canvas. A canvas has at most
// one live session; acquiring a canvas that is already open returns the
// existing session so all writers share one history and one save cycle.
type Manager struct {
	repo   ports.CanvasRepository
	bus    ports.EventBus
	cfg    *config.DomainConfig
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[valueobjects.CanvasID]*Session
}

// NewManager creates a session manager
func NewManager(repo ports.CanvasRepository, bus ports.EventBus, cfg *config.DomainConfig, logger *zap.Logger) *Manager {
	return &Manager{
		repo:     repo,
		bus:      bus,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[valueobjects.CanvasID]*Session),
	}
}

// Acquire returns the live session for a canvas, loading it first if
// needed. The session is inserted in Loading state before the fetch so
// concurrent acquirers wait on one load instead of racing. ownerID must
// match the stored document's owner.
func (m *Manager) Acquire(ctx context.Context, canvasID valueobjects.CanvasID, ownerID string) (*Session, error) {
	if ownerID != "" && common.IsReadOnly(ctx) {
		return nil, pkgerrors.NewForbiddenError("canvas is read-only")
	}

	m.mu.Lock()
	if s, ok := m.sessions[canvasID]; ok {
		m.mu.Unlock()
		return m.awaitReady(ctx, s, ownerID)
	}

	s := newSession(canvasID, m.repo, m.bus, m.cfg, m.logger)
	m.sessions[canvasID] = s
	m.mu.Unlock()

	go m.load(s)

	return m.awaitReady(ctx, s, ownerID)
}

// Release flushes and closes the session for a canvas. A no-op when the
// canvas is not open.
func (m *Manager) Release(ctx context.Context, canvasID valueobjects.CanvasID) error {
	m.mu.Lock()
	s, ok := m.sessions[canvasID]
	if ok {
		delete(m.sessions, canvasID)
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return s.Close(ctx)
}

// Evict drops a session without flushing. Used after the underlying
// document is deleted, when a flush would recreate it.
func (m *Manager) Evict(canvasID valueobjects.CanvasID) {
	m.mu.Lock()
	s, ok := m.sessions[canvasID]
	if ok {
		delete(m.sessions, canvasID)
	}
	m.mu.Unlock()

	if ok {
		s.culler.Close()
		s.sync.Close()
	}
}

// CloseAll releases every open session. Called on shutdown.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.sessions = make(map[valueobjects.CanvasID]*Session)
	m.mu.Unlock()

	var firstErr error
	for _, s := range open {
		if err := s.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// OpenCount returns the number of live sessions
func (m *Manager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) load(s *Session) {
	ctx := context.Background()

	doc, err := m.repo.Load(ctx, s.canvasID)
	if err != nil {
		m.logger.Error("canvas load failed",
			zap.String("canvas_id", s.canvasID.String()),
			zap.Error(err),
		)
		m.drop(s)
		s.fail(err)
		return
	}

	canvas, err := ports.CanvasFromDocument(doc, m.cfg)
	if err != nil {
		m.logger.Error("stored canvas document is invalid",
			zap.String("canvas_id", s.canvasID.String()),
			zap.Error(err),
		)
		m.drop(s)
		s.fail(pkgerrors.Wrap(err, "stored canvas document is invalid"))
		return
	}

	s.attach(canvas, doc.Version)
}

// drop removes a failed session so the next Acquire retries the load
func (m *Manager) drop(s *Session) {
	m.mu.Lock()
	if current, ok := m.sessions[s.canvasID]; ok && current == s {
		delete(m.sessions, s.canvasID)
	}
	m.mu.Unlock()
}

func (m *Manager) awaitReady(ctx context.Context, s *Session, ownerID string) (*Session, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.state == StateClosed {
		return nil, pkgerrors.NewUnavailableError("canvas session is closed")
	}
	if ownerID != "" && s.canvas.OwnerID() != ownerID {
		return nil, pkgerrors.NewForbiddenError("canvas belongs to another user")
	}
	return s, nil
}

// NewAggregate creates an empty canvas and persists it immediately,
// returning the stored document.
func (m *Manager) NewAggregate(ctx context.Context, ownerID, name string) (ports.CanvasDocument, error) {
	canvas, err := aggregates.NewCanvas(ownerID, name, m.cfg)
	if err != nil {
		return ports.CanvasDocument{}, err
	}

	doc := ports.DocumentFromCanvas(canvas, 0)
	version, err := m.repo.Save(ctx, doc)
	if err != nil {
		return ports.CanvasDocument{}, err
	}
	doc.Version = version
	return doc, nil
}
