package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"inkboard-backend/application/ports"
	"inkboard-backend/domain/config"
	pkgerrors "inkboard-backend/pkg/errors"
)

// SaveState is the synchronizer's state machine state
type SaveState int

const (
	// SaveIdle means no save is pending or running
	SaveIdle SaveState = iota
	// SaveScheduled means a debounced save is armed
	SaveScheduled
	// SaveSaving means a save is in flight
	SaveSaving
)

// DocumentSource produces the current document to persist. The second
// return is false when the session cannot be saved yet (still loading)
// or can no longer be saved (closed).
type DocumentSource func() (ports.CanvasDocument, bool)

// Synchronizer keeps the stored copy of a canvas eventually consistent
// with the in-memory one. Every committed mutation schedules a save;
// mutations inside the debounce window re-arm the timer so only the
// latest state is written. Failed saves retry with exponential backoff
// up to a bounded attempt count, then flag the session unsaved.
type Synchronizer struct {
	repo    ports.CanvasRepository
	source  DocumentSource
	onSaved func(version int64)
	logger  *zap.Logger

	debounce    time.Duration
	maxAttempts int
	backoffBase time.Duration

	mu      sync.Mutex
	state   SaveState
	timer   *time.Timer
	pending bool
	unsaved bool
	closed  bool
	idle    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSynchronizer creates a synchronizer for one canvas session.
// onSaved is invoked with the new stored version after each successful
// write; it may be nil.
func NewSynchronizer(repo ports.CanvasRepository, source DocumentSource, onSaved func(int64), cfg *config.DomainConfig, logger *zap.Logger) *Synchronizer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Synchronizer{
		repo:        repo,
		source:      source,
		onSaved:     onSaved,
		logger:      logger,
		debounce:    cfg.SaveDebounce,
		maxAttempts: cfg.SaveMaxAttempts,
		backoffBase: cfg.SaveBackoffBase,
		state:       SaveIdle,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// State returns the current state machine state
func (s *Synchronizer) State() SaveState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Unsaved reports whether the last save cycle exhausted its retries and
// the stored copy is known to lag the in-memory one.
func (s *Synchronizer) Unsaved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsaved
}

// Schedule arms (or re-arms) the debounced save. A call while a save is
// already armed pushes the deadline out; a call while a save is in
// flight marks it pending so a fresh save runs once the current one
// finishes. Latest-wins: the document is captured when the timer fires,
// never when Schedule is called.
func (s *Synchronizer) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	switch s.state {
	case SaveIdle:
		s.state = SaveScheduled
		s.timer = time.AfterFunc(s.debounce, s.fire)
	case SaveScheduled:
		s.timer.Reset(s.debounce)
	case SaveSaving:
		s.pending = true
	}
}

// Flush runs any pending save immediately and waits for the in-flight
// cycle to finish. Used on session close so edits are not lost to a
// still-armed timer.
func (s *Synchronizer) Flush(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case SaveIdle:
		s.mu.Unlock()
		return nil
	case SaveScheduled:
		if s.timer.Stop() {
			s.mu.Unlock()
			s.fire()
			break
		}
		// Timer fired between the state check and Stop; fall through
		// to waiting on the in-flight save.
		fallthrough
	case SaveSaving:
		done := s.idleChan()
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsaved {
		return pkgerrors.NewUnavailableError("canvas has unsaved changes")
	}
	return nil
}

// Close cancels any armed timer and in-flight retries. No further saves
// run after Close returns.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.state = SaveIdle
	s.notifyIdle()
	s.mu.Unlock()
	s.cancel()
}

func (s *Synchronizer) fire() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state = SaveSaving
	s.mu.Unlock()

	doc, ok := s.source()
	if !ok {
		s.finish()
		return
	}

	err := s.saveWithRetry(doc)

	s.mu.Lock()
	s.unsaved = err != nil
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("canvas save failed after retries",
			zap.String("canvas_id", doc.ID),
			zap.Int("attempts", s.maxAttempts),
			zap.Error(err),
		)
	}
	s.finish()
}

func (s *Synchronizer) saveWithRetry(doc ports.CanvasDocument) error {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		version, err := s.repo.Save(s.ctx, doc)
		if err == nil {
			if s.onSaved != nil {
				s.onSaved(version)
			}
			return nil
		}
		lastErr = err

		// A version conflict means another writer got there first;
		// retrying the same stale document cannot succeed.
		if pkgerrors.IsConflict(err) {
			return err
		}

		if attempt < s.maxAttempts {
			backoff := s.backoffBase * time.Duration(1<<(attempt-1))
			s.logger.Warn("canvas save failed, retrying",
				zap.String("canvas_id", doc.ID),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			select {
			case <-time.After(backoff):
			case <-s.ctx.Done():
				return s.ctx.Err()
			}
		}
	}
	return lastErr
}

func (s *Synchronizer) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.notifyIdle()
		return
	}
	if s.pending {
		s.pending = false
		s.state = SaveScheduled
		s.timer = time.AfterFunc(s.debounce, s.fire)
		return
	}
	s.state = SaveIdle
	s.notifyIdle()
}

// idleChan returns a channel closed the next time the synchronizer
// returns to idle. Caller must hold s.mu.
func (s *Synchronizer) idleChan() chan struct{} {
	if s.idle == nil {
		s.idle = make(chan struct{})
	}
	return s.idle
}

func (s *Synchronizer) notifyIdle() {
	if s.idle != nil {
		close(s.idle)
		s.idle = nil
	}
}
