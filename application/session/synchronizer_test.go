package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"inkboard-backend/application/ports"
	"inkboard-backend/domain/config"
	"inkboard-backend/domain/core/valueobjects"
	pkgerrors "inkboard-backend/pkg/errors"
)

// recordingRepo counts Save calls and can be told to fail the next n of
// them. Only Save matters to the synchronizer.
type recordingRepo struct {
	mu       sync.Mutex
	saves    []ports.CanvasDocument
	failNext int
	failWith error
}

func (r *recordingRepo) Save(ctx context.Context, doc ports.CanvasDocument) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext > 0 {
		r.failNext--
		if r.failWith != nil {
			return 0, r.failWith
		}
		return 0, pkgerrors.NewInternalError("store unavailable")
	}
	r.saves = append(r.saves, doc)
	return doc.Version + 1, nil
}

func (r *recordingRepo) Load(ctx context.Context, id valueobjects.CanvasID) (ports.CanvasDocument, error) {
	return ports.CanvasDocument{}, pkgerrors.NewNotFoundError("canvas")
}

func (r *recordingRepo) Delete(ctx context.Context, ownerID string, id valueobjects.CanvasID) error {
	return nil
}

func (r *recordingRepo) ListByOwner(ctx context.Context, ownerID string) ([]ports.CanvasSummary, error) {
	return nil, nil
}

func (r *recordingRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

func (r *recordingRepo) lastSave() ports.CanvasDocument {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves[len(r.saves)-1]
}

func syncConfig() *config.DomainConfig {
	cfg := config.DefaultDomainConfig()
	cfg.SaveDebounce = 20 * time.Millisecond
	cfg.SaveBackoffBase = 2 * time.Millisecond
	return cfg
}

func newTestSynchronizer(t *testing.T, repo ports.CanvasRepository, source DocumentSource, onSaved func(int64)) *Synchronizer {
	t.Helper()
	s := NewSynchronizer(repo, source, onSaved, syncConfig(), zap.NewNop())
	t.Cleanup(s.Close)
	return s
}

func TestScheduleCoalescesWithinDebounceWindow(t *testing.T) {
	repo := &recordingRepo{}
	doc := ports.CanvasDocument{ID: "c1", Name: "a"}
	s := newTestSynchronizer(t, repo, func() (ports.CanvasDocument, bool) { return doc, true }, nil)

	for i := 0; i < 10; i++ {
		s.Schedule()
	}

	assert.Eventually(t, func() bool { return repo.saveCount() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, repo.saveCount(), "rapid mutations produce one write")
}

func TestSaveCapturesLatestDocument(t *testing.T) {
	repo := &recordingRepo{}

	var mu sync.Mutex
	doc := ports.CanvasDocument{ID: "c1", Name: "first"}
	source := func() (ports.CanvasDocument, bool) {
		mu.Lock()
		defer mu.Unlock()
		return doc, true
	}
	s := newTestSynchronizer(t, repo, source, nil)

	s.Schedule()
	mu.Lock()
	doc.Name = "second"
	mu.Unlock()
	s.Schedule()

	require.Eventually(t, func() bool { return repo.saveCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "second", repo.lastSave().Name, "the write carries the state at fire time")
}

func TestScheduleDuringSaveRunsFollowUp(t *testing.T) {
	repo := &recordingRepo{}

	inSave := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	source := func() (ports.CanvasDocument, bool) {
		once.Do(func() {
			close(inSave)
			<-release
		})
		return ports.CanvasDocument{ID: "c1"}, true
	}
	s := newTestSynchronizer(t, repo, source, nil)

	s.Schedule()
	<-inSave
	s.Schedule()
	close(release)

	assert.Eventually(t, func() bool { return repo.saveCount() == 2 }, time.Second, time.Millisecond,
		"an edit landing mid-save schedules a fresh save")
}

func TestSaveRetriesTransientFailures(t *testing.T) {
	repo := &recordingRepo{failNext: 2}
	s := newTestSynchronizer(t, repo, func() (ports.CanvasDocument, bool) {
		return ports.CanvasDocument{ID: "c1"}, true
	}, nil)

	s.Schedule()

	assert.Eventually(t, func() bool { return repo.saveCount() == 1 }, time.Second, time.Millisecond)
	assert.False(t, s.Unsaved())
}

func TestExhaustedRetriesFlagUnsaved(t *testing.T) {
	repo := &recordingRepo{failNext: 10}
	s := newTestSynchronizer(t, repo, func() (ports.CanvasDocument, bool) {
		return ports.CanvasDocument{ID: "c1"}, true
	}, nil)

	s.Schedule()

	assert.Eventually(t, s.Unsaved, time.Second, time.Millisecond)
	assert.Equal(t, 0, repo.saveCount())
}

func TestVersionConflictIsNotRetried(t *testing.T) {
	repo := &recordingRepo{failNext: 1, failWith: pkgerrors.NewConflictError("modified by another writer")}
	s := newTestSynchronizer(t, repo, func() (ports.CanvasDocument, bool) {
		return ports.CanvasDocument{ID: "c1"}, true
	}, nil)

	s.Schedule()

	assert.Eventually(t, s.Unsaved, time.Second, time.Millisecond)
	assert.Equal(t, 0, repo.saveCount(), "a stale write must not be replayed")
}

func TestOnSavedReceivesNewVersion(t *testing.T) {
	repo := &recordingRepo{}
	versions := make(chan int64, 1)
	s := newTestSynchronizer(t, repo, func() (ports.CanvasDocument, bool) {
		return ports.CanvasDocument{ID: "c1", Version: 4}, true
	}, func(v int64) { versions <- v })

	s.Schedule()

	select {
	case v := <-versions:
		assert.Equal(t, int64(5), v)
	case <-time.After(time.Second):
		t.Fatal("onSaved was not invoked")
	}
}

func TestFlushWritesArmedSaveImmediately(t *testing.T) {
	repo := &recordingRepo{}
	cfg := config.DefaultDomainConfig() // full 500ms debounce
	s := NewSynchronizer(repo, func() (ports.CanvasDocument, bool) {
		return ports.CanvasDocument{ID: "c1"}, true
	}, nil, cfg, zap.NewNop())
	defer s.Close()

	s.Schedule()
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, 1, repo.saveCount(), "flush must not wait out the debounce")
	assert.Equal(t, SaveIdle, s.State())
}

func TestFlushIdleIsNoOp(t *testing.T) {
	repo := &recordingRepo{}
	s := newTestSynchronizer(t, repo, func() (ports.CanvasDocument, bool) {
		return ports.CanvasDocument{ID: "c1"}, true
	}, nil)

	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, 0, repo.saveCount())
}

func TestFlushReportsUnsavedState(t *testing.T) {
	repo := &recordingRepo{failNext: 10}
	s := newTestSynchronizer(t, repo, func() (ports.CanvasDocument, bool) {
		return ports.CanvasDocument{ID: "c1"}, true
	}, nil)

	s.Schedule()
	err := s.Flush(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable))
}

func TestCloseStopsArmedSave(t *testing.T) {
	repo := &recordingRepo{}
	s := NewSynchronizer(repo, func() (ports.CanvasDocument, bool) {
		return ports.CanvasDocument{ID: "c1"}, true
	}, nil, syncConfig(), zap.NewNop())

	s.Schedule()
	s.Close()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, repo.saveCount())
	s.Schedule()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, repo.saveCount(), "schedule after close is ignored")
}
