package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"inkboard-backend/application/ports"
	"inkboard-backend/domain/core/valueobjects"
	pkgerrors "inkboard-backend/pkg/errors"
)

// CanvasRepository is an in-memory CanvasRepository for tests and local
// development. It applies the same version-conditional write semantics
// as the DynamoDB implementation.
type CanvasRepository struct {
	mu      sync.RWMutex
	docs    map[string]ports.CanvasDocument
	updated map[string]time.Time
}

// NewCanvasRepository creates an empty in-memory repository
func NewCanvasRepository() *CanvasRepository {
	return &CanvasRepository{
		docs:    make(map[string]ports.CanvasDocument),
		updated: make(map[string]time.Time),
	}
}

// Load retrieves a canvas document by id
func (r *CanvasRepository) Load(ctx context.Context, id valueobjects.CanvasID) (ports.CanvasDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id.String()]
	if !ok {
		return ports.CanvasDocument{}, pkgerrors.NewNotFoundError("canvas")
	}
	return cloneDocument(doc), nil
}

// Save overwrites the document whole under an optimistic version check
func (r *CanvasRepository) Save(ctx context.Context, doc ports.CanvasDocument) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.docs[doc.ID]
	if doc.Version == 0 && exists {
		return 0, pkgerrors.NewConflictError(fmt.Sprintf("canvas %s already exists", doc.ID))
	}
	if doc.Version != 0 && (!exists || stored.Version != doc.Version) {
		return 0, pkgerrors.NewConflictError(
			fmt.Sprintf("canvas %s was modified by another writer", doc.ID))
	}

	saved := cloneDocument(doc)
	saved.Version = doc.Version + 1
	r.docs[doc.ID] = saved
	r.updated[doc.ID] = time.Now()
	return saved.Version, nil
}

// Delete removes a canvas document. Deleting an absent id is a no-op.
func (r *CanvasRepository) Delete(ctx context.Context, ownerID string, id valueobjects.CanvasID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, id.String())
	delete(r.updated, id.String())
	return nil
}

// ListByOwner returns summaries for the owner's canvases, most recently
// updated first.
func (r *CanvasRepository) ListByOwner(ctx context.Context, ownerID string) ([]ports.CanvasSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var summaries []ports.CanvasSummary
	for id, doc := range r.docs {
		if doc.OwnerID != ownerID {
			continue
		}
		summaries = append(summaries, ports.CanvasSummary{
			ID:        id,
			Name:      doc.Name,
			NodeCount: len(doc.Nodes),
			EdgeCount: len(doc.Edges),
			UpdatedAt: r.updated[id].UTC().Format(time.RFC3339),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt > summaries[j].UpdatedAt
	})
	return summaries, nil
}

// SaveCount reports how many documents are stored. Test helper.
func (r *CanvasRepository) SaveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

func cloneDocument(doc ports.CanvasDocument) ports.CanvasDocument {
	out := doc
	out.Nodes = append([]ports.NodeRecord(nil), doc.Nodes...)
	out.Edges = append([]ports.EdgeRecord(nil), doc.Edges...)
	return out
}
