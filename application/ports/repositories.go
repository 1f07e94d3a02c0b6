package ports

import (
	"context"

	"inkboard-backend/domain/core/valueobjects"
	"inkboard-backend/domain/events"
)

// CanvasRepository persists whole canvas documents. Saves are full-document
// overwrites guarded by an optimistic version counter.
type CanvasRepository interface {
	// Load retrieves a canvas document by id. Returns a not-found error
	// when no document exists.
	Load(ctx context.Context, id valueobjects.CanvasID) (CanvasDocument, error)

	// Save writes the document whole. doc.Version must equal the stored
	// version (or zero for a new document); on success the stored version
	// becomes doc.Version+1 and that value is returned. A mismatch returns
	// a conflict error and writes nothing.
	Save(ctx context.Context, doc CanvasDocument) (int64, error)

	// Delete removes a canvas document. Deleting an absent id is a no-op.
	Delete(ctx context.Context, ownerID string, id valueobjects.CanvasID) error

	// ListByOwner returns summaries of every canvas the owner has.
	ListByOwner(ctx context.Context, ownerID string) ([]CanvasSummary, error)
}

// EventBus publishes domain events to interested consumers
type EventBus interface {
	Publish(ctx context.Context, event events.DomainEvent) error
}

// MultiBus fans each event out to several buses. Publishing stops at the
// first error so callers see delivery failures.
type MultiBus []EventBus

func (m MultiBus) Publish(ctx context.Context, event events.DomainEvent) error {
	for _, bus := range m {
		if err := bus.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
