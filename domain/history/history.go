package history

import (
	"inkboard-backend/domain/core/aggregates"
	pkgerrors "inkboard-backend/pkg/errors"
)

// State is the history stack's lifecycle state
type State string

const (
	StateUninitialized State = "uninitialized"
	StateReady         State = "ready"
)

// History is a linear undo/redo stack of canvas snapshots with a cursor.
// entries[cursor] is always the currently-applied state. Undo and Redo only
// move the cursor and hand back a snapshot; they never record, so applying
// a returned snapshot can never re-enter the stack. Recording
// after an undo prunes the future branch (linear history, not a tree).
type History struct {
	state    State
	entries  []aggregates.Snapshot
	cursor   int
	maxDepth int
}

// New creates an uninitialized history stack. maxDepth bounds memory; zero
// or negative means unbounded.
func New(maxDepth int) *History {
	return &History{
		state:    StateUninitialized,
		maxDepth: maxDepth,
	}
}

// State returns the lifecycle state
func (h *History) State() State {
	return h.state
}

// Seed initializes the stack with the freshly loaded canvas state.
// Seeding again discards the previous stack: a canvas switch must never mix
// histories across canvases.
func (h *History) Seed(snapshot aggregates.Snapshot) {
	h.entries = []aggregates.Snapshot{snapshot}
	h.cursor = 0
	h.state = StateReady
}

// Reset returns the stack to uninitialized, dropping all entries
func (h *History) Reset() {
	h.entries = nil
	h.cursor = 0
	h.state = StateUninitialized
}

// Record appends a snapshot after a user-visible mutation. Entries beyond
// the cursor (the undone future) are pruned first.
func (h *History) Record(snapshot aggregates.Snapshot) error {
	if h.state != StateReady {
		return pkgerrors.NewInternalError("history not seeded")
	}

	h.entries = append(h.entries[:h.cursor+1], snapshot)

	if h.maxDepth > 0 && len(h.entries) > h.maxDepth {
		drop := len(h.entries) - h.maxDepth
		h.entries = append([]aggregates.Snapshot(nil), h.entries[drop:]...)
	}
	h.cursor = len(h.entries) - 1

	return nil
}

// CanUndo reports whether an undo would change state
func (h *History) CanUndo() bool {
	return h.state == StateReady && h.cursor > 0
}

// CanRedo reports whether a redo would change state
func (h *History) CanRedo() bool {
	return h.state == StateReady && h.cursor < len(h.entries)-1
}

// Undo steps the cursor back and returns the snapshot to apply.
// At the bottom of the stack it is a no-op: ok is false and the current
// snapshot is returned unchanged.
func (h *History) Undo() (aggregates.Snapshot, bool) {
	if !h.CanUndo() {
		return h.current(), false
	}
	h.cursor--
	return h.entries[h.cursor], true
}

// Redo steps the cursor forward and returns the snapshot to apply.
// At the top of the stack it is a no-op.
func (h *History) Redo() (aggregates.Snapshot, bool) {
	if !h.CanRedo() {
		return h.current(), false
	}
	h.cursor++
	return h.entries[h.cursor], true
}

// Depth returns the number of entries
func (h *History) Depth() int {
	return len(h.entries)
}

// Cursor returns the current cursor index
func (h *History) Cursor() int {
	return h.cursor
}

func (h *History) current() aggregates.Snapshot {
	if len(h.entries) == 0 {
		return aggregates.Snapshot{}
	}
	return h.entries[h.cursor]
}
