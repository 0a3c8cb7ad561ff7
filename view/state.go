package view

import (
	"sync"
	"time"
)

// SnapshotTracker keeps the latest simulator snapshot for the HTTP endpoints.
type SnapshotTracker struct {
	mu       sync.RWMutex
	snapshot *Snapshot
	updated  time.Time
	received int
}

// NewSnapshotTracker creates an empty tracker.
func NewSnapshotTracker() *SnapshotTracker {
	return &SnapshotTracker{}
}

// Update replaces the current snapshot. Snapshots are never mutated after
// this call, so readers may hold on to the returned pointer.
func (st *SnapshotTracker) Update(s *Snapshot) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.snapshot = s
	st.updated = time.Now()
	st.received++
}

// Latest returns the current snapshot, or nil if none has arrived.
func (st *SnapshotTracker) Latest() *Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.snapshot
}

// HasSnapshot returns true once a snapshot has been received.
func (st *SnapshotTracker) HasSnapshot() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.snapshot != nil
}

// Stats returns the receive count and the time of the last update.
func (st *SnapshotTracker) Stats() (int, time.Time) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.received, st.updated
}
