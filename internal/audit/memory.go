package audit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-process Repository for tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []Entry
	nextID  int64
}

// NewMemoryRepository constructs an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

var _ Repository = (*MemoryRepository)(nil)

// Insert appends one entry.
func (m *MemoryRepository) Insert(ctx context.Context, entry Entry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	entry.ID = m.nextID
	m.entries = append(m.entries, entry)
	return entry.ID, nil
}

// List returns matching entries newest-first plus the total match count.
func (m *MemoryRepository) List(ctx context.Context, filters Filters) ([]Entry, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []Entry
	for _, e := range m.entries {
		if filters.ActorID != nil && (e.ActorID == nil || *e.ActorID != *filters.ActorID) {
			continue
		}
		if filters.Action != "" && e.Action != filters.Action {
			continue
		}
		if filters.Resource != "" && e.Resource != filters.Resource {
			continue
		}
		if filters.Outcome != "" && e.Outcome != filters.Outcome {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].OccurredAt.Equal(matched[j].OccurredAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})
	total := int64(len(matched))
	if filters.Offset > 0 {
		if filters.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filters.Offset:]
		}
	}
	if filters.Limit > 0 && filters.Limit < len(matched) {
		matched = matched[:filters.Limit]
	}
	return matched, total, nil
}

// DeleteOlderThan removes entries strictly older than cutoff.
func (m *MemoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	var deleted int64
	for _, e := range m.entries {
		if e.OccurredAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return deleted, nil
}

// Len reports the stored entry count, for tests.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
