package lockout

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is an in-process Repository for tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []FailedLogin
	nextID  int64
}

// NewMemoryRepository constructs an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

var _ Repository = (*MemoryRepository)(nil)

// Insert appends one failure record.
func (m *MemoryRepository) Insert(ctx context.Context, record FailedLogin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	record.ID = m.nextID
	m.records = append(m.records, record)
	return nil
}

// CountSince counts failures for an identifier at or after since.
func (m *MemoryRepository) CountSince(ctx context.Context, identifier string, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, r := range m.records {
		if r.Identifier == identifier && !r.OccurredAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// DeleteForIdentifier clears all failures for an identifier.
func (m *MemoryRepository) DeleteForIdentifier(ctx context.Context, identifier string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0]
	var deleted int64
	for _, r := range m.records {
		if r.Identifier == identifier {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return deleted, nil
}

// DeleteOlderThan prunes records strictly older than cutoff.
func (m *MemoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0]
	var deleted int64
	for _, r := range m.records {
		if r.OccurredAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return deleted, nil
}
