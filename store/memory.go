package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/chatflow/core"
)

// Memory is an in-memory ThreadStore. Records live for the process lifetime.
// Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	records map[string]core.ThreadRecord

	now func() time.Time
}

var _ core.ThreadStore = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]core.ThreadRecord),
		now:     time.Now,
	}
}

// Get implements core.ThreadStore.
func (m *Memory) Get(ctx context.Context, threadID string) (*core.ThreadRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[threadID]
	if !ok {
		return nil, core.ErrThreadNotFound
	}

	cp := rec
	cp.State = append([]byte(nil), rec.State...)

	return &cp, nil
}

// Upsert implements core.ThreadStore. The stored creation timestamp survives
// replacement.
func (m *Memory) Upsert(ctx context.Context, rec core.ThreadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()

	cp := rec
	cp.State = append([]byte(nil), rec.State...)
	cp.UpdatedAt = now

	if existing, ok := m.records[rec.ThreadID]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else {
		cp.CreatedAt = now
	}

	m.records[rec.ThreadID] = cp

	return nil
}

// List implements core.ThreadStore. Records are ordered by thread id.
func (m *Memory) List(ctx context.Context) ([]core.ThreadRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]core.ThreadRecord, 0, len(m.records))
	for _, rec := range m.records {
		cp := rec
		cp.State = append([]byte(nil), rec.State...)
		records = append(records, cp)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ThreadID < records[j].ThreadID })

	return records, nil
}

// Ping implements core.ThreadStore.
func (m *Memory) Ping(ctx context.Context) error { return nil }

// Close implements core.ThreadStore.
func (m *Memory) Close() error { return nil }
