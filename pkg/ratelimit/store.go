package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Entry is the state of one fixed window for one key.
type Entry struct {
	Count   int
	ResetAt time.Time

	// Blocked is set once Count exceeds the ceiling and stays set until the
	// window resets.
	Blocked bool
}

// Stats is read-only introspection for monitoring.
type Stats struct {
	TrackedKeys int `json:"tracked_keys"`
	BlockedIPs  int `json:"blocked_ips"`
	LimitedKeys int `json:"limited_keys"`
}

// Store holds rate limit state. Hit must be atomic per key: concurrent hits
// on one key never lose an increment. A process-local store makes limits
// per instance; deployments with more than one instance need a shared store
// (see the redis driver) or limits can be bypassed by spreading requests.
type Store interface {
	// Hit records one request against key and returns the updated entry.
	// A missing or elapsed window starts fresh at Count 1.
	Hit(ctx context.Context, key string, window time.Duration, max int, now time.Time) (Entry, error)

	// Block denies key outright until the given time.
	Block(ctx context.Context, key string, until time.Time) error

	// BlockedUntil reports an active explicit block for key.
	BlockedUntil(ctx context.Context, key string, now time.Time) (time.Time, bool, error)

	// Reset forgets all state for key.
	Reset(ctx context.Context, key string) error

	// Sweep removes elapsed windows and expired blocks, returning how many
	// records were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)

	Stats(ctx context.Context, now time.Time) (Stats, error)
}

// MemoryStore is a Store backed by maps under a single mutex.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	blocks  map[string]time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		blocks:  make(map[string]time.Time),
	}
}

func (m *MemoryStore) Hit(_ context.Context, key string, window time.Duration, max int, now time.Time) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || !now.Before(e.ResetAt) {
		e = Entry{Count: 1, ResetAt: now.Add(window)}
		m.entries[key] = e
		return e, nil
	}

	if e.Blocked {
		return e, nil
	}

	e.Count++
	if e.Count > max {
		e.Blocked = true
	}
	m.entries[key] = e
	return e, nil
}

func (m *MemoryStore) Block(_ context.Context, key string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks[key] = until
	return nil
}

func (m *MemoryStore) BlockedUntil(_ context.Context, key string, now time.Time) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.blocks[key]
	if !ok {
		return time.Time{}, false, nil
	}
	if !now.Before(until) {
		delete(m.blocks, key)
		return time.Time{}, false, nil
	}
	return until, true, nil
}

func (m *MemoryStore) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	delete(m.blocks, key)
	return nil
}

func (m *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, e := range m.entries {
		if !now.Before(e.ResetAt) {
			delete(m.entries, key)
			removed++
		}
	}
	for key, until := range m.blocks {
		if !now.Before(until) {
			delete(m.blocks, key)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) Stats(_ context.Context, now time.Time) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{TrackedKeys: len(m.entries)}
	for _, e := range m.entries {
		if e.Blocked && now.Before(e.ResetAt) {
			s.LimitedKeys++
		}
	}
	for _, until := range m.blocks {
		if now.Before(until) {
			s.BlockedIPs++
		}
	}
	return s, nil
}
