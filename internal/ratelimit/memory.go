package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type entry struct {
	count   int
	resetAt time.Time
}

// MemoryLedger is the in-process fixed-window ledger. State is local to
// one instance; horizontally scaled deployments need the Redis ledger
// for a correct shared budget. Expiry is checked on read, so stale
// entries waste memory but never affect correctness; a probabilistic
// sweep bounds the waste without paying a scan on every request.
type MemoryLedger struct {
	mu          sync.Mutex
	entries     map[string]*entry
	now         func() time.Time
	sweepChance float64
}

type MemoryOption func(*MemoryLedger)

// WithClock injects the time source, letting tests drive windows
// without real delays.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryLedger) { m.now = now }
}

// WithSweepChance sets the per-request probability of sweeping expired
// entries. 0 disables the sweep, 1 sweeps on every call.
func WithSweepChance(chance float64) MemoryOption {
	return func(m *MemoryLedger) { m.sweepChance = chance }
}

func NewMemoryLedger(opts ...MemoryOption) *MemoryLedger {
	m := &MemoryLedger{
		entries:     make(map[string]*entry),
		now:         time.Now,
		sweepChance: 0.01,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryLedger) Take(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.sweepChance > 0 && rand.Float64() < m.sweepChance {
		m.sweep(now)
	}

	e, ok := m.entries[key]
	if !ok || expired(e, now) {
		m.entries[key] = &entry{count: 1, resetAt: now.Add(window)}
		return true, nil
	}
	if e.count >= limit {
		// Denied requests do not consume window budget
		return false, nil
	}
	e.count++
	return true, nil
}

func (m *MemoryLedger) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len reports the current entry count, including expired stragglers.
func (m *MemoryLedger) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryLedger) sweep(now time.Time) {
	for key, e := range m.entries {
		if expired(e, now) {
			delete(m.entries, key)
		}
	}
}

// expired treats a request arriving at exactly resetAt as belonging to
// the next window; the boundary favors the client.
func expired(e *entry, now time.Time) bool {
	return !now.Before(e.resetAt)
}
