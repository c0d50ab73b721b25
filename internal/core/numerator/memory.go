package numerator

import (
	"context"
	"sync"
	"time"
)

// MemoryGenerator is an in-process Generator used by tests and the
// in-memory store. Counters are kept per Config.Key.
type MemoryGenerator struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemoryGenerator creates an empty generator.
func NewMemoryGenerator() *MemoryGenerator {
	return &MemoryGenerator{counters: make(map[string]int64)}
}

// GetNextNumber implements Generator.
func (m *MemoryGenerator) GetNextNumber(_ context.Context, cfg Config, period time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := cfg.Key(period)
	m.counters[key]++
	return cfg.Format(period, m.counters[key]), nil
}

// Snapshot copies the counters (for transactional rollback).
func (m *MemoryGenerator) Snapshot() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		out[k] = v
	}
	return out
}

// Restore replaces the counters with a snapshot.
func (m *MemoryGenerator) Restore(s map[string]int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = s
}

// Ensure compile-time interface compliance.
var _ Generator = (*MemoryGenerator)(nil)
