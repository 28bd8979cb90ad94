package cache

import (
	"context"
	"sync"
)

// MemoryCounter is the Counter used when no Redis is configured. Counts are
// lost on restart.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]int64)}
}

func (m *MemoryCounter) Incr(_ context.Context, command string) error {
	m.mu.Lock()
	m.counts[command]++
	m.mu.Unlock()
	return nil
}

func (m *MemoryCounter) Top(_ context.Context, n int) ([]Usage, error) {
	m.mu.Lock()
	usage := make([]Usage, 0, len(m.counts))
	for cmd, count := range m.counts {
		usage = append(usage, Usage{Command: cmd, Count: count})
	}
	m.mu.Unlock()
	return topN(usage, n), nil
}

func (m *MemoryCounter) Close() error { return nil }

var (
	_ Counter = (*Cache)(nil)
	_ Counter = (*MemoryCounter)(nil)
)
