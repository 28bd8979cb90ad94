// Package picker selects response indexes while trying not to repeat the
// previously served one.
package picker

import (
	"math/rand"
	"sync"
	"time"
)

const (
	// NoIndex is returned for an empty pool and doubles as "no previous index".
	NoIndex = -1

	// DefaultAttempts is the number of random draws made before falling back
	// to the deterministic next index.
	DefaultAttempts = 6
)

// Source is the random source used for draws. *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// Picker draws pool indexes. It is safe for concurrent use.
type Picker struct {
	mu       sync.Mutex
	src      Source
	attempts int
}

// New creates a Picker drawing from src. attempts below 1 uses DefaultAttempts.
func New(src Source, attempts int) *Picker {
	if attempts < 1 {
		attempts = DefaultAttempts
	}
	return &Picker{src: src, attempts: attempts}
}

// NewDefault creates a Picker backed by a time-seeded math/rand source.
func NewDefault(attempts int) *Picker {
	return New(rand.New(rand.NewSource(time.Now().UnixNano())), attempts)
}

// Attempts returns the draw budget.
func (p *Picker) Attempts() int {
	return p.attempts
}

// Pick returns an index in [0, poolSize) that differs from previous when it can.
//
// An empty pool yields NoIndex and a single-entry pool always yields 0. Otherwise
// up to Attempts() uniform draws are made and the first one that differs from
// previous is returned; if all of them collide the result is
// (previous+1) mod poolSize.
func (p *Picker) Pick(poolSize, previous int) int {
	if poolSize <= 0 {
		return NoIndex
	}
	if poolSize == 1 {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < p.attempts; i++ {
		idx := p.src.Intn(poolSize)
		if idx != previous {
			return idx
		}
	}

	next := (previous + 1) % poolSize
	if next < 0 {
		next = 0
	}
	return next
}
