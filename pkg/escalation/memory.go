// Package escalation tracks how often an identity repeats the same command
// within a decay window.
//
// Each key holds one entry with a single pending eviction timer. Recording a
// key always stops the previous timer and arms a fresh one tagged with a new
// generation, and the eviction callback only deletes an entry whose generation
// still matches, so a timer that was already firing while the key was refreshed
// cannot remove the refreshed entry.
package escalation

import (
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// DefaultWindow is the decay window after which a key starts over at tier 1.
	DefaultWindow = 30 * time.Second
	// DefaultGrace is added to the window before an idle entry is evicted.
	DefaultGrace = time.Second

	// NoIndex marks the absence of a previously served index.
	NoIndex = -1
	// DMContext is the context id used for direct messages.
	DMContext = "DM"
)

// Key identifies an actor repeating a command in one conversation context.
type Key struct {
	ActorID   string
	ContextID string
	Command   string
}

// NewKey builds a Key, normalizing the command text and defaulting an empty
// context to DMContext.
func NewKey(actorID, contextID, command string) Key {
	if contextID == "" {
		contextID = DMContext
	}
	return Key{
		ActorID:   actorID,
		ContextID: contextID,
		Command:   NormalizeCommand(command),
	}
}

// NormalizeCommand lowercases command text and collapses runs of whitespace.
func NormalizeCommand(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// Valid reports whether the key can be used for lookups.
func (k Key) Valid() bool {
	return k.ActorID != "" && k.Command != ""
}

func (k Key) String() string {
	return k.ActorID + "::" + k.ContextID + "::" + k.Command
}

// Resolution is the outcome of resolving a key.
type Resolution struct {
	Tier          int
	PreviousIndex int
}

// HasPrevious reports whether a previous index was remembered.
func (r Resolution) HasPrevious() bool {
	return r.PreviousIndex != NoIndex
}

// Entry is a snapshot of the stored state for a key.
type Entry struct {
	LastSeenAt time.Time
	Count      int
	LastIndex  int
}

type entry struct {
	Entry
	gen   uint64
	timer clockwork.Timer
}

// Memory is the keyed escalation store. It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	grace   time.Duration
	entries map[Key]*entry
	gen     uint64
}

// NewMemory creates a Memory whose eviction timers run on clock. A nil clock
// uses the real clock; a negative grace uses DefaultGrace.
func NewMemory(clock clockwork.Clock, grace time.Duration) *Memory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if grace < 0 {
		grace = DefaultGrace
	}
	return &Memory{
		clock:   clock,
		grace:   grace,
		entries: make(map[Key]*entry),
	}
}

// Clock returns the clock used for timers.
func (m *Memory) Clock() clockwork.Clock {
	return m.clock
}

// Resolve returns the tier and previous index for key at now. A missing entry
// or one last seen more than window ago resolves to tier 1 with no previous index.
func (m *Memory) Resolve(key Key, now time.Time, window time.Duration) Resolution {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || now.Sub(e.LastSeenAt) > window {
		return Resolution{Tier: 1, PreviousIndex: NoIndex}
	}
	return Resolution{Tier: e.Count + 1, PreviousIndex: e.LastIndex}
}

// Record stores the outcome of serving key at tier with usedIndex and rearms
// its eviction for window plus grace.
func (m *Memory) Record(key Key, now time.Time, tier, usedIndex int, window time.Duration) {
	if tier < 1 {
		tier = 1
	}
	m.store(key, Entry{LastSeenAt: now, Count: tier, LastIndex: usedIndex}, window)
}

// Reset keeps key alive but drops its count back to 1 and forgets the last
// index, so further repeats start escalating again from tier 2.
func (m *Memory) Reset(key Key, now time.Time, window time.Duration) {
	m.store(key, Entry{LastSeenAt: now, Count: 1, LastIndex: NoIndex}, window)
}

// Forget removes key and cancels its eviction.
func (m *Memory) Forget(key Key) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok {
		e.timer.Stop()
		delete(m.entries, key)
	}
}

// Lookup returns the stored entry for key.
func (m *Memory) Lookup(key Key) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return Entry{}, false
	}
	return e.Entry, true
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close cancels every pending eviction and drops all entries.
func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, e := range m.entries {
		e.timer.Stop()
		delete(m.entries, key)
	}
}

func (m *Memory) store(key Key, state Entry, window time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.entries[key]; ok {
		prev.timer.Stop()
	}

	m.gen++
	gen := m.gen
	m.entries[key] = &entry{
		Entry: state,
		gen:   gen,
		timer: m.clock.AfterFunc(window+m.grace, func() { m.evict(key, gen) }),
	}
}

func (m *Memory) evict(key Key, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok && e.gen == gen {
		delete(m.entries, key)
	}
}
