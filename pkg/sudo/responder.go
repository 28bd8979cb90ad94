// Package sudo turns a repeated command into an escalating canned reply.
package sudo

import (
	"log"
	"sync"
	"time"

	"sudobot/pkg/escalation"
	"sudobot/pkg/picker"
	"sudobot/pkg/responses"
)

// DefaultCeiling is the tier at which the repeat count is reset when
// ResetAtCeiling is enabled.
const DefaultCeiling = 4

// LastResort is served when no pool has anything to say.
const LastResort = "..."

// Config controls escalation policy.
type Config struct {
	Window         time.Duration
	Ceiling        int
	ResetAtCeiling bool
}

// Request is one inbound command.
type Request struct {
	ActorID   string
	ContextID string
	Command   string
	Username  string
}

// Reply is the chosen response.
type Reply struct {
	Text  string
	Tier  int
	Index int
	Key   escalation.Key
	// Fallback is set when the reply bypassed escalation.
	Fallback bool
}

// Responder resolves, picks and records replies for repeated commands.
type Responder struct {
	mu      sync.Mutex
	memory  *escalation.Memory
	picker  *picker.Picker
	catalog *responses.Catalog
	cfg     Config
}

// NewResponder wires the escalation memory, picker and catalog together.
func NewResponder(memory *escalation.Memory, p *picker.Picker, catalog *responses.Catalog, cfg Config) *Responder {
	if cfg.Window <= 0 {
		cfg.Window = escalation.DefaultWindow
	}
	if cfg.Ceiling < 2 {
		cfg.Ceiling = DefaultCeiling
	}
	return &Responder{
		memory:  memory,
		picker:  p,
		catalog: catalog,
		cfg:     cfg,
	}
}

// Memory returns the underlying escalation memory.
func (r *Responder) Memory() *escalation.Memory {
	return r.memory
}

// Respond picks a reply for req and records it. It never fails: malformed
// requests get a tier-1 generic reply and a panicking dependency is logged and
// replaced by the first generic entry.
func (r *Responder) Respond(req Request) (reply Reply) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[sudo] Recovered while responding to %q: %v", req.Command, rec)
			reply = r.safeDefault(req)
		}
	}()

	key := escalation.NewKey(req.ActorID, req.ContextID, req.Command)
	if !key.Valid() {
		return r.generic(req, key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.memory.Clock().Now()
	res := r.memory.Resolve(key, now, r.cfg.Window)

	pool := r.catalog.Pool(key.Command, res.Tier)
	idx := r.picker.Pick(len(pool), res.PreviousIndex)

	text := LastResort
	if idx != picker.NoIndex {
		text = responses.Render(pool[idx], vars(req))
	}

	r.memory.Record(key, now, res.Tier, idx, r.cfg.Window)
	if r.cfg.ResetAtCeiling && res.Tier >= r.cfg.Ceiling {
		r.memory.Reset(key, now, r.cfg.Window)
	}

	return Reply{Text: text, Tier: res.Tier, Index: idx, Key: key}
}

// generic serves tier 1 from the default pool without touching memory.
func (r *Responder) generic(req Request, key escalation.Key) Reply {
	pool := r.catalog.Default.First
	idx := r.picker.Pick(len(pool), picker.NoIndex)
	text := LastResort
	if idx != picker.NoIndex {
		text = responses.Render(pool[idx], vars(req))
	}
	return Reply{Text: text, Tier: 1, Index: idx, Key: key, Fallback: true}
}

func (r *Responder) safeDefault(req Request) Reply {
	text := LastResort
	if r.catalog != nil && len(r.catalog.Default.First) > 0 {
		text = responses.Render(r.catalog.Default.First[0], vars(req))
	}
	return Reply{Text: text, Tier: 1, Index: 0, Fallback: true}
}

func vars(req Request) responses.Vars {
	return responses.Vars{User: req.Username, Command: req.Command}
}
