// Package commands defines prefix text commands and loads them from disk.
package commands

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrDuplicateName is returned when a name or alias is already registered.
var ErrDuplicateName = errors.New("command name already registered")

// Command is a text command invoked as "<prefix> <name> [args...]".
type Command struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Usage       string   `yaml:"usage"`
	Aliases     []string `yaml:"aliases"`
	Responses   []string `yaml:"responses"`
	// Handler names a builtin executor. Commands without one reply with a
	// random line from Responses.
	Handler string `yaml:"handler"`
}

// Names returns the lowercased name followed by the lowercased aliases.
func (c *Command) Names() []string {
	names := []string{strings.ToLower(strings.TrimSpace(c.Name))}
	for _, a := range c.Aliases {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			names = append(names, a)
		}
	}
	return names
}

// Key is the lowercased primary name.
func (c *Command) Key() string {
	return strings.ToLower(strings.TrimSpace(c.Name))
}

// Registry resolves command names and aliases. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Command
	all    []*Command
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Command)}
}

// Register adds c under its name and aliases. Nothing is registered if any of
// them is taken.
func (r *Registry) Register(c *Command) error {
	if c == nil || c.Key() == "" {
		return errors.New("command has no name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names := c.Names()
	for _, n := range names {
		if _, ok := r.byName[n]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateName, n)
		}
	}
	for _, n := range names {
		r.byName[n] = c
	}
	r.all = append(r.all, c)
	return nil
}

// Lookup finds a command by name or alias, case-insensitively.
func (r *Registry) Lookup(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// List returns registered commands sorted by name.
func (r *Registry) List() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Command, len(r.all))
	copy(out, r.all)
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Len returns the number of distinct commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.all)
}
