package agent

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/convergio/convergio-go/core"
)

// Registry holds the current agent metadata set. An external definition
// loader owns parsing and hot-reload; it pushes refreshed metadata here via
// SetAll and the orchestration core simply reads the latest snapshot. Safe
// for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]core.AgentMetadata
}

// NewRegistry creates a registry seeded with the given agents. Invalid
// metadata (missing key or name) is rejected.
func NewRegistry(agents ...core.AgentMetadata) (*Registry, error) {
	r := &Registry{agents: make(map[string]core.AgentMetadata)}
	if err := r.SetAll(agents); err != nil {
		return nil, err
	}
	return r, nil
}

// SetAll atomically replaces the full metadata set. This is the hot-reload
// entry point: the loader re-reads its definitions and swaps them in one
// call, so readers never observe a half-updated set.
func (r *Registry) SetAll(agents []core.AgentMetadata) error {
	next := make(map[string]core.AgentMetadata, len(agents))
	for _, a := range agents {
		if err := a.Validate(); err != nil {
			return err
		}
		if _, dup := next[a.Key]; dup {
			return fmt.Errorf("agent registry: duplicate key %q", a.Key)
		}
		next[a.Key] = a
	}

	r.mu.Lock()
	r.agents = next
	r.mu.Unlock()
	return nil
}

// Upsert adds or replaces a single agent.
func (r *Registry) Upsert(a core.AgentMetadata) error {
	if err := a.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.agents[a.Key] = a
	r.mu.Unlock()
	return nil
}

// Remove deletes an agent by key. Unknown keys are a no-op.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	delete(r.agents, key)
	r.mu.Unlock()
}

// Get returns the agent with the given key.
func (r *Registry) Get(key string) (core.AgentMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[key]
	return a, ok
}

// GetByName returns the agent whose display name matches, case-insensitively.
// Used to resolve explicit user hints, which arrive as names not keys.
func (r *Registry) GetByName(name string) (core.AgentMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.agents {
		if strings.EqualFold(a.Name, name) || strings.EqualFold(a.Key, name) {
			return a, true
		}
	}
	return core.AgentMetadata{}, false
}

// List returns all agents sorted by key, so iteration order is stable
// regardless of map ordering.
func (r *Registry) List() []core.AgentMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.AgentMetadata, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Keys returns the sorted agent keys.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.agents))
	for k := range r.agents {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
