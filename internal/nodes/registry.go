package nodes

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps capability type names to their implementations. Types are
// registered explicitly at startup so the available set stays auditable.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Capability
}

func NewRegistry() *Registry {
	return &Registry{types: make(map[string]Capability)}
}

// Register adds a capability. Registering the same type name twice is a
// programming error and panics at startup.
func (r *Registry) Register(c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[c.Type()]; exists {
		panic(fmt.Sprintf("nodes: duplicate capability type %q", c.Type()))
	}
	r.types[c.Type()] = c
}

// Get returns a capability by type name.
func (r *Registry) Get(typeName string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.types[typeName]
	return c, ok
}

// List returns all registered capabilities sorted by type name.
func (r *Registry) List() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Capability, 0, len(r.types))
	for _, c := range r.types {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type() < result[j].Type() })
	return result
}

// TypeNames returns the sorted registered type names.
func (r *Registry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
