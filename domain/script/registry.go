package script

import (
	"sort"
	"sync"
)

// Registry holds scripts by name together with where each was loaded from.
// A later registration under the same name replaces the earlier one, so
// scripts on disk can override the embedded ones.
type Registry struct {
	mu      sync.RWMutex
	scripts map[string]*Script
	origins map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		scripts: make(map[string]*Script),
		origins: make(map[string]string),
	}
}

// Register adds script with no recorded origin.
func (r *Registry) Register(script *Script) {
	r.RegisterFrom(script, "")
}

// RegisterFrom adds script and remembers origin, usually the file it was read from.
func (r *Registry) RegisterFrom(script *Script, origin string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts[script.Name] = script
	r.origins[script.Name] = origin
}

// Get returns the script registered under name, or nil.
func (r *Registry) Get(name string) *Script {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scripts[name]
}

// Origin returns where the script registered under name was loaded from.
func (r *Registry) Origin(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.origins[name]
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.scripts))
	for name := range r.scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the registered scripts ordered by name.
func (r *Registry) All() []*Script {
	names := r.List()

	r.mu.RLock()
	defer r.mu.RUnlock()
	scripts := make([]*Script, 0, len(names))
	for _, name := range names {
		if sc, ok := r.scripts[name]; ok {
			scripts = append(scripts, sc)
		}
	}
	return scripts
}

// Count returns the number of registered scripts.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scripts)
}

// Exists reports whether a script is registered under name.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.scripts[name]
	return ok
}

// Remove drops the script registered under name and reports whether it existed.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scripts[name]; !ok {
		return false
	}
	delete(r.scripts, name)
	delete(r.origins, name)
	return true
}
