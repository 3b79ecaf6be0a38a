package serverfn

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry is the lookup surface the adapter dispatches through. The path is
// the request URL path with the adapter's prefix and the leading slash
// stripped.
type Registry interface {
	FnByPath(path string) (Fn, bool)
}

// RegistryFunc adapts a plain lookup function to the Registry interface.
type RegistryFunc func(path string) (Fn, bool)

// FnByPath implements Registry.
func (f RegistryFunc) FnByPath(path string) (Fn, bool) { return f(path) }

// MapRegistry is a concurrency-safe in-memory Registry. The framework's own
// registration machinery normally owns the real table; MapRegistry covers
// standalone applications and tests.
type MapRegistry struct {
	mu  sync.RWMutex
	fns map[string]Fn
}

// NewMapRegistry creates an empty MapRegistry.
func NewMapRegistry() *MapRegistry {
	return &MapRegistry{fns: make(map[string]Fn)}
}

// Register adds fn to the registry. Registering a path twice is an error.
func (r *MapRegistry) Register(fn Fn) error {
	path := strings.TrimPrefix(fn.Path(), "/")
	if path == "" {
		return fmt.Errorf("serverfn: cannot register empty path")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.fns[path]; exists {
		return fmt.Errorf("serverfn: path %q already registered", path)
	}
	r.fns[path] = fn
	return nil
}

// MustRegister is Register but panics on error.
func (r *MapRegistry) MustRegister(fn Fn) {
	if err := r.Register(fn); err != nil {
		panic(err)
	}
}

// FnByPath implements Registry. A leading slash on the lookup path is
// tolerated.
func (r *MapRegistry) FnByPath(path string) (Fn, bool) {
	path = strings.TrimPrefix(path, "/")
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.fns[path]
	return fn, ok
}

// Paths returns the registered paths, sorted.
func (r *MapRegistry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.fns))
	for p := range r.fns {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
