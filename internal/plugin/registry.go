package plugin

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps config source names to compiled-in plugins. It plays
// the role a dynamic module loader plays elsewhere; plugins register
// themselves from init, the same way database/sql drivers do.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// Register adds a plugin under a source name. Registering an invalid
// plugin or reusing a name is a programming error.
func (r *Registry) Register(source string, p Plugin) error {
	if source == "" {
		return fmt.Errorf("plugin source name is empty")
	}
	if err := Validate(p); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.plugins[source]; dup {
		return fmt.Errorf("plugin source %q registered twice", source)
	}
	r.plugins[source] = p
	return nil
}

// Lookup resolves a source name from config.
func (r *Registry) Lookup(source string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[source]
	if !ok {
		return nil, fmt.Errorf("no plugin registered for source %q (known: %v)", source, r.sourcesLocked())
	}
	return p, nil
}

// Sources lists registered source names sorted.
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sourcesLocked()
}

func (r *Registry) sourcesLocked() []string {
	out := make([]string, 0, len(r.plugins))
	for s := range r.plugins {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

var defaultRegistry = NewRegistry()

// Register adds a plugin to the default registry, panicking on misuse
// so broken registrations surface at startup.
func Register(source string, p Plugin) {
	if err := defaultRegistry.Register(source, p); err != nil {
		panic(err)
	}
}

// Default returns the process-wide registry used by the CLI.
func Default() *Registry {
	return defaultRegistry
}
