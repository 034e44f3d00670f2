package adapter

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Factory constructs an unconnected adapter. A nil logger means discard.
type Factory func(*slog.Logger) Adapter

// registry maps lower-case adapter types to factories.
type registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

var adapters = &registry{factories: make(map[string]Factory)}

func (r *registry) register(name string, f Factory) {
	if f == nil {
		panic("adapter: Register factory is nil for " + name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = f
}

func (r *registry) lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[strings.ToLower(name)]
	return f, ok
}

func (r *registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register makes an adapter type available to NewAdapter. Adapter packages
// call it from init; registering a type again replaces its factory.
func Register(name string, factory Factory) {
	adapters.register(name, factory)
}

// Get returns the factory registered for an adapter type (case-insensitive).
func Get(name string) (Factory, bool) {
	return adapters.lookup(name)
}

// NewAdapter creates an unconnected adapter for cfg.Type.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}
	factory, ok := adapters.lookup(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	return factory(logger), nil
}

// ListAdapters returns the registered adapter types, sorted.
func ListAdapters() []string {
	return adapters.names()
}

// IsRegistered reports whether an adapter type is registered.
func IsRegistered(name string) bool {
	_, ok := adapters.lookup(name)
	return ok
}

// UnknownAdapterError is returned for a target type no adapter registered.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q (available: %s)\nHint: check target.type in autodash.yaml",
		e.Type, strings.Join(e.Available, ", "))
}
