package backend

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds a Driver. Drivers take their tuning (timeouts, app name)
// at construction, so the registry hands out constructors rather than
// shared instances.
type Factory func(opts DriverOptions) Driver

// DriverOptions carries the settings common to every driver.
type DriverOptions struct {
	ConnectTimeoutSeconds int
	AppName               string
}

// Registry manages the registration and retrieval of backend drivers.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates a new driver registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register registers a driver factory under name.
// A factory already registered under the same name is replaced.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[strings.ToLower(name)] = factory
}

// Get retrieves a registered factory by name.
// Returns ErrBackendNotFound if nothing is registered under name.
func (r *Registry) Get(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[strings.ToLower(name)]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrBackendNotFound, name)
	}

	return factory, nil
}

// Names returns the registered backend names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var globalRegistry = NewRegistry()

// GlobalRegistry returns the process-wide registry that driver packages
// register themselves with from init().
func GlobalRegistry() *Registry {
	return globalRegistry
}

// Register registers a factory with the global registry.
func Register(name string, factory Factory) {
	globalRegistry.Register(name, factory)
}
