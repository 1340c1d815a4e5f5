package columntypes

import (
	"fmt"
	"sync"
)

// Provider defines the interface for column type providers.
// Providers can be registered to extend the platform with new column types.
type Provider interface {
	// Name returns the unique identifier for this column type
	Name() string

	// Label returns the human-readable label for this column type
	Label() string

	// Validate checks a raw value against the type
	// Returns nil if valid, error otherwise
	Validate(value interface{}) error

	// Normalize canonicalizes a value before storage (optional)
	Normalize(value interface{}) (interface{}, error)

	// Format formats a stored value for display (optional)
	Format(value interface{}) string
}

// BaseProvider provides default implementations for optional provider methods
type BaseProvider struct {
	name  string
	label string
}

// NewBaseProvider creates a new base provider
func NewBaseProvider(name, label string) BaseProvider {
	return BaseProvider{name: name, label: label}
}

func (p BaseProvider) Name() string  { return p.name }
func (p BaseProvider) Label() string { return p.label }

func (p BaseProvider) Validate(value interface{}) error {
	return nil // Default: no validation
}

func (p BaseProvider) Normalize(value interface{}) (interface{}, error) {
	return value, nil // Default: no transformation
}

func (p BaseProvider) Format(value interface{}) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%v", value)
}

// Registry manages registered column type providers
type Registry struct {
	providers map[string]Provider
	mu        sync.RWMutex
}

var (
	registry     *Registry
	registryOnce sync.Once
)

// GetRegistry returns the singleton registry with the builtin types loaded
func GetRegistry() *Registry {
	registryOnce.Do(func() {
		registry = &Registry{
			providers: make(map[string]Provider),
		}
		registerBuiltins(registry)
	})
	return registry
}

// Register adds a provider to the registry
func (r *Registry) Register(provider Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := provider.Name()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("column type provider '%s' is already registered", name)
	}

	r.providers[name] = provider
	return nil
}

// Get retrieves a provider by type name
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.providers[name]
	return provider, ok
}

// List returns all registered type names
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// Unregister removes a provider from the registry
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		delete(r.providers, name)
		return true
	}
	return false
}

// Package-level convenience functions

// RegisterProvider registers a column type provider
func RegisterProvider(provider Provider) error {
	return GetRegistry().Register(provider)
}

// GetProvider retrieves a column type provider by name
func GetProvider(name string) (Provider, bool) {
	return GetRegistry().Get(name)
}

// ListProviders returns all registered type names
func ListProviders() []string {
	return GetRegistry().List()
}
