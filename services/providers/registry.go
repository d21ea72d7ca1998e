package providers

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrPlatformNotFound is returned when no builder is registered for a platform
	ErrPlatformNotFound = errors.New("platform not found")

	// ErrPlatformAlreadyRegistered is returned when trying to register a duplicate platform
	ErrPlatformAlreadyRegistered = errors.New("platform already registered")
)

// Platform bundles the cart and product providers of one storefront integration
type Platform struct {
	Name     string
	Carts    CartProvider
	Products ProductProvider
}

// Builder creates the providers for a platform from configuration
type Builder func(config ProviderConfig, logger *zap.Logger) (*Platform, error)

// Registry maps platform names to provider builders
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]Builder),
	}
}

// RegisterBuilder registers a builder under a platform name
func (r *Registry) RegisterBuilder(name string, builder Builder) error {
	if builder == nil {
		return errors.New("builder cannot be nil")
	}

	name = normalize(name)
	if name == "" {
		return errors.New("platform name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.builders[name]; exists {
		return ErrPlatformAlreadyRegistered
	}

	r.builders[name] = builder
	return nil
}

// Build constructs the providers for the named platform
func (r *Registry) Build(name string, config ProviderConfig, logger *zap.Logger) (*Platform, error) {
	r.mu.RLock()
	builder, exists := r.builders[normalize(name)]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrPlatformNotFound, name)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	platform, err := builder(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build platform %s: %w", name, err)
	}
	return platform, nil
}

// ListPlatforms returns all registered platform names, sorted
func (r *Registry) ListPlatforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Count returns the number of registered platforms
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.builders)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
