package secret

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ProviderFactory creates a Provider from configuration.
type ProviderFactory func(cfg map[string]any) (Provider, error)

// Registry manages provider factories.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]ProviderFactory
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]ProviderFactory)}
}

// NewDefaultRegistry returns a registry with the "session" and "env"
// providers. Every chain built from it shares session.
func NewDefaultRegistry(session *SessionProvider) *Registry {
	if session == nil {
		session = NewSessionProvider()
	}
	r := NewRegistry()
	_ = r.Register("session", func(map[string]any) (Provider, error) {
		return session, nil
	})
	_ = r.Register("env", func(cfg map[string]any) (Provider, error) {
		if files, ok := cfg["dotenv"].([]string); ok && len(files) > 0 {
			if err := LoadDotEnv(files...); err != nil {
				return nil, err
			}
		}
		return NewEnvProvider(), nil
	})
	return r
}

// Register adds a provider factory.
func (r *Registry) Register(name string, factory ProviderFactory) error {
	if strings.TrimSpace(name) == "" || factory == nil {
		return errors.New("invalid provider registration")
	}
	name = strings.TrimSpace(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("secret provider %q already registered", name)
	}
	r.providers[name] = factory
	return nil
}

// Create instantiates a provider by name.
func (r *Registry) Create(name string, cfg map[string]any) (Provider, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("provider name is required")
	}

	r.mu.RLock()
	factory, ok := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("secret provider %q is not registered", name)
	}

	return factory(cfg)
}

// Chain creates the named providers, in order, and chains them to resolve ref.
func (r *Registry) Chain(ref string, names []string, cfg map[string]any) (*Chain, error) {
	if len(names) == 0 {
		return nil, errors.New("at least one secret provider is required")
	}
	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		p, err := r.Create(name, cfg)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return NewChain(ref, providers...), nil
}

// List returns registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
