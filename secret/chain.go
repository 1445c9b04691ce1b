package secret

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Resolution is a resolved credential and the provider that supplied it.
type Resolution struct {
	Value  string
	Source string
}

// Chain tries providers in order.
type Chain struct {
	ref       string
	providers []Provider
}

// NewChain creates a chain resolving ref (DefaultRef when empty).
func NewChain(ref string, providers ...Provider) *Chain {
	if ref == "" {
		ref = DefaultRef
	}
	c := &Chain{ref: ref}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

// Ref returns the credential name the chain resolves.
func (c *Chain) Ref() string {
	return c.ref
}

// Resolve returns the first non-blank value. It returns ErrNoCredential
// when every provider comes up empty.
func (c *Chain) Resolve(ctx context.Context) (Resolution, error) {
	for _, p := range c.providers {
		v, err := p.Resolve(ctx, c.ref)
		if errors.Is(err, ErrNotSet) {
			continue
		}
		if err != nil {
			return Resolution{}, fmt.Errorf("secret: provider %q: %w", p.Name(), err)
		}
		if v = strings.TrimSpace(v); v != "" {
			return Resolution{Value: v, Source: p.Name()}, nil
		}
	}
	return Resolution{}, ErrNoCredential
}

// Provider returns the provider registered under name.
func (c *Chain) Provider(name string) (Provider, bool) {
	for _, p := range c.providers {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// Session returns the chain's session provider, if any.
func (c *Chain) Session() (*SessionProvider, bool) {
	p, ok := c.Provider("session")
	if !ok {
		return nil, false
	}
	s, ok := p.(*SessionProvider)
	return s, ok
}

// Names lists provider names in resolution order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Close closes every provider.
func (c *Chain) Close() error {
	var errs []error
	for _, p := range c.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
