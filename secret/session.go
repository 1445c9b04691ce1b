package secret

import (
	"context"
	"strings"
	"sync"
)

// SessionProvider holds a credential set at runtime. It answers every ref
// with the same value.
type SessionProvider struct {
	mu    sync.RWMutex
	value string
}

// NewSessionProvider creates an empty session provider.
func NewSessionProvider() *SessionProvider {
	return &SessionProvider{}
}

func (p *SessionProvider) Name() string { return "session" }

// Set stores value after trimming whitespace. A blank value clears the session.
func (p *SessionProvider) Set(value string) {
	p.mu.Lock()
	p.value = strings.TrimSpace(value)
	p.mu.Unlock()
}

// Clear forgets the session value.
func (p *SessionProvider) Clear() {
	p.Set("")
}

// IsSet reports whether a session value is present.
func (p *SessionProvider) IsSet() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value != ""
}

func (p *SessionProvider) Resolve(_ context.Context, _ string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.value == "" {
		return "", ErrNotSet
	}
	return p.value, nil
}

func (p *SessionProvider) Close() error {
	p.Clear()
	return nil
}
