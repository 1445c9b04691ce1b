package health

import (
	"context"
	"errors"

	"github.com/jonwraymond/postinsights/cache"
	"github.com/jonwraymond/postinsights/secret"
)

// Check names used by the service.
const (
	StoreCheckName      = "cache"
	CredentialCheckName = "credential"
)

// NewStoreChecker reports whether backend is reachable. Backends that
// implement cache.Pinger are pinged; others are probed by listing names.
func NewStoreChecker(backend cache.Backend) Checker {
	return NewCheckerFunc(StoreCheckName, func(ctx context.Context) Result {
		details := map[string]any{"location": backend.Location()}

		if p, ok := backend.(cache.Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				return Unhealthy("cache store unreachable", err).WithDetails(details)
			}
			return Healthy("cache store reachable").WithDetails(details)
		}

		names, err := backend.Names(ctx)
		if err != nil {
			return Unhealthy("cache store unreadable", err).WithDetails(details)
		}
		details["entries"] = len(names)
		return Healthy("cache store readable").WithDetails(details)
	})
}

// NewCredentialChecker reports whether chain resolves a credential.
// A missing credential is Degraded: cached insights are still served.
func NewCredentialChecker(chain *secret.Chain) Checker {
	return NewCheckerFunc(CredentialCheckName, func(ctx context.Context) Result {
		res, err := chain.Resolve(ctx)
		switch {
		case errors.Is(err, secret.ErrNoCredential):
			return Degraded("no API key configured; cached insights still served").
				WithDetails(map[string]any{"ref": chain.Ref()})
		case err != nil:
			return Unhealthy("credential lookup failed", err)
		}
		return Healthy("API key configured").
			WithDetails(map[string]any{"ref": chain.Ref(), "source": res.Source})
	})
}
