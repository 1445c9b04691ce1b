// Package health reports whether the insights service can do its job.
//
// Two checks matter: the cache store must be reachable, and a credential
// should be configured. A missing credential is Degraded rather than
// Unhealthy because cached insights can still be served.
//
//	agg := health.NewAggregator()
//	agg.Register(health.NewStoreChecker(store))
//	agg.Register(health.NewCredentialChecker(chain))
//	health.RegisterHandlers(router, agg)
package health
