// Package server exposes the insights pipeline over HTTP.
//
// Routes:
//
//	POST   /v1/insights             generate or load insights per category
//	GET    /v1/cache                cache diagnostics
//	DELETE /v1/cache                remove every cached insight
//	GET    /v1/settings/api-key     credential status
//	PUT    /v1/settings/api-key     set the session credential
//	DELETE /v1/settings/api-key     clear the session credential
//	GET    /healthz /readyz /health health probes
//	GET    /metrics                 Prometheus scrape, when enabled
package server
