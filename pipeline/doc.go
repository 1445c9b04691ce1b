// Package pipeline answers insight requests: cache first, then generation,
// then persistence.
//
// For each request the pipeline consults the cache store. A hit is returned
// as is. A miss with no posts reports insufficient data. Otherwise a text
// generator is obtained (a missing credential is a configuration error),
// the insight is generated and saved. Failed generations are never cached,
// and a failed save does not discard the fresh insight.
package pipeline
