// Package observe provides tracing, metrics and structured logging for the
// insights pipeline.
//
// It is a pure instrumentation library: consumers build an Observer once at
// start-up and wrap pipeline runs with a Middleware. Everything degrades to
// no-ops when a subsystem is disabled.
package observe
