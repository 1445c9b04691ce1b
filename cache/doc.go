// Package cache stores generated insights as JSON documents keyed by a
// deterministic hash of the request (category, author set, extra filters).
//
// A Store sits on top of a Backend. The default backend is a local directory
// (".cache"); memory, Google Cloud Storage and Redis backends share the same
// document layout: one "<key>.json" document per request.
//
// Reads are best-effort: a missing, unreadable or unparseable document is a
// miss. Writes report failures as errors wrapping ErrPersist.
package cache
