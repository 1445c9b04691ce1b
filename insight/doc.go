// Package insight turns the top posts of one category into an AI-written
// summary.
//
// The package owns the typed records that cross the boundary into the core
// (Post, PostSnapshot, Insight), prompt assembly, and a Generator that wraps a
// single call to a pluggable TextGenerator. Generator failures are returned
// as ErrGenerationFailed so callers can degrade instead of crashing.
package insight
