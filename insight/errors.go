package insight

import "errors"

// Sentinel errors for insight generation.
var (
	// ErrNoPosts is returned when generation is requested for an empty selection.
	// No text-generation call is made.
	ErrNoPosts = errors.New("insight: no posts to analyze")

	// ErrGenerationFailed wraps every failure of the underlying text-generation
	// call: transport errors, remote errors, timeouts and blank responses.
	ErrGenerationFailed = errors.New("insight: generation failed")

	// ErrInvalidPost indicates a post record that cannot enter the core.
	ErrInvalidPost = errors.New("insight: invalid post")
)
