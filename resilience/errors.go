package resilience

import "errors"

// ErrTimeout is returned when an operation does not finish within its limit.
var ErrTimeout = errors.New("resilience: operation timed out")
