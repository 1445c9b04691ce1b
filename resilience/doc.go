// Package resilience bounds calls to slow external services.
//
// The only pattern used by the insights pipeline is Timeout: a text-generation
// call that does not finish in time is abandoned and reported as ErrTimeout,
// which callers treat like any other generation failure.
//
//	t := resilience.NewTimeout(resilience.TimeoutConfig{Timeout: time.Minute})
//	err := t.Execute(ctx, func(ctx context.Context) error {
//	    return callModel(ctx)
//	})
package resilience
