package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/postinsights/cache"
	"github.com/jonwraymond/postinsights/insight"
	"github.com/jonwraymond/postinsights/observe"
	"github.com/jonwraymond/postinsights/secret"
)

// Status classifies the outcome of one request.
type Status string

const (
	StatusCached             Status = "cached"
	StatusGenerated          Status = "generated"
	StatusInsufficientData   Status = "insufficient_data"
	StatusGenerationFailed   Status = "generation_failed"
	StatusConfigurationError Status = "configuration_error"
)

// Request asks for the insight of one category.
type Request struct {
	Category string
	Authors  []string
	Filters  map[string]any
	// TopPosts is the caller's ranked selection. It is analyzed as given.
	TopPosts []insight.Post
}

// Outcome is the answer to one Request.
type Outcome struct {
	Category    string
	Status      Status
	Insight     *insight.Insight
	FromCache   bool
	PostCount   int
	Persisted   bool
	GeneratedAt time.Time
	TrendLabel  string
	// Err carries the cause of a failure status, or of a failed save.
	Err error
}

// OK reports whether the outcome carries an insight.
func (o Outcome) OK() bool {
	return o.Insight != nil && (o.Status == StatusCached || o.Status == StatusGenerated)
}

// GeneratorFactory returns the text generator to use for a miss. It must
// return an error wrapping secret.ErrNoCredential when no credential is set.
type GeneratorFactory func(ctx context.Context) (insight.TextGenerator, error)

// Config configures a Pipeline.
type Config struct {
	// Concurrency bounds parallel requests in RunBatch.
	// Default: 1 (sequential)
	Concurrency int
	// GenerateTimeout bounds each text-generation call.
	// Default: insight.DefaultTimeout
	GenerateTimeout time.Duration
}

// Pipeline runs requests against a cache store and a generator factory.
//
// Contract:
// - Concurrency: safe for concurrent use; concurrent misses for the same key
// share one generation.
// - Errors: failures are reported in Outcome, never returned or panicked.
type Pipeline struct {
	store      *cache.Store
	generators GeneratorFactory
	cfg        Config
	mw         *observe.Middleware
	logger     observe.Logger
	flight     singleflight.Group
}

// New creates a Pipeline. A nil middleware records nothing.
func New(store *cache.Store, generators GeneratorFactory, cfg Config, mw *observe.Middleware) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = insight.DefaultTimeout
	}
	if mw == nil {
		mw = observe.NopMiddleware()
	}
	return &Pipeline{
		store:      store,
		generators: generators,
		cfg:        cfg,
		mw:         mw,
		logger:     mw.Logger(),
	}
}

// Store returns the cache store the pipeline reads and writes.
func (p *Pipeline) Store() *cache.Store {
	return p.store
}

// Run answers one request.
func (p *Pipeline) Run(ctx context.Context, req Request) Outcome {
	var out Outcome
	run := p.mw.Wrap(func(ctx context.Context, op observe.Op) error {
		out = p.run(ctx, req, op)
		switch out.Status {
		case StatusGenerationFailed, StatusConfigurationError:
			return out.Err
		}
		return nil
	})
	_ = run(ctx, observe.Op{Name: "run", Category: req.Category})
	return out
}

func (p *Pipeline) run(ctx context.Context, req Request, op observe.Op) Outcome {
	out := Outcome{Category: req.Category, PostCount: len(req.TopPosts)}

	lookup := p.store.Lookup(ctx, req.Category, req.Authors, req.Filters)
	op.Key = lookup.Key
	p.mw.RecordCacheLookup(ctx, op, lookup.Status.String())

	if lookup.Found() {
		entry := lookup.Entry
		ins := entry.Insights
		out.Status = StatusCached
		out.Insight = &ins
		out.FromCache = true
		out.Persisted = true
		out.PostCount = ins.PostCount
		out.GeneratedAt = entry.GeneratedAt.Time
		out.TrendLabel, _ = ins.TrendLabel()
		return out
	}

	if len(req.TopPosts) == 0 {
		out.Status = StatusInsufficientData
		out.Err = insight.ErrNoPosts
		return out
	}

	if lookup.Key == "" {
		return p.generate(ctx, req, op, out)
	}
	v, _, _ := p.flight.Do(lookup.Key, func() (any, error) {
		return p.generate(ctx, req, op, out), nil
	})
	return v.(Outcome)
}

func (p *Pipeline) generate(ctx context.Context, req Request, op observe.Op, out Outcome) Outcome {
	logger := p.logger.With(op)

	if p.generators == nil {
		out.Status = StatusConfigurationError
		out.Err = fmt.Errorf("%w: no generator configured", secret.ErrNoCredential)
		return out
	}
	client, err := p.generators(ctx)
	if err != nil {
		if errors.Is(err, secret.ErrNoCredential) {
			out.Status = StatusConfigurationError
		} else {
			out.Status = StatusGenerationFailed
			err = fmt.Errorf("%w: %w", insight.ErrGenerationFailed, err)
		}
		out.Err = err
		return out
	}

	gen := insight.NewGenerator(client, insight.GeneratorConfig{Timeout: p.cfg.GenerateTimeout}, p.logger)
	ins, err := gen.Generate(ctx, req.TopPosts, req.Category)
	if err != nil {
		out.Status = StatusGenerationFailed
		out.Err = err
		return out
	}

	out.Status = StatusGenerated
	out.Insight = ins
	out.PostCount = ins.PostCount
	out.TrendLabel, _ = ins.TrendLabel()
	out.GeneratedAt = time.Now().UTC().Truncate(time.Second)

	entry, err := p.store.Save(ctx, req.Category, req.Authors, ins, req.Filters)
	if err != nil {
		logger.Warn(ctx, "insight generated but not cached",
			observe.Field{Key: "error", Value: err.Error()})
		out.Err = err
		return out
	}
	out.Persisted = true
	out.GeneratedAt = entry.GeneratedAt.Time
	return out
}

// RunBatch answers requests independently and returns outcomes in request
// order. At most Config.Concurrency requests run at once.
func (p *Pipeline) RunBatch(ctx context.Context, reqs []Request) []Outcome {
	outcomes := make([]Outcome, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			outcomes[i] = p.Run(gctx, req)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
