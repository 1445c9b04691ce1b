package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/postinsights/observe"
	"github.com/jonwraymond/postinsights/resilience"
)

// DefaultTimeout bounds a single text-generation call.
const DefaultTimeout = 60 * time.Second

// TextGenerator produces text for a prompt.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Generate must honor cancellation/deadlines.
// - Errors: any failure is returned as an error; an empty string is a valid
// (but unusable) response.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// TextGeneratorFunc adapts a function to TextGenerator.
type TextGeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f TextGeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// GeneratorConfig configures a Generator.
type GeneratorConfig struct {
	// Timeout bounds each call to the TextGenerator.
	// Default: 60 seconds
	Timeout time.Duration
}

// Generator builds Insights from a selection of top posts.
type Generator struct {
	client  TextGenerator
	timeout *resilience.Timeout
	logger  observe.Logger
}

// NewGenerator creates a Generator around client. A nil logger discards output.
func NewGenerator(client TextGenerator, config GeneratorConfig, logger observe.Logger) *Generator {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Generator{
		client:  client,
		timeout: resilience.NewTimeout(resilience.TimeoutConfig{Timeout: config.Timeout}),
		logger:  logger,
	}
}

// Generate analyzes posts, which the caller has already selected and ranked,
// and returns the resulting Insight.
//
// An empty selection returns ErrNoPosts without calling the client. Every
// client failure, timeout or blank response returns an error wrapping
// ErrGenerationFailed.
func (g *Generator) Generate(ctx context.Context, posts []Post, category string) (*Insight, error) {
	if len(posts) == 0 {
		return nil, ErrNoPosts
	}
	if g.client == nil {
		return nil, fmt.Errorf("%w: no text generator configured", ErrGenerationFailed)
	}

	logger := g.logger.With(observe.Op{Name: "generate", Category: category})
	prompt := BuildPrompt(posts, category)

	var text string
	err := g.timeout.Execute(ctx, func(ctx context.Context) error {
		out, err := g.client.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		logger.Error(ctx, "text generation failed",
			observe.Field{Key: "error", Value: err.Error()},
			observe.Field{Key: "post_count", Value: len(posts)},
		)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	if strings.TrimSpace(text) == "" {
		logger.Warn(ctx, "text generation returned no text",
			observe.Field{Key: "post_count", Value: len(posts)},
		)
		return nil, fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	snapshots := make([]PostSnapshot, len(posts))
	for i, p := range posts {
		snapshots[i] = p.Snapshot()
	}

	logger.Debug(ctx, "insight generated",
		observe.Field{Key: "post_count", Value: len(posts)},
		observe.Field{Key: "summary_bytes", Value: len(text)},
	)

	return &Insight{
		Category:      category,
		PostCount:     len(posts),
		Summary:       text,
		PostsAnalyzed: snapshots,
	}, nil
}
