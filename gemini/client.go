package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/jonwraymond/postinsights/insight"
	"github.com/jonwraymond/postinsights/secret"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// ErrNoCandidates is returned when a response carries no usable candidate.
var ErrNoCandidates = errors.New("gemini: response has no candidates")

// contentGenerator is the slice of *genai.Models the client uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config configures a Client.
type Config struct {
	// Model name.
	// Default: DefaultModel
	Model string
	// Temperature, when non-nil, overrides the model default.
	Temperature *float32
}

// Client generates text with a Gemini model.
type Client struct {
	models contentGenerator
	model  string
	config *genai.GenerateContentConfig
}

// NewClient creates a client for the Gemini API. A blank apiKey fails with
// secret.ErrNoCredential before any network I/O.
func NewClient(ctx context.Context, apiKey string, cfg Config) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, secret.ErrNoCredential
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return newClient(gc.Models, cfg), nil
}

func newClient(models contentGenerator, cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	var gcfg *genai.GenerateContentConfig
	if cfg.Temperature != nil {
		gcfg = &genai.GenerateContentConfig{Temperature: cfg.Temperature}
	}
	return &Client{models: models, model: cfg.Model, config: gcfg}
}

// Model returns the model name.
func (c *Client) Model() string {
	return c.model
}

// Generate sends prompt as a single user turn and returns the response text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), c.config)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	return responseText(resp)
}

// responseText joins the text parts of the first candidate, skipping
// thought parts.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", ErrNoCandidates
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return "", nil
	}

	var b strings.Builder
	for _, part := range content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String(), nil
}

var _ insight.TextGenerator = (*Client)(nil)

// Factory hands out a Client for the currently resolved credential. The
// credential is resolved on every call so a key set at runtime takes effect
// immediately. The client is reused while the key is unchanged.
type Factory struct {
	chain *secret.Chain
	cfg   Config

	mu     sync.Mutex
	key    string
	client *Client
}

// NewFactory creates a factory resolving credentials through chain.
func NewFactory(chain *secret.Chain, cfg Config) *Factory {
	return &Factory{chain: chain, cfg: cfg}
}

// TextGenerator returns a client for the resolved credential, or an error
// wrapping secret.ErrNoCredential when none is configured.
func (f *Factory) TextGenerator(ctx context.Context) (insight.TextGenerator, error) {
	res, err := f.chain.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client != nil && f.key == res.Value {
		return f.client, nil
	}
	client, err := NewClient(ctx, res.Value, f.cfg)
	if err != nil {
		return nil, err
	}
	f.key, f.client = res.Value, client
	return client, nil
}
