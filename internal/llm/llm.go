package llm

import (
	"context"
	"fmt"
	"time"
)

// Provider names accepted by New.
const (
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
)

// Client is the generation service boundary: one prompt in, one whole
// response string out. No streaming; callers that want progressive display
// layer it on outside the core.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Options configures a generation client.
type Options struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// New builds a generation client for the configured provider.
func New(opts Options) (Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	switch opts.Provider {
	case ProviderAnthropic:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider selected but no API key set")
		}
		return newAnthropicClient(opts), nil
	case ProviderOllama:
		return newOllamaClient(opts), nil
	case ProviderOpenAI:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("openai provider selected but no API key set")
		}
		return newOpenAIClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", opts.Provider)
	}
}

// RetryableError indicates a transient generation failure (rate limit or
// server-side error) that can be retried with backoff.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// WithStats wraps a client so every Generate call records its latency.
func WithStats(c Client, stats *Stats) Client {
	return &instrumented{inner: c, stats: stats}
}

type instrumented struct {
	inner Client
	stats *Stats
}

func (c *instrumented) Model() string { return c.inner.Model() }

func (c *instrumented) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := c.inner.Generate(ctx, prompt)
	c.stats.Record(time.Since(start).Milliseconds())
	return out, err
}
