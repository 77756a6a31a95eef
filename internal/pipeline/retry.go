package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/textqa/internal/embed"
	"github.com/dgallion1/textqa/internal/llm"
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var genErr *llm.RetryableError
	if errors.As(err, &genErr) {
		return true
	}
	var embErr *embed.ServiceError
	return errors.As(err, &embErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3

// WithRetry wraps a generation client so transient failures are retried
// with jittered backoff before surfacing to the caller.
func WithRetry(c llm.Client, log *slog.Logger) llm.Client {
	return &retrying{inner: c, log: log}
}

type retrying struct {
	inner llm.Client
	log   *slog.Logger
}

func (r *retrying) Model() string { return r.inner.Model() }

func (r *retrying) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	var lastErr error
	for attempt := range MaxRetries {
		out, lastErr = r.inner.Generate(ctx, prompt)
		if lastErr == nil || !IsRetryable(lastErr) {
			return out, lastErr
		}
		r.log.Warn("retryable generation error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return out, lastErr
}
