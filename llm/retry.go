package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/arvolve/arx-go-sdk/core"
)

// RetryPolicy is the single retry configuration shared by every
// external-call boundary: completion, embedding, and tool execution. Only
// failures classified as recoverable (rate limit, timeout) are retried.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	Logger *zap.Logger
}

// DefaultRetryPolicy suits most API call sites.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// Do runs fn, retrying recoverable failures with exponential backoff until
// the retry budget or the context runs out. Non-recoverable failures return
// immediately.
func (p *RetryPolicy) Do(ctx context.Context, fn func() error) error {
	if p == nil {
		return fn()
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = p.Multiplier

	attempt := 0
	op := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !core.Recoverable(err) {
			return backoff.Permanent(err)
		}
		attempt++
		logger.Debug("retrying recoverable failure",
			zap.Int("attempt", attempt),
			zap.Error(err))
		return err
	}

	return backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(b, uint64(p.MaxRetries)), ctx))
}
