// Package retry implements the bounded-retry policy applied to outbound
// network calls. The policy is an explicit object (max attempts, backoff
// bounds, retryable-error predicate) invoked imperatively around each call.
package retry

import (
	"context"
	"time"

	"github.com/tracebloc/ingestor/pkg/ingest/core/config"
	"github.com/tracebloc/ingestor/pkg/ingest/support/logger"
)

// Policy defines retry behavior for a single outbound operation.
type Policy interface {
	// Do invokes fn up to the configured number of attempts, sleeping the
	// backoff interval between attempts. retryable decides whether a given
	// error warrants another attempt; a non-retryable error is returned
	// immediately. op names the operation for logging.
	Do(ctx context.Context, op string, retryable func(error) bool, fn func() error) error
	// MaxAttempts returns the maximum number of attempts, including the first.
	MaxAttempts() int
	// BackoffInterval returns the wait before the given attempt (1-based).
	BackoffInterval(attempt int) time.Duration
}

// exponentialPolicy is the default Policy implementation: exponential backoff
// starting at an initial interval, multiplied by a factor per attempt and
// capped at a maximum interval.
type exponentialPolicy struct {
	maxAttempts     int
	initialInterval time.Duration
	maxInterval     time.Duration
	factor          float64
}

// NewPolicy creates a Policy from the retry configuration.
func NewPolicy(cfg config.RetryConfig) Policy {
	p := &exponentialPolicy{
		maxAttempts:     cfg.MaxAttempts,
		initialInterval: time.Duration(cfg.InitialInterval) * time.Millisecond,
		maxInterval:     time.Duration(cfg.MaxInterval) * time.Millisecond,
		factor:          cfg.Factor,
	}
	if p.maxAttempts < 1 {
		p.maxAttempts = 1
	}
	if p.factor < 1 {
		p.factor = 2.0
	}
	if p.maxInterval <= 0 {
		p.maxInterval = 30 * time.Second
	}
	return p
}

func (p *exponentialPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// BackoffInterval returns initialInterval * factor^(attempt-1), capped at
// maxInterval.
func (p *exponentialPolicy) BackoffInterval(attempt int) time.Duration {
	interval := p.initialInterval
	for i := 1; i < attempt; i++ {
		interval = time.Duration(float64(interval) * p.factor)
		if interval >= p.maxInterval {
			return p.maxInterval
		}
	}
	if interval > p.maxInterval {
		return p.maxInterval
	}
	return interval
}

func (p *exponentialPolicy) Do(ctx context.Context, op string, retryable func(error) bool, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if retryable == nil || !retryable(lastErr) {
			return lastErr
		}
		if attempt == p.maxAttempts {
			break
		}

		wait := p.BackoffInterval(attempt)
		logger.Warnf("Retrying %s (attempt %d/%d) after %v: %v", op, attempt, p.maxAttempts, wait, lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return lastErr
}

// Verify interfaces
var _ Policy = (*exponentialPolicy)(nil)
