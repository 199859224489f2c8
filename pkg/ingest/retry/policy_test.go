package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracebloc/ingestor/pkg/ingest/core/config"
)

func newFastPolicy(maxAttempts int) Policy {
	return NewPolicy(config.RetryConfig{
		MaxAttempts:     maxAttempts,
		InitialInterval: 1,
		MaxInterval:     8,
		Factor:          2.0,
	})
}

func neverRetry(error) bool { return false }

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	p := newFastPolicy(3)
	calls := 0

	err := p.Do(context.Background(), "op", func(error) bool { return true }, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	p := newFastPolicy(5)
	calls := 0

	err := p.Do(context.Background(), "op", func(error) bool { return true }, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	p := newFastPolicy(3)
	calls := 0
	boom := errors.New("still broken")

	err := p.Do(context.Background(), "op", func(error) bool { return true }, func() error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDo_NonRetryableReturnsImmediately(t *testing.T) {
	p := newFastPolicy(5)
	calls := 0
	boom := errors.New("fatal")

	err := p.Do(context.Background(), "op", neverRetry, func() error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancellationStopsRetries(t *testing.T) {
	p := NewPolicy(config.RetryConfig{
		MaxAttempts:     10,
		InitialInterval: 60000,
		MaxInterval:     60000,
		Factor:          2.0,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := p.Do(ctx, "op", func(error) bool { return true }, func() error {
		return errors.New("transient")
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBackoffInterval_GrowsAndCaps(t *testing.T) {
	p := NewPolicy(config.RetryConfig{
		MaxAttempts:     6,
		InitialInterval: 100,
		MaxInterval:     450,
		Factor:          2.0,
	})

	assert.Equal(t, 100*time.Millisecond, p.BackoffInterval(1))
	assert.Equal(t, 200*time.Millisecond, p.BackoffInterval(2))
	assert.Equal(t, 400*time.Millisecond, p.BackoffInterval(3))
	// Capped from here on.
	assert.Equal(t, 450*time.Millisecond, p.BackoffInterval(4))
	assert.Equal(t, 450*time.Millisecond, p.BackoffInterval(5))
}

func TestNewPolicy_Defaults(t *testing.T) {
	p := NewPolicy(config.RetryConfig{})
	assert.Equal(t, 1, p.MaxAttempts())
}
