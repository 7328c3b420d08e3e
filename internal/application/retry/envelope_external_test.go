package retry_test

import (
	"context"
	"testing"
	"time"

	"github.com/healthwatch/daemon/internal/application/retry"
	"github.com/healthwatch/daemon/internal/domain/healthcheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() healthcheck.RetryPolicy {
	return healthcheck.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestRun_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result := retry.Run(context.Background(), fastPolicy(), func(ctx context.Context) healthcheck.Result {
		calls++
		return healthcheck.NewSuccessResult(time.Millisecond, "ok")
	}, nil)

	assert.True(t, result.IsSuccess())
	assert.Equal(t, 1, calls)
}

func TestRun_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	retries := 0
	result := retry.Run(context.Background(), fastPolicy(), func(ctx context.Context) healthcheck.Result {
		calls++
		if calls < 3 {
			return healthcheck.NewRetryableResult(time.Millisecond, "transient", healthcheck.ErrConnectionRefused)
		}
		return healthcheck.NewSuccessResult(time.Millisecond, "ok")
	}, func() { retries++ })

	assert.True(t, result.IsSuccess())
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retries)
}

func TestRun_StopsOnFatal(t *testing.T) {
	calls := 0
	result := retry.Run(context.Background(), fastPolicy(), func(ctx context.Context) healthcheck.Result {
		calls++
		return healthcheck.NewFatalResult(time.Millisecond, "bad request", healthcheck.ErrInvalidStatusCode)
	}, nil)

	require.False(t, result.IsSuccess())
	assert.Equal(t, 1, calls)
}

func TestRun_ExhaustsAttempts(t *testing.T) {
	calls := 0
	result := retry.Run(context.Background(), fastPolicy(), func(ctx context.Context) healthcheck.Result {
		calls++
		return healthcheck.NewRetryableResult(time.Millisecond, "transient", healthcheck.ErrConnectionRefused)
	}, nil)

	assert.False(t, result.IsSuccess())
	assert.Equal(t, 3, calls)
}

func TestRun_ContextCancelledStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	result := retry.Run(ctx, fastPolicy(), func(ctx context.Context) healthcheck.Result {
		calls++
		cancel()
		return healthcheck.NewRetryableResult(time.Millisecond, "transient", healthcheck.ErrConnectionRefused)
	}, nil)

	assert.False(t, result.IsSuccess())
	assert.Equal(t, 1, calls)
}
