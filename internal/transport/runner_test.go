package transport_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxbolgarin/repoq/internal/model"
	"github.com/maxbolgarin/repoq/internal/transport"
)

func testConfig() transport.Config {
	return transport.Config{
		MaxAttempts:    3,
		BaseDelay:      2 * time.Millisecond,
		MaxDelay:       10 * time.Millisecond,
		AttemptTimeout: time.Second,
		ResetWaitCap:   300 * time.Millisecond,
		SafetyMargin:   time.Millisecond,
	}
}

func newRunner(t *testing.T) *transport.Runner {
	t.Helper()
	runner, err := transport.NewRunner(testConfig())
	require.NoError(t, err)
	return runner
}

// statusSequence replays a fixed series of status codes.
func statusSequence(calls *int, statuses ...int) transport.Call {
	return func(ctx context.Context) (transport.Meta, error) {
		status := statuses[len(statuses)-1]
		if *calls < len(statuses) {
			status = statuses[*calls]
		}
		*calls++
		if status >= 400 {
			return transport.Meta{StatusCode: status}, errors.New(http.StatusText(status))
		}
		return transport.Meta{StatusCode: status}, nil
	}
}

func TestDoRetriesTransientFailures(t *testing.T) {
	runner := newRunner(t)

	calls := 0
	err := runner.Do(context.Background(), "test", statusSequence(&calls, 500, 502, 200))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoSucceedsDirectly(t *testing.T) {
	runner := newRunner(t)

	calls := 0
	err := runner.Do(context.Background(), "test", statusSequence(&calls, 200))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsRetries(t *testing.T) {
	runner := newRunner(t)

	calls := 0
	err := runner.Do(context.Background(), "test", statusSequence(&calls, 500, 500, 500, 500))
	require.Error(t, err)

	var transportErr *model.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, 3, transportErr.Attempts)
	assert.Equal(t, 3, calls)
}

func TestDoRetriesConnectionFailures(t *testing.T) {
	runner := newRunner(t)

	calls := 0
	err := runner.Do(context.Background(), "test", func(ctx context.Context) (transport.Meta, error) {
		calls++
		return transport.Meta{}, errors.New("connection refused")
	})
	require.Error(t, err)

	var transportErr *model.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, 3, calls)
}

func TestDoDoesNotRetryNotFound(t *testing.T) {
	runner := newRunner(t)

	calls := 0
	err := runner.Do(context.Background(), "test", statusSequence(&calls, 404))
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, 1, calls)
}

func TestDoDoesNotRetryUnauthorized(t *testing.T) {
	runner := newRunner(t)

	calls := 0
	err := runner.Do(context.Background(), "test", statusSequence(&calls, 401))
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	assert.Equal(t, 1, calls)
}

func TestDoForbiddenWithoutRateHeadersIsUnauthorized(t *testing.T) {
	runner := newRunner(t)

	calls := 0
	err := runner.Do(context.Background(), "test", func(ctx context.Context) (transport.Meta, error) {
		calls++
		return transport.Meta{StatusCode: http.StatusForbidden}, errors.New("Forbidden")
	})
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	assert.Equal(t, 1, calls)
}

func TestDoRateLimitedSurfacesResetTime(t *testing.T) {
	runner := newRunner(t)

	reset := time.Now().Add(5 * time.Millisecond)
	err := runner.Do(context.Background(), "test", func(ctx context.Context) (transport.Meta, error) {
		return transport.Meta{
			StatusCode:    http.StatusTooManyRequests,
			HasRate:       true,
			RateRemaining: 0,
			RateLimit:     60,
			RateReset:     reset,
			RetryAfter:    2 * time.Millisecond,
		}, errors.New("Too Many Requests")
	})
	require.Error(t, err)

	var rateErr *model.RateLimitedError
	require.ErrorAs(t, err, &rateErr)
	assert.WithinDuration(t, reset, rateErr.ResetAt, time.Second)
}

func TestDoForbiddenWithExhaustedRateIsRateLimit(t *testing.T) {
	runner := newRunner(t)

	err := runner.Do(context.Background(), "test", func(ctx context.Context) (transport.Meta, error) {
		return transport.Meta{
			StatusCode:    http.StatusForbidden,
			HasRate:       true,
			RateRemaining: 0,
			RateLimit:     60,
			RateReset:     time.Now().Add(2 * time.Millisecond),
		}, errors.New("Forbidden")
	})

	var rateErr *model.RateLimitedError
	require.ErrorAs(t, err, &rateErr)
}

func TestDoWaitsForRateLimitReset(t *testing.T) {
	runner := newRunner(t)

	// First call drains the budget and reports a future reset.
	reset := time.Now().Add(80 * time.Millisecond)
	err := runner.Do(context.Background(), "drain", func(ctx context.Context) (transport.Meta, error) {
		return transport.Meta{
			StatusCode:    http.StatusOK,
			HasRate:       true,
			RateRemaining: 0,
			RateLimit:     60,
			RateReset:     reset,
		}, nil
	})
	require.NoError(t, err)

	// The next call must not be issued before the reset time.
	var calledAt time.Time
	err = runner.Do(context.Background(), "after", func(ctx context.Context) (transport.Meta, error) {
		calledAt = time.Now()
		return transport.Meta{StatusCode: http.StatusOK, HasRate: true, RateRemaining: 59, RateLimit: 60}, nil
	})
	require.NoError(t, err)

	tolerance := 10 * time.Millisecond
	assert.False(t, calledAt.Before(reset.Add(-tolerance)),
		"request issued at %v, before reset %v", calledAt, reset)
}

func TestDoHonorsContextDuringWait(t *testing.T) {
	runner := newRunner(t)

	err := runner.Do(context.Background(), "drain", func(ctx context.Context) (transport.Meta, error) {
		return transport.Meta{
			StatusCode:    http.StatusOK,
			HasRate:       true,
			RateRemaining: 0,
			RateLimit:     60,
			RateReset:     time.Now().Add(time.Minute),
		}, nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err = runner.Do(ctx, "blocked", func(ctx context.Context) (transport.Meta, error) {
		t.Fatal("request must not be issued while the limit is exhausted")
		return transport.Meta{}, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimitSnapshot(t *testing.T) {
	runner := newRunner(t)

	reset := time.Now().Add(time.Hour).Truncate(time.Second)
	err := runner.Do(context.Background(), "test", func(ctx context.Context) (transport.Meta, error) {
		return transport.Meta{
			StatusCode:    http.StatusOK,
			HasRate:       true,
			RateRemaining: 41,
			RateLimit:     60,
			RateReset:     reset,
		}, nil
	})
	require.NoError(t, err)

	remaining, limit, gotReset := runner.RateLimit()
	assert.Equal(t, 41, remaining)
	assert.Equal(t, 60, limit)
	assert.Equal(t, reset, gotReset)
}
