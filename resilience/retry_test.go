package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRefused = errors.New("connection refused")

func fastPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, Delay: time.Millisecond, MaxDelay: 4 * time.Millisecond, Factor: 2}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	var retries []int
	p := fastPolicy(3)
	p.OnRetry = func(attempt int, err error, _ time.Duration) {
		assert.ErrorIs(t, err, errRefused)
		retries = append(retries, attempt)
	}

	v, err := Retry(context.Background(), p, func(_ context.Context, attempt int) (string, error) {
		if attempt < 3 {
			return "", errRefused
		}
		return "connected", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "connected", v)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(4), func(context.Context, int) error {
		calls++
		return errRefused
	})

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 4, ex.Attempts)
	assert.ErrorIs(t, err, errRefused)
	assert.Equal(t, 4, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("invalid dsn")
	p := fastPolicy(5)
	p.Retryable = func(err error) bool { return !errors.Is(err, permanent) }

	calls := 0
	err := Do(context.Background(), p, func(context.Context, int) error {
		calls++
		return permanent
	})
	assert.Same(t, permanent, err)
	assert.Equal(t, 1, calls)
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Attempts: 3, Delay: time.Hour}
	p.OnRetry = func(int, error, time.Duration) { cancel() }

	err := Do(ctx, p, func(context.Context, int) error { return errRefused })
	assert.ErrorIs(t, err, context.Canceled)

	calls := 0
	err = Do(ctx, fastPolicy(3), func(context.Context, int) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestPolicyWait(t *testing.T) {
	p := Policy{Delay: time.Second, MaxDelay: 5 * time.Second, Factor: 2}
	assert.Equal(t, time.Second, p.Wait(1))
	assert.Equal(t, 2*time.Second, p.Wait(2))
	assert.Equal(t, 4*time.Second, p.Wait(3))
	assert.Equal(t, 5*time.Second, p.Wait(4))

	linear := Policy{Delay: time.Second}
	assert.Equal(t, time.Second, linear.Wait(3))
}
