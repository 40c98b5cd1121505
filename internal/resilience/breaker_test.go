package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-resto/internal/resilience"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }
func failing(context.Context) error      { return errors.New("broker down") }
func succeeding(context.Context) error   { return nil }

func TestBreakerOpensAndRecovers(t *testing.T) {
	clk := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	b := resilience.NewBreaker("kafka-test", 2, 0.5, time.Minute)
	b.Now = clk.Now
	ctx := context.Background()

	require.Error(t, b.Do(ctx, failing))
	require.Equal(t, resilience.Closed, b.State())
	require.Error(t, b.Do(ctx, failing))
	require.Equal(t, resilience.Open, b.State())

	called := false
	err := b.Do(ctx, func(context.Context) error { called = true; return nil })
	require.ErrorIs(t, err, resilience.ErrOpen)
	require.False(t, called)

	clk.Advance(time.Minute)
	require.Equal(t, resilience.HalfOpen, b.State())
	require.NoError(t, b.Do(ctx, succeeding))
	require.Equal(t, resilience.Closed, b.State())
}

func TestBreakerFailedTrialReopens(t *testing.T) {
	clk := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	b := resilience.NewBreaker("kafka-trial", 1, 0.5, 10*time.Second)
	b.Now = clk.Now
	ctx := context.Background()

	require.Error(t, b.Do(ctx, failing))
	clk.Advance(10 * time.Second)
	require.Error(t, b.Do(ctx, failing))
	require.Equal(t, resilience.Open, b.State())
	require.ErrorIs(t, b.Do(ctx, succeeding), resilience.ErrOpen)
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	b := resilience.NewBreaker("cancel", 1, 0.5, time.Minute)
	err := b.Do(context.Background(), func(context.Context) error { return context.Canceled })
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, resilience.Closed, b.State())
}

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	require.Equal(t, base, resilience.Backoff(base, 1, 0))
	require.Equal(t, base*4, resilience.Backoff(base, 3, 0))

	d := resilience.Backoff(base, 2, 0.2)
	require.GreaterOrEqual(t, d, 160*time.Millisecond)
	require.LessOrEqual(t, d, 240*time.Millisecond)
}

func TestRetry(t *testing.T) {
	ctx := context.Background()
	calls := 0
	err := resilience.Retry(ctx, 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)

	calls = 0
	err = resilience.Retry(ctx, 5, time.Millisecond, func(context.Context) error {
		calls++
		return resilience.ErrOpen
	})
	require.ErrorIs(t, err, resilience.ErrOpen)
	require.Equal(t, 1, calls)
}
