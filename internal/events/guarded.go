package events

import (
	"context"
	"time"

	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/resilience"
)

// GuardedNotifier retries Next with backoff behind a circuit breaker, so an outage of
// an optional sink costs one fast ErrOpen per event instead of a full timeout.
type GuardedNotifier struct {
	Next     Notifier
	Breaker  *resilience.Breaker
	Attempts int
	Backoff  time.Duration
}

// Name reports the wrapped notifier's name.
func (g GuardedNotifier) Name() string { return notifierName(g.Next) }

// Notify implements Notifier.
func (g GuardedNotifier) Notify(ctx context.Context, ev dbgen.DomainEvent) error {
	call := func(ctx context.Context) error { return g.Next.Notify(ctx, ev) }
	if g.Breaker != nil {
		guarded := call
		call = func(ctx context.Context) error { return g.Breaker.Do(ctx, guarded) }
	}
	return resilience.Retry(ctx, g.Attempts, g.Backoff, call)
}
