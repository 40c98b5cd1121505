// Package resilience guards calls to flaky downstream dependencies with a circuit
// breaker and jittered retries.
package resilience

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/backend-resto/internal/obs"
)

// ErrOpen is returned by Do while the breaker refuses calls.
var ErrOpen = errors.New("resilience: circuit open")

// State is the breaker position.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker opens once the failure ratio over at least MinRequests calls reaches
// FailureRatio, rejects calls for OpenFor, then lets a single trial call through.
type Breaker struct {
	Target       string
	MinRequests  int
	FailureRatio float64
	OpenFor      time.Duration
	// Now is the clock; nil means time.Now.
	Now func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	probing   bool
}

// NewBreaker returns a closed breaker for target with sane defaults for zero values.
func NewBreaker(target string, minRequests int, failureRatio float64, openFor time.Duration) *Breaker {
	b := &Breaker{Target: strings.TrimSpace(target), MinRequests: minRequests, FailureRatio: failureRatio, OpenFor: openFor}
	b.recordState()
	return b
}

// State reports the current position, moving an expired open breaker to half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && !b.now().Before(b.openedAt.Add(b.openFor())) {
		b.transition(context.Background(), HalfOpen)
	}
	return b.state
}

// Do runs fn unless the breaker is open and reports its outcome. Context
// cancellation by the caller is not counted as a downstream failure.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if !b.allow(ctx) {
		return ErrOpen
	}
	err := fn(ctx)
	b.report(ctx, err == nil || errors.Is(err, context.Canceled))
	return err
}

func (b *Breaker) allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Open:
		if b.now().Before(b.openedAt.Add(b.openFor())) {
			return false
		}
		b.transition(ctx, HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

func (b *Breaker) report(ctx context.Context, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if ok {
			b.transition(ctx, Closed)
		} else {
			b.transition(ctx, Open)
		}
		return
	}
	if ok {
		b.successes++
	} else {
		b.failures++
	}
	total := b.failures + b.successes
	minReq := b.MinRequests
	if minReq <= 0 {
		minReq = 1
	}
	if total < minReq {
		return
	}
	if float64(b.failures)/float64(total) >= b.ratio() {
		b.transition(ctx, Open)
		return
	}
	if total > minReq*2 {
		// decay so old history does not mask a fresh outage
		b.successes = (b.successes + 1) / 2
		b.failures = (b.failures + 1) / 2
	}
}

func (b *Breaker) transition(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	b.failures, b.successes = 0, 0
	if next == Open {
		b.openedAt = b.now()
	}
	b.recordState()
	target := b.label()
	breakerTransitions.WithLabelValues(target, prev.String(), next.String()).Inc()

	evt := obs.Logger(ctx).Info().Str("target", target).Str("from_state", prev.String()).Str("to_state", next.String())
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		evt = evt.Str("trace_id", span.TraceID().String())
	}
	evt.Msg("breaker_transition")
}

func (b *Breaker) recordState() {
	breakerState.WithLabelValues(b.label()).Set(float64(b.state))
}

func (b *Breaker) label() string {
	if b.Target == "" {
		return "default"
	}
	return b.Target
}

func (b *Breaker) ratio() float64 {
	switch {
	case b.FailureRatio <= 0:
		return 0.5
	case b.FailureRatio > 1:
		return 1
	default:
		return b.FailureRatio
	}
}

func (b *Breaker) openFor() time.Duration {
	if b.OpenFor <= 0 {
		return 30 * time.Second
	}
	return b.OpenFor
}

func (b *Breaker) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// Backoff returns base doubled for every attempt after the first, spread by jitter
// (0.2 means plus or minus 20%).
func Backoff(base time.Duration, attempt int, jitter float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base << uint(attempt-1)
	if jitter <= 0 {
		return d
	}
	spread := float64(d) * jitter
	return d + time.Duration((rand.Float64()*2-1)*spread)
}

// Retry calls fn up to attempts times, sleeping Backoff between failures. It stops
// early on ErrOpen or when ctx ends.
func Retry(ctx context.Context, attempts int, base time.Duration, fn func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil || errors.Is(err, ErrOpen) {
			return err
		}
		if attempt == attempts {
			break
		}
		timer := time.NewTimer(Backoff(base, attempt, 0.2))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
	return err
}
