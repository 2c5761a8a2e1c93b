package retry

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// Default retry policy
	defaultMaxAttempts = 3
	defaultBaseDelay   = 2 * time.Second
	defaultMaxJitter   = 500 * time.Millisecond
)

// Retryer executes remote operations with a bounded number of attempts and a
// fixed base delay plus random jitter between them. The jitter spreads out
// retries from concurrent callers so they don't hammer an upstream in
// lockstep.
//
// A Retryer holds no per-call state and is safe for concurrent use.
type Retryer struct {
	maxAttempts int
	baseDelay   time.Duration
	maxJitter   time.Duration
	rnd         *lockedRand
	timer       backoff.Timer
	logger      *slog.Logger
}

// Option configures a Retryer.
type Option func(*Retryer)

// WithMaxAttempts sets the total number of attempts (first try included).
func WithMaxAttempts(n int) Option {
	return func(r *Retryer) { r.maxAttempts = n }
}

// WithBaseDelay sets the fixed delay before each retry.
func WithBaseDelay(d time.Duration) Option {
	return func(r *Retryer) { r.baseDelay = d }
}

// WithMaxJitter sets the upper bound (exclusive) of the random jitter added
// to the base delay. Zero disables jitter.
func WithMaxJitter(d time.Duration) Option {
	return func(r *Retryer) { r.maxJitter = d }
}

// WithRand sets the random source used for jitter, so tests can seed it.
func WithRand(rnd *rand.Rand) Option {
	return func(r *Retryer) { r.rnd = &lockedRand{rnd: rnd} }
}

// WithTimer sets the timer driving inter-attempt sleeps, so tests can run
// without real delays.
func WithTimer(t backoff.Timer) Option {
	return func(r *Retryer) { r.timer = t }
}

// WithLogger sets the logger used to report attempt outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(r *Retryer) { r.logger = l }
}

// New creates a Retryer with the default policy (3 attempts, 2s base delay,
// up to 500ms jitter) unless overridden by options.
func New(opts ...Option) *Retryer {
	r := &Retryer{
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		maxJitter:   defaultMaxJitter,
		rnd:         &lockedRand{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))},
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.maxAttempts < 1 {
		r.maxAttempts = 1
	}

	return r
}

// Permanent marks err as non-retryable: Do returns it immediately without
// further attempts.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do executes op until it succeeds, all attempts are used up, op
// returns a Permanent error, or ctx is done. It returns op's value on
// success and the last error otherwise; it never retries forever and never
// sleeps longer than attempts x (base delay + max jitter).
func Do[T any](ctx context.Context, r *Retryer, op func() (T, error)) (T, error) {
	attempt := 0

	wrapped := func() (T, error) {
		attempt++
		v, err := op()
		if err == nil && attempt > 1 {
			r.logger.Debug("operation succeeded after retry", "attempt", attempt)
		}
		return v, err
	}

	notify := func(err error, delay time.Duration) {
		r.logger.Warn("operation failed, retrying",
			"attempt", attempt,
			"max_attempts", r.maxAttempts,
			"delay", delay,
			"error", err)
	}

	return backoff.RetryNotifyWithTimerAndData(wrapped, r.backOff(ctx), notify, r.timer)
}

// backOff builds the per-call backoff policy: base delay plus jitter, capped
// at maxAttempts, canceled by ctx.
func (r *Retryer) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = &jitterBackOff{
		base:      r.baseDelay,
		maxJitter: r.maxJitter,
		rnd:       r.rnd,
	}
	b = backoff.WithMaxRetries(b, uint64(r.maxAttempts-1))
	return backoff.WithContext(b, ctx)
}

// jitterBackOff yields base + [0, maxJitter) for every retry.
type jitterBackOff struct {
	base      time.Duration
	maxJitter time.Duration
	rnd       *lockedRand
}

func (b *jitterBackOff) NextBackOff() time.Duration {
	d := b.base
	if b.maxJitter > 0 {
		d += time.Duration(b.rnd.Int63n(int64(b.maxJitter)))
	}
	return d
}

func (b *jitterBackOff) Reset() {}

// lockedRand guards a rand.Rand; Retryers are shared across goroutines.
type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (l *lockedRand) Int63n(n int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Int63n(n)
}
