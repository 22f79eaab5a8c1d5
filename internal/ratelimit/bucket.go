package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrBadRate  = errors.New("refill rate must be positive")
	ErrBadBurst = errors.New("burst capacity must be at least 1")
)

// TokenBucket tracks request credits for one named service. Credits refill
// continuously at a fixed rate up to the burst capacity; each request consumes
// one or more credits. Acquire blocks until credit is available, TryAcquire
// fails fast with the computed wait instead.
type TokenBucket struct {
	name     string
	rate     float64 // credits per second
	capacity float64

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
	waiters    int

	requestsMade    int64
	requestsLimited int64
	totalWait       time.Duration

	now func() time.Time
	log zerolog.Logger
}

// New creates a bucket that starts full.
// rate is credits granted per second, burst the maximum stored credits.
func New(name string, rate float64, burst int, logger zerolog.Logger) (*TokenBucket, error) {
	if rate <= 0 {
		return nil, ErrBadRate
	}
	if burst < 1 {
		return nil, ErrBadBurst
	}
	b := &TokenBucket{
		name:       name,
		rate:       rate,
		capacity:   float64(burst),
		tokens:     float64(burst),
		lastRefill: time.Now(),
		now:        time.Now,
		log:        logger.With().Str("limiter", name).Logger(),
	}
	b.log.Info().Float64("rate_per_sec", rate).Int("burst", burst).Msg("rate limiter initialized")
	return b, nil
}

// Acquire consumes n credits, sleeping until they are available. It returns
// the time spent waiting. The deficit is reserved under the lock before
// sleeping, so concurrent acquirers can never spend the same refill twice and
// a cost above capacity still completes after a single finite wait. ctx only
// aborts the sleep; on cancellation the reservation is returned.
func (b *TokenBucket) Acquire(ctx context.Context, n int) (time.Duration, error) {
	need := float64(n)

	b.mu.Lock()
	b.requestsMade++
	b.refill()

	if b.tokens >= need {
		b.tokens -= need
		b.mu.Unlock()
		return 0, nil
	}

	deficit := need - b.tokens
	wait := time.Duration(deficit / b.rate * float64(time.Second))
	b.tokens -= need
	b.requestsLimited++
	b.waiters++
	b.mu.Unlock()

	b.log.Warn().
		Dur("wait", wait).
		Float64("deficit", deficit).
		Msg("rate limited, waiting for credit")

	err := sleep(ctx, wait)

	b.mu.Lock()
	b.waiters--
	if err != nil {
		// The request never ran; hand the reservation back.
		b.tokens += need
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.mu.Unlock()
		return 0, err
	}
	b.totalWait += wait
	b.mu.Unlock()
	return wait, nil
}

// TryAcquire consumes n credits without blocking. When credit is short it
// returns a *RateLimitError carrying the wait a blocking caller would incur,
// leaving the stored credits untouched.
func (b *TokenBucket) TryAcquire(n int) error {
	need := float64(n)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.requestsMade++
	b.refill()

	if b.tokens >= need {
		b.tokens -= need
		return nil
	}

	deficit := need - b.tokens
	b.requestsLimited++
	return &RateLimitError{
		Service: b.name,
		Wait:    time.Duration(deficit / b.rate * float64(time.Second)),
	}
}

// Rate returns the configured refill rate in credits per second.
func (b *TokenBucket) Rate() float64 { return b.rate }

// Capacity returns the burst capacity.
func (b *TokenBucket) Capacity() int { return int(b.capacity) }

// Stats returns a point-in-time usage snapshot.
func (b *TokenBucket) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	s := Stats{
		RequestsMade:    b.requestsMade,
		RequestsLimited: b.requestsLimited,
		TotalWait:       b.totalWait,
		Tokens:          b.tokens,
		Waiters:         b.waiters,
	}
	if b.requestsLimited > 0 {
		s.AverageWait = b.totalWait / time.Duration(b.requestsLimited)
	}
	return s
}

// refill adds credits for the elapsed wall-clock time, capped at capacity.
// Caller must hold b.mu.
func (b *TokenBucket) refill() {
	now := b.now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
