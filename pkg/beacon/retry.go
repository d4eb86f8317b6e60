package beacon

import (
	"math/rand/v2"
	"time"
)

// RetryPolicy controls how failed deliveries are re-enqueued.
//
// An attempt is one full pass of an event through the flush pipeline.
// After a failed attempt the event goes back to the pending queue with
// an eligibility time computed from the backoff fields; a flush cycle
// skips items that are not yet eligible.
type RetryPolicy struct {
	// MaxAttempts is the total number of delivery attempts before the
	// event is discarded. Zero means retry forever.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry. Zero makes
	// retried events eligible for the very next flush cycle.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between retries.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier applied to the delay after each
	// failed attempt.
	BackoffFactor float64

	// Jitter adds randomness to backoff delays (0.1 = +/-10%).
	Jitter float64
}

// DefaultRetryPolicy bounds delivery at five total attempts with no
// backoff, so a failed event is eligible again on the very next flush
// cycle.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:    5,
	InitialBackoff: 0,
	MaxBackoff:     30 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// RetryForever never discards an event: failed deliveries are retried
// with exponential backoff until they succeed or are dropped.
var RetryForever = RetryPolicy{
	MaxAttempts:    0,
	InitialBackoff: time.Second,
	MaxBackoff:     30 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// NoRetry discards an event after its first failed delivery.
var NoRetry = RetryPolicy{
	MaxAttempts: 1,
}

// Exhausted reports whether attempts has reached the policy's limit.
func (p RetryPolicy) Exhausted(attempts int) bool {
	return p.MaxAttempts > 0 && attempts >= p.MaxAttempts
}

// backoffFor returns the delay before the next attempt, where attempts
// is the number of failed attempts so far (>= 1).
func (p RetryPolicy) backoffFor(attempts int) time.Duration {
	if p.InitialBackoff <= 0 {
		return 0
	}

	backoff := p.InitialBackoff
	for i := 1; i < attempts; i++ {
		backoff = time.Duration(float64(backoff) * p.BackoffFactor)
		if p.MaxBackoff > 0 && backoff >= p.MaxBackoff {
			backoff = p.MaxBackoff
			break
		}
	}
	if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
		backoff = p.MaxBackoff
	}

	if p.Jitter > 0 {
		jitter := float64(backoff) * p.Jitter * (rand.Float64()*2 - 1)
		backoff = time.Duration(float64(backoff) + jitter)
		if backoff < 0 {
			backoff = 0
		}
	}
	return backoff
}
