package txn

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy bounds a generic retry loop: MaxAttempts retries after the
// first attempt, exponential delays capped at MaxDelay, with symmetric
// random jitter of ±JitterFraction/2 of the capped delay.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		MaxDelay:       10 * time.Second,
		Multiplier:     2,
		JitterFraction: 0.2,
	}
}

// Backoff is the capped, jitter-free delay before retry number attempt
// (attempt 0 is the delay after the first failure).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

func (p RetryPolicy) delay(attempt int, rnd *rand.Rand) time.Duration {
	d := p.Backoff(attempt)
	if p.JitterFraction > 0 && rnd != nil {
		amp := float64(d) * p.JitterFraction / 2
		d += time.Duration((rnd.Float64()*2 - 1) * amp)
	}
	if d < 0 {
		d = 0
	}
	return d
}

// Retry runs op up to MaxAttempts+1 times total, sleeping the policy delay
// between attempts. Concurrent retriers desynchronize through jitter. After
// the attempts are spent it returns a RetryExhaustedError carrying the last
// cause.
func Retry(ctx context.Context, p RetryPolicy, op func(ctx context.Context) error) error {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	var last error
	for attempt := 0; ; attempt++ {
		last = op(ctx)
		if last == nil {
			return nil
		}
		if attempt >= p.MaxAttempts {
			return &RetryExhaustedError{Attempts: p.MaxAttempts, Last: last}
		}
		t := time.NewTimer(p.delay(attempt, rnd))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
