package client

import (
	"errors"
	"math/rand"
	"time"
)

// BackoffStrategy decides the pause before retry attempt n (0-based), given
// the error the previous attempt failed with.
type BackoffStrategy interface {
	Delay(attempt int, err error) time.Duration
}

// ExponentialBackoff spaces out retries of transient failures.
//
// A connection failure waits Base, growing by Factor per attempt. A 429 or
// 503 that carries Retry-After waits exactly that long; without the header it
// grows from Unavailable instead of Base. No wait exceeds Max.
type ExponentialBackoff struct {
	Base        time.Duration
	Unavailable time.Duration
	Max         time.Duration
	Factor      float64
	Jitter      float64 // 0.0 to 1.0, not applied to Retry-After
}

// DefaultBackoff starts at 100ms for an unreachable daemon and at 500ms for
// one that is not ready, doubling up to 5s with 20% jitter.
func DefaultBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		Base:        100 * time.Millisecond,
		Unavailable: 500 * time.Millisecond,
		Max:         5 * time.Second,
		Factor:      2.0,
		Jitter:      0.2,
	}
}

// Delay returns the wait before the given retry attempt.
func (b *ExponentialBackoff) Delay(attempt int, err error) time.Duration {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !errors.Is(apiErr, ErrUnavailable) {
		return b.grow(b.Base, attempt)
	}
	if apiErr.RetryAfter > 0 {
		return min(apiErr.RetryAfter, b.Max)
	}
	return b.grow(max(b.Unavailable, b.Base), attempt)
}

func (b *ExponentialBackoff) grow(from time.Duration, attempt int) time.Duration {
	delay := from
	for i := 0; i < attempt && delay < b.Max; i++ {
		delay = time.Duration(float64(delay) * b.Factor)
	}
	delay = min(delay, b.Max)

	if b.Jitter > 0 {
		delay += time.Duration((rand.Float64()*2 - 1) * b.Jitter * float64(delay))
	}
	return max(delay, 0)
}
