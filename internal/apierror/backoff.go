package apierror

import (
	"math"
	"math/rand/v2"
	"time"
)

const (
	DefaultBaseDelay = time.Second
	MaxJitter        = 500 * time.Millisecond
	MaxDelay         = 30 * time.Second
)

// BackoffDelay base * 2^(attempt-1) + jitter, не больше MaxDelay.
// attempt считается с единицы.
func BackoffDelay(attempt int, base, jitter time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = DefaultBaseDelay
	}
	delay := float64(base) * math.Pow(2, float64(attempt-1))
	if delay > float64(MaxDelay) {
		return MaxDelay
	}
	d := time.Duration(delay) + jitter
	if d > MaxDelay {
		d = MaxDelay
	}
	return d
}

// RetryDelay BackoffDelay со случайным джиттером до MaxJitter.
func RetryDelay(attempt int, base time.Duration) time.Duration {
	return BackoffDelay(attempt, base, rand.N(MaxJitter))
}
