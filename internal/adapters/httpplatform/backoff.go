package httpplatform

import (
	"math/rand"
	"time"
)

// backoff implements exponential backoff with jitter.
type backoff struct {
	max     time.Duration
	current time.Duration
}

func newBackoff(initial, max time.Duration) *backoff {
	return &backoff{
		max:     max,
		current: initial,
	}
}

// next returns the current delay with ±20% jitter and doubles the delay for
// the following call, capped at max.
func (b *backoff) next() time.Duration {
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	d := time.Duration(float64(b.current) + jitter)

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return d
}
