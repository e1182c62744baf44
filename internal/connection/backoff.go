package connection

import "time"

// Backoff yields reconnect delays that start at Base and double on every
// call up to Max. It is not safe for concurrent use.
type Backoff struct {
	Base time.Duration
	Max  time.Duration

	current time.Duration
}

// NewBackoff creates a backoff starting at base and capped at max.
func NewBackoff(base, max time.Duration) *Backoff {
	if base <= 0 {
		base = time.Second
	}
	if max < base {
		max = base
	}
	return &Backoff{Base: base, Max: max}
}

// Next returns the delay to wait before the next attempt.
func (b *Backoff) Next() time.Duration {
	if b.current == 0 {
		b.current = b.Base
		return b.current
	}
	b.current *= 2
	if b.current > b.Max {
		b.current = b.Max
	}
	return b.current
}

// Current returns the last delay handed out, zero after Reset.
func (b *Backoff) Current() time.Duration {
	return b.current
}

// Reset starts the sequence over at Base.
func (b *Backoff) Reset() {
	b.current = 0
}
