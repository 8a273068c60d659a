package agent

import "time"

// Backoff doubles the wait between reconnects up to the limit.
type Backoff struct {
	t, min, max time.Duration
}

func NewBackoff(min, max time.Duration) Backoff { return Backoff{t: min, min: min, max: max} }

// Next returns the current wait and grows the following one.
func (b *Backoff) Next() time.Duration {
	t := b.t
	b.t = min(b.t*2, b.max)
	return t
}

func (b *Backoff) Reset()              { b.t = b.min }
func (b *Backoff) Time() time.Duration { return b.t }
