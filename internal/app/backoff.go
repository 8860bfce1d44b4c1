package app

import (
	"context"
	"math/rand"
	"time"
)

// Default retry delays.
const (
	DefaultBackoffInitial = 50 * time.Millisecond
	DefaultBackoffMax     = 2 * time.Second
)

// Backoff is an exponential delay with ±20% jitter.
type Backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

// NewBackoff creates a backoff starting at initial and capped at max.
func NewBackoff(initial, max time.Duration) *Backoff {
	return &Backoff{
		initial: initial,
		max:     max,
		current: initial,
	}
}

// Wait sleeps for the current delay, then doubles it. It returns ctx.Err()
// if ctx ends first.
func (b *Backoff) Wait(ctx context.Context) error {
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	t := time.NewTimer(time.Duration(float64(b.current) + jitter))
	defer t.Stop()

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Reset restores the initial delay.
func (b *Backoff) Reset() {
	b.current = b.initial
}

// Current returns the delay the next Wait will use, before jitter.
func (b *Backoff) Current() time.Duration {
	return b.current
}

// Retry calls fn until it succeeds, attempts are used up or ctx ends. It
// returns the last error from fn.
func Retry(ctx context.Context, b *Backoff, attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		if werr := b.Wait(ctx); werr != nil {
			return err
		}
	}
	return err
}
