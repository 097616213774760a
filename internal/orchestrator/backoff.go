package orchestrator

import (
	"context"
	"time"
)

// Backoff returns the delay before retry n (1-based).
type Backoff interface {
	Delay(retry int) time.Duration
}

// ExponentialBackoff doubles the delay per retry starting at Base, capped at Max.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay implements Backoff.
func (b ExponentialBackoff) Delay(retry int) time.Duration {
	if retry < 1 || b.Base <= 0 {
		return 0
	}
	d := b.Base
	for i := 1; i < retry; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// sleep is the real-time Sleeper.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
