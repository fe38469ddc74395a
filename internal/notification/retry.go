package notification

import (
	"context"
	"time"
)

// retryPolicy is the exponential retry shared by the HTTP sinks
type retryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (p retryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// delay returns the wait before attempt (2-based): base, 2*base, 4*base ... capped
func (p retryPolicy) delay(attempt int) time.Duration {
	if attempt < 2 {
		return 0
	}
	d := p.BaseDelay
	for i := 2; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			break
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// do runs send until it succeeds, attempts run out or ctx ends
func (p retryPolicy) do(ctx context.Context, send func() error) error {
	var err error
	for attempt := 1; attempt <= p.attempts(); attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(p.delay(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = send(); err == nil {
			return nil
		}
	}
	return err
}
