package ratelimit

import (
	"context"
	"time"
)

// Limiter is a token bucket: a buffered channel of tokens refilled by a
// background goroutine at a fixed rate. The bucket starts full so a burst
// up to the bucket size is allowed.
type Limiter struct {
	tokens chan struct{}
	cancel context.CancelFunc
}

// New creates a limiter allowing rps acquisitions per second with a burst
// of up to burst tokens. rps below 1 is treated as 1.
func New(rps float64, burst int) *Limiter {
	if rps <= 0 {
		rps = 1
	}
	if burst < 1 {
		burst = 1
	}

	tokens := make(chan struct{}, burst)
	for i := 0; i < burst; i++ {
		tokens <- struct{}{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Limiter{tokens: tokens, cancel: cancel}

	go func() {
		interval := time.Duration(float64(time.Second) / rps)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case tokens <- struct{}{}:
				default: // bucket full
				}
			}
		}
	}()

	return l
}

// Acquire blocks until a token is available or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case <-l.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AcquireWithin tries to take a token, waiting at most d. It returns false
// when no token arrived in time, letting callers defer work instead of
// queueing behind the bucket.
func (l *Limiter) AcquireWithin(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-l.tokens:
			return true
		default:
			return false
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-l.tokens:
		return true
	case <-timer.C:
		return false
	}
}

// Close stops the refill goroutine. Pending Acquire calls may still drain
// tokens already in the bucket.
func (l *Limiter) Close() {
	l.cancel()
}
