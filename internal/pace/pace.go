// Package pace serializes wire requests and enforces a minimum interval
// between the starts of consecutive requests. Waiters are granted in
// strict arrival order so no caller's schedule can be starved.
package pace

import (
	"context"
	"sync"
	"time"
)

// Limiter paces request starts. The zero value is not usable; call
// NewLimiter.
type Limiter struct {
	interval time.Duration

	mu    sync.Mutex
	last  time.Time // start time of the previously granted request
	queue []*waiter
}

type waiter struct {
	ready chan struct{}
	gone  bool // waiter gave up (context cancelled)
}

// NewLimiter returns a limiter enforcing the given minimum interval. A
// zero interval still serializes grants but adds no pacing delay.
func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{interval: interval}
}

// Acquire blocks until at least the configured interval has elapsed since
// the previous grant. It returns as soon as the wait is satisfied, before
// the caller issues its request, so transport latency is not counted
// against the interval. Grants are handed out in FIFO arrival order.
func (l *Limiter) Acquire(ctx context.Context) error {
	w := &waiter{ready: make(chan struct{})}

	l.mu.Lock()
	l.queue = append(l.queue, w)
	if l.queue[0] == w {
		close(w.ready)
	}
	l.mu.Unlock()

	select {
	case <-w.ready:
	case <-ctx.Done():
		l.abandon(w)
		return ctx.Err()
	}

	// Head of the queue: wait out the remainder of the interval.
	l.mu.Lock()
	wait := l.interval - time.Since(l.last)
	l.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			l.release()
			return ctx.Err()
		}
	}

	l.mu.Lock()
	l.last = time.Now()
	l.mu.Unlock()
	l.release()
	return nil
}

// release pops the head waiter and wakes the next live one.
func (l *Limiter) release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.queue = l.queue[1:]
	for len(l.queue) > 0 && l.queue[0].gone {
		l.queue = l.queue[1:]
	}
	if len(l.queue) > 0 {
		close(l.queue[0].ready)
	}
}

// abandon marks a queued waiter as cancelled. If the waiter was promoted
// to head between the cancellation and the lock, it must hand the grant
// on rather than leave the queue stalled.
func (l *Limiter) abandon(w *waiter) {
	l.mu.Lock()
	if len(l.queue) > 0 && l.queue[0] == w {
		l.mu.Unlock()
		l.release()
		return
	}
	w.gone = true
	l.mu.Unlock()
}
