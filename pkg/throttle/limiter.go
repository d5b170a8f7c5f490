// Package throttle paces and retries calls to remote directories.
package throttle

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Limiter enforces a minimum interval between calls that share a clock.
// Calls without a host share the default clock; hosts with an override get
// their own. It is safe for concurrent use from multiple goroutines.
type Limiter struct {
	logger   *slog.Logger
	override map[string]time.Duration // per-host minimum intervals
	next     map[string]time.Time     // earliest start of the next call per clock
	now      func() time.Time
	interval time.Duration
	mu       sync.Mutex
}

// NewLimiter creates a limiter allowing at most perSecond calls per second.
// A non-positive rate disables pacing.
func NewLimiter(perSecond float64, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var interval time.Duration
	if perSecond > 0 {
		interval = time.Duration(float64(time.Second) / perSecond)
	}
	return &Limiter{
		logger:   logger,
		override: make(map[string]time.Duration),
		next:     make(map[string]time.Time),
		now:      time.Now,
		interval: interval,
	}
}

// Interval returns the default minimum spacing between calls.
func (l *Limiter) Interval() time.Duration { return l.interval }

// SetHostInterval sets a custom minimum interval for one host.
func (l *Limiter) SetHostInterval(host string, d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.override[host] = d
}

// Wait blocks until the default clock allows another call.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.WaitHost(ctx, "")
}

// WaitHost blocks until the clock for host allows another call.
// The slot is reserved before sleeping, so concurrent callers queue in order.
// It returns the context error if ctx ends first, giving the slot back when
// no later caller has queued behind it.
func (l *Limiter) WaitHost(ctx context.Context, host string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	interval := l.interval
	clock := ""
	if d, ok := l.override[host]; ok {
		interval = d
		clock = host
	}
	now := l.now()
	slot := now
	if next, ok := l.next[clock]; ok && next.After(now) {
		slot = next
	}
	end := slot.Add(interval)
	l.next[clock] = end
	l.mu.Unlock()

	wait := slot.Sub(now)
	if wait <= 0 {
		return nil
	}
	l.logger.DebugContext(ctx, "rate limit pause", "host", host, "wait", wait.Round(time.Millisecond))

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		l.release(clock, slot, end)
		return ctx.Err()
	}
}

// release hands back an unused slot. Only the last reservation on a clock
// can be returned; later waiters already hold the slots after it.
func (l *Limiter) release(clock string, slot, end time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.next[clock].Equal(end) {
		l.next[clock] = slot
	}
}
