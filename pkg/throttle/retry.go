package throttle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/codeGROOVE-dev/scholarmatch/pkg/entity"
)

// Policy is a retry budget for transient failures.
type Policy struct {
	Attempts uint          // Total attempts including the first; 0 means 1
	Delay    time.Duration // Base delay before the first retry
	MaxDelay time.Duration // Upper bound on any single delay; 0 means unbounded
	Backoff  bool          // Grow the delay exponentially instead of keeping it fixed
}

// DefaultPolicy matches the directory's polite-use guidance.
func DefaultPolicy() Policy {
	return Policy{
		Attempts: 4,
		Delay:    1200 * time.Millisecond,
		MaxDelay: 10 * time.Second,
		Backoff:  true,
	}
}

// Do runs fn until it succeeds, returns a non-transient error, or the budget
// is spent. A spent budget is reported as entity.ErrPermanent wrapping the
// last error; other errors are returned as-is.
func Do(ctx context.Context, p Policy, logger *slog.Logger, fn func(context.Context) error) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	attempts := max(p.Attempts, 1)

	delayType := retry.FixedDelay
	if p.Backoff {
		delayType = retry.BackOffDelay
	}
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(p.Delay),
		retry.DelayType(delayType),
		retry.LastErrorOnly(true),
		retry.RetryIf(entity.IsTransient),
		retry.OnRetry(func(n uint, err error) {
			logger.DebugContext(ctx, "retrying source call", "attempt", n+1, "error", err)
		}),
	}
	if p.MaxDelay > 0 {
		opts = append(opts, retry.MaxDelay(p.MaxDelay))
	}

	var calls uint
	err := retry.Do(func() error {
		calls++
		return fn(ctx)
	}, opts...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	if entity.IsTransient(err) && calls >= attempts {
		return fmt.Errorf("%w: gave up after %d attempts: %w", entity.ErrPermanent, calls, err)
	}
	return err
}
