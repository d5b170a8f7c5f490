package throttle

import (
	"context"
	"log/slog"

	"github.com/codeGROOVE-dev/scholarmatch/pkg/entity"
)

// Throttle pairs a shared limiter with a retry policy. Every attempt,
// including retries, waits on the limiter.
type Throttle struct {
	limiter *Limiter
	logger  *slog.Logger
	policy  Policy
}

// New creates a Throttle. A nil limiter disables pacing.
func New(limiter *Limiter, policy Policy, logger *slog.Logger) *Throttle {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Throttle{limiter: limiter, policy: policy, logger: logger}
}

// Do paces and retries fn.
func (t *Throttle) Do(ctx context.Context, fn func(context.Context) error) error {
	return Do(ctx, t.policy, t.logger, func(ctx context.Context) error {
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		return fn(ctx)
	})
}

// Source decorates an entity.Source with pacing and retries.
type Source struct {
	next     entity.Source
	throttle *Throttle
}

// NewSource wraps next so that every search goes through t.
func NewSource(next entity.Source, t *Throttle) *Source {
	return &Source{next: next, throttle: t}
}

// Search implements entity.Source.
func (s *Source) Search(ctx context.Context, req entity.SearchRequest) (*entity.Page, error) {
	var page *entity.Page
	err := s.throttle.Do(ctx, func(ctx context.Context) error {
		var err error
		page, err = s.next.Search(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}
