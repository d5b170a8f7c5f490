package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/codeGROOVE-dev/scholarmatch/pkg/cache"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/country"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/entity"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/normalize"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/openalex"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/score"
)

// Engine resolves queries against a Source. It is safe for concurrent use.
type Engine struct {
	src          entity.Source
	scorer       *score.Scorer
	countries    *country.Mapper
	institutions *cache.InstitutionCache
	logger       *slog.Logger
	instStages   []Strategy
	personStages []Strategy
	cfg          Config
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets thresholds, page size, and concurrency.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithScorer replaces the default scorer.
func WithScorer(s *score.Scorer) Option {
	return func(e *Engine) { e.scorer = s }
}

// WithCache shares an institution cache, for example one backed by a store.
func WithCache(c *cache.InstitutionCache) Option {
	return func(e *Engine) { e.institutions = c }
}

// WithCountries sets the country table used for filters and cache keys.
func WithCountries(m *country.Mapper) Option {
	return func(e *Engine) { e.countries = m }
}

// WithInstitutionStrategies replaces the institution cascade.
func WithInstitutionStrategies(s []Strategy) Option {
	return func(e *Engine) { e.instStages = s }
}

// WithPersonStrategies replaces the person cascade.
func WithPersonStrategies(s []Strategy) Option {
	return func(e *Engine) { e.personStages = s }
}

// New creates an Engine searching src.
func New(src entity.Source, opts ...Option) (*Engine, error) {
	if src == nil {
		return nil, errors.New("resolve: nil source")
	}
	e := &Engine{
		src:          src,
		cfg:          DefaultConfig(),
		logger:       slog.Default(),
		instStages:   InstitutionStrategies(),
		personStages: PersonStrategies(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	if e.countries == nil {
		e.countries = country.Default()
	}
	if e.scorer == nil {
		e.scorer = score.New(score.DefaultWeights(), e.countries)
	}
	if e.institutions == nil {
		c, err := cache.New(context.Background(), cache.WithLogger(e.logger))
		if err != nil {
			return nil, err
		}
		e.institutions = c
	}
	return e, nil
}

// Config returns the configuration in use.
func (e *Engine) Config() Config { return e.cfg }

// CacheStats returns institution cache hit/miss counts.
func (e *Engine) CacheStats() cache.Stats { return e.institutions.Stats() }

// ResolveInstitution resolves the affiliation of q. Results are memoized by
// normalized affiliation and country, including misses; failed lookups are
// not memoized. An empty affiliation is unresolved without any search.
func (e *Engine) ResolveInstitution(ctx context.Context, q entity.Query) entity.Result {
	key := cache.NewKey(q.Affiliation, q.Country, e.countries)
	if key.Affiliation == "" {
		return entity.Result{Query: q, Kind: entity.Institution}
	}

	entry, err := e.institutions.GetOrResolve(ctx, key, func(ctx context.Context) (cache.Entry, error) {
		res := e.cascade(ctx, entity.Institution, e.instStages, e.cfg.InstitutionThreshold,
			Input{Query: q, CountryCode: key.Country})
		if !res.Resolved() {
			if res.Err != nil {
				return cache.Entry{}, res.Err
			}
			return cache.Entry{Confidence: res.Confidence}, nil
		}
		return cache.Entry{
			ID:         res.Match.ID,
			Name:       res.Match.DisplayName,
			Stage:      res.Stage,
			Confidence: res.Confidence,
			Found:      true,
		}, nil
	})

	res := entity.Result{Query: q, Kind: entity.Institution, Err: err}
	if err == nil && entry.Found {
		res.Match = &entity.Record{ID: entry.ID, URL: entry.ID, DisplayName: entry.Name}
		res.Confidence = entry.Confidence
		res.Stage = entry.Stage
	}
	return res
}

// ResolvePerson resolves q to a person. The accepted institution, if any,
// constrains the first person stage. A blank display name yields an
// unresolved result carrying entity.ErrInvalidRecord.
func (e *Engine) ResolvePerson(ctx context.Context, q entity.Query) entity.Result {
	if normalize.Normalize(q.DisplayName) == "" {
		return entity.Result{
			Query: q,
			Kind:  entity.Person,
			Err:   fmt.Errorf("%w: missing display name", entity.ErrInvalidRecord),
		}
	}

	inst := e.ResolveInstitution(ctx, q)
	in := Input{Query: q}
	in.CountryCode, _ = e.countries.ToISO2(q.Country)
	if inst.Resolved() {
		if id, ok := openalex.InstitutionFilterValue(inst.Match.ID); ok {
			in.InstitutionID = id
		} else {
			e.logger.WarnContext(ctx, "institution id not usable as filter", "id", inst.Match.ID)
		}
	}

	res := e.cascade(ctx, entity.Person, e.personStages, e.cfg.PersonThreshold, in)
	if !res.Resolved() && res.Err == nil && inst.Err != nil {
		res.Err = inst.Err
	}
	return res
}

// ResolveAll resolves every query as a person with bounded concurrency.
// Results are in input order. Per-record failures are reported on the
// result and never stop the batch.
func (e *Engine) ResolveAll(ctx context.Context, queries []entity.Query) []entity.Result {
	results := make([]entity.Result, len(queries))

	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for i, q := range queries {
		g.Go(func() error {
			rctx := ctx
			if e.cfg.RecordTimeout > 0 {
				var cancel context.CancelFunc
				rctx, cancel = context.WithTimeout(ctx, e.cfg.RecordTimeout)
				defer cancel()
			}

			res := e.ResolvePerson(rctx, q)
			if !res.Resolved() && res.Err == nil && rctx.Err() != nil {
				res.Err = rctx.Err()
			}
			e.logResult(ctx, i, &res)
			results[i] = res
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never fail

	return results
}

func (e *Engine) logResult(ctx context.Context, idx int, res *entity.Result) {
	name := strings.TrimSpace(res.Query.DisplayName)
	switch {
	case res.Resolved():
		e.logger.InfoContext(ctx, "resolved",
			"row", idx+1, "name", name, "id", openalex.ShortID(res.Match.ID),
			"matched", res.Match.DisplayName, "confidence", res.Confidence, "stage", res.Stage)
	case res.Err != nil:
		e.logger.WarnContext(ctx, "unresolved", "row", idx+1, "name", name, "error", res.Err)
	default:
		e.logger.InfoContext(ctx, "no confident match", "row", idx+1, "name", name, "best", res.Confidence)
	}
}
