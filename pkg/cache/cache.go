// Package cache memoizes institution resolutions for the lifetime of a run.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/codeGROOVE-dev/scholarmatch/pkg/country"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/normalize"
)

// Key identifies an institution lookup.
type Key struct {
	Affiliation string // Normalized affiliation text
	Country     string // ISO2 code, empty when unknown
}

// NewKey builds a key from raw affiliation and country text.
func NewKey(affiliation, countryText string, countries *country.Mapper) Key {
	if countries == nil {
		countries = country.Default()
	}
	code, _ := countries.ToISO2(countryText)
	return Key{Affiliation: normalize.Normalize(affiliation), Country: code}
}

func (k Key) String() string { return k.Affiliation + "\x00" + k.Country }

// Entry is a memoized resolution. Found is false for a cached miss.
type Entry struct {
	ID         string  `json:"id,omitempty"`
	Name       string  `json:"name,omitempty"`
	Stage      string  `json:"stage,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Found      bool    `json:"found"`
}

// Store persists entries across runs.
type Store interface {
	Load(ctx context.Context) (map[Key]Entry, error)
	Save(ctx context.Context, key Key, e Entry) error
}

// Stats holds cache hit/miss statistics.
type Stats struct {
	Hits   int64
	Misses int64
}

// HitRate returns the cache hit rate as a percentage (0-100).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// InstitutionCache computes each key at most once, even under concurrency.
// Entries are write-once: the first resolution wins.
type InstitutionCache struct {
	store   Store
	logger  *slog.Logger
	entries map[Key]Entry
	group   singleflight.Group
	hits    atomic.Int64
	misses  atomic.Int64
	mu      sync.RWMutex
}

// Option configures an InstitutionCache.
type Option func(*InstitutionCache)

// WithStore persists entries through s.
func WithStore(s Store) Option {
	return func(c *InstitutionCache) { c.store = s }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *InstitutionCache) { c.logger = logger }
}

// New creates a cache, preloading entries from the store if one is set.
func New(ctx context.Context, opts ...Option) (*InstitutionCache, error) {
	c := &InstitutionCache{
		logger:  slog.New(slog.DiscardHandler),
		entries: make(map[Key]Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store != nil {
		loaded, err := c.store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load cache: %w", err)
		}
		for k, e := range loaded {
			c.entries[k] = e
		}
		c.logger.DebugContext(ctx, "institution cache loaded", "entries", len(loaded))
	}
	return c, nil
}

// Get returns the entry for key if one has been recorded.
func (c *InstitutionCache) Get(key Key) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

// Len returns the number of recorded entries.
func (c *InstitutionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit/miss counts.
func (c *InstitutionCache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// GetOrResolve returns the entry for key, calling resolve only if no entry
// exists. Concurrent callers for the same key share one call. Errors are
// returned to every waiting caller and are not cached.
func (c *InstitutionCache) GetOrResolve(ctx context.Context, key Key, resolve func(context.Context) (Entry, error)) (Entry, error) {
	if e, ok := c.Get(key); ok {
		c.hits.Add(1)
		return e, nil
	}

	var computed bool
	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		// A caller may have finished between our lookup and claiming the key.
		if e, ok := c.Get(key); ok {
			return e, nil
		}
		computed = true
		c.misses.Add(1)
		e, err := resolve(ctx)
		if err != nil {
			return Entry{}, err
		}
		return c.put(ctx, key, e), nil
	})
	if !computed {
		c.hits.Add(1)
	}
	if err != nil {
		return Entry{}, err
	}
	e, ok := v.(Entry)
	if !ok {
		return Entry{}, fmt.Errorf("cache: unexpected value %T", v)
	}
	return e, nil
}

// put records e unless key already has an entry, and returns the winner.
func (c *InstitutionCache) put(ctx context.Context, key Key, e Entry) Entry {
	c.mu.Lock()
	if prior, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return prior
	}
	c.entries[key] = e
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Save(ctx, key, e); err != nil {
			c.logger.WarnContext(ctx, "persist cache entry failed", "key", key.String(), "error", err)
		}
	}
	return e
}
