package main

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/codeGROOVE-dev/scholarmatch/pkg/config"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/httpcache"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/openalex"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/throttle"
)

type commandContext struct {
	configFlag *string
	debugFlag  *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
	logger     *slog.Logger
	runID      string
}

func newCommandContext(configFlag *string, debugFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		debugFlag:  debugFlag,
		runID:      uuid.NewString(),
	}
}

// ensureConfig loads the configuration once and builds the run logger on logOut.
func (c *commandContext) ensureConfig(logOut io.Writer) (*config.Config, error) {
	c.configOnce.Do(func() {
		level := slog.LevelInfo
		if c.debugFlag != nil && *c.debugFlag {
			level = slog.LevelDebug
		}
		c.logger = slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level})).
			With("run_id", c.runID)

		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.logger.Debug("configuration loaded", "path", resolved, "exists", exists)
		c.config = cfg
	})
	return c.config, c.configErr
}

// httpCache opens the response cache, or returns nil when caching is off
// or unavailable.
func (c *commandContext) httpCache() *httpcache.Cache {
	ttl := c.config.HTTPCacheTTL()
	if ttl <= 0 {
		return nil
	}
	var hc *httpcache.Cache
	var err error
	if dir := c.config.OpenAlex.HTTPCacheDir; dir != "" {
		hc, err = httpcache.NewWithPath(ttl, dir)
	} else {
		hc, err = httpcache.New(ttl)
	}
	if err != nil {
		c.logger.Warn("failed to initialize cache, continuing without cache", "error", err)
		return nil
	}
	c.logger.Debug("HTTP cache initialized", "ttl", ttl.String())
	return hc
}

func (c *commandContext) closeHTTPCache(hc *httpcache.Cache) {
	if hc == nil {
		return
	}
	if err := hc.Close(); err != nil {
		c.logger.Warn("failed to close cache", "error", err)
	}
	stats := httpcache.CacheStats()
	c.logger.Debug("HTTP cache stats", "hits", stats.Hits, "misses", stats.Misses, "hit_rate", stats.HitRate())
}

// newThrottle builds the pacing and retry wrapper for directory calls.
func (c *commandContext) newThrottle() *throttle.Throttle {
	limiter := throttle.NewLimiter(c.config.Throttle.CallsPerSecond, c.logger)
	return throttle.New(limiter, c.config.RetryPolicy(), c.logger)
}

// newClient builds an OpenAlex client from the configuration.
func (c *commandContext) newClient(hc *httpcache.Cache, extra ...openalex.Option) (*openalex.Client, error) {
	cfg := c.config.OpenAlex
	opts := []openalex.Option{
		openalex.WithBaseURL(cfg.BaseURL),
		openalex.WithHTTPClient(&http.Client{Timeout: c.config.HTTPTimeout()}),
		openalex.WithLogger(c.logger),
		openalex.WithMailto(cfg.Mailto),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, openalex.WithUserAgent(cfg.UserAgent))
	}
	if hc != nil {
		opts = append(opts, openalex.WithHTTPCache(hc))
	}
	if cfg.Mailto == "" {
		c.logger.Warn("no mailto configured; set OPENALEX_MAILTO to join the polite pool")
	}
	return openalex.New(append(opts, extra...)...)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
