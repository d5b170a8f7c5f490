package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/codeGROOVE-dev/scholarmatch/pkg/cache"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/config"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/entity"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/report"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/resolve"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/roster"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/score"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/throttle"
)

type resolveOptions struct {
	out              string
	sqlite           string
	includeUnmatched bool
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var opts resolveOptions
	cmd := &cobra.Command{
		Use:   "resolve <roster.csv>",
		Short: "Resolve roster rows to OpenAlex authors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runResolve(cmd.Context(), args[0], opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.out, "out", "o", "openalex_matches.csv", "Output CSV path, or - for stdout")
	cmd.Flags().StringVar(&opts.sqlite, "sqlite", "", "Also write matches to this SQLite database")
	cmd.Flags().BoolVar(&opts.includeUnmatched, "include-unmatched", false, "Write a row for every input, matched or not")
	return cmd
}

func (c *commandContext) runResolve(ctx context.Context, rosterPath string, opts resolveOptions, stdout io.Writer) error {
	logger := c.logger

	queries, err := c.readQueries(rosterPath)
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		return fmt.Errorf("%s: no rows with a name", rosterPath)
	}

	hc := c.httpCache()
	defer c.closeHTTPCache(hc)
	client, err := c.newClient(hc)
	if err != nil {
		return err
	}
	src := throttle.NewSource(client, c.newThrottle())

	institutions, closeStore, err := c.institutionCache(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	countries := c.config.CountryMapper()
	engine, err := resolve.New(src,
		resolve.WithConfig(c.config.ResolveConfig()),
		resolve.WithLogger(logger),
		resolve.WithCountries(countries),
		resolve.WithScorer(score.New(c.config.Weights, countries)),
		resolve.WithCache(institutions),
	)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "resolving roster", "path", rosterPath, "rows", len(queries))
	results := engine.ResolveAll(ctx, queries)
	if err := ctx.Err(); err != nil {
		return err
	}

	policy := report.OmitUnmatched
	if opts.includeUnmatched {
		policy = report.IncludeUnmatched
	}
	rows := report.Rows(results, policy)

	if err := writeMatches(opts.out, rows, stdout); err != nil {
		return err
	}
	if opts.sqlite != "" {
		if err := c.writeMatchesDB(ctx, opts.sqlite, rows); err != nil {
			return err
		}
	}

	stats := engine.CacheStats()
	matched := 0
	for i := range results {
		if results[i].Resolved() {
			matched++
		}
	}
	logger.InfoContext(ctx, "roster resolved",
		"rows", len(results), "matched", matched, "written", len(rows), "out", opts.out,
		"institution_cache_hits", stats.Hits, "institution_cache_misses", stats.Misses)

	if opts.out != "-" && isTerminal(stdout) {
		fmt.Fprintln(stdout, report.Summary(results))
	}
	return nil
}

func (c *commandContext) readQueries(path string) ([]entity.Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	rows, err := roster.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	queries := make([]entity.Query, 0, len(rows))
	for _, row := range rows {
		q, err := row.Query()
		if err != nil {
			c.logger.Warn("skipping roster row", "path", path, "line", row.Line, "error", err)
			continue
		}
		queries = append(queries, q)
	}
	return queries, nil
}

// institutionCache opens the configured persistent cache, or an in-memory one.
func (c *commandContext) institutionCache(ctx context.Context) (*cache.InstitutionCache, func(), error) {
	path := c.config.Cache.SQLitePath
	if path == "" {
		ic, err := cache.New(ctx, cache.WithLogger(c.logger))
		return ic, func() {}, err
	}

	store, err := cache.OpenSQLite(ctx, path)
	if errors.Is(err, cache.ErrLocked) {
		return nil, nil, fmt.Errorf("%w; is another scholarmatch run using it?", err)
	}
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			c.logger.Warn("failed to close institution cache", "path", path, "error", err)
		}
	}
	ic, err := cache.New(ctx, cache.WithStore(store), cache.WithLogger(c.logger))
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	c.logger.Debug("institution cache loaded", "path", path, "entries", ic.Len())
	return ic, closeStore, nil
}

func writeMatches(path string, rows []report.Row, stdout io.Writer) (err error) {
	var w io.Writer = stdout
	if path != "-" {
		f, cerr := os.Create(path)
		if cerr != nil {
			return fmt.Errorf("create output: %w", cerr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close output: %w", cerr)
			}
		}()
		w = f
	}
	if err := report.NewCSVWriter(w).Write(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (c *commandContext) writeMatchesDB(ctx context.Context, path string, rows []report.Row) error {
	path, err := config.ExpandPath(path)
	if err != nil {
		return err
	}
	db, err := report.OpenSQLite(ctx, path, c.runID)
	if err != nil {
		return err
	}
	if err := db.Write(ctx, rows); err != nil {
		_ = db.Close() //nolint:errcheck // write error wins
		return fmt.Errorf("write %s: %w", path, err)
	}
	return db.Close()
}
