package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codeGROOVE-dev/scholarmatch/pkg/openalex"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/report"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/roster"
)

type worksOptions struct {
	outDir  string
	yearMin int
}

func newWorksCommand(ctx *commandContext) *cobra.Command {
	var opts worksOptions
	cmd := &cobra.Command{
		Use:   "works <authors.csv>",
		Short: "Collect publications for matched authors, one CSV per author",
		Long: "Reads a CSV with name and author_id columns, such as the output of resolve,\n" +
			"and writes each author's works to <out-dir>/<author-name>-<author-id>.csv.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runWorks(cmd.Context(), args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.outDir, "out-dir", "works", "Directory for per-author CSV files")
	cmd.Flags().IntVar(&opts.yearMin, "year-min", 0, "Only include works published in or after this year")
	return cmd
}

func (c *commandContext) runWorks(ctx context.Context, authorsPath string, opts worksOptions) error {
	if opts.yearMin < 0 {
		return fmt.Errorf("invalid --year-min %d", opts.yearMin)
	}
	f, err := os.Open(authorsPath)
	if err != nil {
		return fmt.Errorf("open authors: %w", err)
	}
	authors, err := roster.ReadAuthors(f)
	_ = f.Close() //nolint:errcheck // read-only
	if err != nil {
		return fmt.Errorf("%s: %w", authorsPath, err)
	}
	if len(authors) == 0 {
		return fmt.Errorf("%s: no rows with both name and author_id", authorsPath)
	}

	if err := os.MkdirAll(opts.outDir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	hc := c.httpCache()
	defer c.closeHTTPCache(hc)
	client, err := c.newClient(hc, openalex.WithThrottle(c.newThrottle()))
	if err != nil {
		return err
	}

	var failed []error
	for _, a := range authors {
		path := filepath.Join(opts.outDir, report.WorksFileName(a.Name, a.ID))
		n, err := writeAuthorWorks(ctx, client, a, opts.yearMin, path)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.WarnContext(ctx, "works collection failed", "author", a.Name, "id", a.ID, "error", err)
			failed = append(failed, fmt.Errorf("%s (%s): %w", a.Name, a.ID, err))
			continue
		}
		c.logger.InfoContext(ctx, "works written", "author", a.Name, "id", a.ID, "works", n, "path", path)
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d authors failed: %w", len(failed), len(authors), errors.Join(failed...))
	}
	return nil
}

func writeAuthorWorks(ctx context.Context, client *openalex.Client, a roster.Author, yearMin int, path string) (n int, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	ww, err := report.NewWorksWriter(f)
	if err != nil {
		return 0, err
	}
	if err := client.Works(ctx, a.ID, openalex.WorksOptions{YearMin: yearMin}, ww.Write); err != nil {
		return ww.Count(), err
	}
	return ww.Count(), ww.Flush()
}
