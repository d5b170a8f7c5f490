package openalex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// WorksOptions narrows a works listing.
type WorksOptions struct {
	YearMin int // Earliest publication year; 0 for all years
	PerPage int // Page size; 0 for the maximum
}

// Work is one publication of an author.
type Work struct {
	ID           string
	Title        string
	LandingPage  string
	PDF          string
	Abstract     string
	Year         int
	CitedByCount int
}

type location struct {
	LandingPageURL string `json:"landing_page_url"`
	PDFURL         string `json:"pdf_url"`
}

type work struct {
	InvertedAbstract map[string][]int `json:"abstract_inverted_index"`
	PrimaryLocation  *location        `json:"primary_location"`
	BestOALocation   *location        `json:"best_oa_location"`
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	DOI              string           `json:"doi"`
	PublicationYear  int              `json:"publication_year"`
	CitedByCount     int              `json:"cited_by_count"`
}

// Works lists every work of authorID, newest first, draining cursor
// pagination. visit is called once per work; an error from visit stops the
// listing and is returned.
func (c *Client) Works(ctx context.Context, authorID string, opts WorksOptions, visit func(Work) error) error {
	short := ShortID(authorID)
	if short == "" {
		return fmt.Errorf("openalex works: %w", errEmptyQuery)
	}

	filter := "author.id:" + short
	if opts.YearMin > 0 {
		filter += fmt.Sprintf(",from_publication_date:%04d-01-01", opts.YearMin)
	}
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = maxPageSize
	}

	cursor := "*"
	for pages := 0; ; pages++ {
		params := url.Values{}
		params.Set("filter", filter)
		params.Set("per_page", strconv.Itoa(pageSize(perPage)))
		params.Set("sort", "publication_year:desc")
		params.Set("cursor", cursor)

		var resp listResponse[work]
		if err := c.getJSON(ctx, "/works", params, &resp); err != nil {
			return err
		}
		if pages == 0 {
			c.logger.InfoContext(ctx, "collecting works", "author", short, "count", resp.Meta.Count)
		}
		for i := range resp.Results {
			if err := visit(resp.Results[i].toWork()); err != nil {
				return err
			}
		}

		next := resp.Meta.NextCursor
		if next == "" || next == cursor || len(resp.Results) == 0 {
			return nil
		}
		cursor = next
	}
}

func (w *work) toWork() Work {
	out := Work{
		ID:           w.ID,
		Title:        strings.Join(strings.Fields(w.Title), " "),
		Year:         w.PublicationYear,
		CitedByCount: w.CitedByCount,
		Abstract:     ReconstructAbstract(w.InvertedAbstract),
	}

	doi := strings.TrimSpace(w.DOI)
	if doi != "" && !strings.HasPrefix(doi, "http") {
		doi = "https://doi.org/" + doi
	}
	if w.PrimaryLocation != nil {
		out.LandingPage = w.PrimaryLocation.LandingPageURL
	}
	if out.LandingPage == "" {
		out.LandingPage = doi
	}

	if w.BestOALocation != nil {
		out.PDF = w.BestOALocation.PDFURL
	}
	if out.PDF == "" && w.PrimaryLocation != nil {
		out.PDF = w.PrimaryLocation.PDFURL
	}
	return out
}

const maxAbstractWords = 1 << 14

// ReconstructAbstract rebuilds text from an inverted index mapping each word
// to its positions. Positions beyond maxAbstractWords are ignored.
func ReconstructAbstract(idx map[string][]int) string {
	if len(idx) == 0 {
		return ""
	}
	last := -1
	for _, positions := range idx {
		for _, p := range positions {
			if p < maxAbstractWords {
				last = max(last, p)
			}
		}
	}
	if last < 0 {
		return ""
	}
	words := make([]string, last+1)
	for word, positions := range idx {
		for _, p := range positions {
			if p >= 0 && p <= last {
				words[p] = word
			}
		}
	}
	return strings.Join(strings.Fields(strings.Join(words, " ")), " ")
}
