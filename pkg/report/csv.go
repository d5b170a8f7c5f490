package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Header is the match CSV column order.
var Header = []string{"input_name", "author_id", "name", "url", "hindex", "affiliations", "confidence"}

const affiliationSep = " ; "

// CSVWriter writes match rows as CSV.
type CSVWriter struct {
	w           *csv.Writer
	wroteHeader bool
}

// NewCSVWriter returns a writer emitting to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// Write writes rows, preceded by the header on first use, and flushes.
func (c *CSVWriter) Write(rows []Row) error {
	if !c.wroteHeader {
		if err := c.w.Write(Header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		c.wroteHeader = true
	}
	for i := range rows {
		if err := c.w.Write(record(&rows[i])); err != nil {
			return fmt.Errorf("write row %d: %w", rows[i].Index, err)
		}
	}
	c.w.Flush()
	return c.w.Error()
}

func record(r *Row) []string {
	if !r.Matched {
		return []string{r.InputName, "", "", "", "", "", ""}
	}
	return []string{
		r.InputName,
		r.ID,
		r.MatchedName,
		r.URL,
		r.HIndex(),
		strings.Join(r.Affiliations, affiliationSep),
		formatConfidence(r.Confidence),
	}
}
