package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/codeGROOVE-dev/scholarmatch/pkg/normalize"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/openalex"
)

// WorksHeader is the works CSV column order.
var WorksHeader = []string{"title", "year", "citation_count", "conference_link", "pdf_link", "abstract"}

// WorksWriter streams one author's works as CSV.
type WorksWriter struct {
	w     *csv.Writer
	count int
}

// NewWorksWriter writes the header to w and returns the writer.
func NewWorksWriter(w io.Writer) (*WorksWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(WorksHeader); err != nil {
		return nil, fmt.Errorf("write works header: %w", err)
	}
	return &WorksWriter{w: cw}, nil
}

// Write appends one work. It fits openalex.Client.Works as a visitor.
func (ww *WorksWriter) Write(w openalex.Work) error {
	year := ""
	if w.Year > 0 {
		year = strconv.Itoa(w.Year)
	}
	if err := ww.w.Write([]string{w.Title, year, strconv.Itoa(w.CitedByCount), w.LandingPage, w.PDF, w.Abstract}); err != nil {
		return fmt.Errorf("write work %s: %w", w.ID, err)
	}
	ww.count++
	return nil
}

// Count returns the number of works written.
func (ww *WorksWriter) Count() int { return ww.count }

// Flush flushes buffered rows.
func (ww *WorksWriter) Flush() error {
	ww.w.Flush()
	return ww.w.Error()
}

// WorksFileName returns a file name for an author's works CSV: the
// transliterated name with runs of other characters collapsed to dashes,
// suffixed with the short author id so namesakes do not collide.
func WorksFileName(name, id string) string {
	var b strings.Builder
	dash := false
	for _, r := range normalize.Normalize(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		b.WriteString("author")
	}
	if short := fileSafe(openalex.ShortID(id)); short != "" {
		b.WriteByte('-')
		b.WriteString(short)
	}
	return b.String() + ".csv"
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, s)
}
