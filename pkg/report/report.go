// Package report writes resolution results as CSV, SQLite rows, and a
// terminal summary.
package report

import (
	"math"
	"strconv"
	"strings"

	"github.com/codeGROOVE-dev/scholarmatch/pkg/entity"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/openalex"
)

// Policy decides which results become output rows.
type Policy int

const (
	// OmitUnmatched writes only accepted matches.
	OmitUnmatched Policy = iota
	// IncludeUnmatched writes every input, with empty match fields when unresolved.
	IncludeUnmatched
)

// Row is one output line.
type Row struct {
	Attributes   map[string]string
	InputName    string
	ID           string // Short id, e.g. A5023888391
	MatchedName  string
	URL          string // Full canonical id
	Stage        string
	Error        string
	Affiliations []string
	Confidence   float64
	Index        int // 1-based input position
	Matched      bool
}

// HIndex returns the h-index attribute, or "" when absent.
func (r Row) HIndex() string { return r.Attributes["h_index"] }

// NewRow builds a row from the result at 0-based position idx.
func NewRow(idx int, res entity.Result) Row {
	row := Row{
		Index:     idx + 1,
		InputName: strings.TrimSpace(res.Query.DisplayName),
	}
	if res.Err != nil && !res.Resolved() {
		row.Error = res.Err.Error()
	}
	if !res.Resolved() {
		return row
	}
	m := res.Match
	row.Matched = true
	row.ID = openalex.ShortID(m.ID)
	row.URL = m.ID
	row.MatchedName = m.DisplayName
	row.Attributes = m.Attributes
	row.Affiliations = m.Affiliations
	row.Confidence = res.Confidence
	row.Stage = res.Stage
	return row
}

// Rows converts results, in order, applying p.
func Rows(results []entity.Result, p Policy) []Row {
	rows := make([]Row, 0, len(results))
	for i := range results {
		if p == OmitUnmatched && !results[i].Resolved() {
			continue
		}
		rows = append(rows, NewRow(i, results[i]))
	}
	return rows
}

// formatConfidence rounds to three decimals.
func formatConfidence(c float64) string {
	return strconv.FormatFloat(math.Round(c*1000)/1000, 'f', -1, 64)
}
