// Package roster reads committee rosters produced by the scraper.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/codeGROOVE-dev/scholarmatch/pkg/entity"
)

// Row is one roster line. Line is the 1-based data row number.
type Row struct {
	Name        string
	Role        string
	Affiliation string
	Country     string
	Line        int
}

// Query converts the row into a resolution query. Rows without a name
// yield entity.ErrInvalidRecord.
func (r Row) Query() (entity.Query, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return entity.Query{}, fmt.Errorf("row %d: %w: missing name", r.Line, entity.ErrInvalidRecord)
	}
	return entity.Query{
		DisplayName: name,
		Affiliation: strings.TrimSpace(r.Affiliation),
		Country:     strings.TrimSpace(r.Country),
	}, nil
}

// Read parses a roster CSV with a header row. Column names are matched
// case-insensitively; Name is required, Role, Affiliation and Country are
// optional.
func Read(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("roster: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("roster: read header: %w", err)
	}
	cols := columns(header)
	if _, ok := cols["name"]; !ok {
		return nil, fmt.Errorf("roster: missing required column %q", "Name")
	}

	var rows []Row
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("roster: row %d: %w", line, err)
		}
		if blank(rec) {
			continue
		}
		rows = append(rows, Row{
			Line:        line,
			Name:        field(rec, cols, "name"),
			Role:        field(rec, cols, "role"),
			Affiliation: field(rec, cols, "affiliation"),
			Country:     field(rec, cols, "country"),
		})
	}
}

// Author is one line of an author list: a display name and directory id.
type Author struct {
	Name string
	ID   string
}

// ReadAuthors parses a CSV with name and author_id columns, skipping rows
// missing either.
func ReadAuthors(r io.Reader) ([]Author, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("authors: read header: %w", err)
	}
	cols := columns(header)
	var missing []string
	for _, c := range []string{"name", "author_id"} {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("authors: missing required columns: %s", strings.Join(missing, ", "))
	}

	var out []Author
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("authors: row %d: %w", line, err)
		}
		a := Author{Name: field(rec, cols, "name"), ID: field(rec, cols, "author_id")}
		if a.Name == "" || a.ID == "" {
			continue
		}
		out = append(out, a)
	}
}

func columns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	return cols
}

func field(rec []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
