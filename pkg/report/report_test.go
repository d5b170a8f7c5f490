package report

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/scholarmatch/pkg/entity"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/openalex"
)

func sampleResults() []entity.Result {
	return []entity.Result{
		{
			Query: entity.Query{DisplayName: "Jane A. Doe", Affiliation: "MIT", Country: "USA"},
			Kind:  entity.Person,
			Match: &entity.Record{
				ID:           "https://openalex.org/A5000000001",
				DisplayName:  "Jane Doe",
				Affiliations: []string{"Massachusetts Institute of Technology", "Harvard University"},
				Attributes:   map[string]string{"h_index": "42"},
			},
			Confidence: 0.87349,
			Stage:      "institution_filtered",
		},
		{
			Query:      entity.Query{DisplayName: "Nobody Known"},
			Kind:       entity.Person,
			Confidence: 0.31,
		},
		{
			Query: entity.Query{DisplayName: "Li Wei", Affiliation: "Tsinghua"},
			Kind:  entity.Person,
			Err:   errors.New("person stage name: boom"),
		},
	}
}

func TestRows(t *testing.T) {
	results := sampleResults()

	omit := Rows(results, OmitUnmatched)
	if len(omit) != 1 {
		t.Fatalf("OmitUnmatched rows = %d, want 1", len(omit))
	}
	want := Row{
		Index:        1,
		InputName:    "Jane A. Doe",
		ID:           "A5000000001",
		MatchedName:  "Jane Doe",
		URL:          "https://openalex.org/A5000000001",
		Attributes:   map[string]string{"h_index": "42"},
		Affiliations: []string{"Massachusetts Institute of Technology", "Harvard University"},
		Confidence:   0.87349,
		Stage:        "institution_filtered",
		Matched:      true,
	}
	if diff := cmp.Diff(want, omit[0]); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}

	all := Rows(results, IncludeUnmatched)
	if len(all) != 3 {
		t.Fatalf("IncludeUnmatched rows = %d, want 3", len(all))
	}
	if all[1].Matched || all[1].Index != 2 || all[1].Error != "" {
		t.Errorf("unmatched row = %+v", all[1])
	}
	if all[2].Error != "person stage name: boom" {
		t.Errorf("failed row error = %q", all[2].Error)
	}
}

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf)
	if err := w.Write(Rows(sampleResults(), IncludeUnmatched)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := "input_name,author_id,name,url,hindex,affiliations,confidence\n" +
		"Jane A. Doe,A5000000001,Jane Doe,https://openalex.org/A5000000001,42,Massachusetts Institute of Technology ; Harvard University,0.873\n" +
		"Nobody Known,,,,,,\n" +
		"Li Wei,,,,,,\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}

	// A second batch does not repeat the header.
	buf.Reset()
	if err := w.Write(Rows(sampleResults(), OmitUnmatched)); err != nil {
		t.Fatal(err)
	}
	if strings.HasPrefix(buf.String(), "input_name") {
		t.Errorf("header repeated: %q", buf.String())
	}
}

func TestFormatConfidence(t *testing.T) {
	tests := map[float64]string{0: "0", 0.5: "0.5", 0.87349: "0.873", 0.9996: "1", 0.4449: "0.445"}
	for in, want := range tests {
		if got := formatConfidence(in); got != want {
			t.Errorf("formatConfidence(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestSQLiteWriter(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", "matches.db")

	w, err := OpenSQLite(ctx, path, "run-1")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := w.Write(ctx, Rows(sampleResults(), IncludeUnmatched)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close() //nolint:errcheck // test

	var n, matched int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*), SUM(matched) FROM matches WHERE run_id = ?`, "run-1").Scan(&n, &matched); err != nil {
		t.Fatal(err)
	}
	if n != 3 || matched != 1 {
		t.Errorf("rows = %d matched = %d, want 3 and 1", n, matched)
	}

	var id, affs, errText string
	if err := db.QueryRowContext(ctx, `SELECT author_id, affiliations, error FROM matches WHERE row_index = 1`).Scan(&id, &affs, &errText); err != nil {
		t.Fatal(err)
	}
	if id != "A5000000001" || affs != "Massachusetts Institute of Technology ; Harvard University" || errText != "" {
		t.Errorf("row 1 = %q %q %q", id, affs, errText)
	}
}

func TestSummary(t *testing.T) {
	out := Summary(sampleResults())
	for _, want := range []string{"OUTCOME", "matched: institution_filtered", "no confident match", "failed", "total", "3"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "TOTAL") {
		t.Errorf("footer was upper-cased:\n%s", out)
	}
}

func TestWorksWriter(t *testing.T) {
	var buf bytes.Buffer
	ww, err := NewWorksWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	works := []openalex.Work{
		{ID: "W1", Title: "Deep, Learning", Year: 2021, CitedByCount: 7, LandingPage: "https://doi.org/10.1/x", PDF: "https://x/p.pdf", Abstract: "We study things."},
		{ID: "W2", Title: "Untitled"},
	}
	for _, w := range works {
		if err := ww.Write(w); err != nil {
			t.Fatal(err)
		}
	}
	if err := ww.Flush(); err != nil {
		t.Fatal(err)
	}
	want := "title,year,citation_count,conference_link,pdf_link,abstract\n" +
		"\"Deep, Learning\",2021,7,https://doi.org/10.1/x,https://x/p.pdf,We study things.\n" +
		"Untitled,,0,,,\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("works csv mismatch (-want +got):\n%s", diff)
	}
	if ww.Count() != 2 {
		t.Errorf("Count = %d, want 2", ww.Count())
	}
}

func TestWorksFileName(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"Jane A. Doe", "A5000000001", "jane-a-doe-A5000000001.csv"},
		{"  Hans Müller  ", "https://openalex.org/A7", "hans-muller-A7.csv"},
		{"O'Brien, Seán", "A12", "o-brien-sean-A12.csv"},
		{"Łukasz Øster", "A3", "lukasz-oster-A3.csv"},
		{"", "A9", "author-A9.csv"},
		{"李伟", "A10", "author-A10.csv"},
		{"Jane Doe", "", "jane-doe.csv"},
		{"Jane Doe", "../A1", "jane-doe-A1.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.id, func(t *testing.T) {
			if got := WorksFileName(tt.name, tt.id); got != tt.want {
				t.Errorf("WorksFileName(%q, %q) = %q, want %q", tt.name, tt.id, got, tt.want)
			}
		})
	}

	if a, b := WorksFileName("Wei Zhang", "A1"), WorksFileName("Wei Zhang", "A2"); a == b {
		t.Errorf("namesakes share file name %q", a)
	}
}
