package roster

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/scholarmatch/pkg/entity"
)

func TestRead(t *testing.T) {
	in := "\uFEFFName,Role,Affiliation,Country\n" +
		"Jane A. Doe,PC Chair,MIT,USA\n" +
		"  Hans Müller , Member ,\"Technische Universität München\",Deutschland\n" +
		",Member,Nowhere,FR\n" +
		"\n" +
		"Li Wei,Member\n"

	rows, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []Row{
		{Line: 1, Name: "Jane A. Doe", Role: "PC Chair", Affiliation: "MIT", Country: "USA"},
		{Line: 2, Name: "Hans Müller", Role: "Member", Affiliation: "Technische Universität München", Country: "Deutschland"},
		{Line: 3, Role: "Member", Affiliation: "Nowhere", Country: "FR"},
		{Line: 4, Name: "Li Wei", Role: "Member"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("Read mismatch (-want +got):\n%s", diff)
	}
}

func TestReadHeaderCaseAndOrder(t *testing.T) {
	rows, err := Read(strings.NewReader("COUNTRY,name\nCH,Ada\n"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff([]Row{{Line: 1, Name: "Ada", Country: "CH"}}, rows); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestReadErrors(t *testing.T) {
	for name, in := range map[string]string{
		"empty":          "",
		"no name column": "Role,Affiliation\nChair,MIT\n",
		"bad quoting":    "Name\n\"unterminated\n",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(in)); err == nil {
				t.Error("Read succeeded, want error")
			}
		})
	}
}

func TestRowQuery(t *testing.T) {
	q, err := Row{Line: 1, Name: " Jane Doe ", Affiliation: " MIT ", Country: " US "}.Query()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(entity.Query{DisplayName: "Jane Doe", Affiliation: "MIT", Country: "US"}, q); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	if _, err := (Row{Line: 7, Name: "   "}).Query(); !errors.Is(err, entity.ErrInvalidRecord) {
		t.Errorf("blank name err = %v, want ErrInvalidRecord", err)
	}
}

func TestReadAuthors(t *testing.T) {
	in := "input_name,author_id,name,url\n" +
		"Jane A. Doe,A5000000001,Jane Doe,https://openalex.org/A5000000001\n" +
		"Nobody,,Nobody,\n" +
		"Hans,A7,Hans Müller,\n"
	got, err := ReadAuthors(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadAuthors: %v", err)
	}
	want := []Author{{Name: "Jane Doe", ID: "A5000000001"}, {Name: "Hans Müller", ID: "A7"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	if _, err := ReadAuthors(strings.NewReader("name\nx\n")); err == nil || !strings.Contains(err.Error(), "author_id") {
		t.Errorf("missing column err = %v", err)
	}
}
