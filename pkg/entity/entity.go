// Package entity defines the common types for directory entity resolution.
package entity

import (
	"context"
	"strings"
)

// Kind identifies which directory collection a query resolves against.
type Kind int

// Entity kinds.
const (
	Institution Kind = iota + 1
	Person
)

func (k Kind) String() string {
	switch k {
	case Institution:
		return "institution"
	case Person:
		return "person"
	default:
		return "unknown"
	}
}

// Query is one input row to resolve. It is never mutated after creation.
type Query struct {
	DisplayName string `json:"display_name"`
	Affiliation string `json:"affiliation,omitempty"`
	Country     string `json:"country,omitempty"`
}

// Record is a candidate returned by a directory source.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Record struct {
	ID           string            `json:"id"`                     // Canonical identifier (e.g. https://openalex.org/A123)
	URL          string            `json:"url,omitempty"`          // Canonical URL for humans
	DisplayName  string            `json:"display_name"`           // Primary name
	Aliases      []string          `json:"aliases,omitempty"`      // Alternative names and acronyms
	Affiliations []string          `json:"affiliations,omitempty"` // Affiliation texts, most recent first
	CountryCodes []string          `json:"country_codes,omitempty"`
	Relevance    *float64          `json:"relevance,omitempty"`  // Source's own ranking signal, when provided
	Attributes   map[string]string `json:"attributes,omitempty"` // Extra attributes (h_index, orcid, ...)
}

// Eligible reports whether the record may be accepted as a match.
func (r *Record) Eligible() bool {
	return r != nil && strings.TrimSpace(r.DisplayName) != ""
}

// HasCountry reports whether code is among the record's country codes.
func (r *Record) HasCountry(code string) bool {
	if code == "" {
		return false
	}
	for _, c := range r.CountryCodes {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

// Scored pairs a candidate with its confidence.
type Scored struct {
	Record     Record
	Confidence float64
}

// Result is the terminal output of one cascade run.
// Match is nil when no candidate cleared the acceptance threshold.
type Result struct {
	Query      Query
	Kind       Kind
	Match      *Record
	Confidence float64
	Stage      string // Name of the accepting stage, empty when unresolved
	Err        error  // First source error seen while unresolved
}

// Resolved reports whether a match was accepted.
func (r *Result) Resolved() bool {
	return r != nil && r.Match != nil
}

// Filters constrain a search. Which fields apply depends on the kind.
type Filters struct {
	CountryCode    string   // Institution searches
	InstitutionIDs []string // Person searches
}

// SearchRequest is one call to a Source.
type SearchRequest struct {
	Kind            Kind
	Text            string
	Filters         Filters
	PageSize        int
	SortByRelevance bool
}

// Page is one page of search results, best first when the source ranks them.
type Page struct {
	Records    []Record
	Total      int
	NextCursor string
}

// Source is a remote directory that can be searched.
// Implementations must wrap transient failures with ErrTransient and
// permanent ones with ErrPermanent. Zero results is an empty Page, not an error.
type Source interface {
	Search(ctx context.Context, req SearchRequest) (*Page, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, req SearchRequest) (*Page, error)

// Search calls f.
func (f SourceFunc) Search(ctx context.Context, req SearchRequest) (*Page, error) {
	return f(ctx, req)
}
