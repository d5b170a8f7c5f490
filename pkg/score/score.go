// Package score computes match confidence between a query and a directory record.
package score

import (
	"math"
	"strings"

	"github.com/codeGROOVE-dev/scholarmatch/pkg/country"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/entity"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/normalize"
)

// Weights are the contributions of each signal. Person weights sum to at
// most 1.0 apart from bonuses, which may saturate the cap.
//
//nolint:govet // fieldalignment: grouped by entity kind
type Weights struct {
	// Person resolution.
	ExactName      float64 `toml:"exact_name"`
	NameSimilarity float64 `toml:"name_similarity"`
	AliasBonus     float64 `toml:"alias_bonus"`
	Affiliation    float64 `toml:"affiliation"`
	CountryCode    float64 `toml:"country_code"`
	CountryText    float64 `toml:"country_text"`

	// Institution resolution.
	InstitutionName    float64 `toml:"institution_name"`
	InstitutionCountry float64 `toml:"institution_country"`
	RelevanceFactor    float64 `toml:"relevance_factor"`
	RelevanceCap       float64 `toml:"relevance_cap"`
}

// DefaultWeights returns the stock weighting.
func DefaultWeights() Weights {
	return Weights{
		ExactName:      0.62,
		NameSimilarity: 0.40,
		AliasBonus:     0.30,
		Affiliation:    0.38,
		CountryCode:    0.06,
		CountryText:    0.04,

		InstitutionName:    0.70,
		InstitutionCountry: 0.12,
		RelevanceFactor:    0.03,
		RelevanceCap:       0.12,
	}
}

// Scorer scores candidates. The zero value is not usable; use New.
type Scorer struct {
	countries *country.Mapper
	weights   Weights
}

// New creates a Scorer. A nil mapper selects the default country table.
func New(w Weights, countries *country.Mapper) *Scorer {
	if countries == nil {
		countries = country.Default()
	}
	return &Scorer{weights: w, countries: countries}
}

// Weights returns the weights in use.
func (s *Scorer) Weights() Weights { return s.weights }

// Score dispatches on kind.
func (s *Scorer) Score(kind entity.Kind, q entity.Query, rec *entity.Record) float64 {
	if kind == entity.Institution {
		return s.Institution(q, rec)
	}
	return s.Person(q, rec)
}

// Person scores rec as a match for the person described by q.
func (s *Scorer) Person(q entity.Query, rec *entity.Record) float64 {
	if !rec.Eligible() {
		return 0
	}
	w := s.weights
	target := normalize.Normalize(q.DisplayName)

	var total float64
	if target != "" && normalize.Normalize(rec.DisplayName) == target {
		total += w.ExactName
	} else {
		total += w.NameSimilarity * normalize.Similarity(rec.DisplayName, q.DisplayName)
	}

	for _, alias := range rec.Aliases {
		if target != "" && normalize.Normalize(alias) == target {
			total += w.AliasBonus
			break
		}
	}

	affText := strings.Join(rec.Affiliations, " ; ")
	if strings.TrimSpace(q.Affiliation) != "" {
		total += w.Affiliation * affiliationMatch(q.Affiliation, affText, rec.Affiliations)
	}

	if strings.TrimSpace(q.Country) != "" {
		code, ok := s.countries.ToISO2(q.Country)
		switch {
		case ok && rec.HasCountry(code):
			total += w.CountryCode
		case containsNormalized(affText, q.Country):
			total += w.CountryText
		}
	}

	return clamp(total)
}

// Institution scores rec as a match for the affiliation described by q.
func (s *Scorer) Institution(q entity.Query, rec *entity.Record) float64 {
	if !rec.Eligible() {
		return 0
	}
	w := s.weights

	best := nameMatch(q.Affiliation, rec.DisplayName)
	for _, alias := range rec.Aliases {
		best = max(best, nameMatch(q.Affiliation, alias))
	}
	total := w.InstitutionName * best

	if code, ok := s.countries.ToISO2(q.Country); ok && rec.HasCountry(code) {
		total += w.InstitutionCountry
	}

	if rec.Relevance != nil && *rec.Relevance > 0 {
		total += min(w.RelevanceCap, w.RelevanceFactor * *rec.Relevance)
	}

	return clamp(total)
}

// nameMatch is the similarity of two institution names, treating an exact
// acronym as a full match.
func nameMatch(query, name string) float64 {
	if normalize.IsAcronymOf(query, name) {
		return 1
	}
	return normalize.Similarity(query, name)
}

// affiliationMatch compares a query affiliation to a candidate's joined
// affiliation text, with acronyms of any single affiliation counting as a match.
func affiliationMatch(query, joined string, affiliations []string) float64 {
	best := normalize.Similarity(query, joined)
	for _, a := range affiliations {
		if normalize.IsAcronymOf(query, a) {
			return 1
		}
	}
	return best
}

func containsNormalized(haystack, needle string) bool {
	n := normalize.Normalize(needle)
	if n == "" {
		return false
	}
	return strings.Contains(normalize.Normalize(haystack), n)
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
