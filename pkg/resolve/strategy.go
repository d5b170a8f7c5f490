package resolve

import (
	"strings"

	"github.com/codeGROOVE-dev/scholarmatch/pkg/entity"
)

// Input is what a strategy plans a search from.
type Input struct {
	Query         entity.Query
	CountryCode   string // ISO2 code of Query.Country, empty when unknown
	InstitutionID string // Filter value of the accepted institution, empty when none
}

// Strategy is one stage of a cascade. Plan returns false when the stage
// does not apply to the input and must be skipped.
type Strategy struct {
	Name string
	Plan func(in Input) (entity.SearchRequest, bool)
}

// Stage names.
const (
	StageCountryFiltered     = "country-filtered"
	StageUnfiltered          = "unfiltered"
	StageInstitutionFiltered = "institution-filtered"
	StageNameAffiliation     = "name-affiliation"
	StageName                = "name"
)

// InstitutionStrategies returns the default institution cascade: a
// country-constrained search, then the same search without the country.
func InstitutionStrategies() []Strategy {
	return []Strategy{
		{
			Name: StageCountryFiltered,
			Plan: func(in Input) (entity.SearchRequest, bool) {
				aff := strings.TrimSpace(in.Query.Affiliation)
				if aff == "" || in.CountryCode == "" {
					return entity.SearchRequest{}, false
				}
				return entity.SearchRequest{
					Kind:    entity.Institution,
					Text:    aff,
					Filters: entity.Filters{CountryCode: in.CountryCode},
				}, true
			},
		},
		{
			Name: StageUnfiltered,
			Plan: func(in Input) (entity.SearchRequest, bool) {
				aff := strings.TrimSpace(in.Query.Affiliation)
				if aff == "" {
					return entity.SearchRequest{}, false
				}
				return entity.SearchRequest{Kind: entity.Institution, Text: aff}, true
			},
		},
	}
}

// PersonStrategies returns the default person cascade: a search within the
// accepted institution, then free text on name and affiliation, then name alone.
func PersonStrategies() []Strategy {
	return []Strategy{
		{
			Name: StageInstitutionFiltered,
			Plan: func(in Input) (entity.SearchRequest, bool) {
				name := strings.TrimSpace(in.Query.DisplayName)
				if name == "" || in.InstitutionID == "" {
					return entity.SearchRequest{}, false
				}
				return entity.SearchRequest{
					Kind:            entity.Person,
					Text:            name,
					Filters:         entity.Filters{InstitutionIDs: []string{in.InstitutionID}},
					SortByRelevance: true,
				}, true
			},
		},
		{
			Name: StageNameAffiliation,
			Plan: func(in Input) (entity.SearchRequest, bool) {
				name := strings.TrimSpace(in.Query.DisplayName)
				if name == "" {
					return entity.SearchRequest{}, false
				}
				text := strings.TrimSpace(name + " " + strings.TrimSpace(in.Query.Affiliation))
				return entity.SearchRequest{Kind: entity.Person, Text: text}, true
			},
		},
		{
			Name: StageName,
			Plan: func(in Input) (entity.SearchRequest, bool) {
				name := strings.TrimSpace(in.Query.DisplayName)
				if name == "" {
					return entity.SearchRequest{}, false
				}
				return entity.SearchRequest{Kind: entity.Person, Text: name}, true
			},
		},
	}
}
