// Package country maps free-text country labels to ISO 3166-1 alpha-2 codes.
package country

import (
	"maps"
	"strings"

	"github.com/codeGROOVE-dev/scholarmatch/pkg/normalize"
)

// builtin maps normalized country names and common abbreviations to codes.
// Extending it is a data change.
var builtin = map[string]string{
	"united states": "US", "united states of america": "US", "usa": "US", "u.s.a.": "US", "u.s.": "US", "america": "US",
	"united kingdom": "GB", "uk": "GB", "u.k.": "GB", "great britain": "GB", "england": "GB", "scotland": "GB", "wales": "GB",
	"germany": "DE", "deutschland": "DE",
	"switzerland": "CH", "schweiz": "CH", "suisse": "CH", "svizzera": "CH",
	"canada": "CA",
	"italy": "IT", "italia": "IT",
	"spain": "ES", "espana": "ES",
	"france": "FR",
	"netherlands": "NL", "the netherlands": "NL", "holland": "NL", "nederland": "NL",
	"austria": "AT", "osterreich": "AT",
	"belgium": "BE", "belgique": "BE", "belgie": "BE",
	"sweden": "SE", "sverige": "SE",
	"norway": "NO", "norge": "NO",
	"denmark": "DK", "danmark": "DK",
	"finland": "FI", "suomi": "FI",
	"ireland": "IE",
	"iceland": "IS",
	"portugal": "PT",
	"greece": "GR",
	"poland": "PL", "polska": "PL",
	"czech republic": "CZ", "czechia": "CZ",
	"hungary": "HU",
	"romania": "RO",
	"luxembourg": "LU",
	"estonia": "EE",
	"slovenia": "SI",
	"croatia": "HR",
	"serbia": "RS",
	"ukraine": "UA",
	"russia": "RU", "russian federation": "RU",
	"turkey": "TR", "turkiye": "TR",
	"israel": "IL",
	"china": "CN", "prc": "CN", "people's republic of china": "CN",
	"hong kong": "HK", "hong kong sar": "HK",
	"macau": "MO", "macao": "MO",
	"taiwan": "TW",
	"japan": "JP",
	"korea": "KR", "south korea": "KR", "republic of korea": "KR",
	"singapore": "SG",
	"india": "IN",
	"pakistan": "PK",
	"bangladesh": "BD",
	"sri lanka": "LK",
	"vietnam": "VN", "viet nam": "VN",
	"thailand": "TH",
	"malaysia": "MY",
	"indonesia": "ID",
	"philippines": "PH",
	"australia": "AU",
	"new zealand": "NZ",
	"brazil": "BR", "brasil": "BR",
	"argentina": "AR",
	"chile": "CL",
	"colombia": "CO",
	"mexico": "MX",
	"peru": "PE",
	"uruguay": "UY",
	"south africa": "ZA",
	"egypt": "EG",
	"nigeria": "NG",
	"kenya": "KE",
	"morocco": "MA",
	"iran": "IR",
	"saudi arabia": "SA",
	"united arab emirates": "AE", "uae": "AE",
	"qatar": "QA",
}

// Mapper resolves country labels against a fixed table.
type Mapper struct {
	table map[string]string
}

var defaultMapper = New(nil)

// Default returns the mapper backed by the built-in table.
func Default() *Mapper { return defaultMapper }

// New returns a mapper with the built-in table plus overrides.
// Override keys are normalized; values are upper-cased.
func New(overrides map[string]string) *Mapper {
	return (&Mapper{table: builtin}).WithOverrides(overrides)
}

// WithOverrides returns a copy of m with extra or replaced entries.
func (m *Mapper) WithOverrides(overrides map[string]string) *Mapper {
	table := maps.Clone(m.table)
	for name, code := range overrides {
		if n := normalize.Normalize(name); n != "" {
			table[n] = strings.ToUpper(strings.TrimSpace(code))
		}
	}
	return &Mapper{table: table}
}

// ToISO2 maps s to a two-letter code. Well-formed two-letter codes are
// trusted and returned upper-cased.
func (m *Mapper) ToISO2(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if isAlpha2(s) {
		return strings.ToUpper(s), true
	}
	n := normalize.Normalize(s)
	if n == "" {
		return "", false
	}
	code, ok := m.table[n]
	return code, ok
}

// ToISO2 maps s using the default table.
func ToISO2(s string) (string, bool) {
	return defaultMapper.ToISO2(s)
}

func isAlpha2(s string) bool {
	if len(s) != 2 {
		return false
	}
	for i := range 2 {
		c := s[i] | 0x20
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}
