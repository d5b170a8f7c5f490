// Package normalize canonicalizes free-text names and compares them.
package normalize

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// markSet matches combining marks and invisible format characters such as
// zero-width spaces.
var markSet = runes.Predicate(func(r rune) bool {
	return unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Cf, r)
})

// stripMarks returns a fresh decomposing transformer. Chains keep state
// between calls and must not be shared across goroutines.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(markSet))
}

// Letters that carry no decomposition in Unicode.
var transliterate = strings.NewReplacer(
	"ø", "o", "Ø", "o",
	"ł", "l", "Ł", "l",
	"đ", "d", "Đ", "d",
	"ð", "d", "Ð", "d",
	"þ", "th", "Þ", "th",
	"ß", "ss", "ẞ", "ss",
	"æ", "ae", "Æ", "ae",
	"œ", "oe", "Œ", "oe",
	"ı", "i",
)

// Normalize strips diacritics, lower-cases, and collapses whitespace.
// It never fails; empty input yields an empty string.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	out, _, err := transform.String(stripMarks(), s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(transliterate.Replace(out))
	return strings.Join(strings.Fields(out), " ")
}

// Similarity returns the sequence-matching ratio of the normalized inputs,
// in [0,1]. It is 0 when either side normalizes to empty.
func Similarity(a, b string) float64 {
	a, b = Normalize(a), Normalize(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	// The matcher's tie-breaking depends on argument order.
	if a > b {
		a, b = b, a
	}
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}

// stopWords are skipped when building acronyms.
var stopWords = map[string]bool{
	"of": true, "the": true, "and": true, "for": true, "at": true, "in": true,
	"de": true, "des": true, "du": true, "la": true, "le": true, "les": true,
	"di": true, "del": true, "della": true, "da": true, "do": true, "dos": true,
	"der": true, "und": true, "fur": true, "y": true, "e": true, "et": true,
}

// Acronym returns the initials of the significant words of s.
func Acronym(s string) string {
	words := strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	for _, w := range words {
		if stopWords[w] {
			continue
		}
		for _, r := range w {
			b.WriteRune(r)
			break
		}
	}
	return b.String()
}

// IsAcronymOf reports whether short is the acronym of long, e.g.
// "MIT" and "Massachusetts Institute of Technology".
func IsAcronymOf(short, long string) bool {
	s := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		if r == '.' {
			return -1
		}
		return ' '
	}, Normalize(short))
	if strings.Contains(s, " ") || len(s) < 2 || len(s) > 8 {
		return false
	}
	acr := Acronym(long)
	return len(acr) >= 2 && acr == s
}
