package openalex

import "strings"

// ShortID returns the final path segment of an OpenAlex id, so
// "https://openalex.org/A5023888391" becomes "A5023888391".
func ShortID(id string) string {
	id = strings.TrimRight(strings.TrimSpace(id), "/")
	if i := strings.LastIndexByte(id, '/'); i >= 0 {
		return id[i+1:]
	}
	return id
}

// InstitutionFilterValue converts an institution id to the lower-case form
// accepted by author filters: "https://openalex.org/I204722609" becomes
// "i204722609". It reports false for anything that is not an institution id.
func InstitutionFilterValue(id string) (string, bool) {
	short := ShortID(id)
	if len(short) < 2 || (short[0] != 'I' && short[0] != 'i') {
		return "", false
	}
	digits := short[1:]
	for i := range len(digits) {
		if digits[i] < '0' || digits[i] > '9' {
			return "", false
		}
	}
	return "i" + digits, true
}
