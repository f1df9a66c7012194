package roster

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "José" -> "Jose").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeName normalizes a student name for lookup (lowercase, no
// diacritics, collapsed whitespace). Used when resolving students by name
// from imported records that may disagree on accents and spacing.
func NormalizeName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	return strings.Join(strings.Fields(name), " ")
}

// FindSameName returns the first student whose name normalizes to the same
// form as name, or nil. Flags likely duplicate registrations that differ
// only in accents, case, or spacing.
func FindSameName(students []Student, name string) *Student {
	want := NormalizeName(name)
	for i := range students {
		if NormalizeName(students[i].Name) == want {
			return &students[i]
		}
	}
	return nil
}
