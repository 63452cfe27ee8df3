package mpi

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	titlePattern   = regexp.MustCompile(`^(?:mr|mrs|ms|miss|dr|prof|sir|madam|chief|alhaji|hajia)(?:\.\s*|\s+)`)
	nameCharFilter = regexp.MustCompile(`[^a-z\s-]`)
	whitespace     = regexp.MustCompile(`\s+`)
)

// FullName is a name split into its parts. Missing parts are empty strings.
type FullName struct {
	First  string `json:"first_name"`
	Middle string `json:"middle_name"`
	Last   string `json:"last_name"`
}

// NormalizeName lowercases a name, strips a leading honorific, folds diacritics,
// drops anything that is not a letter, space or hyphen and collapses whitespace.
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(foldDiacritics(name)))
	s = titlePattern.ReplaceAllString(s, "")
	s = nameCharFilter.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// nameKey is the form a name is compared in: NormalizeName when that leaves
// anything, otherwise the lowercased letters of the name in its own script.
// latin reports whether the key came from NormalizeName; Soundex only applies
// to those. An empty key means the name carries no letters at all.
func nameKey(name string) (key string, latin bool) {
	if n := NormalizeName(name); n != "" {
		return n, true
	}
	s := titlePattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(foldDiacritics(name))), "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return -1
	}, s)
	return s, false
}

// ParseFullName normalizes a free-text name and splits it into first, middle and last.
// With three or more tokens every interior token belongs to the middle name.
func ParseFullName(name string) FullName {
	tokens := strings.Fields(NormalizeName(name))
	switch len(tokens) {
	case 0:
		return FullName{}
	case 1:
		return FullName{First: tokens[0]}
	case 2:
		return FullName{First: tokens[0], Last: tokens[1]}
	default:
		return FullName{
			First:  tokens[0],
			Middle: strings.Join(tokens[1:len(tokens)-1], " "),
			Last:   tokens[len(tokens)-1],
		}
	}
}

// foldDiacritics maps "José" to "Jose" so accented letters survive the [a-z] filter.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
