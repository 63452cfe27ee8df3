package mpi

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// LevenshteinDistance returns the edit distance between a and b, ignoring case and
// surrounding whitespace. Distance is counted in runes.
func LevenshteinDistance(a, b string) int {
	return levenshtein.ComputeDistance(fold(a), fold(b))
}

// Similarity returns the normalized Levenshtein similarity of a and b in [0,100].
// Two empty strings are identical (100); one empty string scores 0.
func Similarity(a, b string) int {
	fa, fb := fold(a), fold(b)
	la, lb := utf8.RuneCountInString(fa), utf8.RuneCountInString(fb)

	if la == 0 && lb == 0 {
		return 100
	}
	if la == 0 || lb == 0 {
		return 0
	}

	d := levenshtein.ComputeDistance(fa, fb)
	return int(math.Round((1 - float64(d)/float64(max(la, lb))) * 100))
}
