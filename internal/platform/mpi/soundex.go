package mpi

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Soundex returns the four character American Soundex code for s. Anything
// that is not an ASCII letter is dropped first, so "O'Brien" encodes like
// "OBrien". Input without any letters encodes to "0000".
func Soundex(s string) string {
	letters := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r
		}
		return -1
	}, strings.ToUpper(s))
	if letters == "" {
		return "0000"
	}
	return matchr.Soundex(letters)
}

// SoundsLike reports whether a and b share a Soundex code.
func SoundsLike(a, b string) bool {
	return Soundex(a) == Soundex(b)
}
