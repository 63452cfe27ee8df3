package mpi

import "strings"

// NormalizePhone reduces a phone number to its significant national digits:
// non-digits are removed, a leading country code is dropped when enough digits
// remain after it, and a single trunk "0" is dropped from a full national number.
func (r PhoneRules) NormalizePhone(phone string) string {
	digits := extractDigits(phone)

	if r.CountryCode != "" && strings.HasPrefix(digits, r.CountryCode) &&
		len(digits)-len(r.CountryCode) >= r.SuffixDigits {
		digits = digits[len(r.CountryCode):]
	}
	if r.NationalLength > 0 && len(digits) == r.NationalLength && digits[0] == '0' {
		digits = digits[1:]
	}
	return digits
}

// Suffix returns the trailing SuffixDigits of a normalized number, or the whole
// number when it is shorter.
func (r PhoneRules) Suffix(normalized string) string {
	if len(normalized) <= r.SuffixDigits {
		return normalized
	}
	return normalized[len(normalized)-r.SuffixDigits:]
}

// PhoneSimilarity compares two phone numbers in [0,100]. Numbers that differ only
// by country code or trunk prefix score 100; one or two substituted digits in
// equal-length numbers score 80 and 50.
func (r PhoneRules) PhoneSimilarity(a, b string) int {
	na := r.NormalizePhone(a)
	nb := r.NormalizePhone(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 100
	}
	if len(na) >= r.SuffixDigits && len(nb) >= r.SuffixDigits && r.Suffix(na) == r.Suffix(nb) {
		return 100
	}
	if len(na) != len(nb) {
		return 0
	}

	diff := 0
	for i := 0; i < len(na); i++ {
		if na[i] != nb[i] {
			diff++
		}
	}
	switch diff {
	case 1:
		return 80
	case 2:
		return 50
	default:
		return 0
	}
}

// extractDigits returns only the digit characters from a string.
func extractDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
