package mpi

import (
	"strings"
)

const minSearchDigits = 4

// MatchMode selects how a name predicate compares.
type MatchMode string

const (
	MatchContains   MatchMode = "contains"
	MatchStartsWith MatchMode = "starts_with"
)

// SearchPredicate is one arm of a fuzzy patient lookup. Predicates are OR-ed;
// their execution belongs to the storage adapter.
type SearchPredicate interface {
	predicate()
}

// NamePredicate matches a name field against a normalized token, ignoring case.
type NamePredicate struct {
	Field Field
	Mode  MatchMode
	Value string
}

// PhoneDigitsPredicate matches phone numbers containing Digits.
type PhoneDigitsPredicate struct {
	Digits string
}

// PatientNumberPrefixPredicate matches patient numbers starting with Prefix.
type PatientNumberPrefixPredicate struct {
	Prefix string
}

func (NamePredicate) predicate()                {}
func (PhoneDigitsPredicate) predicate()         {}
func (PatientNumberPrefixPredicate) predicate() {}

var searchNameFields = []Field{FieldFirstName, FieldMiddleName, FieldLastName}

// BuildSearchPredicates turns free text into lookup predicates: contains and
// starts-with name predicates for every normalized token longer than one
// character, a phone predicate when the text holds at least four digits, and a
// patient number predicate when it starts with numberPrefix.
func BuildSearchPredicates(query, numberPrefix string) []SearchPredicate {
	var preds []SearchPredicate

	for _, token := range strings.Fields(NormalizeName(query)) {
		if len([]rune(token)) <= 1 {
			continue
		}
		for _, f := range searchNameFields {
			preds = append(preds,
				NamePredicate{Field: f, Mode: MatchContains, Value: token},
				NamePredicate{Field: f, Mode: MatchStartsWith, Value: token},
			)
		}
	}

	if digits := extractDigits(query); len(digits) >= minSearchDigits {
		preds = append(preds, PhoneDigitsPredicate{Digits: digits})
	}

	trimmed := strings.ToUpper(strings.TrimSpace(query))
	if numberPrefix != "" && strings.HasPrefix(trimmed, strings.ToUpper(numberPrefix)) {
		preds = append(preds, PatientNumberPrefixPredicate{Prefix: trimmed})
	}

	return preds
}
