package mpi

import (
	"time"
)

const namePrefixLen = 3

// Clause is one arm of the candidate prefilter. The concrete clause types form a
// closed set; storage adapters switch on them and translate each into their own
// query language. Clauses are OR-ed together.
type Clause interface {
	clause()
}

// PhoneSuffixClause matches stored numbers ending in Suffix.
type PhoneSuffixClause struct {
	Suffix string
}

// ExactNameClause matches first and last name exactly, ignoring case.
type ExactNameClause struct {
	FirstName string
	LastName  string
}

// PrefixNameClause matches records whose first and last names start with the
// given prefixes, ignoring case.
type PrefixNameClause struct {
	FirstPrefix string
	LastPrefix  string
}

// SwappedNameClause matches records whose stored first name is LastName and
// stored last name is FirstName, a common data entry error.
type SwappedNameClause struct {
	FirstName string
	LastName  string
}

// DOBPrefixClause matches the exact birth date combined with a last name prefix.
type DOBPrefixClause struct {
	DateOfBirth time.Time
	LastPrefix  string
}

func (PhoneSuffixClause) clause() {}
func (ExactNameClause) clause()   {}
func (PrefixNameClause) clause()  {}
func (SwappedNameClause) clause() {}
func (DOBPrefixClause) clause()   {}

// Prefilter is the query handed to a CandidateRepository. Implementations must
// exclude soft-deleted records and the ids in ExcludeIDs, and return at most
// Limit records.
type Prefilter struct {
	Clauses    []Clause
	ExcludeIDs []string
	Limit      int
}

// Empty reports whether the prefilter has nothing to match on.
func (p Prefilter) Empty() bool {
	return len(p.Clauses) == 0
}

// BuildPrefilter derives the candidate prefilter for an incoming identity. No
// single clause is both precise and complete, so every clause the identity has
// data for is included.
func BuildPrefilter(id Identity, cfg Config) Prefilter {
	var clauses []Clause

	if present(id.PhoneNumber) {
		if n := cfg.Phone.NormalizePhone(value(id.PhoneNumber)); n != "" {
			clauses = append(clauses, PhoneSuffixClause{Suffix: cfg.Phone.Suffix(n)})
		}
	}

	first, last := "", ""
	if present(id.FirstName) {
		first = NormalizeName(value(id.FirstName))
	}
	if present(id.LastName) {
		last = NormalizeName(value(id.LastName))
	}

	if first != "" && last != "" {
		clauses = append(clauses,
			ExactNameClause{FirstName: first, LastName: last},
			PrefixNameClause{FirstPrefix: prefix(first), LastPrefix: prefix(last)},
			SwappedNameClause{FirstName: first, LastName: last},
		)
	}

	if present(id.DateOfBirth) && last != "" {
		if dob, ok := ParseDate(value(id.DateOfBirth)); ok {
			clauses = append(clauses, DOBPrefixClause{DateOfBirth: dob, LastPrefix: prefix(last)})
		}
	}

	limit := cfg.CandidateLimit
	if limit <= 0 || limit > MaxCandidatePool {
		limit = MaxCandidatePool
	}
	return Prefilter{Clauses: clauses, Limit: limit}
}

func prefix(s string) string {
	r := []rune(s)
	if len(r) <= namePrefixLen {
		return s
	}
	return string(r[:namePrefixLen])
}
