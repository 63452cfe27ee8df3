package mpi

import (
	"math"
	"strings"
)

// Identity holds the demographic fields compared by the matcher. A nil or blank
// field is absent: it is left out of the composite score rather than scored as 0.
type Identity struct {
	FirstName   *string `json:"first_name,omitempty"`
	MiddleName  *string `json:"middle_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"`
	Gender      *string `json:"gender,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}

// Str returns a pointer to s, for building identities inline.
func Str(s string) *string {
	return &s
}

func present(v *string) bool {
	return v != nil && strings.TrimSpace(*v) != ""
}

func value(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

// Field names an identity field in a score breakdown.
type Field string

const (
	FieldFirstName   Field = "first_name"
	FieldLastName    Field = "last_name"
	FieldMiddleName  Field = "middle_name"
	FieldDateOfBirth Field = "date_of_birth"
	FieldPhoneNumber Field = "phone_number"
	FieldGender      Field = "gender"
)

// ConfidenceLevel buckets a composite score.
type ConfidenceLevel string

const (
	DefiniteMatch ConfidenceLevel = "DEFINITE_MATCH"
	ProbableMatch ConfidenceLevel = "PROBABLE_MATCH"
	PossibleMatch ConfidenceLevel = "POSSIBLE_MATCH"
	UnlikelyMatch ConfidenceLevel = "UNLIKELY_MATCH"
	NoMatch       ConfidenceLevel = "NO_MATCH"
)

// Classify returns the confidence bucket for score. Bounds are inclusive.
func (t Thresholds) Classify(score int) ConfidenceLevel {
	switch {
	case score >= t.Definite:
		return DefiniteMatch
	case score >= t.Probable:
		return ProbableMatch
	case score >= t.Possible:
		return PossibleMatch
	case score >= t.Unlikely:
		return UnlikelyMatch
	default:
		return NoMatch
	}
}

// FieldScore is one field's contribution to a composite score.
type FieldScore struct {
	Field  Field `json:"field"`
	Score  int   `json:"score"`
	Weight int   `json:"weight"`
}

// MatchResult is the scored comparison of an incoming identity against one candidate.
type MatchResult struct {
	CandidateID       string          `json:"candidate_id"`
	Score             int             `json:"score"`
	Confidence        ConfidenceLevel `json:"confidence"`
	IsLikelyDuplicate bool            `json:"is_likely_duplicate"`
	Breakdown         []FieldScore    `json:"breakdown"`
}

// FieldScore returns the breakdown entry for f, if the field was evaluated.
func (r MatchResult) FieldScore(f Field) (FieldScore, bool) {
	for _, fs := range r.Breakdown {
		if fs.Field == f {
			return fs, true
		}
	}
	return FieldScore{}, false
}

// Scorer fuses per-field similarities into a weighted composite score.
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	cfg Config
}

// NewScorer creates a Scorer with the given configuration.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Config returns the scorer's configuration.
func (s *Scorer) Config() Config {
	return s.cfg
}

// Score compares an incoming identity with a candidate. Only fields present on
// both sides (and middle name when present on either side) enter the weighted
// average, so a missing field never drags the composite down.
func (s *Scorer) Score(candidateID string, incoming, candidate Identity) MatchResult {
	w := s.cfg.Weights
	var breakdown []FieldScore

	add := func(f Field, score, weight int) {
		breakdown = append(breakdown, FieldScore{Field: f, Score: score, Weight: weight})
	}

	// A name with no letters left once normalized (a bare title, digits)
	// counts as absent.
	inFirst, candFirst := nameKeyOf(incoming.FirstName), nameKeyOf(candidate.FirstName)
	if inFirst.ok() && candFirst.ok() {
		add(FieldFirstName, s.nameScore(inFirst, candFirst), w.FirstName)
	}
	inLast, candLast := nameKeyOf(incoming.LastName), nameKeyOf(candidate.LastName)
	if inLast.ok() && candLast.ok() {
		add(FieldLastName, s.nameScore(inLast, candLast), w.LastName)
	}

	// A middle name on one side only neither confirms nor denies the match.
	inMid, candMid := nameKeyOf(incoming.MiddleName), nameKeyOf(candidate.MiddleName)
	switch {
	case inMid.ok() && candMid.ok():
		add(FieldMiddleName, s.nameScore(inMid, candMid), w.MiddleName)
	case inMid.ok() || candMid.ok():
		add(FieldMiddleName, s.cfg.MiddleNameNeutral, w.MiddleName)
	}

	if present(incoming.DateOfBirth) && present(candidate.DateOfBirth) {
		add(FieldDateOfBirth, DateSimilarity(value(incoming.DateOfBirth), value(candidate.DateOfBirth)), w.DateOfBirth)
	}
	if present(incoming.PhoneNumber) && present(candidate.PhoneNumber) {
		add(FieldPhoneNumber, s.cfg.Phone.PhoneSimilarity(value(incoming.PhoneNumber), value(candidate.PhoneNumber)), w.PhoneNumber)
	}
	if present(incoming.Gender) && present(candidate.Gender) {
		score := 0
		if strings.EqualFold(value(incoming.Gender), value(candidate.Gender)) {
			score = 100
		}
		add(FieldGender, score, w.Gender)
	}

	composite := composite(breakdown)
	return MatchResult{
		CandidateID:       candidateID,
		Score:             composite,
		Confidence:        s.cfg.Thresholds.Classify(composite),
		IsLikelyDuplicate: composite >= s.cfg.DuplicateThreshold,
		Breakdown:         breakdown,
	}
}

type comparableName struct {
	key   string
	latin bool
}

func (n comparableName) ok() bool { return n.key != "" }

func nameKeyOf(v *string) comparableName {
	if !present(v) {
		return comparableName{}
	}
	key, latin := nameKey(value(v))
	return comparableName{key: key, latin: latin}
}

// nameScore is the Levenshtein similarity of two name keys plus the phonetic
// bonus, capped at 100. The cap swallows the bonus for exact matches. The
// bonus needs both names in Latin form.
func (s *Scorer) nameScore(a, b comparableName) int {
	score := Similarity(a.key, b.key)
	if a.latin && b.latin && SoundsLike(a.key, b.key) {
		score += s.cfg.PhoneticBonus
	}
	return min(score, 100)
}

func composite(breakdown []FieldScore) int {
	weighted, total := 0, 0
	for _, fs := range breakdown {
		weighted += fs.Score * fs.Weight
		total += fs.Weight
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(weighted) / float64(total)))
}
