package mpi

import (
	"errors"
	"fmt"
)

// MaxCandidatePool is the hard cap on candidates retrieved per duplicate check.
const MaxCandidatePool = 20

// ErrInvalidConfig is wrapped by Config.Validate failures.
var ErrInvalidConfig = errors.New("invalid mpi config")

// Weights assigns the relative importance of each identity field. They must sum to 100.
type Weights struct {
	FirstName   int `json:"first_name"`
	LastName    int `json:"last_name"`
	MiddleName  int `json:"middle_name"`
	DateOfBirth int `json:"date_of_birth"`
	PhoneNumber int `json:"phone_number"`
	Gender      int `json:"gender"`
}

// Total returns the sum of all weights.
func (w Weights) Total() int {
	return w.FirstName + w.LastName + w.MiddleName + w.DateOfBirth + w.PhoneNumber + w.Gender
}

// Thresholds are the inclusive lower bounds of each confidence bucket.
type Thresholds struct {
	Definite int `json:"definite"`
	Probable int `json:"probable"`
	Possible int `json:"possible"`
	Unlikely int `json:"unlikely"`
}

// PhoneRules describes the regional numbering plan used to normalize phone numbers.
type PhoneRules struct {
	CountryCode    string `json:"country_code"`
	SuffixDigits   int    `json:"suffix_digits"`
	NationalLength int    `json:"national_length"`
}

// Config is the immutable engine configuration shared by the scorer, detector and gate.
type Config struct {
	Weights             Weights    `json:"weights"`
	Thresholds          Thresholds `json:"thresholds"`
	DuplicateThreshold  int        `json:"duplicate_threshold"`
	CandidateLimit      int        `json:"candidate_limit"`
	PhoneticBonus       int        `json:"phonetic_bonus"`
	MiddleNameNeutral   int        `json:"middle_name_neutral"`
	Phone               PhoneRules `json:"phone"`
	PatientNumberPrefix string     `json:"patient_number_prefix"`
}

// DefaultWeights returns the standard field weighting.
func DefaultWeights() Weights {
	return Weights{
		FirstName:   25,
		LastName:    25,
		MiddleName:  5,
		DateOfBirth: 25,
		PhoneNumber: 15,
		Gender:      5,
	}
}

// DefaultThresholds returns the standard confidence bucket bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Definite: 95,
		Probable: 80,
		Possible: 60,
		Unlikely: 40,
	}
}

// DefaultPhoneRules returns the Ghanaian numbering plan: +233, nine significant digits.
func DefaultPhoneRules() PhoneRules {
	return PhoneRules{
		CountryCode:    "233",
		SuffixDigits:   9,
		NationalLength: 10,
	}
}

// DefaultConfig returns the engine configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Weights:             DefaultWeights(),
		Thresholds:          DefaultThresholds(),
		DuplicateThreshold:  60,
		CandidateLimit:      MaxCandidatePool,
		PhoneticBonus:       10,
		MiddleNameNeutral:   50,
		Phone:               DefaultPhoneRules(),
		PatientNumberPrefix: "PT-",
	}
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if total := c.Weights.Total(); total != 100 {
		return fmt.Errorf("%w: weights must sum to 100, got %d", ErrInvalidConfig, total)
	}
	w := c.Weights
	for _, v := range []int{w.FirstName, w.LastName, w.MiddleName, w.DateOfBirth, w.PhoneNumber, w.Gender} {
		if v < 0 {
			return fmt.Errorf("%w: weights must not be negative", ErrInvalidConfig)
		}
	}

	t := c.Thresholds
	if !(t.Definite > t.Probable && t.Probable > t.Possible && t.Possible > t.Unlikely && t.Unlikely > 0 && t.Definite <= 100) {
		return fmt.Errorf("%w: thresholds must be strictly descending within (0,100]", ErrInvalidConfig)
	}
	if c.DuplicateThreshold < 0 || c.DuplicateThreshold > 100 {
		return fmt.Errorf("%w: duplicate threshold must be within [0,100], got %d", ErrInvalidConfig, c.DuplicateThreshold)
	}
	if c.CandidateLimit < 1 || c.CandidateLimit > MaxCandidatePool {
		return fmt.Errorf("%w: candidate limit must be within [1,%d], got %d", ErrInvalidConfig, MaxCandidatePool, c.CandidateLimit)
	}
	if c.MiddleNameNeutral < 0 || c.MiddleNameNeutral > 100 {
		return fmt.Errorf("%w: middle name neutral score must be within [0,100]", ErrInvalidConfig)
	}
	if c.PhoneticBonus < 0 {
		return fmt.Errorf("%w: phonetic bonus must not be negative", ErrInvalidConfig)
	}
	if c.Phone.SuffixDigits < 1 {
		return fmt.Errorf("%w: phone suffix digits must be positive", ErrInvalidConfig)
	}
	return nil
}
