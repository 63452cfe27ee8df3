package mpi

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// Candidate is an existing record returned by candidate retrieval.
type Candidate struct {
	ID       string
	Identity Identity
	// Record is the collaborator's full record, echoed back in the report.
	Record interface{}
}

// CandidateRepository retrieves the bounded candidate pool for a prefilter.
type CandidateRepository interface {
	FindCandidates(ctx context.Context, filter Prefilter) ([]Candidate, error)
}

// CandidateRepositoryFunc is a function adapter for CandidateRepository.
type CandidateRepositoryFunc func(ctx context.Context, filter Prefilter) ([]Candidate, error)

func (f CandidateRepositoryFunc) FindCandidates(ctx context.Context, filter Prefilter) ([]Candidate, error) {
	return f(ctx, filter)
}

// DuplicateMatch pairs a scored result with the candidate's record.
type DuplicateMatch struct {
	Patient interface{} `json:"patient"`
	MatchResult
}

// DuplicateCheckReport summarizes the duplicates found for an incoming identity.
type DuplicateCheckReport struct {
	HasDuplicates      bool             `json:"has_duplicates"`
	Matches            []DuplicateMatch `json:"matches"`
	DefiniteMatchCount int              `json:"definite_match_count"`
	ProbableMatchCount int              `json:"probable_match_count"`
	PossibleMatchCount int              `json:"possible_match_count"`
	CanProceed         bool             `json:"can_proceed"`
	RequiresReview     bool             `json:"requires_review"`
	Message            string           `json:"message"`
}

// Detector scores an incoming identity against the candidate pool.
type Detector struct {
	repo   CandidateRepository
	scorer *Scorer
	logger zerolog.Logger
}

// NewDetector creates a Detector reading candidates from repo.
func NewDetector(repo CandidateRepository, scorer *Scorer, logger zerolog.Logger) *Detector {
	return &Detector{repo: repo, scorer: scorer, logger: logger}
}

// Scorer returns the detector's scorer.
func (d *Detector) Scorer() *Scorer {
	return d.scorer
}

// FindDuplicates returns every candidate scoring at or above threshold, best
// first. Ties keep retrieval order. Retrieval errors are returned as-is apart
// from wrapping; the detector never retries.
func (d *Detector) FindDuplicates(ctx context.Context, id Identity, threshold int, excludeIDs ...string) ([]DuplicateMatch, error) {
	filter := BuildPrefilter(id, d.scorer.cfg)
	if filter.Empty() {
		return []DuplicateMatch{}, nil
	}
	filter.ExcludeIDs = excludeIDs

	candidates, err := d.repo.FindCandidates(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}
	if len(candidates) > filter.Limit {
		candidates = candidates[:filter.Limit]
	}

	matches := make([]DuplicateMatch, 0, len(candidates))
	for _, c := range candidates {
		result := d.scorer.Score(c.ID, id, c.Identity)
		if result.Score < threshold {
			continue
		}
		matches = append(matches, DuplicateMatch{Patient: c.Record, MatchResult: result})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	d.logger.Debug().
		Int("clauses", len(filter.Clauses)).
		Int("candidates", len(candidates)).
		Int("matches", len(matches)).
		Int("threshold", threshold).
		Msg("duplicate candidates scored")

	return matches, nil
}

// Check runs FindDuplicates and summarizes the result.
func (d *Detector) Check(ctx context.Context, id Identity, threshold int, excludeIDs ...string) (*DuplicateCheckReport, error) {
	matches, err := d.FindDuplicates(ctx, id, threshold, excludeIDs...)
	if err != nil {
		return nil, err
	}
	return NewReport(matches), nil
}

// NewReport builds a DuplicateCheckReport from scored matches.
func NewReport(matches []DuplicateMatch) *DuplicateCheckReport {
	if matches == nil {
		matches = []DuplicateMatch{}
	}
	r := &DuplicateCheckReport{
		HasDuplicates: len(matches) > 0,
		Matches:       matches,
	}
	for _, m := range matches {
		switch m.Confidence {
		case DefiniteMatch:
			r.DefiniteMatchCount++
		case ProbableMatch:
			r.ProbableMatchCount++
		case PossibleMatch:
			r.PossibleMatchCount++
		}
	}
	r.CanProceed = r.DefiniteMatchCount == 0
	r.RequiresReview = r.ProbableMatchCount+r.PossibleMatchCount > 0

	switch {
	case r.DefiniteMatchCount > 0:
		r.Message = fmt.Sprintf("Found %d definite match(es). This patient likely already exists in the system.", r.DefiniteMatchCount)
	case r.RequiresReview:
		r.Message = fmt.Sprintf("Found %d potential duplicate(s). Please review before proceeding.", r.ProbableMatchCount+r.PossibleMatchCount)
	default:
		r.Message = "No duplicates found."
	}
	return r
}
