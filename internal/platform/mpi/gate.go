package mpi

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Decision is the outcome of the registration gate.
type Decision string

const (
	DecisionChecking Decision = "CHECKING"
	DecisionBlocked  Decision = "BLOCKED"
	DecisionWarned   Decision = "WARNED"
	DecisionAllowed  Decision = "ALLOWED"
)

// RegistrationStatus is what the caller of a gated registration sees.
type RegistrationStatus string

const (
	StatusCreated          RegistrationStatus = "CREATED"
	StatusDuplicateWarning RegistrationStatus = "DUPLICATE_WARNING"
)

// RegistrationOptions carries the explicit overrides a caller may supply. Either
// flag bypasses the duplicate check entirely.
type RegistrationOptions struct {
	SkipDuplicateCheck    bool   `json:"skip_duplicate_check"`
	ConfirmedNotDuplicate bool   `json:"confirmed_not_duplicate"`
	Actor                 string `json:"-"`
}

// Overrides reports whether any override flag is set.
func (o RegistrationOptions) Overrides() bool {
	return o.SkipDuplicateCheck || o.ConfirmedNotDuplicate
}

// Registration is the result of a gated registration that did not block.
type Registration struct {
	Status         RegistrationStatus    `json:"status"`
	Decision       Decision              `json:"decision"`
	Overridden     bool                  `json:"overridden"`
	DuplicateCheck *DuplicateCheckReport `json:"duplicate_check,omitempty"`
}

// DuplicateBlockedError is returned when a definite match exists and no
// override was given.
type DuplicateBlockedError struct {
	Report *DuplicateCheckReport
}

func (e *DuplicateBlockedError) Error() string {
	return fmt.Sprintf("registration blocked: %d definite duplicate match(es)", e.Report.DefiniteMatchCount)
}

// Gate decides whether a new registration may proceed.
type Gate struct {
	detector  *Detector
	threshold int
	logger    zerolog.Logger
}

// NewGate creates a Gate using the detector's configured duplicate threshold.
func NewGate(detector *Detector, logger zerolog.Logger) *Gate {
	return &Gate{
		detector:  detector,
		threshold: detector.scorer.cfg.DuplicateThreshold,
		logger:    logger,
	}
}

// Decide maps a report onto the gate's terminal states.
func (g *Gate) Decide(report *DuplicateCheckReport) Decision {
	switch {
	case report.DefiniteMatchCount > 0:
		return DecisionBlocked
	case report.ProbableMatchCount > 0 || report.PossibleMatchCount > 0:
		return DecisionWarned
	default:
		return DecisionAllowed
	}
}

// Register runs the duplicate check for id and calls create only when the
// registration is allowed or explicitly overridden. A warned registration is
// returned without creating anything so a human can review the report and
// resubmit with ConfirmedNotDuplicate. A blocked one returns *DuplicateBlockedError.
func (g *Gate) Register(ctx context.Context, id Identity, opts RegistrationOptions, create func(context.Context) error) (*Registration, error) {
	if opts.Overrides() {
		g.logger.Warn().
			Str("actor", opts.Actor).
			Bool("skip_duplicate_check", opts.SkipDuplicateCheck).
			Bool("confirmed_not_duplicate", opts.ConfirmedNotDuplicate).
			Msg("duplicate check overridden")
		if err := create(ctx); err != nil {
			return nil, err
		}
		return &Registration{Status: StatusCreated, Decision: DecisionAllowed, Overridden: true}, nil
	}

	report, err := g.detector.Check(ctx, id, g.threshold)
	if err != nil {
		return nil, err
	}

	decision := g.Decide(report)
	switch decision {
	case DecisionBlocked:
		g.logger.Info().
			Str("actor", opts.Actor).
			Int("definite_matches", report.DefiniteMatchCount).
			Msg("registration blocked by duplicate check")
		return nil, &DuplicateBlockedError{Report: report}
	case DecisionWarned:
		return &Registration{Status: StatusDuplicateWarning, Decision: decision, DuplicateCheck: report}, nil
	}

	if err := create(ctx); err != nil {
		return nil, err
	}
	return &Registration{Status: StatusCreated, Decision: decision, DuplicateCheck: report}, nil
}
