package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/mpi/internal/platform/auth"
	"github.com/ehr/mpi/internal/platform/db"
	"github.com/ehr/mpi/internal/platform/mpi"
)

var (
	ErrInvalidPatient   = errors.New("invalid patient")
	ErrInvalidThreshold = errors.New("threshold must be between 0 and 100")
)

// decisionOverridden labels registrations that bypassed the gate.
const decisionOverridden = "OVERRIDDEN"

type Service struct {
	patients PatientRepository
	detector *mpi.Detector
	gate     *mpi.Gate
	cfg      mpi.Config
	metrics  *Metrics
	logger   zerolog.Logger
	withTx   func(ctx context.Context, fn func(context.Context) error) error
	now      func() time.Time
}

type Option func(*Service)

// WithTransactions runs each registration in one transaction that holds the
// registration lock from the duplicate check through the insert.
func WithTransactions(b db.TxBeginner) Option {
	return func(s *Service) {
		s.withTx = func(ctx context.Context, fn func(context.Context) error) error {
			return db.WithTx(ctx, b, fn)
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(patients PatientRepository, cfg mpi.Config, logger zerolog.Logger, opts ...Option) *Service {
	mpiLogger := logger.With().Str("component", "mpi").Logger()
	detector := mpi.NewDetector(patients, mpi.NewScorer(cfg), mpiLogger)
	s := &Service{
		patients: patients,
		detector: detector,
		gate:     mpi.NewGate(detector, mpiLogger),
		cfg:      cfg,
		logger:   logger,
		withTx: func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Detector() *mpi.Detector { return s.detector }

func (s *Service) Config() mpi.Config { return s.cfg }

// FormatPatientNumber renders PT-2024-000123 style identifiers.
func FormatPatientNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s%d-%06d", prefix, year, seq)
}

func (s *Service) validate(p *Patient) error {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	if p.FirstName == "" {
		return fmt.Errorf("%w: first_name is required", ErrInvalidPatient)
	}
	if p.LastName == "" {
		return fmt.Errorf("%w: last_name is required", ErrInvalidPatient)
	}
	if p.BirthDate != nil && p.BirthDate.After(s.now()) {
		return fmt.Errorf("%w: birth_date is in the future", ErrInvalidPatient)
	}
	return nil
}

// CreateWithDuplicateCheck registers p behind the duplicate gate. A definite
// match yields *mpi.DuplicateBlockedError; probable or possible matches
// return a DUPLICATE_WARNING result and nothing is written.
func (s *Service) CreateWithDuplicateCheck(ctx context.Context, p *Patient, opts mpi.RegistrationOptions) (*RegistrationResult, error) {
	if err := s.validate(p); err != nil {
		return nil, err
	}
	if opts.Actor == "" {
		opts.Actor = auth.UserIDFromContext(ctx)
	}

	// The check and the insert share one transaction under the registration
	// lock, so two concurrent registrations of one person cannot both pass.
	var reg *mpi.Registration
	err := s.withTx(ctx, func(ctx context.Context) error {
		if err := s.patients.LockRegistrations(ctx); err != nil {
			return err
		}
		var err error
		reg, err = s.gate.Register(ctx, p.Identity(), opts, func(ctx context.Context) error {
			return s.create(ctx, p)
		})
		return err
	})
	var blocked *mpi.DuplicateBlockedError
	if errors.As(err, &blocked) {
		s.metrics.observeReport(blocked.Report)
		s.metrics.observeDecision(string(mpi.DecisionBlocked))
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	s.metrics.observeReport(reg.DuplicateCheck)
	if reg.Overridden {
		s.metrics.observeDecision(decisionOverridden)
	} else {
		s.metrics.observeDecision(string(reg.Decision))
	}

	result := &RegistrationResult{
		Status:         reg.Status,
		Decision:       reg.Decision,
		Overridden:     reg.Overridden,
		DuplicateCheck: reg.DuplicateCheck,
	}
	if reg.Status == mpi.StatusCreated {
		result.Patient = p
		s.logger.Info().
			Str("patient_id", p.ID.String()).
			Str("patient_number", p.PatientNumber).
			Bool("overridden", reg.Overridden).
			Msg("patient registered")
	}
	return result, nil
}

func (s *Service) create(ctx context.Context, p *Patient) error {
	return s.withTx(ctx, func(ctx context.Context) error {
		seq, err := s.patients.NextPatientSequence(ctx)
		if err != nil {
			return err
		}
		p.PatientNumber = FormatPatientNumber(s.cfg.PatientNumberPrefix, s.now().Year(), seq)
		return s.patients.Create(ctx, p)
	})
}

// CheckDuplicates runs detection for an identity that is not stored yet.
func (s *Service) CheckDuplicates(ctx context.Context, id mpi.Identity, threshold int) (*mpi.DuplicateCheckReport, error) {
	if threshold < 0 || threshold > 100 {
		return nil, ErrInvalidThreshold
	}
	report, err := s.detector.Check(ctx, id, threshold)
	if err != nil {
		return nil, err
	}
	s.metrics.observeReport(report)
	return report, nil
}

// MatchExisting finds duplicates of a stored patient, excluding itself.
func (s *Service) MatchExisting(ctx context.Context, id uuid.UUID, threshold int) (*mpi.DuplicateCheckReport, error) {
	if threshold < 0 || threshold > 100 {
		return nil, ErrInvalidThreshold
	}
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	report, err := s.detector.Check(ctx, p.Identity(), threshold, p.ID.String())
	if err != nil {
		return nil, err
	}
	s.metrics.observeReport(report)
	return report, nil
}

// SearchPatients runs the fuzzy free-text search. A query that yields no
// predicates returns nothing rather than every patient.
func (s *Service) SearchPatients(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	preds := mpi.BuildSearchPredicates(query, s.cfg.PatientNumberPrefix)
	if len(preds) == 0 {
		return []*Patient{}, 0, nil
	}
	return s.patients.Search(ctx, preds, limit, offset)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetByPatientNumber(ctx context.Context, number string) (*Patient, error) {
	return s.patients.GetByPatientNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	if err := s.patients.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().
		Str("patient_id", id.String()).
		Str("actor", auth.UserIDFromContext(ctx)).
		Msg("patient retired")
	return nil
}
