package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ehr/mpi/internal/platform/mpi"
)

var ErrNotFound = errors.New("patient not found")

type PatientRepository interface {
	mpi.CandidateRepository

	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByPatientNumber(ctx context.Context, number string) (*Patient, error)
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	Search(ctx context.Context, preds []mpi.SearchPredicate, limit, offset int) ([]*Patient, int, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	NextPatientSequence(ctx context.Context) (int64, error)
	// LockRegistrations serializes registrations until the surrounding
	// transaction ends.
	LockRegistrations(ctx context.Context) error
}
