package patient

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/mpi/internal/platform/mpi"
)

// -- Mock PatientRepository --

type mockPatientRepo struct {
	patients  map[uuid.UUID]*Patient
	order     []uuid.UUID
	seq       int64
	findErr   error
	findCalls int
	lastPreds []mpi.SearchPredicate
	lastLimit int

	lockCalls      int
	findBeforeLock bool
}

func newMockPatientRepo(seed ...*Patient) *mockPatientRepo {
	m := &mockPatientRepo{patients: make(map[uuid.UUID]*Patient)}
	for _, p := range seed {
		_ = m.Create(context.Background(), p)
	}
	return m
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	m.patients[p.ID] = p
	m.order = append(m.order, p.ID)
	return nil
}

func (m *mockPatientRepo) live() []*Patient {
	var out []*Patient
	for _, id := range m.order {
		if p := m.patients[id]; p.DeletedAt == nil {
			out = append(out, p)
		}
	}
	return out
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok || p.DeletedAt != nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockPatientRepo) GetByPatientNumber(_ context.Context, number string) (*Patient, error) {
	for _, p := range m.live() {
		if p.PatientNumber == number {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockPatientRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	all := m.live()
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockPatientRepo) Search(ctx context.Context, preds []mpi.SearchPredicate, limit, offset int) ([]*Patient, int, error) {
	m.lastPreds = preds
	m.lastLimit = limit
	return m.List(ctx, limit, offset)
}

func (m *mockPatientRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	p, ok := m.patients[id]
	if !ok || p.DeletedAt != nil {
		return ErrNotFound
	}
	now := time.Now()
	p.DeletedAt = &now
	return nil
}

func (m *mockPatientRepo) LockRegistrations(context.Context) error {
	m.lockCalls++
	return nil
}

func (m *mockPatientRepo) NextPatientSequence(context.Context) (int64, error) {
	m.seq++
	return m.seq, nil
}

// FindCandidates ignores the clauses and returns every live record so the
// scorer decides.
func (m *mockPatientRepo) FindCandidates(_ context.Context, filter mpi.Prefilter) ([]mpi.Candidate, error) {
	m.findCalls++
	if m.lockCalls == 0 {
		m.findBeforeLock = true
	}
	if m.findErr != nil {
		return nil, m.findErr
	}
	excluded := make(map[string]bool)
	for _, id := range filter.ExcludeIDs {
		excluded[id] = true
	}
	var out []mpi.Candidate
	for _, p := range m.live() {
		if !excluded[p.ID.String()] {
			out = append(out, p.Candidate())
		}
	}
	return out, nil
}

func date(s string) *time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return &t
}

func johnDoe() *Patient {
	return &Patient{
		FirstName:   "John",
		LastName:    "Doe",
		BirthDate:   date("1990-01-01"),
		PhoneNumber: mpi.Str("0241234567"),
	}
}
