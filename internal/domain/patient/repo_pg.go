package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/mpi/internal/platform/db"
	"github.com/ehr/mpi/internal/platform/mpi"
)

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) db.Querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, patient_number, first_name, middle_name, last_name,
	birth_date, gender, phone_number, email,
	address_line1, city, region,
	deleted_at, created_at, updated_at`

// phoneDigits matches the expression index on phone_number.
const phoneDigits = `regexp_replace(phone_number, '[^0-9]', '', 'g')`

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (
			id, patient_number, first_name, middle_name, last_name,
			birth_date, gender, phone_number, email,
			address_line1, city, region
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		p.ID, p.PatientNumber, p.FirstName, p.MiddleName, p.LastName,
		p.BirthDate, p.Gender, p.PhoneNumber, p.Email,
		p.AddressLine1, p.City, p.Region,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("patient create: %w", err)
	}
	return nil
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.getOne(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1 AND deleted_at IS NULL`, id)
}

func (r *patientRepoPG) GetByPatientNumber(ctx context.Context, number string) (*Patient, error) {
	return r.getOne(ctx, `SELECT `+patientCols+` FROM patient WHERE patient_number = $1 AND deleted_at IS NULL`, number)
}

func (r *patientRepoPG) getOne(ctx context.Context, sql string, arg interface{}) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, sql, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patient get: %w", err)
	}
	return p, nil
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	q := db.NewQuery("patient", patientCols).
		Where("deleted_at IS NULL").
		OrderBy("last_name, first_name, created_at")
	return r.page(ctx, q, limit, offset)
}

func (r *patientRepoPG) Search(ctx context.Context, preds []mpi.SearchPredicate, limit, offset int) ([]*Patient, int, error) {
	if len(preds) == 0 {
		return []*Patient{}, 0, nil
	}
	q := searchQuery(preds)
	return r.page(ctx, q, limit, offset)
}

func (r *patientRepoPG) page(ctx context.Context, q *db.Query, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, q.CountSQL(), q.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("patient count: %w", err)
	}
	sql, args := q.DataSQL(limit, offset)
	patients, err := r.query(ctx, sql, args)
	if err != nil {
		return nil, 0, err
	}
	return patients, total, nil
}

func (r *patientRepoPG) query(ctx context.Context, sql string, args []interface{}) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("patient query: %w", err)
	}
	defer rows.Close()

	patients := []*Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("patient scan: %w", err)
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func (r *patientRepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("patient delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) NextPatientSequence(ctx context.Context) (int64, error) {
	var seq int64
	if err := r.conn(ctx).QueryRow(ctx, `SELECT nextval('patient_number_seq')`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next patient number: %w", err)
	}
	return seq, nil
}

// registrationLockKey is the pg_advisory_xact_lock key shared by every
// registration ("MPI" in ASCII).
const registrationLockKey int64 = 0x4d5049

func (r *patientRepoPG) LockRegistrations(ctx context.Context) error {
	if _, err := r.conn(ctx).Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, registrationLockKey); err != nil {
		return fmt.Errorf("lock registrations: %w", err)
	}
	return nil
}

// FindCandidates runs the blocking prefilter. Rows come back oldest first
// so that equal scores keep registration order.
func (r *patientRepoPG) FindCandidates(ctx context.Context, filter mpi.Prefilter) ([]mpi.Candidate, error) {
	if filter.Empty() {
		return nil, nil
	}
	sql, args := candidateQuery(filter).DataSQL(filter.Limit, 0)
	patients, err := r.query(ctx, sql, args)
	if err != nil {
		return nil, err
	}
	candidates := make([]mpi.Candidate, 0, len(patients))
	for _, p := range patients {
		candidates = append(candidates, p.Candidate())
	}
	return candidates, nil
}

func candidateQuery(filter mpi.Prefilter) *db.Query {
	q := db.NewQuery("patient", patientCols).Where("deleted_at IS NULL")

	clauses := make([]string, 0, len(filter.Clauses))
	for _, c := range filter.Clauses {
		if sql := clauseSQL(q, c); sql != "" {
			clauses = append(clauses, sql)
		}
	}
	q.WhereAny(clauses...)

	var exclude []string
	for _, id := range filter.ExcludeIDs {
		if _, err := uuid.Parse(id); err == nil {
			exclude = append(exclude, id)
		}
	}
	if len(exclude) > 0 {
		q.Where("NOT (id = ANY(" + q.Arg(exclude) + "::uuid[]))")
	}
	return q.OrderBy("created_at, id")
}

func clauseSQL(q *db.Query, c mpi.Clause) string {
	switch c := c.(type) {
	case mpi.PhoneSuffixClause:
		return phoneDigits + " LIKE " + q.Arg("%"+c.Suffix)
	case mpi.ExactNameClause:
		return fmt.Sprintf("(LOWER(first_name) = %s AND LOWER(last_name) = %s)", q.Arg(c.FirstName), q.Arg(c.LastName))
	case mpi.PrefixNameClause:
		return fmt.Sprintf("(LOWER(first_name) LIKE %s AND LOWER(last_name) LIKE %s)",
			q.Arg(db.EscapeLike(c.FirstPrefix)+"%"), q.Arg(db.EscapeLike(c.LastPrefix)+"%"))
	case mpi.SwappedNameClause:
		return fmt.Sprintf("(LOWER(first_name) = %s AND LOWER(last_name) = %s)", q.Arg(c.LastName), q.Arg(c.FirstName))
	case mpi.DOBPrefixClause:
		return fmt.Sprintf("(birth_date = %s AND LOWER(last_name) LIKE %s)",
			q.Arg(c.DateOfBirth), q.Arg(db.EscapeLike(c.LastPrefix)+"%"))
	}
	return ""
}

var searchColumns = map[mpi.Field]string{
	mpi.FieldFirstName:  "LOWER(first_name)",
	mpi.FieldMiddleName: "LOWER(COALESCE(middle_name, ''))",
	mpi.FieldLastName:   "LOWER(last_name)",
}

func searchQuery(preds []mpi.SearchPredicate) *db.Query {
	q := db.NewQuery("patient", patientCols).Where("deleted_at IS NULL")

	clauses := make([]string, 0, len(preds))
	for _, p := range preds {
		switch p := p.(type) {
		case mpi.NamePredicate:
			col, ok := searchColumns[p.Field]
			if !ok {
				continue
			}
			pattern := db.EscapeLike(p.Value) + "%"
			if p.Mode == mpi.MatchContains {
				pattern = "%" + pattern
			}
			clauses = append(clauses, col+" LIKE "+q.Arg(pattern))
		case mpi.PhoneDigitsPredicate:
			clauses = append(clauses, phoneDigits+" LIKE "+q.Arg("%"+p.Digits+"%"))
		case mpi.PatientNumberPrefixPredicate:
			clauses = append(clauses, "patient_number LIKE "+q.Arg(db.EscapeLike(p.Prefix)+"%"))
		}
	}
	q.WhereAny(clauses...)
	return q.OrderBy("last_name, first_name, created_at")
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.PatientNumber, &p.FirstName, &p.MiddleName, &p.LastName,
		&p.BirthDate, &p.Gender, &p.PhoneNumber, &p.Email,
		&p.AddressLine1, &p.City, &p.Region,
		&p.DeletedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
