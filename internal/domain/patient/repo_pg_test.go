package patient

import (
	"strings"
	"testing"
	"time"

	"github.com/ehr/mpi/internal/platform/mpi"
)

func TestCandidateQuery(t *testing.T) {
	dob := time.Date(1978, 11, 2, 0, 0, 0, 0, time.UTC)
	filter := mpi.Prefilter{
		Clauses: []mpi.Clause{
			mpi.PhoneSuffixClause{Suffix: "241234567"},
			mpi.ExactNameClause{FirstName: "kwabena", LastName: "asante"},
			mpi.PrefixNameClause{FirstPrefix: "kwa", LastPrefix: "asa"},
			mpi.SwappedNameClause{FirstName: "kwabena", LastName: "asante"},
			mpi.DOBPrefixClause{DateOfBirth: dob, LastPrefix: "asa"},
		},
		ExcludeIDs: []string{"6f1c2a2e-3b9d-4c55-9d0e-2f7a8b1c4d5e", "not-a-uuid"},
		Limit:      20,
	}

	sql, args := candidateQuery(filter).DataSQL(filter.Limit, 0)

	wantFragments := []string{
		"WHERE deleted_at IS NULL AND (",
		phoneDigits + " LIKE $1",
		"(LOWER(first_name) = $2 AND LOWER(last_name) = $3)",
		"(LOWER(first_name) LIKE $4 AND LOWER(last_name) LIKE $5)",
		"(LOWER(first_name) = $6 AND LOWER(last_name) = $7)",
		"(birth_date = $8 AND LOWER(last_name) LIKE $9)",
		"NOT (id = ANY($10::uuid[]))",
		"ORDER BY created_at, id LIMIT $11 OFFSET $12",
	}
	for _, frag := range wantFragments {
		if !strings.Contains(sql, frag) {
			t.Errorf("expected SQL to contain %q\n%s", frag, sql)
		}
	}
	if strings.Count(sql, " OR ") != 4 {
		t.Errorf("expected clauses to be OR-ed, got\n%s", sql)
	}

	if len(args) != 12 {
		t.Fatalf("expected 12 args, got %d: %v", len(args), args)
	}
	wantArgs := map[int]interface{}{
		0: "%241234567",
		1: "kwabena", 2: "asante",
		3: "kwa%", 4: "asa%",
		5: "asante", 6: "kwabena",
		8: "asa%",
		10: 20, 11: 0,
	}
	for i, want := range wantArgs {
		if args[i] != want {
			t.Errorf("arg %d = %v, want %v", i, args[i], want)
		}
	}
	if got, ok := args[7].(time.Time); !ok || !got.Equal(dob) {
		t.Errorf("expected dob arg, got %v", args[7])
	}
	if ids, ok := args[9].([]string); !ok || len(ids) != 1 {
		t.Errorf("expected only valid UUIDs excluded, got %v", args[9])
	}
}

func TestCandidateQuery_NoExclusions(t *testing.T) {
	filter := mpi.Prefilter{Clauses: []mpi.Clause{mpi.PhoneSuffixClause{Suffix: "241234567"}}, Limit: 5}
	sql, args := candidateQuery(filter).DataSQL(filter.Limit, 0)
	if strings.Contains(sql, "ANY(") {
		t.Errorf("expected no exclusion clause, got\n%s", sql)
	}
	if strings.Contains(sql, " OR ") {
		t.Errorf("single clause must not be OR-ed, got\n%s", sql)
	}
	if len(args) != 3 || args[1] != 5 {
		t.Errorf("unexpected args %v", args)
	}
}

func TestSearchQuery(t *testing.T) {
	preds := []mpi.SearchPredicate{
		mpi.NamePredicate{Field: mpi.FieldFirstName, Mode: mpi.MatchContains, Value: "ama"},
		mpi.NamePredicate{Field: mpi.FieldMiddleName, Mode: mpi.MatchStartsWith, Value: "ama"},
		mpi.PhoneDigitsPredicate{Digits: "4567"},
		mpi.PatientNumberPrefixPredicate{Prefix: "PT-2024_"},
	}
	q := searchQuery(preds)
	sql, args := q.DataSQL(20, 40)

	for _, frag := range []string{
		"LOWER(first_name) LIKE $1",
		"LOWER(COALESCE(middle_name, '')) LIKE $2",
		phoneDigits + " LIKE $3",
		"patient_number LIKE $4",
		"ORDER BY last_name, first_name, created_at",
	} {
		if !strings.Contains(sql, frag) {
			t.Errorf("expected SQL to contain %q\n%s", frag, sql)
		}
	}
	want := []interface{}{"%ama%", "ama%", "%4567%", `PT-2024\_%`, 20, 40}
	for i, w := range want {
		if args[i] != w {
			t.Errorf("arg %d = %v, want %v", i, args[i], w)
		}
	}
	if !strings.HasPrefix(q.CountSQL(), "SELECT COUNT(*) FROM patient WHERE deleted_at IS NULL") {
		t.Errorf("unexpected count SQL %s", q.CountSQL())
	}
}
