package fhir

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/mpi/internal/platform/mpi"
)

// -- Mock DuplicateFinder --

type mockFinder struct {
	matches   []mpi.DuplicateMatch
	err       error
	lastID    mpi.Identity
	threshold int
}

func (m *mockFinder) FindDuplicates(_ context.Context, id mpi.Identity, threshold int, _ ...string) ([]mpi.DuplicateMatch, error) {
	m.lastID = id
	m.threshold = threshold
	return m.matches, m.err
}

func match(id string, score int, level mpi.ConfidenceLevel) mpi.DuplicateMatch {
	return mpi.DuplicateMatch{
		Patient:     id + "-record",
		MatchResult: mpi.MatchResult{CandidateID: id, Score: score, Confidence: level},
	}
}

var janeResource = map[string]interface{}{
	"resourceType": "Patient",
	"name": []interface{}{
		map[string]interface{}{"use": "nickname", "given": []interface{}{"Janie"}},
		map[string]interface{}{"use": "official", "family": "Mensah", "given": []interface{}{"Jane", "Akosua", "Ama"}},
	},
	"birthDate": "1985-03-14",
	"gender":    "female",
	"telecom": []interface{}{
		map[string]interface{}{"system": "email", "value": "jane@example.com"},
		map[string]interface{}{"system": "phone", "use": "home", "value": "0302 123 456"},
		map[string]interface{}{"system": "phone", "use": "mobile", "value": "+233 24 123 4567"},
	},
}

func TestIdentityFromResource(t *testing.T) {
	id := IdentityFromResource(janeResource)

	checks := []struct {
		field string
		got   *string
		want  string
	}{
		{"first", id.FirstName, "Jane"},
		{"middle", id.MiddleName, "Akosua Ama"},
		{"last", id.LastName, "Mensah"},
		{"dob", id.DateOfBirth, "1985-03-14"},
		{"gender", id.Gender, "female"},
		{"phone", id.PhoneNumber, "+233 24 123 4567"},
	}
	for _, c := range checks {
		if c.got == nil || *c.got != c.want {
			t.Errorf("%s: got %v, want %q", c.field, c.got, c.want)
		}
	}
}

func TestIdentityFromResource_TextName(t *testing.T) {
	id := IdentityFromResource(map[string]interface{}{
		"resourceType": "Patient",
		"name":         []interface{}{map[string]interface{}{"text": "Dr. Kofi Annan"}},
	})
	if id.FirstName == nil || *id.FirstName != "kofi" || id.LastName == nil || *id.LastName != "annan" {
		t.Errorf("expected parsed text name, got first=%v last=%v", id.FirstName, id.LastName)
	}
	if id.PhoneNumber != nil || id.DateOfBirth != nil {
		t.Error("expected absent fields to stay nil")
	}
}

func TestGrade(t *testing.T) {
	tests := map[mpi.ConfidenceLevel]string{
		mpi.DefiniteMatch: GradeCertain,
		mpi.ProbableMatch: GradeProbable,
		mpi.PossibleMatch: GradePossible,
		mpi.UnlikelyMatch: GradeCertainlyNot,
		mpi.NoMatch:       GradeCertainlyNot,
	}
	for level, want := range tests {
		if got := Grade(level); got != want {
			t.Errorf("Grade(%s) = %s, want %s", level, got, want)
		}
	}
}

func TestPatientMatcher_Match(t *testing.T) {
	finder := &mockFinder{matches: []mpi.DuplicateMatch{
		match("a", 97, mpi.DefiniteMatch),
		match("b", 84, mpi.ProbableMatch),
		match("c", 45, mpi.UnlikelyMatch),
		match("d", 62, mpi.PossibleMatch),
	}}
	m := NewPatientMatcher(finder, 40)

	results, err := m.Match(context.Background(), janeResource, 10, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if finder.threshold != 40 {
		t.Errorf("expected threshold 40 passed through, got %d", finder.threshold)
	}
	if len(results) != 3 {
		t.Fatalf("expected certainly-not to be dropped, got %d results", len(results))
	}
	if results[0].Grade != GradeCertain || results[2].CandidateID != "d" {
		t.Errorf("unexpected results %+v", results)
	}

	results, _ = m.Match(context.Background(), janeResource, 10, true)
	if len(results) != 1 || results[0].CandidateID != "a" {
		t.Errorf("expected only the certain match, got %+v", results)
	}

	results, _ = m.Match(context.Background(), janeResource, 1, false)
	if len(results) != 1 {
		t.Errorf("expected count to cap results, got %d", len(results))
	}
}

func TestPatientMatcher_InvalidResource(t *testing.T) {
	m := NewPatientMatcher(&mockFinder{}, 60)
	_, err := m.Match(context.Background(), map[string]interface{}{"resourceType": "Practitioner"}, 5, false)
	if !errors.Is(err, ErrInvalidResource) {
		t.Errorf("expected ErrInvalidResource, got %v", err)
	}
}

func doMatch(t *testing.T, h *MatchHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/fhir/Patient/$match", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, "application/fhir+json")
	rec := httptest.NewRecorder()
	if err := h.HandleMatch(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected handler error: %v", err)
	}
	return rec
}

func parametersBody(t *testing.T, extra ...map[string]interface{}) string {
	t.Helper()
	params := []interface{}{map[string]interface{}{"name": "resource", "resource": janeResource}}
	for _, p := range extra {
		params = append(params, p)
	}
	b, err := json.Marshal(map[string]interface{}{"resourceType": "Parameters", "parameter": params})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestHandleMatch_Bundle(t *testing.T) {
	finder := &mockFinder{matches: []mpi.DuplicateMatch{match("a", 97, mpi.DefiniteMatch), match("b", 84, mpi.ProbableMatch)}}
	render := func(record interface{}) map[string]interface{} {
		return map[string]interface{}{"resourceType": "Patient", "id": record}
	}
	h := NewMatchHandler(NewPatientMatcher(finder, 60), render, zerolog.Nop())

	rec := doMatch(t, h, parametersBody(t, map[string]interface{}{"name": "count", "valueInteger": 1}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var bundle struct {
		ResourceType string `json:"resourceType"`
		Total        int    `json:"total"`
		Entry        []struct {
			Resource map[string]interface{} `json:"resource"`
			Search   struct {
				Mode      string  `json:"mode"`
				Score     float64 `json:"score"`
				Extension []struct {
					URL       string `json:"url"`
					ValueCode string `json:"valueCode"`
				} `json:"extension"`
			} `json:"search"`
		} `json:"entry"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &bundle); err != nil {
		t.Fatalf("decode bundle: %v", err)
	}
	if bundle.ResourceType != "Bundle" || bundle.Total != 1 || len(bundle.Entry) != 1 {
		t.Fatalf("unexpected bundle %+v", bundle)
	}
	entry := bundle.Entry[0]
	if entry.Resource["id"] != "a-record" {
		t.Errorf("expected rendered record, got %v", entry.Resource)
	}
	if entry.Search.Mode != "match" || entry.Search.Score != 0.97 {
		t.Errorf("unexpected search %+v", entry.Search)
	}
	if len(entry.Search.Extension) != 1 || entry.Search.Extension[0].ValueCode != GradeCertain || entry.Search.Extension[0].URL != matchGradeURL {
		t.Errorf("unexpected match-grade extension %+v", entry.Search.Extension)
	}
}

func TestHandleMatch_BadRequests(t *testing.T) {
	h := NewMatchHandler(NewPatientMatcher(&mockFinder{}, 60), nil, zerolog.Nop())
	tests := []struct {
		name string
		body string
		code string
	}{
		{"empty body", "", IssueTypeInvalid},
		{"invalid json", "{", IssueTypeStructure},
		{"wrong resource type", `{"resourceType":"Patient"}`, IssueTypeStructure},
		{"no parameter array", `{"resourceType":"Parameters"}`, IssueTypeStructure},
		{"missing resource", `{"resourceType":"Parameters","parameter":[]}`, IssueTypeRequired},
		{"zero count", parametersBody(t, map[string]interface{}{"name": "count", "valueInteger": 0}), IssueTypeValue},
		{"not a patient", `{"resourceType":"Parameters","parameter":[{"name":"resource","resource":{"resourceType":"Group"}}]}`, IssueTypeInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doMatch(t, h, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			var oo OperationOutcome
			if err := json.Unmarshal(rec.Body.Bytes(), &oo); err != nil {
				t.Fatalf("decode outcome: %v", err)
			}
			if oo.ResourceType != "OperationOutcome" || len(oo.Issue) != 1 || oo.Issue[0].Code != tt.code {
				t.Errorf("unexpected outcome %+v", oo)
			}
		})
	}
}

func TestHandleMatch_RetrievalFailure(t *testing.T) {
	var logs bytes.Buffer
	finder := &mockFinder{err: errors.New("connection refused to 10.0.0.5:5432")}
	h := NewMatchHandler(NewPatientMatcher(finder, 60), nil, zerolog.New(&logs))

	rec := doMatch(t, h, parametersBody(t))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.5") {
		t.Errorf("database error leaked to the client: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Match operation failed") {
		t.Errorf("expected generic diagnostic, got %s", rec.Body.String())
	}
	if !strings.Contains(logs.String(), "10.0.0.5") {
		t.Errorf("expected the cause to be logged, got %q", logs.String())
	}
}
