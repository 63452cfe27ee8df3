package fhir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/mpi/internal/platform/mpi"
)

// ErrInvalidResource is returned when the $match input is not a usable Patient.
var ErrInvalidResource = errors.New("invalid patient resource")

// DuplicateFinder is satisfied by *mpi.Detector.
type DuplicateFinder interface {
	FindDuplicates(ctx context.Context, id mpi.Identity, threshold int, excludeIDs ...string) ([]mpi.DuplicateMatch, error)
}

// ResourceRenderer turns a matched record into a FHIR Patient resource.
type ResourceRenderer func(record interface{}) map[string]interface{}

const matchGradeURL = "http://hl7.org/fhir/StructureDefinition/match-grade"

// Match grades from the FHIR match-grade value set.
const (
	GradeCertain      = "certain"
	GradeProbable     = "probable"
	GradePossible     = "possible"
	GradeCertainlyNot = "certainly-not"
)

// Grade maps an engine confidence level onto the FHIR match-grade codes.
func Grade(level mpi.ConfidenceLevel) string {
	switch level {
	case mpi.DefiniteMatch:
		return GradeCertain
	case mpi.ProbableMatch:
		return GradeProbable
	case mpi.PossibleMatch:
		return GradePossible
	default:
		return GradeCertainlyNot
	}
}

type MatchResult struct {
	mpi.DuplicateMatch
	Grade string
}

// PatientMatcher answers Patient/$match with the duplicate detector.
type PatientMatcher struct {
	finder    DuplicateFinder
	threshold int
}

// NewPatientMatcher scores candidates down to threshold; anything graded
// certainly-not is dropped regardless.
func NewPatientMatcher(finder DuplicateFinder, threshold int) *PatientMatcher {
	return &PatientMatcher{finder: finder, threshold: threshold}
}

func (m *PatientMatcher) Match(ctx context.Context, resource map[string]interface{}, count int, onlyCertainMatches bool) ([]MatchResult, error) {
	if resource == nil {
		return nil, fmt.Errorf("%w: resource is required", ErrInvalidResource)
	}
	if rt, _ := resource["resourceType"].(string); rt != "Patient" {
		return nil, fmt.Errorf("%w: expected resourceType Patient, got %q", ErrInvalidResource, rt)
	}

	matches, err := m.finder.FindDuplicates(ctx, IdentityFromResource(resource), m.threshold)
	if err != nil {
		return nil, err
	}

	results := make([]MatchResult, 0, len(matches))
	for _, match := range matches {
		grade := Grade(match.Confidence)
		if grade == GradeCertainlyNot {
			continue
		}
		if onlyCertainMatches && grade != GradeCertain {
			continue
		}
		results = append(results, MatchResult{DuplicateMatch: match, Grade: grade})
		if len(results) == count {
			break
		}
	}
	return results, nil
}

// IdentityFromResource pulls the matchable demographics out of a FHIR
// Patient. The official name wins over the first listed; extra given
// names become the middle name; a mobile phone wins over other phones.
func IdentityFromResource(patient map[string]interface{}) mpi.Identity {
	var id mpi.Identity

	if name := pickName(patient); name != nil {
		if family, ok := name["family"].(string); ok {
			id.LastName = nonEmpty(family)
		}
		givens := stringList(name["given"])
		if len(givens) > 0 {
			id.FirstName = nonEmpty(givens[0])
		}
		if len(givens) > 1 {
			id.MiddleName = nonEmpty(strings.Join(givens[1:], " "))
		}
		if id.FirstName == nil && id.LastName == nil {
			if text, ok := name["text"].(string); ok {
				full := mpi.ParseFullName(text)
				id.FirstName = nonEmpty(full.First)
				id.MiddleName = nonEmpty(full.Middle)
				id.LastName = nonEmpty(full.Last)
			}
		}
	}

	if bd, ok := patient["birthDate"].(string); ok {
		id.DateOfBirth = nonEmpty(bd)
	}
	if g, ok := patient["gender"].(string); ok {
		id.Gender = nonEmpty(g)
	}
	id.PhoneNumber = pickPhone(patient)
	return id
}

func pickName(patient map[string]interface{}) map[string]interface{} {
	names, _ := patient["name"].([]interface{})
	var first map[string]interface{}
	for _, raw := range names {
		name, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if use, _ := name["use"].(string); use == "official" {
			return name
		}
		if first == nil {
			first = name
		}
	}
	return first
}

func pickPhone(patient map[string]interface{}) *string {
	telecoms, _ := patient["telecom"].([]interface{})
	var phone *string
	for _, raw := range telecoms {
		tc, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if system, _ := tc["system"].(string); system != "phone" {
			continue
		}
		value, _ := tc["value"].(string)
		if use, _ := tc["use"].(string); use == "mobile" && nonEmpty(value) != nil {
			return nonEmpty(value)
		}
		if phone == nil {
			phone = nonEmpty(value)
		}
	}
	return phone
}

func stringList(v interface{}) []string {
	raw, _ := v.([]interface{})
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func nonEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// -- Handler --

// MatchHandler serves POST /Patient/$match.
type MatchHandler struct {
	matcher *PatientMatcher
	render  ResourceRenderer
	logger  zerolog.Logger
}

func NewMatchHandler(matcher *PatientMatcher, render ResourceRenderer, logger zerolog.Logger) *MatchHandler {
	return &MatchHandler{matcher: matcher, render: render, logger: logger}
}

func (h *MatchHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/Patient/$match", h.HandleMatch)
}

func (h *MatchHandler) HandleMatch(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorOutcome(IssueTypeInvalid, "Failed to read request body"))
	}
	if len(body) == 0 {
		return c.JSON(http.StatusBadRequest, ErrorOutcome(IssueTypeInvalid, "Request body is empty"))
	}

	var params map[string]interface{}
	if err := json.Unmarshal(body, &params); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorOutcome(IssueTypeStructure, "Invalid JSON: "+err.Error()))
	}
	if rt, _ := params["resourceType"].(string); rt != "Parameters" {
		return c.JSON(http.StatusBadRequest, ErrorOutcome(IssueTypeStructure, "Expected resourceType 'Parameters'"))
	}
	paramList, ok := params["parameter"].([]interface{})
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorOutcome(IssueTypeStructure, "Expected 'parameter' array in Parameters resource"))
	}

	var patientResource map[string]interface{}
	count := 5
	onlyCertainMatches := false
	for _, pRaw := range paramList {
		p, ok := pRaw.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := p["name"].(string)
		switch name {
		case "resource":
			patientResource, _ = p["resource"].(map[string]interface{})
		case "count":
			if v, ok := p["valueInteger"].(float64); ok {
				count = int(v)
			}
		case "onlyCertainMatches":
			if v, ok := p["valueBoolean"].(bool); ok {
				onlyCertainMatches = v
			}
		}
	}

	if patientResource == nil {
		return c.JSON(http.StatusBadRequest, ErrorOutcome(IssueTypeRequired,
			"Missing 'resource' parameter with Patient resource", "Parameters.parameter.resource"))
	}
	if count < 1 {
		return c.JSON(http.StatusBadRequest, ErrorOutcome(IssueTypeValue,
			"count must be a positive integer", "Parameters.parameter.count"))
	}

	results, err := h.matcher.Match(c.Request().Context(), patientResource, count, onlyCertainMatches)
	if errors.Is(err, ErrInvalidResource) {
		return c.JSON(http.StatusBadRequest, ErrorOutcome(IssueTypeInvalid, err.Error()))
	}
	if err != nil {
		rid, _ := c.Get("request_id").(string)
		h.logger.Error().Err(err).Str("request_id", rid).Msg("patient $match failed")
		return c.JSON(http.StatusInternalServerError, ErrorOutcome(IssueTypeTransient, "Match operation failed"))
	}

	return c.JSON(http.StatusOK, h.bundle(results))
}

func (h *MatchHandler) bundle(results []MatchResult) map[string]interface{} {
	entries := make([]interface{}, 0, len(results))
	for _, r := range results {
		var resource map[string]interface{}
		if h.render != nil {
			resource = h.render(r.Patient)
		}
		if resource == nil {
			resource = map[string]interface{}{"resourceType": "Patient", "id": r.CandidateID}
		}

		entries = append(entries, map[string]interface{}{
			"resource": resource,
			"search": map[string]interface{}{
				"mode":  "match",
				"score": float64(r.Score) / 100,
				"extension": []interface{}{
					map[string]interface{}{"url": matchGradeURL, "valueCode": r.Grade},
				},
			},
		})
	}

	return map[string]interface{}{
		"resourceType": "Bundle",
		"type":         "searchset",
		"total":        len(results),
		"entry":        entries,
	}
}
