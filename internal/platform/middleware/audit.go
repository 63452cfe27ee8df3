package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/mpi/internal/platform/auth"
)

// AuditEntry describes one access to the patient index.
type AuditEntry struct {
	RequestID string
	UserID    string
	Roles     []string
	Action    string
	PatientID string
	Method    string
	Path      string
	Status    int
	RemoteIP  string
}

// Audit emits a patient_access event for every call that touches patient
// records, after the handler has produced its status.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !isPatientPath(req.URL.Path) {
				return next(c)
			}

			err := next(c)

			entry := auditEntry(c)
			entry.Status = statusOf(c, err)
			logger.Info().
				Str("type", "patient_access").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("roles", entry.Roles).
				Str("action", entry.Action).
				Str("patient_id", entry.PatientID).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Int("status", entry.Status).
				Str("remote_ip", entry.RemoteIP).
				Msg("patient_access")

			return err
		}
	}
}

func auditEntry(c echo.Context) AuditEntry {
	req := c.Request()
	rid, _ := c.Get("request_id").(string)
	return AuditEntry{
		RequestID: rid,
		UserID:    auth.UserIDFromContext(req.Context()),
		Roles:     auth.RolesFromContext(req.Context()),
		Action:    auditAction(req.Method, req.URL.Path),
		PatientID: patientIDFromPath(req.URL.Path),
		Method:    req.Method,
		Path:      req.URL.Path,
		Status:    c.Response().Status,
		RemoteIP:  c.RealIP(),
	}
}

func isPatientPath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/patients") || strings.HasPrefix(path, "/fhir/Patient")
}

// auditAction names what the caller did in index terms.
func auditAction(method, path string) string {
	switch {
	case strings.HasSuffix(path, "/$match"), strings.HasSuffix(path, "/match"):
		return "match"
	case strings.HasSuffix(path, "/check-duplicates"):
		return "check"
	case strings.HasSuffix(path, "/search"):
		return "search"
	}
	switch method {
	case http.MethodPost:
		return "register"
	case http.MethodDelete:
		return "retire"
	default:
		return "read"
	}
}

func patientIDFromPath(path string) string {
	rest := strings.TrimPrefix(path, "/api/v1/patients/")
	if rest == path {
		return ""
	}
	id := strings.SplitN(rest, "/", 2)[0]
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}
	return id
}
