package patient

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/mpi/internal/platform/auth"
	"github.com/ehr/mpi/internal/platform/mpi"
	"github.com/ehr/mpi/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.RoleRegistrar, auth.RoleClinician, auth.RoleRecords))
	readGroup.GET("/patients", h.ListPatients)
	readGroup.GET("/patients/search", h.SearchPatients)
	readGroup.GET("/patients/by-number/:number", h.GetPatientByNumber)
	readGroup.GET("/patients/:id", h.GetPatient)

	writeGroup := api.Group("", auth.RequireRole(auth.RoleRegistrar))
	writeGroup.POST("/patients", h.CreatePatient)
	writeGroup.POST("/patients/check-duplicates", h.CheckDuplicates)

	recordsGroup := api.Group("", auth.RequireRole(auth.RoleRegistrar, auth.RoleRecords))
	recordsGroup.POST("/patients/:id/match", h.MatchPatient)

	retireGroup := api.Group("", auth.RequireRole(auth.RoleRecords))
	retireGroup.DELETE("/patients/:id", h.DeletePatient)
}

// RegisterRequest is the registration payload. The two flags can also be
// passed as query parameters.
type RegisterRequest struct {
	FirstName             string  `json:"first_name"`
	MiddleName            *string `json:"middle_name"`
	LastName              string  `json:"last_name"`
	DateOfBirth           *string `json:"date_of_birth"`
	Gender                *string `json:"gender"`
	PhoneNumber           *string `json:"phone_number"`
	Email                 *string `json:"email"`
	AddressLine1          *string `json:"address_line1"`
	City                  *string `json:"city"`
	Region                *string `json:"region"`
	SkipDuplicateCheck    bool    `json:"skip_duplicate_check"`
	ConfirmedNotDuplicate bool    `json:"confirmed_not_duplicate"`
}

func (r *RegisterRequest) patient() (*Patient, error) {
	p := &Patient{
		FirstName:    r.FirstName,
		MiddleName:   r.MiddleName,
		LastName:     r.LastName,
		Gender:       r.Gender,
		PhoneNumber:  r.PhoneNumber,
		Email:        r.Email,
		AddressLine1: r.AddressLine1,
		City:         r.City,
		Region:       r.Region,
	}
	if r.DateOfBirth != nil && *r.DateOfBirth != "" {
		dob, ok := mpi.ParseDate(*r.DateOfBirth)
		if !ok {
			return nil, errors.New("date_of_birth must be YYYY-MM-DD")
		}
		p.BirthDate = &dob
	}
	return p, nil
}

// CheckRequest is an identity to test for duplicates. FullName is split
// into first, middle and last when those are not given separately.
type CheckRequest struct {
	mpi.Identity
	FullName *string `json:"full_name"`
}

func (r *CheckRequest) identity() mpi.Identity {
	id := r.Identity
	if r.FullName == nil || id.FirstName != nil || id.LastName != nil {
		return id
	}
	full := mpi.ParseFullName(*r.FullName)
	if full.First != "" {
		id.FirstName = mpi.Str(full.First)
	}
	if full.Middle != "" && id.MiddleName == nil {
		id.MiddleName = mpi.Str(full.Middle)
	}
	if full.Last != "" {
		id.LastName = mpi.Str(full.Last)
	}
	return id
}

func queryFlag(c echo.Context, name string, fallback bool) bool {
	v, err := strconv.ParseBool(c.QueryParam(name))
	if err != nil {
		return fallback
	}
	return v
}

func (h *Handler) threshold(c echo.Context) (int, error) {
	raw := c.QueryParam("threshold")
	if raw == "" {
		return h.svc.Config().DuplicateThreshold, nil
	}
	t, err := strconv.Atoi(raw)
	if err != nil || t < 0 || t > 100 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, ErrInvalidThreshold.Error())
	}
	return t, nil
}

// errorResponse maps service errors onto HTTP responses.
func errorResponse(c echo.Context, err error) error {
	var blocked *mpi.DuplicateBlockedError
	switch {
	case errors.As(err, &blocked):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error":           "duplicate patient",
			"message":         blocked.Report.Message,
			"duplicate_check": blocked.Report,
		})
	case errors.Is(err, ErrInvalidPatient), errors.Is(err, ErrInvalidThreshold):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := req.patient()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	opts := mpi.RegistrationOptions{
		SkipDuplicateCheck:    queryFlag(c, "skipDuplicateCheck", req.SkipDuplicateCheck),
		ConfirmedNotDuplicate: queryFlag(c, "confirmedNotDuplicate", req.ConfirmedNotDuplicate),
	}

	result, err := h.svc.CreateWithDuplicateCheck(c.Request().Context(), p, opts)
	if err != nil {
		return errorResponse(c, err)
	}
	if result.Status == mpi.StatusCreated {
		return c.JSON(http.StatusCreated, result)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) CheckDuplicates(c echo.Context) error {
	var req CheckRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	threshold, err := h.threshold(c)
	if err != nil {
		return err
	}
	report, err := h.svc.CheckDuplicates(c.Request().Context(), req.identity(), threshold)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) MatchPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	threshold, err := h.threshold(c)
	if err != nil {
		return err
	}
	report, err := h.svc.MatchExisting(c.Request().Context(), id, threshold)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) SearchPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.SearchPatients(c.Request().Context(), c.QueryParam("q"), pg.Limit, pg.Offset)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg))
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetPatientByNumber(c echo.Context) error {
	p, err := h.svc.GetByPatientNumber(c.Request().Context(), c.Param("number"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg))
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
