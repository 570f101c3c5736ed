package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/api/response"
	"github.com/saferoute/saferoute/internal/reports"
)

// ReportHandler handles community safety reports.
type ReportHandler struct {
	repo reports.Repository
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(repo reports.Repository) *ReportHandler {
	return &ReportHandler{repo: repo}
}

// CreateReport handles POST /v1/reports - submit a community safety report.
// Reports feed the community factor of route scoring.
func (h *ReportHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var input models.ReportCreateRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	fieldErrors := input.Location.FieldErrors("location")
	if strings.TrimSpace(input.Category) == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "category", Message: "required", Code: "REQUIRED"})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation error", fieldErrors)
		return
	}

	report := &reports.Report{
		UserID:      userID,
		Location:    input.Location.Coordinate(),
		Category:    strings.ToLower(strings.TrimSpace(input.Category)),
		Description: input.Description,
	}
	if err := h.repo.Create(r.Context(), report); err != nil {
		if errors.Is(err, reports.ErrInvalidReport) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		response.ServiceUnavailable(w, r, "report could not be stored")
		return
	}

	response.Created(w, r, "", models.Report{
		ID:          report.ID,
		Location:    models.NewPoint(report.Location),
		Category:    report.Category,
		Severity:    string(report.Severity),
		Description: report.Description,
		CreatedAt:   models.Timestamp(report.CreatedAt),
	})
}
