package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"eventregistration/internal/delivery/http/helpers"
	"eventregistration/internal/delivery/http/middleware"
	"eventregistration/internal/domain"
)

type RegistrantController struct {
	Logger  *slog.Logger
	Service domain.RegistrantService
}

func NewRegistrantController(logger *slog.Logger, svc domain.RegistrantService) *RegistrantController {
	return &RegistrantController{
		Logger:  logger,
		Service: svc,
	}
}

// CancelRegistrantRequest is the request body for POST /registrants/{registrantID}/cancel.
type CancelRegistrantRequest struct {
	Refund bool `json:"refund"`
}

// Validate implements helpers.Validator.
func (r *CancelRegistrantRequest) Validate() []string { return nil }

// Cancel godoc
// @Summary Cancel a single registrant
// @Description Cancels one registrant of a registration: the seat is freed, the registration's amount paid is reduced, the cancellation fee is applied, and a refund is issued when requested and auto refunds are enabled. When the last active registrant is cancelled the registration itself is marked cancelled. Idempotent.
// @Tags registrants
// @Accept json
// @Produce json
// @Param registrantID path string true "Registrant ID"
// @Param body body controllers.CancelRegistrantRequest true "Cancellation options"
// @Success 200 {object} controllers.CancellationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrants/{registrantID}/cancel [post]
func (c *RegistrantController) Cancel(w http.ResponseWriter, r *http.Request) {
	registrantID := r.PathValue("registrantID")
	if registrantID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing registrantID")
		return
	}

	var req CancelRegistrantRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	ident := middleware.IdentityFromContext(r.Context())
	outcome, err := c.Service.Cancel(r.Context(), registrantID, true, req.Refund, true, actorName(ident))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "registrant not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, outcome)
}

// RegistrantSuccessResponse is the success response envelope for check-in endpoints (200).
type RegistrantSuccessResponse struct {
	Data  *domain.Registrant `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// CheckIn godoc
// @Summary Check a registrant in at the event
// @Description Marks the registrant checked in. Repeated check-ins keep the original timestamp; cancelled registrants cannot check in.
// @Tags registrants
// @Produce json
// @Security BearerAuth
// @Param registrantID path string true "Registrant ID"
// @Success 200 {object} controllers.RegistrantSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrants/{registrantID}/checkin [post]
func (c *RegistrantController) CheckIn(w http.ResponseWriter, r *http.Request) {
	registrantID := r.PathValue("registrantID")
	if registrantID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing registrantID")
		return
	}

	registrant, err := c.Service.CheckIn(r.Context(), registrantID)
	if err != nil {
		c.writeCheckError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, registrant)
}

// CheckOut godoc
// @Summary Check a registrant out of the event
// @Tags registrants
// @Produce json
// @Security BearerAuth
// @Param registrantID path string true "Registrant ID"
// @Success 200 {object} controllers.RegistrantSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrants/{registrantID}/checkout [post]
func (c *RegistrantController) CheckOut(w http.ResponseWriter, r *http.Request) {
	registrantID := r.PathValue("registrantID")
	if registrantID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing registrantID")
		return
	}

	registrant, err := c.Service.CheckOut(r.Context(), registrantID)
	if err != nil {
		c.writeCheckError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, registrant)
}

// RosterData is the payload for GET /events/{eventID}/registrants.
type RosterData struct {
	Registrants []*domain.Registrant   `json:"registrants"`
	Pagination  helpers.PaginationMeta `json:"pagination"`
}

// RosterSuccessResponse is the success response envelope for GET /events/{eventID}/registrants (200).
type RosterSuccessResponse struct {
	Data  *RosterData       `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// Roster godoc
// @Summary List the registrants of an event
// @Description Returns the event's registrants across all registrations, ordered by last name, for on-site staff.
// @Tags registrants
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.RosterSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/registrants [get]
func (c *RegistrantController) Roster(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}

	p := helpers.ParsePagination(r)
	registrants, total, err := c.Service.Roster(r.Context(), eventID, p)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, &RosterData{
		Registrants: registrants,
		Pagination:  helpers.NewPaginationMeta(p.Page, p.PageSize, total),
	})
}

func (c *RegistrantController) writeCheckError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "registrant not found")
	case errors.Is(err, domain.ErrInvalidInput):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
	}
}
