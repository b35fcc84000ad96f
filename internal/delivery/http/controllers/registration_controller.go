package controllers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"eventregistration/internal/delivery/http/helpers"
	"eventregistration/internal/delivery/http/middleware"
	"eventregistration/internal/domain"
)

type RegistrationController struct {
	Logger  *slog.Logger
	Service domain.RegistrationService
	Catalog domain.CatalogService
}

func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationService, catalog domain.CatalogService) *RegistrationController {
	return &RegistrationController{
		Logger:  logger,
		Service: svc,
		Catalog: catalog,
	}
}

// actorName labels ledger entries and audit fields with who acted.
func actorName(ident domain.Identity) string {
	switch {
	case ident.Email != "":
		return ident.Email
	case ident.UserID != "":
		return ident.UserID
	default:
		return "anonymous"
	}
}

// RegistrantRequest carries one registrant in a create request.
type RegistrantRequest struct {
	TierID        string            `json:"tier_id"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	Email         string            `json:"email"`
	Phone         string            `json:"phone"`
	CompanyName   string            `json:"company_name"`
	Address       string            `json:"address"`
	City          string            `json:"city"`
	State         string            `json:"state"`
	Zip           string            `json:"zip"`
	Country       string            `json:"country"`
	IsPrimary     bool              `json:"is_primary"`
	Override      bool              `json:"override"`
	OverridePrice decimal.Decimal   `json:"override_price"`
	CustomFields  map[string]string `json:"custom_fields"`
}

// CreateRegistrationRequest is the request body for POST /registrations.
type CreateRegistrationRequest struct {
	EventID     string              `json:"event_id"`
	Gratuity    decimal.Decimal     `json:"gratuity"`
	IsTable     bool                `json:"is_table"`
	Quantity    int                 `json:"quantity"`
	Registrants []RegistrantRequest `json:"registrants"`
}

// Validate implements helpers.Validator.
func (r *CreateRegistrationRequest) Validate() []string {
	var problems []string
	if strings.TrimSpace(r.EventID) == "" {
		problems = append(problems, "event_id is required")
	}
	if len(r.Registrants) == 0 {
		problems = append(problems, "at least one registrant is required")
	}
	if r.Gratuity.IsNegative() || r.Gratuity.GreaterThan(decimal.NewFromInt(1)) {
		problems = append(problems, "gratuity must be a fraction between 0 and 1")
	}
	if r.Quantity < 0 {
		problems = append(problems, "quantity must not be negative")
	}
	for i, reg := range r.Registrants {
		if strings.TrimSpace(reg.TierID) == "" {
			problems = append(problems, fmt.Sprintf("registrants[%d].tier_id is required", i))
		}
		if reg.Override && reg.OverridePrice.IsNegative() {
			problems = append(problems, fmt.Sprintf("registrants[%d].override_price must not be negative", i))
		}
		for field := range reg.CustomFields {
			if !domain.UserField(field).Valid() {
				problems = append(problems, fmt.Sprintf("registrants[%d].custom_fields: unknown field %q", i, field))
			}
		}
	}
	return problems
}

func (r *RegistrantRequest) toInput() domain.RegistrantInput {
	in := domain.RegistrantInput{
		TierID:        r.TierID,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
		Phone:         r.Phone,
		CompanyName:   r.CompanyName,
		Address:       r.Address,
		City:          r.City,
		State:         r.State,
		Zip:           r.Zip,
		Country:       r.Country,
		IsPrimary:     r.IsPrimary,
		Override:      r.Override,
		OverridePrice: r.OverridePrice,
	}
	if len(r.CustomFields) > 0 {
		in.CustomFields = make(map[domain.UserField]string, len(r.CustomFields))
		for field, value := range r.CustomFields {
			in.CustomFields[domain.UserField(field)] = value
		}
	}
	return in
}

// RegistrationWithRegistrants pairs a registration with its registrants.
type RegistrationWithRegistrants struct {
	Registration *domain.Registration `json:"registration"`
	Registrants  []*domain.Registrant `json:"registrants"`
}

// RegistrationSuccessResponse is the success response envelope for registration endpoints.
type RegistrationSuccessResponse struct {
	Data  *RegistrationWithRegistrants `json:"data"`
	Error *helpers.APIError            `json:"error"`
}

// Create godoc
// @Summary Register one or more people for an event
// @Description Creates a registration with its registrants in one atomic step. Each registrant is admitted against their tier's capacity; if any tier would exceed its cap, nothing is created. Prices are snapshotted at registration time. Anonymous registration is allowed when the event offers anonymous pricing.
// @Tags registrations
// @Accept json
// @Produce json
// @Param body body controllers.CreateRegistrationRequest true "Registration"
// @Success 201 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: capacity_exceeded or conflict (no eligible pricing)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations [post]
func (c *RegistrationController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRegistrationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	ident := middleware.IdentityFromContext(r.Context())
	input := domain.CreateRegistrationInput{
		EventID:  req.EventID,
		Identity: ident,
		Gratuity: req.Gratuity,
		IsTable:  req.IsTable,
		Quantity: req.Quantity,
	}
	for _, reg := range req.Registrants {
		input.Registrants = append(input.Registrants, reg.toInput())
	}

	reg, registrants, err := c.Service.Create(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
		case errors.Is(err, domain.ErrCapacityExceeded):
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeCapacity, err.Error())
		case errors.Is(err, domain.ErrNoEligiblePricing):
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
		case errors.Is(err, domain.ErrInvalidInput):
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, &RegistrationWithRegistrants{Registration: reg, Registrants: registrants})
}

// Get godoc
// @Summary Get a registration with its registrants
// @Tags registrations
// @Produce json
// @Param registrationID path string true "Registration ID"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID} [get]
func (c *RegistrationController) Get(w http.ResponseWriter, r *http.Request) {
	registrationID := r.PathValue("registrationID")
	if registrationID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing registrationID")
		return
	}

	reg, registrants, err := c.Service.Get(r.Context(), registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "registration not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, &RegistrationWithRegistrants{Registration: reg, Registrants: registrants})
}

// MaterializeInvoiceRequest is the request body for POST /registrations/{registrationID}/invoice.
type MaterializeInvoiceRequest struct {
	StatusDetail string `json:"status_detail"`
	AdminNotes   string `json:"admin_notes"`
}

// Validate implements helpers.Validator.
func (r *MaterializeInvoiceRequest) Validate() []string {
	switch r.StatusDetail {
	case "", domain.InvoiceStatusEstimate, domain.InvoiceStatusTendered:
		return nil
	}
	return []string{"status_detail must be estimate or tendered"}
}

// InvoiceSuccessResponse is the success response envelope for POST /registrations/{registrationID}/invoice (200).
type InvoiceSuccessResponse struct {
	Data  *domain.Invoice   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// MaterializeInvoice godoc
// @Summary Create or refresh the invoice for a registration
// @Description Materializes the registration's invoice from its current registrants: subtotal from amounts paid, tax per tier, gratuity on the subtotal. At most one invoice ever exists per registration; repeated calls update it in place.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID"
// @Param body body controllers.MaterializeInvoiceRequest true "Invoice options"
// @Success 200 {object} controllers.InvoiceSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID}/invoice [post]
func (c *RegistrationController) MaterializeInvoice(w http.ResponseWriter, r *http.Request) {
	registrationID := r.PathValue("registrationID")
	if registrationID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing registrationID")
		return
	}

	var req MaterializeInvoiceRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	inv, err := c.Service.MaterializeInvoice(r.Context(), registrationID, req.StatusDetail, req.AdminNotes)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "registration not found")
		case errors.Is(err, domain.ErrInvoiceState), errors.Is(err, domain.ErrInvariant):
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, inv)
}

// CancelRegistrationRequest is the request body for POST /registrations/{registrationID}/cancel.
type CancelRegistrationRequest struct {
	Refund bool `json:"refund"`
	// FeeOverride replaces the per-registrant cancellation fees with a single
	// aggregate fee. Admins only.
	FeeOverride *decimal.Decimal `json:"fee_override"`
}

// Validate implements helpers.Validator.
func (r *CancelRegistrationRequest) Validate() []string {
	if r.FeeOverride != nil && r.FeeOverride.IsNegative() {
		return []string{"fee_override must not be negative"}
	}
	return nil
}

// CancellationSuccessResponse is the success response envelope for cancellation endpoints (200).
type CancellationSuccessResponse struct {
	Data  *domain.CancellationOutcome `json:"data"`
	Error *helpers.APIError           `json:"error"`
}

// Cancel godoc
// @Summary Cancel a registration
// @Description Cancels every active registrant of the registration and finalizes it. Refunds, when requested and enabled, are capped to payments received; a refund failure never blocks the cancellation. Past the configured cancellation deadline only admins may cancel, and fee_override is admin-only.
// @Tags registrations
// @Accept json
// @Produce json
// @Param registrationID path string true "Registration ID"
// @Param body body controllers.CancelRegistrationRequest true "Cancellation options"
// @Success 200 {object} controllers.CancellationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID}/cancel [post]
func (c *RegistrationController) Cancel(w http.ResponseWriter, r *http.Request) {
	registrationID := r.PathValue("registrationID")
	if registrationID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing registrationID")
		return
	}

	var req CancelRegistrationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	ident := middleware.IdentityFromContext(r.Context())
	if req.FeeOverride != nil && !ident.Superuser {
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "fee_override requires admin access")
		return
	}

	if !ident.Superuser {
		reg, _, err := c.Service.Get(r.Context(), registrationID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "registration not found")
				return
			}
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
			return
		}
		_, conf, err := c.Catalog.GetEvent(r.Context(), reg.EventID)
		if err == nil && conf != nil && !conf.CancellationOpen(time.Now()) {
			helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "cancellation deadline has passed")
			return
		}
	}

	outcome, err := c.Service.Cancel(r.Context(), registrationID, req.Refund, req.FeeOverride, actorName(ident))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "registration not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, outcome)
}
