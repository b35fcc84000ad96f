package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"eventregistration/internal/delivery/http/helpers"
	"eventregistration/internal/domain"
)

type EventController struct {
	Logger  *slog.Logger
	Service domain.CatalogService
}

func NewEventController(logger *slog.Logger, svc domain.CatalogService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// ConfigurationRequest carries the registration policy fields for an event.
type ConfigurationRequest struct {
	Enabled             bool            `json:"enabled"`
	PaymentRequired     bool            `json:"payment_required"`
	Limit               int             `json:"limit"`
	AllowGuests         bool            `json:"allow_guests"`
	GuestLimit          int             `json:"guest_limit"`
	GratuityEnabled     bool            `json:"gratuity_enabled"`
	GratuityOptions     string          `json:"gratuity_options"`
	CancelByDt          *time.Time      `json:"cancel_by_dt"`
	CancellationFee     decimal.Decimal `json:"cancellation_fee"`
	CancellationPercent decimal.Decimal `json:"cancellation_percent"`
}

// Validate implements helpers.Validator.
func (r *ConfigurationRequest) Validate() []string {
	var problems []string
	if r.Limit < 0 {
		problems = append(problems, "limit must not be negative")
	}
	if r.GuestLimit < 0 {
		problems = append(problems, "guest_limit must not be negative")
	}
	if r.CancellationFee.IsNegative() {
		problems = append(problems, "cancellation_fee must not be negative")
	}
	if r.CancellationPercent.IsNegative() || r.CancellationPercent.GreaterThan(decimal.NewFromInt(1)) {
		problems = append(problems, "cancellation_percent must be a fraction between 0 and 1")
	}
	return problems
}

func (r *ConfigurationRequest) apply(conf *domain.RegistrationConfiguration) {
	conf.Enabled = r.Enabled
	conf.PaymentRequired = r.PaymentRequired
	conf.Limit = r.Limit
	conf.AllowGuests = r.AllowGuests
	conf.GuestLimit = r.GuestLimit
	conf.GratuityEnabled = r.GratuityEnabled
	conf.GratuityOptions = r.GratuityOptions
	conf.CancelByDt = r.CancelByDt
	conf.CancellationFee = r.CancellationFee
	conf.CancellationPercent = r.CancellationPercent
}

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Title         string                `json:"title"`
	StartDt       time.Time             `json:"start_dt"`
	EndDt         time.Time             `json:"end_dt"`
	Configuration *ConfigurationRequest `json:"configuration"`
}

// Validate implements helpers.Validator.
func (r *CreateEventRequest) Validate() []string {
	var problems []string
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		problems = append(problems, "title is required")
	}
	if r.StartDt.IsZero() || r.EndDt.IsZero() {
		problems = append(problems, "start_dt and end_dt are required")
	} else if !r.EndDt.After(r.StartDt) {
		problems = append(problems, "end_dt must be after start_dt")
	}
	if r.Configuration != nil {
		problems = append(problems, r.Configuration.Validate()...)
	}
	return problems
}

// EventWithConfiguration pairs an event with its registration configuration.
type EventWithConfiguration struct {
	Event         *domain.Event                     `json:"event"`
	Configuration *domain.RegistrationConfiguration `json:"configuration"`
}

// EventSuccessResponse is the success response envelope for event endpoints.
type EventSuccessResponse struct {
	Data  *EventWithConfiguration `json:"data"`
	Error *helpers.APIError       `json:"error"`
}

// CreateEvent godoc
// @Summary Create an event with its registration configuration
// @Description Creates an event and its registration configuration in one step. Every event has exactly one configuration.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body controllers.CreateEventRequest true "Event and configuration"
// @Success 201 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	input := domain.CreateEventInput{
		Title:   req.Title,
		StartDt: req.StartDt,
		EndDt:   req.EndDt,
	}
	if req.Configuration != nil {
		req.Configuration.apply(&input.Config)
	}

	event, conf, err := c.Service.CreateEvent(r.Context(), input)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, &EventWithConfiguration{Event: event, Configuration: conf})
}

// GetEvent godoc
// @Summary Get an event and its registration configuration
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}

	event, conf, err := c.Service.GetEvent(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, &EventWithConfiguration{Event: event, Configuration: conf})
}

// UpdateConfiguration godoc
// @Summary Replace the registration configuration of an event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body controllers.ConfigurationRequest true "Registration policy"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/configuration [put]
func (c *EventController) UpdateConfiguration(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}

	var req ConfigurationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	event, conf, err := c.Service.GetEvent(r.Context(), eventID)
	if err == nil && conf == nil {
		err = domain.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}

	req.apply(conf)
	if err := c.Service.UpdateConfiguration(r.Context(), conf); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "configuration not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, &EventWithConfiguration{Event: event, Configuration: conf})
}

// TierRequest is the request body for creating or replacing a pricing tier.
type TierRequest struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	IncludeTax      bool            `json:"include_tax"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	Quantity        int             `json:"quantity"`
	RegistrationCap int             `json:"registration_cap"`
	PaymentRequired *bool           `json:"payment_required"`
	StartDt         time.Time       `json:"start_dt"`
	EndDt           time.Time       `json:"end_dt"`
	AllowAnonymous  bool            `json:"allow_anonymous"`
	AllowUser       bool            `json:"allow_user"`
	AllowMember     bool            `json:"allow_member"`
	GroupIDs        []string        `json:"group_ids"`
}

// Validate implements helpers.Validator.
func (r *TierRequest) Validate() []string {
	var problems []string
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		problems = append(problems, "title is required")
	}
	if r.Price.IsNegative() {
		problems = append(problems, "price must not be negative")
	}
	if r.TaxRate.IsNegative() {
		problems = append(problems, "tax_rate must not be negative")
	}
	if r.Quantity < 0 {
		problems = append(problems, "quantity must not be negative")
	}
	if r.RegistrationCap < 0 {
		problems = append(problems, "registration_cap must not be negative")
	}
	if r.StartDt.IsZero() || r.EndDt.IsZero() {
		problems = append(problems, "start_dt and end_dt are required")
	} else if !r.EndDt.After(r.StartDt) {
		problems = append(problems, "end_dt must be after start_dt")
	}
	return problems
}

func (r *TierRequest) toTier() *domain.PricingTier {
	return &domain.PricingTier{
		Title:           r.Title,
		Description:     r.Description,
		Price:           r.Price,
		IncludeTax:      r.IncludeTax,
		TaxRate:         r.TaxRate,
		Quantity:        r.Quantity,
		RegistrationCap: r.RegistrationCap,
		PaymentRequired: r.PaymentRequired,
		StartDt:         r.StartDt,
		EndDt:           r.EndDt,
		AllowAnonymous:  r.AllowAnonymous,
		AllowUser:       r.AllowUser,
		AllowMember:     r.AllowMember,
		GroupIDs:        r.GroupIDs,
	}
}

// TierSuccessResponse is the success response envelope for tier endpoints.
type TierSuccessResponse struct {
	Data  *domain.PricingTier `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// CreateTier godoc
// @Summary Add a pricing tier to an event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body controllers.TierRequest true "Pricing tier"
// @Success 201 {object} controllers.TierSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/pricings [post]
func (c *EventController) CreateTier(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}

	var req TierRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	_, conf, err := c.Service.GetEvent(r.Context(), eventID)
	if err == nil && conf == nil {
		err = domain.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}

	tier := req.toTier()
	tier.RegConfID = conf.ID
	if err := c.Service.CreateTier(r.Context(), tier); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "configuration not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, tier)
}

// UpdateTier godoc
// @Summary Replace a pricing tier
// @Description Replaces the tier's fields. Registrant amount snapshots taken under the old pricing are unaffected.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param pricingID path string true "Pricing tier ID"
// @Param body body controllers.TierRequest true "Pricing tier"
// @Success 200 {object} controllers.TierSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /pricings/{pricingID} [put]
func (c *EventController) UpdateTier(w http.ResponseWriter, r *http.Request) {
	pricingID := r.PathValue("pricingID")
	if pricingID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing pricingID")
		return
	}

	var req TierRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	tier := req.toTier()
	tier.ID = pricingID
	if err := c.Service.UpdateTier(r.Context(), tier); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "pricing tier not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, tier)
}

// DisableTier godoc
// @Summary Disable a pricing tier
// @Description Soft deletes the tier. Existing registrants keep their snapshots; the tier simply stops being offered.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param pricingID path string true "Pricing tier ID"
// @Success 200 {object} helpers.APIResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /pricings/{pricingID} [delete]
func (c *EventController) DisableTier(w http.ResponseWriter, r *http.Request) {
	pricingID := r.PathValue("pricingID")
	if pricingID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing pricingID")
		return
	}

	if err := c.Service.DisableTier(r.Context(), pricingID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "pricing tier not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "disabled"})
}
