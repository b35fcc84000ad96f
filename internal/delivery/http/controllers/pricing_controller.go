package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"eventregistration/internal/delivery/http/helpers"
	"eventregistration/internal/delivery/http/middleware"
	"eventregistration/internal/domain"
)

type PricingController struct {
	Logger  *slog.Logger
	Service domain.PricingService
}

func NewPricingController(logger *slog.Logger, svc domain.PricingService) *PricingController {
	return &PricingController{
		Logger:  logger,
		Service: svc,
	}
}

// ListAvailableSuccessResponse is the success response envelope for GET /events/{eventID}/pricings (200).
type ListAvailableSuccessResponse struct {
	Data  []*domain.PricingTier `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// ListAvailable godoc
// @Summary List the pricing tiers available to the caller
// @Description Returns the tiers of the event's registration configuration that the caller may register under right now. Anonymous callers see anonymous tiers only; send a Bearer token to see user, member, and group pricing. Superusers see every tier regardless of time window or remaining seats.
// @Tags pricing
// @Produce json
// @Param eventID path string true "Event ID"
// @Param strict query bool false "Restrict tiers to the caller's access level (default true)"
// @Param spots_available query int false "Filter out tiers whose seat quantity exceeds this remaining-seat count"
// @Success 200 {object} controllers.ListAvailableSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/pricings [get]
func (c *PricingController) ListAvailable(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}

	strict := true
	if raw := r.URL.Query().Get("strict"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "strict must be a boolean")
			return
		}
		strict = v
	}

	spotsAvailable := domain.UnlimitedSpots
	if raw := r.URL.Query().Get("spots_available"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "spots_available must be a non-negative integer")
			return
		}
		spotsAvailable = v
	}

	ident := middleware.IdentityFromContext(r.Context())
	tiers, err := c.Service.AvailablePricings(r.Context(), eventID, ident, strict, spotsAvailable)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}

	if tiers == nil {
		tiers = []*domain.PricingTier{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, tiers)
}

// SpotsStatusSuccessResponse is the success response envelope for GET /pricings/{pricingID}/spots (200).
type SpotsStatusSuccessResponse struct {
	Data  *domain.SpotsStatus `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// SpotsStatus godoc
// @Summary Get the capacity status of a pricing tier
// @Description Recounts the tier's active registrants and returns taken and available seat counts. available is -1 for uncapped tiers and 0 when the tier is full.
// @Tags pricing
// @Produce json
// @Param pricingID path string true "Pricing tier ID"
// @Success 200 {object} controllers.SpotsStatusSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /pricings/{pricingID}/spots [get]
func (c *PricingController) SpotsStatus(w http.ResponseWriter, r *http.Request) {
	pricingID := r.PathValue("pricingID")
	if pricingID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing pricingID")
		return
	}

	status, err := c.Service.SpotsStatus(r.Context(), pricingID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "pricing tier not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, &status)
}
