package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventregistration/internal/delivery/http/controllers"
	"eventregistration/internal/delivery/http/middleware"
	"eventregistration/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(
	verifier domain.IdentityVerifier,
	eventController *controllers.EventController,
	pricingController *controllers.PricingController,
	registrationController *controllers.RegistrationController,
	registrantController *controllers.RegistrantController,
) *http.ServeMux {
	mux := http.NewServeMux()

	admin := middleware.RequireAdmin(verifier)
	optional := middleware.OptionalAuth(verifier)

	// Catalog
	mux.HandleFunc("POST /events", admin(eventController.CreateEvent))
	mux.HandleFunc("GET /events/{eventID}", eventController.GetEvent)
	mux.HandleFunc("PUT /events/{eventID}/configuration", admin(eventController.UpdateConfiguration))
	mux.HandleFunc("POST /events/{eventID}/pricings", admin(eventController.CreateTier))
	mux.HandleFunc("PUT /pricings/{pricingID}", admin(eventController.UpdateTier))
	mux.HandleFunc("DELETE /pricings/{pricingID}", admin(eventController.DisableTier))

	// Pricing lookups are open; the identity only changes which tiers show up.
	mux.HandleFunc("GET /events/{eventID}/pricings", optional(pricingController.ListAvailable))
	mux.HandleFunc("GET /pricings/{pricingID}/spots", pricingController.SpotsStatus)

	// Registrations
	mux.HandleFunc("POST /registrations", optional(registrationController.Create))
	mux.HandleFunc("GET /registrations/{registrationID}", optional(registrationController.Get))
	mux.HandleFunc("POST /registrations/{registrationID}/invoice", admin(registrationController.MaterializeInvoice))
	mux.HandleFunc("POST /registrations/{registrationID}/cancel", optional(registrationController.Cancel))

	// Registrants
	mux.HandleFunc("GET /events/{eventID}/registrants", admin(registrantController.Roster))
	mux.HandleFunc("POST /registrants/{registrantID}/cancel", optional(registrantController.Cancel))
	mux.HandleFunc("POST /registrants/{registrantID}/checkin", admin(registrantController.CheckIn))
	mux.HandleFunc("POST /registrants/{registrantID}/checkout", admin(registrantController.CheckOut))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
