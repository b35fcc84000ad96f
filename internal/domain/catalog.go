package domain

import (
	"context"
	"time"
)

// CreateEventInput creates an event together with its registration
// configuration, which exists exactly once per event.
type CreateEventInput struct {
	Title   string
	StartDt time.Time
	EndDt   time.Time
	Config  RegistrationConfiguration
}

// CatalogService manages events, their registration configurations, and
// pricing tiers. These are the administrative operations behind the
// registration flow.
type CatalogService interface {
	CreateEvent(ctx context.Context, input CreateEventInput) (*Event, *RegistrationConfiguration, error)
	GetEvent(ctx context.Context, eventID string) (*Event, *RegistrationConfiguration, error)
	UpdateConfiguration(ctx context.Context, conf *RegistrationConfiguration) error
	CreateTier(ctx context.Context, tier *PricingTier) error
	UpdateTier(ctx context.Context, tier *PricingTier) error
	// DisableTier soft deletes a tier; registrant history keeps pointing at it.
	DisableTier(ctx context.Context, tierID string) error
}
