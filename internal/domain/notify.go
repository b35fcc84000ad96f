package domain

import "context"

// Notification template keys.
const (
	TemplateRegistrationConfirmation = "event_registration_confirmation"
	TemplateRegistrationCancelled    = "event_registration_cancelled"
)

// Notifier dispatches fire-and-forget notifications. Implementations log
// failures; they are never propagated to cancellation or confirmation flows.
type Notifier interface {
	Send(ctx context.Context, recipients []string, templateKey string, data map[string]any)
}
