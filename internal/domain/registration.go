package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Registration status values derived from cancellation and invoice state.
const (
	StatusCancelled             = "cancelled"
	StatusPaymentRequired       = "payment-required"
	StatusRegisteredWithBalance = "registered-with-balance"
	StatusRegistered            = "registered"
)

// Registration is one billing unit: it groups one or more registrants under a
// single invoice and owns the cancellation orchestration for the group.
type Registration struct {
	ID      string `json:"id"`
	GUID    string `json:"guid"`
	EventID string `json:"event_id"`

	// InvoiceID is set once the invoice has been materialized.
	InvoiceID *string `json:"invoice_id,omitempty"`
	// TierID is the shared pricing tier for table/block registrations. Nil
	// when registrants carry their own (dynamic) pricing.
	TierID *string `json:"tier_id,omitempty"`

	AmountPaid decimal.Decimal `json:"amount_paid"`
	// Gratuity is a fraction of the subtotal, e.g. 0.18.
	Gratuity decimal.Decimal `json:"gratuity"`

	Canceled bool `json:"canceled"`

	IsTable bool `json:"is_table"`
	// Quantity is the number of registrants covered by a table registration.
	Quantity           int             `json:"quantity"`
	OverrideTable      bool            `json:"override_table"`
	OverridePriceTable decimal.Decimal `json:"override_price_table"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status returns the registration status string given the current invoice
// balance and whether payment is required.
func (r *Registration) Status(balance decimal.Decimal, paymentRequired bool) string {
	if r.Canceled {
		return StatusCancelled
	}
	if balance.IsPositive() {
		if paymentRequired {
			return StatusPaymentRequired
		}
		return StatusRegisteredWithBalance
	}
	return StatusRegistered
}

// RegistrationRepository defines storage operations for registrations and the
// capacity-guarded creation of their registrants.
type RegistrationRepository interface {
	// CreateWithRegistrants persists the registration and its registrants in
	// one transaction. Capacity admission for each capped tier is serialized
	// against concurrent registrations: the tier rows are locked, active
	// registrants recounted, and the insert rejected with ErrCapacityExceeded
	// if the cap would be exceeded. On success the cached spots_taken counters
	// are written through.
	CreateWithRegistrants(ctx context.Context, reg *Registration, registrants []*Registrant) error
	GetByID(ctx context.Context, id string) (*Registration, error)
	Update(ctx context.Context, reg *Registration) error
	// SetInvoice associates a materialized invoice with the registration.
	SetInvoice(ctx context.Context, registrationID, invoiceID string) error
	// CountActiveForEvent counts non-cancelled registrants across all
	// registrations of the event, for the event-wide limit check.
	CountActiveForEvent(ctx context.Context, eventID string) (int, error)
}

// RegistrantInput carries the per-person fields for a new registrant.
type RegistrantInput struct {
	TierID        string
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	CompanyName   string
	Address       string
	City          string
	State         string
	Zip           string
	Country       string
	IsPrimary     bool
	Override      bool
	OverridePrice decimal.Decimal
	// CustomFields maps closed-enum user field names to values; applied via
	// the UserField dispatch table.
	CustomFields map[UserField]string
}

// CreateRegistrationInput is the request to create a registration with one or
// more registrants bound to chosen tiers.
type CreateRegistrationInput struct {
	EventID     string
	Identity    Identity
	Gratuity    decimal.Decimal
	IsTable     bool
	Quantity    int
	Registrants []RegistrantInput
}

// CancellationOutcome reports the result of a cancellation. RefundErr is set
// when a requested refund failed; the cancellation itself still completed.
type CancellationOutcome struct {
	Canceled     bool            `json:"canceled"`
	RefundIssued bool            `json:"refund_issued"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	Message      string          `json:"message,omitempty"`
	RefundErr    *RefundError    `json:"-"`
}

// RegistrationService defines the billing-unit operations: creation under
// capacity guards, invoice materialization, and aggregate cancellation.
type RegistrationService interface {
	Create(ctx context.Context, input CreateRegistrationInput) (*Registration, []*Registrant, error)
	Get(ctx context.Context, registrationID string) (*Registration, []*Registrant, error)
	// MaterializeInvoice creates or updates the invoice for the registration.
	// Idempotent: at most one invoice ever exists per registration.
	MaterializeInvoice(ctx context.Context, registrationID, statusDetail, adminNotes string) (*Invoice, error)
	// Cancel cancels every active registrant and finalizes the registration.
	// A non-nil feeOverride replaces the per-registrant fees with a single
	// aggregate cancellation fee. Idempotent.
	Cancel(ctx context.Context, registrationID string, refund bool, feeOverride *decimal.Decimal, actor string) (*CancellationOutcome, error)
}

// PricingService resolves the pricing tiers available to an identity.
type PricingService interface {
	// AvailablePricings returns the tiers of the event's configuration that
	// the identity may use right now, filtered by time window, eligibility
	// flags, and (when spotsAvailable >= 0) seats remaining. Cached capacity
	// counters are refreshed for every cap-bearing tier in the result.
	AvailablePricings(ctx context.Context, eventID string, ident Identity, strict bool, spotsAvailable int) ([]*PricingTier, error)
	// SpotsStatus recomputes the capacity status for one tier.
	SpotsStatus(ctx context.Context, tierID string) (SpotsStatus, error)
}
