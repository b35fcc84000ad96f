package domain

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RegistrationConfiguration is the per-event registration policy. Exactly one
// exists per event; it owns payment requirements, the event-wide registrant
// limit, and the cancellation fee schedule.
type RegistrationConfiguration struct {
	ID      string `json:"id"`
	EventID string `json:"event_id"`

	Enabled         bool `json:"enabled"`
	PaymentRequired bool `json:"payment_required"`
	// Limit is the event-wide registrant limit. 0 means unlimited.
	Limit       int  `json:"limit"`
	AllowGuests bool `json:"allow_guests"`
	GuestLimit  int  `json:"guest_limit"`

	GratuityEnabled bool `json:"gratuity_enabled"`
	// GratuityOptions is a comma separated list of percentages, e.g.
	// "17%,18%,19%,20%". A "%" is implied when absent.
	GratuityOptions string `json:"gratuity_options"`

	CancelByDt          *time.Time      `json:"cancel_by_dt,omitempty"`
	CancellationFee     decimal.Decimal `json:"cancellation_fee"`
	CancellationPercent decimal.Decimal `json:"cancellation_percent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CancellationFeeFor computes the fee for cancelling the given amount. A
// non-zero percent takes precedence over the flat fee and is rounded half-up
// to cents.
func (c *RegistrationConfiguration) CancellationFeeFor(amount decimal.Decimal) decimal.Decimal {
	if c.CancellationPercent.IsPositive() {
		return amount.Mul(c.CancellationPercent).Round(2)
	}
	return c.CancellationFee
}

// CancellationOpen reports whether cancellation is still allowed at the given
// time. A nil CancelByDt means no deadline.
func (c *RegistrationConfiguration) CancellationOpen(now time.Time) bool {
	return c.CancelByDt == nil || now.Before(*c.CancelByDt)
}

// PaymentRequiredFor resolves the payment requirement for a tier, honoring the
// tier-level override when present.
func (c *RegistrationConfiguration) PaymentRequiredFor(tier *PricingTier) bool {
	if tier != nil && tier.PaymentRequired != nil {
		return *tier.PaymentRequired
	}
	return c.PaymentRequired
}

// GratuityPercents parses GratuityOptions into decimal fractions, e.g.
// "17%,18%" -> [0.17, 0.18]. Malformed entries are skipped.
func (c *RegistrationConfiguration) GratuityPercents() []decimal.Decimal {
	var out []decimal.Decimal
	for _, opt := range strings.Split(c.GratuityOptions, ",") {
		opt = strings.TrimSuffix(strings.TrimSpace(opt), "%")
		if opt == "" {
			continue
		}
		d, err := decimal.NewFromString(opt)
		if err != nil {
			continue
		}
		out = append(out, d.Div(decimal.NewFromInt(100)))
	}
	return out
}

// HasMemberPrice reports whether any tier in the list carries member pricing.
func HasMemberPrice(tiers []*PricingTier) bool {
	for _, t := range tiers {
		if t.AllowMember {
			return true
		}
	}
	return false
}

// RegConfRepository defines storage operations for registration configurations.
type RegConfRepository interface {
	Create(ctx context.Context, conf *RegistrationConfiguration) error
	GetByID(ctx context.Context, id string) (*RegistrationConfiguration, error)
	GetByEventID(ctx context.Context, eventID string) (*RegistrationConfiguration, error)
	Update(ctx context.Context, conf *RegistrationConfiguration) error
}
