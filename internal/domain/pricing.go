package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TierStatus is the lifecycle state of a pricing tier. Tiers are never hard
// deleted because registrant amount snapshots reference them; deletion flips
// the tier to disabled instead.
type TierStatus string

const (
	TierActive   TierStatus = "active"
	TierDisabled TierStatus = "disabled"
)

// UnlimitedSpots is the available-spots sentinel for tiers without a
// registration cap.
const UnlimitedSpots = -1

// SpotsStatus is a point-in-time count of a tier's capacity. Available is
// UnlimitedSpots for uncapped tiers and 0 when the tier is full.
type SpotsStatus struct {
	Taken     int `json:"taken"`
	Available int `json:"available"`
}

// Full reports whether no spots remain.
func (s SpotsStatus) Full() bool { return s.Available == 0 }

// PricingTier is a priced option within a registration configuration. It owns
// its eligibility rules, capacity cap, and time-window validity.
//
// SpotsTaken is a cached counter refreshed opportunistically; admission
// decisions must use a fresh recount (see PricingRepository.CountActive).
type PricingTier struct {
	ID          string `json:"id"`
	RegConfID   string `json:"reg_conf_id"`
	Title       string `json:"title"`
	Description string `json:"description"`

	Price      decimal.Decimal `json:"price"`
	IncludeTax bool            `json:"include_tax"`
	TaxRate    decimal.Decimal `json:"tax_rate"`

	// Quantity is the number of seats each unit of this tier covers,
	// e.g. 8 for a "table of 8".
	Quantity int `json:"quantity"`
	// RegistrationCap is the maximum number of registrants for this tier.
	// 0 means unlimited.
	RegistrationCap int `json:"registration_cap"`
	SpotsTaken      int `json:"spots_taken"`

	// PaymentRequired overrides the configuration-level setting when non-nil.
	PaymentRequired *bool `json:"payment_required,omitempty"`

	StartDt time.Time `json:"start_dt"`
	EndDt   time.Time `json:"end_dt"`

	AllowAnonymous bool     `json:"allow_anonymous"`
	AllowUser      bool     `json:"allow_user"`
	AllowMember    bool     `json:"allow_member"`
	GroupIDs       []string `json:"group_ids,omitempty"`

	Status    TierStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TaxAmount returns the tax charged per unit of this tier, rounded half-up to
// cents. Rounding is applied once at tier granularity.
func (p *PricingTier) TaxAmount() decimal.Decimal {
	if !p.IncludeTax {
		return decimal.Zero
	}
	return p.TaxRate.Mul(p.Price).Round(2)
}

// Active reports whether the tier has not been soft deleted.
func (p *PricingTier) Active() bool { return p.Status == TierActive }

// WithinTime reports whether now falls inside the tier's registration window.
func (p *PricingTier) WithinTime(now time.Time) bool {
	return p.StartDt.Before(now) && p.EndDt.After(now)
}

// HasStarted reports whether the tier's registration window has opened.
func (p *PricingTier) HasStarted(now time.Time) bool { return !now.Before(p.StartDt) }

// HasEnded reports whether the tier's registration window has closed.
func (p *PricingTier) HasEnded(now time.Time) bool { return !now.Before(p.EndDt) }

// SpotsStatusFor derives the tier's capacity status from a fresh registrant
// count. Returns Available == UnlimitedSpots when the tier has no cap.
func (p *PricingTier) SpotsStatusFor(taken int) SpotsStatus {
	if p.RegistrationCap == 0 {
		return SpotsStatus{Taken: taken, Available: UnlimitedSpots}
	}
	if taken >= p.RegistrationCap {
		return SpotsStatus{Taken: taken, Available: 0}
	}
	return SpotsStatus{Taken: taken, Available: p.RegistrationCap - taken}
}

// EligibleFor reports whether the identity may use this tier.
//
// Superusers bypass all eligibility checks. In strict mode the visible flags
// are restricted to the requester's access level; in loose mode all three
// flags are honored regardless of membership. Members additionally match any
// tier whose groups intersect their group memberships.
func (p *PricingTier) EligibleFor(ident Identity, strict bool) bool {
	if ident.Superuser {
		return true
	}
	if strict {
		switch {
		case ident.Anonymous():
			if p.AllowAnonymous {
				return true
			}
		case !ident.Member:
			if p.AllowAnonymous || p.AllowUser {
				return true
			}
		default:
			if p.AllowAnonymous || p.AllowUser || p.AllowMember {
				return true
			}
		}
	} else if p.AllowAnonymous || p.AllowUser || p.AllowMember {
		return true
	}
	if ident.Authenticated && ident.Member {
		for _, g := range p.GroupIDs {
			if ident.InGroup(g) {
				return true
			}
		}
	}
	return false
}

// PricingRepository defines storage operations for pricing tiers.
type PricingRepository interface {
	Create(ctx context.Context, tier *PricingTier) error
	GetByID(ctx context.Context, id string) (*PricingTier, error)
	ListByConfig(ctx context.Context, regConfID string) ([]*PricingTier, error)
	Update(ctx context.Context, tier *PricingTier) error
	// Disable soft deletes a tier by flipping its status. Registrant history
	// and amount snapshots are untouched.
	Disable(ctx context.Context, id string) error
	// CountActive recomputes the number of non-cancelled registrants bound to
	// the tier, additionally requiring a zero invoice balance when payment is
	// required. This recount is the authoritative capacity check.
	CountActive(ctx context.Context, tierID string, paymentRequired bool) (int, error)
	// RefreshSpotsTaken recounts and writes through the cached spots_taken
	// counter, returning the fresh count.
	RefreshSpotsTaken(ctx context.Context, tierID string, paymentRequired bool) (int, error)
}
