package domain

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Registrant is an individual attendee within a registration. Its Amount is a
// point-in-time snapshot of the price at registration time and is never
// recomputed from the (possibly later-changed) pricing tier.
type Registrant struct {
	ID             string `json:"id"`
	RegistrationID string `json:"registration_id"`
	// PricingID references the tier used for dynamic pricing. Non-owning:
	// tier deletion is a status flip, never a hard delete.
	PricingID *string `json:"pricing_id,omitempty"`

	Amount        decimal.Decimal `json:"amount"`
	Override      bool            `json:"override"`
	OverridePrice decimal.Decimal `json:"override_price"`

	// IsPrimary marks the billing contact. Exactly one primary per
	// registration.
	IsPrimary bool `json:"is_primary"`

	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	CompanyName string `json:"company_name"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	Zip         string `json:"zip"`
	Country     string `json:"country"`

	// CancelDt is nil while the registrant is active. An active registrant is
	// exactly what capacity accounting counts; cancelling frees the spot with
	// no separate release step.
	CancelDt *time.Time `json:"cancel_dt,omitempty"`

	CheckedIn    bool       `json:"checked_in"`
	CheckedInDt  *time.Time `json:"checked_in_dt,omitempty"`
	CheckedOut   bool       `json:"checked_out"`
	CheckedOutDt *time.Time `json:"checked_out_dt,omitempty"`

	// AttendanceDates are the ISO dates this registrant attends, for
	// multi-day events.
	AttendanceDates []string `json:"attendance_dates,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether the registrant has not been cancelled.
func (r *Registrant) Active() bool { return r.CancelDt == nil }

// PriceCharged returns the price actually charged for this registrant: the
// admin override when set, else the tier price.
func (r *Registrant) PriceCharged(tier *PricingTier) decimal.Decimal {
	if r.Override {
		return r.OverridePrice
	}
	if tier != nil {
		return tier.Price
	}
	return decimal.Zero
}

// Name returns the registrant's display name.
func (r *Registrant) Name() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// LastnameFirstname returns "Last, First", tolerating missing parts.
func (r *Registrant) LastnameFirstname() string {
	switch {
	case r.FirstName != "" && r.LastName != "":
		return r.LastName + ", " + r.FirstName
	case r.LastName != "":
		return r.LastName
	default:
		return r.FirstName
	}
}

// PrimaryRegistrant selects the billing contact: the first registrant flagged
// primary, else the lowest-id registrant. The tie-break is load-bearing for
// invoice bill-to fields; registrants must be ordered by id ascending.
func PrimaryRegistrant(registrants []*Registrant) *Registrant {
	for _, r := range registrants {
		if r.IsPrimary {
			return r
		}
	}
	if len(registrants) > 0 {
		return registrants[0]
	}
	return nil
}

// RegistrantRepository defines storage operations for registrants.
type RegistrantRepository interface {
	GetByID(ctx context.Context, id string) (*Registrant, error)
	// ListByRegistration returns all registrants ordered by id ascending.
	ListByRegistration(ctx context.Context, registrationID string) ([]*Registrant, error)
	// ListByEvent pages through the registrants of every registration of the
	// event, ordered by last name then id, returning the total count before
	// paging.
	ListByEvent(ctx context.Context, eventID string, p PaginationParams) ([]*Registrant, int, error)
	Update(ctx context.Context, registrant *Registrant) error
	// CountActiveSiblings counts non-cancelled registrants of the same
	// registration, excluding the given registrant.
	CountActiveSiblings(ctx context.Context, registrationID, excludeID string) (int, error)
}

// RegistrantService defines per-person operations: cancellation with fee and
// refund handling, and event check-in/check-out.
type RegistrantService interface {
	// Cancel cancels one registrant: snapshots the cancel time, unwinds the
	// parent registration's amount_paid and (pre-tender) the invoice totals,
	// applies the cancellation fee as an invoice line item, optionally issues
	// a refund, and flips the parent registration cancelled when no sibling
	// remains active. Idempotent; a refund failure never rolls back the
	// cancellation.
	Cancel(ctx context.Context, registrantID string, checkParent, refund, processFee bool, actor string) (*CancellationOutcome, error)
	CheckIn(ctx context.Context, registrantID string) (*Registrant, error)
	CheckOut(ctx context.Context, registrantID string) (*Registrant, error)
	// Roster lists the event's registrants for on-site staff.
	Roster(ctx context.Context, eventID string, p PaginationParams) ([]*Registrant, int, error)
}
