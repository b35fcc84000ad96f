package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"eventregistration/internal/domain"
)

type registrationService struct {
	eventRepo        domain.EventRepository
	regConfRepo      domain.RegConfRepository
	pricingRepo      domain.PricingRepository
	registrationRepo domain.RegistrationRepository
	registrantRepo   domain.RegistrantRepository
	ledger           domain.InvoiceLedger
	notifier         domain.Notifier
	pricing          domain.PricingService
	registrants      domain.RegistrantService
	settings         domain.Settings
	now              func() time.Time
}

// NewRegistrationService creates a RegistrationService with the given
// collaborators and module settings.
func NewRegistrationService(
	eventRepo domain.EventRepository,
	regConfRepo domain.RegConfRepository,
	pricingRepo domain.PricingRepository,
	registrationRepo domain.RegistrationRepository,
	registrantRepo domain.RegistrantRepository,
	ledger domain.InvoiceLedger,
	notifier domain.Notifier,
	pricing domain.PricingService,
	registrants domain.RegistrantService,
	settings domain.Settings,
) domain.RegistrationService {
	return &registrationService{
		eventRepo:        eventRepo,
		regConfRepo:      regConfRepo,
		pricingRepo:      pricingRepo,
		registrationRepo: registrationRepo,
		registrantRepo:   registrantRepo,
		ledger:           ledger,
		notifier:         notifier,
		pricing:          pricing,
		registrants:      registrants,
		settings:         settings,
		now:              time.Now,
	}
}

func (s *registrationService) Create(ctx context.Context, input domain.CreateRegistrationInput) (*domain.Registration, []*domain.Registrant, error) {
	if len(input.Registrants) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one registrant is required", domain.ErrInvalidInput)
	}

	event, err := s.eventRepo.GetByID(ctx, input.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("get event: %w", err)
	}

	conf, err := s.regConfRepo.GetByEventID(ctx, input.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrNoEligiblePricing
		}
		return nil, nil, fmt.Errorf("get registration configuration: %w", err)
	}
	if !conf.Enabled {
		return nil, nil, domain.ErrNoEligiblePricing
	}

	eligible, err := s.pricing.AvailablePricings(ctx, input.EventID, input.Identity, true, -1)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve available pricings: %w", err)
	}
	eligibleByID := make(map[string]*domain.PricingTier, len(eligible))
	for _, tier := range eligible {
		eligibleByID[tier.ID] = tier
	}

	if conf.Limit > 0 && !input.Identity.Superuser {
		active, err := s.registrationRepo.CountActiveForEvent(ctx, input.EventID)
		if err != nil {
			return nil, nil, fmt.Errorf("count active registrants: %w", err)
		}
		if active+len(input.Registrants) > conf.Limit {
			return nil, nil, domain.ErrCapacityExceeded
		}
	}

	now := s.now()
	reg := &domain.Registration{
		GUID:      uuid.NewString(),
		EventID:   input.EventID,
		IsTable:   input.IsTable,
		Quantity:  input.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if reg.Quantity < 1 {
		reg.Quantity = len(input.Registrants)
	}
	if conf.GratuityEnabled && input.Gratuity.IsPositive() {
		reg.Gratuity = input.Gratuity
	}

	if input.IsTable {
		tierID := input.Registrants[0].TierID
		for _, in := range input.Registrants {
			if in.TierID != tierID {
				return nil, nil, fmt.Errorf("%w: table registrations share a single pricing tier", domain.ErrInvalidInput)
			}
		}
		reg.TierID = &tierID
	}

	registrants := make([]*domain.Registrant, 0, len(input.Registrants))
	total := decimal.Zero
	primarySeen := false
	for _, in := range input.Registrants {
		tier, ok := eligibleByID[in.TierID]
		if !ok {
			return nil, nil, domain.ErrNoEligiblePricing
		}

		tierID := in.TierID
		r := &domain.Registrant{
			PricingID:   &tierID,
			FirstName:   in.FirstName,
			LastName:    in.LastName,
			Email:       in.Email,
			Phone:       in.Phone,
			CompanyName: in.CompanyName,
			Address:     in.Address,
			City:        in.City,
			State:       in.State,
			Zip:         in.Zip,
			Country:     in.Country,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		for field, value := range in.CustomFields {
			if !domain.ApplyUserField(r, field, value) {
				return nil, nil, fmt.Errorf("%w: unknown form field %q", domain.ErrInvalidInput, field)
			}
		}
		// Price overrides are an admin facility.
		if in.Override && input.Identity.Superuser {
			r.Override = true
			r.OverridePrice = in.OverridePrice
		}
		r.Amount = r.PriceCharged(tier)
		if in.IsPrimary && !primarySeen {
			r.IsPrimary = true
			primarySeen = true
		}
		total = total.Add(r.Amount)
		registrants = append(registrants, r)
	}
	if !primarySeen {
		registrants[0].IsPrimary = true
	}
	reg.AmountPaid = total

	if err := s.registrationRepo.CreateWithRegistrants(ctx, reg, registrants); err != nil {
		if errors.Is(err, domain.ErrCapacityExceeded) {
			return nil, nil, domain.ErrCapacityExceeded
		}
		return nil, nil, fmt.Errorf("create registration: %w", err)
	}

	primary := domain.PrimaryRegistrant(registrants)
	s.notifier.Send(ctx, []string{primary.Email}, domain.TemplateRegistrationConfirmation, map[string]any{
		"event_title":     event.Title,
		"registration_id": reg.ID,
		"guid":            reg.GUID,
		"amount":          reg.AmountPaid,
		"registrants":     len(registrants),
	})

	return reg, registrants, nil
}

func (s *registrationService) Get(ctx context.Context, registrationID string) (*domain.Registration, []*domain.Registrant, error) {
	reg, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("get registration: %w", err)
	}
	registrants, err := s.registrantRepo.ListByRegistration(ctx, registrationID)
	if err != nil {
		return nil, nil, fmt.Errorf("list registrants: %w", err)
	}
	return reg, registrants, nil
}

func (s *registrationService) MaterializeInvoice(ctx context.Context, registrationID, statusDetail, adminNotes string) (*domain.Invoice, error) {
	reg, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	event, err := s.eventRepo.GetByID(ctx, reg.EventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	registrants, err := s.registrantRepo.ListByRegistration(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("list registrants: %w", err)
	}
	primary := domain.PrimaryRegistrant(registrants)
	if primary == nil {
		return nil, fmt.Errorf("registration %s has no registrants: %w", reg.ID, domain.ErrInvariant)
	}

	created := false
	inv, err := s.ledger.GetByObject(ctx, domain.InvoiceObjectRegistration, reg.ID)
	if errors.Is(err, domain.ErrNotFound) {
		created = true
		inv = &domain.Invoice{
			ObjectType: domain.InvoiceObjectRegistration,
			ObjectID:   reg.ID,
		}
	} else if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}

	if statusDetail == "" {
		statusDetail = domain.InvoiceStatusEstimate
	}
	inv.Title = fmt.Sprintf("Registration %s for Event: %s", reg.ID, event.Title)
	inv.StatusDetail = statusDetail
	inv.AdminNotes = adminNotes

	inv.BillToName = primary.Name()
	inv.BillToCompany = primary.CompanyName
	inv.BillToEmail = primary.Email
	inv.BillToPhone = primary.Phone
	inv.BillToAddress = primary.Address
	inv.BillToCity = primary.City
	inv.BillToState = primary.State
	inv.BillToZip = primary.Zip
	inv.BillToCountry = primary.Country

	inv.ShipToName = primary.Name()
	inv.ShipToCompany = primary.CompanyName
	inv.ShipToEmail = primary.Email
	inv.ShipToPhone = primary.Phone
	inv.ShipToAddress = primary.Address
	inv.ShipToCity = primary.City
	inv.ShipToState = primary.State
	inv.ShipToZip = primary.Zip
	inv.ShipToCountry = primary.Country

	tax, err := s.invoiceTax(ctx, reg, registrants)
	if err != nil {
		return nil, err
	}

	subtotal := reg.AmountPaid
	total := subtotal.Add(tax)
	if reg.Gratuity.IsPositive() {
		total = total.Add(subtotal.Mul(reg.Gratuity).Round(2))
	}
	inv.Subtotal = subtotal
	inv.Tax = tax
	inv.Gratuity = reg.Gratuity
	inv.Total = total
	inv.Balance = total

	now := s.now()
	inv.DueDate = &now

	if created {
		if err := s.ledger.Create(ctx, inv); err != nil {
			if errors.Is(err, domain.ErrInvoiceState) {
				return nil, domain.ErrInvoiceState
			}
			return nil, fmt.Errorf("create invoice: %w", err)
		}
	} else {
		if err := s.ledger.Update(ctx, inv); err != nil {
			return nil, fmt.Errorf("update invoice: %w", err)
		}
	}

	if reg.InvoiceID == nil || *reg.InvoiceID != inv.ID {
		if err := s.registrationRepo.SetInvoice(ctx, reg.ID, inv.ID); err != nil {
			return nil, fmt.Errorf("set invoice on registration: %w", err)
		}
		reg.InvoiceID = &inv.ID
	}

	return inv, nil
}

// invoiceTax computes invoice tax. A shared (table) tier taxes the whole
// amount paid at the tier rate; otherwise each active registrant contributes
// its charged price times its own tier rate. Rounded once at the end.
func (s *registrationService) invoiceTax(ctx context.Context, reg *domain.Registration, registrants []*domain.Registrant) (decimal.Decimal, error) {
	tax := decimal.Zero
	if reg.TierID != nil {
		tier, err := s.pricingRepo.GetByID(ctx, *reg.TierID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("get pricing tier: %w", err)
		}
		if tier.IncludeTax {
			tax = tier.TaxRate.Mul(reg.AmountPaid)
		}
		return tax.Round(2), nil
	}

	tiers := make(map[string]*domain.PricingTier)
	for _, r := range registrants {
		if !r.Active() || r.PricingID == nil {
			continue
		}
		tier, ok := tiers[*r.PricingID]
		if !ok {
			var err error
			tier, err = s.pricingRepo.GetByID(ctx, *r.PricingID)
			if err != nil {
				return decimal.Zero, fmt.Errorf("get pricing tier: %w", err)
			}
			tiers[*r.PricingID] = tier
		}
		if tier.IncludeTax {
			tax = tax.Add(r.PriceCharged(tier).Mul(tier.TaxRate))
		}
	}
	return tax.Round(2), nil
}

func (s *registrationService) Cancel(ctx context.Context, registrationID string, refund bool, feeOverride *decimal.Decimal, actor string) (*domain.CancellationOutcome, error) {
	reg, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	if reg.Canceled {
		return &domain.CancellationOutcome{Canceled: true}, nil
	}
	event, err := s.eventRepo.GetByID(ctx, reg.EventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	registrants, err := s.registrantRepo.ListByRegistration(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("list registrants: %w", err)
	}

	// A fee override replaces the per-registrant fee schedule with one
	// aggregate fee, so per-registrant processing is suppressed.
	processFee := feeOverride == nil

	refundTotal := decimal.Zero
	var names []string
	for _, r := range registrants {
		if !r.Active() {
			continue
		}
		refundTotal = refundTotal.Add(r.Amount)
		names = append(names, r.Name())
		if _, err := s.registrants.Cancel(ctx, r.ID, false, false, processFee, actor); err != nil {
			return nil, fmt.Errorf("cancel registrant %s: %w", r.ID, err)
		}
	}

	if feeOverride != nil && s.settings.RefundsEnabled() && reg.InvoiceID != nil {
		if err := s.ledger.SetCancellationFee(ctx, *reg.InvoiceID, *feeOverride, actor); err != nil {
			return nil, fmt.Errorf("set cancellation fee: %w", err)
		}
	}

	outcome := &domain.CancellationOutcome{Canceled: true}
	if refund && s.settings.AutoRefundEnabled() && reg.InvoiceID != nil && refundTotal.IsPositive() {
		amount, err := s.ledger.RefundableAmount(ctx, *reg.InvoiceID, refundTotal)
		if err != nil {
			return nil, fmt.Errorf("refundable amount: %w", err)
		}
		if amount.IsPositive() {
			if err := s.ledger.Refund(ctx, *reg.InvoiceID, amount, actor, "registration cancellation"); err != nil {
				var refundErr *domain.RefundError
				if !errors.As(err, &refundErr) {
					refundErr = &domain.RefundError{Amount: amount, Err: err}
				}
				outcome.RefundErr = refundErr
			} else {
				outcome.RefundIssued = true
				outcome.RefundAmount = amount
			}
		}
	}

	// The registration is finalized cancelled even when the refund failed.
	// Re-fetch first: per-registrant cancellations decremented amount_paid.
	fresh, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	fresh.Canceled = true
	fresh.UpdatedAt = s.now()
	if err := s.registrationRepo.Update(ctx, fresh); err != nil {
		return nil, fmt.Errorf("update registration: %w", err)
	}

	outcome.Message = cancellationMessage(event, names, refundTotal, outcome, s.settings)
	return outcome, nil
}

// cancellationMessage builds the confirmation shown after a cancellation,
// including what to expect about a refund under the current policy.
func cancellationMessage(event *domain.Event, names []string, refundTotal decimal.Decimal, outcome *domain.CancellationOutcome, settings domain.Settings) string {
	var b strings.Builder
	if len(names) > 0 {
		fmt.Fprintf(&b, "Registration for %s has been cancelled for %s.", event.Title, strings.Join(names, ", "))
	} else {
		fmt.Fprintf(&b, "Registration for %s has been cancelled.", event.Title)
	}
	switch {
	case outcome.RefundIssued:
		fmt.Fprintf(&b, " A refund of %s has been issued.", outcome.RefundAmount.StringFixed(2))
	case outcome.RefundErr != nil:
		b.WriteString(" Your refund could not be processed automatically; our staff will follow up.")
	case settings.RefundsEnabled() && refundTotal.IsPositive():
		fmt.Fprintf(&b, " Contact us to request a refund of up to %s.", refundTotal.StringFixed(2))
	}
	return b.String()
}
