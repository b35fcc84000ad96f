package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventregistration/internal/domain"
)

type registrantService struct {
	registrationRepo domain.RegistrationRepository
	registrantRepo   domain.RegistrantRepository
	regConfRepo      domain.RegConfRepository
	pricingRepo      domain.PricingRepository
	ledger           domain.InvoiceLedger
	notifier         domain.Notifier
	settings         domain.Settings
	now              func() time.Time
}

// NewRegistrantService creates a RegistrantService with the given
// collaborators and module settings.
func NewRegistrantService(
	registrationRepo domain.RegistrationRepository,
	registrantRepo domain.RegistrantRepository,
	regConfRepo domain.RegConfRepository,
	pricingRepo domain.PricingRepository,
	ledger domain.InvoiceLedger,
	notifier domain.Notifier,
	settings domain.Settings,
) domain.RegistrantService {
	return &registrantService{
		registrationRepo: registrationRepo,
		registrantRepo:   registrantRepo,
		regConfRepo:      regConfRepo,
		pricingRepo:      pricingRepo,
		ledger:           ledger,
		notifier:         notifier,
		settings:         settings,
		now:              time.Now,
	}
}

func (s *registrantService) Cancel(ctx context.Context, registrantID string, checkParent, refund, processFee bool, actor string) (*domain.CancellationOutcome, error) {
	r, err := s.registrantRepo.GetByID(ctx, registrantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get registrant: %w", err)
	}
	if !r.Active() {
		return &domain.CancellationOutcome{Canceled: true}, nil
	}

	reg, err := s.registrationRepo.GetByID(ctx, r.RegistrationID)
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	conf, err := s.regConfRepo.GetByEventID(ctx, reg.EventID)
	if err != nil {
		return nil, fmt.Errorf("get registration configuration: %w", err)
	}

	now := s.now()
	r.CancelDt = &now
	r.UpdatedAt = now
	if err := s.registrantRepo.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("update registrant: %w", err)
	}

	var inv *domain.Invoice
	if reg.InvoiceID != nil {
		inv, err = s.ledger.GetByObject(ctx, domain.InvoiceObjectRegistration, reg.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("get invoice: %w", err)
		}
	}

	outcome := &domain.CancellationOutcome{Canceled: true}
	if r.Amount.IsPositive() {
		// The registration's amount_paid is unwound even after tender; the
		// invoice keeps the money trail and is only decremented pre-tender.
		reg.AmountPaid = reg.AmountPaid.Sub(r.Amount)
		reg.UpdatedAt = now
		if err := s.registrationRepo.Update(ctx, reg); err != nil {
			return nil, fmt.Errorf("update registration: %w", err)
		}

		if inv != nil && !inv.IsTendered() {
			if err := s.ledger.AdjustTotals(ctx, inv.ID, r.Amount); err != nil {
				return nil, fmt.Errorf("adjust invoice totals: %w", err)
			}
		}

		if processFee && s.settings.RefundsEnabled() && inv != nil {
			fee := conf.CancellationFeeFor(r.Amount)
			if fee.IsPositive() {
				// The fee is recorded as a line item only; the refund side
				// accounts for it, so totals stay untouched here.
				if err := s.ledger.AddLineItem(ctx, inv.ID, fee, domain.LineDescCancellationFee, actor, false); err != nil {
					return nil, fmt.Errorf("add cancellation fee: %w", err)
				}
			}
		}

		if refund && s.settings.AutoRefundEnabled() && inv != nil {
			amount, err := s.ledger.RefundableAmount(ctx, inv.ID, r.Amount)
			if err != nil {
				return nil, fmt.Errorf("refundable amount: %w", err)
			}
			if amount.IsPositive() {
				if err := s.ledger.Refund(ctx, inv.ID, amount, actor, "registrant cancellation"); err != nil {
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
	}

	if r.PricingID != nil {
		s.releaseSpot(ctx, conf, *r.PricingID)
	}

	if checkParent && !reg.Canceled {
		active, err := s.registrantRepo.CountActiveSiblings(ctx, reg.ID, r.ID)
		if err != nil {
			return nil, fmt.Errorf("count active siblings: %w", err)
		}
		if active == 0 {
			reg.Canceled = true
			reg.UpdatedAt = now
			if err := s.registrationRepo.Update(ctx, reg); err != nil {
				return nil, fmt.Errorf("update registration: %w", err)
			}
		}
	}

	s.notifier.Send(ctx, []string{r.Email}, domain.TemplateRegistrationCancelled, map[string]any{
		"registrant_name": r.Name(),
		"registration_id": reg.ID,
		"can_refund":      s.settings.RefundsEnabled(),
		"can_auto_refund": s.settings.AutoRefundEnabled(),
		"refund_issued":   outcome.RefundIssued,
		"refund_amount":   outcome.RefundAmount,
	})

	return outcome, nil
}

// releaseSpot refreshes the cached counter after a cancellation. The refresh
// is opportunistic; admission always recounts, so a failure here is ignored.
func (s *registrantService) releaseSpot(ctx context.Context, conf *domain.RegistrationConfiguration, tierID string) {
	tier, err := s.pricingRepo.GetByID(ctx, tierID)
	if err != nil {
		return
	}
	_, _ = s.pricingRepo.RefreshSpotsTaken(ctx, tierID, conf.PaymentRequiredFor(tier))
}

func (s *registrantService) CheckIn(ctx context.Context, registrantID string) (*domain.Registrant, error) {
	r, err := s.registrantRepo.GetByID(ctx, registrantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get registrant: %w", err)
	}
	if !r.Active() {
		return nil, fmt.Errorf("%w: cancelled registrant cannot check in", domain.ErrInvalidInput)
	}
	if r.CheckedIn {
		return r, nil
	}
	now := s.now()
	r.CheckedIn = true
	r.CheckedInDt = &now
	r.UpdatedAt = now
	if err := s.registrantRepo.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("update registrant: %w", err)
	}
	return r, nil
}

func (s *registrantService) CheckOut(ctx context.Context, registrantID string) (*domain.Registrant, error) {
	r, err := s.registrantRepo.GetByID(ctx, registrantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get registrant: %w", err)
	}
	if !r.CheckedIn {
		return nil, fmt.Errorf("%w: registrant is not checked in", domain.ErrInvalidInput)
	}
	if r.CheckedOut {
		return r, nil
	}
	now := s.now()
	r.CheckedOut = true
	r.CheckedOutDt = &now
	r.UpdatedAt = now
	if err := s.registrantRepo.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("update registrant: %w", err)
	}
	return r, nil
}

func (s *registrantService) Roster(ctx context.Context, eventID string, p domain.PaginationParams) ([]*domain.Registrant, int, error) {
	registrants, total, err := s.registrantRepo.ListByEvent(ctx, eventID, p)
	if err != nil {
		return nil, 0, fmt.Errorf("list registrants: %w", err)
	}
	if registrants == nil {
		registrants = []*domain.Registrant{}
	}
	return registrants, total, nil
}
