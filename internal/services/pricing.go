package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventregistration/internal/domain"
)

type pricingService struct {
	regConfRepo domain.RegConfRepository
	pricingRepo domain.PricingRepository
	settings    domain.Settings
	now         func() time.Time
}

// NewPricingService creates a PricingService with the given repositories and
// module settings.
func NewPricingService(
	regConfRepo domain.RegConfRepository,
	pricingRepo domain.PricingRepository,
	settings domain.Settings,
) domain.PricingService {
	return &pricingService{
		regConfRepo: regConfRepo,
		pricingRepo: pricingRepo,
		settings:    settings,
		now:         time.Now,
	}
}

func (s *pricingService) AvailablePricings(ctx context.Context, eventID string, ident domain.Identity, strict bool, spotsAvailable int) ([]*domain.PricingTier, error) {
	conf, err := s.regConfRepo.GetByEventID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get registration configuration: %w", err)
	}
	if !conf.Enabled {
		return []*domain.PricingTier{}, nil
	}

	tiers, err := s.pricingRepo.ListByConfig(ctx, conf.ID)
	if err != nil {
		return nil, fmt.Errorf("list pricing tiers: %w", err)
	}

	// Hiding member pricing from the public forces strict visibility even for
	// callers that asked for the loose variant.
	strict = strict || s.settings.HideMemberPricing
	now := s.now()

	available := make([]*domain.PricingTier, 0, len(tiers))
	for _, tier := range tiers {
		if !tier.Active() {
			continue
		}
		if !ident.Superuser {
			if !tier.WithinTime(now) {
				continue
			}
			if !tier.EligibleFor(ident, strict) {
				continue
			}
			if spotsAvailable >= 0 && tier.Quantity > spotsAvailable {
				continue
			}
		}
		available = append(available, tier)
	}

	for _, tier := range available {
		if tier.RegistrationCap == 0 {
			continue
		}
		taken, err := s.pricingRepo.RefreshSpotsTaken(ctx, tier.ID, conf.PaymentRequiredFor(tier))
		if err != nil {
			return nil, fmt.Errorf("refresh spots taken for tier %s: %w", tier.ID, err)
		}
		tier.SpotsTaken = taken
	}

	return available, nil
}

func (s *pricingService) SpotsStatus(ctx context.Context, tierID string) (domain.SpotsStatus, error) {
	tier, err := s.pricingRepo.GetByID(ctx, tierID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.SpotsStatus{}, domain.ErrNotFound
		}
		return domain.SpotsStatus{}, fmt.Errorf("get pricing tier: %w", err)
	}
	conf, err := s.regConfRepo.GetByID(ctx, tier.RegConfID)
	if err != nil {
		return domain.SpotsStatus{}, fmt.Errorf("get registration configuration: %w", err)
	}

	taken, err := s.pricingRepo.RefreshSpotsTaken(ctx, tierID, conf.PaymentRequiredFor(tier))
	if err != nil {
		return domain.SpotsStatus{}, fmt.Errorf("refresh spots taken: %w", err)
	}
	return tier.SpotsStatusFor(taken), nil
}
