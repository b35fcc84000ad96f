package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventregistration/internal/domain"
)

type catalogService struct {
	eventRepo   domain.EventRepository
	regConfRepo domain.RegConfRepository
	pricingRepo domain.PricingRepository
	now         func() time.Time
}

// NewCatalogService creates a CatalogService with the given repositories.
func NewCatalogService(
	eventRepo domain.EventRepository,
	regConfRepo domain.RegConfRepository,
	pricingRepo domain.PricingRepository,
) domain.CatalogService {
	return &catalogService{
		eventRepo:   eventRepo,
		regConfRepo: regConfRepo,
		pricingRepo: pricingRepo,
		now:         time.Now,
	}
}

func (s *catalogService) CreateEvent(ctx context.Context, input domain.CreateEventInput) (*domain.Event, *domain.RegistrationConfiguration, error) {
	if input.Title == "" {
		return nil, nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if !input.EndDt.After(input.StartDt) {
		return nil, nil, fmt.Errorf("%w: event must end after it starts", domain.ErrInvalidInput)
	}

	now := s.now()
	event := domain.NewEvent(input.Title, input.StartDt, input.EndDt, now, now)
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, nil, fmt.Errorf("create event: %w", err)
	}

	conf := input.Config
	conf.EventID = event.ID
	conf.CreatedAt = now
	conf.UpdatedAt = now
	if err := s.regConfRepo.Create(ctx, &conf); err != nil {
		return nil, nil, fmt.Errorf("create registration configuration: %w", err)
	}
	return event, &conf, nil
}

func (s *catalogService) GetEvent(ctx context.Context, eventID string) (*domain.Event, *domain.RegistrationConfiguration, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("get event: %w", err)
	}
	conf, err := s.regConfRepo.GetByEventID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return event, nil, nil
		}
		return nil, nil, fmt.Errorf("get registration configuration: %w", err)
	}
	return event, conf, nil
}

func (s *catalogService) UpdateConfiguration(ctx context.Context, conf *domain.RegistrationConfiguration) error {
	if conf.Limit < 0 || conf.GuestLimit < 0 {
		return fmt.Errorf("%w: limits must not be negative", domain.ErrInvalidInput)
	}
	if conf.CancellationPercent.IsNegative() || conf.CancellationFee.IsNegative() {
		return fmt.Errorf("%w: cancellation fees must not be negative", domain.ErrInvalidInput)
	}
	conf.UpdatedAt = s.now()
	if err := s.regConfRepo.Update(ctx, conf); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("update registration configuration: %w", err)
	}
	return nil
}

func (s *catalogService) validateTier(tier *domain.PricingTier) error {
	if tier.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if tier.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	}
	if tier.TaxRate.IsNegative() {
		return fmt.Errorf("%w: tax rate must not be negative", domain.ErrInvalidInput)
	}
	if tier.RegistrationCap < 0 {
		return fmt.Errorf("%w: registration cap must not be negative", domain.ErrInvalidInput)
	}
	if !tier.EndDt.After(tier.StartDt) {
		return fmt.Errorf("%w: registration window must end after it opens", domain.ErrInvalidInput)
	}
	return nil
}

func (s *catalogService) CreateTier(ctx context.Context, tier *domain.PricingTier) error {
	if err := s.validateTier(tier); err != nil {
		return err
	}
	if _, err := s.regConfRepo.GetByID(ctx, tier.RegConfID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get registration configuration: %w", err)
	}
	if tier.Quantity < 1 {
		tier.Quantity = 1
	}
	if tier.Status == "" {
		tier.Status = domain.TierActive
	}
	now := s.now()
	tier.CreatedAt = now
	tier.UpdatedAt = now
	if err := s.pricingRepo.Create(ctx, tier); err != nil {
		return fmt.Errorf("create pricing tier: %w", err)
	}
	return nil
}

func (s *catalogService) UpdateTier(ctx context.Context, tier *domain.PricingTier) error {
	if err := s.validateTier(tier); err != nil {
		return err
	}
	tier.UpdatedAt = s.now()
	if err := s.pricingRepo.Update(ctx, tier); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("update pricing tier: %w", err)
	}
	return nil
}

func (s *catalogService) DisableTier(ctx context.Context, tierID string) error {
	if err := s.pricingRepo.Disable(ctx, tierID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("disable pricing tier: %w", err)
	}
	return nil
}
