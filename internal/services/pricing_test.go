package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eventregistration/internal/domain"
)

func pricingFixture() (*mockRegConfRepository, *mockPricingRepository) {
	now := time.Now()
	conf := &domain.RegistrationConfiguration{ID: "conf1", EventID: "ev1", Enabled: true}

	inWindow := func(tier *domain.PricingTier) *domain.PricingTier {
		tier.RegConfID = "conf1"
		tier.Status = domain.TierActive
		tier.StartDt = now.Add(-time.Hour)
		tier.EndDt = now.Add(time.Hour)
		if tier.Quantity == 0 {
			tier.Quantity = 1
		}
		return tier
	}

	pricingRepo := &mockPricingRepository{tiers: map[string]*domain.PricingTier{
		"anon":   inWindow(&domain.PricingTier{ID: "anon", AllowAnonymous: true}),
		"member": inWindow(&domain.PricingTier{ID: "member", AllowMember: true}),
		"closed": {
			ID: "closed", RegConfID: "conf1", Status: domain.TierActive, Quantity: 1,
			AllowAnonymous: true,
			StartDt:        now.Add(-3 * time.Hour), EndDt: now.Add(-2 * time.Hour),
		},
		"disabled": {
			ID: "disabled", RegConfID: "conf1", Status: domain.TierDisabled, Quantity: 1,
			AllowAnonymous: true,
			StartDt:        now.Add(-time.Hour), EndDt: now.Add(time.Hour),
		},
		"table": inWindow(&domain.PricingTier{ID: "table", AllowAnonymous: true, Quantity: 8}),
	}}
	return &mockRegConfRepository{confsByEvent: map[string]*domain.RegistrationConfiguration{"ev1": conf}}, pricingRepo
}

func TestAvailablePricings_FiltersByEligibilityWindowAndSeats(t *testing.T) {
	confRepo, pricingRepo := pricingFixture()
	svc := NewPricingService(confRepo, pricingRepo, domain.Settings{})

	got, err := svc.AvailablePricings(context.Background(), "ev1", domain.Identity{}, true, 5)
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, tier := range got {
		ids[tier.ID] = true
	}
	require.True(t, ids["anon"])
	require.False(t, ids["member"], "member tier hidden from anonymous in strict mode")
	require.False(t, ids["closed"], "window already closed")
	require.False(t, ids["disabled"], "soft-deleted tier never offered")
	require.False(t, ids["table"], "table of 8 needs 8 remaining seats, only 5 left")
}

func TestAvailablePricings_LooseModeShowsAllFlags(t *testing.T) {
	confRepo, pricingRepo := pricingFixture()
	svc := NewPricingService(confRepo, pricingRepo, domain.Settings{})

	got, err := svc.AvailablePricings(context.Background(), "ev1", domain.Identity{}, false, -1)
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, tier := range got {
		ids[tier.ID] = true
	}
	require.True(t, ids["member"], "loose mode honors all flags regardless of membership")
}

func TestAvailablePricings_HideMemberPricingForcesStrict(t *testing.T) {
	confRepo, pricingRepo := pricingFixture()
	svc := NewPricingService(confRepo, pricingRepo, domain.Settings{HideMemberPricing: true})

	got, err := svc.AvailablePricings(context.Background(), "ev1", domain.Identity{}, false, -1)
	require.NoError(t, err)
	for _, tier := range got {
		require.NotEqual(t, "member", tier.ID)
	}
}

func TestAvailablePricings_SuperuserBypassesWindowAndSeats(t *testing.T) {
	confRepo, pricingRepo := pricingFixture()
	svc := NewPricingService(confRepo, pricingRepo, domain.Settings{})

	superuser := domain.Identity{UserID: "su", Authenticated: true, Superuser: true}
	got, err := svc.AvailablePricings(context.Background(), "ev1", superuser, true, 0)
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, tier := range got {
		ids[tier.ID] = true
	}
	require.True(t, ids["closed"], "superuser sees closed-window tiers")
	require.True(t, ids["table"], "superuser ignores the seats filter")
	require.False(t, ids["disabled"], "soft delete still applies")
}

func TestAvailablePricings_RefreshesCappedCounters(t *testing.T) {
	confRepo, pricingRepo := pricingFixture()
	pricingRepo.tiers["anon"].RegistrationCap = 10
	pricingRepo.counts = map[string]int{"anon": 7}
	svc := NewPricingService(confRepo, pricingRepo, domain.Settings{})

	got, err := svc.AvailablePricings(context.Background(), "ev1", domain.Identity{}, true, -1)
	require.NoError(t, err)
	require.Contains(t, pricingRepo.refreshed, "anon")
	for _, tier := range got {
		if tier.ID == "anon" {
			require.Equal(t, 7, tier.SpotsTaken)
		}
	}
}

func TestAvailablePricings_DisabledConfiguration(t *testing.T) {
	confRepo, pricingRepo := pricingFixture()
	confRepo.confsByEvent["ev1"].Enabled = false
	svc := NewPricingService(confRepo, pricingRepo, domain.Settings{})

	got, err := svc.AvailablePricings(context.Background(), "ev1", domain.Identity{}, true, -1)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSpotsStatus(t *testing.T) {
	confRepo, pricingRepo := pricingFixture()
	pricingRepo.tiers["anon"].RegistrationCap = 10
	pricingRepo.counts = map[string]int{"anon": 10}
	svc := NewPricingService(confRepo, pricingRepo, domain.Settings{})

	status, err := svc.SpotsStatus(context.Background(), "anon")
	require.NoError(t, err)
	require.Equal(t, domain.SpotsStatus{Taken: 10, Available: 0}, status)
	require.True(t, status.Full())

	status, err = svc.SpotsStatus(context.Background(), "member")
	require.NoError(t, err)
	require.Equal(t, domain.UnlimitedSpots, status.Available)

	_, err = svc.SpotsStatus(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
