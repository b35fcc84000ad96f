package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPricingTier_TaxAmount(t *testing.T) {
	tests := []struct {
		name       string
		includeTax bool
		taxRate    string
		price      string
		want       string
	}{
		{name: "standard rate rounds to cents", includeTax: true, taxRate: "0.0825", price: "100.00", want: "8.25"},
		{name: "rounding half up", includeTax: true, taxRate: "0.0825", price: "10.10", want: "0.83"},
		{name: "tax not included", includeTax: false, taxRate: "0.0825", price: "100.00", want: "0"},
		{name: "zero rate", includeTax: true, taxRate: "0", price: "100.00", want: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier := &PricingTier{
				IncludeTax: tt.includeTax,
				TaxRate:    decimal.RequireFromString(tt.taxRate),
				Price:      decimal.RequireFromString(tt.price),
			}
			require.True(t, tier.TaxAmount().Equal(decimal.RequireFromString(tt.want)),
				"got %s", tier.TaxAmount())
		})
	}
}

func TestPricingTier_WithinTime(t *testing.T) {
	now := time.Now()
	tier := &PricingTier{StartDt: now.Add(-time.Hour), EndDt: now.Add(time.Hour)}
	require.True(t, tier.WithinTime(now))
	require.False(t, tier.WithinTime(now.Add(-2*time.Hour)))
	require.False(t, tier.WithinTime(now.Add(2*time.Hour)))
}

func TestPricingTier_SpotsStatusFor(t *testing.T) {
	uncapped := &PricingTier{RegistrationCap: 0}
	require.Equal(t, SpotsStatus{Taken: 7, Available: UnlimitedSpots}, uncapped.SpotsStatusFor(7))

	capped := &PricingTier{RegistrationCap: 10}
	require.Equal(t, SpotsStatus{Taken: 4, Available: 6}, capped.SpotsStatusFor(4))

	full := capped.SpotsStatusFor(10)
	require.Equal(t, SpotsStatus{Taken: 10, Available: 0}, full)
	require.True(t, full.Full())

	// Drifted cache or over-admission still reports full, never negative.
	require.Equal(t, SpotsStatus{Taken: 12, Available: 0}, capped.SpotsStatusFor(12))
}

func TestPricingTier_EligibleFor(t *testing.T) {
	anonTier := &PricingTier{AllowAnonymous: true}
	userTier := &PricingTier{AllowUser: true}
	memberTier := &PricingTier{AllowMember: true}
	groupTier := &PricingTier{GroupIDs: []string{"g1", "g2"}}

	anonymous := Identity{}
	user := Identity{UserID: "u1", Authenticated: true}
	member := Identity{UserID: "m1", Authenticated: true, Member: true}
	groupMember := Identity{UserID: "m2", Authenticated: true, Member: true, GroupIDs: []string{"g2"}}
	superuser := Identity{UserID: "su", Authenticated: true, Superuser: true}

	tests := []struct {
		name   string
		tier   *PricingTier
		ident  Identity
		strict bool
		want   bool
	}{
		{"anonymous sees anonymous tier", anonTier, anonymous, true, true},
		{"anonymous blocked from user tier", userTier, anonymous, true, false},
		{"anonymous blocked from member tier", memberTier, anonymous, true, false},
		{"user sees anonymous tier", anonTier, user, true, true},
		{"user sees user tier", userTier, user, true, true},
		{"non-member blocked from member tier", memberTier, user, true, false},
		{"member sees member tier", memberTier, member, true, true},
		{"member without group blocked from group tier", groupTier, member, true, false},
		{"group member sees group tier", groupTier, groupMember, true, true},
		{"loose mode shows member tier to anonymous", memberTier, anonymous, false, true},
		{"loose mode shows user tier to anonymous", userTier, anonymous, false, true},
		{"loose mode still hides group-only tier from non-members", groupTier, user, false, false},
		{"superuser bypasses everything", groupTier, superuser, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.tier.EligibleFor(tt.ident, tt.strict))
		})
	}
}

func TestPrimaryRegistrant(t *testing.T) {
	first := &Registrant{ID: "r1"}
	second := &Registrant{ID: "r2", IsPrimary: true}
	third := &Registrant{ID: "r3"}

	// Flagged primary wins even when not first by id.
	require.Equal(t, second, PrimaryRegistrant([]*Registrant{first, second, third}))

	// Without a flag, lowest id (first in id order) wins.
	require.Equal(t, first, PrimaryRegistrant([]*Registrant{first, third}))

	require.Nil(t, PrimaryRegistrant(nil))
}
