package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"eventregistration/internal/domain"
)

type cancelFixture struct {
	registrationRepo *mockRegistrationRepository
	registrantRepo   *mockRegistrantRepository
	regConfRepo      *mockRegConfRepository
	pricingRepo      *mockPricingRepository
	ledger           *mockInvoiceLedger
	notifier         *mockNotifier
	reg              *domain.Registration
	invoice          *domain.Invoice
}

// newCancelFixture builds a registration of two paid registrants (50.00 and
// 30.00) with an untendered invoice over the full 80.00.
func newCancelFixture() *cancelFixture {
	invoiceID := "inv1"
	tierID := "tier1"
	eighty := decimal.RequireFromString("80.00")

	reg := &domain.Registration{
		ID:         "reg1",
		EventID:    "ev1",
		InvoiceID:  &invoiceID,
		AmountPaid: eighty,
	}
	invoice := &domain.Invoice{
		ID:           invoiceID,
		ObjectType:   domain.InvoiceObjectRegistration,
		ObjectID:     "reg1",
		StatusDetail: domain.InvoiceStatusEstimate,
		Subtotal:     eighty,
		Total:        eighty,
		Balance:      eighty,
	}

	f := &cancelFixture{
		registrationRepo: &mockRegistrationRepository{regs: map[string]*domain.Registration{"reg1": reg}},
		registrantRepo:   &mockRegistrantRepository{},
		regConfRepo: &mockRegConfRepository{confsByEvent: map[string]*domain.RegistrationConfiguration{
			"ev1": {ID: "conf1", EventID: "ev1", Enabled: true},
		}},
		pricingRepo: &mockPricingRepository{tiers: map[string]*domain.PricingTier{
			tierID: {ID: tierID, RegConfID: "conf1", Status: domain.TierActive, RegistrationCap: 10},
		}},
		ledger:   &mockInvoiceLedger{},
		notifier: &mockNotifier{},
		reg:      reg,
		invoice:  invoice,
	}
	f.ledger.add(invoice)
	f.registrantRepo.add(&domain.Registrant{
		ID: "r1", RegistrationID: "reg1", PricingID: &tierID, IsPrimary: true,
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		Amount: decimal.RequireFromString("50.00"),
	})
	f.registrantRepo.add(&domain.Registrant{
		ID: "r2", RegistrationID: "reg1", PricingID: &tierID,
		FirstName: "Charles", LastName: "Babbage", Email: "charles@example.com",
		Amount: decimal.RequireFromString("30.00"),
	})
	return f
}

func (f *cancelFixture) service(settings domain.Settings) domain.RegistrantService {
	return NewRegistrantService(f.registrationRepo, f.registrantRepo, f.regConfRepo, f.pricingRepo, f.ledger, f.notifier, settings)
}

func TestRegistrantCancel_PreTenderUnwindsInvoice(t *testing.T) {
	f := newCancelFixture()
	f.regConfRepo.confsByEvent["ev1"].CancellationFee = decimal.RequireFromString("5.00")
	svc := f.service(domain.Settings{AllowRefunds: domain.RefundPolicyYes})

	outcome, err := svc.Cancel(context.Background(), "r1", true, false, true, "ada@example.com")
	require.NoError(t, err)
	require.True(t, outcome.Canceled)
	require.False(t, outcome.RefundIssued)

	r1 := f.registrantRepo.registrants["r1"]
	require.NotNil(t, r1.CancelDt)
	require.True(t, f.reg.AmountPaid.Equal(decimal.RequireFromString("30.00")))

	// Untendered invoice totals follow the cancellation.
	require.Len(t, f.ledger.adjusted, 1)
	require.True(t, f.invoice.Total.Equal(decimal.RequireFromString("30.00")))
	require.True(t, f.invoice.Balance.Equal(decimal.RequireFromString("30.00")))

	// Fee recorded as a line item without touching totals.
	require.Len(t, f.ledger.lineItems, 1)
	require.Equal(t, domain.LineDescCancellationFee, f.ledger.lineItems[0].description)
	require.False(t, f.ledger.lineItems[0].updateTotal)
	require.True(t, f.ledger.lineItems[0].amount.Equal(decimal.RequireFromString("5.00")))

	// One active sibling remains, so the parent stays live.
	require.False(t, f.reg.Canceled)
}

func TestRegistrantCancel_PostTenderKeepsInvoiceTotals(t *testing.T) {
	f := newCancelFixture()
	f.invoice.StatusDetail = domain.InvoiceStatusTendered
	svc := f.service(domain.Settings{AllowRefunds: domain.RefundPolicyNo})

	_, err := svc.Cancel(context.Background(), "r1", true, false, true, "staff")
	require.NoError(t, err)

	// amount_paid is unwound even after tender; invoice totals are not.
	require.True(t, f.reg.AmountPaid.Equal(decimal.RequireFromString("30.00")))
	require.Empty(t, f.ledger.adjusted)
	require.True(t, f.invoice.Total.Equal(decimal.RequireFromString("80.00")))

	// Refunds disabled: no fee line item either.
	require.Empty(t, f.ledger.lineItems)
}

func TestRegistrantCancel_AutoRefundCapped(t *testing.T) {
	f := newCancelFixture()
	limit := decimal.RequireFromString("20.00")
	f.ledger.refundable = &limit
	svc := f.service(domain.Settings{AllowRefunds: domain.RefundPolicyAuto})

	outcome, err := svc.Cancel(context.Background(), "r1", true, true, false, "staff")
	require.NoError(t, err)
	require.True(t, outcome.RefundIssued)
	require.True(t, outcome.RefundAmount.Equal(limit), "refund capped to payments net of prior refunds")
	require.Len(t, f.ledger.refunds, 1)
}

func TestRegistrantCancel_RefundFailureDoesNotRollBack(t *testing.T) {
	f := newCancelFixture()
	f.ledger.refundErr = context.DeadlineExceeded
	svc := f.service(domain.Settings{AllowRefunds: domain.RefundPolicyAuto})

	outcome, err := svc.Cancel(context.Background(), "r1", true, true, false, "staff")
	require.NoError(t, err)
	require.True(t, outcome.Canceled)
	require.False(t, outcome.RefundIssued)
	require.NotNil(t, outcome.RefundErr)

	require.NotNil(t, f.registrantRepo.registrants["r1"].CancelDt)
	require.True(t, f.reg.AmountPaid.Equal(decimal.RequireFromString("30.00")))
}

func TestRegistrantCancel_LastActiveFlipsParent(t *testing.T) {
	f := newCancelFixture()
	svc := f.service(domain.Settings{})

	_, err := svc.Cancel(context.Background(), "r1", true, false, false, "staff")
	require.NoError(t, err)
	require.False(t, f.reg.Canceled)

	_, err = svc.Cancel(context.Background(), "r2", true, false, false, "staff")
	require.NoError(t, err)
	require.True(t, f.reg.Canceled, "no active sibling remains")
	require.True(t, f.reg.AmountPaid.IsZero())
}

func TestRegistrantCancel_ParentCheckSuppressed(t *testing.T) {
	f := newCancelFixture()
	svc := f.service(domain.Settings{})

	_, err := svc.Cancel(context.Background(), "r1", false, false, false, "staff")
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), "r2", false, false, false, "staff")
	require.NoError(t, err)
	require.False(t, f.reg.Canceled)
}

func TestRegistrantCancel_Idempotent(t *testing.T) {
	f := newCancelFixture()
	svc := f.service(domain.Settings{AllowRefunds: domain.RefundPolicyAuto})

	_, err := svc.Cancel(context.Background(), "r1", true, true, true, "staff")
	require.NoError(t, err)
	updates := f.registrantRepo.updates
	refunds := len(f.ledger.refunds)

	outcome, err := svc.Cancel(context.Background(), "r1", true, true, true, "staff")
	require.NoError(t, err)
	require.True(t, outcome.Canceled)
	require.Equal(t, updates, f.registrantRepo.updates, "second cancel is a no-op")
	require.Equal(t, refunds, len(f.ledger.refunds))
}

func TestRegistrantCancel_AlwaysNotifies(t *testing.T) {
	f := newCancelFixture()
	svc := f.service(domain.Settings{AllowRefunds: domain.RefundPolicyNo})

	_, err := svc.Cancel(context.Background(), "r1", true, false, false, "staff")
	require.NoError(t, err)
	require.Len(t, f.notifier.sent, 1)
	sent := f.notifier.sent[0]
	require.Equal(t, domain.TemplateRegistrationCancelled, sent.template)
	require.Equal(t, []string{"ada@example.com"}, sent.recipients)
	require.Equal(t, false, sent.data["can_refund"])
	require.Equal(t, false, sent.data["can_auto_refund"])
	require.Equal(t, false, sent.data["refund_issued"])
}

func TestRegistrantCancel_ReleasesSpot(t *testing.T) {
	f := newCancelFixture()
	svc := f.service(domain.Settings{})

	_, err := svc.Cancel(context.Background(), "r1", true, false, false, "staff")
	require.NoError(t, err)
	require.Contains(t, f.pricingRepo.refreshed, "tier1")
}

func TestCheckInAndOut(t *testing.T) {
	f := newCancelFixture()
	svc := f.service(domain.Settings{})
	ctx := context.Background()

	_, err := svc.CheckOut(ctx, "r1")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	r, err := svc.CheckIn(ctx, "r1")
	require.NoError(t, err)
	require.True(t, r.CheckedIn)
	require.NotNil(t, r.CheckedInDt)

	// Repeated check-in keeps the original timestamp.
	first := *r.CheckedInDt
	time.Sleep(time.Millisecond)
	r, err = svc.CheckIn(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, first, *r.CheckedInDt)

	r, err = svc.CheckOut(ctx, "r1")
	require.NoError(t, err)
	require.True(t, r.CheckedOut)

	_, err = svc.Cancel(ctx, "r2", true, false, false, "staff")
	require.NoError(t, err)
	_, err = svc.CheckIn(ctx, "r2")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
