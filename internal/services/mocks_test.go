package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"eventregistration/internal/domain"
)

type mockEventRepository struct {
	events map[string]*domain.Event
	err    error
}

func (m *mockEventRepository) Create(ctx context.Context, event *domain.Event) error {
	if m.events == nil {
		m.events = map[string]*domain.Event{}
	}
	event.ID = fmt.Sprintf("ev%d", len(m.events)+1)
	m.events[event.ID] = event
	return nil
}

func (m *mockEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	ev, ok := m.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return ev, nil
}

type mockRegConfRepository struct {
	confsByEvent map[string]*domain.RegistrationConfiguration
	err          error
}

func (m *mockRegConfRepository) Create(ctx context.Context, conf *domain.RegistrationConfiguration) error {
	if m.confsByEvent == nil {
		m.confsByEvent = map[string]*domain.RegistrationConfiguration{}
	}
	conf.ID = fmt.Sprintf("conf%d", len(m.confsByEvent)+1)
	m.confsByEvent[conf.EventID] = conf
	return nil
}

func (m *mockRegConfRepository) GetByID(ctx context.Context, id string) (*domain.RegistrationConfiguration, error) {
	for _, conf := range m.confsByEvent {
		if conf.ID == id {
			return conf, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockRegConfRepository) GetByEventID(ctx context.Context, eventID string) (*domain.RegistrationConfiguration, error) {
	if m.err != nil {
		return nil, m.err
	}
	conf, ok := m.confsByEvent[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return conf, nil
}

func (m *mockRegConfRepository) Update(ctx context.Context, conf *domain.RegistrationConfiguration) error {
	return nil
}

type mockPricingRepository struct {
	tiers map[string]*domain.PricingTier
	// counts holds the recount result per tier id.
	counts      map[string]int
	refreshed   []string
	refreshErr  error
	disabledIDs []string
}

func (m *mockPricingRepository) Create(ctx context.Context, tier *domain.PricingTier) error {
	if m.tiers == nil {
		m.tiers = map[string]*domain.PricingTier{}
	}
	tier.ID = fmt.Sprintf("tier%d", len(m.tiers)+1)
	m.tiers[tier.ID] = tier
	return nil
}

func (m *mockPricingRepository) GetByID(ctx context.Context, id string) (*domain.PricingTier, error) {
	tier, ok := m.tiers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return tier, nil
}

func (m *mockPricingRepository) ListByConfig(ctx context.Context, regConfID string) ([]*domain.PricingTier, error) {
	var out []*domain.PricingTier
	for _, tier := range m.tiers {
		if tier.RegConfID == regConfID {
			out = append(out, tier)
		}
	}
	return out, nil
}

func (m *mockPricingRepository) Update(ctx context.Context, tier *domain.PricingTier) error {
	return nil
}

func (m *mockPricingRepository) Disable(ctx context.Context, id string) error {
	m.disabledIDs = append(m.disabledIDs, id)
	if tier, ok := m.tiers[id]; ok {
		tier.Status = domain.TierDisabled
	}
	return nil
}

func (m *mockPricingRepository) CountActive(ctx context.Context, tierID string, paymentRequired bool) (int, error) {
	return m.counts[tierID], nil
}

func (m *mockPricingRepository) RefreshSpotsTaken(ctx context.Context, tierID string, paymentRequired bool) (int, error) {
	if m.refreshErr != nil {
		return 0, m.refreshErr
	}
	m.refreshed = append(m.refreshed, tierID)
	taken := m.counts[tierID]
	if tier, ok := m.tiers[tierID]; ok {
		tier.SpotsTaken = taken
	}
	return taken, nil
}

type mockRegistrationRepository struct {
	regs        map[string]*domain.Registration
	activeCount int
	createErr   error
	updates     int
	invoiceSets map[string]string
}

func (m *mockRegistrationRepository) CreateWithRegistrants(ctx context.Context, reg *domain.Registration, registrants []*domain.Registrant) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.regs == nil {
		m.regs = map[string]*domain.Registration{}
	}
	reg.ID = fmt.Sprintf("reg%d", len(m.regs)+1)
	m.regs[reg.ID] = reg
	for i, r := range registrants {
		r.ID = fmt.Sprintf("%s-r%d", reg.ID, i+1)
		r.RegistrationID = reg.ID
	}
	return nil
}

func (m *mockRegistrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	reg, ok := m.regs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return reg, nil
}

func (m *mockRegistrationRepository) Update(ctx context.Context, reg *domain.Registration) error {
	m.updates++
	m.regs[reg.ID] = reg
	return nil
}

func (m *mockRegistrationRepository) SetInvoice(ctx context.Context, registrationID, invoiceID string) error {
	if m.invoiceSets == nil {
		m.invoiceSets = map[string]string{}
	}
	m.invoiceSets[registrationID] = invoiceID
	return nil
}

func (m *mockRegistrationRepository) CountActiveForEvent(ctx context.Context, eventID string) (int, error) {
	return m.activeCount, nil
}

type mockRegistrantRepository struct {
	registrants map[string]*domain.Registrant
	byReg       map[string][]*domain.Registrant
	updates     int
}

func (m *mockRegistrantRepository) add(r *domain.Registrant) {
	if m.registrants == nil {
		m.registrants = map[string]*domain.Registrant{}
	}
	if m.byReg == nil {
		m.byReg = map[string][]*domain.Registrant{}
	}
	m.registrants[r.ID] = r
	m.byReg[r.RegistrationID] = append(m.byReg[r.RegistrationID], r)
}

func (m *mockRegistrantRepository) GetByID(ctx context.Context, id string) (*domain.Registrant, error) {
	r, ok := m.registrants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (m *mockRegistrantRepository) ListByRegistration(ctx context.Context, registrationID string) ([]*domain.Registrant, error) {
	return m.byReg[registrationID], nil
}

func (m *mockRegistrantRepository) ListByEvent(ctx context.Context, eventID string, p domain.PaginationParams) ([]*domain.Registrant, int, error) {
	var out []*domain.Registrant
	for _, rs := range m.byReg {
		out = append(out, rs...)
	}
	return out, len(out), nil
}

func (m *mockRegistrantRepository) Update(ctx context.Context, registrant *domain.Registrant) error {
	m.updates++
	m.registrants[registrant.ID] = registrant
	return nil
}

func (m *mockRegistrantRepository) CountActiveSiblings(ctx context.Context, registrationID, excludeID string) (int, error) {
	n := 0
	for _, r := range m.byReg[registrationID] {
		if r.ID != excludeID && r.Active() {
			n++
		}
	}
	return n, nil
}

type lineItem struct {
	invoiceID   string
	amount      decimal.Decimal
	description string
	updateTotal bool
}

type mockInvoiceLedger struct {
	invoices map[string]*domain.Invoice

	adjusted  []decimal.Decimal
	lineItems []lineItem
	fees      []decimal.Decimal
	refunds   []decimal.Decimal

	// refundable caps RefundableAmount when non-nil.
	refundable *decimal.Decimal
	refundErr  error
	createErr  error
}

func (m *mockInvoiceLedger) key(objectType, objectID string) string {
	return objectType + ":" + objectID
}

func (m *mockInvoiceLedger) add(inv *domain.Invoice) {
	if m.invoices == nil {
		m.invoices = map[string]*domain.Invoice{}
	}
	m.invoices[m.key(inv.ObjectType, inv.ObjectID)] = inv
}

func (m *mockInvoiceLedger) GetByObject(ctx context.Context, objectType, objectID string) (*domain.Invoice, error) {
	inv, ok := m.invoices[m.key(objectType, objectID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return inv, nil
}

func (m *mockInvoiceLedger) Create(ctx context.Context, inv *domain.Invoice) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.invoices[m.key(inv.ObjectType, inv.ObjectID)]; ok {
		return domain.ErrInvoiceState
	}
	if m.invoices == nil {
		m.invoices = map[string]*domain.Invoice{}
	}
	inv.ID = fmt.Sprintf("inv%d", len(m.invoices)+1)
	m.invoices[m.key(inv.ObjectType, inv.ObjectID)] = inv
	return nil
}

func (m *mockInvoiceLedger) Update(ctx context.Context, inv *domain.Invoice) error {
	m.invoices[m.key(inv.ObjectType, inv.ObjectID)] = inv
	return nil
}

func (m *mockInvoiceLedger) byID(invoiceID string) *domain.Invoice {
	for _, inv := range m.invoices {
		if inv.ID == invoiceID {
			return inv
		}
	}
	return nil
}

func (m *mockInvoiceLedger) AdjustTotals(ctx context.Context, invoiceID string, amount decimal.Decimal) error {
	inv := m.byID(invoiceID)
	if inv == nil {
		return domain.ErrNotFound
	}
	if inv.IsTendered() {
		return domain.ErrInvariant
	}
	inv.Subtotal = inv.Subtotal.Sub(amount)
	inv.Total = inv.Total.Sub(amount)
	inv.Balance = inv.Balance.Sub(amount)
	m.adjusted = append(m.adjusted, amount)
	return nil
}

func (m *mockInvoiceLedger) AddLineItem(ctx context.Context, invoiceID string, amount decimal.Decimal, description, actor string, updateTotal bool) error {
	m.lineItems = append(m.lineItems, lineItem{invoiceID: invoiceID, amount: amount, description: description, updateTotal: updateTotal})
	return nil
}

func (m *mockInvoiceLedger) SetCancellationFee(ctx context.Context, invoiceID string, fee decimal.Decimal, actor string) error {
	m.fees = append(m.fees, fee)
	return nil
}

func (m *mockInvoiceLedger) RefundableAmount(ctx context.Context, invoiceID string, requested decimal.Decimal) (decimal.Decimal, error) {
	if m.refundable != nil && m.refundable.LessThan(requested) {
		return *m.refundable, nil
	}
	return requested, nil
}

func (m *mockInvoiceLedger) Refund(ctx context.Context, invoiceID string, amount decimal.Decimal, actor, message string) error {
	if m.refundErr != nil {
		return &domain.RefundError{Amount: amount, Err: m.refundErr}
	}
	m.refunds = append(m.refunds, amount)
	return nil
}

type sentNotification struct {
	recipients []string
	template   string
	data       map[string]any
}

type mockNotifier struct {
	sent []sentNotification
}

func (m *mockNotifier) Send(ctx context.Context, recipients []string, templateKey string, data map[string]any) {
	m.sent = append(m.sent, sentNotification{recipients: recipients, template: templateKey, data: data})
}
