package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice object reference types known to the ledger.
const InvoiceObjectRegistration = "registration"

// Invoice line item descriptions.
const LineDescCancellationFee = "Cancellation fee"

// Invoice status details.
const (
	InvoiceStatusEstimate = "estimate"
	InvoiceStatusTendered = "tendered"
)

// Invoice is the external ledger record a registration bills against. The
// engine issues commands to it through InvoiceLedger but does not own its
// storage.
type Invoice struct {
	ID string `json:"id"`
	// ObjectType/ObjectID key the invoice to its owning record; the pair is
	// unique, which is what makes materialization at-most-once.
	ObjectType string `json:"object_type"`
	ObjectID   string `json:"object_id"`

	Title        string `json:"title"`
	StatusDetail string `json:"status_detail"`
	AdminNotes   string `json:"admin_notes,omitempty"`

	BillToName    string `json:"bill_to_name"`
	BillToCompany string `json:"bill_to_company"`
	BillToEmail   string `json:"bill_to_email"`
	BillToPhone   string `json:"bill_to_phone"`
	BillToAddress string `json:"bill_to_address"`
	BillToCity    string `json:"bill_to_city"`
	BillToState   string `json:"bill_to_state"`
	BillToZip     string `json:"bill_to_zip"`
	BillToCountry string `json:"bill_to_country"`

	ShipToName    string `json:"ship_to_name"`
	ShipToCompany string `json:"ship_to_company"`
	ShipToEmail   string `json:"ship_to_email"`
	ShipToPhone   string `json:"ship_to_phone"`
	ShipToAddress string `json:"ship_to_address"`
	ShipToCity    string `json:"ship_to_city"`
	ShipToState   string `json:"ship_to_state"`
	ShipToZip     string `json:"ship_to_zip"`
	ShipToCountry string `json:"ship_to_country"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	Gratuity       decimal.Decimal `json:"gratuity"`
	Total          decimal.Decimal `json:"total"`
	Balance        decimal.Decimal `json:"balance"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	// PaymentsCredits and Refunded track money actually received and
	// returned; refunds are capped to their difference.
	PaymentsCredits decimal.Decimal `json:"payments_credits"`
	Refunded        decimal.Decimal `json:"refunded"`

	TenderDate *time.Time `json:"tender_date,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsTendered reports whether the invoice totals are frozen because payment or
// processing has occurred. Tendered totals are only adjusted via explicit line
// items, never direct decrement.
func (i *Invoice) IsTendered() bool { return i.StatusDetail == InvoiceStatusTendered }

// InvoiceLedger is the contract with the external invoice collaborator. The
// engine creates invoices, adds line items, adjusts untendered totals, and
// issues refund commands through it.
type InvoiceLedger interface {
	// GetByObject looks up the invoice keyed to (objectType, objectID).
	// Returns ErrNotFound when none exists.
	GetByObject(ctx context.Context, objectType, objectID string) (*Invoice, error)
	// Create persists a new invoice. A concurrent create for the same object
	// reference fails with ErrInvoiceState.
	Create(ctx context.Context, inv *Invoice) error
	// Update rewrites the invoice fields set by materialization.
	Update(ctx context.Context, inv *Invoice) error
	// AdjustTotals decrements subtotal, total, and balance by amount on an
	// untendered invoice. Fails with ErrInvariant if the invoice is tendered.
	AdjustTotals(ctx context.Context, invoiceID string, amount decimal.Decimal) error
	// AddLineItem records a line item; when updateTotal is set the invoice
	// total and balance are increased by amount in the same operation.
	AddLineItem(ctx context.Context, invoiceID string, amount decimal.Decimal, description, actor string, updateTotal bool) error
	// SetCancellationFee upserts the single aggregate cancellation-fee line
	// item and adjusts total and balance by the delta from any prior fee.
	SetCancellationFee(ctx context.Context, invoiceID string, fee decimal.Decimal, actor string) error
	// RefundableAmount caps the requested refund to payments received net of
	// prior refunds.
	RefundableAmount(ctx context.Context, invoiceID string, requested decimal.Decimal) (decimal.Decimal, error)
	// Refund issues a refund command. Gateway or policy failures are returned
	// as *RefundError.
	Refund(ctx context.Context, invoiceID string, amount decimal.Decimal, actor, message string) error
}
