package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"eventregistration/internal/domain"
)

// uniqueViolation is the postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

type invoiceLedger struct {
	DB *sql.DB
}

// NewInvoiceLedger returns a postgres-backed InvoiceLedger. Invoices are keyed
// by (object_type, object_id) with a unique constraint, which is what makes
// invoice materialization at-most-once under concurrency.
func NewInvoiceLedger(db *sql.DB) domain.InvoiceLedger {
	return &invoiceLedger{
		DB: db,
	}
}

const invoiceColumns = `
	id, object_type, object_id, title, status_detail, admin_notes,
	bill_to_name, bill_to_company, bill_to_email, bill_to_phone,
	bill_to_address, bill_to_city, bill_to_state, bill_to_zip, bill_to_country,
	ship_to_name, ship_to_company, ship_to_email, ship_to_phone,
	ship_to_address, ship_to_city, ship_to_state, ship_to_zip, ship_to_country,
	subtotal, tax, gratuity, total, balance, discount_amount,
	payments_credits, refunded, tender_date, due_date, created_at, updated_at
`

func (l *invoiceLedger) GetByObject(ctx context.Context, objectType, objectID string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE object_type = $1 AND object_id = $2`
	row := l.DB.QueryRowContext(ctx, query, objectType, objectID)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	inv := &domain.Invoice{}
	var tenderDate, dueDate sql.NullTime
	err := row.Scan(
		&inv.ID, &inv.ObjectType, &inv.ObjectID, &inv.Title, &inv.StatusDetail, &inv.AdminNotes,
		&inv.BillToName, &inv.BillToCompany, &inv.BillToEmail, &inv.BillToPhone,
		&inv.BillToAddress, &inv.BillToCity, &inv.BillToState, &inv.BillToZip, &inv.BillToCountry,
		&inv.ShipToName, &inv.ShipToCompany, &inv.ShipToEmail, &inv.ShipToPhone,
		&inv.ShipToAddress, &inv.ShipToCity, &inv.ShipToState, &inv.ShipToZip, &inv.ShipToCountry,
		&inv.Subtotal, &inv.Tax, &inv.Gratuity, &inv.Total, &inv.Balance, &inv.DiscountAmount,
		&inv.PaymentsCredits, &inv.Refunded, &tenderDate, &dueDate, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if tenderDate.Valid {
		inv.TenderDate = &tenderDate.Time
	}
	if dueDate.Valid {
		inv.DueDate = &dueDate.Time
	}
	return inv, nil
}

func (l *invoiceLedger) Create(ctx context.Context, inv *domain.Invoice) error {
	query := `
		INSERT INTO invoices (
			object_type, object_id, title, status_detail, admin_notes,
			bill_to_name, bill_to_company, bill_to_email, bill_to_phone,
			bill_to_address, bill_to_city, bill_to_state, bill_to_zip, bill_to_country,
			ship_to_name, ship_to_company, ship_to_email, ship_to_phone,
			ship_to_address, ship_to_city, ship_to_state, ship_to_zip, ship_to_country,
			subtotal, tax, gratuity, total, balance, discount_amount,
			payments_credits, refunded, tender_date, due_date, created_at, updated_at
		)
		VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23,
			$24, $25, $26, $27, $28, $29, $30, $31, $32, $33, NOW(), NOW()
		)
		RETURNING id
	`
	err := l.DB.QueryRowContext(ctx, query,
		inv.ObjectType, inv.ObjectID, inv.Title, inv.StatusDetail, inv.AdminNotes,
		inv.BillToName, inv.BillToCompany, inv.BillToEmail, inv.BillToPhone,
		inv.BillToAddress, inv.BillToCity, inv.BillToState, inv.BillToZip, inv.BillToCountry,
		inv.ShipToName, inv.ShipToCompany, inv.ShipToEmail, inv.ShipToPhone,
		inv.ShipToAddress, inv.ShipToCity, inv.ShipToState, inv.ShipToZip, inv.ShipToCountry,
		inv.Subtotal, inv.Tax, inv.Gratuity, inv.Total, inv.Balance, inv.DiscountAmount,
		inv.PaymentsCredits, inv.Refunded, inv.TenderDate, inv.DueDate,
	).Scan(&inv.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrInvoiceState
		}
		return err
	}
	return nil
}

func (l *invoiceLedger) Update(ctx context.Context, inv *domain.Invoice) error {
	query := `
		UPDATE invoices
		SET title = $2, status_detail = $3, admin_notes = $4,
			bill_to_name = $5, bill_to_company = $6, bill_to_email = $7, bill_to_phone = $8,
			bill_to_address = $9, bill_to_city = $10, bill_to_state = $11, bill_to_zip = $12,
			bill_to_country = $13,
			ship_to_name = $14, ship_to_company = $15, ship_to_email = $16, ship_to_phone = $17,
			ship_to_address = $18, ship_to_city = $19, ship_to_state = $20, ship_to_zip = $21,
			ship_to_country = $22,
			subtotal = $23, tax = $24, gratuity = $25, total = $26, balance = $27,
			tender_date = $28, due_date = $29, updated_at = NOW()
		WHERE id = $1
	`
	res, err := l.DB.ExecContext(ctx, query,
		inv.ID, inv.Title, inv.StatusDetail, inv.AdminNotes,
		inv.BillToName, inv.BillToCompany, inv.BillToEmail, inv.BillToPhone,
		inv.BillToAddress, inv.BillToCity, inv.BillToState, inv.BillToZip, inv.BillToCountry,
		inv.ShipToName, inv.ShipToCompany, inv.ShipToEmail, inv.ShipToPhone,
		inv.ShipToAddress, inv.ShipToCity, inv.ShipToState, inv.ShipToZip, inv.ShipToCountry,
		inv.Subtotal, inv.Tax, inv.Gratuity, inv.Total, inv.Balance,
		inv.TenderDate, inv.DueDate,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (l *invoiceLedger) AdjustTotals(ctx context.Context, invoiceID string, amount decimal.Decimal) error {
	query := `
		UPDATE invoices
		SET subtotal = subtotal - $2, total = total - $2, balance = balance - $2,
			updated_at = NOW()
		WHERE id = $1 AND status_detail <> $3
	`
	res, err := l.DB.ExecContext(ctx, query, invoiceID, amount, domain.InvoiceStatusTendered)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the invoice is gone or its totals are frozen by tender.
		var exists bool
		if err := l.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE id = $1)`, invoiceID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrInvariant
	}
	return nil
}

func (l *invoiceLedger) AddLineItem(ctx context.Context, invoiceID string, amount decimal.Decimal, description, actor string, updateTotal bool) error {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoice_line_items (invoice_id, amount, description, created_by, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, invoiceID, amount, description, actor)
	if err != nil {
		return err
	}

	if updateTotal {
		res, err := tx.ExecContext(ctx, `
			UPDATE invoices
			SET total = total + $2, balance = balance + $2, updated_at = NOW()
			WHERE id = $1
		`, invoiceID, amount)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrNotFound
		}
	}

	return tx.Commit()
}

func (l *invoiceLedger) SetCancellationFee(ctx context.Context, invoiceID string, fee decimal.Decimal, actor string) error {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// A single aggregate fee per invoice: replacing it adjusts the totals by
	// the delta from any fee recorded earlier.
	var prior decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM invoice_line_items
		WHERE invoice_id = $1 AND description = $2
	`, invoiceID, domain.LineDescCancellationFee).Scan(&prior)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM invoice_line_items
		WHERE invoice_id = $1 AND description = $2
	`, invoiceID, domain.LineDescCancellationFee)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoice_line_items (invoice_id, amount, description, created_by, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, invoiceID, fee, domain.LineDescCancellationFee, actor)
	if err != nil {
		return err
	}

	delta := fee.Sub(prior)
	res, err := tx.ExecContext(ctx, `
		UPDATE invoices
		SET total = total + $2, balance = balance + $2, updated_at = NOW()
		WHERE id = $1
	`, invoiceID, delta)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}

	return tx.Commit()
}

func (l *invoiceLedger) RefundableAmount(ctx context.Context, invoiceID string, requested decimal.Decimal) (decimal.Decimal, error) {
	var available decimal.Decimal
	err := l.DB.QueryRowContext(ctx, `
		SELECT payments_credits - refunded FROM invoices WHERE id = $1
	`, invoiceID).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, domain.ErrNotFound
		}
		return decimal.Zero, err
	}
	if available.IsNegative() {
		available = decimal.Zero
	}
	if requested.LessThan(available) {
		return requested, nil
	}
	return available, nil
}

func (l *invoiceLedger) Refund(ctx context.Context, invoiceID string, amount decimal.Decimal, actor, message string) error {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return &domain.RefundError{Amount: amount, Err: err}
	}
	defer tx.Rollback()

	// The guard re-checks the refundable window so a stale caller cannot
	// refund more than was actually paid.
	res, err := tx.ExecContext(ctx, `
		UPDATE invoices
		SET refunded = refunded + $2, balance = balance + $2, updated_at = NOW()
		WHERE id = $1 AND payments_credits - refunded >= $2
	`, invoiceID, amount)
	if err != nil {
		return &domain.RefundError{Amount: amount, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &domain.RefundError{Amount: amount, Err: err}
	}
	if n == 0 {
		return &domain.RefundError{Amount: amount, Err: errors.New("refund exceeds payments received")}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoice_line_items (invoice_id, amount, description, created_by, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, invoiceID, amount.Neg(), "Refund: "+message, actor)
	if err != nil {
		return &domain.RefundError{Amount: amount, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &domain.RefundError{Amount: amount, Err: err}
	}
	return nil
}
