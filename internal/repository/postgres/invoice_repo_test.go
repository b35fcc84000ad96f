package postgres

import (
	"context"
	"testing"

	"eventregistration/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestInvoiceLedger_Create_DuplicateObject(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO invoices`).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	ledger := NewInvoiceLedger(db)
	err = ledger.Create(ctx, &domain.Invoice{
		ObjectType: domain.InvoiceObjectRegistration,
		ObjectID:   "reg-1",
	})
	require.ErrorIs(t, err, domain.ErrInvoiceState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceLedger_AdjustTotals(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	amount := decimal.RequireFromString("30.00")

	mock.ExpectExec(`UPDATE invoices\s+SET subtotal = subtotal - \$2`).
		WithArgs("inv-1", amount, domain.InvoiceStatusTendered).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ledger := NewInvoiceLedger(db)
	require.NoError(t, ledger.AdjustTotals(ctx, "inv-1", amount))

	// Tendered invoice: row exists but is excluded by the status guard.
	mock.ExpectExec(`UPDATE invoices\s+SET subtotal = subtotal - \$2`).
		WithArgs("inv-2", amount, domain.InvoiceStatusTendered).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("inv-2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	require.ErrorIs(t, ledger.AdjustTotals(ctx, "inv-2", amount), domain.ErrInvariant)

	mock.ExpectExec(`UPDATE invoices\s+SET subtotal = subtotal - \$2`).
		WithArgs("missing", amount, domain.InvoiceStatusTendered).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	require.ErrorIs(t, ledger.AdjustTotals(ctx, "missing", amount), domain.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceLedger_SetCancellationFee_Delta(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fee := decimal.RequireFromString("12.00")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\)`).
		WithArgs("inv-1", domain.LineDescCancellationFee).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("5.00"))
	mock.ExpectExec(`DELETE FROM invoice_line_items`).
		WithArgs("inv-1", domain.LineDescCancellationFee).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO invoice_line_items`).
		WithArgs("inv-1", fee, domain.LineDescCancellationFee, "staff").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE invoices\s+SET total = total \+ \$2`).
		WithArgs("inv-1", decimal.RequireFromString("7.00")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ledger := NewInvoiceLedger(db)
	require.NoError(t, ledger.SetCancellationFee(ctx, "inv-1", fee, "staff"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceLedger_RefundableAmount(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewInvoiceLedger(db)

	mock.ExpectQuery(`SELECT payments_credits - refunded FROM invoices`).
		WithArgs("inv-1").
		WillReturnRows(sqlmock.NewRows([]string{"available"}).AddRow("20.00"))
	got, err := ledger.RefundableAmount(ctx, "inv-1", decimal.RequireFromString("50.00"))
	require.NoError(t, err)
	require.True(t, got.Equal(decimal.RequireFromString("20.00")), "capped to payments net of refunds")

	mock.ExpectQuery(`SELECT payments_credits - refunded FROM invoices`).
		WithArgs("inv-1").
		WillReturnRows(sqlmock.NewRows([]string{"available"}).AddRow("100.00"))
	got, err = ledger.RefundableAmount(ctx, "inv-1", decimal.RequireFromString("50.00"))
	require.NoError(t, err)
	require.True(t, got.Equal(decimal.RequireFromString("50.00")))

	mock.ExpectQuery(`SELECT payments_credits - refunded FROM invoices`).
		WithArgs("inv-1").
		WillReturnRows(sqlmock.NewRows([]string{"available"}).AddRow("-5.00"))
	got, err = ledger.RefundableAmount(ctx, "inv-1", decimal.RequireFromString("50.00"))
	require.NoError(t, err)
	require.True(t, got.IsZero())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceLedger_Refund_GuardFailure(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	amount := decimal.RequireFromString("50.00")

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE invoices\s+SET refunded = refunded \+ \$2`).
		WithArgs("inv-1", amount).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	ledger := NewInvoiceLedger(db)
	err = ledger.Refund(ctx, "inv-1", amount, "staff", "cancellation")

	var refundErr *domain.RefundError
	require.ErrorAs(t, err, &refundErr)
	require.True(t, refundErr.Amount.Equal(amount))
	require.NoError(t, mock.ExpectationsWereMet())
}
