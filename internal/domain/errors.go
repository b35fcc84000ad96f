package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across services and repositories.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCapacityExceeded is returned when an admission would push a capped
	// pricing tier (or the event-wide limit) over its registration cap.
	// No partial state change is made.
	ErrCapacityExceeded = errors.New("registration capacity exceeded")

	// ErrNoEligiblePricing is returned when no pricing tier matches the
	// requesting identity and time window.
	ErrNoEligiblePricing = errors.New("no pricing available")

	// ErrInvoiceState is returned on a duplicate invoice creation race, or
	// when an invoice is missing where one is required.
	ErrInvoiceState = errors.New("invoice state conflict")

	// ErrInvariant marks a programming-contract failure, such as decrementing
	// totals on a tendered invoice. Correct callers never trigger it.
	ErrInvariant = errors.New("invariant violation")

	// ErrInvalidInput is returned when the request is invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// RefundError reports a refund gateway or policy failure. Cancellation
// completes regardless; the error is surfaced to the caller as a warning and
// is not retried automatically.
type RefundError struct {
	Amount decimal.Decimal
	Err    error
}

func (e *RefundError) Error() string {
	return fmt.Sprintf("refund of %s failed: %v", e.Amount.StringFixed(2), e.Err)
}

func (e *RefundError) Unwrap() error { return e.Err }
