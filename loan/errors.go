/*
errors.go - Error types for the loan engine

PURPOSE:
  All rejection reasons in one place. Every failure here is a
  recoverable, caller-facing outcome: the schedule generator rejects a
  loan or the allocator rejects a payment, and the caller presents the
  specific reason. Nothing in this package is fatal.

USAGE:
  Callers branch with errors.Is / errors.As:

    if errors.Is(err, loan.ErrAffordabilityExceeded) { ... }

    var afford *loan.AffordabilityError
    if errors.As(err, &afford) { ... afford.Installment ... }
*/
package loan

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAffordabilityExceeded is returned when the computed installment
	// exceeds the income cap.
	ErrAffordabilityExceeded = errors.New("installment exceeds affordability cap")

	// ErrUneconomicalLoan is returned when lifetime interest falls below
	// the policy minimum.
	ErrUneconomicalLoan = errors.New("total interest below policy minimum")

	// ErrInvalidTerms is returned for non-positive principal, tenure or
	// income, or a missing disbursement date. Terms are never silently
	// corrected; the rate floor is the only intentional clamp.
	ErrInvalidTerms = errors.New("invalid loan terms")

	// ErrNoOutstandingInstallments is returned when a payment arrives but
	// nothing is unpaid. The whole payment is excess.
	ErrNoOutstandingInstallments = errors.New("no outstanding installments")

	// ErrInvalidPayment is returned for a non-positive payment amount.
	ErrInvalidPayment = errors.New("invalid payment amount")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// AffordabilityError reports how far the installment overshot the cap.
type AffordabilityError struct {
	Installment   decimal.Decimal
	Cap           decimal.Decimal
	MonthlyIncome decimal.Decimal
}

func (e *AffordabilityError) Error() string {
	return fmt.Sprintf("installment %s exceeds %s (cap on monthly income %s)",
		e.Installment.StringFixed(2), e.Cap.StringFixed(2), e.MonthlyIncome.StringFixed(2))
}

func (e *AffordabilityError) Unwrap() error { return ErrAffordabilityExceeded }

// UneconomicalLoanError reports the interest shortfall.
type UneconomicalLoanError struct {
	TotalInterest decimal.Decimal
	Minimum       decimal.Decimal
}

func (e *UneconomicalLoanError) Error() string {
	return fmt.Sprintf("total interest %s does not exceed required minimum %s",
		e.TotalInterest.StringFixed(2), e.Minimum.StringFixed(2))
}

func (e *UneconomicalLoanError) Unwrap() error { return ErrUneconomicalLoan }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRejection returns true if the error is a business-rule rejection
// rather than an internal failure. All engine errors qualify.
func IsRejection(err error) bool {
	return errors.Is(err, ErrAffordabilityExceeded) ||
		errors.Is(err, ErrUneconomicalLoan) ||
		errors.Is(err, ErrInvalidTerms) ||
		errors.Is(err, ErrNoOutstandingInstallments) ||
		errors.Is(err, ErrInvalidPayment)
}
