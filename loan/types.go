/*
Package loan provides the core installment-loan engine.

PURPOSE:
  This package contains the domain types and algorithms for amortizing
  a loan into a schedule of monthly installments and for allocating
  incoming payments across outstanding installments. It is pure: no
  persistence, no transport, no clocks other than dates it is handed.

KEY CONCEPTS IN THIS FILE (types.go):
  - Terms:       Immutable loan parameters (principal, rate, tenure, ...)
  - Installment: One scheduled due amount with its paid-state fields
  - Schedule:    The ordered installments plus total lifetime interest
  - AllocationResult: Outcome of applying one payment

DESIGN PRINCIPLES:
  1. Precision: All money is decimal.Decimal, never float64.
  2. Immutability of the split: An installment's principal/interest
     components are fixed at generation time; only paid-state mutates.
  3. Purity: Generate and Allocate return values; callers persist.

SEE ALSO:
  - schedule.go: Schedule generation
  - allocate.go: Payment waterfall
  - policy.go:   Lending policy constants
*/
package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LOAN TERMS - Immutable input to schedule generation
// =============================================================================

// Type identifies the loan product.
type Type string

const (
	TypeCar       Type = "Car"
	TypeHome      Type = "Home"
	TypeEducation Type = "Education"
	TypePersonal  Type = "Personal"
)

// Terms are the parameters a schedule is generated from.
// MonthlyIncome is the borrower's income, used only for the
// affordability check.
type Terms struct {
	Principal        decimal.Decimal
	AnnualRate       decimal.Decimal // percent, e.g. 14 for 14%
	TenureMonths     int
	DisbursementDate time.Time
	MonthlyIncome    decimal.Decimal
}

// =============================================================================
// INSTALLMENT - One scheduled due amount
// =============================================================================

// Status is derived from the paid-state fields, never stored.
type Status string

const (
	StatusUnpaid        Status = "unpaid"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
)

// Installment is one row of a repayment schedule. Sequence runs 1..tenure
// and due dates always fall on the first of a month. Principal, Interest
// and AmountDue are fixed at generation; only AmountPaid, PaymentDate
// and Paid change afterwards.
type Installment struct {
	Sequence    int
	DueDate     time.Time
	Principal   decimal.Decimal
	Interest    decimal.Decimal
	AmountDue   decimal.Decimal
	AmountPaid  decimal.Decimal
	PaymentDate *time.Time
	Paid        bool
}

// Outstanding returns the still-unpaid portion of the installment.
func (i Installment) Outstanding() decimal.Decimal {
	return i.AmountDue.Sub(i.AmountPaid)
}

// Status derives the state-machine position from the paid fields.
func (i Installment) Status() Status {
	switch {
	case i.Paid:
		return StatusPaid
	case i.AmountPaid.IsPositive():
		return StatusPartiallyPaid
	default:
		return StatusUnpaid
	}
}

// IsOverdue reports whether the installment is unpaid and past due as of
// now. Overdue is recomputed on every read, never persisted.
func (i Installment) IsOverdue(now time.Time) bool {
	return !i.Paid && i.DueDate.Before(truncateToDay(now))
}

// =============================================================================
// SCHEDULE - Ordered installments plus lifetime interest
// =============================================================================

// Schedule is generated once per loan and never partially regenerated.
type Schedule struct {
	Installments  []Installment
	TotalInterest decimal.Decimal
}

// =============================================================================
// ALLOCATION RESULT - Outcome of one payment
// =============================================================================

// AllocationResult reports, for a single incoming payment, the
// installments it touched (with their resulting state) and the portion
// that could not be applied because nothing unpaid remained.
type AllocationResult struct {
	Applied []Installment
	Excess  decimal.Decimal
}
