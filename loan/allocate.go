/*
allocate.go - Payment waterfall allocation

PURPOSE:
  Applies one incoming payment across a loan's unpaid installments,
  oldest due date first, and reports the leftover that could not be
  applied. The allocator is pure: it returns the new installment states
  and the caller performs the durable write. This keeps the waterfall
  testable without a storage dependency, and means a rejected payment
  mutates nothing.

RULES:
  - Walk installments in ascending due-date order.
  - If the remaining payment covers an installment's outstanding gap
    (amount due - amount paid), settle it fully and mark it paid.
  - Otherwise apply the remainder as a partial payment and stop.
  - Whatever is left after the last unpaid installment is excess. It is
    never applied to future installments and never dropped.
  - The stored principal/interest split is never recomputed on early or
    late payment. That is a stated business rule.

STATE MACHINE (per installment):
  unpaid -> partially_paid -> paid, or unpaid -> paid directly.
  No transition moves backward; there is no reopen.

CONCURRENCY:
  Callers must hold the loan's lock across read-allocate-write; two
  payments for the same loan must not interleave.
*/
package loan

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Allocate applies payment to the given unpaid installments, which must
// be ordered by due date ascending. paymentDate is recorded on each
// touched installment that has no payment date yet. The inputs are not
// mutated; touched installments come back in Applied with their new
// state.
func Allocate(payment decimal.Decimal, unpaid []Installment, paymentDate time.Time) (*AllocationResult, error) {
	if !payment.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidPayment, payment)
	}
	if len(unpaid) == 0 {
		return nil, ErrNoOutstandingInstallments
	}

	remaining := payment
	applied := make([]Installment, 0, len(unpaid))

	for _, inst := range unpaid {
		if !remaining.IsPositive() {
			break
		}
		gap := inst.Outstanding()
		if !gap.IsPositive() {
			// Already settled; nothing to apply here.
			continue
		}

		if remaining.GreaterThanOrEqual(gap) {
			inst.AmountPaid = inst.AmountDue
			inst.Paid = true
			remaining = remaining.Sub(gap)
		} else {
			inst.AmountPaid = inst.AmountPaid.Add(remaining)
			remaining = decimal.Zero
		}
		if inst.PaymentDate == nil {
			d := truncateToDay(paymentDate)
			inst.PaymentDate = &d
		}
		applied = append(applied, inst)
	}

	return &AllocationResult{Applied: applied, Excess: remaining}, nil
}
