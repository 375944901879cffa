/*
schedule.go - Amortization schedule generation

PURPOSE:
  Turns loan terms into a validated, ordered sequence of monthly
  installments plus the total interest over the life of the loan.

ALGORITHM:
  1. Clamp the annual rate up to the policy floor, derive the effective
     monthly rate r = rate / (12 * 100).
  2. Compute the level installment amount once:
       A = P * r * (1+r)^n / ((1+r)^n - 1)
  3. Reject before building anything if A exceeds the affordability cap.
  4. Walk the months: interest = remaining * r, principal = A - interest,
     remaining -= principal. The final installment takes the remaining
     principal exactly, so the loan amortizes to zero regardless of
     rounding drift in earlier months.
  5. Reject after the walk if lifetime interest does not exceed the
     policy minimum.

ROUNDING:
  Each installment's principal and interest are rounded to 2 decimal
  places once, at construction. The running balance decreases by the
  rounded principal component, which keeps the conservation invariant
  exact: the principal components sum to the original principal to the
  cent.

FAILURE MODES (all rejections, never partial schedules):
  ErrInvalidTerms, ErrAffordabilityExceeded, ErrUneconomicalLoan
*/
package loan

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var monthsPerYearPercent = decimal.NewFromInt(12 * 100)

// Generate produces the full amortization schedule for the given terms
// under the given policy. It is deterministic and side-effect free:
// identical terms yield identical schedules.
func Generate(terms Terms, policy Policy) (*Schedule, error) {
	if err := validateTerms(terms); err != nil {
		return nil, err
	}

	rate := decimal.Max(terms.AnnualRate, policy.FloorAnnualRate)
	monthlyRate := rate.Div(monthsPerYearPercent)

	installment := levelInstallment(terms.Principal, monthlyRate, terms.TenureMonths)

	cap := terms.MonthlyIncome.Mul(policy.AffordabilityCap)
	if installment.GreaterThan(cap) {
		return nil, &AffordabilityError{
			Installment:   installment,
			Cap:           cap,
			MonthlyIncome: terms.MonthlyIncome,
		}
	}

	// Remaining principal is local to this call; it is never shared
	// across loans or invocations.
	remaining := terms.Principal
	totalInterest := decimal.Zero
	due := FirstDueDate(terms.DisbursementDate)

	rows := make([]Installment, 0, terms.TenureMonths)
	for month := 1; month <= terms.TenureMonths; month++ {
		interest := remaining.Mul(monthlyRate).Round(2)

		var principal decimal.Decimal
		if month == terms.TenureMonths {
			// Final row absorbs all rounding residue.
			principal = remaining
		} else {
			principal = installment.Sub(interest).Round(2)
		}

		rows = append(rows, Installment{
			Sequence:   month,
			DueDate:    due,
			Principal:  principal,
			Interest:   interest,
			AmountDue:  principal.Add(interest),
			AmountPaid: decimal.Zero,
		})

		remaining = remaining.Sub(principal)
		totalInterest = totalInterest.Add(interest)
		due = NextDueDate(due)
	}

	totalInterest = totalInterest.Round(2)
	if totalInterest.LessThanOrEqual(policy.MinTotalInterest) {
		return nil, &UneconomicalLoanError{
			TotalInterest: totalInterest,
			Minimum:       policy.MinTotalInterest,
		}
	}

	return &Schedule{Installments: rows, TotalInterest: totalInterest}, nil
}

// levelInstallment computes the standard annuity payment
// P * r * (1+r)^n / ((1+r)^n - 1).
func levelInstallment(principal, monthlyRate decimal.Decimal, months int) decimal.Decimal {
	if monthlyRate.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(months)))
	}
	compound := decimal.NewFromInt(1).Add(monthlyRate).Pow(decimal.NewFromInt(int64(months)))
	return principal.Mul(monthlyRate).Mul(compound).Div(compound.Sub(decimal.NewFromInt(1)))
}

func validateTerms(terms Terms) error {
	switch {
	case !terms.Principal.IsPositive():
		return fmt.Errorf("%w: principal must be positive, got %s", ErrInvalidTerms, terms.Principal)
	case terms.TenureMonths <= 0:
		return fmt.Errorf("%w: tenure must be positive, got %d months", ErrInvalidTerms, terms.TenureMonths)
	case !terms.MonthlyIncome.IsPositive():
		return fmt.Errorf("%w: monthly income must be positive, got %s", ErrInvalidTerms, terms.MonthlyIncome)
	case terms.AnnualRate.IsNegative():
		return fmt.Errorf("%w: annual rate must not be negative, got %s", ErrInvalidTerms, terms.AnnualRate)
	case terms.DisbursementDate.IsZero():
		return fmt.Errorf("%w: disbursement date is required", ErrInvalidTerms)
	}
	return nil
}
