package loan_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestline/lending-engine/loan"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func march15() time.Time { return time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC) }

func standardTerms() loan.Terms {
	return loan.Terms{
		Principal:        dec("500000"),
		AnnualRate:       dec("14"),
		TenureMonths:     24,
		DisbursementDate: march15(),
		MonthlyIncome:    dec("100000"),
	}
}

// policy with the economics gate open, for tests that only care about
// schedule shape.
func openPolicy() loan.Policy {
	p := loan.DefaultPolicy()
	p.MinTotalInterest = decimal.Zero
	return p
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestGenerate_InvalidTerms(t *testing.T) {
	cases := map[string]func(*loan.Terms){
		"zero principal":      func(tr *loan.Terms) { tr.Principal = decimal.Zero },
		"negative principal":  func(tr *loan.Terms) { tr.Principal = dec("-1000") },
		"zero tenure":         func(tr *loan.Terms) { tr.TenureMonths = 0 },
		"negative tenure":     func(tr *loan.Terms) { tr.TenureMonths = -6 },
		"zero income":         func(tr *loan.Terms) { tr.MonthlyIncome = decimal.Zero },
		"negative rate":       func(tr *loan.Terms) { tr.AnnualRate = dec("-2") },
		"missing disbursement": func(tr *loan.Terms) { tr.DisbursementDate = time.Time{} },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			terms := standardTerms()
			mutate(&terms)

			schedule, err := loan.Generate(terms, loan.DefaultPolicy())

			assert.Nil(t, schedule)
			assert.ErrorIs(t, err, loan.ErrInvalidTerms)
		})
	}
}

func TestGenerate_AffordabilityExceeded(t *testing.T) {
	// GIVEN: An installment of roughly 8,979 against a 10,000 income
	// WHEN: The 60% cap allows only 6,000
	// THEN: Rejected before any schedule is built

	terms := loan.Terms{
		Principal:        dec("100000"),
		AnnualRate:       dec("14"),
		TenureMonths:     12,
		DisbursementDate: march15(),
		MonthlyIncome:    dec("10000"),
	}

	schedule, err := loan.Generate(terms, loan.DefaultPolicy())

	assert.Nil(t, schedule)
	assert.ErrorIs(t, err, loan.ErrAffordabilityExceeded)

	var afford *loan.AffordabilityError
	require.ErrorAs(t, err, &afford)
	assert.True(t, afford.Installment.GreaterThan(afford.Cap))
	assert.True(t, afford.Cap.Equal(dec("6000")))
}

func TestGenerate_UneconomicalLoan(t *testing.T) {
	// Scenario A under the default policy: principal 100,000 at the 14%
	// floor over 12 months. The installment (~8,979) passes the income
	// cap, but lifetime interest (~7,742) does not exceed 10,000.

	terms := loan.Terms{
		Principal:        dec("100000"),
		AnnualRate:       dec("10"), // below floor, clamped to 14
		TenureMonths:     12,
		DisbursementDate: march15(),
		MonthlyIncome:    dec("50000"),
	}

	schedule, err := loan.Generate(terms, loan.DefaultPolicy())

	assert.Nil(t, schedule)
	assert.ErrorIs(t, err, loan.ErrUneconomicalLoan)

	var unecon *loan.UneconomicalLoanError
	require.ErrorAs(t, err, &unecon)
	assert.True(t, unecon.TotalInterest.LessThanOrEqual(unecon.Minimum))
}

// =============================================================================
// SCHEDULE SHAPE
// =============================================================================

func TestGenerate_ScenarioA_ScheduleShape(t *testing.T) {
	// Scenario A with the economics gate open: 12 rows, final row zeroes
	// the remaining principal.

	terms := loan.Terms{
		Principal:        dec("100000"),
		AnnualRate:       dec("10"),
		TenureMonths:     12,
		DisbursementDate: march15(),
		MonthlyIncome:    dec("50000"),
	}

	schedule, err := loan.Generate(terms, openPolicy())
	require.NoError(t, err)
	require.Len(t, schedule.Installments, 12)

	sumPrincipal := decimal.Zero
	for _, row := range schedule.Installments {
		sumPrincipal = sumPrincipal.Add(row.Principal)
	}
	assert.True(t, sumPrincipal.Equal(terms.Principal),
		"principal components sum to %s, want %s", sumPrincipal, terms.Principal)
}

func TestGenerate_ScenarioB_DueDates(t *testing.T) {
	// GIVEN: Disbursement on March 15
	// THEN: First due date April 1, then the 1st of each month for 24 months

	schedule, err := loan.Generate(standardTerms(), loan.DefaultPolicy())
	require.NoError(t, err)
	require.Len(t, schedule.Installments, 24)

	expected := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	for i, row := range schedule.Installments {
		assert.Equal(t, i+1, row.Sequence)
		assert.Equal(t, expected, row.DueDate, "installment %d", i+1)
		assert.Equal(t, 1, row.DueDate.Day())
		expected = expected.AddDate(0, 1, 0)
	}
	assert.Equal(t, time.Date(2027, time.March, 1, 0, 0, 0, 0, time.UTC),
		schedule.Installments[23].DueDate)
}

func TestGenerate_DecemberDisbursement_RollsYear(t *testing.T) {
	terms := standardTerms()
	terms.DisbursementDate = time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)

	schedule, err := loan.Generate(terms, loan.DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		schedule.Installments[0].DueDate)
}

func TestGenerate_RateFloor_Applied(t *testing.T) {
	// A requested rate below the floor produces the same schedule as
	// requesting the floor itself.

	below := standardTerms()
	below.AnnualRate = dec("10")
	atFloor := standardTerms()
	atFloor.AnnualRate = dec("14")

	s1, err := loan.Generate(below, loan.DefaultPolicy())
	require.NoError(t, err)
	s2, err := loan.Generate(atFloor, loan.DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, s1, s2)
}

// =============================================================================
// NUMERICAL INVARIANTS
// =============================================================================

func TestGenerate_PrincipalConservation(t *testing.T) {
	cases := []struct {
		principal string
		rate      string
		tenure    int
	}{
		{"500000", "14", 24},
		{"1000000", "16.5", 36},
		{"333333.33", "14", 18},
		{"8500000", "21", 120},
		{"99999.99", "45", 7},
	}

	for _, tc := range cases {
		terms := loan.Terms{
			Principal:        dec(tc.principal),
			AnnualRate:       dec(tc.rate),
			TenureMonths:     tc.tenure,
			DisbursementDate: march15(),
			MonthlyIncome:    dec("100000000"),
		}

		schedule, err := loan.Generate(terms, openPolicy())
		require.NoError(t, err, "P=%s rate=%s n=%d", tc.principal, tc.rate, tc.tenure)

		sum := decimal.Zero
		for _, row := range schedule.Installments {
			sum = sum.Add(row.Principal)
			assert.True(t, row.Principal.Add(row.Interest).Equal(row.AmountDue),
				"row %d: principal+interest != amount due", row.Sequence)
		}
		assert.True(t, sum.Equal(terms.Principal),
			"P=%s rate=%s n=%d: principal sum %s", tc.principal, tc.rate, tc.tenure, sum)
	}
}

func TestGenerate_RemainingBalance_StrictlyDecreasingToZero(t *testing.T) {
	schedule, err := loan.Generate(standardTerms(), loan.DefaultPolicy())
	require.NoError(t, err)

	remaining := dec("500000")
	prev := remaining
	for _, row := range schedule.Installments {
		remaining = remaining.Sub(row.Principal)
		assert.True(t, remaining.LessThan(prev), "row %d: balance did not decrease", row.Sequence)
		prev = remaining
	}
	assert.True(t, remaining.IsZero(), "terminal balance %s, want 0", remaining)
}

func TestGenerate_Idempotent(t *testing.T) {
	s1, err := loan.Generate(standardTerms(), loan.DefaultPolicy())
	require.NoError(t, err)
	s2, err := loan.Generate(standardTerms(), loan.DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, s1, s2)
}

func TestGenerate_TotalInterest_MatchesRows(t *testing.T) {
	schedule, err := loan.Generate(standardTerms(), loan.DefaultPolicy())
	require.NoError(t, err)

	sum := decimal.Zero
	for _, row := range schedule.Installments {
		sum = sum.Add(row.Interest)
	}
	assert.True(t, schedule.TotalInterest.Equal(sum.Round(2)))
	assert.True(t, schedule.TotalInterest.GreaterThan(dec("10000")))
}

func TestGenerate_NewScheduleStartsUnpaid(t *testing.T) {
	schedule, err := loan.Generate(standardTerms(), loan.DefaultPolicy())
	require.NoError(t, err)

	for _, row := range schedule.Installments {
		assert.False(t, row.Paid)
		assert.True(t, row.AmountPaid.IsZero())
		assert.Nil(t, row.PaymentDate)
		assert.Equal(t, loan.StatusUnpaid, row.Status())
	}
}

func TestGenerate_ErrorsAreRejections(t *testing.T) {
	terms := standardTerms()
	terms.Principal = decimal.Zero

	_, err := loan.Generate(terms, loan.DefaultPolicy())
	require.Error(t, err)
	assert.True(t, loan.IsRejection(err))
	assert.False(t, loan.IsRejection(errors.New("disk on fire")))
}
