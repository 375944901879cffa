package loan

import "time"

// =============================================================================
// DUE-DATE ARITHMETIC
// =============================================================================
// Due dates always fall on the first calendar day of a month. Stepping is
// done with true calendar month increments (time.AddDate on a day-1
// anchor), never by adding a fixed day count: +31 days skips or repeats
// months depending on month length.

// FirstDueDate returns the first installment due date for a loan
// disbursed on the given date: the 1st of the following month.
func FirstDueDate(disbursement time.Time) time.Time {
	y, m, _ := disbursement.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}

// NextDueDate advances a day-1 due date by one calendar month.
func NextDueDate(due time.Time) time.Time {
	return due.AddDate(0, 1, 0)
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
