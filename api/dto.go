/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  domain model from the wire contract.

MONEY ON THE WIRE:
  All monetary fields are decimal.Decimal, which marshals as a quoted
  decimal string. The externally visible boundary stays decimal-exact;
  no float64 ever touches an amount.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *DTO:     Response types returned to clients
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/crestline/lending-engine/loan"
	"github.com/crestline/lending-engine/store/sqlite"
)

// =============================================================================
// BORROWERS
// =============================================================================

// RegisterBorrowerRequest registers a new borrower. Credit scoring runs
// asynchronously afterwards.
type RegisterBorrowerRequest struct {
	NationalID   string          `json:"national_id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	AnnualIncome decimal.Decimal `json:"annual_income"`
}

// RegisterBorrowerResponse carries the borrower's assigned id.
type RegisterBorrowerResponse struct {
	BorrowerID string `json:"borrower_id"`
}

// BorrowerDTO represents a borrower in API responses.
type BorrowerDTO struct {
	ID           string          `json:"id"`
	NationalID   string          `json:"national_id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	AnnualIncome decimal.Decimal `json:"annual_income"`
	CreditScore  int             `json:"credit_score"`
}

// =============================================================================
// LOANS
// =============================================================================

// ApplyLoanRequest is a loan application.
type ApplyLoanRequest struct {
	BorrowerID       string          `json:"borrower_id"`
	LoanType         string          `json:"loan_type"`
	Principal        decimal.Decimal `json:"principal"`
	AnnualRate       decimal.Decimal `json:"annual_rate"`
	TenureMonths     int             `json:"tenure_months"`
	DisbursementDate string          `json:"disbursement_date"` // "2006-01-02"
}

// DueDateDTO is one upcoming due amount in the application response.
type DueDateDTO struct {
	Date      string          `json:"date"`
	AmountDue decimal.Decimal `json:"amount_due"`
}

// ApplyLoanResponse is returned on a successful application.
type ApplyLoanResponse struct {
	LoanID        string          `json:"loan_id"`
	TotalInterest decimal.Decimal `json:"total_interest"`
	DueDates      []DueDateDTO    `json:"due_dates"`
}

// LoanDTO represents a loan with its full schedule.
type LoanDTO struct {
	ID               string           `json:"id"`
	BorrowerID       string           `json:"borrower_id"`
	LoanType         string           `json:"loan_type"`
	Principal        decimal.Decimal  `json:"principal"`
	AnnualRate       decimal.Decimal  `json:"annual_rate"`
	TenureMonths     int              `json:"tenure_months"`
	DisbursementDate string           `json:"disbursement_date"`
	TotalInterest    decimal.Decimal  `json:"total_interest"`
	Installments     []InstallmentDTO `json:"installments"`
}

// InstallmentDTO represents one installment with its derived state.
type InstallmentDTO struct {
	Sequence    int             `json:"sequence"`
	DueDate     string          `json:"due_date"`
	Principal   decimal.Decimal `json:"principal"`
	Interest    decimal.Decimal `json:"interest"`
	AmountDue   decimal.Decimal `json:"amount_due"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	PaymentDate *string         `json:"payment_date,omitempty"`
	Status      string          `json:"status"`
	Overdue     bool            `json:"overdue"`
}

// =============================================================================
// PAYMENTS
// =============================================================================

// MakePaymentRequest applies a payment against a loan.
type MakePaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// MakePaymentResponse reports the waterfall outcome.
type MakePaymentResponse struct {
	Installments []InstallmentDTO `json:"installments"`
	Excess       decimal.Decimal  `json:"excess"`
}

// =============================================================================
// STATEMENTS
// =============================================================================

// PastInstallmentDTO is a settled installment on a statement.
type PastInstallmentDTO struct {
	Date       string          `json:"date"`
	Principal  decimal.Decimal `json:"principal"`
	Interest   decimal.Decimal `json:"interest"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
}

// UpcomingInstallmentDTO is a not-yet-settled installment on a statement.
type UpcomingInstallmentDTO struct {
	Date        string          `json:"date"`
	AmountDue   decimal.Decimal `json:"amount_due"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Overdue     bool            `json:"overdue"`
}

// StatementDTO is the past/upcoming split for a loan.
type StatementDTO struct {
	LoanID   string                   `json:"loan_id"`
	Past     []PastInstallmentDTO     `json:"past_transactions"`
	Upcoming []UpcomingInstallmentDTO `json:"upcoming_transactions"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toBorrowerDTO(b *sqlite.Borrower) BorrowerDTO {
	return BorrowerDTO{
		ID:           b.ID,
		NationalID:   b.NationalID,
		Name:         b.Name,
		Email:        b.Email,
		AnnualIncome: b.AnnualIncome,
		CreditScore:  b.CreditScore,
	}
}

func toInstallmentDTO(inst loan.Installment, now timeNow) InstallmentDTO {
	dto := InstallmentDTO{
		Sequence:   inst.Sequence,
		DueDate:    inst.DueDate.Format("2006-01-02"),
		Principal:  inst.Principal,
		Interest:   inst.Interest,
		AmountDue:  inst.AmountDue,
		AmountPaid: inst.AmountPaid,
		Status:     string(inst.Status()),
		Overdue:    inst.IsOverdue(now()),
	}
	if inst.PaymentDate != nil {
		d := inst.PaymentDate.Format("2006-01-02")
		dto.PaymentDate = &d
	}
	return dto
}

func toInstallmentDTOs(installments []loan.Installment, now timeNow) []InstallmentDTO {
	dtos := make([]InstallmentDTO, len(installments))
	for i, inst := range installments {
		dtos[i] = toInstallmentDTO(inst, now)
	}
	return dtos
}
