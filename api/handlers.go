/*
handlers.go - HTTP handlers for the lending engine

PURPOSE:
  Exposes the loan engine via REST. Handlers parse requests, enforce the
  eligibility policy, delegate to the pure engine (loan.Generate,
  loan.Allocate), and persist outcomes through the store.

ENDPOINTS:
  Borrowers:
    POST /api/borrowers             Register (triggers async credit scoring)
    GET  /api/borrowers/{id}        Borrower with current score

  Loans:
    POST /api/loans                 Apply (eligibility + schedule generation)
    GET  /api/loans/{id}            Loan with full schedule
    POST /api/loans/{id}/payments   Apply a payment (waterfall)
    GET  /api/loans/{id}/statement  Past/upcoming split (cached)

ERROR HANDLING:
  Every engine rejection maps to 400 with a stable code; unknown ids map
  to 404; anything else is 500. Rejections abort atomically: a rejected
  application persists no schedule, a rejected payment mutates nothing.

CONCURRENCY:
  MakePayment holds the loan's lock across its read-allocate-write so
  payments for one loan are serialized. Payments for different loans
  proceed in parallel.
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/crestline/lending-engine/cache"
	"github.com/crestline/lending-engine/credit"
	"github.com/crestline/lending-engine/loan"
	"github.com/crestline/lending-engine/store/sqlite"
)

// Eligibility gate for loan applications. This sits outside the core
// engine: the engine sees only terms that already passed it.
var (
	minCreditScore  = 450
	minAnnualIncome = newDecimal("150000")
)

const statementTTL = 5 * time.Minute

type timeNow func() time.Time

// ScoreQueue schedules asynchronous credit scoring. *credit.Worker
// satisfies it.
type ScoreQueue interface {
	Enqueue(nationalID string)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Cache  cache.Cache
	Scores ScoreQueue
	Policy loan.Policy

	// Now is the clock used for overdue derivation and payment dates.
	// Overridable in tests.
	Now timeNow
}

// NewHandler creates a handler with the given collaborators.
func NewHandler(store *sqlite.Store, c cache.Cache, scores ScoreQueue, policy loan.Policy) *Handler {
	return &Handler{
		Store:  store,
		Cache:  c,
		Scores: scores,
		Policy: policy,
		Now:    time.Now,
	}
}

// =============================================================================
// BORROWER HANDLERS
// =============================================================================

// RegisterBorrower creates a borrower and queues credit scoring.
func (h *Handler) RegisterBorrower(w http.ResponseWriter, r *http.Request) {
	var req RegisterBorrowerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid request body")
		return
	}
	if req.NationalID == "" || req.Name == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", "national_id, name and email are required")
		return
	}
	if !req.AnnualIncome.IsPositive() {
		writeError(w, http.StatusBadRequest, "invalid_income", "annual_income must be positive")
		return
	}

	borrower := sqlite.Borrower{
		ID:           uuid.NewString(),
		NationalID:   req.NationalID,
		Name:         req.Name,
		Email:        req.Email,
		AnnualIncome: req.AnnualIncome,
		CreditScore:  credit.MinScore,
	}
	if err := h.Store.SaveBorrower(r.Context(), borrower); err != nil {
		writeError(w, http.StatusConflict, "borrower_exists", "Borrower with this national id or email already exists")
		return
	}

	if h.Scores != nil {
		h.Scores.Enqueue(borrower.NationalID)
	}

	writeJSON(w, http.StatusOK, RegisterBorrowerResponse{BorrowerID: borrower.ID})
}

// GetBorrower returns a borrower with their current credit score.
func (h *Handler) GetBorrower(w http.ResponseWriter, r *http.Request) {
	borrower, err := h.Store.GetBorrower(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, err, "Borrower not found")
		return
	}
	writeJSON(w, http.StatusOK, toBorrowerDTO(borrower))
}

// =============================================================================
// LOAN HANDLERS
// =============================================================================

// ApplyLoan runs the full application workflow: eligibility gate,
// product cap, schedule generation, atomic persistence.
func (h *Handler) ApplyLoan(w http.ResponseWriter, r *http.Request) {
	var req ApplyLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid request body")
		return
	}

	borrower, err := h.Store.GetBorrower(r.Context(), req.BorrowerID)
	if err != nil {
		h.writeStoreError(w, err, "Borrower not found")
		return
	}

	if borrower.CreditScore < minCreditScore || borrower.AnnualIncome.LessThan(minAnnualIncome) {
		writeError(w, http.StatusBadRequest, "not_eligible", "Loan application criteria not met")
		return
	}

	maxPrincipal, ok := loan.MaxPrincipal(loan.Type(req.LoanType))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown_loan_type",
			fmt.Sprintf("Unknown loan type %q", req.LoanType))
		return
	}
	if req.Principal.GreaterThan(maxPrincipal) {
		writeError(w, http.StatusBadRequest, "amount_out_of_bounds",
			fmt.Sprintf("Principal exceeds the %s cap of %s", req.LoanType, maxPrincipal.StringFixed(2)))
		return
	}

	disbursement, err := time.Parse("2006-01-02", req.DisbursementDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "disbursement_date must be YYYY-MM-DD")
		return
	}

	terms := loan.Terms{
		Principal:        req.Principal,
		AnnualRate:       req.AnnualRate,
		TenureMonths:     req.TenureMonths,
		DisbursementDate: disbursement,
		MonthlyIncome:    borrower.AnnualIncome.Div(newDecimal("12")),
	}

	schedule, err := loan.Generate(terms, h.Policy)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	record := sqlite.LoanRecord{
		ID:               uuid.NewString(),
		BorrowerID:       borrower.ID,
		Type:             loan.Type(req.LoanType),
		Principal:        req.Principal,
		AnnualRate:       req.AnnualRate,
		TenureMonths:     req.TenureMonths,
		DisbursementDate: disbursement,
		TotalInterest:    schedule.TotalInterest,
	}
	if err := h.Store.CreateLoan(r.Context(), record, schedule.Installments); err != nil {
		log.Error().Err(err).Str("borrower_id", borrower.ID).Msg("failed to persist loan")
		writeError(w, http.StatusInternalServerError, "storage_error", "Failed to persist loan")
		return
	}

	dueDates := make([]DueDateDTO, len(schedule.Installments))
	for i, inst := range schedule.Installments {
		dueDates[i] = DueDateDTO{
			Date:      inst.DueDate.Format("2006-01-02"),
			AmountDue: inst.AmountDue,
		}
	}
	writeJSON(w, http.StatusOK, ApplyLoanResponse{
		LoanID:        record.ID,
		TotalInterest: schedule.TotalInterest,
		DueDates:      dueDates,
	})
}

// GetLoan returns a loan with its full schedule.
func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.Store.GetLoan(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "Loan not found")
		return
	}
	installments, err := h.Store.ListInstallments(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error", "Failed to load installments")
		return
	}

	writeJSON(w, http.StatusOK, LoanDTO{
		ID:               record.ID,
		BorrowerID:       record.BorrowerID,
		LoanType:         string(record.Type),
		Principal:        record.Principal,
		AnnualRate:       record.AnnualRate,
		TenureMonths:     record.TenureMonths,
		DisbursementDate: record.DisbursementDate.Format("2006-01-02"),
		TotalInterest:    record.TotalInterest,
		Installments:     toInstallmentDTOs(installments, h.Now),
	})
}

// =============================================================================
// PAYMENT HANDLER
// =============================================================================

// MakePayment applies one payment to a loan's unpaid installments.
func (h *Handler) MakePayment(w http.ResponseWriter, r *http.Request) {
	loanID := chi.URLParam(r, "id")

	var req MakePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid request body")
		return
	}

	if _, err := h.Store.GetLoan(r.Context(), loanID); err != nil {
		h.writeStoreError(w, err, "Loan not found")
		return
	}

	// Serialize payments per loan: the waterfall's correctness depends on
	// the unpaid set not changing between read and write.
	unlock := h.Store.LockLoan(loanID)
	defer unlock()

	unpaid, err := h.Store.ListUnpaidInstallments(r.Context(), loanID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error", "Failed to load installments")
		return
	}

	result, err := loan.Allocate(req.Amount, unpaid, h.Now())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	if err := h.Store.UpdateInstallments(r.Context(), loanID, result.Applied); err != nil {
		log.Error().Err(err).Str("loan_id", loanID).Msg("failed to persist payment")
		writeError(w, http.StatusInternalServerError, "storage_error", "Failed to persist payment")
		return
	}

	// The statement changed; drop the cached copy.
	if err := h.Cache.Delete(r.Context(), statementKey(loanID)); err != nil {
		log.Warn().Err(err).Str("loan_id", loanID).Msg("failed to invalidate statement cache")
	}

	writeJSON(w, http.StatusOK, MakePaymentResponse{
		Installments: toInstallmentDTOs(result.Applied, h.Now),
		Excess:       result.Excess,
	})
}

// =============================================================================
// STATEMENT HANDLER
// =============================================================================

// GetStatement returns the past/upcoming installment split for a loan.
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	loanID := chi.URLParam(r, "id")

	if cached, ok := h.Cache.Get(r.Context(), statementKey(loanID)); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(cached))
		return
	}

	if _, err := h.Store.GetLoan(r.Context(), loanID); err != nil {
		h.writeStoreError(w, err, "Loan not found")
		return
	}
	installments, err := h.Store.ListInstallments(r.Context(), loanID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error", "Failed to load installments")
		return
	}

	statement := StatementDTO{
		LoanID:   loanID,
		Past:     []PastInstallmentDTO{},
		Upcoming: []UpcomingInstallmentDTO{},
	}
	now := h.Now()
	for _, inst := range installments {
		if inst.Paid {
			statement.Past = append(statement.Past, PastInstallmentDTO{
				Date:       inst.DueDate.Format("2006-01-02"),
				Principal:  inst.Principal,
				Interest:   inst.Interest,
				AmountPaid: inst.AmountPaid,
			})
		} else {
			statement.Upcoming = append(statement.Upcoming, UpcomingInstallmentDTO{
				Date:        inst.DueDate.Format("2006-01-02"),
				AmountDue:   inst.AmountDue,
				Outstanding: inst.Outstanding(),
				Overdue:     inst.IsOverdue(now),
			})
		}
	}

	if body, err := json.Marshal(statement); err == nil {
		if err := h.Cache.Set(r.Context(), statementKey(loanID), string(body), statementTTL); err != nil {
			log.Warn().Err(err).Str("loan_id", loanID).Msg("failed to cache statement")
		}
	}

	writeJSON(w, http.StatusOK, statement)
}

func statementKey(loanID string) string {
	return "statement:" + loanID
}

// =============================================================================
// ERROR MAPPING AND RESPONSE HELPERS
// =============================================================================

func (h *Handler) writeStoreError(w http.ResponseWriter, err error, notFoundMsg string) {
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", notFoundMsg)
		return
	}
	writeError(w, http.StatusInternalServerError, "storage_error", "Storage failure")
}

// writeEngineError maps engine rejections to stable 400 codes.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	code := "rejected"
	switch {
	case errors.Is(err, loan.ErrAffordabilityExceeded):
		code = "affordability_exceeded"
	case errors.Is(err, loan.ErrUneconomicalLoan):
		code = "uneconomical_loan"
	case errors.Is(err, loan.ErrInvalidTerms):
		code = "invalid_terms"
	case errors.Is(err, loan.ErrNoOutstandingInstallments):
		code = "no_outstanding_installments"
	case errors.Is(err, loan.ErrInvalidPayment):
		code = "invalid_payment"
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, code, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func newDecimal(s string) decimal.Decimal { return decimal.RequireFromString(s) }
