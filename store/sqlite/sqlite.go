/*
Package sqlite provides the SQLite-backed persistence for the lending engine.

PURPOSE:
  Implements all storage the engine needs: borrowers, their transaction
  ledger, loans, and installments. In production the same patterns apply
  to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  borrowers:           Registered borrowers with their current credit score
  ledger_transactions: Ingested CREDIT/DEBIT rows used for scoring
  loans:               Loan records with their immutable terms
  installments:        The amortization schedule; only paid-state mutates

MONEY:
  Decimal values are stored as TEXT (decimal.Decimal strings), never
  REAL. Dates are stored as "2006-01-02", timestamps as RFC3339.

CONCURRENCY:
  A store-wide RWMutex guards the SQLite handle. On top of that,
  LockLoan serializes the read-allocate-write of payments per loan:
  two payments for the same loan never interleave, payments for
  different loans proceed independently.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency
  and crash recovery.

USAGE:
  store, err := sqlite.New("./data/lending.db")  // or ":memory:"
  if err != nil { ... }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/crestline/lending-engine/credit"
	"github.com/crestline/lending-engine/loan"
)

// ErrNotFound is returned when a borrower or loan does not exist.
var ErrNotFound = errors.New("not found")

// Store implements all persistence for the lending engine.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	locksMu   sync.Mutex
	loanLocks map[string]*sync.Mutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, loanLocks: make(map[string]*sync.Mutex)}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS borrowers (
		id TEXT PRIMARY KEY,
		national_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		annual_income TEXT NOT NULL,
		credit_score INTEGER NOT NULL DEFAULT 300,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_borrowers_national_id
		ON borrowers(national_id);

	CREATE TABLE IF NOT EXISTS ledger_transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		national_id TEXT NOT NULL,
		tx_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		tx_type TEXT NOT NULL CHECK (tx_type IN ('CREDIT', 'DEBIT'))
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_national_id
		ON ledger_transactions(national_id);

	CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		borrower_id TEXT NOT NULL REFERENCES borrowers(id),
		loan_type TEXT NOT NULL,
		principal TEXT NOT NULL,
		annual_rate TEXT NOT NULL,
		tenure_months INTEGER NOT NULL,
		disbursement_date TEXT NOT NULL,
		total_interest TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_loans_borrower
		ON loans(borrower_id);

	CREATE TABLE IF NOT EXISTS installments (
		loan_id TEXT NOT NULL REFERENCES loans(id),
		seq INTEGER NOT NULL,
		due_date TEXT NOT NULL,
		principal TEXT NOT NULL,
		interest TEXT NOT NULL,
		amount_due TEXT NOT NULL,
		amount_paid TEXT NOT NULL,
		payment_date TEXT,
		paid BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (loan_id, seq)
	);

	-- Hot path: unpaid installments ordered by due date.
	CREATE INDEX IF NOT EXISTS idx_installments_loan_due
		ON installments(loan_id, paid, due_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BORROWERS
// =============================================================================

// Borrower is a registered borrower. CreditScore starts at the floor and
// is updated asynchronously by the scoring worker.
type Borrower struct {
	ID           string
	NationalID   string
	Name         string
	Email        string
	AnnualIncome decimal.Decimal
	CreditScore  int
	CreatedAt    time.Time
}

// SaveBorrower inserts a borrower.
func (s *Store) SaveBorrower(ctx context.Context, b Borrower) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO borrowers (id, national_id, name, email, annual_income, credit_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.NationalID, b.Name, b.Email,
		b.AnnualIncome.String(), b.CreditScore,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetBorrower returns a borrower by id, or ErrNotFound.
func (s *Store) GetBorrower(ctx context.Context, id string) (*Borrower, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, national_id, name, email, annual_income, credit_score, created_at
		FROM borrowers WHERE id = ?`, id)
	return scanBorrower(row)
}

// GetBorrowerByNationalID returns a borrower by national id, or ErrNotFound.
func (s *Store) GetBorrowerByNationalID(ctx context.Context, nationalID string) (*Borrower, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, national_id, name, email, annual_income, credit_score, created_at
		FROM borrowers WHERE national_id = ?`, nationalID)
	return scanBorrower(row)
}

func scanBorrower(row *sql.Row) (*Borrower, error) {
	var b Borrower
	var income, createdAt string
	err := row.Scan(&b.ID, &b.NationalID, &b.Name, &b.Email, &income, &b.CreditScore, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if b.AnnualIncome, err = decimal.NewFromString(income); err != nil {
		return nil, fmt.Errorf("corrupt annual_income: %w", err)
	}
	b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &b, nil
}

// UpdateBorrowerScore sets the credit score for a borrower.
func (s *Store) UpdateBorrowerScore(ctx context.Context, nationalID string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE borrowers SET credit_score = ? WHERE national_id = ?`, score, nationalID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("borrower %s: %w", nationalID, ErrNotFound)
	}
	return nil
}

// =============================================================================
// TRANSACTION LEDGER (credit scoring input)
// =============================================================================

// SaveLedgerTransactions replaces the stored ledger rows for the
// transactions' borrower. Re-ingestion is idempotent: the previous rows
// for that national id are dropped first.
func (s *Store) SaveLedgerTransactions(ctx context.Context, txs []credit.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	nationalID := txs[0].NationalID
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM ledger_transactions WHERE national_id = ?`, nationalID); err != nil {
		return err
	}
	for _, t := range txs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_transactions (national_id, tx_date, amount, tx_type)
			VALUES (?, ?, ?, ?)`,
			t.NationalID, t.Date.Format("2006-01-02"), t.Amount.String(), string(t.Type))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListLedgerTransactions returns all ledger rows for a borrower.
func (s *Store) ListLedgerTransactions(ctx context.Context, nationalID string) ([]credit.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT national_id, tx_date, amount, tx_type
		FROM ledger_transactions WHERE national_id = ? ORDER BY tx_date, id`, nationalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []credit.Transaction
	for rows.Next() {
		var t credit.Transaction
		var date, amount, txType string
		if err := rows.Scan(&t.NationalID, &date, &amount, &txType); err != nil {
			return nil, err
		}
		if t.Date, err = time.Parse("2006-01-02", date); err != nil {
			return nil, fmt.Errorf("corrupt tx_date: %w", err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("corrupt amount: %w", err)
		}
		t.Type = credit.TransactionType(txType)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// =============================================================================
// LOANS AND INSTALLMENTS
// =============================================================================

// LoanRecord is a persisted loan with its immutable terms.
type LoanRecord struct {
	ID               string
	BorrowerID       string
	Type             loan.Type
	Principal        decimal.Decimal
	AnnualRate       decimal.Decimal
	TenureMonths     int
	DisbursementDate time.Time
	TotalInterest    decimal.Decimal
	CreatedAt        time.Time
}

// CreateLoan persists a loan and its full installment schedule in one
// transaction. Either everything lands or nothing does; a rejected or
// failed application never leaves a partial schedule behind.
func (s *Store) CreateLoan(ctx context.Context, record LoanRecord, installments []loan.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO loans (id, borrower_id, loan_type, principal, annual_rate,
			tenure_months, disbursement_date, total_interest, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.BorrowerID, string(record.Type),
		record.Principal.String(), record.AnnualRate.String(),
		record.TenureMonths, record.DisbursementDate.Format("2006-01-02"),
		record.TotalInterest.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}

	for _, inst := range installments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO installments (loan_id, seq, due_date, principal, interest,
				amount_due, amount_paid, payment_date, paid)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ID, inst.Sequence, inst.DueDate.Format("2006-01-02"),
			inst.Principal.String(), inst.Interest.String(),
			inst.AmountDue.String(), inst.AmountPaid.String(),
			nullDate(inst.PaymentDate), inst.Paid,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetLoan returns a loan record by id, or ErrNotFound.
func (s *Store) GetLoan(ctx context.Context, id string) (*LoanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, borrower_id, loan_type, principal, annual_rate,
			tenure_months, disbursement_date, total_interest, created_at
		FROM loans WHERE id = ?`, id)

	var r LoanRecord
	var loanType, principal, rate, disbursed, totalInterest, createdAt string
	err := row.Scan(&r.ID, &r.BorrowerID, &loanType, &principal, &rate,
		&r.TenureMonths, &disbursed, &totalInterest, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Type = loan.Type(loanType)
	if r.Principal, err = decimal.NewFromString(principal); err != nil {
		return nil, fmt.Errorf("corrupt principal: %w", err)
	}
	if r.AnnualRate, err = decimal.NewFromString(rate); err != nil {
		return nil, fmt.Errorf("corrupt annual_rate: %w", err)
	}
	if r.TotalInterest, err = decimal.NewFromString(totalInterest); err != nil {
		return nil, fmt.Errorf("corrupt total_interest: %w", err)
	}
	if r.DisbursementDate, err = time.Parse("2006-01-02", disbursed); err != nil {
		return nil, fmt.Errorf("corrupt disbursement_date: %w", err)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &r, nil
}

// ListInstallments returns a loan's full schedule in sequence order.
func (s *Store) ListInstallments(ctx context.Context, loanID string) ([]loan.Installment, error) {
	return s.queryInstallments(ctx, `
		SELECT seq, due_date, principal, interest, amount_due, amount_paid, payment_date, paid
		FROM installments WHERE loan_id = ? ORDER BY seq`, loanID)
}

// ListUnpaidInstallments returns a loan's unpaid installments ordered by
// due date ascending, the order the payment waterfall requires.
func (s *Store) ListUnpaidInstallments(ctx context.Context, loanID string) ([]loan.Installment, error) {
	return s.queryInstallments(ctx, `
		SELECT seq, due_date, principal, interest, amount_due, amount_paid, payment_date, paid
		FROM installments WHERE loan_id = ? AND paid = FALSE ORDER BY due_date`, loanID)
}

func (s *Store) queryInstallments(ctx context.Context, query, loanID string) ([]loan.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []loan.Installment
	for rows.Next() {
		var inst loan.Installment
		var due, principal, interest, amountDue, amountPaid string
		var paymentDate sql.NullString
		if err := rows.Scan(&inst.Sequence, &due, &principal, &interest,
			&amountDue, &amountPaid, &paymentDate, &inst.Paid); err != nil {
			return nil, err
		}
		if inst.DueDate, err = time.Parse("2006-01-02", due); err != nil {
			return nil, fmt.Errorf("corrupt due_date: %w", err)
		}
		if inst.Principal, err = decimal.NewFromString(principal); err != nil {
			return nil, fmt.Errorf("corrupt principal: %w", err)
		}
		if inst.Interest, err = decimal.NewFromString(interest); err != nil {
			return nil, fmt.Errorf("corrupt interest: %w", err)
		}
		if inst.AmountDue, err = decimal.NewFromString(amountDue); err != nil {
			return nil, fmt.Errorf("corrupt amount_due: %w", err)
		}
		if inst.AmountPaid, err = decimal.NewFromString(amountPaid); err != nil {
			return nil, fmt.Errorf("corrupt amount_paid: %w", err)
		}
		if paymentDate.Valid {
			d, err := time.Parse("2006-01-02", paymentDate.String)
			if err != nil {
				return nil, fmt.Errorf("corrupt payment_date: %w", err)
			}
			inst.PaymentDate = &d
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

// UpdateInstallments persists new paid-state for the given installments
// of one loan, atomically. The fixed principal/interest split is never
// rewritten.
func (s *Store) UpdateInstallments(ctx context.Context, loanID string, installments []loan.Installment) error {
	if len(installments) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, inst := range installments {
		res, err := tx.ExecContext(ctx, `
			UPDATE installments SET amount_paid = ?, payment_date = ?, paid = ?
			WHERE loan_id = ? AND seq = ?`,
			inst.AmountPaid.String(), nullDate(inst.PaymentDate), inst.Paid,
			loanID, inst.Sequence,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("installment %s/%d: %w", loanID, inst.Sequence, ErrNotFound)
		}
	}
	return tx.Commit()
}

// =============================================================================
// PER-LOAN LOCKING
// =============================================================================

// LockLoan acquires the mutex for one loan and returns its unlock
// function. Payment processing holds this across its read-allocate-write
// walk so two payments for the same loan cannot interleave.
func (s *Store) LockLoan(loanID string) func() {
	s.locksMu.Lock()
	l, ok := s.loanLocks[loanID]
	if !ok {
		l = &sync.Mutex{}
		s.loanLocks[loanID] = l
	}
	s.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}
