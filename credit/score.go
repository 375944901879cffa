/*
Package credit computes borrower credit scores from a transaction ledger.

PURPOSE:
  A borrower's score is derived from the net balance of their CREDIT and
  DEBIT ledger entries. Scoring runs asynchronously after registration:
  the HTTP layer enqueues the borrower and a background worker ingests
  the ledger and writes the score back.

SCORING RULE (a step function, not a bureau model):
  balance >= 1,000,000            -> 900
  balance <= 100,000              -> 300
  otherwise                       -> 300 + 10 points per full 15,000
                                     above 100,000

SEE ALSO:
  - ingest.go: CSV ledger ingestion
  - worker.go: Background scoring worker
*/
package credit

import (
	"time"

	"github.com/shopspring/decimal"
)

// Score bounds.
const (
	MinScore = 300
	MaxScore = 900
)

// TransactionType marks a ledger entry as money in or money out.
type TransactionType string

const (
	TxCredit TransactionType = "CREDIT"
	TxDebit  TransactionType = "DEBIT"
)

// Transaction is one row of a borrower's transaction ledger.
type Transaction struct {
	NationalID string
	Date       time.Time
	Amount     decimal.Decimal
	Type       TransactionType
}

var (
	upperBalance = decimal.NewFromInt(1_000_000)
	lowerBalance = decimal.NewFromInt(100_000)
	stepSize     = decimal.NewFromInt(15_000)
)

// NetBalance sums the ledger: credits add, debits subtract.
func NetBalance(txs []Transaction) decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range txs {
		if tx.Type == TxDebit {
			balance = balance.Sub(tx.Amount)
		} else {
			balance = balance.Add(tx.Amount)
		}
	}
	return balance
}

// ScoreFromBalance maps a net ledger balance to a credit score.
func ScoreFromBalance(balance decimal.Decimal) int {
	switch {
	case balance.GreaterThanOrEqual(upperBalance):
		return MaxScore
	case balance.LessThanOrEqual(lowerBalance):
		return MinScore
	default:
		steps := balance.Sub(lowerBalance).Div(stepSize).Floor().IntPart()
		return MinScore + int(steps)*10
	}
}
