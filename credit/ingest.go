package credit

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger CSV columns, by header name. The file carries rows for many
// borrowers; ingestion filters to one national ID.
const (
	colUser   = "user"
	colDate   = "date"
	colAmount = "amount"
	colType   = "transaction_type"
)

// ReadLedger parses a transaction ledger CSV and returns the rows
// belonging to the given national ID. Rows for other borrowers are
// skipped; malformed rows fail the whole read.
func ReadLedger(r io.Reader, nationalID string) ([]Transaction, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read ledger header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{colUser, colDate, colAmount, colType} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("ledger missing column %q", required)
		}
	}

	var txs []Transaction
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ledger line %d: %w", line, err)
		}
		if record[cols[colUser]] != nationalID {
			continue
		}

		date, err := time.Parse("2006-01-02", record[cols[colDate]])
		if err != nil {
			return nil, fmt.Errorf("ledger line %d: bad date: %w", line, err)
		}
		amount, err := decimal.NewFromString(record[cols[colAmount]])
		if err != nil {
			return nil, fmt.Errorf("ledger line %d: bad amount: %w", line, err)
		}
		txType := TransactionType(record[cols[colType]])
		if txType != TxCredit && txType != TxDebit {
			return nil, fmt.Errorf("ledger line %d: unknown transaction type %q", line, txType)
		}

		txs = append(txs, Transaction{
			NationalID: nationalID,
			Date:       date,
			Amount:     amount,
			Type:       txType,
		})
	}
	return txs, nil
}
