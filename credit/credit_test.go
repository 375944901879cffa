package credit_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestline/lending-engine/credit"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// SCORING
// =============================================================================

func TestScoreFromBalance_Brackets(t *testing.T) {
	cases := []struct {
		balance string
		want    int
	}{
		{"1000000", 900},
		{"5000000", 900},
		{"100000", 300},
		{"-250000", 300},
		{"0", 300},
		{"100001", 300},    // below one full step
		{"115000", 310},    // exactly one step
		{"129999.99", 310}, // still one step
		{"400000", 500},
		{"999999.99", 890},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, credit.ScoreFromBalance(dec(tc.balance)), "balance %s", tc.balance)
	}
}

func TestNetBalance(t *testing.T) {
	txs := []credit.Transaction{
		{Amount: dec("500000"), Type: credit.TxCredit},
		{Amount: dec("120000.50"), Type: credit.TxDebit},
		{Amount: dec("0.50"), Type: credit.TxCredit},
	}

	assert.True(t, credit.NetBalance(txs).Equal(dec("380000")))
	assert.True(t, credit.NetBalance(nil).IsZero())
}

// =============================================================================
// LEDGER INGESTION
// =============================================================================

const ledgerCSV = `user,date,amount,transaction_type
111122223333,2024-01-05,250000,CREDIT
999900001111,2024-01-06,400000,CREDIT
111122223333,2024-02-10,50000.25,DEBIT
111122223333,2024-03-01,100000,CREDIT
`

func TestReadLedger_FiltersByNationalID(t *testing.T) {
	txs, err := credit.ReadLedger(strings.NewReader(ledgerCSV), "111122223333")
	require.NoError(t, err)
	require.Len(t, txs, 3)

	assert.Equal(t, time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC), txs[0].Date)
	assert.True(t, txs[1].Amount.Equal(dec("50000.25")))
	assert.Equal(t, credit.TxDebit, txs[1].Type)
	assert.True(t, credit.NetBalance(txs).Equal(dec("299999.75")))
}

func TestReadLedger_NoRowsForBorrower(t *testing.T) {
	txs, err := credit.ReadLedger(strings.NewReader(ledgerCSV), "000000000000")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestReadLedger_MissingColumn(t *testing.T) {
	_, err := credit.ReadLedger(strings.NewReader("user,date,amount\nx,2024-01-01,5\n"), "x")
	assert.ErrorContains(t, err, "transaction_type")
}

func TestReadLedger_BadRow(t *testing.T) {
	bad := "user,date,amount,transaction_type\n111122223333,2024-13-45,100,CREDIT\n"
	_, err := credit.ReadLedger(strings.NewReader(bad), "111122223333")
	assert.ErrorContains(t, err, "bad date")

	bad = "user,date,amount,transaction_type\n111122223333,2024-01-05,100,WIRE\n"
	_, err = credit.ReadLedger(strings.NewReader(bad), "111122223333")
	assert.ErrorContains(t, err, "unknown transaction type")
}

// =============================================================================
// WORKER
// =============================================================================

type fakeStore struct {
	saved  []credit.Transaction
	scores map[string]int
}

func (f *fakeStore) SaveLedgerTransactions(_ context.Context, txs []credit.Transaction) error {
	f.saved = append(f.saved, txs...)
	return nil
}

func (f *fakeStore) ListLedgerTransactions(_ context.Context, nationalID string) ([]credit.Transaction, error) {
	var out []credit.Transaction
	for _, tx := range f.saved {
		if tx.NationalID == nationalID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateBorrowerScore(_ context.Context, nationalID string, score int) error {
	if f.scores == nil {
		f.scores = map[string]int{}
	}
	f.scores[nationalID] = score
	return nil
}

func TestWorker_ScoreBorrower_FromLedgerFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/ledger.csv"
	require.NoError(t, writeFile(path, ledgerCSV))

	store := &fakeStore{}
	worker := credit.NewWorker(store, path)

	require.NoError(t, worker.ScoreBorrower(context.Background(), "111122223333"))

	// Net balance 299,999.75 -> 13 full steps above 100,000 -> 430.
	assert.Equal(t, 430, store.scores["111122223333"])
	assert.Len(t, store.saved, 3)
}

func TestWorker_ScoreBorrower_NoLedgerFile(t *testing.T) {
	store := &fakeStore{}
	store.saved = []credit.Transaction{
		{NationalID: "42", Amount: dec("2000000"), Type: credit.TxCredit},
	}
	worker := credit.NewWorker(store, "")

	require.NoError(t, worker.ScoreBorrower(context.Background(), "42"))
	assert.Equal(t, 900, store.scores["42"])
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
