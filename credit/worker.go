/*
worker.go - Background credit-scoring worker

PURPOSE:
  Registration must not block on ledger ingestion, so scoring runs on a
  single background goroutine fed by a buffered channel. Each job
  ingests the borrower's ledger rows from the configured CSV, stores
  them, recomputes the score from the stored ledger, and writes the
  score back. Until the first run completes the borrower keeps the
  default floor score.

USAGE:
  worker := credit.NewWorker(store, "./data/ledger.csv")
  worker.Start()
  defer worker.Stop()
  ...
  worker.Enqueue(nationalID)
*/
package credit

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Store is the persistence the worker needs. *sqlite.Store satisfies it.
type Store interface {
	SaveLedgerTransactions(ctx context.Context, txs []Transaction) error
	ListLedgerTransactions(ctx context.Context, nationalID string) ([]Transaction, error)
	UpdateBorrowerScore(ctx context.Context, nationalID string, score int) error
}

// Worker scores borrowers in the background, one at a time.
type Worker struct {
	store      Store
	ledgerPath string
	jobTimeout time.Duration

	jobs chan string
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewWorker creates a worker reading ledger rows from ledgerPath. An
// empty path disables ingestion; scores are then computed from whatever
// ledger rows are already stored.
func NewWorker(store Store, ledgerPath string) *Worker {
	return &Worker{
		store:      store,
		ledgerPath: ledgerPath,
		jobTimeout: 30 * time.Second,
		jobs:       make(chan string, 64),
		stop:       make(chan struct{}),
	}
}

// Start launches the scoring goroutine.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
	log.Info().Str("ledger", w.ledgerPath).Msg("credit scoring worker started")
}

// Stop shuts the worker down and waits for the in-flight job to finish.
func (w *Worker) Stop() {
	w.once.Do(func() { close(w.stop) })
	w.wg.Wait()
}

// Enqueue schedules a borrower for scoring. If the queue is full the job
// is dropped and logged; a later registration or restart retries it.
func (w *Worker) Enqueue(nationalID string) {
	select {
	case w.jobs <- nationalID:
	default:
		log.Warn().Str("national_id", nationalID).Msg("scoring queue full, job dropped")
	}
}

func (w *Worker) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stop:
			return
		case nationalID := <-w.jobs:
			ctx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
			if err := w.ScoreBorrower(ctx, nationalID); err != nil {
				log.Error().Err(err).Str("national_id", nationalID).Msg("credit scoring failed")
			}
			cancel()
		}
	}
}

// ScoreBorrower runs one scoring pass synchronously. Exported so callers
// (and tests) can score without going through the queue.
func (w *Worker) ScoreBorrower(ctx context.Context, nationalID string) error {
	if w.ledgerPath != "" {
		file, err := os.Open(w.ledgerPath)
		if err != nil {
			return err
		}
		txs, err := ReadLedger(file, nationalID)
		file.Close()
		if err != nil {
			return err
		}
		if len(txs) > 0 {
			if err := w.store.SaveLedgerTransactions(ctx, txs); err != nil {
				return err
			}
		}
	}

	stored, err := w.store.ListLedgerTransactions(ctx, nationalID)
	if err != nil {
		return err
	}
	score := ScoreFromBalance(NetBalance(stored))

	if err := w.store.UpdateBorrowerScore(ctx, nationalID, score); err != nil {
		return err
	}
	log.Info().Str("national_id", nationalID).Int("score", score).Msg("credit score updated")
	return nil
}
