// Package worker moves posted transactions from the local ledger to the
// configured spreadsheet, driven by ledger events with a periodic sweep
// as a safety net for lost messages.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/export"
)

// ExportStore is what the worker needs from storage.
type ExportStore interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	GetPendingExportTransactions(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkExported(ctx context.Context, id int64) error
	MarkExportError(ctx context.Context, id int64) error
}

type ExportWorker struct {
	store     ExportStore
	appender  export.RowAppender
	batchSize int
}

func NewExportWorker(store ExportStore, appender export.RowAppender, batchSize int) *ExportWorker {
	return &ExportWorker{
		store:     store,
		appender:  appender,
		batchSize: batchSize,
	}
}

// HandleLedgerEvent processes a single event from the queue. Only posted
// transactions are exported; updates, deletes and divergence warnings are
// acknowledged without side effects, the spreadsheet is append-only.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	if msg.Event != amqp.EventTransactionPosted {
		slog.DebugContext(ctx, "Ignoring non-export event",
			"event", msg.Event,
			"event_id", msg.EventID)
		return nil
	}

	transaction, err := w.store.GetTransaction(ctx, msg.TransactionID)
	if err != nil {
		// The row may have been deleted between posting and consumption;
		// there is nothing left to export.
		var notFound *core.NotFoundError
		if errors.As(err, &notFound) {
			slog.WarnContext(ctx, "Transaction gone before export",
				"transaction_id", msg.TransactionID)
			return nil
		}
		return fmt.Errorf("load transaction %d: %w", msg.TransactionID, err)
	}

	return w.exportOne(ctx, transaction)
}

// ProcessPending sweeps transactions the event path missed. It is the
// backup mechanism for lost or unpublished messages.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.GetPendingExportTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	for _, transaction := range pending {
		if err := w.exportOne(ctx, transaction); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction",
				"transaction_id", transaction.ID,
				"error", err)
		}
	}
	return nil
}

// StartupCheck drains a larger pending backlog once at worker start to
// recover from downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.store.GetPendingExportTransactions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup", "count", len(pending))

	exported := 0
	failed := 0
	for _, transaction := range pending {
		if err := w.exportOne(ctx, transaction); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction during startup",
				"transaction_id", transaction.ID,
				"error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Startup export check complete",
		"total", len(pending),
		"exported", exported,
		"failed", failed)
	return nil
}

func (w *ExportWorker) exportOne(ctx context.Context, transaction core.Transaction) error {
	ref, err := w.appender.Append(ctx, transaction)
	if err != nil {
		if markErr := w.store.MarkExportError(ctx, transaction.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error",
				"transaction_id", transaction.ID,
				"error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.store.MarkExported(ctx, transaction.ID); err != nil {
		// The row made it to the sheet; a stale flag just means the sweep
		// may retry, and the sheet tolerates duplicates.
		slog.ErrorContext(ctx, "Failed to mark as exported",
			"transaction_id", transaction.ID,
			"error", err)
	}

	slog.InfoContext(ctx, "Exported transaction",
		"transaction_id", transaction.ID,
		"row_ref", ref,
		"amount_cents", transaction.Amount.Cents)
	return nil
}
