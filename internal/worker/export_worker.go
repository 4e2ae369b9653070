// Package worker consumes transaction-posted events and exports the records
// to the configured backup sink.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fromsofaraway/financial-tracker/internal/amqp"
	"github.com/fromsofaraway/financial-tracker/internal/core"
	"github.com/fromsofaraway/financial-tracker/internal/storage"
)

// RowAppender is the export sink. Implemented by the Google Sheets client.
type RowAppender interface {
	AppendTransaction(ctx context.Context, t core.Transaction) error
}

type ExportWorker struct {
	store *storage.Repository
	sink  RowAppender
}

func NewExportWorker(store *storage.Repository, sink RowAppender) *ExportWorker {
	return &ExportWorker{store: store, sink: sink}
}

// HandleTransactionPosted processes one posted event: fetch the full record
// from the store and append it to the sink. A returned error makes the
// consumer requeue the message.
func (w *ExportWorker) HandleTransactionPosted(ctx context.Context, msg *amqp.TransactionPostedMessage) error {
	slog.InfoContext(ctx, "Processing transaction posted event",
		"id", msg.ID,
		"user_id", msg.UserID)

	t, err := w.store.GetTransaction(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if err := w.sink.AppendTransaction(ctx, t); err != nil {
		return fmt.Errorf("export transaction: %w", err)
	}

	return nil
}
