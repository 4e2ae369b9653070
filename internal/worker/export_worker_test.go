package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fromsofaraway/financial-tracker/internal/amqp"
	"github.com/fromsofaraway/financial-tracker/internal/core"
	"github.com/fromsofaraway/financial-tracker/internal/storage"
)

type fakeSink struct {
	appended []core.Transaction
	err      error
}

func (f *fakeSink) AppendTransaction(_ context.Context, t core.Transaction) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, t)
	return nil
}

func newTestRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.New(filepath.Join(t.TempDir(), "test.db"), decimal.NewFromInt(1_000_000))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestHandleTransactionPosted(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tx, err := repo.Insert(ctx, 1, core.Expense, decimal.NewFromInt(250), "Кофе", "латте")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	sink := &fakeSink{}
	w := NewExportWorker(repo, sink)

	err = w.HandleTransactionPosted(ctx, &amqp.TransactionPostedMessage{ID: tx.ID, UserID: 1})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sink.appended) != 1 {
		t.Fatalf("expected one exported record, got %d", len(sink.appended))
	}
	got := sink.appended[0]
	if got.ID != tx.ID || got.Category != "Кофе" || got.Description != "латте" {
		t.Fatalf("exported = %+v", got)
	}
}

func TestHandleUnknownTransaction(t *testing.T) {
	w := NewExportWorker(newTestRepo(t), &fakeSink{})

	err := w.HandleTransactionPosted(context.Background(), &amqp.TransactionPostedMessage{ID: 999, UserID: 1})
	if err == nil {
		t.Fatal("expected error for unknown transaction")
	}
}

func TestSinkFailurePropagates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tx, err := repo.Insert(ctx, 1, core.Income, decimal.NewFromInt(10), "Доход", "")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	w := NewExportWorker(repo, &fakeSink{err: errors.New("quota exceeded")})
	if err := w.HandleTransactionPosted(ctx, &amqp.TransactionPostedMessage{ID: tx.ID, UserID: 1}); err == nil {
		t.Fatal("expected sink failure to propagate for requeue")
	}
}
