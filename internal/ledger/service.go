// Package ledger orchestrates ledger writes: validated inserts into the
// store plus best-effort event publication for the export pipeline.
package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/fromsofaraway/financial-tracker/internal/core"
	"github.com/fromsofaraway/financial-tracker/internal/storage"
)

// Publisher announces newly posted transactions. Implemented by the AMQP
// client; nil disables publication entirely.
type Publisher interface {
	PublishTransactionPosted(ctx context.Context, id, userID int64) error
}

type Service struct {
	repo *storage.Repository
	pub  Publisher
}

func NewService(repo *storage.Repository, pub Publisher) *Service {
	return &Service{repo: repo, pub: pub}
}

// Insert appends one transaction to the ledger and publishes a posted event.
// The store write is authoritative: a publish failure is logged and ignored,
// the record stays committed.
func (s *Service) Insert(ctx context.Context, userID int64, kind core.Kind, amount decimal.Decimal, category, description string) (core.Transaction, error) {
	t, err := s.repo.Insert(ctx, userID, kind, amount, category, description)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	if s.pub != nil {
		if err := s.pub.PublishTransactionPosted(ctx, t.ID, t.UserID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish transaction posted event",
				"id", t.ID, "user_id", t.UserID, "error", err)
		}
	}

	return t, nil
}
