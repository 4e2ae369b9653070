package sync

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fromsofaraway/financial-tracker/internal/core"
	"github.com/fromsofaraway/financial-tracker/internal/stats"
)

// TransactionPayload is the single-transaction shape submitted by the rich
// client. Amount accepts both JSON numbers and numeric strings.
type TransactionPayload struct {
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
}

// UpdateRequest is either a single transaction (embedded shape) or a batch.
// A non-nil Transactions slice selects batch mode.
type UpdateRequest struct {
	TransactionPayload
	Transactions []TransactionPayload `json:"transactions,omitempty"`
}

// BatchError reports the first failing element of a batch. Because the
// ledger is append-only, elements committed before the failure stay
// committed; Committed tells the client how many.
type BatchError struct {
	Index     int
	Committed int
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch element %d rejected after %d committed: %v", e.Index, e.Committed, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// ApplyUpdate validates and inserts the submitted transactions, then returns
// a freshly recomputed snapshot so the client can reconcile without a second
// round trip. Batch elements are processed in input order, fail-fast: the
// first invalid element aborts the rest, with no rollback of prior inserts.
func (h *Handler) ApplyUpdate(ctx context.Context, userID int64, req UpdateRequest) (*stats.Snapshot, error) {
	if req.Transactions != nil {
		if err := h.applyBatch(ctx, userID, req.Transactions); err != nil {
			return nil, err
		}
	} else {
		if err := h.insertOne(ctx, userID, req.TransactionPayload); err != nil {
			return nil, err
		}
	}

	snap, err := h.stats.FullSnapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("recompute snapshot: %w", err)
	}
	return snap, nil
}

func (h *Handler) applyBatch(ctx context.Context, userID int64, payloads []TransactionPayload) error {
	if len(payloads) == 0 {
		return core.NewValidationError("batch must contain at least one transaction")
	}
	for i, p := range payloads {
		if err := h.insertOne(ctx, userID, p); err != nil {
			return &BatchError{Index: i, Committed: i, Err: err}
		}
	}
	return nil
}

func (h *Handler) insertOne(ctx context.Context, userID int64, p TransactionPayload) error {
	if p.Kind == "" {
		return core.NewValidationError("missing required field: kind")
	}
	kind, err := core.ParseKind(p.Kind)
	if err != nil {
		return err
	}
	if p.Category == "" {
		return core.NewValidationError("missing required field: category")
	}
	if _, err := h.ledger.Insert(ctx, userID, kind, p.Amount, p.Category, p.Description); err != nil {
		return err
	}
	return nil
}
