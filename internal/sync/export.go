// Package sync implements the reconciliation protocol between the ledger
// and the external rich client: snapshot export for the client's launch
// context and batched update application coming back from it.
package sync

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fromsofaraway/financial-tracker/internal/core"
	"github.com/fromsofaraway/financial-tracker/internal/stats"
)

// Stats is the aggregation surface the protocol needs.
type Stats interface {
	FullSnapshot(ctx context.Context, userID int64) (*stats.Snapshot, error)
}

// Ledger is the write surface the protocol needs. Updates coming from the
// rich client go through the same insert path as conversational input.
type Ledger interface {
	Insert(ctx context.Context, userID int64, kind core.Kind, amount decimal.Decimal, category, description string) (core.Transaction, error)
}

type Handler struct {
	ledger Ledger
	stats  Stats
	now    func() time.Time
}

func NewHandler(ledger Ledger, st Stats) *Handler {
	return &Handler{ledger: ledger, stats: st, now: time.Now}
}

// Snapshot returns the current full snapshot for the rich client's fetch
// endpoint. Always freshly computed.
func (h *Handler) Snapshot(ctx context.Context, userID int64) (*stats.Snapshot, error) {
	return h.stats.FullSnapshot(ctx, userID)
}

// Export encodes a fresh point-in-time snapshot of one user's aggregates as
// a flat key/value launch context. Nested category maps are embedded as JSON
// blobs. When the snapshot cannot be computed the context degrades to just
// user_id and timestamp, signaling the client to start from its defaults;
// the failure never propagates to the caller.
func (h *Handler) Export(ctx context.Context, userID int64) url.Values {
	vals := url.Values{}
	vals.Set("user_id", strconv.FormatInt(userID, 10))

	snap, err := h.stats.FullSnapshot(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "Snapshot export degraded to empty context",
			"user_id", userID, "error", err)
		vals.Set("timestamp", strconv.FormatInt(h.now().Unix(), 10))
		return vals
	}

	vals.Set("timestamp", strconv.FormatInt(snap.GeneratedAt.Unix(), 10))
	vals.Set("balance", snap.Balance.String())
	for prefix, ws := range map[string]stats.WindowStats{
		"day":   snap.Day,
		"week":  snap.Week,
		"month": snap.Month,
	} {
		vals.Set(prefix+"Income", ws.TotalIncome.String())
		vals.Set(prefix+"Expense", ws.TotalExpense.String())
		blob, err := json.Marshal(ws.ExpenseByCategory)
		if err != nil {
			blob = []byte("{}")
		}
		vals.Set(prefix+"Expenses", string(blob))
	}
	return vals
}
