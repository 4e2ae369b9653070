// Package stats computes balances and windowed aggregates from the ledger.
// Nothing here is cached: every call reads the store, so results always
// reflect the latest committed writes.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fromsofaraway/financial-tracker/internal/core"
)

const (
	Day   Window = "day"
	Week  Window = "week"
	Month Window = "month"
)

// Window is a canonical clock-derived time range, always relative to now.
type Window string

// ParseWindow validates a window token.
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case Day, Week, Month:
		return Window(s), nil
	default:
		return "", core.NewValidationError("unknown stats window %q", s)
	}
}

// Ledger is the read surface of the transaction store the engine needs.
type Ledger interface {
	QueryAggregate(ctx context.Context, userID int64, since *time.Time) ([]core.CategorySum, error)
	QueryRecent(ctx context.Context, userID int64, limit int) ([]core.Transaction, error)
}

// WindowStats holds the aggregates for one window. Categories with a zero
// total are omitted from the maps, so the per-category values always sum
// exactly to the totals.
type WindowStats struct {
	Window            Window                     `json:"window"`
	Start             time.Time                  `json:"start"`
	TotalIncome       decimal.Decimal            `json:"total_income"`
	TotalExpense      decimal.Decimal            `json:"total_expense"`
	IncomeByCategory  map[string]decimal.Decimal `json:"income_by_category"`
	ExpenseByCategory map[string]decimal.Decimal `json:"expense_by_category"`
}

// Snapshot is a freshly computed aggregate view of one user's ledger.
// It is never persisted.
type Snapshot struct {
	UserID      int64              `json:"user_id"`
	Balance     decimal.Decimal    `json:"balance"`
	Day         WindowStats        `json:"day"`
	Week        WindowStats        `json:"week"`
	Month       WindowStats        `json:"month"`
	Recent      []core.Transaction `json:"recent"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Engine derives aggregates on demand. It holds no state of its own and
// never mutates the ledger.
type Engine struct {
	ledger      Ledger
	recentLimit int
	now         func() time.Time
}

func NewEngine(ledger Ledger, recentLimit int) *Engine {
	return &Engine{ledger: ledger, recentLimit: recentLimit, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Balance returns the all-time signed sum for one user: income positive,
// expense negative.
func (e *Engine) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	sums, err := e.ledger.QueryAggregate(ctx, userID, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance: %w", err)
	}
	balance := decimal.Zero
	for _, s := range sums {
		if s.Kind == core.Income {
			balance = balance.Add(s.Sum)
		} else {
			balance = balance.Sub(s.Sum)
		}
	}
	return balance, nil
}

// WindowStats aggregates one user's records inside the given window.
func (e *Engine) WindowStats(ctx context.Context, userID int64, w Window) (WindowStats, error) {
	start := e.windowStart(w)
	sums, err := e.ledger.QueryAggregate(ctx, userID, &start)
	if err != nil {
		return WindowStats{}, fmt.Errorf("window stats %s: %w", w, err)
	}

	ws := WindowStats{
		Window:            w,
		Start:             start,
		TotalIncome:       decimal.Zero,
		TotalExpense:      decimal.Zero,
		IncomeByCategory:  map[string]decimal.Decimal{},
		ExpenseByCategory: map[string]decimal.Decimal{},
	}
	for _, s := range sums {
		if s.Sum.IsZero() {
			continue
		}
		if s.Kind == core.Income {
			ws.IncomeByCategory[s.Category] = s.Sum
			ws.TotalIncome = ws.TotalIncome.Add(s.Sum)
		} else {
			ws.ExpenseByCategory[s.Category] = s.Sum
			ws.TotalExpense = ws.TotalExpense.Add(s.Sum)
		}
	}
	return ws, nil
}

// FullSnapshot composes the balance, all three canonical windows and the
// most recent records into one structure. It is recomputed on every call so
// that it reflects writes committed by the caller just before.
func (e *Engine) FullSnapshot(ctx context.Context, userID int64) (*Snapshot, error) {
	balance, err := e.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		UserID:      userID,
		Balance:     balance,
		GeneratedAt: e.now(),
	}
	for _, w := range []Window{Day, Week, Month} {
		ws, err := e.WindowStats(ctx, userID, w)
		if err != nil {
			return nil, err
		}
		switch w {
		case Day:
			snap.Day = ws
		case Week:
			snap.Week = ws
		case Month:
			snap.Month = ws
		}
	}

	recent, err := e.ledger.QueryRecent(ctx, userID, e.recentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	snap.Recent = recent
	return snap, nil
}

// windowStart computes the deterministic lower bound of a window: start of
// the current day, the most recent Monday, or the 1st of the current month.
func (e *Engine) windowStart(w Window) time.Time {
	now := e.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch w {
	case Week:
		// Monday-based week
		offset := (int(midnight.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -offset)
	case Month:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	default:
		return midnight
	}
}
