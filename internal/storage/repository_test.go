package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fromsofaraway/financial-tracker/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "test.db"), decimal.NewFromInt(1_000_000))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestInsertAssignsIDAndTimestamp(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.Insert(ctx, 7, core.Income, decimal.NewFromInt(1500), "Доход", "зарплата")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if first.ID <= 0 {
		t.Fatalf("expected assigned id, got %d", first.ID)
	}
	if first.PostedAt.IsZero() {
		t.Fatalf("expected assigned timestamp")
	}

	second, err := repo.Insert(ctx, 7, core.Expense, decimal.NewFromInt(500), "Кофе", "")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if second.ID <= first.ID {
		t.Fatalf("expected monotonic ids, got %d then %d", first.ID, second.ID)
	}
}

func TestInsertValidationBoundaries(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	max := repo.MaxAmount()

	cases := []struct {
		name   string
		kind   core.Kind
		amount decimal.Decimal
		ok     bool
	}{
		{"zero", core.Income, decimal.Zero, false},
		{"negative", core.Income, decimal.NewFromInt(-5), false},
		{"at max", core.Income, max, true},
		{"just above max", core.Income, max.Add(decimal.RequireFromString("0.01")), false},
		{"bad kind", core.Kind("loan"), decimal.NewFromInt(1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := repo.Insert(ctx, 1, tc.kind, tc.amount, "Кофе", "")
			if tc.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatalf("expected error")
				}
				if !core.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
			}
		})
	}

	// Rejected inserts must leave no trace
	recent, err := repo.QueryRecent(ctx, 1, 50)
	if err != nil {
		t.Fatalf("query recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected exactly the one valid record, got %d", len(recent))
	}
}

func TestQueryAggregateGroupsAndOrders(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	inserts := []struct {
		kind     core.Kind
		amount   string
		category string
	}{
		{core.Income, "1000", "Доход"},
		{core.Income, "500.50", "Доход"},
		{core.Expense, "200", "Кофе"},
		{core.Expense, "100", "Транспорт"},
		{core.Expense, "50", "Кофе"},
	}
	for _, in := range inserts {
		if _, err := repo.Insert(ctx, 3, in.kind, decimal.RequireFromString(in.amount), in.category, ""); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	// Another user's data must not leak in
	if _, err := repo.Insert(ctx, 4, core.Expense, decimal.NewFromInt(999), "Кофе", ""); err != nil {
		t.Fatalf("insert: %v", err)
	}

	sums, err := repo.QueryAggregate(ctx, 3, nil)
	if err != nil {
		t.Fatalf("query aggregate: %v", err)
	}

	want := []struct {
		kind     core.Kind
		category string
		sum      string
	}{
		{core.Expense, "Кофе", "250"},
		{core.Expense, "Транспорт", "100"},
		{core.Income, "Доход", "1500.50"},
	}
	if len(sums) != len(want) {
		t.Fatalf("expected %d buckets, got %d: %v", len(want), len(sums), sums)
	}
	for i, w := range want {
		got := sums[i]
		if got.Kind != w.kind || got.Category != w.category || !got.Sum.Equal(decimal.RequireFromString(w.sum)) {
			t.Fatalf("bucket %d = %v/%v/%s, want %v/%v/%s",
				i, got.Kind, got.Category, got.Sum, w.kind, w.category, w.sum)
		}
	}
}

func TestQueryAggregateSinceFilter(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Insert(ctx, 5, core.Expense, decimal.NewFromInt(100), "Кофе", ""); err != nil {
		t.Fatalf("insert: %v", err)
	}

	future := time.Now().Add(time.Hour)
	sums, err := repo.QueryAggregate(ctx, 5, &future)
	if err != nil {
		t.Fatalf("query aggregate: %v", err)
	}
	if len(sums) != 0 {
		t.Fatalf("expected no records after future cutoff, got %d", len(sums))
	}

	past := time.Now().Add(-time.Hour)
	sums, err = repo.QueryAggregate(ctx, 5, &past)
	if err != nil {
		t.Fatalf("query aggregate: %v", err)
	}
	if len(sums) != 1 {
		t.Fatalf("expected one bucket after past cutoff, got %d", len(sums))
	}
}

func TestQueryAggregateEmptyUser(t *testing.T) {
	repo := newTestRepo(t)
	sums, err := repo.QueryAggregate(context.Background(), 42, nil)
	if err != nil {
		t.Fatalf("query aggregate: %v", err)
	}
	if len(sums) != 0 {
		t.Fatalf("expected empty result for unknown user, got %d", len(sums))
	}
}

func TestQueryRecentOrderAndLimit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var lastID int64
	for i := 1; i <= 5; i++ {
		tx, err := repo.Insert(ctx, 8, core.Income, decimal.NewFromInt(int64(i)), "Доход", "")
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		lastID = tx.ID
	}

	recent, err := repo.QueryRecent(ctx, 8, 3)
	if err != nil {
		t.Fatalf("query recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recent))
	}
	if recent[0].ID != lastID {
		t.Fatalf("expected most recent first, got id %d want %d", recent[0].ID, lastID)
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].ID >= recent[i-1].ID {
			t.Fatalf("expected descending ids, got %d then %d", recent[i-1].ID, recent[i].ID)
		}
	}

	empty, err := repo.QueryRecent(ctx, 8, 0)
	if err != nil {
		t.Fatalf("query recent limit 0: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty result for limit 0, got %d", len(empty))
	}

	empty, err = repo.QueryRecent(ctx, 8, -1)
	if err != nil {
		t.Fatalf("query recent limit -1: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty result for negative limit, got %d", len(empty))
	}
}

func TestGetTransactionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	inserted, err := repo.Insert(ctx, 9, core.Expense, decimal.RequireFromString("123.45"), "Одежда", "куртка")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.GetTransaction(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if got.UserID != 9 || got.Kind != core.Expense || got.Category != "Одежда" || got.Description != "куртка" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.Amount.Equal(inserted.Amount) {
		t.Fatalf("amount mismatch: %s want %s", got.Amount, inserted.Amount)
	}
}
