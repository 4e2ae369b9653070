// Package storage implements the append-only transaction ledger on SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fromsofaraway/financial-tracker/internal/core"

	_ "modernc.org/sqlite"
)

// dateLayout is the sortable timestamp format used in the date column.
const dateLayout = "2006-01-02 15:04:05"

// Repository is the single source of truth for transaction records.
// Writes are serialized process-wide: the embedded store is not assumed to
// support concurrent writers. Reads need no exclusivity.
type Repository struct {
	db        *sql.DB
	writeMu   sync.Mutex
	maxAmount decimal.Decimal
}

func New(dbPath string, maxAmount decimal.Decimal) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, maxAmount: maxAmount}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// MaxAmount returns the configured inclusive upper bound for amounts.
func (r *Repository) MaxAmount() decimal.Decimal { return r.maxAmount }

// Insert validates and durably appends one transaction record. The id and
// posting timestamp are assigned here, never by the caller. The write is a
// single atomic statement: either the full record is stored or none of it.
func (r *Repository) Insert(ctx context.Context, userID int64, kind core.Kind, amount decimal.Decimal, category, description string) (core.Transaction, error) {
	category = strings.TrimSpace(category)
	description = strings.TrimSpace(description)
	if err := core.ValidateNewTransaction(kind, amount, category, r.maxAmount); err != nil {
		return core.Transaction{}, err
	}

	postedAt := time.Now()

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, type, amount, category, description, date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, string(kind), amount.String(), category, description, postedAt.Format(dateLayout))
	if err != nil {
		return core.Transaction{}, storeErr("insert transaction", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, storeErr("read inserted id", err)
	}

	t := core.Transaction{
		ID:          id,
		UserID:      userID,
		Kind:        kind,
		Amount:      amount,
		Category:    category,
		Description: description,
		PostedAt:    postedAt,
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"user_id", t.UserID,
		"kind", t.Kind,
		"amount", t.Amount,
		"category", t.Category)

	return t, nil
}

// QueryAggregate returns per-kind, per-category sums for one user, optionally
// restricted to records posted at or after since. The result is ordered by
// kind, then category; a user with no matching records yields an empty slice.
//
// Summation happens here with decimal arithmetic rather than SQL SUM: the
// amount column holds decimal text and must never round-trip through floats.
func (r *Repository) QueryAggregate(ctx context.Context, userID int64, since *time.Time) ([]core.CategorySum, error) {
	query := `SELECT type, category, amount FROM transactions WHERE user_id = ?`
	args := []any{userID}
	if since != nil {
		query += ` AND date >= ?`
		args = append(args, since.Format(dateLayout))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("query aggregate", err)
	}
	defer rows.Close()

	type bucket struct {
		kind     core.Kind
		category string
	}
	sums := make(map[bucket]decimal.Decimal)
	for rows.Next() {
		var kind, category, amountStr string
		if err := rows.Scan(&kind, &category, &amountStr); err != nil {
			return nil, storeErr("scan aggregate row", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("stored amount %q is not a decimal: %w", amountStr, err)
		}
		b := bucket{kind: core.Kind(kind), category: category}
		sums[b] = sums[b].Add(amount)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate aggregate rows", err)
	}

	result := make([]core.CategorySum, 0, len(sums))
	for b, sum := range sums {
		result = append(result, core.CategorySum{Kind: b.kind, Category: b.category, Sum: sum})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Kind != result[j].Kind {
			return result[i].Kind < result[j].Kind
		}
		return result[i].Category < result[j].Category
	})
	return result, nil
}

// QueryRecent returns up to limit records for one user, most recent first.
// A non-positive limit yields an empty slice, not an error.
func (r *Repository) QueryRecent(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		return []core.Transaction{}, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, type, amount, category, description, date
		 FROM transactions WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, storeErr("query recent", err)
	}
	defer rows.Close()

	result := make([]core.Transaction, 0, limit)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate recent rows", err)
	}
	return result, nil
}

// GetTransaction retrieves a single record by id, for the export worker.
func (r *Repository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, type, amount, category, description, date
		 FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t         core.Transaction
		kind      string
		amountStr string
		dateStr   string
	)
	if err := row.Scan(&t.ID, &t.UserID, &kind, &amountStr, &t.Category, &t.Description, &dateStr); err != nil {
		return core.Transaction{}, storeErr("scan transaction", err)
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored amount %q is not a decimal: %w", amountStr, err)
	}
	postedAt, err := time.ParseInLocation(dateLayout, dateStr, time.Local)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored date %q is not a timestamp: %w", dateStr, err)
	}
	t.Kind = core.Kind(kind)
	t.Amount = amount
	t.PostedAt = postedAt
	return t, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, core.ErrStoreUnavailable, err)
}
