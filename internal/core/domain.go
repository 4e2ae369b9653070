package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

type (
	// Kind is the direction of a transaction. The stored amount is always
	// positive; sign is carried only by the kind.
	Kind string

	// Transaction is one posted financial event. Records are append-only:
	// once inserted they are never updated or deleted.
	Transaction struct {
		ID          int64           `json:"id"`
		UserID      int64           `json:"user_id"`
		Kind        Kind            `json:"kind"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
		Description string          `json:"description,omitempty"`
		PostedAt    time.Time       `json:"posted_at"`
	}

	// CategorySum is one row of an aggregate query: the summed amount of all
	// records sharing a kind and category.
	CategorySum struct {
		Kind     Kind
		Category string
		Sum      decimal.Decimal
	}
)

// ErrStoreUnavailable classifies failures of the underlying store. Callers
// surface it as a whole-operation failure with a generic retry message.
var ErrStoreUnavailable = errors.New("store unavailable")

// ValidationError reports a constraint violation on user-supplied input.
// It is always recoverable: nothing has been written when it is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ParseKind validates a transaction kind token.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	default:
		return "", NewValidationError("unknown transaction kind %q: must be %q or %q", s, Income, Expense)
	}
}

// Signed returns the amount with the sign implied by the kind: positive for
// income, negative for expense.
func (t Transaction) Signed() decimal.Decimal {
	if t.Kind == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// ValidateNewTransaction checks the fields of a transaction about to be
// inserted. maxAmount is the configured upper bound (inclusive).
func ValidateNewTransaction(kind Kind, amount decimal.Decimal, category string, maxAmount decimal.Decimal) error {
	if _, err := ParseKind(string(kind)); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return NewValidationError("amount must be positive, got %s", amount)
	}
	if amount.GreaterThan(maxAmount) {
		return NewValidationError("amount %s exceeds the maximum of %s", amount, maxAmount)
	}
	if strings.TrimSpace(category) == "" {
		return NewValidationError("category must not be empty")
	}
	return nil
}
