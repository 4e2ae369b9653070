package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseKind(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"income", Income, true},
		{"expense", Expense, true},
		{"Income", Income, true},
		{" expense ", Expense, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseKind(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParseKind(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParseKind(%q): expected error", tc.in)
		}
	}
}

func TestTransactionSigned(t *testing.T) {
	amount := decimal.NewFromInt(250)
	income := Transaction{Kind: Income, Amount: amount}
	if !income.Signed().Equal(amount) {
		t.Fatalf("income signed = %s, want %s", income.Signed(), amount)
	}
	expense := Transaction{Kind: Expense, Amount: amount}
	if !expense.Signed().Equal(amount.Neg()) {
		t.Fatalf("expense signed = %s, want %s", expense.Signed(), amount.Neg())
	}
}

func TestValidateNewTransaction(t *testing.T) {
	max := decimal.NewFromInt(1000)
	cases := []struct {
		name     string
		kind     Kind
		amount   decimal.Decimal
		category string
		ok       bool
	}{
		{"valid income", Income, decimal.NewFromInt(1), "Доход", true},
		{"valid expense at max", Expense, decimal.NewFromInt(1000), "Кофе", true},
		{"zero amount", Income, decimal.Zero, "Доход", false},
		{"negative amount", Expense, decimal.NewFromInt(-5), "Кофе", false},
		{"just above max", Income, decimal.RequireFromString("1000.01"), "Доход", false},
		{"bad kind", Kind("transfer"), decimal.NewFromInt(1), "Доход", false},
		{"empty category", Income, decimal.NewFromInt(1), "  ", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateNewTransaction(tc.kind, tc.amount, tc.category, max)
			if tc.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatalf("expected error")
				}
				if !IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
			}
		})
	}
}

func TestIsValidation(t *testing.T) {
	if !IsValidation(NewValidationError("bad input")) {
		t.Fatalf("direct validation error not recognized")
	}
	wrapped := fmt.Errorf("insert: %w", NewValidationError("bad input"))
	if !IsValidation(wrapped) {
		t.Fatalf("wrapped validation error not recognized")
	}
	if IsValidation(errors.New("plain")) {
		t.Fatalf("plain error misclassified as validation")
	}
	if IsValidation(ErrStoreUnavailable) {
		t.Fatalf("store error misclassified as validation")
	}
}
