// Package core provides the domain model shared by the conversational
// front-end, the ledger store and the sync protocol.
//
// This file contains parsing of free-text amount input: a numeric head and
// an optional free-text description tail.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmountInput splits free text into a positive decimal amount and an
// optional description. The text is cut on the first whitespace run: the head
// must parse as a positive decimal number, the remainder becomes the
// description. Both dot (12.34) and comma (12,34) decimal separators are
// accepted.
//
// Examples:
//
//	ParseAmountInput("1500")              -> 1500, ""
//	ParseAmountInput("1500 зарплата")     -> 1500, "зарплата"
//	ParseAmountInput("500,50 обед в кафе") -> 500.50, "обед в кафе"
func ParseAmountInput(text string) (decimal.Decimal, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, "", NewValidationError("amount must not be empty")
	}

	head := text
	tail := ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		head = text[:i]
		tail = strings.TrimSpace(text[i:])
	}

	// Normalize decimal comma to dot
	head = strings.ReplaceAll(head, ",", ".")

	amount, err := decimal.NewFromString(head)
	if err != nil {
		return decimal.Zero, "", NewValidationError("%q is not a valid amount", head)
	}
	if !amount.IsPositive() {
		return decimal.Zero, "", NewValidationError("amount must be positive, got %s", amount)
	}
	return amount, tail, nil
}
