package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the allocation state of a transaction.
type Status string

const (
	StatusUnmatched Status = "unmatched"
	StatusMatched   Status = "matched"
	StatusAIMatched Status = "ai_matched"
	StatusManual    Status = "manual"
	StatusError     Status = "error"
)

// WarningAmbiguousDirection marks a transaction whose debit/credit side was
// guessed from description keywords.
const WarningAmbiguousDirection = "ambiguous_direction"

// Transaction is one normalized statement line.
type Transaction struct {
	ID                    string
	Date                  time.Time
	Description           string
	NormalizedDescription string
	Debit                 decimal.Decimal // zero if credit side
	Credit                decimal.Decimal // zero if debit side
	Balance               decimal.NullDecimal
	VendorID              string
	AccountCode           string
	AccountName           string
	Category              string
	Status                Status
	Warning               string
	Source                string
	Fingerprint           string
}

// IsDebit reports whether money left the account.
func (t Transaction) IsDebit() bool {
	return !t.Debit.IsZero()
}

// Amount returns the absolute transaction amount.
func (t Transaction) Amount() decimal.Decimal {
	if t.IsDebit() {
		return t.Debit
	}
	return t.Credit
}

// Signed returns credit minus debit.
func (t Transaction) Signed() decimal.Decimal {
	return t.Credit.Sub(t.Debit)
}

// Date returns a UTC calendar date with no time component.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
