package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/id"
	"github.com/cleared-dev/tally/internal/model"
)

// Rule names reported by ValidateTransactions.
const (
	RuleOneSide   = "one-side"
	RuleNegative  = "negative"
	RuleAccount   = "account"
	RuleDecimals  = "decimals"
	RuleID        = "id"
	RuleDuplicate = "duplicate-id"
)

// ValidationError describes a single invariant violation.
type ValidationError struct {
	Rule          string
	TransactionID string
	Description   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Rule, e.TransactionID, e.Description)
}

// AccountChecker tests whether an account code exists in the chart of accounts.
type AccountChecker interface {
	Exists(code string) bool
}

var hundred = decimal.NewFromInt(100)

// ValidateTransactions checks stored transactions. A nil checker skips the
// account reference check.
func ValidateTransactions(txns []model.Transaction, accounts AccountChecker) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(txns))

	for _, txn := range txns {
		add := func(rule, desc string) {
			errs = append(errs, ValidationError{Rule: rule, TransactionID: txn.ID, Description: desc})
		}

		// Exactly one of debit/credit per row.
		if txn.Debit.IsZero() == txn.Credit.IsZero() {
			add(RuleOneSide, "transaction must have exactly one of debit or credit")
		}

		if txn.Debit.IsNegative() || txn.Credit.IsNegative() {
			add(RuleNegative, "debit and credit must not be negative")
		}

		if accounts != nil && txn.AccountCode != "" && !accounts.Exists(txn.AccountCode) {
			add(RuleAccount, fmt.Sprintf("unknown account %s", txn.AccountCode))
		}

		for _, amt := range []decimal.Decimal{txn.Debit, txn.Credit} {
			if !amt.Mul(hundred).Equal(amt.Mul(hundred).Floor()) {
				add(RuleDecimals, fmt.Sprintf("amount %s has more than 2 decimal places", amt))
			}
		}

		if _, _, _, err := id.ParseTxnID(txn.ID); err != nil {
			add(RuleID, err.Error())
		} else if seen[txn.ID] {
			add(RuleDuplicate, "duplicate transaction ID")
		}
		seen[txn.ID] = true
	}

	return errs
}
