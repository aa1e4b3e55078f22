package statements

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

// maxGap bounds the rows solved together between two printed balances.
const maxGap = 12

var balanceTolerance = decimal.New(1, -2)

var depositRe = regexp.MustCompile(`(?i)deposit|credit|transfer in|refund|reversal|interest earned|payment received|payroll`)

// row is a chequing line with a single unsigned amount whose direction is
// decided afterwards.
type row struct {
	date    time.Time
	desc    string
	amount  decimal.Decimal
	balance decimal.NullDecimal
}

// settle turns chequing rows into transactions. Rows are grouped up to the
// next printed balance, and the debit/credit assignment that moves the
// running balance onto it is chosen. Groups with no such assignment, or with
// no known starting balance, fall back to description keywords and carry
// the ambiguous_direction warning.
func settle(rows []row, opening decimal.NullDecimal) []model.Transaction {
	txns := make([]model.Transaction, len(rows))
	for i, r := range rows {
		txns[i] = model.Transaction{
			Date:        r.date,
			Description: r.desc,
			Balance:     r.balance,
		}
	}

	running := opening
	start := 0
	for i, r := range rows {
		if !r.balance.Valid {
			continue
		}
		group := rows[start : i+1]
		credits, certain := solveGroup(running, group)
		for j := range group {
			setSide(&txns[start+j], group[j].amount, credits[j], !certain)
		}
		running = r.balance
		start = i + 1
	}
	for j := start; j < len(rows); j++ {
		setSide(&txns[j], rows[j].amount, depositRe.MatchString(rows[j].desc), true)
	}
	return txns
}

// solveGroup returns per-row credit flags. certain is false when the flags
// came from keywords or more than one assignment reaches the balance.
func solveGroup(start decimal.NullDecimal, group []row) (credits []bool, certain bool) {
	guess := make([]bool, len(group))
	for j, r := range group {
		guess[j] = depositRe.MatchString(r.desc)
	}
	if !start.Valid || len(group) > maxGap {
		return guess, false
	}

	target := group[len(group)-1].balance.Decimal
	best, bestMisses, solutions := -1, len(group)+1, 0
	for mask := 0; mask < 1<<len(group); mask++ {
		bal := start.Decimal
		for j, r := range group {
			if mask&(1<<j) != 0 {
				bal = bal.Add(r.amount)
			} else {
				bal = bal.Sub(r.amount)
			}
		}
		if bal.Sub(target).Abs().GreaterThanOrEqual(balanceTolerance) {
			continue
		}
		solutions++
		misses := 0
		for j := range group {
			if (mask&(1<<j) != 0) != guess[j] {
				misses++
			}
		}
		if misses < bestMisses {
			best, bestMisses = mask, misses
		}
	}
	if best < 0 {
		return guess, false
	}

	credits = make([]bool, len(group))
	for j := range group {
		credits[j] = best&(1<<j) != 0
	}
	return credits, solutions == 1
}

func setSide(txn *model.Transaction, amt decimal.Decimal, credit, ambiguous bool) {
	if credit {
		txn.Credit = amt
	} else {
		txn.Debit = amt
	}
	if ambiguous {
		txn.Warning = model.WarningAmbiguousDirection
	}
}
