package reconcile

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

// DefaultTolerance is the largest discrepancy still reported as balanced,
// exclusive.
var DefaultTolerance = decimal.New(1, -2)

// Row is the running balance after one transaction.
type Row struct {
	Index         int // position in the input slice
	TransactionID string
	Date          time.Time
	Balance       decimal.Decimal
}

// Result is a computed running balance over a set of transactions.
type Result struct {
	Rows         []Row
	Opening      decimal.Decimal
	Ending       decimal.Decimal
	TotalDebits  decimal.Decimal
	TotalCredits decimal.Decimal
}

// BalanceCheck compares a balance printed on a statement with the computed one.
type BalanceCheck struct {
	Expected    decimal.Decimal
	Calculated  decimal.Decimal
	Discrepancy decimal.Decimal // calculated - expected
	Balanced    bool
}

// Divergence is a transaction whose printed running balance disagrees with
// the computed one.
type Divergence struct {
	Row     Row
	Printed decimal.Decimal
}

// Report is a full reconciliation.
type Report struct {
	Result
	Opening     *BalanceCheck
	Ending      *BalanceCheck
	Divergences []Divergence
}

// Balanced reports whether every check that was requested passed.
func (r Report) Balanced() bool {
	if r.Opening != nil && !r.Opening.Balanced {
		return false
	}
	if r.Ending != nil && !r.Ending.Balanced {
		return false
	}
	return true
}

// Engine reconciles with a fixed tolerance.
type Engine struct {
	Tolerance decimal.Decimal
}

// NewEngine returns an Engine. A non-positive tolerance uses DefaultTolerance.
func NewEngine(tolerance decimal.Decimal) *Engine {
	if !tolerance.IsPositive() {
		tolerance = DefaultTolerance
	}
	return &Engine{Tolerance: tolerance}
}

// Compute folds transactions, stably sorted by date, into running balances
// starting from opening. Input order breaks ties between equal dates.
func Compute(txns []model.Transaction, opening decimal.Decimal) Result {
	order := make([]int, len(txns))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return txns[a].Date.Compare(txns[b].Date)
	})

	res := Result{
		Rows:         make([]Row, 0, len(txns)),
		Opening:      opening,
		TotalDebits:  decimal.Zero,
		TotalCredits: decimal.Zero,
	}
	bal := opening
	for _, i := range order {
		txn := txns[i]
		bal = bal.Add(txn.Credit).Sub(txn.Debit)
		res.TotalDebits = res.TotalDebits.Add(txn.Debit)
		res.TotalCredits = res.TotalCredits.Add(txn.Credit)
		res.Rows = append(res.Rows, Row{
			Index:         i,
			TransactionID: txn.ID,
			Date:          txn.Date,
			Balance:       bal,
		})
	}
	res.Ending = bal
	return res
}

// Check compares expected against calculated with DefaultTolerance.
func Check(expected, calculated decimal.Decimal) BalanceCheck {
	return NewEngine(DefaultTolerance).Check(expected, calculated)
}

// Check compares expected against calculated.
func (e *Engine) Check(expected, calculated decimal.Decimal) BalanceCheck {
	diff := calculated.Sub(expected)
	return BalanceCheck{
		Expected:    expected,
		Calculated:  calculated,
		Discrepancy: diff,
		Balanced:    diff.Abs().LessThan(e.Tolerance),
	}
}

// Reconcile computes balances and checks them with DefaultTolerance.
func Reconcile(txns []model.Transaction, opening decimal.Decimal, expectedOpening, expectedEnding decimal.NullDecimal) Report {
	return NewEngine(DefaultTolerance).Reconcile(txns, opening, expectedOpening, expectedEnding)
}

// Reconcile computes balances from opening and checks the opening and ending
// balances that are known. Printed per-transaction balances that disagree
// with the computed ones are listed in statement order.
func (e *Engine) Reconcile(txns []model.Transaction, opening decimal.Decimal, expectedOpening, expectedEnding decimal.NullDecimal) Report {
	rep := Report{Result: Compute(txns, opening)}
	if expectedOpening.Valid {
		c := e.Check(expectedOpening.Decimal, opening)
		rep.Opening = &c
	}
	if expectedEnding.Valid {
		c := e.Check(expectedEnding.Decimal, rep.Result.Ending)
		rep.Ending = &c
	}
	for _, row := range rep.Rows {
		printed := txns[row.Index].Balance
		if !printed.Valid {
			continue
		}
		if !e.Check(printed.Decimal, row.Balance).Balanced {
			rep.Divergences = append(rep.Divergences, Divergence{Row: row, Printed: printed.Decimal})
		}
	}
	return rep
}
