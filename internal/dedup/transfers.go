package dedup

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

// Transfer pairs money leaving one account with money arriving in another.
type Transfer struct {
	OutID  string
	InID   string
	Amount decimal.Decimal // the outgoing leg's amount
	Gap    time.Duration
}

// FindTransfers pairs opposite-direction transactions whose amounts differ by
// less than tolerance, dated at most window apart. Transactions are visited in date
// order and each pairs with the earliest unpaired candidate, so every
// transaction appears in at most one transfer. Non-positive arguments use the
// defaults.
func FindTransfers(txns []model.Transaction, window time.Duration, tolerance decimal.Decimal) []Transfer {
	if window <= 0 {
		window = DefaultTransferWindow
	}
	if !tolerance.IsPositive() {
		tolerance = DefaultTransferTolerance
	}

	order := make([]int, len(txns))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return txns[a].Date.Compare(txns[b].Date)
	})

	paired := make([]bool, len(txns))
	var out []Transfer
	for pos, i := range order {
		if paired[i] {
			continue
		}
		a := txns[i]
		for _, j := range order[pos+1:] {
			b := txns[j]
			gap := b.Date.Sub(a.Date)
			if gap > window {
				break
			}
			if paired[j] || a.IsDebit() == b.IsDebit() {
				continue
			}
			if a.Amount().Sub(b.Amount()).Abs().GreaterThanOrEqual(tolerance) {
				continue
			}
			paired[i], paired[j] = true, true
			t := Transfer{OutID: a.ID, InID: b.ID, Amount: a.Amount(), Gap: gap}
			if !a.IsDebit() {
				t = Transfer{OutID: b.ID, InID: a.ID, Amount: b.Amount(), Gap: gap}
			}
			out = append(out, t)
			break
		}
	}
	return out
}
