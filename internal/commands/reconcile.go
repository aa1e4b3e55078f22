package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/reconcile"
)

func newReconcileCommand(g *globals) *cobra.Command {
	var (
		opening, expected, expectedOpening string
		source, from, to                   string
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compute running balances and check them against a statement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := g.open(cmd)
			if err != nil {
				return err
			}

			open, err := decimal.NewFromString(opening)
			if err != nil {
				return fmt.Errorf("parsing --opening %q: %w", opening, err)
			}
			wantEnding, err := optionalDecimal("--expected", expected)
			if err != nil {
				return err
			}
			wantOpening, err := optionalDecimal("--expected-opening", expectedOpening)
			if err != nil {
				return err
			}
			txns, err := selectTransactions(w.store.All(), source, from, to)
			if err != nil {
				return err
			}

			engine := reconcile.NewEngine(config.Decimal(w.cfg.Reconciliation.Tolerance))
			rep := engine.Reconcile(txns, open, wantOpening, wantEnding)
			printReport(cmd.OutOrStdout(), rep, txns)
			if !rep.Balanced() {
				return fmt.Errorf("out of balance")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opening, "opening", "0", "opening balance")
	cmd.Flags().StringVar(&expected, "expected", "", "expected ending balance")
	cmd.Flags().StringVar(&expectedOpening, "expected-opening", "", "expected opening balance")
	cmd.Flags().StringVar(&source, "source", "", "only transactions imported from this statement file")
	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD")

	return cmd
}

func optionalDecimal(flag, s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("parsing %s %q: %w", flag, s, err)
	}
	return decimal.NewNullDecimal(d), nil
}

// selectTransactions filters by source file and inclusive date range.
func selectTransactions(txns []model.Transaction, source, from, to string) ([]model.Transaction, error) {
	var start, end time.Time
	var err error
	if from != "" {
		if start, err = time.Parse(time.DateOnly, from); err != nil {
			return nil, fmt.Errorf("parsing --from: %w", err)
		}
	}
	if to != "" {
		if end, err = time.Parse(time.DateOnly, to); err != nil {
			return nil, fmt.Errorf("parsing --to: %w", err)
		}
	}

	var out []model.Transaction
	for _, txn := range txns {
		if source != "" && txn.Source != source {
			continue
		}
		if !start.IsZero() && txn.Date.Before(start) {
			continue
		}
		if !end.IsZero() && txn.Date.After(end) {
			continue
		}
		out = append(out, txn)
	}
	return out, nil
}

func printReport(w io.Writer, rep reconcile.Report, txns []model.Transaction) {
	fmt.Fprintf(w, "Transactions: %d\n", len(rep.Rows))
	fmt.Fprintf(w, "Opening:      %s\n", rep.Result.Opening.StringFixed(2))
	fmt.Fprintf(w, "Debits:       %s\n", rep.TotalDebits.StringFixed(2))
	fmt.Fprintf(w, "Credits:      %s\n", rep.TotalCredits.StringFixed(2))
	fmt.Fprintf(w, "Ending:       %s\n", rep.Result.Ending.StringFixed(2))

	check := func(label string, c *reconcile.BalanceCheck) {
		if c == nil {
			return
		}
		state := "balanced"
		if !c.Balanced {
			state = "OUT OF BALANCE"
		}
		fmt.Fprintf(w, "%s %s: %s (discrepancy %s)\n", label, c.Expected.StringFixed(2), state, c.Discrepancy.StringFixed(2))
	}
	check("Expected opening", rep.Opening)
	check("Expected ending", rep.Ending)

	for _, d := range rep.Divergences {
		txn := txns[d.Row.Index]
		fmt.Fprintf(w, "Divergence %s %s %q: computed %s, statement %s\n",
			d.Row.TransactionID, d.Row.Date.Format(time.DateOnly), txn.Description,
			d.Row.Balance.StringFixed(2), d.Printed.StringFixed(2))
	}
}
