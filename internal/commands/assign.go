package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/auditlog"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/scheduler"
)

func newAssignCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <txn-id> <account>",
		Short: "Set a transaction's account by hand and teach its vendor",
		Long: "Assign pins a transaction to an account. Later recategorization leaves it alone. " +
			"The choice is recorded as a vote for the transaction's vendor, and the vendor's other " +
			"transactions are reallocated.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, code := args[0], args[1]
			w, err := g.open(cmd)
			if err != nil {
				return err
			}
			acct, ok := w.chart.Get(code)
			if !ok {
				return fmt.Errorf("unknown account %s", code)
			}

			txn, err := w.store.Update(id, func(t *model.Transaction) {
				t.AccountCode = acct.Code
				t.AccountName = acct.Name
				t.Category = acct.Category
				t.Status = model.StatusManual
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s %s\n", txn.ID, acct.Code, acct.Name)

			if txn.VendorID != "" {
				dict := w.dictionary()
				v, err := w.allocatorFor(dict).Learn(dict, txn.VendorID, acct.Code)
				if err != nil {
					return err
				}
				res, err := reallocate(ctx, w, scheduler.ModeReactive, scheduler.ScopeVendor(v.ID))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s now defaults to %s\n", v.Name, v.DefaultAccountCode)
				fmt.Fprintf(out, "%d transactions reallocated\n", res.Changed)
			}
			if err := w.save(); err != nil {
				return err
			}

			entry := auditlog.FromTransaction(time.Now(), auditlog.ActorManual, auditlog.ActionAssign, txn)
			if err := auditlog.Append(w.root, []auditlog.Entry{entry}); err != nil {
				w.log.Error("writing allocation log", zap.Error(err))
			}
			_, err = w.commit(ctx, fmt.Sprintf("assign: %s -> %s", txn.ID, acct.Code))
			return err
		},
	}
}
