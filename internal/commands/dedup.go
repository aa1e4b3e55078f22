package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/dedup"
)

func newDuplicatesCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicates",
		Short: "List stored transactions that share a fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := g.open(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			groups := w.fingerprinter().FindDuplicates(w.store.All())
			if len(groups) == 0 {
				fmt.Fprintln(out, "No duplicates.")
				return nil
			}
			for _, grp := range groups {
				fmt.Fprintf(out, "%s:", grp.Fingerprint)
				for _, id := range grp.IDs {
					fmt.Fprintf(out, " %s", id)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func newTransfersCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "transfers",
		Short: "Pair money leaving one account with money arriving in another",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := g.open(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			pairs := dedup.FindTransfers(w.store.All(),
				w.cfg.Dedup.TransferWindow(), config.Decimal(w.cfg.Dedup.TransferTolerance))
			if len(pairs) == 0 {
				fmt.Fprintln(out, "No transfers.")
				return nil
			}
			for _, p := range pairs {
				fmt.Fprintf(out, "%s -> %s %s (%s apart)\n", p.OutID, p.InID, p.Amount.StringFixed(2), days(p.Gap))
			}
			return nil
		},
	}
}

func days(d time.Duration) string {
	n := int(d / (24 * time.Hour))
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
