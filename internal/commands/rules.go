package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/auditlog"
	"github.com/cleared-dev/tally/internal/rules"
	"github.com/cleared-dev/tally/internal/scheduler"
)

func newRulesCommand(g *globals) *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage categorization overrides",
	}
	rulesCmd.AddCommand(newRulesAddCommand(g), newRulesListCommand(g))
	return rulesCmd
}

func newRulesAddCommand(g *globals) *cobra.Command {
	var o rules.Override
	var noApply bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or replace an override and re-apply it to stored transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w, err := g.open(cmd)
			if err != nil {
				return err
			}
			if !w.chart.Exists(o.Account) {
				return fmt.Errorf("override %q: unknown account %s", o.Name, o.Account)
			}
			if err := w.table().AddOverride(o); err != nil {
				return err
			}
			if err := w.table().Save(w.root); err != nil {
				return err
			}
			entry := auditlog.Entry{
				Timestamp:   time.Now(),
				Actor:       auditlog.ActorManual,
				Action:      auditlog.ActionOverride,
				AccountCode: o.Account,
				Details:     o.Name + " " + o.Pattern,
			}
			if err := auditlog.Append(w.root, []auditlog.Entry{entry}); err != nil {
				w.log.Error("writing allocation log", zap.Error(err))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Override %s: %s -> %s\n", o.Name, o.Pattern, o.Account)
			if noApply {
				_, err := w.commit(ctx, "rules: add override "+o.Name)
				return err
			}

			res, err := reallocate(ctx, w, scheduler.ModeReactive, scheduler.ScopeAll)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d transactions reallocated\n", res.Changed)
			_, err = w.commit(ctx, "rules: add override "+o.Name)
			return err
		},
	}

	cmd.Flags().StringVar(&o.Name, "name", "", "override name (required)")
	cmd.Flags().StringVar(&o.Pattern, "pattern", "", "regular expression matched against descriptions (required)")
	cmd.Flags().StringVar(&o.Account, "account", "", "account code (required)")
	cmd.Flags().BoolVar(&noApply, "no-apply", false, "save the override without reallocating")
	for _, f := range []string{"name", "pattern", "account"} {
		_ = cmd.MarkFlagRequired(f)
	}

	return cmd
}

func newRulesListCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List overrides in match order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := g.open(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, o := range w.table().Overrides {
				fmt.Fprintf(out, "%-24s %-6s %s\n", o.Name, o.Account, o.Pattern)
			}
			return nil
		},
	}
}
