package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/auditlog"
	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/enrich"
)

func newEnrichCommand(g *globals) *cobra.Command {
	var endpoint string

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Rename raw vendors using a web search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w, err := g.open(cmd)
			if err != nil {
				return err
			}
			if !w.cfg.Enrichment.Enabled {
				return fmt.Errorf("enrichment is disabled; set enrichment.enabled in %s", config.FileName)
			}
			secrets, err := config.LoadSecrets(w.root)
			if err != nil {
				return err
			}
			engineID := w.cfg.Enrichment.SearchEngineID
			if secrets.SearchEngineID != "" {
				engineID = secrets.SearchEngineID
			}

			client, err := enrich.New(ctx, enrich.Config{
				APIKey:   secrets.SearchAPIKey,
				EngineID: engineID,
				MinDelay: w.cfg.Enrichment.MinDelay,
				Endpoint: endpoint,
			}, w.log)
			if errors.Is(err, enrich.ErrNotConfigured) {
				return fmt.Errorf("%w: set %s_SEARCH_API_KEY and a search engine id", err, config.EnvPrefix)
			}
			if err != nil {
				return err
			}

			renamed, runErr := enrich.RenameVendors(ctx, client, w.dictionary(), w.log)
			if errors.Is(runErr, enrich.ErrDisabled) {
				w.log.Warn("search API rate limited, stopping", zap.Int("renamed", len(renamed)))
				runErr = nil
			}

			out := cmd.OutOrStdout()
			for _, v := range renamed {
				fmt.Fprintf(out, "%s: %s\n", v.ID, v.Name)
			}
			fmt.Fprintf(out, "%d vendors renamed\n", len(renamed))
			if len(renamed) == 0 {
				return runErr
			}

			if err := w.dictionary().Save(w.root); err != nil {
				return err
			}
			now := time.Now()
			entries := make([]auditlog.Entry, len(renamed))
			for i, v := range renamed {
				entries[i] = auditlog.Entry{
					Timestamp: now,
					Actor:     auditlog.ActorManual,
					Action:    auditlog.ActionRename,
					VendorID:  v.ID,
					Details:   v.Name,
				}
			}
			if err := auditlog.Append(w.root, entries); err != nil {
				w.log.Error("writing allocation log", zap.Error(err))
			}
			if _, err := w.commit(ctx, fmt.Sprintf("enrich: rename %d vendors", len(renamed))); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "search API base URL")
	_ = cmd.Flags().MarkHidden("endpoint")

	return cmd
}
