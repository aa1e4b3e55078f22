package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/buildinfo"
	"github.com/cleared-dev/tally/internal/logging"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	repo  string
	debug bool
}

// open loads the repo named by --repo with the command's logger.
func (g *globals) open(cmd *cobra.Command) (*workspace, error) {
	return openWorkspace(g.repo, logging.FromContext(cmd.Context()))
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:     "tally",
		Short:   "Parse, categorize and reconcile bank statements",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.New(g.debug)
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(logging.WithContext(ctx, log))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.FromContext(cmd.Context()).Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.repo, "repo", ".", "data repository directory")
	rootCmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "human-readable debug logging")

	rootCmd.AddCommand(
		newInitCommand(),
		newImportCommand(g),
		newRecategorizeCommand(g),
		newWatchCommand(g),
		newReconcileCommand(g),
		newDuplicatesCommand(g),
		newTransfersCommand(g),
		newEnrichCommand(g),
		newRulesCommand(g),
		newAssignCommand(g),
	)

	return rootCmd
}
