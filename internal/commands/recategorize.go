package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/scheduler"
)

func newRecategorizeCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "recategorize",
		Short: "Re-apply vendors and rules to every stored transaction once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := g.open(cmd)
			if err != nil {
				return err
			}
			res, err := reallocate(cmd.Context(), w, scheduler.ModePoll, scheduler.ScopeAll)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d checked, %d changed, %d errors\n", res.Checked, res.Changed, res.Errors)
			if !res.Dirty() {
				return nil
			}
			_, err = w.commit(cmd.Context(), fmt.Sprintf("recategorize: %d transactions", res.Changed+res.Refreshed))
			return err
		},
	}
}

// reallocate runs one tick over scope and saves the ledger when it wrote
// anything.
func reallocate(ctx context.Context, w *workspace, mode scheduler.Mode, scope scheduler.Scope) (scheduler.TickResult, error) {
	s := w.scheduler(mode)
	s.Invalidate(scope)
	res, err := s.Tick(ctx)
	if err != nil {
		return res, err
	}
	if res.Dirty() {
		if err := w.store.Save(); err != nil {
			return res, err
		}
	}
	return res, nil
}

func newWatchCommand(g *globals) *cobra.Command {
	var interval time.Duration
	var mode string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Recategorize in the background until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := g.open(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("interval") {
				w.cfg.Scheduler.Interval = interval
			}
			if cmd.Flags().Changed("mode") {
				w.cfg.Scheduler.Mode = mode
			}
			if err := w.cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, w)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", scheduler.DefaultInterval, "time between ticks")
	cmd.Flags().StringVar(&mode, "mode", "", "poll or reactive (default from tally.yaml)")

	return cmd
}

// runWatch runs the scheduler and reloads the rule table whenever its file
// changes, invalidating every transaction.
func runWatch(ctx context.Context, w *workspace) error {
	s := w.scheduler(scheduler.Mode(w.cfg.Scheduler.Mode))
	s.Bus().Subscribe(func(ctx context.Context, ev scheduler.Event) {
		if err := w.store.Save(); err != nil {
			w.log.Error("saving ledger", zap.Error(err))
			return
		}
		if _, err := w.commit(ctx, fmt.Sprintf("recategorize: %d transactions", len(ev.Transactions))); err != nil {
			w.log.Error("committing", zap.Error(err))
		}
	})
	s.Invalidate(scheduler.ScopeAll)

	interval := w.cfg.Scheduler.Interval
	if interval <= 0 {
		interval = scheduler.DefaultInterval
	}
	go watchRules(ctx, w, s, interval)
	if err := s.Run(ctx); err != nil {
		return err
	}
	// Refreshes are not published, so persist them on the way out.
	return w.store.Save()
}

func watchRules(ctx context.Context, w *workspace, s *scheduler.Scheduler, interval time.Duration) {
	path := filepath.Join(w.root, "rules", "categorization-rules.yaml")
	modTime := func() time.Time {
		info, err := os.Stat(path)
		if err != nil {
			return time.Time{}
		}
		return info.ModTime()
	}

	last := modTime()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mt := modTime()
			if mt.Equal(last) {
				continue
			}
			last = mt
			if err := w.reloadRules(); err != nil {
				w.log.Warn("reloading rules", zap.Error(err))
				continue
			}
			w.log.Info("rules changed")
			s.Invalidate(scheduler.ScopeAll)
		}
	}
}
