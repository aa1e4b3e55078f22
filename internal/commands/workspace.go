package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/accounts"
	"github.com/cleared-dev/tally/internal/allocator"
	"github.com/cleared-dev/tally/internal/auditlog"
	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/dedup"
	"github.com/cleared-dev/tally/internal/gitops"
	"github.com/cleared-dev/tally/internal/ledger"
	"github.com/cleared-dev/tally/internal/matching"
	"github.com/cleared-dev/tally/internal/rules"
	"github.com/cleared-dev/tally/internal/scheduler"
	"github.com/cleared-dev/tally/internal/vendors"
)

// workspace is a loaded data repo.
type workspace struct {
	root  string
	cfg   *config.Config
	chart *accounts.Service
	store *ledger.Store
	log   *zap.Logger

	mu      sync.Mutex
	vendors *vendors.Dictionary
	rules   *rules.Table
}

func openWorkspace(repo string, log *zap.Logger) (*workspace, error) {
	root, err := filepath.Abs(repo)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.LoadRepo(root)
	if err != nil {
		return nil, fmt.Errorf("%s is not a tally repository: %w", root, err)
	}
	chart, err := accounts.Load(root)
	if err != nil {
		return nil, err
	}
	store, err := ledger.Load(root, chart)
	if err != nil {
		return nil, err
	}
	dict, err := vendors.Load(root)
	if err != nil {
		return nil, err
	}
	table, err := rules.Load(root)
	if err != nil {
		return nil, err
	}
	if verrs := table.Validate(chart); len(verrs) > 0 {
		for _, e := range verrs {
			log.Warn("invalid override", zap.Error(e))
		}
	}
	return &workspace{
		root:    root,
		cfg:     cfg,
		chart:   chart,
		store:   store,
		log:     log,
		vendors: dict,
		rules:   table,
	}, nil
}

func (w *workspace) dictionary() *vendors.Dictionary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.vendors
}

func (w *workspace) setDictionary(d *vendors.Dictionary) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.vendors = d
}

func (w *workspace) table() *rules.Table {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rules
}

// reloadRules rereads the rule table from disk.
func (w *workspace) reloadRules() error {
	table, err := rules.Load(w.root)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.rules = table
	w.mu.Unlock()
	return nil
}

// ruleSnapshot copies the rule table with the configured thresholds applied.
func (w *workspace) ruleSnapshot() *rules.Table {
	src := w.table()
	t := &rules.Table{
		Layers:    slices.Clone(src.Layers),
		Overrides: slices.Clone(src.Overrides),
	}
	w.cfg.Matching.ApplyTo(t)
	return t
}

func (w *workspace) allocatorFor(dict *vendors.Dictionary) *allocator.Allocator {
	m := matching.New(dict.Snapshot(), w.ruleSnapshot())
	return allocator.New(m, w.chart, w.cfg.Allocation.SuspenseAccount)
}

// Snapshot implements scheduler.Source.
func (w *workspace) Snapshot(context.Context) (scheduler.Snapshot, error) {
	return scheduler.Snapshot{
		Transactions: w.store.All(),
		Vendors:      w.dictionary().Snapshot(),
		Accounts:     w.chart,
		Rules:        w.ruleSnapshot(),
	}, nil
}

// scheduler builds a scheduler whose events are written to the allocation log.
func (w *workspace) scheduler(mode scheduler.Mode) *scheduler.Scheduler {
	bus := scheduler.NewBus(w.log)
	bus.Subscribe(auditlog.Subscriber(w.root, w.log))
	return scheduler.New(w, w.store, bus, scheduler.Config{
		Interval: w.cfg.Scheduler.Interval,
		Mode:     mode,
		Suspense: w.cfg.Allocation.SuspenseAccount,
	}, w.log)
}

func (w *workspace) fingerprinter() dedup.Fingerprinter {
	n := w.cfg.Dedup.DescriptionLength
	if n <= 0 {
		n = dedup.DefaultDescriptionLength
	}
	return dedup.Fingerprinter{DescriptionLength: n}
}

func (w *workspace) save() error {
	if err := w.store.Save(); err != nil {
		return err
	}
	if err := w.dictionary().Save(w.root); err != nil {
		return err
	}
	return w.table().Save(w.root)
}

// commit records the repo state when auto-commit is on. It returns "" when
// nothing was committed.
func (w *workspace) commit(ctx context.Context, message string) (string, error) {
	if !w.cfg.Git.AutoCommit || !gitops.IsRepo(w.root) {
		return "", nil
	}
	author := gitops.Author{Name: w.cfg.Git.AuthorName, Email: w.cfg.Git.AuthorEmail}
	hash, err := gitops.CommitAll(ctx, w.root, message, author)
	if errors.Is(err, gitops.ErrNothingToCommit) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}
	w.log.Debug("committed", zap.String("hash", hash), zap.String("message", message))
	return hash, nil
}
