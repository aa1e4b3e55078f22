package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/allocator"
	"github.com/cleared-dev/tally/internal/matching"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/rules"
)

// Mode selects which transactions a tick re-allocates.
type Mode string

const (
	// ModePoll re-allocates every transaction on every tick.
	ModePoll Mode = "poll"
	// ModeReactive re-allocates only transactions invalidated since the
	// last tick.
	ModeReactive Mode = "reactive"
)

// DefaultInterval is the tick period when none is configured.
const DefaultInterval = 30 * time.Second

// Snapshot is the state one tick allocates against.
type Snapshot struct {
	Transactions []model.Transaction
	Vendors      []model.Vendor
	Accounts     allocator.AccountLookup
	Rules        *rules.Table
}

// Source produces snapshots.
type Source interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Snapshot, error)

// Snapshot calls f.
func (f SourceFunc) Snapshot(ctx context.Context) (Snapshot, error) { return f(ctx) }

// Store receives the allocation changes.
type Store interface {
	Update(id string, fn func(t *model.Transaction)) (model.Transaction, error)
}

// Config tunes a Scheduler.
type Config struct {
	Interval time.Duration
	Mode     Mode
	Suspense string
}

// Scope selects transactions to invalidate.
type Scope struct {
	all      bool
	vendorID string
}

// ScopeAll invalidates every transaction, as after an override or cascade
// rule change.
var ScopeAll = Scope{all: true}

// ScopeVendor invalidates the transactions of one vendor, plus unmatched
// transactions the changed vendor may now capture.
func ScopeVendor(id string) Scope { return Scope{vendorID: id} }

// TickResult summarizes one tick. Changed counts transactions whose account
// moved; Refreshed counts those whose vendor, category or status was updated
// under the same account. Only changed transactions are published.
type TickResult struct {
	Checked   int
	Changed   int
	Refreshed int
	Errors    int
}

// Dirty reports whether the tick wrote anything to the store.
func (r TickResult) Dirty() bool { return r.Changed+r.Refreshed > 0 }

// Scheduler periodically re-applies categorization to stored transactions.
type Scheduler struct {
	source Source
	store  Store
	bus    *Bus
	cfg    Config
	log    *zap.Logger
	now    func() time.Time

	mu           sync.Mutex
	dirtyAll     bool
	dirtyVendors map[string]bool
}

// New creates a Scheduler.
func New(source Source, store Store, bus *Bus, cfg Config, log *zap.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Mode == "" {
		cfg.Mode = ModePoll
	}
	if log == nil {
		log = zap.NewNop()
	}
	if bus == nil {
		bus = NewBus(log)
	}
	return &Scheduler{
		source:       source,
		store:        store,
		bus:          bus,
		cfg:          cfg,
		log:          log,
		now:          time.Now,
		dirtyVendors: make(map[string]bool),
	}
}

// Bus returns the bus events are published on.
func (s *Scheduler) Bus() *Bus { return s.bus }

// Invalidate marks transactions for re-allocation on the next reactive tick.
func (s *Scheduler) Invalidate(scope Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if scope.all {
		s.dirtyAll = true
		return
	}
	s.dirtyVendors[scope.vendorID] = true
}

// Run ticks until ctx is done. A tick that overruns the interval causes the
// missed ticks to be dropped.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.log.Info("scheduler started", zap.Duration("interval", s.cfg.Interval), zap.String("mode", string(s.cfg.Mode)))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil {
				s.log.Warn("tick skipped", zap.Error(err))
			}
		}
	}
}

// Tick re-allocates transactions once against a fresh snapshot, applies the
// changed allocations to the store and publishes them. It does nothing when
// the store is empty or, in reactive mode, nothing is invalidated.
func (s *Scheduler) Tick(ctx context.Context) (TickResult, error) {
	all, dirty := s.takeDirty()
	if s.cfg.Mode == ModeReactive && !all && len(dirty) == 0 {
		return TickResult{}, nil
	}

	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		s.restoreDirty(all, dirty)
		return TickResult{}, fmt.Errorf("taking snapshot: %w", err)
	}
	if len(snap.Transactions) == 0 {
		return TickResult{}, nil
	}
	if snap.Accounts == nil {
		s.restoreDirty(all, dirty)
		return TickResult{}, errors.New("snapshot has no chart of accounts")
	}
	if snap.Rules == nil {
		snap.Rules = rules.DefaultTable()
	}

	alloc := allocator.New(matching.New(snap.Vendors, snap.Rules), snap.Accounts, s.cfg.Suspense)
	var (
		res     TickResult
		changed []model.Transaction
	)
	for _, txn := range snap.Transactions {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if txn.Status == model.StatusManual {
			continue
		}
		if s.cfg.Mode == ModeReactive && !all && !inScope(txn, dirty) {
			continue
		}
		res.Checked++

		next := txn
		a, err := safeAllocate(alloc, txn)
		if err != nil {
			res.Errors++
			s.log.Warn("allocation failed", zap.String("txn", txn.ID), zap.String("description", txn.Description), zap.Error(err))
			a = alloc.Fallback(txn)
		}
		a.Apply(&next)
		if !allocationChanged(txn, next) {
			continue
		}

		updated, err := s.store.Update(txn.ID, func(t *model.Transaction) {
			if t.Status == model.StatusManual {
				return
			}
			t.VendorID = next.VendorID
			t.AccountCode = next.AccountCode
			t.AccountName = next.AccountName
			t.Category = next.Category
			t.Status = next.Status
		})
		if err != nil {
			s.log.Warn("applying allocation", zap.String("txn", txn.ID), zap.Error(err))
			continue
		}
		switch {
		case updated.Status == model.StatusManual:
		case updated.AccountCode != txn.AccountCode:
			changed = append(changed, updated)
		default:
			res.Refreshed++
		}
	}

	res.Changed = len(changed)
	if len(changed) > 0 {
		s.bus.Publish(ctx, Event{Type: EventUpdate, Transactions: changed, Timestamp: s.now()})
	}
	s.log.Debug("tick", zap.Int("checked", res.Checked), zap.Int("changed", res.Changed),
		zap.Int("refreshed", res.Refreshed), zap.Int("errors", res.Errors))
	return res, nil
}

func (s *Scheduler) takeDirty() (bool, map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, dirty := s.dirtyAll, s.dirtyVendors
	s.dirtyAll, s.dirtyVendors = false, make(map[string]bool)
	return all, dirty
}

func (s *Scheduler) restoreDirty(all bool, dirty map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirtyAll = s.dirtyAll || all
	for id := range dirty {
		s.dirtyVendors[id] = true
	}
}

func inScope(txn model.Transaction, dirty map[string]bool) bool {
	return dirty[txn.VendorID] || txn.Status == model.StatusUnmatched || txn.VendorID == ""
}

var errPanic = errors.New("allocation panicked")

func safeAllocate(a *allocator.Allocator, txn model.Transaction) (alloc allocator.Allocation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()
	return a.Allocate(txn)
}

func allocationChanged(a, b model.Transaction) bool {
	return a.VendorID != b.VendorID ||
		a.AccountCode != b.AccountCode ||
		a.AccountName != b.AccountName ||
		a.Category != b.Category ||
		a.Status != b.Status
}
