package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cleared-dev/tally/internal/accounts"
	"github.com/cleared-dev/tally/internal/allocator"
	"github.com/cleared-dev/tally/internal/ledger"
	"github.com/cleared-dev/tally/internal/matching"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/rules"
	"github.com/cleared-dev/tally/internal/vendors"
)

// fixture is a mutable in-memory repo the scheduler snapshots.
type fixture struct {
	mu      sync.Mutex
	store   *ledger.Store
	vendors []model.Vendor
	chart   *accounts.Service
	table   *rules.Table
	fail    error
}

func newFixture(t *testing.T, txns ...model.Transaction) *fixture {
	t.Helper()
	chart := accounts.NewService(accounts.DefaultChart("corporation"))
	store := ledger.NewStore(t.TempDir(), nil, chart)
	if len(txns) > 0 {
		_, err := store.Add(txns)
		require.NoError(t, err)
	}
	return &fixture{
		store: store,
		chart: chart,
		table: &rules.Table{Layers: rules.DefaultLayers()},
	}
}

func (f *fixture) Snapshot(context.Context) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return Snapshot{}, f.fail
	}
	table := *f.table
	table.Overrides = append([]rules.Override(nil), f.table.Overrides...)
	return Snapshot{
		Transactions: f.store.All(),
		Vendors:      append([]model.Vendor(nil), f.vendors...),
		Accounts:     f.chart,
		Rules:        &table,
	}, nil
}

func (f *fixture) addOverride(t *testing.T, o rules.Override) {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NoError(t, f.table.AddOverride(o))
}

func txn(desc, amount string) model.Transaction {
	return model.Transaction{
		Date:        model.Date(2025, 1, 15),
		Description: desc,
		Debit:       decimal.RequireFromString(amount),
		Status:      model.StatusUnmatched,
	}
}

func newScheduler(f *fixture, mode Mode) *Scheduler {
	return New(f, f.store, NewBus(nil), Config{Mode: mode, Interval: time.Hour}, zap.NewNop())
}

func TestTick_ConvergesAfterOverride(t *testing.T) {
	f := newFixture(t, txn("WCB ALBERTA", "120.00"), txn("STAPLES #123", "40.00"))
	s := newScheduler(f, ModePoll)
	ctx := context.Background()

	var events []Event
	s.Bus().Subscribe(func(_ context.Context, ev Event) { events = append(events, ev) })

	// Settle the initial allocation.
	_, err := s.Tick(ctx)
	require.NoError(t, err)
	res, err := s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Changed)
	for _, stored := range f.store.All() {
		assert.Equal(t, model.SuspenseAccountCode, stored.AccountCode)
	}
	events = nil

	f.addOverride(t, rules.Override{Name: "workers-comp", Pattern: `(?i)\bWCB\b`, Account: "9750"})

	res, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Checked)
	assert.Equal(t, 1, res.Changed)

	require.Len(t, events, 1)
	assert.Equal(t, EventUpdate, events[0].Type)
	require.Len(t, events[0].Transactions, 1)
	assert.Equal(t, "9750", events[0].Transactions[0].AccountCode)
	assert.Equal(t, model.StatusMatched, events[0].Transactions[0].Status)

	stored, err := f.store.Get(events[0].Transactions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "9750", stored.AccountCode)

	// Converged: a further tick changes nothing and publishes nothing.
	res, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Changed)
	assert.Len(t, events, 1)
}

func TestTick_ImportedAllocationIsStable(t *testing.T) {
	dict := vendors.NewDictionary([]model.Vendor{
		{ID: "v-tims", Name: "Tim Hortons", DefaultAccountCode: "6415", Category: "Meals"},
		{ID: "v-staples", Name: "Staples Business Depot", DefaultAccountCode: "8600", Category: "Office"},
	})
	f := newFixture(t)

	// Allocate and record the way import does.
	alloc := allocator.New(matching.New(dict.Snapshot(), f.table), f.chart, "")
	imported := txn("HORTONS DRIVE THRU", "6.50")
	a, err := alloc.Allocate(imported)
	require.NoError(t, err)
	require.Equal(t, allocator.SourceBayesian, a.Source)
	a, err = alloc.Record(dict, a)
	require.NoError(t, err)
	a.Apply(&imported)
	require.Equal(t, model.StatusAIMatched, imported.Status)
	_, err = f.store.Add([]model.Transaction{imported})
	require.NoError(t, err)
	f.vendors = dict.Snapshot()

	s := newScheduler(f, ModePoll)
	var events []Event
	s.Bus().Subscribe(func(_ context.Context, ev Event) { events = append(events, ev) })

	res, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Checked)
	assert.Equal(t, 0, res.Changed)
	assert.Equal(t, 1, res.Refreshed)
	assert.True(t, res.Dirty())
	assert.Empty(t, events)

	stored := f.store.All()[0]
	assert.Equal(t, "6415", stored.AccountCode)
	assert.Equal(t, model.StatusMatched, stored.Status)

	res, err = s.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Dirty())
}

func TestTick_SkipsManual(t *testing.T) {
	manual := txn("WCB ALBERTA", "120.00")
	manual.Status = model.StatusManual
	manual.AccountCode = "8700"
	f := newFixture(t, manual)
	f.addOverride(t, rules.Override{Name: "workers-comp", Pattern: `WCB`, Account: "9750"})

	res, err := newScheduler(f, ModePoll).Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Checked)
	assert.Equal(t, "8700", f.store.All()[0].AccountCode)
}

type panickyChart struct{ *accounts.Service }

func (p panickyChart) Get(code string) (model.Account, bool) {
	if code == "BOOM" {
		panic("chart lookup exploded")
	}
	return p.Service.Get(code)
}

func TestTick_ErrorsMarkTransactionAndContinue(t *testing.T) {
	f := newFixture(t, txn("MYSTERY LTD", "10.00"), txn("EXPLODING WIDGET", "20.00"), txn("WCB ALBERTA", "30.00"))
	f.addOverride(t, rules.Override{Name: "ghost", Pattern: `MYSTERY`, Account: "0001"})
	f.addOverride(t, rules.Override{Name: "boom", Pattern: `EXPLODING`, Account: "BOOM"})
	f.addOverride(t, rules.Override{Name: "workers-comp", Pattern: `WCB`, Account: "9750"})

	core, logs := observer.New(zap.WarnLevel)
	source := SourceFunc(func(ctx context.Context) (Snapshot, error) {
		snap, err := f.Snapshot(ctx)
		snap.Accounts = panickyChart{f.chart}
		return snap, err
	})
	s := New(source, f.store, nil, Config{}, zap.New(core))

	res, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Checked)
	assert.Equal(t, 2, res.Errors)
	assert.Equal(t, 3, res.Changed)

	byDesc := make(map[string]model.Transaction)
	for _, stored := range f.store.All() {
		byDesc[stored.Description] = stored
	}
	for _, desc := range []string{"MYSTERY LTD", "EXPLODING WIDGET"} {
		assert.Equal(t, model.StatusError, byDesc[desc].Status, desc)
		assert.Equal(t, model.SuspenseAccountCode, byDesc[desc].AccountCode, desc)
		assert.Equal(t, "Unusual item", byDesc[desc].AccountName, desc)
	}
	assert.Equal(t, "9750", byDesc["WCB ALBERTA"].AccountCode)
	assert.Equal(t, 2, logs.FilterMessage("allocation failed").Len())
}

func TestTick_ReactiveOnlyWhenInvalidated(t *testing.T) {
	f := newFixture(t, txn("WCB ALBERTA", "120.00"))
	s := newScheduler(f, ModeReactive)
	ctx := context.Background()

	res, err := s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, TickResult{}, res)
	assert.Empty(t, f.store.All()[0].AccountCode)

	s.Invalidate(ScopeAll)
	res, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Changed)

	f.addOverride(t, rules.Override{Name: "workers-comp", Pattern: `WCB`, Account: "9750"})
	res, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Checked)

	s.Invalidate(ScopeVendor("v-unrelated"))
	res, err = s.Tick(ctx)
	require.NoError(t, err)
	// the suspense transaction is unmatched, so a vendor change may claim it
	assert.Equal(t, 1, res.Checked)
	assert.Equal(t, "9750", f.store.All()[0].AccountCode)
}

func TestTick_SnapshotFailureKeepsInvalidation(t *testing.T) {
	f := newFixture(t, txn("WCB ALBERTA", "120.00"))
	s := newScheduler(f, ModeReactive)
	ctx := context.Background()

	f.fail = errors.New("disk gone")
	s.Invalidate(ScopeAll)
	_, err := s.Tick(ctx)
	assert.ErrorContains(t, err, "disk gone")
	assert.Empty(t, f.store.All()[0].AccountCode)

	f.fail = nil
	res, err := s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Changed)
}

func TestTick_EmptyStoreIsNoop(t *testing.T) {
	f := newFixture(t)
	res, err := newScheduler(f, ModePoll).Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TickResult{}, res)
}

func TestRun_PublishesUntilCancelled(t *testing.T) {
	f := newFixture(t, txn("WCB ALBERTA", "120.00"))
	f.addOverride(t, rules.Override{Name: "workers-comp", Pattern: `WCB`, Account: "9750"})
	s := New(f, f.store, nil, Config{Interval: 5 * time.Millisecond}, zap.NewNop())

	events := make(chan Event, 1)
	s.Bus().Forward(events)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case ev := <-events:
		require.Len(t, ev.Transactions, 1)
		assert.Equal(t, "9750", ev.Transactions[0].AccountCode)
	case <-time.After(5 * time.Second):
		t.Fatal("no event published")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestBus_FanOutSurvivesPanics(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := NewBus(zap.New(core))

	var got []string
	bus.Subscribe(func(context.Context, Event) { got = append(got, "first") })
	bus.Subscribe(func(context.Context, Event) { panic("boom") })
	unsubscribe := bus.Subscribe(func(context.Context, Event) { got = append(got, "third") })

	bus.Publish(context.Background(), Event{Type: EventUpdate})
	assert.Equal(t, []string{"first", "third"}, got)
	assert.Equal(t, 1, logs.Len())

	unsubscribe()
	got = nil
	bus.Publish(context.Background(), Event{Type: EventUpdate})
	assert.Equal(t, []string{"first"}, got)
}
