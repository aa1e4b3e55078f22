package auditlog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/scheduler"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp:     testTime,
		Actor:         ActorImport,
		Action:        ActionAllocate,
		TransactionID: "2025-01-001",
		VendorID:      "v-1",
		AccountCode:   "1857",
		Status:        model.StatusMatched,
		Details:       "GITHUB, Purchase",
	}
}

func TestAppend_NewFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, testEntry(), entries[0])
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	e2 := testEntry()
	e2.Actor = ActorScheduler
	e2.Action = ActionReallocate
	require.NoError(t, Append(dir, []Entry{e2}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActorImport, entries[0].Actor)
	assert.Equal(t, ActorScheduler, entries[1].Actor)
}

func TestAppend_NothingToWrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, nil))

	_, err := os.Stat(filepath.Join(dir, "logs"))
	assert.True(t, os.IsNotExist(err))
}

func TestRead_NotFound(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_HeaderOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, logFile), []byte(Header+"\n"), 0o644))

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestUnmarshalEntry_Errors(t *testing.T) {
	_, err := UnmarshalEntry([]string{"one", "two"})
	assert.ErrorContains(t, err, "expected 8 fields")

	row := MarshalEntry(testEntry())
	row[colTimestamp] = "yesterday"
	_, err = UnmarshalEntry(row)
	assert.ErrorContains(t, err, `parsing timestamp "yesterday"`)
}

func TestMarshalEntry_TimestampInUTC(t *testing.T) {
	e := testEntry()
	e.Timestamp = testTime.In(time.FixedZone("MST", -7*3600))
	assert.Equal(t, "2025-01-15T10:30:00Z", MarshalEntry(e)[colTimestamp])
}

func TestSubscriber(t *testing.T) {
	dir := t.TempDir()
	bus := scheduler.NewBus(nil)
	bus.Subscribe(Subscriber(dir, zap.NewNop()))

	txns := []model.Transaction{
		{ID: "2025-01-001", Description: "WCB ALBERTA", VendorID: "v-9", AccountCode: "9750", Status: model.StatusMatched},
		{ID: "2025-01-002", Description: "MYSTERY", AccountCode: model.SuspenseAccountCode, Status: model.StatusUnmatched},
	}
	bus.Publish(context.Background(), scheduler.Event{Type: scheduler.EventUpdate, Transactions: txns, Timestamp: testTime})
	bus.Publish(context.Background(), scheduler.Event{Type: "OTHER", Transactions: txns, Timestamp: testTime})

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{
		Timestamp:     testTime,
		Actor:         ActorScheduler,
		Action:        ActionReallocate,
		TransactionID: "2025-01-001",
		VendorID:      "v-9",
		AccountCode:   "9750",
		Status:        model.StatusMatched,
		Details:       "WCB ALBERTA",
	}, entries[0])
	assert.Equal(t, model.SuspenseAccountCode, entries[1].AccountCode)
}

func TestSubscriber_LogsWriteFailure(t *testing.T) {
	dir := t.TempDir()
	// A file where the logs directory should be.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logs"), nil, 0o644))

	core, logs := observer.New(zap.ErrorLevel)
	h := Subscriber(dir, zap.New(core))
	h(context.Background(), scheduler.Event{
		Type:         scheduler.EventUpdate,
		Transactions: []model.Transaction{{ID: "2025-01-001"}},
		Timestamp:    testTime,
	})
	assert.Equal(t, 1, logs.FilterMessage("writing allocation log").Len())
}
