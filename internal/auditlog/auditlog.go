// Package auditlog records allocation decisions in logs/allocation-log.csv.
package auditlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/scheduler"
)

// Actors that write to the log.
const (
	ActorImport    = "import"
	ActorScheduler = "scheduler"
	ActorManual    = "manual"
)

// Actions recorded in the log.
const (
	ActionAllocate   = "allocate"
	ActionReallocate = "reallocate"
	ActionOverride   = "add_override"
	ActionRename     = "rename_vendor"
	ActionAssign     = "assign"
)

// Entry is one row in the allocation log.
type Entry struct {
	Timestamp     time.Time
	Actor         string
	Action        string
	TransactionID string
	VendorID      string
	AccountCode   string
	Status        model.Status
	Details       string
}

// Header is the CSV header for allocation-log.csv.
const Header = "timestamp,actor,action,txn_id,vendor_id,account_code,status,details"

const (
	numFields        = 8
	logDir           = "logs"
	logFile          = "logs/allocation-log.csv"
	colTimestamp     = 0
	colActor         = 1
	colAction        = 2
	colTransactionID = 3
	colVendorID      = 4
	colAccountCode   = 5
	colStatus        = 6
	colDetails       = 7
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colActor] = e.Actor
	row[colAction] = e.Action
	row[colTransactionID] = e.TransactionID
	row[colVendorID] = e.VendorID
	row[colAccountCode] = e.AccountCode
	row[colStatus] = string(e.Status)
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	return Entry{
		Timestamp:     ts,
		Actor:         record[colActor],
		Action:        record[colAction],
		TransactionID: record[colTransactionID],
		VendorID:      record[colVendorID],
		AccountCode:   record[colAccountCode],
		Status:        model.Status(record[colStatus]),
		Details:       record[colDetails],
	}, nil
}

// FromTransaction builds the entry for a transaction's current allocation.
func FromTransaction(ts time.Time, actor, action string, txn model.Transaction) Entry {
	return Entry{
		Timestamp:     ts,
		Actor:         actor,
		Action:        action,
		TransactionID: txn.ID,
		VendorID:      txn.VendorID,
		AccountCode:   txn.AccountCode,
		Status:        txn.Status,
		Details:       txn.Description,
	}
}

// Append writes entries to <repoRoot>/logs/allocation-log.csv, creating the
// file and header if needed.
func Append(repoRoot string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	dir := filepath.Join(repoRoot, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(repoRoot, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening allocation log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <repoRoot>/logs/allocation-log.csv, or nil
// if the file does not exist.
func Read(repoRoot string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(repoRoot, logFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening allocation log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading allocation log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Subscriber returns a bus handler that logs every reallocated transaction.
// Write failures are logged.
func Subscriber(repoRoot string, log *zap.Logger) scheduler.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(_ context.Context, ev scheduler.Event) {
		if ev.Type != scheduler.EventUpdate {
			return
		}
		entries := make([]Entry, len(ev.Transactions))
		for i, txn := range ev.Transactions {
			entries[i] = FromTransaction(ev.Timestamp, ActorScheduler, ActionReallocate, txn)
		}
		if err := Append(repoRoot, entries); err != nil {
			log.Error("writing allocation log", zap.Int("entries", len(entries)), zap.Error(err))
		}
	}
}
