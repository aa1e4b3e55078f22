package id

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatTxnID returns a transaction ID like "2025-01-001".
func FormatTxnID(year, month, seq int) string {
	return fmt.Sprintf("%04d-%02d-%03d", year, month, seq)
}

// ParseTxnID parses "2025-01-001" into year, month, seq.
func ParseTxnID(id string) (year, month, seq int, err error) {
	parts := strings.SplitN(id, "-", 3)
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid transaction ID format: %q", id)
	}

	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid year in transaction ID %q: %w", id, err)
	}

	month, err = strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, 0, fmt.Errorf("invalid month in transaction ID %q", id)
	}

	seq, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid sequence in transaction ID %q: %w", id, err)
	}

	return year, month, seq, nil
}

// MonthKey returns the "YYYY-MM" bucket a date's sequence is drawn from.
func MonthKey(date time.Time) string {
	return date.Format("2006-01")
}

// Sequencer hands out per-month sequence numbers.
type Sequencer struct {
	next map[string]int
}

// NewSequencer seeds a Sequencer from existing IDs. Unparseable IDs are ignored.
func NewSequencer(existing []string) *Sequencer {
	s := &Sequencer{next: make(map[string]int)}
	for _, e := range existing {
		year, month, seq, err := ParseTxnID(e)
		if err != nil {
			continue
		}
		key := fmt.Sprintf("%04d-%02d", year, month)
		if seq >= s.next[key] {
			s.next[key] = seq + 1
		}
	}
	return s
}

// Next returns the next unused ID for date's month.
func (s *Sequencer) Next(date time.Time) string {
	key := MonthKey(date)
	seq := s.next[key]
	if seq == 0 {
		seq = 1
	}
	s.next[key] = seq + 1
	return FormatTxnID(date.Year(), int(date.Month()), seq)
}
