package dedup

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

const (
	// DefaultDescriptionLength is how many runes of the normalized
	// description a fingerprint covers.
	DefaultDescriptionLength = 40
	// DefaultTransferWindow is the largest date gap between the two legs of
	// a transfer.
	DefaultTransferWindow = 3 * 24 * time.Hour
)

// DefaultTransferTolerance is the largest amount difference between legs.
var DefaultTransferTolerance = decimal.New(2, -2)

// Fingerprinter hashes transactions for duplicate detection.
type Fingerprinter struct {
	DescriptionLength int
}

// Fingerprint hashes a transaction with DefaultDescriptionLength.
func Fingerprint(txn model.Transaction) string {
	return Fingerprinter{DescriptionLength: DefaultDescriptionLength}.Fingerprint(txn)
}

// Fingerprint returns the hex xxhash64 of "date|amount|description". The
// amount is absolute, so direction does not count. The description is the
// normalized one when present, lowercased and truncated.
func (f Fingerprinter) Fingerprint(txn model.Transaction) string {
	desc := txn.NormalizedDescription
	if desc == "" {
		desc = txn.Description
	}
	desc = strings.ToLower(strings.TrimSpace(desc))
	if r := []rune(desc); f.DescriptionLength > 0 && len(r) > f.DescriptionLength {
		desc = string(r[:f.DescriptionLength])
	}

	var b strings.Builder
	b.WriteString(txn.Date.Format(time.DateOnly))
	b.WriteByte('|')
	b.WriteString(txn.Amount().StringFixed(2))
	b.WriteByte('|')
	b.WriteString(desc)
	return strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
}

func (f Fingerprinter) of(txn model.Transaction) string {
	if txn.Fingerprint != "" {
		return txn.Fingerprint
	}
	return f.Fingerprint(txn)
}

// Group is a set of transactions sharing a fingerprint. The first is the
// original; the rest are its duplicates.
type Group struct {
	Fingerprint string
	IDs         []string
}

// FindDuplicates groups transaction ids by fingerprint, in order of each
// group's first occurrence. Only groups of two or more are returned.
func FindDuplicates(txns []model.Transaction) []Group {
	return Fingerprinter{DescriptionLength: DefaultDescriptionLength}.FindDuplicates(txns)
}

// FindDuplicates groups transaction ids by fingerprint.
func (f Fingerprinter) FindDuplicates(txns []model.Transaction) []Group {
	byFP := make(map[string]int)
	var groups []Group
	for _, txn := range txns {
		fp := f.of(txn)
		i, ok := byFP[fp]
		if !ok {
			i = len(groups)
			byFP[fp] = i
			groups = append(groups, Group{Fingerprint: fp})
		}
		groups[i].IDs = append(groups[i].IDs, txn.ID)
	}
	return slices.DeleteFunc(groups, func(g Group) bool { return len(g.IDs) < 2 })
}

// Filter drops incoming transactions already present in existing and stamps
// the fingerprint on every kept one. Fingerprints are counted, so a statement
// with two identical purchases keeps the second when existing holds one.
func (f Fingerprinter) Filter(existing, incoming []model.Transaction) (kept, dropped []model.Transaction) {
	have := make(map[string]int, len(existing))
	for _, txn := range existing {
		have[f.of(txn)]++
	}
	for _, txn := range incoming {
		txn.Fingerprint = f.Fingerprint(txn)
		if have[txn.Fingerprint] > 0 {
			have[txn.Fingerprint]--
			dropped = append(dropped, txn)
			continue
		}
		kept = append(kept, txn)
	}
	return kept, dropped
}

// Filter is Fingerprinter.Filter with DefaultDescriptionLength.
func Filter(existing, incoming []model.Transaction) (kept, dropped []model.Transaction) {
	return Fingerprinter{DescriptionLength: DefaultDescriptionLength}.Filter(existing, incoming)
}
