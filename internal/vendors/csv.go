package vendors

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cleared-dev/tally/internal/model"
)

// Header is the CSV header for vendors.csv.
const Header = "vendor_id,name,original_name,patterns,match_count,category,default_account_code,default_account_name,confidence,account_votes"

const (
	numFields      = 10
	colID          = 0
	colName        = 1
	colOriginal    = 2
	colPatterns    = 3
	colMatchCount  = 4
	colCategory    = 5
	colAcctCode    = 6
	colAcctName    = 7
	colConfidence  = 8
	colAccountVote = 9
)

// ReadVendors reads all vendors from a vendors.csv reader.
func ReadVendors(r io.Reader) ([]model.Vendor, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading vendors CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var vendors []model.Vendor
	for i, rec := range records[1:] {
		v, err := UnmarshalVendor(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		vendors = append(vendors, v)
	}
	return vendors, nil
}

// WriteVendors writes vendors to a vendors.csv writer (including header).
func WriteVendors(w io.Writer, vendors []model.Vendor) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, v := range vendors {
		if err := cw.Write(MarshalVendor(v)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalVendor converts a Vendor to a CSV row. Patterns are joined with "|"
// and votes are written as "code:count;code:count" in code order.
func MarshalVendor(v model.Vendor) []string {
	row := make([]string, numFields)
	row[colID] = v.ID
	row[colName] = v.Name
	row[colOriginal] = v.OriginalName
	row[colPatterns] = strings.Join(v.Patterns, "|")
	row[colMatchCount] = strconv.Itoa(v.MatchCount)
	row[colCategory] = v.Category
	row[colAcctCode] = v.DefaultAccountCode
	row[colAcctName] = v.DefaultAccountName
	if v.Confidence != 0 {
		row[colConfidence] = strconv.FormatFloat(v.Confidence, 'f', -1, 64)
	}

	codes := make([]string, 0, len(v.AccountVotes))
	for code := range v.AccountVotes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	votes := make([]string, len(codes))
	for i, code := range codes {
		votes[i] = code + ":" + strconv.Itoa(v.AccountVotes[code])
	}
	row[colAccountVote] = strings.Join(votes, ";")

	return row
}

// UnmarshalVendor converts a CSV row to a Vendor.
func UnmarshalVendor(record []string) (model.Vendor, error) {
	if len(record) != numFields {
		return model.Vendor{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	if record[colID] == "" {
		return model.Vendor{}, fmt.Errorf("empty vendor_id")
	}

	matchCount := 0
	if record[colMatchCount] != "" {
		n, err := strconv.Atoi(record[colMatchCount])
		if err != nil {
			return model.Vendor{}, fmt.Errorf("parsing match_count %q: %w", record[colMatchCount], err)
		}
		matchCount = n
	}

	var confidence float64
	if record[colConfidence] != "" {
		f, err := strconv.ParseFloat(record[colConfidence], 64)
		if err != nil {
			return model.Vendor{}, fmt.Errorf("parsing confidence %q: %w", record[colConfidence], err)
		}
		confidence = f
	}

	var patterns []string
	if record[colPatterns] != "" {
		patterns = strings.Split(record[colPatterns], "|")
	}

	votes := make(map[string]int)
	if record[colAccountVote] != "" {
		for _, pair := range strings.Split(record[colAccountVote], ";") {
			code, count, ok := strings.Cut(pair, ":")
			if !ok {
				return model.Vendor{}, fmt.Errorf("parsing account_votes %q", pair)
			}
			n, err := strconv.Atoi(count)
			if err != nil {
				return model.Vendor{}, fmt.Errorf("parsing account_votes %q: %w", pair, err)
			}
			votes[code] = n
		}
	}

	return model.Vendor{
		ID:                 record[colID],
		Name:               record[colName],
		OriginalName:       record[colOriginal],
		Patterns:           patterns,
		MatchCount:         matchCount,
		Category:           record[colCategory],
		DefaultAccountCode: record[colAcctCode],
		DefaultAccountName: record[colAcctName],
		Confidence:         confidence,
		AccountVotes:       votes,
	}, nil
}

func filePath(repoRoot string) string {
	return filepath.Join(repoRoot, "vendors", "vendors.csv")
}

// Load reads vendors/vendors.csv. A missing file yields an empty dictionary.
func Load(repoRoot string) (*Dictionary, error) {
	f, err := os.Open(filePath(repoRoot))
	if errors.Is(err, fs.ErrNotExist) {
		return NewDictionary(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening vendors: %w", err)
	}
	defer f.Close()

	vendors, err := ReadVendors(f)
	if err != nil {
		return nil, fmt.Errorf("reading vendors: %w", err)
	}
	return NewDictionary(vendors), nil
}

// Save writes the dictionary to vendors/vendors.csv.
func (d *Dictionary) Save(repoRoot string) error {
	path := filePath(repoRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating vendors dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating vendors file: %w", err)
	}
	defer f.Close()

	if err := WriteVendors(f, d.Snapshot()); err != nil {
		return fmt.Errorf("writing vendors: %w", err)
	}
	return nil
}
