package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

// Header is the CSV header for transactions.csv.
const Header = "txn_id,date,description,normalized_description,debit,credit,balance,vendor_id,account_code,account_name,category,status,warning,source,fingerprint"

const (
	numFields   = 15
	dateFormat  = "2006-01-02"
	colID       = 0
	colDate     = 1
	colDesc     = 2
	colNormDesc = 3
	colDebit    = 4
	colCredit   = 5
	colBalance  = 6
	colVendor   = 7
	colAcctCode = 8
	colAcctName = 9
	colCategory = 10
	colStatus   = 11
	colWarning  = 12
	colSource   = 13
	colFprint   = 14
)

// ReadTransactions reads all transactions from a transactions.csv reader.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var txns []model.Transaction
	for i, rec := range records[1:] {
		txn, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// WriteTransactions writes transactions to a writer (including header).
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, txn := range txns {
		if err := cw.Write(MarshalTransaction(txn)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(txn model.Transaction) []string {
	row := make([]string, numFields)
	row[colID] = txn.ID
	row[colDate] = txn.Date.Format(dateFormat)
	row[colDesc] = txn.Description
	row[colNormDesc] = txn.NormalizedDescription

	if !txn.Debit.IsZero() {
		row[colDebit] = txn.Debit.StringFixed(2)
	}
	if !txn.Credit.IsZero() {
		row[colCredit] = txn.Credit.StringFixed(2)
	}
	if txn.Balance.Valid {
		row[colBalance] = txn.Balance.Decimal.StringFixed(2)
	}

	row[colVendor] = txn.VendorID
	row[colAcctCode] = txn.AccountCode
	row[colAcctName] = txn.AccountName
	row[colCategory] = txn.Category
	row[colStatus] = string(txn.Status)
	row[colWarning] = txn.Warning
	row[colSource] = txn.Source
	row[colFprint] = txn.Fingerprint

	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != numFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := time.Parse(dateFormat, record[colDate])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	var debit, credit decimal.Decimal
	var balance decimal.NullDecimal

	if record[colDebit] != "" {
		debit, err = decimal.NewFromString(record[colDebit])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing debit %q: %w", record[colDebit], err)
		}
	}

	if record[colCredit] != "" {
		credit, err = decimal.NewFromString(record[colCredit])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing credit %q: %w", record[colCredit], err)
		}
	}

	if record[colBalance] != "" {
		b, err := decimal.NewFromString(record[colBalance])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing balance %q: %w", record[colBalance], err)
		}
		balance = decimal.NewNullDecimal(b)
	}

	return model.Transaction{
		ID:                    record[colID],
		Date:                  date,
		Description:           record[colDesc],
		NormalizedDescription: record[colNormDesc],
		Debit:                 debit,
		Credit:                credit,
		Balance:               balance,
		VendorID:              record[colVendor],
		AccountCode:           record[colAcctCode],
		AccountName:           record[colAcctName],
		Category:              record[colCategory],
		Status:                model.Status(record[colStatus]),
		Warning:               record[colWarning],
		Source:                record[colSource],
		Fingerprint:           record[colFprint],
	}, nil
}
