package statements

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

// ChaseParser parses Chase bank checking CSV exports.
type ChaseParser struct{}

const (
	chaseDateFormat = "01/02/2006"
	chaseHeader     = "details,posting date,description,amount"
	chaseMinFields  = 5
	chaseColDate    = 1
	chaseColDesc    = 2
	chaseColAmount  = 3
	chaseColBalance = 5
)

// Institution returns the parser name.
func (p *ChaseParser) Institution() string { return "chase_csv" }

// Identify matches the export's header row.
func (p *ChaseParser) Identify(text, filename string) bool {
	first, _, _ := strings.Cut(strings.TrimPrefix(text, "\ufeff"), "\n")
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(first)), chaseHeader)
}

// Parse reads the CSV. The amount column is signed: negative is money out.
// Rows that cannot be read are recorded as line errors.
func (p *ChaseParser) Parse(text string) (*Statement, error) {
	st := &Statement{Institution: p.Institution()}

	cr := csv.NewReader(strings.NewReader(strings.TrimPrefix(text, "\ufeff")))
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	if _, err := cr.Read(); err != nil {
		if err == io.EOF {
			return st, nil
		}
		return nil, fmt.Errorf("reading chase CSV header: %w", err)
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				st.lineError(pe.Line, "", "%v", pe.Err)
				continue
			}
			return nil, fmt.Errorf("reading chase CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)
		txn, err := parseChaseRow(rec)
		if err != nil {
			st.lineError(line, strings.Join(rec, ","), "%v", err)
			continue
		}
		st.Transactions = append(st.Transactions, txn)
	}
	return st, nil
}

func parseChaseRow(rec []string) (model.Transaction, error) {
	if len(rec) < chaseMinFields {
		return model.Transaction{}, fmt.Errorf("expected at least %d fields, got %d", chaseMinFields, len(rec))
	}
	date, err := time.Parse(chaseDateFormat, strings.TrimSpace(rec[chaseColDate]))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", rec[chaseColDate], err)
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(rec[chaseColAmount]))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", rec[chaseColAmount], err)
	}
	if amount.IsZero() {
		return model.Transaction{}, fmt.Errorf("zero amount")
	}

	txn := model.Transaction{
		Date:        date,
		Description: strings.TrimSpace(rec[chaseColDesc]),
	}
	if amount.IsNegative() {
		txn.Debit = amount.Neg()
	} else {
		txn.Credit = amount
	}
	if len(rec) > chaseColBalance {
		if bal, err := decimal.NewFromString(strings.TrimSpace(rec[chaseColBalance])); err == nil {
			txn.Balance = decimal.NewNullDecimal(bal)
		}
	}
	return txn, nil
}
