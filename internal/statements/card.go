package statements

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

var (
	cardCreditRe = regexp.MustCompile(`(?i)payment|credit|refund|thank you`)
	cardSkipRe   = regexp.MustCompile(`(?i)\b(opening|previous|new|closing|statement)\s+balance\b|^page\s+\d|^(sub)?total\b`)
	// transaction date, then an optional posting date
	cardDateRe = regexp.MustCompile(`(?i)^(` + monthAlt + `)\.?\s*(\d{1,2})\b(?:\s+(?:` + monthAlt + `)\.?\s*\d{1,2}\b)?\s*`)
)

var tdVisaPrefixes = []string{
	"PAYMENT THANK YOU", "PURCHASE", "CASH ADVANCE",
	"INTEREST CHARGE", "ANNUAL FEE", "FOREIGN TRANSACTION FEE",
}

var rbcVisaPrefixes = []string{
	"PAYMENT THANK YOU", "PURCHASE", "CASH ADVANCE",
	"INTEREST", "ANNUAL FEE", "FOREIGN TRANSACTION FEE",
}

// TDVisaParser parses TD Visa statement text.
type TDVisaParser struct{}

// Institution returns the parser name.
func (p *TDVisaParser) Institution() string { return "td_visa" }

// Identify matches TD statements for a Visa card.
func (p *TDVisaParser) Identify(text, filename string) bool {
	return branded(tdBrandRe, text, filename, "td") && isVisa(text, filename)
}

// Parse reads one transaction per dated line.
func (p *TDVisaParser) Parse(text string) (*Statement, error) {
	return parseCard(text, p.Institution(), tdVisaPrefixes)
}

// RBCVisaParser parses RBC Visa statement text.
type RBCVisaParser struct{}

// Institution returns the parser name.
func (p *RBCVisaParser) Institution() string { return "rbc_visa" }

// Identify matches RBC statements for a Visa card.
func (p *RBCVisaParser) Identify(text, filename string) bool {
	return branded(rbcBrandRe, text, filename, "rbc") && isVisa(text, filename)
}

// Parse reads one transaction per dated line.
func (p *RBCVisaParser) Parse(text string) (*Statement, error) {
	return parseCard(text, p.Institution(), rbcVisaPrefixes)
}

func parseCard(text, institution string, prefixes []string) (*Statement, error) {
	st := &Statement{Institution: institution, Metadata: readMetadata(text)}
	years, err := newYearTracker(text, &st.Metadata)
	if err != nil {
		return nil, err
	}

	for i, raw := range lines(text) {
		line := strings.TrimSpace(raw)
		if line == "" || cardSkipRe.MatchString(line) {
			continue
		}
		m := cardDateRe.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}
		date, err := years.monthDay(line[m[2]:m[3]], line[m[4]:m[5]])
		if err != nil {
			st.lineError(i+1, line, "%v", err)
			continue
		}

		rest := line[m[1]:]
		amts := findAmounts(rest)
		if len(amts) == 0 {
			st.lineError(i+1, line, "no amount")
			continue
		}
		if txn, ok := cardTransaction(st, i+1, line, date, rest[:amts[0].start], amts, prefixes); ok {
			st.Transactions = append(st.Transactions, txn)
		}
	}
	return st, nil
}

// cardTransaction builds a card transaction from the first amount on a line.
// A minus sign or CR marks a credit; otherwise payment and refund keywords
// decide, and the result is flagged.
func cardTransaction(st *Statement, lineNo int, line string, date time.Time, desc string, amts []amount, prefixes []string) (model.Transaction, bool) {
	desc = cleanDescription(desc, prefixes)
	if desc == "" {
		st.lineError(lineNo, line, "missing description")
		return model.Transaction{}, false
	}
	first := amts[0]
	if first.value.IsZero() {
		st.lineError(lineNo, line, "zero amount")
		return model.Transaction{}, false
	}

	txn := model.Transaction{Date: date, Description: desc}
	if len(amts) > 1 {
		txn.Balance = decimal.NewNullDecimal(amts[len(amts)-1].signed())
	}
	switch {
	case first.explicitCredit():
		txn.Credit = first.value
	case cardCreditRe.MatchString(desc):
		txn.Credit = first.value
		txn.Warning = model.WarningAmbiguousDirection
	default:
		txn.Debit = first.value
	}
	return txn, true
}
