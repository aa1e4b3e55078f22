package statements

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var chequingPrefixes = []string{
	"ONLINE BILL PAYMENT", "BILL PAYMENT", "INTERAC E-TRANSFER", "E-TRANSFER",
	"DIRECT DEPOSIT", "ATM WITHDRAWAL", "DEBIT CARD PURCHASE", "DEBIT PURCHASE",
	"POINT OF SALE", "POS PURCHASE", "MONTHLY FEE", "SERVICE CHARGE",
	"NSF FEE", "OVERDRAFT FEE", "TRANSFER",
}

// chequingFormat describes a statement laid out as description, withdrawal,
// deposit and balance columns where only the populated columns survive text
// extraction.
type chequingFormat struct {
	institution string
	// date must define "month" and "day" groups.
	date *regexp.Regexp
	// start, when present in the text, marks where transactions begin.
	start *regexp.Regexp
	// stop ends parsing once a transaction has been seen.
	stop *regexp.Regexp
	skip *regexp.Regexp
}

var (
	tdFormat = chequingFormat{
		institution: "td_chequing",
		date:        regexp.MustCompile(`(?i)^(?P<month>` + monthAlt + `)\s*(?P<day>\d{1,2})\b\s*`),
		stop:        regexp.MustCompile(`(?i)\bclosing\s+balance\b`),
		skip:        regexp.MustCompile(`(?i)\b(opening|closing)\s+balance\b|\bbalance\s+forward\b|^page\s+\d|^(sub)?total\b|^description\b|^statement\s+period`),
	}
	rbcFormat = chequingFormat{
		institution: "rbc_chequing",
		date:        regexp.MustCompile(`(?i)^(?P<day>\d{1,2})\s+(?P<month>` + monthAlt + `)[a-z]*\b\s*`),
		start:       regexp.MustCompile(`(?i)account\s+activity\s+details|^date\s+description\s+cheques`),
		stop:        regexp.MustCompile(`(?i)^closing\s+balance`),
		skip:        regexp.MustCompile(`(?i)opening\s+balance|account\s+number:|continued|royalbank\.com|^date\s+description|^page\s+\d`),
	}
	scotiaFormat = chequingFormat{
		institution: "scotia_chequing",
		date:        regexp.MustCompile(`(?i)^(?P<month>` + monthAlt + `)[a-z]*\.?\s+(?P<day>\d{1,2})\b\s*`),
		stop:        regexp.MustCompile(`(?i)^closing\s+balance|^no\.\s+of\s+(debits|credits)`),
		skip:        regexp.MustCompile(`(?i)balance\s+forward|^date\s+description|statement\s+period|total\s+amount|service\s+charge\s+summary|^page\s+\d`),
	}
	scotiaAccountRe = regexp.MustCompile(`(?i)account\s+number:?\s*(\d{5})\s+(\d[\d -]{5,}\d)`)
	rbcAccountRe    = regexp.MustCompile(`(?i)account\s+number[:\s]*(\d{5})\s+([\d-]+)|\b(\d{5})\s+(\d{3}-\d{3}-\d)\b`)
)

// TDChequingParser parses TD chequing and savings statement text.
type TDChequingParser struct{}

// Institution returns the parser name.
func (p *TDChequingParser) Institution() string { return tdFormat.institution }

// Identify matches TD statements that are not for a card.
func (p *TDChequingParser) Identify(text, filename string) bool {
	return branded(tdBrandRe, text, filename, "td") && !isCard(text, filename)
}

// Parse reads rows dated "MMM DD" (possibly glued, "AUG02") whose description
// may begin on earlier lines.
func (p *TDChequingParser) Parse(text string) (*Statement, error) {
	return parseChequing(text, tdFormat)
}

// RBCChequingParser parses RBC chequing statement text.
type RBCChequingParser struct{}

// Institution returns the parser name.
func (p *RBCChequingParser) Institution() string { return rbcFormat.institution }

// Identify matches RBC statements that are not for a card.
func (p *RBCChequingParser) Identify(text, filename string) bool {
	return branded(rbcBrandRe, text, filename, "rbc") && !isCard(text, filename)
}

// Parse reads rows under "DD Mon" dates. A date covers every following line
// until the next one.
func (p *RBCChequingParser) Parse(text string) (*Statement, error) {
	st, err := parseChequing(text, rbcFormat)
	if err != nil {
		return nil, err
	}
	if m := rbcAccountRe.FindStringSubmatch(text); m != nil {
		transit, acct := m[1], m[2]
		if transit == "" {
			transit, acct = m[3], m[4]
		}
		st.Metadata.AccountNumber = transit + "-" + strings.ReplaceAll(acct, "-", "")
	}
	return st, nil
}

func parseChequing(text string, f chequingFormat) (*Statement, error) {
	st := &Statement{Institution: f.institution, Metadata: readMetadata(text)}
	years, err := newYearTracker(text, &st.Metadata)
	if err != nil {
		return nil, err
	}
	monthGroup, dayGroup := f.date.SubexpIndex("month"), f.date.SubexpIndex("day")

	var (
		rows  []row
		date  time.Time
		dated bool
		// description text waiting for its amount line
		pending     string
		pendingLine int
		// pending began on a dated line rather than after a completed row
		orphan bool
	)
	flush := func() {
		switch {
		case pending == "":
		case orphan || len(rows) == 0:
			st.lineError(pendingLine, pending, "no amount")
		default:
			rows[len(rows)-1].desc = joinText(rows[len(rows)-1].desc, pending)
		}
		pending, orphan = "", false
	}

	inBlock := f.start == nil || !f.start.MatchString(text)
	for i, raw := range lines(text) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if !inBlock {
			inBlock = f.start.MatchString(line)
			continue
		}
		if len(rows) > 0 && f.stop.MatchString(line) {
			break
		}
		if f.skip.MatchString(line) {
			continue
		}

		rest, isDated := line, false
		if m := f.date.FindStringSubmatchIndex(line); m != nil {
			flush()
			d, err := years.monthDay(line[m[2*monthGroup]:m[2*monthGroup+1]], line[m[2*dayGroup]:m[2*dayGroup+1]])
			if err != nil {
				st.lineError(i+1, line, "%v", err)
				dated = false
				continue
			}
			date, dated, isDated = d, true, true
			rest = line[m[1]:]
		} else if !dated {
			continue
		}

		amts := findAmounts(rest)
		if len(amts) == 0 {
			if rest == "" {
				continue
			}
			if pending == "" {
				pendingLine, orphan = i+1, isDated
			}
			pending = joinText(pending, rest)
			continue
		}

		prior := pending
		pending, orphan = "", false
		if len(amts) > 2 {
			st.lineError(i+1, line, "expected amount and balance, found %d amounts", len(amts))
			continue
		}
		desc := joinText(prior, rest[:amts[0].start])
		switch {
		case desc == "":
			st.lineError(i+1, line, "missing description")
			continue
		case amts[0].value.IsZero():
			st.lineError(i+1, line, "zero amount")
			continue
		}
		r := row{date: date, desc: desc, amount: amts[0].value}
		if len(amts) == 2 {
			r.balance = decimal.NewNullDecimal(amts[1].signed())
		}
		rows = append(rows, r)
	}
	flush()

	st.Transactions = settle(rows, st.Metadata.OpeningBalance)
	for i := range st.Transactions {
		st.Transactions[i].Description = cleanDescription(st.Transactions[i].Description, chequingPrefixes)
	}
	return st, nil
}

// ScotiaChequingParser parses Scotiabank chequing statement text.
type ScotiaChequingParser struct{}

// Institution returns the parser name.
func (p *ScotiaChequingParser) Institution() string { return scotiaFormat.institution }

// Identify matches Scotiabank statements that are not for a card.
func (p *ScotiaChequingParser) Identify(text, filename string) bool {
	return branded(scotiaBrandRe, text, filename, "scotia", "scotiabank") && !isCard(text, filename)
}

// Parse reads rows dated "Mon DD". Overdrawn balances carry a trailing minus.
func (p *ScotiaChequingParser) Parse(text string) (*Statement, error) {
	st, err := parseChequing(text, scotiaFormat)
	if err != nil {
		return nil, err
	}
	if m := scotiaAccountRe.FindStringSubmatch(text); m != nil {
		st.Metadata.AccountNumber = m[1] + "-" + strings.NewReplacer(" ", "", "-", "").Replace(m[2])
	}
	return st, nil
}
