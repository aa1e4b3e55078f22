package statements

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	amexStartRe  = regexp.MustCompile(`(?i)your\s+transactions|new\s+transactions\s+for|payment\s+activity`)
	amexEndRe    = regexp.MustCompile(`(?i)total\s+of\s+(new\s+transactions|payment\s+activity|activity)`)
	amexHeaderRe = regexp.MustCompile(`(?i)^transaction\s+(date\s+)?posting|^date\s+description`)
	amexDateRe   = regexp.MustCompile(`(?i)^(?:(\d{1,2})/(\d{1,2})(?:/(\d{2}|\d{4}))?|(` + monthAlt + `)\.?\s*(\d{1,2})\b)(?:\s+(?:\d{1,2}/\d{1,2}(?:/\d{2,4})?|(?:` + monthAlt + `)\.?\s*\d{1,2}\b))?\s*`)
)

var amexPrefixes = []string{
	"PAYMENT THANK YOU", "PURCHASE", "CASH ADVANCE", "INTEREST CHARGE",
	"ANNUAL FEE", "MEMBERSHIP FEE", "LATE FEE", "FOREIGN TRANSACTION FEE",
}

// AmexParser parses American Express statement text. Amounts are signed;
// descriptions may wrap onto following lines.
type AmexParser struct{}

// Institution returns the parser name.
func (p *AmexParser) Institution() string { return "amex" }

// Identify matches American Express statements.
func (p *AmexParser) Identify(text, filename string) bool {
	return branded(amexBrandRe, text, filename, "amex", "americanexpress")
}

// Parse reads the transaction sections of the statement. Text outside the
// "Your Transactions" sections is ignored when those markers are present.
func (p *AmexParser) Parse(text string) (*Statement, error) {
	st := &Statement{Institution: p.Institution(), Metadata: readMetadata(text)}
	years, err := newYearTracker(text, &st.Metadata)
	if err != nil {
		return nil, err
	}

	inBlock := !amexStartRe.MatchString(text)
	var (
		date     time.Time
		open     bool
		prefix   string
		openLine int
	)
	drop := func() {
		if open {
			st.lineError(openLine, prefix, "no amount")
		}
		open, prefix = false, ""
	}

	for i, raw := range lines(text) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if amexEndRe.MatchString(line) {
			drop()
			inBlock = false
			continue
		}
		if amexStartRe.MatchString(line) {
			drop()
			inBlock = true
			continue
		}
		if !inBlock || amexHeaderRe.MatchString(line) || cardSkipRe.MatchString(line) {
			continue
		}

		rest := line
		if m := amexDateRe.FindStringSubmatch(line); m != nil {
			drop()
			d, err := amexDate(years, m)
			if err != nil {
				st.lineError(i+1, line, "%v", err)
				continue
			}
			date, open, openLine = d, true, i+1
			rest = line[len(m[0]):]
		} else if !open {
			continue
		}

		amts := findAmounts(rest)
		if len(amts) == 0 {
			prefix = joinText(prefix, rest)
			continue
		}
		desc := joinText(prefix, rest[:amts[0].start])
		open, prefix = false, ""
		if txn, ok := cardTransaction(st, openLine, line, date, desc, amts, amexPrefixes); ok {
			st.Transactions = append(st.Transactions, txn)
		}
	}
	drop()
	return st, nil
}

func amexDate(years *yearTracker, m []string) (time.Time, error) {
	if m[4] != "" {
		return years.monthDay(m[4], m[5])
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	if m[3] != "" {
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		years.year, years.last = year, 0
	}
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("invalid month %d", month)
	}
	return years.date(time.Month(month), day)
}
