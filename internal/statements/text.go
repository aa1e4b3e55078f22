package statements

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const monthAlt = `JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC`

var monthIndex = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var (
	amountRe = regexp.MustCompile(`(-?)\$?(\d[\d,]*\.\d{2})(?:\s?(CR|OD)\b|(-)(?:\s|$)|\b)`)
	// yearRe matches a year only inside a date.
	yearRe   = regexp.MustCompile(`(?i)\b(?:` + monthAlt + `)[a-z]*\.?\s+(?:\d{1,2},?\s+)?(20\d{2})\b|\b\d{1,2}/\d{1,2}/(20\d{2})\b|\b(20\d{2})[/-]\d{1,2}[/-]\d{1,2}\b`)
	periodRe = regexp.MustCompile(`(?i)(?:statement\s+period|period|from)[:\s]+(` + monthAlt + `)[a-z]*\.?\s+(\d{1,2}),?\s*(20\d{2})?\s*(?:-|to)\s*(` + monthAlt + `)[a-z]*\.?\s+(\d{1,2}),?\s+(20\d{2})`)

	openingRe = regexp.MustCompile(`(?i)(?:opening|previous|starting)\s+balance.*?\$?(\d[\d,]*\.\d{2})(\s?OD\b|-)?`)
	forwardRe = regexp.MustCompile(`(?i)balance\s+forward.*?\$?(\d[\d,]*\.\d{2})(\s?OD\b|-)?`)
	closingRe = regexp.MustCompile(`(?i)(?:closing|ending|new)\s+balance.*?\$?(\d[\d,]*\.\d{2})(\s?OD\b|-)?`)
	accountRe = regexp.MustCompile(`(?i)account(?:\s+(?:no\.?|number))?\s*[:#]?\s*([\d][\d -]{5,}\d)`)
	holderRe  = regexp.MustCompile(`(?im)^\s*(?:account\s+holder|name)\s*:\s*(.+?)\s*$`)

	refPatterns = []*regexp.Regexp{
		regexp.MustCompile(`CHQ#\d+-\d+`),
		regexp.MustCompile(`\bMSP\b`),
		regexp.MustCompile(`\b\d{6,}\b`),
		regexp.MustCompile(`(?i)\b[a-f0-9]{16,}\b`),
	}
	doubleComma = regexp.MustCompile(`,\s*,`)
	spaceRun    = regexp.MustCompile(`\s+`)
)

// amount is one money figure found on a statement line.
type amount struct {
	value    decimal.Decimal // absolute
	negative bool            // leading minus sign
	suffix   string          // CR, OD or a trailing minus
	start    int
}

// signed returns the figure with its printed sign applied. CR, OD and a
// trailing minus all mark a figure on the opposite side of zero.
func (a amount) signed() decimal.Decimal {
	if a.negative || a.suffix != "" {
		return a.value.Neg()
	}
	return a.value
}

// explicitCredit reports whether a card line marks itself as a credit.
func (a amount) explicitCredit() bool {
	return a.negative || a.suffix == "CR"
}

func findAmounts(s string) []amount {
	var out []amount
	for _, m := range amountRe.FindAllStringSubmatchIndex(s, -1) {
		digits := strings.ReplaceAll(s[m[4]:m[5]], ",", "")
		v, err := decimal.NewFromString(digits)
		if err != nil {
			continue
		}
		a := amount{value: v, negative: m[3] > m[2], start: m[0]}
		switch {
		case m[6] >= 0:
			a.suffix = s[m[6]:m[7]]
		case m[8] >= 0:
			a.suffix = "-"
		}
		out = append(out, a)
	}
	return out
}

func parseMoney(s string, overdrawn bool) (decimal.NullDecimal, error) {
	v, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	if overdrawn {
		v = v.Neg()
	}
	return decimal.NewNullDecimal(v), nil
}

func findBalance(re *regexp.Regexp, text string) decimal.NullDecimal {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return decimal.NullDecimal{}
	}
	v, err := parseMoney(m[1], strings.TrimSpace(m[2]) != "")
	if err != nil {
		return decimal.NullDecimal{}
	}
	return v
}

// readMetadata pulls the header fields every text statement shares.
func readMetadata(text string) Metadata {
	var meta Metadata
	if m := accountRe.FindStringSubmatch(text); m != nil {
		meta.AccountNumber = strings.NewReplacer(" ", "", "-", "").Replace(m[1])
	}
	if m := holderRe.FindStringSubmatch(text); m != nil {
		meta.AccountHolder = m[1]
	}
	meta.OpeningBalance = findBalance(openingRe, text)
	if !meta.OpeningBalance.Valid {
		meta.OpeningBalance = findBalance(forwardRe, text)
	}
	meta.ClosingBalance = findBalance(closingRe, text)
	return meta
}

// yearTracker assigns years to month/day dates in statement order. A month
// that goes backwards into January or February starts the next year.
type yearTracker struct {
	year int
	last time.Month
}

// newYearTracker reads the statement period into meta and seeds the year from
// the period start, falling back to the first dated 20xx year in the text.
func newYearTracker(text string, meta *Metadata) (*yearTracker, error) {
	if m := periodRe.FindStringSubmatch(text); m != nil {
		endYear, _ := strconv.Atoi(m[6])
		startMonth := monthIndex[strings.ToLower(m[1])]
		endMonth := monthIndex[strings.ToLower(m[4])]
		startYear := endYear
		if m[3] != "" {
			startYear, _ = strconv.Atoi(m[3])
		} else if startMonth > endMonth {
			startYear--
		}
		startDay, _ := strconv.Atoi(m[2])
		endDay, _ := strconv.Atoi(m[5])
		meta.PeriodStart = time.Date(startYear, startMonth, startDay, 0, 0, 0, 0, time.UTC)
		meta.PeriodEnd = time.Date(endYear, endMonth, endDay, 0, 0, 0, 0, time.UTC)
		return &yearTracker{year: startYear, last: startMonth}, nil
	}
	m := yearRe.FindStringSubmatch(text)
	if m == nil {
		return nil, ErrNoYear
	}
	year, _ := strconv.Atoi(m[1] + m[2] + m[3])
	return &yearTracker{year: year}, nil
}

func (y *yearTracker) date(month time.Month, day int) (time.Time, error) {
	year := y.year
	if y.last != 0 && month < y.last && month <= time.February {
		year++
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Month() != month || d.Day() != day {
		return time.Time{}, fmt.Errorf("invalid date %s %d", month, day)
	}
	y.year = year
	y.last = month
	return d, nil
}

// monthDay resolves a "MMM" name and day string through the tracker.
func (y *yearTracker) monthDay(name, day string) (time.Time, error) {
	month, ok := monthIndex[strings.ToLower(name[:3])]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month %q", name)
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q", day)
	}
	return y.date(month, d)
}

// cleanDescription drops reference numbers and rewrites a leading
// transaction-type phrase as a trailing label: "PURCHASE STARBUCKS" becomes
// "STARBUCKS, Purchase".
func cleanDescription(desc string, typePrefixes []string) string {
	for _, re := range refPatterns {
		desc = re.ReplaceAllString(desc, "")
	}
	desc = strings.TrimSpace(spaceRun.ReplaceAllString(desc, " "))

	upper := strings.ToUpper(desc)
	reordered := false
	for _, prefix := range typePrefixes {
		if !strings.HasPrefix(upper, prefix+" ") {
			continue
		}
		name := strings.TrimSpace(strings.TrimLeft(desc[len(prefix):], " -"))
		if name != "" {
			desc = name + ", " + typeLabel(prefix)
			reordered = true
		}
		break
	}
	if !reordered && !strings.Contains(desc, ",") {
		if before, after, ok := strings.Cut(desc, " - "); ok && strings.TrimSpace(after) != "" && strings.TrimSpace(before) != "" {
			desc = strings.TrimSpace(after) + ", " + strings.TrimSpace(before)
		}
	}

	desc = doubleComma.ReplaceAllString(desc, ",")
	return strings.TrimSpace(strings.Trim(desc, ", "))
}

func typeLabel(prefix string) string {
	return prefix[:1] + strings.ToLower(prefix[1:])
}

func joinText(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// filenameTokens splits a file's base name into lowercase words.
func filenameTokens(filename string) map[string]bool {
	base := strings.ToLower(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	tokens := make(map[string]bool)
	for _, t := range strings.FieldsFunc(base, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		tokens[t] = true
	}
	return tokens
}

func lines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
