package vendors

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Banking prefixes stripped from the front of a payee. Order matters: longer
// phrases must come before their own prefixes.
var prefixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^ONLINE BANKING TRANSFER\s*-?\s*`),
	regexp.MustCompile(`(?i)^ONLINE BANKING\s*-?\s*`),
	regexp.MustCompile(`(?i)^ONLINE TRANSFER SENT\s*-?\s*[\d\s]*`),
	regexp.MustCompile(`(?i)^ONLINE TRANSFER\s*-?\s*`),
	regexp.MustCompile(`(?i)^MISC PAYMENT\s*-?\s*`),
	regexp.MustCompile(`(?i)^INTERAC E-TRANSFER\s*-?\s*`),
	regexp.MustCompile(`(?i)^E-TRANSFER\s*-?\s*`),
	regexp.MustCompile(`(?i)^INTERAC\s*-?\s*`),
	regexp.MustCompile(`(?i)^DEBIT CARD PURCHASE\s*-?\s*`),
	regexp.MustCompile(`(?i)^DEBIT CARD\s*-?\s*`),
	regexp.MustCompile(`(?i)^CREDIT CARD\s*-?\s*`),
	regexp.MustCompile(`(?i)^POS PURCHASE\s*-?\s*`),
	regexp.MustCompile(`(?i)^POS\s*-?\s+`),
	regexp.MustCompile(`(?i)^ATM WITHDRAWAL\s*-?\s*`),
	regexp.MustCompile(`(?i)^ATM\s*-?\s+`),
	regexp.MustCompile(`(?i)^PURCHASE\s*-?\s*`),
	regexp.MustCompile(`(?i)^SQ\s*\*\s*`),
	regexp.MustCompile(`(?i)^TST\s*\*\s*`),
	regexp.MustCompile(`(?i)^WWW\s+`),
}

// Trailing references, store numbers and dates.
var suffixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\s+\d{1,2}[/-]\d{1,2}([/-]\d{2,4})?$`),
	regexp.MustCompile(`\s+\d{4}-\d{2}-\d{2}$`),
	regexp.MustCompile(`\s+-\s*\d+$`),
	regexp.MustCompile(`(?i)\s+-\s*[A-Z0-9]{4,}$`),
	regexp.MustCompile(`\s*#\s*\d+$`),
	regexp.MustCompile(`\s*\*\s*[A-Z0-9]+$`),
	regexp.MustCompile(`(?i)\s+STORE\s*\d+$`),
	regexp.MustCompile(`\s+\d{3,}$`),
	regexp.MustCompile(`\s*\(\d+\)$`),
	regexp.MustCompile(`\s*\[\d+\]$`),
}

// Statement parsers move the transaction type behind the merchant
// ("STARBUCKS, Purchase"); the label is not part of the payee.
var typeLabelRe = regexp.MustCompile(`(?i),\s*(online bill payment|bill payment|interac e-transfer|e-transfer|direct deposit|atm withdrawal|debit card purchase|debit purchase|point of sale|pos purchase|monthly fee|service charge|nsf fee|overdraft fee|transfer|payment thank you|purchase|cash advance|interest charge|interest|annual fee|membership fee|late fee|foreign transaction fee)$`)

var (
	leadingDigits = regexp.MustCompile(`^\d{3,}\s+`)
	locationRe    = regexp.MustCompile(`(?i)\s+((CALGARY|EDMONTON|RED DEER|LETHBRIDGE|BANFF|CANMORE|MEDICINE HAT|AIRDRIE|VANCOUVER|VICTORIA|SURREY|BURNABY|TORONTO|OTTAWA|MISSISSAUGA|MONTREAL|QUEBEC)\s+)?(AB|BC|ON|QC|SK|MB|CANADA)$`)
	marketplaceRe = regexp.MustCompile(`(?i)\s+(MKTP|MARKETPLACE)(\s+.*)?$`)
	garbage       = regexp.MustCompile(`^[\d\s\-*#]+$`)
	nonWord       = regexp.MustCompile(`[^\w\s]`)
	spaces        = regexp.MustCompile(`\s+`)
)

// Alias expands an abbreviation found in comparison keys.
type Alias struct {
	From string
	To   string
}

// Aliases are applied in order.
var Aliases = []Alias{
	{"amzn", "amazon"},
	{"amz", "amazon"},
	{"mcd", "mcdonalds"},
	{"tims", "tim hortons"},
	{"cdn tire", "canadian tire"},
	{"wal mart", "walmart"},
	{"costco whse", "costco"},
}

// Clean strips banking prefixes, trailing reference numbers, store codes and
// location suffixes from a raw payee. Case is preserved.
func Clean(payee string) string {
	cleaned := strings.TrimSpace(payee)
	if cleaned == "" {
		return ""
	}

	if stripped := strings.TrimSpace(typeLabelRe.ReplaceAllString(cleaned, "")); stripped != "" {
		cleaned = stripped
	}
	for _, re := range prefixPatterns {
		stripped := strings.TrimSpace(re.ReplaceAllString(cleaned, ""))
		if len(stripped) < 2 || garbage.MatchString(stripped) {
			// Never strip a payee down to a bare reference.
			continue
		}
		cleaned = stripped
	}

	cleaned = locationRe.ReplaceAllString(cleaned, "")
	cleaned = marketplaceRe.ReplaceAllString(cleaned, "")
	for _, re := range suffixPatterns {
		cleaned = strings.TrimSpace(re.ReplaceAllString(cleaned, ""))
	}
	cleaned = leadingDigits.ReplaceAllString(cleaned, "")

	cleaned = strings.TrimSpace(spaces.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		return strings.TrimSpace(payee)
	}
	return cleaned
}

// Key returns the lowercase comparison key for a payee: cleaned, punctuation
// removed, whitespace collapsed and aliases expanded.
func Key(payee string) string {
	k := strings.ToLower(Clean(payee))
	k = strings.ReplaceAll(k, "'", "")
	k = nonWord.ReplaceAllString(k, " ")
	k = strings.TrimSpace(spaces.ReplaceAllString(k, " "))
	return ExpandAliases(k)
}

// Normalize returns the comparison key and a title-cased display name.
func Normalize(payee string) (key, display string) {
	key = Key(payee)
	return key, Display(key)
}

// Display title-cases a comparison key.
func Display(key string) string {
	return cases.Title(language.English).String(key)
}

// ExpandAliases rewrites whole-word alias phrases in a lowercase key.
func ExpandAliases(key string) string {
	if key == "" {
		return key
	}
	padded := " " + key + " "
	for _, a := range Aliases {
		padded = strings.ReplaceAll(padded, " "+a.From+" ", " "+a.To+" ")
	}
	return strings.TrimSpace(padded)
}

// Tokens splits a comparison key into words.
func Tokens(key string) []string {
	return strings.Fields(key)
}
