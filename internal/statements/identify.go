package statements

import (
	"regexp"
	"strings"
)

// headerLines is how much of a statement brand detection looks at.
const headerLines = 20

var (
	tdBrandRe     = regexp.MustCompile(`(?i)\bTD\b|TORONTO-DOMINION|\bEASYWEB\b`)
	rbcBrandRe    = regexp.MustCompile(`(?i)\bRBC\b|ROYAL\s+BANK|royalbank\.com`)
	scotiaBrandRe = regexp.MustCompile(`(?i)SCOTIABANK|BANK\s+OF\s+NOVA\s+SCOTIA`)
	amexBrandRe   = regexp.MustCompile(`(?i)AMERICAN\s+EXPRESS|\bAMEX\b`)
	visaRe        = regexp.MustCompile(`(?i)\bVISA\b`)
	cardRe        = regexp.MustCompile(`(?i)\bVISA\b|\bMASTERCARD\b|CREDIT\s+CARD|MINIMUM\s+PAYMENT`)
)

func header(text string) string {
	ls := lines(text)
	if len(ls) > headerLines {
		ls = ls[:headerLines]
	}
	return strings.Join(ls, "\n")
}

// branded reports whether the statement header or the file name names a bank.
func branded(re *regexp.Regexp, text, filename string, tokens ...string) bool {
	if re.MatchString(header(text)) {
		return true
	}
	words := filenameTokens(filename)
	for _, t := range tokens {
		if words[t] {
			return true
		}
	}
	return false
}

func isCard(text, filename string) bool {
	words := filenameTokens(filename)
	if words["visa"] || words["card"] || words["mastercard"] {
		return true
	}
	if words["chequing"] || words["checking"] {
		return false
	}
	return cardRe.MatchString(header(text))
}

func isVisa(text, filename string) bool {
	return visaRe.MatchString(header(text)) || filenameTokens(filename)["visa"]
}
