package vendors

import "strings"

type categoryKeywords struct {
	category string
	keywords []string
}

// Checked in order; the first category with a keyword contained in the key wins.
var categoryTable = []categoryKeywords{
	{"Bank charges", []string{"service charge", "bank fee", "account fee", "interest", "nsf", "overdraft"}},
	{"Payroll", []string{"wcb", "workers comp", "payroll", "receiver general"}},
	{"Meals", []string{"restaurant", "cafe", "coffee", "starbucks", "tim hortons", "mcdonald", "burger", "pizza", "sushi", "pub", "grill"}},
	{"Vehicle", []string{"shell", "chevron", "esso", "petro", "husky", "fuel", "gas", "parking", "car wash"}},
	{"Office", []string{"staples", "office depot", "best buy", "canada post", "purolator", "fedex", "ups"}},
	{"Subscriptions", []string{"adobe", "microsoft", "google", "apple", "dropbox", "github", "netflix", "spotify", "zoom", "slack"}},
	{"Travel", []string{"uber", "lyft", "taxi", "hotel", "airbnb", "booking", "westjet", "air canada", "expedia"}},
	{"Insurance", []string{"insurance", "intact", "aviva", "wawanesa"}},
	{"Utilities", []string{"hydro", "fortis", "enmax", "epcor", "atco", "utilities", "telus", "rogers", "bell", "shaw", "fido", "koodo"}},
	{"Repairs", []string{"home depot", "homedepot", "lowes", "rona", "canadian tire"}},
	{"Shopping", []string{"amazon", "walmart", "costco", "superstore", "sobeys", "safeway", "save on"}},
	{"Transfers", []string{"transfer", "e transfer", "etransfer"}},
}

// DefaultCategory is assigned when no keyword matches.
const DefaultCategory = "Uncategorized"

// InferCategory guesses a vendor category from its comparison key.
func InferCategory(key string) string {
	padded := " " + strings.ToLower(key) + " "
	for _, c := range categoryTable {
		for _, kw := range c.keywords {
			if strings.Contains(padded, " "+kw) {
				return c.category
			}
		}
	}
	return DefaultCategory
}
