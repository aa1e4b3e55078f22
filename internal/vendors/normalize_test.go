package vendors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		payee       string
		wantKey     string
		wantDisplay string
	}{
		{"AMZN MKTP CA*1A2B3", "amazon", "Amazon"},
		{"POS PURCHASE - STARBUCKS #1234", "starbucks", "Starbucks"},
		{"SQ *BLUE BOTTLE COFFEE", "blue bottle coffee", "Blue Bottle Coffee"},
		{"TIM HORTONS #0423 EDMONTON AB", "tim hortons", "Tim Hortons"},
		{"TIMS 0423", "tim hortons", "Tim Hortons"},
		{"WAL-MART #3012", "walmart", "Walmart"},
		{"COSTCO WHSE #0543", "costco", "Costco"},
		{"CDN TIRE STORE 12", "canadian tire", "Canadian Tire"},
		{"22048 MACS", "macs", "Macs"},
		{"WCB ALBERTA", "wcb alberta", "Wcb Alberta"},
		{"STARBUCKS #1234, Purchase", "starbucks", "Starbucks"},
		{"JOHN SMITH, Interac e-transfer", "john smith", "John Smith"},
		{"  ", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.payee, func(t *testing.T) {
			key, display := Normalize(tt.payee)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantDisplay, display)
		})
	}
}

func TestCleanNeverEmptiesPayee(t *testing.T) {
	assert.Equal(t, "E-TRANSFER", Clean("E-TRANSFER - 5168"))
	assert.Equal(t, "ATM", Clean("ATM"))
}

func TestExpandAliasesWholeWordsOnly(t *testing.T) {
	assert.Equal(t, "amazon prime", ExpandAliases("amzn prime"))
	assert.Equal(t, "timsbits", ExpandAliases("timsbits"))
	assert.Equal(t, "", ExpandAliases(""))
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"starbucks", "Meals"},
		{"shell", "Vehicle"},
		{"wcb alberta", "Payroll"},
		{"telus mobility", "Utilities"},
		{"amazon", "Shopping"},
		{"zzz unknown", DefaultCategory},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InferCategory(tt.key), tt.key)
	}
}
