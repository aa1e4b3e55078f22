package statements

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/model"
)

func TestRegistry_Identify(t *testing.T) {
	r := DefaultRegistry()
	tests := []struct {
		fixture  string
		filename string
		want     string
	}{
		{"td_chequing.txt", "", "td_chequing"},
		{"td_visa.txt", "", "td_visa"},
		{"rbc_chequing.txt", "", "rbc_chequing"},
		{"amex.txt", "", "amex"},
		{"chase_checking.csv", "", "chase_csv"},
	}
	for _, tt := range tests {
		t.Run(tt.fixture, func(t *testing.T) {
			p, err := r.Identify(readFixture(t, tt.fixture), tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Institution())
		})
	}
}

func TestRegistry_IdentifyByFilename(t *testing.T) {
	r := DefaultRegistry()
	text := "Statement 2025\nJAN 05 JAN 06 COFFEE 4.50\n"

	p, err := r.Identify(text, "import/td_visa_2025-01.txt")
	require.NoError(t, err)
	assert.Equal(t, "td_visa", p.Institution())

	p, err = r.Identify(text, "rbc-chequing.txt")
	require.NoError(t, err)
	assert.Equal(t, "rbc_chequing", p.Institution())
}

func TestRegistry_Unrecognized(t *testing.T) {
	_, err := DefaultRegistry().Parse("Some other bank\n01 JAN COFFEE 4.50\n", "notes.txt")
	assert.ErrorIs(t, err, ErrUnrecognizedFormat)
}

func TestRegistry_RegisterDuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(&ChaseParser{})
	assert.Panics(t, func() { r.Register(&ChaseParser{}) })
}

func TestRegistry_GetCaseInsensitive(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r.Get("TD_VISA"))
	assert.Nil(t, r.Get("nonexistent"))
	assert.Equal(t, []string{"chase_csv", "amex", "td_visa", "rbc_visa", "td_chequing", "rbc_chequing", "scotia_chequing"}, r.Institutions())
}

func TestYearTracker_Rollover(t *testing.T) {
	y := &yearTracker{year: 2024}
	dec15, err := y.monthDay("DEC", "15")
	require.NoError(t, err)
	jan02, err := y.monthDay("Jan", "2")
	require.NoError(t, err)
	jan20, err := y.monthDay("JAN", "20")
	require.NoError(t, err)

	assert.Equal(t, model.Date(2024, 12, 15), dec15)
	assert.Equal(t, model.Date(2025, 1, 2), jan02)
	assert.Equal(t, model.Date(2025, 1, 20), jan20)

	_, err = y.monthDay("FEB", "30")
	assert.Error(t, err)
}

func TestYearTracker_PeriodStartYear(t *testing.T) {
	var meta Metadata
	y, err := newYearTracker("Statement Period: Dec 15 - Jan 14, 2025", &meta)
	require.NoError(t, err)
	assert.Equal(t, model.Date(2024, 12, 15), meta.PeriodStart)
	assert.Equal(t, model.Date(2025, 1, 14), meta.PeriodEnd)

	d, err := y.monthDay("JAN", "3")
	require.NoError(t, err)
	assert.Equal(t, model.Date(2025, 1, 3), d)
}

func TestYearTracker_FallbackNeedsDate(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"Issued March 2024", 2024},
		{"Printed Jan 5, 2023", 2023},
		{"Total 2025.00\nPrinted 01/10/2024", 2024},
		{"Created 2022-07-01", 2022},
		{"Cheque 2021 cleared", 0},
		{"Total 2025.00", 0},
	}
	for _, tt := range tests {
		var meta Metadata
		y, err := newYearTracker(tt.text, &meta)
		if tt.want == 0 {
			assert.ErrorIs(t, err, ErrNoYear, tt.text)
			continue
		}
		require.NoError(t, err, tt.text)
		assert.Equal(t, tt.want, y.year, tt.text)
	}
}

func TestCleanDescription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"POS PURCHASE TIM HORTONS", "TIM HORTONS, Pos purchase"},
		{"DEBIT CARD PURCHASE - COSTCO 1234567", "COSTCO, Debit card purchase"},
		{"CHQ#00123-4567890 LANDLORD", "LANDLORD"},
		{"PAYROLL - ACME", "ACME, PAYROLL"},
		{"REF 9f86d081884c7d659a2feaa0c55ad015 NETFLIX", "REF NETFLIX"},
		{"MSP SHOPPERS", "SHOPPERS"},
		{"MONTHLY FEE", "MONTHLY FEE"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanDescription(tt.in, chequingPrefixes), tt.in)
	}
}

func TestFindAmounts(t *testing.T) {
	amts := findAmounts("STORE #1234 1,226.84 -50.00 15.00 CR 20.00OD 1.234")
	require.Len(t, amts, 4)
	assert.True(t, amts[0].value.Equal(decimal.RequireFromString("1226.84")))
	assert.True(t, amts[1].negative)
	assert.True(t, amts[2].explicitCredit())
	assert.Equal(t, "OD", amts[3].suffix)
	assert.True(t, amts[3].signed().Equal(decimal.RequireFromString("-20.00")))
}

func TestSettle_AmbiguousBalancePrefersKeywords(t *testing.T) {
	rows := []row{
		{date: model.Date(2025, 1, 2), desc: "REFUND STORE", amount: dec("10.00")},
		{date: model.Date(2025, 1, 3), desc: "STORE", amount: dec("10.00"), balance: decimal.NewNullDecimal(dec("100.00"))},
	}
	txns := settle(rows, decimal.NewNullDecimal(dec("100.00")))
	require.Len(t, txns, 2)
	assert.True(t, txns[0].Credit.Equal(dec("10.00")))
	assert.True(t, txns[1].Debit.Equal(dec("10.00")))
	assert.Equal(t, model.WarningAmbiguousDirection, txns[0].Warning)
	assert.Equal(t, model.WarningAmbiguousDirection, txns[1].Warning)
}

func TestSettle_UnreachableBalanceFallsBack(t *testing.T) {
	rows := []row{
		{desc: "COFFEE", amount: dec("5.00"), balance: decimal.NewNullDecimal(dec("42.00"))},
	}
	txns := settle(rows, decimal.NewNullDecimal(dec("100.00")))
	assert.True(t, txns[0].Debit.Equal(dec("5.00")))
	assert.Equal(t, model.WarningAmbiguousDirection, txns[0].Warning)
}

func TestScan_FindsStatements(t *testing.T) {
	dir := t.TempDir()
	importDir := filepath.Join(dir, "import")
	require.NoError(t, os.MkdirAll(filepath.Join(importDir, "processed"), 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(importDir, "bank.csv"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "td.TXT"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "scan.pdf"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "processed", "old.csv"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "bank.csv", files[0].Name)
	assert.Equal(t, "td.TXT", files[1].Name)
	assert.Equal(t, int64(4), files[0].Size)
}

func TestScan_EmptyDir(t *testing.T) {
	files, err := Scan(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	importDir := filepath.Join(dir, "import")
	require.NoError(t, os.MkdirAll(importDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "bank.txt"), []byte("data"), 0o644))

	require.NoError(t, MarkProcessed(dir, "bank.txt"))

	_, err := os.Stat(filepath.Join(importDir, "bank.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "import", "processed", "bank.txt"))
	assert.NoError(t, err)
}
