package ledger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// mockAccounts implements AccountChecker for testing.
type mockAccounts map[string]bool

func (m mockAccounts) Exists(code string) bool { return m[code] }

var defaultAccounts = mockAccounts{"1000": true, "6415": true, "8600": true, "9970": true}

func TestRoundTrip(t *testing.T) {
	txns := []model.Transaction{
		{
			ID:                    "2025-01-001",
			Date:                  model.Date(2025, 1, 3),
			Description:           "STARBUCKS #1234",
			NormalizedDescription: "starbucks",
			Debit:                 dec("23.16"),
			Balance:               decimal.NewNullDecimal(dec("1226.84")),
			VendorID:              "v1",
			AccountCode:           "6415",
			AccountName:           "Client meals and entertainment",
			Category:              "Meals",
			Status:                model.StatusMatched,
			Source:                "td-2025-01.txt",
			Fingerprint:           "abc123",
		},
		{
			ID:          "2025-01-002",
			Date:        model.Date(2025, 1, 4),
			Description: "PAYROLL, DEPOSIT",
			Credit:      dec("2250"),
			Status:      model.StatusUnmatched,
			Warning:     model.WarningAmbiguousDirection,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, txns))
	assert.True(t, strings.HasPrefix(buf.String(), "txn_id,"))

	got, err := ReadTransactions(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	for i := range txns {
		assert.Equal(t, txns[i].ID, got[i].ID)
		assert.True(t, txns[i].Date.Equal(got[i].Date))
		assert.True(t, txns[i].Debit.Equal(got[i].Debit), "debit mismatch row %d", i)
		assert.True(t, txns[i].Credit.Equal(got[i].Credit), "credit mismatch row %d", i)
		assert.Equal(t, txns[i].Balance.Valid, got[i].Balance.Valid)
		assert.Equal(t, txns[i].Description, got[i].Description)
		assert.Equal(t, txns[i].NormalizedDescription, got[i].NormalizedDescription)
		assert.Equal(t, txns[i].VendorID, got[i].VendorID)
		assert.Equal(t, txns[i].AccountCode, got[i].AccountCode)
		assert.Equal(t, txns[i].Status, got[i].Status)
		assert.Equal(t, txns[i].Warning, got[i].Warning)
		assert.Equal(t, txns[i].Fingerprint, got[i].Fingerprint)
	}
	assert.True(t, got[0].Balance.Decimal.Equal(dec("1226.84")))
}

func TestReadTransactions_BadDate(t *testing.T) {
	row := "2025-01-001,01/03/2025,X,,1.00,,,,,,,unmatched,,,"
	_, err := ReadTransactions(strings.NewReader(Header + "\n" + row + "\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestValidate_OneSide(t *testing.T) {
	txns := []model.Transaction{
		{ID: "2025-01-001", Debit: dec("1"), Credit: dec("1")},
		{ID: "2025-01-002"},
		{ID: "2025-01-003", Debit: dec("5")},
	}
	errs := ValidateTransactions(txns, nil)
	require.Len(t, errs, 2)
	assert.Equal(t, RuleOneSide, errs[0].Rule)
	assert.Equal(t, "2025-01-001", errs[0].TransactionID)
	assert.Equal(t, "2025-01-002", errs[1].TransactionID)
}

func TestValidate_Other(t *testing.T) {
	tests := []struct {
		name string
		txn  model.Transaction
		rule string
	}{
		{"negative", model.Transaction{ID: "2025-01-001", Debit: dec("-5")}, RuleNegative},
		{"decimals", model.Transaction{ID: "2025-01-001", Debit: dec("1.005")}, RuleDecimals},
		{"account", model.Transaction{ID: "2025-01-001", Debit: dec("1"), AccountCode: "0000"}, RuleAccount},
		{"id", model.Transaction{ID: "bogus", Debit: dec("1")}, RuleID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateTransactions([]model.Transaction{tt.txn}, defaultAccounts)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.rule, errs[0].Rule)
		})
	}
}

func TestValidate_DuplicateID(t *testing.T) {
	txns := []model.Transaction{
		{ID: "2025-01-001", Debit: dec("1")},
		{ID: "2025-01-001", Credit: dec("1")},
	}
	errs := ValidateTransactions(txns, defaultAccounts)
	require.Len(t, errs, 1)
	assert.Equal(t, RuleDuplicate, errs[0].Rule)
}

func TestStoreAddAssignsMonthlyIDs(t *testing.T) {
	s := NewStore(t.TempDir(), []model.Transaction{
		{ID: "2025-01-007", Date: model.Date(2025, 1, 2), Debit: dec("1")},
	}, defaultAccounts)

	added, err := s.Add([]model.Transaction{
		{Date: model.Date(2025, 1, 20), Debit: dec("2")},
		{Date: model.Date(2025, 2, 1), Credit: dec("3")},
		{Date: model.Date(2025, 1, 21), Debit: dec("4")},
	})
	require.NoError(t, err)
	require.Len(t, added, 3)
	assert.Equal(t, "2025-01-008", added[0].ID)
	assert.Equal(t, "2025-02-001", added[1].ID)
	assert.Equal(t, "2025-01-009", added[2].ID)
	assert.Equal(t, 4, s.Len())

	got, err := s.Get("2025-02-001")
	require.NoError(t, err)
	assert.True(t, got.Credit.Equal(dec("3")))
}

func TestStoreAddRejectsBatch(t *testing.T) {
	s := NewStore(t.TempDir(), nil, defaultAccounts)

	_, err := s.Add([]model.Transaction{
		{Date: model.Date(2025, 1, 1), Debit: dec("2")},
		{Date: model.Date(2025, 1, 2)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Equal(t, 0, s.Len())

	added, err := s.Add([]model.Transaction{{Date: model.Date(2025, 1, 1), Debit: dec("2")}})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-001", added[0].ID, "a failed batch must not consume IDs")
}

func TestStoreUpdateAndApply(t *testing.T) {
	s := NewStore(t.TempDir(), []model.Transaction{
		{ID: "2025-01-001", Date: model.Date(2025, 1, 2), Debit: dec("1")},
	}, nil)

	got, err := s.Update("2025-01-001", func(txn *model.Transaction) { txn.Status = model.StatusManual })
	require.NoError(t, err)
	assert.Equal(t, model.StatusManual, got.Status)

	_, err = s.Update("2025-09-001", func(*model.Transaction) {})
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := s.Get("2025-01-001")
	require.NoError(t, err)
	assert.Equal(t, model.StatusManual, stored.Status)
}

func TestStoreAllIsCopy(t *testing.T) {
	s := NewStore(t.TempDir(), []model.Transaction{{ID: "2025-01-001", Debit: dec("1")}}, nil)
	all := s.All()
	all[0].AccountCode = "changed"

	got, err := s.Get("2025-01-001")
	require.NoError(t, err)
	assert.Empty(t, got.AccountCode)
}

func TestStoreSaveLoad(t *testing.T) {
	dir := t.TempDir()

	s, err := Load(dir, defaultAccounts)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	_, err = s.Add([]model.Transaction{{Date: model.Date(2025, 3, 4), Description: "SHELL", Debit: dec("40.00")}})
	require.NoError(t, err)
	require.NoError(t, s.Save())

	_, err = os.Stat(filepath.Join(dir, "ledger", "transactions.csv"))
	require.NoError(t, err)

	s2, err := Load(dir, defaultAccounts)
	require.NoError(t, err)
	got, err := s2.Get("2025-03-001")
	require.NoError(t, err)
	assert.Equal(t, "SHELL", got.Description)
	assert.True(t, got.Debit.Equal(dec("40")))
}
