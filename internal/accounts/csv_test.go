package accounts

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/model"
)

func TestRoundTrip(t *testing.T) {
	accounts := []model.Account{
		{Code: "1000", Name: "Bank - chequing", Type: model.AccountTypeAsset, Category: "Bank"},
		{Code: "9750", Name: "Workers compensation", Type: model.AccountTypeExpense, Category: "Payroll"},
	}

	var buf bytes.Buffer
	err := WriteAccounts(&buf, accounts)
	require.NoError(t, err)

	got, err := ReadAccounts(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, accounts, got)
}

func TestReadAccounts_Empty(t *testing.T) {
	got, err := ReadAccounts(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReadAccounts_BadType(t *testing.T) {
	data := "account_code,account_name,account_type,category\n1000,Bank,cash,Bank\n"
	_, err := ReadAccounts(strings.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown account_type")
	assert.Contains(t, err.Error(), "row 2")
}

func TestReadAccounts_EmptyCode(t *testing.T) {
	data := "account_code,account_name,account_type,category\n,Bank,asset,Bank\n"
	_, err := ReadAccounts(strings.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty account_code")
}

func TestReadAccounts_WrongFieldCount(t *testing.T) {
	data := "account_code,account_name,account_type,category\n1000,Bank,asset\n"
	_, err := ReadAccounts(strings.NewReader(data))
	assert.Error(t, err)
}

func TestDefaultChart(t *testing.T) {
	chart := DefaultChart("corporation")
	require.NotEmpty(t, chart)

	codes := make(map[string]bool)
	for _, acct := range chart {
		assert.False(t, codes[acct.Code], "duplicate code %s", acct.Code)
		codes[acct.Code] = true
	}
	assert.True(t, codes["1000"], "expected bank chequing")
	assert.True(t, codes["9750"], "expected workers compensation")
	assert.True(t, codes[model.SuspenseAccountCode], "expected suspense account")

	for _, acct := range chart {
		assert.NotEmpty(t, acct.Name, "account %s missing name", acct.Code)
		assert.NotEmpty(t, acct.Type, "account %s missing type", acct.Code)
	}
}

func TestDefaultChart_UnknownEntityType(t *testing.T) {
	// Unknown entity types fall back to the corporation chart.
	chart := DefaultChart("unknown_type")
	assert.Equal(t, DefaultChart("corporation"), chart)
}
