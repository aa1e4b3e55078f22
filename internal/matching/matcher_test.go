package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/rules"
)

func testVendors() []model.Vendor {
	return []model.Vendor{
		{ID: "v-staples", Name: "Staples", Patterns: []string{"staples"}, DefaultAccountCode: "8600"},
		{ID: "v-depot", Name: "Home Depot", DefaultAccountCode: "8800"},
		{ID: "v-walmart", Name: "Walmart", DefaultAccountCode: "5350"},
		{ID: "v-tims", Name: "Tim Hortons", DefaultAccountCode: "6415"},
		{ID: "v-sushi", Name: "Sushi Yama", DefaultAccountCode: "6415"},
	}
}

func TestMatchCascade(t *testing.T) {
	m := New(testVendors(), rules.DefaultTable())

	tests := []struct {
		payee      string
		wantLayer  model.MatchLayer
		wantVendor string
		wantAcct   string
	}{
		{"STAPLES #123", model.LayerExact, "v-staples", ""},
		{"TIMS 0423", model.LayerExact, "v-tims", ""},
		{"STAPLES BUSINESS DEPOT 44", model.LayerContains, "v-staples", ""},
		{"DEPOT HOME CA", model.LayerToken, "v-depot", ""},
		{"WALMRT", model.LayerFuzzy, "v-walmart", ""},
		{"SOOSHEE YAMMA", model.LayerPhonetic, "v-sushi", ""},
		{"HORTONS DRIVE THRU", model.LayerBayesian, "", "6415"},
		{"WCB ALBERTA", model.LayerRegexOverride, "", "9750"},
	}
	for _, tt := range tests {
		t.Run(tt.payee, func(t *testing.T) {
			got := m.Match(tt.payee)
			require.True(t, got.Matched())
			assert.Equal(t, tt.wantLayer, got.Layer)
			assert.Equal(t, tt.wantVendor, got.VendorID)
			assert.Equal(t, tt.wantAcct, got.AccountCode)
			assert.Greater(t, got.Confidence, 0.0)
		})
	}
}

func TestMatchNoHit(t *testing.T) {
	m := New(testVendors(), rules.DefaultTable())
	assert.False(t, m.Match("ZZZ QQQ").Matched())
	assert.False(t, m.Match("").Matched())
}

func TestMatchEmptyDictionary(t *testing.T) {
	m := New(nil, rules.DefaultTable())
	assert.False(t, m.Match("ZZZ QQQ").Matched())

	got := m.Match("SERVICE CHARGE")
	assert.Equal(t, model.LayerRegexOverride, got.Layer)
	assert.Equal(t, "7700", got.AccountCode)
}

func TestMatchRespectsLayerOrder(t *testing.T) {
	table := &rules.Table{Layers: []rules.Layer{{Kind: model.LayerRegexOverride}, {Kind: model.LayerExact}}, Overrides: rules.DefaultOverrides()}
	m := New(testVendors(), table)

	got := m.Match("STAPLES")
	assert.Equal(t, model.LayerRegexOverride, got.Layer)
	assert.Equal(t, "office-supplies", got.Rule)
}

func TestMatchDisabledLayer(t *testing.T) {
	table := &rules.Table{Layers: []rules.Layer{{Kind: model.LayerExact}}}
	m := New(testVendors(), table)
	assert.False(t, m.Match("WALMRT").Matched())
}

func TestMatcherIsolatedFromSnapshot(t *testing.T) {
	vs := testVendors()
	m := New(vs, rules.DefaultTable())
	vs[0].Name = "Changed"

	v, ok := m.Vendor("v-staples")
	require.True(t, ok)
	assert.Equal(t, "Staples", v.Name)
}

func TestMatcherAdd(t *testing.T) {
	m := New(testVendors(), rules.DefaultTable())
	require.Empty(t, m.Match("BLUE HERON CAFE").VendorID)

	m.Add(model.Vendor{ID: "v-heron", Name: "Blue Heron Cafe"})
	res := m.Match("BLUE HERON CAFE")
	assert.Equal(t, "v-heron", res.VendorID)
	assert.Equal(t, model.LayerExact, res.Layer)

	// A known ID is left alone.
	m.Add(model.Vendor{ID: "v-staples", Name: "Something Else"})
	v, ok := m.Vendor("v-staples")
	require.True(t, ok)
	assert.Equal(t, "Staples", v.Name)
	assert.Equal(t, "v-staples", m.Match("STAPLES #1").VendorID)
}

func TestMatchDeterministic(t *testing.T) {
	payees := []string{"STAPLES #1", "WALMRT", "HORTONS DRIVE THRU", "ZZZ", "DEPOT HOME CA"}
	a := New(testVendors(), rules.DefaultTable())
	b := New(testVendors(), rules.DefaultTable())
	for _, p := range payees {
		assert.Equal(t, a.Match(p), b.Match(p), p)
		assert.Equal(t, a.Match(p), a.Match(p), p)
	}
}

func TestSuggestAccountNeedsTwoAccounts(t *testing.T) {
	m := New([]model.Vendor{{ID: "v1", Name: "Shell", DefaultAccountCode: "7400"}}, rules.DefaultTable())
	_, _, ok := m.SuggestAccount("SHELL")
	assert.False(t, ok)
}

func TestJaccard(t *testing.T) {
	assert.InDelta(t, 2.0/3.0, jaccard([]string{"depot", "home", "ca"}, []string{"home", "depot"}), 1e-9)
	assert.InDelta(t, 1.0, jaccard([]string{"a", "a"}, []string{"a"}), 1e-9)
	assert.Zero(t, jaccard(nil, []string{"a"}))
}
