package rules

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/tally/internal/model"
)

// Default cascade thresholds.
const (
	DefaultTokenThreshold     = 0.6
	DefaultFuzzyThreshold     = 0.25
	DefaultBayesMinConfidence = 0.6
	DefaultContainsMinLength  = 4
)

// Layer is one step of the matching cascade. Threshold meaning depends on
// Kind: minimum overlap for token, maximum normalized distance for fuzzy,
// minimum probability for bayesian, minimum name length for contains.
type Layer struct {
	Kind      model.MatchLayer `yaml:"kind"`
	Threshold float64          `yaml:"threshold,omitempty"`
}

// Override maps a description pattern straight to an account.
type Override struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Account string `yaml:"account"`
}

// Table is the persisted categorization rule set.
type Table struct {
	Layers    []Layer    `yaml:"layers"`
	Overrides []Override `yaml:"overrides"`
}

// DefaultLayers returns the standard cascade order.
func DefaultLayers() []Layer {
	return []Layer{
		{Kind: model.LayerExact},
		{Kind: model.LayerContains, Threshold: DefaultContainsMinLength},
		{Kind: model.LayerToken, Threshold: DefaultTokenThreshold},
		{Kind: model.LayerFuzzy, Threshold: DefaultFuzzyThreshold},
		{Kind: model.LayerPhonetic},
		{Kind: model.LayerBayesian, Threshold: DefaultBayesMinConfidence},
		{Kind: model.LayerRegexOverride},
	}
}

// DefaultOverrides returns the built-in high-specificity patterns. Order
// matters: the first matching pattern wins.
func DefaultOverrides() []Override {
	return []Override{
		{Name: "workers-comp", Pattern: `(?i)wcb|workers\s*comp`, Account: "9750"},
		{Name: "pay-file-fee", Pattern: `(?i)pay[-\s]?file|file\s*fee`, Account: "7700"},
		{Name: "loan-payment", Pattern: `(?i)loan\s*(payment|credit|pmt)`, Account: "2710"},
		{Name: "loan-interest", Pattern: `(?i)loan\s*interest`, Account: "7700"},
		{Name: "bank-fee", Pattern: `(?i)account\s*fee|service\s*charge|bank\s*fee`, Account: "7700"},
		{Name: "shareholder-personal", Pattern: `(?i)shareholder.*(personal|loan)`, Account: "2650"},
		{Name: "shareholder-transfer", Pattern: `(?i)(online\s*banking|online)\s*transfer.*(to|from)\s*(savings|personal)`, Account: "2652"},
		{Name: "e-transfer-sent", Pattern: `(?i)e-transfer.*sent`, Account: "8950"},
		{Name: "gst-remittance", Pattern: `(?i)gst.*(payable|remittance)`, Account: "2170"},
		{Name: "receiver-general", Pattern: `(?i)receiver\s*general`, Account: "2170"},
		{Name: "meals", Pattern: `(?i)starbucks|tim\s*horton|mcdonald|coffee|cafe|restaurant|burger`, Account: "6415"},
		{Name: "fuel", Pattern: `(?i)\b(shell|chevron|esso|petro|gas|fuel)\b`, Account: "7400"},
		{Name: "office-supplies", Pattern: `(?i)staples|office\s*depot|best\s*buy`, Account: "8600"},
		{Name: "software", Pattern: `(?i)adobe|microsoft|google.*storage|apple.*service`, Account: "1857"},
		{Name: "ground-travel", Pattern: `(?i)\b(uber|lyft|taxi)\b`, Account: "9200"},
		{Name: "lodging", Pattern: `(?i)hotel|airbnb|booking\.com`, Account: "9200"},
		{Name: "insurance", Pattern: `(?i)insurance|allstate|geico`, Account: "7600"},
		{Name: "utilities", Pattern: `(?i)hydro|fortis|enmax|epcor|utilities`, Account: "9500"},
		{Name: "telecom", Pattern: `(?i)\b(telus|rogers|bell|shaw)\b`, Account: "9100"},
		{Name: "repairs", Pattern: `(?i)home\s*depot|lowes|rona\b`, Account: "8800"},
	}
}

// DefaultTable returns the default layers and overrides.
func DefaultTable() *Table {
	return &Table{Layers: DefaultLayers(), Overrides: DefaultOverrides()}
}

// Threshold returns the configured threshold for kind, or fallback when the
// layer is absent or has none.
func (t *Table) Threshold(kind model.MatchLayer, fallback float64) float64 {
	for _, l := range t.Layers {
		if l.Kind == kind && l.Threshold != 0 {
			return l.Threshold
		}
	}
	return fallback
}

// AddOverride validates and appends an override. Overrides with the same
// name are replaced in place.
func (t *Table) AddOverride(o Override) error {
	if o.Name == "" {
		return fmt.Errorf("override name is required")
	}
	if o.Account == "" {
		return fmt.Errorf("override %q: account is required", o.Name)
	}
	if _, err := regexp.Compile(o.Pattern); err != nil {
		return fmt.Errorf("override %q: %w", o.Name, err)
	}
	for i := range t.Overrides {
		if t.Overrides[i].Name == o.Name {
			t.Overrides[i] = o
			return nil
		}
	}
	t.Overrides = append(t.Overrides, o)
	return nil
}

const relPath = "rules/categorization-rules.yaml"

// Load reads rules/categorization-rules.yaml. A missing file yields the
// default table.
func Load(repoRoot string) (*Table, error) {
	data, err := os.ReadFile(filepath.Join(repoRoot, relPath))
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultTable(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	if len(t.Layers) == 0 {
		t.Layers = DefaultLayers()
	}
	return &t, nil
}

// Save writes the table to rules/categorization-rules.yaml.
func (t *Table) Save(repoRoot string) error {
	path := filepath.Join(repoRoot, relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating rules dir: %w", err)
	}
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshaling rules: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}
	return nil
}
