package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/rules"
)

// FileName is the config file at the root of a data repo.
const FileName = "tally.yaml"

// Config represents the top-level tally.yaml configuration.
type Config struct {
	Business       BusinessConfig       `yaml:"business"`
	Git            GitConfig            `yaml:"git"`
	Matching       MatchingConfig       `yaml:"matching"`
	Allocation     AllocationConfig     `yaml:"allocation"`
	Scheduler      SchedulerConfig      `yaml:"scheduler"`
	Reconciliation ReconciliationConfig `yaml:"reconciliation"`
	Dedup          DedupConfig          `yaml:"dedup"`
	Enrichment     EnrichmentConfig     `yaml:"enrichment"`
}

// BusinessConfig identifies the business entity.
type BusinessConfig struct {
	Name       string `yaml:"name"`
	EntityType string `yaml:"entity_type"`
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// MatchingConfig overrides the cascade thresholds of the rule table. Zero
// keeps the table's value.
type MatchingConfig struct {
	TokenThreshold     float64 `yaml:"token_threshold"`
	FuzzyThreshold     float64 `yaml:"fuzzy_threshold"`
	BayesMinConfidence float64 `yaml:"bayes_min_confidence"`
	ContainsMinLength  int     `yaml:"contains_min_length"`
}

// AllocationConfig controls the allocator fallback.
type AllocationConfig struct {
	SuspenseAccount string `yaml:"suspense_account"`
}

// SchedulerConfig controls background recategorization.
type SchedulerConfig struct {
	Interval time.Duration `yaml:"interval"`
	Mode     string        `yaml:"mode"` // poll or reactive
}

// ReconciliationConfig controls balance checks.
type ReconciliationConfig struct {
	Tolerance float64 `yaml:"tolerance"`
}

// DedupConfig controls fingerprinting and transfer pairing.
type DedupConfig struct {
	TransferWindowDays int     `yaml:"transfer_window_days"`
	TransferTolerance  float64 `yaml:"transfer_tolerance"`
	DescriptionLength  int     `yaml:"description_length"`
}

// EnrichmentConfig controls vendor name lookups. The API key is a secret
// and comes from the environment.
type EnrichmentConfig struct {
	Enabled        bool          `yaml:"enabled"`
	MinDelay       time.Duration `yaml:"min_delay"`
	SearchEngineID string        `yaml:"search_engine_id"`
}

// Load reads a tally.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filepath.Base(path), err)
	}
	return &cfg, nil
}

// LoadRepo reads tally.yaml from a data repo root.
func LoadRepo(repoRoot string) (*Config, error) {
	return Load(filepath.Join(repoRoot, FileName))
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(businessName, entityType string) *Config {
	return &Config{
		Business: BusinessConfig{
			Name:       businessName,
			EntityType: entityType,
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "Tally",
			AuthorEmail: "tally@cleared.dev",
		},
		Matching: MatchingConfig{
			TokenThreshold:     rules.DefaultTokenThreshold,
			FuzzyThreshold:     rules.DefaultFuzzyThreshold,
			BayesMinConfidence: rules.DefaultBayesMinConfidence,
			ContainsMinLength:  rules.DefaultContainsMinLength,
		},
		Allocation: AllocationConfig{
			SuspenseAccount: model.SuspenseAccountCode,
		},
		Scheduler: SchedulerConfig{
			Interval: 30 * time.Second,
			Mode:     "poll",
		},
		Reconciliation: ReconciliationConfig{
			Tolerance: 0.01,
		},
		Dedup: DedupConfig{
			TransferWindowDays: 3,
			TransferTolerance:  0.02,
			DescriptionLength:  40,
		},
		Enrichment: EnrichmentConfig{
			MinDelay: time.Second,
		},
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	switch c.Scheduler.Mode {
	case "", "poll", "reactive":
	default:
		errs = append(errs, fmt.Errorf("scheduler.mode %q: must be poll or reactive", c.Scheduler.Mode))
	}
	if c.Scheduler.Interval < 0 {
		errs = append(errs, fmt.Errorf("scheduler.interval must not be negative"))
	}
	if c.Reconciliation.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("reconciliation.tolerance must not be negative"))
	}
	if c.Dedup.TransferWindowDays < 0 || c.Dedup.TransferTolerance < 0 || c.Dedup.DescriptionLength < 0 {
		errs = append(errs, fmt.Errorf("dedup values must not be negative"))
	}
	for name, v := range map[string]float64{
		"token_threshold":      c.Matching.TokenThreshold,
		"fuzzy_threshold":      c.Matching.FuzzyThreshold,
		"bayes_min_confidence": c.Matching.BayesMinConfidence,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("matching.%s %v: must be between 0 and 1", name, v))
		}
	}
	return errors.Join(errs...)
}

// ApplyTo copies the non-zero matching thresholds into the table's layers.
func (m MatchingConfig) ApplyTo(t *rules.Table) {
	for i := range t.Layers {
		var v float64
		switch t.Layers[i].Kind {
		case model.LayerToken:
			v = m.TokenThreshold
		case model.LayerFuzzy:
			v = m.FuzzyThreshold
		case model.LayerBayesian:
			v = m.BayesMinConfidence
		case model.LayerContains:
			v = float64(m.ContainsMinLength)
		}
		if v != 0 {
			t.Layers[i].Threshold = v
		}
	}
}

// TransferWindow returns the pairing window, zero when unset.
func (d DedupConfig) TransferWindow() time.Duration {
	return time.Duration(d.TransferWindowDays) * 24 * time.Hour
}

// Decimal converts a configured money tolerance.
func Decimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// Secrets are credentials read from the environment, never from tally.yaml.
type Secrets struct {
	SearchAPIKey   string
	SearchEngineID string
}

// EnvPrefix prefixes every environment variable tally reads.
const EnvPrefix = "TALLY"

// LoadSecrets loads <repoRoot>/.env when present, without overriding
// variables already set, then reads TALLY_* variables.
func LoadSecrets(repoRoot string) (Secrets, error) {
	path := filepath.Join(repoRoot, ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Secrets{}, fmt.Errorf("loading %s: %w", path, err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault("SEARCH_API_KEY", "")
	v.SetDefault("SEARCH_ENGINE_ID", "")

	return Secrets{
		SearchAPIKey:   v.GetString("SEARCH_API_KEY"),
		SearchEngineID: v.GetString("SEARCH_ENGINE_ID"),
	}, nil
}
