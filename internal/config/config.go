// Package config holds the run configuration for taxonomy
// consolidation, merged from defaults, an optional YAML file,
// environment variables, and command-line flags, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rangefold/lasso/internal/taxonomy"
)

// Config holds the knobs for a consolidation run
type Config struct {
	// InputDir is the directory holding period-scoped annotation logs
	// Default: "logs"
	InputDir string `yaml:"input_dir"`

	// InputPattern names period files; must contain exactly one %s,
	// replaced by the period token (e.g. review_reasons_202510.jsonl)
	// Default: "review_reasons_%s.jsonl"
	InputPattern string `yaml:"input_pattern"`

	// Threshold is the minimum similarity score that merges two
	// normalized forms into one cluster
	// Default: 87, Range: 0-100
	Threshold int `yaml:"threshold"`

	// Scorer selects the pairwise similarity scorer
	// Options: "jaro-winkler" or "token-sort"
	// Default: "jaro-winkler"
	Scorer string `yaml:"scorer"`

	// Schema identifies the emitted document layout; its trailing
	// semver determines compatibility with prior documents
	// Default: taxonomy.DefaultSchema
	Schema string `yaml:"schema"`

	// TaxonomyPath is the latest-pointer location; immutable versioned
	// snapshots are written beside it
	// Default: "data/taxonomy/reasons.latest.yml"
	TaxonomyPath string `yaml:"taxonomy_path"`

	// DriftPath receives the drift report for the target period.
	// Empty means derive taxonomy_drift_<period>.csv under InputDir
	DriftPath string `yaml:"drift_path"`

	// ChangelogPath receives append-only change records
	// Empty disables change logging
	// Default: "logs/taxonomy_changes.jsonl"
	ChangelogPath string `yaml:"changelog_path"`

	// IndexPath is the SQLite run-index location
	// Empty disables run indexing
	// Default: ".lasso/lasso.db"
	IndexPath string `yaml:"index_path"`

	// Append gates change-log writing; with it off, diffs are computed
	// and reported but never persisted
	// Default: true
	Append bool `yaml:"append"`
}

// DefaultConfig returns the configuration used when nothing overrides it
func DefaultConfig() Config {
	return Config{
		InputDir:      "logs",
		InputPattern:  "review_reasons_%s.jsonl",
		Threshold:     87,
		Scorer:        taxonomy.ScorerJaroWinkler,
		Schema:        taxonomy.DefaultSchema,
		TaxonomyPath:  "data/taxonomy/reasons.latest.yml",
		DriftPath:     "",
		ChangelogPath: "logs/taxonomy_changes.jsonl",
		IndexPath:     ".lasso/lasso.db",
		Append:        true,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("input_dir cannot be empty")
	}
	if strings.Count(c.InputPattern, "%s") != 1 {
		return fmt.Errorf("input_pattern must contain exactly one %%s (got %q)", c.InputPattern)
	}
	if c.Threshold < 0 || c.Threshold > 100 {
		return fmt.Errorf("threshold must be between 0 and 100 (got %d)", c.Threshold)
	}
	if _, err := taxonomy.NewScorer(c.Scorer); err != nil {
		return err
	}
	if _, _, err := taxonomy.SchemaVersion(c.Schema); err != nil {
		return err
	}
	if c.TaxonomyPath == "" {
		return fmt.Errorf("taxonomy_path cannot be empty")
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{InputDir: %s, InputPattern: %s, Threshold: %d, Scorer: %s, "+
			"Taxonomy: %s, Drift: %s, Changelog: %s, Index: %s, Append: %t}",
		c.InputDir, c.InputPattern, c.Threshold, c.Scorer,
		c.TaxonomyPath, c.DriftPath, c.ChangelogPath, c.IndexPath, c.Append,
	)
}

// LoadFile overlays the YAML file at path onto cfg. The file may set
// any subset of fields; unset fields keep their incoming values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// FromEnv overlays LASSO_* environment variables onto cfg
//
// Environment variables:
//   - LASSO_INPUT_DIR: Directory holding period files (default: logs)
//   - LASSO_INPUT_PATTERN: Period file pattern (default: review_reasons_%s.jsonl)
//   - LASSO_THRESHOLD: Similarity threshold 0-100 (default: 87)
//   - LASSO_SCORER: Similarity scorer name (default: jaro-winkler)
//   - LASSO_SCHEMA: Document schema identifier
//   - LASSO_TAXONOMY: Latest-pointer path
//   - LASSO_DRIFT: Drift report path
//   - LASSO_CHANGELOG: Change-log path
//   - LASSO_INDEX: Run-index database path
//   - LASSO_APPEND: Gate change-log writing (default: true)
//
// Returns an error if any variable has an unparseable value.
func FromEnv(cfg *Config) error {
	if err := parseEnvString("LASSO_INPUT_DIR", &cfg.InputDir); err != nil {
		return err
	}
	if err := parseEnvString("LASSO_INPUT_PATTERN", &cfg.InputPattern); err != nil {
		return err
	}
	if err := parseEnvInt("LASSO_THRESHOLD", &cfg.Threshold); err != nil {
		return err
	}
	if err := parseEnvString("LASSO_SCORER", &cfg.Scorer); err != nil {
		return err
	}
	if err := parseEnvString("LASSO_SCHEMA", &cfg.Schema); err != nil {
		return err
	}
	if err := parseEnvString("LASSO_TAXONOMY", &cfg.TaxonomyPath); err != nil {
		return err
	}
	if err := parseEnvString("LASSO_DRIFT", &cfg.DriftPath); err != nil {
		return err
	}
	if err := parseEnvString("LASSO_CHANGELOG", &cfg.ChangelogPath); err != nil {
		return err
	}
	if err := parseEnvString("LASSO_INDEX", &cfg.IndexPath); err != nil {
		return err
	}
	if err := parseEnvBool("LASSO_APPEND", &cfg.Append); err != nil {
		return err
	}
	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvBool parses a bool from an environment variable
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvString parses a string from an environment variable
func parseEnvString(key string, dest *string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	*dest = value
	return nil
}
