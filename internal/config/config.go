// Package config provides configuration loading and documented defaults
// for the tagwatch monitoring core.
//
// All values can be overridden via a YAML config file; zero values are
// replaced with the defaults below at load time.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Defaults
// =============================================================================

const (
	// DefaultMaxRows is the historical store's hard row cap.
	// Override via config: dvr.max_rows
	DefaultMaxRows = 60000

	// DefaultRetentionMinutes is the historical store's retention window.
	// Override via config: dvr.retention_minutes
	DefaultRetentionMinutes = 5

	// DefaultSparklinePoints is the output-size bound for downsampled
	// series queries when the caller does not specify one.
	// Override via config: dvr.sparkline_points
	DefaultSparklinePoints = 60

	// DefaultEventPageSize is the ledger query page size when the caller
	// does not specify a limit.
	// Override via config: ledger.page_size
	DefaultEventPageSize = 100

	// DefaultLedgerFile is the ledger database filename under DataDir.
	DefaultLedgerFile = "alerts.duckdb"

	// DefaultSnapshotFile is the DVR snapshot filename under DataDir.
	DefaultSnapshotFile = "dvr.parquet"
)

// Config is the complete configuration for the monitoring core.
type Config struct {
	// DataDir is the root directory for all persisted files.
	DataDir string `yaml:"data_dir"`

	Logging LoggingConfig `yaml:"logging"`
	DVR     DVRConfig     `yaml:"dvr"`
	Ledger  LedgerConfig  `yaml:"ledger"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is one of: debug, info, warn, error.
	Level string `yaml:"level"`

	// JSON selects JSON output instead of human-readable text.
	JSON bool `yaml:"json"`
}

// DVRConfig configures the historical store.
type DVRConfig struct {
	// MaxRows is the ring capacity; the oldest-inserted sample is
	// overwritten once exceeded.
	MaxRows int `yaml:"max_rows"`

	// RetentionMinutes is the maximum sample age, enforced at insert.
	RetentionMinutes int `yaml:"retention_minutes"`

	// SparklinePoints is the default downsampled series size.
	SparklinePoints int `yaml:"sparkline_points"`

	// SnapshotOnClose writes retained samples to a parquet snapshot at
	// shutdown and restores them at startup.
	SnapshotOnClose bool `yaml:"snapshot_on_close"`
}

// LedgerConfig configures the alert history ledger.
type LedgerConfig struct {
	// Path is the DuckDB database file. Empty means {DataDir}/alerts.duckdb;
	// ":memory:" keeps the ledger in memory (tests).
	Path string `yaml:"path"`

	// PageSize is the default query page size.
	PageSize int `yaml:"page_size"`
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "data",
		Logging: LoggingConfig{Level: "info"},
		DVR: DVRConfig{
			MaxRows:          DefaultMaxRows,
			RetentionMinutes: DefaultRetentionMinutes,
			SparklinePoints:  DefaultSparklinePoints,
			SnapshotOnClose:  true,
		},
		Ledger: LedgerConfig{PageSize: DefaultEventPageSize},
	}
}

// Load reads a YAML config file and applies defaults to unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults replaces zero values with defaults.
func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.DVR.MaxRows == 0 {
		c.DVR.MaxRows = DefaultMaxRows
	}
	if c.DVR.RetentionMinutes == 0 {
		c.DVR.RetentionMinutes = DefaultRetentionMinutes
	}
	if c.DVR.SparklinePoints == 0 {
		c.DVR.SparklinePoints = DefaultSparklinePoints
	}
	if c.Ledger.PageSize == 0 {
		c.Ledger.PageSize = DefaultEventPageSize
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.DVR.MaxRows < 0 {
		return fmt.Errorf("dvr.max_rows must be >= 0, got %d", c.DVR.MaxRows)
	}
	if c.DVR.RetentionMinutes < 0 {
		return fmt.Errorf("dvr.retention_minutes must be >= 0, got %d", c.DVR.RetentionMinutes)
	}
	if c.DVR.SparklinePoints < 3 {
		return fmt.Errorf("dvr.sparkline_points must be >= 3, got %d", c.DVR.SparklinePoints)
	}
	if c.Ledger.PageSize <= 0 {
		return fmt.Errorf("ledger.page_size must be > 0, got %d", c.Ledger.PageSize)
	}
	return nil
}

// LedgerPath returns the resolved ledger database path.
func (c *Config) LedgerPath() string {
	if c.Ledger.Path != "" {
		return c.Ledger.Path
	}
	return filepath.Join(c.DataDir, DefaultLedgerFile)
}

// SnapshotPath returns the resolved DVR snapshot path.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.DataDir, DefaultSnapshotFile)
}
