package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Bounds for sampling and tag thresholds.
const (
	MaxSampleLines   = 100
	MaxSampleChars   = 8192
	MinTagConfidence = 0.55
)

// ScanConfig holds scan engine settings.
type ScanConfig struct {
	// DepthLimit bounds recursion below each root; nil means unlimited
	DepthLimit *int `yaml:"depth_limit"`

	// ProgressInterval throttles progress reports
	ProgressInterval time.Duration `yaml:"progress_interval"`

	// QueuePollInterval is how often a queued scan retries its locks
	QueuePollInterval time.Duration `yaml:"queue_poll_interval"`

	// SampleMaxLines caps the sampled lines per file
	SampleMaxLines int `yaml:"sample_max_lines"`

	// SampleMaxChars caps the sampled characters per file
	SampleMaxChars int `yaml:"sample_max_chars"`

	// IgnoreFile is the per-root file of extra ignore patterns
	IgnoreFile string `yaml:"ignore_file"`
}

// TagsConfig holds tag classifier settings.
type TagsConfig struct {
	// MinConfidence is the floor a tag must reach to be suggested
	MinConfidence float64 `yaml:"min_confidence"`

	// ContentMaxFiles caps the files read by content scanning
	ContentMaxFiles int `yaml:"content_max_files"`

	// SizeMaxFiles caps the files counted by the size classifier
	SizeMaxFiles int `yaml:"size_max_files"`

	// CacheEntries sizes the per-file content scan cache
	CacheEntries int `yaml:"cache_entries"`
}

// Config represents devscan configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// DBPath is the SQLite database; relative paths are under the home directory
	DBPath string `yaml:"db_path"`

	// SnapshotDir receives one snapshot document per completed scan
	SnapshotDir string `yaml:"snapshot_dir"`

	// LogDir receives per-scan log files
	LogDir string `yaml:"log_dir"`

	Scan ScanConfig `yaml:"scan"`
	Tags TagsConfig `yaml:"tags"`
}

// DefaultConfig returns a Config with the default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:    "info",
		DBPath:      "devscan.db",
		SnapshotDir: "snapshots",
		LogDir:      "logs",
		Scan: ScanConfig{
			ProgressInterval:  500 * time.Millisecond,
			QueuePollInterval: 500 * time.Millisecond,
			SampleMaxLines:    MaxSampleLines,
			SampleMaxChars:    MaxSampleChars,
			IgnoreFile:        ".devscanignore",
		},
		Tags: TagsConfig{
			MinConfidence:   MinTagConfidence,
			ContentMaxFiles: 120,
			SizeMaxFiles:    2500,
			CacheEntries:    4096,
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// A missing file yields the defaults; a malformed file is an error.
// Values present in the file override the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// durations are read as strings so "500ms" and "2s" both parse
	type yamlScan struct {
		DepthLimit        *int   `yaml:"depth_limit"`
		ProgressInterval  string `yaml:"progress_interval"`
		QueuePollInterval string `yaml:"queue_poll_interval"`
		SampleMaxLines    int    `yaml:"sample_max_lines"`
		SampleMaxChars    int    `yaml:"sample_max_chars"`
		IgnoreFile        string `yaml:"ignore_file"`
	}
	type yamlConfig struct {
		LogLevel    string     `yaml:"log_level"`
		DBPath      string     `yaml:"db_path"`
		SnapshotDir string     `yaml:"snapshot_dir"`
		LogDir      string     `yaml:"log_dir"`
		Scan        yamlScan   `yaml:"scan"`
		Tags        TagsConfig `yaml:"tags"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.DBPath != "" {
		cfg.DBPath = yamlCfg.DBPath
	}
	if yamlCfg.SnapshotDir != "" {
		cfg.SnapshotDir = yamlCfg.SnapshotDir
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}

	scan := yamlCfg.Scan
	if scan.DepthLimit != nil {
		cfg.Scan.DepthLimit = scan.DepthLimit
	}
	if scan.ProgressInterval != "" {
		d, err := time.ParseDuration(scan.ProgressInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid scan.progress_interval %q: %w", scan.ProgressInterval, err)
		}
		cfg.Scan.ProgressInterval = d
	}
	if scan.QueuePollInterval != "" {
		d, err := time.ParseDuration(scan.QueuePollInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid scan.queue_poll_interval %q: %w", scan.QueuePollInterval, err)
		}
		cfg.Scan.QueuePollInterval = d
	}
	if scan.SampleMaxLines != 0 {
		cfg.Scan.SampleMaxLines = scan.SampleMaxLines
	}
	if scan.SampleMaxChars != 0 {
		cfg.Scan.SampleMaxChars = scan.SampleMaxChars
	}
	if scan.IgnoreFile != "" {
		cfg.Scan.IgnoreFile = scan.IgnoreFile
	}

	tags := yamlCfg.Tags
	if tags.MinConfidence != 0 {
		cfg.Tags.MinConfidence = tags.MinConfidence
	}
	if tags.ContentMaxFiles != 0 {
		cfg.Tags.ContentMaxFiles = tags.ContentMaxFiles
	}
	if tags.SizeMaxFiles != 0 {
		cfg.Tags.SizeMaxFiles = tags.SizeMaxFiles
	}
	if tags.CacheEntries != 0 {
		cfg.Tags.CacheEntries = tags.CacheEntries
	}

	return cfg, nil
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values.
func (c *Config) MergeWithFlags(logLevel *string, dbPath *string, depthLimit *int) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if dbPath != nil {
		c.DBPath = *dbPath
	}
	if depthLimit != nil {
		c.Scan.DepthLimit = depthLimit
	}
}

// ResolvePaths makes the relative storage paths absolute under home.
func (c *Config) ResolvePaths(home string) {
	resolve := func(p string) string {
		if p == "" || p == ":memory:" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(home, p)
	}
	c.DBPath = resolve(c.DBPath)
	c.SnapshotDir = resolve(c.SnapshotDir)
	c.LogDir = resolve(c.LogDir)
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.DBPath == "" {
		return fmt.Errorf("db_path cannot be empty")
	}
	if c.SnapshotDir == "" {
		return fmt.Errorf("snapshot_dir cannot be empty")
	}

	if c.Scan.DepthLimit != nil && *c.Scan.DepthLimit < 0 {
		return fmt.Errorf("scan.depth_limit must be >= 0, got %d", *c.Scan.DepthLimit)
	}
	if c.Scan.ProgressInterval <= 0 {
		return fmt.Errorf("scan.progress_interval must be > 0, got %v", c.Scan.ProgressInterval)
	}
	if c.Scan.QueuePollInterval <= 0 {
		return fmt.Errorf("scan.queue_poll_interval must be > 0, got %v", c.Scan.QueuePollInterval)
	}
	if c.Scan.SampleMaxLines <= 0 || c.Scan.SampleMaxLines > MaxSampleLines {
		return fmt.Errorf("scan.sample_max_lines must be in [1, %d], got %d", MaxSampleLines, c.Scan.SampleMaxLines)
	}
	if c.Scan.SampleMaxChars <= 0 || c.Scan.SampleMaxChars > MaxSampleChars {
		return fmt.Errorf("scan.sample_max_chars must be in [1, %d], got %d", MaxSampleChars, c.Scan.SampleMaxChars)
	}

	if c.Tags.MinConfidence < MinTagConfidence || c.Tags.MinConfidence > 1 {
		return fmt.Errorf("tags.min_confidence must be in [%.2f, 1], got %v", MinTagConfidence, c.Tags.MinConfidence)
	}
	if c.Tags.ContentMaxFiles <= 0 {
		return fmt.Errorf("tags.content_max_files must be > 0, got %d", c.Tags.ContentMaxFiles)
	}
	if c.Tags.SizeMaxFiles <= 0 {
		return fmt.Errorf("tags.size_max_files must be > 0, got %d", c.Tags.SizeMaxFiles)
	}
	if c.Tags.CacheEntries <= 0 {
		return fmt.Errorf("tags.cache_entries must be > 0, got %d", c.Tags.CacheEntries)
	}

	return nil
}
