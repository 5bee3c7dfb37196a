// Package exportconfig holds the settings shared by the export commands.
package exportconfig

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up by LoadFromDir.
const FileName = "signal2html.yaml"

const (
	FormatHTML    = "html"
	FormatJSONL   = "jsonl"
	FormatArchive = "archive"
)

// Config represents the export configuration
type Config struct {
	Input      InputConfig      `yaml:"input"`
	Output     OutputConfig     `yaml:"output"`
	Processing ProcessingConfig `yaml:"processing"`
	Colors     ColorsConfig     `yaml:"colors"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type InputConfig struct {
	BackupDir    string `yaml:"backup_dir"`
	DatabaseFile string `yaml:"database_file"`
	VersionFile  string `yaml:"version_file"`
}

type OutputConfig struct {
	Dir             string   `yaml:"dir"`
	Formats         []string `yaml:"formats"`
	ArchiveDB       string   `yaml:"archive_db"`
	CopyAttachments bool     `yaml:"copy_attachments"`
	Timezone        string   `yaml:"timezone"`
}

type ProcessingConfig struct {
	Workers          int  `yaml:"workers"`
	SkipEmptyThreads bool `yaml:"skip_empty_threads"`
}

type ColorsConfig struct {
	// Seed for colors of recipients without a stored one. 0 seeds from the clock.
	Seed uint64 `yaml:"seed"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Input: InputConfig{
			DatabaseFile: "database.sqlite",
			VersionFile:  "DatabaseVersion.sbf",
		},
		Output: OutputConfig{
			Formats:         []string{FormatHTML},
			ArchiveDB:       "archive.db",
			CopyAttachments: true,
		},
		Processing: ProcessingConfig{
			Workers:          1,
			SkipEmptyThreads: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromDir looks for signal2html.yaml in the given directory or parent directories
func LoadFromDir(dir string) (*Config, error) {
	current := dir
	for {
		path := filepath.Join(current, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return nil, fmt.Errorf("%s not found in %s or parent directories", FileName, dir)
}

// LoadFromFlagOrDir loads the config from cfgPath if provided, otherwise searches
// for signal2html.yaml starting from dir. A missing file yields the defaults.
func LoadFromFlagOrDir(cfgPath string, dir string) (*Config, error) {
	if strings.TrimSpace(cfgPath) != "" {
		return Load(cfgPath)
	}
	cfg, err := LoadFromDir(dir)
	if err != nil {
		return Default(), nil
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late in the export.
func (c *Config) Validate() error {
	if len(c.Output.Formats) == 0 {
		return fmt.Errorf("output.formats must not be empty")
	}
	for _, f := range c.Output.Formats {
		if !slices.Contains([]string{FormatHTML, FormatJSONL, FormatArchive}, f) {
			return fmt.Errorf("unknown output format %q", f)
		}
	}
	if c.Processing.Workers < 1 {
		return fmt.Errorf("processing.workers must be at least 1, got %d", c.Processing.Workers)
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// HasFormat reports whether the given output format is enabled.
func (c *Config) HasFormat(format string) bool {
	return slices.Contains(c.Output.Formats, format)
}

// DatabasePath is the backup database inside the backup directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Input.BackupDir, c.Input.DatabaseFile)
}

// VersionPath is the version marker inside the backup directory.
func (c *Config) VersionPath() string {
	return filepath.Join(c.Input.BackupDir, c.Input.VersionFile)
}

// ArchivePath resolves the archive database relative to the output directory.
func (c *Config) ArchivePath() string {
	if filepath.IsAbs(c.Output.ArchiveDB) {
		return c.Output.ArchiveDB
	}
	return filepath.Join(c.Output.Dir, c.Output.ArchiveDB)
}

// Hash returns a SHA256 hash of the configuration for change detection
func (c *Config) Hash() string {
	data, _ := yaml.Marshal(c)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
