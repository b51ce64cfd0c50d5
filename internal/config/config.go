// Package config provides configuration loading for the lessons pipeline.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then LESSONS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/v2"
)

// DefaultFile is the config file looked up in the working directory when no
// path is given.
const DefaultFile = "lessons.yaml"

// Config holds the complete lessons configuration.
type Config struct {
	Lessons LessonsConfig `koanf:"lessons"`
	Data    DataConfig    `koanf:"data"`
	History HistoryConfig `koanf:"history"`
	Reports ReportsConfig `koanf:"reports"`
	Metrics MetricsConfig `koanf:"metrics"`
	Watch   WatchConfig   `koanf:"watch"`

	// k keeps the merged sources so packages owning their own config types
	// (logging, telemetry) can unmarshal their sections.
	k *koanf.Koanf
}

// LessonsConfig controls document discovery and extraction.
type LessonsConfig struct {
	Dir              string   `koanf:"dir"`
	Extension        string   `koanf:"extension"`
	Workers          int      `koanf:"workers"`
	MaxDocumentBytes int64    `koanf:"max_document_bytes"`
	DateFallback     string   `koanf:"date_fallback"` // now | mtime
	IgnoreFile       string   `koanf:"ignore_file"`
	IgnorePatterns   []string `koanf:"ignore_patterns"` // used when IgnoreFile is absent
}

// DataConfig locates pipeline state and optional rule overrides.
type DataConfig struct {
	Dir           string `koanf:"dir"`
	SchemaFile    string `koanf:"schema_file"`
	RulesFile     string `koanf:"rules_file"`
	TemplatesFile string `koanf:"templates_file"`
}

// HistoryConfig controls the optional SQLite snapshot index.
type HistoryConfig struct {
	SQLitePath string `koanf:"sqlite_path"`
}

// ReportsConfig controls report artifacts.
type ReportsConfig struct {
	Dir     string   `koanf:"dir"`
	TopN    int      `koanf:"top_n"`
	Formats []string `koanf:"formats"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `koanf:"textfile"`
}

// WatchConfig controls the watch command.
type WatchConfig struct {
	MinInterval Duration `koanf:"min_interval"`
	Debounce    Duration `koanf:"debounce"`
}

// Report formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Lessons: LessonsConfig{
			Dir:              "docs/lessons",
			Extension:        ".md",
			Workers:          4,
			MaxDocumentBytes: 1 << 20,
			DateFallback:     "now",
			IgnoreFile:       ".lessonsignore",
		},
		Data: DataConfig{
			Dir:        ".lessons",
			SchemaFile: "validation-schema.json",
		},
		Reports: ReportsConfig{
			TopN:    10,
			Formats: []string{FormatJSON, FormatMarkdown},
		},
		Watch: WatchConfig{
			MinInterval: Duration(2 * time.Second),
			Debounce:    Duration(300 * time.Millisecond),
		},
	}
}

// SchemaPath returns the validation schema location.
func (c *Config) SchemaPath() string {
	return c.dataPath(c.Data.SchemaFile)
}

// RulesPath returns the rules overlay location, or "" when unset.
func (c *Config) RulesPath() string {
	if c.Data.RulesFile == "" {
		return ""
	}
	return c.dataPath(c.Data.RulesFile)
}

// TemplatesPath returns the template definitions location, or "" when unset.
func (c *Config) TemplatesPath() string {
	if c.Data.TemplatesFile == "" {
		return ""
	}
	return c.dataPath(c.Data.TemplatesFile)
}

// ReportsDir returns the report output directory.
func (c *Config) ReportsDir() string {
	if c.Reports.Dir != "" {
		return c.Reports.Dir
	}
	return filepath.Join(c.Data.Dir, "reports")
}

// HasFormat reports whether format is enabled for reports.
func (c *Config) HasFormat(format string) bool {
	for _, f := range c.Reports.Formats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

// dataPath resolves relative file names against the data directory.
func (c *Config) dataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Data.Dir, name)
}

// Section unmarshals the config subtree at key into out. Keys absent from
// every source leave the corresponding fields of out untouched, so callers
// pass a struct pre-filled with their defaults.
func (c *Config) Section(key string, out any) error {
	if c.k == nil || !c.k.Exists(key) {
		return nil
	}
	if err := c.k.Unmarshal(key, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s config: %w", key, err)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Lessons.Dir == "" {
		return errors.New("lessons.dir is required")
	}
	if !strings.HasPrefix(c.Lessons.Extension, ".") {
		return fmt.Errorf("lessons.extension must start with '.', got %q", c.Lessons.Extension)
	}
	if c.Lessons.Workers < 1 || c.Lessons.Workers > 64 {
		return fmt.Errorf("lessons.workers must be 1-64, got %d", c.Lessons.Workers)
	}
	if c.Lessons.MaxDocumentBytes <= 0 {
		return fmt.Errorf("lessons.max_document_bytes must be positive, got %d", c.Lessons.MaxDocumentBytes)
	}
	switch strings.ToLower(c.Lessons.DateFallback) {
	case "now", "mtime":
	default:
		return fmt.Errorf("lessons.date_fallback must be 'now' or 'mtime', got %q", c.Lessons.DateFallback)
	}
	if c.Data.Dir == "" {
		return errors.New("data.dir is required")
	}
	if c.Data.SchemaFile == "" {
		return errors.New("data.schema_file is required")
	}
	if c.Reports.TopN < 1 {
		return fmt.Errorf("reports.top_n must be positive, got %d", c.Reports.TopN)
	}
	for _, f := range c.Reports.Formats {
		switch strings.ToLower(f) {
		case FormatJSON, FormatMarkdown, FormatText:
		default:
			return fmt.Errorf("unknown report format %q (want json, markdown or text)", f)
		}
	}
	if c.Watch.MinInterval.Duration() <= 0 {
		return errors.New("watch.min_interval must be positive")
	}
	return nil
}
