package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "LESSONS_"
)

// LoadWithFile loads configuration from a YAML file, then overrides it with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (LESSONS_REPORTS_TOP_N, LESSONS_DATA_DIR, etc.)
//  2. YAML config file
//  3. Built-in defaults
//
// An empty configPath loads ./lessons.yaml when it exists and defaults
// otherwise. An explicit path that does not exist is an error.
//
// # Environment Variable Mapping
//
// The LESSONS_ prefix is stripped and the remainder is split on the first
// underscore into section and field:
//
//	LESSONS_LESSONS_WORKERS -> lessons.workers
//	LESSONS_REPORTS_TOP_N   -> reports.top_n
//	LESSONS_DATA_DIR        -> data.dir
//
// Comma-separated values become lists (LESSONS_REPORTS_FORMATS=json,markdown).
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	explicit := configPath != ""
	if !explicit {
		configPath = DefaultFile
	}

	content, err := readConfigFile(configPath)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No project config; defaults and env only.
	default:
		return nil, err
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// envTransform maps LESSONS_SECTION_FIELD_NAME to section.field_name and
// splits comma-separated values into lists.
func envTransform(key, value string) (string, interface{}) {
	lower := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)

	path := lower
	if len(parts) == 2 {
		path = parts[0] + "." + parts[1]
	}

	if strings.Contains(value, ",") {
		items := strings.Split(value, ",")
		for i := range items {
			items[i] = strings.TrimSpace(items[i])
		}
		return path, items
	}
	return path, value
}

// readConfigFile opens the file once and checks it through the open
// descriptor before reading.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// validateConfigFileProperties checks file type and size.
func validateConfigFileProperties(info os.FileInfo) error {
	if !info.Mode().IsRegular() {
		return fmt.Errorf("config path is not a regular file: %s", info.Name())
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

// applyDefaults restores defaults for values explicitly set to zero.
func applyDefaults(cfg *Config) {
	def := Default()

	if cfg.Lessons.Extension == "" {
		cfg.Lessons.Extension = def.Lessons.Extension
	}
	if cfg.Lessons.Workers == 0 {
		cfg.Lessons.Workers = def.Lessons.Workers
	}
	if cfg.Lessons.MaxDocumentBytes == 0 {
		cfg.Lessons.MaxDocumentBytes = def.Lessons.MaxDocumentBytes
	}
	if cfg.Lessons.DateFallback == "" {
		cfg.Lessons.DateFallback = def.Lessons.DateFallback
	}
	if cfg.Data.SchemaFile == "" {
		cfg.Data.SchemaFile = def.Data.SchemaFile
	}
	if cfg.Reports.TopN == 0 {
		cfg.Reports.TopN = def.Reports.TopN
	}
	if len(cfg.Reports.Formats) == 0 {
		cfg.Reports.Formats = def.Reports.Formats
	}
	if cfg.Watch.MinInterval == 0 {
		cfg.Watch.MinInterval = def.Watch.MinInterval
	}
}
