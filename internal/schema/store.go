package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/fyrsmithlabs/lessons/internal/logging"
	"go.uber.org/zap"
)

// LoadOrCreate reads the schema at path. When the file does not exist the
// fallback schema is persisted there and returned. When the file cannot be
// parsed the problem is logged and fallback is used in memory; the file is
// left untouched so a human can fix it. A nil fallback selects Default().
//
// Only a failure to persist a brand-new schema is returned as an error, and
// even then the returned schema is usable.
func LoadOrCreate(ctx context.Context, path string, fallback *Schema, logger *logging.Logger) (*Schema, error) {
	if fallback == nil {
		fallback = Default()
	}
	if logger == nil {
		logger = logging.FromContext(ctx)
	}

	data, err := os.ReadFile(path)
	if absent(err) {
		if err := Save(path, fallback); err != nil {
			logger.Warn(ctx, "failed to persist default validation schema",
				zap.String("path", path), zap.Error(err))
			return fallback, err
		}
		logger.Info(ctx, "created default validation schema", zap.String("path", path))
		return fallback, nil
	}
	if err != nil {
		logger.Warn(ctx, "failed to read validation schema, using default",
			zap.String("path", path), zap.Error(err))
		return fallback, nil
	}

	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		logger.Warn(ctx, "invalid validation schema, using default",
			zap.String("path", path), zap.Error(err))
		return fallback, nil
	}
	applyDefaults(&s, fallback)

	return &s, nil
}

// absent reports whether err means nothing exists at the path, including a
// parent component that is a regular file.
func absent(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// Save writes s to path as indented JSON, creating parent directories.
func Save(path string, s *Schema) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create schema directory: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}
	return nil
}

// applyDefaults fills parts of a hand-edited schema that were left out.
func applyDefaults(s, fallback *Schema) {
	if s.Version == "" {
		s.Version = fallback.Version
	}
	if s.Properties == nil {
		s.Properties = map[string]Property{}
	}
	if s.Sections.MinLength <= 0 {
		s.Sections.MinLength = DefaultSectionMinLength
	}
}
