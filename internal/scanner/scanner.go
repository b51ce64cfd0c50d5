// Package scanner discovers and reads lesson documents and watches a lessons
// directory for changes.
package scanner

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/lessons/internal/ignore"
	"github.com/fyrsmithlabs/lessons/internal/lesson"
)

// Defaults for a Scanner.
const (
	DefaultExtension        = ".md"
	DefaultMaxDocumentBytes = 1 << 20
)

var (
	// ErrDocumentTooLarge indicates a lesson file exceeds the size limit.
	ErrDocumentTooLarge = errors.New("document exceeds size limit")

	// ErrNotRegularFile indicates a path that is not a regular file.
	ErrNotRegularFile = errors.New("not a regular file")
)

// Options configure a Scanner.
type Options struct {
	// Extension selects lesson files by suffix, compared case-insensitively.
	Extension string

	// IgnoreFile names an optional gitignore-style file inside the scanned
	// directory. Empty disables ignore handling.
	IgnoreFile string

	// DefaultIgnore holds base-name globs applied when the directory has no
	// ignore file.
	DefaultIgnore []string

	// MaxDocumentBytes rejects larger files on Read.
	MaxDocumentBytes int64
}

// Scanner lists and reads lesson documents.
type Scanner struct {
	opts Options
}

// New creates a scanner. Zero option values select the defaults.
func New(opts Options) *Scanner {
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	if !strings.HasPrefix(opts.Extension, ".") {
		opts.Extension = "." + opts.Extension
	}
	if opts.MaxDocumentBytes <= 0 {
		opts.MaxDocumentBytes = DefaultMaxDocumentBytes
	}
	return &Scanner{opts: opts}
}

// Extension returns the lesson file extension.
func (s *Scanner) Extension() string {
	return s.opts.Extension
}

// IsLesson reports whether name has the lesson extension.
func (s *Scanner) IsLesson(name string) bool {
	return hasExtension(name, s.opts.Extension)
}

// Discover lists lesson files directly inside dir, sorted by path. A
// missing directory yields an empty list and no error.
func (s *Scanner) Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list lessons directory: %w", err)
	}

	matcher, err := ignore.NewParser([]string{s.opts.IgnoreFile}, s.opts.DefaultIgnore).ParseDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read ignore file: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !s.IsLesson(name) || matcher.Match(name) {
			continue
		}

		path := filepath.Join(dir, name)
		if !entry.Type().IsRegular() {
			// Follow symlinks to regular files.
			if entry.Type()&os.ModeSymlink == 0 {
				continue
			}
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		}
		paths = append(paths, path)
	}

	sort.Strings(paths)
	return paths, nil
}

// Read loads one lesson document. Files above the size limit fail with
// ErrDocumentTooLarge.
func (s *Scanner) Read(path string) (lesson.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return lesson.Document{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return lesson.Document{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return lesson.Document{}, fmt.Errorf("%w: %s", ErrNotRegularFile, path)
	}

	limit := s.opts.MaxDocumentBytes
	if info.Size() > limit {
		return lesson.Document{}, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrDocumentTooLarge, path, info.Size(), limit)
	}

	// The file may grow between Stat and Read.
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return lesson.Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if int64(len(data)) > limit {
		return lesson.Document{}, fmt.Errorf("%w: %s (limit %d)", ErrDocumentTooLarge, path, limit)
	}

	return lesson.Document{
		Path:    path,
		Content: string(data),
		ModTime: info.ModTime(),
	}, nil
}

func hasExtension(name, ext string) bool {
	return len(name) > len(ext) && strings.EqualFold(name[len(name)-len(ext):], ext)
}
