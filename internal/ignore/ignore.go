// Package ignore parses gitignore-style exclusion files for lesson discovery.
//
// Lesson discovery is not recursive, so patterns are matched against base
// file names only. Comments, blank lines and negations are skipped.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFile is the ignore file looked up in a lessons directory.
const DefaultFile = ".lessonsignore"

// Parser reads and parses gitignore-style files.
type Parser struct {
	// IgnoreFiles is the list of ignore file names to look for.
	IgnoreFiles []string

	// FallbackPatterns are used when no ignore files are found.
	FallbackPatterns []string
}

// NewParser creates a new ignore file parser with the given configuration.
func NewParser(ignoreFiles, fallbackPatterns []string) *Parser {
	return &Parser{
		IgnoreFiles:      ignoreFiles,
		FallbackPatterns: fallbackPatterns,
	}
}

// ParseDir reads all ignore files from dir and returns a matcher over the
// combined patterns. If no ignore files are found, the fallback patterns are
// used.
func (p *Parser) ParseDir(dir string) (*Matcher, error) {
	var patterns []string
	foundAny := false

	for _, ignoreFile := range p.IgnoreFiles {
		if ignoreFile == "" {
			continue
		}
		path := filepath.Join(dir, ignoreFile)
		filePatterns, err := parseFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		patterns = append(patterns, filePatterns...)
		foundAny = true
	}

	if !foundAny {
		patterns = p.FallbackPatterns
	}

	return NewMatcher(patterns), nil
}

// parseFile reads a single gitignore-style file and returns patterns.
func parseFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var patterns []string
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		if pattern := parseLine(scanner.Text()); pattern != "" {
			patterns = append(patterns, pattern)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return patterns, nil
}

// parseLine parses a single line from an ignore file.
// Returns empty string for comments, blank lines, negations and patterns
// that cannot be matched.
func parseLine(line string) string {
	line = strings.TrimRight(line, " \t\r")

	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}

	// Negations are not supported.
	if strings.HasPrefix(line, "!") {
		return ""
	}

	pattern := toBasePattern(line)
	if pattern == "" {
		return ""
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return ""
	}
	return pattern
}

// toBasePattern reduces a gitignore pattern to a base-name glob.
func toBasePattern(pattern string) string {
	pattern = strings.Trim(pattern, "/")
	if i := strings.LastIndex(pattern, "/"); i >= 0 {
		pattern = pattern[i+1:]
	}
	if pattern == "**" {
		return "*"
	}
	return pattern
}

// deduplicate removes duplicate patterns while preserving order.
func deduplicate(patterns []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(patterns))

	for _, p := range patterns {
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}

	return result
}

// Matcher tests file names against a set of patterns.
type Matcher struct {
	patterns []string
}

// NewMatcher creates a matcher over patterns, dropping duplicates.
func NewMatcher(patterns []string) *Matcher {
	return &Matcher{patterns: deduplicate(patterns)}
}

// Patterns returns the matcher's patterns.
func (m *Matcher) Patterns() []string {
	return m.patterns
}

// Match reports whether the base name of path matches any pattern. A nil
// matcher matches nothing.
func (m *Matcher) Match(path string) bool {
	if m == nil {
		return false
	}
	name := filepath.Base(path)
	for _, p := range m.patterns {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
