package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/fyrsmithlabs/lessons/internal/lesson"
)

// Validate checks rec against s and collects every violation. It never
// panics: a nil schema, unknown types and broken patterns all surface as
// errors.
func Validate(rec *lesson.Record, s *Schema) lesson.ValidationResult {
	if rec == nil {
		return lesson.NewValidationResult([]string{"Record is missing"})
	}
	if s == nil {
		s = Default()
	}

	var errs []string
	fields := rec.Fields()

	for _, name := range s.Required {
		if !present(fields[name]) {
			errs = append(errs, fmt.Sprintf("Missing required field: %s", name))
		}
	}

	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value, ok := fields[name]
		if !ok || !present(value) {
			continue
		}
		errs = append(errs, checkProperty(name, value, s.Properties[name])...)
	}

	minLength := s.Sections.MinLength
	for _, section := range s.Sections.Required {
		body, ok := rec.Sections[section]
		if !ok || utf8.RuneCountInString(body) < minLength {
			errs = append(errs, fmt.Sprintf("Missing or insufficient section: %s (minimum %d characters)", section, minLength))
		}
	}

	return lesson.NewValidationResult(errs)
}

func checkProperty(name string, value any, p Property) []string {
	var errs []string

	switch p.Type {
	case TypeString:
		str, ok := value.(string)
		if !ok {
			return []string{fmt.Sprintf("Field %s must be of type string", name)}
		}
		if p.MinLength > 0 && utf8.RuneCountInString(str) < p.MinLength {
			errs = append(errs, fmt.Sprintf("Field %s must be at least %d characters", name, p.MinLength))
		}
		if p.Pattern != "" {
			errs = append(errs, checkPattern(name, str, p.Pattern)...)
		}
		if len(p.Enum) > 0 && !contains(p.Enum, str) {
			errs = append(errs, fmt.Sprintf("Field %s must be one of: %s", name, strings.Join(p.Enum, ", ")))
		}

	case TypeArray:
		items, ok := value.([]string)
		if !ok {
			return []string{fmt.Sprintf("Field %s must be of type array", name)}
		}
		if p.MinLength > 0 && len(items) < p.MinLength {
			errs = append(errs, fmt.Sprintf("Field %s must have at least %d items", name, p.MinLength))
		}
		for _, item := range items {
			if p.Pattern != "" {
				errs = append(errs, checkPattern(name, item, p.Pattern)...)
			}
			if len(p.Enum) > 0 && !contains(p.Enum, item) {
				errs = append(errs, fmt.Sprintf("Field %s contains %q, must be one of: %s", name, item, strings.Join(p.Enum, ", ")))
			}
		}

	default:
		errs = append(errs, fmt.Sprintf("Field %s has unsupported type %q", name, p.Type))
	}

	return errs
}

func checkPattern(name, value, pattern string) []string {
	re, err := compile(pattern)
	if err != nil {
		return []string{fmt.Sprintf("Field %s has invalid pattern %q", name, pattern)}
	}
	if !re.MatchString(value) {
		return []string{fmt.Sprintf("Field %s does not match pattern %s", name, pattern)}
	}
	return nil
}

// present reports whether a field value counts as populated.
func present(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case []string:
		return len(v) > 0
	default:
		return true
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

var patternCache = struct {
	sync.RWMutex
	m map[string]*regexp.Regexp
}{m: make(map[string]*regexp.Regexp)}

// compile returns a cached compiled pattern.
func compile(pattern string) (*regexp.Regexp, error) {
	patternCache.RLock()
	re, ok := patternCache.m[pattern]
	patternCache.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	patternCache.Lock()
	patternCache.m[pattern] = re
	patternCache.Unlock()
	return re, nil
}
