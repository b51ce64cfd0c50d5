package template

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/lessons/internal/extraction"
	"github.com/fyrsmithlabs/lessons/internal/lesson"
	"github.com/fyrsmithlabs/lessons/internal/schema"
)

// Validator checks the structure of lesson and template files. Section
// bodies are not length-checked, so a blank template passes.
type Validator struct {
	extractor *extraction.Extractor
	schema    *schema.Schema
}

// NewValidator creates a structural validator sharing the extractor's rule
// tables and the given schema. Nil arguments select the defaults.
func NewValidator(extractor *extraction.Extractor, s *schema.Schema) *Validator {
	if extractor == nil {
		extractor = extraction.NewExtractor(nil)
	}
	if s == nil {
		s = schema.Default()
	}
	return &Validator{extractor: extractor, schema: s}
}

// ValidateTemplate checks the file at path with the default rules.
func ValidateTemplate(path string) (lesson.ValidationResult, error) {
	return NewValidator(nil, nil).ValidateFile(path)
}

// ValidateFile reads and checks the file at path.
func (v *Validator) ValidateFile(path string) (lesson.ValidationResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return lesson.ValidationResult{}, fmt.Errorf("failed to read template: %w", err)
	}
	return v.Validate(string(data)), nil
}

// Validate checks that content has a title heading, a label for every
// required metadata field and a heading for every required section.
func (v *Validator) Validate(content string) lesson.ValidationResult {
	var errs []string

	required := make(map[string]bool, len(v.schema.Required))
	for _, field := range v.schema.Required {
		required[field] = true
	}

	if required[lesson.FieldTitle] {
		if _, ok := extraction.ExtractTitle(content); !ok {
			errs = append(errs, "Missing title heading (# Title)")
		}
	}

	for _, m := range metadataLabels {
		if required[m.field] && !hasLabel(content, m.label) {
			errs = append(errs, fmt.Sprintf("Missing metadata field: %s", m.label))
		}
	}

	sections := v.extractor.ParseSections(content)
	for _, section := range v.schema.Sections.Required {
		if _, ok := sections[section]; !ok {
			errs = append(errs, fmt.Sprintf("Missing section heading: ## %s", Heading(section)))
		}
	}

	return lesson.NewValidationResult(errs)
}

// hasLabel reports whether some line carries "label:" with optional bold
// markup, case-insensitively.
func hasLabel(content, label string) bool {
	re := regexp.MustCompile(`(?im)^\s*(\*\*)?` + regexp.QuoteMeta(strings.ToLower(label)) + `(:\*\*|\*\*:|:)`)
	return re.MatchString(content)
}
