// Package schema validates lesson records against a declarative schema.
//
// Validation never stops at the first problem: every rule is evaluated and
// all violations are returned, so an invalid lesson can still be scored.
package schema

import (
	"github.com/fyrsmithlabs/lessons/internal/lesson"
	"github.com/fyrsmithlabs/lessons/internal/rules"
)

// Version of the default schema.
const Version = "1.0.0"

// DefaultSectionMinLength is the minimum body length of a required section.
const DefaultSectionMinLength = 10

// Field types understood by the validator.
const (
	TypeString = "string"
	TypeArray  = "array"
)

// Schema is the declarative validation schema persisted as JSON.
type Schema struct {
	Version    string              `json:"version"`
	Required   []string            `json:"required"`
	Properties map[string]Property `json:"properties"`
	Sections   SectionRules        `json:"sections"`
}

// Property constrains a single record field.
type Property struct {
	Type      string   `json:"type"`
	Enum      []string `json:"enum,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	MinLength int      `json:"minLength,omitempty"`
}

// SectionRules lists required sections and their minimum body length.
type SectionRules struct {
	Required  []string `json:"required"`
	MinLength int      `json:"minLength"`
}

// Default returns the built-in schema. Phase and priority enums and the
// required sections come from the shared lesson vocabulary.
func Default() *Schema {
	return &Schema{
		Version:  Version,
		Required: lesson.CoreFields(),
		Properties: map[string]Property{
			lesson.FieldTitle:           {Type: TypeString, MinLength: 1},
			lesson.FieldDate:            {Type: TypeString, Pattern: `^\d{4}-\d{2}-\d{2}$`},
			lesson.FieldProject:         {Type: TypeString, MinLength: 1},
			lesson.FieldPhase:           {Type: TypeString, Enum: lesson.PhaseNames()},
			lesson.FieldPriority:        {Type: TypeString, Enum: lesson.PriorityNames()},
			lesson.FieldTags:            {Type: TypeArray},
			lesson.FieldCategories:      {Type: TypeArray},
			lesson.FieldKeyInsights:     {Type: TypeArray},
			lesson.FieldRecommendations: {Type: TypeArray},
		},
		Sections: SectionRules{
			Required:  lesson.CanonicalSections(),
			MinLength: DefaultSectionMinLength,
		},
	}
}

// ForRules returns the default schema with phase and priority enums taken
// from a rule table, so a custom rule set and its schema stay in step.
func ForRules(t *rules.Tables) *Schema {
	s := Default()
	if t == nil {
		return s
	}

	phases := groupNames(t.Phases)
	phases = append(phases, string(lesson.PhaseGeneral))
	s.Properties[lesson.FieldPhase] = Property{Type: TypeString, Enum: dedupe(phases)}

	priorities := groupNames(t.Priorities)
	priorities = append(priorities, string(lesson.PriorityMedium))
	s.Properties[lesson.FieldPriority] = Property{Type: TypeString, Enum: dedupe(priorities)}

	return s
}

func groupNames(groups []rules.KeywordGroup) []string {
	names := make([]string, 0, len(groups)+1)
	for _, g := range groups {
		names = append(names, g.Name)
	}
	return names
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
