package template

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/lessons/internal/lesson"
)

// Built-in definition names.
const (
	DefinitionLesson        = "lesson"
	DefinitionIncident      = "incident"
	DefinitionRetrospective = "retrospective"
)

// ErrUnknownDefinition is returned when a definition name is not registered.
var ErrUnknownDefinition = errors.New("unknown template definition")

// Definition describes one kind of template. Sections are canonical section
// keys or literal heading text; they are rendered in order.
type Definition struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Sections    []string `yaml:"sections"`
	Tags        []string `yaml:"tags"`
}

// Definitions is a set of template definitions keyed by name.
type Definitions map[string]Definition

// DefaultDefinitions returns the built-in definitions.
func DefaultDefinitions() Definitions {
	return Definitions{
		DefinitionLesson: {
			Name:        DefinitionLesson,
			Description: "General lesson learned",
			Sections:    lesson.CanonicalSections(),
		},
		DefinitionIncident: {
			Name:        DefinitionIncident,
			Description: "Production incident follow-up",
			Sections: []string{
				lesson.SectionContext,
				"Timeline",
				"Root Cause",
				lesson.SectionActionTaken,
				lesson.SectionResults,
				lesson.SectionKeyInsights,
				lesson.SectionRecommendations,
			},
			Tags: []string{"incident"},
		},
		DefinitionRetrospective: {
			Name:        DefinitionRetrospective,
			Description: "Sprint or project retrospective",
			Sections: []string{
				lesson.SectionContext,
				"What Went Well",
				"What Could Improve",
				lesson.SectionActionTaken,
				lesson.SectionResults,
				lesson.SectionKeyInsights,
				lesson.SectionRecommendations,
			},
			Tags: []string{"retrospective"},
		},
	}
}

// Get returns the named definition.
func (d Definitions) Get(name string) (Definition, error) {
	def, ok := d[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownDefinition, name, strings.Join(d.Names(), ", "))
	}
	return def, nil
}

// Names returns the definition names in sorted order.
func (d Definitions) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type definitionsFile struct {
	Templates []Definition `yaml:"templates"`
}

// LoadDefinitions returns the built-in definitions extended by the YAML file
// at path. A definition with a built-in name replaces it. An empty path
// yields the built-ins.
func LoadDefinitions(path string) (Definitions, error) {
	defs := DefaultDefinitions()
	if path == "" {
		return defs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template definitions: %w", err)
	}

	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse template definitions %s: %w", path, err)
	}

	for i, def := range file.Templates {
		def.Name = strings.TrimSpace(def.Name)
		if def.Name == "" {
			return nil, fmt.Errorf("template definition %d in %s has no name", i, path)
		}
		if len(def.Sections) == 0 {
			def.Sections = lesson.CanonicalSections()
		}
		defs[def.Name] = def
	}
	return defs, nil
}
