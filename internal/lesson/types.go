package lesson

import (
	"path/filepath"
	"strings"
	"time"
)

// Phase is the project phase a lesson was learned in.
type Phase string

const (
	PhasePlanning    Phase = "planning"
	PhaseDevelopment Phase = "development"
	PhaseTesting     Phase = "testing"
	PhaseDeployment  Phase = "deployment"
	PhaseMaintenance Phase = "maintenance"

	// PhaseGeneral is the fallback when no phase keyword matches.
	PhaseGeneral Phase = "general"
)

// Priority is the urgency attached to a lesson.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"

	// PriorityMedium is the fallback when no priority keyword matches.
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// DefaultProject is the project name used when no known project is mentioned.
const DefaultProject = "Unknown"

// ValidPhases maps valid phase strings to their typed values.
var ValidPhases = map[string]Phase{
	"planning":    PhasePlanning,
	"development": PhaseDevelopment,
	"testing":     PhaseTesting,
	"deployment":  PhaseDeployment,
	"maintenance": PhaseMaintenance,
	"general":     PhaseGeneral,
}

// ValidPriorities maps valid priority strings to their typed values.
var ValidPriorities = map[string]Priority{
	"critical": PriorityCritical,
	"high":     PriorityHigh,
	"medium":   PriorityMedium,
	"low":      PriorityLow,
}

// PhaseNames returns the valid phase names in declaration order.
func PhaseNames() []string {
	return []string{"planning", "development", "testing", "deployment", "maintenance", "general"}
}

// PriorityNames returns the valid priority names from most to least urgent.
func PriorityNames() []string {
	return []string{"critical", "high", "medium", "low"}
}

// Canonical section keys produced by the section parser.
const (
	SectionContext         = "context"
	SectionActionTaken     = "actionTaken"
	SectionResults         = "results"
	SectionKeyInsights     = "keyInsights"
	SectionRecommendations = "recommendations"
)

// CanonicalSections lists the five sections every complete lesson carries.
func CanonicalSections() []string {
	return []string{
		SectionContext,
		SectionActionTaken,
		SectionResults,
		SectionKeyInsights,
		SectionRecommendations,
	}
}

// Core metadata field names, as used by the validation schema.
const (
	FieldTitle           = "title"
	FieldDate            = "date"
	FieldProject         = "project"
	FieldPhase           = "phase"
	FieldPriority        = "priority"
	FieldTags            = "tags"
	FieldCategories      = "categories"
	FieldKeyInsights     = "keyInsights"
	FieldRecommendations = "recommendations"
)

// CoreFields lists the metadata fields every lesson must carry.
func CoreFields() []string {
	return []string{FieldTitle, FieldDate, FieldProject, FieldPhase, FieldPriority}
}

// Document is a lesson file as read from disk. It is read-only to the
// pipeline.
type Document struct {
	// Path is the file path the content was read from.
	Path string `json:"path"`

	// Content is the raw file content.
	Content string `json:"-"`

	// ModTime is the file modification time at read time.
	ModTime time.Time `json:"modTime"`
}

// Stem returns the file name without directory and extension. It is the
// title fallback for documents without a level-1 heading.
func (d Document) Stem() string {
	return FileStem(d.Path)
}

// FileStem returns the base name of path without its extension.
func FileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Record is the structured result of extracting a lesson document.
type Record struct {
	// Path is the source file of this record.
	Path string `json:"path"`

	Title    string   `json:"title"`
	Date     string   `json:"date"`
	Project  string   `json:"project"`
	Phase    Phase    `json:"phase"`
	Priority Priority `json:"priority"`

	// Tags is the subset of the tag vocabulary present in the content, in
	// vocabulary order.
	Tags []string `json:"tags"`

	// Categories is filled by the categorizer; never empty after that.
	Categories []string `json:"categories"`

	// Sections maps normalized section keys to their trimmed bodies.
	Sections map[string]string `json:"sections"`

	// KeyInsights and Recommendations hold matching lines verbatim (trimmed),
	// in document order, duplicates preserved.
	KeyInsights     []string `json:"keyInsights"`
	Recommendations []string `json:"recommendations"`

	// TitleInferred is true when Title came from the file name.
	TitleInferred bool `json:"titleInferred,omitempty"`

	// DateInferred is true when no ISO date was found in the content and Date
	// was filled from the configured fallback. Such dates can differ between
	// runs over an unchanged file.
	DateInferred bool `json:"dateInferred,omitempty"`
}

// SectionCount returns the number of parsed sections.
func (r *Record) SectionCount() int {
	return len(r.Sections)
}

// Fields exposes the record as a field map for schema validation. String
// fields map to string values, list fields to []string.
func (r *Record) Fields() map[string]any {
	return map[string]any{
		FieldTitle:           r.Title,
		FieldDate:            r.Date,
		FieldProject:         r.Project,
		FieldPhase:           string(r.Phase),
		FieldPriority:        string(r.Priority),
		FieldTags:            r.Tags,
		FieldCategories:      r.Categories,
		FieldKeyInsights:     r.KeyInsights,
		FieldRecommendations: r.Recommendations,
	}
}

// ValidationResult collects every schema violation found for a record.
type ValidationResult struct {
	Valid  bool     `json:"isValid"`
	Errors []string `json:"errors"`
}

// NewValidationResult builds a result whose Valid flag is derived from errs.
func NewValidationResult(errs []string) ValidationResult {
	if errs == nil {
		errs = []string{}
	}
	return ValidationResult{
		Valid:  len(errs) == 0,
		Errors: errs,
	}
}

// Impact dimensions.
const (
	DimensionTechnical = "technical"
	DimensionProcess   = "process"
	DimensionProject   = "project"
	DimensionQuality   = "quality"
	DimensionAdoption  = "adoption"
)

// Dimensions lists the impact dimensions in reporting order.
func Dimensions() []string {
	return []string{
		DimensionTechnical,
		DimensionProcess,
		DimensionProject,
		DimensionQuality,
		DimensionAdoption,
	}
}

// Analysis is one fully processed lesson: its record, validation result and
// scores.
type Analysis struct {
	Record        Record           `json:"record"`
	Validation    ValidationResult `json:"validation"`
	QualityScore  int              `json:"qualityScore"`
	ImpactScore   int              `json:"impactScore"`
	ImpactMetrics map[string]int   `json:"impactMetrics"`
}

// Clamp bounds a score into [0, 100].
func Clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Kind names one of the three analysis types that are persisted and reported
// separately.
type Kind string

// Analysis kinds.
const (
	KindCategorization Kind = "categorization"
	KindQuality        Kind = "quality"
	KindImpact         Kind = "impact"
)

// Kinds lists the analysis kinds in processing order.
func Kinds() []Kind {
	return []Kind{KindCategorization, KindQuality, KindImpact}
}
