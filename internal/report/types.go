package report

import (
	"time"

	"github.com/fyrsmithlabs/lessons/internal/lesson"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// DefaultTopN is the length of the top-N ranking when none is configured.
const DefaultTopN = 10

// Report is the run-level summary of one analysis kind.
type Report struct {
	// ID is the unique identifier for this report.
	ID string `json:"id"`
	// Kind is the analysis kind the report covers.
	Kind lesson.Kind `json:"kind"`
	// RunID links the report to the pipeline run that produced it.
	RunID string `json:"runId,omitempty"`
	// GeneratedAt is when the report was built.
	GeneratedAt time.Time `json:"generatedAt"`
	// Summary holds headline numbers.
	Summary Summary `json:"summary"`
	// Distribution counts lessons per band (quality, impact) or per
	// category (categorization), in display order.
	Distribution []Bucket `json:"distribution"`
	// TopN ranks the highest scoring lessons.
	TopN []Ranked `json:"topN"`
	// Trends holds grouped mean scores.
	Trends Trends `json:"trends"`
	// Recommendations are follow-ups derived from the numbers.
	Recommendations []string `json:"recommendations"`
}

// Summary holds the headline numbers of a report. Kind-specific fields are
// omitted when they do not apply.
type Summary struct {
	TotalLessons int     `json:"totalLessons"`
	AverageScore float64 `json:"averageScore"`
	MinScore     int     `json:"minScore"`
	MaxScore     int     `json:"maxScore"`

	// Valid and Invalid count validation outcomes (quality).
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`

	// DimensionMeans is the mean of each impact dimension (impact).
	DimensionMeans map[string]float64 `json:"dimensionMeans,omitempty"`

	// UniqueCategories is the number of distinct categories (categorization).
	UniqueCategories int `json:"uniqueCategories,omitempty"`

	// Text is a one-paragraph human summary.
	Text string `json:"text"`
}

// Bucket is one entry of a distribution.
type Bucket struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Ranked is one entry of the top-N ranking.
type Ranked struct {
	Rank       int      `json:"rank"`
	Path       string   `json:"path"`
	Title      string   `json:"title"`
	Score      int      `json:"score"`
	Categories []string `json:"categories,omitempty"`
}

// Group is the mean score of the lessons sharing a key.
type Group struct {
	Count     int     `json:"count"`
	MeanScore float64 `json:"meanScore"`
}

// Trends holds grouped means keyed by phase, priority, category and number of
// sections.
type Trends struct {
	ByPhase        map[string]Group `json:"byPhase"`
	ByPriority     map[string]Group `json:"byPriority"`
	ByCategory     map[string]Group `json:"byCategory"`
	BySectionCount map[string]Group `json:"bySectionCount"`
}

// Options tune report generation.
type Options struct {
	// TopN is the ranking length; zero selects DefaultTopN.
	TopN int
	// RunID is copied into the report.
	RunID string
	// Now overrides the clock.
	Now func() time.Time
}
