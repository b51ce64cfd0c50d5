package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/lessons/internal/lesson"
)

// Aggregate statistic keys.
const (
	StatAverageScore      = "averageScore"
	StatMinScore          = "minScore"
	StatMaxScore          = "maxScore"
	StatValid             = "valid"
	StatInvalid           = "invalid"
	StatUniqueCategories  = "uniqueCategories"
	StatAverageCategories = "averageCategories"
	statDimensionPrefix   = "dimension."
)

// DimensionStat returns the aggregate key holding the mean of an impact
// dimension.
func DimensionStat(dimension string) string {
	return statDimensionPrefix + dimension
}

// Snapshot is one immutable, timestamped aggregate of a pipeline run for a
// single analysis kind.
type Snapshot struct {
	ID             string             `json:"id"`
	Kind           lesson.Kind        `json:"kind"`
	Timestamp      time.Time          `json:"timestamp"`
	RunID          string             `json:"runId,omitempty"`
	RulesVersion   string             `json:"rulesVersion,omitempty"`
	TotalLessons   int                `json:"totalLessons"`
	AggregateStats map[string]float64 `json:"aggregateStats"`
	PerLesson      []LessonSummary    `json:"perLessonSummaries"`
}

// LessonSummary is the per-document part of a snapshot. Score holds the
// kind's score: the quality or impact score, or the number of categories.
type LessonSummary struct {
	Path       string          `json:"path"`
	Title      string          `json:"title"`
	Phase      lesson.Phase    `json:"phase"`
	Priority   lesson.Priority `json:"priority"`
	Score      int             `json:"score"`
	Valid      bool            `json:"isValid"`
	Categories []string        `json:"categories,omitempty"`
	Errors     []string        `json:"errors,omitempty"`
	Metrics    map[string]int  `json:"metrics,omitempty"`
}

// SnapshotOption customizes a new snapshot.
type SnapshotOption func(*Snapshot)

// WithRunID tags the snapshot with the run that produced it.
func WithRunID(id string) SnapshotOption {
	return func(s *Snapshot) {
		s.RunID = id
	}
}

// WithRulesVersion records the rule-table version used for the run.
func WithRulesVersion(version string) SnapshotOption {
	return func(s *Snapshot) {
		s.RulesVersion = version
	}
}

// NewSnapshot summarizes a batch for one analysis kind.
func NewSnapshot(kind lesson.Kind, batch []lesson.Analysis, now time.Time, opts ...SnapshotOption) Snapshot {
	s := Snapshot{
		ID:             uuid.NewString(),
		Kind:           kind,
		Timestamp:      now.UTC(),
		TotalLessons:   len(batch),
		AggregateStats: map[string]float64{},
		PerLesson:      make([]LessonSummary, 0, len(batch)),
	}
	for _, opt := range opts {
		opt(&s)
	}

	for _, a := range batch {
		summary := LessonSummary{
			Path:     a.Record.Path,
			Title:    a.Record.Title,
			Phase:    a.Record.Phase,
			Priority: a.Record.Priority,
			Valid:    a.Validation.Valid,
			Score:    Score(kind, a),
		}
		switch kind {
		case lesson.KindCategorization:
			summary.Categories = a.Record.Categories
		case lesson.KindQuality:
			summary.Errors = a.Validation.Errors
		case lesson.KindImpact:
			summary.Metrics = a.ImpactMetrics
		}
		s.PerLesson = append(s.PerLesson, summary)
	}

	s.AggregateStats = aggregate(kind, batch)
	return s
}

// Score returns the score of a for the given kind.
func Score(kind lesson.Kind, a lesson.Analysis) int {
	switch kind {
	case lesson.KindQuality:
		return a.QualityScore
	case lesson.KindImpact:
		return a.ImpactScore
	default:
		return len(a.Record.Categories)
	}
}

func aggregate(kind lesson.Kind, batch []lesson.Analysis) map[string]float64 {
	stats := map[string]float64{}
	if len(batch) == 0 {
		return stats
	}

	total, lowest, highest := 0, 100, 0
	for _, a := range batch {
		score := Score(kind, a)
		total += score
		lowest = min(lowest, score)
		highest = max(highest, score)
	}
	n := float64(len(batch))
	stats[StatAverageScore] = float64(total) / n
	stats[StatMinScore] = float64(lowest)
	stats[StatMaxScore] = float64(highest)

	switch kind {
	case lesson.KindCategorization:
		stats[StatUniqueCategories] = float64(len(CategoryCounts(batch)))
		stats[StatAverageCategories] = float64(total) / n

	case lesson.KindQuality:
		for _, a := range batch {
			if a.Validation.Valid {
				stats[StatValid]++
			} else {
				stats[StatInvalid]++
			}
		}

	case lesson.KindImpact:
		for dim, mean := range DimensionMeans(batch) {
			stats[DimensionStat(dim)] = mean
		}
	}
	return stats
}

// CategoryCounts returns the number of lessons carrying each category.
func CategoryCounts(batch []lesson.Analysis) map[string]int {
	counts := map[string]int{}
	for _, a := range batch {
		for _, c := range a.Record.Categories {
			counts[c]++
		}
	}
	return counts
}

// DimensionMeans returns the mean value of every impact dimension across the
// batch. An empty batch yields zero means.
func DimensionMeans(batch []lesson.Analysis) map[string]float64 {
	means := make(map[string]float64, len(lesson.Dimensions()))
	for _, dim := range lesson.Dimensions() {
		means[dim] = 0
	}
	if len(batch) == 0 {
		return means
	}
	for _, a := range batch {
		for _, dim := range lesson.Dimensions() {
			means[dim] += float64(a.ImpactMetrics[dim])
		}
	}
	for dim := range means {
		means[dim] /= float64(len(batch))
	}
	return means
}
