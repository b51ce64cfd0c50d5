package analysis

import (
	"strings"
	"unicode/utf8"

	"github.com/fyrsmithlabs/lessons/internal/lesson"
	"github.com/fyrsmithlabs/lessons/internal/rules"
)

const (
	impactBase           = 50
	impactListBonus      = 10
	impactLabelBonus     = 5
	impactStrongSignal   = 10
	impactWeakSignal     = 5
	impactStructureBonus = 5

	// DimensionHit is the value of an impact dimension whose keywords occur.
	DimensionHit = 25
)

// ImpactScore computes the 0-100 estimated significance of a record.
func ImpactScore(t *rules.Tables, content string, rec *lesson.Record) int {
	if t == nil {
		t = rules.Default()
	}
	lower := strings.ToLower(content)

	score := impactBase
	score += t.PriorityWeights[string(rec.Priority)]
	score += t.PhaseWeights[string(rec.Phase)]

	if len(rec.KeyInsights) > 0 {
		score += impactListBonus
	}
	if len(rec.Recommendations) > 0 {
		score += impactListBonus
	}
	if len(rec.Categories) > 0 {
		score += impactLabelBonus
	}
	if len(rec.Tags) > 0 {
		score += impactLabelBonus
	}

	signals := t.ImpactSignals
	if rules.ContainsAny(lower, signals.Production) {
		score += impactStrongSignal
	}
	if rules.ContainsAny(lower, signals.Urgent) {
		score += impactStrongSignal
	}
	if rules.ContainsAny(lower, signals.Success) {
		score += impactWeakSignal
	}
	if rules.ContainsAny(lower, signals.Failure) {
		score += impactWeakSignal
	}

	if utf8.RuneCountInString(content) > 1000 {
		score += impactStructureBonus
	}
	if HasCodeBlock(content) {
		score += impactStructureBonus
	}
	if HasEmphasis(content) {
		score += impactStructureBonus
	}

	return lesson.Clamp(score)
}

// ImpactMetrics scores each impact dimension independently: DimensionHit
// when any of its keywords occurs in content, else 0. The result always has
// exactly one entry per lesson.Dimensions() name.
func ImpactMetrics(t *rules.Tables, content string) map[string]int {
	if t == nil {
		t = rules.Default()
	}
	lower := strings.ToLower(content)

	groups := make(map[string]rules.KeywordGroup, len(t.ImpactDimensions))
	for _, g := range t.ImpactDimensions {
		groups[g.Name] = g
	}

	metrics := make(map[string]int, len(lesson.Dimensions()))
	for _, dim := range lesson.Dimensions() {
		metrics[dim] = 0
		if g, ok := groups[dim]; ok && g.Matches(lower) {
			metrics[dim] = DimensionHit
		}
	}
	return metrics
}
