package analysis

import (
	"unicode/utf8"

	"github.com/fyrsmithlabs/lessons/internal/lesson"
)

// Quality score weights.
const (
	qualityBase            = 60
	qualityValidBonus      = 20
	qualityErrorPenalty    = 5
	qualitySectionBonus    = 8
	qualitySectionMinRunes = 10
	qualityMetadataBonus   = 5
	qualityInsightsBonus   = 10
	qualityRecsBonus       = 10
	qualityTagsBonus       = 5
	qualityMarkupBonus     = 5
	qualityLengthBonus     = 5
)

// QualityScore computes the 0-100 completeness score of a record.
func QualityScore(content string, rec *lesson.Record, v lesson.ValidationResult) int {
	score := qualityBase

	if v.Valid {
		score += qualityValidBonus
	} else {
		score -= qualityErrorPenalty * len(v.Errors)
	}

	for _, section := range lesson.CanonicalSections() {
		if utf8.RuneCountInString(rec.Sections[section]) > qualitySectionMinRunes {
			score += qualitySectionBonus
		}
	}

	score += qualityMetadataBonus * nonDefaultMetadata(rec)

	if len(rec.KeyInsights) > 0 {
		score += qualityInsightsBonus
	}
	if len(rec.Recommendations) > 0 {
		score += qualityRecsBonus
	}
	if len(rec.Tags) > 0 {
		score += qualityTagsBonus
	}

	if HasCodeBlock(content) {
		score += qualityMarkupBonus
	}
	if HasEmphasis(content) {
		score += qualityMarkupBonus
	}

	length := utf8.RuneCountInString(content)
	if length > 500 {
		score += qualityLengthBonus
	}
	if length > 1000 {
		score += qualityLengthBonus
	}

	return lesson.Clamp(score)
}

// nonDefaultMetadata counts core metadata fields holding something other
// than their fallback value.
func nonDefaultMetadata(rec *lesson.Record) int {
	n := 0
	if rec.Title != "" && !rec.TitleInferred {
		n++
	}
	if rec.Date != "" && !rec.DateInferred {
		n++
	}
	if rec.Project != "" && rec.Project != lesson.DefaultProject {
		n++
	}
	if rec.Phase != "" && rec.Phase != lesson.PhaseGeneral {
		n++
	}
	if rec.Priority != "" && rec.Priority != lesson.PriorityMedium {
		n++
	}
	return n
}
