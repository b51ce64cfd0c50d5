package analysis

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/lessons/internal/lesson"
	"github.com/fyrsmithlabs/lessons/internal/rules"
)

func TestQualityScore(t *testing.T) {
	invalid := func(n int) lesson.ValidationResult {
		errs := make([]string, n)
		for i := range errs {
			errs[i] = "error"
		}
		return lesson.NewValidationResult(errs)
	}
	defaults := func() *lesson.Record {
		return &lesson.Record{
			Title: "stem", TitleInferred: true,
			Date: "2024-03-09", DateInferred: true,
			Project:  lesson.DefaultProject,
			Phase:    lesson.PhaseGeneral,
			Priority: lesson.PriorityMedium,
			Sections: map[string]string{},
		}
	}

	tests := []struct {
		name    string
		content string
		rec     func() *lesson.Record
		v       lesson.ValidationResult
		want    int
	}{
		{
			name:    "two errors",
			content: "plain",
			rec:     defaults,
			v:       invalid(2),
			want:    50,
		},
		{
			name: "valid with one long section",
			rec: func() *lesson.Record {
				r := defaults()
				r.Sections[lesson.SectionContext] = "exactly ten"
				return r
			},
			v:    lesson.NewValidationResult(nil),
			want: 88,
		},
		{
			name: "section at ten runes does not count",
			rec: func() *lesson.Record {
				r := defaults()
				r.Sections[lesson.SectionContext] = "0123456789"
				return r
			},
			v:    lesson.NewValidationResult(nil),
			want: 80,
		},
		{
			name:    "code block and emphasis",
			content: "```go\nx := 1\n```\n**bold**",
			rec:     defaults,
			v:       invalid(4),
			want:    50,
		},
		{
			name:    "over 500 runes",
			content: strings.Repeat("a", 501),
			rec:     defaults,
			v:       invalid(8),
			want:    25,
		},
		{
			name:    "over 1000 runes",
			content: strings.Repeat("a", 1001),
			rec:     defaults,
			v:       invalid(8),
			want:    30,
		},
		{
			name: "non-default metadata",
			rec: func() *lesson.Record {
				return &lesson.Record{
					Title:    "Real",
					Date:     "2024-01-01",
					Project:  "Agent OS",
					Phase:    lesson.PhaseTesting,
					Priority: lesson.PriorityHigh,
				}
			},
			v:    invalid(6),
			want: 55,
		},
		{
			name: "lists and tags",
			rec: func() *lesson.Record {
				r := defaults()
				r.KeyInsights = []string{"learned"}
				r.Recommendations = []string{"should"}
				r.Tags = []string{"api"}
				return r
			},
			v:    invalid(5),
			want: 60,
		},
		{
			name: "clamped at zero",
			rec:  defaults,
			v:    invalid(20),
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QualityScore(tt.content, tt.rec(), tt.v))
		})
	}
}

func TestHasEmphasis(t *testing.T) {
	tests := []struct {
		content string
		want    bool
	}{
		{"**bold**", true},
		{"__bold__", true},
		{"an *italic* word", true},
		{"* list item\n* another", false},
		{"a * b", false},
		{"plain", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HasEmphasis(tt.content), tt.content)
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		priority lesson.Priority
		phase    lesson.Phase
		want     []string
	}{
		{"no match", "", lesson.PriorityMedium, lesson.PhaseGeneral, []string{"general"}},
		{"table order", "SQL behind an API endpoint rendered with React", lesson.PriorityMedium, lesson.PhaseGeneral, []string{"frontend", "backend", "database"}},
		{"phase deduplicated", "raised unit test coverage", lesson.PriorityCritical, lesson.PhaseTesting, []string{"testing", "critical"}},
		{"metadata only", "", lesson.PriorityHigh, lesson.PhasePlanning, []string{"high-priority", "planning"}},
		{"low adds nothing", "", lesson.PriorityLow, lesson.PhaseGeneral, []string{"general"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &lesson.Record{Priority: tt.priority, Phase: tt.phase}
			assert.Equal(t, tt.want, Categorize(rules.Default(), tt.content, rec))
		})
	}
}

func TestCategorize_SubstitutedTables(t *testing.T) {
	tables := rules.Default()
	tables.Categories = []rules.KeywordGroup{{Name: "billing", Keywords: []string{"invoice"}}}

	got := Categorize(tables, "Invoice totals were wrong", &lesson.Record{Phase: lesson.PhaseGeneral})
	assert.Equal(t, []string{"billing"}, got)
}

func TestImpactScore(t *testing.T) {
	tests := []struct {
		name    string
		content string
		rec     lesson.Record
		want    int
	}{
		{
			name: "weights only",
			rec:  lesson.Record{Priority: lesson.PriorityLow, Phase: lesson.PhaseTesting},
			want: 70,
		},
		{
			name:    "signals",
			content: "Deploy failed",
			rec:     lesson.Record{Priority: lesson.PriorityLow, Phase: lesson.PhaseTesting},
			want:    85,
		},
		{
			name: "general phase has no weight",
			rec:  lesson.Record{Priority: lesson.PriorityMedium, Phase: lesson.PhaseGeneral},
			want: 60,
		},
		{
			name: "labels and lists",
			rec: lesson.Record{
				Priority:        lesson.PriorityMedium,
				Phase:           lesson.PhaseGeneral,
				KeyInsights:     []string{"x"},
				Recommendations: []string{"y"},
				Categories:      []string{"general"},
				Tags:            []string{"api"},
			},
			want: 90,
		},
		{
			name:    "clamped at 100",
			content: "production critical success error ```code``` **bold**",
			rec: lesson.Record{
				Priority:        lesson.PriorityCritical,
				Phase:           lesson.PhaseDeployment,
				KeyInsights:     []string{"x"},
				Recommendations: []string{"y"},
			},
			want: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ImpactScore(rules.Default(), tt.content, &tt.rec))
		})
	}
}

func TestImpactMetrics(t *testing.T) {
	got := ImpactMetrics(rules.Default(), "The team improved its code review process")

	assert.Equal(t, map[string]int{
		lesson.DimensionTechnical: 25,
		lesson.DimensionProcess:   25,
		lesson.DimensionProject:   0,
		lesson.DimensionQuality:   25,
		lesson.DimensionAdoption:  25,
	}, got)
}

func TestImpactMetrics_AlwaysFiveDimensions(t *testing.T) {
	tables := rules.Default()
	tables.ImpactDimensions = []rules.KeywordGroup{{Name: "unrelated", Keywords: []string{"x"}}}

	got := ImpactMetrics(tables, "x")
	assert.Len(t, got, len(lesson.Dimensions()))
	for _, dim := range lesson.Dimensions() {
		assert.Equal(t, 0, got[dim], dim)
	}
}

// Scores stay in range and categories stay non-empty for arbitrary input.
func TestScoreInvariants(t *testing.T) {
	words := []string{
		"", "critical", "production", "deploy", "error", "success", "learned",
		"should", "```", "**x**", "api", "docker", "## Context", "# Title",
		"\n", "ünïcödé", "2024-01-01", "*", "team", "test",
	}
	phases := []lesson.Phase{"", lesson.PhaseGeneral, lesson.PhaseDeployment, "unknown"}
	priorities := []lesson.Priority{"", lesson.PriorityCritical, lesson.PriorityLow, "bogus"}
	r := rand.New(rand.NewSource(42))
	tables := rules.Default()

	for i := 0; i < 500; i++ {
		var b strings.Builder
		for n := r.Intn(400); n > 0; n-- {
			b.WriteString(words[r.Intn(len(words))])
			b.WriteByte(' ')
		}
		content := b.String()

		errs := make([]string, r.Intn(30))
		rec := &lesson.Record{
			Phase:           phases[r.Intn(len(phases))],
			Priority:        priorities[r.Intn(len(priorities))],
			Sections:        map[string]string{lesson.SectionContext: content},
			KeyInsights:     make([]string, r.Intn(2)),
			Recommendations: make([]string, r.Intn(2)),
			Tags:            make([]string, r.Intn(2)),
		}
		rec.Categories = Categorize(tables, content, rec)

		q := QualityScore(content, rec, lesson.NewValidationResult(errs))
		imp := ImpactScore(tables, content, rec)

		assert.True(t, q >= 0 && q <= 100, "quality %d out of range", q)
		assert.True(t, imp >= 0 && imp <= 100, "impact %d out of range", imp)
		assert.NotEmpty(t, rec.Categories)
		for dim, v := range ImpactMetrics(tables, content) {
			assert.True(t, v >= 0 && v <= 100, "%s = %d", dim, v)
		}
	}
}
