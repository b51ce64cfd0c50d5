package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/lessons/internal/history"
	"github.com/fyrsmithlabs/lessons/internal/lesson"
)

// Generate builds the report of one analysis kind from the current batch.
// It is a pure function of its inputs apart from the report ID and the
// generation time.
func Generate(kind lesson.Kind, batch []lesson.Analysis, opts Options) *Report {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	report := &Report{
		ID:          uuid.New().String(),
		Kind:        kind,
		RunID:       opts.RunID,
		GeneratedAt: opts.Now().UTC(),
	}

	report.Summary = calculateSummary(kind, batch)
	report.Distribution = calculateDistribution(kind, batch)
	report.TopN = rankTop(kind, batch, opts.TopN)
	report.Trends = calculateTrends(kind, batch)
	report.Recommendations = generateRecommendations(kind, batch, report)
	report.Summary.Text = generateSummary(kind, report)

	return report
}

// GenerateAll builds one report per analysis kind.
func GenerateAll(batch []lesson.Analysis, opts Options) []*Report {
	reports := make([]*Report, 0, len(lesson.Kinds()))
	for _, kind := range lesson.Kinds() {
		reports = append(reports, Generate(kind, batch, opts))
	}
	return reports
}

// calculateSummary computes headline statistics.
func calculateSummary(kind lesson.Kind, batch []lesson.Analysis) Summary {
	summary := Summary{TotalLessons: len(batch)}
	if len(batch) == 0 {
		return summary
	}

	total := 0
	summary.MinScore = history.Score(kind, batch[0])
	for _, a := range batch {
		score := history.Score(kind, a)
		total += score
		summary.MinScore = min(summary.MinScore, score)
		summary.MaxScore = max(summary.MaxScore, score)

		if a.Validation.Valid {
			summary.Valid++
		} else {
			summary.Invalid++
		}
	}
	summary.AverageScore = float64(total) / float64(len(batch))

	switch kind {
	case lesson.KindImpact:
		summary.DimensionMeans = history.DimensionMeans(batch)
	case lesson.KindCategorization:
		summary.UniqueCategories = len(history.CategoryCounts(batch))
	}
	return summary
}

// calculateDistribution counts lessons per band, or per category for the
// categorization report. Every band is listed, including empty ones.
func calculateDistribution(kind lesson.Kind, batch []lesson.Analysis) []Bucket {
	if kind == lesson.KindCategorization {
		return topCategories(history.CategoryCounts(batch), 0)
	}

	bands := BandsFor(kind)
	counts := make(map[string]int, len(bands))
	for _, a := range batch {
		counts[BandOf(bands, history.Score(kind, a))]++
	}

	buckets := make([]Bucket, 0, len(bands))
	for _, b := range bands {
		buckets = append(buckets, Bucket{Name: b.Name, Count: counts[b.Name]})
	}
	return buckets
}

// topCategories returns categories by descending count, then name. A limit
// of zero returns all of them.
func topCategories(counts map[string]int, limit int) []Bucket {
	buckets := make([]Bucket, 0, len(counts))
	for name, count := range counts {
		buckets = append(buckets, Bucket{Name: name, Count: count})
	}

	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Name < buckets[j].Name
	})

	if limit > 0 && len(buckets) > limit {
		buckets = buckets[:limit]
	}
	return buckets
}

// rankTop returns the n highest scoring lessons. Equal scores are ordered by
// path so rankings are stable between runs.
func rankTop(kind lesson.Kind, batch []lesson.Analysis, n int) []Ranked {
	ranked := make([]Ranked, 0, len(batch))
	for _, a := range batch {
		r := Ranked{
			Path:  a.Record.Path,
			Title: a.Record.Title,
			Score: history.Score(kind, a),
		}
		if kind == lesson.KindCategorization {
			r.Categories = a.Record.Categories
		}
		ranked = append(ranked, r)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Path < ranked[j].Path
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// calculateTrends groups the batch four ways and averages each group.
func calculateTrends(kind lesson.Kind, batch []lesson.Analysis) Trends {
	byPhase := newGrouper()
	byPriority := newGrouper()
	byCategory := newGrouper()
	bySections := newGrouper()

	for _, a := range batch {
		score := history.Score(kind, a)
		byPhase.add(string(a.Record.Phase), score)
		byPriority.add(string(a.Record.Priority), score)
		for _, c := range a.Record.Categories {
			byCategory.add(c, score)
		}
		bySections.add(strconv.Itoa(a.Record.SectionCount()), score)
	}

	return Trends{
		ByPhase:        byPhase.means(),
		ByPriority:     byPriority.means(),
		ByCategory:     byCategory.means(),
		BySectionCount: bySections.means(),
	}
}

type grouper struct {
	totals map[string]int
	counts map[string]int
}

func newGrouper() *grouper {
	return &grouper{totals: map[string]int{}, counts: map[string]int{}}
}

func (g *grouper) add(key string, score int) {
	g.totals[key] += score
	g.counts[key]++
}

func (g *grouper) means() map[string]Group {
	out := make(map[string]Group, len(g.counts))
	for key, n := range g.counts {
		out[key] = Group{Count: n, MeanScore: float64(g.totals[key]) / float64(n)}
	}
	return out
}

// generateRecommendations derives follow-ups from the report numbers.
func generateRecommendations(kind lesson.Kind, batch []lesson.Analysis, report *Report) []string {
	recommendations := []string{}

	if len(batch) == 0 {
		return append(recommendations, "No lessons were analyzed; add lesson documents to the lessons directory")
	}

	switch kind {
	case lesson.KindQuality:
		if report.Summary.Invalid > 0 {
			recommendations = append(recommendations,
				fmt.Sprintf("Fix schema violations in %d lesson(s); most common: %q",
					report.Summary.Invalid, mostCommonError(batch)))
		}
		if report.Summary.AverageScore < 70 {
			recommendations = append(recommendations,
				fmt.Sprintf("Average quality is %.1f; complete the context, action taken, results, insights and recommendations sections", report.Summary.AverageScore))
		}
		if n := bucketCount(report.Distribution, "failing"); n > 0 {
			recommendations = append(recommendations,
				fmt.Sprintf("Rewrite the %d failing lesson(s) using `lessons template new`", n))
		}

	case lesson.KindImpact:
		for _, dim := range lesson.Dimensions() {
			if report.Summary.DimensionMeans[dim] == 0 {
				recommendations = append(recommendations,
					fmt.Sprintf("No lesson touches the %s dimension; consider capturing %s learnings", dim, dim))
			}
		}
		if bucketCount(report.Distribution, "high") == 0 {
			recommendations = append(recommendations, "No high-impact lessons found; record outcomes and production effects explicitly")
		}

	case lesson.KindCategorization:
		counts := history.CategoryCounts(batch)
		if n := counts["general"]; n > 0 {
			recommendations = append(recommendations,
				fmt.Sprintf("%d lesson(s) matched no category; mention the affected area or extend the category rules", n))
		}
		top := topCategories(counts, 1)
		if len(top) > 0 && len(batch) >= 4 && top[0].Count*2 > len(batch) {
			recommendations = append(recommendations,
				fmt.Sprintf("'%s' dominates with %d of %d lessons; look for gaps in other areas", top[0].Name, top[0].Count, len(batch)))
		}
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, "Continue capturing lessons in the current format")
	}
	return recommendations
}

// mostCommonError returns the validation error seen most often, ties broken
// alphabetically.
func mostCommonError(batch []lesson.Analysis) string {
	counts := map[string]int{}
	for _, a := range batch {
		for _, e := range a.Validation.Errors {
			counts[e]++
		}
	}
	top := topCategories(counts, 1)
	if len(top) == 0 {
		return ""
	}
	return top[0].Name
}

func bucketCount(buckets []Bucket, name string) int {
	for _, b := range buckets {
		if b.Name == name {
			return b.Count
		}
	}
	return 0
}

// generateSummary creates a one-paragraph summary.
func generateSummary(kind lesson.Kind, report *Report) string {
	s := report.Summary
	parts := []string{fmt.Sprintf("Analyzed %d lessons", s.TotalLessons)}

	if s.TotalLessons > 0 {
		switch kind {
		case lesson.KindQuality:
			parts = append(parts,
				fmt.Sprintf("Average quality score %.1f (min %d, max %d)", s.AverageScore, s.MinScore, s.MaxScore),
				fmt.Sprintf("%d valid, %d invalid", s.Valid, s.Invalid))
		case lesson.KindImpact:
			parts = append(parts,
				fmt.Sprintf("Average impact score %.1f (min %d, max %d)", s.AverageScore, s.MinScore, s.MaxScore))
		case lesson.KindCategorization:
			parts = append(parts,
				fmt.Sprintf("%d distinct categories, %.1f per lesson", s.UniqueCategories, s.AverageScore))
		}
	}

	return strings.Join(parts, ". ") + "."
}
