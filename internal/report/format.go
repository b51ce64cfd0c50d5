package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown report format")

// Render encodes a report in the given format.
func Render(report *Report, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal report: %w", err)
		}
		return append(data, '\n'), nil
	case FormatMarkdown, "md":
		return []byte(formatAsMarkdown(report)), nil
	case FormatText, "txt":
		return []byte(formatAsText(report)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// FileName returns the artifact name of a report in a format.
func FileName(report *Report, format string) string {
	ext := ".json"
	switch strings.ToLower(format) {
	case FormatMarkdown, "md":
		ext = ".md"
	case FormatText, "txt":
		ext = ".txt"
	}
	return string(report.Kind) + "-report" + ext
}

// Write persists a report in every requested format under dir and returns
// the written paths. JSON is always written.
func Write(dir string, report *Report, formats []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	formats = withJSON(formats)
	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		data, err := Render(report, format)
		if err != nil {
			return paths, err
		}

		path := filepath.Join(dir, FileName(report, format))
		if err := os.WriteFile(path, data, 0600); err != nil {
			return paths, fmt.Errorf("failed to write report: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func withJSON(formats []string) []string {
	out := []string{FormatJSON}
	seen := map[string]bool{FormatJSON: true}
	for _, f := range formats {
		f = strings.ToLower(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func title(kind string) string {
	if kind == "" {
		return ""
	}
	r := []rune(kind)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// formatAsMarkdown formats the report as markdown.
func formatAsMarkdown(report *Report) string {
	var sb strings.Builder
	s := report.Summary

	sb.WriteString(fmt.Sprintf("# %s Report\n\n", title(string(report.Kind))))
	if report.RunID != "" {
		sb.WriteString(fmt.Sprintf("**Run:** %s\n", report.RunID))
	}
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("## Summary\n\n")
	sb.WriteString(s.Text + "\n\n")
	sb.WriteString(fmt.Sprintf("- Total Lessons: %d\n", s.TotalLessons))
	sb.WriteString(fmt.Sprintf("- Average Score: %.1f\n", s.AverageScore))
	for _, dim := range sortedKeys(s.DimensionMeans) {
		sb.WriteString(fmt.Sprintf("- Mean %s: %.1f\n", dim, s.DimensionMeans[dim]))
	}
	sb.WriteString("\n")

	if len(report.Distribution) > 0 {
		sb.WriteString("## Distribution\n\n")
		sb.WriteString("| Bucket | Lessons |\n|---|---|\n")
		for _, b := range report.Distribution {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", b.Name, b.Count))
		}
		sb.WriteString("\n")
	}

	if len(report.TopN) > 0 {
		sb.WriteString(fmt.Sprintf("## Top %d\n\n", len(report.TopN)))
		for _, r := range report.TopN {
			sb.WriteString(fmt.Sprintf("%d. **%s** (%d) `%s`\n", r.Rank, r.Title, r.Score, r.Path))
		}
		sb.WriteString("\n")
	}

	writeMarkdownTrend(&sb, "By Phase", report.Trends.ByPhase)
	writeMarkdownTrend(&sb, "By Priority", report.Trends.ByPriority)
	writeMarkdownTrend(&sb, "By Category", report.Trends.ByCategory)
	writeMarkdownTrend(&sb, "By Section Count", report.Trends.BySectionCount)

	if len(report.Recommendations) > 0 {
		sb.WriteString("## Recommendations\n\n")
		for _, rec := range report.Recommendations {
			sb.WriteString(fmt.Sprintf("- %s\n", rec))
		}
	}

	return sb.String()
}

func writeMarkdownTrend(sb *strings.Builder, heading string, groups map[string]Group) {
	if len(groups) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("## Trends: %s\n\n", heading))
	sb.WriteString("| Group | Lessons | Mean Score |\n|---|---|---|\n")
	for _, key := range sortedKeys(groups) {
		g := groups[key]
		sb.WriteString(fmt.Sprintf("| %s | %d | %.1f |\n", key, g.Count, g.MeanScore))
	}
	sb.WriteString("\n")
}

// formatAsText formats the report as plain text.
func formatAsText(report *Report) string {
	var sb strings.Builder
	s := report.Summary

	sb.WriteString(strings.ToUpper(string(report.Kind)) + " REPORT\n")
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 20) + "\n")
	sb.WriteString(s.Text + "\n\n")

	if len(report.Distribution) > 0 {
		sb.WriteString("DISTRIBUTION\n")
		sb.WriteString(strings.Repeat("-", 20) + "\n")
		for _, b := range report.Distribution {
			sb.WriteString(fmt.Sprintf("%-16s %d\n", b.Name, b.Count))
		}
		sb.WriteString("\n")
	}

	if len(report.TopN) > 0 {
		sb.WriteString("TOP LESSONS\n")
		sb.WriteString(strings.Repeat("-", 20) + "\n")
		for _, r := range report.TopN {
			sb.WriteString(fmt.Sprintf("%d. %s (%d)\n", r.Rank, r.Title, r.Score))
		}
		sb.WriteString("\n")
	}

	if len(report.Recommendations) > 0 {
		sb.WriteString("RECOMMENDATIONS\n")
		sb.WriteString(strings.Repeat("-", 20) + "\n")
		for i, rec := range report.Recommendations {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, rec))
		}
	}

	return sb.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
