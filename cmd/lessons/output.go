package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/lessons/internal/history"
	"github.com/fyrsmithlabs/lessons/internal/lesson"
	"github.com/fyrsmithlabs/lessons/internal/pipeline"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")).
			Width(12)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	okStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

func row(label string, value any) string {
	return labelStyle.Render(label) + " " + valueStyle.Render(fmt.Sprint(value))
}

// renderSummary formats a pipeline result for the terminal.
func renderSummary(r pipeline.Result) string {
	var lines []string
	if r.Success {
		lines = append(lines, headerStyle.Render("lessons analysis")+" "+okStyle.Render("✓ success"))
	} else {
		lines = append(lines, headerStyle.Render("lessons analysis")+" "+errorStyle.Render("✗ failed"))
		lines = append(lines, errorStyle.Render(r.Error))
	}

	lines = append(lines,
		"",
		row("found", r.DocumentsFound),
		row("processed", r.Processed),
		row("valid", r.Valid),
		row("invalid", r.Invalid),
	)
	if r.Failed > 0 {
		lines = append(lines, labelStyle.Render("failed")+" "+warnStyle.Render(fmt.Sprint(r.Failed)))
		for _, f := range r.Failures {
			lines = append(lines, dimStyle.Render("  "+f.Error()))
		}
	}
	if len(r.ReportPaths) > 0 {
		lines = append(lines, "", labelStyle.Render("reports"))
		for _, p := range r.ReportPaths {
			lines = append(lines, dimStyle.Render("  "+p))
		}
	}
	lines = append(lines, "", dimStyle.Render(fmt.Sprintf("run %s in %s", r.RunID, r.Duration.Round(time.Millisecond))))

	return containerStyle.Render(strings.Join(lines, "\n"))
}

// renderValidation formats the validation outcome of one file.
func renderValidation(path string, v lesson.ValidationResult) string {
	if v.Valid {
		return okStyle.Render("✓ ") + path
	}
	var sb strings.Builder
	sb.WriteString(errorStyle.Render("✗ ") + path)
	for _, e := range v.Errors {
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render("    " + e))
	}
	return sb.String()
}

// renderSnapshots formats indexed snapshots as a table.
func renderSnapshots(rows []history.SnapshotRow) string {
	if len(rows) == 0 {
		return dimStyle.Render("no snapshots recorded")
	}
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("%-20s %-15s %8s %8s", "TIMESTAMP", "KIND", "LESSONS", "AVERAGE")))
	for _, r := range rows {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "%-20s %-15s %8d %8.1f",
			r.Timestamp.Format("2006-01-02 15:04:05"), r.Kind, r.TotalLessons, r.AverageScore)
	}
	return sb.String()
}

// renderTrend formats the score trend of one lesson.
func renderTrend(path string, kind lesson.Kind, points []history.ScorePoint) string {
	if len(points) == 0 {
		return dimStyle.Render(fmt.Sprintf("no %s history for %s", kind, path))
	}
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("%s %s", kind, path)))
	for _, p := range points {
		status := okStyle.Render("valid")
		if !p.Valid {
			status = warnStyle.Render("invalid")
		}
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "%s %5d  %s", p.Timestamp.Format("2006-01-02 15:04:05"), p.Score, status)
	}
	return sb.String()
}
