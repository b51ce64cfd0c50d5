// Package report builds run-level summaries of analyzed lessons.
//
// A report covers the current batch only, never the persisted history. One
// report is produced per analysis kind (categorization, quality, impact) and
// contains:
//   - Summary: totals, averages and kind-specific counts
//   - Distribution: lessons per score band, or per category
//   - TopN: the highest scoring lessons, ties broken by path
//   - Trends: grouped mean scores by phase, priority, category and section count
//   - Recommendations: follow-ups derived from the numbers
//
// # Usage
//
//	r := report.Generate(lesson.KindQuality, batch, report.Options{TopN: 10})
//	paths, err := report.Write(dir, r, []string{report.FormatJSON, report.FormatMarkdown})
//
// Reports are written with restrictive permissions (0600 files in a 0750
// directory), separate from the history stores.
package report
