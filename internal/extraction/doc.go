// Package extraction derives structured lesson metadata from free-form
// markdown using keyword heuristics.
//
// The package supports:
//   - Title, date and project detection
//   - Phase and priority classification against ordered keyword tables
//   - Tag detection against a fixed vocabulary
//   - Insight and recommendation line capture
//   - Section parsing keyed by level-2 headings
//
// # Usage
//
//	extractor := extraction.NewExtractor(rules.Default())
//	record := extractor.Extract(doc)
//
// All matching is case-insensitive substring matching over the lowercased
// content. Every sub-extraction is a pure function of the content except the
// date fallback, which uses the configured clock or the file modification
// time when no ISO date is present.
package extraction
