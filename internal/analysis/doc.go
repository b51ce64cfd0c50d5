// Package analysis scores and categorizes extracted lesson records.
//
// Every function here is a deterministic function of the document content,
// its record and the rule tables. Scores are always clamped into [0, 100]
// as the last step.
//
// The Analyzer ties extraction, validation and scoring together for a single
// document:
//
//	a := analysis.NewAnalyzer(extractor, schema.Default())
//	result := a.Analyze(doc)
package analysis
