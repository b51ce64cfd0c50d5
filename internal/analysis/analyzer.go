package analysis

import (
	"github.com/fyrsmithlabs/lessons/internal/extraction"
	"github.com/fyrsmithlabs/lessons/internal/lesson"
	"github.com/fyrsmithlabs/lessons/internal/rules"
	"github.com/fyrsmithlabs/lessons/internal/schema"
)

// Analyzer runs the per-document stages: extraction, categorization,
// validation, quality and impact scoring. It holds no mutable state and is
// safe for concurrent use.
type Analyzer struct {
	extractor *extraction.Extractor
	schema    *schema.Schema
}

// NewAnalyzer creates an analyzer. A nil extractor uses the default rule
// tables; a nil schema uses schema.Default().
func NewAnalyzer(extractor *extraction.Extractor, s *schema.Schema) *Analyzer {
	if extractor == nil {
		extractor = extraction.NewExtractor(nil)
	}
	if s == nil {
		s = schema.Default()
	}
	return &Analyzer{extractor: extractor, schema: s}
}

// Tables returns the rule tables used by the analyzer.
func (a *Analyzer) Tables() *rules.Tables {
	return a.extractor.Tables()
}

// Schema returns the validation schema used by the analyzer.
func (a *Analyzer) Schema() *schema.Schema {
	return a.schema
}

// Analyze processes one document.
func (a *Analyzer) Analyze(doc lesson.Document) lesson.Analysis {
	t := a.Tables()

	rec := a.extractor.Extract(doc)
	rec.Categories = Categorize(t, doc.Content, &rec)

	validation := schema.Validate(&rec, a.schema)

	return lesson.Analysis{
		Record:        rec,
		Validation:    validation,
		QualityScore:  QualityScore(doc.Content, &rec, validation),
		ImpactScore:   ImpactScore(t, doc.Content, &rec),
		ImpactMetrics: ImpactMetrics(t, doc.Content),
	}
}
