package extraction

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fyrsmithlabs/lessons/internal/lesson"
	"github.com/fyrsmithlabs/lessons/internal/rules"
)

// DateLayout is the ISO calendar date layout used for Record.Date.
const DateLayout = "2006-01-02"

// DateFallback selects the date used when content carries no ISO date.
type DateFallback string

const (
	// DateFallbackNow uses the extraction time.
	DateFallbackNow DateFallback = "now"

	// DateFallbackModTime uses the document modification time.
	DateFallbackModTime DateFallback = "mtime"
)

// ParseDateFallback converts a config string to a DateFallback.
func ParseDateFallback(s string) (DateFallback, error) {
	switch DateFallback(strings.ToLower(strings.TrimSpace(s))) {
	case "", DateFallbackNow:
		return DateFallbackNow, nil
	case DateFallbackModTime:
		return DateFallbackModTime, nil
	default:
		return "", fmt.Errorf("unknown date fallback %q (want now or mtime)", s)
	}
}

var isoDate = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// Extractor turns lesson documents into records.
type Extractor struct {
	tables       *rules.Tables
	dateFallback DateFallback
	now          func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithDateFallback sets the date fallback mode.
func WithDateFallback(f DateFallback) Option {
	return func(e *Extractor) {
		e.dateFallback = f
	}
}

// WithClock overrides the clock used by the "now" date fallback.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// NewExtractor creates an extractor over the given rule tables. Nil tables
// select the built-in defaults.
func NewExtractor(tables *rules.Tables, opts ...Option) *Extractor {
	if tables == nil {
		tables = rules.Default()
	}
	e := &Extractor{
		tables:       tables,
		dateFallback: DateFallbackNow,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tables returns the rule tables the extractor matches against.
func (e *Extractor) Tables() *rules.Tables {
	return e.tables
}

// Extract builds a record from doc. Categories are left empty; they are
// assigned by the categorizer once the record is complete.
func (e *Extractor) Extract(doc lesson.Document) lesson.Record {
	content := doc.Content

	rec := lesson.Record{
		Path:            doc.Path,
		Project:         e.ExtractProject(content),
		Phase:           e.ExtractPhase(content),
		Priority:        e.ExtractPriority(content),
		Tags:            e.ExtractTags(content),
		Categories:      []string{},
		Sections:        e.ParseSections(content),
		KeyInsights:     e.ExtractInsights(content),
		Recommendations: e.ExtractRecommendations(content),
	}

	if title, ok := ExtractTitle(content); ok {
		rec.Title = title
	} else {
		rec.Title = doc.Stem()
		rec.TitleInferred = true
	}

	if date, ok := ExtractDate(content); ok {
		rec.Date = date
	} else {
		rec.Date = e.fallbackDate(doc)
		rec.DateInferred = true
	}

	return rec
}

func (e *Extractor) fallbackDate(doc lesson.Document) string {
	if e.dateFallback == DateFallbackModTime && !doc.ModTime.IsZero() {
		return doc.ModTime.Format(DateLayout)
	}
	return e.now().Format(DateLayout)
}

// ExtractTitle returns the text of the first level-1 heading.
func ExtractTitle(content string) (string, bool) {
	for _, line := range splitLines(content) {
		if !strings.HasPrefix(line, "# ") {
			continue
		}
		if title := strings.TrimSpace(line[2:]); title != "" {
			return title, true
		}
	}
	return "", false
}

// ExtractDate returns the first YYYY-MM-DD substring in content.
func ExtractDate(content string) (string, bool) {
	date := isoDate.FindString(content)
	return date, date != ""
}

// ExtractProject returns the first project whose phrases occur in content,
// or lesson.DefaultProject.
func (e *Extractor) ExtractProject(content string) string {
	lower := strings.ToLower(content)
	for _, p := range e.tables.Projects {
		if rules.ContainsAny(lower, p.Keywords) {
			return p.Name
		}
	}
	return lesson.DefaultProject
}

// ExtractPhase classifies content against the ordered phase table.
func (e *Extractor) ExtractPhase(content string) lesson.Phase {
	if name, ok := rules.FirstMatch(e.tables.Phases, strings.ToLower(content)); ok {
		return lesson.Phase(name)
	}
	return lesson.PhaseGeneral
}

// ExtractPriority classifies content against the ordered priority table.
func (e *Extractor) ExtractPriority(content string) lesson.Priority {
	if name, ok := rules.FirstMatch(e.tables.Priorities, strings.ToLower(content)); ok {
		return lesson.Priority(name)
	}
	return lesson.PriorityMedium
}

// ExtractTags returns the vocabulary terms present in content, in
// vocabulary order.
func (e *Extractor) ExtractTags(content string) []string {
	lower := strings.ToLower(content)
	tags := []string{}
	for _, tag := range e.tables.TagVocabulary {
		if strings.Contains(lower, strings.ToLower(tag)) {
			tags = append(tags, tag)
		}
	}
	return tags
}

// ExtractInsights returns every trimmed line containing an insight trigger.
func (e *Extractor) ExtractInsights(content string) []string {
	return matchingLines(content, e.tables.InsightTriggers)
}

// ExtractRecommendations returns every trimmed line containing a
// recommendation trigger.
func (e *Extractor) ExtractRecommendations(content string) []string {
	return matchingLines(content, e.tables.RecommendationTriggers)
}

func matchingLines(content string, triggers []string) []string {
	out := []string{}
	for _, line := range splitLines(content) {
		if rules.ContainsAny(strings.ToLower(line), triggers) {
			out = append(out, strings.TrimSpace(line))
		}
	}
	return out
}

// splitLines splits on \n and drops a trailing \r from each line.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
