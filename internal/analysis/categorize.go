package analysis

import (
	"strings"

	"github.com/fyrsmithlabs/lessons/internal/lesson"
	"github.com/fyrsmithlabs/lessons/internal/rules"
)

// Labels added from metadata rather than keywords.
const (
	CategoryGeneral      = "general"
	CategoryCritical     = "critical"
	CategoryHighPriority = "high-priority"
)

// Categorize assigns every category whose keywords occur in content, then
// the priority and phase labels. The result is ordered, free of duplicates
// and never empty.
func Categorize(t *rules.Tables, content string, rec *lesson.Record) []string {
	if t == nil {
		t = rules.Default()
	}
	lower := strings.ToLower(content)

	var out []string
	seen := make(map[string]bool)
	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}

	for _, group := range t.Categories {
		if group.Matches(lower) {
			add(group.Name)
		}
	}

	switch rec.Priority {
	case lesson.PriorityCritical:
		add(CategoryCritical)
	case lesson.PriorityHigh:
		add(CategoryHighPriority)
	}

	if rec.Phase != "" && rec.Phase != lesson.PhaseGeneral {
		add(string(rec.Phase))
	}

	if len(out) == 0 {
		return []string{CategoryGeneral}
	}
	return out
}
