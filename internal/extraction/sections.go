package extraction

import (
	"strings"
	"unicode"
)

const sectionMarker = "## "

// ParseSections splits content into sections keyed by normalized level-2
// headings. A section body runs up to the next level-2 heading or the end of
// the document and is trimmed. Text before the first heading is ignored; a
// repeated heading keeps the last body.
func (e *Extractor) ParseSections(content string) map[string]string {
	sections := make(map[string]string)

	var (
		current string
		open    bool
		body    []string
	)
	flush := func() {
		if open && current != "" {
			sections[current] = strings.TrimSpace(strings.Join(body, "\n"))
		}
	}

	for _, line := range splitLines(content) {
		if strings.HasPrefix(line, sectionMarker) {
			flush()
			current = e.tables.CanonicalSection(NormalizeHeading(line[len(sectionMarker):]))
			open = true
			body = body[:0]
			continue
		}
		if open {
			body = append(body, line)
		}
	}
	flush()

	return sections
}

// NormalizeHeading lowercases heading text and removes all whitespace.
func NormalizeHeading(heading string) string {
	var b strings.Builder
	b.Grow(len(heading))
	for _, r := range heading {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
