package template

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/fyrsmithlabs/lessons/internal/lesson"
)

// Placeholder keys for the metadata header and tag footer.
const (
	KeyTitle    = "TITLE"
	KeyDate     = "DATE"
	KeyProject  = "PROJECT"
	KeyPhase    = "PHASE"
	KeyPriority = "PRIORITY"
	KeyTags     = "TAGS"
)

// sectionHeadings are the display headings of the canonical sections.
var sectionHeadings = map[string]string{
	lesson.SectionContext:         "Context",
	lesson.SectionActionTaken:     "Action Taken",
	lesson.SectionResults:         "Results",
	lesson.SectionKeyInsights:     "Key Insights",
	lesson.SectionRecommendations: "Recommendations",
}

// metadataLabels maps metadata fields to their header labels. The title is
// carried by the level-1 heading instead.
var metadataLabels = []struct {
	field string
	label string
	key   string
}{
	{lesson.FieldDate, "Date", KeyDate},
	{lesson.FieldProject, "Project", KeyProject},
	{lesson.FieldPhase, "Phase", KeyPhase},
	{lesson.FieldPriority, "Priority", KeyPriority},
}

// Heading returns the display heading of a section entry: canonical keys map
// to their display name, anything else is used verbatim.
func Heading(section string) string {
	if h, ok := sectionHeadings[section]; ok {
		return h
	}
	return section
}

// PlaceholderKey returns the placeholder key of a section heading, for
// example "Action Taken" becomes ACTION_TAKEN.
func PlaceholderKey(heading string) string {
	var b strings.Builder
	underscore := false
	for _, r := range heading {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if underscore && b.Len() > 0 {
				b.WriteByte('_')
			}
			underscore = false
			b.WriteRune(unicode.ToUpper(r))
		default:
			underscore = true
		}
	}
	return b.String()
}

// Token wraps a key into its literal placeholder form.
func Token(key string) string {
	return "{{" + key + "}}"
}

// Generate renders a blank template: a metadata header, one section per
// definition entry and a tag footer. Default tags of the definition are
// pre-filled.
func Generate(def Definition) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", Token(KeyTitle)))
	for _, m := range metadataLabels {
		sb.WriteString(fmt.Sprintf("**%s:** %s\n", m.label, Token(m.key)))
	}
	sb.WriteString("\n")

	for _, section := range def.Sections {
		heading := Heading(section)
		sb.WriteString(fmt.Sprintf("## %s\n\n%s\n\n", heading, Token(PlaceholderKey(heading))))
	}

	sb.WriteString("---\n")
	tags := Token(KeyTags)
	if len(def.Tags) > 0 {
		tags = strings.Join(def.Tags, ", ") + ", " + tags
	}
	sb.WriteString(fmt.Sprintf("**Tags:** %s\n", tags))

	return sb.String()
}

// CreateFromTemplate replaces every {{KEY}} token whose key is in data with
// the value verbatim. Unknown tokens are left in place.
func CreateFromTemplate(tpl string, data map[string]string) string {
	if len(data) == 0 {
		return tpl
	}
	pairs := make([]string, 0, len(data)*2)
	for key, value := range data {
		pairs = append(pairs, Token(key), value)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}
