package analysis

import (
	"regexp"
	"strings"
)

var emphasisPattern = regexp.MustCompile(`\*\*[^*\n]+\*\*|__[^_\n]+__|\*[^*\s\n][^*\n]*\*`)

// HasCodeBlock reports whether content contains a fenced code block marker.
func HasCodeBlock(content string) bool {
	return strings.Contains(content, "```")
}

// HasEmphasis reports whether content contains bold or italic markup.
func HasEmphasis(content string) bool {
	return emphasisPattern.MatchString(content)
}
