package extraction

import (
	"reflect"
	"testing"
)

func TestNormalizeHeading(t *testing.T) {
	tests := map[string]string{
		"Action Taken":    "actiontaken",
		"  Key\tInsights": "keyinsights",
		"Next Steps ":     "nextsteps",
		"":                "",
	}
	for in, want := range tests {
		if got := NormalizeHeading(in); got != want {
			t.Errorf("NormalizeHeading(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseSections(t *testing.T) {
	e := newTestExtractor()

	tests := []struct {
		name    string
		content string
		want    map[string]string
	}{
		{
			name:    "no headings",
			content: "# Title\nplain text",
			want:    map[string]string{},
		},
		{
			name: "synonyms and literals",
			content: "# Title\npreamble\n## Background\n\nThe pool was small.\n\n## Action\nRaised it.\n### Detail\nstill action\n" +
				"## Key Insights\nPools matter.\n## Outcome\nFaster.\n## Next Steps\nMonitor.\n## Timeline\nTwo days",
			want: map[string]string{
				"context":         "The pool was small.",
				"actionTaken":     "Raised it.\n### Detail\nstill action",
				"keyInsights":     "Pools matter.",
				"results":         "Faster.",
				"recommendations": "Monitor.",
				"timeline":        "Two days",
			},
		},
		{
			name:    "empty body",
			content: "## Context\n## Results\ndone",
			want:    map[string]string{"context": "", "results": "done"},
		},
		{
			name:    "repeated heading keeps last",
			content: "## Results\nfirst\n## Outcome\nsecond",
			want:    map[string]string{"results": "second"},
		},
		{
			name:    "crlf",
			content: "## Context\r\nwindows line\r\n",
			want:    map[string]string{"context": "windows line"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.ParseSections(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseSections() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
