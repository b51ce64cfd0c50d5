package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected string
	}{
		{"empty line", "", ""},
		{"whitespace only", "   ", ""},
		{"comment", "# this is a comment", ""},
		{"negation skipped", "!important.md", ""},
		{"simple file glob", "*.draft.md", "*.draft.md"},
		{"plain name", "README.md", "README.md"},
		{"trailing whitespace", "notes.md  \r", "notes.md"},
		{"leading slash", "/index.md", "index.md"},
		{"nested path keeps base", "archive/old-*.md", "old-*.md"},
		{"double star", "**/scratch.md", "scratch.md"},
		{"directory only", "drafts/", "drafts"},
		{"bad pattern dropped", "[unclosed", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseLine(tt.line)
			if result != tt.expected {
				t.Errorf("parseLine(%q) = %q, want %q", tt.line, result, tt.expected)
			}
		})
	}
}

func TestParseDir(t *testing.T) {
	tmpDir := t.TempDir()

	content := `# Drafts are not analyzed
*.draft.md
TEMPLATE.md

!keep.md
TEMPLATE.md
`
	if err := os.WriteFile(filepath.Join(tmpDir, DefaultFile), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	parser := NewParser([]string{DefaultFile}, []string{"fallback.md"})

	matcher, err := parser.ParseDir(tmpDir)
	if err != nil {
		t.Fatalf("ParseDir failed: %v", err)
	}

	patterns := matcher.Patterns()
	if len(patterns) != 2 {
		t.Fatalf("expected 2 deduplicated patterns, got %v", patterns)
	}

	tests := []struct {
		path string
		want bool
	}{
		{"/lessons/db.draft.md", true},
		{"TEMPLATE.md", true},
		{"/lessons/db-pool.md", false},
		{"keep.md", false},
		{"fallback.md", false},
	}
	for _, tt := range tests {
		if got := matcher.Match(tt.path); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestParseDir_NoIgnoreFiles(t *testing.T) {
	tmpDir := t.TempDir()

	fallback := []string{"README.md", "CHANGELOG.md"}
	parser := NewParser([]string{DefaultFile, ""}, fallback)

	matcher, err := parser.ParseDir(tmpDir)
	if err != nil {
		t.Fatalf("ParseDir failed: %v", err)
	}

	patterns := matcher.Patterns()
	if len(patterns) != len(fallback) {
		t.Errorf("expected %d fallback patterns, got %d", len(fallback), len(patterns))
	}
	if !matcher.Match("docs/README.md") {
		t.Error("fallback pattern should match")
	}
}

func TestMatcher_Nil(t *testing.T) {
	var m *Matcher
	if m.Match("anything.md") {
		t.Error("nil matcher should match nothing")
	}
}

func TestDeduplicate(t *testing.T) {
	input := []string{"a", "b", "a", "c", "b", "d"}
	expected := []string{"a", "b", "c", "d"}

	result := deduplicate(input)

	if len(result) != len(expected) {
		t.Fatalf("got %d items, want %d", len(result), len(expected))
	}

	for i, v := range result {
		if v != expected[i] {
			t.Errorf("result[%d] = %q, want %q", i, v, expected[i])
		}
	}
}
