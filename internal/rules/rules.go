// Package rules holds the keyword tables that drive extraction, scoring and
// categorization.
//
// Every component that matches keywords takes a *Tables, so a single
// versioned rule set is shared across the pipeline and tests can substitute
// their own.
package rules

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Version identifies the built-in rule set. Bump it whenever a default table
// changes so drift shows up in persisted snapshots.
const Version = "2024.1"

// Errors returned by LoadFile and Validate.
var (
	ErrInvalidRules = errors.New("invalid rules file")
	ErrEmptyGroup   = errors.New("keyword group has no name")
)

// KeywordGroup is a named list of keywords. Groups are evaluated in order and
// a group matches when any of its keywords is a substring of the lowercased
// text.
type KeywordGroup struct {
	Name     string   `toml:"name" json:"name"`
	Keywords []string `toml:"keywords" json:"keywords"`
}

// Matches reports whether any keyword occurs in lower. lower must already be
// lowercased.
func (g KeywordGroup) Matches(lower string) bool {
	return ContainsAny(lower, g.Keywords)
}

// ProjectRule names a project and the phrases that identify it.
type ProjectRule struct {
	Name     string   `toml:"name" json:"name"`
	Keywords []string `toml:"keywords" json:"keywords"`
}

// ImpactSignals are the content-signal keyword sets used by the impact score.
type ImpactSignals struct {
	Production []string `toml:"production" json:"production"`
	Urgent     []string `toml:"urgent" json:"urgent"`
	Success    []string `toml:"success" json:"success"`
	Failure    []string `toml:"failure" json:"failure"`
}

// Tables is the complete rule set.
type Tables struct {
	// Version of the rule set, recorded in history snapshots.
	Version string `toml:"version" json:"version"`

	// Projects are tested in order; the first match names the project.
	Projects []ProjectRule `toml:"projects" json:"projects"`

	// Phases and Priorities are ordered: the first matching group wins.
	Phases     []KeywordGroup `toml:"phases" json:"phases"`
	Priorities []KeywordGroup `toml:"priorities" json:"priorities"`

	// TagVocabulary is the fixed tag set; tags are reported in this order.
	TagVocabulary []string `toml:"tag_vocabulary" json:"tagVocabulary"`

	InsightTriggers        []string `toml:"insight_triggers" json:"insightTriggers"`
	RecommendationTriggers []string `toml:"recommendation_triggers" json:"recommendationTriggers"`

	// SectionSynonyms maps normalized headings to canonical section keys.
	SectionSynonyms map[string]string `toml:"section_synonyms" json:"sectionSynonyms"`

	// Categories are evaluated in order; every matching group is assigned.
	Categories []KeywordGroup `toml:"categories" json:"categories"`

	// ImpactDimensions are the five binary impact dimensions.
	ImpactDimensions []KeywordGroup `toml:"impact_dimensions" json:"impactDimensions"`

	ImpactSignals ImpactSignals `toml:"impact_signals" json:"impactSignals"`

	PriorityWeights map[string]int `toml:"priority_weights" json:"priorityWeights"`
	PhaseWeights    map[string]int `toml:"phase_weights" json:"phaseWeights"`
}

// Default returns a fresh copy of the built-in rule set.
func Default() *Tables {
	return &Tables{
		Version: Version,
		Projects: []ProjectRule{
			{Name: "Agent OS", Keywords: []string{"agent os", ".agent-os"}},
		},
		Phases: []KeywordGroup{
			{Name: "planning", Keywords: []string{"planning", "design", "architecture", "requirements", "roadmap"}},
			{Name: "development", Keywords: []string{"development", "implementation", "coding", "build", "refactor"}},
			{Name: "testing", Keywords: []string{"testing", "test", "qa", "validation", "verification"}},
			{Name: "deployment", Keywords: []string{"deployment", "deploy", "release", "production", "rollout"}},
			{Name: "maintenance", Keywords: []string{"maintenance", "bug fix", "hotfix", "monitoring", "support"}},
		},
		Priorities: []KeywordGroup{
			{Name: "critical", Keywords: []string{"critical", "urgent", "blocker", "severe", "outage"}},
			{Name: "high", Keywords: []string{"high priority", "high-priority", "important", "major"}},
			{Name: "medium", Keywords: []string{"medium priority", "moderate"}},
			{Name: "low", Keywords: []string{"low priority", "low-priority", "minor", "nice to have", "trivial"}},
		},
		TagVocabulary: []string{
			"api", "database", "frontend", "backend", "performance",
			"security", "testing", "deployment", "refactoring", "documentation",
			"code-review", "agile", "docker", "git", "ci/cd",
		},
		InsightTriggers:        []string{"insight", "learned", "discovered"},
		RecommendationTriggers: []string{"recommend", "should", "must"},
		SectionSynonyms: map[string]string{
			"actiontaken":     "actionTaken",
			"action":          "actionTaken",
			"keyinsights":     "keyInsights",
			"insights":        "keyInsights",
			"context":         "context",
			"background":      "context",
			"results":         "results",
			"result":          "results",
			"outcome":         "results",
			"outcomes":        "results",
			"recommendations": "recommendations",
			"recommendation":  "recommendations",
			"nextsteps":       "recommendations",
		},
		Categories: []KeywordGroup{
			{Name: "frontend", Keywords: []string{"frontend", "react", "vue", "angular", "css", "html", "user interface"}},
			{Name: "backend", Keywords: []string{"backend", "server", "api endpoint", "microservice", "node.js"}},
			{Name: "database", Keywords: []string{"database", "sql", "postgres", "mysql", "mongodb", "redis", "query"}},
			{Name: "devops", Keywords: []string{"devops", "docker", "kubernetes", "ci/cd", "pipeline", "deployment", "terraform"}},
			{Name: "testing", Keywords: []string{"testing", "unit test", "integration test", "jest", "pytest", "coverage"}},
			{Name: "security", Keywords: []string{"security", "authentication", "authorization", "vulnerability", "encryption", "xss"}},
			{Name: "performance", Keywords: []string{"performance", "latency", "optimization", "caching", "memory leak", "throughput"}},
			{Name: "architecture", Keywords: []string{"architecture", "design pattern", "microservices", "scalability", "modular"}},
			{Name: "ai-integration", Keywords: []string{"ai integration", "llm", "openai", "claude", "gpt", "prompt"}},
			{Name: "analytics", Keywords: []string{"analytics", "metrics", "dashboard", "tracking", "telemetry"}},
			{Name: "documentation", Keywords: []string{"documentation", "readme", "docs", "guide", "tutorial"}},
		},
		ImpactDimensions: []KeywordGroup{
			{Name: "technical", Keywords: []string{"code", "architecture", "performance", "api", "database", "bug"}},
			{Name: "process", Keywords: []string{"process", "workflow", "methodology", "practice", "procedure"}},
			{Name: "project", Keywords: []string{"timeline", "deadline", "scope", "milestone", "budget"}},
			{Name: "quality", Keywords: []string{"quality", "testing", "test", "review", "standard"}},
			{Name: "adoption", Keywords: []string{"adoption", "team", "training", "onboarding", "documentation"}},
		},
		ImpactSignals: ImpactSignals{
			Production: []string{"production", "deploy"},
			Urgent:     []string{"critical", "urgent"},
			Success:    []string{"success", "improve"},
			Failure:    []string{"fail", "error"},
		},
		PriorityWeights: map[string]int{
			"critical": 30,
			"high":     20,
			"medium":   10,
			"low":      5,
		},
		PhaseWeights: map[string]int{
			"planning":    15,
			"development": 20,
			"testing":     15,
			"deployment":  25,
			"maintenance": 10,
		},
	}
}

// LoadFile returns the default rule set overlaid with the TOML file at path.
// Lists present in the file replace the defaults; map entries are merged key
// by key. An empty path or a missing file yields the defaults. Unknown keys
// are rejected so typos do not silently fall back to defaults.
func LoadFile(path string) (*Tables, error) {
	t := Default()
	if path == "" {
		return t, nil
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("stat rules file: %w", err)
	}

	var overlay Tables
	md, err := toml.DecodeFile(path, &overlay)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRules, path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: %s: unknown key %q", ErrInvalidRules, path, undecoded[0].String())
	}
	t.overlay(&overlay, md)

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRules, path, err)
	}
	return t, nil
}

func (t *Tables) overlay(o *Tables, md toml.MetaData) {
	if md.IsDefined("version") {
		t.Version = o.Version
	}
	if md.IsDefined("projects") {
		t.Projects = o.Projects
	}
	if md.IsDefined("phases") {
		t.Phases = o.Phases
	}
	if md.IsDefined("priorities") {
		t.Priorities = o.Priorities
	}
	if md.IsDefined("tag_vocabulary") {
		t.TagVocabulary = o.TagVocabulary
	}
	if md.IsDefined("insight_triggers") {
		t.InsightTriggers = o.InsightTriggers
	}
	if md.IsDefined("recommendation_triggers") {
		t.RecommendationTriggers = o.RecommendationTriggers
	}
	if md.IsDefined("categories") {
		t.Categories = o.Categories
	}
	if md.IsDefined("impact_dimensions") {
		t.ImpactDimensions = o.ImpactDimensions
	}
	if md.IsDefined("impact_signals", "production") {
		t.ImpactSignals.Production = o.ImpactSignals.Production
	}
	if md.IsDefined("impact_signals", "urgent") {
		t.ImpactSignals.Urgent = o.ImpactSignals.Urgent
	}
	if md.IsDefined("impact_signals", "success") {
		t.ImpactSignals.Success = o.ImpactSignals.Success
	}
	if md.IsDefined("impact_signals", "failure") {
		t.ImpactSignals.Failure = o.ImpactSignals.Failure
	}
	for k, v := range o.SectionSynonyms {
		t.SectionSynonyms[k] = v
	}
	for k, v := range o.PriorityWeights {
		t.PriorityWeights[k] = v
	}
	for k, v := range o.PhaseWeights {
		t.PhaseWeights[k] = v
	}
}

// Validate checks that every group is named and keywords are usable.
func (t *Tables) Validate() error {
	if t.Version == "" {
		return errors.New("version is required")
	}
	for _, set := range []struct {
		name   string
		groups []KeywordGroup
	}{
		{"phases", t.Phases},
		{"priorities", t.Priorities},
		{"categories", t.Categories},
		{"impact_dimensions", t.ImpactDimensions},
	} {
		for i, g := range set.groups {
			if strings.TrimSpace(g.Name) == "" {
				return fmt.Errorf("%s[%d]: %w", set.name, i, ErrEmptyGroup)
			}
			for _, kw := range g.Keywords {
				if kw == "" {
					return fmt.Errorf("%s[%s]: empty keyword", set.name, g.Name)
				}
			}
		}
	}
	return nil
}

// FirstMatch returns the name of the first group matching lower.
func FirstMatch(groups []KeywordGroup, lower string) (string, bool) {
	for _, g := range groups {
		if g.Matches(lower) {
			return g.Name, true
		}
	}
	return "", false
}

// ContainsAny reports whether any keyword is a substring of lower. Keywords
// are compared lowercased.
func ContainsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// CanonicalSection maps a normalized heading to its canonical key, or returns
// it unchanged when no synonym exists.
func (t *Tables) CanonicalSection(normalized string) string {
	if canonical, ok := t.SectionSynonyms[normalized]; ok {
		return canonical
	}
	return normalized
}

// SynonymsFor returns every normalized heading that maps to canonical,
// sorted for stable output.
func (t *Tables) SynonymsFor(canonical string) []string {
	var out []string
	for heading, key := range t.SectionSynonyms {
		if key == canonical {
			out = append(out, heading)
		}
	}
	sort.Strings(out)
	return out
}
