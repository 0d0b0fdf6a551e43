package review

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spboyer/promptaudit/internal/framework"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func runRules(t *testing.T, root, yamlRules string) *Report {
	t.Helper()
	rs, err := ParseRules([]byte(yamlRules), FormatYAML)
	require.NoError(t, err)
	report, err := New(framework.NewLayout(root, ""), rs).Run(context.Background())
	require.NoError(t, err)
	return report
}

func TestDefaultRules(t *testing.T) {
	rs, err := DefaultRules()
	require.NoError(t, err)
	require.Equal(t, 100, rs.Len())

	ranges := map[string][2]int{
		"UX":             {1, 30},
		"Simplicity":     {31, 55},
		"Documentation":  {56, 75},
		"Installation":   {76, 85},
		"Commands":       {86, 95},
		"Error Handling": {96, 100},
	}
	for i, r := range rs.Rules() {
		require.Equal(t, i+1, r.ID)
		bounds, ok := ranges[r.Category]
		require.True(t, ok, "unexpected category %q", r.Category)
		assert.GreaterOrEqual(t, r.ID, bounds[0], "rule %d", r.ID)
		assert.LessOrEqual(t, r.ID, bounds[1], "rule %d", r.ID)
	}
}

func TestRun_EmptyProject(t *testing.T) {
	rs, err := DefaultRules()
	require.NoError(t, err)
	report, err := New(framework.NewLayout(t.TempDir(), ""), rs).Run(context.Background())
	require.NoError(t, err)

	var passed []int
	for _, c := range report.Results {
		if c.Status == StatusPass {
			passed = append(passed, c.Check)
		}
	}
	// Only rules that hold vacuously pass on an empty tree.
	assert.Equal(t, []int{35, 46, 47, 49, 54, 68, 85, 88, 95}, passed)
	assert.Equal(t, 9, report.Passed)
	assert.Equal(t, 91, report.Failed)
	assert.Equal(t, "D/F (NEEDS WORK)", report.Grade)
	assert.Equal(t, "NOT READY FOR PRODUCTION", report.Recommendation)
	assert.False(t, report.ProductionOK)
	require.Len(t, report.FailedChecks(10), 10)
	assert.Equal(t, 1, report.FailedChecks(10)[0].Check)
	assert.Equal(t, ".claude/commands/meta/welcome.md missing", report.Results[1].Details)
	require.Len(t, report.Critical, 4)
}

func TestRun_Deterministic(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"README.md":                          "# Project\n\n## Quick Start\nsimple installation in 5 minutes\n",
		".claude/commands/meta/welcome.md":   "---\nname: /welcome\ndescription: Start here for beginners\n---\n# Welcome\nstep 1\n",
		".claude/commands/core/help-me.md":   "---\nname: /help\n---\n# Help\n",
		".claude/commands/dev/run-tests.md":  "no frontmatter",
		".claude/components/tool/reader.md":  "component",
		"FAQ.md":                             "## Problems\n- error one\n",
	})
	rs, err := DefaultRules()
	require.NoError(t, err)
	reviewer := New(framework.NewLayout(root, ""), rs)

	first, err := reviewer.Run(context.Background())
	require.NoError(t, err)
	second, err := reviewer.Run(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff(first.Results, second.Results); diff != "" {
		t.Fatalf("results differ between runs (-first +second):\n%s", diff)
	}
	assert.Equal(t, first.Passed, second.Passed)
}

func TestRun_Cancelled(t *testing.T) {
	rs, err := DefaultRules()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(framework.NewLayout(t.TempDir(), ""), rs).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestContains(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"README.md": "Beginner and Intermediate paths. Use git clone or download.",
		"FAQ.md":    "# FAQ",
		"USAGE.md":  "plain text",
	})
	report := runRules(t, root, `
rules:
  - {id: 1, category: UX, description: all terms, kind: contains, params: {files: [README.md], terms: [beginner, intermediate], all: true}}
  - {id: 2, category: UX, description: all terms missing one, kind: contains, params: {files: [README.md], terms: [beginner, expert], all: true}}
  - {id: 3, category: UX, description: min files, kind: contains, params: {files: [README.md, FAQ.md, USAGE.md], terms: ["#"], min_files: 2}}
  - {id: 4, category: UX, description: bounded terms, kind: contains, params: {files: [README.md], terms: [git clone, git submodule, download], min_terms: 2, max_terms: 3}}
  - {id: 5, category: UX, description: case sensitive, kind: contains, params: {files: [README.md], terms: [beginner], case_sensitive: true}}
  - {id: 6, category: UX, description: union, kind: contains, params: {files: [README.md, FAQ.md], terms: [faq, download, missing], union: true, min_terms: 2}}
  - {id: 7, category: UX, description: missing file, kind: contains, params: {files: [NOPE.md], terms: [x]}}
  - {id: 8, category: UX, description: capitalised term, kind: contains, params: {files: [README.md], terms: [Beginner]}}
  - {id: 9, category: UX, description: capitalised term exact, kind: contains, params: {files: [README.md], terms: [Beginner], case_sensitive: true}}
`)
	status := func(i int) Status { return report.Results[i].Status }
	assert.Equal(t, StatusPass, status(0))
	assert.Equal(t, StatusFail, status(1))
	assert.Equal(t, StatusFail, status(2), "only FAQ.md has a heading")
	assert.Equal(t, StatusPass, status(3))
	assert.Equal(t, "Found 2 of 3", report.Results[3].Details)
	assert.Equal(t, StatusFail, status(4))
	assert.Equal(t, StatusPass, status(5))
	assert.Equal(t, "2/3 topics covered", report.Results[5].Details)
	assert.Equal(t, StatusFail, status(6))
	assert.Equal(t, StatusFail, status(7), "content is lowercased but the term is not")
	assert.Equal(t, StatusPass, status(8))
}

func TestExcludesAndOccurrences(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"README.md": "# Title\n## A\n## B\n## C\nAn enterprise option, another option.\n- a\n- b\n",
		"setup.sh":  "#!/bin/sh\ncurl example.com\n",
	})
	report := runRules(t, root, `
rules:
  - {id: 1, category: Simplicity, description: one jargon word allowed, kind: excludes, params: {files: [README.md], terms: [enterprise, robust], max_terms: 1}}
  - {id: 2, category: Simplicity, description: offline, kind: excludes, params: {files: [setup.sh, missing.sh], terms: [curl, wget]}}
  - id: 3
    category: Simplicity
    description: hierarchy
    kind: occurrences
    params:
      files: [README.md]
      counts:
        - {terms: ["# "], min: 1}
        - {terms: ["## "], min: 3}
  - id: 4
    category: Simplicity
    description: options bounded
    kind: occurrences
    params:
      files: [README.md]
      counts:
        - {terms: [option], max: 1}
  - id: 5
    category: Simplicity
    description: bullets
    kind: occurrences
    params:
      files: [README.md]
      counts:
        - {terms: ["- ", "* "], min: 6}
`)
	assert.Equal(t, StatusPass, report.Results[0].Status)
	assert.Equal(t, "Found: enterprise", report.Results[0].Details)
	assert.Equal(t, StatusFail, report.Results[1].Status)
	assert.Equal(t, StatusPass, report.Results[2].Status)
	assert.Equal(t, StatusFail, report.Results[3].Status)
	assert.Contains(t, report.Results[3].Details, `"option"=2`)
	assert.Equal(t, StatusFail, report.Results[4].Status)
}

func TestRequires(t *testing.T) {
	report := runRules(t, t.TempDir(), `
rules:
  - {id: 7, category: UX, description: gated, kind: contains, requires: [README.md], params: {files: [README.md], terms: [x]}}
`)
	require.Len(t, report.Results, 1)
	assert.Equal(t, StatusFail, report.Results[0].Status)
	assert.Equal(t, "README.md missing", report.Results[0].Details)
}

func TestFileAndDirKinds(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"FAQ.md":                          "faq",
		".claude/commands/core/help.md":   "help",
		".claude/commands/meta/a/b/c.md":  "deep",
		".claude/commands/dev/x.md":       "x",
		".claude/commands/other/x.md":     "x",
		"setup.sh":                        "#!/bin/sh\n",
	})
	require.NoError(t, os.Chmod(filepath.Join(root, "setup.sh"), 0o755))

	report := runRules(t, root, `
rules:
  - {id: 1, category: UX, description: two of three, kind: file_exists, params: {paths: [FAQ.md, .claude/commands/core/help.md, missing.md], min: 2}}
  - {id: 2, category: UX, description: all, kind: file_exists, params: {paths: [FAQ.md, missing.md]}}
  - {id: 3, category: UX, description: dirs, kind: dir_exists, params: {paths: [.claude/commands/core, .claude/commands/meta]}}
  - {id: 4, category: UX, description: file is not a dir, kind: dir_exists, params: {paths: [FAQ.md]}}
  - {id: 5, category: Installation, description: executable, kind: executable, params: {path: setup.sh}}
  - {id: 6, category: Simplicity, description: depth, kind: max_depth, params: {dir: .claude, max: 3}}
  - {id: 7, category: Commands, description: categories, kind: subdir_count, params: {dir: .claude/commands, min: 3}}
  - {id: 8, category: Commands, description: duplicates, kind: unique_names, params: {dir: .claude/commands}}
  - {id: 9, category: UX, description: count, kind: glob_count, params: {dir: .claude/commands, recursive: true, min: 4, max: 4}}
`)
	r := report.Results
	assert.Equal(t, StatusPass, r[0].Status)
	assert.Equal(t, "2/3 present", r[0].Details)
	assert.Equal(t, StatusFail, r[1].Status)
	assert.Equal(t, "missing: missing.md", r[1].Details)
	assert.Equal(t, StatusPass, r[2].Status)
	assert.Equal(t, StatusFail, r[3].Status)
	assert.Equal(t, StatusPass, r[4].Status)
	assert.Equal(t, StatusFail, r[5].Status)
	assert.Equal(t, "Max depth: 4", r[5].Details)
	assert.Equal(t, StatusPass, r[6].Status)
	assert.Equal(t, "Found categories: core, dev, meta", r[6].Details)
	assert.Equal(t, StatusFail, r[7].Status)
	assert.Equal(t, "Duplicates: x", r[7].Details)
	assert.Equal(t, StatusPass, r[8].Status)
}

func TestTextMetrics(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"README.md":        "We have 52 commands. See [faq](FAQ.md) and [gone](docs/gone.md#top) or [site](https://example.com).\n",
		"FAQ.md":           "faq",
		"requirements.txt": "a\nb\n\nc\nd\ne\n",
	})
	for i := 0; i < 51; i++ {
		writeFiles(t, root, map[string]string{filepath.ToSlash(filepath.Join(".claude/commands", strings.Repeat("c", i+1)+".md")): "x"})
	}
	report := runRules(t, root, `
rules:
  - {id: 1, category: Documentation, description: count, kind: documented_count, params: {file: README.md, dir: .claude/commands}}
  - {id: 2, category: Documentation, description: links, kind: links_resolve, params: {file: README.md}}
  - {id: 3, category: Documentation, description: sentences, kind: sentence_length, params: {file: README.md}}
  - {id: 4, category: Simplicity, description: words, kind: word_count, params: {file: README.md, max: 5}}
  - {id: 5, category: Simplicity, description: deps, kind: line_count, params: {file: requirements.txt, max: 4, missing_ok: true}}
  - {id: 6, category: Simplicity, description: no deps file, kind: line_count, params: {file: none.txt, max: 4, missing_ok: true}}
`)
	r := report.Results
	assert.Equal(t, StatusPass, r[0].Status, r[0].Details)
	assert.Equal(t, "Actual: 51, Documented: [52]", r[0].Details)
	assert.Equal(t, StatusFail, r[1].Status)
	assert.Equal(t, "Found 1 broken links: docs/gone.md", r[1].Details)
	assert.Equal(t, StatusPass, r[2].Status)
	assert.Equal(t, StatusFail, r[3].Status)
	assert.Equal(t, StatusFail, r[4].Status)
	assert.Equal(t, "5 non-empty lines", r[4].Details)
	assert.Equal(t, StatusPass, r[5].Status)
}

func TestSampleKinds(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		".claude/commands/a-one.md":   "---\nname: /a-one\ndescription: Runs the first thing\nallowed-tools: [Read]\n---\n# A\n```\nexample\n```\n",
		".claude/commands/b-two.md":   "---\nname: /b-two\ndescription: short\ntools: [Read]\n---\n# B\n",
		".claude/commands/c-three.md": "---\nname: [broken\n---\n# C\n",
		".claude/commands/dthree.md":  "no frontmatter here",
	})
	report := runRules(t, root, `
rules:
  - {id: 1, category: Commands, description: frontmatter, kind: sample_frontmatter, params: {dir: .claude/commands, sample: 4, min: 2}}
  - {id: 2, category: Commands, description: fields, kind: sample_fields, params: {dir: .claude/commands, sample: 4, min: 2, fields: [name, description]}}
  - {id: 3, category: Commands, description: alias, kind: field_alias, params: {dir: .claude/commands, alias: "tools:", canonical: "allowed-tools:"}}
  - {id: 4, category: Commands, description: slash, kind: sample_contains, params: {dir: .claude/commands, sample: 4, min: 2, terms: ["name: /"], case_sensitive: true}}
  - {id: 5, category: Commands, description: descriptions, kind: sample_description, params: {dir: .claude/commands, sample: 4, min: 1}}
  - {id: 6, category: Simplicity, description: names, kind: sample_name_style, params: {dir: .claude/commands, sample: 4, min: 3, separator: "-", max_len: 15}}
  - {id: 7, category: Commands, description: body, kind: sample_body_words, params: {dir: .claude/commands, sample: 4, min: 1, min_words: 3}}
  - {id: 8, category: Commands, description: missing dir ok, kind: sample_name_style, params: {dir: .claude/nothing, min: 3, missing_ok: true}}
`)
	r := report.Results
	assert.Equal(t, StatusPass, r[0].Status)
	assert.True(t, strings.HasPrefix(r[0].Details, "2/4 valid, errors: "), r[0].Details)
	assert.Equal(t, StatusPass, r[1].Status)
	assert.Equal(t, StatusFail, r[2].Status)
	assert.Equal(t, "Inconsistent: b-two.md", r[2].Details)
	assert.Equal(t, StatusPass, r[3].Status)
	assert.Equal(t, StatusPass, r[4].Status)
	assert.Equal(t, "1/4 have good descriptions", r[4].Details)
	assert.Equal(t, StatusPass, r[5].Status)
	assert.Equal(t, StatusPass, r[6].Status)
	assert.Equal(t, "1/4 have sufficient content", r[6].Details)
	assert.Equal(t, StatusPass, r[7].Status)
}

func TestCustomFrameworkDir(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"prompts/commands/meta/welcome.md": "welcome"})
	rs, err := ParseRules([]byte(`
rules:
  - {id: 1, category: UX, description: welcome, kind: file_exists, params: {paths: [.claude/commands/meta/welcome.md]}}
`), FormatYAML)
	require.NoError(t, err)
	report, err := New(framework.NewLayout(root, "prompts"), rs).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusPass, report.Results[0].Status)
}

func TestParseRules_TOML(t *testing.T) {
	rs, err := ParseRules([]byte(`
[[rules]]
id = 2
category = "Documentation"
description = "FAQ exists"
kind = "file_exists"
[rules.params]
paths = ["FAQ.md"]

[[rules]]
id = 1
category = "Documentation"
description = "README exists"
kind = "file_exists"
[rules.params]
paths = ["README.md"]
`), FormatTOML)
	require.NoError(t, err)
	rules := rs.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, 1, rules[0].ID)
	assert.Equal(t, 2, rules[1].ID)
}

func TestParseRules_Errors(t *testing.T) {
	tests := []struct {
		name  string
		rules string
		want  string
	}{
		{
			name:  "schema",
			rules: "rules:\n  - {id: 1, category: Vibes, description: x, kind: file_exists}\n",
			want:  "invalid rules",
		},
		{
			name:  "unknown param",
			rules: "rules:\n  - {id: 1, category: UX, description: x, kind: file_exists, params: {pathz: [a]}}\n",
			want:  "pathz",
		},
		{
			name:  "missing param",
			rules: "rules:\n  - {id: 1, category: UX, description: x, kind: contains, params: {files: [a]}}\n",
			want:  "files and terms are required",
		},
		{
			name: "duplicate",
			rules: "rules:\n" +
				"  - {id: 1, category: UX, description: x, kind: file_exists, params: {paths: [a]}}\n" +
				"  - {id: 1, category: UX, description: y, kind: file_exists, params: {paths: [b]}}\n",
			want: "duplicate id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.rules), FormatYAML)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadRules(t *testing.T) {
	rs, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, 100, rs.Len())

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "rules.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[rules]]\nid = 1\ncategory = \"UX\"\ndescription = \"d\"\nkind = \"file_exists\"\nparams = { paths = [\"a\"] }\n"), 0o644))
	rs, err = LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Len())
}

func TestGrade(t *testing.T) {
	tests := []struct {
		score float64
		grade string
	}{
		{95, "A+ (EXCELLENT)"},
		{90, "A+ (EXCELLENT)"},
		{85, "A (VERY GOOD)"},
		{70, "B (GOOD)"},
		{65, "C (ACCEPTABLE)"},
		{10, "D/F (NEEDS WORK)"},
	}
	for _, tt := range tests {
		got, _ := Grade(tt.score)
		assert.Equal(t, tt.grade, got, "score %v", tt.score)
	}
	_, status := Grade(50)
	assert.Equal(t, "NOT PRODUCTION READY - SIGNIFICANT ISSUES", status)
}

func TestRecommend(t *testing.T) {
	got, notes := Recommend(85, 75)
	assert.Equal(t, "READY FOR PRODUCTION DEPLOYMENT", got)
	assert.Len(t, notes, 3)

	got, _ = Recommend(85, 65)
	assert.Equal(t, "READY FOR PRODUCTION WITH MONITORING", got)

	got, _ = Recommend(75, 50)
	assert.Equal(t, "NOT READY FOR PRODUCTION", got)
}

func TestThreshold(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"README.md": "x"})
	rs, err := ParseRules([]byte(`
rules:
  - {id: 1, category: UX, description: readme, kind: file_exists, params: {paths: [README.md]}}
  - {id: 2, category: UX, description: faq, kind: file_exists, params: {paths: [FAQ.md]}}
`), FormatYAML)
	require.NoError(t, err)

	report, err := New(framework.NewLayout(root, ""), rs, WithThreshold(50)).Run(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 50.0, report.Score, 0.001)
	assert.True(t, report.ProductionOK)

	report, err = New(framework.NewLayout(root, ""), rs).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, report.ProductionOK)
}
