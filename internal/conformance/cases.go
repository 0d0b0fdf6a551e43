// Package conformance generates and runs the per-file conformance suite
// for a framework tree: structural, functional, documentation,
// integration and performance tests.
package conformance

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spboyer/promptaudit/internal/framework"
)

// TestType groups test cases for reporting.
type TestType string

const (
	TypeStructural    TestType = "structural"
	TypeFunctional    TestType = "functional"
	TypeIntegration   TestType = "integration"
	TypePerformance   TestType = "performance"
	TypeSecurity      TestType = "security"
	TypeCompatibility TestType = "compatibility"
	TypeDocumentation TestType = "documentation"
)

// AllTypes lists every test type in report order.
var AllTypes = []TestType{
	TypeStructural, TypeFunctional, TypeIntegration, TypePerformance,
	TypeSecurity, TypeCompatibility, TypeDocumentation,
}

// Status is the outcome of a test case.
type Status string

const (
	StatusPass  Status = "pass"
	StatusFail  Status = "fail"
	StatusSkip  Status = "skip"
	StatusError Status = "error"
)

// Multiple marks suite-wide cases that are not tied to a single file.
const Multiple = "multiple"

// TestCase is one planned or executed test.
type TestCase struct {
	Name        string             `json:"name"`
	Type        TestType           `json:"test_type"`
	File        string             `json:"file_path"`
	FileType    framework.FileType `json:"file_type"`
	Description string             `json:"description"`
	Actual      string             `json:"actual_result,omitempty"`
	Status      Status             `json:"status"`
	Message     string             `json:"error_message,omitempty"`
	Duration    time.Duration      `json:"execution_time_ns"`
}

func (tc *TestCase) pass(actual string) {
	tc.Status = StatusPass
	tc.Actual = actual
}

func (tc *TestCase) fail(format string, args ...any) {
	tc.Status = StatusFail
	tc.Message = fmt.Sprintf(format, args...)
}

func (tc *TestCase) errored(format string, args ...any) {
	tc.Status = StatusError
	tc.Message = fmt.Sprintf(format, args...)
}

// check identifies what a case tests, independent of the file it targets.
type check string

const (
	checkFrontmatter    check = "yaml_frontmatter"
	checkRequiredFields check = "required_fields"
	checkComponent      check = "component_structure"
	checkDocumentation  check = "documentation_quality"
	checkConfigSyntax   check = "config_syntax"
	checkContentQuality check = "content_quality"
	checkCommandSyntax  check = "command_syntax"
	checkTools          check = "tool_validation"
	checkUsability      check = "component_usability"
)

// Subject is a discovered file with its classification.
type Subject struct {
	Path string
	Type framework.FileType
}

// subjectGroups is the order in which discovered files are planned.
var subjectGroups = []struct {
	key   string
	types []framework.FileType
}{
	{"command_files", []framework.FileType{framework.FileCommand}},
	{"component_files", []framework.FileType{framework.FileComponent}},
	{"config_files", []framework.FileType{framework.FileConfig}},
	{"documentation_files", []framework.FileType{framework.FileDocumentation}},
	{"index_files", []framework.FileType{framework.FileIndex}},
	{"readme_files", []framework.FileType{framework.FileReadme}},
}

// classify maps path onto the default ".claude" layout before classifying
// so that a renamed framework directory is still recognized.
func classify(layout framework.Layout, path string) framework.FileType {
	if rel, err := filepath.Rel(layout.ClaudeDir, path); err == nil && !strings.HasPrefix(rel, "..") {
		return framework.Classify(filepath.Join(framework.DefaultDir, rel))
	}
	return framework.Classify(path)
}

// Subjects classifies every discovered markdown and config file and groups
// them in planning order.
func Subjects(layout framework.Layout, tree *framework.Tree) (map[string][]Subject, []Subject) {
	byType := make(map[framework.FileType][]Subject)
	for _, p := range tree.Markdown {
		t := classify(layout, p)
		if t == framework.FileConfig {
			t = framework.FileDocumentation
		}
		byType[t] = append(byType[t], Subject{Path: p, Type: t})
	}
	for _, p := range tree.Config {
		byType[framework.FileConfig] = append(byType[framework.FileConfig], Subject{Path: p, Type: framework.FileConfig})
	}

	groups := make(map[string][]Subject, len(subjectGroups))
	var ordered []Subject
	for _, g := range subjectGroups {
		for _, t := range g.types {
			groups[g.key] = append(groups[g.key], byType[t]...)
			ordered = append(ordered, byType[t]...)
		}
	}
	return groups, ordered
}

type planned struct {
	TestCase
	check check
}

// planFile returns the structural, documentation and functional cases for
// one subject.
func planFile(s Subject) []planned {
	stem := framework.Stem(s.Path)
	name := filepath.Base(s.Path)
	mk := func(c check, t TestType, desc string) planned {
		return planned{
			TestCase: TestCase{
				Name:        string(c) + "_" + stem,
				Type:        t,
				File:        s.Path,
				FileType:    s.Type,
				Description: desc,
				Status:      StatusSkip,
			},
			check: c,
		}
	}

	var out []planned
	switch s.Type {
	case framework.FileCommand:
		out = append(out,
			mk(checkFrontmatter, TypeStructural, "Validate YAML frontmatter structure in command "+name),
			mk(checkRequiredFields, TypeStructural, "Validate required fields in command "+name),
		)
	case framework.FileComponent:
		out = append(out, mk(checkComponent, TypeStructural, "Validate component structure in "+name))
	case framework.FileReadme, framework.FileDocumentation, framework.FileIndex:
		out = append(out, mk(checkDocumentation, TypeDocumentation, "Validate documentation quality in "+name))
	case framework.FileConfig:
		out = append(out, mk(checkConfigSyntax, TypeStructural, "Validate config file syntax in "+name))
	}
	out = append(out, mk(checkContentQuality, TypeStructural, "Validate basic content quality in "+name))

	switch s.Type {
	case framework.FileCommand:
		out = append(out,
			mk(checkCommandSyntax, TypeFunctional, "Validate command syntax and structure in "+name),
			mk(checkTools, TypeFunctional, "Validate tool permissions in "+name),
		)
	case framework.FileComponent:
		out = append(out, mk(checkUsability, TypeFunctional, "Validate component usability in "+name))
	}
	return out
}
