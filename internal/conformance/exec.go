package conformance

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/spboyer/promptaudit/internal/framework"
)

// ValidTools are the tool names a command may list in allowed-tools.
var ValidTools = []string{
	"Read", "Write", "Edit", "MultiEdit", "Bash", "Grep", "Glob",
	"LS", "Task", "WebFetch", "WebSearch", "TodoWrite", "NotebookRead",
	"NotebookEdit", "ExitPlanMode",
}

// RequiredFields must appear in every command's frontmatter.
var RequiredFields = []string{"description", "name"}

// runFile executes every planned case for one file against a single read
// of its content.
func runFile(path string, cases []planned) []TestCase {
	data, readErr := os.ReadFile(path)
	content := string(data)
	out := make([]TestCase, len(cases))
	for i, p := range cases {
		start := time.Now()
		tc := p.TestCase
		if readErr != nil {
			tc.errored("Test execution error: %v", readErr)
		} else {
			execute(&tc, p.check, content)
		}
		tc.Duration = time.Since(start)
		out[i] = tc
	}
	return out
}

func execute(tc *TestCase, c check, content string) {
	switch c {
	case checkFrontmatter:
		testFrontmatter(tc, content)
	case checkRequiredFields:
		testRequiredFields(tc, content)
	case checkComponent:
		if utf8.RuneCountInString(strings.TrimSpace(content)) < 50 {
			tc.fail("Component content too short")
		} else {
			tc.pass(fmt.Sprintf("Component structure valid (%d chars)", utf8.RuneCountInString(content)))
		}
	case checkConfigSyntax:
		testConfigSyntax(tc, content)
	case checkContentQuality:
		minLen := 100
		if tc.FileType == framework.FileComponent {
			minLen = 50
		}
		if utf8.RuneCountInString(strings.TrimSpace(content)) < minLen {
			tc.fail("Content too short (< %d characters)", minLen)
		} else {
			tc.pass(fmt.Sprintf("Content length: %d characters", utf8.RuneCountInString(content)))
		}
	case checkDocumentation:
		score := DocumentationScore(content)
		if score >= 2 {
			tc.pass(fmt.Sprintf("Documentation quality score: %d/4", score))
		} else {
			tc.fail("Low documentation quality score: %d/4", score)
		}
	case checkCommandSyntax, checkTools:
		testCommandFunction(tc, c, content)
	case checkUsability:
		score := UsabilityScore(content)
		if score >= 2 {
			tc.pass(fmt.Sprintf("Component usability score: %d/4", score))
		} else {
			tc.fail("Low component usability: %d/4", score)
		}
	}
}

func testFrontmatter(tc *TestCase, content string) {
	_, _, err := framework.SplitFrontmatter(content)
	switch {
	case errors.Is(err, framework.ErrNoFrontmatter):
		tc.fail("Command missing YAML frontmatter delimiter")
	case errors.Is(err, framework.ErrUnclosedFrontmatter):
		tc.fail("Command missing closing YAML delimiter")
	case err != nil:
		tc.fail("Invalid YAML: %v", errors.Unwrap(err))
	default:
		tc.pass("Valid YAML structure")
	}
}

func testRequiredFields(tc *TestCase, content string) {
	fm, _, err := framework.SplitFrontmatter(content)
	switch {
	case errors.Is(err, framework.ErrNoFrontmatter), errors.Is(err, framework.ErrUnclosedFrontmatter):
		tc.fail("Cannot extract YAML data from command")
		return
	case err != nil:
		tc.errored("Test execution error: %v", err)
		return
	}
	var missing []string
	for _, f := range RequiredFields {
		if _, ok := fm[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		tc.fail("Command missing required fields: %s", strings.Join(missing, ", "))
		return
	}
	tc.pass("All required fields present")
}

func testConfigSyntax(tc *TestCase, content string) {
	switch strings.ToLower(filepath.Ext(tc.File)) {
	case ".json":
		var v any
		if err := json.Unmarshal([]byte(content), &v); err != nil {
			tc.fail("Invalid JSON: %v", err)
			return
		}
		tc.pass("Valid JSON syntax")
	default:
		var v any
		if err := yaml.Unmarshal([]byte(content), &v); err != nil {
			tc.fail("Invalid YAML: %v", err)
			return
		}
		tc.pass("Valid YAML syntax")
	}
}

func testCommandFunction(tc *TestCase, c check, content string) {
	fm, _, err := framework.SplitFrontmatter(content)
	switch {
	case errors.Is(err, framework.ErrNoFrontmatter), errors.Is(err, framework.ErrUnclosedFrontmatter):
		tc.fail("Cannot extract YAML data for functional testing")
		return
	case err != nil:
		tc.errored("Enhanced functional test error: %v", err)
		return
	}

	if c == checkCommandSyntax {
		if name, ok := fm["name"].(string); ok && strings.HasPrefix(name, "/") {
			tc.pass("Valid command syntax: " + name)
		} else {
			tc.fail("Invalid command name syntax")
		}
		return
	}

	raw, ok := fm["allowed-tools"]
	if !ok {
		tc.pass("No tools specified (valid)")
		return
	}
	list, ok := raw.([]any)
	if !ok {
		tc.fail("allowed-tools must be a list")
		return
	}
	invalid := InvalidTools(list)
	if len(invalid) > 0 {
		tc.fail("Invalid tools: %s", strings.Join(invalid, ", "))
		return
	}
	tc.pass("All tools valid")
}

// InvalidTools returns the sorted, distinct entries of tools that are not
// in ValidTools.
func InvalidTools(tools []any) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tools {
		name := fmt.Sprint(t)
		if slices.Contains(ValidTools, name) || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DocumentationScore awards one point each for a heading, more than 200
// characters, an example and usage guidance.
func DocumentationScore(content string) int {
	lower := strings.ToLower(content)
	score := 0
	if strings.Contains(content, "# ") {
		score++
	}
	if utf8.RuneCountInString(content) > 200 {
		score++
	}
	if strings.Contains(content, "```") || strings.Contains(lower, "example") {
		score++
	}
	if strings.Contains(lower, "usage") || strings.Contains(lower, "how to") {
		score++
	}
	return score
}

// UsabilityScore awards one point each for sections, an example, more
// than 100 characters and a code block.
func UsabilityScore(content string) int {
	score := 0
	if strings.Contains(content, "##") {
		score++
	}
	if strings.Contains(strings.ToLower(content), "example") {
		score++
	}
	if utf8.RuneCountInString(content) > 100 {
		score++
	}
	if strings.Contains(content, "```") {
		score++
	}
	return score
}
