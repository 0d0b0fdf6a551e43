package workflow

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/spboyer/promptaudit/internal/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// DefaultTemplates returns the built-in baseline and enhanced prompts,
// defined as "baseline/<scenario>" and "enhanced/<scenario>".
func DefaultTemplates() (*template.Set, error) {
	return template.ParseFS(templateFS, "templates/*.tmpl")
}

// LoadTemplates returns the built-in prompts overridden by any *.tmpl
// definitions in dir. A missing dir yields the built-ins.
func LoadTemplates(dir string) (*template.Set, error) {
	set, err := DefaultTemplates()
	if err != nil || dir == "" {
		return set, err
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return set, nil
	}
	return set.Override(os.DirFS(dir), "*.tmpl")
}

// Metadata describes a test case for reporting.
type Metadata struct {
	ScenarioType    Scenario   `json:"scenario_type"`
	ComplexityLevel Complexity `json:"complexity_level"`
	ContextSize     int        `json:"context_size"`
}

// TestCase is one scenario at one complexity, with both prompts rendered.
type TestCase struct {
	ID                 string     `json:"test_id"`
	Scenario           Scenario   `json:"scenario"`
	Complexity         Complexity `json:"complexity"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	ContextFiles       []string   `json:"context_files"`
	BaselinePrompt     string     `json:"baseline_prompt"`
	EnhancedPrompt     string     `json:"meta_enhanced_prompt"`
	ExpectedOutcomes   []string   `json:"expected_outcomes"`
	EvaluationCriteria []string   `json:"evaluation_criteria"`
	TimeoutMinutes     int        `json:"timeout_minutes"`
	Metadata           Metadata   `json:"metadata"`
}

// Pair selects a scenario at a complexity.
type Pair struct {
	Scenario   Scenario
	Complexity Complexity
}

// AllPairs is every scenario at every complexity.
func AllPairs() []Pair {
	var out []Pair
	for _, s := range Scenarios() {
		for _, c := range Complexities() {
			out = append(out, Pair{s, c})
		}
	}
	return out
}

// Generator builds test cases from a template set.
type Generator struct {
	prompts *template.Set
	title   cases.Caser
}

func NewGenerator(prompts *template.Set) *Generator {
	return &Generator{prompts: prompts, title: cases.Title(language.English)}
}

// TestCase renders the prompts for s at c.
func (g *Generator) TestCase(s Scenario, c Complexity) (TestCase, error) {
	files := ContextFiles(s, c)
	values := ContextValues(s)
	ctx := &template.Context{
		Scenario:   string(s),
		Complexity: string(c),
		Files:      strings.Join(files, ", "),
		Summary:    summarize(values),
		Vars:       promptVars(s),
	}

	baseline, err := g.prompts.Render("baseline/"+string(s), ctx)
	if err != nil {
		return TestCase{}, fmt.Errorf("rendering baseline prompt for %s: %w", s, err)
	}
	enhanced, err := g.prompts.Render("enhanced/"+string(s), ctx)
	if err != nil {
		return TestCase{}, fmt.Errorf("rendering enhanced prompt for %s: %w", s, err)
	}

	return TestCase{
		ID:         uuid.NewString(),
		Scenario:   s,
		Complexity: c,
		Name:       string(s) + "_" + string(c),
		Description: fmt.Sprintf("%s workflow at %s complexity level",
			g.title.String(strings.ReplaceAll(string(s), "_", " ")), c),
		ContextFiles:       files,
		BaselinePrompt:     baseline,
		EnhancedPrompt:     enhanced,
		ExpectedOutcomes:   ExpectedOutcomes(s, c),
		EvaluationCriteria: EvaluationCriteria(),
		TimeoutMinutes:     c.TimeoutMinutes(),
		Metadata: Metadata{
			ScenarioType:    s,
			ComplexityLevel: c,
			ContextSize:     len(files),
		},
	}, nil
}

// TestCases renders a test case per pair, stopping at the first error.
func (g *Generator) TestCases(pairs []Pair) ([]TestCase, error) {
	out := make([]TestCase, 0, len(pairs))
	for _, p := range pairs {
		tc, err := g.TestCase(p.Scenario, p.Complexity)
		if err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, nil
}
