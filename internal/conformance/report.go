package conformance

import (
	"path/filepath"
	"time"

	"github.com/spboyer/promptaudit/internal/framework"
	"github.com/spboyer/promptaudit/internal/reporting"
)

// TypeCounts tallies outcomes for one test type.
type TypeCounts struct {
	Pass  int `json:"pass"`
	Fail  int `json:"fail"`
	Skip  int `json:"skip"`
	Error int `json:"error"`
}

// Total returns the number of cases counted.
func (c TypeCounts) Total() int { return c.Pass + c.Fail + c.Skip + c.Error }

// Report summarizes a conformance run.
type Report struct {
	Timestamp        string                  `json:"timestamp"`
	Root             string                  `json:"project_root"`
	Discovered       map[string]int          `json:"discovered"`
	Total            int                     `json:"total_tests"`
	Passed           int                     `json:"passed_tests"`
	Failed           int                     `json:"failed_tests"`
	Skipped          int                     `json:"skipped_tests"`
	Errors           int                     `json:"error_tests"`
	SuccessRate      float64                 `json:"success_rate"`
	FilesTested      int                     `json:"files_tested"`
	MarkdownFiles    int                     `json:"markdown_files"`
	Coverage         float64                 `json:"coverage_percentage"`
	CommandsTested   int                     `json:"commands_tested"`
	ComponentsTested int                     `json:"components_tested"`
	ByType           map[TestType]TypeCounts `json:"results_by_type"`
	Failures         []TestCase              `json:"sample_failures"`
	Targets          Targets                 `json:"targets"`
	Grade            string                  `json:"grade"`
	Duration         time.Duration           `json:"execution_time_ns"`
	Cases            []TestCase              `json:"test_cases"`
}

// Passing reports whether the run met both coverage and success targets.
func (r *Report) Passing() bool {
	return r.Coverage >= r.Targets.Coverage && r.SuccessRate >= r.Targets.SuccessRate
}

func buildReport(layout framework.Layout, groups map[string][]Subject, cases []TestCase, targets Targets) *Report {
	report := &Report{
		Root:       layout.Root,
		Discovered: make(map[string]int, len(groups)),
		ByType:     make(map[TestType]TypeCounts, len(AllTypes)),
		Targets:    targets,
		Cases:      cases,
		Total:      len(cases),
	}
	for k, v := range groups {
		report.Discovered[k] = len(v)
	}
	for _, t := range AllTypes {
		report.ByType[t] = TypeCounts{}
	}

	tested := make(map[string]bool)
	commands := make(map[string]bool)
	components := make(map[string]bool)
	for _, tc := range cases {
		counts := report.ByType[tc.Type]
		switch tc.Status {
		case StatusPass:
			counts.Pass++
			report.Passed++
		case StatusFail:
			counts.Fail++
			report.Failed++
			if len(report.Failures) < 5 {
				report.Failures = append(report.Failures, tc)
			}
		case StatusSkip:
			counts.Skip++
			report.Skipped++
		case StatusError:
			counts.Error++
			report.Errors++
		}
		report.ByType[tc.Type] = counts

		if tc.File == Multiple {
			continue
		}
		tested[tc.File] = true
		switch tc.FileType {
		case framework.FileCommand:
			commands[tc.File] = true
		case framework.FileComponent:
			components[tc.File] = true
		}
	}
	report.CommandsTested = len(commands)
	report.ComponentsTested = len(components)

	// Coverage is measured over framework markdown plus top-level markdown.
	expected := framework.Glob(layout.ClaudeDir, ".md", true)
	expected = append(expected, framework.Glob(layout.Root, ".md", false)...)
	report.MarkdownFiles = len(expected)
	for _, p := range expected {
		if abs, err := filepath.Abs(p); err == nil && tested[abs] {
			report.FilesTested++
		}
	}
	if report.MarkdownFiles > 0 {
		report.Coverage = float64(report.FilesTested) / float64(report.MarkdownFiles) * 100
	}
	if report.Total > 0 {
		report.SuccessRate = float64(report.Passed) / float64(report.Total) * 100
	}
	report.Grade = Grade(report.Coverage, report.SuccessRate, targets)
	return report
}

// Grade compares coverage and success rate against the targets: A+ meets
// both, A is within 90% of both, B+ within 80%, B otherwise.
func Grade(coverage, success float64, t Targets) string {
	switch {
	case coverage >= t.Coverage && success >= t.SuccessRate:
		return "A+"
	case coverage >= t.Coverage*0.9 && success >= t.SuccessRate*0.9:
		return "A"
	case coverage >= t.Coverage*0.8 && success >= t.SuccessRate*0.8:
		return "B+"
	default:
		return "B"
	}
}

// JUnitSuite converts the report for reporting.WriteJUnitXML.
func (r *Report) JUnitSuite(name string) reporting.Suite {
	ts, _ := time.Parse(time.RFC3339, r.Timestamp)
	suite := reporting.Suite{
		Name:      name,
		Timestamp: ts,
		Duration:  r.Duration,
		Properties: []reporting.JUnitProperty{
			{Name: "grade", Value: r.Grade},
		},
	}
	for _, tc := range r.Cases {
		c := reporting.Case{
			Name:      tc.Name,
			Classname: "conformance." + string(tc.Type),
			Duration:  tc.Duration,
			Outcome:   reporting.Outcome(tc.Status),
			Message:   tc.Message,
		}
		if tc.File != Multiple {
			c.Detail = tc.File
		}
		suite.Cases = append(suite.Cases, c)
	}
	return suite
}
