package review

import (
	"context"
	"fmt"
	"time"

	"github.com/spboyer/promptaudit/internal/framework"
)

// Status is the outcome of a single check.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// DefaultPassThreshold is the overall percentage needed to pass.
const DefaultPassThreshold = 70.0

// CriticalAreas gate the production recommendation.
var CriticalAreas = []string{"UX", "Simplicity", "Documentation", "Installation"}

// CheckResult records one evaluated rule.
type CheckResult struct {
	Check       int    `json:"check"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Status      Status `json:"status"`
	Details     string `json:"details,omitempty"`
}

// CategoryScore aggregates results for one category.
type CategoryScore struct {
	Category string  `json:"category"`
	Passed   int     `json:"passed"`
	Total    int     `json:"total"`
	Percent  float64 `json:"percent"`
}

// Report is the full review outcome.
type Report struct {
	Timestamp      string          `json:"timestamp"`
	Root           string          `json:"project_root"`
	Results        []CheckResult   `json:"results"`
	Passed         int             `json:"checks_passed"`
	Failed         int             `json:"checks_failed"`
	Total          int             `json:"total_checks"`
	Score          float64         `json:"overall_score"`
	Grade          string          `json:"grade"`
	Status         string          `json:"status"`
	Categories     []CategoryScore `json:"categories"`
	Focus          CategoryScore   `json:"ux_simplicity_focus"`
	FocusVerdict   string          `json:"ux_simplicity_verdict"`
	Critical       []CategoryScore `json:"critical_areas"`
	Recommendation string          `json:"recommendation"`
	Notes          []string        `json:"recommendation_notes"`
	Threshold      float64         `json:"pass_threshold"`
	ProductionOK   bool            `json:"production_ready"`
}

// FailedChecks returns up to n failed results in check order. n <= 0
// returns all of them.
func (r *Report) FailedChecks(n int) []CheckResult {
	var out []CheckResult
	for _, c := range r.Results {
		if c.Status != StatusFail {
			continue
		}
		out = append(out, c)
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}

// Reviewer evaluates a RuleSet against a framework tree.
type Reviewer struct {
	layout    framework.Layout
	rules     *RuleSet
	threshold float64
	cache     framework.DocumentCache
	now       func() time.Time
}

// Option configures a Reviewer.
type Option func(*Reviewer)

// WithThreshold sets the overall pass percentage.
func WithThreshold(pct float64) Option {
	return func(r *Reviewer) {
		if pct > 0 {
			r.threshold = pct
		}
	}
}

// WithCache parses sampled documents through c.
func WithCache(c framework.DocumentCache) Option {
	return func(r *Reviewer) { r.cache = c }
}

func New(layout framework.Layout, rules *RuleSet, opts ...Option) *Reviewer {
	r := &Reviewer{
		layout:    layout,
		rules:     rules,
		threshold: DefaultPassThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run evaluates every rule in ID order. Individual checks never abort the
// run; only cancellation does.
func (r *Reviewer) Run(ctx context.Context) (*Report, error) {
	e := newEnv(r.layout, framework.NewLoader(r.cache))
	report := &Report{
		Timestamp: r.now().UTC().Format(time.RFC3339),
		Root:      r.layout.Root,
		Total:     r.rules.Len(),
		Threshold: r.threshold,
	}
	for _, rule := range r.rules.rules {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("review cancelled: %w", err)
		}
		o := rule.eval(e)
		res := CheckResult{
			Check:       rule.ID,
			Category:    rule.Category,
			Description: rule.Description,
			Status:      StatusFail,
			Details:     o.Details,
		}
		if o.Passed {
			res.Status = StatusPass
			report.Passed++
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, res)
	}
	grade(report)
	return report, nil
}

func percent(passed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(passed) / float64(total) * 100
}

func categoryScores(results []CheckResult, include func(string) bool) CategoryScore {
	var s CategoryScore
	for _, c := range results {
		if !include(c.Category) {
			continue
		}
		s.Total++
		if c.Status == StatusPass {
			s.Passed++
		}
	}
	s.Percent = percent(s.Passed, s.Total)
	return s
}

// grade fills in every derived field of report from its results.
func grade(report *Report) {
	report.Score = percent(report.Passed, report.Total)
	report.Grade, report.Status = Grade(report.Score)

	var order []string
	seen := make(map[string]bool)
	for _, c := range report.Results {
		if !seen[c.Category] {
			seen[c.Category] = true
			order = append(order, c.Category)
		}
	}
	for _, cat := range order {
		s := categoryScores(report.Results, func(c string) bool { return c == cat })
		s.Category = cat
		report.Categories = append(report.Categories, s)
	}

	report.Focus = categoryScores(report.Results, func(c string) bool { return c == "UX" || c == "Simplicity" })
	report.Focus.Category = "UX + Simplicity"
	report.FocusVerdict = focusVerdict(report.Focus.Percent)

	minCritical := -1.0
	for _, area := range CriticalAreas {
		if !seen[area] {
			continue
		}
		s := categoryScores(report.Results, func(c string) bool { return c == area })
		s.Category = area
		report.Critical = append(report.Critical, s)
		if minCritical < 0 || s.Percent < minCritical {
			minCritical = s.Percent
		}
	}
	if minCritical < 0 {
		minCritical = 0
	}
	report.Recommendation, report.Notes = Recommend(report.Score, minCritical)
	report.ProductionOK = report.Score >= report.Threshold
}

// Grade maps an overall percentage to a letter grade and status line.
func Grade(score float64) (string, string) {
	switch {
	case score >= 90:
		return "A+ (EXCELLENT)", "PRODUCTION READY - EXCEPTIONAL QUALITY"
	case score >= 80:
		return "A (VERY GOOD)", "PRODUCTION READY - HIGH QUALITY"
	case score >= 70:
		return "B (GOOD)", "PRODUCTION READY - GOOD QUALITY"
	case score >= 60:
		return "C (ACCEPTABLE)", "PRODUCTION READY - NEEDS MINOR IMPROVEMENTS"
	default:
		return "D/F (NEEDS WORK)", "NOT PRODUCTION READY - SIGNIFICANT ISSUES"
	}
}

func focusVerdict(pct float64) string {
	switch {
	case pct >= 90:
		return "EXCEPTIONAL user experience and simplicity"
	case pct >= 80:
		return "EXCELLENT user experience and simplicity"
	case pct >= 70:
		return "GOOD user experience and simplicity"
	default:
		return "User experience needs improvement"
	}
}

// Recommend returns the deployment recommendation for an overall score
// and the weakest critical area.
func Recommend(overall, minCritical float64) (string, []string) {
	switch {
	case overall >= 80 && minCritical >= 70:
		return "READY FOR PRODUCTION DEPLOYMENT", []string{
			"Excellent user experience and simplicity",
			"All critical areas meet standards",
			"Recommended for immediate use",
		}
	case overall >= 70 && minCritical >= 60:
		return "READY FOR PRODUCTION WITH MONITORING", []string{
			"Good overall quality",
			"Minor areas for improvement",
			"Monitor user feedback closely",
		}
	default:
		return "NOT READY FOR PRODUCTION", []string{
			"Significant improvements needed",
			"Focus on failed checks before deployment",
		}
	}
}
