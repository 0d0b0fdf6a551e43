package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/spboyer/promptaudit/internal/metrics"
	"github.com/spboyer/promptaudit/internal/reporting"
)

// FrameworkVersion is recorded in every report.
const FrameworkVersion = "3.0.0"

// Result is the outcome of one test case.
type Result struct {
	TestCase         TestCase    `json:"test_case"`
	Baseline         Response    `json:"baseline_result"`
	Enhanced         Response    `json:"meta_enhanced_result"`
	ExecutionSeconds float64     `json:"execution_time_seconds"`
	Success          bool        `json:"success"`
	Error            string      `json:"error_message,omitempty"`
	Performance      Performance `json:"performance_metrics"`
	Quality          Quality     `json:"quality_assessment"`
	Timestamp        time.Time   `json:"timestamp"`
}

// Breakdown aggregates the results of one scenario or complexity.
type Breakdown struct {
	Total               int     `json:"total_tests"`
	Successful          int     `json:"successful_tests"`
	SuccessRate         float64 `json:"success_rate"`
	AvgImprovement      float64 `json:"avg_improvement_percentage"`
	AvgExecutionSeconds float64 `json:"avg_execution_time_seconds"`
}

// PerformanceSummary covers the successful results of a run.
type PerformanceSummary struct {
	Total               int     `json:"total_workflows"`
	Successful          int     `json:"successful_workflows"`
	SuccessRate         float64 `json:"success_rate"`
	AvgExecutionSeconds float64 `json:"avg_execution_time_seconds"`
	AvgImprovement      float64 `json:"avg_improvement_percentage"`
	AvgTokenOverhead    float64 `json:"avg_token_overhead"`
	P95ExecutionSeconds float64 `json:"p95_execution_time"`
	Error               string  `json:"error,omitempty"`
}

// Report is the outcome of a validation run.
type Report struct {
	ID               string                   `json:"report_id"`
	TestDate         time.Time                `json:"test_date"`
	FrameworkVersion string                   `json:"framework_version"`
	Total            int                      `json:"total_workflows"`
	Successful       int                      `json:"successful_workflows"`
	Failed           int                      `json:"failed_workflows"`
	Scenarios        map[Scenario]Breakdown   `json:"scenario_breakdown"`
	Complexities     map[Complexity]Breakdown `json:"complexity_analysis"`
	Performance      PerformanceSummary       `json:"performance_summary"`
	Results          []Result                 `json:"workflow_results"`
	Recommendations  []string                 `json:"recommendations"`
	Readiness        float64                  `json:"real_world_readiness_score"`
}

// Validator executes test cases and assembles reports.
type Validator struct {
	executor Executor
	now      func() time.Time
	onResult func(done, total int, r Result)
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock sets the time source for timestamps.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

func NewValidator(executor Executor, opts ...Option) *Validator {
	v := &Validator{executor: executor, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// OnResult registers fn to be called after every test case.
func (v *Validator) OnResult(fn func(done, total int, r Result)) {
	v.onResult = fn
}

// Execute runs both prompts of tc under its timeout. An executor error
// marks the result unsuccessful; it is never returned.
func (v *Validator) Execute(ctx context.Context, tc TestCase) Result {
	res := Result{TestCase: tc, Timestamp: v.now()}
	timeout := time.Duration(tc.TimeoutMinutes) * time.Minute
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	baseline, err := v.executor.Execute(ctx, Request{Scenario: tc.Scenario, Prompt: tc.BaselinePrompt, Timeout: timeout})
	var enhanced Response
	if err == nil {
		enhanced, err = v.executor.Execute(ctx, Request{Scenario: tc.Scenario, Prompt: tc.EnhancedPrompt, Timeout: timeout})
	}
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Success = true
		res.Baseline = baseline
		res.Enhanced = enhanced
		res.Quality = AssessQuality(baseline, enhanced)
	}
	res.ExecutionSeconds = time.Since(start).Seconds()
	res.Performance = measurePerformance(res.Baseline, res.Enhanced, res.ExecutionSeconds)
	return res
}

// Run executes every test case in order. Cancelling ctx stops the run.
func (v *Validator) Run(ctx context.Context, cases []TestCase) (*Report, error) {
	results := make([]Result, 0, len(cases))
	for i, tc := range cases {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("workflow validation cancelled: %w", err)
		}
		r := v.Execute(ctx, tc)
		slog.Debug("workflow executed", "name", tc.Name, "success", r.Success, "improvement", r.Quality.ImprovementPercent)
		results = append(results, r)
		if v.onResult != nil {
			v.onResult(i+1, len(cases), r)
		}
	}
	return v.report(results), nil
}

func (v *Validator) report(results []Result) *Report {
	rep := &Report{
		ID:               uuid.NewString(),
		TestDate:         v.now(),
		FrameworkVersion: FrameworkVersion,
		Total:            len(results),
		Scenarios:        map[Scenario]Breakdown{},
		Complexities:     map[Complexity]Breakdown{},
		Results:          results,
	}
	for _, r := range results {
		if r.Success {
			rep.Successful++
		}
	}
	rep.Failed = rep.Total - rep.Successful
	for _, s := range Scenarios() {
		if b, ok := breakdown(results, func(r Result) bool { return r.TestCase.Scenario == s }); ok {
			rep.Scenarios[s] = b
		}
	}
	for _, c := range Complexities() {
		if b, ok := breakdown(results, func(r Result) bool { return r.TestCase.Complexity == c }); ok {
			rep.Complexities[c] = b
		}
	}
	rep.Performance = Summarize(results)
	rep.Recommendations = Recommend(results)
	rep.Readiness = Readiness(results)
	return rep
}

func breakdown(results []Result, match func(Result) bool) (Breakdown, bool) {
	var b Breakdown
	var improvement, seconds []float64
	for _, r := range results {
		if !match(r) {
			continue
		}
		b.Total++
		if r.Success {
			b.Successful++
		}
		improvement = append(improvement, r.Quality.ImprovementPercent)
		seconds = append(seconds, r.ExecutionSeconds)
	}
	if b.Total == 0 {
		return b, false
	}
	b.SuccessRate = metrics.Percent(b.Successful, b.Total)
	b.AvgImprovement = metrics.Mean(improvement)
	b.AvgExecutionSeconds = metrics.Mean(seconds)
	return b, true
}

func successful(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Success {
			out = append(out, r)
		}
	}
	return out
}

// averages returns the mean improvement percent and execution seconds.
func averages(results []Result) (improvement, seconds float64) {
	var imp, secs []float64
	for _, r := range results {
		imp = append(imp, r.Quality.ImprovementPercent)
		secs = append(secs, r.ExecutionSeconds)
	}
	return metrics.Mean(imp), metrics.Mean(secs)
}

// Summarize computes the performance summary over successful results.
func Summarize(results []Result) PerformanceSummary {
	ok := successful(results)
	s := PerformanceSummary{Total: len(results), Successful: len(ok)}
	if len(ok) == 0 {
		s.Error = "No successful results to analyze"
		return s
	}
	var seconds, overhead []float64
	for _, r := range ok {
		seconds = append(seconds, r.ExecutionSeconds)
		overhead = append(overhead, r.Performance.TokenOverhead)
	}
	s.SuccessRate = metrics.Percent(len(ok), len(results))
	s.AvgImprovement, s.AvgExecutionSeconds = averages(ok)
	s.AvgTokenOverhead = metrics.Mean(overhead)
	s.P95ExecutionSeconds = metrics.P95(seconds)
	return s
}

// Recommend grades the run by success rate, improvement and speed.
func Recommend(results []Result) []string {
	ok := successful(results)
	rate := metrics.Percent(len(ok), len(results))

	var recs []string
	switch {
	case rate >= 90:
		recs = append(recs, "✅ EXCELLENT: Framework performs exceptionally well across all workflow scenarios")
	case rate >= 80:
		recs = append(recs, "✅ GOOD: Framework performs well with minor areas for improvement")
	case rate >= 70:
		recs = append(recs, "⚠️ MODERATE: Framework shows promise but needs optimization in some areas")
	default:
		recs = append(recs, "❌ POOR: Framework requires significant improvements before production deployment")
	}
	if len(ok) == 0 {
		return recs
	}

	improvement, seconds := averages(ok)
	switch {
	case improvement > 25:
		recs = append(recs, "🚀 SIGNIFICANT IMPROVEMENT: Meta-enhanced prompts show substantial quality gains")
	case improvement > 15:
		recs = append(recs, "📈 GOOD IMPROVEMENT: Meta-enhanced prompts provide meaningful quality benefits")
	case improvement > 5:
		recs = append(recs, "⚡ MODERATE IMPROVEMENT: Meta-enhanced prompts offer some quality benefits")
	default:
		recs = append(recs, "🔧 LIMITED IMPROVEMENT: Meta-enhanced prompts need optimization")
	}
	switch {
	case seconds > 10:
		recs = append(recs, "⚠️ PERFORMANCE: Execution time is high - consider optimization")
	case seconds < 5:
		recs = append(recs, "✅ PERFORMANCE: Execution time is excellent")
	}
	return recs
}

// Readiness weighs success rate (0.4), improvement against a 30% target
// (0.4) and execution time against 20 seconds (0.2).
func Readiness(results []Result) float64 {
	ok := successful(results)
	if len(ok) == 0 {
		return 0
	}
	improvement, seconds := averages(ok)
	success := float64(len(ok)) / float64(len(results))
	return success*0.4 + min(improvement/30, 1)*0.4 + max(0, 1-seconds/20)*0.2
}

func ReportFileName(t time.Time) string {
	return "workflow_validation_report_" + t.Format("20060102_150405") + ".json"
}

// Save writes rep under dir and returns the path.
func Save(rep *Report, dir string) (string, error) {
	path := filepath.Join(dir, ReportFileName(rep.TestDate))
	if err := reporting.WriteJSON(path, rep); err != nil {
		return "", err
	}
	return path, nil
}
