package benchmark

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spboyer/promptaudit/internal/metrics"
	"github.com/spboyer/promptaudit/internal/reporting"
	"github.com/spboyer/promptaudit/internal/statistics"
)

// FrameworkVersion is recorded in every report.
const FrameworkVersion = "3.0.0"

// Performance targets applied to a whole run.
const (
	TargetP95Ms         = 200.0
	TargetAvgMs         = 100.0
	TargetEfficiency    = 0.7
	ExcellentEfficiency = 0.8
	TargetSuccessRate   = 95.0
	TargetCategoryMs    = 50.0
)

// MinTrendResults is the fewest results Trends will analyze.
const MinTrendResults = 10

// Report is the outcome of a benchmark run.
type Report struct {
	ID               string            `json:"report_id"`
	TestDate         time.Time         `json:"test_date"`
	FrameworkVersion string            `json:"framework_version"`
	Total            int               `json:"total_benchmarks"`
	Successful       int               `json:"successful_benchmarks"`
	Failed           int               `json:"failed_benchmarks"`
	Summary          Summary           `json:"performance_summary"`
	Results          []Result          `json:"benchmark_results"`
	Recommendations  []string          `json:"optimization_recommendations"`
	Trends           Trend             `json:"trend_analysis"`
	Targets          []TargetCheck     `json:"target_checks"`
	Dependencies     *DependencyReport `json:"dependency_analysis,omitempty"`
	Skipped          []string          `json:"skipped_suites"`
}

func (rep *Report) finish() {
	rep.Summary = Summarize(rep.Results)
	rep.Total = rep.Summary.Total
	rep.Successful = rep.Summary.Successful
	rep.Failed = rep.Summary.Failed
	rep.Recommendations = Recommend(rep.Summary)
	rep.Trends = Trends(rep.Results)
	rep.Targets = CheckTargets(Suites(), rep.Results)
}

// Summary aggregates results.
type Summary struct {
	Total         int                           `json:"total_benchmarks"`
	Successful    int                           `json:"successful_benchmarks"`
	Failed        int                           `json:"failed_benchmarks"`
	SuccessRate   float64                       `json:"success_rate"`
	Execution     metrics.Summary               `json:"execution_time_ms"`
	ExecutionCI   statistics.ConfidenceInterval `json:"execution_time_ci"`
	AvgTokenCount float64                       `json:"avg_token_count"`
	AvgEfficiency float64                       `json:"avg_efficiency_score"`
	TargetsMet    TargetsMet                    `json:"performance_targets_met"`
	Categories    []CategorySummary             `json:"categories"`
}

type TargetsMet struct {
	ExecutionTime bool `json:"execution_time_target"`
	Efficiency    bool `json:"efficiency_target"`
}

type CategorySummary struct {
	Category      Category `json:"category"`
	Count         int      `json:"count"`
	Successful    int      `json:"successful"`
	AvgExecution  float64  `json:"avg_execution_time_ms"`
	AvgEfficiency float64  `json:"avg_efficiency_score"`
}

// Summarize computes run-wide statistics over successful results. Token
// counts of zero are left out of the token average.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results), Categories: []CategorySummary{}}
	if len(results) == 0 {
		return s
	}

	var times, toks, eff []float64
	for _, r := range results {
		if !r.Success {
			continue
		}
		s.Successful++
		times = append(times, r.ExecutionMs)
		eff = append(eff, r.EfficiencyScore)
		if r.TokenCount > 0 {
			toks = append(toks, float64(r.TokenCount))
		}
	}
	s.Failed = s.Total - s.Successful
	s.SuccessRate = metrics.Percent(s.Successful, s.Total)
	s.Execution = metrics.Describe(times)
	s.ExecutionCI = statistics.BootstrapCI(times, 0.95)
	s.AvgTokenCount = metrics.Mean(toks)
	s.AvgEfficiency = metrics.Mean(eff)
	if len(times) > 0 {
		s.TargetsMet.ExecutionTime = s.Execution.P95 <= TargetP95Ms
	}
	if len(eff) > 0 {
		s.TargetsMet.Efficiency = s.AvgEfficiency >= TargetEfficiency
	}

	for _, cat := range Categories() {
		var c CategorySummary
		var ct, ce []float64
		for _, r := range results {
			if r.Category != cat {
				continue
			}
			c.Count++
			if r.Success {
				c.Successful++
				ct = append(ct, r.ExecutionMs)
				ce = append(ce, r.EfficiencyScore)
			}
		}
		if c.Count == 0 {
			continue
		}
		c.Category = cat
		c.AvgExecution = metrics.Mean(ct)
		c.AvgEfficiency = metrics.Mean(ce)
		s.Categories = append(s.Categories, c)
	}
	return s
}

// Recommend turns a summary into optimization advice.
func Recommend(s Summary) []string {
	if s.Total == 0 {
		return []string{"No benchmark results available for analysis"}
	}
	var out []string
	if s.Successful > 0 {
		if s.Execution.P95 > TargetP95Ms {
			out = append(out, fmt.Sprintf("⚠️ PERFORMANCE: P95 execution time (%.1fms) exceeds %.0fms target - optimize critical paths", s.Execution.P95, TargetP95Ms))
		}
		if s.Execution.Mean > TargetAvgMs {
			out = append(out, fmt.Sprintf("🔧 OPTIMIZATION: Average execution time (%.1fms) high - consider caching and parallel processing", s.Execution.Mean))
		}
		switch {
		case s.AvgEfficiency < TargetEfficiency:
			out = append(out, fmt.Sprintf("📝 TOKEN EFFICIENCY: Average efficiency (%.2f) below target - optimize prompt structure", s.AvgEfficiency))
		case s.AvgEfficiency >= ExcellentEfficiency:
			out = append(out, fmt.Sprintf("✅ TOKEN EFFICIENCY: Excellent efficiency (%.2f) - maintain current approach", s.AvgEfficiency))
		}
	}
	if s.SuccessRate < TargetSuccessRate {
		out = append(out, fmt.Sprintf("🔥 RELIABILITY: Success rate (%.1f%%) below 95%% - improve error handling", s.SuccessRate))
	}
	for _, c := range s.Categories {
		if c.Successful > 0 && c.AvgExecution > TargetCategoryMs {
			out = append(out, fmt.Sprintf("⚡ %s: Optimize %s operations (%.1fms average)", strings.ToUpper(string(c.Category)), c.Category, c.AvgExecution))
		}
	}
	if len(out) == 0 {
		return []string{"✅ All performance metrics within acceptable ranges"}
	}
	return out
}

// Trend compares the first and second halves of a run.
type Trend struct {
	Sufficient             bool    `json:"sufficient_data"`
	Note                   string  `json:"note,omitempty"`
	Direction              string  `json:"direction,omitempty"`
	MagnitudePercent       float64 `json:"magnitude_percent"`
	FirstHalfAvg           float64 `json:"first_half_avg"`
	SecondHalfAvg          float64 `json:"second_half_avg"`
	CoefficientOfVariation float64 `json:"coefficient_of_variation"`
}

// Trends orders results by timestamp and compares the mean successful
// execution time of the two halves.
func Trends(results []Result) Trend {
	if len(results) < MinTrendResults {
		return Trend{Note: "Insufficient data for trend analysis"}
	}
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b Result) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	half := len(sorted) / 2
	first := successTimes(sorted[:half])
	second := successTimes(sorted[half:])

	t := Trend{
		Sufficient:             true,
		FirstHalfAvg:           metrics.Mean(first),
		SecondHalfAvg:          metrics.Mean(second),
		CoefficientOfVariation: metrics.CoefficientOfVariation(successTimes(sorted)),
	}
	switch {
	case t.SecondHalfAvg < t.FirstHalfAvg:
		t.Direction = "improving"
	case t.SecondHalfAvg > t.FirstHalfAvg:
		t.Direction = "declining"
	default:
		t.Direction = "stable"
	}
	if t.FirstHalfAvg > 0 {
		d := t.SecondHalfAvg - t.FirstHalfAvg
		if d < 0 {
			d = -d
		}
		t.MagnitudePercent = d / t.FirstHalfAvg * 100
	}
	return t
}

// TargetCheck compares one benchmark against one of its configured
// targets.
type TargetCheck struct {
	Benchmark string  `json:"benchmark_name"`
	Metric    Metric  `json:"metric"`
	Target    float64 `json:"target"`
	Actual    float64 `json:"actual"`
	Met       bool    `json:"met"`
}

// CheckTargets evaluates the per-benchmark targets of suites against
// results. Benchmarks without results are left out.
func CheckTargets(suites []Suite, results []Result) []TargetCheck {
	byName := map[string][]Result{}
	for _, r := range results {
		byName[r.Name] = append(byName[r.Name], r)
	}
	out := []TargetCheck{}
	for _, s := range suites {
		for _, cfg := range s.Benchmarks {
			rs := byName[cfg.Name]
			if len(rs) == 0 {
				continue
			}
			keys := make([]Metric, 0, len(cfg.Targets))
			for m := range cfg.Targets {
				keys = append(keys, m)
			}
			slices.SortFunc(keys, func(a, b Metric) int { return cmp.Compare(a, b) })
			for _, m := range keys {
				out = append(out, checkTarget(cfg.Name, m, cfg.Targets[m], rs))
			}
		}
	}
	return out
}

func checkTarget(name string, m Metric, target float64, rs []Result) TargetCheck {
	var vals []float64
	ok := 0
	for _, r := range rs {
		if r.Success {
			ok++
		}
	}
	for _, r := range rs {
		if !r.Success {
			continue
		}
		switch m {
		case MetricExecutionTime, MetricLatency:
			vals = append(vals, r.ExecutionMs)
		case MetricTokenCount:
			vals = append(vals, float64(r.TokenCount))
		case MetricTokenEfficiency:
			vals = append(vals, r.EfficiencyScore)
		case MetricMemoryUsage:
			vals = append(vals, r.MemoryMB)
		case MetricThroughput:
			vals = append(vals, r.Throughput)
		}
	}
	c := TargetCheck{Benchmark: name, Metric: m, Target: target}
	switch m {
	case MetricSuccessRate:
		c.Actual = float64(ok) / float64(len(rs))
		c.Met = c.Actual >= target
	case MetricTokenEfficiency, MetricThroughput:
		c.Actual = metrics.Mean(vals)
		c.Met = len(vals) > 0 && c.Actual >= target
	default:
		c.Actual = metrics.Mean(vals)
		c.Met = len(vals) > 0 && c.Actual <= target
	}
	return c
}

// Comparison is the shift in execution time between two runs.
type Comparison struct {
	BaselineID  string                        `json:"baseline_report_id"`
	CurrentID   string                        `json:"current_report_id"`
	BaselineAvg float64                       `json:"baseline_avg_ms"`
	CurrentAvg  float64                       `json:"current_avg_ms"`
	Shift       statistics.ConfidenceInterval `json:"shift_ms"`
	Significant bool                          `json:"significant"`
	Verdict     string                        `json:"verdict"`
}

// Compare bootstraps the change in mean execution time from baseline to
// current. A significant negative shift is "faster".
func Compare(baseline, current *Report, seed int64) Comparison {
	b := successTimes(baseline.Results)
	c := successTimes(current.Results)
	ci := statistics.ShiftCI(b, c, 0.95, seed)
	out := Comparison{
		BaselineID:  baseline.ID,
		CurrentID:   current.ID,
		BaselineAvg: metrics.Mean(b),
		CurrentAvg:  metrics.Mean(c),
		Shift:       ci,
		Significant: statistics.IsSignificant(ci),
		Verdict:     "unchanged",
	}
	if out.Significant {
		out.Verdict = "slower"
		if ci.Upper < 0 {
			out.Verdict = "faster"
		}
	}
	return out
}

// ReportFileName is the timestamped file name a report is saved under.
func ReportFileName(t time.Time) string {
	return "performance_benchmark_report_" + t.Format("20060102_150405") + ".json"
}

// Save writes rep under dir and returns the path.
func Save(rep *Report, dir string) (string, error) {
	path := filepath.Join(dir, ReportFileName(rep.TestDate))
	if err := reporting.WriteJSON(path, rep); err != nil {
		return "", err
	}
	return path, nil
}

func successTimes(results []Result) []float64 {
	var out []float64
	for _, r := range results {
		if r.Success {
			out = append(out, r.ExecutionMs)
		}
	}
	return out
}
