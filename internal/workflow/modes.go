package workflow

import "fmt"

// Mode selects which test cases run and how the run is judged.
type Mode string

const (
	ModeQuick            Mode = "quick"
	ModeComprehensive    Mode = "comprehensive"
	ModeScenarioSpecific Mode = "scenario-specific"
)

func Modes() []Mode {
	return []Mode{ModeQuick, ModeComprehensive, ModeScenarioSpecific}
}

func ParseMode(s string) (Mode, error) {
	for _, m := range Modes() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown validation mode %q (want one of %v)", s, Modes())
}

// HighValuePairs are the workflows the scenario-specific mode runs.
func HighValuePairs() []Pair {
	return []Pair{
		{CodeReview, Moderate},
		{FeatureDevelopment, Complex},
		{BugInvestigation, Moderate},
		{SecurityAnalysis, Complex},
		{PerformanceOptimization, Moderate},
	}
}

// Pairs returns the test cases the mode runs.
func (m Mode) Pairs() []Pair {
	switch m {
	case ModeComprehensive:
		return AllPairs()
	case ModeScenarioSpecific:
		return HighValuePairs()
	default:
		var out []Pair
		for _, s := range CoreScenarios() {
			out = append(out, Pair{s, Simple})
		}
		return out
	}
}

// Criterion is one readiness target.
type Criterion struct {
	Name   string  `json:"name"`
	Target string  `json:"target"`
	Actual float64 `json:"actual"`
	Met    bool    `json:"met"`
}

// ComplexityCheck compares a complexity's results to its targets.
type ComplexityCheck struct {
	Complexity        Complexity `json:"complexity"`
	TargetSuccess     float64    `json:"target_success_rate"`
	TargetImprovement float64    `json:"target_improvement"`
	Met               bool       `json:"met"`
}

// Verdict is the judgement of a run under a mode.
type Verdict struct {
	Mode       Mode                `json:"mode"`
	Passed     bool                `json:"passed"`
	Headline   string              `json:"headline"`
	Detail     string              `json:"detail"`
	Criteria   []Criterion         `json:"criteria,omitempty"`
	TargetsMet int                 `json:"targets_met,omitempty"`
	Assessment string              `json:"assessment,omitempty"`
	Scenarios  map[Scenario]string `json:"scenario_status,omitempty"`
	Complexity []ComplexityCheck   `json:"complexity_checks,omitempty"`
}

// Judge applies the mode's pass criteria to rep.
func Judge(m Mode, rep *Report) Verdict {
	switch m {
	case ModeComprehensive:
		return judgeComprehensive(rep)
	case ModeScenarioSpecific:
		return judgeScenarioSpecific(rep)
	default:
		return judgeQuick(rep)
	}
}

func successRate(rep *Report) float64 {
	if rep.Total == 0 {
		return 0
	}
	return float64(rep.Successful) / float64(rep.Total) * 100
}

func judgeQuick(rep *Report) Verdict {
	v := Verdict{Mode: ModeQuick}
	v.Passed = successRate(rep) >= 80 && (rep.Successful == 0 || rep.Performance.AvgImprovement >= 10)
	if v.Passed {
		v.Headline = "✅ QUICK VALIDATION PASSED"
		v.Detail = "🚀 Core workflow scenarios show strong meta-prompting effectiveness"
	} else {
		v.Headline = "⚠️  QUICK VALIDATION NEEDS ATTENTION"
		v.Detail = "🔧 Core workflow scenarios may need optimization"
	}
	return v
}

// ScenarioStatus grades a scenario breakdown.
func ScenarioStatus(b Breakdown) string {
	switch {
	case b.SuccessRate >= 90 && b.AvgImprovement >= 20:
		return "✅ Excellent performance"
	case b.SuccessRate >= 80 && b.AvgImprovement >= 15:
		return "✅ Good performance"
	case b.SuccessRate >= 70 && b.AvgImprovement >= 10:
		return "⚠️  Moderate performance"
	default:
		return "❌ Needs optimization"
	}
}

// ComplexityTargets returns the success rate and improvement percent a
// complexity level must reach.
func ComplexityTargets(c Complexity) (success, improvement float64) {
	switch c {
	case Simple:
		return 95, 20
	case Moderate:
		return 85, 15
	case Complex:
		return 75, 10
	default:
		return 70, 5
	}
}

// ReadinessCriteria evaluates the five deployment readiness targets.
func ReadinessCriteria(rep *Report) []Criterion {
	perf := rep.Performance
	core := 100.0
	for _, s := range CoreScenarios() {
		core = min(core, rep.Scenarios[s].SuccessRate)
	}
	return []Criterion{
		{Name: "Success Rate", Target: "≥80%", Actual: perf.SuccessRate, Met: perf.SuccessRate >= 80},
		{Name: "Improvement", Target: "≥15%", Actual: perf.AvgImprovement, Met: perf.AvgImprovement >= 15},
		{Name: "Execution Time", Target: "≤10s", Actual: perf.AvgExecutionSeconds, Met: perf.AvgExecutionSeconds <= 10},
		{Name: "Readiness Score", Target: "≥0.7", Actual: rep.Readiness, Met: rep.Readiness >= 0.7},
		{Name: "Core Scenarios", Target: "all ≥80%", Actual: core, Met: core >= 80},
	}
}

func judgeComprehensive(rep *Report) Verdict {
	v := Verdict{
		Mode:      ModeComprehensive,
		Criteria:  ReadinessCriteria(rep),
		Scenarios: map[Scenario]string{},
	}
	for s, b := range rep.Scenarios {
		v.Scenarios[s] = ScenarioStatus(b)
	}
	for _, c := range Complexities() {
		b, ok := rep.Complexities[c]
		if !ok {
			continue
		}
		success, improvement := ComplexityTargets(c)
		v.Complexity = append(v.Complexity, ComplexityCheck{
			Complexity:        c,
			TargetSuccess:     success,
			TargetImprovement: improvement,
			Met:               b.SuccessRate >= success && b.AvgImprovement >= improvement,
		})
	}

	for _, c := range v.Criteria {
		if c.Met {
			v.TargetsMet++
		}
	}
	switch {
	case v.TargetsMet >= 4:
		v.Assessment = "✅ Real-world readiness criteria largely met - framework ready for deployment"
	case v.TargetsMet >= 3:
		v.Assessment = "⚠️  Some readiness criteria missed - optimization recommended"
	default:
		v.Assessment = "❌ Significant readiness issues - extensive optimization required"
	}

	perf := rep.Performance
	v.Passed = rep.Readiness >= 0.7 && perf.SuccessRate >= 80 && perf.AvgImprovement >= 15
	if v.Passed {
		v.Headline = "✅ COMPREHENSIVE VALIDATION PASSED"
		v.Detail = "🚀 Framework demonstrates strong real-world effectiveness"
	} else {
		v.Headline = "❌ COMPREHENSIVE VALIDATION FAILED"
		v.Detail = fmt.Sprintf("⚠️  Framework needs improvements for real-world deployment "+
			"(readiness %.3f, target ≥0.7; success %.1f%%, target ≥80%%; improvement %.1f%%, target ≥15%%)",
			rep.Readiness, perf.SuccessRate, perf.AvgImprovement)
	}
	return v
}

func judgeScenarioSpecific(rep *Report) Verdict {
	v := Verdict{Mode: ModeScenarioSpecific}
	rate := successRate(rep)
	improvement := rep.Performance.AvgImprovement
	switch {
	case rep.Successful == 0:
		v.Headline = "❌ HIGH-VALUE SCENARIOS FAILED"
		v.Detail = "🔥 Framework not ready for critical workflows"
	case rate >= 80 && improvement >= 20:
		v.Passed = true
		v.Headline = "✅ HIGH-VALUE SCENARIOS EXCEL"
		v.Detail = "🚀 Framework demonstrates exceptional performance on critical workflows"
	case rate >= 70 && improvement >= 15:
		v.Passed = true
		v.Headline = "✅ HIGH-VALUE SCENARIOS GOOD"
		v.Detail = "👍 Framework performs well on critical workflows"
	default:
		v.Headline = "⚠️  HIGH-VALUE SCENARIOS NEED IMPROVEMENT"
		v.Detail = "🔧 Framework requires optimization for critical workflows"
	}
	return v
}
