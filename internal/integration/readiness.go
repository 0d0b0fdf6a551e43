package integration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spboyer/promptaudit/internal/reporting"
)

// MaxReadinessScore is the sum of the structural (3), functional (2),
// quality (3) and integration (3) scores.
const MaxReadinessScore = 11

// ReadyScore is the minimum total for production readiness.
const ReadyScore = 8

func score(checks ...bool) int {
	n := 0
	for _, ok := range checks {
		if ok {
			n++
		}
	}
	return n
}

// AssessReadiness scores the earlier phases out of MaxReadinessScore.
func AssessReadiness(_ context.Context, _ Env, r Report) Report {
	var a Readiness

	a.Structural = StructuralReadiness{
		ConsolidationComplete: r.Structure.PatternConsolidation,
		TargetMet:             r.Structure.Comparison.ReductionAchieved,
		DuplicationEliminated: r.Modules.Consolidation.PromptEngPatternsEmpty,
	}
	a.Structural.Score = score(a.Structural.ConsolidationComplete, a.Structural.TargetMet, a.Structural.DuplicationEliminated)

	a.Functional = FunctionalReadiness{
		CommandsPreserved:    r.Commands.Summary.PreservationRate >= 90,
		CommandAccessibility: r.Commands.Summary.PreservationRate,
		ModuleAccessibility:  r.Modules.Summary.AccessibilityRate >= 90,
	}
	a.Functional.Score = score(a.Functional.CommandsPreserved, a.Functional.ModuleAccessibility)

	a.Quality = QualityReadiness{
		GatesFunctional: r.QualityGates.Summary.Overall,
		TDDWorking:      r.QualityGates.Summary.TDD,
		Enforcement:     r.QualityGates.Summary.Enforcement,
	}
	a.Quality.Score = score(a.Quality.GatesFunctional, a.Quality.TDDWorking, a.Quality.Enforcement)

	a.Integration = IntegrationReadiness{
		AtomicCommits: r.Atomic.Summary.Overall,
		Git:           r.Atomic.Summary.GitWorking,
		Rollback:      r.Atomic.Summary.RollbackAvailable,
	}
	a.Integration.Score = score(a.Integration.AtomicCommits, a.Integration.Git, a.Integration.Rollback)

	total := a.Structural.Score + a.Functional.Score + a.Quality.Score + a.Integration.Score
	a.Overall = OverallAssessment{
		Total:          total,
		Max:            MaxReadinessScore,
		Percent:        percent(total, MaxReadinessScore),
		Ready:          total >= ReadyScore,
		Level:          ReadinessLevel(total, MaxReadinessScore),
		Blockers:       blockers(a),
		Recommendation: ReadinessRecommendation(total, MaxReadinessScore),
	}
	r.Readiness = a
	return r
}

func blockers(a Readiness) []string {
	out := []string{}
	if a.Structural.Score < 3 {
		out = append(out, "Structural consolidation incomplete")
	}
	if a.Functional.Score < 2 {
		out = append(out, "Functional preservation issues")
	}
	if a.Quality.Score < 2 {
		out = append(out, "Quality gates not fully functional")
	}
	if a.Integration.Score < 2 {
		out = append(out, "Integration issues with atomic commits")
	}
	return out
}

// ReadinessLevel buckets score/max at 90, 75, 60 and 40 percent.
func ReadinessLevel(score, outOf int) string {
	pct := percent(score, outOf)
	switch {
	case pct >= 90:
		return "PRODUCTION_READY"
	case pct >= 75:
		return "READY_WITH_MINOR_ISSUES"
	case pct >= 60:
		return "MOSTLY_READY"
	case pct >= 40:
		return "SIGNIFICANT_WORK_NEEDED"
	default:
		return "NOT_READY"
	}
}

// ReadinessRecommendation returns the advice matching ReadinessLevel.
func ReadinessRecommendation(score, outOf int) string {
	pct := percent(score, outOf)
	switch {
	case pct >= 90:
		return "Framework is production ready. Proceed with confidence."
	case pct >= 75:
		return "Framework is ready for production with minor cleanup needed."
	case pct >= 60:
		return "Framework is mostly ready. Address remaining issues before production."
	case pct >= 40:
		return "Significant work needed before production deployment."
	default:
		return "Framework not ready for production. Major remediation required."
	}
}

// Summarize derives the findings and recommendations from a report whose
// phases have all run.
func Summarize(r Report, elapsed time.Duration) Summary {
	var s Summary
	s.Execution = ExecutionSummary{
		Phases:            len(Phases),
		CommandsTested:    len(FunctionalCommands) + len(NonFunctionalCommands),
		ModulesTested:     len(QualityModules),
		IntegrationPoints: r.Atomic.Framework.Points,
		Measurements:      4,
		DurationMinutes:   elapsed.Minutes(),
	}

	var reduction float64
	if p := r.Structure.Comparison.ImprovementPercent; p != nil {
		reduction = *p
	}
	f := KeyFindings{
		StructuralConsolidation: r.Structure.PatternConsolidation,
		DirectoryReduction:      reduction,
		PreservationRate:        r.Commands.Summary.PreservationRate,
		QualityAccessibility:    r.Modules.Summary.AccessibilityRate,
		QualitySystemFunctional: r.QualityGates.Summary.Overall,
		AtomicIntegrated:        r.Atomic.Summary.Overall,
		PerformanceImproved:     r.Performance.Summary.Overall,
	}
	s.KeyFindings = f

	s.Migration = MigrationValidation{
		DuplicationEliminated:  f.StructuralConsolidation,
		DirectoryChaosResolved: f.DirectoryReduction > 30,
		FunctionalityPreserved: f.PreservationRate >= 80,
		QualityIntact:          f.QualityAccessibility >= 90,
	}
	m := s.Migration
	s.Migration.ObjectivesMet = m.DuplicationEliminated && m.DirectoryChaosResolved && m.FunctionalityPreserved && m.QualityIntact

	s.Impact = PerformanceImpact{
		ComplexityReduced:  f.DirectoryReduction,
		AccessOptimized:    r.Performance.Summary.AccessOptimized,
		ResolutionImproved: r.Performance.Summary.ResolutionImproved,
		LoadTimeEstimate:   r.Performance.LoadTime.EstimatedImprovement,
		Overall:            f.PerformanceImproved,
	}
	s.Recommendations = recommendations(f)
	s.NextSteps = nextSteps(r)
	return s
}

func recommendations(f KeyFindings) []string {
	out := []string{}
	if f.PreservationRate < 90 {
		out = append(out, "Address remaining command functionality issues")
	}
	if f.QualityAccessibility < 100 {
		out = append(out, "Investigate quality module accessibility issues")
	}
	if !f.QualitySystemFunctional {
		out = append(out, "Fix quality gates functionality before production")
	}
	if !f.AtomicIntegrated {
		out = append(out, "Complete atomic commits integration")
	}
	if f.DirectoryReduction < 35 {
		out = append(out, "Consider additional directory consolidation")
	}
	if !f.PerformanceImproved {
		out = append(out, "Investigate performance optimization opportunities")
	}
	if f.StructuralConsolidation {
		out = append(out, "Structural consolidation successful - maintain architecture")
	}
	if f.PreservationRate >= 90 {
		out = append(out, "Command functionality well preserved - proceed with confidence")
	}
	return out
}

func nextSteps(r Report) []string {
	out := []string{}
	for _, b := range r.Readiness.Overall.Blockers {
		out = append(out, "Resolve blocker: "+b)
	}
	if n := r.References.Summary.Broken; n > 0 {
		out = append(out, fmt.Sprintf("Fix %d broken references", n))
	}
	if r.Readiness.Overall.Ready {
		out = append(out, "Production deployment preparation")
	} else {
		out = append(out, "Re-run integration testing after remediation")
	}
	return out
}

// Remediation report markers delimiting the generated section.
const (
	RemediationFile        = "REMEDIATION_REPORT_V2.md"
	RemediationStartMarker = "### Agent 9: Integration Tester"
	RemediationEndMarker   = "### Agent 10:"
)

// RemediationSection renders the completion section for the remediation
// report from the measured results.
func RemediationSection(r Report, completed time.Time) string {
	ready := r.Readiness.Overall
	status := "COMPLETE"
	if !ready.Ready {
		status = "NEEDS ATTENTION"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", RemediationStartMarker, reporting.Check(ready.Ready), status)
	fmt.Fprintf(&b, "**Mission**: %s  \n", Mission)
	fmt.Fprintf(&b, "**Status**: %s (%s)  \n", status, ready.Level)
	fmt.Fprintf(&b, "**Completed**: %s\n\n", completed.Format(time.DateOnly))

	b.WriteString("**Progress Checkpoints**:\n")
	checkpoints := []struct {
		name string
		ok   bool
	}{
		{"Post-migration structure validation", r.Structure.PatternConsolidation},
		{fmt.Sprintf("Command integration testing (%d commands)", len(FunctionalCommands)+len(NonFunctionalCommands)), r.Commands.Summary.PreservationRate >= 90},
		{fmt.Sprintf("Module accessibility verification (%d quality modules)", len(QualityModules)), r.Modules.Summary.AccessibilityRate >= 90},
		{"Quality gates and TDD functionality testing", r.QualityGates.Summary.Overall},
		{"Atomic commits integration verification", r.Atomic.Summary.Overall},
		{"Performance improvement measurement", r.Performance.Summary.Overall},
		{"Reference integrity validation", r.References.Summary.Acceptable},
		{"Production readiness assessment", ready.Ready},
	}
	for _, c := range checkpoints {
		fmt.Fprintf(&b, "- [x] %s %s\n", c.name, reporting.Check(c.ok))
	}

	c := r.Commands.Summary
	m := r.Modules.Summary
	refs := r.References.Summary
	b.WriteString("\n**Integration Results**:\n")
	fmt.Fprintf(&b, "- **Structure**: %d directories (target %d), pattern consolidation %s\n",
		r.Structure.DirectoryCount, TargetDirectories, reporting.Check(r.Structure.PatternConsolidation))
	fmt.Fprintf(&b, "- **Commands**: %d/%d functional commands working (%.1f%%), %d/%d previously broken commands found\n",
		c.FunctionalWorking, c.TotalFunctional, c.PreservationRate, c.NonFunctionalImproved, c.TotalNonFunctional)
	fmt.Fprintf(&b, "- **Quality Modules**: %d/%d accessible (%.1f%%)\n", m.Accessible, m.Total, m.AccessibilityRate)
	fmt.Fprintf(&b, "- **Quality System**: %s\n", reporting.Check(r.QualityGates.Summary.Overall))
	fmt.Fprintf(&b, "- **Atomic Commits**: integration %s, rollback %s\n",
		reporting.Check(r.Atomic.Summary.Overall), reporting.Check(r.Atomic.Summary.RollbackAvailable))
	fmt.Fprintf(&b, "- **Performance**: %.1f%% directory reduction, ~%d%% estimated load-time improvement\n",
		r.Performance.Directories.ReductionPercent, r.Performance.LoadTime.EstimatedImprovement)
	fmt.Fprintf(&b, "- **Reference Integrity**: %.1f%% (%d broken of %d)\n", refs.IntegrityPercent, refs.Broken, refs.Total)
	fmt.Fprintf(&b, "- **Production Readiness**: %s (%d/%d)\n", ready.Level, ready.Total, ready.Max)

	if len(ready.Blockers) > 0 {
		b.WriteString("\n**Remaining Blockers**:\n")
		for _, bl := range ready.Blockers {
			fmt.Fprintf(&b, "- %s\n", bl)
		}
	}
	fmt.Fprintf(&b, "\n**Recommendation**: %s\n\n---", ready.Recommendation)
	return b.String()
}
