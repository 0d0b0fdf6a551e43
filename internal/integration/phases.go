package integration

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spboyer/promptaudit/internal/framework"
)

const (
	// TargetDirectories is the directory count the migration aimed for.
	TargetDirectories = 35
	// BaselineDirectories is the directory count before the migration.
	BaselineDirectories = 58
	// BaselineBrokenPercent is the broken-reference rate measured before
	// the migration.
	BaselineBrokenPercent = 9.2
	// PatternFilesBefore estimates the duplicated pattern files that
	// existed before consolidation.
	PatternFilesBefore = 10
)

// Env is what every phase may read.
type Env struct {
	Layout framework.Layout
	Git    Git
}

// Phase fills one section of the report.
type Phase func(ctx context.Context, env Env, r Report) Report

// NamedPhase pairs a phase with its display name.
type NamedPhase struct {
	Name string
	Run  Phase
}

// Phases run in order; later phases read the sections of earlier ones.
var Phases = []NamedPhase{
	{"Post-Migration Structure Validation", ValidateStructure},
	{"Command Integration Testing", TestCommands},
	{"Module Accessibility Testing", TestModules},
	{"Quality Gates & TDD Testing", TestQualityGates},
	{"Atomic Commits Integration Testing", TestAtomicCommits},
	{"Performance Measurement", MeasurePerformance},
	{"Reference Integrity Validation", ValidateReferences},
	{"Production Readiness Assessment", AssessReadiness},
}

// countDirs counts every directory below dir. A missing dir counts zero.
func countDirs(dir string) (int, error) {
	n := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != dir {
			n++
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	return n, err
}

func dirEmpty(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err != nil || len(entries) == 0
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// readAll reads files, logging and skipping the unreadable ones.
func readAll(files []string) map[string]string {
	out := make(map[string]string, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			slog.Warn("skipping unreadable file", "path", f, "error", err)
			continue
		}
		out[f] = string(data)
	}
	return out
}

// ValidateStructure counts directories and markdown files and checks the
// critical paths and pattern consolidation.
func ValidateStructure(_ context.Context, env Env, r Report) Report {
	l := env.Layout
	s := StructureResult{CriticalPaths: map[string]bool{
		"commands_dir":   framework.IsDir(l.Commands()),
		"modules_dir":    framework.IsDir(l.Modules()),
		"quality_dir":    framework.IsDir(l.Patterns()),
		"system_dir":     framework.IsDir(l.System()),
		"prompt_eng_dir": framework.IsDir(l.PromptEng()),
	}}

	dirs, err := countDirs(l.ClaudeDir)
	if err != nil {
		s.Error = err.Error()
	}
	s.DirectoryCount = dirs
	s.FileCount = len(framework.Glob(l.ClaudeDir, ".md", true))
	s.FrameworkExists = framework.IsDir(l.ClaudeDir)
	s.PatternConsolidation = framework.IsDir(l.Patterns()) && dirEmpty(l.PromptEngPatterns())
	s.Comparison = StructureComparison{
		TargetDirectories: TargetDirectories,
		ActualDirectories: dirs,
		ReductionAchieved: dirs <= TargetDirectories,
	}
	if dirs > 0 {
		improvement := float64(BaselineDirectories-dirs) / BaselineDirectories * 100
		s.Comparison.ImprovementPercent = &improvement
	}
	slog.Debug("structure validated", "directories", dirs, "files", s.FileCount, "consolidated", s.PatternConsolidation)
	r.Structure = s
	return r
}

func commandSearchDirs(l framework.Layout) []string {
	return []string{
		l.Commands(),
		filepath.Join(l.PromptEng(), "commands", "setup"),
		filepath.Join(l.PromptEng(), "commands", "meta"),
	}
}

// TestCommands checks the functional commands in commands/ and searches
// for the previously non-functional ones.
func TestCommands(_ context.Context, env Env, r Report) Report {
	l := env.Layout
	res := CommandResults{
		Functional:    make(map[string]CommandResult, len(FunctionalCommands)),
		NonFunctional: make(map[string]CommandResult, len(NonFunctionalCommands)),
	}

	working := 0
	for _, name := range FunctionalCommands {
		cr := TestCommandFile(filepath.Join(l.Commands(), name+".md"), name)
		res.Functional[name] = cr
		if cr.Accessible && cr.HasStructure {
			working++
		}
	}

	improved := 0
	for _, name := range NonFunctionalCommands {
		cr := CommandResult{
			Status: CommandFileNotFound,
			Path:   "NOT_FOUND",
			Issues: []string{"Command file not found in any expected location"},
		}
		for _, dir := range commandSearchDirs(l) {
			if p := filepath.Join(dir, name+".md"); framework.Exists(p) {
				cr = TestCommandFile(p, name)
				break
			}
		}
		res.NonFunctional[name] = cr
		if cr.Accessible {
			improved++
		}
	}

	res.Summary = CommandSummary{
		FunctionalWorking:     working,
		TotalFunctional:       len(FunctionalCommands),
		PreservationRate:      percent(working, len(FunctionalCommands)),
		NonFunctionalImproved: improved,
		TotalNonFunctional:    len(NonFunctionalCommands),
		ImprovementRate:       percent(improved, len(NonFunctionalCommands)),
	}
	slog.Debug("commands tested", "working", working, "improved", improved)
	r.Commands = res
	return r
}

// TestModules checks every quality module and each pattern module in the
// consolidated patterns directory.
func TestModules(_ context.Context, env Env, r Report) Report {
	l := env.Layout
	res := ModuleResults{
		Quality:  make(map[string]ModuleResult, len(QualityModules)),
		Patterns: make(map[string]ModuleResult),
	}

	accessible := 0
	for _, m := range QualityModules {
		mr := TestModuleFile(filepath.Join(l.Quality(), m+".md"), "quality")
		res.Quality[m] = mr
		if mr.Accessible {
			accessible++
		}
	}

	patterns := framework.Glob(l.Patterns(), ".md", true)
	for _, p := range patterns {
		rel, err := filepath.Rel(l.Patterns(), p)
		if err != nil {
			rel = p
		}
		res.Patterns[filepath.ToSlash(rel)] = TestModuleFile(p, "pattern")
	}

	res.Consolidation = Consolidation{
		ModulesPatternsExists:  framework.IsDir(l.Patterns()),
		PromptEngPatternsEmpty: len(framework.Glob(l.PromptEngPatterns(), ".md", true)) == 0,
		PatternFiles:           len(patterns),
	}
	res.Summary = ModuleSummary{
		Accessible:           accessible,
		Total:                len(QualityModules),
		AccessibilityRate:    percent(accessible, len(QualityModules)),
		PatternConsolidation: res.Consolidation.ModulesPatternsExists && res.Consolidation.PromptEngPatternsEmpty,
	}
	r.Modules = res
	return r
}

// TestQualityGates inspects the TDD and universal quality gate modules and
// scans all quality modules for enforcement and cross-references.
func TestQualityGates(_ context.Context, env Env, r Report) Report {
	l := env.Layout
	files := framework.Glob(l.Quality(), ".md", false)
	contents := readAll(files)

	q := QualityGateResults{
		TDD:         testTDD(filepath.Join(l.Quality(), "tdd.md")),
		Gates:       testGates(filepath.Join(l.Quality(), "universal-quality-gates.md")),
		Enforcement: scanEnforcement(files, contents),
		Integration: scanGateIntegration(files, contents),
	}
	q.Summary = GateSummary{
		TDD:         q.TDD.Functional,
		Gates:       q.Gates.Functional,
		Enforcement: q.Enforcement.Working > 0,
		Integration: q.Integration.Working,
	}
	q.Summary.Overall = q.Summary.TDD && q.Summary.Gates && q.Summary.Enforcement && q.Summary.Integration
	r.QualityGates = q
	return r
}

func testTDD(path string) TDDResult {
	res := TDDResult{Issues: []string{}}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		res.Issues = append(res.Issues, "TDD module not found")
		return res
	case err != nil:
		res.Issues = append(res.Issues, "Error testing TDD module: "+err.Error())
		return res
	}
	res.Accessible = true
	content := string(data)
	lower := strings.ToLower(content)
	res.HasCycle = countContained(content, []string{"RED", "GREEN", "REFACTOR", "test", "fail", "pass"}) >= 4
	res.HasEnforcement = strings.Contains(content, "MANDATORY") || strings.Contains(lower, "enforcement")
	res.HasBlockingRules = strings.Contains(content, "BLOCK") || strings.Contains(lower, "blocking")
	res.Functional = res.HasCycle && res.HasEnforcement
	return res
}

func testGates(path string) GatesResult {
	res := GatesResult{Issues: []string{}}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		res.Issues = append(res.Issues, "Quality gates module not found")
		return res
	case err != nil:
		res.Issues = append(res.Issues, "Error testing quality gates: "+err.Error())
		return res
	}
	res.Accessible = true
	content := string(data)
	lower := strings.ToLower(content)
	res.HasDefinition = countContained(lower, []string{"gate", "quality", "standard", "threshold", "criteria"}) >= 3
	res.HasEnforcementRules = strings.Contains(lower, "enforcement") &&
		(strings.Contains(content, "MANDATORY") || strings.Contains(content, "CRITICAL"))
	res.HasIntegrationPoints = strings.Contains(lower, "integration") || strings.Contains(lower, "orchestration")
	res.Functional = res.HasDefinition && res.HasEnforcementRules
	return res
}

var enforcementMechanisms = []struct {
	name  string
	found func(content, lower string) bool
}{
	{"MANDATORY", func(c, _ string) bool { return strings.Contains(c, "MANDATORY") }},
	{"CRITICAL", func(c, _ string) bool { return strings.Contains(c, "CRITICAL") }},
	{"BLOCKING", func(c, _ string) bool { return strings.Contains(c, "BLOCK") }},
	{"enforcement", func(_, l string) bool { return strings.Contains(l, "enforcement") }},
}

func scanEnforcement(files []string, contents map[string]string) EnforcementResult {
	res := EnforcementResult{Mechanisms: []string{}, Patterns: map[string]int{}}
	for _, f := range files {
		content, ok := contents[f]
		if !ok {
			continue
		}
		res.ModulesScanned++
		lower := strings.ToLower(content)
		for _, m := range enforcementMechanisms {
			if !m.found(content, lower) {
				continue
			}
			if res.Patterns[m.name] == 0 {
				res.Mechanisms = append(res.Mechanisms, m.name)
			}
			res.Patterns[m.name]++
		}
	}
	res.Working = len(res.Mechanisms)
	return res
}

var integrationPatterns = []string{"orchestration", "delegate", "composition", "integration"}

func scanGateIntegration(files []string, contents map[string]string) GateIntegration {
	res := GateIntegration{Patterns: []string{}}
	for _, f := range files {
		content, ok := contents[f]
		if !ok {
			continue
		}
		for _, other := range files {
			if other != f && strings.Contains(content, framework.Stem(other)) {
				res.CrossReferences++
			}
		}
		lower := strings.ToLower(content)
		for _, p := range integrationPatterns {
			if strings.Contains(lower, p) && !slices.Contains(res.Patterns, p) {
				res.Patterns = append(res.Patterns, p)
			}
		}
	}
	res.Working = res.CrossReferences > 0 && len(res.Patterns) > 0
	return res
}

// MigrationKeywords mark commits that belong to the structural migration.
// Commit subjects are upper-cased before matching.
var MigrationKeywords = []string{"MIGRATION", "REAL MIGRATION", "PATTERN", "STRUCTURE", "AGENT 7"}

// TestAtomicCommits inspects the git history for migration commits and
// rollback capability, and the framework for atomic-commit guidance. Git
// failures are recorded in the report, never returned.
func TestAtomicCommits(ctx context.Context, env Env, r Report) Report {
	root := env.Layout.Root
	a := AtomicResults{
		Git:       gitStatus(ctx, env.Git, root),
		Evidence:  commitEvidence(ctx, env.Git, root),
		Framework: atomicIntegration(env.Layout),
		Rollback:  rollbackCapability(ctx, env.Git, root),
	}
	a.Summary = AtomicSummary{
		GitWorking:          a.Git.Working,
		EvidenceFound:       a.Evidence.Found,
		FrameworkIntegrated: a.Framework.Found,
		RollbackAvailable:   a.Rollback.Available,
	}
	a.Summary.Overall = a.Summary.GitWorking && a.Summary.EvidenceFound && a.Summary.FrameworkIntegrated
	r.Atomic = a
	return r
}

func gitStatus(ctx context.Context, g Git, root string) GitStatus {
	res := GitStatus{Status: "UNKNOWN"}
	if _, err := g.Status(ctx, root); err != nil {
		slog.Warn("git status failed", "root", root, "error", err)
		return res
	}
	res.IsRepository = true
	res.Working = true
	if branch, err := g.CurrentBranch(ctx, root); err == nil {
		res.Branch = branch
	}
	commits, err := g.Log(ctx, root, 1)
	res.HasCommits = err == nil && len(commits) > 0
	if res.HasCommits {
		res.Status = "WORKING"
	} else {
		res.Status = "NO_COMMITS"
	}
	return res
}

func commitEvidence(ctx context.Context, g Git, root string) CommitEvidence {
	res := CommitEvidence{Messages: []string{}}
	commits, err := g.Log(ctx, root, 20)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.CommitCount = len(commits)
	for _, c := range commits {
		upper := strings.ToUpper(c)
		for _, kw := range MigrationKeywords {
			if strings.Contains(upper, kw) {
				res.Messages = append(res.Messages, c)
				break
			}
		}
	}
	res.Found = len(res.Messages) > 0
	for _, m := range res.Messages {
		if strings.Contains(m, "Agent 7") || strings.Contains(m, "REAL MIGRATION") {
			res.RealMigration = true
			break
		}
	}
	return res
}

func atomicIntegration(l framework.Layout) AtomicIntegration {
	res := AtomicIntegration{Commands: []string{}, Modules: []string{}}
	scan := func(dir string, indicators []string) []string {
		var names []string
		for f, content := range readAll(framework.Glob(dir, ".md", false)) {
			if countContained(strings.ToLower(content), indicators) > 0 {
				names = append(names, filepath.Base(f))
			}
		}
		slices.Sort(names)
		return names
	}
	res.Commands = append(res.Commands, scan(l.Commands(), []string{"atomic", "commit", "git", "rollback", "safety"})...)
	res.Modules = append(res.Modules, scan(l.Quality(), []string{"atomic", "commit", "git", "rollback"})...)
	res.Points = len(res.Commands) + len(res.Modules)
	res.Found = res.Points > 0
	return res
}

func rollbackCapability(ctx context.Context, g Git, root string) Rollback {
	var res Rollback
	commits, err := g.Log(ctx, root, 5)
	res.LogAccessible = err == nil
	if err != nil {
		res.Error = err.Error()
	} else {
		joined := strings.Join(commits, "\n")
		res.BackupCommits = countContained(joined, []string{"BACKUP", "PRE-MIGRATION", "backup"}) > 0
	}
	_, err = g.Branches(ctx, root)
	res.BranchListing = err == nil
	res.Available = res.LogAccessible && res.BranchListing
	return res
}
