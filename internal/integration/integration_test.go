package integration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spboyer/promptaudit/internal/framework"
	"github.com/spboyer/promptaudit/internal/reporting"
)

type fakeGit struct {
	err      error
	branch   string
	commits  []string
	branches []string
}

var _ Git = (*fakeGit)(nil)

func (g *fakeGit) Status(context.Context, string) ([]string, error) { return nil, g.err }

func (g *fakeGit) CurrentBranch(context.Context, string) (string, error) { return g.branch, g.err }

func (g *fakeGit) Log(_ context.Context, _ string, n int) ([]string, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.commits[:min(n, len(g.commits))], nil
}

func (g *fakeGit) Branches(context.Context, string) ([]string, error) { return g.branches, g.err }

var fixedTime = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func commandBody(name string) string {
	return fmt.Sprintf("# %s\n\n## Mission\nRun the %s workflow.\n\n### Steps\nStep 1: read .claude/system/quality/tdd.md first.\nStep 2: commit atomically.\n", name, name)
}

// healthyFramework builds a tree that passes every readiness check.
func healthyFramework(t *testing.T) framework.Layout {
	t.Helper()
	root := t.TempDir()
	l := framework.NewLayout(root, "")
	for _, name := range FunctionalCommands {
		writeFile(t, filepath.Join(l.Commands(), name+".md"), commandBody(name))
	}
	writeFile(t, filepath.Join(l.PromptEng(), "commands", "setup", "adapt.md"), commandBody("adapt"))
	for _, m := range QualityModules {
		writeFile(t, filepath.Join(l.Quality(), m+".md"),
			"# "+m+"\nquality validation gate standard. MANDATORY enforcement. orchestration with tdd.\n")
	}
	writeFile(t, filepath.Join(l.Quality(), "tdd.md"),
		"# tdd\nRED GREEN REFACTOR: write a test, watch it fail, make it pass.\n"+
			"MANDATORY quality gate validation, BLOCK merges.\nSee [gates](universal-quality-gates.md).\n")
	writeFile(t, filepath.Join(l.Quality(), "universal-quality-gates.md"),
		"# gates\nquality gate standard threshold criteria. enforcement is MANDATORY and CRITICAL.\n"+
			"integration with orchestration. Uses tdd.\n")
	writeFile(t, filepath.Join(l.Patterns(), "retry.md"), "# retry\nquality check pattern with validation, MANDATORY.\n")
	return l
}

func healthyGit() *fakeGit {
	return &fakeGit{
		branch:   "main",
		commits:  []string{"abc123 REAL MIGRATION: consolidate patterns", "def456 BACKUP before move"},
		branches: []string{"main"},
	}
}

func TestTestCommandFile(t *testing.T) {
	dir := t.TempDir()
	structured := "## Mission\nThe mission statement.\n## Workflow\nThe workflow overview.\n## Notes\nNothing else.\n"

	path := filepath.Join(dir, "auto.md")
	writeFile(t, path, structured)
	res := TestCommandFile(path, "auto")
	assert.True(t, res.HasStructure)
	assert.False(t, res.HasInstructions)
	assert.Equal(t, CommandStructuredIncomplete, res.Status)
	assert.Equal(t, []string{"Missing instructions"}, res.Issues)

	writeFile(t, path, structured+"Step 1: run it.\n")
	res = TestCommandFile(path, "auto")
	assert.Equal(t, CommandFullyFunctional, res.Status)
	assert.Empty(t, res.Issues)

	writeFile(t, path, "hello")
	res = TestCommandFile(path, "auto")
	assert.True(t, res.Accessible)
	assert.Equal(t, CommandAccessibleUnstructured, res.Status)
	assert.Equal(t, []string{"Missing basic structure", "Missing instructions"}, res.Issues)

	res = TestCommandFile(filepath.Join(dir, "missing.md"), "missing")
	assert.False(t, res.Accessible)
	assert.Equal(t, CommandFileNotFound, res.Status)
}

func TestTestModuleFile(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		content string
		want    ModuleStatus
	}{
		{"quality validation gate MANDATORY", ModuleFullyFunctional},
		{"quality validation gate", ModuleFunctionalLimited},
		// Enforcement keywords are case-sensitive.
		{"mandatory quality gate", ModuleFunctionalLimited},
		{"nothing here", ModuleAccessibleIncomplete},
	}
	for i, tc := range cases {
		path := filepath.Join(dir, fmt.Sprintf("m%d.md", i))
		writeFile(t, path, tc.content)
		assert.Equal(t, tc.want, TestModuleFile(path, "quality").Status, tc.content)
	}
	assert.Equal(t, ModuleFileNotFound, TestModuleFile(filepath.Join(dir, "none.md"), "quality").Status)
}

func TestRun_HealthyFramework(t *testing.T) {
	l := healthyFramework(t)
	var phases []string
	r, err := New(l, WithGit(healthyGit()), WithClock(func() time.Time { return fixedTime }),
		WithPhaseHook(func(i, total int, name string) { phases = append(phases, name) })).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, phases, len(Phases))

	assert.Equal(t, 8, r.Structure.DirectoryCount)
	assert.True(t, r.Structure.PatternConsolidation)
	require.NotNil(t, r.Structure.Comparison.ImprovementPercent)
	assert.InDelta(t, 86.2, *r.Structure.Comparison.ImprovementPercent, 0.1)

	assert.Equal(t, 13, r.Commands.Summary.FunctionalWorking)
	assert.Equal(t, CommandFullyFunctional, r.Commands.Functional["task"].Status)
	assert.True(t, r.Commands.NonFunctional["adapt"].Accessible)
	assert.Contains(t, r.Commands.NonFunctional["adapt"].Path, filepath.Join("commands", "setup"))
	assert.Equal(t, CommandFileNotFound, r.Commands.NonFunctional["validate"].Status)
	assert.Equal(t, "NOT_FOUND", r.Commands.NonFunctional["validate"].Path)

	assert.Equal(t, 36, r.Modules.Summary.Accessible)
	assert.Equal(t, ModuleFullyFunctional, r.Modules.Patterns["retry.md"].Status)
	assert.True(t, r.QualityGates.Summary.Overall)
	assert.ElementsMatch(t, []string{"MANDATORY", "CRITICAL", "BLOCKING", "enforcement"}, r.QualityGates.Enforcement.Mechanisms)

	assert.True(t, r.Atomic.Summary.Overall)
	assert.True(t, r.Atomic.Rollback.BackupCommits)
	assert.True(t, r.Atomic.Evidence.RealMigration)
	assert.Equal(t, "WORKING", r.Atomic.Git.Status)
	assert.Len(t, r.Atomic.Framework.Commands, 13)

	assert.True(t, r.Performance.Summary.Overall)
	assert.Equal(t, 25, r.Performance.LoadTime.EstimatedImprovement)

	assert.Equal(t, 15, r.References.Summary.Total)
	assert.Zero(t, r.References.Summary.Broken)
	assert.True(t, r.References.Summary.Acceptable)
	assert.Equal(t, "NONE", r.References.Fixes.EstimatedEffort)

	assert.Equal(t, 11, r.Readiness.Overall.Total)
	assert.True(t, r.Readiness.Overall.Ready)
	assert.Equal(t, "PRODUCTION_READY", r.Readiness.Overall.Level)
	assert.Empty(t, r.Readiness.Overall.Blockers)
	assert.True(t, r.Summary.Migration.ObjectivesMet)
	assert.Equal(t, []string{"Production deployment preparation"}, r.Summary.NextSteps)
	assert.Equal(t, fixedTime.Format(time.RFC3339), r.Metadata.End)
}

func TestRun_EmptyProject(t *testing.T) {
	l := framework.NewLayout(t.TempDir(), "")
	r, err := New(l, WithGit(&fakeGit{err: errors.New("not a git repository")})).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, r.Structure.FrameworkExists)
	assert.Nil(t, r.Structure.Comparison.ImprovementPercent)
	assert.Zero(t, r.Commands.Summary.FunctionalWorking)
	assert.Equal(t, "UNKNOWN", r.Atomic.Git.Status)
	assert.NotEmpty(t, r.Atomic.Evidence.Error)
	assert.False(t, r.Atomic.Rollback.Available)

	assert.Equal(t, 2, r.Readiness.Overall.Total)
	assert.False(t, r.Readiness.Overall.Ready)
	assert.Equal(t, "NOT_READY", r.Readiness.Overall.Level)
	assert.Len(t, r.Readiness.Overall.Blockers, 4)
	assert.False(t, r.Summary.Migration.ObjectivesMet)
}

func TestRun_Deterministic(t *testing.T) {
	l := healthyFramework(t)
	clock := WithClock(func() time.Time { return fixedTime })
	first, err := New(l, WithGit(healthyGit()), clock).Run(context.Background())
	require.NoError(t, err)
	second, err := New(l, WithGit(healthyGit()), clock).Run(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("reports differ (-first +second):\n%s", diff)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(framework.NewLayout(t.TempDir(), ""), WithGit(healthyGit())).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestValidateReferences_Broken(t *testing.T) {
	root := t.TempDir()
	l := framework.NewLayout(root, "")
	writeFile(t, filepath.Join(l.Commands(), "a.md"),
		"Use .claude/old/tdd.md and .claude/missing/nope.md.\nSee [x](gone.md).\n")
	writeFile(t, filepath.Join(l.Quality(), "tdd.md"), "tdd")

	r := ValidateReferences(context.Background(), Env{Layout: l}, Report{})
	v := r.References
	assert.Equal(t, 2, v.Scan.Total)
	assert.Equal(t, 2, v.Scan.Broken)
	assert.Equal(t, []string{"commands/a.md -> gone.md"}, v.Links.Broken)
	assert.Equal(t, map[string]int{"old": 1, "missing": 1}, v.Broken.ByDirectory)
	assert.Equal(t, []string{".claude/missing/nope.md", ".claude/old/tdd.md"}, v.Broken.MostCommon)
	assert.Equal(t, map[string]string{".claude/old/tdd.md": ".claude/system/quality/tdd.md"}, v.Fixes.Suggestions)
	assert.Equal(t, 1, v.Fixes.Automated)
	assert.Equal(t, 1, v.Fixes.Manual)
	assert.Equal(t, "LOW", v.Fixes.EstimatedEffort)
	assert.Equal(t, 3, v.Summary.Broken)
	assert.False(t, v.Summary.Acceptable)
}

func TestReadinessLevel(t *testing.T) {
	assert.Equal(t, "PRODUCTION_READY", ReadinessLevel(10, 11))
	assert.Equal(t, "READY_WITH_MINOR_ISSUES", ReadinessLevel(9, 11))
	assert.Equal(t, "MOSTLY_READY", ReadinessLevel(7, 11))
	assert.Equal(t, "SIGNIFICANT_WORK_NEEDED", ReadinessLevel(5, 11))
	assert.Equal(t, "NOT_READY", ReadinessLevel(4, 11))
	assert.Equal(t, "Framework is mostly ready. Address remaining issues before production.", ReadinessRecommendation(7, 11))
}

func TestSaveRoundTrip(t *testing.T) {
	l := healthyFramework(t)
	r, err := New(l, WithGit(healthyGit()), WithClock(func() time.Time { return fixedTime })).Run(context.Background())
	require.NoError(t, err)

	path, err := Save(r, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ResultsFile, filepath.Base(path))

	var back Report
	require.NoError(t, reporting.ReadJSON(path, &back))
	if diff := cmp.Diff(*r, back, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateRemediationReport(t *testing.T) {
	root := t.TempDir()
	l := framework.NewLayout(root, "")
	r, err := New(l, WithGit(healthyGit())).Run(context.Background())
	require.NoError(t, err)

	updated, err := UpdateRemediationReport(root, r, fixedTime)
	require.NoError(t, err)
	assert.False(t, updated)

	path := filepath.Join(root, RemediationFile)
	writeFile(t, path, "# Report\n### Agent 9: Integration Tester\nold text\n### Agent 10: Next\nkeep\n")
	updated, err = UpdateRemediationReport(root, r, fixedTime)
	require.NoError(t, err)
	assert.True(t, updated)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "old text")
	assert.Contains(t, out, "### Agent 10: Next\nkeep\n")
	assert.Contains(t, out, "**Completed**: 2026-10-16")
	assert.Contains(t, out, "**Production Readiness**: NOT_READY (4/11)")
	assert.Equal(t, 1, strings.Count(out, RemediationStartMarker))
}
