// Package integration runs the post-migration integration test of a
// framework tree: eight phases over structure, commands, modules, quality
// gates, git history, performance, references and readiness.
package integration

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spboyer/promptaudit/internal/framework"
	"github.com/spboyer/promptaudit/internal/gitinfo"
	"github.com/spboyer/promptaudit/internal/reporting"
)

const (
	TesterName = "Agent 9 - Integration Tester"
	Mission    = "Test ACTUAL framework functionality after the structural migration"
	// ResultsFile is written to the results directory.
	ResultsFile = "agent9_integration_testing_results.json"
)

// Git is the subset of git queries the atomic-commit phase needs.
type Git interface {
	Status(ctx context.Context, dir string) ([]string, error)
	CurrentBranch(ctx context.Context, dir string) (string, error)
	Log(ctx context.Context, dir string, n int) ([]string, error)
	Branches(ctx context.Context, dir string) ([]string, error)
}

// GitCLI answers Git queries with the git binary.
type GitCLI struct{}

var _ Git = GitCLI{}

func (GitCLI) Status(ctx context.Context, dir string) ([]string, error) {
	return gitinfo.Status(ctx, dir)
}

func (GitCLI) CurrentBranch(ctx context.Context, dir string) (string, error) {
	return gitinfo.CurrentBranch(ctx, dir)
}

func (GitCLI) Log(ctx context.Context, dir string, n int) ([]string, error) {
	return gitinfo.Log(ctx, dir, n)
}

func (GitCLI) Branches(ctx context.Context, dir string) ([]string, error) {
	return gitinfo.Branches(ctx, dir)
}

// Tester runs Phases in order.
type Tester struct {
	env     Env
	now     func() time.Time
	onPhase func(index, total int, name string)
}

// Option configures a Tester.
type Option func(*Tester)

// WithGit replaces the git binary.
func WithGit(g Git) Option {
	return func(t *Tester) { t.env.Git = g }
}

// WithClock sets the time source for timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tester) { t.now = now }
}

// WithPhaseHook is called before each phase starts.
func WithPhaseHook(fn func(index, total int, name string)) Option {
	return func(t *Tester) { t.onPhase = fn }
}

func New(layout framework.Layout, opts ...Option) *Tester {
	t := &Tester{
		env: Env{Layout: layout, Git: GitCLI{}},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run executes every phase and summarizes the result. Phase failures are
// recorded in the report; only cancellation returns an error.
func (t *Tester) Run(ctx context.Context) (*Report, error) {
	start := t.now()
	r := Report{
		Tester:    TesterName,
		Timestamp: start.Format(time.RFC3339),
		Mission:   Mission,
		Root:      t.env.Layout.Root,
	}
	for i, p := range Phases {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("integration test cancelled: %w", err)
		}
		if t.onPhase != nil {
			t.onPhase(i+1, len(Phases), p.Name)
		}
		slog.Debug("integration phase", "phase", i+1, "name", p.Name)
		r = p.Run(ctx, t.env, r)
	}

	end := t.now()
	r.Summary = Summarize(r, end.Sub(start))
	r.Metadata = Metadata{
		Start:           start.Format(time.RFC3339),
		End:             end.Format(time.RFC3339),
		DurationMinutes: end.Sub(start).Minutes(),
		PhasesExecuted:  len(Phases) + 1,
		Complete:        true,
	}
	return &r, nil
}

// Save writes the report as ResultsFile under dir and returns its path.
func Save(r *Report, dir string) (string, error) {
	path := filepath.Join(dir, ResultsFile)
	if err := reporting.WriteJSON(path, r); err != nil {
		return "", err
	}
	return path, nil
}

// UpdateRemediationReport splices the completion section into the
// remediation report under root. A missing report is left alone and
// reported with updated=false.
func UpdateRemediationReport(root string, r *Report, completed time.Time) (updated bool, err error) {
	return reporting.SpliceFile(
		filepath.Join(root, RemediationFile),
		RemediationStartMarker,
		RemediationEndMarker,
		RemediationSection(*r, completed),
	)
}
