package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/spboyer/promptaudit/internal/progress"
	"github.com/spboyer/promptaudit/internal/projectconfig"
	"github.com/spboyer/promptaudit/internal/reporting"
	"github.com/spboyer/promptaudit/internal/ux"
	"github.com/spboyer/promptaudit/internal/workflow"
)

var workflowSteps = []string{"Generate test cases", "Execute workflows", "Judge results", "Save report"}

// promptMode is a test hook for replacing the interactive mode selection.
// It returns false when no selection was made.
var promptMode = defaultPromptMode

func defaultPromptMode(in io.Reader, out io.Writer, current workflow.Mode) (workflow.Mode, bool) {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return "", false
	}

	options := make([]huh.Option[workflow.Mode], 0, len(workflow.Modes()))
	for _, m := range workflow.Modes() {
		options = append(options, huh.NewOption(fmt.Sprintf("%s (%d workflows)", m, len(m.Pairs())), m))
	}
	selected := current
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[workflow.Mode]().
				Title("Validation mode").
				Options(options...).
				Value(&selected),
		),
	).WithInput(in).WithOutput(out).Run()
	if err != nil {
		return "", false
	}
	return selected, true
}

type workflowOptions struct {
	mode      string
	templates string
}

func newWorkflowCommand() *cobra.Command {
	var opts workflowOptions

	cmd := &cobra.Command{
		Use:   "workflow [project-root]",
		Short: "Validate baseline versus meta-enhanced prompts across workflows",
		Long: `Render baseline and meta-enhanced prompts for each workflow scenario and
complexity, execute both, and compare the quality of the responses.

Modes:
  quick              core scenarios at simple complexity
  comprehensive      every scenario and complexity, judged on 5 readiness criteria
  scenario-specific  the high-value scenario and complexity pairs

When --mode is not given on an interactive terminal the mode is chosen from a
menu. Prompt templates can be overridden with *.tmpl files in --templates.

Exits with code 1 when the mode's pass criteria are not met.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.mode, "mode", "", "Validation mode: quick | comprehensive | scenario-specific")
	cmd.Flags().StringVar(&opts.templates, "templates", "", "Directory of prompt template overrides (default from config)")

	return cmd
}

func runWorkflow(cmd *cobra.Command, args []string, opts workflowOptions) error {
	p, err := loadProject(args)
	if err != nil {
		return err
	}

	mode, err := workflow.ParseMode(p.Config.Workflow.Mode)
	if err != nil {
		return fmt.Errorf("workflow.mode in config: %w", err)
	}
	if opts.mode != "" {
		if mode, err = workflow.ParseMode(opts.mode); err != nil {
			return err
		}
	} else if selected, ok := promptMode(cmd.InOrStdin(), cmd.OutOrStdout(), mode); ok {
		mode = selected
	}

	templatesDir := opts.templates
	if templatesDir == "" && p.Config.Workflow.Templates != "" {
		templatesDir = projectconfig.Resolve(p.Root, p.Config.Workflow.Templates)
	}
	prompts, err := workflow.LoadTemplates(templatesDir)
	if err != nil {
		return fmt.Errorf("loading prompt templates: %w", err)
	}

	out := cmd.OutOrStdout()
	bar := progress.New(cmd.ErrOrStderr())
	tracker := ux.NewTracker()
	tracker.OnFeedback(ux.Console(out, bar))

	var (
		rep     *workflow.Report
		verdict workflow.Verdict
		path    string
	)
	pairs := mode.Pairs()
	_, err = tracker.Track(cmd.Context(), fmt.Sprintf("Workflow validation (%s)", mode), time.Duration(len(pairs))*time.Second, workflowSteps,
		func(ctx context.Context, op *ux.Op) (map[string]any, error) {
			cases, err := workflow.NewGenerator(prompts).TestCases(pairs)
			if err != nil {
				return nil, err
			}
			op.Advance("")

			v := workflow.NewValidator(workflow.NewHeuristicExecutor())
			v.OnResult(func(done, total int, r workflow.Result) {
				slog.Debug("workflow result", "done", done, "total", total, "name", r.TestCase.Name, "success", r.Success)
				if !r.Success {
					op.Warn(fmt.Sprintf("%s failed: %s", r.TestCase.Name, r.Error))
				}
			})
			if rep, err = v.Run(ctx, cases); err != nil {
				return nil, err
			}
			op.Advance("")

			verdict = workflow.Judge(mode, rep)
			op.Advance("")

			dir, err := p.resultsDir()
			if err != nil {
				return nil, err
			}
			if path, err = workflow.Save(rep, dir); err != nil {
				return nil, fmt.Errorf("saving workflow report: %w", err)
			}
			return map[string]any{
				"workflows": rep.Total,
				"succeeded": rep.Successful,
				"readiness": fmt.Sprintf("%.1f%%", rep.Readiness),
			}, nil
		})
	if err != nil {
		return err
	}

	printWorkflow(out, rep, verdict)
	fmt.Fprintf(out, "\n📄 Report: %s\n", path)

	if !verdict.Passed {
		return &AuditFailedError{Message: fmt.Sprintf("%s validation failed", mode)}
	}
	return nil
}

func printWorkflow(w io.Writer, rep *workflow.Report, v workflow.Verdict) {
	fmt.Fprintln(w)
	banner(w, "🔄 WORKFLOW VALIDATION RESULTS")
	fmt.Fprintf(w, "Workflows:       %d (%d successful, %d failed)\n", rep.Total, rep.Successful, rep.Failed)
	fmt.Fprintf(w, "Improvement:     %.1f%% average\n", rep.Performance.AvgImprovement)
	fmt.Fprintf(w, "Token overhead:  %.1f average\n", rep.Performance.AvgTokenOverhead)
	fmt.Fprintf(w, "Readiness score: %.1f\n\n", rep.Readiness)

	var rows [][]string
	for _, s := range workflow.Scenarios() {
		b, ok := rep.Scenarios[s]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			string(s),
			fmt.Sprintf("%d/%d", b.Successful, b.Total),
			fmt.Sprintf("%.1f%%", b.AvgImprovement),
		})
	}
	table(w, []string{"Scenario", "Successful", "Improvement"}, rows)

	for _, c := range v.Criteria {
		fmt.Fprintf(w, "%s %s: %.1f (target %s)\n", reporting.Check(c.Met), c.Name, c.Actual, c.Target)
	}
	fmt.Fprintf(w, "\n%s\n%s\n", v.Headline, v.Detail)
	if v.Assessment != "" {
		fmt.Fprintln(w, v.Assessment)
	}

	if len(rep.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for _, r := range rep.Recommendations {
			fmt.Fprintf(w, "   • %s\n", r)
		}
	}
}
