package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/spboyer/promptaudit/internal/integration"
	"github.com/spboyer/promptaudit/internal/progress"
	"github.com/spboyer/promptaudit/internal/reporting"
)

func newIntegrationCommand() *cobra.Command {
	var noRemediation bool

	cmd := &cobra.Command{
		Use:   "integration [project-root]",
		Short: "Run the end-to-end integration test of a framework tree",
		Long: `Run the integration test phases against a framework tree: structure,
commands, modules, quality gates, atomic commits, performance and reference
integrity, followed by a production readiness assessment.

The report is written to ` + integration.ResultsFile + ` in the results
directory. When ` + integration.RemediationFile + ` exists in the project root,
its completion section is updated.

Exits with code 1 when the framework is not production ready.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIntegration(cmd, args, !noRemediation)
		},
	}

	cmd.Flags().BoolVar(&noRemediation, "no-remediation", false, "Do not update the remediation report")

	return cmd
}

func runIntegration(cmd *cobra.Command, args []string, remediate bool) error {
	p, err := loadProject(args)
	if err != nil {
		return err
	}

	bar := progress.New(cmd.ErrOrStderr())
	bar.Start("Integration testing", len(integration.Phases))
	tester := integration.New(p.Layout, integration.WithPhaseHook(func(index, total int, name string) {
		slog.Debug("starting phase", "index", index, "total", total, "name", name)
		if index > 1 {
			bar.Advance(1)
		}
	}))
	r, err := tester.Run(cmd.Context())
	bar.Advance(1)
	bar.Finish()
	if err != nil {
		return err
	}

	dir, err := p.resultsDir()
	if err != nil {
		return err
	}
	path, err := integration.Save(r, dir)
	if err != nil {
		return fmt.Errorf("saving integration report: %w", err)
	}

	out := cmd.OutOrStdout()
	printIntegration(out, r)
	fmt.Fprintf(out, "\n📄 Report: %s\n", path)

	if remediate {
		updated, err := integration.UpdateRemediationReport(p.Root, r, time.Now())
		if err != nil {
			return fmt.Errorf("updating remediation report: %w", err)
		}
		if updated {
			fmt.Fprintf(out, "📝 Updated %s\n", integration.RemediationFile)
		}
	}

	overall := r.Readiness.Overall
	if !overall.Ready {
		return &AuditFailedError{Message: fmt.Sprintf("framework not production ready: %d/%d (%s)",
			overall.Total, overall.Max, overall.Level)}
	}
	return nil
}

func printIntegration(w io.Writer, r *integration.Report) {
	s := r.Summary
	overall := r.Readiness.Overall

	banner(w, "🧪 INTEGRATION TEST RESULTS")
	fmt.Fprintf(w, "Phases completed:   %d\n", s.Execution.Phases)
	fmt.Fprintf(w, "Commands tested:    %d\n", s.Execution.CommandsTested)
	fmt.Fprintf(w, "Modules tested:     %d\n", s.Execution.ModulesTested)
	fmt.Fprintf(w, "Duration:           %s\n", formatDuration(time.Duration(s.Execution.DurationMinutes*float64(time.Minute))))

	fmt.Fprintln(w, "\nKey findings:")
	table(w, []string{"Finding", "Result"}, [][]string{
		{"Structural consolidation", reporting.Check(s.KeyFindings.StructuralConsolidation)},
		{"Directory reduction", fmt.Sprintf("%.1f%%", s.KeyFindings.DirectoryReduction)},
		{"Functional preservation", fmt.Sprintf("%.1f%%", s.KeyFindings.PreservationRate)},
		{"Quality module accessibility", fmt.Sprintf("%.1f%%", s.KeyFindings.QualityAccessibility)},
		{"Quality system functional", reporting.Check(s.KeyFindings.QualitySystemFunctional)},
		{"Atomic commits integrated", reporting.Check(s.KeyFindings.AtomicIntegrated)},
	})

	fmt.Fprintf(w, "\nReadiness: %d/%d (%.1f%%) %s\n", overall.Total, overall.Max, overall.Percent, overall.Level)
	fmt.Fprintf(w, "%s %s\n", reporting.Check(overall.Ready), overall.Recommendation)
	for _, b := range overall.Blockers {
		fmt.Fprintf(w, "   - %s\n", b)
	}
	if len(s.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for _, rec := range s.Recommendations {
			fmt.Fprintf(w, "   • %s\n", rec)
		}
	}
}
