package main

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/spboyer/promptaudit/internal/conformance"
	"github.com/spboyer/promptaudit/internal/progress"
	"github.com/spboyer/promptaudit/internal/reporting"
)

// ConformanceResultsFile is the conformance report written to the results
// directory.
const ConformanceResultsFile = "enhanced_test_report.json"

type validateOptions struct {
	workers int
	junit   string
}

func newValidateCommand() *cobra.Command {
	var opts validateOptions

	cmd := &cobra.Command{
		Use:   "validate [project-root]",
		Short: "Run the conformance test suite over every framework file",
		Long: `Discover every markdown and config file of a framework tree and run the
structural, functional, integration and performance tests against them.

Results can additionally be exported as JUnit XML for CI systems.

Exits with code 1 when coverage or success rate miss their targets.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, opts)
		},
	}

	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Concurrent file tests (default from config)")
	cmd.Flags().StringVar(&opts.junit, "junit", "", "Also write JUnit XML to this path")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string, opts validateOptions) error {
	p, err := loadProject(args)
	if err != nil {
		return err
	}

	workers := opts.workers
	if workers <= 0 {
		workers = p.Config.Conformance.Workers
	}

	bar := progress.New(cmd.ErrOrStderr())
	advance := progress.Callback(bar)
	var once sync.Once
	r, err := conformance.NewRunner(p.Layout,
		conformance.WithWorkers(workers),
		conformance.WithProgress(func(done, total int) {
			once.Do(func() { bar.Start("Conformance tests", total) })
			advance(done, total)
		}),
	).Run(cmd.Context())
	bar.Finish()
	if err != nil {
		return err
	}

	dir, err := p.resultsDir()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, ConformanceResultsFile)
	if err := reporting.WriteJSON(path, r); err != nil {
		return fmt.Errorf("saving conformance report: %w", err)
	}

	out := cmd.OutOrStdout()
	printConformance(out, r)
	fmt.Fprintf(out, "\n📄 Report: %s\n", path)

	if opts.junit != "" {
		if err := reporting.WriteJUnitXML(r.JUnitSuite("promptaudit conformance"), opts.junit); err != nil {
			return fmt.Errorf("writing JUnit report: %w", err)
		}
		fmt.Fprintf(out, "📄 JUnit: %s\n", opts.junit)
	}

	if !r.Passing() {
		return &AuditFailedError{Message: fmt.Sprintf("conformance targets missed: coverage %.1f%%, success rate %.1f%%", r.Coverage, r.SuccessRate)}
	}
	return nil
}

func printConformance(w io.Writer, r *conformance.Report) {
	banner(w, "🧪 CONFORMANCE TEST RESULTS")
	fmt.Fprintf(w, "Tests:        %s (pass %d, fail %d, skip %d, error %d)\n",
		formatInt(r.Total), r.Passed, r.Failed, r.Skipped, r.Errors)
	fmt.Fprintf(w, "Success rate: %.1f%%\n", r.SuccessRate)
	fmt.Fprintf(w, "Coverage:     %.1f%% (%d of %d markdown files)\n", r.Coverage, r.FilesTested, r.MarkdownFiles)
	fmt.Fprintf(w, "Grade:        %s\n", r.Grade)
	fmt.Fprintf(w, "Duration:     %s\n\n", formatDuration(r.Duration))

	var rows [][]string
	for _, t := range conformance.AllTypes {
		c := r.ByType[t]
		if c.Total() == 0 {
			continue
		}
		rows = append(rows, []string{string(t), fmt.Sprint(c.Pass), fmt.Sprint(c.Fail), fmt.Sprint(c.Skip), fmt.Sprint(c.Error)})
	}
	table(w, []string{"Type", "Pass", "Fail", "Skip", "Error"}, rows)

	if len(r.Failures) > 0 {
		fmt.Fprintln(w, "\nSample failures:")
		for _, f := range r.Failures {
			fmt.Fprintf(w, "   ❌ %s (%s): %s\n", f.Name, f.File, f.Message)
		}
	}

	kinds := make([]string, 0, len(r.Discovered))
	for k := range r.Discovered {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s=%d", k, r.Discovered[k])
	}
	fmt.Fprintf(w, "\nDiscovered: %s\n", strings.Join(parts, ", "))
}
