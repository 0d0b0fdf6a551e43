package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/spboyer/promptaudit/internal/benchmark"
	"github.com/spboyer/promptaudit/internal/progress"
	"github.com/spboyer/promptaudit/internal/reporting"
	"github.com/spboyer/promptaudit/internal/tokens"
)

type benchOptions struct {
	suites  []string
	scale   float64
	history bool
	seed    int64
	list    bool
}

func newBenchCommand() *cobra.Command {
	var opts benchOptions

	cmd := &cobra.Command{
		Use:   "bench [project-root]",
		Short: "Run the performance benchmark suites",
		Long: `Run the token efficiency, prompt construction, thinking pattern, module
loading and framework overhead benchmarks against a framework tree.

Each run can be appended to a compressed history; the previous run is then
compared with the current one using a bootstrap confidence interval.

Exits with code 1 when any benchmark iteration fails.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.list {
				listSuites(cmd.OutOrStdout())
				return nil
			}
			return runBench(cmd, args, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.suites, "suite", nil, "Suites to run by key (default: all)")
	cmd.Flags().Float64Var(&opts.scale, "iterations-scale", 0, "Multiply iteration counts (default from config)")
	cmd.Flags().BoolVar(&opts.history, "history", false, "Append the run to the benchmark history (default from config)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "Seed for the bootstrap comparison")
	cmd.Flags().BoolVar(&opts.list, "list", false, "List the available suites and exit")

	return cmd
}

func listSuites(w io.Writer) {
	var rows [][]string
	for _, s := range benchmark.Suites() {
		rows = append(rows, []string{s.Key, s.Name, fmt.Sprint(len(s.Benchmarks))})
	}
	table(w, []string{"Key", "Suite", "Benchmarks"}, rows)
}

func runBench(cmd *cobra.Command, args []string, opts benchOptions) error {
	p, err := loadProject(args)
	if err != nil {
		return err
	}

	suites := benchmark.SelectSuites(benchmark.Suites(), opts.suites...)
	if len(suites) == 0 {
		return fmt.Errorf("no benchmark suites match %s", strings.Join(opts.suites, ", "))
	}
	scale := opts.scale
	if scale <= 0 {
		scale = p.Config.Bench.IterationsScale
	}
	for i := range suites {
		scaled := make([]benchmark.Config, len(suites[i].Benchmarks))
		for j, c := range suites[i].Benchmarks {
			scaled[j] = c.Scaled(scale)
		}
		suites[i].Benchmarks = scaled
	}

	workloads := benchmark.NewWorkloads(p.Layout, tokens.NewAnalyzer(tokens.NewEstimatingCounter()))
	runner := benchmark.NewRunner(workloads)
	bar := progress.New(cmd.ErrOrStderr())
	advance := progress.Callback(bar)
	var once sync.Once
	runner.OnProgress(func(done, total int) {
		once.Do(func() { bar.Start("Benchmarking", total) })
		advance(done, total)
	})

	rep, err := runner.RunSuites(cmd.Context(), suites)
	bar.Finish()
	if err != nil {
		return err
	}

	deps, err := benchmark.AnalyzeDependencies(p.Layout)
	if err != nil {
		slog.Warn("dependency analysis failed", "error", err)
	} else {
		rep.Dependencies = deps
	}

	var cmp *benchmark.Comparison
	if opts.history || p.Config.HistoryEnabled() {
		h := benchmark.NewHistory(p.historyDir())
		last, err := h.Last()
		if err != nil {
			return err
		}
		if last != nil {
			c := benchmark.Compare(last, rep, opts.seed)
			cmp = &c
		}
		if err := h.Append(*rep); err != nil {
			return fmt.Errorf("appending benchmark history: %w", err)
		}
		slog.Debug("benchmark history updated", "path", h.Path())
	}

	dir, err := p.resultsDir()
	if err != nil {
		return err
	}
	path, err := benchmark.Save(rep, dir)
	if err != nil {
		return fmt.Errorf("saving benchmark report: %w", err)
	}

	out := cmd.OutOrStdout()
	printBench(out, rep, cmp)
	fmt.Fprintf(out, "\n📄 Report: %s\n", path)

	if rep.Failed > 0 {
		return &AuditFailedError{Message: fmt.Sprintf("%d of %d benchmark iterations failed", rep.Failed, rep.Total)}
	}
	return nil
}

func printBench(w io.Writer, rep *benchmark.Report, cmp *benchmark.Comparison) {
	s := rep.Summary
	banner(w, "⚡ PERFORMANCE BENCHMARK RESULTS")
	fmt.Fprintf(w, "Benchmarks:   %s (%d successful, %d failed)\n", formatInt(rep.Total), rep.Successful, rep.Failed)
	fmt.Fprintf(w, "Success rate: %.1f%%\n", s.SuccessRate)
	fmt.Fprintf(w, "Execution:    avg %.2fms, median %.2fms, p95 %.2fms (95%% CI %.2f-%.2fms)\n",
		s.Execution.Mean, s.Execution.Median, s.Execution.P95, s.ExecutionCI.Lower, s.ExecutionCI.Upper)
	fmt.Fprintf(w, "Efficiency:   %.3f\n", s.AvgEfficiency)
	fmt.Fprintf(w, "Targets:      execution %s  efficiency %s\n\n",
		reporting.Check(s.TargetsMet.ExecutionTime), reporting.Check(s.TargetsMet.Efficiency))

	rows := make([][]string, 0, len(s.Categories))
	for _, c := range s.Categories {
		rows = append(rows, []string{
			string(c.Category),
			fmt.Sprintf("%d/%d", c.Successful, c.Count),
			fmt.Sprintf("%.2fms", c.AvgExecution),
			fmt.Sprintf("%.3f", c.AvgEfficiency),
		})
	}
	table(w, []string{"Category", "Successful", "Avg time", "Efficiency"}, rows)

	if rep.Trends.Sufficient {
		fmt.Fprintf(w, "\nTrend: %s (%.1f%%)\n", rep.Trends.Direction, rep.Trends.MagnitudePercent)
	}
	if d := rep.Dependencies; d != nil {
		fmt.Fprintf(w, "\nDependencies: %d modules, %d dependencies, %d circular\n",
			d.TotalModules, d.TotalDependencies, d.CircularCount)
	}
	for _, sk := range rep.Skipped {
		fmt.Fprintf(w, "⏭️  Skipped %s\n", sk)
	}
	if cmp != nil {
		fmt.Fprintf(w, "\nCompared with %s: %.2fms → %.2fms (shift %.2f..%.2fms) %s\n",
			cmp.BaselineID, cmp.BaselineAvg, cmp.CurrentAvg, cmp.Shift.Lower, cmp.Shift.Upper, strings.ToUpper(cmp.Verdict))
	}

	fmt.Fprintln(w, "\nRecommendations:")
	for _, r := range rep.Recommendations {
		fmt.Fprintf(w, "   • %s\n", r)
	}
}
