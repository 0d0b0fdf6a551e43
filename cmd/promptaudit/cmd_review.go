package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spboyer/promptaudit/internal/projectconfig"
	"github.com/spboyer/promptaudit/internal/reporting"
	"github.com/spboyer/promptaudit/internal/review"
	"github.com/spboyer/promptaudit/internal/spinner"
)

// ReviewResultsFile is the review report written to the results directory.
const ReviewResultsFile = "review_100_point_results.json"

// failedChecksShown is how many failed checks the report lists.
const failedChecksShown = 10

type reviewOptions struct {
	rules     string
	threshold float64
	output    string
}

func newReviewCommand() *cobra.Command {
	var opts reviewOptions

	cmd := &cobra.Command{
		Use:   "review [project-root]",
		Short: "Run the 100-point review of a framework tree",
		Long: `Score a framework tree against 100 declarative checks across UX,
Simplicity, Documentation, Installation, Commands and Error Handling.

Rules come from --rules, the review.rules config entry, or the built-in set.
Rule files may be YAML or TOML and are validated against the rule schema.

Exits with code 1 when the overall score is below the pass threshold.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.rules, "rules", "", "Rule file (YAML or TOML) replacing the built-in rules")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Overall pass percentage (default from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Report path (default: <results>/"+ReviewResultsFile+")")

	return cmd
}

func runReview(cmd *cobra.Command, args []string, opts reviewOptions) error {
	p, err := loadProject(args)
	if err != nil {
		return err
	}

	rulesPath := opts.rules
	if rulesPath == "" && p.Config.Review.Rules != "" {
		rulesPath = projectconfig.Resolve(p.Root, p.Config.Review.Rules)
	}
	var rules *review.RuleSet
	if rulesPath != "" {
		rules, err = review.LoadRules(rulesPath)
	} else {
		rules, err = review.DefaultRules()
	}
	if err != nil {
		return fmt.Errorf("loading review rules: %w", err)
	}

	threshold := opts.threshold
	if threshold <= 0 {
		threshold = float64(p.Config.Review.PassThreshold)
	}

	sp := spinner.New(cmd.ErrOrStderr(), "Reviewing "+p.Layout.ClaudeDir).Start()
	r, err := review.New(p.Layout, rules,
		review.WithThreshold(threshold),
		review.WithCache(p.documentCache()),
	).Run(cmd.Context())
	sp.Stop()
	if err != nil {
		return err
	}

	path := opts.output
	if path == "" {
		dir, err := p.resultsDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, ReviewResultsFile)
	}
	if err := reporting.WriteJSON(path, r); err != nil {
		return fmt.Errorf("saving review report: %w", err)
	}

	out := cmd.OutOrStdout()
	printReview(out, r)
	fmt.Fprintf(out, "\n📄 Report: %s\n", path)

	if !r.ProductionOK {
		return &AuditFailedError{Message: fmt.Sprintf("review score %.1f%% is below the %.0f%% threshold", r.Score, r.Threshold)}
	}
	return nil
}

func printReview(w io.Writer, r *review.Report) {
	banner(w, "🎯 100-POINT REVIEW")
	fmt.Fprintf(w, "Score:  %d/%d (%.1f%%)\n", r.Passed, r.Total, r.Score)
	fmt.Fprintf(w, "Grade:  %s\n", r.Grade)
	fmt.Fprintf(w, "Status: %s\n\n", r.Status)

	rows := make([][]string, 0, len(r.Categories))
	for _, c := range r.Categories {
		rows = append(rows, []string{
			c.Category,
			fmt.Sprintf("%d/%d", c.Passed, c.Total),
			fmt.Sprintf("%.1f%%", c.Percent),
			reporting.AreaIcon(c.Percent, 80, 60),
		})
	}
	table(w, []string{"Category", "Passed", "Percent", ""}, rows)

	fmt.Fprintf(w, "\n%s: %.1f%% - %s\n", r.Focus.Category, r.Focus.Percent, r.FocusVerdict)
	fmt.Fprintf(w, "\n🚀 %s\n", r.Recommendation)
	for _, n := range r.Notes {
		fmt.Fprintf(w, "   • %s\n", n)
	}

	if failed := r.FailedChecks(failedChecksShown); len(failed) > 0 {
		fmt.Fprintf(w, "\nFailed checks (first %d):\n", len(failed))
		for _, c := range failed {
			fmt.Fprintf(w, "   ❌ #%d [%s] %s\n", c.Check, c.Category, c.Description)
		}
	}
}
