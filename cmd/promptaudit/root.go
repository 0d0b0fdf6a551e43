package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spboyer/promptaudit/cmd/promptaudit/tokens"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promptaudit",
		Short: "promptaudit - audit tooling for prompt-engineering frameworks",
		Long: `promptaudit audits a prompt-engineering framework: a .claude directory of
markdown commands and modules consumed by an LLM coding assistant.

It runs integration and conformance tests, a 100-point review, performance
benchmarks and workflow validations, and serves a live performance dashboard.
Reports are written as JSON next to the audited project.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newIntegrationCommand())
	cmd.AddCommand(newReviewCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newBenchCommand())
	cmd.AddCommand(newWorkflowCommand())
	cmd.AddCommand(newDashboardCommand())
	cmd.AddCommand(newCacheCommand())
	cmd.AddCommand(tokens.NewCommand())

	return cmd
}

// execute runs the root command. SIGINT and SIGTERM cancel the command's
// context so long-running commands shut down cleanly.
func execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCmd := newRootCommand()
	return rootCmd.ExecuteContext(ctx)
}
