package tokens

import (
	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Token accounting for framework markdown files",
		Long: `Estimate token usage of framework markdown files. Subcommands:
  count     Count tokens in markdown files
  analyze   Score the token efficiency of a prompt
  compare   Compare markdown tokens between git refs`,
	}
	cmd.AddCommand(newCountCmd())
	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newCompareCmd())
	return cmd
}
