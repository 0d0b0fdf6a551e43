package tokens

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/spboyer/promptaudit/internal/tokens"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <prompt-file>",
		Short: "Score the token efficiency of a prompt",
		Long: `Analyze how a prompt spends its tokens: XML structure overhead, thinking
pattern density, structure score and tokens per instruction. The pattern
complexity and cognitive load of the prompt are reported as well.

With --response, the tokens of a recorded response are included in the
total.`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}
	cmd.Flags().String("format", "table", "Output format: json | table")
	cmd.Flags().String("response", "", "File holding a response to the prompt")
	return cmd
}

type analyzeJSONOutput struct {
	GeneratedAt       string            `json:"generatedAt"`
	File              string            `json:"file"`
	Efficiency        tokens.Efficiency `json:"efficiency"`
	PatternComplexity float64           `json:"patternComplexity"`
	CognitiveLoad     float64           `json:"cognitiveLoad"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format != "table" && format != "json" {
		return fmt.Errorf(`unsupported format %q; expected "table" or "json"`, format)
	}
	responsePath, err := cmd.Flags().GetString("response")
	if err != nil {
		return err
	}

	prompt, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading prompt: %w", err)
	}
	var response []byte
	if responsePath != "" {
		if response, err = os.ReadFile(responsePath); err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
	}

	a := tokens.NewAnalyzer(tokens.NewEstimatingCounter())
	res := analyzeJSONOutput{
		GeneratedAt:       nowISO(),
		File:              args[0],
		Efficiency:        a.AnalyzeEfficiency(string(prompt), string(response)),
		PatternComplexity: tokens.PatternComplexity(string(prompt)),
		CognitiveLoad:     tokens.CognitiveLoad(string(prompt)),
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	outputAnalyzeTable(out, res)
	return nil
}

func outputAnalyzeTable(w io.Writer, res analyzeJSONOutput) {
	e := res.Efficiency
	fmt.Fprintf(w, "\n🔎 Token Analysis: %s\n\n", res.File)
	fmt.Fprintf(w, "%-24s  %10d\n", "Prompt tokens", e.PromptTokens)
	fmt.Fprintf(w, "%-24s  %10d\n", "Response tokens", e.ResponseTokens)
	fmt.Fprintf(w, "%-24s  %10d\n", "Total tokens", e.TotalTokens)
	fmt.Fprintf(w, "%-24s  %9.1f%%\n", "XML overhead", e.XMLOverheadPercent)
	fmt.Fprintf(w, "%-24s  %10.3f\n", "Thinking pattern ratio", e.ThinkingPatternRatio)
	fmt.Fprintf(w, "%-24s  %10.2f\n", "Structure score", e.StructureEfficiencyScore)
	fmt.Fprintf(w, "%-24s  %10.1f\n", "Tokens per instruction", e.TokensPerInstruction)
	fmt.Fprintf(w, "%-24s  %10.2f\n", "Pattern complexity", res.PatternComplexity)
	fmt.Fprintf(w, "%-24s  %10.2f\n", "Cognitive load", res.CognitiveLoad)
}
