package tokens

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/spboyer/promptaudit/internal/tokens"
)

func newCountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count [paths...]",
		Short: "Count tokens in markdown files",
		Long: `Count tokens in markdown files.

Paths may be files or directories (scanned recursively for .md/.mdx files).
A relative path is resolved from the working directory; an absolute path is
used as-is. When no path is given, the working directory is scanned.

Files above the warning threshold (tokens.warning_threshold in
.promptaudit.yaml, or --warn) are flagged.`,
		Args: cobra.ArbitraryArgs,
		RunE: runCount,
	}
	cmd.Flags().String("format", "table", "Output format: json | table")
	cmd.Flags().String("sort", "path", "Sort table rows by: tokens | name | path")
	cmd.Flags().Int("min-tokens", 0, "Filter files with less than n tokens")
	cmd.Flags().Bool("no-total", false, "Hide total row in table output")
	cmd.Flags().Int("warn", 0, "Flag files above n tokens (default from config)")
	return cmd
}

type countJSONOutput struct {
	GeneratedAt      string                    `json:"generatedAt"`
	TotalTokens      int                       `json:"totalTokens"`
	TotalFiles       int                       `json:"totalFiles"`
	WarningThreshold int                       `json:"warningThreshold"`
	OverThreshold    int                       `json:"overThreshold"`
	Files            map[string]countFileEntry `json:"files"`
}

type countFileEntry struct {
	Tokens        int  `json:"tokens"`
	Characters    int  `json:"characters"`
	Lines         int  `json:"lines"`
	OverThreshold bool `json:"overThreshold,omitempty"`
}

func runCount(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format != "table" && format != "json" {
		return fmt.Errorf(`unsupported format %q; expected "table" or "json"`, format)
	}
	sortBy, err := cmd.Flags().GetString("sort")
	if err != nil {
		return err
	}
	minTokens, err := cmd.Flags().GetInt("min-tokens")
	if err != nil {
		return err
	}
	noTotal, err := cmd.Flags().GetBool("no-total")
	if err != nil {
		return err
	}
	warn, err := cmd.Flags().GetInt("warn")
	if err != nil {
		return err
	}
	if format == "json" {
		if cmd.Flags().Changed("sort") {
			return errors.New("--sort is only supported with table output")
		}
		if cmd.Flags().Changed("no-total") {
			return errors.New("--no-total is only supported with table output")
		}
	}

	rootDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}
	if warn <= 0 {
		warn = warningThreshold(rootDir)
	}
	files, err := findMarkdownFiles(args, rootDir)
	if err != nil {
		return err
	}

	counter := tokens.NewEstimatingCounter()
	var results []FileResult
	for _, f := range files {
		r, err := countFile(counter, f, rootDir)
		if err != nil {
			return err
		}
		if r.Tokens >= minTokens {
			results = append(results, *r)
		}
	}

	sortResults(results, sortBy)

	out := cmd.OutOrStdout()
	if format == "json" {
		return outputCountJSON(out, results, warn)
	}
	outputCountTable(out, results, warn, !noTotal)
	return nil
}

func countFile(counter tokens.Counter, filePath, rootDir string) (*FileResult, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filePath, err)
	}

	rel, err := filepath.Rel(rootDir, filePath)
	if err != nil {
		rel = filePath
	}

	text := string(content)
	return &FileResult{
		Path:       filepath.ToSlash(filepath.Clean(rel)),
		Tokens:     counter.Count(text),
		Characters: utf8.RuneCountInString(text),
		Lines:      countLines(text),
	}, nil
}

func sortResults(results []FileResult, by string) {
	sort.SliceStable(results, func(i, j int) bool {
		switch by {
		case "tokens":
			return results[i].Tokens > results[j].Tokens
		case "name":
			a := filepath.Base(results[i].Path)
			b := filepath.Base(results[j].Path)
			return strings.ToLower(a) < strings.ToLower(b)
		default:
			return results[i].Path < results[j].Path
		}
	})
}

func outputCountTable(w io.Writer, results []FileResult, warn int, showTotal bool) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No markdown files found.")
		return
	}

	maxPath := 4
	for _, r := range results {
		maxPath = max(maxPath, len(r.Path))
	}

	header := fmt.Sprintf("%-*s  %8s  %8s  %6s", maxPath, "File", "Tokens", "Chars", "Lines")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	over := 0
	for _, r := range results {
		line := fmt.Sprintf("%-*s  %8d  %8d  %6d", maxPath, r.Path, r.Tokens, r.Characters, r.Lines)
		if r.Tokens > warn {
			over++
			line += "  ⚠️"
		}
		fmt.Fprintln(w, line)
	}

	if showTotal {
		fmt.Fprintln(w, strings.Repeat("-", len(header)))
		var totalTokens, totalChars, totalLines int
		for _, r := range results {
			totalTokens += r.Tokens
			totalChars += r.Characters
			totalLines += r.Lines
		}
		fmt.Fprintf(w, "%-*s  %8d  %8d  %6d\n", maxPath, "Total", totalTokens, totalChars, totalLines)
		fmt.Fprintf(w, "\n%d file(s) scanned\n", len(results))
	}
	if over > 0 {
		fmt.Fprintf(w, "⚠️  %d file(s) over the %d-token warning threshold\n", over, warn)
	}
}

func outputCountJSON(w io.Writer, results []FileResult, warn int) error {
	out := countJSONOutput{
		GeneratedAt:      nowISO(),
		TotalFiles:       len(results),
		WarningThreshold: warn,
		Files:            make(map[string]countFileEntry, len(results)),
	}
	for _, r := range results {
		out.TotalTokens += r.Tokens
		entry := countFileEntry{
			Tokens:        r.Tokens,
			Characters:    r.Characters,
			Lines:         r.Lines,
			OverThreshold: r.Tokens > warn,
		}
		if entry.OverThreshold {
			out.OverThreshold++
		}
		out.Files[r.Path] = entry
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
