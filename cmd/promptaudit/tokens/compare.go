package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/spboyer/promptaudit/internal/gitinfo"
	"github.com/spboyer/promptaudit/internal/tokens"
)

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [refs...]",
		Short: "Compare markdown tokens between git refs",
		Long: `Compare markdown token counts between git refs.

With no arguments, compares HEAD to the working tree.
With one ref, compares that ref to the working tree.
With two refs, compares the first ref to the second.

A ref that cannot be resolved contributes no files, so every file on the
other side shows up as added or removed.`,
		Args:          cobra.MaximumNArgs(2),
		RunE:          runCompare,
		SilenceErrors: true,
	}
	cmd.Flags().String("format", "table", "Output format: json | table")
	cmd.Flags().Bool("show-unchanged", false, "Include unchanged files in output")
	return cmd
}

const (
	statusAdded     = "added"
	statusRemoved   = "removed"
	statusModified  = "modified"
	statusUnchanged = "unchanged"
)

type fileTokens struct {
	Tokens     int `json:"tokens"`
	Characters int `json:"characters"`
	Lines      int `json:"lines"`
}

type fileComparison struct {
	File          string      `json:"file"`
	Before        *fileTokens `json:"before"`
	After         *fileTokens `json:"after"`
	Diff          int         `json:"diff"`
	PercentChange float64     `json:"percentChange"`
	Status        string      `json:"status"`
}

type comparisonSummary struct {
	TotalBefore    int     `json:"totalBefore"`
	TotalAfter     int     `json:"totalAfter"`
	TotalDiff      int     `json:"totalDiff"`
	PercentChange  float64 `json:"percentChange"`
	FilesAdded     int     `json:"filesAdded"`
	FilesRemoved   int     `json:"filesRemoved"`
	FilesModified  int     `json:"filesModified"`
	FilesIncreased int     `json:"filesIncreased"`
	FilesDecreased int     `json:"filesDecreased"`
}

type comparisonReport struct {
	BaseRef   string            `json:"baseRef"`
	HeadRef   string            `json:"headRef"`
	Timestamp string            `json:"timestamp"`
	Summary   comparisonSummary `json:"summary"`
	Files     []fileComparison  `json:"files"`
}

func runCompare(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format != "table" && format != "json" {
		return fmt.Errorf(`unsupported format %q; expected "table" or "json"`, format)
	}
	showUnchanged, err := cmd.Flags().GetBool("show-unchanged")
	if err != nil {
		return err
	}

	rootDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if !gitinfo.IsInRepo(ctx, rootDir) {
		return fmt.Errorf("not a git repository; compare command requires git")
	}

	var baseRef, headRef string
	switch len(args) {
	case 0:
		baseRef = "HEAD"
		headRef = gitinfo.WorkingTreeRef
	case 1:
		baseRef = args[0]
		headRef = gitinfo.WorkingTreeRef
	default:
		baseRef = args[0]
		headRef = args[1]
	}

	comparisons, err := compareRefs(ctx, baseRef, headRef, rootDir)
	if err != nil {
		return err
	}
	// Totals cover every file, including the unchanged ones hidden below.
	summary := calculateSummary(comparisons)
	if !showUnchanged {
		kept := comparisons[:0]
		for _, c := range comparisons {
			if c.Status != statusUnchanged {
				kept = append(kept, c)
			}
		}
		comparisons = kept
	}
	// Changed first, then alphabetical.
	sort.Slice(comparisons, func(i, j int) bool {
		ci := comparisons[i].Status != statusUnchanged
		cj := comparisons[j].Status != statusUnchanged
		if ci != cj {
			return ci
		}
		return comparisons[i].File < comparisons[j].File
	})

	out := cmd.OutOrStdout()
	if format == "json" {
		s, err := compareJSON(comparisons, summary, baseRef, headRef)
		if err != nil {
			return err
		}
		fmt.Fprint(out, s)
		return nil
	}
	fmt.Fprint(out, compareTable(comparisons, summary, baseRef, headRef))
	return nil
}

// listRefFiles returns the set of markdown files present at a git ref.
// A ref that cannot be listed yields an empty set.
func listRefFiles(ctx context.Context, dir, ref string) map[string]bool {
	files := make(map[string]bool)
	list, err := gitinfo.MarkdownFilesAtRef(ctx, dir, ref)
	if err != nil {
		slog.Debug("listing markdown files", "ref", ref, "error", err)
		return files
	}
	for _, f := range list {
		files[f] = true
	}
	return files
}

// readAt returns the content of file at ref, reading the working tree for
// gitinfo.WorkingTreeRef. ok is false when the file does not exist there.
func readAt(ctx context.Context, rootDir, file, ref string) (content string, ok bool, err error) {
	if ref == gitinfo.WorkingTreeRef {
		data, err := os.ReadFile(filepath.Join(rootDir, file))
		switch {
		case errors.Is(err, os.ErrNotExist):
			// tracked by git but deleted from the working tree
			return "", false, nil
		case err != nil:
			return "", false, fmt.Errorf("reading %q: %w", file, err)
		}
		return string(data), true, nil
	}
	content, err = gitinfo.FileAtRef(ctx, rootDir, file, ref)
	if err != nil {
		if !errors.Is(err, gitinfo.ErrFileNotFound) {
			slog.Warn("reading file at ref", "file", file, "ref", ref, "error", err)
		}
		return "", false, nil
	}
	return content, true, nil
}

func compareRefs(ctx context.Context, baseRef, headRef, rootDir string) ([]fileComparison, error) {
	counter := tokens.NewEstimatingCounter()

	baseFiles := listRefFiles(ctx, rootDir, baseRef)
	headFiles := listRefFiles(ctx, rootDir, headRef)

	allFiles := make(map[string]bool, len(baseFiles)+len(headFiles))
	for f := range baseFiles {
		allFiles[f] = true
	}
	for f := range headFiles {
		allFiles[f] = true
	}

	comparisons := make([]fileComparison, 0, len(allFiles))
	for file := range allFiles {
		var baseContent, headContent string
		var hasBase, hasHead bool
		var err error
		if baseFiles[file] {
			if baseContent, hasBase, err = readAt(ctx, rootDir, file, baseRef); err != nil {
				return nil, err
			}
		}
		if headFiles[file] {
			if headContent, hasHead, err = readAt(ctx, rootDir, file, headRef); err != nil {
				return nil, err
			}
		}

		c := fileComparison{File: filepath.ToSlash(file)}
		if hasBase {
			c.Before = measure(counter, baseContent)
		}
		if hasHead {
			c.After = measure(counter, headContent)
		}
		c.Diff = c.After.tokens() - c.Before.tokens()
		switch {
		case c.Before.tokens() > 0:
			c.PercentChange = float64(c.Diff) / float64(c.Before.tokens()) * 100
		case c.After.tokens() > 0:
			c.PercentChange = 100
		}
		switch {
		case !hasBase && hasHead:
			c.Status = statusAdded
		case hasBase && !hasHead:
			c.Status = statusRemoved
		case c.Diff != 0:
			c.Status = statusModified
		default:
			c.Status = statusUnchanged
		}
		comparisons = append(comparisons, c)
	}

	return comparisons, nil
}

func measure(counter tokens.Counter, content string) *fileTokens {
	return &fileTokens{
		Tokens:     counter.Count(content),
		Characters: utf8.RuneCountInString(content),
		Lines:      countLines(content),
	}
}

// tokens is nil-safe: a missing side counts as zero.
func (f *fileTokens) tokens() int {
	if f == nil {
		return 0
	}
	return f.Tokens
}

func calculateSummary(comparisons []fileComparison) comparisonSummary {
	var s comparisonSummary
	for _, c := range comparisons {
		if c.Before != nil {
			s.TotalBefore += c.Before.Tokens
		}
		if c.After != nil {
			s.TotalAfter += c.After.Tokens
		}
		switch c.Status {
		case statusAdded:
			s.FilesAdded++
		case statusRemoved:
			s.FilesRemoved++
		case statusModified:
			s.FilesModified++
		}
		if c.Diff > 0 {
			s.FilesIncreased++
		} else if c.Diff < 0 {
			s.FilesDecreased++
		}
	}
	s.TotalDiff = s.TotalAfter - s.TotalBefore
	if s.TotalBefore > 0 {
		s.PercentChange = float64(s.TotalDiff) / float64(s.TotalBefore) * 100
	} else if s.TotalAfter > 0 {
		s.PercentChange = 100
	}
	return s
}

func compareTable(comparisons []fileComparison, summary comparisonSummary, baseRef, headRef string) string {
	var sb strings.Builder

	if len(comparisons) == 0 {
		sb.WriteString("No changes detected.\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "\n📊 Token Comparison: %s → %s\n\n", baseRef, headRef)

	maxPath := 4
	for _, c := range comparisons {
		if len(c.File) > maxPath {
			maxPath = len(c.File)
		}
	}

	header := fmt.Sprintf("%-*s  %8s  %8s  %8s  Status", maxPath, "File", "Before", "After", "Diff")
	sb.WriteString(header + "\n")
	sb.WriteString(strings.Repeat("-", len(header)+10) + "\n")

	for _, c := range comparisons {
		before := "-"
		if c.Before != nil {
			before = fmt.Sprintf("%d", c.Before.Tokens)
		}
		after := "-"
		if c.After != nil {
			after = fmt.Sprintf("%d", c.After.Tokens)
		}
		diffStr := fmt.Sprintf("%d", c.Diff)
		if c.Diff > 0 {
			diffStr = fmt.Sprintf("+%d", c.Diff)
		}

		fmt.Fprintf(&sb, "%-*s  %8s  %8s  %8s  %s\n", maxPath, c.File, before, after, diffStr, statusIcon(c))
	}

	sb.WriteString(strings.Repeat("-", len(header)+10) + "\n")

	totalDiffStr := fmt.Sprintf("%d", summary.TotalDiff)
	if summary.TotalDiff > 0 {
		totalDiffStr = fmt.Sprintf("+%d", summary.TotalDiff)
	}
	fmt.Fprintf(&sb, "%-*s  %8d  %8d  %8s  %.1f%%\n", maxPath, "Total",
		summary.TotalBefore, summary.TotalAfter, totalDiffStr, summary.PercentChange)

	fmt.Fprintf(&sb, "\n📋 Summary:\n")
	fmt.Fprintf(&sb, "   Added: %d, Removed: %d, Modified: %d\n", summary.FilesAdded, summary.FilesRemoved, summary.FilesModified)
	fmt.Fprintf(&sb, "   Increased: %d, Decreased: %d\n", summary.FilesIncreased, summary.FilesDecreased)

	return sb.String()
}

func statusIcon(c fileComparison) string {
	switch c.Status {
	case statusAdded:
		return "🆕"
	case statusRemoved:
		return "🗑️"
	case statusModified:
		if c.Diff > 0 {
			return "📈"
		}
		return "📉"
	default:
		return "➡️"
	}
}

func compareJSON(comparisons []fileComparison, summary comparisonSummary, baseRef, headRef string) (string, error) {
	report := comparisonReport{
		BaseRef:   baseRef,
		HeadRef:   headRef,
		Timestamp: nowISO(),
		Summary:   summary,
		Files:     comparisons,
	}

	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return "", err
	}
	return sb.String(), nil
}
