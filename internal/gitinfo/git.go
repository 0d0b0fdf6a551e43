// Package gitinfo runs read-only git queries against a working tree.
package gitinfo

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrFileNotFound is returned when a file does not exist at the given ref.
var ErrFileNotFound = errors.New("file not found at ref")

// WorkingTreeRef is a sentinel value representing the working tree (not a git ref).
const WorkingTreeRef = "WORKING"

func run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}

func lines(out string) []string {
	var res []string
	for l := range strings.SplitSeq(strings.TrimSpace(out), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			res = append(res, l)
		}
	}
	return res
}

// IsInRepo returns true if dir is inside a git repository.
func IsInRepo(ctx context.Context, dir string) bool {
	_, err := run(ctx, dir, "rev-parse", "--git-dir")
	return err == nil
}

// Status returns the porcelain status lines. A clean tree yields nil.
func Status(ctx context.Context, dir string) ([]string, error) {
	out, err := run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// CurrentBranch returns the checked-out branch, or "" when detached.
func CurrentBranch(ctx context.Context, dir string) (string, error) {
	out, err := run(ctx, dir, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Log returns up to n commits in --oneline form, newest first. A
// repository without commits yields an error from git.
func Log(ctx context.Context, dir string, n int) ([]string, error) {
	out, err := run(ctx, dir, "log", "--oneline", fmt.Sprintf("-%d", n))
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// Branches returns local branch names.
func Branches(ctx context.Context, dir string) ([]string, error) {
	out, err := run(ctx, dir, "branch", "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// MarkdownFilesAtRef returns the markdown files tracked by git at ref.
// For [WorkingTreeRef] it returns tracked and untracked *.md[x] files,
// respecting .gitignore.
func MarkdownFilesAtRef(ctx context.Context, dir, ref string) ([]string, error) {
	args := []string{"ls-tree", "-r", "--name-only", ref}
	if ref == WorkingTreeRef {
		args = []string{"ls-files", "--cached", "--others", "--exclude-standard"}
	}
	out, err := run(ctx, dir, args...)
	if err != nil {
		return nil, fmt.Errorf("listing files at %q: %w", ref, err)
	}
	var result []string
	for _, l := range lines(out) {
		lower := strings.ToLower(l)
		if strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".mdx") {
			result = append(result, l)
		}
	}
	return result, nil
}

// RefExists returns true if the given git ref can be resolved.
func RefExists(ctx context.Context, dir, ref string) bool {
	_, err := run(ctx, dir, "rev-parse", "--verify", "--quiet", ref)
	return err == nil
}

// FileAtRef retrieves the content of a file at a given git ref. It
// returns [ErrFileNotFound] (wrapped) when the path does not exist there.
func FileAtRef(ctx context.Context, dir, file, ref string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "show", ref+":"+file)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && strings.Contains(string(exitErr.Stderr), "does not exist") {
			return "", fmt.Errorf("reading %q at %s: %w", file, ref, ErrFileNotFound)
		}
		return "", fmt.Errorf("reading %q at %s: %w", file, ref, err)
	}
	return string(out), nil
}
