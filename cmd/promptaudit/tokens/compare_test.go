package tokens

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	git(t, dir, "init", "-b", "main")
	git(t, dir, "config", "user.email", "test@test.com")
	git(t, dir, "config", "user.name", "Test")
	git(t, dir, "config", "commit.gpgsign", "false")
	return dir
}

func commit(t *testing.T, dir, msg string) {
	t.Helper()
	git(t, dir, "add", "-A")
	git(t, dir, "commit", "-m", msg)
}

func runCompareCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newCompareCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCompare_NotGitRepo(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := runCompareCmd(t)
	require.ErrorContains(t, err, "not a git repository")
}

func TestCompare(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "README.md", "# V1")
	writeFile(t, dir, "unchanged.md", "# V1")
	writeFile(t, dir, "references/spec.md", "this is reference content")

	t.Run("added files", func(t *testing.T) {
		out, err := runCompareCmd(t)
		require.NoError(t, err)
		expected := "\n📊 Token Comparison: HEAD → WORKING\n\n" +
			"File                  Before     After      Diff  Status\n" +
			"------------------------------------------------------------------\n" +
			"README.md                  -         1        +1  🆕\n" +
			"references/spec.md         -         6        +6  🆕\n" +
			"unchanged.md               -         1        +1  🆕\n" +
			"------------------------------------------------------------------\n" +
			"Total                      0         8        +8  100.0%\n" +
			"\n📋 Summary:\n" +
			"   Added: 3, Removed: 0, Modified: 0\n" +
			"   Increased: 3, Decreased: 0\n"
		require.Equal(t, expected, out)
	})

	commit(t, dir, "initial")

	t.Run("clean tree", func(t *testing.T) {
		out, err := runCompareCmd(t)
		require.NoError(t, err)
		require.Equal(t, "No changes detected.\n", out)
	})

	writeFile(t, dir, "README.md", "# V2 with more words")
	writeFile(t, dir, "new.md", "brand new file!!")
	require.NoError(t, os.Remove(filepath.Join(dir, "references", "spec.md")))

	expected := "\n📊 Token Comparison: %s → %s\n\n" +
		"File                  Before     After      Diff  Status\n" +
		"------------------------------------------------------------------\n" +
		"README.md                  1         5        +4  📈\n" +
		"new.md                     -         4        +4  🆕\n" +
		"references/spec.md         6         -        -6  🗑️\n" +
		"------------------------------------------------------------------\n" +
		"Total                      8        10        +2  25.0%%\n" +
		"\n📋 Summary:\n" +
		"   Added: 1, Removed: 1, Modified: 1\n" +
		"   Increased: 2, Decreased: 1\n"

	t.Run("working tree changes", func(t *testing.T) {
		out, err := runCompareCmd(t)
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf(expected, "HEAD", "WORKING"), out)
	})

	commit(t, dir, "second")

	t.Run("two refs", func(t *testing.T) {
		out, err := runCompareCmd(t, "HEAD~1", "HEAD")
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf(expected, "HEAD~1", "HEAD"), out)
	})

	t.Run("show unchanged", func(t *testing.T) {
		out, err := runCompareCmd(t, "--show-unchanged", "HEAD~1", "HEAD")
		require.NoError(t, err)
		require.Contains(t, out, "unchanged.md               1         1         0  ➡️\n")
	})

	t.Run("json", func(t *testing.T) {
		out, err := runCompareCmd(t, "--format", "json", "HEAD~1")
		require.NoError(t, err)

		var report comparisonReport
		require.NoError(t, json.Unmarshal([]byte(out), &report), out)
		require.Equal(t, "HEAD~1", report.BaseRef)
		require.Equal(t, "WORKING", report.HeadRef)
		require.Equal(t, comparisonSummary{
			TotalBefore:    8,
			TotalAfter:     10,
			TotalDiff:      2,
			PercentChange:  25,
			FilesAdded:     1,
			FilesRemoved:   1,
			FilesModified:  1,
			FilesIncreased: 2,
			FilesDecreased: 1,
		}, report.Summary)
		require.Len(t, report.Files, 3)
		require.Equal(t, "README.md", report.Files[0].File)
		require.Equal(t, statusModified, report.Files[0].Status)
		require.InDelta(t, 400.0, report.Files[0].PercentChange, 1e-9)
		require.Nil(t, report.Files[2].After)
	})

	t.Run("unknown ref", func(t *testing.T) {
		out, err := runCompareCmd(t, "--format", "json", "no-such-ref")
		require.NoError(t, err)

		var report comparisonReport
		require.NoError(t, json.Unmarshal([]byte(out), &report), out)
		require.Equal(t, 0, report.Summary.TotalBefore)
		require.Equal(t, 3, report.Summary.FilesAdded)
	})

	t.Run("bad format", func(t *testing.T) {
		_, err := runCompareCmd(t, "--format", "xml")
		require.ErrorContains(t, err, "unsupported format")
	})
}
