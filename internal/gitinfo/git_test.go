package gitinfo

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s\n%s", strings.Join(args, " "), out)
	return strings.TrimSpace(string(out))
}

func writeFile(t *testing.T, dir, relPath, content string) {
	t.Helper()
	full := filepath.Join(dir, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func initTestRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	runGit(t, dir, "init", "-b", "main")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test User")
	return dir
}

func commitAll(t *testing.T, dir, message string) {
	t.Helper()
	runGit(t, dir, "add", "-A")
	runGit(t, dir, "commit", "-m", message)
}

func TestRepoQueries(t *testing.T) {
	ctx := context.Background()
	repo := initTestRepo(t)

	assert.True(t, IsInRepo(ctx, repo))
	_, err := Log(ctx, repo, 1)
	assert.Error(t, err, "a repository without commits has no log")

	writeFile(t, repo, "README.md", "hello")
	writeFile(t, repo, ".claude/commands/task.md", "# task")
	writeFile(t, repo, "main.go", "package main")
	commitAll(t, repo, "REAL MIGRATION: consolidate patterns")

	status, err := Status(ctx, repo)
	require.NoError(t, err)
	assert.Empty(t, status)

	writeFile(t, repo, "notes.md", "draft")
	status, err = Status(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, []string{"?? notes.md"}, status)

	branch, err := CurrentBranch(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	log, err := Log(ctx, repo, 5)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Contains(t, log[0], "REAL MIGRATION")

	branches, err := Branches(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, branches)

	files, err := MarkdownFilesAtRef(ctx, repo, "HEAD")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"README.md", ".claude/commands/task.md"}, files)

	files, err = MarkdownFilesAtRef(ctx, repo, WorkingTreeRef)
	require.NoError(t, err)
	assert.Contains(t, files, "notes.md")

	assert.True(t, RefExists(ctx, repo, "HEAD"))
	assert.False(t, RefExists(ctx, repo, "no-such-ref"))

	content, err := FileAtRef(ctx, repo, "README.md", "HEAD")
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	_, err = FileAtRef(ctx, repo, "missing.md", "HEAD")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestNotARepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	ctx := context.Background()
	dir := t.TempDir()
	assert.False(t, IsInRepo(ctx, dir))
	_, err := Status(ctx, dir)
	assert.Error(t, err)
}
