package tokens

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFindMarkdownFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "README.md", "# Hi")
	writeFile(t, dir, "doc.mdx", "# Doc")
	writeFile(t, dir, "script.ts", "//")
	writeFile(t, dir, "sub/nested.md", "# Nested")
	writeFile(t, dir, "node_modules/excluded.md", "# No")

	files, err := findMarkdownFiles(nil, dir)
	require.NoError(t, err)
	sort.Strings(files)

	require.Equal(t, []string{
		filepath.Join(dir, "README.md"),
		filepath.Join(dir, "doc.mdx"),
		filepath.Join(dir, "sub", "nested.md"),
	}, files)
}

func TestFindMarkdownFiles_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "plain")

	files, err := findMarkdownFiles([]string{"notes.txt"}, dir)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "notes.txt")}, files)
}

func TestFindMarkdownFilesEmpty(t *testing.T) {
	files, err := findMarkdownFiles(nil, t.TempDir())
	require.NoError(t, err)
	require.Empty(t, files)
}

func TestFindMarkdownFilesNonexistent(t *testing.T) {
	_, err := findMarkdownFiles(nil, "/nonexistent/path")
	require.Error(t, err)
}

func TestCountLines(t *testing.T) {
	require.Equal(t, 0, countLines(""))
	require.Equal(t, 1, countLines("one"))
	require.Equal(t, 1, countLines("one\n"))
	require.Equal(t, 2, countLines("one\ntwo"))
}

func TestWarningThreshold(t *testing.T) {
	dir := t.TempDir()
	require.Equal(t, 2500, warningThreshold(dir))

	writeFile(t, dir, ".promptaudit.yaml", "tokens:\n  warning_threshold: 40\n")
	require.Equal(t, 40, warningThreshold(dir))
}
