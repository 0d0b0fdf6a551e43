package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProject_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	p, err := loadProject(nil)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, wd, p.Root)
	assert.Equal(t, filepath.Join(wd, ".claude"), p.Layout.ClaudeDir)
	assert.Nil(t, p.Cache)
	assert.Nil(t, p.documentCache())
	assert.Equal(t, filepath.Join(wd, ".promptaudit", "history"), p.historyDir())
}

func TestLoadProject_Config(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, ".promptaudit.yaml", `paths:
  framework: framework
  results: out/results
cache:
  enabled: true
  dir: .cache
`)

	p, err := loadProject([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "framework"), p.Layout.ClaudeDir)
	require.NotNil(t, p.Cache)
	assert.NotNil(t, p.documentCache())

	results, err := p.resultsDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "results"), results)
	assert.DirExists(t, results)
}

func TestLoadProject_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := loadProject([]string{filepath.Join(dir, "missing")})
	assert.ErrorContains(t, err, "project root")

	file := writeTestFile(t, dir, "file.md", "# not a dir")
	_, err = loadProject([]string{file})
	assert.ErrorContains(t, err, "is not a directory")

	writeTestFile(t, dir, ".promptaudit.yaml", "paths: [unterminated")
	_, err = loadProject([]string{dir})
	assert.Error(t, err)
}

func writeTestFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
