package tokens

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func countFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "README.md", "# Hello world\n")
	writeFile(t, dir, "docs/guide.md", strings.Repeat("word ", 40))
	writeFile(t, dir, "notes.txt", "not markdown")
	writeFile(t, dir, "node_modules/dep/README.md", "# excluded")
	t.Chdir(dir)
	return dir
}

func runCountCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newCountCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCount_TableFormat(t *testing.T) {
	countFixture(t)

	out, err := runCountCmd(t)
	require.NoError(t, err)

	expected := `File             Tokens     Chars   Lines
-----------------------------------------
README.md             3        14       1
docs/guide.md        50       200       1
-----------------------------------------
Total                53       214       2

2 file(s) scanned
`
	require.Equal(t, expected, out)
}

func TestCount_Warnings(t *testing.T) {
	countFixture(t)

	out, err := runCountCmd(t, "--warn", "10")
	require.NoError(t, err)
	require.Contains(t, out, "docs/guide.md        50       200       1  ⚠️\n")
	require.NotContains(t, out, "README.md             3        14       1  ⚠️")
	require.Contains(t, out, "1 file(s) over the 10-token warning threshold")
}

func TestCount_ConfigThreshold(t *testing.T) {
	dir := countFixture(t)
	writeFile(t, dir, ".promptaudit.yaml", "tokens:\n  warning_threshold: 40\n")

	out, err := runCountCmd(t, "--format", "json")
	require.NoError(t, err)

	var result countJSONOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	require.Equal(t, 40, result.WarningThreshold)
	require.Equal(t, 1, result.OverThreshold)
	require.True(t, result.Files["docs/guide.md"].OverThreshold)
	require.False(t, result.Files["README.md"].OverThreshold)
}

func TestCount_NonASCII(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "STATUS.md", "✅ Check ❌ done ✅")
	t.Chdir(dir)

	out, err := runCountCmd(t, "--format", "json")
	require.NoError(t, err)

	var result countJSONOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	require.Equal(t, countFileEntry{Tokens: 4, Characters: 16, Lines: 1}, result.Files["STATUS.md"])
}

func TestCount_JSONFormat(t *testing.T) {
	countFixture(t)

	out, err := runCountCmd(t, "--format", "json")
	require.NoError(t, err)

	var result countJSONOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	require.Equal(t, 2, result.TotalFiles)
	require.Equal(t, 53, result.TotalTokens)
	require.Equal(t, map[string]countFileEntry{
		"README.md":     {Tokens: 3, Characters: 14, Lines: 1},
		"docs/guide.md": {Tokens: 50, Characters: 200, Lines: 1},
	}, result.Files)
}

func TestCount_SortByTokens(t *testing.T) {
	countFixture(t)

	out, err := runCountCmd(t, "--sort", "tokens", "--no-total")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	require.True(t, strings.HasPrefix(lines[2], "docs/guide.md"))
	require.True(t, strings.HasPrefix(lines[3], "README.md"))
}

func TestCount_MinTokens(t *testing.T) {
	countFixture(t)

	out, err := runCountCmd(t, "--min-tokens", "10")
	require.NoError(t, err)
	require.NotContains(t, out, "README.md")
	require.Contains(t, out, "1 file(s) scanned")
}

func TestCount_InvalidFlags(t *testing.T) {
	countFixture(t)

	_, err := runCountCmd(t, "--format", "json", "--sort", "tokens")
	require.ErrorContains(t, err, "--sort is only supported with table output")

	_, err = runCountCmd(t, "--format", "xml")
	require.ErrorContains(t, err, "unsupported format")
}

func TestCount_NoFiles(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := runCountCmd(t)
	require.NoError(t, err)
	require.Equal(t, "No markdown files found.\n", out)
}
