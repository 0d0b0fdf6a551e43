package framework

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSplitFrontmatter(t *testing.T) {
	fm, body, err := SplitFrontmatter("---\nname: /auto\ndescription: Run things\n---\n# Auto\n")
	require.NoError(t, err)
	require.Equal(t, "/auto", fm["name"])
	require.Equal(t, "# Auto\n", body)

	_, _, err = SplitFrontmatter("# no frontmatter")
	require.ErrorIs(t, err, ErrNoFrontmatter)

	_, _, err = SplitFrontmatter("---\nname: x\n")
	require.ErrorIs(t, err, ErrUnclosedFrontmatter)

	_, _, err = SplitFrontmatter("---\nname: [unclosed\n---\n")
	require.ErrorContains(t, err, "invalid YAML")
}

func TestParseDocument(t *testing.T) {
	content := "---\nname: /task\n---\nbody line\n"
	doc := ParseDocument("task.md", content)
	require.True(t, doc.HasFrontmatter)
	require.Empty(t, doc.FrontmatterErr)
	name, ok := doc.Field("name")
	require.True(t, ok)
	require.Equal(t, "/task", name)
	require.Equal(t, len(content)/4, doc.Tokens)
	require.Equal(t, len(content), doc.Characters)
	require.Equal(t, 5, doc.Lines)

	plain := ParseDocument("plain.md", "hello")
	require.False(t, plain.HasFrontmatter)
	require.Equal(t, ErrNoFrontmatter.Error(), plain.FrontmatterErr)
	require.Equal(t, "hello", plain.Body)

	// 16 characters, 22 bytes
	glyphs := ParseDocument("status.md", "✅ Check ❌ done ✅")
	require.Equal(t, 16, glyphs.Characters)
	require.Equal(t, 4, glyphs.Tokens)
}

func TestParseOutline(t *testing.T) {
	src := "# Title\n\nSee [guide](docs/guide.md#setup) and <https://example.com>.\n\n## Usage\n\n```sh\nrun\n```\n\n![img](a.png)\n"
	o := ParseOutline([]byte(src))
	require.Equal(t, []Heading{{Level: 1, Text: "Title"}, {Level: 2, Text: "Usage"}}, o.Headings)
	require.Equal(t, 1, o.CodeBlocks)
	require.Equal(t, []string{"docs/guide.md#setup", "https://example.com", "a.png"}, o.Links)
}

func TestLocalTarget(t *testing.T) {
	for _, tt := range []struct {
		in    string
		want  string
		local bool
	}{
		{"docs/a.md#x", "docs/a.md", true},
		{"#anchor", "", false},
		{"https://example.com/a.md", "", false},
		{"mailto:me@example.com", "", false},
		{"FAQ.md", "FAQ.md", true},
	} {
		got, ok := LocalTarget(tt.in)
		require.Equal(t, tt.local, ok, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}
}

func TestClassify(t *testing.T) {
	for _, tt := range []struct {
		path string
		want FileType
	}{
		{"/p/.claude/commands/core/task.md", FileCommand},
		{"/p/.claude/components/git/commit.md", FileComponent},
		{"/p/.claude/components/INDEX.md", FileIndex},
		{"/p/.claude/context/library.md", FileIndex},
		{"/p/README.md", FileReadme},
		{"/p/docs/user-guide.md", FileReadme},
		{"/p/.claude/config/settings.json", FileConfig},
		{"/p/CHANGELOG.md", FileDocumentation},
	} {
		require.Equal(t, tt.want, Classify(tt.path), tt.path)
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "README.md"), "# r")
	writeFile(t, filepath.Join(root, ".claude", "commands", "task.md"), "# t")
	writeFile(t, filepath.Join(root, ".claude", "config", "settings.yaml"), "a: 1")
	writeFile(t, filepath.Join(root, "config.yaml"), "outside: true")
	writeFile(t, filepath.Join(root, "node_modules", "pkg", "README.md"), "# skip")
	writeFile(t, filepath.Join(root, "build", "out.md"), "# ignored")
	writeFile(t, filepath.Join(root, "notes.md"), "# ignored")
	writeFile(t, filepath.Join(root, ".gitignore"), "build/\nnotes.md\n")

	tree, err := Discover(NewLayout(root, ""))
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(root, ".claude", "commands", "task.md"),
		filepath.Join(root, "README.md"),
	}, tree.Markdown)
	require.Equal(t, []string{filepath.Join(root, ".claude", "config", "settings.yaml")}, tree.Config)
	require.Equal(t, []string{filepath.Join(root, ".claude", "commands", "task.md")}, tree.Under(NewLayout(root, "").Commands()))
}

func TestDiscover_MissingRoot(t *testing.T) {
	_, err := Discover(NewLayout(filepath.Join(t.TempDir(), "nope"), ""))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestGlobAndStem(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "")
	writeFile(t, filepath.Join(dir, "b.txt"), "")
	writeFile(t, filepath.Join(dir, "sub", "c.md"), "")

	require.Equal(t, []string{filepath.Join(dir, "a.md")}, Glob(dir, ".md", false))
	require.Len(t, Glob(dir, ".md", true), 2)
	require.Nil(t, Glob(filepath.Join(dir, "missing"), ".md", true))
	require.Equal(t, "c", Stem(filepath.Join(dir, "sub", "c.md")))
}

type mapCache map[string]*Document

func (m mapCache) Get(path, content string) (*Document, bool) {
	d, ok := m[path+"\x00"+content]
	return d, ok
}

func (m mapCache) Put(doc *Document) error {
	m[doc.Path+"\x00"+doc.Content] = doc
	return nil
}

func TestLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.md")
	writeFile(t, path, "# x")
	c := mapCache{}
	l := NewLoader(c)

	first, err := l.Load(path)
	require.NoError(t, err)
	second, err := l.Load(path)
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Len(t, c, 1)

	_, err = l.Load(path + ".missing")
	require.ErrorIs(t, err, os.ErrNotExist)
}
