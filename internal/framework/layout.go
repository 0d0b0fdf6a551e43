// Package framework locates and parses the files of an audited prompt
// framework: a project root holding a .claude directory of markdown
// commands and modules.
package framework

import (
	"os"
	"path/filepath"
)

// DefaultDir is the framework directory name under the project root.
const DefaultDir = ".claude"

// Layout resolves the well-known directories of a framework tree.
type Layout struct {
	Root      string
	ClaudeDir string
}

// NewLayout returns the layout for root. An empty dir means DefaultDir.
func NewLayout(root, dir string) Layout {
	if dir == "" {
		dir = DefaultDir
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	return Layout{Root: root, ClaudeDir: dir}
}

func (l Layout) Commands() string          { return filepath.Join(l.ClaudeDir, "commands") }
func (l Layout) Modules() string           { return filepath.Join(l.ClaudeDir, "modules") }
func (l Layout) Patterns() string          { return filepath.Join(l.ClaudeDir, "modules", "patterns") }
func (l Layout) System() string            { return filepath.Join(l.ClaudeDir, "system") }
func (l Layout) Quality() string           { return filepath.Join(l.ClaudeDir, "system", "quality") }
func (l Layout) PromptEng() string         { return filepath.Join(l.ClaudeDir, "prompt_eng") }
func (l Layout) PromptEngPatterns() string { return filepath.Join(l.ClaudeDir, "prompt_eng", "patterns") }
func (l Layout) Components() string        { return filepath.Join(l.ClaudeDir, "components") }
func (l Layout) Context() string           { return filepath.Join(l.ClaudeDir, "context") }
func (l Layout) Config() string            { return filepath.Join(l.ClaudeDir, "config") }

// Path joins elements onto the project root.
func (l Layout) Path(elem ...string) string {
	return filepath.Join(append([]string{l.Root}, elem...)...)
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir reports whether path is an existing directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Glob returns the sorted files in dir whose names end in ext. Recursive
// walks the whole subtree. A missing dir yields nil.
func Glob(dir, ext string, recursive bool) []string {
	var out []string
	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil
		}
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ext {
				out = append(out, filepath.Join(dir, e.Name()))
			}
		}
		return out
	}
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && filepath.Ext(d.Name()) == ext {
			out = append(out, path)
		}
		return nil
	})
	return out
}

// Stem returns the file name without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
