package framework

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

var excludedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	"coverage":     true,
}

var configExts = []string{".json", ".yaml", ".yml"}

// Tree lists the files discovered under a project root. Paths are absolute
// and sorted.
type Tree struct {
	Root     string
	Markdown []string
	Config   []string
}

// Discover walks root for markdown files and collects config files under
// the framework directory. Directories named in excludedDirs and paths
// matched by a root .gitignore are skipped.
func Discover(layout Layout) (*Tree, error) {
	absRoot, err := filepath.Abs(layout.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root path: %w", err)
	}
	if _, err := os.Stat(absRoot); err != nil {
		return nil, fmt.Errorf("root path: %w", err)
	}
	absClaude, err := filepath.Abs(layout.ClaudeDir)
	if err != nil {
		return nil, fmt.Errorf("resolving framework path: %w", err)
	}

	gi, err := loadGitignore(absRoot)
	if err != nil {
		return nil, err
	}

	tree := &Tree{Root: absRoot}
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		rel, _ := filepath.Rel(absRoot, path)
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if path != absRoot && (excludedDirs[d.Name()] || ignored(gi, rel+"/")) {
				return fs.SkipDir
			}
			return nil
		}
		if ignored(gi, rel) {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		switch {
		case ext == ".md":
			tree.Markdown = append(tree.Markdown, path)
		case slices.Contains(configExts, ext) && within(path, absClaude):
			tree.Config = append(tree.Config, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory %s: %w", absRoot, err)
	}
	slices.Sort(tree.Markdown)
	slices.Sort(tree.Config)
	slog.Debug("discovered framework files", "root", absRoot, "markdown", len(tree.Markdown), "config", len(tree.Config))
	return tree, nil
}

// Under returns the markdown files inside dir.
func (t *Tree) Under(dir string) []string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, p := range t.Markdown {
		if within(p, abs) {
			out = append(out, p)
		}
	}
	return out
}

func loadGitignore(root string) (*ignore.GitIgnore, error) {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return gi, nil
}

func ignored(gi *ignore.GitIgnore, rel string) bool {
	return gi != nil && gi.MatchesPath(rel)
}

func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}
