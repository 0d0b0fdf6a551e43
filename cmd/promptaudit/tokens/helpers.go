package tokens

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spboyer/promptaudit/internal/projectconfig"
)

// FileResult holds token count results for a single file.
type FileResult struct {
	Path       string
	Tokens     int
	Characters int
	Lines      int
}

// now is replaced in tests.
var now = time.Now

// nowISO returns the current time in ISO 8601 format.
func nowISO() string {
	return now().UTC().Format(time.RFC3339Nano)
}

var excludedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	"coverage":     true,
}

// warningThreshold returns tokens.warning_threshold from the project
// configuration found above dir, or the default when none loads.
func warningThreshold(dir string) int {
	cfg, err := projectconfig.Load(dir)
	if err != nil {
		return projectconfig.DefaultTokenWarningThreshold
	}
	return cfg.Tokens.WarningThreshold
}

// findMarkdownFiles takes user-provided paths (files or directories) and
// returns the markdown files they name. If paths is empty, scans rootDir.
func findMarkdownFiles(paths []string, rootDir string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{rootDir}
	}

	var result []string
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(rootDir, p)
		}

		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", p, err)
		}

		if !info.IsDir() {
			result = append(result, p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			if !d.IsDir() && isMarkdown(d.Name()) {
				result = append(result, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %q: %w", p, err)
		}
	}

	return result, nil
}

func isMarkdown(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".mdx":
		return true
	}
	return false
}

// countLines returns the number of lines in s. An empty string has 0
// lines and a trailing newline does not start another line.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
