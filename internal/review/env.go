package review

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spboyer/promptaudit/internal/framework"
)

// env resolves rule paths against the audited tree and memoizes reads so
// that the hundred checks touch each file once.
type env struct {
	layout framework.Layout
	loader *framework.Loader
	texts  map[string]text
	docs   map[string]*framework.Document
}

type text struct {
	content string
	ok      bool
}

func newEnv(layout framework.Layout, loader *framework.Loader) *env {
	if loader == nil {
		loader = framework.NewLoader(nil)
	}
	return &env{
		layout: layout,
		loader: loader,
		texts:  make(map[string]text),
		docs:   make(map[string]*framework.Document),
	}
}

// path maps a slash-separated, root-relative rule path onto disk. A
// leading ".claude" segment follows the configured framework directory.
func (e *env) path(p string) string {
	p = filepath.FromSlash(p)
	if p == framework.DefaultDir {
		return e.layout.ClaudeDir
	}
	if rest, ok := strings.CutPrefix(p, framework.DefaultDir+string(filepath.Separator)); ok {
		return filepath.Join(e.layout.ClaudeDir, rest)
	}
	return e.layout.Path(p)
}

func (e *env) exists(p string) bool {
	return framework.Exists(e.path(p))
}

func (e *env) read(p string) (string, bool) {
	full := e.path(p)
	if t, ok := e.texts[full]; ok {
		return t.content, t.ok
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("reading file for review", "path", full, "error", err)
		}
		e.texts[full] = text{}
		return "", false
	}
	t := text{content: string(data), ok: true}
	e.texts[full] = t
	return t.content, true
}

// commandFiles returns the markdown files under dir in walk order.
func (e *env) commandFiles(dir string) []string {
	return framework.Glob(e.path(dir), ".md", true)
}

// sample returns the first n parsed documents under dir. Unreadable files
// are dropped and so count against the rule.
func (e *env) sample(dir string, n int) []*framework.Document {
	files := e.commandFiles(dir)
	if n > 0 && len(files) > n {
		files = files[:n]
	}
	docs := make([]*framework.Document, 0, len(files))
	for _, f := range files {
		if d, ok := e.docs[f]; ok {
			docs = append(docs, d)
			continue
		}
		d, err := e.loader.Load(f)
		if err != nil {
			slog.Warn("loading document for review", "path", f, "error", err)
			continue
		}
		e.docs[f] = d
		docs = append(docs, d)
	}
	return docs
}

func fold(s string, caseSensitive bool) string {
	if caseSensitive {
		return s
	}
	return strings.ToLower(s)
}
