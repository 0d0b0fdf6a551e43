package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spboyer/promptaudit/internal/cache"
	"github.com/spboyer/promptaudit/internal/framework"
	"github.com/spboyer/promptaudit/internal/projectconfig"
)

// project is the audited tree named on the command line together with
// its configuration.
type project struct {
	Root   string
	Config *projectconfig.ProjectConfig
	Layout framework.Layout
	Cache  *cache.Cache
}

// loadProject resolves the optional [project-root] argument (default: the
// working directory) and loads .promptaudit.yaml from there.
func loadProject(args []string) (*project, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", root)
	}

	cfg, err := projectconfig.Load(root)
	if err != nil {
		return nil, err
	}

	p := &project{
		Root:   root,
		Config: cfg,
		Layout: framework.NewLayout(root, cfg.Paths.Framework),
	}
	if cfg.CacheEnabled() {
		p.Cache = cache.New(projectconfig.Resolve(root, cfg.Cache.Dir))
	}
	slog.Debug("project loaded", "root", root, "framework", p.Layout.ClaudeDir, "cache", cfg.CacheEnabled())
	return p, nil
}

// documentCache returns the on-disk cache, or nil when caching is off.
func (p *project) documentCache() framework.DocumentCache {
	if p.Cache == nil {
		return nil
	}
	return p.Cache
}

// resultsDir is where reports are written. It is created on demand.
func (p *project) resultsDir() (string, error) {
	dir := projectconfig.Resolve(p.Root, p.Config.Paths.Results)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating results directory: %w", err)
	}
	return dir, nil
}

func (p *project) historyDir() string {
	return projectconfig.Resolve(p.Root, p.Config.Paths.History)
}
