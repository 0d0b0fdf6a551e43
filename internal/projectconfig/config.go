// Package projectconfig provides the ProjectConfig struct and loader for
// .promptaudit.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file searched for.
const FileName = ".promptaudit.yaml"

// Default values for project configuration. New() references them and no
// other code should duplicate them.
const (
	DefaultFrameworkDir = ".claude"
	DefaultResultsDir   = "."
	DefaultHistoryDir   = ".promptaudit/history"

	DefaultPassThreshold = 70

	DefaultIterationsScale = 1.0

	DefaultWorkers = 4

	DefaultDashboardInterval     = 5 * time.Second
	DefaultDashboardPort         = 3000
	DefaultDashboardMaxPoints    = 1000
	DefaultDashboardAlertHistory = 500

	DefaultCacheDir = ".promptaudit-cache"

	DefaultTokenWarningThreshold = 2500

	DefaultWorkflowMode = "quick"
)

// PathsConfig holds locations relative to the project root.
type PathsConfig struct {
	Framework string `yaml:"framework,omitempty"`
	Results   string `yaml:"results,omitempty"`
	History   string `yaml:"history,omitempty"`
}

// ReviewConfig holds 100-point review settings.
type ReviewConfig struct {
	Rules         string `yaml:"rules,omitempty"`
	PassThreshold int    `yaml:"pass_threshold,omitempty"`
}

// BenchConfig holds benchmark settings.
type BenchConfig struct {
	IterationsScale float64 `yaml:"iterations_scale,omitempty"`
	History         *bool   `yaml:"history,omitempty"`
}

// ConformanceConfig holds conformance suite settings.
type ConformanceConfig struct {
	Workers int `yaml:"workers,omitempty"`
}

// DashboardConfig holds performance dashboard settings.
type DashboardConfig struct {
	Interval     time.Duration `yaml:"interval,omitempty"`
	Port         int           `yaml:"port,omitempty"`
	MaxPoints    int           `yaml:"max_points,omitempty"`
	AlertHistory int           `yaml:"alert_history,omitempty"`
}

// CacheConfig holds document cache settings.
type CacheConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// WorkflowConfig holds workflow validation settings.
type WorkflowConfig struct {
	// Templates is a directory of *.tmpl files overriding the built-in
	// prompt templates.
	Templates string `yaml:"templates,omitempty"`
	Mode      string `yaml:"mode,omitempty"`
}

// TokensConfig holds token budget settings.
type TokensConfig struct {
	WarningThreshold int `yaml:"warning_threshold,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .promptaudit.yaml.
type ProjectConfig struct {
	Paths       PathsConfig       `yaml:"paths,omitempty"`
	Review      ReviewConfig      `yaml:"review,omitempty"`
	Bench       BenchConfig       `yaml:"bench,omitempty"`
	Conformance ConformanceConfig `yaml:"conformance,omitempty"`
	Dashboard   DashboardConfig   `yaml:"dashboard,omitempty"`
	Cache       CacheConfig       `yaml:"cache,omitempty"`
	Workflow    WorkflowConfig    `yaml:"workflow,omitempty"`
	Tokens      TokensConfig      `yaml:"tokens,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Paths: PathsConfig{
			Framework: DefaultFrameworkDir,
			Results:   DefaultResultsDir,
			History:   DefaultHistoryDir,
		},
		Review: ReviewConfig{
			PassThreshold: DefaultPassThreshold,
		},
		Bench: BenchConfig{
			IterationsScale: DefaultIterationsScale,
			History:         boolPtr(false),
		},
		Conformance: ConformanceConfig{
			Workers: DefaultWorkers,
		},
		Dashboard: DashboardConfig{
			Interval:     DefaultDashboardInterval,
			Port:         DefaultDashboardPort,
			MaxPoints:    DefaultDashboardMaxPoints,
			AlertHistory: DefaultDashboardAlertHistory,
		},
		Cache: CacheConfig{
			Enabled: boolPtr(false),
			Dir:     DefaultCacheDir,
		},
		Workflow: WorkflowConfig{
			Mode: DefaultWorkflowMode,
		},
		Tokens: TokensConfig{
			WarningThreshold: DefaultTokenWarningThreshold,
		},
	}
}

// Load finds .promptaudit.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}

	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// CacheEnabled reports whether the on-disk document cache is turned on.
func (c *ProjectConfig) CacheEnabled() bool {
	return c.Cache.Enabled != nil && *c.Cache.Enabled
}

// HistoryEnabled reports whether benchmark runs are appended to history.
func (c *ProjectConfig) HistoryEnabled() bool {
	return c.Bench.History != nil && *c.Bench.History
}

// Resolve joins a configured relative path onto root.
func Resolve(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// findConfigFile walks up from dir looking for the config file (max 10
// levels). Returns os.ErrNotExist if none is found.
func findConfigFile(dir string) ([]byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for range 10 {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	// Paths
	if src.Paths.Framework != "" {
		dst.Paths.Framework = src.Paths.Framework
	}
	if src.Paths.Results != "" {
		dst.Paths.Results = src.Paths.Results
	}
	if src.Paths.History != "" {
		dst.Paths.History = src.Paths.History
	}

	// Review
	if src.Review.Rules != "" {
		dst.Review.Rules = src.Review.Rules
	}
	if src.Review.PassThreshold != 0 {
		dst.Review.PassThreshold = src.Review.PassThreshold
	}

	// Bench
	if src.Bench.IterationsScale != 0 {
		dst.Bench.IterationsScale = src.Bench.IterationsScale
	}
	if src.Bench.History != nil {
		dst.Bench.History = src.Bench.History
	}

	// Conformance
	if src.Conformance.Workers != 0 {
		dst.Conformance.Workers = src.Conformance.Workers
	}

	// Dashboard
	if src.Dashboard.Interval != 0 {
		dst.Dashboard.Interval = src.Dashboard.Interval
	}
	if src.Dashboard.Port != 0 {
		dst.Dashboard.Port = src.Dashboard.Port
	}
	if src.Dashboard.MaxPoints != 0 {
		dst.Dashboard.MaxPoints = src.Dashboard.MaxPoints
	}
	if src.Dashboard.AlertHistory != 0 {
		dst.Dashboard.AlertHistory = src.Dashboard.AlertHistory
	}

	// Cache
	if src.Cache.Enabled != nil {
		dst.Cache.Enabled = src.Cache.Enabled
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}

	// Workflow
	if src.Workflow.Templates != "" {
		dst.Workflow.Templates = src.Workflow.Templates
	}
	if src.Workflow.Mode != "" {
		dst.Workflow.Mode = src.Workflow.Mode
	}

	// Tokens
	if src.Tokens.WarningThreshold != 0 {
		dst.Tokens.WarningThreshold = src.Tokens.WarningThreshold
	}
}

func boolPtr(b bool) *bool {
	return &b
}
