package benchmark

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spboyer/promptaudit/internal/framework"
	"github.com/spboyer/promptaudit/internal/metrics"
	"github.com/spboyer/promptaudit/internal/tokens"
)

// Measurement is what a single workload iteration reports.
type Measurement struct {
	TokenCount      int
	EfficiencyScore float64
	MemoryMB        float64
	Throughput      float64
	Details         map[string]float64
}

// Workload performs one iteration of a benchmark. It should return
// promptly once ctx is done.
type Workload func(ctx context.Context) (Measurement, error)

// Source provides the workload behind each benchmark.
type Source interface {
	Workload(cfg Config) (Workload, error)
	// Setup reports why a suite that requires setup cannot run.
	Setup(s Suite) error
}

// ErrUnknownBenchmark is returned for a config no workload implements.
var ErrUnknownBenchmark = errors.New("unknown benchmark")

// ModuleCategories are the module directories loaded by the module
// loading benchmark.
var ModuleCategories = []string{"development", "quality", "patterns", "meta"}

const (
	baselinePrompt = "Complete this task: Create a function"
	enhancedPrompt = `
<thinking_pattern>
<checkpoint>Understand requirements: Create a function</checkpoint>
<analysis>Break down task components and identify key requirements</analysis>
<validation>Verify understanding before proceeding</validation>
</thinking_pattern>

Using structured analysis, complete this task: Create a function

<execution_pattern>
1. Analyze requirements comprehensively
2. Plan approach with quality gates
3. Implement solution with verification
4. Validate results against requirements
</execution_pattern>
`
	xmlHeavyPrompt = `
<complex_analysis>
<multi_level_thinking>
<level_1><analysis>Primary analysis</analysis></level_1>
<level_2><analysis>Secondary analysis</analysis></level_2>
<level_3><analysis>Tertiary analysis</analysis></level_3>
</multi_level_thinking>
</complex_analysis>
`
	assemblyBase = "Analyze this system:"
)

var assemblyEnhancements = []string{
	"<thinking_pattern>Step by step analysis</thinking_pattern>",
	"<quality_gates>Validation checkpoints</quality_gates>",
	"<performance_targets>Optimization goals</performance_targets>",
}

var thinkingPatterns = []string{
	"<simple>Basic thinking pattern</simple>",
	"<recursive><analysis><deep>Multi-level analysis</deep></analysis></recursive>",
	"<complex><multi><nested><deep>Very complex nested pattern</deep></nested></multi></complex>",
}

// Workloads implements Source over a framework layout.
type Workloads struct {
	layout   framework.Layout
	analyzer *tokens.Analyzer
}

var _ Source = (*Workloads)(nil)

// NewWorkloads returns the standard workloads. A nil analyzer uses the
// estimating token counter.
func NewWorkloads(layout framework.Layout, analyzer *tokens.Analyzer) *Workloads {
	if analyzer == nil {
		analyzer = tokens.NewAnalyzer(nil)
	}
	return &Workloads{layout: layout, analyzer: analyzer}
}

func (w *Workloads) Workload(cfg Config) (Workload, error) {
	switch cfg.Name {
	case BaselineVsEnhanced:
		return w.baselineVsEnhanced, nil
	case XMLOverhead:
		return w.xmlOverhead, nil
	case PromptAssembly:
		return w.promptAssembly, nil
	case ThinkingComplexity:
		return w.thinkingPatterns, nil
	case ModuleLoading:
		return w.moduleLoading, nil
	case FrameworkInit:
		return w.frameworkInit, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownBenchmark, cfg.Name)
}

func (w *Workloads) Setup(s Suite) error {
	if !s.SetupRequired {
		return nil
	}
	if !framework.IsDir(w.layout.Modules()) {
		return fmt.Errorf("modules directory not found: %s", w.layout.Modules())
	}
	return nil
}

func (w *Workloads) baselineVsEnhanced(context.Context) (Measurement, error) {
	base := w.analyzer.AnalyzeEfficiency(baselinePrompt, "")
	enh := w.analyzer.AnalyzeEfficiency(enhancedPrompt, "")
	return Measurement{
		TokenCount:      enh.PromptTokens,
		EfficiencyScore: enh.StructureEfficiencyScore,
		Details: map[string]float64{
			"baseline_tokens":        float64(base.PromptTokens),
			"enhanced_tokens":        float64(enh.PromptTokens),
			"token_overhead":         float64(enh.PromptTokens - base.PromptTokens),
			"efficiency_improvement": enh.StructureEfficiencyScore - base.StructureEfficiencyScore,
		},
	}, nil
}

func (w *Workloads) xmlOverhead(context.Context) (Measurement, error) {
	e := w.analyzer.AnalyzeEfficiency(xmlHeavyPrompt, "")
	return Measurement{
		TokenCount:      e.PromptTokens,
		EfficiencyScore: e.StructureEfficiencyScore,
		Details: map[string]float64{
			"xml_overhead_percentage": e.XMLOverheadPercent,
			"structure_efficiency":    e.StructureEfficiencyScore,
		},
	}, nil
}

// AssemblePrompt joins enhancements onto base separated by blank lines.
func AssemblePrompt(base string, enhancements []string) string {
	var b strings.Builder
	b.WriteString(base)
	for _, e := range enhancements {
		b.WriteString("\n\n")
		b.WriteString(e)
	}
	return b.String()
}

func (w *Workloads) promptAssembly(context.Context) (Measurement, error) {
	start := time.Now()
	prompt := AssemblePrompt(assemblyBase, assemblyEnhancements)
	ms := msSince(start)

	e := w.analyzer.AnalyzeEfficiency(prompt, "")
	throughput := float64(len(prompt)) / (ms + 0.001)
	return Measurement{
		TokenCount:      e.PromptTokens,
		EfficiencyScore: clamp01(e.StructureEfficiencyScore),
		Throughput:      throughput,
		Details: map[string]float64{
			"assembly_time_ms":    ms,
			"assembly_efficiency": throughput,
			"final_prompt_length": float64(len(prompt)),
			"enhancement_count":   float64(len(assemblyEnhancements)),
		},
	}, nil
}

func (w *Workloads) thinkingPatterns(ctx context.Context) (Measurement, error) {
	var times, complexity, load []float64
	total := 0
	for _, p := range thinkingPatterns {
		if err := ctx.Err(); err != nil {
			return Measurement{}, err
		}
		start := time.Now()
		e := w.analyzer.AnalyzeEfficiency(p, "")
		_ = framework.ParseOutline([]byte(p))
		times = append(times, msSince(start))
		complexity = append(complexity, tokens.PatternComplexity(p))
		load = append(load, tokens.CognitiveLoad(p))
		total += e.PromptTokens
	}
	avgLoad := metrics.Mean(load)
	return Measurement{
		TokenCount:      total,
		EfficiencyScore: clamp01(1 - avgLoad),
		Details: map[string]float64{
			"avg_processing_time_ms": metrics.Mean(times),
			"avg_pattern_complexity": metrics.Mean(complexity),
			"avg_cognitive_load":     avgLoad,
			"pattern_count":          float64(len(thinkingPatterns)),
		},
	}, nil
}

// CategoryLoad is the result of loading one module category.
type CategoryLoad struct {
	Modules    int
	Bytes      int
	Tokens     int
	DurationMs float64
}

// LoadModules reads every markdown module of each present category under
// the modules directory.
func LoadModules(ctx context.Context, l framework.Layout) (map[string]CategoryLoad, error) {
	out := map[string]CategoryLoad{}
	for _, cat := range ModuleCategories {
		dir := filepath.Join(l.Modules(), cat)
		if !framework.IsDir(dir) {
			continue
		}
		var c CategoryLoad
		start := time.Now()
		for _, f := range framework.Glob(dir, ".md", false) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			data, err := os.ReadFile(f)
			if err != nil {
				return nil, fmt.Errorf("loading module %s: %w", f, err)
			}
			c.Modules++
			c.Bytes += len(data)
			c.Tokens += tokens.Estimate(string(data))
		}
		c.DurationMs = msSince(start)
		out[cat] = c
	}
	return out, nil
}

func (w *Workloads) moduleLoading(ctx context.Context) (Measurement, error) {
	loads, err := LoadModules(ctx, w.layout)
	if err != nil {
		return Measurement{}, err
	}
	var totalMs float64
	modules, toks := 0, 0
	for _, c := range loads {
		totalMs += c.DurationMs
		modules += c.Modules
		toks += c.Tokens
	}
	m := Measurement{
		TokenCount:      toks,
		EfficiencyScore: 0.5,
		Details: map[string]float64{
			"total_load_time_ms": totalMs,
			"total_modules":      float64(modules),
		},
	}
	if totalMs < 200 {
		m.EfficiencyScore = 1.0
	}
	if modules > 0 {
		m.Details["avg_load_time_per_module"] = totalMs / float64(modules)
	}
	if totalMs > 0 {
		m.Throughput = float64(modules) / (totalMs / 1000)
	}
	m.Details["loading_throughput"] = m.Throughput
	return m, nil
}

func (w *Workloads) frameworkInit(context.Context) (Measurement, error) {
	var before runtime.MemStats
	runtime.ReadMemStats(&before)

	start := time.Now()
	l := framework.NewLayout(w.layout.Root, w.layout.ClaudeDir)
	tree, err := framework.Discover(l)
	if err != nil {
		return Measurement{}, fmt.Errorf("initializing framework: %w", err)
	}
	initMs := msSince(start)

	var after runtime.MemStats
	runtime.ReadMemStats(&after)
	allocMB := float64(after.TotalAlloc-before.TotalAlloc) / (1 << 20)

	m := Measurement{
		EfficiencyScore: 0.8,
		MemoryMB:        allocMB,
		Details: map[string]float64{
			"initialization_time_ms": initMs,
			"memory_usage_mb":        allocMB,
			"markdown_files":         float64(len(tree.Markdown)),
			"config_files":           float64(len(tree.Config)),
		},
	}
	if initMs < 50 {
		m.EfficiencyScore = 1.0
	}
	return m, nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Nanoseconds()) / 1e6
}

func clamp01(v float64) float64 {
	return max(0, min(v, 1))
}
