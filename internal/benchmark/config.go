// Package benchmark measures how a prompt framework spends time, memory
// and tokens: token efficiency of structured prompts, prompt assembly,
// thinking-pattern analysis, module loading and framework initialization.
package benchmark

import (
	"math"
	"time"
)

// Category groups related benchmarks.
type Category string

const (
	CategoryTokenEfficiency    Category = "token_efficiency"
	CategoryPromptConstruction Category = "prompt_construction"
	CategoryThinkingPatterns   Category = "thinking_patterns"
	CategoryModulePerformance  Category = "module_performance"
	CategoryFrameworkOverhead  Category = "framework_overhead"
)

// Categories lists every category in report order.
func Categories() []Category {
	return []Category{
		CategoryTokenEfficiency,
		CategoryPromptConstruction,
		CategoryThinkingPatterns,
		CategoryModulePerformance,
		CategoryFrameworkOverhead,
	}
}

// Metric names a target a benchmark is held to.
type Metric string

const (
	MetricExecutionTime   Metric = "execution_time"
	MetricTokenCount      Metric = "token_count"
	MetricTokenEfficiency Metric = "token_efficiency"
	MetricMemoryUsage     Metric = "memory_usage"
	MetricThroughput      Metric = "throughput"
	MetricLatency         Metric = "latency"
	MetricSuccessRate     Metric = "success_rate"
)

// Config describes one benchmark.
type Config struct {
	Name        string             `json:"benchmark_name"`
	Category    Category           `json:"category"`
	Iterations  int                `json:"iterations"`
	Warmup      int                `json:"warmup_iterations"`
	Timeout     time.Duration      `json:"timeout"`
	Targets     map[Metric]float64 `json:"target_metrics"`
	Environment map[string]string  `json:"environment_info"`
}

// Scaled multiplies the iteration and warmup counts by f. At least one
// measured iteration is kept.
func (c Config) Scaled(f float64) Config {
	if f <= 0 || f == 1 {
		return c
	}
	c.Iterations = max(1, int(math.Round(float64(c.Iterations)*f)))
	c.Warmup = max(0, int(math.Round(float64(c.Warmup)*f)))
	return c
}

// Suite is a named collection of benchmarks. SetupRequired suites need a
// modules tree to be present.
type Suite struct {
	Key           string   `json:"key"`
	Name          string   `json:"suite_name"`
	Description   string   `json:"description"`
	Benchmarks    []Config `json:"benchmarks"`
	SetupRequired bool     `json:"setup_required"`
}

// Benchmark names.
const (
	BaselineVsEnhanced = "baseline_vs_enhanced_token_usage"
	XMLOverhead        = "xml_structure_overhead"
	PromptAssembly     = "prompt_assembly_performance"
	ThinkingComplexity = "thinking_pattern_complexity"
	ModuleLoading      = "module_loading_performance"
	FrameworkInit      = "framework_initialization_overhead"
)

func config(name string, cat Category, iterations, warmup int, timeout time.Duration, targets map[Metric]float64, testType string) Config {
	return Config{
		Name:        name,
		Category:    cat,
		Iterations:  iterations,
		Warmup:      warmup,
		Timeout:     timeout,
		Targets:     targets,
		Environment: map[string]string{"test_type": testType},
	}
}

// Suites returns the standard benchmark suites.
func Suites() []Suite {
	return []Suite{
		{
			Key:         string(CategoryTokenEfficiency),
			Name:        "Token Efficiency Analysis",
			Description: "Analyzes token usage efficiency across different prompt structures",
			Benchmarks: []Config{
				config(BaselineVsEnhanced, CategoryTokenEfficiency, 50, 5, 10*time.Second,
					map[Metric]float64{MetricTokenEfficiency: 0.8, MetricExecutionTime: 50}, "token_comparison"),
				config(XMLOverhead, CategoryTokenEfficiency, 30, 3, 5*time.Second,
					map[Metric]float64{MetricTokenEfficiency: 0.75, MetricTokenCount: 500}, "xml_overhead"),
			},
		},
		{
			Key:         string(CategoryPromptConstruction),
			Name:        "Prompt Construction Performance",
			Description: "Benchmarks prompt assembly and construction performance",
			Benchmarks: []Config{
				config(PromptAssembly, CategoryPromptConstruction, 100, 10, 5*time.Second,
					map[Metric]float64{MetricExecutionTime: 10, MetricThroughput: 1000}, "assembly_speed"),
			},
		},
		{
			Key:         string(CategoryThinkingPatterns),
			Name:        "Thinking Pattern Performance",
			Description: "Analyzes performance of different thinking pattern approaches",
			Benchmarks: []Config{
				config(ThinkingComplexity, CategoryThinkingPatterns, 25, 3, 15*time.Second,
					map[Metric]float64{MetricExecutionTime: 100, MetricSuccessRate: 0.95}, "pattern_analysis"),
			},
		},
		{
			Key:         string(CategoryModulePerformance),
			Name:        "Module Loading and Orchestration",
			Description: "Benchmarks module loading, dependency resolution, and orchestration",
			Benchmarks: []Config{
				config(ModuleLoading, CategoryModulePerformance, 20, 2, 30*time.Second,
					map[Metric]float64{MetricExecutionTime: 200, MetricThroughput: 100}, "module_loading"),
			},
			SetupRequired: true,
		},
		{
			Key:         string(CategoryFrameworkOverhead),
			Name:        "Framework Overhead Analysis",
			Description: "Measures framework overhead and optimization opportunities",
			Benchmarks: []Config{
				config(FrameworkInit, CategoryFrameworkOverhead, 15, 2, 10*time.Second,
					map[Metric]float64{MetricExecutionTime: 100, MetricMemoryUsage: 50}, "initialization"),
			},
		},
	}
}

// SelectSuites keeps the suites whose Key is in keys. No keys keeps all.
func SelectSuites(suites []Suite, keys ...string) []Suite {
	if len(keys) == 0 {
		return suites
	}
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	var out []Suite
	for _, s := range suites {
		if want[s.Key] {
			out = append(out, s)
		}
	}
	return out
}
