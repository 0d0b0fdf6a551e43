package benchmark

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spboyer/promptaudit/internal/framework"
	"github.com/spboyer/promptaudit/internal/metrics"
	"github.com/spboyer/promptaudit/internal/tokens"
)

var fixedTime = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

type fakeSource struct {
	workloads map[string]Workload
	setupErr  error
}

var _ Source = fakeSource{}

func (f fakeSource) Workload(cfg Config) (Workload, error) {
	w, ok := f.workloads[cfg.Name]
	if !ok {
		return nil, ErrUnknownBenchmark
	}
	return w, nil
}

func (f fakeSource) Setup(s Suite) error {
	if s.SetupRequired {
		return f.setupErr
	}
	return nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSuites(t *testing.T) {
	suites := Suites()
	require.Len(t, suites, 5)

	var names []string
	for _, s := range suites {
		for _, cfg := range s.Benchmarks {
			names = append(names, cfg.Name)
			assert.Equal(t, s.Key, string(cfg.Category), cfg.Name)
		}
	}
	assert.Equal(t, []string{
		BaselineVsEnhanced, XMLOverhead, PromptAssembly,
		ThinkingComplexity, ModuleLoading, FrameworkInit,
	}, names)

	first := suites[0].Benchmarks[0]
	assert.Equal(t, 50, first.Iterations)
	assert.Equal(t, 5, first.Warmup)
	assert.Equal(t, 10*time.Second, first.Timeout)
	assert.True(t, suites[3].SetupRequired)
	assert.Equal(t, "Module Loading and Orchestration", suites[3].Name)

	assert.Len(t, SelectSuites(suites, "thinking_patterns", "framework_overhead"), 2)
	assert.Len(t, SelectSuites(suites), 5)
}

func TestConfigScaled(t *testing.T) {
	cfg := Suites()[0].Benchmarks[0]

	small := cfg.Scaled(0.02)
	assert.Equal(t, 1, small.Iterations)
	assert.Equal(t, 0, small.Warmup)

	tiny := cfg.Scaled(0.0001)
	assert.Equal(t, 1, tiny.Iterations, "at least one measured iteration")

	assert.Equal(t, cfg, cfg.Scaled(0))
}

func TestRun_WarmupIsNotRecorded(t *testing.T) {
	calls := 0
	src := fakeSource{workloads: map[string]Workload{
		"count": func(context.Context) (Measurement, error) {
			calls++
			return Measurement{TokenCount: 7, EfficiencyScore: 1.4, MemoryMB: 2}, nil
		},
	}}
	r := NewRunner(src, WithClock(func() time.Time { return fixedTime }))
	var progress []int
	r.OnProgress(func(done, total int) {
		assert.Equal(t, 5, total)
		progress = append(progress, done)
	})

	results, err := r.Run(context.Background(), Config{Name: "count", Category: CategoryTokenEfficiency, Iterations: 5, Warmup: 2, Timeout: time.Second})
	require.NoError(t, err)
	require.Len(t, results, 5)
	assert.Equal(t, 7, calls)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, progress)

	for i, res := range results {
		_, err := uuid.Parse(res.ID)
		require.NoError(t, err)
		assert.Equal(t, i+1, res.Iteration)
		assert.True(t, res.Success)
		assert.Equal(t, 7, res.TokenCount)
		assert.Equal(t, 1.0, res.EfficiencyScore, "score is clamped")
		assert.Equal(t, 2.0, res.MemoryMB)
		assert.Equal(t, fixedTime, res.Timestamp)
		assert.GreaterOrEqual(t, res.ExecutionMs, 0.0)
		assert.NotNil(t, res.Details)
	}
}

func TestRun_FailuresAreRecorded(t *testing.T) {
	src := fakeSource{workloads: map[string]Workload{
		"boom": func(context.Context) (Measurement, error) { return Measurement{}, errors.New("boom") },
	}}
	results, err := NewRunner(src).Run(context.Background(), Config{Name: "boom", Iterations: 3})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, res := range results {
		assert.False(t, res.Success)
		assert.Equal(t, "boom", res.Error)
		assert.Zero(t, res.MemoryMB)
	}
}

func TestRun_WarmupFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	calls := 0
	src := fakeSource{workloads: map[string]Workload{
		"cold": func(context.Context) (Measurement, error) {
			calls++
			if calls == 1 {
				return Measurement{}, errors.New("cache not primed")
			}
			return Measurement{TokenCount: 3}, nil
		},
	}}
	results, err := NewRunner(src).Run(context.Background(), Config{Name: "cold", Iterations: 2, Warmup: 1})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.True(t, res.Success)
	}
	assert.Contains(t, logs.String(), "benchmark warmup failed")
	assert.Contains(t, logs.String(), "cache not primed")
}

func TestRun_Timeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	src := fakeSource{workloads: map[string]Workload{
		"stuck": func(context.Context) (Measurement, error) {
			<-release
			return Measurement{}, nil
		},
	}}
	results, err := NewRunner(src).Run(context.Background(), Config{Name: "stuck", Iterations: 2, Timeout: 10 * time.Millisecond})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.False(t, res.Success)
		assert.Equal(t, "timed out after 10ms", res.Error)
	}
}

func TestRun_Cancelled(t *testing.T) {
	src := fakeSource{workloads: map[string]Workload{
		"noop": func(context.Context) (Measurement, error) { return Measurement{}, nil },
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := NewRunner(src).Run(ctx, Config{Name: "noop", Iterations: 3})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestRun_UnknownBenchmark(t *testing.T) {
	w := NewWorkloads(framework.NewLayout(t.TempDir(), ""), nil)
	_, err := NewRunner(w).Run(context.Background(), Config{Name: "nope", Iterations: 1})
	require.ErrorIs(t, err, ErrUnknownBenchmark)
}

func TestWorkloads_BaselineVsEnhanced(t *testing.T) {
	w := NewWorkloads(framework.NewLayout(t.TempDir(), ""), nil)
	run, err := w.Workload(Config{Name: BaselineVsEnhanced})
	require.NoError(t, err)

	m, err := run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tokens.Estimate(enhancedPrompt), m.TokenCount)
	assert.Equal(t, tokens.StructureScore(enhancedPrompt), m.EfficiencyScore)
	assert.Equal(t, 9.0, m.Details["baseline_tokens"])
	assert.Equal(t, float64(m.TokenCount-9), m.Details["token_overhead"])
}

func TestWorkloads_XMLOverheadAndAssembly(t *testing.T) {
	w := NewWorkloads(framework.NewLayout(t.TempDir(), ""), nil)

	run, err := w.Workload(Config{Name: XMLOverhead})
	require.NoError(t, err)
	m, err := run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tokens.XMLOverhead(xmlHeavyPrompt), m.Details["xml_overhead_percentage"])

	run, err = w.Workload(Config{Name: PromptAssembly})
	require.NoError(t, err)
	m, err = run(context.Background())
	require.NoError(t, err)
	prompt := AssemblePrompt(assemblyBase, assemblyEnhancements)
	assert.True(t, strings.HasPrefix(prompt, "Analyze this system:\n\n<thinking_pattern>"))
	assert.Equal(t, float64(len(prompt)), m.Details["final_prompt_length"])
	assert.Equal(t, 3.0, m.Details["enhancement_count"])
	assert.Positive(t, m.Throughput)
	assert.InDelta(t, 0.5, m.EfficiencyScore, 0.5)
}

func TestWorkloads_ThinkingPatterns(t *testing.T) {
	w := NewWorkloads(framework.NewLayout(t.TempDir(), ""), nil)
	run, err := w.Workload(Config{Name: ThinkingComplexity})
	require.NoError(t, err)

	m, err := run(context.Background())
	require.NoError(t, err)
	var load []float64
	for _, p := range thinkingPatterns {
		load = append(load, tokens.CognitiveLoad(p))
	}
	assert.Equal(t, 3.0, m.Details["pattern_count"])
	assert.InDelta(t, metrics.Mean(load), m.Details["avg_cognitive_load"], 1e-12)
	assert.InDelta(t, 1-metrics.Mean(load), m.EfficiencyScore, 1e-12)
}

func moduleTree(t *testing.T) framework.Layout {
	t.Helper()
	root := t.TempDir()
	l := framework.NewLayout(root, "")
	writeFile(t, filepath.Join(l.Modules(), "quality", "tdd.md"), strings.Repeat("a", 400))
	writeFile(t, filepath.Join(l.Modules(), "quality", "gates.md"), strings.Repeat("b", 80))
	writeFile(t, filepath.Join(l.Modules(), "patterns", "retry.md"), strings.Repeat("c", 40))
	writeFile(t, filepath.Join(l.Modules(), "other", "ignored.md"), "not a loaded category")
	return l
}

func TestWorkloads_ModuleLoading(t *testing.T) {
	l := moduleTree(t)
	w := NewWorkloads(l, nil)

	loads, err := LoadModules(context.Background(), l)
	require.NoError(t, err)
	require.Len(t, loads, 2)
	assert.Equal(t, 2, loads["quality"].Modules)
	assert.Equal(t, 480, loads["quality"].Bytes)
	assert.Equal(t, 120, loads["quality"].Tokens)

	run, err := w.Workload(Config{Name: ModuleLoading})
	require.NoError(t, err)
	m, err := run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3.0, m.Details["total_modules"])
	assert.Equal(t, 130, m.TokenCount)
	assert.Equal(t, 1.0, m.EfficiencyScore)
}

func TestWorkloads_Setup(t *testing.T) {
	suites := Suites()
	empty := NewWorkloads(framework.NewLayout(t.TempDir(), ""), nil)
	require.Error(t, empty.Setup(suites[3]))
	require.NoError(t, empty.Setup(suites[0]))

	require.NoError(t, NewWorkloads(moduleTree(t), nil).Setup(suites[3]))
}

func TestWorkloads_FrameworkInit(t *testing.T) {
	l := moduleTree(t)
	writeFile(t, filepath.Join(l.ClaudeDir, "settings.json"), "{}")
	run, err := NewWorkloads(l, nil).Workload(Config{Name: FrameworkInit})
	require.NoError(t, err)

	m, err := run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4.0, m.Details["markdown_files"])
	assert.Equal(t, 1.0, m.Details["config_files"])
	assert.Contains(t, []float64{0.8, 1.0}, m.EfficiencyScore)
}

func TestRunSuites_SkipsMissingSetup(t *testing.T) {
	var suites []Suite
	for _, s := range Suites() {
		for i := range s.Benchmarks {
			s.Benchmarks[i] = s.Benchmarks[i].Scaled(0.02)
		}
		suites = append(suites, s)
	}
	r := NewRunner(NewWorkloads(framework.NewLayout(t.TempDir(), ""), nil), WithClock(func() time.Time { return fixedTime }))
	var last, total int
	r.OnProgress(func(d, n int) { last, total = d, n })

	rep, err := r.RunSuites(context.Background(), suites)
	require.NoError(t, err)
	require.Len(t, rep.Skipped, 1)
	assert.Contains(t, rep.Skipped[0], "Module Loading and Orchestration")
	assert.Len(t, rep.Results, 5)
	assert.Equal(t, 5, rep.Total)
	assert.Equal(t, 5, rep.Successful)
	assert.Equal(t, 6, total)
	assert.Equal(t, 6, last)
	assert.Equal(t, FrameworkVersion, rep.FrameworkVersion)
	assert.Equal(t, fixedTime, rep.TestDate)
	assert.False(t, rep.Trends.Sufficient)
	assert.NotEmpty(t, rep.Recommendations)
	assert.NotEmpty(t, rep.Targets)
}

func result(cat Category, ms float64, toks int, eff float64, ok bool) Result {
	return Result{Category: cat, ExecutionMs: ms, TokenCount: toks, EfficiencyScore: eff, Success: ok, Details: map[string]float64{}}
}

func TestSummarize(t *testing.T) {
	results := []Result{
		result(CategoryTokenEfficiency, 10, 100, 0.5, true),
		result(CategoryTokenEfficiency, 20, 0, 0.7, true),
		result(CategoryThinkingPatterns, 30, 100, 0.9, true),
		result(CategoryThinkingPatterns, 40, 200, 0.9, true),
		result(CategoryThinkingPatterns, 500, 0, 0, false),
	}
	s := Summarize(results)

	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 4, s.Successful)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 80.0, s.SuccessRate)
	assert.Equal(t, 25.0, s.Execution.Mean)
	assert.Equal(t, 25.0, s.Execution.Median)
	assert.Equal(t, 30.0, s.Execution.P95)
	assert.InDelta(t, 400.0/3, s.AvgTokenCount, 1e-9)
	assert.InDelta(t, 0.75, s.AvgEfficiency, 1e-9)
	assert.Equal(t, TargetsMet{ExecutionTime: true, Efficiency: true}, s.TargetsMet)
	assert.Equal(t, 25.0, s.ExecutionCI.Mean)
	assert.LessOrEqual(t, s.ExecutionCI.Lower, 25.0)
	assert.GreaterOrEqual(t, s.ExecutionCI.Upper, 25.0)

	want := []CategorySummary{
		{Category: CategoryTokenEfficiency, Count: 2, Successful: 2, AvgExecution: 15, AvgEfficiency: 0.6},
		{Category: CategoryThinkingPatterns, Count: 3, Successful: 2, AvgExecution: 35, AvgEfficiency: 0.9},
	}
	if diff := cmp.Diff(want, s.Categories, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}

	empty := Summarize(nil)
	assert.Zero(t, empty.Total)
	assert.False(t, empty.TargetsMet.ExecutionTime)
}

func TestRecommend(t *testing.T) {
	assert.Equal(t, []string{"No benchmark results available for analysis"}, Recommend(Summary{}))

	healthy := Summary{Total: 10, Successful: 10, SuccessRate: 100, AvgEfficiency: 0.75,
		Execution: metrics.Summary{Mean: 5, P95: 8}}
	assert.Equal(t, []string{"✅ All performance metrics within acceptable ranges"}, Recommend(healthy))

	excellent := healthy
	excellent.AvgEfficiency = 0.85
	assert.Equal(t, []string{"✅ TOKEN EFFICIENCY: Excellent efficiency (0.85) - maintain current approach"}, Recommend(excellent))

	slow := Summary{
		Total: 10, Successful: 8, SuccessRate: 80, AvgEfficiency: 0.5,
		Execution: metrics.Summary{Mean: 120, P95: 250},
		Categories: []CategorySummary{
			{Category: CategoryThinkingPatterns, Successful: 3, AvgExecution: 60},
			{Category: CategoryModulePerformance},
		},
	}
	assert.Equal(t, []string{
		"⚠️ PERFORMANCE: P95 execution time (250.0ms) exceeds 200ms target - optimize critical paths",
		"🔧 OPTIMIZATION: Average execution time (120.0ms) high - consider caching and parallel processing",
		"📝 TOKEN EFFICIENCY: Average efficiency (0.50) below target - optimize prompt structure",
		"🔥 RELIABILITY: Success rate (80.0%) below 95% - improve error handling",
		"⚡ THINKING_PATTERNS: Optimize thinking_patterns operations (60.0ms average)",
	}, Recommend(slow))
}

func TestTrends(t *testing.T) {
	var results []Result
	for i := 9; i >= 0; i-- {
		r := result(CategoryTokenEfficiency, float64(i+1), 0, 1, true)
		r.Timestamp = fixedTime.Add(time.Duration(i) * time.Second)
		results = append(results, r)
	}

	short := Trends(results[:9])
	assert.False(t, short.Sufficient)
	assert.Equal(t, "Insufficient data for trend analysis", short.Note)

	tr := Trends(results)
	require.True(t, tr.Sufficient)
	assert.Equal(t, "declining", tr.Direction)
	assert.Equal(t, 3.0, tr.FirstHalfAvg)
	assert.Equal(t, 8.0, tr.SecondHalfAvg)
	assert.InDelta(t, 500.0/3, tr.MagnitudePercent, 1e-9)
	assert.InDelta(t, metrics.CoefficientOfVariation([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}), tr.CoefficientOfVariation, 1e-12)

	flat := make([]Result, 10)
	for i := range flat {
		flat[i] = result(CategoryTokenEfficiency, 4, 0, 1, true)
	}
	assert.Equal(t, "stable", Trends(flat).Direction)
}

func TestCheckTargets(t *testing.T) {
	fast := result(CategoryPromptConstruction, 5, 10, 1, true)
	fast.Name = PromptAssembly
	fast.Throughput = 2000
	ok := result(CategoryThinkingPatterns, 20, 0, 1, true)
	ok.Name = ThinkingComplexity
	failed := result(CategoryThinkingPatterns, 0, 0, 0, false)
	failed.Name = ThinkingComplexity

	got := CheckTargets(Suites(), []Result{fast, fast, ok, failed})
	want := []TargetCheck{
		{Benchmark: PromptAssembly, Metric: MetricExecutionTime, Target: 10, Actual: 5, Met: true},
		{Benchmark: PromptAssembly, Metric: MetricThroughput, Target: 1000, Actual: 2000, Met: true},
		{Benchmark: ThinkingComplexity, Metric: MetricExecutionTime, Target: 100, Actual: 20, Met: true},
		{Benchmark: ThinkingComplexity, Metric: MetricSuccessRate, Target: 0.95, Actual: 0.5, Met: false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("target checks mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzeDependencies(t *testing.T) {
	root := t.TempDir()
	l := framework.NewLayout(root, "")
	writeFile(t, filepath.Join(l.Modules(), "a.md"), `<module module=".claude/modules/b.md"/>
import shared/util.md
<canonical_source>docs/origin.md</canonical_source>`)
	writeFile(t, filepath.Join(l.Modules(), "b.md"), `depends_on=".claude/modules/a.md" module=".claude/modules/a.md"`)
	writeFile(t, filepath.Join(l.Modules(), "sub", "c.md"), "no dependencies")

	rep, err := AnalyzeDependencies(l)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.TotalModules)
	assert.Equal(t, 4, rep.TotalDependencies)
	assert.InDelta(t, 4.0/3, rep.AveragePerModule, 1e-9)
	assert.Equal(t, rep.AveragePerModule, rep.ComplexityScore)
	assert.Equal(t, []string{".claude/modules/b.md", "docs/origin.md", "shared/util.md"}, rep.Modules[".claude/modules/a.md"])
	assert.Equal(t, [][2]string{{".claude/modules/a.md", ".claude/modules/b.md"}}, rep.Circular)
	assert.Equal(t, 1, rep.CircularCount)

	none, err := AnalyzeDependencies(framework.NewLayout(t.TempDir(), ""))
	require.NoError(t, err)
	assert.Zero(t, none.TotalModules)
	assert.Empty(t, none.Circular)
}

func sampleReport(id string, ms ...float64) Report {
	rep := Report{ID: id, TestDate: fixedTime, FrameworkVersion: FrameworkVersion, Skipped: []string{}}
	for i, v := range ms {
		r := result(CategoryFrameworkOverhead, v, 0, 1, true)
		r.ID = uuid.NewString()
		r.Name = FrameworkInit
		r.Iteration = i + 1
		r.Timestamp = fixedTime.Add(time.Duration(i) * time.Millisecond)
		rep.Results = append(rep.Results, r)
	}
	rep.finish()
	return rep
}

func TestHistory(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "history"))

	none, err := h.Load()
	require.NoError(t, err)
	assert.Empty(t, none)
	last, err := h.Last()
	require.NoError(t, err)
	assert.Nil(t, last)

	first := sampleReport("run-1", 10, 12, 11)
	second := sampleReport("run-2", 9, 8, 10)
	require.NoError(t, h.Append(first))
	require.NoError(t, h.Append(second))

	got, err := h.Load()
	require.NoError(t, err)
	if diff := cmp.Diff([]Report{first, second}, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("history round trip mismatch (-want +got):\n%s", diff)
	}

	h.limit = 2
	require.NoError(t, h.Append(sampleReport("run-3", 7)))
	got, err = h.Load()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "run-2", got[0].ID)
	assert.Equal(t, "run-3", got[1].ID)

	last, err = h.Last()
	require.NoError(t, err)
	assert.Equal(t, "run-3", last.ID)
}

func TestHistory_Corrupt(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, HistoryFile), "not zstd")
	_, err := NewHistory(dir).Load()
	require.Error(t, err)
}

func TestCompare(t *testing.T) {
	base := sampleReport("base", 100, 102, 98, 101, 99, 100)
	cur := sampleReport("cur", 10, 12, 9, 11, 10, 10)

	c := Compare(&base, &cur, 1)
	assert.Equal(t, "base", c.BaselineID)
	assert.Equal(t, 100.0, c.BaselineAvg)
	assert.InDelta(t, 62.0/6, c.CurrentAvg, 1e-9)
	assert.True(t, c.Significant)
	assert.Equal(t, "faster", c.Verdict)

	same := Compare(&base, &base, 1)
	assert.False(t, same.Significant)
	assert.Equal(t, "unchanged", same.Verdict)
}

func TestSave(t *testing.T) {
	rep := sampleReport("saved", 1, 2)
	path, err := Save(&rep, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "performance_benchmark_report_20261016_093000.json", filepath.Base(path))
	assert.FileExists(t, path)
}
