package conformance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spboyer/promptaudit/internal/framework"
)

// Targets are the pass thresholds for performance tests and grading.
type Targets struct {
	FileProcessingMS float64 `json:"file_processing_ms"`
	BatchSeconds     float64 `json:"batch_processing_s"`
	MemoryMB         float64 `json:"memory_usage_mb"`
	Coverage         float64 `json:"coverage_percentage"`
	SuccessRate      float64 `json:"success_rate"`
}

// DefaultTargets returns the standard suite thresholds.
func DefaultTargets() Targets {
	return Targets{
		FileProcessingMS: 1.0,
		BatchSeconds:     0.2,
		MemoryMB:         50.0,
		Coverage:         95.0,
		SuccessRate:      85.0,
	}
}

// DefaultWorkers is the per-file test concurrency.
const DefaultWorkers = 4

// Runner plans and executes the conformance suite.
type Runner struct {
	layout     framework.Layout
	workers    int
	targets    Targets
	onProgress func(done, total int)
	now        func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers bounds the number of files tested concurrently.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithTargets overrides the default thresholds.
func WithTargets(t Targets) Option {
	return func(r *Runner) { r.targets = t }
}

// WithProgress registers a callback invoked after each file finishes.
func WithProgress(fn func(done, total int)) Option {
	return func(r *Runner) { r.onProgress = fn }
}

func NewRunner(layout framework.Layout, opts ...Option) *Runner {
	r := &Runner{
		layout:  layout,
		workers: DefaultWorkers,
		targets: DefaultTargets(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run discovers the tree, executes every test and builds the report.
// Per-file tests run concurrently; results keep discovery order.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	tree, err := framework.Discover(r.layout)
	if err != nil {
		return nil, fmt.Errorf("discovering test subjects: %w", err)
	}
	groups, subjects := Subjects(r.layout, tree)
	slog.Debug("planned conformance subjects", "files", len(subjects))

	perFile := make([][]TestCase, len(subjects))
	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, s := range subjects {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perFile[i] = runFile(s.Path, planFile(s))
			if r.onProgress != nil {
				mu.Lock()
				done++
				r.onProgress(done, len(subjects))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("running conformance tests: %w", err)
	}

	var cases []TestCase
	for _, fc := range perFile {
		cases = append(cases, fc...)
	}
	cases = append(cases, r.integrationTests()...)
	cases = append(cases, r.performanceTests()...)

	report := buildReport(r.layout, groups, cases, r.targets)
	report.Timestamp = r.now().UTC().Format(time.RFC3339)
	report.Duration = time.Since(start)
	return report, nil
}

func (r *Runner) commandFiles() []string {
	return framework.Glob(r.layout.Commands(), ".md", true)
}

func timed(tc TestCase, fn func(*TestCase)) TestCase {
	start := time.Now()
	fn(&tc)
	tc.Duration = time.Since(start)
	return tc
}

func suiteCase(name string, t TestType, ft framework.FileType, desc string) TestCase {
	return TestCase{Name: name, Type: t, File: Multiple, FileType: ft, Description: desc, Status: StatusSkip}
}

func (r *Runner) integrationTests() []TestCase {
	assembly := timed(suiteCase("component_assembly_integration", TypeIntegration, framework.FileComponent,
		"Test component assembly and integration patterns"), func(tc *TestCase) {
		dir := r.layout.Components()
		if !framework.IsDir(dir) {
			tc.Status = StatusSkip
			tc.Message = "No components directory found"
			return
		}
		n := 0
		for _, f := range framework.Glob(dir, ".md", true) {
			name := strings.ToLower(filepath.Base(f))
			if strings.Contains(name, "assembly") || strings.Contains(name, "guide") {
				n++
			}
		}
		if n == 0 {
			tc.fail("No component assembly documentation found")
			return
		}
		tc.pass(fmt.Sprintf("Found %d assembly guides", n))
	})

	workflow := timed(suiteCase("workflow_integration", TypeIntegration, framework.FileCommand,
		"Test complete workflow integrations"), func(tc *TestCase) {
		n, err := countContaining(r.commandFiles(), func(c string) bool {
			lower := strings.ToLower(c)
			return strings.Contains(lower, "workflow") || strings.Contains(lower, "integration")
		})
		switch {
		case err != nil:
			tc.errored("Integration test error: %v", err)
		case n == 0:
			tc.fail("No workflow integration patterns found")
		default:
			tc.pass(fmt.Sprintf("Found %d workflow patterns", n))
		}
	})

	crossRef := timed(suiteCase("cross_reference_validation", TypeIntegration, framework.FileDocumentation,
		"Validate cross-references between components and commands"), func(tc *TestCase) {
		n, err := countContaining(framework.Glob(r.layout.ClaudeDir, ".md", true), func(c string) bool {
			return strings.Contains(c, "components/") || strings.Contains(c, "commands/")
		})
		switch {
		case err != nil:
			tc.errored("Integration test error: %v", err)
		case n == 0:
			tc.fail("No cross-references found")
		default:
			tc.pass(fmt.Sprintf("Found %d cross-references", n))
		}
	})
	return []TestCase{assembly, workflow, crossRef}
}

func countContaining(files []string, match func(string) bool) (int, error) {
	n := 0
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return 0, err
		}
		if match(string(data)) {
			n++
		}
	}
	return n, nil
}

func (r *Runner) performanceTests() []TestCase {
	t := r.targets

	single := timed(suiteCase("single_file_performance", TypePerformance, framework.FileCommand,
		"Test single file processing performance"), func(tc *TestCase) {
		files := r.commandFiles()
		if len(files) > 10 {
			files = files[:10]
		}
		if len(files) == 0 {
			tc.Status = StatusSkip
			tc.Message = "No command files found"
			return
		}
		var total time.Duration
		for _, f := range files {
			start := time.Now()
			data, err := os.ReadFile(f)
			if err != nil {
				tc.errored("Performance test error: %v", err)
				return
			}
			_, _, _ = framework.SplitFrontmatter(string(data))
			total += time.Since(start)
		}
		avg := float64(total.Microseconds()) / 1000 / float64(len(files))
		if avg <= t.FileProcessingMS {
			tc.pass(fmt.Sprintf("Average: %.2fms (target: %gms)", avg, t.FileProcessingMS))
		} else {
			tc.fail("Performance target missed: %.2fms > %gms", avg, t.FileProcessingMS)
		}
	})

	batch := timed(suiteCase("batch_processing_performance", TypePerformance, framework.FileCommand,
		"Test batch processing performance"), func(tc *TestCase) {
		start := time.Now()
		files := r.commandFiles()
		delimited := 0
		for _, f := range files {
			data, err := os.ReadFile(f)
			if err != nil {
				tc.errored("Performance test error: %v", err)
				return
			}
			content := string(data)
			if strings.HasPrefix(content, "---") && len(content) > 4 && strings.Contains(content[4:], "---") {
				delimited++
			}
		}
		secs := time.Since(start).Seconds()
		if secs <= t.BatchSeconds {
			tc.pass(fmt.Sprintf("Batch time: %.3fs for %d files, %d with frontmatter (target: %gs)", secs, len(files), delimited, t.BatchSeconds))
		} else {
			tc.fail("Batch performance target missed: %.3fs > %gs", secs, t.BatchSeconds)
		}
	})

	memory := timed(suiteCase("memory_usage_test", TypePerformance, framework.FileDocumentation,
		"Test memory usage during processing"), func(tc *TestCase) {
		mb, err := contentFootprintMB(framework.Glob(r.layout.ClaudeDir, ".md", true))
		if err != nil {
			tc.errored("Performance test error: %v", err)
			return
		}
		if mb <= t.MemoryMB {
			tc.pass(fmt.Sprintf("Memory usage: %.1fMB (target: %gMB)", mb, t.MemoryMB))
		} else {
			tc.fail("Memory target exceeded: %.1fMB > %gMB", mb, t.MemoryMB)
		}
	})
	return []TestCase{single, batch, memory}
}

// contentFootprintMB measures heap growth while holding every file in
// memory at once.
func contentFootprintMB(files []string) (float64, error) {
	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	contents := make([]string, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return 0, err
		}
		contents = append(contents, string(data))
	}
	runtime.ReadMemStats(&after)
	runtime.KeepAlive(contents)
	if after.HeapAlloc < before.HeapAlloc {
		return 0, nil
	}
	return float64(after.HeapAlloc-before.HeapAlloc) / 1024 / 1024, nil
}
