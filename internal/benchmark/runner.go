package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
)

// Result is one measured iteration of a benchmark.
type Result struct {
	ID              string             `json:"benchmark_id"`
	Name            string             `json:"benchmark_name"`
	Category        Category           `json:"category"`
	Iteration       int                `json:"iteration"`
	ExecutionMs     float64            `json:"execution_time_ms"`
	TokenCount      int                `json:"token_count"`
	EfficiencyScore float64            `json:"token_efficiency_score"`
	MemoryMB        float64            `json:"memory_usage_mb"`
	Throughput      float64            `json:"throughput,omitempty"`
	Success         bool               `json:"success"`
	Error           string             `json:"error_message,omitempty"`
	Details         map[string]float64 `json:"detailed_metrics"`
	Timestamp       time.Time          `json:"timestamp"`
}

// Runner executes benchmarks from a Source.
type Runner struct {
	source     Source
	now        func() time.Time
	onProgress func(done, total int)
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock sets the time source for result timestamps. Durations are
// always measured with the monotonic clock.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func NewRunner(source Source, opts ...Option) *Runner {
	r := &Runner{source: source, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnProgress registers fn to be called after every measured iteration.
func (r *Runner) OnProgress(fn func(done, total int)) {
	r.onProgress = fn
}

// Run executes cfg.Warmup unrecorded iterations followed by
// cfg.Iterations measured ones. A failed or timed-out iteration is
// recorded as an unsuccessful Result; only cancellation of ctx stops the
// run early, returning the results gathered so far with the error.
func (r *Runner) Run(ctx context.Context, cfg Config) ([]Result, error) {
	return r.run(ctx, cfg, 0, cfg.Iterations)
}

func (r *Runner) run(ctx context.Context, cfg Config, done, total int) ([]Result, error) {
	w, err := r.source.Workload(cfg)
	if err != nil {
		return nil, fmt.Errorf("benchmark %s: %w", cfg.Name, err)
	}
	slog.Debug("running benchmark", "name", cfg.Name, "warmup", cfg.Warmup, "iterations", cfg.Iterations)

	for range cfg.Warmup {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("benchmark %s cancelled: %w", cfg.Name, err)
		}
		if _, err := r.execute(ctx, cfg, w); err != nil {
			slog.Debug("benchmark warmup failed", "name", cfg.Name, "error", err)
		}
	}

	results := make([]Result, 0, cfg.Iterations)
	for i := range cfg.Iterations {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("benchmark %s cancelled: %w", cfg.Name, err)
		}
		results = append(results, r.measure(ctx, cfg, w, i+1))
		if r.onProgress != nil {
			r.onProgress(done+i+1, total)
		}
	}
	return results, nil
}

func (r *Runner) measure(ctx context.Context, cfg Config, w Workload, iteration int) Result {
	res := Result{
		ID:        uuid.NewString(),
		Name:      cfg.Name,
		Category:  cfg.Category,
		Iteration: iteration,
		Timestamp: r.now(),
	}

	start := time.Now()
	m, err := r.execute(ctx, cfg, w)
	res.ExecutionMs = msSince(start)

	if err != nil {
		res.Error = err.Error()
		res.Details = map[string]float64{}
		return res
	}

	res.Success = true
	res.TokenCount = m.TokenCount
	res.EfficiencyScore = clamp01(m.EfficiencyScore)
	res.Throughput = m.Throughput
	res.Details = m.Details
	if res.Details == nil {
		res.Details = map[string]float64{}
	}
	res.MemoryMB = m.MemoryMB
	if res.MemoryMB == 0 {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		res.MemoryMB = float64(ms.HeapAlloc) / (1 << 20)
	}
	return res
}

type outcome struct {
	m   Measurement
	err error
}

// execute runs w under the per-iteration timeout. A workload that ignores
// its context is abandoned when the timeout fires.
func (r *Runner) execute(ctx context.Context, cfg Config, w Workload) (Measurement, error) {
	if cfg.Timeout <= 0 {
		return w(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	ch := make(chan outcome, 1)
	go func() {
		m, err := w(ctx)
		ch <- outcome{m, err}
	}()
	select {
	case o := <-ch:
		return o.m, o.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Measurement{}, fmt.Errorf("timed out after %s", cfg.Timeout)
		}
		return Measurement{}, ctx.Err()
	}
}

// RunSuites runs every benchmark of every suite and assembles the report.
// Suites whose setup is missing are skipped and listed in the report.
func (r *Runner) RunSuites(ctx context.Context, suites []Suite) (*Report, error) {
	total := 0
	for _, s := range suites {
		for _, cfg := range s.Benchmarks {
			total += cfg.Iterations
		}
	}

	rep := &Report{
		ID:               uuid.NewString(),
		TestDate:         r.now(),
		FrameworkVersion: FrameworkVersion,
		Results:          []Result{},
		Skipped:          []string{},
	}
	done := 0
	for _, s := range suites {
		if err := r.source.Setup(s); err != nil {
			slog.Warn("skipping benchmark suite", "suite", s.Name, "error", err)
			rep.Skipped = append(rep.Skipped, fmt.Sprintf("%s: %v", s.Name, err))
			for _, cfg := range s.Benchmarks {
				done += cfg.Iterations
			}
			continue
		}
		for _, cfg := range s.Benchmarks {
			results, err := r.run(ctx, cfg, done, total)
			rep.Results = append(rep.Results, results...)
			if err != nil {
				return nil, err
			}
			done += cfg.Iterations
		}
	}
	rep.finish()
	return rep, nil
}
