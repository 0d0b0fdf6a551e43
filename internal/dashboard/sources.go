package dashboard

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spboyer/promptaudit/internal/cache"
	"github.com/spboyer/promptaudit/internal/framework"
	"github.com/spboyer/promptaudit/internal/metrics"
	"github.com/spboyer/promptaudit/internal/ux"
)

// Project measures an audited framework tree. Cache and Tracker are
// optional; their sources report nothing when unset.
type Project struct {
	Layout  framework.Layout
	Loader  *framework.Loader
	Cache   *cache.Cache
	Tracker *ux.Tracker
	Workers int
}

// Register installs every project source on c.
func (p *Project) Register(c *Collector) {
	c.Register(ExecutionTime, p.ExecutionTime)
	c.Register(ContextUsage, p.ContextUsage)
	c.Register(CacheEfficiency, p.CacheEfficiency)
	c.Register(ParallelEfficiency, p.ParallelEfficiency)
	c.Register(UserSatisfaction, p.UserSatisfaction)
	c.Register(SystemResources, HeapUsage)
	c.Register(ErrorRate, p.ErrorRate)
}

type scanResult struct {
	files   int
	tokens  int
	failed  int
	elapsed time.Duration
}

// scan discovers the tree and loads every markdown file through the
// loader, counting unreadable files and invalid frontmatter as failures.
func (p *Project) scan(ctx context.Context) (scanResult, error) {
	start := time.Now()
	tree, err := framework.Discover(p.Layout)
	if err != nil {
		return scanResult{}, err
	}
	loader := p.Loader
	if loader == nil {
		loader = framework.NewLoader(nil)
	}
	res := scanResult{files: len(tree.Markdown)}
	for _, path := range tree.Markdown {
		if err := ctx.Err(); err != nil {
			return scanResult{}, err
		}
		doc, err := loader.Load(path)
		if err != nil {
			res.failed++
			continue
		}
		res.tokens += doc.Tokens
		if doc.HasFrontmatter && doc.FrontmatterErr != "" {
			res.failed++
		}
	}
	res.elapsed = time.Since(start)
	return res, nil
}

// ExecutionTime is the wall time of a full scan in milliseconds.
func (p *Project) ExecutionTime(ctx context.Context) (Sample, error) {
	res, err := p.scan(ctx)
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		Value:   float64(res.elapsed.Microseconds()) / 1000,
		Context: map[string]any{"files": res.files},
		Tags:    []string{"scan"},
	}, nil
}

// ContextUsage is the estimated token count of every markdown file.
func (p *Project) ContextUsage(ctx context.Context) (Sample, error) {
	res, err := p.scan(ctx)
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		Value:   float64(res.tokens),
		Context: map[string]any{"files": res.files},
		Tags:    []string{"tokens"},
	}, nil
}

// ErrorRate is the percentage of markdown files that failed to load or
// carry invalid frontmatter.
func (p *Project) ErrorRate(ctx context.Context) (Sample, error) {
	res, err := p.scan(ctx)
	if err != nil {
		return Sample{}, err
	}
	if res.files == 0 {
		return Sample{}, ErrNoSample
	}
	return Sample{
		Value:   metrics.Percent(res.failed, res.files),
		Context: map[string]any{"files": res.files, "failed": res.failed},
	}, nil
}

// CacheEfficiency is the document cache hit rate in [0, 1].
func (p *Project) CacheEfficiency(context.Context) (Sample, error) {
	if p.Cache == nil {
		return Sample{}, ErrNoSample
	}
	s := p.Cache.Stats()
	if s.Hits+s.Misses == 0 {
		return Sample{}, ErrNoSample
	}
	return Sample{
		Value:   s.HitRate,
		Context: map[string]any{"hits": s.Hits, "misses": s.Misses},
	}, nil
}

// ParallelEfficiency reads every markdown file sequentially and then with
// Workers goroutines, reporting speedup per worker capped at 1.
func (p *Project) ParallelEfficiency(ctx context.Context) (Sample, error) {
	tree, err := framework.Discover(p.Layout)
	if err != nil {
		return Sample{}, err
	}
	if len(tree.Markdown) == 0 {
		return Sample{}, ErrNoSample
	}
	workers := max(p.Workers, 1)

	start := time.Now()
	for _, path := range tree.Markdown {
		if _, err := framework.ReadDocument(path); err != nil {
			return Sample{}, err
		}
	}
	sequential := time.Since(start)

	start = time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range tree.Markdown {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := framework.ReadDocument(path)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Sample{}, fmt.Errorf("parallel read: %w", err)
	}
	parallel := time.Since(start)
	if parallel <= 0 {
		return Sample{}, ErrNoSample
	}

	speedup := float64(sequential) / float64(parallel)
	return Sample{
		Value: min(speedup/float64(workers), 1),
		Context: map[string]any{
			"files":         len(tree.Markdown),
			"workers":       workers,
			"speedup":       speedup,
			"sequential_ms": float64(sequential.Microseconds()) / 1000,
			"parallel_ms":   float64(parallel.Microseconds()) / 1000,
		},
	}, nil
}

// UserSatisfaction is the tracker's operation success rate in percent.
func (p *Project) UserSatisfaction(context.Context) (Sample, error) {
	if p.Tracker == nil {
		return Sample{}, ErrNoSample
	}
	s := p.Tracker.Summary()
	if s.Operations == 0 {
		return Sample{}, ErrNoSample
	}
	return Sample{
		Value:   s.SuccessRate,
		Context: map[string]any{"operations": s.Operations, "mean_duration_seconds": s.Duration.Mean},
	}, nil
}

// HeapUsage is allocated heap as a percentage of heap reserved from the
// OS.
func HeapUsage(context.Context) (Sample, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	if ms.HeapSys == 0 {
		return Sample{}, ErrNoSample
	}
	return Sample{
		Value: float64(ms.HeapAlloc) / float64(ms.HeapSys) * 100,
		Context: map[string]any{
			"heap_alloc": ms.HeapAlloc,
			"heap_sys":   ms.HeapSys,
			"goroutines": runtime.NumGoroutine(),
		},
	}, nil
}
