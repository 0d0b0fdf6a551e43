// Package dashboard collects performance metrics from the audited project,
// analyzes them against targets, raises alerts and renders snapshots.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MetricType names a measured quantity.
type MetricType string

const (
	ExecutionTime      MetricType = "execution_time"
	ContextUsage       MetricType = "context_usage"
	CacheEfficiency    MetricType = "cache_efficiency"
	ParallelEfficiency MetricType = "parallel_efficiency"
	UserSatisfaction   MetricType = "user_satisfaction"
	SystemResources    MetricType = "system_resources"
	ErrorRate          MetricType = "error_rate"
)

// MetricTypes returns every metric type in display order.
func MetricTypes() []MetricType {
	return []MetricType{
		ExecutionTime, ContextUsage, CacheEfficiency, ParallelEfficiency,
		UserSatisfaction, SystemResources, ErrorRate,
	}
}

func ParseMetricType(s string) (MetricType, error) {
	t := MetricType(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(MetricTypes(), t) {
		return "", fmt.Errorf("unknown metric type %q", s)
	}
	return t, nil
}

var titler = cases.Title(language.English)

// Title is the display name, e.g. "Execution Time".
func (t MetricType) Title() string {
	return titler.String(strings.ReplaceAll(string(t), "_", " "))
}

// HigherIsBetter reports whether an increase in t is an improvement.
func (t MetricType) HigherIsBetter() bool {
	switch t {
	case CacheEfficiency, ParallelEfficiency, UserSatisfaction:
		return true
	}
	return false
}

// Metric is one recorded data point.
type Metric struct {
	ID        string         `json:"metric_id"`
	Type      MetricType     `json:"metric_type"`
	Value     float64        `json:"value"`
	Timestamp time.Time      `json:"timestamp"`
	Context   map[string]any `json:"context,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
}

// Sample is what a Source reports.
type Sample struct {
	Value   float64
	Context map[string]any
	Tags    []string
}

// ErrNoSample is returned by a Source with nothing to report this round.
var ErrNoSample = errors.New("no sample")

// Source produces one sample per collection round.
type Source func(ctx context.Context) (Sample, error)

// Default limits.
const (
	DefaultMaxPoints    = 1000
	DefaultAlertHistory = 500
	DefaultInterval     = 5 * time.Second
)

type config struct {
	now          func() time.Time
	maxPoints    int
	alertHistory int
}

// Option configures the collector, alert manager and dashboard.
type Option func(*config)

// WithClock sets the time source for timestamps and alert IDs.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithMaxPoints bounds the points kept per metric type.
func WithMaxPoints(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxPoints = n
		}
	}
}

// WithAlertHistory bounds the number of alerts kept in history.
func WithAlertHistory(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.alertHistory = n
		}
	}
}

func newConfig(opts []Option) config {
	c := config{now: time.Now, maxPoints: DefaultMaxPoints, alertHistory: DefaultAlertHistory}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Collector stores metrics per type and polls registered sources. It is
// safe for concurrent use.
type Collector struct {
	now func() time.Time
	max int

	mu      sync.RWMutex
	store   map[MetricType][]Metric
	sources map[MetricType]Source

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCollector(opts ...Option) *Collector {
	cfg := newConfig(opts)
	return &Collector{
		now:     cfg.now,
		max:     cfg.maxPoints,
		store:   map[MetricType][]Metric{},
		sources: map[MetricType]Source{},
	}
}

// Register sets the source polled for t, replacing any previous one.
func (c *Collector) Register(t MetricType, src Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[t] = src
}

// Record stores a data point for t, evicting the oldest beyond the limit.
func (c *Collector) Record(t MetricType, s Sample) Metric {
	m := Metric{
		ID:        uuid.NewString(),
		Type:      t,
		Value:     s.Value,
		Timestamp: c.now(),
		Context:   s.Context,
		Tags:      s.Tags,
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	pts := append(c.store[t], m)
	if len(pts) > c.max {
		pts = slices.Clone(pts[len(pts)-c.max:])
	}
	c.store[t] = pts
	return m
}

// Collect polls every source once. Source failures are logged and joined
// into the returned error; ErrNoSample is skipped silently.
func (c *Collector) Collect(ctx context.Context) error {
	c.mu.RLock()
	types := make([]MetricType, 0, len(c.sources))
	for t := range c.sources {
		types = append(types, t)
	}
	c.mu.RUnlock()
	slices.Sort(types)

	var errs []error
	for _, t := range types {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.mu.RLock()
		src := c.sources[t]
		c.mu.RUnlock()

		s, err := src(ctx)
		switch {
		case errors.Is(err, ErrNoSample):
			slog.Debug("no metric sample", "metric", t)
		case err != nil:
			slog.Error("collecting metric", "metric", t, "error", err)
			errs = append(errs, fmt.Errorf("collecting %s: %w", t, err))
		default:
			c.Record(t, s)
		}
	}
	return errors.Join(errs...)
}

// Start polls sources every interval in a background goroutine until ctx
// is cancelled or Stop is called. The first round runs immediately.
func (c *Collector) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("collection interval must be positive, got %s", interval)
	}
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.cancel != nil {
		return errors.New("collector already running")
	}
	ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			_ = c.Collect(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	slog.Debug("metrics collection started", "interval", interval)
	return nil
}

// Stop cancels collection and waits for the goroutine to exit. It is a
// no-op when collection is not running.
func (c *Collector) Stop() {
	c.runMu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	c.wg.Wait()
	slog.Debug("metrics collection stopped")
}

// Running reports whether background collection is active.
func (c *Collector) Running() bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.cancel != nil
}

// Metrics returns points of type t at or after since (zero means all),
// keeping only the last limit when limit > 0. Oldest first.
func (c *Collector) Metrics(t MetricType, limit int, since time.Time) []Metric {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Metric
	for _, m := range c.store[t] {
		if since.IsZero() || !m.Timestamp.Before(since) {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return slices.Clone(out)
}

// Latest returns the most recent point of type t.
func (c *Collector) Latest(t MetricType) (Metric, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pts := c.store[t]
	if len(pts) == 0 {
		return Metric{}, false
	}
	return pts[len(pts)-1], true
}
