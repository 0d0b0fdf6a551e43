package dashboard

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/spboyer/promptaudit/internal/metrics"
)

// AnalysisWindow is the number of recent points summarized per type.
const AnalysisWindow = 100

// MinTrendPoints is the fewest points needed for a trend.
const MinTrendPoints = 10

// TimeRange spans the first and last summarized points.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MetricSummary describes the recent points of one metric type.
type MetricSummary struct {
	metrics.Summary
	Latest    float64   `json:"latest_value"`
	TimeRange TimeRange `json:"time_range"`
}

// Direction is the sense of a trend.
type Direction string

const (
	Improving        Direction = "improving"
	Degrading        Direction = "degrading"
	Stable           Direction = "stable"
	InsufficientData Direction = "insufficient_data"
)

// Trend compares the first and second halves of the recent points.
type Trend struct {
	Direction         Direction `json:"trend"`
	MagnitudePercent  float64   `json:"magnitude_percent,omitempty"`
	VolatilityPercent float64   `json:"volatility_percent,omitempty"`
	FirstHalfAvg      float64   `json:"first_half_avg,omitempty"`
	SecondHalfAvg     float64   `json:"second_half_avg,omitempty"`
	DataPoints        int       `json:"data_points,omitempty"`
}

// Operator compares an actual value against a target value.
type Operator string

const (
	Greater      Operator = ">"
	Less         Operator = "<"
	GreaterEqual Operator = ">="
	LessEqual    Operator = "<="
	Equal        Operator = "=="
)

// Holds reports whether actual op target is true. Unknown operators
// never hold.
func (op Operator) Holds(actual, target float64) bool {
	switch op {
	case Greater:
		return actual > target
	case Less:
		return actual < target
	case GreaterEqual:
		return actual >= target
	case LessEqual:
		return actual <= target
	case Equal:
		return math.Abs(actual-target) < 0.001
	}
	return false
}

// Target is a threshold on the latest value of a metric.
type Target struct {
	ID          string     `json:"target_id"`
	Metric      MetricType `json:"metric_type"`
	Value       float64    `json:"target_value"`
	Operator    Operator   `json:"comparison_operator"`
	Description string     `json:"description"`
	Level       AlertLevel `json:"alert_level"`
}

// DefaultTargets are the targets a dashboard starts with.
func DefaultTargets() []Target {
	return []Target{
		{
			ID: "execution_time_target", Metric: ExecutionTime, Value: 2000, Operator: Less,
			Description: "Execution time should be under 2 seconds", Level: Warning,
		},
		{
			ID: "context_usage_target", Metric: ContextUsage, Value: 40000, Operator: Less,
			Description: "Context usage should be under 40K tokens", Level: Warning,
		},
		{
			ID: "cache_efficiency_target", Metric: CacheEfficiency, Value: 0.7, Operator: Greater,
			Description: "Cache hit rate should be above 70%", Level: Info,
		},
		{
			ID: "heap_usage_target", Metric: SystemResources, Value: 80, Operator: Less,
			Description: "Heap usage should be under 80% of reserved heap", Level: Critical,
		},
	}
}

// Compliance is the result of checking one target.
type Compliance struct {
	Compliant         bool    `json:"compliant"`
	Reason            string  `json:"reason,omitempty"`
	Target            float64 `json:"target_value"`
	Actual            float64 `json:"actual_value"`
	Difference        float64 `json:"difference"`
	DifferencePercent float64 `json:"difference_percent"`
}

// ReasonNoData marks a target checked before any point was recorded.
const ReasonNoData = "no_data"

// Analysis is a point-in-time view of every metric and target.
type Analysis struct {
	Timestamp       time.Time                    `json:"timestamp"`
	Summaries       map[MetricType]MetricSummary `json:"metric_summaries"`
	Compliance      map[string]Compliance        `json:"target_compliance"`
	Trends          map[MetricType]Trend         `json:"trend_analysis"`
	Recommendations []string                     `json:"recommendations"`
}

// Analyzer summarizes collected metrics and checks targets.
type Analyzer struct {
	c *Collector

	mu      sync.RWMutex
	targets []Target
}

func NewAnalyzer(c *Collector) *Analyzer {
	return &Analyzer{c: c}
}

// AddTarget registers t, replacing a target with the same ID.
func (a *Analyzer) AddTarget(t Target) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.targets {
		if a.targets[i].ID == t.ID {
			a.targets[i] = t
			return
		}
	}
	a.targets = append(a.targets, t)
}

// Targets returns the registered targets in registration order.
func (a *Analyzer) Targets() []Target {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]Target(nil), a.targets...)
}

// Check compares the latest point of t's metric against t.
func (a *Analyzer) Check(t Target) Compliance {
	latest, ok := a.c.Latest(t.Metric)
	if !ok {
		return Compliance{Reason: ReasonNoData, Target: t.Value}
	}
	c := Compliance{
		Compliant:  t.Operator.Holds(latest.Value, t.Value),
		Target:     t.Value,
		Actual:     latest.Value,
		Difference: latest.Value - t.Value,
	}
	if t.Value != 0 {
		c.DifferencePercent = c.Difference / t.Value * 100
	}
	return c
}

// Analyze summarizes the last AnalysisWindow points of every type, checks
// all targets and derives recommendations.
func (a *Analyzer) Analyze() Analysis {
	an := Analysis{
		Timestamp:  a.c.now(),
		Summaries:  map[MetricType]MetricSummary{},
		Compliance: map[string]Compliance{},
		Trends:     map[MetricType]Trend{},
	}
	for _, t := range MetricTypes() {
		pts := a.c.Metrics(t, AnalysisWindow, time.Time{})
		if len(pts) == 0 {
			continue
		}
		an.Summaries[t] = Summarize(pts)
		an.Trends[t] = AnalyzeTrend(t, pts)
	}
	for _, t := range a.Targets() {
		an.Compliance[t.ID] = a.Check(t)
	}
	an.Recommendations = Recommend(an)
	return an
}

func values(pts []Metric) []float64 {
	out := make([]float64, len(pts))
	for i, m := range pts {
		out[i] = m.Value
	}
	return out
}

// Summarize describes pts, which must be ordered oldest first.
func Summarize(pts []Metric) MetricSummary {
	if len(pts) == 0 {
		return MetricSummary{}
	}
	return MetricSummary{
		Summary:   metrics.Describe(values(pts)),
		Latest:    pts[len(pts)-1].Value,
		TimeRange: TimeRange{Start: pts[0].Timestamp, End: pts[len(pts)-1].Timestamp},
	}
}

// AnalyzeTrend compares the mean of the older half of pts with the newer
// half. Whether a move is an improvement depends on t.
func AnalyzeTrend(t MetricType, pts []Metric) Trend {
	if len(pts) < MinTrendPoints {
		return Trend{Direction: InsufficientData}
	}
	vals := values(pts)
	mid := len(vals) / 2
	first, second := metrics.Mean(vals[:mid]), metrics.Mean(vals[mid:])

	tr := Trend{
		FirstHalfAvg:      first,
		SecondHalfAvg:     second,
		DataPoints:        len(vals),
		VolatilityPercent: metrics.CoefficientOfVariation(vals) * 100,
	}
	if first != 0 {
		tr.MagnitudePercent = math.Abs(second-first) / first * 100
	}
	switch {
	case second == first:
		tr.Direction = Stable
	case (second > first) == t.HigherIsBetter():
		tr.Direction = Improving
	default:
		tr.Direction = Degrading
	}
	return tr
}

// Recommend derives optimization hints from an analysis.
func Recommend(an Analysis) []string {
	var recs []string
	if s, ok := an.Summaries[ExecutionTime]; ok {
		switch {
		case s.Mean > 2000:
			recs = append(recs, fmt.Sprintf("⚠️ High execution time (%.1fms) - consider parallel processing", s.Mean))
		case s.Mean > 1000:
			recs = append(recs, fmt.Sprintf("🔧 Moderate execution time (%.1fms) - optimization opportunity", s.Mean))
		}
	}
	if s, ok := an.Summaries[ContextUsage]; ok && s.Mean > 40000 {
		recs = append(recs, fmt.Sprintf("📝 High context usage (%.0f tokens) - implement hierarchical loading", s.Mean))
	}
	if s, ok := an.Summaries[CacheEfficiency]; ok && s.Mean < 0.5 {
		recs = append(recs, fmt.Sprintf("🗄️ Low cache hit rate (%.1f%%) - optimize caching strategy", s.Mean*100))
	}
	for _, t := range MetricTypes() {
		if tr, ok := an.Trends[t]; ok && tr.Direction == Degrading && tr.MagnitudePercent > 10 {
			recs = append(recs, fmt.Sprintf("📉 %s degrading by %.1f%%", t.Title(), tr.MagnitudePercent))
		}
	}
	if len(recs) == 0 {
		return []string{"✅ All metrics within acceptable ranges"}
	}
	return recs
}
