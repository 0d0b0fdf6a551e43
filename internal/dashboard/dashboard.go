package dashboard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spboyer/promptaudit/internal/reporting"
)

// Dashboard ties a collector, analyzer and alert manager together.
type Dashboard struct {
	Collector *Collector
	Analyzer  *Analyzer
	Alerts    *AlertManager

	now func() time.Time
}

// New returns a dashboard with DefaultTargets registered.
func New(opts ...Option) *Dashboard {
	cfg := newConfig(opts)
	c := NewCollector(opts...)
	a := NewAnalyzer(c)
	for _, t := range DefaultTargets() {
		a.AddTarget(t)
	}
	return &Dashboard{
		Collector: c,
		Analyzer:  a,
		Alerts:    NewAlertManager(a, opts...),
		now:       cfg.now,
	}
}

// Update checks alerts and returns a fresh analysis.
func (d *Dashboard) Update() Analysis {
	d.Alerts.Check()
	return d.Analyzer.Analyze()
}

// Run collects metrics every interval and calls render after each update
// until ctx is cancelled. It returns nil on cancellation.
func (d *Dashboard) Run(ctx context.Context, interval time.Duration, render func(Analysis)) error {
	if err := d.Collector.Start(ctx, interval); err != nil {
		return err
	}
	defer d.Collector.Stop()
	slog.Info("performance dashboard started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("performance dashboard stopped")
			return nil
		case <-ticker.C:
			an := d.Update()
			if render != nil {
				render(an)
			}
		}
	}
}

// Snapshot is the exported dashboard state.
type Snapshot struct {
	Analysis     Analysis          `json:"analysis"`
	ActiveAlerts []Alert           `json:"active_alerts"`
	AlertHistory []Alert           `json:"alert_history"`
	Targets      map[string]Target `json:"targets"`
	Status       string            `json:"dashboard_status"`
}

// SnapshotHistory is the number of past alerts included in a snapshot.
const SnapshotHistory = 10

func (d *Dashboard) Snapshot() Snapshot {
	status := "inactive"
	if d.Collector.Running() {
		status = "active"
	}
	targets := map[string]Target{}
	for _, t := range d.Analyzer.Targets() {
		targets[t.ID] = t
	}
	return Snapshot{
		Analysis:     d.Analyzer.Analyze(),
		ActiveAlerts: d.Alerts.Active(),
		AlertHistory: d.Alerts.History(SnapshotHistory),
		Targets:      targets,
		Status:       status,
	}
}

// SnapshotFileName returns dashboard_snapshot_YYYYMMDD_HHMMSS.json.
func SnapshotFileName(t time.Time) string {
	return fmt.Sprintf("dashboard_snapshot_%s.json", t.Format("20060102_150405"))
}

// Save writes a snapshot into dir and returns its path.
func (d *Dashboard) Save(dir string) (string, error) {
	path := filepath.Join(dir, SnapshotFileName(d.now()))
	if err := reporting.WriteJSON(path, d.Snapshot()); err != nil {
		return "", fmt.Errorf("saving dashboard snapshot: %w", err)
	}
	slog.Info("dashboard snapshot saved", "path", path)
	return path, nil
}

// Render prints the dashboard panel: current metrics, target compliance,
// the last five active alerts and the top three recommendations.
func Render(w io.Writer, an Analysis, targets []Target, active []Alert) {
	rule := strings.Repeat("=", 80)
	fmt.Fprintf(w, "\n%s\n🚀 PERFORMANCE DASHBOARD\n%s\n", rule, rule)

	fmt.Fprintln(w, "\n📊 Current Metrics:")
	for _, t := range MetricTypes() {
		s, ok := an.Summaries[t]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "  %s:\n", t.Title())
		fmt.Fprintf(w, "    Latest: %.2f | Average: %.2f | P95: %.2f\n", s.Latest, s.Mean, s.P95)
	}

	fmt.Fprintln(w, "\n🎯 Target Compliance:")
	for _, t := range targets {
		c, ok := an.Compliance[t.ID]
		if !ok {
			continue
		}
		if c.Reason == ReasonNoData {
			fmt.Fprintf(w, "  %s: ⏳ NO DATA (Target: %.2f)\n", t.ID, c.Target)
			continue
		}
		status := "❌ FAIL"
		if c.Compliant {
			status = "✅ PASS"
		}
		fmt.Fprintf(w, "  %s: %s (Target: %.2f, Actual: %.2f)\n", t.ID, status, c.Target, c.Actual)
	}

	if len(active) > 0 {
		fmt.Fprintf(w, "\n🚨 Active Alerts (%d):\n", len(active))
		for _, a := range active[max(0, len(active)-5):] {
			fmt.Fprintf(w, "  %s: %s\n", strings.ToUpper(string(a.Level)), a.Message)
		}
	}

	if len(an.Recommendations) > 0 {
		fmt.Fprintln(w, "\n💡 Recommendations:")
		for _, r := range an.Recommendations[:min(3, len(an.Recommendations))] {
			fmt.Fprintf(w, "  %s\n", r)
		}
	}
	fmt.Fprintln(w, rule)
}
