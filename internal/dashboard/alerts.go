package dashboard

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// AlertLevel is the severity of an alert.
type AlertLevel string

const (
	Info     AlertLevel = "info"
	Warning  AlertLevel = "warning"
	Critical AlertLevel = "critical"
)

func (l AlertLevel) Icon() string {
	switch l {
	case Info:
		return "ℹ️"
	case Warning:
		return "⚠️"
	case Critical:
		return "🚨"
	}
	return "❓"
}

// Alert is raised when a target is not met.
type Alert struct {
	ID        string     `json:"alert_id"`
	Level     AlertLevel `json:"level"`
	Message   string     `json:"message"`
	Metric    MetricType `json:"metric_type"`
	Threshold float64    `json:"threshold_value"`
	Actual    float64    `json:"actual_value"`
	Timestamp time.Time  `json:"timestamp"`
	Resolved  bool       `json:"resolved"`
}

// AlertManager turns failed target checks into alerts. An alert is not
// raised while another unresolved alert has the same metric and level.
type AlertManager struct {
	analyzer *Analyzer
	now      func() time.Time
	limit    int

	mu       sync.Mutex
	active   []Alert
	history  []Alert
	handlers []func(Alert)
}

func NewAlertManager(a *Analyzer, opts ...Option) *AlertManager {
	cfg := newConfig(opts)
	return &AlertManager{analyzer: a, now: cfg.now, limit: cfg.alertHistory}
}

// OnAlert registers fn for every newly raised alert.
func (m *AlertManager) OnAlert(fn func(Alert)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, fn)
}

// Check evaluates every target and returns the alerts it raised. Targets
// without data are skipped.
func (m *AlertManager) Check() []Alert {
	now := m.now()
	var raised []Alert
	for _, t := range m.analyzer.Targets() {
		c := m.analyzer.Check(t)
		if c.Compliant || c.Reason == ReasonNoData {
			continue
		}
		alert := Alert{
			ID:        fmt.Sprintf("%s_%s", t.ID, now.Format("20060102_150405")),
			Level:     t.Level,
			Message:   fmt.Sprintf("%s: %.2f %s %.2f", t.Description, c.Actual, t.Operator, t.Value),
			Metric:    t.Metric,
			Threshold: t.Value,
			Actual:    c.Actual,
			Timestamp: now,
		}
		if m.trigger(alert) {
			raised = append(raised, alert)
		}
	}
	return raised
}

func (m *AlertManager) trigger(alert Alert) bool {
	m.mu.Lock()
	for _, a := range m.active {
		if a.Metric == alert.Metric && a.Level == alert.Level {
			m.mu.Unlock()
			return false
		}
	}
	m.active = append(m.active, alert)
	m.history = append(m.history, alert)
	if len(m.history) > m.limit {
		m.history = slices.Clone(m.history[len(m.history)-m.limit:])
	}
	handlers := slices.Clone(m.handlers)
	m.mu.Unlock()

	for _, fn := range handlers {
		notify(fn, alert)
	}
	return true
}

func notify(fn func(Alert), alert Alert) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("alert handler failed", "alert", alert.ID, "panic", r)
		}
	}()
	fn(alert)
}

// Resolve marks the active alert id resolved and reports whether it was
// active.
func (m *AlertManager) Resolve(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.active, func(a Alert) bool { return a.ID == id })
	if i < 0 {
		return false
	}
	m.active = slices.Delete(m.active, i, i+1)
	for j := range m.history {
		if m.history[j].ID == id {
			m.history[j].Resolved = true
		}
	}
	return true
}

// Active returns the unresolved alerts, oldest first.
func (m *AlertManager) Active() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.active)
}

// History returns up to limit of the most recent alerts, oldest first.
// A limit of zero or less returns the whole history.
func (m *AlertManager) History(limit int) []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.history
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	return slices.Clone(h)
}

// ConsoleAlerts returns a handler printing one line per alert to w.
func ConsoleAlerts(w io.Writer) func(Alert) {
	return func(a Alert) {
		fmt.Fprintf(w, "[%s] %s %s: %s\n",
			a.Timestamp.Format("15:04:05"), a.Level.Icon(), strings.ToUpper(string(a.Level)), a.Message)
	}
}
