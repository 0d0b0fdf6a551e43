// Package ux tracks user-facing operations: immediate feedback, step
// progress with an ETA, completion history, and error recovery hints.
package ux

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spboyer/promptaudit/internal/metrics"
)

// FeedbackType classifies a Feedback message.
type FeedbackType string

const (
	FeedbackImmediate  FeedbackType = "immediate"
	FeedbackProgress   FeedbackType = "progress"
	FeedbackCompletion FeedbackType = "completion"
	FeedbackError      FeedbackType = "error"
	FeedbackSuccess    FeedbackType = "success"
	FeedbackWarning    FeedbackType = "warning"
)

// Feedback is one message delivered to callbacks.
type Feedback struct {
	Type      FeedbackType   `json:"type"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	ActionID  string         `json:"action_id"`
	Step      int            `json:"step,omitempty"`
	Steps     int            `json:"steps,omitempty"`
	Percent   float64        `json:"progress_percent,omitempty"`
	ETA       time.Duration  `json:"estimated_time_remaining,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Status is the lifecycle state of an operation.
type Status string

const (
	StatusStarted    Status = "started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Operation is a snapshot of a tracked operation.
type Operation struct {
	ID        string        `json:"action_id"`
	Name      string        `json:"description"`
	Steps     []string      `json:"steps"`
	Start     time.Time     `json:"start_time"`
	Estimated time.Duration `json:"estimated_duration"`
	Status    Status        `json:"status"`
	Percent   float64       `json:"progress_percent"`
	Duration  time.Duration `json:"duration,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// DefaultSteps are used when an operation declares none.
var DefaultSteps = []string{"Initialize", "Process", "Validate", "Complete"}

// DefaultHistoryLimit is how many finished operations a Tracker keeps.
const DefaultHistoryLimit = 50

// Tracker records operations and fans feedback out to callbacks. It is
// safe for concurrent use.
type Tracker struct {
	now   func() time.Time
	limit int

	mu        sync.Mutex
	callbacks []func(Feedback)
	active    map[string]*Op
	history   []Operation
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the time source used for timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithHistoryLimit bounds the number of finished operations kept.
func WithHistoryLimit(n int) Option {
	return func(t *Tracker) { t.limit = n }
}

func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		now:    time.Now,
		limit:  DefaultHistoryLimit,
		active: map[string]*Op{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OnFeedback registers fn for every future feedback message.
func (t *Tracker) OnFeedback(fn func(Feedback)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callbacks = append(t.callbacks, fn)
}

func (t *Tracker) deliver(fb Feedback) {
	t.mu.Lock()
	callbacks := append([]func(Feedback)(nil), t.callbacks...)
	t.mu.Unlock()
	for _, fn := range callbacks {
		callSafely(fn, fb)
	}
}

func callSafely(fn func(Feedback), fb Feedback) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("feedback callback failed", "action", fb.ActionID, "panic", r)
		}
	}()
	fn(fb)
}

// Op is a running operation. Its methods are safe for concurrent use.
type Op struct {
	t  *Tracker
	mu sync.Mutex
	op Operation
	at int
}

// Start begins an operation and sends immediate feedback.
func (t *Tracker) Start(name string, estimated time.Duration, steps ...string) *Op {
	if len(steps) == 0 {
		steps = DefaultSteps
	}
	o := &Op{t: t, op: Operation{
		ID:        uuid.NewString(),
		Name:      name,
		Steps:     append([]string(nil), steps...),
		Start:     t.now(),
		Estimated: estimated,
		Status:    StatusStarted,
	}}
	t.mu.Lock()
	t.active[o.op.ID] = o
	t.mu.Unlock()

	t.deliver(Feedback{
		Type:      FeedbackImmediate,
		Message:   "Starting: " + name,
		Timestamp: o.op.Start,
		ActionID:  o.op.ID,
		Steps:     len(steps),
		Details: map[string]any{
			"estimated_duration": fmt.Sprintf("%.1fs", estimated.Seconds()),
			"total_steps":        len(steps),
		},
	})
	return o
}

func (o *Op) ID() string { return o.op.ID }

// Advance completes the current step and reports progress. An empty
// message describes the next step.
func (o *Op) Advance(message string) {
	o.mu.Lock()
	o.at = min(o.at+1, len(o.op.Steps))
	fb := o.progressLocked(message)
	o.mu.Unlock()
	o.t.deliver(fb)
}

func (o *Op) progressLocked(message string) Feedback {
	now := o.t.now()
	steps := len(o.op.Steps)
	percent := float64(o.at) / float64(steps) * 100

	elapsed := now.Sub(o.op.Start)
	eta := o.op.Estimated
	if percent > 0 {
		eta = max(0, time.Duration(float64(elapsed)*100/percent)-elapsed)
	}
	if message == "" {
		next := "Finalizing..."
		if o.at < steps {
			next = o.op.Steps[o.at]
		}
		message = fmt.Sprintf("Step %d/%d: %s", min(o.at+1, steps), steps, next)
	}

	o.op.Percent = percent
	o.op.Status = StatusInProgress
	if percent >= 100 {
		o.op.Status = StatusCompleted
	}
	return Feedback{
		Type:      FeedbackProgress,
		Message:   message,
		Timestamp: now,
		ActionID:  o.op.ID,
		Step:      o.at,
		Steps:     steps,
		Percent:   percent,
		ETA:       eta,
	}
}

// Warn sends a warning without changing progress.
func (o *Op) Warn(message string) {
	o.t.deliver(Feedback{Type: FeedbackWarning, Message: message, Timestamp: o.t.now(), ActionID: o.op.ID})
}

// Finish ends the operation. A nil err completes it; otherwise it fails
// and a recovery hint is delivered when the error is recognized.
func (o *Op) Finish(result map[string]any, err error) Operation {
	o.mu.Lock()
	o.at = len(o.op.Steps)
	final := o.progressLocked("Completing...")
	final.ETA = 0
	now := final.Timestamp
	o.op.Duration = now.Sub(o.op.Start)
	if err != nil {
		o.op.Status = StatusFailed
		o.op.Error = err.Error()
	} else {
		o.op.Status = StatusCompleted
	}
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.t.deliver(final)
	if err != nil {
		rec := Recover(err)
		o.t.deliver(Feedback{
			Type:      FeedbackError,
			Message:   fmt.Sprintf("Error in %s: %v", snap.Name, err),
			Timestamp: now,
			ActionID:  snap.ID,
			Details:   map[string]any{"error_pattern": rec.Pattern, "recovery_available": rec.Handled},
		})
		if rec.Handled {
			o.t.deliver(Feedback{
				Type:      FeedbackImmediate,
				Message:   rec.Message,
				Timestamp: now,
				ActionID:  snap.ID + "_recovery",
				Details:   map[string]any{"recovery_actions": rec.Actions, "error_pattern": rec.Pattern},
			})
		}
	} else {
		details := map[string]any{"duration": fmt.Sprintf("%.1fs", snap.Duration.Seconds())}
		for k, v := range result {
			details[k] = v
		}
		o.t.deliver(Feedback{
			Type:      FeedbackSuccess,
			Message:   "Successfully completed: " + snap.Name,
			Timestamp: now,
			ActionID:  snap.ID,
			Details:   details,
		})
	}

	o.t.retire(snap)
	return snap
}

func (o *Op) snapshotLocked() Operation {
	s := o.op
	s.Steps = append([]string(nil), o.op.Steps...)
	return s
}

func (t *Tracker) retire(op Operation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, op.ID)
	t.history = append(t.history, op)
	if len(t.history) > t.limit {
		t.history = append([]Operation(nil), t.history[len(t.history)-t.limit:]...)
	}
}

// Track runs fn as an operation. fn advances steps through the Op it is
// given; the error it returns is returned unchanged.
func (t *Tracker) Track(ctx context.Context, name string, estimated time.Duration, steps []string,
	fn func(ctx context.Context, op *Op) (map[string]any, error),
) (map[string]any, error) {
	op := t.Start(name, estimated, steps...)
	result, err := fn(ctx, op)
	if err == nil {
		err = ctx.Err()
	}
	op.Finish(result, err)
	return result, err
}

// Active returns snapshots of the running operations.
func (t *Tracker) Active() []Operation {
	t.mu.Lock()
	ops := make([]*Op, 0, len(t.active))
	for _, o := range t.active {
		ops = append(ops, o)
	}
	t.mu.Unlock()

	out := make([]Operation, 0, len(ops))
	for _, o := range ops {
		o.mu.Lock()
		out = append(out, o.snapshotLocked())
		o.mu.Unlock()
	}
	return out
}

// History returns the finished operations, oldest first.
func (t *Tracker) History() []Operation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Operation(nil), t.history...)
}

// Summary describes the durations and outcomes of finished operations.
type Summary struct {
	Operations  int             `json:"total_operations"`
	Duration    metrics.Summary `json:"duration_seconds"`
	SuccessRate float64         `json:"success_rate"`
}

// Summary returns the zero Summary when nothing has finished.
func (t *Tracker) Summary() Summary {
	hist := t.History()
	if len(hist) == 0 {
		return Summary{}
	}
	durations := make([]float64, len(hist))
	ok := 0
	for i, op := range hist {
		durations[i] = op.Duration.Seconds()
		if op.Status == StatusCompleted {
			ok++
		}
	}
	return Summary{
		Operations:  len(hist),
		Duration:    metrics.Describe(durations),
		SuccessRate: metrics.Percent(ok, len(hist)),
	}
}

// Targets are the user experience goals reported alongside a summary.
type Targets struct {
	ResponseTime     string `json:"response_time_target"`
	SuccessRate      string `json:"success_rate_target"`
	UserSatisfaction string `json:"user_satisfaction_target"`
}

// Report is the user experience report.
type Report struct {
	Summary            Summary `json:"performance_summary"`
	ActiveOperations   int     `json:"active_operations"`
	FeedbackCallbacks  int     `json:"feedback_callbacks"`
	RecoveryStrategies int     `json:"recovery_strategies"`
	Targets            Targets `json:"user_satisfaction_targets"`
}

func (t *Tracker) Report() Report {
	t.mu.Lock()
	active, callbacks := len(t.active), len(t.callbacks)
	t.mu.Unlock()
	return Report{
		Summary:            t.Summary(),
		ActiveOperations:   active,
		FeedbackCallbacks:  callbacks,
		RecoveryStrategies: len(strategies),
		Targets:            Targets{ResponseTime: "<1s", SuccessRate: ">95%", UserSatisfaction: ">95%"},
	}
}
