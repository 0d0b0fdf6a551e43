package ux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spboyer/promptaudit/internal/progress"
)

// stepClock advances by step on every call.
type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.t
	c.t = c.t.Add(c.step)
	return t
}

func newClock() *stepClock {
	return &stepClock{t: time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC), step: time.Second}
}

type collector struct {
	mu  sync.Mutex
	fbs []Feedback
}

func (c *collector) add(fb Feedback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fbs = append(c.fbs, fb)
}

func (c *collector) types() []FeedbackType {
	var out []FeedbackType
	for _, fb := range c.fbs {
		out = append(out, fb.Type)
	}
	return out
}

func TestTracker_SuccessfulOperation(t *testing.T) {
	clock := newClock()
	tr := NewTracker(WithClock(clock.now))
	var got collector
	tr.OnFeedback(got.add)

	op := tr.Start("Quick Analysis", 2*time.Second, "Initialize", "Scan", "Analyze", "Complete")
	require.Len(t, tr.Active(), 1)

	op.Advance("")
	progress := got.fbs[1]
	assert.Equal(t, FeedbackProgress, progress.Type)
	assert.Equal(t, 25.0, progress.Percent)
	assert.Equal(t, "Step 2/4: Scan", progress.Message)
	// One second elapsed for a quarter of the work.
	assert.Equal(t, 3*time.Second, progress.ETA)

	snap := op.Finish(map[string]any{"files": 3}, nil)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 100.0, snap.Percent)
	assert.Equal(t, 2*time.Second, snap.Duration)

	assert.Equal(t, []FeedbackType{FeedbackImmediate, FeedbackProgress, FeedbackProgress, FeedbackSuccess}, got.types())
	assert.Equal(t, "Starting: Quick Analysis", got.fbs[0].Message)
	assert.Equal(t, 4, got.fbs[0].Details["total_steps"])
	assert.Equal(t, time.Duration(0), got.fbs[2].ETA)
	assert.Equal(t, 3, got.fbs[3].Details["files"])

	assert.Empty(t, tr.Active())
	require.Len(t, tr.History(), 1)
}

func TestTracker_FailureDeliversRecovery(t *testing.T) {
	tr := NewTracker(WithClock(newClock().now))
	var got collector
	tr.OnFeedback(got.add)

	_, err := tr.Track(context.Background(), "Error Demo", time.Second, []string{"Prepare", "Execute"},
		func(_ context.Context, op *Op) (map[string]any, error) {
			op.Advance("")
			return nil, errors.New("invalid frontmatter")
		})
	require.EqualError(t, err, "invalid frontmatter")

	assert.Equal(t, []FeedbackType{
		FeedbackImmediate, FeedbackProgress, FeedbackProgress, FeedbackError, FeedbackImmediate,
	}, got.types())
	rec := got.fbs[4]
	assert.Equal(t, "Validation failed. Let me provide specific guidance.", rec.Message)
	assert.Contains(t, rec.ActionID, "_recovery")

	hist := tr.History()
	require.Len(t, hist, 1)
	assert.Equal(t, StatusFailed, hist[0].Status)
	assert.Equal(t, "invalid frontmatter", hist[0].Error)
}

func TestTracker_DefaultStepsAndWarn(t *testing.T) {
	tr := NewTracker(WithClock(newClock().now))
	var got collector
	tr.OnFeedback(got.add)

	op := tr.Start("scan", 0)
	op.Warn("slow disk")
	op.Finish(nil, nil)

	assert.Equal(t, len(DefaultSteps), got.fbs[0].Steps)
	assert.Equal(t, FeedbackWarning, got.fbs[1].Type)
	assert.Equal(t, "slow disk", got.fbs[1].Message)
}

func TestTracker_CallbackPanicIsContained(t *testing.T) {
	tr := NewTracker()
	var got collector
	tr.OnFeedback(func(Feedback) { panic("boom") })
	tr.OnFeedback(got.add)

	tr.Start("op", time.Second).Finish(nil, nil)
	assert.NotEmpty(t, got.fbs)
}

func TestTracker_HistoryLimitAndSummary(t *testing.T) {
	tr := NewTracker(WithClock(newClock().now), WithHistoryLimit(3))
	for i := range 5 {
		var err error
		if i == 4 {
			err = errors.New("boom")
		}
		tr.Start(fmt.Sprintf("op%d", i), time.Second, "one").Finish(nil, err)
	}

	hist := tr.History()
	require.Len(t, hist, 3)
	assert.Equal(t, "op2", hist[0].Name)

	s := tr.Summary()
	assert.Equal(t, 3, s.Operations)
	assert.InDelta(t, 200.0/3, s.SuccessRate, 1e-9)
	// Start and the final progress update are one tick apart.
	assert.Equal(t, 1.0, s.Duration.Mean)

	rep := tr.Report()
	assert.Equal(t, 4, rep.RecoveryStrategies)
	assert.Equal(t, ">95%", rep.Targets.SuccessRate)
	assert.Zero(t, rep.ActiveOperations)

	assert.Equal(t, Summary{}, NewTracker().Summary())
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			op := tr.Start("op", time.Millisecond, "a", "b")
			op.Advance("")
			op.Finish(nil, nil)
		}()
	}
	wg.Wait()
	assert.Len(t, tr.History(), 20)
	assert.Equal(t, 100.0, tr.Summary().SuccessRate)
}

func TestClassify(t *testing.T) {
	_, statErr := os.Stat("/definitely/not/here")
	tests := []struct {
		err  error
		want ErrorPattern
	}{
		{statErr, FileNotFound},
		{fmt.Errorf("reading: %w", fs.ErrPermission), PermissionDenied},
		{fmt.Errorf("scan: %w", context.DeadlineExceeded), TimeoutError},
		{errors.New("request timeout"), TimeoutError},
		{errors.New("Validation of rules failed"), ValidationError},
		{errors.New("open x: permission denied"), PermissionDenied},
		{errors.New("kaboom"), UnknownError},
		{nil, UnknownError},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Classify(tc.err), "%v", tc.err)
	}

	r := Recover(errors.New("kaboom"))
	assert.False(t, r.Handled)
	assert.Equal(t, "kaboom", r.Error)

	r = Recover(statErr)
	assert.True(t, r.Handled)
	assert.Equal(t, []string{"search_similar_files", "create_file_template", "check_common_locations"}, r.Actions)
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracker(WithClock(newClock().now))
	tr.OnFeedback(Console(&buf, progress.Nop{}))

	tr.Start("Complex Processing", 3*time.Second, "Setup").Finish(nil, nil)
	out := buf.String()
	assert.Contains(t, out, "[09:30:00] 🚀 Starting: Complex Processing\n")
	assert.Contains(t, out, "         estimated_duration: 3.0s\n")
	assert.Contains(t, out, "✅ Successfully completed: Complex Processing\n")
}
