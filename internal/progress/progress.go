// Package progress reports long-running work on interactive terminals.
package progress

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Reporter receives progress for one task at a time.
type Reporter interface {
	// Start begins a task. A total of zero or less shows a spinner.
	Start(description string, total int)
	Advance(n int)
	Finish()
}

// New returns a Bar when w is a terminal and a Nop otherwise.
func New(w io.Writer) Reporter {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return NewBar(w)
	}
	return Nop{}
}

// Nop discards all progress.
type Nop struct{}

func (Nop) Start(string, int) {}
func (Nop) Advance(int)       {}
func (Nop) Finish()           {}

// Bar renders a progress bar, or a spinner for tasks without a total.
type Bar struct {
	w   io.Writer
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func NewBar(w io.Writer) *Bar {
	return &Bar{w: w}
}

func (b *Bar) Start(description string, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar != nil {
		_ = b.bar.Finish()
	}
	if total <= 0 {
		total = -1
	}
	b.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(b.w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(80*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (b *Bar) Advance(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar != nil {
		_ = b.bar.Add(n)
	}
}

func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar != nil {
		_ = b.bar.Finish()
		b.bar = nil
	}
}

// Callback adapts r to the (done, total) hook used by runners.
func Callback(r Reporter) func(done, total int) {
	last := 0
	var mu sync.Mutex
	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if done < last {
			last = 0
		}
		r.Advance(done - last)
		last = done
	}
}
