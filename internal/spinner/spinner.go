// Package spinner shows an animated status line while a step of unknown
// length runs.
package spinner

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Interval is the delay between frames.
const Interval = 80 * time.Millisecond

// Spinner animates a message on a terminal. On any other writer it stays
// silent.
type Spinner struct {
	w       io.Writer
	message string
	enabled bool
	started bool

	once    sync.Once
	done    chan struct{}
	cleared chan struct{}
}

// New returns a spinner for message. It animates only when w is a
// terminal.
func New(w io.Writer, message string) *Spinner {
	f, ok := w.(*os.File)
	return &Spinner{
		w:       w,
		message: message,
		enabled: ok && term.IsTerminal(int(f.Fd())),
		done:    make(chan struct{}),
		cleared: make(chan struct{}),
	}
}

// Enabled reports whether frames are drawn.
func (s *Spinner) Enabled() bool { return s.enabled }

// Start begins the animation and returns s. It must be called at most
// once.
func (s *Spinner) Start() *Spinner {
	s.started = true
	if !s.enabled {
		close(s.cleared)
		return s
	}
	go s.loop()
	return s
}

func (s *Spinner) loop() {
	defer close(s.cleared)
	t := time.NewTicker(Interval)
	defer t.Stop()
	for i := 0; ; i++ {
		select {
		case <-s.done:
			fmt.Fprintf(s.w, "\r%*s\r", runewidth.StringWidth(s.message)+2, "") //nolint:errcheck
			return
		case <-t.C:
			fmt.Fprintf(s.w, "\r%s %s", frames[i%len(frames)], s.message) //nolint:errcheck
		}
	}
}

// Stop clears the line. It may be called more than once and waits for the
// animation goroutine to exit.
func (s *Spinner) Stop() {
	if !s.started {
		return
	}
	s.once.Do(func() { close(s.done) })
	<-s.cleared
}
