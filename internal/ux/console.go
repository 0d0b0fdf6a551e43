package ux

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spboyer/promptaudit/internal/progress"
)

// Console returns a feedback callback that prints start, completion and
// error lines to w and drives bar with step progress.
func Console(w io.Writer, bar progress.Reporter) func(Feedback) {
	return func(fb Feedback) {
		stamp := fb.Timestamp.Format("15:04:05")
		switch fb.Type {
		case FeedbackImmediate:
			fmt.Fprintf(w, "[%s] 🚀 %s\n", stamp, fb.Message)
			printDetails(w, fb.Details)
			if fb.Steps > 0 {
				bar.Start(fb.Message, fb.Steps)
			}
		case FeedbackProgress:
			bar.Advance(1)
			if fb.Percent >= 100 {
				bar.Finish()
			}
		case FeedbackSuccess:
			fmt.Fprintf(w, "[%s] ✅ %s\n", stamp, fb.Message)
			printDetails(w, fb.Details)
		case FeedbackError:
			fmt.Fprintf(w, "[%s] ❌ %s\n", stamp, fb.Message)
		case FeedbackWarning:
			fmt.Fprintf(w, "[%s] ⚠️ %s\n", stamp, fb.Message)
		}
	}
}

func printDetails(w io.Writer, details map[string]any) {
	for _, k := range slices.Sorted(maps.Keys(details)) {
		fmt.Fprintf(w, "         %s: %v\n", k, details[k])
	}
}
