package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess     = 0 // Audit passed
	ExitAuditFailed = 1 // The audited framework fell short of its targets
	ExitError       = 2 // Configuration or runtime error
)

// AuditFailedError indicates that the audit ran to completion but the
// framework did not meet the pass criteria.
type AuditFailedError struct {
	Message string
}

func (e *AuditFailedError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var auditErr *AuditFailedError
		if errors.As(err, &auditErr) {
			os.Exit(ExitAuditFailed)
		}
		os.Exit(ExitError)
	}
}
