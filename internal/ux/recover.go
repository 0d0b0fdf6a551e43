package ux

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
)

// ErrorPattern is a recognized class of failure.
type ErrorPattern string

const (
	FileNotFound     ErrorPattern = "file_not_found"
	PermissionDenied ErrorPattern = "permission_denied"
	TimeoutError     ErrorPattern = "timeout_error"
	ValidationError  ErrorPattern = "validation_error"
	UnknownError     ErrorPattern = "unknown_error"
)

type strategy struct {
	message string
	actions []string
}

var strategies = map[ErrorPattern]strategy{
	FileNotFound: {
		message: "File not found. Let me help you locate it or create it.",
		actions: []string{"search_similar_files", "create_file_template", "check_common_locations"},
	},
	PermissionDenied: {
		message: "Permission denied. Let me suggest alternative approaches.",
		actions: []string{"check_file_permissions", "suggest_alternative_location", "create_workaround"},
	},
	TimeoutError: {
		message: "Operation timed out. Let me optimize the approach.",
		actions: []string{"break_into_smaller_operations", "increase_timeout", "parallel_processing"},
	},
	ValidationError: {
		message: "Validation failed. Let me provide specific guidance.",
		actions: []string{"show_validation_details", "suggest_corrections", "provide_examples"},
	},
}

// Recovery is the suggested response to an error.
type Recovery struct {
	Pattern ErrorPattern `json:"error_pattern"`
	Handled bool         `json:"error_handled"`
	Message string       `json:"message,omitempty"`
	Actions []string     `json:"recovery_actions,omitempty"`
	Error   string       `json:"error_message"`
}

// Classify maps err to a pattern, preferring wrapped sentinel errors and
// falling back to the error text.
func Classify(err error) ErrorPattern {
	if err == nil {
		return UnknownError
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return FileNotFound
	case errors.Is(err, fs.ErrPermission):
		return PermissionDenied
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return TimeoutError
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such file"), strings.Contains(msg, "file not found"):
		return FileNotFound
	case strings.Contains(msg, "permission denied"):
		return PermissionDenied
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return TimeoutError
	case strings.Contains(msg, "validation"), strings.Contains(msg, "invalid"):
		return ValidationError
	default:
		return UnknownError
	}
}

// Recover classifies err and returns the matching recovery strategy.
func Recover(err error) Recovery {
	p := Classify(err)
	r := Recovery{Pattern: p}
	if err != nil {
		r.Error = err.Error()
	}
	if s, ok := strategies[p]; ok {
		r.Handled = true
		r.Message = s.message
		r.Actions = append([]string(nil), s.actions...)
	}
	return r
}
