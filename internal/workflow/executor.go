package workflow

//go:generate go tool mockgen -source=executor.go -destination=executor_mock_test.go -package=workflow

import (
	"context"
	"time"
)

// DetailLevel grades how thorough a response is.
type DetailLevel string

const (
	DetailBasic         DetailLevel = "basic"
	DetailComprehensive DetailLevel = "comprehensive"
)

// Request is one prompt to execute.
type Request struct {
	Scenario Scenario
	Prompt   string
	Timeout  time.Duration
}

// Response is what an executor produced for a Request.
type Response struct {
	Text             string      `json:"response"`
	ResponseLength   float64     `json:"response_length"`
	DetailLevel      DetailLevel `json:"detail_level"`
	PromptTokens     int         `json:"prompt_tokens"`
	ResponseTokens   float64     `json:"response_tokens"`
	ExecutionSeconds float64     `json:"execution_time_seconds"`
}

// TotalTokens is prompt plus response tokens.
func (r Response) TotalTokens() float64 {
	return float64(r.PromptTokens) + r.ResponseTokens
}

// Executor runs a prompt. Implementations must honor ctx cancellation.
type Executor interface {
	Execute(ctx context.Context, req Request) (Response, error)
}
