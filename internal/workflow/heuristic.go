package workflow

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spboyer/promptaudit/internal/tokens"
)

var responsePatterns = map[Scenario]string{
	CodeReview:               "Code analysis complete. Found 3 issues: security vulnerability, performance concern, and style inconsistency.",
	FeatureDevelopment:       "Feature implementation plan created with 5 phases, 12 components, and comprehensive testing strategy.",
	BugInvestigation:         "Root cause identified: race condition in async data processing. Proposed fix with monitoring improvements.",
	ArchitecturalRefactoring: "Refactoring plan developed with 3 phases, risk mitigation strategy, and rollback procedures.",
	DocumentationGeneration:  "Comprehensive documentation generated including API reference, user guides, and integration examples.",
	PerformanceOptimization:  "Performance optimization plan with 4 improvements projected to achieve 60% performance gain.",
	SecurityAnalysis:         "Security assessment complete. Identified 2 high-risk vulnerabilities with remediation plan.",
	TestingStrategy:          "Testing strategy developed with unit, integration, and E2E testing approach achieving 95% coverage.",
}

const defaultResponse = "Workflow analysis completed successfully."

// comprehensiveMultiplier scales the response of a structured prompt.
const comprehensiveMultiplier = 1.5

var closingTagRe = regexp.MustCompile(`</[A-Za-z_][\w-]*>`)

// Structured reports whether prompt is organized into sections: at least
// three distinct closing tags and 5% or more of its bytes in tags.
func Structured(prompt string) bool {
	distinct := map[string]bool{}
	for _, tag := range closingTagRe.FindAllString(prompt, -1) {
		distinct[tag] = true
		if len(distinct) >= 3 {
			return tokens.XMLOverhead(prompt) >= 5
		}
	}
	return false
}

// HeuristicExecutor answers each scenario with a fixed response whose
// size grows when the prompt is structured. It performs no model calls.
type HeuristicExecutor struct{}

var _ Executor = (*HeuristicExecutor)(nil)

func NewHeuristicExecutor() *HeuristicExecutor {
	return &HeuristicExecutor{}
}

func (*HeuristicExecutor) Execute(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	start := time.Now()

	text, ok := responsePatterns[req.Scenario]
	if !ok {
		text = defaultResponse
	}
	multiplier, detail := 1.0, DetailBasic
	if Structured(req.Prompt) {
		multiplier, detail = comprehensiveMultiplier, DetailComprehensive
	}

	return Response{
		Text:             text,
		ResponseLength:   float64(utf8.RuneCountInString(text)) * multiplier,
		DetailLevel:      detail,
		PromptTokens:     len(strings.Fields(req.Prompt)),
		ResponseTokens:   float64(len(strings.Fields(text))) * multiplier,
		ExecutionSeconds: time.Since(start).Seconds(),
	}, nil
}
