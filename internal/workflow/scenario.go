// Package workflow validates prompt enhancements against realistic
// development workflows. Each test case renders a baseline and an enhanced
// prompt for a scenario, executes both, and scores the difference.
package workflow

import (
	"fmt"
	"strings"
	"time"
)

// Scenario is a kind of development workflow.
type Scenario string

const (
	CodeReview               Scenario = "code_review"
	FeatureDevelopment       Scenario = "feature_development"
	BugInvestigation         Scenario = "bug_investigation"
	ArchitecturalRefactoring Scenario = "architectural_refactoring"
	DocumentationGeneration  Scenario = "documentation_generation"
	PerformanceOptimization  Scenario = "performance_optimization"
	SecurityAnalysis         Scenario = "security_analysis"
	TestingStrategy          Scenario = "testing_strategy"
)

// Scenarios returns every scenario in report order.
func Scenarios() []Scenario {
	return []Scenario{
		CodeReview,
		FeatureDevelopment,
		BugInvestigation,
		ArchitecturalRefactoring,
		DocumentationGeneration,
		PerformanceOptimization,
		SecurityAnalysis,
		TestingStrategy,
	}
}

// CoreScenarios are the scenarios every mode must handle well.
func CoreScenarios() []Scenario {
	return []Scenario{CodeReview, FeatureDevelopment, BugInvestigation}
}

func ParseScenario(s string) (Scenario, error) {
	for _, sc := range Scenarios() {
		if string(sc) == s {
			return sc, nil
		}
	}
	return "", fmt.Errorf("unknown scenario %q", s)
}

// Complexity scales the context size and time allowance of a test case.
type Complexity string

const (
	Simple   Complexity = "simple"
	Moderate Complexity = "moderate"
	Complex  Complexity = "complex"
	Expert   Complexity = "expert"
)

func Complexities() []Complexity {
	return []Complexity{Simple, Moderate, Complex, Expert}
}

func ParseComplexity(s string) (Complexity, error) {
	for _, c := range Complexities() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown complexity %q", s)
}

// FileMultiplier is how many times the scenario's context files repeat.
func (c Complexity) FileMultiplier() int {
	switch c {
	case Moderate:
		return 2
	case Complex:
		return 3
	case Expert:
		return 4
	default:
		return 1
	}
}

// TimeoutMinutes is the time allowance for one test case.
func (c Complexity) TimeoutMinutes() int {
	switch c {
	case Simple:
		return 5
	case Moderate:
		return 10
	case Complex:
		return 15
	case Expert:
		return 20
	default:
		return 10
	}
}

func (c Complexity) Timeout() time.Duration {
	return time.Duration(c.TimeoutMinutes()) * time.Minute
}

// Advanced reports whether c adds the in-depth expected outcomes.
func (c Complexity) Advanced() bool {
	return c == Complex || c == Expert
}

// KV is one ordered scenario value.
type KV struct {
	Key   string
	Value string
}

type scenarioContext struct {
	files  []string
	values []KV
}

var contexts = map[Scenario]scenarioContext{
	CodeReview: {
		files: []string{"src/components/UserProfile.tsx", "src/utils/validation.ts"},
		values: []KV{
			{"pull_request", "Add user profile validation"},
			{"changes", "New validation logic for user profile fields"},
			{"concerns", "Performance impact and edge case handling"},
		},
	},
	FeatureDevelopment: {
		files: []string{"src/api/endpoints.ts", "src/components/Dashboard.tsx"},
		values: []KV{
			{"feature", "Real-time notifications dashboard"},
			{"requirements", "WebSocket integration with notification persistence"},
			{"constraints", "Must maintain backward compatibility"},
		},
	},
	BugInvestigation: {
		files: []string{"src/services/dataProcessor.ts", "tests/integration/api.test.ts"},
		values: []KV{
			{"bug_report", "Intermittent data processing failures"},
			{"symptoms", "Random timeout errors in production"},
			{"logs", "ERROR: Promise timeout after 5000ms"},
		},
	},
	ArchitecturalRefactoring: {
		files: []string{"src/core/architecture.ts", "src/modules/moduleLoader.ts"},
		values: []KV{
			{"goal", "Migrate to modular architecture pattern"},
			{"current_state", "Monolithic service structure"},
			{"target_state", "Loosely coupled microservices"},
		},
	},
	DocumentationGeneration: {
		files: []string{"src/api/userService.ts", "README.md"},
		values: []KV{
			{"purpose", "Generate comprehensive API documentation"},
			{"audience", "External developers and integration partners"},
			{"format", "OpenAPI 3.0 specification with examples"},
		},
	},
	PerformanceOptimization: {
		files: []string{"src/utils/dataTransform.ts", "performance/benchmarks.ts"},
		values: []KV{
			{"issue", "Slow data transformation in large datasets"},
			{"metrics", "Current: 2.5s for 10k records, Target: <500ms"},
			{"constraints", "Memory usage must remain under 100MB"},
		},
	},
	SecurityAnalysis: {
		files: []string{"src/auth/tokenValidator.ts", "src/middleware/security.ts"},
		values: []KV{
			{"scope", "Authentication and authorization security review"},
			{"threats", "JWT token vulnerabilities and injection attacks"},
			{"compliance", "OWASP security standards"},
		},
	},
	TestingStrategy: {
		files: []string{"src/components/PaymentForm.tsx", "tests/unit/payment.test.ts"},
		values: []KV{
			{"component", "Payment processing form"},
			{"coverage", "Unit, integration, and E2E test strategy"},
			{"requirements", "PCI compliance and error handling"},
		},
	},
}

// ContextFiles returns the scenario's files repeated per the complexity
// multiplier.
func ContextFiles(s Scenario, c Complexity) []string {
	base := contexts[s].files
	out := make([]string, 0, len(base)*c.FileMultiplier())
	for range c.FileMultiplier() {
		out = append(out, base...)
	}
	return out
}

// ContextValues returns the scenario's values in declaration order.
func ContextValues(s Scenario) []KV {
	return append([]KV(nil), contexts[s].values...)
}

// promptKeys are the values any prompt template may reference. Keys a
// scenario does not set render as "Default <key>".
var promptKeys = []string{
	"feature", "requirements", "bug_report", "symptoms",
	"current_state", "target_state", "purpose", "audience",
	"issue", "metrics", "scope", "threats", "component", "coverage",
}

func promptVars(s Scenario) map[string]string {
	vars := make(map[string]string, len(promptKeys)+3)
	for _, k := range promptKeys {
		vars[k] = "Default " + strings.ReplaceAll(k, "_", " ")
	}
	for _, kv := range contexts[s].values {
		vars[kv.Key] = kv.Value
	}
	return vars
}

func summarize(values []KV) string {
	parts := make([]string, len(values))
	for i, kv := range values {
		parts[i] = kv.Key + ": " + kv.Value
	}
	return strings.Join(parts, "; ")
}

var baseOutcomes = map[Scenario][]string{
	CodeReview:               {"Security analysis", "Performance assessment", "Code quality evaluation"},
	FeatureDevelopment:       {"Implementation plan", "Architecture design", "Testing strategy"},
	BugInvestigation:         {"Root cause analysis", "Fix recommendations", "Prevention measures"},
	ArchitecturalRefactoring: {"Migration plan", "Risk assessment", "Implementation phases"},
	DocumentationGeneration:  {"Technical documentation", "User guides", "API reference"},
	PerformanceOptimization:  {"Performance analysis", "Optimization recommendations", "Implementation plan"},
	SecurityAnalysis:         {"Vulnerability assessment", "Risk evaluation", "Remediation plan"},
	TestingStrategy:          {"Test plan", "Coverage strategy", "Automation approach"},
}

// ExpectedOutcomes lists what a good answer to the scenario covers.
func ExpectedOutcomes(s Scenario, c Complexity) []string {
	out, ok := baseOutcomes[s]
	if !ok {
		out = []string{"Analysis", "Recommendations", "Implementation plan"}
	}
	out = append([]string(nil), out...)
	if c.Advanced() {
		out = append(out, "Detailed analysis", "Advanced recommendations", "Risk mitigation")
	}
	return out
}

func EvaluationCriteria() []string {
	return []string{
		"Completeness of analysis",
		"Accuracy of recommendations",
		"Practicality of solutions",
		"Depth of technical insight",
		"Structure and organization",
	}
}
