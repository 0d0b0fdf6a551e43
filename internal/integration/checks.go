package integration

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// FunctionalCommands must exist directly under commands/ and stay
// structured.
var FunctionalCommands = []string{
	"init", "init-validate", "auto", "init-custom", "init-research",
	"query", "swarm", "init-new", "task", "docs", "session",
	"feature", "protocol",
}

// NonFunctionalCommands were broken before migration and may live in any
// of CommandSearchDirs.
var NonFunctionalCommands = []string{
	"adapt", "validate", "context-prime", "meta-review",
	"meta-govern", "meta-evolve", "meta-fix", "meta-optimize",
}

// QualityModules are expected under system/quality.
var QualityModules = []string{
	"quality-metrics-dashboard", "adaptation-validation",
	"security-validation", "context-sensitive-quality-system-overview",
	"predictive-escalation", "comprehensive-validation",
	"context-sensitive-quality-assessment", "framework-metrics",
	"gate-verification", "universal-quality-gates",
	"security-gate-verification", "quality-orchestration",
	"progressive-testing-integration", "rd-quality-gates",
	"performance-validation", "test-coverage",
	"context-sensitive-error-recovery", "setup-validation",
	"tdd-enforcement", "tdd", "performance-gates",
	"pre-commit", "comprehensive-testing", "domain-validation",
	"compliance-validation", "context-sensitive-quality-reporting",
	"tdd-verification", "production-standards", "error-recovery",
	"optimization", "context-aware-performance-validation",
	"adaptive-quality-gates", "rd-quality-gates-integration-test",
	"quality-metrics", "general-validation", "critical-thinking",
}

var (
	instructionIndicators = []string{"step", "instruction", "process", "procedure"}
	dependencyIndicators  = []string{"module", "require", "depend", "import", "reference"}
	qualityIndicators     = []string{
		"quality", "validation", "enforcement", "gate", "standard",
		"check", "verify", "ensure", "require", "mandatory",
	}
	enforcementIndicators = []string{"MANDATORY", "CRITICAL", "BLOCKING", "enforce", "require"}
)

func countContained(content string, indicators []string) int {
	n := 0
	for _, ind := range indicators {
		if strings.Contains(content, ind) {
			n++
		}
	}
	return n
}

// TestCommandFile classifies the command file at path. Structure needs at
// least three of: a "# <name>" title, "## " and "### " headings, and the
// words mission, purpose and workflow. Instructions need one of step,
// instruction, process or procedure. All matching is case-insensitive.
func TestCommandFile(path, name string) CommandResult {
	res := CommandResult{Path: path, Issues: []string{}}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		res.Status = CommandFileNotFound
		res.Issues = append(res.Issues, "Command file does not exist")
		return res
	case err != nil:
		res.Accessible = true
		res.Status = CommandErrorReading
		res.Issues = append(res.Issues, fmt.Sprintf("Error reading file: %v", err))
		return res
	}
	res.Accessible = true

	lower := strings.ToLower(string(data))
	structure := []string{"# " + strings.ToLower(name), "## ", "### ", "mission", "purpose", "workflow"}
	res.HasStructure = countContained(lower, structure) >= 3
	res.HasInstructions = countContained(lower, instructionIndicators) > 0
	res.HasDependencies = countContained(lower, dependencyIndicators) > 0

	switch {
	case res.HasStructure && res.HasInstructions:
		res.Status = CommandFullyFunctional
	case res.HasStructure:
		res.Status = CommandStructuredIncomplete
	default:
		res.Status = CommandAccessibleUnstructured
	}
	if !res.HasStructure {
		res.Issues = append(res.Issues, "Missing basic structure")
	}
	if !res.HasInstructions {
		res.Issues = append(res.Issues, "Missing instructions")
	}
	return res
}

// TestModuleFile classifies a quality or pattern module. Quality content
// needs three case-insensitive indicators; enforcement keywords are
// matched case-sensitively.
func TestModuleFile(path, moduleType string) ModuleResult {
	res := ModuleResult{Path: path, ModuleType: moduleType, Issues: []string{}}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		res.Status = ModuleFileNotFound
		res.Issues = append(res.Issues, "Module file does not exist")
		return res
	case err != nil:
		res.Accessible = true
		res.Status = ModuleErrorReading
		res.Issues = append(res.Issues, fmt.Sprintf("Error reading file: %v", err))
		return res
	}
	res.Accessible = true

	content := string(data)
	res.HasQualityContent = countContained(strings.ToLower(content), qualityIndicators) >= 3
	res.HasEnforcement = countContained(content, enforcementIndicators) > 0

	switch {
	case res.HasQualityContent && res.HasEnforcement:
		res.Status = ModuleFullyFunctional
	case res.HasQualityContent:
		res.Status = ModuleFunctionalLimited
	default:
		res.Status = ModuleAccessibleIncomplete
	}
	return res
}
