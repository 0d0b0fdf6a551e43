package tokens

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	xmlTagRe   = regexp.MustCompile(`<[^>]+>`)
	openTagRe  = regexp.MustCompile(`<[^/][^>]*>`)
	closeTagRe = regexp.MustCompile(`</[^>]*>`)
)

var thinkingIndicators = []string{
	"<thinking", "<analysis", "<reasoning", "<reflection",
	"<checkpoint", "<validation", "<critical_thinking",
}

var sectionTags = []string{"<purpose>", "<steps>", "<validation>"}

var complexityIndicators = []string{
	"recursive", "multi-level", "hierarchical", "nested",
	"iterative", "conditional", "branching", "parallel",
}

// Efficiency describes how a prompt (and optional response) spends tokens.
type Efficiency struct {
	PromptTokens             int     `json:"prompt_tokens"`
	ResponseTokens           int     `json:"response_tokens"`
	TotalTokens              int     `json:"total_tokens"`
	XMLOverheadPercent       float64 `json:"xml_overhead_percentage"`
	ThinkingPatternRatio     float64 `json:"thinking_pattern_ratio"`
	StructureEfficiencyScore float64 `json:"structure_efficiency_score"`
	TokensPerInstruction     float64 `json:"tokens_per_instruction"`
}

// Analyzer computes token efficiency metrics with a pluggable Counter.
type Analyzer struct {
	counter Counter
}

// NewAnalyzer returns an Analyzer. A nil counter falls back to Estimate.
func NewAnalyzer(counter Counter) *Analyzer {
	if counter == nil {
		counter = NewEstimatingCounter()
	}
	return &Analyzer{counter: counter}
}

// AnalyzeEfficiency never fails; empty input yields zero token counts.
func (a *Analyzer) AnalyzeEfficiency(prompt, response string) Efficiency {
	e := Efficiency{
		PromptTokens:             a.counter.Count(prompt),
		XMLOverheadPercent:       XMLOverhead(prompt),
		ThinkingPatternRatio:     ThinkingRatio(prompt),
		StructureEfficiencyScore: StructureScore(prompt),
	}
	if response != "" {
		e.ResponseTokens = a.counter.Count(response)
	}
	e.TotalTokens = e.PromptTokens + e.ResponseTokens
	e.TokensPerInstruction = float64(e.PromptTokens) / float64(max(strings.Count(prompt, "."), 1))
	return e
}

// XMLOverhead is the percentage of prompt characters spent inside <...>
// tags.
func XMLOverhead(prompt string) float64 {
	if prompt == "" {
		return 0
	}
	n := 0
	for _, tag := range xmlTagRe.FindAllString(prompt, -1) {
		n += utf8.RuneCountInString(tag)
	}
	return float64(n) / float64(utf8.RuneCountInString(prompt)) * 100
}

// ThinkingRatio weighs each thinking-pattern tag as 50 characters of content
// relative to the prompt length.
func ThinkingRatio(prompt string) float64 {
	if prompt == "" {
		return 0
	}
	lower := strings.ToLower(prompt)
	n := 0
	for _, ind := range thinkingIndicators {
		n += strings.Count(lower, ind) * 50
	}
	return float64(n) / float64(utf8.RuneCountInString(prompt))
}

// StructureScore rewards section tags, balanced tags and a moderate tag
// overhead. The result is in [0, 1].
func StructureScore(prompt string) float64 {
	score := 0.0
	for _, tag := range sectionTags {
		if strings.Contains(prompt, tag) {
			score += 0.3
			break
		}
	}
	open := len(openTagRe.FindAllStringIndex(prompt, -1))
	closed := len(closeTagRe.FindAllStringIndex(prompt, -1))
	if abs(open-closed) <= 2 {
		score += 0.3
	}
	if o := XMLOverhead(prompt); o >= 5 && o <= 25 {
		score += 0.4
	}
	return clamp01(score)
}

// PatternComplexity scores a thinking pattern by keywords and tag nesting.
func PatternComplexity(pattern string) float64 {
	lower := strings.ToLower(pattern)
	score := 0.0
	for _, ind := range complexityIndicators {
		if strings.Contains(lower, ind) {
			score += 0.1
		}
	}
	depth := strings.Count(pattern, "<") - strings.Count(pattern, "</")
	score += float64(depth) * 0.05
	return clamp01(score)
}

// CognitiveLoad sums weighted sentence, decision, complexity and length
// factors. It is not bounded above.
func CognitiveLoad(pattern string) float64 {
	return float64(strings.Count(pattern, "."))*0.1 +
		float64(strings.Count(strings.ToLower(pattern), "if "))*0.2 +
		PatternComplexity(pattern)*0.3 +
		min(float64(utf8.RuneCountInString(pattern))/1000, 1.0)*0.4
}

func clamp01(v float64) float64 {
	return max(0, min(v, 1))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
