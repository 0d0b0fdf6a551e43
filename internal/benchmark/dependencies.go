package benchmark

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"github.com/spboyer/promptaudit/internal/framework"
)

var dependencyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`module="([^"]+)"`),
	regexp.MustCompile(`depends_on="([^"]+)"`),
	regexp.MustCompile(`import ([a-zA-Z0-9_/-]+\.md)`),
	regexp.MustCompile(`<canonical_source>([^<]+)</canonical_source>`),
}

// DependencyReport describes the declared dependencies between modules.
type DependencyReport struct {
	ResolutionMs      float64             `json:"resolution_time_ms"`
	TotalModules      int                 `json:"total_modules"`
	TotalDependencies int                 `json:"total_dependencies"`
	AveragePerModule  float64             `json:"average_dependencies_per_module"`
	Circular          [][2]string         `json:"circular"`
	CircularCount     int                 `json:"circular_dependencies"`
	ComplexityScore   float64             `json:"dependency_complexity_score"`
	Modules           map[string][]string `json:"modules"`
}

// ExtractDependencies returns the distinct, sorted dependency targets
// declared in content.
func ExtractDependencies(content string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, re := range dependencyPatterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				out = append(out, m[1])
			}
		}
	}
	slices.Sort(out)
	return out
}

// AnalyzeDependencies reads every module under the modules directory,
// keyed by its slash path relative to the project root, and finds pairs of
// modules that depend on each other.
func AnalyzeDependencies(l framework.Layout) (*DependencyReport, error) {
	start := time.Now()
	rep := &DependencyReport{Modules: map[string][]string{}, Circular: [][2]string{}}

	for _, f := range framework.Glob(l.Modules(), ".md", true) {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading module %s: %w", f, err)
		}
		key, err := filepath.Rel(l.Root, f)
		if err != nil {
			key = f
		}
		deps := ExtractDependencies(string(data))
		rep.Modules[filepath.ToSlash(key)] = deps
		rep.TotalDependencies += len(deps)
	}
	rep.ResolutionMs = msSince(start)
	rep.TotalModules = len(rep.Modules)
	if rep.TotalModules > 0 {
		rep.AveragePerModule = float64(rep.TotalDependencies) / float64(rep.TotalModules)
		rep.ComplexityScore = rep.AveragePerModule
	}
	rep.Circular = circular(rep.Modules)
	rep.CircularCount = len(rep.Circular)
	return rep, nil
}

// circular returns each pair of modules that name one another, once, with
// the lexically smaller module first.
func circular(modules map[string][]string) [][2]string {
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	slices.Sort(names)

	out := [][2]string{}
	for _, a := range names {
		for _, b := range modules[a] {
			if b <= a {
				continue
			}
			if deps, ok := modules[b]; ok && slices.Contains(deps, a) {
				out = append(out, [2]string{a, b})
			}
		}
	}
	return out
}
