package integration

import (
	"cmp"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/spboyer/promptaudit/internal/framework"
)

// referencePattern finds path mentions of markdown files in prose.
var referencePattern = regexp.MustCompile(`(?:\.claude/|/)[a-zA-Z0-9_/-]+\.md`)

const frameworkPrefix = framework.DefaultDir + "/"

// resolveReference maps a ".claude/..." reference onto the framework
// directory and a "/..." reference onto the project root.
func resolveReference(l framework.Layout, ref string) string {
	if rest, ok := strings.CutPrefix(ref, frameworkPrefix); ok {
		return filepath.Join(l.ClaudeDir, filepath.FromSlash(rest))
	}
	return filepath.Join(l.Root, filepath.FromSlash(strings.TrimPrefix(ref, "/")))
}

// ScanReferences resolves every path mention in the framework's markdown.
func ScanReferences(l framework.Layout) ReferenceScan {
	res := ReferenceScan{Details: []Reference{}}
	files := framework.Glob(l.ClaudeDir, ".md", true)
	contents := readAll(files)
	for _, f := range files {
		content, ok := contents[f]
		if !ok {
			continue
		}
		res.FilesScanned++
		source, err := filepath.Rel(l.ClaudeDir, f)
		if err != nil {
			source = f
		}
		for _, ref := range referencePattern.FindAllString(content, -1) {
			target := resolveReference(l, ref)
			exists := framework.Exists(target)
			res.Details = append(res.Details, Reference{
				Source: filepath.ToSlash(source),
				Ref:    ref,
				Target: target,
				Exists: exists,
			})
			res.Total++
			if exists {
				res.Working++
			} else {
				res.Broken++
			}
		}
	}
	res.IntegrityPercent = percent(res.Working, res.Total)
	return res
}

// ScanLinks checks the local targets of markdown links. Relative targets
// resolve against the linking file; absolute ones against the project
// root.
func ScanLinks(l framework.Layout) LinkScan {
	res := LinkScan{Broken: []string{}}
	files := framework.Glob(l.ClaudeDir, ".md", true)
	for f, content := range readAll(files) {
		for _, link := range framework.ParseOutline([]byte(content)).Links {
			target, ok := framework.LocalTarget(link)
			if !ok {
				continue
			}
			res.Total++
			resolved := filepath.Join(filepath.Dir(f), filepath.FromSlash(target))
			if strings.HasPrefix(target, "/") {
				resolved = filepath.Join(l.Root, filepath.FromSlash(target))
			}
			if !framework.Exists(resolved) {
				source, _ := filepath.Rel(l.ClaudeDir, f)
				res.Broken = append(res.Broken, fmt.Sprintf("%s -> %s", filepath.ToSlash(source), target))
			}
		}
	}
	slices.Sort(res.Broken)
	return res
}

// MeasurePerformance estimates the effect of the migration from directory
// counts, consolidation state and reference resolution.
func MeasurePerformance(_ context.Context, env Env, r Report) Report {
	l := env.Layout
	current, _ := countDirs(l.ClaudeDir)

	p := PerformanceResults{}
	p.Directories = DirectoryReduction{
		Current:   current,
		Original:  BaselineDirectories,
		Target:    TargetDirectories,
		Reduction: BaselineDirectories - current,
		TargetMet: current <= TargetDirectories,
	}
	p.Directories.ReductionPercent = float64(p.Directories.Reduction) / BaselineDirectories * 100

	fa := FileAccess{
		ConsolidatedPatterns: framework.IsDir(l.Patterns()) && len(framework.Glob(l.PromptEngPatterns(), ".md", true)) == 0,
		CentralizedQuality:   framework.IsDir(l.Quality()) && len(framework.Glob(l.Quality(), ".md", false)) > 20,
		UnifiedModules:       framework.IsDir(l.Modules()),
	}
	for _, ok := range []bool{fa.ConsolidatedPatterns, fa.CentralizedQuality, fa.UnifiedModules} {
		if ok {
			fa.Score++
		}
	}
	fa.Improvement = fa.Score == 3
	p.FileAccess = fa

	scan := ScanReferences(l)
	res := Resolution{
		Scanned:          scan.Total,
		Broken:           scan.Broken,
		IntegrityPercent: scan.IntegrityPercent,
		BaselineBroken:   BaselineBrokenPercent,
		CurrentBroken:    percent(scan.Broken, scan.Total),
	}
	res.Improvement = res.CurrentBroken <= BaselineBrokenPercent
	p.Resolution = res

	lt := LoadTime{
		TraversalImprovement: p.Directories.ReductionPercent,
		PatternFilesBefore:   PatternFilesBefore,
		PatternFilesAfter:    len(framework.Glob(l.Patterns(), ".md", true)),
		Factors:              []string{},
	}
	if lt.TraversalImprovement > 0 {
		lt.Factors = append(lt.Factors, "directory_reduction")
	}
	lt.DuplicationEliminated = lt.PatternFilesBefore > lt.PatternFilesAfter
	if lt.DuplicationEliminated {
		lt.Factors = append(lt.Factors, "file_deduplication")
	}
	switch len(lt.Factors) {
	case 2:
		lt.EstimatedImprovement = 25
	case 1:
		lt.EstimatedImprovement = 15
	default:
		lt.EstimatedImprovement = 5
	}
	p.LoadTime = lt

	p.Summary = PerformanceSummary{
		DirectoryReduction: p.Directories.ReductionPercent,
		AccessOptimized:    fa.Improvement,
		ResolutionImproved: res.Improvement,
	}
	p.Summary.Overall = p.Summary.DirectoryReduction > 30 && fa.Improvement && res.Improvement
	r.Performance = p
	return r
}

// ValidateReferences scans path mentions and markdown links, groups the
// broken ones and suggests corrections where a file with the same name
// exists elsewhere in the framework.
func ValidateReferences(_ context.Context, env Env, r Report) Report {
	l := env.Layout
	v := ReferenceResults{
		Scan:  ScanReferences(l),
		Links: ScanLinks(l),
	}
	v.Broken = analyzeBroken(v.Scan.Details)
	v.Fixes = fixRequirements(l, v.Scan.Details)

	total := v.Scan.Total + v.Links.Total
	broken := v.Scan.Broken + len(v.Links.Broken)
	v.Summary = IntegritySummary{
		Total:             total,
		Broken:            broken,
		IntegrityPercent:  percent(total-broken, total),
		ImprovementNeeded: broken > 0,
	}
	v.Summary.Acceptable = v.Summary.IntegrityPercent >= 90
	r.References = v
	return r
}

func analyzeBroken(details []Reference) BrokenAnalysis {
	res := BrokenAnalysis{ByDirectory: map[string]int{}, MostCommon: []string{}}
	counts := map[string]int{}
	for _, d := range details {
		if d.Exists {
			continue
		}
		rest := strings.TrimPrefix(strings.TrimPrefix(d.Ref, frameworkPrefix), "/")
		dir, _, found := strings.Cut(rest, "/")
		if !found {
			dir = "."
		}
		res.ByDirectory[dir]++
		counts[d.Ref]++
	}
	refs := make([]string, 0, len(counts))
	for ref := range counts {
		refs = append(refs, ref)
	}
	slices.SortFunc(refs, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	if len(refs) > 5 {
		refs = refs[:5]
	}
	res.MostCommon = append(res.MostCommon, refs...)
	return res
}

func fixRequirements(l framework.Layout, details []Reference) FixRequirements {
	res := FixRequirements{Suggestions: map[string]string{}, Recommendations: []string{}}

	byName := map[string][]string{}
	for _, f := range framework.Glob(l.ClaudeDir, ".md", true) {
		rel, err := filepath.Rel(l.Root, f)
		if err != nil {
			continue
		}
		byName[filepath.Base(f)] = append(byName[filepath.Base(f)], filepath.ToSlash(rel))
	}

	seen := map[string]bool{}
	for _, d := range details {
		if d.Exists || seen[d.Ref] {
			continue
		}
		seen[d.Ref] = true
		if candidates := byName[filepath.Base(d.Ref)]; len(candidates) == 1 {
			res.Suggestions[d.Ref] = candidates[0]
			res.Automated++
		} else {
			res.Manual++
		}
	}

	switch {
	case res.Automated+res.Manual == 0:
		res.EstimatedEffort = "NONE"
	case res.Manual < 10:
		res.EstimatedEffort = "LOW"
	case res.Manual < 50:
		res.EstimatedEffort = "MEDIUM"
	default:
		res.EstimatedEffort = "HIGH"
	}
	if res.Automated > 0 {
		res.Recommendations = append(res.Recommendations,
			fmt.Sprintf("Apply %d suggested path corrections to reflect the consolidated structure", res.Automated))
	}
	if res.Manual > 0 {
		res.Recommendations = append(res.Recommendations,
			fmt.Sprintf("Create or restore %d missing reference targets", res.Manual))
	}
	if len(res.Recommendations) > 0 {
		res.Recommendations = append(res.Recommendations, "Validate all fixes with the conformance suite")
	}
	return res
}
