package review

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spboyer/promptaudit/internal/framework"
)

type outcome struct {
	Passed  bool
	Details string
}

// kindFunc decodes a rule's params and returns its evaluator.
type kindFunc func(params map[string]any) (func(*env) outcome, error)

// kind binds a params struct type to an evaluator. defaults seeds values
// that the rule file may omit.
func kind[P any](defaults P, check func(*P) error, eval func(*env, P) outcome) kindFunc {
	return func(raw map[string]any) (func(*env) outcome, error) {
		p := defaults
		if raw != nil {
			if err := decode(raw, &p); err != nil {
				return nil, err
			}
		}
		if check != nil {
			if err := check(&p); err != nil {
				return nil, err
			}
		}
		return func(e *env) outcome { return eval(e, p) }, nil
	}
}

var kinds = map[string]kindFunc{
	"file_exists":        kind(pathsParams{}, checkPaths, evalFileExists),
	"dir_exists":         kind(pathsParams{}, checkPaths, evalDirExists),
	"executable":         kind(executableParams{}, nil, evalExecutable),
	"contains":           kind(containsParams{}, checkContains, evalContains),
	"excludes":           kind(excludesParams{}, nil, evalExcludes),
	"occurrences":        kind(occurrencesParams{}, checkOccurrences, evalOccurrences),
	"word_count":         kind(boundsParams{}, checkFile, evalWordCount),
	"line_count":         kind(boundsParams{}, checkFile, evalLineCount),
	"sentence_length":    kind(sentenceParams{Below: 20}, nil, evalSentenceLength),
	"glob_count":         kind(globParams{Ext: ".md"}, nil, evalGlobCount),
	"subdir_count":       kind(dirParams{}, nil, evalSubdirCount),
	"max_depth":          kind(dirParams{}, nil, evalMaxDepth),
	"documented_count":   kind(documentedParams{Low: 50, High: 150, Tolerance: 2}, nil, evalDocumentedCount),
	"links_resolve":      kind(linksParams{}, nil, evalLinksResolve),
	"sample_frontmatter": kind(sampleParams{Sample: 10}, nil, evalSampleFrontmatter),
	"sample_fields":      kind(fieldsParams{sampleParams: sampleParams{Sample: 5}}, nil, evalSampleFields),
	"sample_contains":    kind(sampleContainsParams{sampleParams: sampleParams{Sample: 5}}, nil, evalSampleContains),
	"sample_description": kind(descriptionParams{sampleParams: sampleParams{Sample: 5}, Field: "description", MinLen: 10, MaxLen: 150}, nil, evalSampleDescription),
	"sample_body_words":  kind(bodyWordsParams{sampleParams: sampleParams{Sample: 5}, MinWords: 50}, nil, evalSampleBodyWords),
	"sample_name_style":  kind(nameStyleParams{sampleParams: sampleParams{Sample: 10}}, nil, evalSampleNameStyle),
	"field_alias":        kind(aliasParams{sampleParams: sampleParams{Sample: 5}}, checkAlias, evalFieldAlias),
	"unique_names":       kind(dirParams{}, nil, evalUniqueNames),
}

func compile(r Rule) (func(*env) outcome, error) {
	k, ok := kinds[r.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", r.Kind)
	}
	eval, err := k(r.Params)
	if err != nil {
		return nil, err
	}
	if len(r.Requires) == 0 {
		return eval, nil
	}
	requires := r.Requires
	return func(e *env) outcome {
		for _, p := range requires {
			if !e.exists(p) {
				return outcome{Details: p + " missing"}
			}
		}
		return eval(e)
	}, nil
}

// within reports lo <= n <= hi; a nil hi is unbounded.
func within(n, lo int, hi *int) bool {
	return n >= lo && (hi == nil || n <= *hi)
}

// file_exists, dir_exists

type pathsParams struct {
	Paths []string `mapstructure:"paths"`
	// Min is the number of paths that must exist; zero means all.
	Min int `mapstructure:"min"`
}

func checkPaths(p *pathsParams) error {
	if len(p.Paths) == 0 {
		return errors.New("paths is required")
	}
	return nil
}

func evalFileExists(e *env, p pathsParams) outcome {
	return countPresent(p, func(path string) bool { return framework.Exists(e.path(path)) })
}

func evalDirExists(e *env, p pathsParams) outcome {
	return countPresent(p, func(path string) bool { return framework.IsDir(e.path(path)) })
}

func countPresent(p pathsParams, present func(string) bool) outcome {
	found := 0
	var missing []string
	for _, path := range p.Paths {
		if present(path) {
			found++
		} else {
			missing = append(missing, path)
		}
	}
	if p.Min > 0 {
		return outcome{Passed: found >= p.Min, Details: fmt.Sprintf("%d/%d present", found, len(p.Paths))}
	}
	o := outcome{Passed: len(missing) == 0}
	if !o.Passed && len(p.Paths) > 1 {
		o.Details = "missing: " + strings.Join(missing, ", ")
	}
	return o
}

// executable

type executableParams struct {
	Path string `mapstructure:"path"`
}

func evalExecutable(e *env, p executableParams) outcome {
	info, err := os.Stat(e.path(p.Path))
	if err != nil {
		return outcome{Details: p.Path + " missing"}
	}
	return outcome{Passed: info.Mode().Perm()&0o111 != 0}
}

// contains

type containsParams struct {
	Files []string `mapstructure:"files"`
	Terms []string `mapstructure:"terms"`
	// All requires every term; otherwise MinTerms (default 1) must match.
	All      bool `mapstructure:"all"`
	MinTerms int  `mapstructure:"min_terms"`
	MaxTerms int  `mapstructure:"max_terms"`
	// MinFiles is the number of files that must match (default 1).
	MinFiles int `mapstructure:"min_files"`
	// Union counts terms across all files instead of per file.
	Union bool `mapstructure:"union"`
	// CaseSensitive disables lowercasing of the content. Terms are never
	// lowercased, so they should be written in lower case.
	CaseSensitive bool `mapstructure:"case_sensitive"`
}

func checkContains(p *containsParams) error {
	if len(p.Files) == 0 || len(p.Terms) == 0 {
		return errors.New("files and terms are required")
	}
	if p.All {
		p.MinTerms = len(p.Terms)
	}
	if p.MinTerms == 0 {
		p.MinTerms = 1
	}
	if p.MinFiles == 0 {
		p.MinFiles = 1
	}
	return nil
}

// presentTerms returns the terms found in content. Without caseSensitive
// only the content is lowercased, so a term with capitals never matches.
func presentTerms(content string, terms []string, caseSensitive bool) []string {
	c := fold(content, caseSensitive)
	var found []string
	for _, t := range terms {
		if strings.Contains(c, t) {
			found = append(found, t)
		}
	}
	return found
}

func (p containsParams) termsOK(n int) bool {
	return n >= p.MinTerms && (p.MaxTerms == 0 || n <= p.MaxTerms)
}

func evalContains(e *env, p containsParams) outcome {
	if p.Union {
		found := make(map[string]bool)
		for _, f := range p.Files {
			content, ok := e.read(f)
			if !ok {
				continue
			}
			for _, t := range presentTerms(content, p.Terms, p.CaseSensitive) {
				found[t] = true
			}
		}
		return outcome{
			Passed:  p.termsOK(len(found)),
			Details: fmt.Sprintf("%d/%d topics covered", len(found), len(p.Terms)),
		}
	}

	matched, best := 0, 0
	for _, f := range p.Files {
		content, ok := e.read(f)
		if !ok {
			continue
		}
		n := len(presentTerms(content, p.Terms, p.CaseSensitive))
		best = max(best, n)
		if p.termsOK(n) {
			matched++
		}
	}
	o := outcome{Passed: matched >= p.MinFiles}
	if p.MaxTerms > 0 || p.MinTerms > 1 && !p.All {
		o.Details = fmt.Sprintf("Found %d of %d", best, len(p.Terms))
	}
	return o
}

// excludes

type excludesParams struct {
	Files         []string `mapstructure:"files"`
	Terms         []string `mapstructure:"terms"`
	MaxTerms      int      `mapstructure:"max_terms"`
	CaseSensitive bool     `mapstructure:"case_sensitive"`
}

// evalExcludes passes when at most MaxTerms distinct terms appear across
// the files. Missing files contain nothing.
func evalExcludes(e *env, p excludesParams) outcome {
	seen := make(map[string]bool)
	var found []string
	for _, f := range p.Files {
		content, ok := e.read(f)
		if !ok {
			continue
		}
		for _, t := range presentTerms(content, p.Terms, p.CaseSensitive) {
			if !seen[t] {
				seen[t] = true
				found = append(found, t)
			}
		}
	}
	o := outcome{Passed: len(found) <= p.MaxTerms}
	if len(found) > 0 {
		o.Details = "Found: " + strings.Join(found, ", ")
	}
	return o
}

// occurrences

type countSpec struct {
	Terms []string `mapstructure:"terms"`
	Min   int      `mapstructure:"min"`
	Max   *int     `mapstructure:"max"`
}

type occurrencesParams struct {
	Files         []string    `mapstructure:"files"`
	Counts        []countSpec `mapstructure:"counts"`
	MinFiles      int         `mapstructure:"min_files"`
	CaseSensitive bool        `mapstructure:"case_sensitive"`
}

func checkOccurrences(p *occurrencesParams) error {
	if len(p.Files) == 0 || len(p.Counts) == 0 {
		return errors.New("files and counts are required")
	}
	if p.MinFiles == 0 {
		p.MinFiles = 1
	}
	return nil
}

// evalOccurrences passes when at least MinFiles files satisfy every count
// bound. Each bound sums the occurrences of its terms.
func evalOccurrences(e *env, p occurrencesParams) outcome {
	matched := 0
	details := ""
	for _, f := range p.Files {
		content, ok := e.read(f)
		if !ok {
			continue
		}
		c := fold(content, p.CaseSensitive)
		all := true
		var parts []string
		for _, spec := range p.Counts {
			n := 0
			for _, t := range spec.Terms {
				n += strings.Count(c, t)
			}
			parts = append(parts, fmt.Sprintf("%q=%d", strings.Join(spec.Terms, "|"), n))
			if !within(n, spec.Min, spec.Max) {
				all = false
			}
		}
		if details == "" {
			details = f + ": " + strings.Join(parts, ", ")
		}
		if all {
			matched++
		}
	}
	return outcome{Passed: matched >= p.MinFiles, Details: details}
}

// word_count, line_count

type boundsParams struct {
	File      string `mapstructure:"file"`
	Min       int    `mapstructure:"min"`
	Max       *int   `mapstructure:"max"`
	MissingOK bool   `mapstructure:"missing_ok"`
}

func checkFile(p *boundsParams) error {
	if p.File == "" {
		return errors.New("file is required")
	}
	return nil
}

func evalWordCount(e *env, p boundsParams) outcome {
	content, ok := e.read(p.File)
	if !ok {
		return outcome{Passed: p.MissingOK, Details: p.File + " missing"}
	}
	n := len(strings.Fields(content))
	return outcome{Passed: within(n, p.Min, p.Max), Details: fmt.Sprintf("Word count: %d", n)}
}

func evalLineCount(e *env, p boundsParams) outcome {
	content, ok := e.read(p.File)
	if !ok {
		return outcome{Passed: p.MissingOK}
	}
	n := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return outcome{Passed: within(n, p.Min, p.Max), Details: fmt.Sprintf("%d non-empty lines", n)}
}

// sentence_length

type sentenceParams struct {
	File  string  `mapstructure:"file"`
	Below float64 `mapstructure:"below"`
}

func evalSentenceLength(e *env, p sentenceParams) outcome {
	content, ok := e.read(p.File)
	if !ok {
		return outcome{Details: p.File + " missing"}
	}
	sentences := strings.Count(content, ".") + strings.Count(content, "!") + strings.Count(content, "?")
	words := len(strings.Fields(content))
	avg := float64(words) / float64(max(sentences, 1))
	return outcome{Passed: avg < p.Below, Details: fmt.Sprintf("Avg sentence length: %.1f", avg)}
}

// glob_count

type globParams struct {
	Dir       string `mapstructure:"dir"`
	Ext       string `mapstructure:"ext"`
	Recursive bool   `mapstructure:"recursive"`
	Min       int    `mapstructure:"min"`
	Max       *int   `mapstructure:"max"`
}

func evalGlobCount(e *env, p globParams) outcome {
	n := len(framework.Glob(e.path(p.Dir), p.Ext, p.Recursive))
	return outcome{Passed: within(n, p.Min, p.Max), Details: fmt.Sprintf("Found %d files", n)}
}

// subdir_count, max_depth, unique_names

type dirParams struct {
	Dir string `mapstructure:"dir"`
	Min int    `mapstructure:"min"`
	Max int    `mapstructure:"max"`
}

func evalSubdirCount(e *env, p dirParams) outcome {
	entries, err := os.ReadDir(e.path(p.Dir))
	if err != nil {
		return outcome{Details: p.Dir + " missing"}
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	shown := names
	if len(shown) > 3 {
		shown = shown[:3]
	}
	return outcome{
		Passed:  len(names) >= p.Min,
		Details: fmt.Sprintf("Found categories: %s", strings.Join(shown, ", ")),
	}
}

// evalMaxDepth measures directory nesting below Dir; Dir itself is depth
// zero. A missing directory has depth zero.
func evalMaxDepth(e *env, p dirParams) outcome {
	base := e.path(p.Dir)
	depth := 0
	_ = filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(base, path)
		if relErr != nil || rel == "." {
			return nil
		}
		depth = max(depth, strings.Count(rel, string(filepath.Separator))+1)
		return nil
	})
	return outcome{Passed: depth <= p.Max, Details: fmt.Sprintf("Max depth: %d", depth)}
}

func evalUniqueNames(e *env, p dirParams) outcome {
	seen := make(map[string]bool)
	var dups []string
	for _, f := range e.commandFiles(p.Dir) {
		name := framework.Stem(f)
		if seen[name] {
			dups = append(dups, name)
		}
		seen[name] = true
	}
	o := outcome{Passed: len(dups) == 0}
	if len(dups) > 0 {
		o.Details = "Duplicates: " + strings.Join(dups, ", ")
	}
	return o
}

// documented_count

type documentedParams struct {
	File      string `mapstructure:"file"`
	Dir       string `mapstructure:"dir"`
	Low       int    `mapstructure:"low"`
	High      int    `mapstructure:"high"`
	Tolerance int    `mapstructure:"tolerance"`
}

var numberPattern = regexp.MustCompile(`\d+`)

// evalDocumentedCount passes when some number in File within [Low, High]
// is within Tolerance of the real markdown count under Dir.
func evalDocumentedCount(e *env, p documentedParams) outcome {
	content, ok := e.read(p.File)
	if !ok {
		return outcome{Details: p.File + " missing"}
	}
	actual := len(e.commandFiles(p.Dir))
	var documented []string
	passed := false
	for _, m := range numberPattern.FindAllString(content, -1) {
		n, err := strconv.Atoi(m)
		if err != nil || n < p.Low || n > p.High {
			continue
		}
		documented = append(documented, m)
		if abs(n-actual) <= p.Tolerance {
			passed = true
		}
	}
	return outcome{
		Passed:  passed,
		Details: fmt.Sprintf("Actual: %d, Documented: [%s]", actual, strings.Join(documented, ", ")),
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// links_resolve

type linksParams struct {
	File string `mapstructure:"file"`
}

// evalLinksResolve checks local link targets in File relative to its
// directory. A missing file has no broken links.
func evalLinksResolve(e *env, p linksParams) outcome {
	content, ok := e.read(p.File)
	if !ok {
		return outcome{Passed: true}
	}
	dir := filepath.Dir(e.path(p.File))
	var broken []string
	for _, link := range framework.ParseOutline([]byte(content)).Links {
		target, local := framework.LocalTarget(link)
		if !local {
			continue
		}
		if !framework.Exists(filepath.Join(dir, filepath.FromSlash(target))) {
			broken = append(broken, target)
		}
	}
	if len(broken) > 0 {
		return outcome{Details: fmt.Sprintf("Found %d broken links: %s", len(broken), strings.Join(broken, ", "))}
	}
	return outcome{Passed: true}
}

// sample_* kinds inspect the first Sample command files.

type sampleParams struct {
	Dir    string `mapstructure:"dir"`
	Sample int    `mapstructure:"sample"`
	Min    int    `mapstructure:"min"`
	// MissingOK passes the rule when Dir does not exist.
	MissingOK bool `mapstructure:"missing_ok"`
}

// run counts sampled documents accepted by match.
func (p sampleParams) run(e *env, label string, match func(*framework.Document) bool) outcome {
	if p.MissingOK && !framework.IsDir(e.path(p.Dir)) {
		return outcome{Passed: true, Details: p.Dir + " missing"}
	}
	docs := e.sample(p.Dir, p.Sample)
	n := 0
	for _, d := range docs {
		if match(d) {
			n++
		}
	}
	total := p.Sample
	if total == 0 {
		total = len(docs)
	}
	return outcome{Passed: n >= p.Min, Details: fmt.Sprintf("%d/%d %s", n, total, label)}
}

func evalSampleFrontmatter(e *env, p sampleParams) outcome {
	var errs []string
	o := p.run(e, "valid", func(d *framework.Document) bool {
		if d.HasFrontmatter && d.FrontmatterErr == "" {
			return true
		}
		if len(errs) < 2 {
			errs = append(errs, fmt.Sprintf("%s: %s", filepath.Base(d.Path), d.FrontmatterErr))
		}
		return false
	})
	if len(errs) > 0 {
		o.Details += ", errors: " + strings.Join(errs, "; ")
	}
	return o
}

type fieldsParams struct {
	sampleParams `mapstructure:",squash"`
	Fields       []string `mapstructure:"fields"`
}

func evalSampleFields(e *env, p fieldsParams) outcome {
	return p.run(e, "commands compliant", func(d *framework.Document) bool {
		if d.Frontmatter == nil {
			return false
		}
		for _, f := range p.Fields {
			if _, ok := d.Frontmatter[f]; !ok {
				return false
			}
		}
		return true
	})
}

type sampleContainsParams struct {
	sampleParams  `mapstructure:",squash"`
	Terms         []string `mapstructure:"terms"`
	CaseSensitive bool     `mapstructure:"case_sensitive"`
}

func evalSampleContains(e *env, p sampleContainsParams) outcome {
	return p.run(e, "matched", func(d *framework.Document) bool {
		return len(presentTerms(d.Content, p.Terms, p.CaseSensitive)) > 0
	})
}

type descriptionParams struct {
	sampleParams `mapstructure:",squash"`
	Field        string `mapstructure:"field"`
	MinLen       int    `mapstructure:"min_len"`
	MaxLen       int    `mapstructure:"max_len"`
}

// evalSampleDescription accepts descriptions of reasonable length that
// contain more than one word.
func evalSampleDescription(e *env, p descriptionParams) outcome {
	return p.run(e, "have good descriptions", func(d *framework.Document) bool {
		desc, ok := d.Field(p.Field)
		return ok && len(desc) >= p.MinLen && len(desc) <= p.MaxLen && strings.Contains(desc, " ")
	})
}

type bodyWordsParams struct {
	sampleParams `mapstructure:",squash"`
	MinWords     int `mapstructure:"min_words"`
}

func evalSampleBodyWords(e *env, p bodyWordsParams) outcome {
	return p.run(e, "have sufficient content", func(d *framework.Document) bool {
		return d.HasFrontmatter && len(strings.Fields(d.Body)) >= p.MinWords
	})
}

type nameStyleParams struct {
	sampleParams `mapstructure:",squash"`
	MaxLen       int      `mapstructure:"max_len"`
	Separator    string   `mapstructure:"separator"`
	Forbidden    []string `mapstructure:"forbidden"`
}

func evalSampleNameStyle(e *env, p nameStyleParams) outcome {
	return p.run(e, "have simple names", func(d *framework.Document) bool {
		name := framework.Stem(d.Path)
		if p.MaxLen > 0 && len(name) > p.MaxLen {
			return false
		}
		if p.Separator != "" && !strings.Contains(name, p.Separator) {
			return false
		}
		for _, f := range p.Forbidden {
			if strings.Contains(name, f) {
				return false
			}
		}
		return true
	})
}

type aliasParams struct {
	sampleParams `mapstructure:",squash"`
	Alias        string `mapstructure:"alias"`
	Canonical    string `mapstructure:"canonical"`
}

func checkAlias(p *aliasParams) error {
	if p.Alias == "" || p.Canonical == "" {
		return errors.New("alias and canonical are required")
	}
	return nil
}

// evalFieldAlias fails when a sampled file uses Alias without Canonical.
func evalFieldAlias(e *env, p aliasParams) outcome {
	if p.MissingOK && !framework.IsDir(e.path(p.Dir)) {
		return outcome{Passed: true}
	}
	var inconsistent []string
	for _, d := range e.sample(p.Dir, p.Sample) {
		if strings.Contains(d.Content, p.Alias) && !strings.Contains(d.Content, p.Canonical) {
			inconsistent = append(inconsistent, filepath.Base(d.Path))
		}
	}
	sort.Strings(inconsistent)
	o := outcome{Passed: len(inconsistent) == 0}
	if len(inconsistent) > 0 {
		o.Details = "Inconsistent: " + strings.Join(inconsistent, ", ")
	}
	return o
}
