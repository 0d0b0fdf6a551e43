// Package review runs the declarative 100-point framework review.
package review

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/spboyer/promptaudit/internal/validation"
)

//go:embed rules.yaml
var defaultRules []byte

// Rule is one declarative review check.
type Rule struct {
	ID          int            `mapstructure:"id" json:"id"`
	Category    string         `mapstructure:"category" json:"category"`
	Description string         `mapstructure:"description" json:"description"`
	Kind        string         `mapstructure:"kind" json:"kind"`
	Params      map[string]any `mapstructure:"params" json:"params,omitempty"`
	Requires    []string       `mapstructure:"requires" json:"requires,omitempty"`
}

type ruleFile struct {
	Rules []Rule `mapstructure:"rules"`
}

// compiledRule pairs a rule with its decoded evaluator.
type compiledRule struct {
	Rule
	eval func(*env) outcome
}

// RuleSet is a validated, compiled list of rules ordered by ID.
type RuleSet struct {
	rules []compiledRule
}

// Rules returns the rule definitions in evaluation order.
func (s *RuleSet) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.Rule
	}
	return out
}

// Len returns the number of rules.
func (s *RuleSet) Len() int { return len(s.rules) }

// Format identifies a rule file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// DefaultRules returns the embedded 100-rule set.
func DefaultRules() (*RuleSet, error) {
	return ParseRules(defaultRules, FormatYAML)
}

// LoadRules reads a rule file. Files ending in .toml are decoded as TOML,
// everything else as YAML. An empty path returns the embedded defaults.
func LoadRules(path string) (*RuleSet, error) {
	if path == "" {
		return DefaultRules()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules %s: %w", path, err)
	}
	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = FormatTOML
	}
	rs, err := ParseRules(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// ParseRules decodes, schema-validates and compiles a rule document.
func ParseRules(data []byte, format Format) (*RuleSet, error) {
	var doc map[string]any
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing TOML rules: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing YAML rules: %w", err)
		}
	}

	if errs := validation.ValidateRules(doc); len(errs) > 0 {
		return nil, fmt.Errorf("invalid rules:\n  %s", strings.Join(errs, "\n  "))
	}

	var rf ruleFile
	if err := decode(doc, &rf); err != nil {
		return nil, fmt.Errorf("decoding rules: %w", err)
	}

	seen := make(map[int]bool, len(rf.Rules))
	set := &RuleSet{rules: make([]compiledRule, 0, len(rf.Rules))}
	var errs []error
	for _, r := range rf.Rules {
		if seen[r.ID] {
			errs = append(errs, fmt.Errorf("rule %d: duplicate id", r.ID))
			continue
		}
		seen[r.ID] = true
		eval, err := compile(r)
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %d (%s): %w", r.ID, r.Kind, err))
			continue
		}
		set.rules = append(set.rules, compiledRule{Rule: r, eval: eval})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	sort.SliceStable(set.rules, func(i, j int) bool { return set.rules[i].ID < set.rules[j].ID })
	return set, nil
}

// decode maps loosely typed YAML/TOML data onto out. Unknown keys are
// errors so that typos in params surface at load time.
func decode(in any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
