// Package template renders workflow prompts with text/template.
package template

import (
	"bytes"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

// Context holds all variables available to a prompt template.
type Context struct {
	Scenario   string
	Complexity string
	// Files is the comma-separated list of context files.
	Files string
	// Summary renders every scenario value as "key: value" pairs.
	Summary string

	// Scenario-specific values, such as feature or bug_report.
	Vars map[string]string
}

// Render resolves template expressions in the given string.
// Uses Go's text/template syntax: {{.Files}}, {{.Vars.feature}}.
// Returns the input unchanged if it contains no template delimiters.
func Render(tmpl string, ctx *Context) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := template.New("").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("template: parse: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("template: render: %w", err)
	}

	return buf.String(), nil
}

// Set is a collection of named templates, declared with
// {{define "name"}} blocks.
type Set struct {
	t *template.Template
}

// ParseFS parses the files of fsys matching patterns into a Set.
func ParseFS(fsys fs.FS, patterns ...string) (*Set, error) {
	t, err := template.New("").Option("missingkey=error").ParseFS(fsys, patterns...)
	if err != nil {
		return nil, fmt.Errorf("template: parse: %w", err)
	}
	return &Set{t: t}, nil
}

// Override returns a copy of s in which definitions parsed from fsys
// replace those of the same name.
func (s *Set) Override(fsys fs.FS, patterns ...string) (*Set, error) {
	c, err := s.t.Clone()
	if err != nil {
		return nil, fmt.Errorf("template: clone: %w", err)
	}
	if _, err := c.ParseFS(fsys, patterns...); err != nil {
		return nil, fmt.Errorf("template: parse: %w", err)
	}
	return &Set{t: c}, nil
}

// Has reports whether the set defines name.
func (s *Set) Has(name string) bool {
	return s.t.Lookup(name) != nil
}

// Render executes the template called name.
func (s *Set) Render(name string, ctx *Context) (string, error) {
	if !s.Has(name) {
		return "", fmt.Errorf("template: %q is not defined", name)
	}
	var buf bytes.Buffer
	if err := s.t.ExecuteTemplate(&buf, name, ctx); err != nil {
		return "", fmt.Errorf("template: render %s: %w", name, err)
	}
	return buf.String(), nil
}
