package framework

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spboyer/promptaudit/internal/tokens"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoFrontmatter means the document does not start with "---".
	ErrNoFrontmatter = errors.New("missing YAML frontmatter delimiter")
	// ErrUnclosedFrontmatter means no later line equals "---".
	ErrUnclosedFrontmatter = errors.New("missing closing YAML delimiter")
)

// Document is a parsed markdown file.
type Document struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	// HasFrontmatter is true when the content starts with "---" and a later
	// line trims to "---".
	HasFrontmatter bool           `json:"has_frontmatter"`
	Frontmatter    map[string]any `json:"frontmatter,omitempty"`
	// FrontmatterErr holds the reason the frontmatter is missing or invalid.
	FrontmatterErr string `json:"frontmatter_error,omitempty"`
	Body           string `json:"body"`
	Tokens         int    `json:"tokens"`
	Characters     int    `json:"characters"`
	Lines          int    `json:"lines"`
}

// ReadDocument reads and parses path.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDocument(path, string(data)), nil
}

// ParseDocument never fails: frontmatter problems are recorded on the
// returned Document.
func ParseDocument(path, content string) *Document {
	doc := &Document{
		Path:       path,
		Content:    content,
		Body:       content,
		Tokens:     tokens.Estimate(content),
		Characters: utf8.RuneCountInString(content),
		Lines:      strings.Count(content, "\n") + 1,
	}
	fm, body, err := SplitFrontmatter(content)
	switch {
	case errors.Is(err, ErrNoFrontmatter), errors.Is(err, ErrUnclosedFrontmatter):
		doc.FrontmatterErr = err.Error()
		return doc
	case err != nil:
		doc.HasFrontmatter = true
		doc.FrontmatterErr = err.Error()
		doc.Body = body
		return doc
	}
	doc.HasFrontmatter = true
	doc.Frontmatter = fm
	doc.Body = body
	return doc
}

// SplitFrontmatter separates a leading YAML block from the body. The
// block opens with "---" at the start of content and closes at the first
// later line that trims to "---".
func SplitFrontmatter(content string) (map[string]any, string, error) {
	if !strings.HasPrefix(content, "---") {
		return nil, content, ErrNoFrontmatter
	}
	lines := strings.Split(content, "\n")
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, content, ErrUnclosedFrontmatter
	}
	block := strings.Join(lines[1:end], "\n")
	body := strings.Join(lines[end+1:], "\n")

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return nil, body, fmt.Errorf("invalid YAML: %w", err)
	}
	return fm, body, nil
}

// Field returns the frontmatter value for key as a string, if it is one.
func (d *Document) Field(key string) (string, bool) {
	v, ok := d.Frontmatter[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
