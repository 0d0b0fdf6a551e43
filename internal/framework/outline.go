package framework

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Heading is an ATX or setext heading.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Outline is the markdown structure of a document.
type Outline struct {
	Headings   []Heading `json:"headings"`
	CodeBlocks int       `json:"code_blocks"`
	Links      []string  `json:"links"`
}

var md = goldmark.New()

// ParseOutline walks the markdown AST of source.
func ParseOutline(source []byte) Outline {
	doc := md.Parser().Parse(text.NewReader(source))

	var o Outline
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Heading:
			o.Headings = append(o.Headings, Heading{Level: v.Level, Text: inlineText(v, source)})
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			o.CodeBlocks++
		case *ast.Link:
			o.Links = append(o.Links, string(v.Destination))
		case *ast.Image:
			o.Links = append(o.Links, string(v.Destination))
		case *ast.AutoLink:
			target := string(v.Label(source))
			if len(v.Protocol) > 0 && !strings.HasPrefix(target, string(v.Protocol)) {
				target = string(v.Protocol) + target
			}
			o.Links = append(o.Links, target)
		}
		return ast.WalkContinue, nil
	})
	return o
}

// IsExternalLink returns true for http:// and https:// URLs.
func IsExternalLink(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

// LocalTarget strips a #fragment from target and reports whether what
// remains names a local file. Anchors, mailto and external URLs are not
// local.
func LocalTarget(target string) (string, bool) {
	if IsExternalLink(target) || strings.HasPrefix(target, "mailto:") {
		return "", false
	}
	if idx := strings.Index(target, "#"); idx >= 0 {
		target = target[:idx]
	}
	return target, target != ""
}

func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
