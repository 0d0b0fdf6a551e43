package framework

import (
	"path/filepath"
	"strings"
)

// FileType classifies a framework file for conformance testing.
type FileType string

const (
	FileCommand       FileType = "command"
	FileComponent     FileType = "component"
	FileDocumentation FileType = "documentation"
	FileConfig        FileType = "config"
	FileIndex         FileType = "index"
	FileReadme        FileType = "readme"
)

// Classify decides the FileType of path from its location and name.
func Classify(path string) FileType {
	full := strings.ToLower(filepath.ToSlash(path))
	name := strings.ToLower(filepath.Base(path))

	switch {
	case strings.Contains(full, ".claude/commands"):
		return FileCommand
	case strings.Contains(full, ".claude/components"), strings.Contains(full, ".claude/context"):
		if containsAny(name, "index", "library", "contents") {
			return FileIndex
		}
		return FileComponent
	case containsAny(name, "readme", "usage", "faq", "guide"):
		return FileReadme
	}
	switch filepath.Ext(path) {
	case ".json", ".yaml", ".yml":
		return FileConfig
	}
	return FileDocumentation
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
