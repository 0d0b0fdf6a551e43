package reporting

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// SpliceSection replaces the text from startMarker up to endMarker with
// section. Without an end marker everything after startMarker is
// replaced. Without a start marker section is appended.
func SpliceSection(content, startMarker, endMarker, section string) string {
	start := strings.Index(content, startMarker)
	if start < 0 {
		return content + "\n" + section + "\n"
	}
	rest := content[start:]
	end := strings.Index(rest, endMarker)
	if endMarker == "" || end < 0 {
		return content[:start] + section + "\n"
	}
	return content[:start] + section + "\n" + rest[end:]
}

// SpliceFile applies SpliceSection to the file at path. A missing file is
// left alone and reported with updated=false.
func SpliceFile(path, startMarker, endMarker, section string) (updated bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	out := SpliceSection(string(data), startMarker, endMarker, section)
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}
