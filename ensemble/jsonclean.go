package ensemble

import (
	"regexp"
	"strings"
)

// trailingCommaPattern matches trailing commas before ] or }.
var trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)

// CleanJSON removes JavaScript-style comments and trailing commas from a
// recovered JSON string. Models commonly produce these invalid artifacts.
// Cleaning does not validate: the result is still untrusted content that
// callers must unmarshal and check themselves.
func CleanJSON(raw string) string {
	if raw == "" {
		return ""
	}

	// Strip // comments outside string values, line by line.
	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, stripLineComment(line))
	}
	result := strings.Join(cleaned, "\n")

	return trailingCommaPattern.ReplaceAllString(result, "$1")
}

// stripLineComment removes a // comment from a JSON line, respecting string
// values. For example:
//
//	"path/to/model.lib",         // comment   → "path/to/model.lib",
//	"url": "http://example.com"  // comment   → "url": "http://example.com"
//	"url": "http://example.com"              → unchanged
func stripLineComment(line string) string {
	// Fast path: no // at all
	if !strings.Contains(line, "//") {
		return line
	}

	// Walk the line, tracking whether we're inside a string.
	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
