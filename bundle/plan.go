package bundle

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// IncludeRef is one planned dependency resolution: a directive occurrence with
// its resolved source path and the confined destination it would be copied to.
type IncludeRef struct {
	// Directive is the normalized keyword (".include" or ".lib").
	Directive string

	// Specifier is the file reference exactly as written (quotes removed).
	Specifier string

	// SourcePath is where the file is expected on disk: the specifier itself
	// when absolute, otherwise resolved against the netlist's directory.
	SourcePath string

	// DestRel is the slash-separated destination path relative to the output
	// root. It never contains traversal segments.
	DestRel string
}

// directiveMatch is a directive found on a single line, with the byte span of
// its specifier so the line can be rewritten in place.
type directiveMatch struct {
	keyword   string // normalized, e.g. ".include"
	specifier string
	quote     byte // '"' or '\'' when the specifier was quoted, else 0
	specStart int  // byte offset of the specifier (including opening quote)
	specEnd   int  // byte offset just past the specifier (including closing quote)
}

// Plan scans netlist text for `.include`/`.lib` directives and computes the
// resolution for each occurrence. It is pure: no filesystem access, no
// existence checks. Duplicate specifiers produce duplicate refs; the executor
// deduplicates per specifier.
func Plan(netlistText, baseFilePath string) []IncludeRef {
	baseDir := filepath.Dir(baseFilePath)

	var refs []IncludeRef
	for _, line := range strings.Split(netlistText, "\n") {
		m, ok := scanLine(line)
		if !ok {
			continue
		}
		refs = append(refs, IncludeRef{
			Directive:  m.keyword,
			Specifier:  m.specifier,
			SourcePath: resolveSource(m.specifier, baseDir),
			DestRel:    destRel(m.specifier),
		})
	}
	return refs
}

// Rewrite produces a new netlist text with each directive whose specifier
// appears in resolved pointing at its bundled copy, preserving the original
// quoting style. All other lines pass through unchanged.
func Rewrite(netlistText string, resolved map[string]string) string {
	lines := strings.Split(netlistText, "\n")
	out := make([]string, len(lines))

	for i, line := range lines {
		out[i] = line
		m, ok := scanLine(line)
		if !ok {
			continue
		}
		dest, ok := resolved[m.specifier]
		if !ok {
			continue
		}

		replacement := dest
		if m.quote != 0 {
			replacement = string(m.quote) + dest + string(m.quote)
		}
		out[i] = line[:m.specStart] + replacement + line[m.specEnd:]
	}

	return strings.Join(out, "\n")
}

// scanLine detects an include/lib directive on one line.
func scanLine(line string) (directiveMatch, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return directiveMatch{}, false
	}
	if trimmed[0] == '*' || trimmed[0] == ';' {
		return directiveMatch{}, false
	}

	lower := strings.ToLower(trimmed)
	var keyword string
	switch {
	case strings.HasPrefix(lower, ".include"):
		keyword = ".include"
	case strings.HasPrefix(lower, ".lib"):
		keyword = ".lib"
	default:
		return directiveMatch{}, false
	}

	rest := trimmed[len(keyword):]
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		// Something like ".includexyz" is not a directive we handle.
		return directiveMatch{}, false
	}

	offset := len(line) - len(trimmed) + len(keyword)
	specStart := offset + indexNonSpace(rest)
	if specStart >= len(line) {
		return directiveMatch{}, false
	}

	m := directiveMatch{keyword: keyword, specStart: specStart}

	body := line[specStart:]
	if body[0] == '"' || body[0] == '\'' {
		m.quote = body[0]
		end := strings.IndexByte(body[1:], m.quote)
		if end < 0 {
			// Unterminated quote: take the remainder of the line.
			m.specifier = body[1:]
			m.specEnd = len(line)
		} else {
			m.specifier = body[1 : 1+end]
			m.specEnd = specStart + end + 2
		}
	} else {
		end := strings.IndexAny(body, " \t")
		if end < 0 {
			end = len(body)
		}
		m.specifier = body[:end]
		m.specEnd = specStart + end
	}

	if m.specifier == "" {
		return directiveMatch{}, false
	}
	return m, true
}

// indexNonSpace returns the index of the first non-blank byte in s, or len(s).
func indexNonSpace(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' && s[i] != '\t' {
			return i
		}
	}
	return len(s)
}

// resolveSource computes where a specifier should exist on disk.
func resolveSource(specifier, baseDir string) string {
	if filepath.IsAbs(specifier) {
		return filepath.Clean(specifier)
	}
	return filepath.Join(baseDir, specifier)
}

// destRel computes the confined destination for a specifier, relative to the
// output root. Relative specifiers keep their directory structure with
// traversal segments stripped; absolute specifiers land under abs/ with a
// short path hash so same-named files from different locations cannot collide.
func destRel(specifier string) string {
	if filepath.IsAbs(specifier) {
		resolved := filepath.Clean(specifier)
		base := sanitizeSegment(filepath.Base(resolved))
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		return "abs/" + stem + "_" + shortHash(resolved) + ext
	}
	return sanitizeRel(specifier)
}

// sanitizeRel rebuilds a relative path from its safe segments only.
func sanitizeRel(p string) string {
	raw := strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\'
	})

	var segments []string
	for _, seg := range raw {
		if seg == "." || seg == ".." {
			continue
		}
		if s := sanitizeSegment(seg); s != "" {
			segments = append(segments, s)
		}
	}

	if len(segments) == 0 {
		return "unnamed"
	}
	return strings.Join(segments, "/")
}

// sanitizeSegment strips characters that are illegal in file names.
func sanitizeSegment(seg string) string {
	var b strings.Builder
	b.Grow(len(seg))
	for _, r := range seg {
		switch {
		case r < 0x20, strings.ContainsRune(`<>:"|?*`, r):
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), ". ")
}

// shortHash returns a short deterministic fingerprint of a path.
func shortHash(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:4])
}
