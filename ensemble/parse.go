package ensemble

import (
	"regexp"
	"strings"
)

// Outputs holds the three recovered fields. Each is independently empty when
// unrecoverable; the triple is always structurally complete and never nil.
type Outputs struct {
	FinalMarkdown string
	SpiceNetlist  string
	CircuitJSON   string
}

// extractor attempts one recovery strategy against the full response text.
type extractor func(response string) (string, bool)

// Per-field strategy chains, applied in order with short-circuit on first
// success. The ordering is the contract: exact tag wins over a language-tagged
// fence, which wins over a plausible untagged fence, which (for JSON) wins
// over the raw brace span.
var (
	markdownExtractors = []extractor{
		tagged(TagMarkdownOpen, TagMarkdownClose),
		// No fallback: an absent markdown block stays empty and the caller
		// substitutes a user-visible placeholder.
	}

	spiceExtractors = []extractor{
		tagged(TagSpiceOpen, TagSpiceClose),
		spiceTaggedFence,
		plausibleSpiceFence,
	}

	jsonExtractors = []extractor{
		tagged(TagJSONOpen, TagJSONClose),
		jsonTaggedFence,
		braceSpan,
	}
)

// ParseResponse recovers the three output fields from the ensembling
// provider's reply. It never fails: each field defaults to the empty string
// when no strategy succeeds.
func ParseResponse(response string) Outputs {
	return Outputs{
		FinalMarkdown: apply(markdownExtractors, response),
		SpiceNetlist:  apply(spiceExtractors, response),
		CircuitJSON:   apply(jsonExtractors, response),
	}
}

// apply runs a strategy chain, returning the first hit.
func apply(chain []extractor, response string) string {
	for _, extract := range chain {
		if got, ok := extract(response); ok {
			return got
		}
	}
	return ""
}

// tagged extracts the trimmed text between the first open tag and the first
// close tag, provided the close tag strictly follows the open tag.
func tagged(open, close string) extractor {
	return func(response string) (string, bool) {
		start := strings.Index(response, open)
		if start < 0 {
			return "", false
		}
		end := strings.Index(response, close)
		if end < 0 || end <= start {
			return "", false
		}
		return strings.TrimSpace(response[start+len(open) : end]), true
	}
}

// fence is one Markdown fenced code block.
type fence struct {
	lang string
	body string
}

// scanFences collects the fenced code blocks of a response, in order.
// A fence opens on a line of three backticks optionally followed by a
// language tag and closes on a bare three-backtick line.
func scanFences(response string) []fence {
	var fences []fence

	lines := strings.Split(response, "\n")
	inFence := false
	var lang string
	var body []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !inFence {
			if rest, ok := strings.CutPrefix(trimmed, "```"); ok {
				inFence = true
				lang = strings.ToLower(strings.TrimSpace(rest))
				body = body[:0]
			}
			continue
		}
		if trimmed == "```" {
			fences = append(fences, fence{
				lang: lang,
				body: strings.TrimSpace(strings.Join(body, "\n")),
			})
			inFence = false
			continue
		}
		body = append(body, line)
	}

	return fences
}

// spiceLangs are the fence language tags accepted as SPICE without further
// plausibility checking.
var spiceLangs = map[string]bool{
	"spice":   true,
	"cir":     true,
	"netlist": true,
	"ngspice": true,
	"ltspice": true,
	"hspice":  true,
	"pspice":  true,
}

// spiceTaggedFence accepts the first fence carrying a recognized SPICE
// language tag.
func spiceTaggedFence(response string) (string, bool) {
	for _, f := range scanFences(response) {
		if spiceLangs[f.lang] {
			return f.body, true
		}
	}
	return "", false
}

// plausibleSpiceFence accepts the first fence of any language (including
// untagged) whose body independently looks like a netlist. The plausibility
// check guards against grabbing an unrelated code sample: a lone fence that
// fails the check is rejected and the field stays empty.
func plausibleSpiceFence(response string) (string, bool) {
	for _, f := range scanFences(response) {
		if looksLikeSpice(f.body) {
			return f.body, true
		}
	}
	return "", false
}

// Recognized simulation directives and device reference prefixes for the
// SPICE plausibility check.
var (
	spiceDirectivePattern = regexp.MustCompile(
		`(?im)^\s*\.(tran|ac|dc|op|noise|four|end|ends|model|subckt|include|lib|ic|param|options?|meas|measure|temp|print|plot|probe)\b`)
	spiceComponentPattern = regexp.MustCompile(
		`(?im)^\s*[rclvidqmxkefghbjswtu][a-z0-9_]*\s+\S+\s+\S+`)
)

// looksLikeSpice requires at least one simulation directive line and at least
// one component definition line.
func looksLikeSpice(body string) bool {
	return spiceDirectivePattern.MatchString(body) &&
		spiceComponentPattern.MatchString(body)
}

// jsonTaggedFence accepts the first fence tagged as JSON.
func jsonTaggedFence(response string) (string, bool) {
	for _, f := range scanFences(response) {
		if f.lang == "json" || f.lang == "jsonc" || f.lang == "json5" {
			return f.body, true
		}
	}
	return "", false
}

// braceSpan takes the substring from the first '{' to the last '}'. It is a
// deliberately crude heuristic, not a parser: nested or multiple objects can
// produce a wrong span, so callers must validate the content independently.
func braceSpan(response string) (string, bool) {
	start := strings.IndexByte(response, '{')
	end := strings.LastIndexByte(response, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return response[start : end+1], true
}
