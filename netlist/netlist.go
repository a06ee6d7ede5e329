// Package netlist provides a permissive tokenizer for SPICE-like netlist text.
//
// The tokenizer extracts component references and their node connections so a
// connectivity diagram can be built from arbitrary model-generated netlists.
// It is deliberately a heuristic, not a grammar: subcircuits, parameter
// expressions, and `+` continuation lines are not modeled. Lines it cannot
// make sense of are dropped silently rather than reported as errors, because
// upstream text comes from LLMs and is frequently malformed.
package netlist

import (
	"bufio"
	"strings"
)

// maxNodes caps how many node tokens are collected per component line.
// Real multi-terminal devices beyond 6 pins are out of scope.
const maxNodes = 6

// minNodes is the minimum node count for a line to count as a component.
const minNodes = 2

// Component is a single circuit element extracted from netlist text.
type Component struct {
	// Reference is the element designator (first token of the line, e.g. "R1").
	Reference string

	// Nodes are the net names the element connects to, in declaration order.
	// Always between 2 and 6 entries.
	Nodes []string

	// Raw is the original line body, kept for traceability.
	Raw string
}

// Parse tokenizes netlist text into components. It never fails: blank lines,
// comments (`*` or `;` prefix), dot directives, and lines yielding fewer than
// two nodes are skipped. Anything after an inline `;` is treated as a comment.
func Parse(text string) []Component {
	var components []Component

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if c, ok := parseLine(scanner.Text()); ok {
			components = append(components, c)
		}
	}

	return components
}

// parseLine extracts a component from one netlist line, if it holds one.
func parseLine(line string) (Component, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Component{}, false
	}

	switch trimmed[0] {
	case '*', ';':
		// Comment line
		return Component{}, false
	case '.':
		// Directive (.tran, .model, .end, ...)
		return Component{}, false
	}

	// Strip inline comment
	if idx := strings.IndexByte(trimmed, ';'); idx >= 0 {
		trimmed = strings.TrimSpace(trimmed[:idx])
		if trimmed == "" {
			return Component{}, false
		}
	}

	fields := strings.Fields(trimmed)
	if len(fields) < 1+minNodes {
		return Component{}, false
	}

	reference := fields[0]
	var nodes []string
	for _, tok := range fields[1:] {
		// After two nodes, a value-like token ends node collection. This
		// misreads purely numeric net names in later positions; correct
		// disambiguation needs a real SPICE grammar (known limitation).
		if len(nodes) >= minNodes && isValueToken(tok) {
			break
		}
		nodes = append(nodes, tok)
		if len(nodes) == maxNodes {
			break
		}
	}

	if len(nodes) < minNodes {
		return Component{}, false
	}

	return Component{
		Reference: reference,
		Nodes:     nodes,
		Raw:       trimmed,
	}, true
}

// isValueToken reports whether a token looks like a value, model parameter,
// or source directive rather than a node name.
func isValueToken(tok string) bool {
	if strings.EqualFold(tok, "DC") {
		return true
	}
	if strings.ContainsRune(tok, '=') {
		return true
	}
	return strings.ContainsAny(tok, "0123456789")
}

// NetNames returns the distinct node names across all components, in first-seen
// order. Nets are not materialized anywhere else; callers derive them on demand.
func NetNames(components []Component) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, c := range components {
		for _, n := range c.Nodes {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			names = append(names, n)
		}
	}
	return names
}
