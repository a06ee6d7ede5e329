package diagram

import (
	"fmt"
	"strings"
)

// DOT renders the graph as a Graphviz digraph. Net nodes are drawn as
// ellipses, component nodes as boxes. The output is deterministic for a given
// graph: nodes and edges are emitted in insertion order.
func (g *Graph) DOT() string {
	var b strings.Builder

	b.WriteString("digraph connectivity {\n")
	if g.Provenance != "" {
		fmt.Fprintf(&b, "  // %s\n", strings.ReplaceAll(g.Provenance, "\n", " "))
	}
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [fontname=\"Helvetica\"];\n")

	for _, n := range g.Nodes {
		shape := "ellipse"
		if n.Kind == KindComponent {
			shape = "box"
		}
		fmt.Fprintf(&b, "  %s [label=%q, shape=%s];\n", n.ID, n.Label, shape)
	}

	for _, e := range g.Edges {
		fmt.Fprintf(&b, "  %s -> %s;\n", e.From, e.To)
	}

	b.WriteString("}\n")
	return b.String()
}
