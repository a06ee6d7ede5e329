// Package diagram builds a bipartite connectivity graph from parsed netlist
// components and renders it as a Graphviz DOT document.
//
// The graph has one node per distinct net name and one node per component
// reference, with one directed edge per (net, component) adjacency. Edge
// direction (net → component) is a fixed rendering convention and carries no
// electrical meaning.
package diagram

import (
	"strconv"
	"strings"

	"github.com/c360studio/spicecouncil/netlist"
)

// NodeKind distinguishes the two sides of the bipartite graph.
type NodeKind string

const (
	KindNet       NodeKind = "net"
	KindComponent NodeKind = "component"
)

// Node is a vertex in the connectivity graph.
type Node struct {
	// ID is a sanitized identifier safe for DOT syntax.
	ID string
	// Label is the original (unsanitized) name, used for display.
	Label string
	// Kind marks the node as a net or a component.
	Kind NodeKind
}

// Edge is a directed net → component adjacency.
type Edge struct {
	From string // net node ID
	To   string // component node ID
}

// Graph is a rendering-ready connectivity description.
type Graph struct {
	Nodes []Node
	Edges []Edge

	// Provenance, when non-empty, is emitted as a comment in the rendered
	// output. It marks diagrams built from a fallback source without altering
	// the structural nodes or edges.
	Provenance string
}

// FromComponents builds the bipartite connectivity graph for a component list.
// Any input, including an empty one, yields a well-formed graph.
func FromComponents(components []netlist.Component) *Graph {
	g := &Graph{}
	used := make(map[string]bool)

	netIDs := make(map[string]string)
	for _, name := range netlist.NetNames(components) {
		id := uniqueID("net_"+sanitizeID(name), used)
		netIDs[name] = id
		g.Nodes = append(g.Nodes, Node{ID: id, Label: name, Kind: KindNet})
	}

	seen := make(map[string]string)
	for _, c := range components {
		id, ok := seen[c.Reference]
		if !ok {
			id = uniqueID("cmp_"+sanitizeID(c.Reference), used)
			seen[c.Reference] = id
			g.Nodes = append(g.Nodes, Node{ID: id, Label: c.Reference, Kind: KindComponent})
		}
		for _, n := range c.Nodes {
			g.Edges = append(g.Edges, Edge{From: netIDs[n], To: id})
		}
	}

	return g
}

// uniqueID reserves base in used, appending a numeric suffix when distinct
// names sanitize to the same ID (for example "a.b" and "a_b").
func uniqueID(base string, used map[string]bool) string {
	id := base
	for n := 2; used[id]; n++ {
		id = base + "_" + strconv.Itoa(n)
	}
	used[id] = true
	return id
}

// sanitizeID maps a net or reference name onto the DOT-safe character set
// (letters, digits, underscore). Unsafe runes become underscores; colliding
// results are disambiguated by uniqueID, and the Label preserves the original
// name for display.
func sanitizeID(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
