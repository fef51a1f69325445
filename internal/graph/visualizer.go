package graph

import (
	"fmt"
	"io"
	"strings"

	"github.com/junioryono/dicore/internal/registry"
)

// WriteDOT writes the graph in Graphviz DOT format
func (g *Graph) WriteDOT(w io.Writer) error {
	ew := &errWriter{w: w}

	ew.println("digraph dependencies {")
	ew.println("  rankdir=LR;")
	ew.println("  node [shape=box];")

	nodeIDs := make(map[registry.TypeRef]string, len(g.order))
	for i, key := range g.order {
		node := g.nodes[key]
		nodeID := fmt.Sprintf("n%d", i)
		nodeIDs[key] = nodeID

		ew.printf("  %s [label=\"%s\", fillcolor=\"%s\", style=filled];\n",
			nodeID, formatNodeLabel(node), nodeColor(node))
	}

	for _, from := range g.order {
		for _, to := range g.edges[from] {
			ew.printf("  %s -> %s;\n", nodeIDs[from], nodeIDs[to])
		}
	}

	ew.println("}")
	return ew.err
}

// WriteText writes a text representation of the graph grouped by depth
func (g *Graph) WriteText(w io.Writer) error {
	ew := &errWriter{w: w}

	ew.println("Dependency Graph:")
	ew.println("=================")
	ew.println("")

	depths := g.depths()
	groups := make(map[int][]*Node)
	maxDepth := 0
	var cyclic []*Node

	for _, key := range g.order {
		node := g.nodes[key]
		depth, ok := depths[key]
		if !ok {
			cyclic = append(cyclic, node)
			continue
		}

		groups[depth] = append(groups[depth], node)
		if depth > maxDepth {
			maxDepth = depth
		}
	}

	for depth := 0; depth <= maxDepth; depth++ {
		nodes, exists := groups[depth]
		if !exists {
			continue
		}

		ew.printf("Level %d:\n", depth)
		ew.println("--------")
		for _, node := range nodes {
			g.writeNodeDetails(ew, node, "  ")
		}
		ew.println("")
	}

	if len(cyclic) > 0 {
		ew.println("Nodes in Cycles:")
		ew.println("----------------")
		for _, node := range cyclic {
			g.writeNodeDetails(ew, node, "  ")
		}
		ew.println("")
	}

	g.writeStatistics(ew)

	return ew.err
}

// depths assigns each node the length of its longest dependency chain.
// Nodes on or behind a cycle get no depth.
func (g *Graph) depths() map[registry.TypeRef]int {
	sorted := g.acyclicPrefix()
	depths := make(map[registry.TypeRef]int, len(sorted))
	for _, node := range sorted {
		depth := 0
		for _, dep := range g.edges[node.Service] {
			d, ok := depths[dep]
			if !ok {
				continue
			}
			if d+1 > depth {
				depth = d + 1
			}
		}
		depths[node.Service] = depth
	}

	return depths
}

func formatNodeLabel(node *Node) string {
	label := shortName(node.Service.String())
	if node.Service != node.Type {
		label += "\\n" + shortName(node.Type.String())
	}

	return fmt.Sprintf("%s\\n%s", label, node.Lifetime)
}

// shortName drops the package path for readability
func shortName(s string) string {
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}

	return strings.ReplaceAll(s, "\"", "'")
}

func nodeColor(node *Node) string {
	switch node.Lifetime {
	case registry.Singleton:
		return "lightblue"
	case registry.Scoped:
		return "lightgreen"
	case registry.Transient:
		return "lightyellow"
	default:
		return "white"
	}
}

func (g *Graph) writeNodeDetails(ew *errWriter, node *Node, indent string) {
	ew.printf("%s%s\n", indent, node.Service)
	if node.Service != node.Type {
		ew.printf("%s  Implementation: %s\n", indent, node.Type)
	}
	ew.printf("%s  Lifetime: %s\n", indent, node.Lifetime)

	switch {
	case node.IsFactory():
		ew.printf("%s  Factory: yes\n", indent)
	case node.Constructor != nil:
		ew.printf("%s  Constructor: %s\n", indent, node.Constructor.Signature())
	}

	if deps := g.edges[node.Service]; len(deps) > 0 {
		ew.printf("%s  Dependencies: [%s]\n", indent, joinTypes(deps, ", "))
	}

	if deps := g.dependents[node.Service]; len(deps) > 0 {
		ew.printf("%s  Dependents: [%s]\n", indent, joinTypes(deps, ", "))
	}
}

func (g *Graph) writeStatistics(ew *errWriter) {
	ew.println("Statistics:")
	ew.println("-----------")
	ew.printf("  Total nodes: %d\n", len(g.nodes))
	ew.printf("  Total edges: %d\n", g.countEdges())

	roots, leaves := 0, 0
	for _, key := range g.order {
		if len(g.edges[key]) == 0 {
			roots++
		}
		if len(g.dependents[key]) == 0 {
			leaves++
		}
	}

	ew.printf("  Root nodes (no dependencies): %d\n", roots)
	ew.printf("  Leaf nodes (no dependents): %d\n", leaves)

	if g.IsAcyclic() {
		ew.println("  Cycles: None (graph is acyclic)")
	} else {
		ew.println("  Cycles: DETECTED (graph contains circular dependencies)")
	}
}

func (g *Graph) countEdges() int {
	count := 0
	for _, edges := range g.edges {
		count += len(edges)
	}
	return count
}

// errWriter remembers the first write error
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
