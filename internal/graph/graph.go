package graph

import (
	"fmt"
	"strings"

	"github.com/junioryono/dicore/internal/registry"
)

// Node is one registered service in the dependency graph.
type Node struct {
	// Type is the implementation type constructed for the service.
	Type registry.TypeRef

	// Service is the type the node is resolved by.
	Service registry.TypeRef

	Lifetime registry.Lifetime

	// Constructor is the selected injection point. Nil for factory nodes.
	Constructor *registry.Constructor

	// Factory is set when the registration supplies its own factory method.
	Factory registry.Factory

	// Dependencies are the constructor parameter types in order.
	Dependencies []registry.TypeRef

	Location registry.Location
}

// IsFactory reports whether the node is built by a factory method.
func (n *Node) IsFactory() bool {
	return n.Factory != nil
}

func (n *Node) String() string {
	if n.Service == n.Type {
		return fmt.Sprintf("%s (%s)", n.Type, n.Lifetime)
	}

	return fmt.Sprintf("%s => %s (%s)", n.Service, n.Type, n.Lifetime)
}

// Graph is the validated dependency graph of one provider definition.
// It is immutable once returned by Validate.
type Graph struct {
	table *registry.Table

	// nodes are keyed by service type
	nodes map[registry.TypeRef]*Node

	// order is registration order of the service types in nodes
	order []registry.TypeRef

	// edges map a service type to the service types it depends on
	edges      map[registry.TypeRef][]registry.TypeRef
	dependents map[registry.TypeRef][]registry.TypeRef
}

func newGraph(table *registry.Table) *Graph {
	return &Graph{
		table:      table,
		nodes:      make(map[registry.TypeRef]*Node),
		edges:      make(map[registry.TypeRef][]registry.TypeRef),
		dependents: make(map[registry.TypeRef][]registry.TypeRef),
	}
}

// Table returns the registration table the graph was built from.
func (g *Graph) Table() *registry.Table {
	return g.table
}

// Nodes returns every node in registration order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, t := range g.order {
		out = append(out, g.nodes[t])
	}

	return out
}

// Node returns the node resolving t. t may be a service type or an
// implementation type of a registration.
func (g *Graph) Node(t registry.TypeRef) (*Node, bool) {
	key, ok := g.serviceOf(t)
	if !ok {
		return nil, false
	}

	n, ok := g.nodes[key]
	return n, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Dependents returns the services that depend directly on t.
func (g *Graph) Dependents(t registry.TypeRef) []registry.TypeRef {
	key, ok := g.serviceOf(t)
	if !ok {
		return nil
	}

	deps := g.dependents[key]
	out := make([]registry.TypeRef, len(deps))
	copy(out, deps)
	return out
}

// DependenciesOf returns the services t depends on directly, as graph keys.
func (g *Graph) DependenciesOf(t registry.TypeRef) []registry.TypeRef {
	key, ok := g.serviceOf(t)
	if !ok {
		return nil
	}

	deps := g.edges[key]
	out := make([]registry.TypeRef, len(deps))
	copy(out, deps)
	return out
}

// TopologicalOrder returns the nodes with dependencies first.
// It fails with a CircularDependencyError when the graph has a cycle.
func (g *Graph) TopologicalOrder() ([]*Node, error) {
	result := g.acyclicPrefix()

	if len(result) != len(g.nodes) {
		cycles := g.findCycles()
		if len(cycles) > 0 {
			return nil, CircularDependencyError{Path: cycles[0]}
		}

		return nil, fmt.Errorf("graph contains %d nodes but only %d could be sorted", len(g.nodes), len(result))
	}

	return result, nil
}

// acyclicPrefix returns the nodes Kahn's algorithm can order when the graph
// has cycles.
func (g *Graph) acyclicPrefix() []*Node {
	remaining := make(map[registry.TypeRef]int, len(g.nodes))
	var queue []registry.TypeRef
	for _, t := range g.order {
		remaining[t] = len(g.edges[t])
		if remaining[t] == 0 {
			queue = append(queue, t)
		}
	}

	var result []*Node
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, g.nodes[current])

		for _, dependent := range g.dependents[current] {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	return result
}

// IsAcyclic reports whether the graph has no cycles.
func (g *Graph) IsAcyclic() bool {
	return len(g.findCycles()) == 0
}

func (g *Graph) serviceOf(t registry.TypeRef) (registry.TypeRef, bool) {
	if _, ok := g.nodes[t]; ok {
		return t, true
	}

	if g.table == nil {
		return registry.TypeRef{}, false
	}

	reg, ok := g.table.ImplOf(t)
	if !ok {
		return registry.TypeRef{}, false
	}

	return reg.ServiceType(), true
}

func (g *Graph) addNode(n *Node) {
	if _, exists := g.nodes[n.Service]; !exists {
		g.order = append(g.order, n.Service)
	}
	g.nodes[n.Service] = n
}

// link computes edges once every node is known. Dependencies that have no
// node (missing, or belonging to a registration that failed analysis) are
// left out.
func (g *Graph) link() {
	for _, t := range g.order {
		n := g.nodes[t]
		seen := make(map[registry.TypeRef]bool, len(n.Dependencies))
		for _, dep := range n.Dependencies {
			key, ok := g.serviceOf(dep)
			if !ok || seen[key] {
				continue
			}
			if _, ok := g.nodes[key]; !ok {
				continue
			}

			seen[key] = true
			g.edges[t] = append(g.edges[t], key)
			g.dependents[key] = append(g.dependents[key], t)
		}
	}
}

// findCycles runs an iterative depth-first search with colour marks and
// returns each elementary cycle found, closed with its first node.
// A cycle is reported once however many entry points lead into it.
func (g *Graph) findCycles() [][]registry.TypeRef {
	const (
		white = iota
		grey
		black
	)

	colour := make(map[registry.TypeRef]int, len(g.nodes))
	reported := make(map[string]bool)
	var cycles [][]registry.TypeRef

	for _, start := range g.order {
		if colour[start] != white {
			continue
		}

		stack := []dfsFrame{{key: start}}
		colour[start] = grey

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			edges := g.edges[top.key]

			if top.next >= len(edges) {
				// Backtracking
				colour[top.key] = black
				stack = stack[:len(stack)-1]
				continue
			}

			dep := edges[top.next]
			top.next++

			switch colour[dep] {
			case white:
				colour[dep] = grey
				stack = append(stack, dfsFrame{key: dep})
			case grey:
				path := cyclePath(stack, dep)
				id := cycleID(path)
				if !reported[id] {
					reported[id] = true
					cycles = append(cycles, path)
				}
			}
		}
	}

	return cycles
}

type dfsFrame struct {
	key  registry.TypeRef
	next int
}

// cyclePath extracts the stack segment from the grey node back to the top
// and closes it.
func cyclePath(stack []dfsFrame, at registry.TypeRef) []registry.TypeRef {
	idx := 0
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].key == at {
			idx = i
			break
		}
	}

	path := make([]registry.TypeRef, 0, len(stack)-idx+1)
	for _, f := range stack[idx:] {
		path = append(path, f.key)
	}

	return append(path, at)
}

// cycleID names a cycle independently of where it was entered.
func cycleID(path []registry.TypeRef) string {
	ring := path[:len(path)-1]
	best := 0
	for i := range ring {
		if ring[i].String() < ring[best].String() {
			best = i
		}
	}

	var b strings.Builder
	for i := range ring {
		b.WriteString(ring[(best+i)%len(ring)].String())
		b.WriteByte(0)
	}

	return b.String()
}
