// Package graph keeps the topology bookkeeping for a workflow's state graph:
// which nodes exist, which are starting points, and which are terminal.
package graph

type Graph struct {
	edges    map[int][]int
	incoming map[int]int
	order    []int
	nodes    map[int]bool
}

func New() *Graph {
	return &Graph{
		edges:    make(map[int][]int),
		incoming: make(map[int]int),
		nodes:    make(map[int]bool),
	}
}

func (g *Graph) Add(from, to int) {
	for _, n := range []int{from, to} {
		if !g.nodes[n] {
			g.nodes[n] = true
			g.order = append(g.order, n)
		}
	}

	g.edges[from] = append(g.edges[from], to)
	g.incoming[to]++
}

func (g *Graph) Contains(n int) bool {
	return g.nodes[n]
}

// Terminal reports whether the node has no outgoing transitions.
func (g *Graph) Terminal(n int) bool {
	return g.nodes[n] && len(g.edges[n]) == 0
}

func (g *Graph) Transitions(n int) []int {
	return g.edges[n]
}

// Starting returns the nodes without incoming transitions, in insertion
// order. A well-formed workflow graph has exactly one.
func (g *Graph) Starting() []int {
	var starting []int
	for _, n := range g.order {
		if g.incoming[n] == 0 {
			starting = append(starting, n)
		}
	}

	return starting
}

// Terminals returns the terminal nodes in insertion order.
func (g *Graph) Terminals() []int {
	var terminals []int
	for _, n := range g.order {
		if g.Terminal(n) {
			terminals = append(terminals, n)
		}
	}

	return terminals
}
