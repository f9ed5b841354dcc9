package statemachine

import "slices"

// Edge is a single directed edge of a Graph.
type Edge[S State] struct {
	From S
	To   S
}

// Graph records which states are directly reachable from each state.
// An edge only says a transition is structurally possible; guards may
// still reject it. Cycles, including retry loops, are legal.
//
// Graph is not safe for concurrent mutation. Declare every edge before
// the graph is read from more than one goroutine.
type Graph[S State] struct {
	edges map[S]map[S]struct{}

	// Insertion order, kept so diagnostics are stable.
	sources []S
	targets map[S][]S
}

// NewGraph creates an empty graph.
func NewGraph[S State]() *Graph[S] {
	return &Graph[S]{
		edges:   make(map[S]map[S]struct{}),
		targets: make(map[S][]S),
	}
}

// Allow adds the edge from -> to. Adding an existing edge is a no-op.
func (g *Graph[S]) Allow(from, to S) *Graph[S] {
	set, ok := g.edges[from]
	if !ok {
		set = make(map[S]struct{})
		g.edges[from] = set
		g.sources = append(g.sources, from)
	}

	if _, exists := set[to]; exists {
		return g
	}

	set[to] = struct{}{}
	g.targets[from] = append(g.targets[from], to)

	return g
}

// AllowMany adds an edge from the source to each of the targets.
func (g *Graph[S]) AllowMany(from S, to ...S) *Graph[S] {
	for _, target := range to {
		g.Allow(from, target)
	}

	return g
}

// Targets returns the declared targets of from, in the order they were
// first allowed. A state with no declared edges yields an empty slice.
func (g *Graph[S]) Targets(from S) []S {
	return slices.Clone(g.targets[from])
}

// Contains reports whether the edge from -> to has been declared.
func (g *Graph[S]) Contains(from, to S) bool {
	_, ok := g.edges[from][to]

	return ok
}

// Sources returns every state that has at least one outgoing edge.
func (g *Graph[S]) Sources() []S {
	return slices.Clone(g.sources)
}

// Edges returns every declared edge, grouped by source.
func (g *Graph[S]) Edges() []Edge[S] {
	var edges []Edge[S]

	for _, from := range g.sources {
		for _, to := range g.targets[from] {
			edges = append(edges, Edge[S]{From: from, To: to})
		}
	}

	return edges
}

// Len returns the number of declared edges.
func (g *Graph[S]) Len() int {
	count := 0
	for _, set := range g.edges {
		count += len(set)
	}

	return count
}
