package graph

import "slices"

// Edge is a directed pair of node ids.
type Edge struct {
	From string
	To   string
}

// Graph is a directed multigraph kept as ordered adjacency lists.
type Graph struct {
	nodes []string
	adj   map[string][]string
}

// New builds a graph from nodes and edges. Endpoints missing from nodes are
// appended in the order edges mention them.
func New(nodes []string, edges []Edge) *Graph {
	g := &Graph{adj: make(map[string][]string, len(nodes))}
	for _, n := range nodes {
		g.AddNode(n)
	}
	for _, e := range edges {
		g.AddEdge(e.From, e.To)
	}
	return g
}

// AddNode adds id if it is not present yet.
func (g *Graph) AddNode(id string) {
	if _, ok := g.adj[id]; ok {
		return
	}
	g.nodes = append(g.nodes, id)
	g.adj[id] = nil
}

// AddEdge appends from -> to. Parallel edges are kept.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.adj[from] = append(g.adj[from], to)
}

// RemoveEdge deletes the first from -> to edge and reports whether one existed.
func (g *Graph) RemoveEdge(from, to string) bool {
	idx := slices.Index(g.adj[from], to)
	if idx < 0 {
		return false
	}
	g.adj[from] = slices.Delete(g.adj[from], idx, idx+1)
	return true
}

// Nodes returns node ids in insertion order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.nodes)
}

// Neighbors returns the successors of id in insertion order.
func (g *Graph) Neighbors(id string) []string {
	return slices.Clone(g.adj[id])
}

// HasCycle reports whether the graph contains a directed cycle.
func (g *Graph) HasCycle() bool {
	return len(g.FindCycle()) > 0
}

// FindCycle returns the node path of the first cycle met by a depth-first
// search over nodes and neighbours in insertion order. The path starts and
// ends with the same node, so its last two elements form the back-edge.
// It returns nil when the graph is acyclic.
func (g *Graph) FindCycle() []string {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.nodes))
	var path []string
	var cycle []string

	var dfs func(node string) bool
	dfs = func(node string) bool {
		color[node] = gray
		path = append(path, node)

		for _, next := range g.adj[node] {
			switch color[next] {
			case gray:
				start := slices.Index(path, next)
				cycle = append(slices.Clone(path[start:]), next)
				return true
			case white:
				if dfs(next) {
					return true
				}
			}
		}

		path = path[:len(path)-1]
		color[node] = black
		return false
	}

	for _, n := range g.nodes {
		if color[n] == white && dfs(n) {
			return cycle
		}
	}
	return nil
}
