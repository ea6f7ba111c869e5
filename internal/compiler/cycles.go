// Package compiler holds the passes that derive working copies from a
// compiled tree: cycle elimination and node map flattening.
package compiler

import (
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/graph"
)

// EliminateCycles returns a deep copy of tree in which every cycle, on every
// level, is broken by reversing its back-edge. The second result lists the
// reversed flow ids in the order they were handled. tree is not modified.
func EliminateCycles(tree *domain.Tree) (*domain.Tree, []string) {
	acyclic := tree.Clone()
	return acyclic, eliminate(acyclic)
}

// eliminate works in place, sub-processes first. Each round reverses the
// last edge of the cycle reported by the detector, so each round removes one
// edge from the adjacency view and the loop terminates.
func eliminate(tree *domain.Tree) []string {
	var reversed []string
	for _, sp := range tree.SubProcesses() {
		if sp.Pipeline != nil {
			reversed = append(reversed, eliminate(sp.Pipeline)...)
		}
	}

	for {
		cycle := LevelGraph(tree).FindCycle()
		if len(cycle) < 2 {
			return reversed
		}
		from, to := cycle[len(cycle)-2], cycle[len(cycle)-1]
		fid := flowBetween(tree, from, to)
		if fid == "" {
			return reversed
		}
		reverseFlow(tree, fid)
		reversed = append(reversed, fid)
	}
}

// LevelGraph returns the adjacency view of a single tree level. Nodes follow
// Tree.Nodes order and edges follow each node's outgoing list, so flows no
// longer listed as outgoing are not part of the view.
func LevelGraph(tree *domain.Tree) *graph.Graph {
	nodes := tree.Nodes()
	g := graph.New(nil, nil)
	for _, n := range nodes {
		g.AddNode(n.Base().ID)
	}
	for _, n := range nodes {
		for _, fid := range n.Base().Outgoing.IDs() {
			f, ok := tree.Flow(fid)
			if !ok {
				continue
			}
			if _, ok := tree.Node(f.Target); !ok {
				continue
			}
			g.AddEdge(n.Base().ID, f.Target)
		}
	}
	return g
}

func flowBetween(tree *domain.Tree, from, to string) string {
	src, ok := tree.Node(from)
	if !ok {
		return ""
	}
	for _, fid := range src.Base().Outgoing.IDs() {
		if f, ok := tree.Flow(fid); ok && f.Target == to {
			return fid
		}
	}
	return ""
}

// reverseFlow detaches fid from both endpoints and swaps its direction.
func reverseFlow(tree *domain.Tree, fid string) {
	f, ok := tree.Flow(fid)
	if !ok {
		return
	}
	if src, ok := tree.Node(f.Source); ok {
		src.Base().Outgoing = src.Base().Outgoing.Without(fid, collapses(src))
	}
	if dst, ok := tree.Node(f.Target); ok {
		dst.Base().Incoming = dst.Base().Incoming.Without(fid, collapses(dst))
	}
	f.Source, f.Target = f.Target, f.Source
}

// collapses reports whether a list left with one flow id goes back to scalar
// form. Gateways keep list form.
func collapses(n domain.Node) bool {
	return !n.Type().IsGateway()
}
