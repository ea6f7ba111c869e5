// Package rollback reduces a flattened pipeline to the graph of service
// activities replayed when execution is rolled back from one node to an
// earlier one.
package rollback

import (
	"maps"
	"slices"

	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/graph"
)

// Build returns the rollback graph leading from startID back to targetID
// and the ids of the gateways and events met on the way. The graph is
// bracketed by graph.StartFlag and graph.EndFlag. Loops in nodeMap are cut
// on a private copy; nodeMap is not modified. Unknown node ids are ignored.
func Build(nodeMap graph.NodeMap, startID, targetID string) (*graph.RollbackGraph, []string) {
	b := &builder{
		nodes:   removeCycles(nodeMap),
		startID: startID,
		graph:   graph.NewRollbackGraph(),
		others:  []string{},
	}

	b.graph.AddNode(startID)
	b.graph.AddNode(targetID)
	b.graph.AddNode(graph.EndFlag)
	b.graph.AddEdge(graph.EndFlag, targetID)
	b.graph.AddEdge(startID, graph.StartFlag)
	b.build(targetID, targetID)

	return b.graph.Reverse(), b.others
}

type builder struct {
	nodes   graph.NodeMap
	startID string
	graph   *graph.RollbackGraph
	others  []string
}

// build walks forward from id. source is the last service activity seen;
// the returned id is the source left by the last branch walked. Walking
// stops at the rollback start node.
func (b *builder) build(id, source string) string {
	node, ok := b.nodes[id]
	if !ok {
		return source
	}

	switch node.Type {
	case domain.TypeServiceActivity:
		b.graph.AddNode(id)
		if source != "" && source != id {
			b.graph.AddEdge(source, id)
		}
		if id == b.startID {
			return ""
		}
		source = id
	case domain.TypeSubProcess:
		source = b.build(node.StartEventID, source)
	default:
		if !slices.Contains(b.others, id) {
			b.others = append(b.others, id)
		}
	}

	last := source
	for _, fid := range slices.Sorted(maps.Keys(node.Targets)) {
		next := node.Targets[fid]
		if node.Type == domain.TypeExclusiveGateway {
			if _, ok := b.nodes[next]; !ok {
				continue
			}
		}
		last = b.build(next, source)
	}
	return last
}

// removeCycles copies nodeMap and deletes outgoing targets until the copy is
// acyclic. For each reported cycle the first target of the back-edge's
// source pointing at its target is deleted.
func removeCycles(nodeMap graph.NodeMap) graph.NodeMap {
	nodes := make(graph.NodeMap, len(nodeMap))
	for id, n := range nodeMap {
		n.Targets = maps.Clone(n.Targets)
		nodes[id] = n
	}

	ids := slices.Sorted(maps.Keys(nodes))
	g := graph.New(ids, nil)
	for _, id := range ids {
		targets := nodes[id].Targets
		for _, fid := range slices.Sorted(maps.Keys(targets)) {
			g.AddEdge(id, targets[fid])
		}
	}

	for {
		cycle := g.FindCycle()
		if len(cycle) < 2 {
			return nodes
		}
		from, to := cycle[len(cycle)-2], cycle[len(cycle)-1]
		targets := nodes[from].Targets
		for _, fid := range slices.Sorted(maps.Keys(targets)) {
			if targets[fid] == to {
				delete(targets, fid)
				break
			}
		}
		g.RemoveEdge(from, to)
	}
}
