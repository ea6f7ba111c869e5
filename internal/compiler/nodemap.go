package compiler

import (
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/graph"
)

// NodeMap flattens every level of tree into one id-keyed map with outgoing
// flows resolved to their targets.
func NodeMap(tree *domain.Tree) graph.NodeMap {
	nm := graph.NodeMap{}
	flatten(tree, nm)
	return nm
}

func flatten(tree *domain.Tree, nm graph.NodeMap) {
	for _, n := range tree.Nodes() {
		base := n.Base()
		entry := graph.RollbackNode{
			ID:      base.ID,
			Type:    n.Type(),
			Targets: map[string]string{},
		}
		for _, fid := range base.Outgoing.IDs() {
			if f, ok := tree.Flow(fid); ok {
				entry.Targets[fid] = f.Target
			}
		}
		if sp, ok := n.(*domain.SubProcess); ok && sp.Pipeline != nil {
			if sp.Pipeline.StartEvent != nil {
				entry.StartEventID = sp.Pipeline.StartEvent.ID
			}
			flatten(sp.Pipeline, nm)
		}
		nm[base.ID] = entry
	}
}
