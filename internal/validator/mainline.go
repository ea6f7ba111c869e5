package validator

import (
	"slices"

	"github.com/TencentBlueKing/bamboo-engine-sub001/internal/compiler"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
)

// AllowedStartNodeIDs returns the main line of tree's top level: the start
// event, service activities and exclusive gateways reachable without entering
// the branches of a parallel or conditional parallel gateway. Those gateways
// are jumped over to their converge gateway. Ids are in walk order.
func AllowedStartNodeIDs(tree *domain.Tree) ([]string, error) {
	acyclic, _ := compiler.EliminateCycles(tree)
	if err := pairGateways(acyclic, acyclic); err != nil {
		return nil, err
	}

	var ids []string
	seen := map[string]bool{}
	var visit func(id string)
	visit = func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		node, ok := acyclic.Node(id)
		if !ok {
			return
		}
		switch n := node.(type) {
		case *domain.EmptyStartEvent, *domain.ServiceActivity, *domain.ExclusiveGateway:
			ids = append(ids, id)
			for _, next := range acyclic.Targets(id) {
				visit(next)
			}
		// Walked through, never offered as start positions.
		case *domain.ConvergeGateway, *domain.SubProcess:
			for _, next := range acyclic.Targets(id) {
				visit(next)
			}
		case *domain.ParallelGateway:
			visit(n.ConvergeGatewayID)
		case *domain.ConditionalParallelGateway:
			visit(n.ConvergeGatewayID)
		}
	}
	visit(acyclic.StartEvent.ID)
	return ids, nil
}

// ValidateStartNode returns a *domain.StartPositionInvalidError when nodeID is
// not on the main line of tree.
func ValidateStartNode(tree *domain.Tree, nodeID string) error {
	allowed, err := AllowedStartNodeIDs(tree)
	if err != nil {
		return err
	}
	if !slices.Contains(allowed, nodeID) {
		return &domain.StartPositionInvalidError{NodeID: nodeID, Allowed: allowed}
	}
	return nil
}

// SkippedExecuteNodeIDs returns the nodes that have to be marked as skipped
// when execution starts at startNodeID instead of the start event. For an
// exclusive gateway only the branches leading to startNodeID count, since the
// others would never have run.
func SkippedExecuteNodeIDs(tree *domain.Tree, startNodeID string) ([]string, error) {
	if err := ValidateStartNode(tree, startNodeID); err != nil {
		return nil, err
	}
	acyclic, _ := compiler.EliminateCycles(tree)

	memo := map[string][]string{}
	var collect func(id string) []string
	collect = func(id string) []string {
		if got, ok := memo[id]; ok {
			return got
		}
		nodes := []string{id}
		if node, ok := acyclic.Node(id); ok && id != startNodeID {
			_, exclusive := node.(*domain.ExclusiveGateway)
			for _, next := range acyclic.Targets(id) {
				branch := collect(next)
				if exclusive && !slices.Contains(branch, startNodeID) {
					continue
				}
				nodes = append(nodes, branch...)
			}
		}
		memo[id] = nodes
		return nodes
	}

	skipped := []string{}
	seen := map[string]bool{startNodeID: true}
	for _, id := range collect(acyclic.StartEvent.ID) {
		if !seen[id] {
			seen[id] = true
			skipped = append(skipped, id)
		}
	}
	return skipped, nil
}
