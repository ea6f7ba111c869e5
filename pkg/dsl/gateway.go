package dsl

import "github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"

// DefaultBranch marks one outgoing branch of a conditional gateway as the
// branch taken when no condition holds.
type DefaultBranch struct {
	Index int
	Name  string
}

// ExclusiveGateway takes exactly one outgoing branch. Conditions are keyed
// by the index of the branch in Outgoing.
type ExclusiveGateway struct {
	element
	Conditions map[int]string
	Default    *DefaultBranch
}

// NewExclusiveGateway creates an exclusive gateway. conditions may be nil
// and filled later with Condition.
func NewExclusiveGateway(conditions map[int]string, opts ...Option) *ExclusiveGateway {
	g := &ExclusiveGateway{Conditions: copyConditions(conditions)}
	g.init(g, opts)
	return g
}

func (*ExclusiveGateway) Type() domain.NodeType { return domain.TypeExclusiveGateway }

// Condition guards the branch at index with expr.
func (g *ExclusiveGateway) Condition(index int, expr string) *ExclusiveGateway {
	g.Conditions[index] = expr
	return g
}

// DefaultTo marks the branch at index as the default branch.
func (g *ExclusiveGateway) DefaultTo(index int, name string) *ExclusiveGateway {
	g.Default = &DefaultBranch{Index: index, Name: name}
	return g
}

// ConditionalParallelGateway takes every outgoing branch whose condition holds.
type ConditionalParallelGateway struct {
	element
	Conditions map[int]string
	Default    *DefaultBranch
}

// NewConditionalParallelGateway creates a conditional parallel gateway.
func NewConditionalParallelGateway(conditions map[int]string, opts ...Option) *ConditionalParallelGateway {
	g := &ConditionalParallelGateway{Conditions: copyConditions(conditions)}
	g.init(g, opts)
	return g
}

func (*ConditionalParallelGateway) Type() domain.NodeType {
	return domain.TypeConditionalParallelGateway
}

// Condition guards the branch at index with expr.
func (g *ConditionalParallelGateway) Condition(index int, expr string) *ConditionalParallelGateway {
	g.Conditions[index] = expr
	return g
}

// DefaultTo marks the branch at index as the default branch.
func (g *ConditionalParallelGateway) DefaultTo(index int, name string) *ConditionalParallelGateway {
	g.Default = &DefaultBranch{Index: index, Name: name}
	return g
}

// ParallelGateway takes every outgoing branch.
type ParallelGateway struct {
	element
}

// NewParallelGateway creates a parallel gateway.
func NewParallelGateway(opts ...Option) *ParallelGateway {
	g := &ParallelGateway{}
	g.init(g, opts)
	return g
}

func (*ParallelGateway) Type() domain.NodeType { return domain.TypeParallelGateway }

// ConvergeGateway joins branches.
type ConvergeGateway struct {
	element
}

// NewConvergeGateway creates a converge gateway.
func NewConvergeGateway(opts ...Option) *ConvergeGateway {
	g := &ConvergeGateway{}
	g.init(g, opts)
	return g
}

func (*ConvergeGateway) Type() domain.NodeType { return domain.TypeConvergeGateway }

func copyConditions(in map[int]string) map[int]string {
	out := make(map[int]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// linkConditions re-keys index-based conditions by the flow ids minted for
// each branch. The default branch carries no condition.
func linkConditions(conds map[int]string, def *DefaultBranch, flowIDs []string) (map[string]domain.Condition, *domain.DefaultCondition) {
	linked := make(map[string]domain.Condition, len(conds))
	var dc *domain.DefaultCondition
	for i, fid := range flowIDs {
		if def != nil && def.Index == i {
			dc = &domain.DefaultCondition{Name: def.Name, FlowID: fid}
			continue
		}
		if expr, ok := conds[i]; ok {
			linked[fid] = domain.Condition{Evaluate: expr}
		}
	}
	return linked, dc
}
