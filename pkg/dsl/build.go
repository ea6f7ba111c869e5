package dsl

import (
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/uid"
)

// BuildOption configures Build.
type BuildOption func(*buildConfig)

type buildConfig struct {
	id   string
	data *domain.Data
	ids  uid.Generator
}

// WithTreeID sets the tree id instead of minting one.
func WithTreeID(id string) BuildOption {
	return func(c *buildConfig) {
		c.id = id
	}
}

// WithData sets the tree's input/output declaration.
func WithData(data domain.Data) BuildOption {
	return func(c *buildConfig) {
		d := data.Clone()
		c.data = &d
	}
}

// WithIDGenerator sets the generator used for flow and tree ids.
func WithIDGenerator(g uid.Generator) BuildOption {
	return func(c *buildConfig) {
		c.ids = g
	}
}

// treeBuilder accumulates one level. incoming records the flows discovered
// for a node before that node is written into the tree.
type treeBuilder struct {
	tree     *domain.Tree
	incoming map[string]domain.Edges
	ids      uid.Generator
}

// Build compiles the graph reachable from start into a Tree. Sub-processes
// are compiled recursively into trees whose id is the sub-process id.
func Build(start Element, opts ...BuildOption) (*domain.Tree, error) {
	cfg := &buildConfig{ids: uid.Default}
	for _, opt := range opts {
		opt(cfg)
	}

	b := &treeBuilder{
		tree:     domain.NewTree(cfg.id),
		incoming: map[string]domain.Edges{},
		ids:      cfg.ids,
	}

	queue := []Element{start}
	processed := map[string]bool{}
	for len(queue) > 0 {
		el := queue[0]
		queue = queue[1:]

		if processed[el.ID()] {
			b.update(el)
			continue
		}

		queue = append(queue, el.Outgoing()...)
		processed[el.ID()] = true
		if err := b.grow(el); err != nil {
			return nil, err
		}
	}

	if b.tree.ID == "" {
		b.tree.ID = b.ids.New(uid.PrefixPipeline)
	}
	if cfg.data != nil {
		b.tree.Data = *cfg.data
	}
	return b.tree, nil
}

// update refreshes the incoming side of a node met again through another flow.
func (b *treeBuilder) update(el Element) {
	if node, ok := b.tree.Node(el.ID()); ok {
		node.Base().Incoming = b.incomingOf(el)
	}
}

func (b *treeBuilder) incomingOf(el Element) domain.Edges {
	in := b.incoming[el.ID()]
	if multipleIncoming(el.Type()) && !in.IsList() {
		return in.AsList()
	}
	return in
}

func (b *treeBuilder) grow(el Element) error {
	base := domain.NodeBase{ID: el.ID(), Name: el.Name(), Incoming: b.incomingOf(el)}

	switch e := el.(type) {
	case *EmptyStartEvent:
		base.Incoming = domain.Edges{}
		out, err := b.growSingle(e)
		if err != nil {
			return err
		}
		base.Outgoing = out
		b.tree.Put(&domain.EmptyStartEvent{NodeBase: base})

	case *EmptyEndEvent:
		b.tree.Put(&domain.EmptyEndEvent{NodeBase: base})

	case *ExecutableEndEvent:
		b.tree.Put(&domain.ExecutableEndEvent{NodeBase: base, Code: e.Code})

	case *ServiceActivity:
		out, err := b.growSingle(e)
		if err != nil {
			return err
		}
		base.Outgoing = out
		b.tree.Put(&domain.ServiceActivity{
			NodeBase: base,
			Component: domain.Component{
				Code:    e.Component.Code,
				Version: e.Component.Version,
				Inputs:  copyVars(e.Component.Inputs),
			},
			ErrorIgnorable: e.ErrorIgnorable,
			Timeout:        e.Timeout,
			Skippable:      e.Skippable,
			Retryable:      e.Retryable,
			Optional:       e.Optional,
		})

	case *SubProcess:
		out, err := b.growSingle(e)
		if err != nil {
			return err
		}
		base.Outgoing = out
		if e.Start == nil {
			return domain.NewStructuralError(domain.KindStartEnd, e.ID(), "sub-process has no start element")
		}
		pipeline, err := Build(e.Start, WithTreeID(e.ID()), WithData(e.Data), WithIDGenerator(b.ids))
		if err != nil {
			return err
		}
		b.tree.Put(&domain.SubProcess{NodeBase: base, Pipeline: pipeline, Params: copyVars(e.Params)})

	case *ParallelGateway:
		flowIDs := b.growFanOut(e)
		base.Outgoing = domain.Many(flowIDs...)
		b.tree.Put(&domain.ParallelGateway{NodeBase: base})

	case *ExclusiveGateway:
		flowIDs := b.mintFlowIDs(e)
		conds, dc := linkConditions(e.Conditions, e.Default, flowIDs)
		b.linkFanOut(e, flowIDs, dc)
		base.Outgoing = domain.Many(flowIDs...)
		b.tree.Put(&domain.ExclusiveGateway{NodeBase: base, Conditions: conds, DefaultCondition: dc})

	case *ConditionalParallelGateway:
		flowIDs := b.mintFlowIDs(e)
		conds, dc := linkConditions(e.Conditions, e.Default, flowIDs)
		b.linkFanOut(e, flowIDs, dc)
		base.Outgoing = domain.Many(flowIDs...)
		b.tree.Put(&domain.ConditionalParallelGateway{NodeBase: base, Conditions: conds, DefaultCondition: dc})

	case *ConvergeGateway:
		out, err := b.growSingle(e)
		if err != nil {
			return err
		}
		base.Outgoing = out
		b.tree.Put(&domain.ConvergeGateway{NodeBase: base})

	default:
		return &domain.UnknownNodeTypeError{NodeID: el.ID(), Type: string(el.Type())}
	}
	return nil
}

// growSingle mints the only outgoing flow of a single-exit node. A node
// declared without a successor stays terminal with an empty outgoing.
func (b *treeBuilder) growSingle(el Element) (domain.Edges, error) {
	out := el.Outgoing()
	switch len(out) {
	case 0:
		return domain.Edges{}, nil
	case 1:
		fid := b.ids.New(uid.PrefixFlow)
		b.growFlow(fid, el, out[0], false)
		return domain.One(fid), nil
	default:
		return domain.Edges{}, domain.NewStructuralError(domain.KindConnectivity, el.ID(),
			"%s accepts one outgoing element, got %d", el.Type(), len(out))
	}
}

func (b *treeBuilder) mintFlowIDs(el Element) []string {
	out := el.Outgoing()
	flowIDs := make([]string, len(out))
	for i := range out {
		flowIDs[i] = b.ids.New(uid.PrefixFlow)
	}
	return flowIDs
}

func (b *treeBuilder) growFanOut(el Element) []string {
	flowIDs := b.mintFlowIDs(el)
	b.linkFanOut(el, flowIDs, nil)
	return flowIDs
}

func (b *treeBuilder) linkFanOut(el Element, flowIDs []string, dc *domain.DefaultCondition) {
	for i, next := range el.Outgoing() {
		isDefault := dc != nil && dc.FlowID == flowIDs[i]
		b.growFlow(flowIDs[i], el, next, isDefault)
	}
}

func (b *treeBuilder) growFlow(fid string, from, to Element, isDefault bool) {
	b.tree.Flows[fid] = &domain.Flow{ID: fid, Source: from.ID(), Target: to.ID(), IsDefault: isDefault}
	if multipleIncoming(to.Type()) {
		b.incoming[to.ID()] = b.incoming[to.ID()].Append(fid)
	} else {
		b.incoming[to.ID()] = domain.One(fid)
	}
}

// multipleIncoming reports whether a node of type t keeps its incoming flows
// as a list. Only the start event holds a scalar.
func multipleIncoming(t domain.NodeType) bool {
	return t != domain.TypeEmptyStartEvent
}

func copyVars(in map[string]domain.Var) map[string]domain.Var {
	out := make(map[string]domain.Var, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
