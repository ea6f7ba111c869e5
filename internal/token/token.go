// Package token assigns every node of a compiled tree the token of the
// execution branch it runs on. Nodes on one sequential path share a token,
// each branch of a parallel gateway gets its own, and every sub-process
// level is tokenized on its own.
package token

import (
	"log/slog"
	"slices"

	"github.com/TencentBlueKing/bamboo-engine-sub001/internal/compiler"
	"github.com/TencentBlueKing/bamboo-engine-sub001/internal/logging"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/uid"
)

// Outcome is how a walk along one path stopped.
type Outcome int

const (
	// Continue means the path ran out of outgoing flows before reaching an
	// end event or a converge gateway.
	Continue Outcome = iota
	// ReachedEnd means the path stopped at the end event NodeID.
	ReachedEnd
	// ReachedConverge means the path stopped at the converge gateway NodeID.
	ReachedConverge
)

func (o Outcome) String() string {
	switch o {
	case ReachedEnd:
		return "reached_end"
	case ReachedConverge:
		return "reached_converge"
	default:
		return "continue"
	}
}

// WalkResult is returned by every step of the walk.
type WalkResult struct {
	Outcome Outcome
	NodeID  string
}

// Result is the outcome of Generate.
type Result struct {
	Tokens domain.TokenMap
	// Unterminated lists, as "gateway/branch" pairs, the parallel gateway
	// branches that reached neither an end event nor a converge gateway.
	// Their nodes carry a branch token but take no part in convergence.
	Unterminated []string
}

// Option configures Generate.
type Option func(*assigner)

// WithLogger sets the logger used for branch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *assigner) {
		a.logger = logger
	}
}

// WithIDGenerator sets the generator used to mint tokens.
func WithIDGenerator(g uid.Generator) Option {
	return func(a *assigner) {
		a.ids = g
	}
}

type assigner struct {
	logger *slog.Logger
	ids    uid.Generator
	result Result
}

// Generate computes the token map of tree. Cycles are broken on a private
// copy first, so tree is left untouched.
func Generate(tree *domain.Tree, opts ...Option) Result {
	a := &assigner{
		logger: logging.NewNop(),
		ids:    uid.Default,
		result: Result{Tokens: domain.TokenMap{}},
	}
	for _, opt := range opts {
		opt(a)
	}

	acyclic, _ := compiler.EliminateCycles(tree)
	a.level(acyclic, a.ids.New(uid.PrefixToken))
	return a.result
}

// level walks one tree from its start event with token. The end event or
// converge gateway the walk stops at belongs to the same token.
func (a *assigner) level(tree *domain.Tree, token string) {
	if tree == nil || tree.StartEvent == nil {
		return
	}
	if r := a.walk(tree, tree.StartEvent.ID, token); r.Outcome != Continue {
		a.result.Tokens[r.NodeID] = token
	}
}

func (a *assigner) walk(tree *domain.Tree, id, token string) WalkResult {
	node, ok := tree.Node(id)
	if !ok {
		return WalkResult{Outcome: Continue}
	}

	switch n := node.(type) {
	case *domain.EmptyStartEvent, *domain.ServiceActivity:
		a.result.Tokens[id] = token
		return a.next(tree, id, token)

	case *domain.SubProcess:
		a.result.Tokens[id] = token
		a.level(n.Pipeline, a.ids.New(uid.PrefixToken))
		return a.next(tree, id, token)

	case *domain.EmptyEndEvent, *domain.ExecutableEndEvent:
		return WalkResult{Outcome: ReachedEnd, NodeID: id}

	case *domain.ConvergeGateway:
		return WalkResult{Outcome: ReachedConverge, NodeID: id}

	case *domain.ExclusiveGateway, *domain.ConditionalParallelGateway, *domain.ParallelGateway:
		return a.fanOut(tree, node, token)
	}
	return WalkResult{Outcome: Continue}
}

func (a *assigner) next(tree *domain.Tree, id, token string) WalkResult {
	targets := tree.Targets(id)
	if len(targets) == 0 {
		return WalkResult{Outcome: Continue}
	}
	return a.walk(tree, targets[0], token)
}

// fanOut walks every branch of gw, then hands the gateway's own token to
// each end event or converge gateway the branches stopped at and carries on
// past the converge gateways.
func (a *assigner) fanOut(tree *domain.Tree, gw domain.Node, token string) WalkResult {
	id := gw.Base().ID
	a.result.Tokens[id] = token
	_, parallel := gw.(*domain.ParallelGateway)

	var stops []WalkResult
	for _, target := range tree.Targets(id) {
		branchToken := token
		if parallel {
			branchToken = a.ids.New(uid.PrefixToken)
		}

		r := a.walk(tree, target, branchToken)
		if r.Outcome == Continue {
			if parallel {
				a.logger.Warn("parallel branch reaches no end or converge gateway",
					"pipeline_id", tree.ID, "gateway_id", id, "branch", target)
				a.result.Unterminated = append(a.result.Unterminated, id+"/"+target)
			}
			continue
		}
		if !slices.Contains(stops, r) {
			stops = append(stops, r)
		}
	}

	result := WalkResult{Outcome: Continue}
	for _, stop := range stops {
		a.result.Tokens[stop.NodeID] = token
		switch stop.Outcome {
		case ReachedEnd:
			result = stop
		case ReachedConverge:
			result = a.next(tree, stop.NodeID, token)
		}
	}
	return result
}
