// Package validator checks compiled trees before they are handed to the
// runtime and derives the main line used to resume execution elsewhere than
// at the start event.
package validator

import (
	"maps"
	"slices"

	"github.com/TencentBlueKing/bamboo-engine-sub001/internal/compiler"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
)

// ValidateAndProcess normalizes every incoming/outgoing field of tree to list
// form, in place, and validates the result.
func ValidateAndProcess(tree *domain.Tree, cycleTolerate bool) error {
	NormalizeIO(tree)
	return Validate(tree, cycleTolerate)
}

// Validate checks every level of tree. On success each ParallelGateway and
// ConditionalParallelGateway carries the id of the ConvergeGateway where its
// branches rejoin.
//
// Checks run in order: start/end events, connectivity, cycles (skipped when
// cycleTolerate is set), gateway pairing and branch conditions. The first
// violation is returned.
func Validate(tree *domain.Tree, cycleTolerate bool) error {
	err := eachLevel(tree, func(level *domain.Tree) error {
		if err := checkStartEnd(level); err != nil {
			return err
		}
		if err := checkConnectivity(level); err != nil {
			return err
		}
		if cycleTolerate {
			return nil
		}
		if path := compiler.LevelGraph(level).FindCycle(); path != nil {
			return &domain.CycleError{Path: path}
		}
		return nil
	})
	if err != nil {
		return err
	}

	acyclic, _ := compiler.EliminateCycles(tree)
	if err := pairGateways(acyclic, tree); err != nil {
		return err
	}
	return eachLevel(tree, checkConditions)
}

// NormalizeIO rewrites incoming and outgoing of every node, nested levels
// included, to list form.
func NormalizeIO(tree *domain.Tree) {
	_ = eachLevel(tree, func(level *domain.Tree) error {
		for _, n := range level.Nodes() {
			b := n.Base()
			b.Incoming = b.Incoming.AsList()
			b.Outgoing = b.Outgoing.AsList()
		}
		return nil
	})
}

// eachLevel calls fn on tree and then on every nested sub-process tree,
// depth-first, stopping at the first error.
func eachLevel(tree *domain.Tree, fn func(*domain.Tree) error) error {
	if err := fn(tree); err != nil {
		return err
	}
	for _, sp := range tree.SubProcesses() {
		if sp.Pipeline == nil {
			return domain.NewStructuralError(domain.KindStartEnd, sp.ID, "sub-process has no pipeline")
		}
		if err := eachLevel(sp.Pipeline, fn); err != nil {
			return err
		}
	}
	return nil
}

func checkStartEnd(tree *domain.Tree) error {
	if tree.StartEvent == nil {
		return domain.NewStructuralError(domain.KindStartEnd, "", "tree %s has no start event", tree.ID)
	}
	if tree.StartEvent.Incoming.Len() > 0 {
		return domain.NewStructuralError(domain.KindStartEnd, tree.StartEvent.ID, "start event has incoming flows")
	}
	if tree.EndEvent == nil {
		return domain.NewStructuralError(domain.KindStartEnd, "", "tree %s has no end event", tree.ID)
	}
	if end := tree.EndEvent.Base(); end.Outgoing.Len() > 0 {
		return domain.NewStructuralError(domain.KindStartEnd, end.ID, "end event has outgoing flows")
	}
	return nil
}

func checkConnectivity(tree *domain.Tree) error {
	for _, fid := range slices.Sorted(maps.Keys(tree.Flows)) {
		f := tree.Flows[fid]
		if f == nil {
			return domain.NewStructuralError(domain.KindConnectivity, "", "flow %s is null", fid)
		}
		if f.ID != fid {
			return domain.NewStructuralError(domain.KindConnectivity, "", "flow keyed %s has id %q", fid, f.ID)
		}
		src, ok := tree.Node(f.Source)
		if !ok {
			return domain.NewStructuralError(domain.KindConnectivity, "", "flow %s: unknown source %q", fid, f.Source)
		}
		dst, ok := tree.Node(f.Target)
		if !ok {
			return domain.NewStructuralError(domain.KindConnectivity, "", "flow %s: unknown target %q", fid, f.Target)
		}
		if !src.Base().Outgoing.Contains(fid) {
			return domain.NewStructuralError(domain.KindConnectivity, f.Source, "flow %s is not listed as outgoing", fid)
		}
		if !dst.Base().Incoming.Contains(fid) {
			return domain.NewStructuralError(domain.KindConnectivity, f.Target, "flow %s is not listed as incoming", fid)
		}
	}

	for _, n := range tree.Nodes() {
		b := n.Base()
		for _, fid := range b.Incoming.IDs() {
			f, ok := tree.Flow(fid)
			if !ok {
				return domain.NewStructuralError(domain.KindConnectivity, b.ID, "unknown incoming flow %s", fid)
			}
			if f.Target != b.ID {
				return domain.NewStructuralError(domain.KindConnectivity, b.ID, "incoming flow %s targets %s", fid, f.Target)
			}
		}
		for _, fid := range b.Outgoing.IDs() {
			f, ok := tree.Flow(fid)
			if !ok {
				return domain.NewStructuralError(domain.KindConnectivity, b.ID, "unknown outgoing flow %s", fid)
			}
			if f.Source != b.ID {
				return domain.NewStructuralError(domain.KindConnectivity, b.ID, "outgoing flow %s starts at %s", fid, f.Source)
			}
		}

		t := n.Type()
		if t != domain.TypeEmptyStartEvent && b.Incoming.Len() == 0 {
			return domain.NewStructuralError(domain.KindConnectivity, b.ID, "%s has no incoming flow", t)
		}
		switch {
		case t.IsFanOut():
			if b.Outgoing.Len() == 0 {
				return domain.NewStructuralError(domain.KindConnectivity, b.ID, "%s has no outgoing flow", t)
			}
		case !t.IsEndEvent():
			if b.Outgoing.Len() != 1 {
				return domain.NewStructuralError(domain.KindConnectivity, b.ID,
					"%s must have exactly one outgoing flow, got %d", t, b.Outgoing.Len())
			}
		}
	}
	return nil
}

// checkConditions validates the conditions of exclusive and conditional
// parallel gateways against their outgoing flows.
func checkConditions(tree *domain.Tree) error {
	for _, id := range slices.Sorted(maps.Keys(tree.Gateways)) {
		var (
			conds map[string]domain.Condition
			def   *domain.DefaultCondition
		)
		switch g := tree.Gateways[id].(type) {
		case *domain.ExclusiveGateway:
			conds, def = g.Conditions, g.DefaultCondition
		case *domain.ConditionalParallelGateway:
			conds, def = g.Conditions, g.DefaultCondition
		default:
			continue
		}

		out := tree.Gateways[id].Base().Outgoing
		for _, fid := range slices.Sorted(maps.Keys(conds)) {
			if !out.Contains(fid) {
				return domain.NewStructuralError(domain.KindStream, id, "condition on flow %s which is not outgoing", fid)
			}
		}
		if def != nil {
			if !out.Contains(def.FlowID) {
				return domain.NewStructuralError(domain.KindStream, id, "default flow %s is not outgoing", def.FlowID)
			}
			if _, ok := conds[def.FlowID]; ok {
				return domain.NewStructuralError(domain.KindStream, id, "default flow %s also carries a condition", def.FlowID)
			}
		}
		for _, fid := range out.IDs() {
			if def != nil && fid == def.FlowID {
				continue
			}
			if _, ok := conds[fid]; !ok {
				return domain.NewStructuralError(domain.KindStream, id, "outgoing flow %s has no condition", fid)
			}
		}
	}
	return nil
}
