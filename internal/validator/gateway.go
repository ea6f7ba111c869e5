package validator

import (
	"slices"

	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
)

// arrival is what a forward walk reports when it stops: either a converge
// gateway together with the incoming flows through which it was reached, or
// the end of the level.
type arrival struct {
	converge string
	flows    []string
	end      bool
}

var reachedEnd = arrival{end: true}

// pairing resolves converge gateways on one acyclic level and records them
// on the matching nodes of write.
type pairing struct {
	level *domain.Tree
	write *domain.Tree
	memo  map[string]arrival
}

// pairGateways resolves every fan-out gateway of acyclic, nested levels
// included. Converge ids are stored on acyclic and on the nodes with the same
// ids in write; write may be acyclic itself.
func pairGateways(acyclic, write *domain.Tree) error {
	for _, sp := range acyclic.SubProcesses() {
		if sp.Pipeline == nil {
			continue
		}
		target := sp.Pipeline
		if ws, ok := write.Activities[sp.ID].(*domain.SubProcess); ok && ws.Pipeline != nil {
			target = ws.Pipeline
		}
		if err := pairGateways(sp.Pipeline, target); err != nil {
			return err
		}
	}

	if acyclic.StartEvent == nil {
		return domain.NewStructuralError(domain.KindStartEnd, "", "tree %s has no start event", acyclic.ID)
	}
	p := &pairing{level: acyclic, write: write, memo: map[string]arrival{}}
	a, err := p.walk(acyclic.StartEvent.ID)
	if err != nil {
		return err
	}
	if !a.end {
		return domain.NewStructuralError(domain.KindGateway, a.converge,
			"converge gateway is reached outside any fan-out gateway")
	}
	return nil
}

// enter follows flow fid. Reaching a converge gateway stops the walk.
func (p *pairing) enter(fid string) (arrival, error) {
	f, ok := p.level.Flow(fid)
	if !ok {
		return reachedEnd, nil
	}
	if node, ok := p.level.Node(f.Target); ok && node.Type() == domain.TypeConvergeGateway {
		return arrival{converge: f.Target, flows: []string{fid}}, nil
	}
	return p.walk(f.Target)
}

func (p *pairing) walk(id string) (arrival, error) {
	if a, ok := p.memo[id]; ok {
		return a, nil
	}
	a, err := p.step(id)
	if err != nil {
		return arrival{}, err
	}
	p.memo[id] = a
	return a, nil
}

func (p *pairing) step(id string) (arrival, error) {
	node, ok := p.level.Node(id)
	if !ok {
		return reachedEnd, nil
	}
	switch t := node.Type(); {
	case t.IsEndEvent():
		return reachedEnd, nil
	case t.IsFanOut():
		return p.fanOut(node)
	default:
		return p.next(node)
	}
}

// next continues through the single outgoing flow of node. A node whose
// outgoing flow was removed with a back-edge stops the walk.
func (p *pairing) next(node domain.Node) (arrival, error) {
	out := node.Base().Outgoing
	if out.Len() == 0 {
		return reachedEnd, nil
	}
	return p.enter(out.First())
}

func (p *pairing) fanOut(gw domain.Node) (arrival, error) {
	id := gw.Base().ID
	parallel := gw.Type() != domain.TypeExclusiveGateway

	var (
		order   []string
		reached = map[string][]string{}
		ends    int
	)
	for _, fid := range gw.Base().Outgoing.IDs() {
		a, err := p.enter(fid)
		if err != nil {
			return arrival{}, err
		}
		if a.end {
			ends++
			continue
		}
		if _, seen := reached[a.converge]; !seen {
			order = append(order, a.converge)
		}
		for _, in := range a.flows {
			if !slices.Contains(reached[a.converge], in) {
				reached[a.converge] = append(reached[a.converge], in)
			}
		}
	}

	switch {
	case len(order) == 0:
		if parallel {
			return arrival{}, domain.NewStructuralError(domain.KindGateway, id, "branches never reconverge")
		}
		return reachedEnd, nil
	case len(order) > 1:
		return arrival{}, domain.NewStructuralError(domain.KindGateway, id,
			"branches reconverge at different gateways %v", order)
	case parallel && ends > 0:
		return arrival{}, domain.NewStructuralError(domain.KindGateway, id,
			"%d branch(es) end without reaching converge gateway %s", ends, order[0])
	}

	cg := order[0]
	cgNode, _ := p.level.Node(cg)
	got, want := len(reached[cg]), cgNode.Base().Incoming.Len()
	if got < want {
		if parallel {
			return arrival{}, domain.NewStructuralError(domain.KindGateway, id,
				"only %d of %d incoming flows of converge gateway %s come from this gateway", got, want, cg)
		}
		slices.Sort(reached[cg])
		return arrival{converge: cg, flows: reached[cg]}, nil
	}

	if parallel {
		setConverge(gw, cg)
		if w, ok := p.write.Gateways[id]; ok {
			setConverge(w, cg)
		}
	}
	return p.next(cgNode)
}

func setConverge(n domain.Node, cg string) {
	switch g := n.(type) {
	case *domain.ParallelGateway:
		g.ConvergeGatewayID = cg
	case *domain.ConditionalParallelGateway:
		g.ConvergeGatewayID = cg
	}
}
