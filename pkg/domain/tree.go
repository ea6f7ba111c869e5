package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Flow is a directed edge. Flows are addressed by id rather than by their
// endpoints since two flows may join the same pair of nodes.
type Flow struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Target    string `json:"target"`
	IsDefault bool   `json:"is_default"`
}

// Tree is one compiled level of a pipeline. EndEvent is an *EmptyEndEvent
// or an *ExecutableEndEvent; Activities holds ServiceActivity and SubProcess
// nodes; Gateways holds the four gateway variants.
type Tree struct {
	ID         string           `json:"id"`
	StartEvent *EmptyStartEvent `json:"start_event"`
	EndEvent   Node             `json:"end_event"`
	Activities map[string]Node  `json:"activities"`
	Gateways   map[string]Node  `json:"gateways"`
	Flows      map[string]*Flow `json:"flows"`
	Data       Data             `json:"data"`
}

// NewTree returns an empty tree with initialised buckets.
func NewTree(id string) *Tree {
	return &Tree{
		ID:         id,
		Activities: map[string]Node{},
		Gateways:   map[string]Node{},
		Flows:      map[string]*Flow{},
		Data:       NewData(),
	}
}

// TokenMap maps node ids to token ids.
type TokenMap map[string]string

// Node looks a node up by id on this level only.
func (t *Tree) Node(id string) (Node, bool) {
	if t.StartEvent != nil && t.StartEvent.ID == id {
		return t.StartEvent, true
	}
	if t.EndEvent != nil && t.EndEvent.Base().ID == id {
		return t.EndEvent, true
	}
	if n, ok := t.Activities[id]; ok {
		return n, true
	}
	if n, ok := t.Gateways[id]; ok {
		return n, true
	}
	return nil, false
}

// Nodes returns every node of this level in a stable order: start event,
// activities by id, gateways by id, end event.
func (t *Tree) Nodes() []Node {
	nodes := make([]Node, 0, len(t.Activities)+len(t.Gateways)+2)
	if t.StartEvent != nil {
		nodes = append(nodes, t.StartEvent)
	}
	for _, id := range sortedKeys(t.Activities) {
		nodes = append(nodes, t.Activities[id])
	}
	for _, id := range sortedKeys(t.Gateways) {
		nodes = append(nodes, t.Gateways[id])
	}
	if t.EndEvent != nil {
		nodes = append(nodes, t.EndEvent)
	}
	return nodes
}

// Targets resolves the outgoing flows of id to their target node ids, in
// outgoing order. Unknown flow ids are skipped.
func (t *Tree) Targets(id string) []string {
	node, ok := t.Node(id)
	if !ok {
		return nil
	}
	var targets []string
	for _, fid := range node.Base().Outgoing.IDs() {
		if f, ok := t.Flow(fid); ok {
			targets = append(targets, f.Target)
		}
	}
	return targets
}

// Flow returns the flow with id fid. A nil entry counts as missing.
func (t *Tree) Flow(fid string) (*Flow, bool) {
	f, ok := t.Flows[fid]
	return f, ok && f != nil
}

// SubProcesses returns the sub-process activities of this level ordered by id.
func (t *Tree) SubProcesses() []*SubProcess {
	var subs []*SubProcess
	for _, id := range sortedKeys(t.Activities) {
		if sp, ok := t.Activities[id].(*SubProcess); ok {
			subs = append(subs, sp)
		}
	}
	return subs
}

// Put stores n in the bucket its variant belongs to.
func (t *Tree) Put(n Node) {
	switch v := n.(type) {
	case *EmptyStartEvent:
		t.StartEvent = v
	case *EmptyEndEvent, *ExecutableEndEvent:
		t.EndEvent = v
	case *ServiceActivity, *SubProcess:
		t.Activities[v.Base().ID] = v
	case *ExclusiveGateway, *ParallelGateway, *ConditionalParallelGateway, *ConvergeGateway:
		t.Gateways[v.Base().ID] = v
	}
}

// Clone returns a deep copy of t, nested pipelines included.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	c := &Tree{
		ID:         t.ID,
		Activities: make(map[string]Node, len(t.Activities)),
		Gateways:   make(map[string]Node, len(t.Gateways)),
		Flows:      make(map[string]*Flow, len(t.Flows)),
		Data:       t.Data.Clone(),
	}
	if t.StartEvent != nil {
		c.StartEvent = t.StartEvent.clone().(*EmptyStartEvent)
	}
	c.EndEvent = CloneNode(t.EndEvent)
	for id, n := range t.Activities {
		c.Activities[id] = n.clone()
	}
	for id, n := range t.Gateways {
		c.Gateways[id] = n.clone()
	}
	for id, f := range t.Flows {
		if f == nil {
			c.Flows[id] = nil
			continue
		}
		fc := *f
		c.Flows[id] = &fc
	}
	return c
}

// UnmarshalJSON decodes the wire format, resolving node variants by type.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         string                     `json:"id"`
		StartEvent json.RawMessage            `json:"start_event"`
		EndEvent   json.RawMessage            `json:"end_event"`
		Activities map[string]json.RawMessage `json:"activities"`
		Gateways   map[string]json.RawMessage `json:"gateways"`
		Flows      map[string]*Flow           `json:"flows"`
		Data       *Data                      `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	tree := NewTree(raw.ID)
	if raw.Data != nil {
		tree.Data = raw.Data.Clone()
	}
	for id, f := range raw.Flows {
		if f == nil {
			return NewStructuralError(KindConnectivity, "", "flow %s is null", id)
		}
		if f.ID != id {
			return NewStructuralError(KindConnectivity, "", "flow keyed %s has id %q", id, f.ID)
		}
		tree.Flows[id] = f
	}

	if len(raw.StartEvent) > 0 && string(raw.StartEvent) != "null" {
		n, err := DecodeNode(raw.StartEvent)
		if err != nil {
			return err
		}
		start, ok := n.(*EmptyStartEvent)
		if !ok {
			return fmt.Errorf("start_event has type %s", n.Type())
		}
		tree.StartEvent = start
	}
	if len(raw.EndEvent) > 0 && string(raw.EndEvent) != "null" {
		n, err := DecodeNode(raw.EndEvent)
		if err != nil {
			return err
		}
		if !n.Type().IsEndEvent() {
			return fmt.Errorf("end_event has type %s", n.Type())
		}
		tree.EndEvent = n
	}
	for id, msg := range raw.Activities {
		n, err := DecodeNode(msg)
		if err != nil {
			return err
		}
		if !n.Type().IsActivity() {
			return fmt.Errorf("activity %q has type %s", id, n.Type())
		}
		tree.Activities[id] = n
	}
	for id, msg := range raw.Gateways {
		n, err := DecodeNode(msg)
		if err != nil {
			return err
		}
		if !n.Type().IsGateway() {
			return fmt.Errorf("gateway %q has type %s", id, n.Type())
		}
		tree.Gateways[id] = n
	}

	*t = *tree
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
