package graph

import (
	"encoding/json"
	"slices"

	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
)

// Sentinel nodes bracketing a rollback graph.
const (
	StartFlag = "START"
	EndFlag   = "END"
)

// RollbackNode is one entry of a flattened node map: Targets maps outgoing
// flow ids to downstream node ids, StartEventID is set on sub-processes.
type RollbackNode struct {
	ID           string            `json:"id"`
	Type         domain.NodeType   `json:"type"`
	Targets      map[string]string `json:"targets"`
	StartEventID string            `json:"start_event_id,omitempty"`
}

// NodeMap is a whole pipeline flattened by node id.
type NodeMap map[string]RollbackNode

// RollbackGraph is the reduced graph replayed during rollback. Nodes and
// flows keep insertion order; duplicate flows are ignored.
type RollbackGraph struct {
	nodes []string
	flows [][2]string
	next  map[string][]string
}

// NewRollbackGraph returns an empty graph.
func NewRollbackGraph() *RollbackGraph {
	return &RollbackGraph{next: map[string][]string{}}
}

// AddNode adds id if it is not present yet.
func (g *RollbackGraph) AddNode(id string) {
	if _, ok := g.next[id]; ok {
		return
	}
	g.nodes = append(g.nodes, id)
	g.next[id] = nil
}

// AddEdge adds from -> to, registering both nodes.
func (g *RollbackGraph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	if slices.Contains(g.next[from], to) {
		return
	}
	g.next[from] = append(g.next[from], to)
	g.flows = append(g.flows, [2]string{from, to})
}

// Next returns the nodes reachable in one step from id.
func (g *RollbackGraph) Next(id string) []string {
	return slices.Clone(g.next[id])
}

// Nodes returns node ids in insertion order.
func (g *RollbackGraph) Nodes() []string {
	return slices.Clone(g.nodes)
}

// Flows returns edges in insertion order.
func (g *RollbackGraph) Flows() [][2]string {
	return slices.Clone(g.flows)
}

// Reverse returns a graph with the same nodes and every flow flipped.
func (g *RollbackGraph) Reverse() *RollbackGraph {
	r := NewRollbackGraph()
	for _, n := range g.nodes {
		r.AddNode(n)
	}
	for _, f := range g.flows {
		r.AddEdge(f[1], f[0])
	}
	return r
}

// View is the serialisable form of a RollbackGraph.
type View struct {
	Nodes []string    `json:"nodes"`
	Flows [][2]string `json:"flows"`
}

// AsView returns the {nodes, flows} view.
func (g *RollbackGraph) AsView() View {
	nodes := g.Nodes()
	if nodes == nil {
		nodes = []string{}
	}
	flows := g.Flows()
	if flows == nil {
		flows = [][2]string{}
	}
	return View{Nodes: nodes, Flows: flows}
}

// MarshalJSON encodes the {nodes, flows} view.
func (g *RollbackGraph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.AsView())
}

// UnmarshalJSON rebuilds a graph from its view.
func (g *RollbackGraph) UnmarshalJSON(data []byte) error {
	var v View
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*g = *NewRollbackGraph()
	for _, n := range v.Nodes {
		g.AddNode(n)
	}
	for _, f := range v.Flows {
		g.AddEdge(f[0], f[1])
	}
	return nil
}
