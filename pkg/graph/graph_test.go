package graph_test

import (
	"testing"

	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/graph"
	"github.com/stretchr/testify/assert"
)

func TestGraph_FindCycle(t *testing.T) {
	tests := []struct {
		name  string
		nodes []string
		edges []graph.Edge
		want  []string
	}{
		{
			name:  "acyclic",
			nodes: []string{"a", "b", "c"},
			edges: []graph.Edge{{"a", "b"}, {"b", "c"}, {"a", "c"}},
			want:  nil,
		},
		{
			name:  "self loop",
			nodes: []string{"a"},
			edges: []graph.Edge{{"a", "a"}},
			want:  []string{"a", "a"},
		},
		{
			name:  "cycle path starts at the re-entered node",
			nodes: []string{"s", "a", "b", "c"},
			edges: []graph.Edge{{"s", "a"}, {"a", "b"}, {"b", "c"}, {"c", "a"}},
			want:  []string{"a", "b", "c", "a"},
		},
		{
			name:  "neighbour order decides which cycle is reported",
			nodes: []string{"a", "b", "c"},
			edges: []graph.Edge{{"a", "c"}, {"a", "b"}, {"b", "a"}, {"c", "a"}},
			want:  []string{"a", "c", "a"},
		},
		{
			name:  "endpoints missing from nodes are added",
			nodes: nil,
			edges: []graph.Edge{{"x", "y"}, {"y", "x"}},
			want:  []string{"x", "y", "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graph.New(tt.nodes, tt.edges)
			assert.Equal(t, tt.want, g.FindCycle())
			assert.Equal(t, tt.want != nil, g.HasCycle())
		})
	}
}

func TestGraph_RemoveEdgeBreaksCycle(t *testing.T) {
	g := graph.New([]string{"a", "b"}, []graph.Edge{{"a", "b"}, {"b", "a"}, {"b", "a"}})

	assert.True(t, g.RemoveEdge("b", "a"))
	assert.True(t, g.HasCycle(), "parallel edge still closes the cycle")
	assert.True(t, g.RemoveEdge("b", "a"))
	assert.False(t, g.HasCycle())
	assert.False(t, g.RemoveEdge("b", "a"))
	assert.Equal(t, []string{"b"}, g.Neighbors("a"))
}

func TestRollbackGraph(t *testing.T) {
	g := graph.NewRollbackGraph()
	g.AddNode("a")
	g.AddEdge("a", "b")
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")

	assert.Equal(t, []string{"a", "b", "c"}, g.Nodes())
	assert.Equal(t, [][2]string{{"a", "b"}, {"b", "c"}}, g.Flows())
	assert.Equal(t, []string{"b"}, g.Next("a"))

	r := g.Reverse()
	assert.Equal(t, []string{"a", "b", "c"}, r.Nodes())
	assert.Equal(t, [][2]string{{"b", "a"}, {"c", "b"}}, r.Flows())
	assert.Equal(t, []string{"a"}, r.Next("b"))
	assert.Empty(t, r.Next("a"))

	data, err := r.MarshalJSON()
	assert.NoError(t, err)
	assert.JSONEq(t, `{"nodes":["a","b","c"],"flows":[["b","a"],["c","b"]]}`, string(data))
}
