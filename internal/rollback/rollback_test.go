package rollback_test

import (
	"testing"

	"github.com/TencentBlueKing/bamboo-engine-sub001/internal/compiler"
	"github.com/TencentBlueKing/bamboo-engine-sub001/internal/rollback"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/dsl"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id string, t domain.NodeType, targets map[string]string) graph.RollbackNode {
	if targets == nil {
		targets = map[string]string{}
	}
	return graph.RollbackNode{ID: id, Type: t, Targets: targets}
}

// node_1 -> node_2 -> node_3 -> {node_4, node_1}; node_4 -> ... -> node_7
func loopNodeMap() graph.NodeMap {
	return graph.NodeMap{
		"node_1": node("node_1", domain.TypeServiceActivity, map[string]string{"n1": "node_2"}),
		"node_2": node("node_2", domain.TypeServiceActivity, map[string]string{"n2": "node_3"}),
		"node_3": node("node_3", domain.TypeExclusiveGateway, map[string]string{"n3": "node_4", "n4": "node_1"}),
		"node_4": node("node_4", domain.TypeServiceActivity, map[string]string{"n5": "node_5"}),
		"node_5": node("node_5", domain.TypeServiceActivity, map[string]string{"n6": "node_6"}),
		"node_6": node("node_6", domain.TypeServiceActivity, map[string]string{"n7": "node_7"}),
		"node_7": node("node_7", domain.TypeEmptyEndEvent, nil),
	}
}

func TestBuild_ReducesLoopingGraph(t *testing.T) {
	nm := loopNodeMap()

	g, others := rollback.Build(nm, "node_5", "node_1")

	assert.Equal(t, []string{"node_3"}, others)
	assert.Equal(t, []string{"node_5", "node_1", graph.EndFlag, graph.StartFlag, "node_2", "node_4"}, g.Nodes())
	assert.Equal(t, [][2]string{
		{"node_1", graph.EndFlag},
		{graph.StartFlag, "node_5"},
		{"node_2", "node_1"},
		{"node_4", "node_2"},
		{"node_5", "node_4"},
	}, g.Flows())

	// Replay order: START -> node_5 -> node_4 -> node_2 -> node_1 -> END
	assert.Equal(t, []string{"node_5"}, g.Next(graph.StartFlag))
	assert.Equal(t, []string{"node_4"}, g.Next("node_5"))
	assert.Equal(t, []string{graph.EndFlag}, g.Next("node_1"))

	assert.Contains(t, nm["node_3"].Targets, "n4", "caller's node map is not modified")
}

func TestBuild_SubProcessIsTransparent(t *testing.T) {
	subStart := dsl.NewEmptyStartEvent(dsl.WithID("s_start"))
	subStart.Extend(dsl.NewServiceActivity("x", dsl.WithID("inner"))).Extend(dsl.NewEmptyEndEvent(dsl.WithID("s_end")))

	start := dsl.NewEmptyStartEvent(dsl.WithID("start"))
	start.Extend(dsl.NewServiceActivity("x", dsl.WithID("first"))).
		Extend(dsl.NewSubProcess(subStart, dsl.WithID("sub"))).
		Extend(dsl.NewServiceActivity("x", dsl.WithID("last"))).
		Extend(dsl.NewEmptyEndEvent(dsl.WithID("end")))
	tree, err := dsl.Build(start)
	require.NoError(t, err)

	g, others := rollback.Build(compiler.NodeMap(tree), "last", "first")

	assert.Equal(t, [][2]string{
		{"first", graph.EndFlag},
		{graph.StartFlag, "last"},
		{"inner", "first"},
		{"last", "inner"},
	}, g.Flows())
	assert.Equal(t, []string{"s_start", "s_end"}, others)
	assert.NotContains(t, g.Nodes(), "sub")
}

func TestBuild_ParallelBranches(t *testing.T) {
	// first -> pg -> {a, b} -> cg -> last
	nm := graph.NodeMap{
		"first": node("first", domain.TypeServiceActivity, map[string]string{"f1": "pg"}),
		"pg":    node("pg", domain.TypeParallelGateway, map[string]string{"f2": "a", "f3": "b"}),
		"a":     node("a", domain.TypeServiceActivity, map[string]string{"f4": "cg"}),
		"b":     node("b", domain.TypeServiceActivity, map[string]string{"f5": "cg"}),
		"cg":    node("cg", domain.TypeConvergeGateway, map[string]string{"f6": "last"}),
		"last":  node("last", domain.TypeServiceActivity, nil),
	}

	g, others := rollback.Build(nm, "last", "first")

	assert.Equal(t, []string{"pg", "cg"}, others)
	assert.ElementsMatch(t, []string{"a", "b"}, g.Next("last"))
	assert.Equal(t, []string{"first"}, g.Next("a"))
	assert.Equal(t, []string{"first"}, g.Next("b"))
}

func TestBuild_UnknownTargetsAreIgnored(t *testing.T) {
	nm := graph.NodeMap{
		"a": node("a", domain.TypeServiceActivity, map[string]string{"f1": "ghost", "f2": "b"}),
		"b": node("b", domain.TypeServiceActivity, nil),
	}

	g, others := rollback.Build(nm, "b", "a")

	assert.Empty(t, others)
	assert.Equal(t, []string{"a"}, g.Next("b"))
}
