package dsl_test

import (
	"testing"

	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/dsl"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/uid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertFlowsReferencedOnce checks that every flow id is listed exactly once
// as an outgoing and once as an incoming reference on its level.
func assertFlowsReferencedOnce(t *testing.T, tree *domain.Tree) {
	t.Helper()
	out := map[string]int{}
	in := map[string]int{}
	for _, n := range tree.Nodes() {
		for _, fid := range n.Base().Outgoing.IDs() {
			out[fid]++
		}
		for _, fid := range n.Base().Incoming.IDs() {
			in[fid]++
		}
	}
	for fid, f := range tree.Flows {
		assert.Equal(t, 1, out[fid], "flow %s outgoing references", fid)
		assert.Equal(t, 1, in[fid], "flow %s incoming references", fid)

		src, ok := tree.Node(f.Source)
		require.True(t, ok, "flow %s source %s", fid, f.Source)
		assert.True(t, src.Base().Outgoing.Contains(fid))
		dst, ok := tree.Node(f.Target)
		require.True(t, ok, "flow %s target %s", fid, f.Target)
		assert.True(t, dst.Base().Incoming.Contains(fid))
	}
}

func TestBuild_Linear(t *testing.T) {
	// 1. Declare start -> act -> end
	start := dsl.NewEmptyStartEvent(dsl.WithID("start"))
	act := dsl.NewServiceActivity("demo", dsl.WithID("act"), dsl.WithName("Demo")).
		Version("1.0").
		Input("key", domain.Var{Type: domain.VarPlain, Value: "v"})
	end := dsl.NewEmptyEndEvent(dsl.WithID("end"))
	start.Extend(act).Extend(end)

	// 2. Build
	tree, err := dsl.Build(start, dsl.WithIDGenerator(uid.NewSequence()))
	require.NoError(t, err)

	// 3. Verify
	assert.Equal(t, "p1", tree.ID)
	assert.Equal(t, "start", tree.StartEvent.ID)
	assert.Equal(t, "", tree.StartEvent.Incoming.First())
	assert.False(t, tree.StartEvent.Outgoing.IsList())
	assert.Equal(t, "end", tree.EndEvent.Base().ID)
	assert.Len(t, tree.Flows, 2)

	a, ok := tree.Activities["act"].(*domain.ServiceActivity)
	require.True(t, ok)
	assert.Equal(t, "Demo", a.Name)
	assert.Equal(t, "1.0", a.Component.Version)
	assert.Equal(t, "v", a.Component.Inputs["key"].Value)
	assert.True(t, a.Skippable)
	assert.True(t, a.Retryable)
	assert.True(t, a.Incoming.IsList())
	assert.False(t, a.Outgoing.IsList())

	assert.Equal(t, []string{"act"}, tree.Targets("start"))
	assert.Equal(t, []string{"end"}, tree.Targets("act"))
	assertFlowsReferencedOnce(t, tree)
}

func TestBuild_ParallelConverge(t *testing.T) {
	start := dsl.NewEmptyStartEvent(dsl.WithID("start"))
	pg := dsl.NewParallelGateway(dsl.WithID("pg"))
	cg := dsl.NewConvergeGateway(dsl.WithID("cg"))
	end := dsl.NewEmptyEndEvent(dsl.WithID("end"))

	start.Extend(pg).
		Connect(
			dsl.NewServiceActivity("a", dsl.WithID("a1")),
			dsl.NewServiceActivity("a", dsl.WithID("a2")),
			dsl.NewServiceActivity("a", dsl.WithID("a3")),
		).
		Converge(cg).
		Extend(end)

	tree, err := dsl.Build(start, dsl.WithTreeID("parallel"))
	require.NoError(t, err)

	assert.Equal(t, "parallel", tree.ID)
	gw := tree.Gateways["pg"]
	assert.Equal(t, 3, gw.Base().Outgoing.Len())
	assert.Equal(t, []string{"a1", "a2", "a3"}, tree.Targets("pg"))

	converge := tree.Gateways["cg"]
	assert.Equal(t, 3, converge.Base().Incoming.Len(), "converge gateway must collect every branch on revisit")
	assertFlowsReferencedOnce(t, tree)
}

func TestBuild_ExclusiveConditions(t *testing.T) {
	start := dsl.NewEmptyStartEvent(dsl.WithID("start"))
	eg := dsl.NewExclusiveGateway(map[int]string{0: "${x} > 1"}, dsl.WithID("eg")).
		Condition(1, "${x} <= 1").
		DefaultTo(2, "fallback")
	end := dsl.NewEmptyEndEvent(dsl.WithID("end"))

	start.Extend(eg).
		Connect(
			dsl.NewServiceActivity("a", dsl.WithID("big")),
			dsl.NewServiceActivity("a", dsl.WithID("small")),
			dsl.NewServiceActivity("a", dsl.WithID("other")),
		).
		Converge(end)

	tree, err := dsl.Build(start)
	require.NoError(t, err)

	gw, ok := tree.Gateways["eg"].(*domain.ExclusiveGateway)
	require.True(t, ok)
	flowIDs := gw.Outgoing.IDs()
	require.Len(t, flowIDs, 3)
	assert.Equal(t, "${x} > 1", gw.Conditions[flowIDs[0]].Evaluate)
	assert.Equal(t, "${x} <= 1", gw.Conditions[flowIDs[1]].Evaluate)
	assert.NotContains(t, gw.Conditions, flowIDs[2])

	require.NotNil(t, gw.DefaultCondition)
	assert.Equal(t, flowIDs[2], gw.DefaultCondition.FlowID)
	assert.Equal(t, "fallback", gw.DefaultCondition.Name)
	assert.True(t, tree.Flows[flowIDs[2]].IsDefault)
	assert.False(t, tree.Flows[flowIDs[0]].IsDefault)

	assert.Equal(t, 3, tree.EndEvent.Base().Incoming.Len())
	assertFlowsReferencedOnce(t, tree)
}

func TestBuild_SubProcess(t *testing.T) {
	subStart := dsl.NewEmptyStartEvent(dsl.WithID("s_start"))
	subStart.Extend(dsl.NewServiceActivity("inner", dsl.WithID("inner"))).
		Extend(dsl.NewEmptyEndEvent(dsl.WithID("s_end")))

	data := domain.NewData()
	data.Inputs["${a}"] = domain.Var{Type: domain.VarSplice, Value: "${parent}"}
	data.Outputs = []string{"${a}"}

	sub := dsl.NewSubProcess(subStart, dsl.WithID("sub")).
		Param("${a}", domain.Var{Type: domain.VarPlain, Value: 1})
	sub.Data = data

	start := dsl.NewEmptyStartEvent(dsl.WithID("start"))
	start.Extend(sub).Extend(dsl.NewEmptyEndEvent(dsl.WithID("end")))

	tree, err := dsl.Build(start)
	require.NoError(t, err)

	sp, ok := tree.Activities["sub"].(*domain.SubProcess)
	require.True(t, ok)
	require.NotNil(t, sp.Pipeline)
	assert.Equal(t, "sub", sp.Pipeline.ID, "nested tree is addressed by the embedding node id")
	assert.Equal(t, []string{"${a}"}, sp.Pipeline.Data.Outputs)
	assert.Equal(t, 1, sp.Params["${a}"].Value)
	assert.Contains(t, sp.Pipeline.Activities, "inner")
	assert.NotContains(t, tree.Activities, "inner")
	assertFlowsReferencedOnce(t, sp.Pipeline)
}

func TestBuild_LoopBack(t *testing.T) {
	start := dsl.NewEmptyStartEvent(dsl.WithID("start"))
	act1 := dsl.NewServiceActivity("a", dsl.WithID("act1"))
	eg := dsl.NewExclusiveGateway(map[int]string{0: "retry", 1: "done"}, dsl.WithID("eg"))
	end := dsl.NewEmptyEndEvent(dsl.WithID("end"))

	start.Extend(act1).Extend(eg).Connect(act1, end)

	tree, err := dsl.Build(start)
	require.NoError(t, err)

	a := tree.Activities["act1"]
	assert.Equal(t, 2, a.Base().Incoming.Len())
	assert.Equal(t, []string{"act1", "end"}, tree.Targets("eg"))
	assertFlowsReferencedOnce(t, tree)
}

func TestBuild_Errors(t *testing.T) {
	t.Run("single exit node with two successors", func(t *testing.T) {
		start := dsl.NewEmptyStartEvent()
		act := dsl.NewServiceActivity("a")
		start.Extend(act).Connect(dsl.NewEmptyEndEvent(), dsl.NewEmptyEndEvent())

		_, err := dsl.Build(start)
		assert.ErrorIs(t, err, domain.ErrStructural)
	})

	t.Run("unknown element type", func(t *testing.T) {
		start := dsl.NewEmptyStartEvent()
		start.Extend(&foreignElement{EmptyEndEvent: dsl.NewEmptyEndEvent(dsl.WithID("x"))})

		_, err := dsl.Build(start)
		var unknown *domain.UnknownNodeTypeError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "x", unknown.NodeID)
		assert.Equal(t, "InclusiveGateway", unknown.Type)
	})
}

func TestConverge_FollowsTails(t *testing.T) {
	pg := dsl.NewParallelGateway()
	a := dsl.NewServiceActivity("a")
	b := dsl.NewServiceActivity("b")
	cg := dsl.NewConvergeGateway()

	a.Extend(dsl.NewServiceActivity("a2"))
	pg.Connect(a, b)
	assert.Same(t, cg, pg.Converge(cg))

	assert.Same(t, cg, a.Tail())
	assert.Same(t, cg, b.Outgoing()[0])
}

// foreignElement is an Element implemented outside the dsl package.
type foreignElement struct {
	*dsl.EmptyEndEvent
}

func (*foreignElement) Type() domain.NodeType { return "InclusiveGateway" }
