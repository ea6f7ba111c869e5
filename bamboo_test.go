package bamboo_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/TencentBlueKing/bamboo-engine-sub001"
	"github.com/TencentBlueKing/bamboo-engine-sub001/internal/logging"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/adapters/memory"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/definition"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/dsl"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/graph"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/uid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// start -> pg -> {a, b} -> cg -> end
func parallelStart() dsl.Element {
	start := dsl.NewEmptyStartEvent(dsl.WithID("start"))
	start.Extend(dsl.NewParallelGateway(dsl.WithID("pg"))).
		Connect(dsl.NewServiceActivity("x", dsl.WithID("a")), dsl.NewServiceActivity("x", dsl.WithID("b"))).
		Converge(dsl.NewConvergeGateway(dsl.WithID("cg"))).
		Extend(dsl.NewEmptyEndEvent(dsl.WithID("end")))
	return start
}

// start -> act1 -> eg -> {act2 -> end, act1}
func loopStart() dsl.Element {
	start := dsl.NewEmptyStartEvent(dsl.WithID("start"))
	act1 := dsl.NewServiceActivity("x", dsl.WithID("act1"))
	act2 := dsl.NewServiceActivity("x", dsl.WithID("act2"))
	start.Extend(act1).
		Extend(dsl.NewExclusiveGateway(map[int]string{0: "${done}", 1: "${again}"}, dsl.WithID("eg"))).
		Connect(act2, act1)
	act2.Extend(dsl.NewEmptyEndEvent(dsl.WithID("end")))
	return start
}

func TestEngine_Compile(t *testing.T) {
	// 1. Setup
	eng, err := bamboo.New(bamboo.WithIDGenerator(uid.NewSequence()))
	require.NoError(t, err)

	// 2. Compile
	p, err := eng.Compile(context.Background(), parallelStart())
	require.NoError(t, err)

	// 3. Verify
	assert.Equal(t, "p1", p.ID())
	assert.Equal(t, "cg", p.Tree.Gateways["pg"].(*domain.ParallelGateway).ConvergeGatewayID)
	assert.Equal(t, domain.TokenMap{
		"start": "t1", "pg": "t1", "a": "t2", "b": "t3", "cg": "t1", "end": "t1",
	}, p.Tokens)
}

func TestEngine_CompileWithStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	eng, err := bamboo.New(
		bamboo.WithStore(store),
		bamboo.WithLocker(memory.NewLocker()),
	)
	require.NoError(t, err)

	p, err := eng.Compile(ctx, parallelStart(), dsl.WithTreeID("deploy"))
	require.NoError(t, err)

	loaded, err := eng.Load(ctx, "deploy")
	require.NoError(t, err)
	assert.Equal(t, p.Tokens, loaded.Tokens)

	ids, err := eng.Pipelines(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"deploy"}, ids)

	// The lock is released after saving.
	p, err = eng.Compile(ctx, parallelStart(), dsl.WithTreeID("deploy"))
	require.NoError(t, err)
	assert.Equal(t, "deploy", p.ID())

	require.NoError(t, eng.Delete(ctx, "deploy"))
	_, err = eng.Load(ctx, "deploy")
	assert.ErrorIs(t, err, domain.ErrPipelineNotFound)
}

func TestEngine_WithoutStore(t *testing.T) {
	eng, err := bamboo.New()
	require.NoError(t, err)

	_, err = eng.Load(context.Background(), "p1")
	assert.ErrorIs(t, err, bamboo.ErrNoStore)
	_, err = eng.Pipelines(context.Background())
	assert.ErrorIs(t, err, bamboo.ErrNoStore)
	assert.ErrorIs(t, eng.Delete(context.Background(), "p1"), bamboo.ErrNoStore)
}

func TestEngine_CyclePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("Rejected By Default", func(t *testing.T) {
		var buf bytes.Buffer
		eng, err := bamboo.New(bamboo.WithLogger(logging.NewWithFormat(slog.LevelInfo, "text", &buf)))
		require.NoError(t, err)

		_, err = eng.Compile(ctx, loopStart(), dsl.WithTreeID("loop"))
		require.ErrorIs(t, err, domain.ErrCycle)
		assert.Contains(t, buf.String(), "Pipeline rejected")
		assert.Contains(t, buf.String(), "pipeline_id=loop")
	})

	t.Run("Tolerated", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		eng, err := bamboo.New(bamboo.WithCycleTolerance(true), bamboo.WithMetrics(reg))
		require.NoError(t, err)

		p, err := eng.Compile(ctx, loopStart())
		require.NoError(t, err)
		assert.Len(t, p.Tokens, 5)
		for id, tok := range p.Tokens {
			assert.Equal(t, p.Tokens["start"], tok, "node %s shares the top token", id)
		}

		expected := `
# HELP bamboo_pipeline_cycles_reversed_total Total number of back-edges reversed to break cycles
# TYPE bamboo_pipeline_cycles_reversed_total counter
bamboo_pipeline_cycles_reversed_total 1
`
		assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "bamboo_pipeline_cycles_reversed_total"))
	})
}

func TestEngine_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	eng, err := bamboo.New(bamboo.WithMetrics(reg))
	require.NoError(t, err)

	_, err = eng.Compile(context.Background(), parallelStart())
	require.NoError(t, err)
	_, err = eng.Compile(context.Background(), loopStart())
	require.Error(t, err)

	expected := `
# HELP bamboo_pipeline_operations_total Total number of pipeline operations by outcome
# TYPE bamboo_pipeline_operations_total counter
bamboo_pipeline_operations_total{operation="compile",result="error"} 1
bamboo_pipeline_operations_total{operation="compile",result="ok"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "bamboo_pipeline_operations_total"))

	_, err = bamboo.New(bamboo.WithMetrics(reg))
	assert.Error(t, err, "collectors cannot be registered twice")
}

func TestEngine_Queries(t *testing.T) {
	ctx := context.Background()
	eng, err := bamboo.New()
	require.NoError(t, err)

	p, err := eng.Compile(ctx, parallelStart())
	require.NoError(t, err)

	t.Run("AllowedStartNodes", func(t *testing.T) {
		ids, err := eng.AllowedStartNodes(ctx, p.Tree)
		require.NoError(t, err)
		assert.Equal(t, []string{"start"}, ids)
	})

	t.Run("SkippedNodes", func(t *testing.T) {
		_, err := eng.SkippedNodes(ctx, p.Tree, "a")
		assert.ErrorIs(t, err, domain.ErrStartPositionInvalid)

		ids, err := eng.SkippedNodes(ctx, p.Tree, "start")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("Tokens", func(t *testing.T) {
		result, err := eng.Tokens(ctx, p.Tree)
		require.NoError(t, err)
		assert.Len(t, result.Tokens, 6)
		assert.Empty(t, result.Unterminated)
	})

	t.Run("RollbackGraph", func(t *testing.T) {
		g, others, err := eng.RollbackGraph(ctx, p.Tree, "end", "start")
		require.NoError(t, err)
		assert.Equal(t, []string{"start", "pg", "cg", "end"}, others)
		assert.Equal(t, []string{"end"}, g.Next(graph.StartFlag))
		assert.Equal(t, []string{"start"}, g.Next("a"))
		assert.Equal(t, []string{graph.EndFlag}, g.Next("start"))

		_, _, err = eng.RollbackGraph(ctx, p.Tree, "ghost", "start")
		assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	})
}

func TestEngine_CompileDefinition(t *testing.T) {
	doc := `
id: release
nodes:
  - {id: start, type: start, next: check}
  - id: check
    type: exclusive
    branches:
      - {to: deploy, condition: "${ok}"}
      - {to: end, default: true, name: skip}
  - {id: deploy, type: activity, component: {code: bk_deploy}, next: end}
  - {id: end, type: end}
`
	def, err := definition.Parse([]byte(doc), definition.FormatYAML)
	require.NoError(t, err)

	eng, err := bamboo.New()
	require.NoError(t, err)
	p, err := eng.CompileDefinition(context.Background(), def)
	require.NoError(t, err)

	assert.Equal(t, "release", p.ID())
	assert.Len(t, p.Tokens, 4)
}
