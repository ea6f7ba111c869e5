package ports

import (
	"context"
	"testing"
	"time"

	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunPipelineStoreContract runs a suite of tests to verify that a PipelineStore
// implementation adheres to the defined interface contract.
func RunPipelineStoreContract(t *testing.T, store PipelineStore) {
	ctx := context.Background()
	pipelineID := "contract-test-pipeline-" + time.Now().Format("20060102150405")

	newPipeline := func(t *testing.T, id string) *domain.Pipeline {
		t.Helper()
		start := dsl.NewEmptyStartEvent(dsl.WithID("start"))
		start.Extend(dsl.NewExclusiveGateway(map[int]string{0: "${go} == 1"}, dsl.WithID("eg")).DefaultTo(1, "else")).
			Connect(dsl.NewServiceActivity("demo", dsl.WithID("act")), dsl.NewEmptyEndEvent(dsl.WithID("end")))
		tree, err := dsl.Build(start, dsl.WithTreeID(id))
		require.NoError(t, err)
		return &domain.Pipeline{
			Tree:   tree,
			Tokens: domain.TokenMap{"start": "t1", "eg": "t1", "act": "t1", "end": "t1"},
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		// 1. Create a pipeline
		pipeline := newPipeline(t, pipelineID)

		// 2. Save
		err := store.Save(ctx, pipeline)
		require.NoError(t, err, "Save should not return error")

		// 3. Load
		loaded, err := store.Load(ctx, pipelineID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, pipelineID, loaded.ID())
		assert.Equal(t, pipeline.Tokens, loaded.Tokens)
		assert.Equal(t, "start", loaded.Tree.StartEvent.ID)
		assert.Equal(t, []string{"act", "end"}, loaded.Tree.Targets("eg"))

		// Edge shape and variant survive persistence.
		eg, ok := loaded.Tree.Gateways["eg"].(*domain.ExclusiveGateway)
		require.True(t, ok, "gateway should load back as ExclusiveGateway")
		assert.True(t, eg.Outgoing.IsList())
		require.NotNil(t, eg.DefaultCondition)
		assert.Equal(t, "else", eg.DefaultCondition.Name)
		assert.False(t, loaded.Tree.StartEvent.Outgoing.IsList())
	})

	t.Run("Load returns a private copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, pipelineID)
		require.NoError(t, err)
		loaded.Tokens["act"] = "changed"
		loaded.Tree.Activities["act"].Base().Name = "changed"

		again, err := store.Load(ctx, pipelineID)
		require.NoError(t, err)
		assert.Equal(t, "t1", again.Tokens["act"])
		assert.Empty(t, again.Tree.Activities["act"].Base().Name)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+pipelineID)
		assert.ErrorIs(t, err, domain.ErrPipelineNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		// Setup
		err := store.Save(ctx, newPipeline(t, pipelineID))
		require.NoError(t, err)

		// Delete
		err = store.Delete(ctx, pipelineID)
		require.NoError(t, err, "Delete should not return error")

		// Verify gone
		_, err = store.Load(ctx, pipelineID)
		assert.ErrorIs(t, err, domain.ErrPipelineNotFound, "Load after Delete should return ErrPipelineNotFound")
	})

	t.Run("List", func(t *testing.T) {
		// Setup: Create 2 pipelines
		id1 := pipelineID + "-1"
		id2 := pipelineID + "-2"
		require.NoError(t, store.Save(ctx, newPipeline(t, id1)))
		require.NoError(t, store.Save(ctx, newPipeline(t, id2)))

		// Ensure cleanup
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		// List
		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
