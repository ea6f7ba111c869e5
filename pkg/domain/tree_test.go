package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wireTree = `{
  "id": "p1",
  "start_event": {"id": "start", "type": "EmptyStartEvent", "name": "", "incoming": "", "outgoing": "f1"},
  "end_event": {"id": "end", "type": "ExecutableEndEvent", "name": "", "incoming": ["f4"], "outgoing": "", "code": "notify"},
  "activities": {
    "act": {"id": "act", "type": "ServiceActivity", "name": "a", "incoming": ["f1"], "outgoing": "f2",
            "component": {"code": "demo", "inputs": {"k": {"type": "plain", "value": 1}}},
            "error_ignorable": true, "skippable": true, "retryable": false, "optional": false},
    "sub": {"id": "sub", "type": "SubProcess", "name": "", "incoming": ["f3"], "outgoing": "f4", "params": {},
            "pipeline": {
              "id": "sub",
              "start_event": {"id": "s_start", "type": "EmptyStartEvent", "name": "", "incoming": "", "outgoing": "s_f1"},
              "end_event": {"id": "s_end", "type": "EmptyEndEvent", "name": "", "incoming": ["s_f1"], "outgoing": ""},
              "activities": {}, "gateways": {},
              "flows": {"s_f1": {"id": "s_f1", "source": "s_start", "target": "s_end", "is_default": false}},
              "data": {"inputs": {}, "outputs": []}
            }}
  },
  "gateways": {
    "pg": {"id": "pg", "type": "ParallelGateway", "name": "", "incoming": ["f2"], "outgoing": ["f3"], "converge_gateway_id": ""}
  },
  "flows": {
    "f1": {"id": "f1", "source": "start", "target": "act", "is_default": false},
    "f2": {"id": "f2", "source": "act", "target": "pg", "is_default": false},
    "f3": {"id": "f3", "source": "pg", "target": "sub", "is_default": false},
    "f4": {"id": "f4", "source": "sub", "target": "end", "is_default": false}
  },
  "data": {"inputs": {}, "outputs": []}
}`

func TestTree_DecodeWireFormat(t *testing.T) {
	var tree domain.Tree
	require.NoError(t, json.Unmarshal([]byte(wireTree), &tree))

	assert.Equal(t, "p1", tree.ID)
	require.NotNil(t, tree.StartEvent)
	assert.Equal(t, "start", tree.StartEvent.ID)

	end, ok := tree.EndEvent.(*domain.ExecutableEndEvent)
	require.True(t, ok, "end event should decode as ExecutableEndEvent")
	assert.Equal(t, "notify", end.Code)

	act, ok := tree.Activities["act"].(*domain.ServiceActivity)
	require.True(t, ok)
	assert.Equal(t, "demo", act.Component.Code)
	assert.True(t, act.ErrorIgnorable)
	assert.True(t, act.Incoming.IsList())

	sub, ok := tree.Activities["sub"].(*domain.SubProcess)
	require.True(t, ok)
	require.NotNil(t, sub.Pipeline)
	assert.Equal(t, "s_start", sub.Pipeline.StartEvent.ID)

	assert.Equal(t, []string{"act"}, tree.Targets("start"))
	assert.Equal(t, []string{"sub"}, tree.Targets("pg"))

	ids := make([]string, 0)
	for _, n := range tree.Nodes() {
		ids = append(ids, n.Base().ID)
	}
	assert.Equal(t, []string{"start", "act", "sub", "pg", "end"}, ids)
}

func TestTree_EncodeKeepsTypeTag(t *testing.T) {
	var tree domain.Tree
	require.NoError(t, json.Unmarshal([]byte(wireTree), &tree))

	data, err := json.Marshal(&tree)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	gateways := generic["gateways"].(map[string]any)
	pg := gateways["pg"].(map[string]any)
	assert.Equal(t, "ParallelGateway", pg["type"])
	assert.Equal(t, []any{"f3"}, pg["outgoing"])

	start := generic["start_event"].(map[string]any)
	assert.Equal(t, "f1", start["outgoing"])
}

func TestTree_DecodeUnknownType(t *testing.T) {
	var tree domain.Tree
	err := json.Unmarshal([]byte(`{"id":"p","gateways":{"x":{"id":"x","type":"InclusiveGateway"}}}`), &tree)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownNodeType)
}

func TestTree_CloneIsDeep(t *testing.T) {
	var tree domain.Tree
	require.NoError(t, json.Unmarshal([]byte(wireTree), &tree))

	clone := tree.Clone()
	clone.Flows["f1"].Target = "elsewhere"
	clone.Activities["act"].Base().Outgoing = domain.Edges{}
	clone.Activities["sub"].(*domain.SubProcess).Pipeline.ID = "changed"

	assert.Equal(t, "act", tree.Flows["f1"].Target)
	assert.Equal(t, "f2", tree.Activities["act"].Base().Outgoing.First())
	assert.Equal(t, "sub", tree.Activities["sub"].(*domain.SubProcess).Pipeline.ID)
}

func TestTree_DecodeRejectsBrokenFlows(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "null flow",
			doc:  `{"id": "p", "flows": {"f1": {"id": "f1", "source": "start", "target": "end"}, "f2": null}}`,
			want: "flow f2 is null",
		},
		{
			name: "key differs from id",
			doc:  `{"id": "p", "flows": {"f1": {"id": "f9", "source": "start", "target": "end"}}}`,
			want: `flow keyed f1 has id "f9"`,
		},
		{
			name: "null flow in sub-process",
			doc: `{"id": "p", "activities": {"sub": {"id": "sub", "type": "SubProcess",
				"incoming": [], "outgoing": [], "pipeline": {"id": "sub", "flows": {"s_f1": null}}}}}`,
			want: "flow s_f1 is null",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tree domain.Tree
			err := json.Unmarshal([]byte(tt.doc), &tree)
			require.ErrorIs(t, err, domain.ErrStructural)

			var se *domain.StructuralError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, domain.KindConnectivity, se.Kind)
			assert.Contains(t, se.Error(), tt.want)
		})
	}
}

func TestTree_CloneCopiesNestedValues(t *testing.T) {
	var tree domain.Tree
	require.NoError(t, json.Unmarshal([]byte(wireTree), &tree))

	act := tree.Activities["act"].(*domain.ServiceActivity)
	act.Component.Inputs["cfg"] = domain.Var{Type: "plain", Value: map[string]any{"hosts": []any{"a", "b"}}}
	tree.Data.Inputs["${env}"] = domain.Var{Type: "plain", Value: []any{map[string]any{"name": "prod"}}}

	// 1. Mutate the clone's nested values
	clone := tree.Clone()
	cfg := clone.Activities["act"].(*domain.ServiceActivity).Component.Inputs["cfg"].Value.(map[string]any)
	cfg["hosts"].([]any)[0] = "changed"
	cfg["extra"] = true
	env := clone.Data.Inputs["${env}"].Value.([]any)
	env[0].(map[string]any)["name"] = "dev"

	// 2. The original is untouched
	assert.Equal(t, map[string]any{"hosts": []any{"a", "b"}}, act.Component.Inputs["cfg"].Value)
	assert.Equal(t, []any{map[string]any{"name": "prod"}}, tree.Data.Inputs["${env}"].Value)
}

func TestTree_NilFlowEntry(t *testing.T) {
	var tree domain.Tree
	require.NoError(t, json.Unmarshal([]byte(wireTree), &tree))
	tree.Flows["f2"] = nil

	// 1. Lookups treat the entry as missing
	_, ok := tree.Flow("f2")
	assert.False(t, ok)
	assert.Empty(t, tree.Targets("act"))

	// 2. Clone keeps the entry without dereferencing it
	var clone *domain.Tree
	require.NotPanics(t, func() { clone = tree.Clone() })
	f, present := clone.Flows["f2"]
	assert.True(t, present)
	assert.Nil(t, f)
}

func TestErrors_Taxonomy(t *testing.T) {
	var err error = domain.NewStructuralError(domain.KindGateway, "pg", "branches never reconverge")
	assert.ErrorIs(t, err, domain.ErrStructural)
	assert.ErrorIs(t, err, domain.ErrTreeInvalid)
	assert.Equal(t, "gateway: node pg: branches never reconverge", err.Error())

	err = &domain.CycleError{Path: []string{"a", "b", "a"}}
	assert.ErrorIs(t, err, domain.ErrCycle)
	assert.ErrorIs(t, err, domain.ErrTreeInvalid)
	assert.NotErrorIs(t, err, domain.ErrStructural)

	err = &domain.StartPositionInvalidError{NodeID: "x", Allowed: []string{"a", "b"}}
	assert.ErrorIs(t, err, domain.ErrStartPositionInvalid)
	assert.Contains(t, err.Error(), "[a, b]")
}
