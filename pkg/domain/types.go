package domain

// NodeType is the variant tag carried by every node in the wire format.
type NodeType string

// Node variants.
const (
	TypeEmptyStartEvent            NodeType = "EmptyStartEvent"
	TypeEmptyEndEvent              NodeType = "EmptyEndEvent"
	TypeExecutableEndEvent         NodeType = "ExecutableEndEvent"
	TypeServiceActivity            NodeType = "ServiceActivity"
	TypeSubProcess                 NodeType = "SubProcess"
	TypeExclusiveGateway           NodeType = "ExclusiveGateway"
	TypeParallelGateway            NodeType = "ParallelGateway"
	TypeConditionalParallelGateway NodeType = "ConditionalParallelGateway"
	TypeConvergeGateway            NodeType = "ConvergeGateway"
)

// Known reports whether t names one of the node variants.
func (t NodeType) Known() bool {
	switch t {
	case TypeEmptyStartEvent, TypeEmptyEndEvent, TypeExecutableEndEvent,
		TypeServiceActivity, TypeSubProcess,
		TypeExclusiveGateway, TypeParallelGateway, TypeConditionalParallelGateway, TypeConvergeGateway:
		return true
	}
	return false
}

// IsGateway reports whether t is stored in a tree's gateways bucket.
func (t NodeType) IsGateway() bool {
	switch t {
	case TypeExclusiveGateway, TypeParallelGateway, TypeConditionalParallelGateway, TypeConvergeGateway:
		return true
	}
	return false
}

// IsFanOut reports whether t splits the flow into several outgoing branches.
func (t NodeType) IsFanOut() bool {
	switch t {
	case TypeExclusiveGateway, TypeParallelGateway, TypeConditionalParallelGateway:
		return true
	}
	return false
}

// IsEndEvent reports whether t terminates a tree level.
func (t NodeType) IsEndEvent() bool {
	return t == TypeEmptyEndEvent || t == TypeExecutableEndEvent
}

// IsActivity reports whether t is stored in a tree's activities bucket.
func (t NodeType) IsActivity() bool {
	return t == TypeServiceActivity || t == TypeSubProcess
}

// Var value kinds.
const (
	VarPlain  = "plain"
	VarSplice = "splice"
	VarLazy   = "lazy"
)

// Var is a data or parameter binding. Value is opaque to the compiler; the
// runtime renders splice and lazy values.
type Var struct {
	Type       string `json:"type"`
	Value      any    `json:"value"`
	CustomType string `json:"custom_type,omitempty"`
}

// Data is the input/output declaration of a tree level.
type Data struct {
	Inputs  map[string]Var `json:"inputs"`
	Outputs []string       `json:"outputs"`
}

// NewData returns an empty declaration.
func NewData() Data {
	return Data{Inputs: map[string]Var{}, Outputs: []string{}}
}

// Clone returns a copy of d with its own maps and slices.
func (d Data) Clone() Data {
	return Data{Inputs: cloneVars(d.Inputs), Outputs: append([]string{}, d.Outputs...)}
}

// Component describes the plugin a ServiceActivity runs.
type Component struct {
	Code    string         `json:"code"`
	Version string         `json:"version,omitempty"`
	Inputs  map[string]Var `json:"inputs"`
}

func (c Component) clone() Component {
	c.Inputs = cloneVars(c.Inputs)
	return c
}

// Condition guards one outgoing flow of a conditional gateway. Evaluate is an
// expression string for the runtime's evaluator.
type Condition struct {
	Evaluate string `json:"evaluate"`
	Name     string `json:"name,omitempty"`
}

// DefaultCondition names the flow taken when no condition holds.
type DefaultCondition struct {
	Name   string `json:"name"`
	FlowID string `json:"flow_id"`
}

func cloneVars(in map[string]Var) map[string]Var {
	if in == nil {
		return map[string]Var{}
	}
	out := make(map[string]Var, len(in))
	for k, v := range in {
		v.Value = cloneValue(v.Value)
		out[k] = v
	}
	return out
}

// cloneValue copies the maps and slices a decoded document is made of.
// Other values are copied as is.
func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = cloneValue(e)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(v))
		for k, e := range v {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func cloneConditions(in map[string]Condition) map[string]Condition {
	out := make(map[string]Condition, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
