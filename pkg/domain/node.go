package domain

import (
	"encoding/json"
	"fmt"
)

// NodeBase holds the fields every variant shares.
type NodeBase struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Incoming Edges  `json:"incoming"`
	Outgoing Edges  `json:"outgoing"`
}

// Base returns the shared fields for in-place edits.
func (b *NodeBase) Base() *NodeBase { return b }

// Node is a sealed union over the variants declared in this file. Callers
// switch on the concrete type:
//
//	switch n := node.(type) {
//	case *domain.ServiceActivity:
//	case *domain.ParallelGateway:
//	...
//	}
type Node interface {
	Type() NodeType
	Base() *NodeBase
	clone() Node
}

// EmptyStartEvent opens a tree level. One outgoing edge, no incoming.
type EmptyStartEvent struct {
	NodeBase
}

// EmptyEndEvent closes a tree level.
type EmptyEndEvent struct {
	NodeBase
}

// ExecutableEndEvent closes a tree level and names an external end handler.
type ExecutableEndEvent struct {
	NodeBase
	Code string `json:"code"`
}

// ServiceActivity runs a component.
type ServiceActivity struct {
	NodeBase
	Component      Component `json:"component"`
	ErrorIgnorable bool      `json:"error_ignorable"`
	Timeout        int       `json:"timeout,omitempty"`
	Skippable      bool      `json:"skippable"`
	Retryable      bool      `json:"retryable"`
	Optional       bool      `json:"optional"`
}

// SubProcess embeds a complete child tree. Params bind child inputs to
// values from the parent scope.
type SubProcess struct {
	NodeBase
	Pipeline *Tree         `json:"pipeline"`
	Params   map[string]Var `json:"params"`
}

// ExclusiveGateway takes exactly one of its outgoing flows at runtime.
// Conditions are keyed by outgoing flow id.
type ExclusiveGateway struct {
	NodeBase
	Conditions       map[string]Condition `json:"conditions"`
	DefaultCondition *DefaultCondition    `json:"default_condition,omitempty"`
}

// ParallelGateway takes all of its outgoing flows.
type ParallelGateway struct {
	NodeBase
	ConvergeGatewayID string `json:"converge_gateway_id,omitempty"`
}

// ConditionalParallelGateway takes the subset of outgoing flows whose
// condition holds.
type ConditionalParallelGateway struct {
	NodeBase
	Conditions        map[string]Condition `json:"conditions"`
	DefaultCondition  *DefaultCondition    `json:"default_condition,omitempty"`
	ConvergeGatewayID string               `json:"converge_gateway_id,omitempty"`
}

// ConvergeGateway joins branches back into one.
type ConvergeGateway struct {
	NodeBase
}

func (*EmptyStartEvent) Type() NodeType            { return TypeEmptyStartEvent }
func (*EmptyEndEvent) Type() NodeType              { return TypeEmptyEndEvent }
func (*ExecutableEndEvent) Type() NodeType         { return TypeExecutableEndEvent }
func (*ServiceActivity) Type() NodeType            { return TypeServiceActivity }
func (*SubProcess) Type() NodeType                 { return TypeSubProcess }
func (*ExclusiveGateway) Type() NodeType           { return TypeExclusiveGateway }
func (*ParallelGateway) Type() NodeType            { return TypeParallelGateway }
func (*ConditionalParallelGateway) Type() NodeType { return TypeConditionalParallelGateway }
func (*ConvergeGateway) Type() NodeType            { return TypeConvergeGateway }

func (b NodeBase) cloneBase() NodeBase {
	b.Incoming = Edges{ids: b.Incoming.IDs(), list: b.Incoming.list}
	b.Outgoing = Edges{ids: b.Outgoing.IDs(), list: b.Outgoing.list}
	return b
}

func (n *EmptyStartEvent) clone() Node {
	return &EmptyStartEvent{NodeBase: n.cloneBase()}
}

func (n *EmptyEndEvent) clone() Node {
	return &EmptyEndEvent{NodeBase: n.cloneBase()}
}

func (n *ExecutableEndEvent) clone() Node {
	return &ExecutableEndEvent{NodeBase: n.cloneBase(), Code: n.Code}
}

func (n *ServiceActivity) clone() Node {
	c := *n
	c.NodeBase = n.cloneBase()
	c.Component = n.Component.clone()
	return &c
}

func (n *SubProcess) clone() Node {
	c := &SubProcess{NodeBase: n.cloneBase(), Params: cloneVars(n.Params)}
	if n.Pipeline != nil {
		c.Pipeline = n.Pipeline.Clone()
	}
	return c
}

func (n *ExclusiveGateway) clone() Node {
	c := &ExclusiveGateway{NodeBase: n.cloneBase(), Conditions: cloneConditions(n.Conditions)}
	if n.DefaultCondition != nil {
		dc := *n.DefaultCondition
		c.DefaultCondition = &dc
	}
	return c
}

func (n *ParallelGateway) clone() Node {
	return &ParallelGateway{NodeBase: n.cloneBase(), ConvergeGatewayID: n.ConvergeGatewayID}
}

func (n *ConditionalParallelGateway) clone() Node {
	c := &ConditionalParallelGateway{
		NodeBase:          n.cloneBase(),
		Conditions:        cloneConditions(n.Conditions),
		ConvergeGatewayID: n.ConvergeGatewayID,
	}
	if n.DefaultCondition != nil {
		dc := *n.DefaultCondition
		c.DefaultCondition = &dc
	}
	return c
}

func (n *ConvergeGateway) clone() Node {
	return &ConvergeGateway{NodeBase: n.cloneBase()}
}

// CloneNode returns a deep copy of n.
func CloneNode(n Node) Node {
	if n == nil {
		return nil
	}
	return n.clone()
}

// MarshalJSON methods add the "type" tag. Each one marshals a method-less
// copy of the receiver to avoid recursion.

func (n *EmptyStartEvent) MarshalJSON() ([]byte, error) {
	type plain EmptyStartEvent
	return json.Marshal(struct {
		Type NodeType `json:"type"`
		plain
	}{n.Type(), plain(*n)})
}

func (n *EmptyEndEvent) MarshalJSON() ([]byte, error) {
	type plain EmptyEndEvent
	return json.Marshal(struct {
		Type NodeType `json:"type"`
		plain
	}{n.Type(), plain(*n)})
}

func (n *ExecutableEndEvent) MarshalJSON() ([]byte, error) {
	type plain ExecutableEndEvent
	return json.Marshal(struct {
		Type NodeType `json:"type"`
		plain
	}{n.Type(), plain(*n)})
}

func (n *ServiceActivity) MarshalJSON() ([]byte, error) {
	type plain ServiceActivity
	return json.Marshal(struct {
		Type NodeType `json:"type"`
		plain
	}{n.Type(), plain(*n)})
}

func (n *SubProcess) MarshalJSON() ([]byte, error) {
	type plain SubProcess
	return json.Marshal(struct {
		Type NodeType `json:"type"`
		plain
	}{n.Type(), plain(*n)})
}

func (n *ExclusiveGateway) MarshalJSON() ([]byte, error) {
	type plain ExclusiveGateway
	return json.Marshal(struct {
		Type NodeType `json:"type"`
		plain
	}{n.Type(), plain(*n)})
}

func (n *ParallelGateway) MarshalJSON() ([]byte, error) {
	type plain ParallelGateway
	return json.Marshal(struct {
		Type NodeType `json:"type"`
		plain
	}{n.Type(), plain(*n)})
}

func (n *ConditionalParallelGateway) MarshalJSON() ([]byte, error) {
	type plain ConditionalParallelGateway
	return json.Marshal(struct {
		Type NodeType `json:"type"`
		plain
	}{n.Type(), plain(*n)})
}

func (n *ConvergeGateway) MarshalJSON() ([]byte, error) {
	type plain ConvergeGateway
	return json.Marshal(struct {
		Type NodeType `json:"type"`
		plain
	}{n.Type(), plain(*n)})
}

// DecodeNode decodes one node from its wire form, picking the variant from
// the "type" field.
func DecodeNode(data []byte) (Node, error) {
	var head struct {
		ID   string   `json:"id"`
		Type NodeType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to decode node: %w", err)
	}

	var node Node
	switch head.Type {
	case TypeEmptyStartEvent:
		node = &EmptyStartEvent{}
	case TypeEmptyEndEvent:
		node = &EmptyEndEvent{}
	case TypeExecutableEndEvent:
		node = &ExecutableEndEvent{}
	case TypeServiceActivity:
		node = &ServiceActivity{}
	case TypeSubProcess:
		node = &SubProcess{}
	case TypeExclusiveGateway:
		node = &ExclusiveGateway{}
	case TypeParallelGateway:
		node = &ParallelGateway{}
	case TypeConditionalParallelGateway:
		node = &ConditionalParallelGateway{}
	case TypeConvergeGateway:
		node = &ConvergeGateway{}
	default:
		return nil, &UnknownNodeTypeError{NodeID: head.ID, Type: string(head.Type)}
	}

	if err := json.Unmarshal(data, node); err != nil {
		return nil, fmt.Errorf("failed to decode %s %q: %w", head.Type, head.ID, err)
	}
	return node, nil
}
