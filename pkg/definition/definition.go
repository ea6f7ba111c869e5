// Package definition reads declarative process definitions from YAML or JSON
// and turns them into dsl elements ready for dsl.Build.
//
// A definition lists its nodes flat and links them by id:
//
//	id: deploy
//	nodes:
//	  - id: start
//	    type: start
//	    next: check
//	  - id: check
//	    type: exclusive
//	    branches:
//	      - to: release
//	        condition: ${approved} == True
//	      - to: end
//	        default: true
//	        name: rejected
//	  - id: release
//	    type: activity
//	    component: {code: bk_release, version: "1.0"}
//	    next: end
//	  - id: end
//	    type: end
package definition

import (
	"errors"
	"fmt"

	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/dsl"
)

// ErrInvalidDefinition is returned when a definition cannot be decoded or
// linked into elements.
var ErrInvalidDefinition = errors.New("invalid definition")

// Definition is one level of a declared process.
type Definition struct {
	ID    string     `mapstructure:"id" json:"id,omitempty"`
	Name  string     `mapstructure:"name" json:"name,omitempty"`
	Data  DataSpec   `mapstructure:"data" json:"data"`
	Nodes []NodeSpec `mapstructure:"nodes" json:"nodes"`
}

// DataSpec declares the inputs and outputs of a level. Inputs take either a
// bare value (a plain var) or a {type, value, custom_type} map.
type DataSpec struct {
	Inputs  map[string]any `mapstructure:"inputs" json:"inputs,omitempty"`
	Outputs []string       `mapstructure:"outputs" json:"outputs,omitempty"`
}

// NodeSpec declares one node. Which fields apply depends on Type.
type NodeSpec struct {
	ID   string `mapstructure:"id" json:"id"`
	Type string `mapstructure:"type" json:"type"`
	Name string `mapstructure:"name" json:"name,omitempty"`

	// Next lists successors. A single id may be given as a scalar.
	Next     []string     `mapstructure:"next" json:"next,omitempty"`
	Branches []BranchSpec `mapstructure:"branches" json:"branches,omitempty"`

	// Service activity
	Component *ComponentSpec `mapstructure:"component" json:"component,omitempty"`
	Flags     FlagsSpec      `mapstructure:"flags" json:"flags"`

	// Executable end event
	Code string `mapstructure:"code" json:"code,omitempty"`

	// Sub-process
	Params  map[string]any `mapstructure:"params" json:"params,omitempty"`
	Process *Definition    `mapstructure:"process" json:"process,omitempty"`
}

// BranchSpec is one outgoing branch of a gateway.
type BranchSpec struct {
	To        string `mapstructure:"to" json:"to"`
	Condition string `mapstructure:"condition" json:"condition,omitempty"`
	Default   bool   `mapstructure:"default" json:"default,omitempty"`
	Name      string `mapstructure:"name" json:"name,omitempty"`
}

// ComponentSpec names the plugin a service activity runs.
type ComponentSpec struct {
	Code    string         `mapstructure:"code" json:"code"`
	Version string         `mapstructure:"version" json:"version,omitempty"`
	Inputs  map[string]any `mapstructure:"inputs" json:"inputs,omitempty"`
}

// FlagsSpec carries the service activity switches. Skippable and Retryable
// default to true when omitted.
type FlagsSpec struct {
	ErrorIgnorable bool  `mapstructure:"error_ignorable" json:"error_ignorable,omitempty"`
	Skippable      *bool `mapstructure:"skippable" json:"skippable,omitempty"`
	Retryable      *bool `mapstructure:"retryable" json:"retryable,omitempty"`
	Optional       bool  `mapstructure:"optional" json:"optional,omitempty"`
	Timeout        int   `mapstructure:"timeout" json:"timeout,omitempty"`
}

var typeAliases = map[string]domain.NodeType{
	"start":                domain.TypeEmptyStartEvent,
	"end":                  domain.TypeEmptyEndEvent,
	"executable_end":       domain.TypeExecutableEndEvent,
	"activity":             domain.TypeServiceActivity,
	"subprocess":           domain.TypeSubProcess,
	"exclusive":            domain.TypeExclusiveGateway,
	"parallel":             domain.TypeParallelGateway,
	"conditional_parallel": domain.TypeConditionalParallelGateway,
	"converge":             domain.TypeConvergeGateway,
}

// ResolveType maps a short alias or a full variant name to its NodeType.
func ResolveType(name string) (domain.NodeType, bool) {
	if t, ok := typeAliases[name]; ok {
		return t, true
	}
	if t := domain.NodeType(name); t.Known() {
		return t, true
	}
	return "", false
}

// Start links the nodes of d into elements and returns the start element.
func (d *Definition) Start() (dsl.Element, error) {
	if len(d.Nodes) == 0 {
		return nil, fmt.Errorf("%w: %q has no nodes", ErrInvalidDefinition, d.ID)
	}

	elements := make(map[string]dsl.Element, len(d.Nodes))
	var start dsl.Element
	for i := range d.Nodes {
		spec := &d.Nodes[i]
		if spec.ID == "" {
			return nil, fmt.Errorf("%w: node #%d has no id", ErrInvalidDefinition, i)
		}
		if _, dup := elements[spec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %q", ErrInvalidDefinition, spec.ID)
		}
		el, err := spec.element()
		if err != nil {
			return nil, err
		}
		elements[spec.ID] = el
		if el.Type() == domain.TypeEmptyStartEvent {
			if start != nil {
				return nil, fmt.Errorf("%w: %q declares more than one start node", ErrInvalidDefinition, d.ID)
			}
			start = el
		}
	}
	if start == nil {
		return nil, fmt.Errorf("%w: %q declares no start node", ErrInvalidDefinition, d.ID)
	}

	for i := range d.Nodes {
		if err := d.Nodes[i].link(elements); err != nil {
			return nil, err
		}
	}
	return start, nil
}

// Build compiles d into a tree. The tree id is d.ID unless opts override it.
func (d *Definition) Build(opts ...dsl.BuildOption) (*domain.Tree, error) {
	start, err := d.Start()
	if err != nil {
		return nil, err
	}
	data, err := d.Data.data()
	if err != nil {
		return nil, fmt.Errorf("%w: %q data: %v", ErrInvalidDefinition, d.ID, err)
	}
	base := []dsl.BuildOption{dsl.WithData(data)}
	if d.ID != "" {
		base = append(base, dsl.WithTreeID(d.ID))
	}
	return dsl.Build(start, append(base, opts...)...)
}

func (s *NodeSpec) element() (dsl.Element, error) {
	t, ok := ResolveType(s.Type)
	if !ok {
		return nil, &domain.UnknownNodeTypeError{NodeID: s.ID, Type: s.Type}
	}
	if len(s.Branches) > 0 && !t.IsFanOut() {
		return nil, fmt.Errorf("%w: %s %q cannot declare branches", ErrInvalidDefinition, t, s.ID)
	}
	if len(s.Branches) > 0 && len(s.Next) > 0 {
		return nil, fmt.Errorf("%w: %q declares both next and branches", ErrInvalidDefinition, s.ID)
	}

	opts := []dsl.Option{dsl.WithID(s.ID), dsl.WithName(s.Name)}
	switch t {
	case domain.TypeEmptyStartEvent:
		return dsl.NewEmptyStartEvent(opts...), nil
	case domain.TypeEmptyEndEvent:
		return dsl.NewEmptyEndEvent(opts...), nil
	case domain.TypeExecutableEndEvent:
		if s.Code == "" {
			return nil, fmt.Errorf("%w: executable end %q has no code", ErrInvalidDefinition, s.ID)
		}
		return dsl.NewExecutableEndEvent(s.Code, opts...), nil
	case domain.TypeServiceActivity:
		return s.activity(opts)
	case domain.TypeSubProcess:
		return s.subProcess(opts)
	case domain.TypeExclusiveGateway:
		g := dsl.NewExclusiveGateway(nil, opts...)
		conds, def, err := s.conditions()
		if err != nil {
			return nil, err
		}
		g.Conditions = conds
		g.Default = def
		return g, nil
	case domain.TypeConditionalParallelGateway:
		g := dsl.NewConditionalParallelGateway(nil, opts...)
		conds, def, err := s.conditions()
		if err != nil {
			return nil, err
		}
		g.Conditions = conds
		g.Default = def
		return g, nil
	case domain.TypeParallelGateway:
		for _, b := range s.Branches {
			if b.Condition != "" || b.Default {
				return nil, fmt.Errorf("%w: parallel gateway %q branches take no condition", ErrInvalidDefinition, s.ID)
			}
		}
		return dsl.NewParallelGateway(opts...), nil
	default:
		return dsl.NewConvergeGateway(opts...), nil
	}
}

func (s *NodeSpec) activity(opts []dsl.Option) (dsl.Element, error) {
	if s.Component == nil || s.Component.Code == "" {
		return nil, fmt.Errorf("%w: activity %q has no component code", ErrInvalidDefinition, s.ID)
	}
	a := dsl.NewServiceActivity(s.Component.Code, opts...).Version(s.Component.Version)
	inputs, err := decodeVars(s.Component.Inputs)
	if err != nil {
		return nil, fmt.Errorf("%w: activity %q inputs: %v", ErrInvalidDefinition, s.ID, err)
	}
	for k, v := range inputs {
		a.Input(k, v)
	}

	a.ErrorIgnorable = s.Flags.ErrorIgnorable
	a.Optional = s.Flags.Optional
	a.Timeout = s.Flags.Timeout
	if s.Flags.Skippable != nil {
		a.Skippable = *s.Flags.Skippable
	}
	if s.Flags.Retryable != nil {
		a.Retryable = *s.Flags.Retryable
	}
	return a, nil
}

func (s *NodeSpec) subProcess(opts []dsl.Option) (dsl.Element, error) {
	if s.Process == nil {
		return nil, fmt.Errorf("%w: sub-process %q has no process", ErrInvalidDefinition, s.ID)
	}
	start, err := s.Process.Start()
	if err != nil {
		return nil, fmt.Errorf("sub-process %q: %w", s.ID, err)
	}
	sp := dsl.NewSubProcess(start, opts...)
	if sp.Data, err = s.Process.Data.data(); err != nil {
		return nil, fmt.Errorf("%w: sub-process %q data: %v", ErrInvalidDefinition, s.ID, err)
	}
	params, err := decodeVars(s.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: sub-process %q params: %v", ErrInvalidDefinition, s.ID, err)
	}
	for k, v := range params {
		sp.Param(k, v)
	}
	return sp, nil
}

// conditions keys branch conditions by branch index.
func (s *NodeSpec) conditions() (map[int]string, *dsl.DefaultBranch, error) {
	conds := map[int]string{}
	var def *dsl.DefaultBranch
	for i, b := range s.Branches {
		switch {
		case b.Default && def != nil:
			return nil, nil, fmt.Errorf("%w: gateway %q declares more than one default branch", ErrInvalidDefinition, s.ID)
		case b.Default && b.Condition != "":
			return nil, nil, fmt.Errorf("%w: gateway %q default branch takes no condition", ErrInvalidDefinition, s.ID)
		case b.Default:
			def = &dsl.DefaultBranch{Index: i, Name: b.Name}
		case b.Condition != "":
			conds[i] = b.Condition
		}
	}
	return conds, def, nil
}

func (s *NodeSpec) link(elements map[string]dsl.Element) error {
	el := elements[s.ID]
	targets := s.Next
	if len(s.Branches) > 0 {
		targets = make([]string, len(s.Branches))
		for i, b := range s.Branches {
			targets[i] = b.To
		}
	}
	for _, id := range targets {
		next, ok := elements[id]
		if !ok {
			return fmt.Errorf("%w: %q links to unknown node %q", ErrInvalidDefinition, s.ID, id)
		}
		el.Connect(next)
	}
	return nil
}

func (d DataSpec) data() (domain.Data, error) {
	data := domain.NewData()
	inputs, err := decodeVars(d.Inputs)
	if err != nil {
		return data, err
	}
	data.Inputs = inputs
	if d.Outputs != nil {
		data.Outputs = append([]string{}, d.Outputs...)
	}
	return data, nil
}
