package dsl

import (
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/uid"
)

// Element is one node of a declared graph.
type Element interface {
	ID() string
	Name() string
	Type() domain.NodeType
	// Outgoing returns downstream elements in declaration order.
	Outgoing() []Element

	Extend(next Element) Element
	Connect(next ...Element) Element
	Converge(cg Element) Element
	To(target Element) Element
	Tail() Element
}

// Option configures an element at construction.
type Option func(*element)

// WithID sets the element id instead of minting one.
func WithID(id string) Option {
	return func(e *element) {
		e.id = id
	}
}

// WithName sets the display name.
func WithName(name string) Option {
	return func(e *element) {
		e.name = name
	}
}

// element carries the linking behaviour shared by every variant. self points
// back at the embedding value so Connect can return it.
type element struct {
	id       string
	name     string
	outgoing []Element
	self     Element
}

func (e *element) init(self Element, opts []Option) {
	e.self = self
	for _, opt := range opts {
		opt(e)
	}
	if e.id == "" {
		e.id = uid.Unique(uid.PrefixNode)
	}
}

func (e *element) ID() string   { return e.id }
func (e *element) Name() string { return e.name }

func (e *element) Outgoing() []Element {
	return append([]Element(nil), e.outgoing...)
}

// Extend appends next and returns it.
func (e *element) Extend(next Element) Element {
	e.outgoing = append(e.outgoing, next)
	return next
}

// Connect appends every element of next and returns the receiver.
func (e *element) Connect(next ...Element) Element {
	e.outgoing = append(e.outgoing, next...)
	return e.self
}

// Converge links the tail of each outgoing chain to cg and returns cg.
func (e *element) Converge(cg Element) Element {
	for _, out := range e.outgoing {
		out.Tail().Connect(cg)
	}
	return cg
}

// To returns target, letting a chain continue from an element declared earlier.
func (e *element) To(target Element) Element {
	return target
}

// Tail follows first outgoing links until an element without outgoing or an
// element already seen on the way.
func (e *element) Tail() Element {
	seen := map[string]bool{}
	cur := e.self
	for {
		seen[cur.ID()] = true
		out := cur.Outgoing()
		if len(out) == 0 || seen[out[0].ID()] {
			return cur
		}
		cur = out[0]
	}
}

// EmptyStartEvent opens a graph.
type EmptyStartEvent struct {
	element
}

// NewEmptyStartEvent creates a start event.
func NewEmptyStartEvent(opts ...Option) *EmptyStartEvent {
	s := &EmptyStartEvent{}
	s.init(s, opts)
	return s
}

func (*EmptyStartEvent) Type() domain.NodeType { return domain.TypeEmptyStartEvent }

// EmptyEndEvent closes a graph.
type EmptyEndEvent struct {
	element
}

// NewEmptyEndEvent creates an end event.
func NewEmptyEndEvent(opts ...Option) *EmptyEndEvent {
	e := &EmptyEndEvent{}
	e.init(e, opts)
	return e
}

func (*EmptyEndEvent) Type() domain.NodeType { return domain.TypeEmptyEndEvent }

// ExecutableEndEvent closes a graph and names a handler run on completion.
type ExecutableEndEvent struct {
	element
	Code string
}

// NewExecutableEndEvent creates an end event bound to the handler code.
func NewExecutableEndEvent(code string, opts ...Option) *ExecutableEndEvent {
	e := &ExecutableEndEvent{Code: code}
	e.init(e, opts)
	return e
}

func (*ExecutableEndEvent) Type() domain.NodeType { return domain.TypeExecutableEndEvent }

// ServiceActivity runs a component.
type ServiceActivity struct {
	element
	Component      domain.Component
	ErrorIgnorable bool
	Timeout        int
	Skippable      bool
	Retryable      bool
	Optional       bool
}

// NewServiceActivity creates an activity running the component code.
// Activities are skippable and retryable unless told otherwise.
func NewServiceActivity(code string, opts ...Option) *ServiceActivity {
	a := &ServiceActivity{
		Component: domain.Component{Code: code, Inputs: map[string]domain.Var{}},
		Skippable: true,
		Retryable: true,
	}
	a.init(a, opts)
	return a
}

func (*ServiceActivity) Type() domain.NodeType { return domain.TypeServiceActivity }

// Version sets the component version.
func (a *ServiceActivity) Version(version string) *ServiceActivity {
	a.Component.Version = version
	return a
}

// Input binds a component input.
func (a *ServiceActivity) Input(key string, v domain.Var) *ServiceActivity {
	a.Component.Inputs[key] = v
	return a
}

// SubProcess embeds another declared graph.
type SubProcess struct {
	element
	Start  Element
	Data   domain.Data
	Params map[string]domain.Var
}

// NewSubProcess creates a sub-process whose graph begins at start.
func NewSubProcess(start Element, opts ...Option) *SubProcess {
	s := &SubProcess{Start: start, Data: domain.NewData(), Params: map[string]domain.Var{}}
	s.init(s, opts)
	return s
}

func (*SubProcess) Type() domain.NodeType { return domain.TypeSubProcess }

// Param binds a child input to a value from the parent scope.
func (s *SubProcess) Param(key string, v domain.Var) *SubProcess {
	s.Params[key] = v
	return s
}
