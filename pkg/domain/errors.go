package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTreeInvalid is the umbrella for every structural rejection of a tree.
var ErrTreeInvalid = errors.New("tree invalid")

// ErrStructural is returned for dangling edges, missing start/end events,
// unresolved gateway pairing and malformed conditions.
var ErrStructural = fmt.Errorf("%w: structural error", ErrTreeInvalid)

// ErrCycle is returned when a tree contains a cycle and cycles are not tolerated.
var ErrCycle = fmt.Errorf("%w: cycle detected", ErrTreeInvalid)

// ErrStartPositionInvalid is returned when execution is asked to start from
// a node outside the main line.
var ErrStartPositionInvalid = errors.New("start position invalid")

// ErrUnknownNodeType is returned when a node's type is not a known variant.
var ErrUnknownNodeType = errors.New("unknown node type")

// ErrPipelineNotFound is returned when a pipeline ID cannot be found in the store.
var ErrPipelineNotFound = errors.New("pipeline not found")

// ErrNodeNotFound is returned when a node id is not part of a pipeline.
var ErrNodeNotFound = errors.New("node not found")

// Structural error kinds.
const (
	KindConnectivity = "connectivity"
	KindStartEnd     = "start_end"
	KindGateway      = "gateway"
	KindStream       = "stream"
)

// StructuralError describes one structural violation.
type StructuralError struct {
	Kind   string
	NodeID string
	Msg    string
}

func (e *StructuralError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: node %s: %s", e.Kind, e.NodeID, e.Msg)
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

// NewStructuralError builds a StructuralError with a formatted message.
func NewStructuralError(kind, nodeID, format string, args ...any) *StructuralError {
	return &StructuralError{Kind: kind, NodeID: nodeID, Msg: fmt.Sprintf(format, args...)}
}

// CycleError reports the node path of a detected cycle; the last element
// repeats the first.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %s", strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// StartPositionInvalidError reports a rejected start node and the allowed ones.
type StartPositionInvalidError struct {
	NodeID  string
	Allowed []string
}

func (e *StartPositionInvalidError) Error() string {
	return fmt.Sprintf("node %s is not allowed as start position, allowed nodes: [%s]",
		e.NodeID, strings.Join(e.Allowed, ", "))
}

func (e *StartPositionInvalidError) Unwrap() error { return ErrStartPositionInvalid }

// UnknownNodeTypeError reports a node whose variant is not recognised.
type UnknownNodeTypeError struct {
	NodeID string
	Type   string
}

func (e *UnknownNodeTypeError) Error() string {
	return fmt.Sprintf("node %s: unknown node type %q", e.NodeID, e.Type)
}

func (e *UnknownNodeTypeError) Unwrap() error { return ErrUnknownNodeType }
