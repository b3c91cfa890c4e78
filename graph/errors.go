package graph

import "fmt"

// GraphError is the error type returned by NodeGraph's mutating and
// query operations.
type GraphError struct {
	kind    graphErrorKind
	nodeID  NodeId
	message string
}

type graphErrorKind int

const (
	errNodeNotFound graphErrorKind = iota
	errSelfConnection
	errInputAlreadyConnected
	errCyclicGraph
	errInvalidInput
	errInvalidOutput
	errUseConnectMethod
)

func (e *GraphError) Error() string {
	switch e.kind {
	case errNodeNotFound:
		return fmt.Sprintf("graph: node %d not found", e.nodeID)
	case errSelfConnection:
		return "graph: cannot connect node to itself"
	case errInputAlreadyConnected:
		return "graph: input already connected"
	case errCyclicGraph:
		return "graph: graph contains cycles"
	case errInvalidInput:
		return fmt.Sprintf("graph: invalid input: %s", e.message)
	case errInvalidOutput:
		return fmt.Sprintf("graph: invalid output: %s", e.message)
	case errUseConnectMethod:
		return "graph: use Connect for connections, not SetInputValue"
	default:
		return "graph: unknown error"
	}
}

func errNodeNotFoundErr(id NodeId) error { return &GraphError{kind: errNodeNotFound, nodeID: id} }
func errSelfConnectionErr() error        { return &GraphError{kind: errSelfConnection} }
func errInputAlreadyConnectedErr() error { return &GraphError{kind: errInputAlreadyConnected} }
func errCyclicGraphErr() error           { return &GraphError{kind: errCyclicGraph} }
func errInvalidInputErr(name string) error {
	return &GraphError{kind: errInvalidInput, message: name}
}
func errInvalidOutputErr(name string) error {
	return &GraphError{kind: errInvalidOutput, message: name}
}
func errUseConnectMethodErr() error { return &GraphError{kind: errUseConnectMethod} }

// IsNodeNotFound reports whether err is a GraphError indicating a missing
// node ID.
func IsNodeNotFound(err error) bool {
	ge, ok := err.(*GraphError)
	return ok && ge.kind == errNodeNotFound
}

// IsCyclicGraph reports whether err is a GraphError indicating a cycle.
func IsCyclicGraph(err error) bool {
	ge, ok := err.(*GraphError)
	return ok && ge.kind == errCyclicGraph
}
