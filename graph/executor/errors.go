package executor

import (
	"fmt"

	"github.com/oxy-compositor/engine/graph"
)

// NodeNotFoundError means the execution order named a NodeId the graph no
// longer has an instance for.
type NodeNotFoundError struct{ NodeID graph.NodeId }

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("executor: node %d not found", e.NodeID)
}

// DefinitionNotFoundError means a node instance names a definition the
// library has no entry for.
type DefinitionNotFoundError struct{ Name string }

func (e *DefinitionNotFoundError) Error() string {
	return fmt.Sprintf("executor: definition %q not found", e.Name)
}

// NodeNotExecutedError means a Connection points at a node that hasn't
// produced outputs yet this execution (upstream of it in the declared
// order, or simply missing).
type NodeNotExecutedError struct{ NodeID graph.NodeId }

func (e *NodeNotExecutedError) Error() string {
	return fmt.Sprintf("executor: node %d has not executed yet", e.NodeID)
}

// OutputNotFoundError means a Connection names an output the source node
// didn't produce.
type OutputNotFoundError struct {
	NodeID     graph.NodeId
	OutputName string
}

func (e *OutputNotFoundError) Error() string {
	return fmt.Sprintf("executor: node %d has no output %q", e.NodeID, e.OutputName)
}

// UnconnectedFrameInputError means a node declared a bare Frame input
// value with no Connection resolving it — fatal for that node.
type UnconnectedFrameInputError struct {
	NodeID    graph.NodeId
	InputName string
}

func (e *UnconnectedFrameInputError) Error() string {
	return fmt.Sprintf("executor: node %d input %q is an unconnected Frame", e.NodeID, e.InputName)
}

// NoOutputNodeError means the graph has no node lacking outgoing
// connections.
type NoOutputNodeError struct{}

func (e *NoOutputNodeError) Error() string { return "executor: graph has no output node" }

// NoOutputProducedError means the chosen output node never got cached
// (shouldn't happen if execution completed without error).
type NoOutputProducedError struct{ NodeID graph.NodeId }

func (e *NoOutputProducedError) Error() string {
	return fmt.Sprintf("executor: output node %d produced no cached outputs", e.NodeID)
}

// ShaderLoadError wraps a failure reading a shader node's WGSL source.
type ShaderLoadError struct {
	Path string
	Err  error
}

func (e *ShaderLoadError) Error() string {
	return fmt.Sprintf("executor: load shader %s: %v", e.Path, e.Err)
}

func (e *ShaderLoadError) Unwrap() error { return e.Err }

// PipelineCreationError wraps a failure building a DynamicPipeline for a
// node definition.
type PipelineCreationError struct {
	Name string
	Err  error
}

func (e *PipelineCreationError) Error() string {
	return fmt.Sprintf("executor: build pipeline for %q: %v", e.Name, e.Err)
}

func (e *PipelineCreationError) Unwrap() error { return e.Err }

// NoFrameInputError means a shader node declared no Frame input that
// actually resolved to a value — every shader node needs at least one.
type NoFrameInputError struct{ Name string }

func (e *NoFrameInputError) Error() string {
	return fmt.Sprintf("executor: shader node %q has no resolved frame input", e.Name)
}

// UnsupportedOutputTypeError means a shader node declared a non-Frame
// output, which the executor doesn't yet support producing from a render
// pass.
type UnsupportedOutputTypeError struct{ Kind string }

func (e *UnsupportedOutputTypeError) Error() string {
	return fmt.Sprintf("executor: unsupported shader output kind %q", e.Kind)
}

// InvalidInputTypeError means a built-in handler's required input was
// missing or had the wrong resolved type.
type InvalidInputTypeError struct {
	Handler   string
	InputName string
}

func (e *InvalidInputTypeError) Error() string {
	return fmt.Sprintf("executor: built-in %q: input %q missing or wrong type", e.Handler, e.InputName)
}

// UnsupportedOperationError means a node named a BuiltInHandler the
// executor has no implementation for.
type UnsupportedOperationError struct{ Handler string }

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("executor: unsupported built-in handler %q", e.Handler)
}
