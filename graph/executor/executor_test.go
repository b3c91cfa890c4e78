package executor

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oxy-compositor/engine/graph"
	"github.com/oxy-compositor/engine/graph/library"
)

// Shader node execution and ImageSource both need a live wgpu.Device/Queue,
// which needs real GPU hardware — exercised by the engine's integration
// harness, not here. These tests cover the input-resolution and built-in
// handler logic that don't touch the GPU.

func newTestExecutor() *GraphExecutor {
	return New(wgpu.TextureFormatRGBA8Unorm, 1920, 1080)
}

func TestResolveInputsDirectValues(t *testing.T) {
	e := newTestExecutor()
	instance := graph.NodeInstance{
		ID:             1,
		DefinitionName: "Sum",
		InputValues: map[string]graph.InputValue{
			"A": graph.IntValue(3),
			"B": graph.IntValue(4),
		},
	}

	resolved, err := e.resolveInputs(instance)
	if err != nil {
		t.Fatalf("resolve inputs: %v", err)
	}
	if resolved["A"] != graph.ResolvedInt(3) {
		t.Fatalf("expected A=3, got %v", resolved["A"])
	}
	if resolved["B"] != graph.ResolvedInt(4) {
		t.Fatalf("expected B=4, got %v", resolved["B"])
	}
}

func TestResolveInputsFromConnection(t *testing.T) {
	e := newTestExecutor()
	e.outputCache[1] = map[string]graph.OutputValue{"Sum": graph.ResolvedInt(7)}

	instance := graph.NodeInstance{
		ID:             2,
		DefinitionName: "Passthrough",
		InputValues: map[string]graph.InputValue{
			"value": graph.ConnectionValue{FromNode: 1, OutputName: "Sum"},
		},
	}

	resolved, err := e.resolveInputs(instance)
	if err != nil {
		t.Fatalf("resolve inputs: %v", err)
	}
	if resolved["value"] != graph.ResolvedInt(7) {
		t.Fatalf("expected value=7, got %v", resolved["value"])
	}
}

func TestResolveInputsUnconnectedFrameFails(t *testing.T) {
	e := newTestExecutor()
	instance := graph.NodeInstance{
		ID:             3,
		DefinitionName: "Invert",
		InputValues: map[string]graph.InputValue{
			"input": graph.FrameValue{},
		},
	}

	_, err := e.resolveInputs(instance)
	if _, ok := err.(*UnconnectedFrameInputError); !ok {
		t.Fatalf("expected UnconnectedFrameInputError, got %v", err)
	}
}

func TestResolveInputsUnexecutedSourceFails(t *testing.T) {
	e := newTestExecutor()
	instance := graph.NodeInstance{
		ID:             2,
		DefinitionName: "Passthrough",
		InputValues: map[string]graph.InputValue{
			"value": graph.ConnectionValue{FromNode: 99, OutputName: "Sum"},
		},
	}

	_, err := e.resolveInputs(instance)
	if _, ok := err.(*NodeNotExecutedError); !ok {
		t.Fatalf("expected NodeNotExecutedError, got %v", err)
	}
}

func TestExecuteBuiltInSumInputs(t *testing.T) {
	e := newTestExecutor()
	inputs := map[string]graph.ResolvedInput{
		"A": graph.ResolvedInt(10),
		"B": graph.ResolvedInt(32),
	}

	outputs, err := e.executeBuiltInNode(library.BuiltInSumInputs, inputs, nil, nil)
	if err != nil {
		t.Fatalf("execute Sum: %v", err)
	}
	if outputs["Sum"] != graph.ResolvedInt(42) {
		t.Fatalf("expected Sum=42, got %v", outputs["Sum"])
	}
}

func TestExecuteBuiltInSumInputsWrongType(t *testing.T) {
	e := newTestExecutor()
	inputs := map[string]graph.ResolvedInput{
		"A": graph.ResolvedFloat(1.5),
		"B": graph.ResolvedInt(2),
	}

	_, err := e.executeBuiltInNode(library.BuiltInSumInputs, inputs, nil, nil)
	if _, ok := err.(*InvalidInputTypeError); !ok {
		t.Fatalf("expected InvalidInputTypeError, got %v", err)
	}
}

func TestExecuteBuiltInUnsupportedHandler(t *testing.T) {
	e := newTestExecutor()
	_, err := e.executeBuiltInNode(library.BuiltInHandler("DoesNotExist"), nil, nil, nil)
	if _, ok := err.(*UnsupportedOperationError); !ok {
		t.Fatalf("expected UnsupportedOperationError, got %v", err)
	}
}

func TestShaderParamsFiltersFrames(t *testing.T) {
	inputs := map[string]graph.ResolvedInput{
		"input":  graph.ResolvedFrame{Width: 4, Height: 4},
		"amount": graph.ResolvedFloat(0.5),
	}
	params := shaderParams(inputs)
	if _, ok := params["input"]; ok {
		t.Fatalf("expected Frame input to be filtered out")
	}
	if params["amount"] != graph.ResolvedFloat(0.5) {
		t.Fatalf("expected amount param to survive filtering")
	}
}
