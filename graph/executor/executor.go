// Package executor runs a NodeGraph to completion: resolving inputs in
// topological order, dispatching shader nodes to graph/pipeline and
// built-in nodes to their named handlers, per §4.G of the node-graph
// compositor spec.
package executor

import (
	"fmt"
	"os"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oxy-compositor/engine/graph"
	"github.com/oxy-compositor/engine/graph/library"
	"github.com/oxy-compositor/engine/graph/pipeline"
	"github.com/oxy-compositor/engine/graph/upload"
	"github.com/oxy-compositor/engine/media"
)

// ExecutionResult is the outcome of one full graph execution: the id of
// the chosen output node, and that node's output values.
type ExecutionResult struct {
	OutputNodeID graph.NodeId
	Outputs      map[string]graph.OutputValue
}

// GraphExecutor runs a NodeGraph against a NodeLibrary, reusing compiled
// pipelines across calls. Not safe for concurrent use: the spec's
// concurrency model confines all executor state to a single host thread.
type GraphExecutor struct {
	mu sync.Mutex

	uploader      *upload.Stager
	outputCache   map[graph.NodeId]map[string]graph.OutputValue
	pipelineCache map[string]pipeline.DynamicPipeline
	targetFormat  wgpu.TextureFormat

	// defaultWidth/defaultHeight size a shader node's output texture when
	// its primary Frame input carries no usable dimensions.
	defaultWidth, defaultHeight uint32
}

// New creates a GraphExecutor rendering into targetFormat, falling back to
// defaultWidth x defaultHeight for a shader node's output texture when its
// primary Frame input's dimensions can't be determined.
func New(targetFormat wgpu.TextureFormat, defaultWidth, defaultHeight uint32) *GraphExecutor {
	return &GraphExecutor{
		uploader:      upload.New(),
		outputCache:   make(map[graph.NodeId]map[string]graph.OutputValue),
		pipelineCache: make(map[string]pipeline.DynamicPipeline),
		targetFormat:  targetFormat,
		defaultWidth:  defaultWidth,
		defaultHeight: defaultHeight,
	}
}

// Execute runs every node in g in topological order and returns the
// chosen output node's result.
func (e *GraphExecutor) Execute(g graph.NodeGraph, lib *library.NodeLibrary, device *wgpu.Device, queue *wgpu.Queue) (ExecutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id := range e.outputCache {
		delete(e.outputCache, id)
	}

	order, err := g.ExecutionOrder()
	if err != nil {
		return ExecutionResult{}, fmt.Errorf("executor: %w", err)
	}

	for _, nodeID := range order {
		instance, ok := g.Instance(nodeID)
		if !ok {
			return ExecutionResult{}, &NodeNotFoundError{NodeID: nodeID}
		}

		definition, ok := lib.Get(instance.DefinitionName)
		if !ok {
			return ExecutionResult{}, &DefinitionNotFoundError{Name: instance.DefinitionName}
		}

		resolved, err := e.resolveInputs(instance)
		if err != nil {
			return ExecutionResult{}, err
		}

		var outputs map[string]graph.OutputValue
		node := definition.Node()
		switch plan := node.Executor.(type) {
		case library.ShaderExecutionPlan:
			outputs, err = e.executeShaderNode(device, queue, definition, resolved)
		case library.BuiltInExecutionPlan:
			outputs, err = e.executeBuiltInNode(plan.Handler, resolved, device, queue)
		default:
			err = fmt.Errorf("executor: node %q has an unrecognized execution plan", node.Name)
		}
		if err != nil {
			return ExecutionResult{}, err
		}

		e.outputCache[nodeID] = outputs
	}

	outputNodes := g.FindOutputNodes()
	if len(outputNodes) == 0 {
		return ExecutionResult{}, &NoOutputNodeError{}
	}

	outputNodeID := outputNodes[0]
	for _, id := range outputNodes {
		if id < outputNodeID {
			outputNodeID = id
		}
	}

	outputs, ok := e.outputCache[outputNodeID]
	if !ok {
		return ExecutionResult{}, &NoOutputProducedError{NodeID: outputNodeID}
	}

	return ExecutionResult{OutputNodeID: outputNodeID, Outputs: outputs}, nil
}

// GetNodeOutputs lets the host follow a user-selected node's output rather
// than strictly the graph's terminus, without re-running execution.
func (e *GraphExecutor) GetNodeOutputs(nodeID graph.NodeId) (map[string]graph.OutputValue, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	outputs, ok := e.outputCache[nodeID]
	return outputs, ok
}

func (e *GraphExecutor) resolveInputs(instance graph.NodeInstance) (map[string]graph.ResolvedInput, error) {
	resolved := make(map[string]graph.ResolvedInput, len(instance.InputValues))

	for inputName, inputValue := range instance.InputValues {
		if conn, ok := inputValue.(graph.ConnectionValue); ok {
			sourceOutputs, ok := e.outputCache[conn.FromNode]
			if !ok {
				return nil, &NodeNotExecutedError{NodeID: conn.FromNode}
			}
			output, ok := sourceOutputs[conn.OutputName]
			if !ok {
				return nil, &OutputNotFoundError{NodeID: conn.FromNode, OutputName: conn.OutputName}
			}
			resolvedValue, ok := graph.OutputToResolvedInput(output)
			if !ok {
				return nil, fmt.Errorf("executor: output %q of node %d has no ResolvedInput equivalent", conn.OutputName, conn.FromNode)
			}
			resolved[inputName] = resolvedValue
			continue
		}

		if _, ok := inputValue.(graph.FrameValue); ok {
			return nil, &UnconnectedFrameInputError{NodeID: instance.ID, InputName: inputName}
		}

		resolvedValue, ok := graph.ToResolvedInput(inputValue)
		if !ok {
			return nil, fmt.Errorf("executor: input %q of node %d has no ResolvedInput equivalent", inputName, instance.ID)
		}
		resolved[inputName] = resolvedValue
	}

	return resolved, nil
}

func (e *GraphExecutor) executeShaderNode(device *wgpu.Device, queue *wgpu.Queue, definition library.NodeDefinition, inputs map[string]graph.ResolvedInput) (map[string]graph.OutputValue, error) {
	node := definition.Node()

	pl, ok := e.pipelineCache[node.Name]
	if !ok {
		shaderCode, err := os.ReadFile(definition.ShaderPath())
		if err != nil {
			return nil, &ShaderLoadError{Path: definition.ShaderPath(), Err: err}
		}

		pl, err = pipeline.FromShader(device, string(shaderCode), definition, e.targetFormat)
		if err != nil {
			return nil, &PipelineCreationError{Name: node.Name, Err: err}
		}
		e.pipelineCache[node.Name] = pl
	}

	width, height := e.defaultWidth, e.defaultHeight
	havePrimary := false

	// Inputs is a map so iteration order is unspecified; collect Frame
	// inputs deterministically by the node's declared input order so the
	// "primary" frame matches the spec's "first Frame input" contract.
	var textures []*wgpu.TextureView
	for _, in := range node.Inputs {
		if _, ok := in.Kind.(library.FrameKind); !ok {
			continue
		}
		resolved, ok := inputs[in.Name]
		if !ok {
			continue
		}
		rf, ok := resolved.(graph.ResolvedFrame)
		if !ok {
			continue
		}
		if !havePrimary {
			havePrimary = true
			if rf.Width != 0 && rf.Height != 0 {
				width, height = rf.Width, rf.Height
			}
		}
		textures = append(textures, rf.View)
	}

	if !havePrimary {
		return nil, &NoFrameInputError{Name: node.Name}
	}
	if len(textures) != pl.FrameInputCount() {
		return nil, fmt.Errorf("executor: node %q declares %d frame inputs but %d were resolved", node.Name, pl.FrameInputCount(), len(textures))
	}

	outputTexture, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     "shader_output/" + node.Name,
		Usage:     wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		Format:        e.targetFormat,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("executor: create output texture for %q: %w", node.Name, err)
	}
	outputView, err := outputTexture.CreateView(nil)
	if err != nil {
		return nil, fmt.Errorf("executor: create output view for %q: %w", node.Name, err)
	}

	encoder, err := device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("executor: create command encoder for %q: %w", node.Name, err)
	}

	params := shaderParams(inputs)
	if err := pl.Apply(device, queue, encoder, outputView, textures, params); err != nil {
		return nil, fmt.Errorf("executor: render %q: %w", node.Name, err)
	}

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("executor: finish command buffer for %q: %w", node.Name, err)
	}
	queue.Submit(commandBuffer)

	outputs := make(map[string]graph.OutputValue, len(node.Outputs))
	for _, outDef := range node.Outputs {
		if outDef.Kind != library.NodeOutputFrame {
			return nil, &UnsupportedOutputTypeError{Kind: string(outDef.Kind)}
		}
		outputs[outDef.Name] = graph.ResolvedFrame{View: outputView, Width: width, Height: height}
	}

	return outputs, nil
}

// shaderParams filters out Frame-resolved inputs, since those are bound as
// textures rather than packed into the uniform buffer.
func shaderParams(inputs map[string]graph.ResolvedInput) map[string]graph.ResolvedInput {
	params := make(map[string]graph.ResolvedInput, len(inputs))
	for name, value := range inputs {
		if _, ok := value.(graph.ResolvedFrame); ok {
			continue
		}
		params[name] = value
	}
	return params
}

func (e *GraphExecutor) executeBuiltInNode(handler library.BuiltInHandler, inputs map[string]graph.ResolvedInput, device *wgpu.Device, queue *wgpu.Queue) (map[string]graph.OutputValue, error) {
	switch handler {
	case library.BuiltInSumInputs:
		a, ok := inputs["A"].(graph.ResolvedInt)
		if !ok {
			return nil, &InvalidInputTypeError{Handler: string(handler), InputName: "A"}
		}
		b, ok := inputs["B"].(graph.ResolvedInt)
		if !ok {
			return nil, &InvalidInputTypeError{Handler: string(handler), InputName: "B"}
		}
		return map[string]graph.OutputValue{"Sum": graph.ResolvedInt(a + b)}, nil

	case library.BuiltInImageSource:
		path, ok := inputs["path"].(graph.ResolvedFile)
		if !ok {
			return nil, &InvalidInputTypeError{Handler: string(handler), InputName: "path"}
		}

		frame, err := media.LoadFrameFromImageFile(string(path))
		if err != nil {
			return nil, fmt.Errorf("executor: ImageSource: %w", err)
		}

		view, width, height, err := e.uploader.Upload(device, queue, frame.Dimensions().Width(), frame.Dimensions().Height(), frame.RawData())
		if err != nil {
			return nil, fmt.Errorf("executor: ImageSource: upload: %w", err)
		}
		return map[string]graph.OutputValue{"output": graph.ResolvedFrame{View: view, Width: width, Height: height}}, nil

	default:
		return nil, &UnsupportedOperationError{Handler: string(handler)}
	}
}
