// Command compositorctl headlessly drives a node graph against a node
// library: it loads the library, builds a graph from a small JSON
// descriptor, and executes it for a fixed number of frames, reporting
// timing and each frame's chosen output. It stands in for the launcher
// spec.md §6 calls out as "out of core scope" — the core itself never
// renders to a window or writes files, so turning its output into pixels
// on screen or on disk is left to a real host.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/oxy-compositor/engine/graph"
	"github.com/oxy-compositor/engine/graph/executor"
	"github.com/oxy-compositor/engine/graph/library"
)

func main() {
	nodesFolder := flag.String("nodes", "Nodes", "path to the node library's root folder")
	graphFile := flag.String("graph", "", "path to a graph descriptor JSON file (required)")
	frames := flag.Int("frames", 1, "number of times to execute the graph")
	profile := flag.Bool("profile", false, "log frame rate and memory stats once per second")
	width := flag.Uint("width", 1920, "default output width used when a shader node's primary input has no dimensions")
	height := flag.Uint("height", 1080, "default output height used when a shader node's primary input has no dimensions")
	format := flag.String("format", "rgba8unorm", "target texture format: rgba8unorm or bgra8unorm")
	flag.Parse()

	if *graphFile == "" {
		fmt.Fprintln(os.Stderr, "compositorctl: -graph is required")
		flag.Usage()
		os.Exit(2)
	}

	targetFormat, err := parseTextureFormat(*format)
	if err != nil {
		log.Fatalf("compositorctl: %v", err)
	}

	lib, err := library.LoadFromDisk(*nodesFolder)
	if err != nil {
		log.Fatalf("compositorctl: load node library: %v", err)
	}
	log.Printf("loaded %d node definitions from %s", len(lib.NodeNames()), *nodesFolder)

	g, err := loadGraph(*graphFile)
	if err != nil {
		log.Fatalf("compositorctl: load graph: %v", err)
	}
	log.Printf("built graph with %d instances, %d connections", len(g.Instances()), len(g.Connections()))

	device, queue, err := createHeadlessDevice()
	if err != nil {
		log.Fatalf("compositorctl: %v", err)
	}

	ex := executor.New(targetFormat, uint32(*width), uint32(*height))

	var profiler *frameProfiler
	if *profile {
		profiler = newFrameProfiler()
	}

	start := time.Now()
	for i := 0; i < *frames; i++ {
		result, err := ex.Execute(g, lib, device, queue)
		if err != nil {
			log.Fatalf("compositorctl: execute frame %d: %v", i, err)
		}

		names := make([]string, 0, len(result.Outputs))
		for name := range result.Outputs {
			names = append(names, name)
		}
		log.Printf("frame %d: output node %d produced outputs %v", i, result.OutputNodeID, names)

		if profiler != nil {
			nodesExecuted, shaderPasses, err := countExecutedNodes(g, lib)
			if err != nil {
				log.Fatalf("compositorctl: profile frame %d: %v", i, err)
			}
			profiler.tick(nodesExecuted, shaderPasses)
		}
	}
	elapsed := time.Since(start)

	log.Printf("executed %d frame(s) in %s (avg %.2f frames/sec)", *frames, elapsed, float64(*frames)/elapsed.Seconds())
}

// countExecutedNodes walks g's execution order and classifies each
// instance's definition as a shader pass or a built-in, giving the
// profiler real graph-derived counts instead of a bare frame tally.
func countExecutedNodes(g graph.NodeGraph, lib *library.NodeLibrary) (nodes, shaderPasses int, err error) {
	order, err := g.ExecutionOrder()
	if err != nil {
		return 0, 0, fmt.Errorf("execution order: %w", err)
	}

	for _, id := range order {
		inst, ok := g.Instance(id)
		if !ok {
			return 0, 0, fmt.Errorf("instance %d missing from graph", id)
		}
		def, ok := lib.Get(inst.DefinitionName)
		if !ok {
			return 0, 0, fmt.Errorf("instance %d: unknown node kind %q", id, inst.DefinitionName)
		}

		nodes++
		if _, ok := def.Node().Executor.(library.ShaderExecutionPlan); ok {
			shaderPasses++
		}
	}

	return nodes, shaderPasses, nil
}

// parseTextureFormat maps a handful of common format names to their
// wgpu.TextureFormat constant. Only the formats graph/upload and
// graph/executor actually render into are supported.
func parseTextureFormat(name string) (wgpu.TextureFormat, error) {
	switch name {
	case "rgba8unorm":
		return wgpu.TextureFormatRGBA8Unorm, nil
	case "bgra8unorm":
		return wgpu.TextureFormatBGRA8Unorm, nil
	default:
		return 0, fmt.Errorf("unsupported -format %q (want rgba8unorm or bgra8unorm)", name)
	}
}

// createHeadlessDevice acquires a wgpu device and queue with no surface,
// following the teacher's instance/adapter/device acquisition sequence
// minus the surface-dependent steps a windowed renderer needs.
func createHeadlessDevice() (*wgpu.Device, *wgpu.Queue, error) {
	instance := wgpu.CreateInstance(nil)

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("request adapter: %w", err)
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "compositorctl headless device",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("request device: %w", err)
	}

	return device, device.GetQueue(), nil
}

// graphDescriptor is compositorctl's own on-disk graph format — the spec
// deliberately leaves graph persistence to the host, so this is a small
// convenience format rather than anything the core reads.
type graphDescriptor struct {
	Instances   []graph.NodeInstance   `json:"instances"`
	Connections []connectionDescriptor `json:"connections"`
}

// connectionDescriptor names instances by the id each instance
// carries in the descriptor file, not the NodeId the graph eventually
// assigns them (AddInstance hands out its own IDs).
type connectionDescriptor struct {
	From       graph.NodeId `json:"from"`
	FromOutput string       `json:"from_output"`
	To         graph.NodeId `json:"to"`
	ToInput    string       `json:"to_input"`
}

func loadGraph(path string) (graph.NodeGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var descriptor graphDescriptor
	if err := json.Unmarshal(data, &descriptor); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	g := graph.New()
	ids := make(map[graph.NodeId]graph.NodeId, len(descriptor.Instances))

	for _, inst := range descriptor.Instances {
		newID := g.AddInstance(inst.DefinitionName)
		ids[inst.ID] = newID

		for name, value := range inst.InputValues {
			if _, ok := value.(graph.ConnectionValue); ok {
				continue
			}
			if err := g.SetInputValue(newID, name, value); err != nil {
				return nil, fmt.Errorf("set input %q on instance %d: %w", name, inst.ID, err)
			}
		}
	}

	for _, conn := range descriptor.Connections {
		fromID, ok := ids[conn.From]
		if !ok {
			return nil, fmt.Errorf("connection references unknown instance %d", conn.From)
		}
		toID, ok := ids[conn.To]
		if !ok {
			return nil, fmt.Errorf("connection references unknown instance %d", conn.To)
		}
		if err := g.Connect(fromID, conn.FromOutput, toID, conn.ToInput); err != nil {
			return nil, fmt.Errorf("connect %d.%s -> %d.%s: %w", conn.From, conn.FromOutput, conn.To, conn.ToInput, err)
		}
	}

	return g, nil
}
