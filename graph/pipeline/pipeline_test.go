package pipeline

import (
	"testing"

	"github.com/oxy-compositor/engine/graph"
	"github.com/oxy-compositor/engine/graph/library"
)

// These tests cover the pure param-packing logic only. Building an actual
// DynamicPipeline requires a live wgpu.Device, which needs real GPU
// hardware — exercised by the engine's integration harness, not here.

func TestBuildParamLayoutSkipsFrameAndMidi(t *testing.T) {
	inputs := []library.NodeInput{
		{Name: "input", Kind: library.FrameKind{}},
		{Name: "midiCC", Kind: library.MidiKind{}},
		{Name: "amount", Kind: library.FloatKind{}},
		{Name: "enabled", Kind: library.BoolKind{}},
	}

	layout := buildParamLayout(inputs)
	if len(layout) != 2 {
		t.Fatalf("expected 2 packed params, got %d", len(layout))
	}
	if layout[0].name != "amount" || layout[0].offset != 0 {
		t.Fatalf("expected amount at offset 0, got %+v", layout[0])
	}
	if layout[1].name != "enabled" || layout[1].offset != 4 {
		t.Fatalf("expected enabled at offset 4, got %+v", layout[1])
	}
}

func TestCalculateParamsSizeHasFloor(t *testing.T) {
	if got := calculateParamsSize(nil); got != minParamsBufferSize {
		t.Fatalf("expected empty layout to floor to %d, got %d", minParamsBufferSize, got)
	}

	small := []shaderParam{{name: "a", kind: library.BoolKind{}, offset: 0}}
	if got := calculateParamsSize(small); got != minParamsBufferSize {
		t.Fatalf("expected a single bool param to still floor to %d, got %d", minParamsBufferSize, got)
	}
}

func TestCalculateParamsSizeRoundsUpTo16(t *testing.T) {
	layout := []shaderParam{
		{name: "a", kind: library.PixelKind{}, offset: 0},  // 16 bytes
		{name: "b", kind: library.FloatKind{}, offset: 16}, // 4 bytes, total 20
	}
	got := calculateParamsSize(layout)
	if got != 32 {
		t.Fatalf("expected 20 bytes to round up to 32, got %d", got)
	}
}

func TestWriteParamPacksValues(t *testing.T) {
	buf := make([]byte, 16)

	floatParam := shaderParam{name: "amount", kind: library.FloatKind{}, offset: 0}
	if !writeParam(buf, floatParam, graph.ResolvedFloat(1.5)) {
		t.Fatalf("expected float param to pack successfully")
	}

	boolParam := shaderParam{name: "enabled", kind: library.BoolKind{}, offset: 4}
	if !writeParam(buf, boolParam, graph.ResolvedBool(true)) {
		t.Fatalf("expected bool param to pack successfully")
	}
	if buf[4] != 1 {
		t.Fatalf("expected packed bool to be 1, got %d", buf[4])
	}
}

func TestWriteParamRejectsTypeMismatch(t *testing.T) {
	buf := make([]byte, 16)
	param := shaderParam{name: "amount", kind: library.FloatKind{}, offset: 0}
	if writeParam(buf, param, graph.ResolvedBool(true)) {
		t.Fatalf("expected a bool value against a float param to be rejected")
	}
}

func TestCountFrameInputs(t *testing.T) {
	inputs := []library.NodeInput{
		{Name: "a", Kind: library.FrameKind{}},
		{Name: "b", Kind: library.FrameKind{}},
		{Name: "c", Kind: library.FloatKind{}},
	}
	if got := countFrameInputs(inputs); got != 2 {
		t.Fatalf("expected 2 frame inputs, got %d", got)
	}
}
