// Package library loads NodeDefinitions (the on-disk, immutable description
// of a node kind — its inputs, outputs, and how it executes) from a Nodes/
// folder into a NodeLibrary that the graph package looks up node kinds from
// when instantiating a NodeGraph.
package library

import (
	"encoding/json"
	"fmt"
)

// Node is the disk representation of a node kind: its name, typed inputs
// and outputs, and how it's executed (a shader pass or a built-in handler).
type Node struct {
	Name             string          `json:"name"`
	Inputs           []NodeInput     `json:"inputs"`
	Outputs          []NodeOutput    `json:"outputs"`
	Executor         NodeExecutionPlan `json:"executor"`
	ShortDescription string          `json:"short_description,omitempty"`
	LongDescription  string          `json:"long_description,omitempty"`
	SubFolders       []string        `json:"sub_folders,omitempty"`
	SearchKeywords   []string        `json:"search_keywords,omitempty"`
}

// NodeInput names a single typed input slot of a Node.
type NodeInput struct {
	Name string        `json:"name"`
	Kind NodeInputKind `json:"kind"`
}

// NodeOutput names a single typed output slot of a Node.
type NodeOutput struct {
	Name string         `json:"name"`
	Kind NodeOutputKind `json:"kind"`
}

// NodeOutputKind is the type carried by a node's output slot.
type NodeOutputKind string

const (
	NodeOutputFrame      NodeOutputKind = "Frame"
	NodeOutputMidi       NodeOutputKind = "Midi"
	NodeOutputBool       NodeOutputKind = "Bool"
	NodeOutputInt        NodeOutputKind = "Int"
	NodeOutputFloat      NodeOutputKind = "Float"
	NodeOutputDimensions NodeOutputKind = "Dimensions"
	NodeOutputPixel      NodeOutputKind = "Pixel"
	NodeOutputText       NodeOutputKind = "Text"
)

// NumberInputUIMode hints to a UI how a numeric input should be presented.
type NumberInputUIMode string

const (
	NumberInputUITextInput NumberInputUIMode = "TextInput"
	NumberInputUISlider    NumberInputUIMode = "Slider"
)

// FileKind restricts what a File input is expected to point to.
type FileKind string

const (
	FileKindAny   FileKind = "Any"
	FileKindVideo FileKind = "Video"
	FileKindImage FileKind = "Image"
	FileKindMidi  FileKind = "Midi"
)

// NodeInputKind is the type (and, for value-carrying kinds, the default/
// constraints) of a node's input slot. Concrete kinds are the Node*Kind
// types below, implementing this as a closed, tagged-union-style
// interface — Go has no sum types, so the set of permitted implementations
// is controlled only by convention and the marshal/unmarshal helpers.
type NodeInputKind interface {
	nodeInputKindTag() string
}

// FrameKind is an input slot that must be fed an image/video frame, either
// from an upstream Connection or (for unconnected inputs on a source node)
// left unset.
type FrameKind struct{}

func (FrameKind) nodeInputKindTag() string { return "Frame" }

// MidiKind is an input slot fed MIDI event data.
type MidiKind struct{}

func (MidiKind) nodeInputKindTag() string { return "Midi" }

// BoolKind is a boolean toggle input.
type BoolKind struct {
	Default bool `json:"default"`
}

func (BoolKind) nodeInputKindTag() string { return "Bool" }

// IntKind is a bounded integer input.
type IntKind struct {
	Default   int32              `json:"default"`
	Min       *int32             `json:"min,omitempty"`
	Max       *int32             `json:"max,omitempty"`
	Step      int32              `json:"step"`
	NoSubStep bool               `json:"no_sub_step,omitempty"`
	InputUI   NumberInputUIMode  `json:"input_ui,omitempty"`
}

func (IntKind) nodeInputKindTag() string { return "Int" }

// FloatKind is a bounded floating-point input.
type FloatKind struct {
	Default   float32           `json:"default"`
	Min       *float32          `json:"min,omitempty"`
	Max       *float32          `json:"max,omitempty"`
	Step      float32           `json:"step"`
	NoSubStep bool              `json:"no_sub_step,omitempty"`
	InputUI   NumberInputUIMode `json:"input_ui,omitempty"`
}

func (FloatKind) nodeInputKindTag() string { return "Float" }

// DimensionsKind is a (width, height) pair input.
type DimensionsKind struct {
	Default [2]uint32 `json:"default"`
}

func (DimensionsKind) nodeInputKindTag() string { return "Dimensions" }

// PixelKind is an RGBA color picker input.
type PixelKind struct {
	Default   [4]float32 `json:"default"`
	NoOpacity bool       `json:"no_opacity,omitempty"`
	NoColor   bool       `json:"no_color,omitempty"`
}

func (PixelKind) nodeInputKindTag() string { return "Pixel" }

// EnumKind is a fixed choice of labeled options input.
type EnumKind struct {
	Choices    []string `json:"choices"`
	DefaultIdx *int     `json:"default_idx,omitempty"`
}

func (EnumKind) nodeInputKindTag() string { return "Enum" }

// TextKind is a free-text input.
type TextKind struct {
	Default string  `json:"default,omitempty"`
	MaxLen  *uint64 `json:"max_len,omitempty"`
	UILines uint64  `json:"ui_lines,omitempty"`
}

func (TextKind) nodeInputKindTag() string { return "Text" }

// FileKindInput is a filesystem path input, optionally restricted to a
// FileKind (e.g. only image files).
type FileKindInput struct {
	Kind    FileKind `json:"kind,omitempty"`
	Default string   `json:"default,omitempty"`
}

func (FileKindInput) nodeInputKindTag() string { return "File" }

// NodeExecutionPlan is how a Node is executed once its inputs are resolved:
// either as a fragment-shader pass, or as one of a fixed set of built-in
// handlers implemented natively in Go.
type NodeExecutionPlan interface {
	nodeExecutionPlanTag() string
}

// ShaderExecutionPlan executes a node by running a fragment shader, whose
// WGSL source lives at Source relative to the node's folder.
type ShaderExecutionPlan struct {
	Source string `json:"source"`
}

func (ShaderExecutionPlan) nodeExecutionPlanTag() string { return "Shader" }

// BuiltInExecutionPlan executes a node via a handler implemented natively
// (see graph/executor's executeBuiltInNode, which dispatches on Handler).
type BuiltInExecutionPlan struct {
	Handler BuiltInHandler `json:"handler"`
}

func (BuiltInExecutionPlan) nodeExecutionPlanTag() string { return "BuiltIn" }

// BuiltInHandler names one of the natively-implemented node behaviors.
type BuiltInHandler string

const (
	BuiltInSumInputs      BuiltInHandler = "SumInputs"
	BuiltInMultiplyInputs BuiltInHandler = "MultiplyInputs"
	BuiltInImageSource    BuiltInHandler = "ImageSource"
)

// MarshalJSON renders a NodeInputKind in externally-tagged form, matching
// the on-disk node.json format: unit variants serialize as a bare string
// ("Frame", "Midi"), value-carrying variants as a single-key object
// ({"Bool": {"default": true}}).
func (n *NodeInput) MarshalJSON() ([]byte, error) {
	kindJSON, err := marshalInputKind(n.Kind)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Name string          `json:"name"`
		Kind json.RawMessage `json:"kind"`
	}{n.Name, kindJSON})
}

func marshalInputKind(kind NodeInputKind) (json.RawMessage, error) {
	switch kind.(type) {
	case FrameKind:
		return json.Marshal("Frame")
	case MidiKind:
		return json.Marshal("Midi")
	}
	tag := kind.nodeInputKindTag()
	inner, err := json.Marshal(kind)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]json.RawMessage{tag: inner})
}

// UnmarshalJSON parses a node.json input kind in its externally-tagged
// form (see MarshalJSON).
func (n *NodeInput) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name string          `json:"name"`
		Kind json.RawMessage `json:"kind"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	kind, err := unmarshalInputKind(raw.Kind)
	if err != nil {
		return fmt.Errorf("library: input %q: %w", raw.Name, err)
	}

	n.Name = raw.Name
	n.Kind = kind
	return nil
}

func unmarshalInputKind(data json.RawMessage) (NodeInputKind, error) {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		switch asString {
		case "Frame":
			return FrameKind{}, nil
		case "Midi":
			return MidiKind{}, nil
		default:
			return nil, fmt.Errorf("library: unknown unit input kind %q", asString)
		}
	}

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(data, &asObject); err != nil {
		return nil, fmt.Errorf("library: malformed input kind: %w", err)
	}
	if len(asObject) != 1 {
		return nil, fmt.Errorf("library: input kind object must have exactly one key, got %d", len(asObject))
	}

	for tag, inner := range asObject {
		switch tag {
		case "Bool":
			var v BoolKind
			return v, json.Unmarshal(inner, &v)
		case "Int":
			v := IntKind{Step: 1}
			return v, json.Unmarshal(inner, &v)
		case "Float":
			v := FloatKind{Step: 0.1}
			return v, json.Unmarshal(inner, &v)
		case "Dimensions":
			var v DimensionsKind
			return v, json.Unmarshal(inner, &v)
		case "Pixel":
			var v PixelKind
			return v, json.Unmarshal(inner, &v)
		case "Enum":
			var v EnumKind
			return v, json.Unmarshal(inner, &v)
		case "Text":
			v := TextKind{UILines: 1}
			return v, json.Unmarshal(inner, &v)
		case "File":
			v := FileKindInput{Kind: FileKindAny}
			return v, json.Unmarshal(inner, &v)
		default:
			return nil, fmt.Errorf("library: unknown input kind tag %q", tag)
		}
	}
	panic("unreachable")
}

// MarshalJSON renders a NodeExecutionPlan in externally-tagged form.
func (p *nodeExecutionPlanBox) MarshalJSON() ([]byte, error) {
	tag := p.Plan.nodeExecutionPlanTag()

	var inner json.RawMessage
	var err error
	if builtin, ok := p.Plan.(BuiltInExecutionPlan); ok {
		inner, err = json.Marshal(builtin.Handler)
	} else {
		inner, err = json.Marshal(p.Plan)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]json.RawMessage{tag: inner})
}

// nodeExecutionPlanBox exists only to give NodeExecutionPlan (an interface
// field inside Node) a MarshalJSON/UnmarshalJSON pair without requiring the
// interface itself to implement json.Marshaler — Node's own
// MarshalJSON/UnmarshalJSON delegate to it.
type nodeExecutionPlanBox struct {
	Plan NodeExecutionPlan
}

// MarshalJSON renders a Node, tagging its Executor field in externally
// tagged form (see NodeInput.MarshalJSON).
func (node *Node) MarshalJSON() ([]byte, error) {
	type alias Node
	return json.Marshal(&struct {
		*alias
		Executor nodeExecutionPlanBox `json:"executor"`
	}{(*alias)(node), nodeExecutionPlanBox{node.Executor}})
}

// UnmarshalJSON parses a Node, including its tagged Executor field.
func (node *Node) UnmarshalJSON(data []byte) error {
	type alias Node
	raw := struct {
		*alias
		Executor json.RawMessage `json:"executor"`
	}{alias: (*alias)(node)}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(raw.Executor, &asObject); err != nil {
		return fmt.Errorf("library: node %q: malformed executor: %w", node.Name, err)
	}
	if len(asObject) != 1 {
		return fmt.Errorf("library: node %q: executor object must have exactly one key", node.Name)
	}

	for tag, inner := range asObject {
		switch tag {
		case "Shader":
			var v ShaderExecutionPlan
			if err := json.Unmarshal(inner, &v); err != nil {
				return fmt.Errorf("library: node %q: %w", node.Name, err)
			}
			node.Executor = v
		case "BuiltIn":
			var handler BuiltInHandler
			if err := json.Unmarshal(inner, &handler); err != nil {
				return fmt.Errorf("library: node %q: %w", node.Name, err)
			}
			node.Executor = BuiltInExecutionPlan{Handler: handler}
		default:
			return fmt.Errorf("library: node %q: unknown executor tag %q", node.Name, tag)
		}
	}
	return nil
}
