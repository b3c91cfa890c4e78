package graph

import (
	"encoding/json"
	"fmt"
)

// InputValue is the current value of a NodeInstance's input: either a
// Connection to an upstream node's output, or one of the direct value
// kinds matching library.NodeInputKind's value-carrying variants.
type InputValue interface {
	inputValueTag() string
}

// ConnectionValue marks an input as fed by another node's output rather
// than holding a direct value. NodeGraph keeps this in sync with its own
// Connection list — set one through Connect, never through SetInputValue.
type ConnectionValue struct {
	FromNode   NodeId
	OutputName string
}

func (ConnectionValue) inputValueTag() string { return "Connection" }

// FrameValue marks an input as expecting a frame but holding no direct
// value — valid only while the input is connected; resolving it while
// unconnected is an error (a frame input has no sensible direct default).
type FrameValue struct{}

func (FrameValue) inputValueTag() string { return "Frame" }

// BoolValue is a direct boolean input value.
type BoolValue bool

func (BoolValue) inputValueTag() string { return "Bool" }

// IntValue is a direct integer input value.
type IntValue int32

func (IntValue) inputValueTag() string { return "Int" }

// FloatValue is a direct floating-point input value.
type FloatValue float32

func (FloatValue) inputValueTag() string { return "Float" }

// DimensionsValue is a direct (width, height) input value.
type DimensionsValue struct {
	Width, Height uint32
}

func (DimensionsValue) inputValueTag() string { return "Dimensions" }

// PixelValue is a direct RGBA color input value, components in [0, 1].
type PixelValue struct {
	R, G, B, A float32
}

func (PixelValue) inputValueTag() string { return "Pixel" }

// TextValue is a direct text input value.
type TextValue string

func (TextValue) inputValueTag() string { return "Text" }

// EnumValue is a direct enum input value, an index into the input's
// declared choices.
type EnumValue int

func (EnumValue) inputValueTag() string { return "Enum" }

// FileValue is a direct filesystem path input value.
type FileValue string

func (FileValue) inputValueTag() string { return "File" }

// jsonInputValue mirrors InputValue's externally-tagged on-disk form for
// marshaling/unmarshaling (see node.json's convention in package library).
type jsonInputValue struct {
	Connection *ConnectionValue `json:"Connection,omitempty"`
	Frame      *struct{}        `json:"Frame,omitempty"`
	Bool       *bool            `json:"Bool,omitempty"`
	Int        *int32           `json:"Int,omitempty"`
	Float      *float32         `json:"Float,omitempty"`
	Dimensions *DimensionsValue `json:"Dimensions,omitempty"`
	Pixel      *PixelValue      `json:"Pixel,omitempty"`
	Text       *string          `json:"Text,omitempty"`
	Enum       *int             `json:"Enum,omitempty"`
	File       *string          `json:"File,omitempty"`
}

// marshalInputValue renders an InputValue in externally-tagged JSON form.
func marshalInputValue(v InputValue) ([]byte, error) {
	switch val := v.(type) {
	case ConnectionValue:
		return json.Marshal(jsonInputValue{Connection: &val})
	case FrameValue:
		return json.Marshal(jsonInputValue{Frame: &struct{}{}})
	case BoolValue:
		b := bool(val)
		return json.Marshal(jsonInputValue{Bool: &b})
	case IntValue:
		i := int32(val)
		return json.Marshal(jsonInputValue{Int: &i})
	case FloatValue:
		f := float32(val)
		return json.Marshal(jsonInputValue{Float: &f})
	case DimensionsValue:
		return json.Marshal(jsonInputValue{Dimensions: &val})
	case PixelValue:
		return json.Marshal(jsonInputValue{Pixel: &val})
	case TextValue:
		s := string(val)
		return json.Marshal(jsonInputValue{Text: &s})
	case EnumValue:
		e := int(val)
		return json.Marshal(jsonInputValue{Enum: &e})
	case FileValue:
		s := string(val)
		return json.Marshal(jsonInputValue{File: &s})
	default:
		return nil, fmt.Errorf("graph: unknown InputValue type %T", v)
	}
}

// unmarshalInputValue parses an InputValue from its externally-tagged JSON
// form.
func unmarshalInputValue(data []byte) (InputValue, error) {
	var raw jsonInputValue
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("graph: malformed input value: %w", err)
	}

	switch {
	case raw.Connection != nil:
		return *raw.Connection, nil
	case raw.Frame != nil:
		return FrameValue{}, nil
	case raw.Bool != nil:
		return BoolValue(*raw.Bool), nil
	case raw.Int != nil:
		return IntValue(*raw.Int), nil
	case raw.Float != nil:
		return FloatValue(*raw.Float), nil
	case raw.Dimensions != nil:
		return *raw.Dimensions, nil
	case raw.Pixel != nil:
		return *raw.Pixel, nil
	case raw.Text != nil:
		return TextValue(*raw.Text), nil
	case raw.Enum != nil:
		return EnumValue(*raw.Enum), nil
	case raw.File != nil:
		return FileValue(*raw.File), nil
	default:
		return nil, fmt.Errorf("graph: input value object has no recognized tag")
	}
}
