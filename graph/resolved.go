package graph

import "github.com/cogentcore/webgpu/wgpu"

// OutputValue is the value a node produced for one of its named outputs
// during execution, cached by graph/executor so downstream nodes can
// resolve their connected inputs from it.
type OutputValue interface {
	outputValueTag() string
}

// ResolvedInput is an InputValue that's been fully evaluated for a single
// execution: a Connection has been replaced by the upstream node's actual
// OutputValue, and literal values pass through unchanged. This is what
// graph/pipeline packs into a shader's uniform buffer (everything except
// ResolvedFrame, which instead becomes a bound texture).
type ResolvedInput interface {
	resolvedInputTag() string
}

// ResolvedFrame carries a GPU-resident frame — either a shader node's
// primary/additional texture input, or a built-in node's Frame output
// (e.g. ImageSource after it's uploaded a CPU image via graph/upload).
// This is deliberately a GPU texture view, not a media.Frame: graph
// execution operates on textures already resident on the device, while
// media.Frame is the CPU-side pixel buffer producers decode into. The
// Upload Stager is the bridge between the two.
type ResolvedFrame struct {
	View   *wgpu.TextureView
	Width  uint32
	Height uint32
}

func (ResolvedFrame) outputValueTag() string   { return "Frame" }
func (ResolvedFrame) resolvedInputTag() string { return "Frame" }

// ResolvedBool is a resolved boolean value.
type ResolvedBool bool

func (ResolvedBool) outputValueTag() string   { return "Bool" }
func (ResolvedBool) resolvedInputTag() string { return "Bool" }

// ResolvedInt is a resolved integer value.
type ResolvedInt int32

func (ResolvedInt) outputValueTag() string   { return "Int" }
func (ResolvedInt) resolvedInputTag() string { return "Int" }

// ResolvedFloat is a resolved floating-point value.
type ResolvedFloat float32

func (ResolvedFloat) outputValueTag() string   { return "Float" }
func (ResolvedFloat) resolvedInputTag() string { return "Float" }

// ResolvedDimensions is a resolved (width, height) value.
type ResolvedDimensions struct{ Width, Height uint32 }

func (ResolvedDimensions) outputValueTag() string   { return "Dimensions" }
func (ResolvedDimensions) resolvedInputTag() string { return "Dimensions" }

// ResolvedPixel is a resolved RGBA color value, components in [0, 1].
type ResolvedPixel struct{ R, G, B, A float32 }

func (ResolvedPixel) outputValueTag() string   { return "Pixel" }
func (ResolvedPixel) resolvedInputTag() string { return "Pixel" }

// ResolvedText is a resolved text value.
type ResolvedText string

func (ResolvedText) outputValueTag() string   { return "Text" }
func (ResolvedText) resolvedInputTag() string { return "Text" }

// ResolvedEnum is a resolved enum choice index. Enum isn't a NodeOutputKind
// (see library.NodeOutputKind), so it only ever appears as a ResolvedInput,
// never an OutputValue.
type ResolvedEnum int

func (ResolvedEnum) resolvedInputTag() string { return "Enum" }

// ResolvedFile is a resolved filesystem path. Like Enum, files are never
// produced as a node output.
type ResolvedFile string

func (ResolvedFile) resolvedInputTag() string { return "File" }

// ToResolvedInput converts a literal (non-Connection) InputValue directly
// into its ResolvedInput counterpart, used when an input has no upstream
// connection to resolve from.
func ToResolvedInput(v InputValue) (ResolvedInput, bool) {
	switch val := v.(type) {
	case BoolValue:
		return ResolvedBool(val), true
	case IntValue:
		return ResolvedInt(val), true
	case FloatValue:
		return ResolvedFloat(val), true
	case DimensionsValue:
		return ResolvedDimensions{Width: val.Width, Height: val.Height}, true
	case PixelValue:
		return ResolvedPixel{R: val.R, G: val.G, B: val.B, A: val.A}, true
	case TextValue:
		return ResolvedText(val), true
	case EnumValue:
		return ResolvedEnum(val), true
	case FileValue:
		return ResolvedFile(val), true
	default:
		return nil, false
	}
}

// OutputToResolvedInput converts an upstream node's OutputValue into the
// ResolvedInput a downstream node's Connection resolves to — a one-to-one
// conversion by shape, per spec.md's resolve_inputs contract.
func OutputToResolvedInput(v OutputValue) (ResolvedInput, bool) {
	switch val := v.(type) {
	case ResolvedFrame:
		return val, true
	case ResolvedBool:
		return val, true
	case ResolvedInt:
		return val, true
	case ResolvedFloat:
		return val, true
	case ResolvedDimensions:
		return val, true
	case ResolvedPixel:
		return val, true
	case ResolvedText:
		return val, true
	default:
		return nil, false
	}
}
