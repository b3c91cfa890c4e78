package media

import (
	"errors"
	"fmt"

	"github.com/oxy-compositor/engine/common"
)

// ErrDifferentDimensions is returned when an operation requires two frames
// (or a frame and a buffer) to share Dimensions but they don't.
var ErrDifferentDimensions = errors.New("media: frames have different dimensions")

// Frame is a 2D buffer of Pixels with a fixed set of Dimensions and a Uid
// that identifies this particular buffer's identity across time (not its
// content — two frames with identical pixels can have different Uids, and a
// frame that's mutated in place via FillFromFrame keeps its Uid).
type Frame struct {
	pixels     []Pixel
	dimensions Dimensions
	uid        Uid
}

// FrameFromBuffer creates a Frame that takes ownership of buf. len(buf) must
// equal dimensions.Width()*dimensions.Height(); this is not checked for
// performance, callers must ensure it holds.
func FrameFromBuffer(dimensions Dimensions, buf []Pixel) Frame {
	return Frame{pixels: buf, dimensions: dimensions, uid: NewUid()}
}

// FrameFromFill creates a Frame of the given Dimensions filled entirely with
// one pixel.
func FrameFromFill(dimensions Dimensions, fill Pixel) Frame {
	buf := make([]Pixel, dimensions.Area())
	for i := range buf {
		buf[i] = fill
	}
	return FrameFromBuffer(dimensions, buf)
}

// FrameFromFillFunc creates a Frame of the given Dimensions, calling fn once
// per pixel index (row-major, index = y*width+x) to determine its value.
func FrameFromFillFunc(dimensions Dimensions, fn func(index uint32) Pixel) Frame {
	buf := make([]Pixel, dimensions.Area())
	for i := range buf {
		buf[i] = fn(uint32(i))
	}
	return FrameFromBuffer(dimensions, buf)
}

// FrameFromFillCoordsFunc is like FrameFromFillFunc but calls fn with (x, y)
// coordinates instead of a flat index.
func FrameFromFillCoordsFunc(dimensions Dimensions, fn func(x, y uint32) Pixel) Frame {
	width := dimensions.Width()
	return FrameFromFillFunc(dimensions, func(index uint32) Pixel {
		return fn(index%width, index/width)
	})
}

// FrameFromPixels creates a Frame from an existing slice of pixels, copying
// it. Returns an error if len(pixels) doesn't match dimensions.
func FrameFromPixels(dimensions Dimensions, pixels []Pixel) (Frame, error) {
	if uint64(len(pixels)) != dimensions.Area() {
		return Frame{}, fmt.Errorf("media: expected %d pixels for %s, got %d", dimensions.Area(), dimensions, len(pixels))
	}
	buf := make([]Pixel, len(pixels))
	copy(buf, pixels)
	return FrameFromBuffer(dimensions, buf), nil
}

// FrameFromRawData creates a Frame from raw RGBA bytes (4 bytes per pixel,
// row-major), copying it. Returns an error if len(data) doesn't match
// dimensions.Area()*4.
func FrameFromRawData(dimensions Dimensions, data []byte) (Frame, error) {
	expected := dimensions.Area() * 4
	if uint64(len(data)) != expected {
		return Frame{}, fmt.Errorf("media: expected %d raw bytes for %s, got %d", expected, dimensions, len(data))
	}

	buf := make([]Pixel, dimensions.Area())
	for i := range buf {
		off := i * 4
		buf[i] = Pixel{data[off], data[off+1], data[off+2], data[off+3]}
	}
	return FrameFromBuffer(dimensions, buf), nil
}

// Dimensions returns the frame's Dimensions.
func (f Frame) Dimensions() Dimensions { return f.dimensions }

// Uid returns the frame's identity marker.
func (f Frame) Uid() Uid { return f.uid }

// Pixels returns the frame's pixel buffer in row-major order. The caller
// must not retain or mutate the returned slice across a SwapInternal.
func (f Frame) Pixels() []Pixel { return f.pixels }

// At returns the pixel at (x, y). Panics if y*width+x is past the end of
// the pixel buffer; x is not checked against the width on its own.
func (f Frame) At(x, y uint32) Pixel {
	return f.pixels[y*f.dimensions.Width()+x]
}

// RawData reinterprets the frame's pixel buffer as raw RGBA bytes
// (row-major, 4 bytes per pixel) without copying, suitable for a GPU texture
// upload.
func (f Frame) RawData() []byte {
	return common.SliceToBytes(f.pixels)
}

// Clone returns a deep copy of f with a fresh Uid.
func (f Frame) Clone() Frame {
	buf := make([]Pixel, len(f.pixels))
	copy(buf, f.pixels)
	return FrameFromBuffer(f.dimensions, buf)
}

// FillFromFrame overwrites f's pixel buffer in place with src's pixels,
// preserving f's Uid (the underlying buffer's identity doesn't change, only
// its content). Returns ErrDifferentDimensions if the dimensions don't
// match.
func (f *Frame) FillFromFrame(src Frame) error {
	if f.dimensions != src.dimensions {
		return ErrDifferentDimensions
	}
	copy(f.pixels, src.pixels)
	return nil
}

// SwapInternal swaps f's pixel buffer with other's, preserving both frames'
// Uids (only the content moves, not the identity). Returns
// ErrDifferentDimensions if the dimensions don't match.
func (f *Frame) SwapInternal(other *Frame) error {
	if f.dimensions != other.dimensions {
		return ErrDifferentDimensions
	}
	f.pixels, other.pixels = other.pixels, f.pixels
	return nil
}

// RescaleNearest returns a new Frame resized to newDimensions using
// nearest-neighbor sampling.
func (f Frame) RescaleNearest(newDimensions Dimensions) Frame {
	srcW, srcH := float64(f.dimensions.Width()), float64(f.dimensions.Height())
	dstW, dstH := newDimensions.Width(), newDimensions.Height()

	return FrameFromFillCoordsFunc(newDimensions, func(x, y uint32) Pixel {
		srcX := uint32((float64(x) + 0.5) * srcW / float64(dstW))
		srcY := uint32((float64(y) + 0.5) * srcH / float64(dstH))
		srcX = clampU32(srcX, 0, f.dimensions.Width()-1)
		srcY = clampU32(srcY, 0, f.dimensions.Height()-1)
		return f.At(srcX, srcY)
	})
}

// RescaleBilinear returns a new Frame resized to newDimensions using
// bilinear interpolation.
func (f Frame) RescaleBilinear(newDimensions Dimensions) Frame {
	srcW, srcH := float64(f.dimensions.Width()), float64(f.dimensions.Height())
	dstW, dstH := newDimensions.Width(), newDimensions.Height()

	return FrameFromFillCoordsFunc(newDimensions, func(x, y uint32) Pixel {
		srcX := (float64(x)+0.5)*srcW/float64(dstW) - 0.5
		srcY := (float64(y)+0.5)*srcH/float64(dstH) - 0.5

		x0 := clampInt(int(floor(srcX)), 0, int(f.dimensions.Width())-1)
		y0 := clampInt(int(floor(srcY)), 0, int(f.dimensions.Height())-1)
		x1 := clampInt(x0+1, 0, int(f.dimensions.Width())-1)
		y1 := clampInt(y0+1, 0, int(f.dimensions.Height())-1)

		tx := srcX - floor(srcX)
		ty := srcY - floor(srcY)
		if tx < 0 {
			tx = 0
		}
		if ty < 0 {
			ty = 0
		}

		p00 := f.At(uint32(x0), uint32(y0))
		p10 := f.At(uint32(x1), uint32(y0))
		p01 := f.At(uint32(x0), uint32(y1))
		p11 := f.At(uint32(x1), uint32(y1))

		return lerpPixel2D(p00, p10, p01, p11, tx, ty)
	})
}

// RescaleBicubic returns a new Frame resized to newDimensions using
// Catmull-Rom bicubic interpolation (a=-0.5) over a 4x4 neighborhood,
// clamped at the edges.
func (f Frame) RescaleBicubic(newDimensions Dimensions) Frame {
	srcW, srcH := float64(f.dimensions.Width()), float64(f.dimensions.Height())
	dstW, dstH := newDimensions.Width(), newDimensions.Height()

	return FrameFromFillCoordsFunc(newDimensions, func(x, y uint32) Pixel {
		srcX := (float64(x)+0.5)*srcW/float64(dstW) - 0.5
		srcY := (float64(y)+0.5)*srcH/float64(dstH) - 0.5

		ix := int(floor(srcX))
		iy := int(floor(srcY))
		fx := srcX - floor(srcX)
		fy := srcY - floor(srcY)

		var channels [4]float64
		for c := 0; c < 4; c++ {
			var rows [4]float64
			for j := -1; j <= 2; j++ {
				sy := clampInt(iy+j, 0, int(f.dimensions.Height())-1)
				var samples [4]float64
				for i := -1; i <= 2; i++ {
					sx := clampInt(ix+i, 0, int(f.dimensions.Width())-1)
					samples[i+1] = float64(f.At(uint32(sx), uint32(sy))[c])
				}
				rows[j+1] = cubicHermite(samples[0], samples[1], samples[2], samples[3], fx)
			}
			channels[c] = cubicHermite(rows[0], rows[1], rows[2], rows[3], fy)
		}

		return Pixel{
			clampByteF(channels[0]),
			clampByteF(channels[1]),
			clampByteF(channels[2]),
			clampByteF(channels[3]),
		}
	})
}

// cubicHermite interpolates using the Catmull-Rom spline (a=-0.5).
func cubicHermite(p0, p1, p2, p3, t float64) float64 {
	const a = -0.5
	c0 := a*p0 + (a+2)*p1 - (a+2)*p2 - a*p3
	c1 := -2*a*p0 - (a+3)*p1 + (2*a+3)*p2 + a*p3
	c2 := a*p0 - a*p2
	c3 := p1
	return ((c0*t+c1)*t+c2)*t + c3
}

func lerpPixel2D(p00, p10, p01, p11 Pixel, tx, ty float64) Pixel {
	var out Pixel
	for c := 0; c < 4; c++ {
		top := float64(p00[c])*(1-tx) + float64(p10[c])*tx
		bottom := float64(p01[c])*(1-tx) + float64(p11[c])*tx
		out[c] = clampByteF(top*(1-ty) + bottom*ty)
	}
	return out
}

func clampByteF(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v + 0.5)
}

func clampU32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func floor(v float64) float64 {
	i := float64(int64(v))
	if v < 0 && i != v {
		return i - 1
	}
	return i
}
