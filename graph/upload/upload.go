// Package upload stages CPU-decoded RGBA pixel data into GPU textures,
// per §4.H of the node-graph compositor spec: the bridge between
// media.Frame's CPU pixel buffers and the GPU texture views graph
// execution operates on.
package upload

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// copyRowAlignment is wgpu's required alignment, in bytes, for the
// bytes-per-row of a texture copy.
const copyRowAlignment = 256

// Stager uploads CPU RGBA buffers to GPU textures, padding each row to the
// platform's required copy alignment.
type Stager struct{}

// New creates an Upload Stager.
func New() *Stager {
	return &Stager{}
}

// Upload creates an RGBA8-unorm texture of the given extent and copies
// rgba (row-major, 4 bytes per pixel) into it, padding each row to
// copyRowAlignment where the unpadded row doesn't already satisfy it. It
// returns a default view of the uploaded texture.
func (s *Stager) Upload(device *wgpu.Device, queue *wgpu.Queue, width, height uint32, rgba []byte) (*wgpu.TextureView, uint32, uint32, error) {
	texture, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     "upload",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, 0, 0, err
	}

	unpaddedBytesPerRow := width * 4
	paddedBytesPerRow := alignUp(unpaddedBytesPerRow, copyRowAlignment)

	var data []byte
	if paddedBytesPerRow == unpaddedBytesPerRow {
		data = rgba
	} else {
		data = make([]byte, int(paddedBytesPerRow)*int(height))
		for row := uint32(0); row < height; row++ {
			srcOff := row * unpaddedBytesPerRow
			dstOff := row * paddedBytesPerRow
			copy(data[dstOff:dstOff+unpaddedBytesPerRow], rgba[srcOff:srcOff+unpaddedBytesPerRow])
		}
	}

	queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  paddedBytesPerRow,
			RowsPerImage: height,
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := texture.CreateView(nil)
	if err != nil {
		return nil, 0, 0, err
	}

	return view, width, height, nil
}

func alignUp(value, alignment uint32) uint32 {
	return (value + alignment - 1) &^ (alignment - 1)
}
