package media

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// LoadFrameFromImageFile decodes a PNG or JPEG file on disk into a Frame,
// converting it to RGBA as it decodes. Grounds the ImageSource built-in
// node handler.
func LoadFrameFromImageFile(path string) (Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return Frame{}, fmt.Errorf("media: open image %s: %w", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return Frame{}, fmt.Errorf("media: decode image %s: %w", path, err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	dimensions, ok := NewDimensions(uint32(bounds.Dx()), uint32(bounds.Dy()))
	if !ok {
		return Frame{}, fmt.Errorf("media: image %s: invalid dimensions %dx%d", path, bounds.Dx(), bounds.Dy())
	}

	return FrameFromRawData(dimensions, rgba.Pix)
}
