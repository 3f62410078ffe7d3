// Package render turns canvas value grids into PNG images.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/palette"
)

const (
	// MaxScale is the largest pixels-per-cell factor.
	MaxScale = 64
	// MaxImageSide caps the output image width and height in pixels.
	MaxImageSide = 8192
)

// PNG renders a width by height value grid through pal, drawing each cell
// as a scale by scale block. The encoding is deterministic: identical
// inputs produce identical bytes, so content addresses derived from the
// output are stable.
func PNG(values []uint8, width, height int, pal palette.Palette, scale int) ([]byte, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("render: dimensions %dx%d are invalid", width, height)
	}
	if len(values) != width*height {
		return nil, fmt.Errorf("render: got %d values, want %d", len(values), width*height)
	}
	if scale < 1 || scale > MaxScale {
		return nil, fmt.Errorf("render: scale %d must be between 1 and %d", scale, MaxScale)
	}
	if width*scale > MaxImageSide || height*scale > MaxImageSide {
		return nil, fmt.Errorf("render: %dx%d at scale %d exceeds the %d pixel side limit",
			width, height, scale, MaxImageSide)
	}
	if err := pal.Validate(); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width*scale, height*scale))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := values[y*width+x]
			if int(v) >= len(pal) {
				return nil, fmt.Errorf("render: value %d at (%d, %d) is outside the %d color palette",
					v, x, y, len(pal))
			}
			c := pal[v]
			px := color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
			for dy := 0; dy < scale; dy++ {
				for dx := 0; dx < scale; dx++ {
					img.SetNRGBA(x*scale+dx, y*scale+dy, px)
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("render: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
