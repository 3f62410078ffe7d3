// Package palette maps cell values to display colors.
//
// A palette is rendering configuration only. The ledger stores bare value
// indexes and never consults colors, so two deployments can render the
// same canvas state with different palettes. Index 0 is the unplaced
// color, the tone of cells nobody has written yet.
package palette

import (
	"fmt"

	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas"
)

// Color is one palette entry.
type Color struct {
	R, G, B, A uint8
}

// Hex formats the color as #rrggbb, or #rrggbbaa when not fully opaque.
func (c Color) Hex() string {
	if c.A != 0xff {
		return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseHex parses a #rrggbb or #rrggbbaa color string.
func ParseHex(s string) (Color, error) {
	if len(s) == 0 || s[0] != '#' {
		return Color{}, fmt.Errorf("color %q must start with #", s)
	}
	digits := s[1:]
	if len(digits) != 6 && len(digits) != 8 {
		return Color{}, fmt.Errorf("color %q must have 6 or 8 hex digits", s)
	}

	var parts [4]uint8
	parts[3] = 0xff
	for i := 0; i < len(digits)/2; i++ {
		hi, ok := hexDigit(digits[2*i])
		if !ok {
			return Color{}, fmt.Errorf("color %q has a non-hex digit", s)
		}
		lo, ok := hexDigit(digits[2*i+1])
		if !ok {
			return Color{}, fmt.Errorf("color %q has a non-hex digit", s)
		}
		parts[i] = hi<<4 | lo
	}
	return Color{R: parts[0], G: parts[1], B: parts[2], A: parts[3]}, nil
}

func hexDigit(b byte) (uint8, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}

// Palette is an ordered color table indexed by cell value.
type Palette []Color

// Validate checks the palette size against the canvas palette bounds.
func (p Palette) Validate() error {
	if len(p) < canvas.MinPaletteSize || len(p) > canvas.MaxPaletteSize {
		return fmt.Errorf("palette has %d colors, want between %d and %d",
			len(p), canvas.MinPaletteSize, canvas.MaxPaletteSize)
	}
	return nil
}

// defaultColors is the built-in 32-color table. Index 0 is white, the
// unplaced color.
var defaultColors = Palette{
	{0xff, 0xff, 0xff, 0xff}, // white (unplaced)
	{0x18, 0x14, 0x25, 0xff}, // near black
	{0x26, 0x2b, 0x44, 0xff}, // dark navy
	{0x3a, 0x44, 0x66, 0xff}, // slate
	{0x5a, 0x69, 0x88, 0xff}, // steel
	{0x8b, 0x9b, 0xb4, 0xff}, // fog
	{0xc0, 0xcb, 0xdc, 0xff}, // silver
	{0xff, 0x00, 0x44, 0xff}, // magenta red
	{0xa2, 0x26, 0x33, 0xff}, // maroon
	{0xe4, 0x3b, 0x44, 0xff}, // red
	{0xf6, 0x75, 0x7a, 0xff}, // salmon
	{0xb5, 0x50, 0x88, 0xff}, // plum
	{0x68, 0x38, 0x6c, 0xff}, // purple
	{0xbe, 0x4a, 0x2f, 0xff}, // rust
	{0xd7, 0x76, 0x43, 0xff}, // terracotta
	{0xf7, 0x76, 0x22, 0xff}, // orange
	{0xfe, 0xae, 0x34, 0xff}, // amber
	{0xfe, 0xe7, 0x61, 0xff}, // yellow
	{0xe8, 0xb7, 0x96, 0xff}, // sand
	{0xe4, 0xa6, 0x72, 0xff}, // tan
	{0xea, 0xd4, 0xaa, 0xff}, // cream
	{0xc2, 0x85, 0x69, 0xff}, // clay
	{0xb8, 0x6f, 0x50, 0xff}, // umber
	{0x73, 0x3e, 0x39, 0xff}, // brown
	{0x3e, 0x27, 0x31, 0xff}, // dark brown
	{0x63, 0xc7, 0x4d, 0xff}, // green
	{0x3e, 0x89, 0x48, 0xff}, // forest
	{0x26, 0x5c, 0x42, 0xff}, // pine
	{0x19, 0x3c, 0x3e, 0xff}, // deep teal
	{0x2c, 0xe8, 0xf5, 0xff}, // cyan
	{0x00, 0x99, 0xdb, 0xff}, // blue
	{0x12, 0x4e, 0x89, 0xff}, // navy
}

// Default returns the built-in 32-color palette.
func Default() Palette {
	return append(Palette(nil), defaultColors...)
}
