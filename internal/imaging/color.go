package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-359 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorResult contains a color value in the representations clients ask
// for: a "#RRGGBB" string, 8-bit components, alpha, and HSL.
type ColorResult struct {
	Hex   string   `json:"hex"`
	RGB   RGBColor `json:"rgb"`
	Alpha uint8    `json:"alpha"`
	HSL   HSLColor `json:"hsl"`
}

// DescribeColor converts c into a ColorResult. Alpha-premultiplied inputs
// are reported with their premultiplied components.
func DescribeColor(c color.Color) ColorResult {
	r, g, b, a := c.RGBA()
	r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(b>>8)

	cf := colorful.Color{R: float64(r8) / 255, G: float64(g8) / 255, B: float64(b8) / 255}
	h, s, l := cf.Hsl()
	if math.IsNaN(h) {
		h = 0
	}

	return ColorResult{
		Hex:   fmt.Sprintf("#%02X%02X%02X", r8, g8, b8),
		RGB:   RGBColor{R: r8, G: g8, B: b8},
		Alpha: uint8(a >> 8),
		HSL: HSLColor{
			H: int(math.Round(h)) % 360,
			S: int(math.Round(s * 100)),
			L: int(math.Round(l * 100)),
		},
	}
}

// SampleColor returns the color at (x, y). Coordinates are 0-based with
// the origin at the image's top-left pixel.
func SampleColor(img image.Image, x, y int) (*ColorResult, error) {
	bounds := img.Bounds()
	px, py := bounds.Min.X+x, bounds.Min.Y+y
	if x < 0 || y < 0 || px >= bounds.Max.X || py >= bounds.Max.Y {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds %dx%d", x, y, bounds.Dx(), bounds.Dy())
	}
	res := DescribeColor(img.At(px, py))
	return &res, nil
}

// DescribePalette describes every palette entry in order, so index i of the
// result is the color painted for label i.
func DescribePalette(pal []color.Color) []ColorResult {
	out := make([]ColorResult, len(pal))
	for i, c := range pal {
		out[i] = DescribeColor(c)
	}
	return out
}
