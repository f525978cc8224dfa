package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// defaultGrid is semi-transparent red, visible on both white sheets and
// colored previews.
var defaultGrid = color.NRGBA{R: 255, A: 128}

// ParseHexColor parses a hex color string like "#FF0000" or "#FF000080".
// The leading '#' is optional.
func ParseHexColor(hex string) (color.NRGBA, error) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: want 6 or 8 digits", hex)
	}

	val, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	if len(hex) == 6 {
		return color.NRGBA{R: uint8(val >> 16), G: uint8(val >> 8), B: uint8(val), A: 0xFF}, nil
	}
	return color.NRGBA{R: uint8(val >> 24), G: uint8(val >> 16), B: uint8(val >> 8), A: uint8(val)}, nil
}

// drawGrid draws a transfer grid every spacing pixels and labels each line
// with its pixel offset along the top and left edges, so a sheet can be
// scaled onto a canvas square by square.
func drawGrid(img *image.RGBA, spacing int, c color.Color) {
	if spacing <= 0 {
		return
	}
	if c == nil {
		c = defaultGrid
	}
	bounds := img.Bounds()
	src := image.NewUniform(c)

	for x := bounds.Min.X + spacing; x < bounds.Max.X; x += spacing {
		draw.Draw(img, image.Rect(x, bounds.Min.Y, x+1, bounds.Max.Y), src, image.Point{}, draw.Over)
	}
	for y := bounds.Min.Y + spacing; y < bounds.Max.Y; y += spacing {
		draw.Draw(img, image.Rect(bounds.Min.X, y, bounds.Max.X, y+1), src, image.Point{}, draw.Over)
	}

	for x := spacing; x < bounds.Dx(); x += spacing {
		drawTag(img, bounds.Min.X+x+2, bounds.Min.Y+1, strconv.Itoa(x))
	}
	for y := spacing; y < bounds.Dy(); y += spacing {
		drawTag(img, bounds.Min.X+1, bounds.Min.Y+y+2, strconv.Itoa(y))
	}
}

var (
	tagInk        = color.White
	tagBackground = color.NRGBA{A: 180}
)

// drawTag writes text with its top-left corner at (x, y) on a dark box.
func drawTag(img *image.RGBA, x, y int, text string) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	box := image.Rect(x-1, y-1, x+width+1, y+face.Height)
	draw.Draw(img, box.Intersect(img.Bounds()), image.NewUniform(tagBackground), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(tagInk),
		Face: face,
		Dot:  fixed.P(x, y+face.Ascent),
	}
	d.DrawString(text)
}
