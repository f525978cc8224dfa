// Package render draws pipeline results as rasters and vector documents.
//
// Every output is a projection of the same Result: the colored raster paints
// each pixel with its palette color, the outline raster draws region
// boundaries on white, the stylized raster blends the colored raster with an
// edge map, and SVG emits the simplified polygons. Region numbers are drawn
// at each region's anchor, counting palette entries from 1.
package render

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/ironsheep/paintbynumbers/internal/describe"
	"github.com/ironsheep/paintbynumbers/internal/pipeline"
	"github.com/ironsheep/paintbynumbers/internal/segment"
)

// ErrEmptyResult is returned when a result has no pixels to draw.
var ErrEmptyResult = errors.New("render: result has no pixels")

// Options controls what is drawn on top of a raster.
type Options struct {
	// Outlines draws each region's simplified polygon.
	Outlines bool

	// Numbers draws each region's palette number at its anchor. Regions
	// without an anchor get no number.
	Numbers bool

	// OutlineColor is the stroke color. Nil selects dark gray.
	OutlineColor color.Color

	// FromPolygons fills regions from their simplified polygons instead of
	// the per-pixel label map.
	FromPolygons bool

	// Grid draws a labeled transfer grid every Grid pixels. Zero disables
	// it.
	Grid int

	// GridColor is the grid line color. Nil selects semi-transparent red.
	GridColor color.Color
}

var defaultOutline = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xFF}

func (o Options) stroke() color.Color {
	if o.OutlineColor != nil {
		return o.OutlineColor
	}
	return defaultOutline
}

// Label returns the number printed for a palette index.
func Label(colorIndex int) string {
	return strconv.Itoa(colorIndex + 1)
}

// Colored paints every pixel with its palette color and then applies the
// overlays selected in opts.
func Colored(res *pipeline.Result, opts Options) (*image.RGBA, error) {
	if res.Width <= 0 || res.Height <= 0 {
		return nil, ErrEmptyResult
	}

	var img *image.RGBA
	if opts.FromPolygons || res.Labels == nil {
		img = Filled(res)
	} else {
		img = fromLabels(res.Labels, res.Palette)
	}

	drawGrid(img, opts.Grid, opts.GridColor)
	if opts.Outlines {
		drawOutlines(img, res.Regions, opts.stroke())
	}
	if opts.Numbers {
		for _, r := range res.Regions {
			drawNumber(img, r, inkFor(res.Palette[r.ColorIndex]))
		}
	}
	return img, nil
}

// Outline draws region boundaries on a white canvas. Numbers follow
// opts.Numbers and are always black; opts.Outlines is implied.
func Outline(res *pipeline.Result, opts Options) (*image.RGBA, error) {
	if res.Width <= 0 || res.Height <= 0 {
		return nil, ErrEmptyResult
	}

	img := image.NewRGBA(image.Rect(0, 0, res.Width, res.Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	drawGrid(img, opts.Grid, opts.GridColor)

	stroke := opts.OutlineColor
	if stroke == nil {
		stroke = color.Black
	}
	drawOutlines(img, res.Regions, stroke)

	if opts.Numbers {
		for _, r := range res.Regions {
			drawNumber(img, r, color.Black)
		}
	}
	return img, nil
}

// Filled rasterizes the simplified polygons on white, in region order, so
// later regions paint over earlier ones where they overlap.
func Filled(res *pipeline.Result) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, res.Width, res.Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	z := vector.NewRasterizer(res.Width, res.Height)
	for _, r := range res.Regions {
		if len(r.Polygon) < 3 {
			continue
		}
		z.Reset(res.Width, res.Height)
		// Polygon vertices are pixel centers.
		z.MoveTo(float32(r.Polygon[0].X)+0.5, float32(r.Polygon[0].Y)+0.5)
		for _, p := range r.Polygon[1:] {
			z.LineTo(float32(p.X)+0.5, float32(p.Y)+0.5)
		}
		z.ClosePath()
		z.Draw(img, img.Bounds(), image.NewUniform(res.Palette[r.ColorIndex]), image.Point{})
	}
	return img
}

func fromLabels(labels *segment.LabelMap, pal segment.Palette) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, labels.Width, labels.Height))
	for i, l := range labels.Labels {
		c := pal[l]
		o := i * 4
		img.Pix[o+0] = c.R
		img.Pix[o+1] = c.G
		img.Pix[o+2] = c.B
		img.Pix[o+3] = 0xFF
	}
	return img
}

func drawOutlines(img draw.Image, regions []describe.Region, c color.Color) {
	for _, r := range regions {
		n := len(r.Polygon)
		for i := 0; i < n; i++ {
			line(img, r.Polygon[i], r.Polygon[(i+1)%n], c)
		}
	}
}

// line draws a one pixel wide segment with Bresenham's algorithm.
func line(img draw.Image, a, b segment.Point, c color.Color) {
	bounds := img.Bounds()
	dx, dy := abs(b.X-a.X), -abs(b.Y-a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	err := dx + dy
	x, y := a.X, a.Y
	for {
		if (image.Point{X: x, Y: y}).In(bounds) {
			img.Set(x, y, c)
		}
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

// drawNumber centers the region's label on its anchor.
func drawNumber(img draw.Image, r describe.Region, ink color.Color) {
	if r.Anchor == nil {
		return
	}
	face := basicfont.Face7x13
	text := Label(r.ColorIndex)
	width := font.MeasureString(face, text).Ceil()

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(ink),
		Face: face,
		Dot:  fixed.P(r.Anchor.X-width/2, r.Anchor.Y+face.Ascent/2),
	}
	d.DrawString(text)
}

// inkFor picks black or white text, whichever reads better on c.
func inkFor(c segment.RGB) color.Color {
	cf := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	l, _, _ := cf.Lab()
	if l > 0.6 {
		return color.Black
	}
	return color.White
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
