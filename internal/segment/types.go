package segment

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// RGB is an opaque 8-bit color. It implements color.Color so palette entries
// can be handed directly to image/draw and the render package.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// RGBA implements color.Color.
func (c RGB) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R)
	r |= r << 8
	g = uint32(c.G)
	g |= g << 8
	b = uint32(c.B)
	b |= b << 8
	return r, g, b, 0xffff
}

// Hex returns the color as "#RRGGBB".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// DistanceSq is the squared Euclidean distance in RGB space.
func (c RGB) DistanceSq(o RGB) int {
	dr := int(c.R) - int(o.R)
	dg := int(c.G) - int(o.G)
	db := int(c.B) - int(o.B)
	return dr*dr + dg*dg + db*db
}

// RGBFromColor converts any color.Color, dropping alpha.
func RGBFromColor(c color.Color) RGB {
	r, g, b, _ := c.RGBA()
	return RGB{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
}

// PixelBuffer is a WxH grid of RGB pixels stored row-major.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []RGB
}

// NewPixelBuffer allocates a black buffer.
func NewPixelBuffer(width, height int) *PixelBuffer {
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]RGB, width*height),
	}
}

// FromImage copies img into a PixelBuffer. The image is normalized to NRGBA
// first so any decoder output (YCbCr, paletted, 16-bit) is read the same way.
// Alpha is discarded, matching a color decode of the upload.
func FromImage(img image.Image) *PixelBuffer {
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	buf := NewPixelBuffer(w, h)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w; x++ {
			buf.Pix[y*w+x] = RGB{R: row[x*4], G: row[x*4+1], B: row[x*4+2]}
		}
	}
	return buf
}

// At returns the pixel at (x, y). No bounds checking is performed.
func (b *PixelBuffer) At(x, y int) RGB {
	return b.Pix[y*b.Width+x]
}

// Set stores c at (x, y). No bounds checking is performed.
func (b *PixelBuffer) Set(x, y int, c RGB) {
	b.Pix[y*b.Width+x] = c
}

// Image renders the buffer as an opaque RGBA image.
func (b *PixelBuffer) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	for i, c := range b.Pix {
		o := i * 4
		img.Pix[o] = c.R
		img.Pix[o+1] = c.G
		img.Pix[o+2] = c.B
		img.Pix[o+3] = 0xff
	}
	return img
}

// Palette is the ordered list of representative colors. Index i is the
// color identity of label i.
type Palette []RGB

// Nearest returns the index of the palette entry closest to c. Ties resolve
// to the lowest index.
func (p Palette) Nearest(c RGB) int {
	best, bestDist := 0, -1
	for i, pc := range p {
		d := c.DistanceSq(pc)
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Color satisfies color.Palette-style lookups for renderers.
func (p Palette) Color() color.Palette {
	out := make(color.Palette, len(p))
	for i, c := range p {
		out[i] = c
	}
	return out
}

// LabelMap assigns every pixel one label in [0, K).
type LabelMap struct {
	Width  int
	Height int
	K      int
	Labels []int
}

// NewLabelMap allocates a map with every pixel on label 0.
func NewLabelMap(width, height, k int) *LabelMap {
	return &LabelMap{
		Width:  width,
		Height: height,
		K:      k,
		Labels: make([]int, width*height),
	}
}

// At returns the label at (x, y). No bounds checking is performed.
func (m *LabelMap) At(x, y int) int {
	return m.Labels[y*m.Width+x]
}

// Counts returns the pixel population of each label.
func (m *LabelMap) Counts() []int {
	counts := make([]int, m.K)
	for _, l := range m.Labels {
		counts[l]++
	}
	return counts
}

// Mask builds the binary mask of pixels carrying label.
func (m *LabelMap) Mask(label int) *Mask {
	mask := NewMask(m.Width, m.Height)
	for i, l := range m.Labels {
		if l == label {
			mask.Bits[i] = true
		}
	}
	return mask
}

// Mask is a WxH binary grid; true marks foreground.
type Mask struct {
	Width  int
	Height int
	Bits   []bool
}

// NewMask allocates an empty mask.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Bits:   make([]bool, width*height),
	}
}

// At reports whether (x, y) is foreground. Out-of-bounds reads are background.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Bits[y*m.Width+x]
}

// Set marks (x, y). No bounds checking is performed.
func (m *Mask) Set(x, y int, v bool) {
	m.Bits[y*m.Width+x] = v
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// bounds returns the smallest rectangle holding every foreground pixel.
// ok is false for an empty mask.
func (m *Mask) bounds() (r image.Rectangle, ok bool) {
	minX, minY, maxX, maxY := m.Width, m.Height, -1, -1
	for y := 0; y < m.Height; y++ {
		row := m.Bits[y*m.Width : (y+1)*m.Width]
		for x, b := range row {
			if !b {
				continue
			}
			minX = min(minX, x)
			maxX = max(maxX, x)
			minY = min(minY, y)
			maxY = max(maxY, y)
		}
	}
	if maxX < 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// Gray converts the mask to an 8-bit image with foreground at 255.
func (m *Mask) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, b := range m.Bits {
		if b {
			img.Pix[i] = 0xff
		}
	}
	return img
}

// MaskFromImage thresholds img at mid-gray. The red channel is read, which
// for the gray images produced by Gray is the intensity.
func MaskFromImage(img image.Image) *Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if r>>8 > 127 {
				m.Bits[y*m.Width+x] = true
			}
		}
	}
	return m
}

// Point is an integer pixel coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Contour is a closed point sequence; the last point connects back to the
// first implicitly.
type Contour []Point
