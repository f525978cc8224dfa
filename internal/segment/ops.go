package segment

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/effect"

	"github.com/ironsheep/paintbynumbers/internal/parallel"
)

// ImageOps is the capability object behind every vision primitive used by
// the quantizer and the region extractor. Implementations must be pure: the
// inputs are never modified and a fresh result is returned.
type ImageOps interface {
	// Erode keeps a pixel only if every kernel offset around it is
	// foreground. Pixels outside the image count as foreground.
	Erode(m *Mask, k Kernel) *Mask

	// Dilate sets a pixel if any kernel offset around it is foreground.
	// Pixels outside the image count as background.
	Dilate(m *Mask, k Kernel) *Mask

	// Assign maps every pixel to the index of its nearest palette entry.
	Assign(buf *PixelBuffer, pal Palette) *LabelMap
}

// Kernel is a symmetric structuring element described by its offsets from
// the anchor pixel.
type Kernel struct {
	Size    int
	Offsets []Point
}

// Radius is the half-width of the kernel.
func (k Kernel) Radius() int {
	return k.Size / 2
}

// Ellipse builds a size x size elliptical structuring element. Row widths
// are rounded the same way common vision libraries do, so Ellipse(5) is
//
//	..#..
//	#####
//	#####
//	#####
//	..#..
func Ellipse(size int) Kernel {
	if size < 1 {
		size = 1
	}
	r := size / 2
	c := size / 2
	invR2 := 0.0
	if r > 0 {
		invR2 = 1 / float64(r*r)
	}

	k := Kernel{Size: size}
	for i := 0; i < size; i++ {
		dy := i - r
		if abs(dy) > r {
			continue
		}
		dx := int(math.Round(float64(c) * math.Sqrt(float64(r*r-dy*dy)*invR2)))
		j1 := max(c-dx, 0)
		j2 := min(c+dx+1, size)
		for j := j1; j < j2; j++ {
			k.Offsets = append(k.Offsets, Point{X: j - c, Y: dy})
		}
	}
	return k
}

// Open removes foreground specks smaller than the kernel.
func Open(ops ImageOps, m *Mask, k Kernel) *Mask {
	return ops.Dilate(ops.Erode(m, k), k)
}

// Close fills background gaps smaller than the kernel.
func Close(ops ImageOps, m *Mask, k Kernel) *Mask {
	return ops.Erode(ops.Dilate(m, k), k)
}

// NativeOps is the pure Go ImageOps. Workers > 1 splits pixel rows across
// goroutines; the output does not depend on the worker count.
type NativeOps struct {
	Workers int
}

// Erode implements ImageOps.
func (o NativeOps) Erode(m *Mask, k Kernel) *Mask {
	out := NewMask(m.Width, m.Height)
	box, ok := m.bounds()
	if !ok {
		return out
	}
	parallel.Rows(box.Dy(), o.workers(), func(lo, hi int) {
		for y := box.Min.Y + lo; y < box.Min.Y+hi; y++ {
			for x := box.Min.X; x < box.Max.X; x++ {
				if !m.Bits[y*m.Width+x] {
					continue
				}
				keep := true
				for _, off := range k.Offsets {
					nx, ny := x+off.X, y+off.Y
					if nx < 0 || ny < 0 || nx >= m.Width || ny >= m.Height {
						continue
					}
					if !m.Bits[ny*m.Width+nx] {
						keep = false
						break
					}
				}
				out.Bits[y*m.Width+x] = keep
			}
		}
	})
	return out
}

// Dilate implements ImageOps.
func (o NativeOps) Dilate(m *Mask, k Kernel) *Mask {
	out := NewMask(m.Width, m.Height)
	box, ok := m.bounds()
	if !ok {
		return out
	}
	r := k.Radius()
	box = image.Rect(box.Min.X-r, box.Min.Y-r, box.Max.X+r, box.Max.Y+r).
		Intersect(image.Rect(0, 0, m.Width, m.Height))
	parallel.Rows(box.Dy(), o.workers(), func(lo, hi int) {
		for y := box.Min.Y + lo; y < box.Min.Y+hi; y++ {
			for x := box.Min.X; x < box.Max.X; x++ {
				for _, off := range k.Offsets {
					if m.At(x+off.X, y+off.Y) {
						out.Bits[y*m.Width+x] = true
						break
					}
				}
			}
		}
	})
	return out
}

// Assign implements ImageOps. A small cache keyed by color keeps flat images
// cheap, since most pixels repeat a handful of colors after conditioning.
func (o NativeOps) Assign(buf *PixelBuffer, pal Palette) *LabelMap {
	lm := NewLabelMap(buf.Width, buf.Height, len(pal))
	parallel.Rows(buf.Height, o.workers(), func(lo, hi int) {
		cache := make(map[RGB]int)
		for i := lo * buf.Width; i < hi*buf.Width; i++ {
			c := buf.Pix[i]
			idx, ok := cache[c]
			if !ok {
				idx = pal.Nearest(c)
				cache[c] = idx
			}
			lm.Labels[i] = idx
		}
	})
	return lm
}

func (o NativeOps) workers() int {
	if o.Workers < 1 {
		return 1
	}
	return o.Workers
}

// BildOps routes morphology through bild's circular min/max filters. The
// kernel is approximated by a disk of the same radius; image borders are
// handled by bild's edge extension, so regions touching the border are kept.
// Assignment falls back to NativeOps.
type BildOps struct {
	NativeOps
}

// Erode implements ImageOps.
func (o BildOps) Erode(m *Mask, k Kernel) *Mask {
	if k.Radius() == 0 {
		return cloneMask(m)
	}
	return MaskFromImage(effect.Erode(m.Gray(), float64(k.Radius())))
}

// Dilate implements ImageOps.
func (o BildOps) Dilate(m *Mask, k Kernel) *Mask {
	if k.Radius() == 0 {
		return cloneMask(m)
	}
	return MaskFromImage(effect.Dilate(m.Gray(), float64(k.Radius())))
}

func cloneMask(m *Mask) *Mask {
	out := NewMask(m.Width, m.Height)
	copy(out.Bits, m.Bits)
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
