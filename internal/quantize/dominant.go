package quantize

import (
	"sort"

	"github.com/cenkalti/dominantcolor"

	"github.com/ironsheep/paintbynumbers/internal/segment"
)

// Dominant builds the palette from the K heaviest dominant colors and labels
// each pixel with its nearest entry. dominantcolor downsamples internally,
// so the palette is stable for a given image but not a partition of it.
type Dominant struct {
	Ops segment.ImageOps
}

// Quantize implements Quantizer. Images with at most K distinct colors use
// those colors directly, most populous first.
func (d Dominant) Quantize(buf *segment.PixelBuffer, k int) (*Result, error) {
	if err := validate(buf, k); err != nil {
		return nil, err
	}
	ops := d.Ops
	if ops == nil {
		ops = segment.NativeOps{}
	}

	counts := make(map[segment.RGB]int)
	for _, c := range buf.Pix {
		counts[c]++
	}

	pal := make(segment.Palette, 0, k)
	if len(counts) <= k {
		for c := range counts {
			pal = append(pal, c)
		}
		sort.Slice(pal, func(i, j int) bool {
			if counts[pal[i]] != counts[pal[j]] {
				return counts[pal[i]] > counts[pal[j]]
			}
			return packRGB(pal[i]) < packRGB(pal[j])
		})
	} else {
		for _, c := range dominantcolor.FindWeight(buf.Image(), k) {
			pal = append(pal, segment.RGBFromColor(c.RGBA))
		}
	}
	pal = pad(pal, k)

	return &Result{
		Palette: pal,
		Labels:  ops.Assign(buf, pal),
		Stats:   Stats{Converged: true, DistinctColors: len(counts)},
	}, nil
}
