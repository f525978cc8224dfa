package quantize

import (
	"sort"

	"github.com/ironsheep/paintbynumbers/internal/segment"
)

// MedianCut is the partition-based quantizer. It is deterministic: the same
// buffer and K always give the same palette and labels.
type MedianCut struct{}

type histEntry struct {
	c     segment.RGB
	count int
}

type colorBox struct {
	entries []histEntry
	count   int
	lo, hi  [3]uint8
}

// Quantize implements Quantizer.
//
// # Algorithm
//
//  1. Build a histogram of distinct colors, ordered by packed RGB value.
//  2. Start with one box holding every color. While fewer than K boxes
//     exist, split the box with the widest channel range (ties: larger
//     population, then lower index) along that channel at the
//     population-weighted median.
//  3. Each box's pixel-weighted mean becomes a palette entry; every pixel is
//     labeled with the box holding its color.
//
// When the image has fewer distinct colors than K, splitting stops early and
// the last entry is repeated to fill the palette; the copies own no pixels.
func (MedianCut) Quantize(buf *segment.PixelBuffer, k int) (*Result, error) {
	if err := validate(buf, k); err != nil {
		return nil, err
	}

	counts := make(map[segment.RGB]int)
	for _, c := range buf.Pix {
		counts[c]++
	}
	hist := make([]histEntry, 0, len(counts))
	for c, n := range counts {
		hist = append(hist, histEntry{c: c, count: n})
	}
	sort.Slice(hist, func(i, j int) bool {
		return packRGB(hist[i].c) < packRGB(hist[j].c)
	})

	boxes := []*colorBox{newColorBox(hist)}
	splits := 0
	for len(boxes) < k {
		idx := widestBox(boxes)
		if idx < 0 {
			break
		}
		a, b := boxes[idx].split()
		boxes[idx] = a
		boxes = append(boxes, b)
		splits++
	}

	pal := make(segment.Palette, 0, k)
	index := make(map[segment.RGB]int, len(hist))
	for i, box := range boxes {
		pal = append(pal, box.mean())
		for _, e := range box.entries {
			index[e.c] = i
		}
	}
	pal = pad(pal, k)

	labels := segment.NewLabelMap(buf.Width, buf.Height, k)
	for i, c := range buf.Pix {
		labels.Labels[i] = index[c]
	}

	return &Result{
		Palette: pal,
		Labels:  labels,
		Stats: Stats{
			Iterations:     splits,
			Converged:      true,
			DistinctColors: len(hist),
		},
	}, nil
}

func newColorBox(entries []histEntry) *colorBox {
	box := &colorBox{
		entries: entries,
		lo:      [3]uint8{255, 255, 255},
	}
	for _, e := range entries {
		box.count += e.count
		ch := channels(e.c)
		for i := 0; i < 3; i++ {
			box.lo[i] = min(box.lo[i], ch[i])
			box.hi[i] = max(box.hi[i], ch[i])
		}
	}
	return box
}

// axis returns the channel with the widest range (R wins ties, then G) and
// that range.
func (b *colorBox) axis() (int, int) {
	best, width := 0, -1
	for i := 0; i < 3; i++ {
		if w := int(b.hi[i]) - int(b.lo[i]); w > width {
			best, width = i, w
		}
	}
	return best, width
}

// split cuts the box at the population-weighted median of its widest
// channel. Both halves are non-empty.
func (b *colorBox) split() (*colorBox, *colorBox) {
	axis, _ := b.axis()
	entries := b.entries
	sort.SliceStable(entries, func(i, j int) bool {
		return channels(entries[i].c)[axis] < channels(entries[j].c)[axis]
	})

	half := b.count / 2
	cum, cut := 0, 1
	for i, e := range entries {
		cum += e.count
		if cum >= half {
			cut = i + 1
			break
		}
	}
	cut = max(1, min(cut, len(entries)-1))

	return newColorBox(entries[:cut:cut]), newColorBox(entries[cut:])
}

func (b *colorBox) mean() segment.RGB {
	var sum [3]int
	for _, e := range b.entries {
		ch := channels(e.c)
		for i := 0; i < 3; i++ {
			sum[i] += int(ch[i]) * e.count
		}
	}
	n := b.count
	return segment.RGB{
		R: uint8((sum[0] + n/2) / n),
		G: uint8((sum[1] + n/2) / n),
		B: uint8((sum[2] + n/2) / n),
	}
}

// widestBox picks the next box to split, or -1 when every box holds a
// single color.
func widestBox(boxes []*colorBox) int {
	best, bestWidth, bestCount := -1, -1, -1
	for i, box := range boxes {
		if len(box.entries) < 2 {
			continue
		}
		_, w := box.axis()
		if w > bestWidth || (w == bestWidth && box.count > bestCount) {
			best, bestWidth, bestCount = i, w, box.count
		}
	}
	return best
}

func channels(c segment.RGB) [3]uint8 {
	return [3]uint8{c.R, c.G, c.B}
}

func packRGB(c segment.RGB) uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}
