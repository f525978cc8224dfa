package quantize

import (
	"sort"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/paintbynumbers/internal/segment"
)

// SortByLuminance reorders the palette from darkest to brightest relative
// luminance and remaps the labels to match. Ties keep their original order,
// so the permutation is deterministic.
func SortByLuminance(res *Result) {
	perm := make([]int, len(res.Palette))
	lum := make([]float64, len(res.Palette))
	for i, c := range res.Palette {
		perm[i] = i
		r, g, b := colorful.Color{
			R: float64(c.R) / 255,
			G: float64(c.G) / 255,
			B: float64(c.B) / 255,
		}.LinearRgb()
		lum[i] = 0.2126*r + 0.7152*g + 0.0722*b
	}
	sort.SliceStable(perm, func(i, j int) bool {
		return lum[perm[i]] < lum[perm[j]]
	})
	Reorder(res, perm)
}

// Reorder applies perm, where perm[newIndex] = oldIndex, to the palette and
// the label map.
func Reorder(res *Result, perm []int) {
	pal := make(segment.Palette, len(perm))
	remap := make([]int, len(perm))
	for newIdx, oldIdx := range perm {
		pal[newIdx] = res.Palette[oldIdx]
		remap[oldIdx] = newIdx
	}
	res.Palette = pal
	if res.Labels == nil {
		return
	}
	for i, l := range res.Labels.Labels {
		res.Labels.Labels[i] = remap[l]
	}
}
