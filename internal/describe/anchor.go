package describe

import (
	"math"
	"sort"

	"github.com/ironsheep/paintbynumbers/internal/segment"
	"github.com/ironsheep/paintbynumbers/internal/simplify"
)

// DefaultAnchorSpacing is the minimum distance in pixels between two label
// anchors in the same image.
const DefaultAnchorSpacing = 20

// AnchorPlacer assigns label anchors first-come-first-placed. It keeps the
// anchors already placed in one image and is not safe for concurrent use.
type AnchorPlacer struct {
	spacing float64
	cell    float64
	placed  map[[2]int][]segment.Point
	count   int
}

// NewAnchorPlacer returns a placer enforcing the given minimum spacing.
// A spacing of zero accepts every candidate.
func NewAnchorPlacer(spacing float64) *AnchorPlacer {
	if spacing < 0 || math.IsNaN(spacing) {
		spacing = 0
	}
	return &AnchorPlacer{
		spacing: spacing,
		cell:    math.Max(spacing, 1),
		placed:  make(map[[2]int][]segment.Point),
	}
}

// Placed returns how many anchors have been accepted so far.
func (p *AnchorPlacer) Placed() int {
	return p.count
}

// Place picks an anchor for r and records it. It returns false and leaves
// r.Anchor nil when r is degenerate or every candidate is too close to an
// existing anchor. An accepted anchor always lies inside or on r's raw
// contour.
//
// # Algorithm
//
// The rounded centroid is tried first when it lies inside the contour; a
// concave region's centroid may not. Then points of a grid with pitch
// spacing/2 (1 when spacing is zero) over the contour's bounding box are
// tried in order of distance from the centroid, keeping only those inside or
// on the raw contour. Placed anchors are bucketed in square cells of side
// spacing so each test looks at no more than nine cells.
func (p *AnchorPlacer) Place(r *Region) bool {
	if r.Degenerate {
		return false
	}
	for _, c := range p.candidates(r) {
		if p.free(c) {
			p.add(c)
			anchor := c
			r.Anchor = &anchor
			return true
		}
	}
	return false
}

func (p *AnchorPlacer) candidates(r *Region) []segment.Point {
	raw := r.raw
	if len(raw) == 0 {
		raw = r.Polygon
	}
	if len(raw) < 3 {
		return nil
	}

	first := segment.Point{X: int(math.Round(r.Centroid.X)), Y: int(math.Round(r.Centroid.Y))}
	var out []segment.Point
	if Inside(raw, first) {
		out = append(out, first)
		if p.spacing == 0 {
			return out
		}
	}

	minX, minY, maxX, maxY := raw[0].X, raw[0].Y, raw[0].X, raw[0].Y
	for _, pt := range raw[1:] {
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
	}

	step := max(1, int(p.spacing/2))
	var grid []segment.Point
	for y := minY; y <= maxY; y += step {
		for x := minX; x <= maxX; x += step {
			pt := segment.Point{X: x, Y: y}
			if pt != first && Inside(raw, pt) {
				grid = append(grid, pt)
			}
		}
	}

	cx, cy := r.Centroid.X, r.Centroid.Y
	sort.SliceStable(grid, func(i, j int) bool {
		di := sq(float64(grid[i].X)-cx) + sq(float64(grid[i].Y)-cy)
		dj := sq(float64(grid[j].X)-cx) + sq(float64(grid[j].Y)-cy)
		return di < dj
	})
	return append(out, grid...)
}

func (p *AnchorPlacer) key(pt segment.Point) [2]int {
	return [2]int{
		int(math.Floor(float64(pt.X) / p.cell)),
		int(math.Floor(float64(pt.Y) / p.cell)),
	}
}

func (p *AnchorPlacer) free(pt segment.Point) bool {
	if p.spacing == 0 {
		return true
	}
	k := p.key(pt)
	limit := p.spacing * p.spacing
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			for _, q := range p.placed[[2]int{k[0] + dx, k[1] + dy}] {
				if sq(float64(pt.X-q.X))+sq(float64(pt.Y-q.Y)) < limit {
					return false
				}
			}
		}
	}
	return true
}

func (p *AnchorPlacer) add(pt segment.Point) {
	k := p.key(pt)
	p.placed[k] = append(p.placed[k], pt)
	p.count++
}

// Inside reports whether pt lies inside the closed contour c or on its
// boundary. Crossings are counted with a horizontal ray.
func Inside(c segment.Contour, pt segment.Point) bool {
	n := len(c)
	if n == 0 {
		return false
	}
	in := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := c[j], c[i]
		if simplify.SegmentDistance(pt, a, b) == 0 {
			return true
		}
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			x := float64(a.X) + float64(pt.Y-a.Y)*float64(b.X-a.X)/float64(b.Y-a.Y)
			if float64(pt.X) < x {
				in = !in
			}
		}
	}
	return in
}

func sq(v float64) float64 { return v * v }
