// Package simplify reduces closed pixel contours to polygons with the
// Douglas–Peucker algorithm.
package simplify

import (
	"math"

	"github.com/ironsheep/paintbynumbers/internal/segment"
)

// ArcLength returns the perimeter of the closed contour c.
func ArcLength(c segment.Contour) float64 {
	n := len(c)
	if n < 2 {
		return 0
	}
	total := 0.0
	for i := 0; i < n; i++ {
		total += dist(c[i], c[(i+1)%n])
	}
	return total
}

// Tolerance converts an epsilon factor into an absolute tolerance for c.
func Tolerance(c segment.Contour, factor float64) float64 {
	return factor * ArcLength(c)
}

// Closed simplifies the closed contour c so that every dropped point lies
// within epsilon of the segment that replaced it. The result is a subset of
// c in the original order and never has more points than c.
//
// # Algorithm
//
// The loop is split at the first point and the point farthest from it. Each
// of the two open chains is reduced recursively: the interior point farthest
// from the chord between the chain's endpoints is kept when its distance
// exceeds epsilon, and the chain is split there; otherwise the chain
// collapses to its endpoints. Distances are measured to the chord segment,
// not its infinite line, so a dropped point is always within epsilon of an
// edge of the result.
//
// Results with fewer than three points are returned as-is; callers decide
// whether such a polygon is a region.
func Closed(c segment.Contour, epsilon float64) segment.Contour {
	n := len(c)
	if n < 3 {
		return append(segment.Contour(nil), c...)
	}
	if epsilon < 0 {
		epsilon = 0
	}

	far, farDist := 0, -1.0
	for i := 1; i < n; i++ {
		if d := dist(c[0], c[i]); d > farDist {
			far, farDist = i, d
		}
	}

	keep := make([]bool, n)
	keep[0] = true
	keep[far] = true

	// The second chain wraps around: far..n-1, 0.
	loop := append(append(segment.Contour(nil), c...), c[0])
	reduce(loop, 0, far, epsilon, keep, n)
	reduce(loop, far, n, epsilon, keep, n)

	out := make(segment.Contour, 0, n)
	for i, k := range keep {
		if k {
			out = append(out, c[i])
		}
	}
	return out
}

// reduce marks the points of pts[lo..hi] that survive simplification.
// Indices are taken modulo n when recorded. An explicit stack replaces
// recursion so long contours cannot exhaust the goroutine stack.
func reduce(pts segment.Contour, lo, hi int, epsilon float64, keep []bool, n int) {
	type span struct{ lo, hi int }
	stack := []span{{lo, hi}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.hi-s.lo < 2 {
			continue
		}

		idx, maxDist := -1, -1.0
		for i := s.lo + 1; i < s.hi; i++ {
			if d := SegmentDistance(pts[i], pts[s.lo], pts[s.hi]); d > maxDist {
				idx, maxDist = i, d
			}
		}
		if maxDist > epsilon {
			keep[idx%n] = true
			stack = append(stack, span{idx, s.hi}, span{s.lo, idx})
		}
	}
}

// SegmentDistance returns the distance from p to the segment a-b.
func SegmentDistance(p, a, b segment.Point) float64 {
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return dist(p, a)
	}
	t := (float64(p.X-a.X)*dx + float64(p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	px := float64(a.X) + t*dx
	py := float64(a.Y) + t*dy
	return math.Hypot(float64(p.X)-px, float64(p.Y)-py)
}

// MaxDeviation returns the largest distance from any point of original to
// the nearest edge of the closed polygon poly.
func MaxDeviation(original, poly segment.Contour) float64 {
	if len(poly) == 0 {
		return math.Inf(1)
	}
	worst := 0.0
	for _, p := range original {
		best := math.Inf(1)
		for i := range poly {
			best = math.Min(best, SegmentDistance(p, poly[i], poly[(i+1)%len(poly)]))
		}
		worst = math.Max(worst, best)
	}
	return worst
}

func dist(a, b segment.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
