package describe

import (
	"math"

	"github.com/ironsheep/paintbynumbers/internal/segment"
)

// Moments holds the zeroth and first order moments of a closed polygon.
type Moments struct {
	M00 float64 // signed area; positive for clockwise contours in image space
	M10 float64 // first moment about the y axis
	M01 float64 // first moment about the x axis
}

// PolygonMoments computes the area moments of the polygon described by the
// closed contour c.
//
// # Algorithm
//
// Green's theorem reduces the area integrals to a sum over edges. For each
// edge (x0,y0)→(x1,y1) with cross term a = x0·y1 − x1·y0:
//
//	m00 += a / 2
//	m10 += a·(x0 + x1) / 6
//	m01 += a·(y0 + y1) / 6
//
// Contours with fewer than three points enclose nothing and return zero
// moments.
func PolygonMoments(c segment.Contour) Moments {
	var m Moments
	n := len(c)
	if n < 3 {
		return m
	}
	for i := 0; i < n; i++ {
		x0, y0 := float64(c[i].X), float64(c[i].Y)
		x1, y1 := float64(c[(i+1)%n].X), float64(c[(i+1)%n].Y)
		a := x0*y1 - x1*y0
		m.M00 += a
		m.M10 += a * (x0 + x1)
		m.M01 += a * (y0 + y1)
	}
	m.M00 /= 2
	m.M10 /= 6
	m.M01 /= 6
	return m
}

// Area returns the unsigned enclosed area.
func (m Moments) Area() float64 {
	return math.Abs(m.M00)
}

// Centroid returns (m10/m00, m01/m00). A zero m00 has no centroid; the
// second return is false and the result is DegenerateCentroid.
func (m Moments) Centroid() (Centroid, bool) {
	if m.M00 == 0 {
		return DegenerateCentroid, false
	}
	return Centroid{X: m.M10 / m.M00, Y: m.M01 / m.M00}, true
}
