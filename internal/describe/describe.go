// Package describe turns traced region boundaries into Region records.
//
// For each raw contour it computes polygon moments, rejects regions below the
// minimum area, derives the centroid, and simplifies the outline. A separate
// AnchorPlacer assigns label anchors in a serial pass over finished regions
// so that no two anchors in one image sit closer than a minimum spacing.
package describe

import (
	"github.com/ironsheep/paintbynumbers/internal/segment"
	"github.com/ironsheep/paintbynumbers/internal/simplify"
)

// Centroid is a sub-pixel position in image coordinates.
type Centroid struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DegenerateCentroid is reported for regions whose area moment is zero.
// It coincides with the image's top-left corner.
var DegenerateCentroid = Centroid{X: 0, Y: 0}

// Region is one connected, area-filtered, simplified single-color shape.
type Region struct {
	// ColorIndex is the palette entry this region is painted with.
	ColorIndex int `json:"colorIndex"`

	// Polygon is the simplified closed outline.
	Polygon segment.Contour `json:"polygon"`

	// Centroid is the geometric center of the raw contour.
	Centroid Centroid `json:"centroid"`

	// Area is the unsigned enclosed area of the raw contour in square pixels.
	Area float64 `json:"area"`

	// Degenerate is set when the centroid is the DegenerateCentroid sentinel.
	Degenerate bool `json:"degenerate,omitempty"`

	// Anchor is where the region's number should be drawn. Nil when no
	// placement satisfied the spacing constraint.
	Anchor *segment.Point `json:"anchor,omitempty"`

	raw segment.Contour
}

// Raw returns the unsimplified boundary the region was built from.
func (r *Region) Raw() segment.Contour {
	return r.raw
}

// Verdict records what Describe decided about a contour.
type Verdict int

const (
	// Kept means a Region was produced.
	Kept Verdict = iota
	// BelowArea means |m00| was under the minimum area.
	BelowArea
	// DroppedDegenerate means m00 was zero and degenerate regions are dropped.
	DroppedDegenerate
	// Collapsed means simplification left fewer than three vertices.
	Collapsed
)

func (v Verdict) String() string {
	switch v {
	case Kept:
		return "kept"
	case BelowArea:
		return "below-area"
	case DroppedDegenerate:
		return "degenerate"
	case Collapsed:
		return "collapsed"
	default:
		return "unknown"
	}
}

// Describer materializes regions from raw contours.
type Describer struct {
	// MinArea is the smallest |m00| a region may have.
	MinArea float64

	// EpsilonFactor scales the contour's arc length into the simplification
	// tolerance. Zero disables simplification beyond chain compression.
	EpsilonFactor float64

	// DropDegenerate skips zero-area regions instead of reporting them at
	// DegenerateCentroid.
	DropDegenerate bool
}

// Describe builds the Region for one raw contour of the given color index.
// Rejections are reported through the Verdict and are never errors.
func (d Describer) Describe(colorIndex int, raw segment.Contour) (*Region, Verdict) {
	m := PolygonMoments(raw)
	area := m.Area()
	if area < d.MinArea {
		return nil, BelowArea
	}

	centroid, ok := m.Centroid()
	if !ok && d.DropDegenerate {
		return nil, DroppedDegenerate
	}

	poly := simplify.Closed(raw, simplify.Tolerance(raw, d.EpsilonFactor))
	if len(poly) < 3 {
		return nil, Collapsed
	}

	return &Region{
		ColorIndex: colorIndex,
		Polygon:    poly,
		Centroid:   centroid,
		Area:       area,
		Degenerate: !ok,
		raw:        raw,
	}, Kept
}
