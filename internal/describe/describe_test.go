package describe

import (
	"math"
	"testing"

	"github.com/ironsheep/paintbynumbers/internal/segment"
)

func rect(x0, y0, x1, y1 int) segment.Contour {
	return segment.Contour{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

func TestPolygonMoments_Square(t *testing.T) {
	m := PolygonMoments(rect(0, 0, 99, 99))
	if m.M00 != 9801 {
		t.Errorf("M00: got %v, want 9801", m.M00)
	}
	c, ok := m.Centroid()
	if !ok {
		t.Fatal("centroid should exist")
	}
	if math.Abs(c.X-49.5) > 1e-9 || math.Abs(c.Y-49.5) > 1e-9 {
		t.Errorf("centroid: got %+v, want (49.5, 49.5)", c)
	}
}

func TestPolygonMoments_WindingSign(t *testing.T) {
	cw := rect(10, 10, 20, 30)
	ccw := segment.Contour{cw[0], cw[3], cw[2], cw[1]}

	if got := PolygonMoments(cw).M00; got != 200 {
		t.Errorf("clockwise M00: got %v, want 200", got)
	}
	if got := PolygonMoments(ccw).M00; got != -200 {
		t.Errorf("counter-clockwise M00: got %v, want -200", got)
	}

	a, _ := PolygonMoments(cw).Centroid()
	b, _ := PolygonMoments(ccw).Centroid()
	if a != b {
		t.Errorf("centroid depends on winding: %+v vs %+v", a, b)
	}
}

func TestPolygonMoments_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		c    segment.Contour
	}{
		{"empty", nil},
		{"single point", segment.Contour{{4, 4}}},
		{"segment", segment.Contour{{0, 0}, {9, 0}}},
		{"collinear", segment.Contour{{0, 0}, {5, 5}, {9, 9}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := PolygonMoments(tt.c)
			if m.M00 != 0 {
				t.Errorf("M00: got %v, want 0", m.M00)
			}
			c, ok := m.Centroid()
			if ok || c != DegenerateCentroid {
				t.Errorf("got (%+v, %v), want sentinel", c, ok)
			}
		})
	}
}

func TestDescribe_AreaFilter(t *testing.T) {
	d := Describer{MinArea: 100, EpsilonFactor: 0.005}

	if r, v := d.Describe(0, rect(0, 0, 5, 5)); r != nil || v != BelowArea {
		t.Errorf("small region: got (%v, %v), want (nil, below-area)", r, v)
	}

	r, v := d.Describe(3, rect(0, 0, 10, 10))
	if v != Kept || r == nil {
		t.Fatalf("got verdict %v, want kept", v)
	}
	if r.ColorIndex != 3 {
		t.Errorf("ColorIndex: got %d, want 3", r.ColorIndex)
	}
	if r.Area != 100 {
		t.Errorf("Area: got %v, want 100", r.Area)
	}
	if len(r.Polygon) != 4 {
		t.Errorf("Polygon: got %v, want 4 corners", r.Polygon)
	}
	if r.Degenerate {
		t.Error("square should not be degenerate")
	}
	if len(r.Raw()) != 4 {
		t.Errorf("Raw: got %v", r.Raw())
	}
}

func TestDescribe_DegenerateSentinel(t *testing.T) {
	// A zero-area bow tie keeps three or more vertices after simplification.
	bowtie := segment.Contour{{0, 0}, {10, 10}, {10, 0}, {0, 10}}

	r, v := Describer{}.Describe(1, bowtie)
	if v != Kept {
		t.Fatalf("verdict: got %v, want kept", v)
	}
	if !r.Degenerate || r.Centroid != DegenerateCentroid {
		t.Errorf("got centroid %+v degenerate=%v, want sentinel", r.Centroid, r.Degenerate)
	}

	if r, v := (Describer{DropDegenerate: true}).Describe(1, bowtie); r != nil || v != DroppedDegenerate {
		t.Errorf("drop: got (%v, %v), want (nil, degenerate)", r, v)
	}
}

func TestDescribe_Collapsed(t *testing.T) {
	line := segment.Contour{{0, 0}, {9, 0}}
	if r, v := (Describer{}).Describe(0, line); r != nil || v != Collapsed {
		t.Errorf("got (%v, %v), want (nil, collapsed)", r, v)
	}
}

func TestDescribe_ZeroEpsilonKeepsContour(t *testing.T) {
	raw := segment.Contour{{0, 0}, {20, 0}, {20, 5}, {30, 5}, {30, 20}, {0, 20}}
	r, v := Describer{EpsilonFactor: 0}.Describe(0, raw)
	if v != Kept {
		t.Fatalf("verdict: got %v", v)
	}
	if len(r.Polygon) != len(raw) {
		t.Errorf("got %v, want all %d vertices", r.Polygon, len(raw))
	}
}

func TestInside(t *testing.T) {
	sq := rect(0, 0, 10, 10)
	tests := []struct {
		pt   segment.Point
		want bool
	}{
		{segment.Point{X: 5, Y: 5}, true},
		{segment.Point{X: 0, Y: 5}, true},
		{segment.Point{X: 10, Y: 10}, true},
		{segment.Point{X: 11, Y: 5}, false},
		{segment.Point{X: -1, Y: -1}, false},
	}
	for _, tt := range tests {
		if got := Inside(sq, tt.pt); got != tt.want {
			t.Errorf("Inside(%v): got %v, want %v", tt.pt, got, tt.want)
		}
	}

	ell := segment.Contour{{0, 0}, {10, 0}, {10, 4}, {4, 4}, {4, 10}, {0, 10}}
	if Inside(ell, segment.Point{X: 7, Y: 7}) {
		t.Error("notch of an L shape should be outside")
	}
	if !Inside(ell, segment.Point{X: 2, Y: 8}) {
		t.Error("leg of an L shape should be inside")
	}
}

func TestAnchorPlacer_CentroidFirst(t *testing.T) {
	p := NewAnchorPlacer(DefaultAnchorSpacing)
	r, _ := Describer{}.Describe(0, rect(0, 0, 100, 100))

	if !p.Place(r) {
		t.Fatal("first anchor should always be placed")
	}
	if *r.Anchor != (segment.Point{X: 50, Y: 50}) {
		t.Errorf("anchor: got %v, want centroid (50,50)", *r.Anchor)
	}
}

func TestAnchorPlacer_ConcaveCentroidOutside(t *testing.T) {
	// The centroid of a thin L falls in its notch, near (29,29).
	ell := segment.Contour{{0, 0}, {100, 0}, {100, 10}, {10, 10}, {10, 100}, {0, 100}}
	r, v := Describer{}.Describe(0, ell)
	if v != Kept {
		t.Fatalf("verdict: got %v, want kept", v)
	}
	centroid := segment.Point{X: int(math.Round(r.Centroid.X)), Y: int(math.Round(r.Centroid.Y))}
	if Inside(ell, centroid) {
		t.Fatalf("centroid %v should be outside the L", centroid)
	}

	for _, spacing := range []float64{0, 20} {
		r.Anchor = nil
		p := NewAnchorPlacer(spacing)
		if !p.Place(r) {
			t.Fatalf("spacing %v: expected an anchor inside the L", spacing)
		}
		if !Inside(r.Raw(), *r.Anchor) {
			t.Errorf("spacing %v: anchor %v is outside its region", spacing, *r.Anchor)
		}
	}
}

func TestAnchorPlacer_SkipsDegenerate(t *testing.T) {
	bowtie := segment.Contour{{0, 0}, {10, 10}, {10, 0}, {0, 10}}
	r, _ := Describer{}.Describe(1, bowtie)

	p := NewAnchorPlacer(DefaultAnchorSpacing)
	if p.Place(r) {
		t.Errorf("degenerate region got anchor %v", *r.Anchor)
	}
	if r.Anchor != nil || p.Placed() != 0 {
		t.Errorf("got anchor %v, placed %d; want none", r.Anchor, p.Placed())
	}
}

func TestAnchorPlacer_MovesAwayFromTakenCentroid(t *testing.T) {
	p := NewAnchorPlacer(20)
	a, _ := Describer{}.Describe(0, rect(0, 0, 100, 100))
	b, _ := Describer{}.Describe(1, rect(40, 40, 80, 80))
	p.Place(a)

	// b's centroid (60,60) is within 20px of a's anchor.
	if !p.Place(b) {
		t.Fatal("expected a grid candidate on the inner square")
	}
	dx := float64(b.Anchor.X - a.Anchor.X)
	dy := float64(b.Anchor.Y - a.Anchor.Y)
	if math.Hypot(dx, dy) < 20 {
		t.Errorf("anchors %v and %v are closer than 20", *a.Anchor, *b.Anchor)
	}
	if !Inside(b.Raw(), *b.Anchor) {
		t.Errorf("anchor %v is outside its region", *b.Anchor)
	}
}

func TestAnchorPlacer_OmitsWhenNoRoom(t *testing.T) {
	p := NewAnchorPlacer(20)
	a, _ := Describer{}.Describe(0, rect(0, 0, 100, 100))
	small, _ := Describer{}.Describe(1, rect(45, 45, 55, 55))
	p.Place(a)

	if p.Place(small) {
		t.Errorf("expected no placement, got %v", *small.Anchor)
	}
	if small.Anchor != nil {
		t.Error("anchor should stay nil")
	}
	if p.Placed() != 1 {
		t.Errorf("Placed: got %d, want 1", p.Placed())
	}
}

func TestAnchorPlacer_SpacingProperty(t *testing.T) {
	p := NewAnchorPlacer(20)
	var regions []*Region
	for y := 0; y < 200; y += 15 {
		for x := 0; x < 200; x += 15 {
			r, v := Describer{}.Describe(0, rect(x, y, x+14, y+14))
			if v != Kept {
				t.Fatalf("verdict %v", v)
			}
			p.Place(r)
			regions = append(regions, r)
		}
	}

	var anchors []segment.Point
	for _, r := range regions {
		if r.Anchor != nil {
			anchors = append(anchors, *r.Anchor)
		}
	}
	if len(anchors) == 0 {
		t.Fatal("no anchors placed")
	}
	for i := range anchors {
		for j := i + 1; j < len(anchors); j++ {
			d := math.Hypot(float64(anchors[i].X-anchors[j].X), float64(anchors[i].Y-anchors[j].Y))
			if d < 20 {
				t.Fatalf("anchors %v and %v are %.2f apart", anchors[i], anchors[j], d)
			}
		}
	}
}

func TestAnchorPlacer_ZeroSpacing(t *testing.T) {
	p := NewAnchorPlacer(0)
	a, _ := Describer{}.Describe(0, rect(0, 0, 10, 10))
	b, _ := Describer{}.Describe(0, rect(0, 0, 10, 10))
	if !p.Place(a) || !p.Place(b) {
		t.Error("zero spacing should accept coincident anchors")
	}
}
