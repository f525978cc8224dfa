package quantize

import (
	"errors"
	"testing"

	"github.com/muesli/clusters"

	"github.com/ironsheep/paintbynumbers/internal/segment"
)

// createSolidBuffer creates a buffer filled with one color
func createSolidBuffer(width, height int, c segment.RGB) *segment.PixelBuffer {
	buf := segment.NewPixelBuffer(width, height)
	for i := range buf.Pix {
		buf.Pix[i] = c
	}
	return buf
}

// createGradientBuffer creates a buffer with many distinct colors
func createGradientBuffer(width, height int) *segment.PixelBuffer {
	buf := segment.NewPixelBuffer(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			buf.Set(x, y, segment.RGB{
				R: uint8(x * 255 / max(1, width-1)),
				G: uint8(y * 255 / max(1, height-1)),
				B: uint8((x + y) % 256),
			})
		}
	}
	return buf
}

// createQuadrantBuffer creates a buffer with four flat quadrants
func createQuadrantBuffer(width, height int) *segment.PixelBuffer {
	buf := segment.NewPixelBuffer(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c segment.RGB
			switch {
			case x < width/2 && y < height/2:
				c = segment.RGB{R: 255}
			case x >= width/2 && y < height/2:
				c = segment.RGB{G: 255}
			case x < width/2:
				c = segment.RGB{B: 255}
			default:
				c = segment.RGB{R: 255, G: 255, B: 255}
			}
			buf.Set(x, y, c)
		}
	}
	return buf
}

func allQuantizers(t *testing.T) map[string]Quantizer {
	t.Helper()
	out := make(map[string]Quantizer)
	for _, m := range Methods() {
		q, err := New(m, Options{Seed: 7})
		if err != nil {
			t.Fatalf("New(%s) failed: %v", m, err)
		}
		out[string(m)] = q
	}
	return out
}

func TestQuantize_PaletteHasExactlyK(t *testing.T) {
	buffers := map[string]*segment.PixelBuffer{
		"solid":     createSolidBuffer(20, 20, segment.RGB{R: 10, G: 200, B: 30}),
		"gradient":  createGradientBuffer(40, 30),
		"quadrants": createQuadrantBuffer(40, 40),
	}

	for name, q := range allQuantizers(t) {
		for bufName, buf := range buffers {
			for _, k := range []int{1, 2, 4, 9, 25} {
				res, err := q.Quantize(buf, k)
				if err != nil {
					t.Fatalf("%s/%s k=%d: %v", name, bufName, k, err)
				}
				if len(res.Palette) != k {
					t.Errorf("%s/%s k=%d: palette has %d entries", name, bufName, k, len(res.Palette))
				}
				if res.Labels.K != k {
					t.Errorf("%s/%s k=%d: label map K=%d", name, bufName, k, res.Labels.K)
				}
				for i, l := range res.Labels.Labels {
					if l < 0 || l >= k {
						t.Fatalf("%s/%s k=%d: pixel %d has label %d", name, bufName, k, i, l)
					}
				}
			}
		}
	}
}

func TestQuantize_InvalidInput(t *testing.T) {
	buf := createSolidBuffer(4, 4, segment.RGB{})

	for name, q := range allQuantizers(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []int{0, -3, MaxColors + 1} {
				if _, err := q.Quantize(buf, k); !errors.Is(err, ErrInvalidInput) {
					t.Errorf("k=%d: got %v, want ErrInvalidInput", k, err)
				}
			}
			if _, err := q.Quantize(segment.NewPixelBuffer(0, 0), 2); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("empty buffer: got %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestMedianCut_SolidImagePadsPalette(t *testing.T) {
	c := segment.RGB{R: 12, G: 34, B: 56}
	res, err := MedianCut{}.Quantize(createSolidBuffer(100, 100, c), 2)
	if err != nil {
		t.Fatalf("Quantize failed: %v", err)
	}
	if res.Palette[0] != c {
		t.Errorf("palette[0]: got %+v, want %+v", res.Palette[0], c)
	}
	counts := res.Labels.Counts()
	if counts[0] != 10000 || counts[1] != 0 {
		t.Errorf("counts: got %v, want [10000 0]", counts)
	}
	if res.Stats.DistinctColors != 1 {
		t.Errorf("DistinctColors: got %d, want 1", res.Stats.DistinctColors)
	}
}

func TestMedianCut_SeparatesQuadrants(t *testing.T) {
	res, err := MedianCut{}.Quantize(createQuadrantBuffer(40, 40), 4)
	if err != nil {
		t.Fatalf("Quantize failed: %v", err)
	}

	seen := make(map[segment.RGB]bool)
	for _, c := range res.Palette {
		seen[c] = true
	}
	for _, want := range []segment.RGB{{R: 255}, {G: 255}, {B: 255}, {R: 255, G: 255, B: 255}} {
		if !seen[want] {
			t.Errorf("palette %v misses %+v", res.Palette, want)
		}
	}
	for _, n := range res.Labels.Counts() {
		if n != 400 {
			t.Errorf("each quadrant should own 400 pixels, got %v", res.Labels.Counts())
			break
		}
	}
}

func TestMedianCut_Deterministic(t *testing.T) {
	buf := createGradientBuffer(64, 48)
	a, _ := MedianCut{}.Quantize(buf, 8)
	b, _ := MedianCut{}.Quantize(buf, 8)

	for i := range a.Palette {
		if a.Palette[i] != b.Palette[i] {
			t.Fatalf("palette entry %d differs: %+v vs %+v", i, a.Palette[i], b.Palette[i])
		}
	}
	for i := range a.Labels.Labels {
		if a.Labels.Labels[i] != b.Labels.Labels[i] {
			t.Fatalf("label %d differs", i)
		}
	}
}

func TestKMeans_SeededRunsAreReproducible(t *testing.T) {
	buf := createGradientBuffer(50, 50)
	opts := Options{Seed: 42, MaxIterations: 10, Epsilon: 0.5}

	q1, _ := New(MethodKMeans, opts)
	q2, _ := New(MethodKMeans, opts)
	a, err := q1.Quantize(buf, 6)
	if err != nil {
		t.Fatalf("Quantize failed: %v", err)
	}
	b, _ := q2.Quantize(buf, 6)

	for i := range a.Palette {
		if a.Palette[i] != b.Palette[i] {
			t.Fatalf("palette entry %d differs: %+v vs %+v", i, a.Palette[i], b.Palette[i])
		}
	}
	for i := range a.Labels.Labels {
		if a.Labels.Labels[i] != b.Labels.Labels[i] {
			t.Fatalf("label %d differs", i)
		}
	}
	if a.Stats.Iterations != b.Stats.Iterations || a.Stats.Converged != b.Stats.Converged {
		t.Errorf("stats differ: %+v vs %+v", a.Stats, b.Stats)
	}
}

func TestKMeans_FindsFlatColors(t *testing.T) {
	q, _ := New(MethodKMeans, Options{Seed: 1})
	res, err := q.Quantize(createQuadrantBuffer(40, 40), 4)
	if err != nil {
		t.Fatalf("Quantize failed: %v", err)
	}
	if !res.Stats.Converged {
		t.Error("four flat colors should converge")
	}
	for _, want := range []segment.RGB{{R: 255}, {G: 255}, {B: 255}, {R: 255, G: 255, B: 255}} {
		found := false
		for _, c := range res.Palette {
			if c == want {
				found = true
			}
		}
		if !found {
			t.Errorf("palette %v misses %+v", res.Palette, want)
		}
	}
}

func TestKMeans_IterationCapReportsNonconvergence(t *testing.T) {
	q, _ := New(MethodKMeans, Options{Seed: 3, MaxIterations: 1, Epsilon: 1e-9})
	res, err := q.Quantize(createGradientBuffer(60, 60), 8)
	if err != nil {
		t.Fatalf("Quantize failed: %v", err)
	}
	if res.Stats.Iterations != 1 {
		t.Errorf("Iterations: got %d, want 1", res.Stats.Iterations)
	}
	if res.Stats.Converged {
		t.Error("a single iteration on a gradient should not report convergence")
	}
	if len(res.Palette) != 8 {
		t.Errorf("palette: got %d entries, want 8", len(res.Palette))
	}
}

func TestKMeans_MoreClustersThanColors(t *testing.T) {
	q, _ := New(MethodKMeans, Options{Seed: 5})
	res, err := q.Quantize(createSolidBuffer(10, 10, segment.RGB{R: 80, G: 80, B: 80}), 5)
	if err != nil {
		t.Fatalf("clustering should degrade gracefully, got %v", err)
	}
	if len(res.Palette) != 5 {
		t.Errorf("palette: got %d entries, want 5", len(res.Palette))
	}
	if res.Labels.Counts()[res.Labels.Labels[0]] != 100 {
		t.Error("every pixel should share one label")
	}
}

func TestKMeans_Nondeterministic(t *testing.T) {
	q, _ := New(MethodKMeans, Options{Nondeterministic: true})
	res, err := q.Quantize(createQuadrantBuffer(30, 30), 3)
	if err != nil {
		t.Fatalf("Quantize failed: %v", err)
	}
	if len(res.Palette) != 3 {
		t.Errorf("palette: got %d entries, want 3", len(res.Palette))
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"", MethodMedianCut, false},
		{"Median-Cut", MethodMedianCut, false},
		{"kmeans", MethodKMeans, false},
		{"k-means", MethodKMeans, false},
		{"dominant", MethodDominant, false},
		{"octree", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMethod(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err: got %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew_UnknownMethod(t *testing.T) {
	if _, err := New(Method("octree"), Options{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("got %v, want ErrInvalidInput", err)
	}
}

func TestSortByLuminance(t *testing.T) {
	res, err := MedianCut{}.Quantize(createQuadrantBuffer(20, 20), 4)
	if err != nil {
		t.Fatalf("Quantize failed: %v", err)
	}
	topLeft := res.Palette[res.Labels.At(0, 0)]

	SortByLuminance(res)

	if res.Palette[0] != (segment.RGB{B: 255}) {
		t.Errorf("darkest entry should be blue, got %+v", res.Palette[0])
	}
	if res.Palette[3] != (segment.RGB{R: 255, G: 255, B: 255}) {
		t.Errorf("brightest entry should be white, got %+v", res.Palette[3])
	}
	if got := res.Palette[res.Labels.At(0, 0)]; got != topLeft {
		t.Errorf("labels not remapped: top-left now %+v, want %+v", got, topLeft)
	}
}

func TestDominant_FewColorsUsedDirectly(t *testing.T) {
	buf := createQuadrantBuffer(40, 40)
	for x := 0; x < 20; x++ {
		buf.Set(x, 0, segment.RGB{G: 255}) // make green the most populous
	}

	res, err := Dominant{}.Quantize(buf, 6)
	if err != nil {
		t.Fatalf("Quantize failed: %v", err)
	}
	if res.Palette[0] != (segment.RGB{G: 255}) {
		t.Errorf("most populous color should come first, got %+v", res.Palette[0])
	}
	if res.Palette[4] != res.Palette[3] || res.Palette[5] != res.Palette[3] {
		t.Errorf("surplus entries should repeat the last color, got %v", res.Palette)
	}
	counts := res.Labels.Counts()
	if counts[4] != 0 || counts[5] != 0 {
		t.Errorf("padded entries should own no pixels, got %v", counts)
	}
}

func TestPad_RepeatsLastEntry(t *testing.T) {
	dark := segment.RGB{R: 10, G: 10, B: 10}
	pal := pad(segment.Palette{{R: 200}, dark}, 4)
	if len(pal) != 4 {
		t.Fatalf("palette: got %d entries, want 4", len(pal))
	}
	if pal[2] != dark || pal[3] != dark {
		t.Errorf("surplus entries should repeat %+v, got %v", dark, pal)
	}

	// Near-black pixels stay with the real dark entry.
	buf := createSolidBuffer(4, 4, segment.RGB{R: 2, G: 2, B: 2})
	buf.Set(0, 0, segment.RGB{R: 200})
	counts := segment.NativeOps{}.Assign(buf, pal).Counts()
	if counts[0] != 1 || counts[1] != 15 || counts[2] != 0 || counts[3] != 0 {
		t.Errorf("counts: got %v, want [1 15 0 0]", counts)
	}

	if got := pad(nil, 2); len(got) != 2 || got[0] != (segment.RGB{}) || got[1] != (segment.RGB{}) {
		t.Errorf("empty palette should pad with black, got %v", got)
	}
}

func TestSettled(t *testing.T) {
	obs := clusters.Observations{
		clusters.Coordinates{0, 0, 0},
		clusters.Coordinates{2, 0, 0},
		clusters.Coordinates{100, 100, 100},
	}
	tests := []struct {
		name    string
		centers []clusters.Coordinates
		want    bool
	}{
		{"at the means", []clusters.Coordinates{{1, 0, 0}, {100, 100, 100}}, true},
		{"one center off", []clusters.Coordinates{{10, 0, 0}, {100, 100, 100}}, false},
		{"empty center stays put", []clusters.Coordinates{{1, 0, 0}, {100, 100, 100}, {255, 0, 0}}, true},
		{"no centers", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := settled(obs, tt.centers, 1.0); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
