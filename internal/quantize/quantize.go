// Package quantize reduces a PixelBuffer to K representative colors and a
// label map.
//
// Three strategies are available behind the Quantizer interface:
//
//   - MedianCut: deterministic partition of the color histogram into boxes.
//   - KMeans: Lloyd iterations from k-means++ seeds. Seeded runs are
//     reproducible; Nondeterministic hands the work to muesli/kmeans, whose
//     random initialization cannot be pinned.
//   - Dominant: weighted dominant colors from cenkalti/dominantcolor.
//
// Every strategy reports exactly K palette entries. Entries without pixels
// are still valid colors; they simply own no region.
package quantize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ironsheep/paintbynumbers/internal/segment"
)

// MaxColors bounds K for every strategy.
const MaxColors = 256

// ErrInvalidInput is returned for K outside [1, MaxColors] or an empty buffer.
var ErrInvalidInput = errors.New("invalid quantizer input")

// Method selects a quantization strategy.
type Method string

const (
	MethodMedianCut Method = "median-cut"
	MethodKMeans    Method = "kmeans"
	MethodDominant  Method = "dominant"
)

// Methods lists the accepted method names.
func Methods() []Method {
	return []Method{MethodMedianCut, MethodKMeans, MethodDominant}
}

// ParseMethod accepts a method name case-insensitively. An empty string
// selects MethodMedianCut.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "median-cut", "mediancut", "median_cut":
		return MethodMedianCut, nil
	case "kmeans", "k-means":
		return MethodKMeans, nil
	case "dominant", "dominantcolor":
		return MethodDominant, nil
	default:
		return "", fmt.Errorf("unknown quantization method %q", s)
	}
}

// Stats describes how a quantization run went.
type Stats struct {
	// Iterations is the number of box splits (median cut) or Lloyd
	// iterations (k-means).
	Iterations int `json:"iterations"`

	// Converged is false when k-means stopped at its iteration cap before
	// centers settled. The last iterate is still returned.
	Converged bool `json:"converged"`

	// DistinctColors is the number of distinct input colors considered.
	DistinctColors int `json:"distinct_colors"`
}

// Result is the output of one quantization.
type Result struct {
	Palette segment.Palette
	Labels  *segment.LabelMap
	Stats   Stats
}

// Quantizer maps a buffer onto a K-entry palette.
type Quantizer interface {
	Quantize(buf *segment.PixelBuffer, k int) (*Result, error)
}

// Options carries the knobs shared by the strategies. Zero values select
// defaults.
type Options struct {
	// Ops performs nearest-palette assignment. Nil selects segment.NativeOps.
	Ops segment.ImageOps

	// Seed drives k-means++ seeding.
	Seed uint64

	// MaxIterations caps Lloyd iterations. Default 20.
	MaxIterations int

	// Epsilon is the center movement, in RGB units, below which k-means is
	// considered converged. Default 1.0.
	Epsilon float64

	// MaxSamples bounds the pixels fed to k-means. Default 12000.
	MaxSamples int

	// Nondeterministic opts into muesli/kmeans with unpinned random seeding.
	Nondeterministic bool
}

// New builds the quantizer for method.
func New(method Method, opts Options) (Quantizer, error) {
	if opts.Ops == nil {
		opts.Ops = segment.NativeOps{}
	}
	switch method {
	case MethodMedianCut, "":
		return MedianCut{}, nil
	case MethodKMeans:
		if opts.MaxIterations <= 0 {
			opts.MaxIterations = 20
		}
		if opts.Epsilon <= 0 {
			opts.Epsilon = 1.0
		}
		if opts.MaxSamples <= 0 {
			opts.MaxSamples = 12000
		}
		return &KMeans{opts: opts}, nil
	case MethodDominant:
		return Dominant{Ops: opts.Ops}, nil
	default:
		return nil, fmt.Errorf("%w: unknown method %q", ErrInvalidInput, method)
	}
}

func validate(buf *segment.PixelBuffer, k int) error {
	if k <= 0 || k > MaxColors {
		return fmt.Errorf("%w: color count %d outside [1, %d]", ErrInvalidInput, k, MaxColors)
	}
	if buf == nil || buf.Width <= 0 || buf.Height <= 0 {
		return fmt.Errorf("%w: empty pixel buffer", ErrInvalidInput)
	}
	return nil
}

// pad extends pal to k colors by repeating its last entry. Palette.Nearest
// breaks ties toward the lower index, so a repeated entry never takes pixels
// from the one it copies. An empty palette is padded with black.
func pad(pal segment.Palette, k int) segment.Palette {
	for len(pal) < k {
		var c segment.RGB
		if len(pal) > 0 {
			c = pal[len(pal)-1]
		}
		pal = append(pal, c)
	}
	return pal[:k]
}
