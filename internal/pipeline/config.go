package pipeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/paintbynumbers/internal/describe"
	"github.com/ironsheep/paintbynumbers/internal/quantize"
	"github.com/ironsheep/paintbynumbers/internal/segment"
)

// ErrInvalidConfig is returned, wrapped with the offending field, when a
// Config fails validation. The pipeline does not run.
var ErrInvalidConfig = errors.New("invalid pipeline config")

// PaletteOrder selects how palette entries are numbered.
type PaletteOrder string

const (
	// OrderNative keeps the order the quantizer produced.
	OrderNative PaletteOrder = "native"
	// OrderLuminance numbers colors from darkest to brightest.
	OrderLuminance PaletteOrder = "luminance"
)

// Config holds every knob of one pipeline run. Start from DefaultConfig.
type Config struct {
	// NumColors is the palette size K.
	NumColors int `json:"numColors"`

	// MinArea is the smallest enclosed area, in square pixels, a region
	// may have.
	MinArea float64 `json:"minArea"`

	// EpsilonFactor scales each contour's perimeter into the simplification
	// tolerance. Zero keeps every traced corner.
	EpsilonFactor float64 `json:"epsilonFactor"`

	// Method picks the quantization strategy.
	Method quantize.Method `json:"method"`

	// Seed pins k-means seeding.
	Seed uint64 `json:"seed"`

	// Nondeterministic lets k-means seed itself from the runtime.
	Nondeterministic bool `json:"nondeterministic,omitempty"`

	// MaxIterations caps k-means iterations.
	MaxIterations int `json:"maxIterations"`

	// ConvergenceEpsilon is the k-means center shift, in RGB units, that
	// counts as converged.
	ConvergenceEpsilon float64 `json:"convergenceEpsilon"`

	// KernelSize is the side of the elliptical cleanup kernel. Must be odd.
	KernelSize int `json:"kernelSize"`

	// PlaceAnchors enables label anchor placement.
	PlaceAnchors bool `json:"placeAnchors"`

	// AnchorSpacing is the minimum distance between two anchors.
	AnchorSpacing float64 `json:"anchorSpacing"`

	// DropDegenerate skips zero-area regions instead of reporting them at
	// the (0,0) sentinel centroid.
	DropDegenerate bool `json:"dropDegenerate,omitempty"`

	// PaletteOrder controls palette numbering.
	PaletteOrder PaletteOrder `json:"paletteOrder"`

	// Workers bounds per-label concurrency. Zero means GOMAXPROCS. The
	// effective count never exceeds NumColors.
	Workers int `json:"workers,omitempty"`
}

// DefaultConfig returns the configuration used when the caller sets nothing.
func DefaultConfig() Config {
	return Config{
		NumColors:          25,
		MinArea:            600,
		EpsilonFactor:      0.005,
		Method:             quantize.MethodMedianCut,
		Seed:               1,
		MaxIterations:      20,
		ConvergenceEpsilon: 1.0,
		KernelSize:         segment.DefaultKernelSize,
		PlaceAnchors:       true,
		AnchorSpacing:      describe.DefaultAnchorSpacing,
		PaletteOrder:       OrderNative,
	}
}

// Validate checks every field and returns an error wrapping
// ErrInvalidConfig for the first one out of range.
func (c Config) Validate() error {
	switch {
	case c.NumColors <= 0 || c.NumColors > quantize.MaxColors:
		return fmt.Errorf("%w: numColors must be in [1, %d], got %d", ErrInvalidConfig, quantize.MaxColors, c.NumColors)
	case math.IsNaN(c.MinArea) || math.IsInf(c.MinArea, 0) || c.MinArea < 0:
		return fmt.Errorf("%w: minArea must be a non-negative number, got %v", ErrInvalidConfig, c.MinArea)
	case math.IsNaN(c.EpsilonFactor) || c.EpsilonFactor < 0 || c.EpsilonFactor >= 1:
		return fmt.Errorf("%w: epsilonFactor must be in [0, 1), got %v", ErrInvalidConfig, c.EpsilonFactor)
	case c.KernelSize < 1 || c.KernelSize%2 == 0:
		return fmt.Errorf("%w: kernelSize must be a positive odd number, got %d", ErrInvalidConfig, c.KernelSize)
	case math.IsNaN(c.AnchorSpacing) || c.AnchorSpacing < 0:
		return fmt.Errorf("%w: anchorSpacing must be non-negative, got %v", ErrInvalidConfig, c.AnchorSpacing)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must be non-negative, got %d", ErrInvalidConfig, c.Workers)
	}

	method, err := quantize.ParseMethod(string(c.Method))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if method == quantize.MethodKMeans {
		if c.MaxIterations < 1 {
			return fmt.Errorf("%w: maxIterations must be at least 1, got %d", ErrInvalidConfig, c.MaxIterations)
		}
		if math.IsNaN(c.ConvergenceEpsilon) || c.ConvergenceEpsilon <= 0 {
			return fmt.Errorf("%w: convergenceEpsilon must be positive, got %v", ErrInvalidConfig, c.ConvergenceEpsilon)
		}
	}

	switch c.PaletteOrder {
	case "", OrderNative, OrderLuminance:
	default:
		return fmt.Errorf("%w: unknown palette order %q", ErrInvalidConfig, c.PaletteOrder)
	}
	return nil
}

// WithDefaults fills zero-valued fields from DefaultConfig. Booleans are
// left alone.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.NumColors == 0 {
		c.NumColors = d.NumColors
	}
	if c.Method == "" {
		c.Method = d.Method
	}
	if c.Seed == 0 {
		c.Seed = d.Seed
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.ConvergenceEpsilon == 0 {
		c.ConvergenceEpsilon = d.ConvergenceEpsilon
	}
	if c.KernelSize == 0 {
		c.KernelSize = d.KernelSize
	}
	if c.PaletteOrder == "" {
		c.PaletteOrder = d.PaletteOrder
	}
	return c
}
