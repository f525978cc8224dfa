package imaging

import (
	"fmt"
	"image"
	"strings"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// Preset names a conditioning recipe.
type Preset string

const (
	// PresetNone passes the image through untouched.
	PresetNone Preset = "none"

	// PresetContours applies light edge-preserving smoothing so flat areas
	// quantize to one color before region extraction.
	PresetContours Preset = "contours"

	// PresetStylize downsizes to at most 1024 pixels wide, smooths, and
	// lifts brightness, saturation and gamma for the cartoon render.
	PresetStylize Preset = "stylize"
)

// Presets lists the accepted preset names.
func Presets() []Preset {
	return []Preset{PresetNone, PresetContours, PresetStylize}
}

// Conditioner prepares a decoded image for quantization. The zero value
// changes nothing.
type Conditioner struct {
	// Crop limits processing to a sub-rectangle, in image coordinates.
	// Nil keeps the whole image.
	Crop *image.Rectangle

	// MaxWidth downsizes wider images with Lanczos resampling, keeping the
	// aspect ratio. Zero disables resizing.
	MaxWidth int

	// SmoothRadius is the radius of the median filter. Zero disables it.
	SmoothRadius float64

	// Brightness and Saturation are relative changes in [-1, 1].
	Brightness float64
	Saturation float64

	// Gamma is the gamma correction factor. Zero or one disables it.
	Gamma float64
}

// NewConditioner returns the conditioner for a preset name. An empty name
// selects PresetContours.
func NewConditioner(name string) (Conditioner, error) {
	switch Preset(strings.ToLower(strings.TrimSpace(name))) {
	case PresetNone:
		return Conditioner{}, nil
	case PresetContours, "":
		return Conditioner{SmoothRadius: 1}, nil
	case PresetStylize:
		return Conditioner{
			MaxWidth:     1024,
			SmoothRadius: 2,
			Brightness:   0.05,
			Saturation:   0.05,
			Gamma:        1.2,
		}, nil
	default:
		return Conditioner{}, fmt.Errorf("unknown conditioning preset %q", name)
	}
}

// Apply runs the configured steps in order: crop, resize, smooth, then
// color adjustments. The result always has its origin at (0, 0).
func (c Conditioner) Apply(img image.Image) (image.Image, error) {
	if c.Crop != nil {
		r := c.Crop.Add(img.Bounds().Min)
		if r.Empty() || !r.In(img.Bounds()) {
			return nil, fmt.Errorf("crop region %v outside image bounds %dx%d",
				*c.Crop, img.Bounds().Dx(), img.Bounds().Dy())
		}
		img = imaging.Crop(img, r)
	}

	if c.MaxWidth > 0 && img.Bounds().Dx() > c.MaxWidth {
		img = imaging.Resize(img, c.MaxWidth, 0, imaging.Lanczos)
	}

	if c.SmoothRadius > 0 {
		img = effect.Median(img, c.SmoothRadius)
	}
	if c.Brightness != 0 {
		img = adjust.Brightness(img, c.Brightness)
	}
	if c.Saturation != 0 {
		img = adjust.Saturation(img, c.Saturation)
	}
	if c.Gamma > 0 && c.Gamma != 1 {
		img = adjust.Gamma(img, c.Gamma)
	}

	if img.Bounds().Min != (image.Point{}) {
		img = imaging.Clone(img)
	}
	return img, nil
}
