package render

import (
	"image"

	"github.com/ironsheep/paintbynumbers/internal/pipeline"
)

// DefaultEdgeWeight is how strongly edges lighten the stylized raster.
const DefaultEdgeWeight = 0.25

// Stylized adds weight × edges to the colored raster, saturating at 255, so
// region edges show as light seams over the flat palette colors. edges must
// cover the result's pixels; pixels outside it are left as-is.
func Stylized(res *pipeline.Result, edges *image.Gray, weight float64) (*image.RGBA, error) {
	img, err := Colored(res, Options{})
	if err != nil {
		return nil, err
	}
	if edges == nil || weight == 0 {
		return img, nil
	}

	eb := edges.Bounds()
	for y := 0; y < res.Height && y < eb.Dy(); y++ {
		for x := 0; x < res.Width && x < eb.Dx(); x++ {
			add := weight * float64(edges.GrayAt(eb.Min.X+x, eb.Min.Y+y).Y)
			if add == 0 {
				continue
			}
			o := img.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				img.Pix[o+c] = saturate(float64(img.Pix[o+c]) + add)
			}
		}
	}
	return img, nil
}

func saturate(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
