package render

import (
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo"

	"github.com/ironsheep/paintbynumbers/internal/pipeline"
)

// SVG writes the regions as a vector document sized to the source image.
// Each region is a polygon filled with its palette color, or left unfilled
// with a stroke when opts.FromPolygons is false and opts.Outlines is set,
// which produces the printable coloring sheet.
func SVG(w io.Writer, res *pipeline.Result, opts Options) error {
	if res.Width <= 0 || res.Height <= 0 {
		return ErrEmptyResult
	}

	canvas := svg.New(w)
	canvas.Start(res.Width, res.Height)
	canvas.Title(fmt.Sprintf("%d regions, %d colors", len(res.Regions), len(res.Palette)))
	canvas.Rect(0, 0, res.Width, res.Height, "fill:#FFFFFF")

	sheet := opts.Outlines && !opts.FromPolygons
	canvas.Gid("regions")
	for _, r := range res.Regions {
		xs := make([]int, len(r.Polygon))
		ys := make([]int, len(r.Polygon))
		for i, p := range r.Polygon {
			xs[i], ys[i] = p.X, p.Y
		}
		style := fmt.Sprintf("fill:%s;stroke:none", res.Palette[r.ColorIndex].Hex())
		if sheet {
			style = "fill:none;stroke:#333333;stroke-width:1"
		} else if opts.Outlines {
			style = fmt.Sprintf("fill:%s;stroke:#333333;stroke-width:1", res.Palette[r.ColorIndex].Hex())
		}
		canvas.Polygon(xs, ys, style, fmt.Sprintf(`data-color="%d"`, r.ColorIndex))
	}
	canvas.Gend()

	if opts.Numbers {
		canvas.Gid("numbers")
		for _, r := range res.Regions {
			if r.Anchor == nil {
				continue
			}
			canvas.Text(r.Anchor.X, r.Anchor.Y, Label(r.ColorIndex),
				"font-family:sans-serif;font-size:10px;text-anchor:middle;dominant-baseline:middle;fill:#000000")
		}
		canvas.Gend()
	}

	canvas.End()
	return nil
}
