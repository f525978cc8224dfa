package render

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ironsheep/paintbynumbers/internal/imaging"
	"github.com/ironsheep/paintbynumbers/internal/pipeline"
)

// Bundle file names.
const (
	BundleColored = "colored.png"
	BundleOutline = "outline.png"
	BundleSVG     = "regions.svg"
	BundleJSON    = "regions.json"
)

// WriteBundle writes a zip archive holding the colored raster, the numbered
// outline sheet, the SVG, and the JSON payload.
func WriteBundle(w io.Writer, res *pipeline.Result, opts Options) error {
	colored, err := Colored(res, opts)
	if err != nil {
		return err
	}
	outline, err := Outline(res, Options{Numbers: true, OutlineColor: opts.OutlineColor, Grid: opts.Grid, GridColor: opts.GridColor})
	if err != nil {
		return err
	}

	coloredPNG, err := imaging.EncodePNG(colored)
	if err != nil {
		return err
	}
	outlinePNG, err := imaging.EncodePNG(outline)
	if err != nil {
		return err
	}

	var doc bytes.Buffer
	if err := SVG(&doc, res, Options{Outlines: true, Numbers: true}); err != nil {
		return err
	}

	payload, err := json.MarshalIndent(res.Payload(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	zw := zip.NewWriter(w)
	files := []struct {
		name string
		data []byte
	}{
		{BundleColored, coloredPNG},
		{BundleOutline, outlinePNG},
		{BundleSVG, doc.Bytes()},
		{BundleJSON, payload},
	}
	for _, f := range files {
		fw, err := zw.Create(f.name)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", f.name, err)
		}
		if _, err := fw.Write(f.data); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish bundle: %w", err)
	}
	return nil
}
