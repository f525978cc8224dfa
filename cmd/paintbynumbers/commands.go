package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alecthomas/kong"
	"github.com/schollz/progressbar/v3"

	"github.com/ironsheep/paintbynumbers/internal/imaging"
	"github.com/ironsheep/paintbynumbers/internal/parallel"
	"github.com/ironsheep/paintbynumbers/internal/pipeline"
	"github.com/ironsheep/paintbynumbers/internal/quantize"
	"github.com/ironsheep/paintbynumbers/internal/render"
	"github.com/ironsheep/paintbynumbers/internal/server"
)

// configFlags are the pipeline knobs shared by every command.
type configFlags struct {
	NumColors      int     `help:"Palette size K" default:"25" env:"PBN_NUM_COLORS" group:"pipeline"`
	MinArea        float64 `help:"Smallest region area in square pixels" default:"600" env:"PBN_MIN_AREA" group:"pipeline"`
	EpsilonFactor  float64 `help:"Simplification tolerance as a fraction of each contour's perimeter (0 keeps every corner)" default:"0.005" env:"PBN_EPSILON_FACTOR" group:"pipeline"`
	Method         string  `help:"Quantization strategy" enum:"median-cut,kmeans,dominant" default:"median-cut" env:"PBN_METHOD" group:"pipeline"`
	Seed           uint64  `help:"k-means seed" default:"1" env:"PBN_SEED" group:"pipeline"`
	Random         bool    `help:"Let k-means seed itself from the runtime" group:"pipeline"`
	MaxIterations  int     `help:"k-means iteration cap" default:"20" group:"pipeline"`
	KernelSize     int     `help:"Side of the elliptical cleanup kernel (odd)" default:"5" group:"pipeline"`
	PaletteOrder   string  `help:"Palette numbering" enum:"native,luminance" default:"native" group:"pipeline"`
	Anchors        bool    `help:"Place label anchors" default:"true" negatable:"" group:"pipeline"`
	AnchorSpacing  float64 `help:"Minimum distance between two anchors" default:"20" group:"pipeline"`
	DropDegenerate bool    `help:"Skip zero-area regions instead of reporting them at (0,0)" group:"pipeline"`
	Workers        int     `help:"Per-color workers (0 = all CPUs)" default:"0" group:"pipeline"`
}

func (f configFlags) config() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.NumColors = f.NumColors
	cfg.MinArea = f.MinArea
	cfg.EpsilonFactor = f.EpsilonFactor
	cfg.Method = quantize.Method(f.Method)
	cfg.Seed = f.Seed
	cfg.Nondeterministic = f.Random
	cfg.MaxIterations = f.MaxIterations
	cfg.KernelSize = f.KernelSize
	cfg.PaletteOrder = pipeline.PaletteOrder(f.PaletteOrder)
	cfg.PlaceAnchors = f.Anchors
	cfg.AnchorSpacing = f.AnchorSpacing
	cfg.DropDegenerate = f.DropDegenerate
	cfg.Workers = f.Workers
	return cfg
}

// sourceFlags select the input image and how it is conditioned.
type sourceFlags struct {
	Input  string `arg:"" type:"existingfile" help:"Image to process"`
	Preset string `help:"Conditioning applied before quantization" enum:"none,contours,stylize" default:"contours"`
	Crop   []int  `help:"Process only this rectangle" placeholder:"X1,Y1,X2,Y2"`
}

func (f sourceFlags) conditioner() (imaging.Conditioner, error) {
	cond, err := imaging.NewConditioner(f.Preset)
	if err != nil {
		return cond, err
	}
	if len(f.Crop) == 0 {
		return cond, nil
	}
	if len(f.Crop) != 4 {
		return cond, fmt.Errorf("crop needs 4 values, got %d", len(f.Crop))
	}
	r := image.Rect(f.Crop[0], f.Crop[1], f.Crop[2], f.Crop[3])
	cond.Crop = &r
	return cond, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open image %q: %w", path, err)
	}
	defer f.Close()

	img, _, err := imaging.Decode(f, path)
	return img, err
}

// process loads, conditions and vectorizes one image. It also returns the
// conditioned image the pipeline ran on.
func process(ctx context.Context, logger *slog.Logger, src sourceFlags, flags configFlags) (*pipeline.Result, image.Image, error) {
	p, err := pipeline.New(flags.config(), pipeline.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	cond, err := src.conditioner()
	if err != nil {
		return nil, nil, err
	}

	img, err := loadImage(src.Input)
	if err != nil {
		return nil, nil, err
	}
	if img, err = cond.Apply(img); err != nil {
		return nil, nil, err
	}

	res, err := p.RunImage(ctx, img)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("vectorized", "file", src.Input, "colors", len(res.Palette),
		"regions", len(res.Regions), "duration", res.Stats.Duration)
	for _, w := range res.Warnings {
		logger.Warn(w, "file", src.Input)
	}
	return res, img, nil
}

// writeOutput calls write with the named file, or stdout for "-".
func writeOutput(path string, write func(io.Writer) error) (err error) {
	if path == "-" || path == "" {
		return write(os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create %q: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("could not close %q: %w", path, closeErr)
		}
	}()
	return write(f)
}

// === serve ===

type serveCmd struct {
	configFlags
}

func (c *serveCmd) Run(ctx context.Context, logger *slog.Logger) error {
	cfg := c.config()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Debug("starting MCP server", "version", Version, "built", BuildTime, "commit", GitCommit)

	srv := server.New(server.WithLogger(logger), server.WithDefaults(cfg))
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// === vectorize ===

type vectorizeCmd struct {
	sourceFlags
	configFlags

	Output  string `help:"Output file, - for stdout" short:"o" default:"-"`
	Compact bool   `help:"Write JSON without indentation"`
}

func (c *vectorizeCmd) Run(ctx context.Context, logger *slog.Logger) error {
	res, _, err := process(ctx, logger, c.sourceFlags, c.configFlags)
	if err != nil {
		return err
	}
	return writeOutput(c.Output, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		if !c.Compact {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(res.Payload())
	})
}

// === render ===

type renderCmd struct {
	sourceFlags
	configFlags

	Output        string  `help:"Output file, - for stdout" short:"o" required:""`
	Mode          string  `help:"What to render (default: from the output extension, else colored)" enum:"auto,colored,outline,filled,stylized,svg,bundle" default:"auto"`
	Outlines      bool    `help:"Draw region outlines" default:"true" negatable:""`
	Numbers       bool    `help:"Draw palette numbers at anchors" default:"true" negatable:""`
	OutlineColor  string  `help:"Outline stroke color as #RRGGBB or #RRGGBBAA"`
	Grid          int     `help:"Draw a labeled transfer grid every N pixels (0 = none)" default:"0"`
	GridColor     string  `help:"Grid line color as #RRGGBB or #RRGGBBAA" default:"#FF000080"`
	EdgeThreshold uint8   `help:"Edge threshold for the stylized render" default:"40"`
	EdgeWeight    float64 `help:"Edge brightness for the stylized render" default:"0.25"`
}

// mode returns the render mode, inferred from the output name when unset.
func (c *renderCmd) mode() string {
	if c.Mode != "auto" && c.Mode != "" {
		return c.Mode
	}
	switch strings.ToLower(filepath.Ext(c.Output)) {
	case ".svg":
		return "svg"
	case ".zip":
		return "bundle"
	}
	return "colored"
}

// options builds the render options from the flags.
func (c *renderCmd) options() (render.Options, error) {
	opts := render.Options{Outlines: c.Outlines, Numbers: c.Numbers}
	if c.Grid < 0 {
		return opts, fmt.Errorf("invalid grid spacing: %d", c.Grid)
	}
	opts.Grid = c.Grid
	if c.OutlineColor != "" {
		col, err := render.ParseHexColor(c.OutlineColor)
		if err != nil {
			return opts, err
		}
		opts.OutlineColor = col
	}
	if c.GridColor != "" {
		col, err := render.ParseHexColor(c.GridColor)
		if err != nil {
			return opts, err
		}
		opts.GridColor = col
	}
	return opts, nil
}

func (c *renderCmd) Run(ctx context.Context, logger *slog.Logger) error {
	opts, err := c.options()
	if err != nil {
		return err
	}
	res, img, err := process(ctx, logger, c.sourceFlags, c.configFlags)
	if err != nil {
		return err
	}

	switch c.mode() {
	case "svg":
		return writeOutput(c.Output, func(w io.Writer) error { return render.SVG(w, res, opts) })
	case "bundle":
		return writeOutput(c.Output, func(w io.Writer) error { return render.WriteBundle(w, res, opts) })
	}

	var out image.Image
	switch c.mode() {
	case "outline":
		out, err = render.Outline(res, opts)
	case "filled":
		out = render.Filled(res)
	case "stylized":
		out, err = render.Stylized(res, imaging.EdgeMask(img, c.EdgeThreshold), c.EdgeWeight)
	default:
		out, err = render.Colored(res, opts)
	}
	if err != nil {
		return err
	}
	data, err := imaging.EncodePNG(out)
	if err != nil {
		return err
	}
	return writeOutput(c.Output, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// === batch ===

type batchCmd struct {
	configFlags

	Dir      string `arg:"" type:"existingdir" help:"Folder to scan"`
	Dest     string `help:"Destination folder for bundles. Relative to the scanned folder if not absolute." default:"pbn"`
	Preset   string `help:"Conditioning applied before quantization" enum:"none,contours,stylize" default:"contours"`
	Jobs     int    `help:"Images processed at once (0 = all CPUs)" short:"j" default:"0"`
	Progress bool   `help:"Show a progress bar on stderr" default:"true" negatable:""`
}

func (c *batchCmd) Validate(kctx *kong.Context) error {
	dir, err := filepath.Abs(c.Dir)
	if err != nil {
		return fmt.Errorf("invalid scan path %q: %w", c.Dir, err)
	}
	c.Dir = dir

	if !filepath.IsAbs(c.Dest) {
		c.Dest = filepath.Join(dir, c.Dest)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("invalid job count: %d", c.Jobs)
	}
	return nil
}

func (c *batchCmd) Run(ctx context.Context, logger *slog.Logger) error {
	if err := c.config().Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(c.Dest, 0o755); err != nil {
		return fmt.Errorf("unable to create destination folder %q: %w", c.Dest, err)
	}

	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return fmt.Errorf("unable to read folder %q: %w", c.Dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}

	var bar *progressbar.ProgressBar
	if c.Progress {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("paint-by-numbers"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	start := time.Now()
	var processed, skipped, failed atomic.Uint64
	pool := parallel.Start(c.Jobs)
	for _, name := range files {
		pool.Do(func() {
			if bar != nil {
				defer bar.Add(1)
			}
			if ctx.Err() != nil {
				return
			}

			path := filepath.Join(c.Dir, name)
			log := logger.With("file", path)
			src := sourceFlags{Input: path, Preset: c.Preset}
			// The bar reports progress; only problems are logged per image.
			res, _, err := process(ctx, slog.New(raiseLevel(log.Handler(), slog.LevelWarn)), src, c.configFlags)
			switch {
			case imaging.IsDecodeError(err):
				skipped.Add(1)
				log.Debug("skipping non-image file", "error", err)
				return
			case err != nil:
				failed.Add(1)
				log.Error("could not vectorize image", "error", err)
				return
			}

			dest := filepath.Join(c.Dest, strings.TrimSuffix(name, filepath.Ext(name))+".zip")
			err = writeOutput(dest, func(w io.Writer) error {
				return render.WriteBundle(w, res, render.Options{Outlines: true, Numbers: true})
			})
			if err != nil {
				failed.Add(1)
				log.Error("could not write bundle", "dest", dest, "error", err)
				return
			}
			processed.Add(1)
			log.Debug("wrote bundle", "dest", dest, "regions", len(res.Regions))
		})
	}
	pool.Wait(true)
	if bar != nil {
		_ = bar.Finish()
	}

	logger.Info("stats", "processed", processed.Load(), "skipped", skipped.Load(),
		"errors", failed.Load(), "total", len(files), "duration", time.Since(start))
	if err := ctx.Err(); err != nil {
		return err
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d images failed", n, len(files))
	}
	return nil
}

// levelFloor drops records below floor.
type levelFloor struct {
	slog.Handler
	floor slog.Level
}

func raiseLevel(h slog.Handler, floor slog.Level) slog.Handler {
	return levelFloor{Handler: h, floor: floor}
}

func (h levelFloor) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.floor && h.Handler.Enabled(ctx, l)
}

func (h levelFloor) WithAttrs(attrs []slog.Attr) slog.Handler {
	return levelFloor{Handler: h.Handler.WithAttrs(attrs), floor: h.floor}
}

func (h levelFloor) WithGroup(name string) slog.Handler {
	return levelFloor{Handler: h.Handler.WithGroup(name), floor: h.floor}
}
