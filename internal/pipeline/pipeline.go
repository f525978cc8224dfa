// Package pipeline turns a conditioned pixel buffer into paint-by-numbers
// regions.
//
// A run quantizes the buffer once, then for each palette label extracts the
// label's connected regions, describes them, and finally places label
// anchors in a single serial pass. Per-label work runs on a bounded worker
// pool; regions are reassembled in label order, then discovery order, so
// output is identical for any worker count.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"time"

	"github.com/ironsheep/paintbynumbers/internal/describe"
	"github.com/ironsheep/paintbynumbers/internal/parallel"
	"github.com/ironsheep/paintbynumbers/internal/quantize"
	"github.com/ironsheep/paintbynumbers/internal/segment"
)

// Stats summarizes one run.
type Stats struct {
	Quantization quantize.Stats `json:"quantization"`

	// Contours is the number of external boundaries traced over all labels.
	Contours int `json:"contours"`

	// Regions is the number of regions kept.
	Regions int `json:"regions"`

	// BelowArea, Degenerate and Collapsed count contours that did not
	// become regions.
	BelowArea  int `json:"belowArea"`
	Degenerate int `json:"degenerate"`
	Collapsed  int `json:"collapsed"`

	// Anchors is the number of regions that received an anchor.
	Anchors int `json:"anchors"`

	Workers  int           `json:"workers"`
	Duration time.Duration `json:"duration"`
}

// Result is everything one run produced. It is owned by the caller.
type Result struct {
	Width   int               `json:"width"`
	Height  int               `json:"height"`
	Palette segment.Palette   `json:"palette"`
	Regions []describe.Region `json:"regions"`

	// Labels is the per-pixel palette assignment, kept for rendering.
	Labels *segment.LabelMap `json:"-"`

	Stats Stats `json:"stats"`

	// Warnings lists quality problems that did not stop the run, such as
	// k-means hitting its iteration cap.
	Warnings []string `json:"warnings,omitempty"`
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithOps replaces the image primitives used for assignment and morphology.
func WithOps(ops segment.ImageOps) Option {
	return func(p *Pipeline) {
		if ops != nil {
			p.ops = ops
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Pipeline is a validated, reusable configuration. Runs share nothing, so
// one Pipeline may serve concurrent callers.
type Pipeline struct {
	cfg    Config
	ops    segment.ImageOps
	logger *slog.Logger
}

// New validates cfg and returns a Pipeline for it.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	method, _ := quantize.ParseMethod(string(cfg.Method))
	cfg.Method = method

	p := &Pipeline{
		cfg:    cfg,
		ops:    segment.NativeOps{Workers: cfg.Workers},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the validated configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run validates cfg and processes buf in one call.
func Run(ctx context.Context, buf *segment.PixelBuffer, cfg Config, opts ...Option) (*Result, error) {
	p, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, buf)
}

// RunImage converts img to a pixel buffer and runs the pipeline on it.
func (p *Pipeline) RunImage(ctx context.Context, img image.Image) (*Result, error) {
	return p.Run(ctx, segment.FromImage(img))
}

// labelOutput is what one worker produced for one label.
type labelOutput struct {
	regions  []*describe.Region
	contours int
	verdicts [4]int
}

// Run processes buf. It either returns a complete result or an error; a
// cancelled ctx discards everything computed so far.
func (p *Pipeline) Run(ctx context.Context, buf *segment.PixelBuffer) (*Result, error) {
	start := time.Now()
	cfg := p.cfg

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q, err := quantize.New(cfg.Method, quantize.Options{
		Ops:              p.ops,
		Seed:             cfg.Seed,
		MaxIterations:    cfg.MaxIterations,
		Epsilon:          cfg.ConvergenceEpsilon,
		Nondeterministic: cfg.Nondeterministic,
	})
	if err != nil {
		return nil, fmt.Errorf("quantizer: %w", err)
	}
	qres, err := q.Quantize(buf, cfg.NumColors)
	if err != nil {
		return nil, fmt.Errorf("quantize: %w", err)
	}
	if cfg.PaletteOrder == OrderLuminance {
		quantize.SortByLuminance(qres)
	}

	res := &Result{
		Width:   buf.Width,
		Height:  buf.Height,
		Palette: qres.Palette,
		Labels:  qres.Labels,
		Stats:   Stats{Quantization: qres.Stats},
	}
	if cfg.Method == quantize.MethodKMeans && !qres.Stats.Converged {
		msg := fmt.Sprintf("k-means did not converge within %d iterations", qres.Stats.Iterations)
		res.Warnings = append(res.Warnings, msg)
		p.logger.Warn("quantization did not converge",
			"iterations", qres.Stats.Iterations,
			"colors", cfg.NumColors)
	}

	outputs, workers, err := p.extract(ctx, qres.Labels)
	if err != nil {
		return nil, err
	}
	res.Stats.Workers = workers

	for _, out := range outputs {
		res.Stats.Contours += out.contours
		res.Stats.BelowArea += out.verdicts[describe.BelowArea]
		res.Stats.Degenerate += out.verdicts[describe.DroppedDegenerate]
		res.Stats.Collapsed += out.verdicts[describe.Collapsed]
		for _, r := range out.regions {
			res.Regions = append(res.Regions, *r)
		}
	}
	if res.Regions == nil {
		res.Regions = []describe.Region{}
	}
	res.Stats.Regions = len(res.Regions)

	if cfg.PlaceAnchors {
		placer := describe.NewAnchorPlacer(cfg.AnchorSpacing)
		for i := range res.Regions {
			placer.Place(&res.Regions[i])
		}
		res.Stats.Anchors = placer.Placed()
	}

	res.Stats.Duration = time.Since(start)
	p.logger.Debug("pipeline run complete",
		"width", buf.Width,
		"height", buf.Height,
		"colors", cfg.NumColors,
		"method", string(cfg.Method),
		"contours", res.Stats.Contours,
		"regions", res.Stats.Regions,
		"anchors", res.Stats.Anchors,
		"workers", workers,
		"duration", res.Stats.Duration)
	return res, nil
}

// extract runs region extraction and description for every label on a pool
// bounded by K. Each label writes only its own slot.
func (p *Pipeline) extract(ctx context.Context, labels *segment.LabelMap) ([]labelOutput, int, error) {
	k := labels.K
	workers := p.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, k)

	extractor := segment.NewExtractor(p.ops, p.cfg.KernelSize)
	describer := describe.Describer{
		MinArea:        p.cfg.MinArea,
		EpsilonFactor:  p.cfg.EpsilonFactor,
		DropDegenerate: p.cfg.DropDegenerate,
	}
	counts := labels.Counts()

	outputs := make([]labelOutput, k)
	pool := parallel.Start(workers)
	for label := 0; label < k; label++ {
		if counts[label] == 0 {
			continue
		}
		pool.Do(func() {
			if ctx.Err() != nil {
				return
			}
			out := &outputs[label]
			for _, c := range extractor.Extract(labels, label) {
				out.contours++
				r, v := describer.Describe(label, c)
				out.verdicts[v]++
				if r != nil {
					out.regions = append(out.regions, r)
				}
			}
		})
	}
	pool.Wait(true)

	if err := ctx.Err(); err != nil {
		return nil, workers, err
	}
	return outputs, workers, nil
}
