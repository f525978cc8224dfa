package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/ironsheep/paintbynumbers/internal/imaging"
	"github.com/ironsheep/paintbynumbers/internal/pipeline"
	"github.com/ironsheep/paintbynumbers/internal/quantize"
	"github.com/ironsheep/paintbynumbers/internal/render"
	"github.com/ironsheep/paintbynumbers/internal/segment"
)

// DefaultStylizeColors is the palette size of image_stylize when the caller
// does not set numColors.
const DefaultStylizeColors = 32

// errInvalidArgs marks failures caused by the caller's arguments. They are
// reported as -32602 rather than -32000.
var errInvalidArgs = errors.New("invalid arguments")

func invalidArgs(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errInvalidArgs, fmt.Sprintf(format, args...))
}

// isInvalidParams reports whether err should be answered with -32602.
func isInvalidParams(err error) bool {
	return errors.Is(err, errInvalidArgs) ||
		errors.Is(err, pipeline.ErrInvalidConfig) ||
		errors.Is(err, quantize.ErrInvalidInput)
}

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_vectorize").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Argument and configuration errors return -32602; anything that fails
// while running the tool returns -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		if isInvalidParams(err) {
			return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}
	s.logger.Info("tool call", "tool", params.Name, "duration", time.Since(start))

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_sample_color":
		return s.handleImageSampleColor(args)

	// Color and edge analysis
	case "image_palette":
		return s.handleImagePalette(args)
	case "image_edge_detect":
		return s.handleImageEdgeDetect(args)

	// Paint-by-numbers
	case "image_vectorize":
		return s.handleImageVectorize(ctx, args)
	case "image_render_regions":
		return s.handleImageRenderRegions(ctx, args)
	case "image_stylize":
		return s.handleImageStylize(ctx, args)

	default:
		return nil, invalidArgs("unknown tool: %s", name)
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments. Missing arguments decode as the
// zero value.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArgs, err)
	}
	return nil
}

// === Image sources ===

// sourceArgs names the input image: a file path or an inline upload.
type sourceArgs struct {
	Path        string `json:"path"`
	ImageBase64 string `json:"image_base64"`
}

// regionArgs is a crop rectangle in image coordinates, x2/y2 exclusive.
type regionArgs struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (r *regionArgs) rect() *image.Rectangle {
	if r == nil {
		return nil
	}
	rect := image.Rect(r.X1, r.Y1, r.X2, r.Y2)
	return &rect
}

// loadSource returns the image a tool call refers to. Paths go through the
// cache; uploads are decoded every time.
func (s *Server) loadSource(a sourceArgs) (image.Image, error) {
	switch {
	case a.Path != "" && a.ImageBase64 != "":
		return nil, invalidArgs("path and image_base64 are mutually exclusive")
	case a.Path != "":
		return s.cache.Load(a.Path)
	case a.ImageBase64 != "":
		data := a.ImageBase64
		// Accept data URLs as pasted from a browser.
		if i := strings.Index(data, ";base64,"); strings.HasPrefix(data, "data:") && i >= 0 {
			data = data[i+len(";base64,"):]
		}
		raw, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, invalidArgs("image_base64: %v", err)
		}
		img, _, err := imaging.DecodeBytes(raw)
		return img, err
	default:
		return nil, invalidArgs("path or image_base64 is required")
	}
}

// conditioned loads the source and applies the named preset and crop.
func (s *Server) conditioned(src sourceArgs, preset string, region *regionArgs) (image.Image, error) {
	cond, err := imaging.NewConditioner(preset)
	if err != nil {
		return nil, invalidArgs("%v", err)
	}
	cond.Crop = region.rect()

	img, err := s.loadSource(src)
	if err != nil {
		return nil, err
	}
	out, err := cond.Apply(img)
	if err != nil {
		return nil, invalidArgs("%v", err)
	}
	return out, nil
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, invalidArgs("path is required")
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, invalidArgs("path is required")
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

type imageSampleColorArgs struct {
	sourceArgs
	X int `json:"x"`
	Y int `json:"y"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadSource(a.sourceArgs)
	if err != nil {
		return nil, err
	}
	c, err := imaging.SampleColor(img, a.X, a.Y)
	if err != nil {
		return nil, invalidArgs("%v", err)
	}
	return c, nil
}

// === Color and Edge Handlers ===

type imagePaletteArgs struct {
	sourceArgs
	NumColors int    `json:"numColors"`
	Method    string `json:"method"`
	Seed      uint64 `json:"seed"`
}

// paletteEntry is one quantized color with its pixel share.
type paletteEntry struct {
	Index int `json:"index"`
	imaging.ColorResult
	Pixels     int     `json:"pixels"`
	Percentage float64 `json:"percentage"`
}

func (s *Server) handleImagePalette(args json.RawMessage) (interface{}, error) {
	var a imagePaletteArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	cfg := s.defaults
	if a.NumColors != 0 {
		cfg.NumColors = a.NumColors
	}
	if a.Method != "" {
		cfg.Method = quantize.Method(a.Method)
	}
	if a.Seed != 0 {
		cfg.Seed = a.Seed
	}
	method, err := quantize.ParseMethod(string(cfg.Method))
	if err != nil {
		return nil, invalidArgs("%v", err)
	}

	img, err := s.loadSource(a.sourceArgs)
	if err != nil {
		return nil, err
	}

	q, err := quantize.New(method, quantize.Options{
		Seed:             cfg.Seed,
		MaxIterations:    cfg.MaxIterations,
		Epsilon:          cfg.ConvergenceEpsilon,
		Nondeterministic: cfg.Nondeterministic,
	})
	if err != nil {
		return nil, invalidArgs("%v", err)
	}
	res, err := q.Quantize(segment.FromImage(img), cfg.NumColors)
	if err != nil {
		return nil, err
	}
	quantize.SortByLuminance(res)

	counts := res.Labels.Counts()
	total := res.Labels.Width * res.Labels.Height
	described := imaging.DescribePalette(res.Palette.Color())
	entries := make([]paletteEntry, 0, len(described))
	for i, d := range described {
		entries = append(entries, paletteEntry{
			Index:       i,
			ColorResult: d,
			Pixels:      counts[i],
			Percentage:  100 * float64(counts[i]) / float64(total),
		})
	}
	return map[string]interface{}{
		"method":          method,
		"colors":          entries,
		"distinct_colors": res.Stats.DistinctColors,
	}, nil
}

type imageEdgeDetectArgs struct {
	sourceArgs
	Threshold int `json:"threshold"`
}

func (s *Server) handleImageEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a imageEdgeDetectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Threshold == 0 {
		a.Threshold = imaging.DefaultEdgeThreshold
	}
	if a.Threshold < 1 || a.Threshold > 255 {
		return nil, invalidArgs("threshold must be in [1, 255], got %d", a.Threshold)
	}
	img, err := s.loadSource(a.sourceArgs)
	if err != nil {
		return nil, err
	}
	return imaging.EdgeDetect(img, uint8(a.Threshold))
}

// === Paint-by-Numbers Handlers ===

// pipelineArgs are the pipeline knobs a tool call may override. Pointers
// separate "not given" from an explicit zero.
type pipelineArgs struct {
	sourceArgs
	Preset string      `json:"preset"`
	Region *regionArgs `json:"region"`

	NumColors      *int     `json:"numColors"`
	MinArea        *float64 `json:"minArea"`
	EpsilonFactor  *float64 `json:"epsilonFactor"`
	Method         string   `json:"method"`
	Seed           *uint64  `json:"seed"`
	MaxIterations  *int     `json:"maxIterations"`
	PaletteOrder   string   `json:"paletteOrder"`
	Anchors        *bool    `json:"anchors"`
	AnchorSpacing  *float64 `json:"anchorSpacing"`
	DropDegenerate *bool    `json:"dropDegenerate"`
}

// config overlays the arguments on base.
func (a *pipelineArgs) config(base pipeline.Config) pipeline.Config {
	cfg := base
	if a.NumColors != nil {
		cfg.NumColors = *a.NumColors
	}
	if a.MinArea != nil {
		cfg.MinArea = *a.MinArea
	}
	if a.EpsilonFactor != nil {
		cfg.EpsilonFactor = *a.EpsilonFactor
	}
	if a.Method != "" {
		cfg.Method = quantize.Method(a.Method)
	}
	if a.Seed != nil {
		cfg.Seed = *a.Seed
	}
	if a.MaxIterations != nil {
		cfg.MaxIterations = *a.MaxIterations
	}
	if a.PaletteOrder != "" {
		cfg.PaletteOrder = pipeline.PaletteOrder(a.PaletteOrder)
	}
	if a.Anchors != nil {
		cfg.PlaceAnchors = *a.Anchors
	}
	if a.AnchorSpacing != nil {
		cfg.AnchorSpacing = *a.AnchorSpacing
	}
	if a.DropDegenerate != nil {
		cfg.DropDegenerate = *a.DropDegenerate
	}
	return cfg
}

// run conditions the source and runs the pipeline on it.
func (s *Server) run(ctx context.Context, a *pipelineArgs) (*pipeline.Result, error) {
	p, err := pipeline.New(a.config(s.defaults), pipeline.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	img, err := s.conditioned(a.sourceArgs, a.Preset, a.Region)
	if err != nil {
		return nil, err
	}
	return p.RunImage(ctx, img)
}

// vectorizeResult is the image_vectorize response: the wire payload plus
// run metadata.
type vectorizeResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	pipeline.Payload
	Colors   []imaging.ColorResult `json:"colors"`
	Stats    pipeline.Stats        `json:"stats"`
	Warnings []string              `json:"warnings,omitempty"`
}

func (s *Server) handleImageVectorize(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a pipelineArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	res, err := s.run(ctx, &a)
	if err != nil {
		return nil, err
	}
	return &vectorizeResult{
		Width:    res.Width,
		Height:   res.Height,
		Payload:  res.Payload(),
		Colors:   imaging.DescribePalette(res.Palette.Color()),
		Stats:    res.Stats,
		Warnings: res.Warnings,
	}, nil
}

// Render modes accepted by image_render_regions.
const (
	modeColored = "colored"
	modeOutline = "outline"
	modeFilled  = "filled"
	modeSVG     = "svg"
	modeBundle  = "bundle"
)

type imageRenderArgs struct {
	pipelineArgs
	Mode         string `json:"mode"`
	Outlines     *bool  `json:"outlines"`
	Numbers      *bool  `json:"numbers"`
	OutlineColor string `json:"outlineColor"`
	Grid         int    `json:"grid"`
	GridColor    string `json:"gridColor"`
}

// svgResult carries an SVG document as text.
type svgResult struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	SVG      string `json:"svg"`
	MimeType string `json:"mime_type"`
}

// bundleResult carries a zip archive of every render.
type bundleResult struct {
	ZipBase64 string `json:"zip_base64"`
	MimeType  string `json:"mime_type"`
	Regions   int    `json:"regions"`
}

func (s *Server) handleImageRenderRegions(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageRenderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Mode == "" {
		a.Mode = modeColored
	}
	switch a.Mode {
	case modeColored, modeOutline, modeFilled, modeSVG, modeBundle:
	default:
		return nil, invalidArgs("unknown render mode %q", a.Mode)
	}

	opts := render.Options{Outlines: true, Numbers: true}
	if a.Outlines != nil {
		opts.Outlines = *a.Outlines
	}
	if a.Numbers != nil {
		opts.Numbers = *a.Numbers
	}
	if a.Grid < 0 {
		return nil, invalidArgs("grid must be non-negative, got %d", a.Grid)
	}
	opts.Grid = a.Grid
	if a.OutlineColor != "" {
		c, err := render.ParseHexColor(a.OutlineColor)
		if err != nil {
			return nil, invalidArgs("outlineColor: %v", err)
		}
		opts.OutlineColor = c
	}
	if a.GridColor != "" {
		c, err := render.ParseHexColor(a.GridColor)
		if err != nil {
			return nil, invalidArgs("gridColor: %v", err)
		}
		opts.GridColor = c
	}

	res, err := s.run(ctx, &a.pipelineArgs)
	if err != nil {
		return nil, err
	}

	switch a.Mode {
	case modeSVG:
		var buf bytes.Buffer
		if err := render.SVG(&buf, res, opts); err != nil {
			return nil, err
		}
		return &svgResult{
			Width:    res.Width,
			Height:   res.Height,
			SVG:      buf.String(),
			MimeType: "image/svg+xml",
		}, nil
	case modeBundle:
		var buf bytes.Buffer
		if err := render.WriteBundle(&buf, res, opts); err != nil {
			return nil, err
		}
		return &bundleResult{
			ZipBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
			MimeType:  "application/zip",
			Regions:   len(res.Regions),
		}, nil
	}

	var img image.Image
	switch a.Mode {
	case modeOutline:
		img, err = render.Outline(res, opts)
	case modeFilled:
		img = render.Filled(res)
	default:
		img, err = render.Colored(res, opts)
	}
	if err != nil {
		return nil, err
	}
	return imaging.EncodePNGBase64(img)
}

type imageStylizeArgs struct {
	sourceArgs
	Region        *regionArgs `json:"region"`
	NumColors     int         `json:"numColors"`
	Seed          *uint64     `json:"seed"`
	EdgeThreshold int         `json:"edgeThreshold"`
	EdgeWeight    *float64    `json:"edgeWeight"`
}

// handleImageStylize renders the flat cartoon look: the stylize preset,
// k-means colors, then the edge mask blended on top. Regions are not
// needed, so simplification and anchors are skipped.
func (s *Server) handleImageStylize(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageStylizeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.NumColors == 0 {
		a.NumColors = DefaultStylizeColors
	}
	if a.EdgeThreshold == 0 {
		a.EdgeThreshold = imaging.DefaultEdgeThreshold
	}
	if a.EdgeThreshold < 1 || a.EdgeThreshold > 255 {
		return nil, invalidArgs("edgeThreshold must be in [1, 255], got %d", a.EdgeThreshold)
	}
	weight := render.DefaultEdgeWeight
	if a.EdgeWeight != nil {
		weight = *a.EdgeWeight
	}
	if weight < 0 || weight > 1 {
		return nil, invalidArgs("edgeWeight must be in [0, 1], got %v", weight)
	}

	cfg := s.defaults
	cfg.NumColors = a.NumColors
	cfg.Method = quantize.MethodKMeans
	cfg.PlaceAnchors = false
	if a.Seed != nil {
		cfg.Seed = *a.Seed
	}
	p, err := pipeline.New(cfg, pipeline.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}

	img, err := s.conditioned(a.sourceArgs, string(imaging.PresetStylize), a.Region)
	if err != nil {
		return nil, err
	}
	res, err := p.RunImage(ctx, img)
	if err != nil {
		return nil, err
	}
	out, err := render.Stylized(res, imaging.EdgeMask(img, uint8(a.EdgeThreshold)), weight)
	if err != nil {
		return nil, err
	}
	return imaging.EncodePNGBase64(out)
}
