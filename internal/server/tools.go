package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// sourceProperties are the properties every image-consuming tool accepts.
func sourceProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to the image file",
		},
		"image_base64": map[string]interface{}{
			"type":        "string",
			"description": "Base64-encoded image data (PNG, JPEG, GIF, BMP, TIFF or WebP). Data URLs are accepted. Mutually exclusive with path.",
		},
	}
}

func regionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Optional crop rectangle processed instead of the whole image. x2 and y2 are exclusive.",
		"properties": map[string]interface{}{
			"x1": map[string]interface{}{"type": "integer"},
			"y1": map[string]interface{}{"type": "integer"},
			"x2": map[string]interface{}{"type": "integer"},
			"y2": map[string]interface{}{"type": "integer"},
		},
		"required": []string{"x1", "y1", "x2", "y2"},
	}
}

// pipelineProperties are the source properties plus every pipeline knob.
func pipelineProperties() map[string]interface{} {
	props := sourceProperties()
	props["preset"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"none", "contours", "stylize"},
		"description": "Conditioning applied before quantization (default: contours)",
	}
	props["region"] = regionProperty()
	props["numColors"] = map[string]interface{}{
		"type":        "integer",
		"minimum":     1,
		"maximum":     256,
		"description": "Palette size K (default: 25)",
	}
	props["minArea"] = map[string]interface{}{
		"type":        "number",
		"minimum":     0,
		"description": "Smallest region area in square pixels (default: 600)",
	}
	props["epsilonFactor"] = map[string]interface{}{
		"type":        "number",
		"minimum":     0,
		"description": "Simplification tolerance as a fraction of each contour's perimeter; 0 keeps every corner (default: 0.005)",
	}
	props["method"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"median-cut", "kmeans", "dominant"},
		"description": "Quantization strategy (default: median-cut)",
	}
	props["seed"] = map[string]interface{}{
		"type":        "integer",
		"description": "Seed for k-means initialization (default: 1)",
	}
	props["maxIterations"] = map[string]interface{}{
		"type":        "integer",
		"minimum":     1,
		"description": "k-means iteration cap (default: 20)",
	}
	props["paletteOrder"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"native", "luminance"},
		"description": "Palette numbering: quantizer order or darkest first (default: native)",
	}
	props["anchors"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Place non-overlapping label anchors (default: true)",
	}
	props["anchorSpacing"] = map[string]interface{}{
		"type":        "number",
		"minimum":     0,
		"description": "Minimum distance between two anchors in pixels (default: 20)",
	}
	props["dropDegenerate"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Skip zero-area regions instead of reporting them at centroid (0,0) (default: false)",
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format, color depth and file size. The decoded image is cached for subsequent calls with the same path.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_sample_color",
			Description: "Get the color at a specific pixel as hex, RGB and HSL.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": merge(sourceProperties(), map[string]interface{}{
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate",
					},
				}),
				"required": []string{"x", "y"},
			},
		},

		// Color and Edge Analysis
		{
			Name:        "image_palette",
			Description: "Quantize an image to K colors and return the palette, darkest first, with each color's pixel share.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": merge(sourceProperties(), map[string]interface{}{
					"numColors": map[string]interface{}{
						"type":        "integer",
						"minimum":     1,
						"maximum":     256,
						"description": "Palette size K (default: 25)",
					},
					"method": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"median-cut", "kmeans", "dominant"},
						"description": "Quantization strategy (default: median-cut)",
					},
					"seed": map[string]interface{}{
						"type":        "integer",
						"description": "Seed for k-means initialization (default: 1)",
					},
				}),
			},
		},
		{
			Name:        "image_edge_detect",
			Description: "Detect edges with a Laplacian kernel and return a binary edge map as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": merge(sourceProperties(), map[string]interface{}{
					"threshold": map[string]interface{}{
						"type":        "integer",
						"minimum":     1,
						"maximum":     255,
						"description": "Edge response threshold (default: 40)",
					},
				}),
			},
		},

		// Paint-by-Numbers
		{
			Name:        "image_vectorize",
			Description: "Reduce an image to a small palette and return every connected color region as a simplified polygon with its centroid, area and label anchor. The response contains palette ([[r,g,b],...]) and contours ([{colorIndex, points, centroid, anchor, area}]).",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": pipelineProperties(),
			},
		},
		{
			Name:        "image_render_regions",
			Description: "Vectorize an image and render the result: flat colors, a printable numbered outline sheet, polygon fills, an SVG document, or a zip bundle with all of them plus the JSON payload.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": merge(pipelineProperties(), map[string]interface{}{
					"mode": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"colored", "outline", "filled", "svg", "bundle"},
						"description": "Output to produce (default: colored)",
					},
					"outlines": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw region outlines (default: true)",
					},
					"numbers": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw palette numbers at region anchors (default: true)",
					},
					"outlineColor": map[string]interface{}{
						"type":        "string",
						"description": "Outline stroke color as #RRGGBB or #RRGGBBAA (default: dark gray on colored renders, black on outline sheets)",
					},
					"grid": map[string]interface{}{
						"type":        "integer",
						"minimum":     0,
						"description": "Draw a labeled transfer grid every N pixels on raster renders (default: 0, no grid)",
					},
					"gridColor": map[string]interface{}{
						"type":        "string",
						"description": "Grid line color as #RRGGBB or #RRGGBBAA (default: #FF000080)",
					},
				}),
			},
		},
		{
			Name:        "image_stylize",
			Description: "Produce a flat cartoon rendering: resize to at most 1024 pixels wide, smooth, quantize with k-means and blend the edge map on top. Returns base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": merge(sourceProperties(), map[string]interface{}{
					"region": regionProperty(),
					"numColors": map[string]interface{}{
						"type":        "integer",
						"minimum":     1,
						"maximum":     256,
						"description": "Palette size K (default: 32)",
					},
					"seed": map[string]interface{}{
						"type":        "integer",
						"description": "Seed for k-means initialization (default: 1)",
					},
					"edgeThreshold": map[string]interface{}{
						"type":        "integer",
						"minimum":     1,
						"maximum":     255,
						"description": "Edge response threshold (default: 40)",
					},
					"edgeWeight": map[string]interface{}{
						"type":        "number",
						"minimum":     0,
						"maximum":     1,
						"description": "Brightness added on edges, as a fraction of white (default: 0.25)",
					},
				}),
			},
		},
	}
}

// merge copies extra into props and returns props.
func merge(props, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		props[k] = v
	}
	return props
}
