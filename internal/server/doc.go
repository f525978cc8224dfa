// Package server implements the MCP (Model Context Protocol) server for the
// paint-by-numbers tools.
//
// The server speaks JSON-RPC 2.0 over stdio:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//   - image_sample_color: Get color at pixel
//
// Color and Edge Analysis:
//   - image_palette: Quantized palette with pixel shares
//   - image_edge_detect: Binary Laplacian edge map
//
// Paint-by-Numbers:
//   - image_vectorize: Palette plus simplified region polygons, centroids and anchors
//   - image_render_regions: Colored, outline, filled, SVG or zip renders of the regions
//   - image_stylize: Flat cartoon rendering with edge seams
//
// Image tools take either a path, which is decoded once and cached for the
// lifetime of the process, or image_base64 for inline uploads.
//
// # Error Handling
//
//   - -32602: malformed arguments, out-of-range pipeline settings, unknown tool
//   - -32000: the tool ran and failed (unreadable file, decode failure)
//   - -32601: unknown JSON-RPC method
//
// Logs go to the logger passed with WithLogger; stdout carries only protocol
// traffic.
//
// # Usage
//
//	srv := server.New(server.WithLogger(logger))
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
