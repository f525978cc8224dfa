// Package imaging holds the collaborators that sit around the segmentation
// core: decoding uploads, caching decoded files, conditioning images before
// quantization, edge maps for the stylized render, color description and
// PNG encoding for transport.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based with (0,0) at the
// top-left corner, X increasing rightward and Y increasing downward.
//
// # Supported Formats
//
// PNG, JPEG and GIF through the standard library; BMP, TIFF and WebP through
// golang.org/x/image. Anything else fails with a *DecodeError.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Every other function is stateless
// and returns new images rather than modifying its input.
package imaging
