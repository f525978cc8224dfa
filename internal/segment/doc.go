// Package segment holds the raster data model of the vectorizer and the
// region extractor that turns a label map into closed boundary curves.
//
// # Data Model
//
//   - PixelBuffer: WxH grid of RGB triples, row-major, immutable input.
//   - Palette: ordered list of K representative colors; index i is label i.
//   - LabelMap: WxH grid of labels in [0, K).
//   - Mask: WxH binary grid for one label.
//   - Contour: closed sequence of integer points along a component's
//     outer boundary.
//
// # Coordinate System
//
// Coordinates follow the image convention used across this module: origin at
// the top-left pixel, X grows rightward, Y grows downward. Contour points are
// pixel coordinates of boundary pixels (not pixel corners), so a solid WxH
// block traces to the rectangle (0,0)-(W-1,H-1).
//
// # Winding
//
// Contours are traced clockwise as seen on screen (Y down). With the shoelace
// formula applied in image coordinates this gives a positive signed area.
//
// # ImageOps
//
// Morphology and nearest-color assignment are the expensive vision
// primitives. They are reached only through the ImageOps interface so callers
// can inject a deterministic stand-in or an alternative backend:
//
//   - NativeOps: pure Go implementation, optionally row-parallel.
//   - BildOps: morphology delegated to github.com/anthonynsimon/bild.
//
// # Thread Safety
//
// Every type here is a plain value owned by one pipeline run. Extractor and
// the ImageOps implementations hold no mutable state and may be shared by
// goroutines working on different labels.
package segment
