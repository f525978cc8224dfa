package segment

// Moore neighbourhood in clockwise order on screen (Y down), starting east.
var moore = [8]Point{
	{X: 1, Y: 0},   // E
	{X: 1, Y: 1},   // SE
	{X: 0, Y: 1},   // S
	{X: -1, Y: 1},  // SW
	{X: -1, Y: 0},  // W
	{X: -1, Y: -1}, // NW
	{X: 0, Y: -1},  // N
	{X: 1, Y: -1},  // NE
}

// component is one 8-connected foreground blob, identified by its first
// pixel in raster order.
type component struct {
	start    Point
	external bool
}

// TraceExternal returns the outer boundary of every 8-connected foreground
// component of m that is not nested inside a hole of another component.
//
// # Algorithm
//
//  1. Label components with an iterative 8-connected flood fill, in raster
//     order of each component's first pixel. That order is the discovery
//     order of the returned contours.
//  2. Flood the background from the image border with 4-connectivity (the
//     dual of 8-connected foreground). Background pixels not reached are
//     holes.
//  3. A component is external if it touches the image border or the
//     border-connected background.
//  4. Trace each external component with Moore-neighbour tracing from its
//     first pixel, clockwise, then collapse straight runs to their endpoints.
//
// Holes are never reported; a ring traces to its outer boundary only.
func TraceExternal(m *Mask) []Contour {
	ids, comps := labelComponents(m)
	if len(comps) == 0 {
		return nil
	}
	markExternal(m, ids, comps)

	contours := make([]Contour, 0, len(comps))
	for _, c := range comps {
		if !c.external {
			continue
		}
		contours = append(contours, CompressChain(traceBoundary(m, c.start)))
	}
	return contours
}

// labelComponents performs stack-based flood fill (not recursive, so large
// regions cannot overflow the goroutine stack). ids holds -1 for background.
func labelComponents(m *Mask) ([]int, []component) {
	ids := make([]int, len(m.Bits))
	for i := range ids {
		ids[i] = -1
	}

	var comps []component
	var stack []Point
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			i := y*m.Width + x
			if !m.Bits[i] || ids[i] >= 0 {
				continue
			}
			id := len(comps)
			comps = append(comps, component{start: Point{X: x, Y: y}})

			stack = append(stack[:0], Point{X: x, Y: y})
			ids[i] = id
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for _, d := range moore {
					nx, ny := p.X+d.X, p.Y+d.Y
					if !m.At(nx, ny) {
						continue
					}
					ni := ny*m.Width + nx
					if ids[ni] >= 0 {
						continue
					}
					ids[ni] = id
					stack = append(stack, Point{X: nx, Y: ny})
				}
			}
		}
	}
	return ids, comps
}

// markExternal flags the components that can be reached from outside the
// image without crossing foreground.
func markExternal(m *Mask, ids []int, comps []component) {
	w, h := m.Width, m.Height
	outside := make([]bool, len(m.Bits))
	var stack []Point
	push := func(x, y int) {
		i := y*w + x
		if m.Bits[i] || outside[i] {
			return
		}
		outside[i] = true
		stack = append(stack, Point{X: x, Y: y})
	}
	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range [4]Point{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}} {
			nx, ny := p.X+d.X, p.Y+d.Y
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			push(nx, ny)
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			id := ids[y*w+x]
			if id < 0 || comps[id].external {
				continue
			}
			if x == 0 || y == 0 || x == w-1 || y == h-1 ||
				outside[y*w+x-1] || outside[y*w+x+1] ||
				outside[(y-1)*w+x] || outside[(y+1)*w+x] {
				comps[id].external = true
			}
		}
	}
}

// traceBoundary walks the outer boundary of the component whose first
// raster pixel is start, using Moore-neighbour tracing. Each scan starts at
// the backtrack pixel (the last background neighbour examined before the
// move) and turns clockwise, so the exterior stays on the left of the walk.
// start has background on its west and on the whole row above, so the first
// scan begins at its NW neighbour.
//
// The walk stops when it is back on start and about to repeat its first
// move, which handles components that pass through start twice.
func traceBoundary(m *Mask, start Point) Contour {
	contour := Contour{start}
	cur := start
	search := 5
	firstDir := -1
	pendingStart := false

	for {
		d := -1
		for i := 0; i < 8; i++ {
			dir := (search + i) % 8
			if m.At(cur.X+moore[dir].X, cur.Y+moore[dir].Y) {
				d = dir
				break
			}
		}
		if d < 0 {
			// isolated pixel
			return contour
		}

		if cur == start {
			if firstDir < 0 {
				firstDir = d
			} else if d == firstDir {
				return contour
			}
			if pendingStart {
				contour = append(contour, start)
				pendingStart = false
			}
		}

		back := moore[(d+7)%8]
		back = Point{X: cur.X + back.X, Y: cur.Y + back.Y}
		cur = Point{X: cur.X + moore[d].X, Y: cur.Y + moore[d].Y}
		search = direction(Point{X: back.X - cur.X, Y: back.Y - cur.Y})

		if cur == start {
			pendingStart = true
		} else {
			contour = append(contour, cur)
		}
	}
}

// direction maps a unit Moore offset to its index in moore.
func direction(p Point) int {
	for i, d := range moore {
		if d == p {
			return i
		}
	}
	return 0
}

// CompressChain keeps only the points of a closed contour where the step
// direction changes, collapsing horizontal, vertical and diagonal runs to
// their endpoints. Area and centroid of the polygon are unchanged.
func CompressChain(c Contour) Contour {
	n := len(c)
	if n < 3 {
		return c
	}
	out := make(Contour, 0, n/2+1)
	for i := 0; i < n; i++ {
		prev := c[(i+n-1)%n]
		next := c[(i+1)%n]
		in := Point{X: c[i].X - prev.X, Y: c[i].Y - prev.Y}
		outDir := Point{X: next.X - c[i].X, Y: next.Y - c[i].Y}
		if in != outDir {
			out = append(out, c[i])
		}
	}
	if len(out) == 0 {
		return c[:1]
	}
	return out
}
