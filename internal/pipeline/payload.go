package pipeline

// Payload is the JSON document served to clients:
//
//	{"palette": [[r,g,b], ...], "contours": [{"colorIndex": 0, "points": [[x,y], ...], "centroid": [x,y]}, ...]}
//
// Centroids are truncated to whole pixels. Anchor and area are extensions
// that older clients ignore.
type Payload struct {
	Palette  [][3]int         `json:"palette"`
	Contours []PayloadContour `json:"contours"`
}

// PayloadContour is one region on the wire.
type PayloadContour struct {
	ColorIndex int      `json:"colorIndex"`
	Points     [][2]int `json:"points"`
	Centroid   [2]int   `json:"centroid"`
	Anchor     *[2]int  `json:"anchor,omitempty"`
	Area       float64  `json:"area,omitempty"`
}

// Payload projects the result onto the wire format. Slices are never nil so
// an empty result encodes as [] rather than null.
func (r *Result) Payload() Payload {
	p := Payload{
		Palette:  make([][3]int, len(r.Palette)),
		Contours: make([]PayloadContour, 0, len(r.Regions)),
	}
	for i, c := range r.Palette {
		p.Palette[i] = [3]int{int(c.R), int(c.G), int(c.B)}
	}
	for _, reg := range r.Regions {
		pc := PayloadContour{
			ColorIndex: reg.ColorIndex,
			Points:     make([][2]int, len(reg.Polygon)),
			Centroid:   [2]int{int(reg.Centroid.X), int(reg.Centroid.Y)},
			Area:       reg.Area,
		}
		for i, pt := range reg.Polygon {
			pc.Points[i] = [2]int{pt.X, pt.Y}
		}
		if reg.Anchor != nil {
			pc.Anchor = &[2]int{reg.Anchor.X, reg.Anchor.Y}
		}
		p.Contours = append(p.Contours, pc)
	}
	return p
}
