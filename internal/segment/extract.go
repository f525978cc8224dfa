package segment

// DefaultKernelSize is the side of the elliptical structuring element used
// for mask cleanup.
const DefaultKernelSize = 5

// Extractor isolates the connected regions of one label and returns their
// outer boundaries.
type Extractor struct {
	Ops    ImageOps
	Kernel Kernel
}

// NewExtractor returns an Extractor with an elliptical kernel of kernelSize.
// A nil ops selects NativeOps.
func NewExtractor(ops ImageOps, kernelSize int) *Extractor {
	if ops == nil {
		ops = NativeOps{}
	}
	return &Extractor{
		Ops:    ops,
		Kernel: Ellipse(kernelSize),
	}
}

// Clean applies one opening then one closing with the extractor kernel:
// isolated noise is removed before small gaps are filled.
func (e *Extractor) Clean(m *Mask) *Mask {
	return Close(e.Ops, Open(e.Ops, m, e.Kernel), e.Kernel)
}

// Extract returns the external contours of label in discovery order. A label
// with no pixels, or whose pixels vanish under cleanup, yields nil.
func (e *Extractor) Extract(labels *LabelMap, label int) []Contour {
	mask := labels.Mask(label)
	if mask.Count() == 0 {
		return nil
	}
	return TraceExternal(e.Clean(mask))
}
