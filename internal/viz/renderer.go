package viz

import "math"

type Range struct {
	Min, Max float64
}

func (r Range) Span() float64 { return r.Max - r.Min }

// RangeOf spans every finite value across all slices. Empty input gives
// [0,1] and a single distinct value v gives [v-0.5, v+0.5].
func RangeOf(values ...[]float64) Range {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, vs := range values {
		for _, v := range vs {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}

	switch {
	case lo > hi:
		return Range{Min: 0, Max: 1}
	case lo == hi:
		return Range{Min: lo - 0.5, Max: hi + 0.5}
	}
	return Range{Min: lo, Max: hi}
}

type Series struct {
	Name string
	X, Y []float64
}

type LineChart struct {
	Title  string
	XLabel string
	YLabel string
	Series []Series
	XRange Range
	YRange Range
}

type Series3D struct {
	Name    string
	X, Y, Z []float64
}

type LineChart3D struct {
	Title  string
	Series []Series3D
	XRange Range
	YRange Range
	ZRange Range
	// Camera defaults to IsometricCamera.
	Camera *Camera
}

// Renderer writes one chart per call to path.
type Renderer interface {
	LineChart(c LineChart, path string) error
	LineChart3D(c LineChart3D, path string) error
}
