package viz

import "github.com/guptarohit/asciigraph"

// Preview renders values as an asciigraph line chart. Empty input renders
// nothing.
func Preview(values []float64, width, height int, caption string) string {
	if len(values) == 0 {
		return ""
	}
	opts := []asciigraph.Option{asciigraph.Height(height), asciigraph.Width(width)}
	if caption != "" {
		opts = append(opts, asciigraph.Caption(caption))
	}
	return asciigraph.Plot(values, opts...)
}
