package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/tickstream/internal/analysis"
	"github.com/san-kum/tickstream/internal/viz"
)

// TrajectorySVG draws the x/y side view of a body's path. Fewer than two
// points give an empty string.
func TrajectorySVG(t analysis.Trajectory, width, height int, stroke string) string {
	if len(t.Points) < 2 {
		return ""
	}

	xs, ys := t.Coord(0), t.Coord(1)
	xr, yr := viz.RangeOf(xs), viz.RangeOf(ys)
	padX, padY := xr.Span()*0.1, yr.Span()*0.1
	xr = viz.Range{Min: xr.Min - padX, Max: xr.Max + padX}
	yr = viz.Range{Min: yr.Min - padY, Max: yr.Max + padY}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	// ground
	if yr.Min <= 0 && yr.Max >= 0 {
		gy := float64(height) - (0-yr.Min)/yr.Span()*float64(height)
		fmt.Fprintf(&sb, `<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#444444" stroke-dasharray="4 4"/>
`, gy, width, gy)
	}

	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, stroke)
	for i := range xs {
		x := (xs[i] - xr.Min) / xr.Span() * float64(width)
		y := float64(height) - (ys[i]-yr.Min)/yr.Span()*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
