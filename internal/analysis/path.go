package analysis

import "strings"

// PathToASCII draws the x/y side view of a trajectory as text.
func PathToASCII(t Trajectory, width, height int) string {
	if len(t.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	xr := SafeRange(t.Coord(0))
	yr := SafeRange(t.Coord(1))

	// pad so points never sit on the border
	padX := (xr.Max - xr.Min) * 0.1
	padY := (yr.Max - yr.Min) * 0.1
	minX, maxX := xr.Min-padX, xr.Max+padX
	minY, maxY := yr.Min-padY, yr.Max+padY
	rangeX := maxX - minX
	rangeY := maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	for _, p := range t.Points {
		col := int((p[0] - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p[1]-minY)/rangeY*float64(height-1))

		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	// ground line at y = 0 when visible
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
