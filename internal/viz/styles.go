package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	panel  lipgloss.Style
	header lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	graph  lipgloss.Style
	hint   lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	bad    lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(0, 2),
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Secondary).
			MarginBottom(1),
		label: lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		value: lipgloss.NewStyle().Foreground(t.Text),
		graph: lipgloss.NewStyle().Foreground(t.Primary).Padding(1, 0),
		hint:  lipgloss.NewStyle().Foreground(t.Muted).Italic(true).MarginTop(1),
		ok:    lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		warn:  lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		bad:   lipgloss.NewStyle().Bold(true).Foreground(t.Error),
	}
}

// AnimatedSpinner returns one frame of a braille spinner.
func AnimatedSpinner(frame int) string {
	spinners := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return spinners[frame%len(spinners)]
}

// progressBar fills width cells in proportion to percent, clamped to [0,1].
func (s styles) progressBar(percent float64, width int) string {
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	// a backlog near its high-water mark is the thing to watch
	if percent > 0.8 {
		return s.bad.Render(bar)
	} else if percent > 0.4 {
		return s.warn.Render(bar)
	}
	return s.ok.Render(bar)
}

// SparklineChart renders values as block characters, sampled to width.
func SparklineChart(values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	r := RangeOf(values)

	step := len(values) / width
	if step < 1 {
		step = 1
	}

	var result strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - r.Min) / r.Span()
		idx := int(norm * float64(len(chars)-1))
		if idx >= len(chars) {
			idx = len(chars) - 1
		}
		if idx < 0 {
			idx = 0
		}
		result.WriteRune(chars[idx])
	}

	return result.String()
}

func parseHex(hex string) (r, g, b int) {
	if len(hex) != 7 || hex[0] != '#' {
		return 255, 255, 255
	}
	r = parseHexByte(hex[1:3])
	g = parseHexByte(hex[3:5])
	b = parseHexByte(hex[5:7])
	return
}

func parseHexByte(s string) int {
	var val int
	for _, c := range s {
		val *= 16
		switch {
		case c >= '0' && c <= '9':
			val += int(c - '0')
		case c >= 'a' && c <= 'f':
			val += int(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			val += int(c - 'A' + 10)
		}
	}
	return val
}
