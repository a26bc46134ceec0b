package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	canvasWidth  = 60
	canvasHeight = 20
	historyLen   = 120
	trailLen     = 40
)

// MonitorStats is one snapshot of a running pipeline.
type MonitorStats struct {
	Produced     uint64
	Written      uint64
	Rejected     uint64
	Backlog      int
	HighWater    int
	LastSequence uint64
	LastCostUS   uint64
	Positions    []mgl64.Vec3
	Energy       float64
}

type MonitorConfig struct {
	Title string
	Dim   int
	Radii []float64
	// XRange and YRange are the world window drawn on the canvas.
	XRange, YRange Range
	Theme          Theme
	Refresh        time.Duration
}

type tickMsg time.Time

// Monitor is a Bubble Tea model that polls source on every refresh. Quitting
// calls cancel; a closed done channel quits the view.
type Monitor struct {
	cfg    MonitorConfig
	source func() MonitorStats
	cancel func()
	done   <-chan struct{}

	canvas *Canvas
	camera *Camera
	styles styles
	theme  Theme

	stats  MonitorStats
	costs  []float64
	energy []float64
	trails [][]mgl64.Vec3
	frame  int
}

func NewMonitor(cfg MonitorConfig, source func() MonitorStats, cancel func(), done <-chan struct{}) *Monitor {
	if cfg.Refresh <= 0 {
		cfg.Refresh = time.Second / 30
	}
	if cfg.XRange.Span() <= 0 {
		cfg.XRange = Range{Min: -10, Max: 10}
	}
	if cfg.YRange.Span() <= 0 {
		cfg.YRange = Range{Min: -1, Max: 12}
	}
	if cfg.Theme.Name == "" {
		cfg.Theme = CurrentTheme
	}
	return &Monitor{
		cfg:    cfg,
		source: source,
		cancel: cancel,
		done:   done,
		canvas: NewCanvas(canvasWidth, canvasHeight),
		camera: IsometricCamera(),
		styles: newStyles(cfg.Theme),
		theme:  cfg.Theme,
	}
}

func (m *Monitor) Init() tea.Cmd {
	return m.tick()
}

func (m *Monitor) tick() tea.Cmd {
	return tea.Tick(m.cfg.Refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "t":
			m.cycleTheme()
		case "x":
			m.camera.RotateX(0.1)
		case "X":
			m.camera.RotateX(-0.1)
		case "y":
			m.camera.RotateY(0.1)
		case "Y":
			m.camera.RotateY(-0.1)
		case "z":
			m.camera.RotateZ(0.1)
		case "Z":
			m.camera.RotateZ(-0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-":
			m.camera.ZoomOut()
		}
	case tickMsg:
		select {
		case <-m.done:
			m.observe(m.source())
			return m, tea.Quit
		default:
		}
		m.observe(m.source())
		m.frame++
		return m, m.tick()
	}
	return m, nil
}

func (m *Monitor) cycleTheme() {
	names := ThemeNames()
	for i, name := range names {
		if name == m.theme.Name {
			m.theme = GetTheme(names[(i+1)%len(names)])
			break
		}
	}
	m.styles = newStyles(m.theme)
}

func (m *Monitor) observe(s MonitorStats) {
	if s.LastSequence != m.stats.LastSequence && s.LastSequence > 0 {
		m.costs = appendCapped(m.costs, float64(s.LastCostUS), historyLen)
	}
	if s.Produced != m.stats.Produced {
		m.energy = appendCapped(m.energy, s.Energy, historyLen)
	}

	if len(m.trails) != len(s.Positions) {
		m.trails = make([][]mgl64.Vec3, len(s.Positions))
	}
	for i, p := range s.Positions {
		t := m.trails[i]
		if len(t) == 0 || t[len(t)-1] != p {
			m.trails[i] = appendCapped(t, p, trailLen)
		}
	}
	m.stats = s
}

func appendCapped[T any](s []T, v T, n int) []T {
	s = append(s, v)
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return s
}

// toScreen maps a world point to canvas pixels.
func (m *Monitor) toScreen(p mgl64.Vec3) (int, int) {
	pw, ph := m.canvas.Pixels()
	if m.cfg.Dim == 3 {
		center := mgl64.Vec3{
			(m.cfg.XRange.Min + m.cfg.XRange.Max) / 2,
			(m.cfg.YRange.Min + m.cfg.YRange.Max) / 2,
			0,
		}
		x, y, _ := m.camera.Project(p, center, float64(pw)/(1.5*m.cfg.XRange.Span()), pw, ph)
		return x, y
	}
	x := (p.X() - m.cfg.XRange.Min) / m.cfg.XRange.Span() * float64(pw-1)
	y := (1 - (p.Y()-m.cfg.YRange.Min)/m.cfg.YRange.Span()) * float64(ph-1)
	return int(x), int(y)
}

func (m *Monitor) draw() {
	m.canvas.Clear()
	pw, _ := m.canvas.Pixels()

	// ground
	if m.cfg.Dim == 3 {
		for _, axis := range BoxAxes(m.cfg.XRange, Range{}, Range{Min: m.cfg.XRange.Min, Max: m.cfg.XRange.Max}) {
			x0, y0 := m.toScreen(axis[0])
			x1, y1 := m.toScreen(axis[1])
			m.canvas.DrawLine(x0, y0, x1, y1)
		}
	} else {
		x0, y0 := m.toScreen(mgl64.Vec3{m.cfg.XRange.Min, 0, 0})
		x1, y1 := m.toScreen(mgl64.Vec3{m.cfg.XRange.Max, 0, 0})
		m.canvas.DrawLine(x0, y0, x1, y1)
	}

	for i, trail := range m.trails {
		for _, p := range trail {
			x, y := m.toScreen(p)
			m.canvas.Set(x, y)
		}
		if len(trail) == 0 {
			continue
		}
		r := 0
		if i < len(m.cfg.Radii) {
			r = int(m.cfg.Radii[i] / m.cfg.XRange.Span() * float64(pw))
		}
		x, y := m.toScreen(trail[len(trail)-1])
		m.canvas.DrawCircle(x, y, r)
	}
}

func (m *Monitor) View() string {
	m.draw()
	st := m.styles
	s := m.stats

	var b strings.Builder
	b.WriteString(st.header.Render(AnimatedSpinner(m.frame)+" "+strings.ToUpper(m.cfg.Title)) + "\n")

	row := func(label, value string) {
		b.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Produced", fmt.Sprintf("%d", s.Produced))
	row("Written", fmt.Sprintf("%d", s.Written))
	if s.Rejected > 0 {
		b.WriteString(st.label.Render("Rejected") + st.bad.Render(fmt.Sprintf("%d", s.Rejected)) + "\n")
	}
	row("Sequence", fmt.Sprintf("%d", s.LastSequence))

	fill := 0.0
	if s.HighWater > 0 {
		fill = float64(s.Backlog) / float64(s.HighWater)
	}
	row("Backlog", fmt.Sprintf("%d / %d ", s.Backlog, s.HighWater)+st.progressBar(fill, 10))
	row("Energy", fmt.Sprintf("%.3f J  %s", s.Energy, SparklineChart(m.energy, 16)))

	if chart := Preview(m.costs, 30, 4, "tick cost (us)"); chart != "" {
		b.WriteString(st.graph.Render(chart) + "\n")
	}

	for i, p := range s.Positions {
		if m.cfg.Dim == 3 {
			row(fmt.Sprintf("Body %d", i+1), fmt.Sprintf("%7.2f %7.2f %7.2f", p.X(), p.Y(), p.Z()))
		} else {
			row(fmt.Sprintf("Body %d", i+1), fmt.Sprintf("%7.2f %7.2f", p.X(), p.Y()))
		}
	}

	hint := "Q:Stop  T:Theme"
	if m.cfg.Dim == 3 {
		hint += "  X/Y/Z:Rotate  +/-:Zoom"
	}
	b.WriteString(st.hint.Render(hint))

	canvasView := lipgloss.NewStyle().Padding(1, 2).Render(m.canvas.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.panel.Render(b.String()))
}

// RunMonitor blocks until the monitor quits.
func RunMonitor(m *Monitor) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
