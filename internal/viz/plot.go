package viz

import (
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotRenderer draws charts with gonum/plot. The file format follows the
// path extension.
type PlotRenderer struct {
	Width, Height vg.Length
	Palette       []color.Color
}

func NewPlotRenderer(theme Theme) *PlotRenderer {
	return &PlotRenderer{
		Width:   8 * vg.Inch,
		Height:  6 * vg.Inch,
		Palette: theme.PlotColors(),
	}
}

func (r *PlotRenderer) color(i int) color.Color {
	if len(r.Palette) == 0 {
		return color.Black
	}
	return r.Palette[i%len(r.Palette)]
}

func (r *PlotRenderer) LineChart(c LineChart, path string) error {
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel
	p.Add(plotter.NewGrid())

	for i, s := range c.Series {
		if len(s.X) == 0 {
			continue
		}
		if len(s.X) != len(s.Y) {
			return fmt.Errorf("series %q: %d x values, %d y values", s.Name, len(s.X), len(s.Y))
		}
		pts := make(plotter.XYs, len(s.X))
		for j := range s.X {
			pts[j].X, pts[j].Y = s.X[j], s.Y[j]
		}
		if err := r.addLine(p, s.Name, pts, i); err != nil {
			return err
		}
	}

	// after Add, which widens the axes to the data
	p.X.Min, p.X.Max = c.XRange.Min, c.XRange.Max
	p.Y.Min, p.Y.Max = c.YRange.Min, c.YRange.Max

	return p.Save(r.Width, r.Height, path)
}

// LineChart3D projects the series and the bounding box axes through the
// chart's camera onto the page.
func (r *PlotRenderer) LineChart3D(c LineChart3D, path string) error {
	cam := c.Camera
	if cam == nil {
		cam = IsometricCamera()
	}

	p := plot.New()
	p.Title.Text = c.Title
	p.HideAxes()

	var us, vs []float64
	project := func(pt mgl64.Vec3) plotter.XY {
		u, v := cam.ProjectOrtho(pt)
		us, vs = append(us, u), append(vs, v)
		return plotter.XY{X: u, Y: v}
	}

	for i, axis := range BoxAxes(c.XRange, c.YRange, c.ZRange) {
		pts := plotter.XYs{project(axis[0]), project(axis[1])}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = color.Gray{Y: 120}
		line.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
		p.Add(line)
		p.Legend.Add([]string{"x", "y", "z"}[i]+" axis", line)
	}

	for i, s := range c.Series {
		if len(s.X) == 0 {
			continue
		}
		if len(s.X) != len(s.Y) || len(s.X) != len(s.Z) {
			return fmt.Errorf("series %q: coordinate lengths differ", s.Name)
		}
		pts := make(plotter.XYs, len(s.X))
		for j := range s.X {
			pts[j] = project(mgl64.Vec3{s.X[j], s.Y[j], s.Z[j]})
		}
		if err := r.addLine(p, s.Name, pts, i); err != nil {
			return err
		}
	}

	ur, vr := RangeOf(us), RangeOf(vs)
	p.X.Min, p.X.Max = ur.Min, ur.Max
	p.Y.Min, p.Y.Max = vr.Min, vr.Max

	return p.Save(r.Width, r.Height, path)
}

func (r *PlotRenderer) addLine(p *plot.Plot, name string, pts plotter.XYs, i int) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("series %q: %w", name, err)
	}
	line.Color = r.color(i)
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(name, line)
	return nil
}
