package analysis

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/tickstream/internal/metrics"
	"github.com/san-kum/tickstream/internal/storage"
	"github.com/san-kum/tickstream/internal/viz"
)

type Report struct {
	LogPath    string          `json:"log"`
	Lines      int             `json:"lines"`
	Records    int             `json:"records"`
	Skipped    int             `json:"skipped"`
	Skips      map[string]int  `json:"skips"`
	Untracked  int             `json:"untracked"`
	Mismatched int             `json:"mismatched"`
	Dim        int             `json:"dim"`
	Bodies     int             `json:"bodies"`
	Cost       metrics.Summary `json:"tick_cost_us"`
	// JitterPeriod is the dominant tick-cost period in samples.
	JitterPeriod float64  `json:"jitter_period"`
	Artifacts    []string `json:"artifacts"`
}

func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ChartPaths returns where Analyze writes the timing chart and each body's
// trajectory chart for logPath.
func ChartPaths(logPath string, opts Options) (timing string, bodies []string) {
	opts = opts.withDefaults()
	dir := opts.OutDir
	if dir == "" {
		dir = storage.New(filepath.Dir(logPath)).AnalysisDir()
	}
	base := strings.TrimSuffix(filepath.Base(logPath), filepath.Ext(logPath))

	timing = filepath.Join(dir, base+"_timing.png")
	for b := 0; b < opts.BodyCount; b++ {
		bodies = append(bodies, filepath.Join(dir, fmt.Sprintf("%s_body%d.png", base, b+1)))
	}
	return timing, bodies
}

// Analyze parses logPath and renders its charts. Rendering failures are
// returned; malformed lines are not, unless opts.Strict is set.
func Analyze(logPath string, r viz.Renderer, opts Options) (*Report, error) {
	opts = opts.withDefaults()

	f, err := os.Open(logPath)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	ds, err := ParseLog(f, opts)
	if err != nil {
		return nil, err
	}

	costs := ds.Costs()
	report := &Report{
		LogPath:      logPath,
		Lines:        ds.Lines,
		Records:      ds.Records,
		Skipped:      ds.Skipped(),
		Skips:        ds.Skips,
		Untracked:    ds.Untracked,
		Mismatched:   ds.Mismatched,
		Dim:          ds.Dim,
		Bodies:       opts.BodyCount,
		Cost:         metrics.Summarize(costs),
		JitterPeriod: DominantPeriod(costs),
	}
	opts.Logger.Info("parsed log", "path", logPath, "records", ds.Records, "skipped", report.Skipped)

	timingPath, bodyPaths := ChartPaths(logPath, opts)
	if err := os.MkdirAll(filepath.Dir(timingPath), 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	seqs := ds.Sequences()
	timing := viz.LineChart{
		Title:  "Tick cost",
		XLabel: "sequence",
		YLabel: "tick cost (us)",
		Series: []viz.Series{{Name: "tick_cost_us", X: seqs, Y: costs}},
		XRange: SafeRange(seqs),
		YRange: SafeRange(costs),
	}
	if err := r.LineChart(timing, timingPath); err != nil {
		return nil, fmt.Errorf("render timing: %w", err)
	}
	report.Artifacts = append(report.Artifacts, timingPath)

	for b, path := range bodyPaths {
		if err := renderBody(r, ds, b, path); err != nil {
			return nil, fmt.Errorf("render body %d: %w", b+1, err)
		}
		report.Artifacts = append(report.Artifacts, path)
	}

	return report, nil
}

func renderBody(r viz.Renderer, ds *Dataset, body int, path string) error {
	t := ds.Trajectories[body]
	title := fmt.Sprintf("Body %d trajectory", body+1)
	xs, ys := t.Coord(0), t.Coord(1)

	if ds.Dim == 3 {
		zs := t.Coord(2)
		return r.LineChart3D(viz.LineChart3D{
			Title:  title,
			Series: []viz.Series3D{{Name: fmt.Sprintf("body%d", body+1), X: xs, Y: ys, Z: zs}},
			XRange: SafeRange(xs),
			YRange: SafeRange(ys),
			ZRange: SafeRange(zs),
		}, path)
	}

	return r.LineChart(viz.LineChart{
		Title:  title,
		XLabel: "x",
		YLabel: "y",
		Series: []viz.Series{{Name: fmt.Sprintf("body%d", body+1), X: xs, Y: ys}},
		XRange: SafeRange(xs),
		YRange: SafeRange(ys),
	}, path)
}
