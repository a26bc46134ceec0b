package analysis

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/san-kum/tickstream/internal/storage"
)

const DefaultBodyCount = 2

// Skip reasons besides the record field names reported by storage.
const (
	ReasonFieldCount = "field_count"
	ReasonMalformed  = "malformed"
)

type Options struct {
	// BodyCount is how many bodies a record's positions fan out to.
	BodyCount int
	// Strict makes the first malformed line fatal.
	Strict bool
	// OutDir overrides <log dir>/analysis for rendered charts.
	OutDir string
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.BodyCount <= 0 {
		o.BodyCount = DefaultBodyCount
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

// LineError is returned in strict mode for the first malformed line.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

type TimingPoint struct {
	Sequence uint64
	CostUS   uint64
}

// Trajectory holds one body's positions in log order. Each point has Dim
// coordinates.
type Trajectory struct {
	Body   int
	Points [][]float64
}

// Coord returns the i-th coordinate of every point.
func (t Trajectory) Coord(i int) []float64 {
	out := make([]float64, 0, len(t.Points))
	for _, p := range t.Points {
		if i < len(p) {
			out = append(out, p[i])
		}
	}
	return out
}

type Dataset struct {
	Timing       []TimingPoint
	Trajectories []Trajectory
	// Dim is 0 until a record fans out into trajectories.
	Dim   int
	Lines int
	// Records counts lines that parsed.
	Records int
	Skips   map[string]int
	// Untracked records have a positions length that does not fan out.
	Untracked int
	// Mismatched records fan out with the other dimensionality.
	Mismatched int
}

func (d *Dataset) Skipped() int {
	n := 0
	for _, c := range d.Skips {
		n += c
	}
	return n
}

// SkipReasons lists reasons in a stable order.
func (d *Dataset) SkipReasons() []string {
	out := make([]string, 0, len(d.Skips))
	for r := range d.Skips {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func (d *Dataset) Costs() []float64 {
	out := make([]float64, len(d.Timing))
	for i, p := range d.Timing {
		out[i] = float64(p.CostUS)
	}
	return out
}

func (d *Dataset) Sequences() []float64 {
	out := make([]float64, len(d.Timing))
	for i, p := range d.Timing {
		out[i] = float64(p.Sequence)
	}
	return out
}

// ParseLog reads r to the end. Only read errors, and malformed lines in
// strict mode, are returned.
func ParseLog(r io.Reader, opts Options) (*Dataset, error) {
	opts = opts.withDefaults()
	ds := &Dataset{
		Trajectories: make([]Trajectory, opts.BodyCount),
		Skips:        make(map[string]int),
	}
	for i := range ds.Trajectories {
		ds.Trajectories[i].Body = i
	}

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			ds.Lines++
			if perr := ds.add(line, opts.BodyCount); perr != nil {
				if opts.Strict {
					return ds, &LineError{Line: ds.Lines, Err: perr}
				}
				reason := skipReason(perr)
				ds.Skips[reason]++
				opts.Logger.Debug("skipping line", "line", ds.Lines, "reason", reason, "err", perr)
			}
		}
		if err == io.EOF {
			return ds, nil
		}
		if err != nil {
			return ds, fmt.Errorf("read log: %w", err)
		}
	}
}

func (d *Dataset) add(line string, bodies int) error {
	rec, err := storage.ParseRecord(line)
	if err != nil {
		return err
	}
	d.Records++
	d.Timing = append(d.Timing, TimingPoint{Sequence: rec.Sequence, CostUS: rec.TickCostUS})

	dim := 0
	switch len(rec.Positions) {
	case bodies * 2:
		dim = 2
	case bodies * 3:
		dim = 3
	default:
		d.Untracked++
		return nil
	}
	if d.Dim == 0 {
		d.Dim = dim
	}
	if dim != d.Dim {
		d.Mismatched++
		return nil
	}

	for b := 0; b < bodies; b++ {
		p := make([]float64, dim)
		copy(p, rec.Positions[b*dim:(b+1)*dim])
		d.Trajectories[b].Points = append(d.Trajectories[b].Points, p)
	}
	return nil
}

func skipReason(err error) string {
	var pe *storage.ParseError
	switch {
	case errors.Is(err, storage.ErrFieldCount):
		return ReasonFieldCount
	case errors.As(err, &pe):
		return pe.Field
	}
	return ReasonMalformed
}
