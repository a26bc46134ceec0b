package metrics

import (
	"math"
	"sort"

	"github.com/san-kum/tickstream/internal/dynamo"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a set of tick costs in microseconds.
type Summary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P99   float64 `json:"p99"`
}

// Summarize does not modify values.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return Summary{
		Count: len(sorted),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Mean:  stat.Mean(sorted, nil),
		P50:   Percentile(sorted, 50),
		P99:   Percentile(sorted, 99),
	}
}

// Percentile is the nearest-rank p-th percentile of an ascending slice.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return stat.Quantile(math.Min(math.Max(p/100, 0), 1), stat.Empirical, sorted, nil)
}

// TickCost accumulates per-tick wall-clock cost. Value is the mean.
type TickCost struct {
	name    string
	samples []float64
}

func NewTickCost() *TickCost {
	return &TickCost{name: "tick_cost_us"}
}

func (c *TickCost) Name() string { return c.name }

func (c *TickCost) Observe(t dynamo.Tick) {
	c.samples = append(c.samples, float64(t.CostMicros()))
}

func (c *TickCost) Value() float64 {
	return Summarize(c.samples).Mean
}

func (c *TickCost) Summary() Summary {
	return Summarize(c.samples)
}

func (c *TickCost) Reset() {
	c.samples = c.samples[:0]
}
