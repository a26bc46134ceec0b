package metrics

import (
	"math"

	"github.com/san-kum/tickstream/internal/dynamo"
)

// Containment is the fraction of ticks in which every body stayed inside
// a cube of half-width threshold. Escapes usually mean tunnelling.
type Containment struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewContainment(threshold float64) *Containment {
	return &Containment{
		name:      "containment",
		threshold: threshold,
	}
}

func (c *Containment) Name() string {
	return c.name
}

func (c *Containment) Observe(t dynamo.Tick) {
	c.samples++
	for _, p := range t.Positions {
		if math.Abs(p.X()) > c.threshold || math.Abs(p.Y()) > c.threshold || math.Abs(p.Z()) > c.threshold {
			c.violations++
			break
		}
	}
}

func (c *Containment) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(c.violations)/float64(c.samples)
}

func (c *Containment) Reset() {
	c.violations = 0
	c.samples = 0
}
