package automation

import (
	"context"
	"fmt"

	"github.com/san-kum/tickstream/internal/config"
	"github.com/san-kum/tickstream/internal/experiment"
	"github.com/san-kum/tickstream/internal/sim"
)

// Params lists what a sweep can vary.
var Params = []string{"restitution", "density", "dt", "iterations", "speed"}

// ParameterSweep runs the base scene once per evenly spaced value of Param.
type ParameterSweep struct {
	Base     *config.Config
	Param    string
	ParamMin float64
	ParamMax float64
	NumSteps int
	Ticks    int
}

type SweepResult struct {
	ParamValue  float64
	Energy      float64
	EnergyDrift float64
	Containment float64
	MeanCostUS  float64
	Degenerate  bool
}

// Apply sets param on every body (or the world) of cfg.
func Apply(cfg *config.Config, param string, v float64) error {
	switch param {
	case "restitution":
		for i := range cfg.Bodies {
			cfg.Bodies[i].Restitution = v
		}
	case "density":
		for i := range cfg.Bodies {
			cfg.Bodies[i].Density = v
		}
	case "speed":
		// scales the initial velocities
		for i := range cfg.Bodies {
			for j := range cfg.Bodies[i].Velocity {
				cfg.Bodies[i].Velocity[j] *= v
			}
		}
	case "dt":
		cfg.World.Dt = v
	case "iterations":
		cfg.World.Iterations = int(v)
	default:
		return fmt.Errorf("unknown sweep parameter: %s (available: %v)", param, Params)
	}
	return nil
}

// Values are the swept parameter values, ends included.
func (s *ParameterSweep) Values() []float64 {
	if s.NumSteps <= 1 {
		return []float64{s.ParamMin}
	}
	step := (s.ParamMax - s.ParamMin) / float64(s.NumSteps-1)
	out := make([]float64, s.NumSteps)
	for i := range out {
		out[i] = s.ParamMin + float64(i)*step
	}
	return out
}

// RunSweep builds every variant up front, so a bad value fails before any
// simulation runs, then steps them concurrently.
func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry) ([]SweepResult, error) {
	if sweep.Ticks <= 0 {
		return nil, fmt.Errorf("ticks must be positive, got %d", sweep.Ticks)
	}

	values := sweep.Values()
	ens := sim.NewEnsemble()
	for _, v := range values {
		cfg := sweep.Base.Clone()
		if err := Apply(cfg, sweep.Param, v); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.Param, v, err)
		}
		ens.Add(fmt.Sprintf("%s=%g", sweep.Param, v), func() (*sim.Simulator, error) {
			s, err := experiment.BuildSimulator(cfg, registry)
			if err != nil {
				return nil, err
			}
			for _, m := range registry.DefaultMetrics(s) {
				s.AddMetric(m)
			}
			return s, nil
		})
	}

	runs, err := ens.Run(ctx, sweep.Ticks)
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(runs))
	for i, r := range runs {
		results[i] = SweepResult{
			ParamValue:  values[i],
			Energy:      r.Metrics["energy"],
			EnergyDrift: r.Metrics["energy_drift"],
			Containment: r.Metrics["containment"],
			MeanCostUS:  r.TotalCost / float64(r.Steps),
			Degenerate:  r.Degenerate,
		}
	}
	return results, nil
}
