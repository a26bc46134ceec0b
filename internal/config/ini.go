package config

import (
	"fmt"
	"sort"
	"time"

	"gopkg.in/gcfg.v1"
)

// ExampleINI documents the INI layout accepted by LoadINI. Bodies are
// subsections and are created in name order.
const ExampleINI = `[Scene]
Name       = pair
Engine     = native
Integrator = semi_implicit

[World]
Dims       = 2
GravityX   = 0
GravityY   = -9.81
Dt         = 0.016666666666666666
Iterations = 4
CCD        = true
Combine    = average

[Ground]
HalfX = 10
HalfY = 0.1
Top   = 0

[Body "1-left"]
Radius      = 0.5
Density     = 1
Restitution = 0.7
X  = -2
Y  = 5
VX = 2

[Body "2-right"]
Radius      = 0.5
Density     = 1
Restitution = 0.7
X  = 2
Y  = 8
VX = -2

[Pipeline]
ProducerInterval = 2ms
ConsumerInterval = 10ms
MaxBatch         = 1
Drain            = true

[Log]
Dir      = logs
Sequence = resume
Retries  = 5

[Load]
LeastSquares = false
Seed         = 1
`

type iniFile struct {
	Scene struct {
		Name, Engine, Integrator string
	}
	World struct {
		Dims                         int
		GravityX, GravityY, GravityZ float64
		Dt                           float64
		Iterations                   int
		CCD                          bool
		Combine                      string
	}
	Ground struct {
		HalfX, HalfY, HalfZ float64
		Top, Restitution    float64
	}
	Body     map[string]*iniBody
	Pipeline struct {
		ProducerInterval, ConsumerInterval string
		MaxBatch                           int
		Drain                              bool
		Samples                            uint64
	}
	Log struct {
		Dir, Sequence string
		Retries       int
		NoSync        bool
	}
	Load struct {
		LeastSquares bool
		Seed         int64
	}
}

type iniBody struct {
	Radius, Density, Restitution float64
	X, Y, Z, VX, VY, VZ          float64
}

func LoadINI(path string) (*Config, error) {
	f := defaultINI()
	if err := gcfg.ReadFileInto(f, path); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f.config()
}

// ParseINI is LoadINI for in-memory text.
func ParseINI(text string) (*Config, error) {
	f := defaultINI()
	if err := gcfg.ReadStringInto(f, text); err != nil {
		return nil, err
	}
	return f.config()
}

func defaultINI() *iniFile {
	d := DefaultConfig()
	f := &iniFile{}
	f.Scene.Name, f.Scene.Engine, f.Scene.Integrator = d.Scene, d.Engine, d.Integrator
	f.World.Dims = d.World.Dims
	f.World.GravityY = d.World.Gravity[1]
	f.World.Dt = d.World.Dt
	f.World.Iterations = d.World.Iterations
	f.World.CCD = d.World.CCD
	f.World.Combine = d.World.Combine
	f.Ground.HalfX, f.Ground.HalfY = d.World.Ground.HalfExtents[0], d.World.Ground.HalfExtents[1]
	f.Pipeline.ProducerInterval = d.Pipeline.ProducerInterval.String()
	f.Pipeline.ConsumerInterval = d.Pipeline.ConsumerInterval.String()
	f.Pipeline.MaxBatch = d.Pipeline.MaxBatch
	f.Pipeline.Drain = d.Pipeline.Drain
	f.Log.Dir, f.Log.Sequence, f.Log.Retries = d.Log.Dir, d.Log.Sequence, d.Log.Retries
	f.Load.Seed = d.Load.Seed
	return f
}

func (f *iniFile) config() (*Config, error) {
	dims := f.World.Dims
	vec := func(x, y, z float64) []float64 {
		if dims == 3 {
			return []float64{x, y, z}
		}
		return []float64{x, y}
	}

	cfg := &Config{
		Scene:      f.Scene.Name,
		Engine:     f.Scene.Engine,
		Integrator: f.Scene.Integrator,
		World: WorldConfig{
			Dims:       dims,
			Gravity:    vec(f.World.GravityX, f.World.GravityY, f.World.GravityZ),
			Dt:         f.World.Dt,
			Iterations: f.World.Iterations,
			CCD:        f.World.CCD,
			Combine:    f.World.Combine,
			Ground: GroundConfig{
				HalfExtents: vec(f.Ground.HalfX, f.Ground.HalfY, f.Ground.HalfZ),
				Top:         f.Ground.Top,
				Restitution: f.Ground.Restitution,
			},
		},
		Pipeline: PipelineConfig{
			MaxBatch: f.Pipeline.MaxBatch,
			Drain:    f.Pipeline.Drain,
			Samples:  f.Pipeline.Samples,
		},
		Log: LogConfig{
			Dir:      f.Log.Dir,
			Sequence: f.Log.Sequence,
			Retries:  f.Log.Retries,
			NoSync:   f.Log.NoSync,
		},
		Load: LoadConfig{
			LeastSquares: f.Load.LeastSquares,
			Seed:         f.Load.Seed,
		},
	}
	if dims == 3 && f.Ground.HalfZ == 0 {
		cfg.World.Ground.HalfExtents[2] = cfg.World.Ground.HalfExtents[0]
	}

	var err error
	if cfg.Pipeline.ProducerInterval, err = time.ParseDuration(f.Pipeline.ProducerInterval); err != nil {
		return nil, fmt.Errorf("pipeline: producer interval: %w", err)
	}
	if cfg.Pipeline.ConsumerInterval, err = time.ParseDuration(f.Pipeline.ConsumerInterval); err != nil {
		return nil, fmt.Errorf("pipeline: consumer interval: %w", err)
	}

	names := make([]string, 0, len(f.Body))
	for name := range f.Body {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b := f.Body[name]
		cfg.Bodies = append(cfg.Bodies, BodyConfig{
			Name:        name,
			Radius:      b.Radius,
			Density:     b.Density,
			Restitution: b.Restitution,
			Position:    vec(b.X, b.Y, b.Z),
			Velocity:    vec(b.VX, b.VY, b.VZ),
		})
	}
	if len(cfg.Bodies) == 0 {
		cfg.Bodies = DefaultConfig().Bodies
	}
	return cfg, nil
}
