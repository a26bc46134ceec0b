package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/tickstream/internal/dynamo"
)

const (
	DefaultDt               = 1.0 / 60.0
	DefaultIterations       = 4
	DefaultProducerInterval = 2 * time.Millisecond
	DefaultConsumerInterval = 10 * time.Millisecond
	DefaultLogDir           = "logs"
	DefaultRetries          = 5
)

type Config struct {
	Scene      string         `yaml:"scene"`
	Engine     string         `yaml:"engine"`
	Integrator string         `yaml:"integrator"`
	World      WorldConfig    `yaml:"world"`
	Bodies     []BodyConfig   `yaml:"bodies"`
	Pipeline   PipelineConfig `yaml:"pipeline"`
	Log        LogConfig      `yaml:"log"`
	Load       LoadConfig     `yaml:"load"`
}

type WorldConfig struct {
	Dims       int          `yaml:"dims"`
	Gravity    []float64    `yaml:"gravity"`
	Dt         float64      `yaml:"dt"`
	Iterations int          `yaml:"iterations"`
	CCD        bool         `yaml:"ccd"`
	Combine    string       `yaml:"combine"`
	Ground     GroundConfig `yaml:"ground"`
}

type GroundConfig struct {
	HalfExtents []float64 `yaml:"half_extents"`
	Top         float64   `yaml:"top"`
	Restitution float64   `yaml:"restitution"`
}

type BodyConfig struct {
	Name        string    `yaml:"name"`
	Radius      float64   `yaml:"radius"`
	Density     float64   `yaml:"density"`
	Restitution float64   `yaml:"restitution"`
	Position    []float64 `yaml:"position"`
	Velocity    []float64 `yaml:"velocity"`
}

type PipelineConfig struct {
	ProducerInterval time.Duration `yaml:"producer_interval"`
	ConsumerInterval time.Duration `yaml:"consumer_interval"`
	MaxBatch         int           `yaml:"max_batch"`
	Drain            bool          `yaml:"drain"`
	// Samples stops the producer after that many ticks; 0 runs until
	// interrupted.
	Samples uint64 `yaml:"samples"`
}

type LogConfig struct {
	Dir      string `yaml:"dir"`
	Sequence string `yaml:"sequence"`
	Retries  int    `yaml:"retries"`
	NoSync   bool   `yaml:"no_sync"`
}

type LoadConfig struct {
	LeastSquares bool  `yaml:"least_squares"`
	Seed         int64 `yaml:"seed"`
}

// DefaultConfig is the two-sphere scene: a pair thrown towards each other
// above the ground.
func DefaultConfig() *Config {
	return &Config{
		Scene:      "pair",
		Engine:     "native",
		Integrator: "semi_implicit",
		World: WorldConfig{
			Dims:       2,
			Gravity:    []float64{0, -9.81},
			Dt:         DefaultDt,
			Iterations: DefaultIterations,
			CCD:        true,
			Combine:    "average",
			Ground:     GroundConfig{HalfExtents: []float64{10, 0.1}},
		},
		Bodies: []BodyConfig{
			{Name: "left", Radius: 0.5, Density: 1, Restitution: 0.7, Position: []float64{-2, 5}, Velocity: []float64{2, 0}},
			{Name: "right", Radius: 0.5, Density: 1, Restitution: 0.7, Position: []float64{2, 8}, Velocity: []float64{-2, 0}},
		},
		Pipeline: PipelineConfig{
			ProducerInterval: DefaultProducerInterval,
			ConsumerInterval: DefaultConsumerInterval,
			MaxBatch:         1,
			Drain:            true,
		},
		Log: LogConfig{
			Dir:      DefaultLogDir,
			Sequence: "resume",
			Retries:  DefaultRetries,
		},
		Load: LoadConfig{Seed: 1},
	}
}

// Load reads a YAML file, or an INI file when the extension is .ini or .cfg.
// Unset values keep their defaults.
func Load(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini", ".cfg", ".gcfg":
		return LoadINI(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	// a list in the file replaces the defaults rather than merging into them
	cfg.Bodies = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(cfg.Bodies) == 0 {
		cfg.Bodies = DefaultConfig().Bodies
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Clone() *Config {
	out := *c
	out.World.Gravity = append([]float64(nil), c.World.Gravity...)
	out.World.Ground.HalfExtents = append([]float64(nil), c.World.Ground.HalfExtents...)
	out.Bodies = make([]BodyConfig, len(c.Bodies))
	for i, b := range c.Bodies {
		b.Position = append([]float64(nil), b.Position...)
		b.Velocity = append([]float64(nil), b.Velocity...)
		out.Bodies[i] = b
	}
	return &out
}

// Validate reports the first problem with the scene. Geometry problems wrap
// dynamo.ErrInvalidGeometry, wrong vector lengths dynamo.ErrDimensionMismatch.
func (c *Config) Validate() error {
	w := c.World
	if err := dynamo.ValidDim(w.Dims); err != nil {
		return fmt.Errorf("world: %w", err)
	}
	if len(w.Gravity) != w.Dims {
		return fmt.Errorf("world: gravity has %d components in a %dD world: %w", len(w.Gravity), w.Dims, dynamo.ErrDimensionMismatch)
	}
	if !finite(w.Gravity...) {
		return fmt.Errorf("world: gravity: %w", dynamo.ErrInvalidState)
	}
	if !(w.Dt > 0) || math.IsInf(w.Dt, 0) {
		return fmt.Errorf("world: dt must be positive, got %v", w.Dt)
	}
	if w.Iterations < 1 {
		return fmt.Errorf("world: iterations must be at least 1, got %d", w.Iterations)
	}
	if n := len(w.Ground.HalfExtents); n != 0 && n != w.Dims {
		return fmt.Errorf("ground: half extents have %d components in a %dD world: %w", n, w.Dims, dynamo.ErrDimensionMismatch)
	}

	if len(c.Bodies) == 0 {
		return fmt.Errorf("scene %q has no bodies: %w", c.Scene, dynamo.ErrInvalidGeometry)
	}
	for i, b := range c.Bodies {
		if err := b.validate(w.Dims); err != nil {
			return fmt.Errorf("body %d (%s): %w", i+1, b.Name, err)
		}
	}

	p := c.Pipeline
	if p.ProducerInterval < 0 || p.ConsumerInterval < 0 {
		return fmt.Errorf("pipeline: intervals must not be negative")
	}
	if p.MaxBatch < 0 {
		return fmt.Errorf("pipeline: max_batch must not be negative, got %d", p.MaxBatch)
	}
	if c.Log.Retries < 0 {
		return fmt.Errorf("log: retries must not be negative, got %d", c.Log.Retries)
	}
	switch c.Log.Sequence {
	case "", "resume", "process":
	default:
		return fmt.Errorf("log: unknown sequence policy %q", c.Log.Sequence)
	}
	return nil
}

func (b BodyConfig) validate(dims int) error {
	switch {
	case len(b.Position) != dims:
		return fmt.Errorf("position has %d components: %w", len(b.Position), dynamo.ErrDimensionMismatch)
	case len(b.Velocity) != 0 && len(b.Velocity) != dims:
		return fmt.Errorf("velocity has %d components: %w", len(b.Velocity), dynamo.ErrDimensionMismatch)
	case !(b.Radius > 0):
		return fmt.Errorf("%w: radius must be positive, got %v", dynamo.ErrInvalidGeometry, b.Radius)
	case !(b.Density > 0):
		return fmt.Errorf("%w: density must be positive, got %v", dynamo.ErrInvalidGeometry, b.Density)
	case !(b.Restitution >= 0 && b.Restitution <= 1):
		return fmt.Errorf("%w: restitution must be in [0,1], got %v", dynamo.ErrInvalidGeometry, b.Restitution)
	case !finite(b.Radius, b.Density) || !finite(b.Position...) || !finite(b.Velocity...):
		return dynamo.ErrInvalidState
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
