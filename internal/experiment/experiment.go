package experiment

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/san-kum/tickstream/internal/config"
	"github.com/san-kum/tickstream/internal/dynamo"
	"github.com/san-kum/tickstream/internal/lsq"
	"github.com/san-kum/tickstream/internal/metrics"
	"github.com/san-kum/tickstream/internal/physics"
	"github.com/san-kum/tickstream/internal/pipeline"
	"github.com/san-kum/tickstream/internal/sim"
	"github.com/san-kum/tickstream/internal/storage"
	"github.com/san-kum/tickstream/internal/viz"
)

type Options struct {
	// LogDir holds new runs; ignored when LogPath is set.
	LogDir string
	// LogPath appends to an existing log instead of creating a new run.
	LogPath string
	Logger  *log.Logger
}

// Experiment is one producer/consumer run of a scene into a durable log.
type Experiment struct {
	cfg    *config.Config
	sim    *sim.Simulator
	store  *storage.Store
	log    *storage.Log
	meta   storage.RunMetadata
	coord  *pipeline.Coordinator
	logger *log.Logger
}

// BuildSimulator turns a scene into a ready simulator. The config must have
// been validated.
func BuildSimulator(cfg *config.Config, reg *Registry) (*sim.Simulator, error) {
	opts, err := engineOptions(cfg, reg)
	if err != nil {
		return nil, err
	}
	engine, err := reg.GetEngine(cfg.Engine, cfg.World.Dims, opts)
	if err != nil {
		return nil, err
	}

	world := sim.WorldConfig{
		Dim:     cfg.World.Dims,
		Gravity: cfg.World.Gravity,
		Dt:      cfg.World.Dt,
	}
	if g := cfg.World.Ground; len(g.HalfExtents) > 0 {
		half, err := dynamo.VecFromSlice(g.HalfExtents, cfg.World.Dims)
		if err != nil {
			return nil, fmt.Errorf("ground: %w", err)
		}
		world.Ground = &physics.GroundSpec{HalfExtents: half, Top: g.Top, Restitution: g.Restitution}
	}

	bodies := make([]sim.BodyConfig, len(cfg.Bodies))
	for i, b := range cfg.Bodies {
		bodies[i] = sim.BodyConfig{
			Radius:      b.Radius,
			Density:     b.Density,
			Restitution: b.Restitution,
			Position:    b.Position,
			Velocity:    b.Velocity,
		}
	}
	return sim.New(engine, world, bodies...)
}

func engineOptions(cfg *config.Config, reg *Registry) (physics.Options, error) {
	opts := physics.DefaultOptions()
	integ, err := reg.GetIntegrator(cfg.Integrator)
	if err != nil {
		return opts, err
	}
	combine, err := physics.ParseCombineRule(cfg.World.Combine)
	if err != nil {
		return opts, err
	}
	opts.Integrator = integ
	opts.Combine = combine
	opts.CCD = cfg.World.CCD
	if cfg.World.Iterations > 0 {
		opts.Iterations = cfg.World.Iterations
	}
	return opts, nil
}

// New validates cfg, builds the simulator, opens the log and wires the
// pipeline. Close releases the log if Run is never called.
func New(cfg *config.Config, opts Options) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	reg := NewRegistry()
	s, err := BuildSimulator(cfg, reg)
	if err != nil {
		return nil, fmt.Errorf("build scene %s: %w", cfg.Scene, err)
	}
	for _, m := range reg.DefaultMetrics(s) {
		s.AddMetric(m)
	}

	policy, err := storage.ParseSequencePolicy(cfg.Log.Sequence)
	if err != nil {
		return nil, err
	}
	logOpts := storage.DefaultOptions()
	logOpts.Sequence = policy
	logOpts.Retries = cfg.Log.Retries
	logOpts.NoSync = cfg.Log.NoSync
	logOpts.Logger = logger

	e := &Experiment{cfg: cfg, sim: s, logger: logger}
	e.meta = storage.RunMetadata{
		Scene:            cfg.Scene,
		Engine:           s.Engine().Name(),
		Integrator:       cfg.Integrator,
		Dim:              s.Dim(),
		Bodies:           s.Bodies(),
		Dt:               s.Dt(),
		ProducerInterval: cfg.Pipeline.ProducerInterval.String(),
		ConsumerInterval: cfg.Pipeline.ConsumerInterval.String(),
		Samples:          cfg.Pipeline.Samples,
	}

	if opts.LogPath != "" {
		if e.log, err = storage.Open(opts.LogPath, logOpts); err != nil {
			return nil, err
		}
	} else {
		dir := opts.LogDir
		if dir == "" {
			dir = cfg.Log.Dir
		}
		e.store = storage.New(dir)
		if e.log, e.meta, err = e.store.Create(e.meta, logOpts); err != nil {
			return nil, err
		}
	}

	popts := pipeline.Options{
		ProducerInterval: cfg.Pipeline.ProducerInterval,
		ConsumerInterval: cfg.Pipeline.ConsumerInterval,
		MaxBatch:         cfg.Pipeline.MaxBatch,
		DrainOnShutdown:  cfg.Pipeline.Drain,
		MaxSamples:       cfg.Pipeline.Samples,
		Logger:           logger,
	}
	if cfg.Load.LeastSquares {
		popts.Load = lsq.Load(cfg.Load.Seed)
	}
	e.coord = pipeline.New(s, e.log, popts)
	return e, nil
}

// Run drives the pipeline until ctx ends or the sample budget is spent,
// then closes the log and records the outcome in the run's sidecar.
func (e *Experiment) Run(ctx context.Context) error {
	e.logger.Info("run started", "scene", e.cfg.Scene, "log", e.log.Path(), "bodies", e.sim.Bodies(), "dim", e.sim.Dim())

	runErr := e.coord.Run(ctx)
	closeErr := e.Close()

	if e.store != nil {
		e.meta.LastSequence = e.log.Sequence()
		e.meta.Finished = time.Now()
		if err := e.store.Save(e.meta); err != nil {
			e.logger.Warn("could not update run metadata", "err", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	return closeErr
}

func (e *Experiment) Close() error {
	return e.log.Close()
}

func (e *Experiment) Stats() pipeline.Stats { return e.coord.Stats() }

func (e *Experiment) Simulator() *sim.Simulator { return e.sim }

func (e *Experiment) LogPath() string { return e.log.Path() }

func (e *Experiment) Metadata() storage.RunMetadata { return e.meta }

// MonitorStats adapts the pipeline counters for viz.Monitor.
func (e *Experiment) MonitorStats() viz.MonitorStats {
	s := e.coord.Stats()
	return viz.MonitorStats{
		Produced:     s.Produced,
		Written:      s.Written,
		Rejected:     s.Rejected,
		Backlog:      s.Backlog,
		HighWater:    s.HighWater,
		LastSequence: s.LastSequence,
		LastCostUS:   s.LastCostUS,
		Positions:    s.LastPositions,
		Energy:       metrics.TotalEnergy(e.sim.Masses(), e.sim.Gravity(), s.LastTick.Positions, s.LastTick.Velocities),
	}
}

// MonitorConfig frames the ground and the highest starting body.
func (e *Experiment) MonitorConfig() viz.MonitorConfig {
	half := 10.0
	if g := e.cfg.World.Ground.HalfExtents; len(g) > 0 {
		half = g[0]
	}
	top := e.cfg.World.Ground.Top
	high := top + 1
	radii := make([]float64, len(e.cfg.Bodies))
	for i, b := range e.cfg.Bodies {
		radii[i] = b.Radius
		high = math.Max(high, b.Position[1]+b.Radius)
	}
	return viz.MonitorConfig{
		Title:  e.cfg.Scene,
		Dim:    e.sim.Dim(),
		Radii:  radii,
		XRange: viz.Range{Min: -half, Max: half},
		YRange: viz.Range{Min: top - 1, Max: high + 2},
	}
}
