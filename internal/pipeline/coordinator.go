package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/tickstream/internal/dynamo"
	"github.com/san-kum/tickstream/internal/sim"
	"golang.org/x/sync/errgroup"
)

// Appender is the durable sink; storage.Log implements it.
type Appender interface {
	Append(dimension int, positions []float64, tickCostUS uint64) (uint64, error)
}

type Options struct {
	ProducerInterval time.Duration
	ConsumerInterval time.Duration
	// MaxBatch is how many samples the consumer writes per wake-up.
	// Zero or less means one.
	MaxBatch        int
	DrainOnShutdown bool
	// MaxSamples stops the producer after that many ticks. Zero runs until
	// the context ends.
	MaxSamples uint64
	// Load runs after every physics step and counts toward the tick cost.
	Load   func()
	Logger *log.Logger
}

func DefaultOptions() Options {
	return Options{
		ProducerInterval: 2 * time.Millisecond,
		ConsumerInterval: 10 * time.Millisecond,
		MaxBatch:         1,
		DrainOnShutdown:  true,
	}
}

type Stats struct {
	Produced      uint64
	Written       uint64
	Rejected      uint64
	Backlog       int
	HighWater     int
	LastSequence  uint64
	LastCostUS    uint64
	LastPositions []mgl64.Vec3
	LastTick      dynamo.Tick
}

type Coordinator struct {
	stepper sim.Stepper
	sink    Appender
	opts    Options
	queue   *Queue[dynamo.Tick]
	pool    *sim.StatePool
	logger  *log.Logger

	mu    sync.Mutex
	stats Stats
}

func New(stepper sim.Stepper, sink Appender, opts Options) *Coordinator {
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Coordinator{
		stepper: stepper,
		sink:    sink,
		opts:    opts,
		queue:   NewQueue[dynamo.Tick](),
		logger:  logger,
	}
}

// Run blocks until both loops return. Cancellation is not an error; a
// failed append is, and it stops the producer too.
func (c *Coordinator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	producerDone := make(chan struct{})

	g.Go(func() error {
		defer close(producerDone)
		return c.produce(ctx)
	})
	g.Go(func() error {
		return c.consume(ctx, producerDone)
	})

	err := g.Wait()
	s := c.Stats()
	c.logger.Info("pipeline stopped", "produced", s.Produced, "written", s.Written, "rejected", s.Rejected, "backlog", s.Backlog, "high_water", s.HighWater)
	return err
}

func (c *Coordinator) produce(ctx context.Context) error {
	var produced uint64
	for {
		if ctx.Err() != nil {
			return nil
		}
		if c.opts.MaxSamples > 0 && produced >= c.opts.MaxSamples {
			return nil
		}

		t := c.stepper.Tick()
		if c.opts.Load != nil {
			start := time.Now()
			c.opts.Load()
			t.Cost += time.Since(start)
		}
		c.queue.Push(t)
		produced++

		c.mu.Lock()
		c.stats.Produced = produced
		c.stats.LastTick = t
		c.stats.LastPositions = t.Positions
		c.mu.Unlock()

		sleep(ctx, c.opts.ProducerInterval)
	}
}

func (c *Coordinator) consume(ctx context.Context, producerDone <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			if c.opts.DrainOnShutdown {
				// the producer may still be pushing its last tick
				<-producerDone
				return c.drain(-1)
			}
			return nil
		default:
		}

		if err := c.drain(c.opts.MaxBatch); err != nil {
			return err
		}

		select {
		case <-producerDone:
			if c.queue.Len() == 0 {
				return nil
			}
		default:
		}

		sleep(ctx, c.opts.ConsumerInterval)
	}
}

// drain writes up to n queued samples, or all of them when n < 0.
func (c *Coordinator) drain(n int) error {
	for i := 0; n < 0 || i < n; i++ {
		t, ok := c.queue.TryPop()
		if !ok {
			return nil
		}
		if err := c.write(t); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) write(t dynamo.Tick) error {
	if c.pool == nil {
		c.pool = sim.NewStatePool(t.Size())
	}
	flat := c.pool.FlattenTick(t)
	defer c.pool.Put(flat)

	seq, err := c.sink.Append(len(flat), flat, t.CostMicros())
	if err != nil {
		if errors.Is(err, dynamo.ErrInvalidState) || errors.Is(err, dynamo.ErrDimensionMismatch) {
			c.mu.Lock()
			c.stats.Rejected++
			c.mu.Unlock()
			c.logger.Warn("sample rejected", "err", err)
			return nil
		}
		return fmt.Errorf("append sample: %w", err)
	}

	c.mu.Lock()
	c.stats.Written++
	c.stats.LastSequence = seq
	c.stats.LastCostUS = t.CostMicros()
	c.mu.Unlock()
	c.logger.Debug("sample written", "seq", seq, "cost_us", t.CostMicros())
	return nil
}

// Stats is safe to call while Run is in progress.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	s := c.stats
	c.mu.Unlock()
	s.Backlog = c.queue.Len()
	s.HighWater = c.queue.HighWater()
	return s
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
