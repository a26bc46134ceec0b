package pipeline

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/tickstream/internal/analysis"
	"github.com/san-kum/tickstream/internal/dynamo"
	"github.com/san-kum/tickstream/internal/physics"
	"github.com/san-kum/tickstream/internal/sim"
	"github.com/san-kum/tickstream/internal/storage"
)

type countingStepper struct {
	mu sync.Mutex
	n  int
	// poison makes every tick at that index non-finite
	poison int
}

func (s *countingStepper) Tick() dynamo.Tick {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	y := float64(s.n)
	if s.n == s.poison {
		y = math.NaN()
	}
	return dynamo.Tick{
		Positions:  []mgl64.Vec3{{0, y, 0}, {1, y, 0}},
		Velocities: []mgl64.Vec3{{}, {}},
		Dim:        2,
		Cost:       time.Duration(s.n) * time.Microsecond,
	}
}

type memSink struct {
	mu      sync.Mutex
	seq     uint64
	records []storage.Record
	failAt  uint64
}

func (m *memSink) Append(dim int, positions []float64, cost uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dim != len(positions) {
		return 0, dynamo.ErrDimensionMismatch
	}
	if !dynamo.State(positions).IsValid() {
		return 0, dynamo.ErrInvalidState
	}
	if m.failAt > 0 && m.seq+1 == m.failAt {
		return 0, &storage.WriteError{Op: "write", Err: errors.New("disk gone")}
	}
	m.seq++
	m.records = append(m.records, storage.Record{
		Sequence:   m.seq,
		Dimension:  dim,
		Positions:  append([]float64(nil), positions...),
		TickCostUS: cost,
	})
	return m.seq, nil
}

func (m *memSink) snapshot() []storage.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]storage.Record(nil), m.records...)
}

func fastOptions() Options {
	opts := DefaultOptions()
	opts.ProducerInterval = time.Millisecond
	opts.ConsumerInterval = time.Millisecond
	return opts
}

var _ = Describe("Coordinator", func() {
	var (
		stepper *countingStepper
		sink    *memSink
	)

	BeforeEach(func() {
		stepper = &countingStepper{}
		sink = &memSink{}
	})

	It("writes every produced sample in order", func() {
		opts := fastOptions()
		opts.MaxSamples = 25
		c := New(stepper, sink, opts)

		Expect(c.Run(context.Background())).To(Succeed())

		recs := sink.snapshot()
		Expect(recs).To(HaveLen(25))
		for i, r := range recs {
			Expect(r.Sequence).To(Equal(uint64(i + 1)))
			Expect(r.Dimension).To(Equal(4))
			Expect(r.Positions).To(Equal([]float64{0, float64(i + 1), 1, float64(i + 1)}))
			Expect(r.TickCostUS).To(Equal(uint64(i + 1)))
		}

		s := c.Stats()
		Expect(s.Produced).To(Equal(uint64(25)))
		Expect(s.Written).To(Equal(uint64(25)))
		Expect(s.Backlog).To(Equal(0))
		Expect(s.LastSequence).To(Equal(uint64(25)))
	})

	It("lets the backlog grow when the consumer is slower", func() {
		opts := fastOptions()
		opts.ProducerInterval = 0
		opts.ConsumerInterval = 5 * time.Millisecond
		opts.MaxSamples = 200
		c := New(stepper, sink, opts)

		Expect(c.Run(context.Background())).To(Succeed())
		Expect(sink.snapshot()).To(HaveLen(200))
		Expect(c.Stats().HighWater).To(BeNumerically(">", 1))
	})

	It("writes several samples per wake-up with MaxBatch", func() {
		opts := fastOptions()
		opts.ProducerInterval = 0
		opts.MaxBatch = 50
		opts.MaxSamples = 100
		c := New(stepper, sink, opts)

		Expect(c.Run(context.Background())).To(Succeed())
		Expect(sink.snapshot()).To(HaveLen(100))
	})

	It("stops on cancellation and drains the queue", func() {
		opts := fastOptions()
		opts.ConsumerInterval = 50 * time.Millisecond
		c := New(stepper, sink, opts)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- c.Run(ctx) }()

		Eventually(func() uint64 { return c.Stats().Produced }).Should(BeNumerically(">=", 10))
		cancel()
		Eventually(done).Should(Receive(BeNil()))

		s := c.Stats()
		Expect(s.Backlog).To(Equal(0))
		Expect(s.Written).To(Equal(s.Produced))
	})

	It("leaves the backlog when draining is off", func() {
		opts := fastOptions()
		opts.ProducerInterval = 0
		opts.ConsumerInterval = time.Hour
		opts.DrainOnShutdown = false
		c := New(stepper, sink, opts)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- c.Run(ctx) }()

		Eventually(func() int { return c.Stats().Backlog }).Should(BeNumerically(">", 5))
		cancel()
		Eventually(done).Should(Receive(BeNil()))
		Expect(c.Stats().Written).To(BeNumerically("<=", 1))
	})

	It("skips rejected samples without consuming sequence numbers", func() {
		stepper.poison = 3
		opts := fastOptions()
		opts.MaxSamples = 5
		c := New(stepper, sink, opts)

		Expect(c.Run(context.Background())).To(Succeed())
		recs := sink.snapshot()
		Expect(recs).To(HaveLen(4))
		Expect(recs[2].Sequence).To(Equal(uint64(3)))
		Expect(recs[2].Positions[1]).To(Equal(4.0))
		Expect(c.Stats().Rejected).To(Equal(uint64(1)))
	})

	It("ends the run when an append fails", func() {
		sink.failAt = 4
		opts := fastOptions()
		c := New(stepper, sink, opts)

		err := c.Run(context.Background())
		var we *storage.WriteError
		Expect(errors.As(err, &we)).To(BeTrue())
		Expect(sink.snapshot()).To(HaveLen(3))
	})

	It("counts synthetic load in the tick cost", func() {
		opts := fastOptions()
		opts.MaxSamples = 3
		opts.Load = func() { time.Sleep(2 * time.Millisecond) }
		c := New(stepper, sink, opts)

		Expect(c.Run(context.Background())).To(Succeed())
		for _, r := range sink.snapshot() {
			Expect(r.TickCostUS).To(BeNumerically(">=", 2000))
		}
	})

	Context("end to end", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		It("streams a simulation to disk and analyzes it back", func() {
			world, err := physics.NewWorld(2, physics.DefaultOptions())
			Expect(err).NotTo(HaveOccurred())
			s := sim.MustNew(world, sim.DefaultWorldConfig(2),
				sim.BodyConfig{Radius: 0.5, Density: 1, Restitution: 0.8, Position: []float64{-2, 5}, Velocity: []float64{1, 0}},
				sim.BodyConfig{Radius: 0.3, Density: 2, Restitution: 0.6, Position: []float64{2, 8}, Velocity: []float64{-1, 0}},
			)

			logPath := filepath.Join(dir, "run.log")
			l, err := storage.Open(logPath, storage.DefaultOptions())
			Expect(err).NotTo(HaveOccurred())

			opts := fastOptions()
			opts.MaxSamples = 40
			Expect(New(s, l, opts).Run(context.Background())).To(Succeed())
			Expect(l.Close()).To(Succeed())

			f, err := os.Open(logPath)
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()

			ds, err := analysis.ParseLog(f, analysis.Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ds.Timing).To(HaveLen(40))
			Expect(ds.Trajectories).To(HaveLen(2))
			Expect(ds.Trajectories[0].Points).To(HaveLen(40))
			Expect(ds.Skipped()).To(Equal(0))
			Expect(ds.Timing[39].Sequence).To(Equal(uint64(40)))
		})
	})
})

var _ = Describe("DefaultOptions", func() {
	It("paces the consumer slower than the producer", func() {
		opts := DefaultOptions()
		Expect(opts.ProducerInterval).To(BeNumerically(">", 0))
		Expect(opts.ConsumerInterval).To(BeNumerically(">", opts.ProducerInterval))
	})
})
