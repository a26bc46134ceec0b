package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/tickstream/internal/integrators"
	"github.com/san-kum/tickstream/internal/metrics"
	"github.com/san-kum/tickstream/internal/physics"
	"github.com/san-kum/tickstream/internal/sim"
)

type engineFactory func(dim int, opts physics.Options) (physics.Engine, error)

type Registry struct {
	engines     map[string]engineFactory
	integrators map[string]func() integrators.Stepper
}

func NewRegistry() *Registry {
	r := &Registry{
		engines:     make(map[string]engineFactory),
		integrators: make(map[string]func() integrators.Stepper),
	}

	r.engines["native"] = func(dim int, opts physics.Options) (physics.Engine, error) {
		return physics.NewEngine("native", dim, opts)
	}
	r.engines["chipmunk"] = func(dim int, opts physics.Options) (physics.Engine, error) {
		return physics.NewEngine("chipmunk", dim, opts)
	}

	r.integrators["euler"] = func() integrators.Stepper { return integrators.NewEuler() }
	r.integrators["semi_implicit"] = func() integrators.Stepper { return integrators.NewSemiImplicit() }
	r.integrators["verlet"] = func() integrators.Stepper { return integrators.NewVerlet() }

	return r
}

func (r *Registry) GetEngine(name string, dim int, opts physics.Options) (physics.Engine, error) {
	if name == "" {
		name = "native"
	}
	fn, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("unknown engine: %s", name)
	}
	return fn(dim, opts)
}

func (r *Registry) GetIntegrator(name string) (integrators.Stepper, error) {
	if name == "" {
		name = "semi_implicit"
	}
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListEngines() []string {
	return sortedKeys(r.engines)
}

func (r *Registry) ListIntegrators() []string {
	return sortedKeys(r.integrators)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics watches energy, containment within the ground's reach and
// tick cost.
func (r *Registry) DefaultMetrics(s *sim.Simulator) []sim.Metric {
	return []sim.Metric{
		metrics.NewEnergy(s.Masses(), s.Gravity()),
		metrics.NewEnergyDrift(s.Masses(), s.Gravity()),
		metrics.NewContainment(100),
		metrics.NewTickCost(),
	}
}
