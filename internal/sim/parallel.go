package sim

import (
	"context"
	"sync"
)

// Factory builds a fresh simulator per ensemble member.
type Factory func() (*Simulator, error)

// Ensemble steps independent simulators concurrently, one goroutine each.
type Ensemble struct {
	factories []Factory
	names     []string
}

func NewEnsemble() *Ensemble {
	return &Ensemble{}
}

func (e *Ensemble) Add(name string, f Factory) {
	e.names = append(e.names, name)
	e.factories = append(e.factories, f)
}

func (e *Ensemble) Names() []string { return e.names }

// Run advances every member by steps ticks. Results are indexed like Names.
func (e *Ensemble) Run(ctx context.Context, steps int) ([]*Result, error) {
	results := make([]*Result, len(e.factories))
	errs := make([]error, len(e.factories))

	var wg sync.WaitGroup
	for i, f := range e.factories {
		wg.Add(1)
		go func(idx int, f Factory) {
			defer wg.Done()

			s, err := f()
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = s.Run(ctx, steps)
		}(i, f)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
