package sim

import (
	"sync"

	"github.com/san-kum/tickstream/internal/dynamo"
)

// StatePool recycles flattened position buffers of a fixed capacity.
type StatePool struct {
	pool sync.Pool
	size int
}

func NewStatePool(size int) *StatePool {
	return &StatePool{
		size: size,
		pool: sync.Pool{
			New: func() any {
				s := make(dynamo.State, 0, size)
				return &s
			},
		},
	}
}

// Get returns an empty buffer with capacity for one flattened tick.
func (p *StatePool) Get() dynamo.State {
	return (*p.pool.Get().(*dynamo.State))[:0]
}

func (p *StatePool) Put(s dynamo.State) {
	if cap(s) < p.size {
		return
	}
	s = s[:0]
	p.pool.Put(&s)
}

// FlattenTick flattens t into a pooled buffer. Callers Put it back once the
// sample is written.
func (p *StatePool) FlattenTick(t dynamo.Tick) dynamo.State {
	return t.Flatten(p.Get())
}
