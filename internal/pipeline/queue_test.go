package pipeline

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Queue", func() {
	var q *Queue[int]

	BeforeEach(func() {
		q = NewQueue[int]()
	})

	It("reports empty", func() {
		_, ok := q.TryPop()
		Expect(ok).To(BeFalse())
		Expect(q.Len()).To(Equal(0))
	})

	It("pops in FIFO order across compactions", func() {
		next, want := 0, 0
		for round := 0; round < 50; round++ {
			for i := 0; i < 100; i++ {
				q.Push(next)
				next++
			}
			for i := 0; i < 70; i++ {
				v, ok := q.TryPop()
				Expect(ok).To(BeTrue())
				Expect(v).To(Equal(want))
				want++
			}
		}
		Expect(q.Len()).To(Equal(next - want))
		for q.Len() > 0 {
			v, _ := q.TryPop()
			Expect(v).To(Equal(want))
			want++
		}
		Expect(want).To(Equal(next))
	})

	It("grows without bound and tracks the high-water mark", func() {
		for i := 0; i < 10000; i++ {
			q.Push(i)
		}
		Expect(q.Len()).To(Equal(10000))
		for i := 0; i < 9000; i++ {
			q.TryPop()
		}
		Expect(q.Len()).To(Equal(1000))
		Expect(q.HighWater()).To(Equal(10000))
		v, _ := q.TryPop()
		Expect(v).To(Equal(9000))
	})

	It("hands every item from one producer to one consumer", func() {
		const n = 5000
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < n; i++ {
				q.Push(i)
			}
		}()

		got := make([]int, 0, n)
		for len(got) < n {
			if v, ok := q.TryPop(); ok {
				got = append(got, v)
			}
		}
		wg.Wait()
		for i, v := range got {
			Expect(v).To(Equal(i))
		}
	})
})
