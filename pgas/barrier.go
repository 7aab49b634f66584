package pgas

import "sync"

// cyclicBarrier is a reusable rendezvous point for exactly n parties,
// grounded on the teacher's control.ShutdownWG / syncharvester.go
// wait-for-completion pattern but generalized to fire repeatedly: the
// table façade needs one barrier crossing at construction and at least
// one more between the insert and find phases (spec.md §3's
// happens-before fence), so a single-shot sync.WaitGroup is not enough.
type cyclicBarrier struct {
	n       int
	mu      sync.Mutex
	cond    *sync.Cond
	count   int
	gen     uint64
}

func newCyclicBarrier(n int) *cyclicBarrier {
	b := &cyclicBarrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// wait blocks the calling goroutine until n total calls have been made
// for the current generation, then releases all of them together and
// advances to the next generation.
func (b *cyclicBarrier) wait() {
	b.mu.Lock()
	gen := b.gen
	b.count++
	if b.count == b.n {
		b.count = 0
		b.gen++
		b.cond.Broadcast()
		b.mu.Unlock()
		return
	}
	for gen == b.gen {
		b.cond.Wait()
	}
	b.mu.Unlock()
}
