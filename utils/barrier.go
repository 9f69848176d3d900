package utils

import "sync"

// Barrier is a reusable (cyclic) barrier for a fixed number of participants.
// Every Wait returns only once all participants of the same generation have arrived,
// and all writes before any Wait happen-before all reads after it.
type Barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	parties int
	waiting int
	gen     uint64
}

func NewBarrier(parties int) *Barrier {
	if parties <= 0 {
		panic("barrier needs at least one party")
	}
	b := &Barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until all parties have called Wait. Returns true for the last arriver.
func (b *Barrier) Wait() (last bool) {
	b.mu.Lock()
	gen := b.gen
	b.waiting++
	if b.waiting == b.parties {
		b.waiting = 0
		b.gen++
		b.cond.Broadcast()
		b.mu.Unlock()
		return true
	}
	for gen == b.gen {
		b.cond.Wait()
	}
	b.mu.Unlock()
	return false
}
