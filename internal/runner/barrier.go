package runner

import (
	"context"
	"sync"
)

// Barrier releases every waiting party at once, when all parties that have
// not withdrawn have arrived. It is single use.
type Barrier struct {
	mu       sync.Mutex
	expected int
	arrived  int
	released chan struct{}
	open     bool
}

func NewBarrier(parties int) *Barrier {
	b := &Barrier{expected: parties, released: make(chan struct{})}
	b.mu.Lock()
	b.releaseLocked()
	b.mu.Unlock()
	return b
}

// Wait blocks until the barrier opens. If ctx ends first the caller is
// withdrawn and ctx.Err() is returned.
func (b *Barrier) Wait(ctx context.Context) error {
	b.mu.Lock()
	b.arrived++
	b.releaseLocked()
	b.mu.Unlock()

	select {
	case <-b.released:
		return nil
	case <-ctx.Done():
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open {
		return nil
	}
	b.arrived--
	b.expected--
	b.releaseLocked()
	return ctx.Err()
}

// Withdraw removes one party that will never arrive.
func (b *Barrier) Withdraw() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expected--
	b.releaseLocked()
}

// Expected is the number of parties still counted.
func (b *Barrier) Expected() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.expected
}

func (b *Barrier) releaseLocked() {
	if !b.open && b.arrived >= b.expected {
		b.open = true
		close(b.released)
	}
}
