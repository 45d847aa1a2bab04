package npc

import (
	"sync"

	"github.com/nxcore/roc/rocerr"
)

// CounterPool manages the optional per-rule match counters (spec.md §4.6
// "Counter lifecycle"). On older silicon these are explicitly
// allocated/cleared/freed through the mailbox; NoneID models the absence
// of a counter on a rule.
const NoneID = -1

type CounterPool struct {
	mu        sync.Mutex
	limit     int
	allocated map[int]bool
	values    map[int]uint64
	next      int
}

func NewCounterPool(limit int) *CounterPool {
	return &CounterPool{limit: limit, allocated: make(map[int]bool), values: make(map[int]uint64)}
}

// Alloc reserves a zeroed counter slot and returns its id.
func (c *CounterPool) Alloc() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := 0; id < c.limit; id++ {
		if !c.allocated[id] {
			c.allocated[id] = true
			c.values[id] = 0
			return id, nil
		}
	}
	return NoneID, rocerr.ErrNoMCAM
}

// Clear zeroes an allocated counter without freeing it.
func (c *CounterPool) Clear(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.allocated[id] {
		return rocerr.ErrParam
	}
	c.values[id] = 0
	return nil
}

// Free releases a counter back to the pool.
func (c *CounterPool) Free(id int) error {
	if id == NoneID {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.allocated[id] {
		return rocerr.ErrParam
	}
	delete(c.allocated, id)
	delete(c.values, id)
	return nil
}

// Read returns the counter's current value. On the newest silicon this
// would instead be ambient (read via a statistics message keyed by MCAM
// id, spec.md §4.6); callers that need that path use Bump directly against
// their own mailbox-fetched snapshot instead of this in-process value.
func (c *CounterPool) Read(id int) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[id]
	if !ok {
		return 0, rocerr.ErrParam
	}
	return v, nil
}

// Bump increments a counter by delta, used by the (simulated) hardware hit
// path and by tests asserting counter semantics.
func (c *CounterPool) Bump(id int, delta uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.allocated[id] {
		return rocerr.ErrParam
	}
	c.values[id] += delta
	return nil
}
