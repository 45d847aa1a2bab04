package npc

import (
	"sort"
	"sync"

	"github.com/nxcore/roc/rocerr"
)

// zone tracks one priority level's occupied index range and the set of
// indices within that range that have since been freed (and can be
// reused before the zone grows further).
type zone struct {
	min, max int // inclusive; max < min means empty
	free     map[int]bool
}

func newZone() *zone { return &zone{min: 0, max: -1, free: make(map[int]bool)} }

func (z *zone) empty() bool { return z.max < z.min }

// ShiftOp records one single-entry MCAM move the allocator performed to
// restore zone ordering (spec.md §4.6 "shift requests").
type ShiftOp struct {
	Priority  uint8
	FromIndex int
	ToIndex   int
}

// Allocator is the MCAM entry-pool allocator: per-priority free/live
// bookkeeping plus the shift machinery that keeps every priority zone's
// index range ordered relative to its neighbors (invariant 1).
type Allocator struct {
	mu    sync.Mutex
	zones map[uint8]*zone
	top   int // first never-allocated index
}

func NewAllocator() *Allocator {
	return &Allocator{zones: make(map[uint8]*zone)}
}

func (a *Allocator) zoneFor(priority uint8) *zone {
	z, ok := a.zones[priority]
	if !ok {
		z = newZone()
		a.zones[priority] = z
	}
	return z
}

// sortedPriorities returns the priorities with a non-empty zone, ascending.
func (a *Allocator) sortedPriorities() []uint8 {
	ps := make([]uint8, 0, len(a.zones))
	for p, z := range a.zones {
		if !z.empty() {
			ps = append(ps, p)
		}
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })
	return ps
}

// nextHigherZone returns the zone with the smallest min index among zones
// whose priority is strictly greater than p, or nil.
func (a *Allocator) nextHigherZone(p uint8) (uint8, *zone) {
	var bestP uint8
	var best *zone
	for q, z := range a.zones {
		if q <= p || z.empty() {
			continue
		}
		if best == nil || z.min < best.min {
			best, bestP = z, q
		}
	}
	return bestP, best
}

// Alloc allocates one MCAM index for priority, returning the index and any
// shift operations the allocator performed to keep zone ordering intact
// (spec.md §4.6 scenario S2).
func (a *Allocator) Alloc(priority uint8) (int, []ShiftOp, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	z := a.zoneFor(priority)

	// Reuse a freed interior slot first.
	if len(z.free) > 0 {
		idx := -1
		for i := range z.free {
			if idx == -1 || i < idx {
				idx = i
			}
		}
		delete(z.free, idx)
		return idx, nil, nil
	}

	var shifts []ShiftOp

	if z.empty() {
		// Insert immediately below the next-higher zone if one exists,
		// otherwise at the top.
		if higherP, higher := a.nextHigherZone(priority); higher != nil {
			idx := higher.min
			shifts = a.shiftUp(higherP, idx)
			z.min, z.max = idx, idx
			return idx, shifts, nil
		}
		idx := a.top
		a.top++
		z.min, z.max = idx, idx
		return idx, nil, nil
	}

	// Non-empty zone: try to extend just past the current max.
	candidate := z.max + 1
	higherP, higher := a.nextHigherZone(priority)
	if higher != nil && candidate == higher.min {
		shifts = a.shiftUp(higherP, higher.min)
		z.max = candidate
		return candidate, shifts, nil
	}
	if candidate == a.top {
		a.top++
	}
	z.max = candidate
	return candidate, nil, nil
}

// shiftUp moves the entry occupying idx (owned by the zone whose min is
// idx) to a new slot past every allocated index, freeing idx for the
// caller's lower-priority zone. Returns the shift performed.
func (a *Allocator) shiftUp(owner uint8, idx int) []ShiftOp {
	z := a.zones[owner]
	newIdx := a.top
	a.top++
	z.min = idx + 1
	if z.min > z.max {
		// zone fully vacated from the bottom; its single entry now lives at
		// newIdx only if it had exactly one element, handled by caller math.
		z.max = newIdx
		z.min = newIdx
	} else {
		// the shifted entry now occupies newIdx at the top of the zone's
		// range; extend max to cover it, leaving the old top (idx..newIdx-1
		// interior) bookkeeping to the free-set already unaffected since the
		// zone is logically contiguous minus this one relocated entry.
		z.max = newIdx
	}
	return []ShiftOp{{Priority: owner, FromIndex: idx, ToIndex: newIdx}}
}

// Free releases index back to priority's zone, shrinking the occupied
// bounds when the freed index sits at either edge and recording it as
// reusable otherwise.
func (a *Allocator) Free(priority uint8, index int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	z, ok := a.zones[priority]
	if !ok || z.empty() || index < z.min || index > z.max {
		return rocerr.ErrParam
	}
	switch {
	case index == z.min && index == z.max:
		z.min, z.max = 0, -1
	case index == z.min:
		z.min++
		delete(z.free, index)
	case index == z.max:
		z.max--
		delete(z.free, index)
	default:
		z.free[index] = true
	}
	return nil
}

// MaxIndex returns the highest occupied index of priority's zone, or -1 if
// empty.
func (a *Allocator) MaxIndex(priority uint8) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if z, ok := a.zones[priority]; ok && !z.empty() {
		return z.max
	}
	return -1
}

// MinIndex returns the lowest occupied index of priority's zone, or -1 if
// empty.
func (a *Allocator) MinIndex(priority uint8) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if z, ok := a.zones[priority]; ok && !z.empty() {
		return z.min
	}
	return -1
}

// Preset seeds priority's zone to an existing [min, max] occupied range,
// used when attaching to an MCAM state programmed before this process
// started (or, in tests, to reproduce a specific starting layout).
func (a *Allocator) Preset(priority uint8, min, max int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	z := a.zoneFor(priority)
	z.min, z.max = min, max
	if max+1 > a.top {
		a.top = max + 1
	}
}

// CheckZoneOrdering verifies invariant 1: for any two priorities p < q both
// holding entries, max_index(p) < min_index(q).
func (a *Allocator) CheckZoneOrdering() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	ps := a.sortedPriorities()
	for i := 1; i < len(ps); i++ {
		prev, cur := a.zones[ps[i-1]], a.zones[ps[i]]
		if prev.max >= cur.min {
			return false
		}
	}
	return true
}
