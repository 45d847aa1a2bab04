// Package npa implements the buffer-pool manager (spec.md §4.2): aura/pool
// lifecycle, a bitmap of free auras, per-aura IOVA range tracking for
// out-of-range-free detection, and backpressure (BPID) mapping.
package npa

import (
	"math/bits"
	"sync"

	"github.com/nxcore/roc/rocerr"
)

// Per spec.md §4.2: "max number of pools is rounded to a power of two in
// [128, 2^20] and encoded as log2(n)-6".
const (
	minPools = 128
	maxPools = 1 << 20
)

// EncodeNPoolsLog2 returns the AQ-wire encoding of a pool-count ceiling:
// the smallest power of two >= n, clamped to [minPools, maxPools], encoded
// as log2(n)-6.
func EncodeNPoolsLog2(n int) (uint8, error) {
	if n <= 0 {
		return 0, rocerr.ErrParam
	}
	if n < minPools {
		n = minPools
	}
	if n > maxPools {
		n = maxPools
	}
	pow2 := nextPow2(n)
	if pow2 > maxPools {
		pow2 = maxPools
	}
	log2 := bits.Len(uint(pow2)) - 1
	return uint8(log2 - 6), nil
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// Aura is the allocation handle described in spec.md §3: an aura backed by
// a pool of equal-sized buffers, with software-tracked IOVA bounds so
// out-of-range frees are caught rather than corrupting the pool.
type Aura struct {
	ID        uint64
	Limit     uint64
	Available uint64
	StartIOVA uint64
	EndIOVA   uint64

	BPEnabled bool
	BPID      uint16
}

// InRange reports whether iova falls within this aura's tracked bounds.
func (a *Aura) InRange(iova uint64) bool {
	return iova >= a.StartIOVA && iova < a.EndIOVA
}

// Manager owns the full set of auras for one NPA logical function: a
// bitmap of free aura ids plus the per-aura records, all behind a single
// mutex (control-plane operations; the lock-free data-plane alloc/free
// fast path is a separate concern layered on top by nix/nixinline, which
// only reads Aura fields set up here).
type Manager struct {
	mu       sync.Mutex
	nPools   int
	free     []uint64 // bitmap, one bit per aura id
	auras    map[uint64]*Aura
}

// NewManager allocates a Manager able to hand out up to nPools auras,
// with nPools rounded up to a power of two and to at least minPools; the
// rounded count sizes the free bitmap.
func NewManager(nPools int) (*Manager, error) {
	if _, err := EncodeNPoolsLog2(nPools); err != nil {
		return nil, err
	}
	n := nextPow2(nPools)
	if n < minPools {
		n = minPools
	}
	words := (n + 63) / 64
	free := make([]uint64, words)
	for i := range free {
		free[i] = ^uint64(0)
	}
	// mask off bits beyond n in the last word
	if rem := n % 64; rem != 0 {
		free[len(free)-1] = (uint64(1) << rem) - 1
	}
	return &Manager{nPools: n, free: free, auras: make(map[uint64]*Aura)}, nil
}

// AllocAura reserves the lowest-numbered free aura id, sizes it from
// limit, and tracks [startIOVA, endIOVA).
func (m *Manager) AllocAura(limit, startIOVA, endIOVA uint64) (*Aura, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.popFreeLocked()
	if !ok {
		return nil, rocerr.ErrNoSpace
	}
	a := &Aura{ID: id, Limit: limit, Available: limit, StartIOVA: startIOVA, EndIOVA: endIOVA}
	m.auras[id] = a
	return a, nil
}

// FreeAura releases id back to the free bitmap. Returns rocerr.ErrParam if
// id was never allocated.
func (m *Manager) FreeAura(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.auras[id]; !ok {
		return rocerr.ErrParam
	}
	delete(m.auras, id)
	m.setFreeLocked(id)
	return nil
}

// Aura looks up an allocated aura by id.
func (m *Manager) Aura(id uint64) (*Aura, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.auras[id]
	return a, ok
}

// EnableBackpressure maps aura id to channel bpid, the per-channel BPID
// mapping written into the aura context (spec.md §4.2).
func (m *Manager) EnableBackpressure(id uint64, bpid uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.auras[id]
	if !ok {
		return rocerr.ErrParam
	}
	a.BPEnabled = true
	a.BPID = bpid
	return nil
}

func (m *Manager) popFreeLocked() (uint64, bool) {
	for w, word := range m.free {
		if word == 0 {
			continue
		}
		bit := bits.TrailingZeros64(word)
		id := uint64(w*64 + bit)
		m.free[w] &^= 1 << bit
		return id, true
	}
	return 0, false
}

func (m *Manager) setFreeLocked(id uint64) {
	w, bit := int(id/64), int(id%64)
	if w >= len(m.free) {
		return
	}
	m.free[w] |= 1 << bit
}

// FreeCount returns how many aura slots remain unallocated, used by tests
// and by callers sizing a new request against remaining headroom.
func (m *Manager) FreeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, w := range m.free {
		n += bits.OnesCount64(w)
	}
	return n
}
