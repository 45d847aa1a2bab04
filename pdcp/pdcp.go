// Package pdcp implements a small sequence-number-indexed reorder
// buffer (spec.md §4.10). It is not a core subsystem; its contracts are
// included for completeness.
package pdcp

import (
	"sync"

	"github.com/nxcore/roc/rocerr"
)

// Buffer is a fixed-window reorder buffer: entries are inserted keyed by
// a 32-bit sequence number and drained once the window's lowest slot is
// filled, the same windowed-buffering idiom the ambient stack's
// channel-pipeline cache uses for its internal ring, specialized here to
// sequence numbers instead of arrival order.
type Buffer struct {
	mu       sync.Mutex
	window   int
	minSeqn  uint32
	started  bool
	slots    map[uint32]any
}

// New creates a reorder buffer with the given window size.
func New(window int) (*Buffer, error) {
	if window <= 0 {
		return nil, rocerr.ErrParam
	}
	return &Buffer{window: window, slots: make(map[uint32]any)}, nil
}

// Start opens the buffer for insertion beginning at minSeqn.
func (b *Buffer) Start(minSeqn uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.minSeqn = minSeqn
	b.started = true
}

// Stop closes the buffer; further Insert calls return ErrNotSup.
func (b *Buffer) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = false
}

// Destroy releases every buffered entry.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slots = make(map[uint32]any)
	b.started = false
}

// Insert places mbuf at seqn. Entries outside [minSeqn, minSeqn+window)
// are rejected as out of window.
func (b *Buffer) Insert(mbuf any, seqn uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return rocerr.ErrNotSup
	}
	if seqn-b.minSeqn >= uint32(b.window) {
		return rocerr.ErrParam
	}
	b.slots[seqn] = mbuf
	return nil
}

// DrainSequential pops every contiguous entry starting at minSeqn,
// advancing minSeqn past the run, and stopping at the first gap.
func (b *Buffer) DrainSequential() []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []any
	for {
		v, ok := b.slots[b.minSeqn]
		if !ok {
			break
		}
		out = append(out, v)
		delete(b.slots, b.minSeqn)
		b.minSeqn++
	}
	return out
}

// DrainUpToSeqn pops every buffered entry with sequence number strictly
// less than seqn, in sequence order, including across gaps, then
// advances minSeqn to seqn.
func (b *Buffer) DrainUpToSeqn(seqn uint32) []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []any
	for s := b.minSeqn; s != seqn; s++ {
		if v, ok := b.slots[s]; ok {
			out = append(out, v)
			delete(b.slots, s)
		}
	}
	b.minSeqn = seqn
	return out
}

// Pending reports how many entries are currently buffered.
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.slots)
}
