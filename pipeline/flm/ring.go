package flm

import (
	"sync/atomic"

	"github.com/nxcore/roc/rocerr"
)

// Ring is the FLM learn/inf/sta data ring: a fixed-size-record bounded
// queue supporting concurrent producers and a single consumer (spec.md
// §9 "Pointer-tagged ring entries (flm_lrn_queue using rte_ring
// zero-copy)" -> reserve/commit producer API, peek/consume consumer
// API). Capacity is always a power of two (NewRing rounds up); each slot's sequence number
// implements the classic bounded MPMC ring (Vyukov), specialized here to
// MP-single-consumer use since every FLM ring has exactly one consumer.
type Ring struct {
	mask       uint64
	recordSize int
	buf        []ringSlot
	enqueuePos uint64
	dequeuePos uint64
}

type ringSlot struct {
	seq  uint64
	data []byte
}

// NewRing allocates a ring of capacity slots (rounded up to the next
// power of two), each holding recordSize bytes.
func NewRing(capacity, recordSize int) *Ring {
	cap2 := nextPow2(capacity)
	r := &Ring{
		mask:       uint64(cap2 - 1),
		recordSize: recordSize,
		buf:        make([]ringSlot, cap2),
	}
	for i := range r.buf {
		r.buf[i].seq = uint64(i)
		r.buf[i].data = make([]byte, recordSize)
	}
	return r
}

func nextPow2(n int) int {
	if n < 1 {
		n = 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// WriteHandle is a reserved, not-yet-committed producer slot.
type WriteHandle struct {
	ring *Ring
	pos  uint64
	Buf  []byte
}

// GetWriteBuffer reserves the next free slot and returns a handle whose Buf
// the caller fills in before calling ReleaseWriteBuffer. Safe for
// concurrent callers (spec.md invariant 7).
func (r *Ring) GetWriteBuffer() (WriteHandle, bool) {
	for {
		pos := atomic.LoadUint64(&r.enqueuePos)
		slot := &r.buf[pos&r.mask]
		seq := atomic.LoadUint64(&slot.seq)
		diff := int64(seq) - int64(pos)
		if diff == 0 {
			if atomic.CompareAndSwapUint64(&r.enqueuePos, pos, pos+1) {
				return WriteHandle{ring: r, pos: pos, Buf: slot.data}, true
			}
		} else if diff < 0 {
			return WriteHandle{}, false // ring full
		}
		// diff > 0: another producer already advanced past us, retry.
	}
}

// ReleaseWriteBuffer commits h's slot, making it visible to the consumer in
// enqueue order.
func (r *Ring) ReleaseWriteBuffer(h WriteHandle) error {
	if h.ring != r {
		return rocerr.ErrParam
	}
	slot := &r.buf[h.pos&r.mask]
	atomic.StoreUint64(&slot.seq, h.pos+1)
	return nil
}

// ReadHandle is a committed slot available to the single consumer.
type ReadHandle struct {
	ring *Ring
	pos  uint64
	Buf  []byte
}

// GetReadBuffer returns the next committed record in enqueue order, or
// false if none is available yet.
func (r *Ring) GetReadBuffer() (ReadHandle, bool) {
	pos := r.dequeuePos
	slot := &r.buf[pos&r.mask]
	seq := atomic.LoadUint64(&slot.seq)
	diff := int64(seq) - int64(pos+1)
	if diff != 0 {
		return ReadHandle{}, false
	}
	return ReadHandle{ring: r, pos: pos, Buf: slot.data}, true
}

// ReleaseReadBuffer frees h's slot back to the producers and advances the
// consumer position.
func (r *Ring) ReleaseReadBuffer(h ReadHandle) error {
	if h.ring != r || h.pos != r.dequeuePos {
		return rocerr.ErrParam
	}
	slot := &r.buf[h.pos&r.mask]
	atomic.StoreUint64(&slot.seq, h.pos+uint64(len(r.buf)))
	r.dequeuePos = h.pos + 1
	return nil
}

// Avail reports how many slots producers have reserved and the consumer
// has not yet released, committed or still being filled; RefreshBufCtrl
// derives lrn_free/inf_avail/sta_avail from it.
func (r *Ring) Avail() int {
	return int(atomic.LoadUint64(&r.enqueuePos) - r.dequeuePos)
}

// Capacity returns the ring's slot count (always a power of two).
func (r *Ring) Capacity() int {
	return len(r.buf)
}
