package cpt

import (
	"sync"

	"github.com/nxcore/roc"
)

// SATable is the per-LF security-association table used by outbound
// inline IPSec (spec.md §4.4). Element size is silicon-dependent; callers
// pass it at construction.
type SATable struct {
	mu        sync.Mutex
	base      uintptr
	elemSize  uintptr
	maxSA     int
}

// NewSATable allocates a software-side SA table descriptor over a base
// address already sized/aligned by the caller (SA_BASE_ALIGN, spec.md
// §4.4); this package does not perform the underlying memory allocation.
func NewSATable(base uintptr, elemSize uintptr, maxSA int) *SATable {
	return &SATable{base: base, elemSize: elemSize, maxSA: maxSA}
}

// SlotAddr returns the address of SA slot i, bounds-checked against maxSA.
func (t *SATable) SlotAddr(i int) (uintptr, bool) {
	if i < 0 || i >= t.maxSA {
		return 0, false
	}
	return t.base + uintptr(i)*t.elemSize, true
}

// SyncOp names the SA-sync CSR operations of spec.md §4.4.
type SyncOp int

const (
	SyncFlush SyncOp = iota
	SyncFlushInval
	SyncReload
	SyncInval
)

// SAShift is the right-shift applied to an SA pointer before it is written
// to the sync CSR (spec.md §4.4: "each writes a single CSR with the SA
// pointer shifted right by 7").
const SAShift = 7

// Sync performs op against the SA at addr. reg.WriteRelease issues the single CSR
// write with the pre-shifted pointer; on SyncFlush the caller additionally
// gets a post-fence CSR readback exposing flush_st_flt. On cn9k (cn9k=true)
// every op degenerates to a plain memory fence, matching the source.
func Sync(reg roc.RegisterHandle, op SyncOp, addr uintptr, cn9k bool) (flushStFlt bool, err error) {
	if cn9k {
		reg.Barrier()
		return false, nil
	}
	reg.WriteRelease(uint64(addr>>SAShift) | (uint64(op) << 60))
	if op == SyncFlush {
		reg.Barrier()
		v := reg.ReadAcquire()
		flushStFlt = v&1 != 0
	}
	return flushStFlt, nil
}

// ContextWrite performs the SA context write described in spec.md §4.4:
// either a CPT "write SA" microcode call followed by FLUSH (useWriteSA),
// or a software copy with the aop_valid bit cleared before and set after
// the copy, followed by INVAL.
func ContextWrite(reg roc.RegisterHandle, addr uintptr, useWriteSA bool, microcodeWrite func() error, setValid func(bool) error, copyBody func() error, cn9k bool) error {
	if useWriteSA {
		if err := microcodeWrite(); err != nil {
			return err
		}
		_, err := Sync(reg, SyncFlush, addr, cn9k)
		return err
	}
	if err := setValid(false); err != nil {
		return err
	}
	if err := copyBody(); err != nil {
		return err
	}
	if err := setValid(true); err != nil {
		return err
	}
	_, err := Sync(reg, SyncInval, addr, cn9k)
	return err
}
