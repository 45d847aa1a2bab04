// Package roc is the platform layer of the control plane: model detection,
// device handle lifecycle, LMT line reservation, and the register-access
// ordering primitives every higher layer builds on.
package roc

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/nxcore/roc/rocerr"
)

var (
	ErrModelFrozen  = errors.New("roc: model already initialized")
	ErrModelNotInit = errors.New("roc: model not initialized")
	ErrLMTExhausted = errors.New("roc: no LMT lines remain for this core")
)

// Vendor/part identify the silicon family the way the source's roc_model
// does; feature flags are a bitmap gating optional functionality (second-
// pass drop, custom meta-aura, etc.) used throughout nix/nixinline/npc.
type Feature uint64

const (
	FeatSecondPassDrop Feature = 1 << iota
	FeatCustomMetaAura
	FeatCustomSAAction
	FeatTL1NoSP
	FeatRxInlineDevice
	FeatCN9K
	FeatCN10K
)

// Model is the immutable-after-init descriptor of the detected silicon.
// Exactly one Model exists per process; it is frozen the first time
// InitModel succeeds and every subsequent call returns ErrModelFrozen.
type Model struct {
	Vendor   string
	Part     string
	Major    int
	Minor    int
	Features Feature
	Name     string
}

func (m Model) Has(f Feature) bool { return m.Features&f != 0 }

// IsCN9K / IsCN10K mirror the source's family-check helpers used pervasively
// to choose a wire-format variant (e.g. NIX AQ request shape, SA-table
// element initializer).
func (m Model) IsCN9K() bool  { return m.Features&FeatCN9K != 0 }
func (m Model) IsCN10K() bool { return m.Features&FeatCN10K != 0 }

var (
	modelOnce sync.Once
	modelSet  atomic.Bool
	model     Model
	modelMu   sync.RWMutex
)

// InitModel freezes the process-wide Model descriptor. Later layers read it
// via CurrentModel; it is an error to call InitModel twice.
func InitModel(m Model) error {
	if !modelSet.CompareAndSwap(false, true) {
		return ErrModelFrozen
	}
	modelMu.Lock()
	model = m
	modelMu.Unlock()
	return nil
}

// CurrentModel returns the frozen Model descriptor, or an error if
// InitModel has not yet been called.
func CurrentModel() (Model, error) {
	if !modelSet.Load() {
		return Model{}, ErrModelNotInit
	}
	modelMu.RLock()
	defer modelMu.RUnlock()
	return model, nil
}

// ResetModelForTest clears the frozen model so package tests can call
// InitModel repeatedly across subtests; production code never calls this.
func ResetModelForTest() {
	modelMu.Lock()
	model = Model{}
	modelMu.Unlock()
	modelSet.Store(false)
}

// ValidateLMT reports whether the requested per-core LMT line count fits
// within the lines available to this model. The source's
// roc_plt_lmt_validate returns 0 on failure and 1 on success — an inverted
// boolean polarity preserved here only in the sense that failure is the
// expressly documented, distinguished case (see DESIGN.md "Open Question
// decisions"); this Go form returns the natural true=success boolean.
func ValidateLMT(numCores, linesPerCore, totalLines int) bool {
	if numCores <= 0 || linesPerCore <= 0 || totalLines <= 0 {
		return false
	}
	return numCores*linesPerCore <= totalLines
}

// RegisterHandle is a typed, ordering-bearing view over a BAR-mapped CSR.
// It exists so cache-only pipeline fields can never be accidentally issued
// to MMIO (and vice versa): callers construct one only over an actual BAR
// offset, never over a cache row.
type RegisterHandle struct {
	base   uintptr
	offset uintptr
	read   func(addr uintptr) uint64
	write  func(addr uintptr, v uint64)
	fence  func()
}

// NewRegisterHandle binds the three ordering primitives a platform provides
// (volatile read, volatile write, memory fence) to a single BAR offset.
func NewRegisterHandle(base, offset uintptr, read func(uintptr) uint64, write func(uintptr, uint64), fence func()) RegisterHandle {
	return RegisterHandle{base: base, offset: offset, read: read, write: write, fence: fence}
}

// ReadAcquire performs a volatile load with acquire semantics: no memory
// operation following the call in program order is allowed to be reordered
// before it.
func (r RegisterHandle) ReadAcquire() uint64 {
	v := r.read(r.base + r.offset)
	r.fence()
	return v
}

// WriteRelease performs a volatile store with release semantics: every
// memory operation preceding the call in program order is guaranteed
// visible before the store is observed.
func (r RegisterHandle) WriteRelease(v uint64) {
	r.fence()
	r.write(r.base+r.offset, v)
}

// Barrier issues a standalone fence, used between two register operations
// that must not be reordered relative to each other (e.g. SA sync's
// flush-then-errreg readback, spec.md §4.4).
func (r RegisterHandle) Barrier() { r.fence() }

// Device is the per-PF/VF handle every subsystem is constructed from: it
// owns the mailbox contexts, BAR bases, LMT base, and the function's own
// pcifunc identifier. Resource attach counts live here because the mailbox
// attach response clamps them (spec.md §4.1).
type Device struct {
	mu sync.Mutex

	PCIFunc  uint16
	Model    Model
	Bar2     uintptr
	Bar4     uintptr
	LMTBase  uintptr
	LinesPerCore int
	TotalLMTLines int

	attached map[string]int // kind -> granted count, set by mailbox attach
}

// NewDevice constructs a handle for a given pcifunc under the frozen Model.
// It does not perform the mailbox handshake; callers drive that separately
// via the mailbox package and record the result with SetAttached.
func NewDevice(pcifunc uint16, m Model, bar2, bar4, lmtBase uintptr, linesPerCore, totalLines int) *Device {
	return &Device{
		PCIFunc:       pcifunc,
		Model:         m,
		Bar2:          bar2,
		Bar4:          bar4,
		LMTBase:       lmtBase,
		LinesPerCore:  linesPerCore,
		TotalLMTLines: totalLines,
		attached:      make(map[string]int),
	}
}

// SetAttached records the admin-function-granted count for a resource kind
// (e.g. "npa", "cpt", "sso_hws"); mailbox.Attach calls this after a
// successful round trip.
func (d *Device) SetAttached(kind string, granted int) {
	d.mu.Lock()
	d.attached[kind] = granted
	d.mu.Unlock()
}

// Attached returns the granted count for kind, 0 if never attached.
func (d *Device) Attached(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attached[kind]
}

// LMTLineForCore returns the BAR-relative offset of the LMT line owned by
// the given logical core id, or an error if the core index exceeds the
// lines reserved for this device.
func (d *Device) LMTLineForCore(coreID int) (uintptr, error) {
	if coreID < 0 || coreID >= d.TotalLMTLines/max1(d.LinesPerCore) {
		return 0, rocerr.ErrParam.Wrap(ErrLMTExhausted)
	}
	return d.LMTBase + uintptr(coreID*d.LinesPerCore)*lmtLineSize, nil
}

// ControlLMTLine returns the single "control" line at the top of the
// device's LMT range, usable from any core for out-of-band submissions
// (spec.md §5, LMT lines bullet).
func (d *Device) ControlLMTLine() uintptr {
	return d.LMTBase + uintptr(d.TotalLMTLines-1)*lmtLineSize
}

const lmtLineSize = 128 // bytes, spec.md GLOSSARY "LMT line"

func max1(v int) int {
	if v <= 0 {
		return 1
	}
	return v
}
