// Package idev is the process-wide intra-device registry (spec.md §2 L1):
// a singleton holding cross-subsystem handles — the NPA pool used for
// inline meta-buffers, the inline-NIX device, the MCS device list — each
// guarded by its own lock and reference-counted so the last detacher tears
// the shared resource down.
package idev

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nxcore/roc/rocerr"
	"golang.org/x/sync/semaphore"
)

// NPAPoolRef is the shared NPA-pool handle subsystems attach to when they
// need the global inline meta-aura (spec.md §4.4 "Global" mode).
type NPAPoolRef struct {
	AuraID  uint64
	PoolPtr uintptr
}

// InlineNIXRef is the shared inline-NIX device handle multiple ports
// attach to for inbound/outbound inline IPSec provisioning.
type InlineNIXRef struct {
	DevID uint64
}

// MCSEntry records one attached multi-channel-security (MCS) device.
type MCSEntry struct {
	ID uint64
}

// Registry is the singleton itself. Exactly one instance is expected per
// process (Global below); it is exported as a type so tests can construct
// independent instances instead of sharing process-wide state.
type Registry struct {
	npaMu      sync.Mutex
	npaRefcnt  int32
	npaRef     *NPAPoolRef

	nixMu      sync.Mutex
	nixRefcnt  int32
	nixRef     *InlineNIXRef

	mcsMu   sync.Mutex
	mcsList []MCSEntry

	// attachSem bounds how many concurrent attach operations may be
	// in flight against the admin function at once (spec.md §11 domain
	// stack: golang.org/x/sync/semaphore for bounded-concurrency attach).
	attachSem *semaphore.Weighted
}

const defaultMaxConcurrentAttach = 4

// New constructs an empty registry.
func New() *Registry {
	return &Registry{attachSem: semaphore.NewWeighted(defaultMaxConcurrentAttach)}
}

// Global is the process-wide registry instance, mirroring the source's
// single global idev_cfg (spec.md §9 "Global mutable singletons").
var Global = New()

// AttachNPAPool increments the NPA-pool reference count, creating the pool
// via create on the first attach. create runs under attachSem so at most
// defaultMaxConcurrentAttach pool-creation mailbox round trips are ever
// outstanding at once.
func (r *Registry) AttachNPAPool(ctx context.Context, create func(ctx context.Context) (NPAPoolRef, error)) (NPAPoolRef, error) {
	r.npaMu.Lock()
	defer r.npaMu.Unlock()

	if r.npaRefcnt == 0 {
		if err := r.attachSem.Acquire(ctx, 1); err != nil {
			return NPAPoolRef{}, rocerr.ErrTimedOut.Wrap(err)
		}
		ref, err := create(ctx)
		r.attachSem.Release(1)
		if err != nil {
			return NPAPoolRef{}, err
		}
		r.npaRef = &ref
	}
	atomic.AddInt32(&r.npaRefcnt, 1)
	return *r.npaRef, nil
}

// DetachNPAPool decrements the reference count, destroying the pool via
// destroy when it reaches zero. Returns rocerr.ErrParam if called with no
// outstanding attach (a reference count must never go negative, spec.md
// §8 invariant 4).
func (r *Registry) DetachNPAPool(ctx context.Context, destroy func(ctx context.Context, ref NPAPoolRef) error) error {
	r.npaMu.Lock()
	defer r.npaMu.Unlock()

	if r.npaRefcnt == 0 {
		return rocerr.ErrParam
	}
	n := atomic.AddInt32(&r.npaRefcnt, -1)
	if n == 0 {
		ref := *r.npaRef
		r.npaRef = nil
		return destroy(ctx, ref)
	}
	return nil
}

// NPARefCount reports the current reference count, used by tests asserting
// invariant 4 (monotonicity, reaches zero exactly once per init/fini pair).
func (r *Registry) NPARefCount() int32 { return atomic.LoadInt32(&r.npaRefcnt) }

// AttachInlineNIX / DetachInlineNIX mirror the NPA pair above for the
// shared inline-NIX device (spec.md §4.4 outbound CPT provisioning is
// shared across ports attaching the same inline device).
func (r *Registry) AttachInlineNIX(ctx context.Context, create func(ctx context.Context) (InlineNIXRef, error)) (InlineNIXRef, error) {
	r.nixMu.Lock()
	defer r.nixMu.Unlock()

	if r.nixRefcnt == 0 {
		ref, err := create(ctx)
		if err != nil {
			return InlineNIXRef{}, err
		}
		r.nixRef = &ref
	}
	atomic.AddInt32(&r.nixRefcnt, 1)
	return *r.nixRef, nil
}

func (r *Registry) DetachInlineNIX(ctx context.Context, destroy func(ctx context.Context, ref InlineNIXRef) error) error {
	r.nixMu.Lock()
	defer r.nixMu.Unlock()

	if r.nixRefcnt == 0 {
		return rocerr.ErrParam
	}
	n := atomic.AddInt32(&r.nixRefcnt, -1)
	if n == 0 {
		ref := *r.nixRef
		r.nixRef = nil
		return destroy(ctx, ref)
	}
	return nil
}

func (r *Registry) InlineNIXRefCount() int32 { return atomic.LoadInt32(&r.nixRefcnt) }

// AddMCS / RemoveMCS maintain the list of attached MCS devices under their
// own lock, independent from the NPA/inline-NIX locks (spec.md §5: two
// spin-locks, nix_inl_dev_lock and npa_dev_lock — the MCS list here shares
// the inline-NIX lock's granularity conceptually but is tracked separately
// since the source keeps it as a plain list with no refcount).
func (r *Registry) AddMCS(e MCSEntry) {
	r.mcsMu.Lock()
	r.mcsList = append(r.mcsList, e)
	r.mcsMu.Unlock()
}

func (r *Registry) RemoveMCS(id uint64) bool {
	r.mcsMu.Lock()
	defer r.mcsMu.Unlock()
	for i, e := range r.mcsList {
		if e.ID == id {
			r.mcsList = append(r.mcsList[:i], r.mcsList[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Registry) MCSList() []MCSEntry {
	r.mcsMu.Lock()
	defer r.mcsMu.Unlock()
	out := make([]MCSEntry, len(r.mcsList))
	copy(out, r.mcsList)
	return out
}
