// Package cpt is the crypto-engine layer (spec.md §2 L2, §4.4 outbound
// provisioning): logical-function attach/alloc, engine-group selection,
// instruction-queue init, and the inline-IPSec SA sync primitives.
package cpt

import (
	"context"
	"sync"
	"time"

	"github.com/nxcore/roc/rocerr"
)

// EngineType enumerates the CPT engine classes a logical function can be
// bound to; engine-group selection differs by silicon revision (spec.md
// §4.4 "alloc with an engine group mask that differs by silicon
// revision").
type EngineType int

const (
	EngineSE EngineType = iota // symmetric/AEAD
	EngineIE                   // asymmetric
	EngineAE                   // auth-only
)

// EngineGroupMask selects which engine-group bits to request for a given
// silicon generation; cn9k and cn10k+ use different group layouts.
func EngineGroupMask(cn9k bool, types ...EngineType) uint8 {
	var mask uint8
	for _, t := range types {
		if cn9k {
			// cn9k: SE=bit0, IE=bit1, AE=bit2
			mask |= 1 << uint(t)
		} else {
			// cn10k+: SE=bit1, IE=bit2, AE=bit3 (group 0 reserved for FC)
			mask |= 1 << uint(t+1)
		}
	}
	return mask
}

// LF is one attached CPT logical function: its instruction queue and the
// SA table it provisions for inline IPSec (spec.md §4.4 outbound).
type LF struct {
	mu sync.Mutex

	ID          uint16
	EngineMask  uint8
	IQEnabled   bool
	CQEnabled   bool
	NixPFFunc   uint16
	SSOPFFunc   uint16

	sa *SATable
}

// Manager attaches/allocates CPT logical functions for one device.
type Manager struct {
	mu  sync.Mutex
	lfs map[uint16]*LF
	nxt uint16
}

func NewManager() *Manager {
	return &Manager{lfs: make(map[uint16]*LF)}
}

// AllocLF attaches nbLF logical functions with the given engine mask,
// returning the newly created LF records. Mirrors spec.md §4.4: "Attach
// nb_lf CPT-LFs (+1 when RX-injection is requested and no inline-device
// carries it)" — the +1 adjustment is the caller's responsibility via
// nbLF, kept explicit here rather than inferred.
func (m *Manager) AllocLF(nbLF int, engineMask uint8, nixPFFunc, ssoPFFunc uint16) ([]*LF, error) {
	if nbLF <= 0 {
		return nil, rocerr.ErrParam
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*LF, 0, nbLF)
	for i := 0; i < nbLF; i++ {
		id := m.nxt
		m.nxt++
		lf := &LF{ID: id, EngineMask: engineMask, NixPFFunc: nixPFFunc, SSOPFFunc: ssoPFFunc}
		m.lfs[id] = lf
		out = append(out, lf)
	}
	return out, nil
}

// InitInstructionQueue binds and enables lf's instruction queue (and
// optional completion queue), the last step of outbound provisioning
// before the LF is usable (spec.md §4.4).
func (lf *LF) InitInstructionQueue(enableCQ bool) error {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	lf.IQEnabled = true
	lf.CQEnabled = enableCQ
	return nil
}

// ProbeEngineCapability submits a single LOAD_FVC/HW_CRYPTO_SUPPORT
// instruction on lmtSubmit and calls poll until it reports done or
// ctx expires, recording the returned capability word (spec.md §4.4
// "Engine-capability probe"). On legacy silicon the caller posts via a
// load-then-submit pair; on newer silicon via a control-LMT steorl — both
// collapse to the same submit/poll shape from this package's perspective.
func ProbeEngineCapability(ctx context.Context, lmtSubmit func() error, poll func() (done bool, caps uint64, err error)) (uint64, error) {
	if err := lmtSubmit(); err != nil {
		return 0, rocerr.ErrIO.Wrap(err)
	}
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		done, caps, err := poll()
		if err != nil {
			return 0, err
		}
		if done {
			return caps, nil
		}
		select {
		case <-ctx.Done():
			return 0, rocerr.ErrTimedOut.Wrap(ctx.Err())
		case <-ticker.C:
		}
	}
}
