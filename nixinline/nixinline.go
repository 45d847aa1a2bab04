// Package nixinline implements inline-IPSec (spec.md §4.4), the hardest
// subsystem in the control plane: meta-aura creation (global or per-port),
// the inbound SA table with its spi_to_sa addressing, reassembly profile
// allocation, inbound RQ masking, outbound CPT provisioning, SA sync, and
// the reassembly scrub sweep. Grounded on the teacher's auth.go hashing
// idiom (iterative, bounds-checked transforms) and cache.go's create/
// destroy lifecycle (cache.go is not itself wired — see DESIGN.md — but
// its acquire/release shape is).
package nixinline

import (
	"errors"
	"math/bits"
	"sync"

	"github.com/nxcore/roc/rocerr"
)

// MetaAuraMode selects global vs. per-port meta-aura provisioning
// (spec.md §4.4).
type MetaAuraMode int

const (
	MetaAuraGlobal MetaAuraMode = iota
	MetaAuraPerPort
)

const metaSize = 128 // META_SIZE, bytes appended to first_skip for per-port sizing

// MetaAuraConfig is the input to meta-aura creation.
type MetaAuraConfig struct {
	Mode MetaAuraMode

	// Global mode.
	BufTypeLimit func(bufType string) uint64 // buf_type_limit(PACKET_IPSEC)
	NbMetaBufs   uint64                       // devargs override, 0 = use BufTypeLimit
	MetaBufSz    uint64                       // devargs override, 0 = derive

	// Per-port mode.
	Port            int
	RQAuraLimit     uint64
	SPBAuraLimit    uint64
	FirstSkip       uint64
	CustomMetaAuraEna bool
}

// MetaAura is the created (or reference-counted, for global mode) aura.
type MetaAura struct {
	Name       string
	AuraID     uint64
	ActualBufs uint64
	BufSz      uint64
	refs       int32
}

var (
	ErrMetaBufsTooFew = errors.New("nixinline: actual meta buffer count below expected minimum")
	ErrMetaBufTooSmall = errors.New("nixinline: meta buffer size below RQ first_skip + META_SIZE")
)

// globalMeta is the process-wide singleton aura used by global mode,
// reference-counted exactly like spec.md §3 invariant 4 requires.
var (
	globalMu   sync.Mutex
	globalMeta *MetaAura
)

// CreateMetaAura builds (or attaches, in global mode) the meta-aura
// described by cfg, validating actual_bufs/buf size against spec.md §4.4's
// rules before returning.
func CreateMetaAura(cfg MetaAuraConfig, alloc func(name string, nbBufs, bufSz uint64) (uint64, error)) (*MetaAura, error) {
	switch cfg.Mode {
	case MetaAuraGlobal:
		globalMu.Lock()
		defer globalMu.Unlock()
		if globalMeta != nil {
			globalMeta.refs++
			return globalMeta, nil
		}
		expected := cfg.BufTypeLimit("PACKET_IPSEC")
		nbBufs := cfg.NbMetaBufs
		if nbBufs == 0 {
			nbBufs = expected
		}
		if nbBufs < expected {
			return nil, rocerr.ErrParam.Wrap(ErrMetaBufsTooFew)
		}
		bufSz := cfg.MetaBufSz
		if bufSz == 0 {
			bufSz = metaSize
		}
		id, err := alloc("NIX_INL_META_POOL_GLOBAL", nbBufs, bufSz)
		if err != nil {
			return nil, err
		}
		globalMeta = &MetaAura{Name: "NIX_INL_META_POOL_GLOBAL", AuraID: id, ActualBufs: nbBufs, BufSz: bufSz, refs: 1}
		return globalMeta, nil

	case MetaAuraPerPort:
		limit := cfg.RQAuraLimit + cfg.SPBAuraLimit
		bufSz := cfg.MetaBufSz
		if bufSz == 0 {
			bufSz = cfg.FirstSkip + metaSize
		}
		if bufSz < cfg.FirstSkip+metaSize {
			return nil, rocerr.ErrParam.Wrap(ErrMetaBufTooSmall)
		}
		name := portPoolName(cfg.Port)
		id, err := alloc(name, limit, bufSz)
		if err != nil {
			return nil, err
		}
		return &MetaAura{Name: name, AuraID: id, ActualBufs: limit, BufSz: bufSz, refs: 1}, nil
	}
	return nil, rocerr.ErrParam
}

func portPoolName(port int) string {
	return "NIX_INL_META_POOL_" + itoa(port+1)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// ReleaseMetaAura decrements the global meta-aura's reference count,
// destroying it via destroy when it reaches zero. Per-port auras are not
// reference-counted (one owner), so callers destroy them directly.
func ReleaseMetaAura(m *MetaAura, destroy func(id uint64) error) error {
	if m == nil {
		return rocerr.ErrParam
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	if m != globalMeta {
		// per-port aura: direct destroy, no refcount semantics.
		return destroy(m.AuraID)
	}
	m.refs--
	if m.refs < 0 {
		return rocerr.ErrParam
	}
	if m.refs == 0 {
		globalMeta = nil
		return destroy(m.AuraID)
	}
	return nil
}

// SAIndexWidth / SAPow2Size return the log2 widths the inline-IPSec-LF-cfg
// mailbox message carries (spec.md §4.4).
func SAIndexWidth(maxSA uint64) uint8  { return uint8(bits.Len64(maxSA - 1)) }
func SAPow2Size(saSize uint64) uint8   { return uint8(bits.Len64(saSize - 1)) }
