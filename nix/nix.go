// Package nix implements the packet-I/O queue objects (spec.md §4.3):
// RQ/CQ/SQ configuration emitted as versioned AQ-enqueue requests, SQB
// pool population, LSO format registration, and flow-control/PFC.
// Constant-naming texture (magic-tagged command words, buffered-ack-style
// sizing) is grounded on the teacher's entryWriter.go.
package nix

import (
	"errors"
	"math/bits"

	"github.com/nxcore/roc/rocerr"
)

// AQOp names an AQ-enqueue instruction queue operation.
type AQOp uint32

const (
	AQOpInit AQOp = 0xA0010000 + iota
	AQOpWrite
	AQOpRead
	AQOpLock
	AQOpUnlock
)

// WireVersion selects between the legacy and current AQ request shapes
// (spec.md §4.3: "Two wire formats exist... the core selects based on
// model").
type WireVersion int

const (
	WireLegacy WireVersion = iota
	WireCurrent
)

// RQConfig mirrors the RQ field excerpt of spec.md §4.3.
type RQConfig struct {
	ID              uint16
	SSOEnable       bool
	TagType         uint8
	Group           uint16
	FirstSkip       uint8 // 8-byte words
	LaterSkip       uint8
	LPBAura         uint64
	LPBSize         uint32
	SPBAura         uint64
	SPBSize         uint32
	IPSecHashEnable bool
	VWQEEnable      bool
	DropEnable      bool
	XqeDropEnable   bool
	DropPercent     uint8 // first-pass drop percentage, devargs lpb_drop_pc/spb_drop_pc
}

// BuildRQRequest assembles the AQ-enqueue body for an RQ create, selecting
// field layout by wire version. The returned map stands in for the
// versioned wire struct: callers that need the literal byte layout build
// it from these fields via the appropriate version-specific encoder (not
// modeled here, since the physical AQ ring is out of scope per spec.md
// §1).
func BuildRQRequest(wv WireVersion, cfg RQConfig) map[string]interface{} {
	req := map[string]interface{}{
		"op":        AQOpInit,
		"rq_id":     cfg.ID,
		"ena":       true,
		"sso_ena":   cfg.SSOEnable,
		"tag_type":  cfg.TagType,
		"grp":       cfg.Group,
		"first_skip": cfg.FirstSkip,
		"later_skip": cfg.LaterSkip,
		"lpb_aura":   cfg.LPBAura,
		"spb_aura":   cfg.SPBAura,
		"drop_ena":   cfg.DropEnable,
		"xqe_drop_ena": cfg.XqeDropEnable,
	}
	if wv == WireCurrent {
		req["ipsec_hash_ena"] = cfg.IPSecHashEnable
		req["vwqe_ena"] = cfg.VWQEEnable
	}
	if cfg.DropPercent > 0 {
		req["lpb_drop_pc"] = cfg.DropPercent
		req["spb_drop_pc"] = cfg.DropPercent
	}
	return req
}

// CQConfig mirrors spec.md §4.3's CQ fields.
type CQConfig struct {
	ID          uint16
	NbDesc      uint32 // rounded up to a permitted power of two
	DropPercent uint8  // defaults to 5
	SharedBPID  uint16
	BPEnabled   bool
}

const descSize = 128 // bytes per CQ descriptor, spec.md §4.3

// RoundNbDesc rounds n up to the next power of two, the permitted CQ ring
// depth encoding.
func RoundNbDesc(n uint32) uint32 {
	if n == 0 {
		return 1
	}
	if n&(n-1) == 0 {
		return n
	}
	return 1 << bits.Len32(n)
}

// DefaultDropThreshold returns 5% of ring depth, spec.md §4.3's documented
// CQ default.
func DefaultDropThreshold(nbDesc uint32) uint32 {
	return nbDesc * 5 / 100
}

// NewCQConfig builds a CQConfig with the ring depth rounded and the drop
// threshold defaulted per spec.md §4.3, optionally enabling shared-BPID
// backpressure when txPauseActive.
func NewCQConfig(id uint16, nbDesc uint32, txPauseActive bool, sharedBPID uint16) CQConfig {
	nbDesc = RoundNbDesc(nbDesc)
	cfg := CQConfig{ID: id, NbDesc: nbDesc, DropPercent: 5}
	if txPauseActive {
		cfg.BPEnabled = true
		cfg.SharedBPID = sharedBPID
	}
	return cfg
}

// RingBytes returns the total descriptor-ring size in bytes.
func (c CQConfig) RingBytes() uint64 { return uint64(c.NbDesc) * descSize }

var (
	ErrSQBListCorrupt = errors.New("nix: SQB linked-list walk found an unexpected entry")
)

// SQConfig mirrors spec.md §4.3's SQ fields.
type SQConfig struct {
	ID        uint16
	SQBAura   uint64
	NbSQBDesc uint32
	SMQ       uint16
	RRQuantum uint32
}

// SQ is a created send queue; Disable implements the four-step disable
// sequence of spec.md §4.3.
type SQ struct {
	Config  SQConfig
	enabled bool
	sqbs    []uint64 // linked-list of SQB pointers, software-tracked
}

func NewSQ(cfg SQConfig, sqbs []uint64) *SQ {
	return &SQ{Config: cfg, enabled: true, sqbs: sqbs}
}

// Disable performs: (1) read AQ state, (2) clear ena, (3) walk the SQB
// linked list freeing every used buffer, (4) free the next-to-use SQB.
func (sq *SQ) Disable(readState func() (used int, err error), clearEna func() error, freeSQB func(ptr uint64) error) error {
	used, err := readState()
	if err != nil {
		return err
	}
	if err := clearEna(); err != nil {
		return err
	}
	sq.enabled = false

	if used > len(sq.sqbs) {
		return rocerr.ErrIO.Wrap(ErrSQBListCorrupt)
	}
	for i := 0; i < used; i++ {
		if err := freeSQB(sq.sqbs[i]); err != nil {
			return err
		}
	}
	if len(sq.sqbs) > used {
		if err := freeSQB(sq.sqbs[used]); err != nil { // the next-to-use SQB
			return err
		}
	}
	sq.sqbs = nil
	return nil
}

// PopulateSQBPool free-lists the contiguous SQE memory into the aura by
// invoking free for each buffer address in [base, base+n*stride).
// Spec.md §4.3: "SQB pool populated in software by free-listing the
// contiguous SQE memory into the aura."
func PopulateSQBPool(base uint64, n int, stride uint64, free func(addr uint64) error) error {
	for i := 0; i < n; i++ {
		if err := free(base + uint64(i)*stride); err != nil {
			return err
		}
	}
	return nil
}

// LSOFormat is one registered large-send-offload header-rewrite template.
type LSOFormat struct {
	Index uint8
	Spec  []byte
}

// LSORegistry tracks format indices returned by the admin function.
type LSORegistry struct {
	formats map[uint8]LSOFormat
}

func NewLSORegistry() *LSORegistry { return &LSORegistry{formats: make(map[uint8]LSOFormat)} }

func (r *LSORegistry) Register(idx uint8, spec []byte) {
	r.formats[idx] = LSOFormat{Index: idx, Spec: spec}
}

func (r *LSORegistry) Lookup(idx uint8) (LSOFormat, bool) {
	f, ok := r.formats[idx]
	return f, ok
}
