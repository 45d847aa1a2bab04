package nixinline

import (
	"math/bits"

	"github.com/nxcore/roc/rocerr"
)

// SATable is the inline-inbound SA table of spec.md §4.4/§8 invariant 3:
// sized to next_pow2(max_spi-min_spi+1), addressed by
// spi_to_sa(spi) = base + (spi & mask) * sa_size.
type SATable struct {
	Base     uint64
	ElemSize uint64
	MinSPI   uint32
	MaxSPI   uint32
	mask     uint64
}

// NewSATable validates [minSPI, maxSPI] and computes the addressing mask.
func NewSATable(base, elemSize uint64, minSPI, maxSPI uint32) (*SATable, error) {
	if maxSPI < minSPI {
		return nil, rocerr.ErrParam
	}
	n := uint64(maxSPI) - uint64(minSPI) + 1
	pow2 := nextPow2(n)
	return &SATable{Base: base, ElemSize: elemSize, MinSPI: minSPI, MaxSPI: maxSPI, mask: pow2 - 1}, nil
}

func nextPow2(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len64(n-1)
}

// NumSlots returns the number of SA slots backing the table (the power of
// two the mask implies).
func (t *SATable) NumSlots() uint64 { return t.mask + 1 }

// SPIToSA computes the SA slot address for spi per spec.md §3 invariant 3,
// ignoring custom_sa_action (the devargs override that replaces this
// mapping entirely is handled by the caller, not this function).
func (t *SATable) SPIToSA(spi uint32) uint64 {
	return t.Base + (uint64(spi)&t.mask)*t.ElemSize
}

// InitSlot initializes SA slot i via init, which differs by silicon
// (cn9k: no-op; cn10k/ow: inb_sa_init). Returns rocerr.ErrParam if i is
// not a slot of the table, otherwise init's result.
func (t *SATable) InitSlot(i uint64, init func(addr uint64) error) error {
	if i >= t.NumSlots() {
		return rocerr.ErrParam
	}
	return init(t.Base + i*t.ElemSize)
}

// InitAll initializes every slot of the table in order.
func (t *SATable) InitAll(init func(addr uint64) error) error {
	n := t.NumSlots()
	for i := uint64(0); i < n; i++ {
		if err := init(t.Base + i*t.ElemSize); err != nil {
			return err
		}
	}
	return nil
}

// LFCfg is the body of the inline-IPSec-LF-cfg mailbox message (spec.md
// §4.4). The newer rx_inl_lf_cfg message adds ProfileID/DefaultCPTQueue/
// packed Cfg0/Cfg1, kept as optional fields so both message shapes are
// representable without a second type.
type LFCfg struct {
	Base      uint64
	SAIdxW    uint8
	SAPow2Sz  uint8
	Lenm1Max  uint32
	TagType   uint8 // ORDERED
	BPID      *uint16
	CtxIlen   *uint8

	// rx_inl_lf_cfg (newer silicon) extensions.
	ProfileID       uint8
	DefaultCPTQueue uint16
	Cfg0            uint64
	Cfg1            uint64
}

// BuildLFCfg assembles the common fields shared by both message shapes.
func BuildLFCfg(t *SATable, mtu uint32, tagTypeOrdered uint8) LFCfg {
	return LFCfg{
		Base:     t.Base,
		SAIdxW:   SAIndexWidth(t.NumSlots()),
		SAPow2Sz: SAPow2Size(t.ElemSize),
		Lenm1Max: mtu - 1,
		TagType:  tagTypeOrdered,
	}
}

// ReassemblyProfile is the single-entry SA table allocated only when
// reass_ena is set (spec.md §4.4).
type ReassemblyProfile struct {
	SA        *SATable
	ProfileID uint8
}

// NewReassemblyProfile allocates the one-entry reassembly SA table and
// initializes it with the reassembly-specific initializer.
func NewReassemblyProfile(base, elemSize uint64, profileID uint8, init func(addr uint64) error) (*ReassemblyProfile, error) {
	t, err := NewSATable(base, elemSize, 0, 0) // single entry: min==max==0
	if err != nil {
		return nil, err
	}
	if err := t.InitAll(init); err != nil {
		return nil, err
	}
	return &ReassemblyProfile{SA: t, ProfileID: profileID}, nil
}

// RQMask describes which RQ-context fields the inline engine may overwrite
// on enable (spec.md §4.4 "Inbound RQ masking").
type RQMask struct {
	LenChecksDisabled bool
	DropBitsCleared   bool
	SPBEnable         bool
	ForcedFirstSkip   uint8
}

// ApplyRQMask issues the inbound-RQ-masking mailbox message for enabling
// (or, when enable is false, disabling) inline processing on an RQ. On
// silicon lacking the second-pass-drop feature, ena/rq_int_ena are also
// toggled via the extra callback.
func ApplyRQMask(enable bool, mask RQMask, issue func(enable bool, mask RQMask) error, secondPassDropAbsent bool, toggleEna func(enable bool) error) error {
	if err := issue(enable, mask); err != nil {
		return err
	}
	if secondPassDropAbsent {
		return toggleEna(enable)
	}
	return nil
}
