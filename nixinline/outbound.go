package nixinline

import (
	"sync"

	"github.com/nxcore/roc/rocerr"
)

// OutboundDevice is the shared inline device that provisions outbound CPT
// for every port attached to it (spec.md §4.4 "Outbound CPT
// provisioning"). Soft-expiry rings are lazily allocated on first enable
// per spec.md §9's Open Question decision (see DESIGN.md).
type OutboundDevice struct {
	mu sync.Mutex

	softExpPoll   bool
	softExpRings  [][]uint64 // one ring per SA-error ring slot, per port
	outbSERingCnt int
}

// NewOutboundDevice returns a device with soft-expiry polling disabled and
// its ring array unallocated, matching the source's behavior: "when
// set_soft_exp_poll is false, the array is not initialized but
// outb_se_ring_cnt is also zeroed."
func NewOutboundDevice() *OutboundDevice {
	return &OutboundDevice{}
}

// EnableSoftExpiryPoll lazily allocates the per-port soft-expiry ring
// array the first time polling is turned on, since the source leaves
// allocation to the caller when a later enable follows an initial
// disabled outbound-init.
func (d *OutboundDevice) EnableSoftExpiryPoll(nbPorts, ringSize int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.softExpPoll = true
	if d.softExpRings == nil {
		d.softExpRings = make([][]uint64, nbPorts)
		for i := range d.softExpRings {
			d.softExpRings[i] = make([]uint64, 0, ringSize)
		}
		d.outbSERingCnt = nbPorts
	}
}

func (d *OutboundDevice) DisableSoftExpiryPoll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.softExpPoll = false
}

func (d *OutboundDevice) SoftExpiryPollEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.softExpPoll
}

func (d *OutboundDevice) SoftExpiryRingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outbSERingCnt
}

// OutboundProvisionConfig is the input to outbound CPT-LF provisioning.
type OutboundProvisionConfig struct {
	NbLF            int
	RxInjectRequested bool
	InlineDeviceCarriesRxInject bool
	EngineMask      uint8
	NixPFFunc       uint16
	SSOPFFunc       uint16
	MaxSA           uint64
	SAElemSize      uint64
}

// ProvisionOutbound attaches nb_lf (+1 when RX-injection is requested and
// no inline device already carries it) CPT-LFs, retrieves MSIX offsets,
// inits each LF's instruction queue, binds to (nix_pf_func, sso_pf_func),
// allocates the SA table, and inits every slot (spec.md §4.4).
func ProvisionOutbound(
	cfg OutboundProvisionConfig,
	allocLF func(n int, engineMask uint8, nixPF, ssoPF uint16) ([]uint16, error),
	msixOffset func(lf uint16) (uint16, error),
	initIQ func(lf uint16) error,
	allocSATable func(elemSize uint64, maxSA uint64) (uint64, error),
	initSASlot func(addr uint64) error,
) ([]uint16, *SATable, error) {
	n := cfg.NbLF
	if cfg.RxInjectRequested && !cfg.InlineDeviceCarriesRxInject {
		n++
	}
	if n <= 0 {
		return nil, nil, rocerr.ErrParam
	}

	lfs, err := allocLF(n, cfg.EngineMask, cfg.NixPFFunc, cfg.SSOPFFunc)
	if err != nil {
		return nil, nil, err
	}
	for _, lf := range lfs {
		if _, err := msixOffset(lf); err != nil {
			return nil, nil, err
		}
		if err := initIQ(lf); err != nil {
			return nil, nil, err
		}
	}

	base, err := allocSATable(cfg.SAElemSize, cfg.MaxSA)
	if err != nil {
		return nil, nil, err
	}
	sa, err := NewSATable(base, cfg.SAElemSize, 0, uint32(cfg.MaxSA-1))
	if err != nil {
		return nil, nil, err
	}
	if err := sa.InitAll(initSASlot); err != nil {
		return nil, nil, err
	}
	return lfs, sa, nil
}
