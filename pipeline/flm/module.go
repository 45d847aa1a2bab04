package flm

import (
	"github.com/nxcore/roc/pipeline/record"
	"github.com/nxcore/roc/rocerr"
)

// rcpFields describes the FLM RCP (recipe) table: per-category lookup
// enable plus the key/action shape selectors (hw_mod_flm.c's
// flm_v25_rcp_s).
func rcpFields() record.FieldSet {
	return record.FieldSet{
		"lookup":    {Name: "lookup", WordOff: 0, BitOff: 0, Width: 1},
		"qw0_dyn":   {Name: "qw0_dyn", WordOff: 0, BitOff: 1, Width: 5},
		"qw0_ofs":   {Name: "qw0_ofs", WordOff: 0, BitOff: 6, Width: 8},
		"qw4_dyn":   {Name: "qw4_dyn", WordOff: 0, BitOff: 14, Width: 5},
		"qw4_ofs":   {Name: "qw4_ofs", WordOff: 0, BitOff: 19, Width: 8},
		"sw8_dyn":   {Name: "sw8_dyn", WordOff: 0, BitOff: 27, Width: 5},
		"sw9_dyn":   {Name: "sw9_dyn", WordOff: 1, BitOff: 0, Width: 5},
		"kid":       {Name: "kid", WordOff: 1, BitOff: 5, Width: 8},
		"auto_ipv4": {Name: "auto_ipv4", WordOff: 1, BitOff: 13, Width: 1},
	}
}

// bufCtrlFields describes the host-visible buffer-control counters for
// the learn/inf/sta rings ("lrn_free", "inf_avail", "sta_avail").
func bufCtrlFields() record.FieldSet {
	return record.FieldSet{
		"lrn_free":  {Name: "lrn_free", WordOff: 0, BitOff: 0, Width: 32},
		"inf_avail": {Name: "inf_avail", WordOff: 1, BitOff: 0, Width: 32},
		"sta_avail": {Name: "sta_avail", WordOff: 2, BitOff: 0, Width: 32},
	}
}

// controlFields describes the FLM CONTROL register: global enable, init,
// and the learn/unlearn-all one-shot commands.
func controlFields() record.FieldSet {
	return record.FieldSet{
		"enable": {Name: "enable", WordOff: 0, BitOff: 0, Width: 1},
		"init":   {Name: "init", WordOff: 0, BitOff: 1, Width: 1},
		"lds":    {Name: "lds", WordOff: 0, BitOff: 2, Width: 1}, // learn-done-strobe
		"lfs":    {Name: "lfs", WordOff: 0, BitOff: 3, Width: 1}, // learn-fail-strobe
		"lis":    {Name: "lis", WordOff: 0, BitOff: 4, Width: 1}, // learn-ignore-strobe
	}
}

// statusFields mirrors hardware-reported occupancy and the calibration
// ("CRC") state the scan engine exposes for diagnostics.
func statusFields() record.FieldSet {
	return record.FieldSet{
		"calibdone": {Name: "calibdone", WordOff: 0, BitOff: 0, Width: 1},
		"initdone":  {Name: "initdone", WordOff: 0, BitOff: 1, Width: 1},
		"critical":  {Name: "critical", WordOff: 0, BitOff: 2, Width: 1},
		"panic":     {Name: "panic", WordOff: 0, BitOff: 3, Width: 1},
	}
}

// Module bundles the FLM record tables, its scrub profiles, priority
// bins, and learn/inf/sta data rings into the single unit the control
// plane configures and drains.
type Module struct {
	RCP      *record.Table
	BufCtrl  *record.Table
	Control  *record.Table
	Status   *record.Table
	Profiles []ScrubProfile
	Bins     *PriorityBins
	Learn    *Ring
	Info     *Ring
	Stat     *Ring
}

// learnRecordSize is the fixed size of one learn-queue record (spec.md
// §9: "key QW0/QW4/SW8/SW9, proto, kid, NAT, TEID, action QFI/DSCP,
// scrub-profile, priority, EOR bit" packed into 24 bytes).
const learnRecordSize = 24

// infRecordSize holds bytes/packets/timestamp/id/cause/EOR.
const infRecordSize = 24

// staRecordSize holds id plus per-slot done/fail/ignore bits.
const staRecordSize = 8

// NewModule constructs an FLM module sized for nbCategories RCP entries
// and nbScrubProfiles ageing profiles, with learn/inf/sta rings of
// ringCapacity records each.
func NewModule(nbCategories, nbScrubProfiles, ringCapacity int, version uint32) *Module {
	return &Module{
		RCP:      record.NewTable(nbCategories, 2, int(version), rcpFields()),
		BufCtrl:  record.NewTable(1, 3, int(version), bufCtrlFields()),
		Control:  record.NewTable(1, 1, int(version), controlFields()),
		Status:   record.NewTable(1, 1, int(version), statusFields()),
		Profiles: make([]ScrubProfile, nbScrubProfiles),
		Bins:     NewPriorityBins(),
		Learn:    NewRing(ringCapacity, learnRecordSize),
		Info:     NewRing(ringCapacity, infRecordSize),
		Stat:     NewRing(ringCapacity, staRecordSize),
	}
}

// SetScrubProfile installs profile id (spec.md §4.7).
func (m *Module) SetScrubProfile(id int, p ScrubProfile) error {
	if id < 0 || id >= len(m.Profiles) {
		return rocerr.ErrIndexTooLarge
	}
	m.Profiles[id] = p
	return nil
}

// RefreshBufCtrl recomputes the host-visible ring availability counters
// from the ring's own bookkeeping.
func (m *Module) RefreshBufCtrl() error {
	if err := m.BufCtrl.Set("lrn_free", 0, uint64(m.Learn.Capacity()-m.Learn.Avail())); err != nil {
		return err
	}
	if err := m.BufCtrl.Set("inf_avail", 0, uint64(m.Info.Avail())); err != nil {
		return err
	}
	return m.BufCtrl.Set("sta_avail", 0, uint64(m.Stat.Avail()))
}
