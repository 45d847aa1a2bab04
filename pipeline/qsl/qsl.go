// Package qsl implements the QSL (queue selection logic) pipeline
// module: per-category RCP recipes, the QST queue-set table, the QEN
// per-queue enable table, and the UNMQ unmanaged-destination table
// (hw_mod_qsl.c's qsl_v7_rcp_s/qst_s/qen_s/unmq_s).
package qsl

import "github.com/nxcore/roc/pipeline/record"

const (
	qenEntries  = 32
	unmqEntries = 256
)

func rcpFields() record.FieldSet {
	return record.FieldSet{
		"discard": {Name: "discard", WordOff: 0, BitOff: 0, Width: 1},
		"drop":    {Name: "drop", WordOff: 0, BitOff: 1, Width: 1},
		"tbl_lo":  {Name: "tbl_lo", WordOff: 0, BitOff: 2, Width: 10},
		"tbl_hi":  {Name: "tbl_hi", WordOff: 0, BitOff: 12, Width: 10},
		"tbl_idx": {Name: "tbl_idx", WordOff: 0, BitOff: 22, Width: 10},
		"tbl_msk": {Name: "tbl_msk", WordOff: 1, BitOff: 0, Width: 10},
		"lr":      {Name: "lr", WordOff: 1, BitOff: 10, Width: 1}, // learn+reply
		"tsa":     {Name: "tsa", WordOff: 1, BitOff: 11, Width: 1},
		"vli":     {Name: "vli", WordOff: 1, BitOff: 12, Width: 2},
	}
}

func qstFields() record.FieldSet {
	return record.FieldSet{
		"queue":      {Name: "queue", WordOff: 0, BitOff: 0, Width: 8},
		"retransmit": {Name: "retransmit", WordOff: 0, BitOff: 8, Width: 1},
	}
}

func qenFields() record.FieldSet {
	return record.FieldSet{
		"enable": {Name: "enable", WordOff: 0, BitOff: 0, Width: 1},
	}
}

func unmqFields() record.FieldSet {
	return record.FieldSet{
		"dest_queue": {Name: "dest_queue", WordOff: 0, BitOff: 0, Width: 8},
		"enable":     {Name: "enable", WordOff: 0, BitOff: 8, Width: 1},
	}
}

// Module is the QSL pipeline module.
type Module struct {
	RCP  *record.Table
	QST  *record.Table
	QEN  *record.Table
	UNMQ *record.Table
}

func NewModule(nbCategories, nbQSTEntries int, version uint32) *Module {
	return &Module{
		RCP:  record.NewTable(nbCategories, 2, int(version), rcpFields()),
		QST:  record.NewTable(nbQSTEntries, 1, int(version), qstFields()),
		QEN:  record.NewTable(qenEntries, 1, int(version), qenFields()),
		UNMQ: record.NewTable(unmqEntries, 1, int(version), unmqFields()),
	}
}

// Resolve returns the destination queue for a flow routed through
// category rcpIdx, honoring discard/drop before consulting the queue-set
// table at tblIdx.
func (m *Module) Resolve(rcpIdx, tblIdx int) (queue uint16, discard bool, err error) {
	if d, e := m.RCP.Get("discard", rcpIdx); e != nil {
		return 0, false, e
	} else if d != 0 {
		return 0, true, nil
	}
	if d, e := m.RCP.Get("drop", rcpIdx); e != nil {
		return 0, false, e
	} else if d != 0 {
		return 0, true, nil
	}
	q, err := m.QST.Get("queue", tblIdx)
	if err != nil {
		return 0, false, err
	}
	return uint16(q), false, nil
}
