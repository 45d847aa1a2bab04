// Package slc implements the SLC (slice) pipeline module: per-category
// head/tail trim recipes, with an optional PCAP-format flag
// (hw_mod_slc.c's slc_v1_rcp_s / slc_lr_v2_rcp_s).
package slc

import "github.com/nxcore/roc/pipeline/record"

func rcpFields() record.FieldSet {
	return record.FieldSet{
		"head_slice_en": {Name: "head_slice_en", WordOff: 0, BitOff: 0, Width: 1},
		"head_dyn":      {Name: "head_dyn", WordOff: 0, BitOff: 1, Width: 5},
		"head_ofs":      {Name: "head_ofs", WordOff: 0, BitOff: 6, Width: 8},
		"tail_slice_en": {Name: "tail_slice_en", WordOff: 0, BitOff: 14, Width: 1},
		"tail_dyn":      {Name: "tail_dyn", WordOff: 0, BitOff: 15, Width: 5},
		"tail_ofs":      {Name: "tail_ofs", WordOff: 0, BitOff: 20, Width: 8},
		"pcap":          {Name: "pcap", WordOff: 0, BitOff: 28, Width: 1},
	}
}

// Module is the SLC pipeline module.
type Module struct {
	RCP *record.Table
}

func NewModule(nbCategories int, version uint32) *Module {
	return &Module{RCP: record.NewTable(nbCategories, 1, int(version), rcpFields())}
}

// Trim computes the [start, end) byte range to keep from a packet of the
// given length under category idx's head/tail slice recipe.
func (m *Module) Trim(idx int, packetLen int) (start, end int, err error) {
	headEn, err := m.RCP.Get("head_slice_en", idx)
	if err != nil {
		return 0, 0, err
	}
	tailEn, err := m.RCP.Get("tail_slice_en", idx)
	if err != nil {
		return 0, 0, err
	}
	start, end = 0, packetLen
	if headEn != 0 {
		ofs, err := m.RCP.Get("head_ofs", idx)
		if err != nil {
			return 0, 0, err
		}
		start = int(ofs)
	}
	if tailEn != 0 {
		ofs, err := m.RCP.Get("tail_ofs", idx)
		if err != nil {
			return 0, 0, err
		}
		end = packetLen - int(ofs)
	}
	if start > end {
		start = end
	}
	if start < 0 {
		start = 0
	}
	if end > packetLen {
		end = packetLen
	}
	return start, end, nil
}
