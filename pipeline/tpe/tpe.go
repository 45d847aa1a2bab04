// Package tpe implements the TPE (transform packet editor) pipeline
// module: the insert/replace/copy/header-fixup/checksum record tables
// that rewrite a packet on its way out (hw_mod_tpe.c's rpp_rcp_s,
// ins_rcp_s, rpl_rcp_s/rpl_ext_s/rpl_rpl_s, cpy_rcp_s, hfu_rcp_s,
// csu_rcp_s).
package tpe

import "github.com/nxcore/roc/pipeline/record"

const (
	rplExtEntries = 256
	rplRplEntries = 1024
	cpyRecords    = 4 // CPY_RCP supports up to 4 independent copy ops per category
)

func rppRCPFields() record.FieldSet {
	return record.FieldSet{
		"exp":       {Name: "exp", WordOff: 0, BitOff: 0, Width: 1}, // reduce-on-IFR expand
		"cpy_select": {Name: "cpy_select", WordOff: 0, BitOff: 1, Width: 4},
	}
}

func rppIFRRCPFields() record.FieldSet {
	return record.FieldSet{
		"en":        {Name: "en", WordOff: 0, BitOff: 0, Width: 1},
		"mtu":       {Name: "mtu", WordOff: 0, BitOff: 1, Width: 14},
	}
}

func ifrRCPFields() record.FieldSet {
	return record.FieldSet{
		"en":  {Name: "en", WordOff: 0, BitOff: 0, Width: 1},
		"mtu": {Name: "mtu", WordOff: 0, BitOff: 1, Width: 14},
	}
}

func insRCPFields() record.FieldSet {
	return record.FieldSet{
		"dyn":   {Name: "dyn", WordOff: 0, BitOff: 0, Width: 5},
		"ofs":   {Name: "ofs", WordOff: 0, BitOff: 5, Width: 8},
		"len":   {Name: "len", WordOff: 0, BitOff: 13, Width: 8},
	}
}

func rplRCPFields() record.FieldSet {
	return record.FieldSet{
		"dyn":     {Name: "dyn", WordOff: 0, BitOff: 0, Width: 5},
		"ofs":     {Name: "ofs", WordOff: 0, BitOff: 5, Width: 8},
		"len":     {Name: "len", WordOff: 0, BitOff: 13, Width: 8},
		"rpl_ptr": {Name: "rpl_ptr", WordOff: 0, BitOff: 21, Width: 10},
		"ext_ptr": {Name: "ext_ptr", WordOff: 1, BitOff: 0, Width: 8},
	}
}

func cpyRCPFields() record.FieldSet {
	return record.FieldSet{
		"reader_select": {Name: "reader_select", WordOff: 0, BitOff: 0, Width: 3},
		"dyn":           {Name: "dyn", WordOff: 0, BitOff: 3, Width: 5},
		"ofs":           {Name: "ofs", WordOff: 0, BitOff: 8, Width: 8},
		"len":           {Name: "len", WordOff: 0, BitOff: 16, Width: 8},
	}
}

func hfuRCPFields() record.FieldSet {
	return record.FieldSet{
		"l3_prt":      {Name: "l3_prt", WordOff: 0, BitOff: 0, Width: 2},
		"l3_frag":     {Name: "l3_frag", WordOff: 0, BitOff: 2, Width: 1},
		"tunnel_len":  {Name: "tunnel_len", WordOff: 0, BitOff: 3, Width: 1},
		"l4_prt":      {Name: "l4_prt", WordOff: 0, BitOff: 4, Width: 2},
		"outer_l3_len": {Name: "outer_l3_len", WordOff: 0, BitOff: 6, Width: 1},
		"outer_l4_len": {Name: "outer_l4_len", WordOff: 0, BitOff: 7, Width: 1},
	}
}

func csuRCPFields() record.FieldSet {
	return record.FieldSet{
		"ol3_cmd": {Name: "ol3_cmd", WordOff: 0, BitOff: 0, Width: 2},
		"ol4_cmd": {Name: "ol4_cmd", WordOff: 0, BitOff: 2, Width: 2},
		"il3_cmd": {Name: "il3_cmd", WordOff: 0, BitOff: 4, Width: 2},
		"il4_cmd": {Name: "il4_cmd", WordOff: 0, BitOff: 6, Width: 2},
	}
}

// Module is the TPE pipeline module: every record table a category can
// be wired into to insert, replace, copy, fix up, or checksum a packet
// on egress.
type Module struct {
	RPPRCP     *record.Table
	RPPIFRRCP  *record.Table
	IFRRCP     *record.Table
	IFRCounters *record.Table
	InsRCP     *record.Table
	RplRCP     *record.Table
	RplExt     *record.Table
	RplRpl     *record.Table
	CpyRCP     *record.Table
	HfuRCP     *record.Table
	CsuRCP     *record.Table
}

func ifrCountersFields() record.FieldSet {
	return record.FieldSet{
		"drop_count": {Name: "drop_count", WordOff: 0, BitOff: 0, Width: 32},
	}
}

func rplExtFields() record.FieldSet {
	return record.FieldSet{
		"rpl_ptr": {Name: "rpl_ptr", WordOff: 0, BitOff: 0, Width: 10},
		"meta_rpl_len": {Name: "meta_rpl_len", WordOff: 0, BitOff: 10, Width: 8},
	}
}

func rplRplFields() record.FieldSet {
	return record.FieldSet{
		"value": {Name: "value", WordOff: 0, BitOff: 0, Width: 32},
	}
}

func NewModule(nbCategories, nbIFRCategories int, version uint32) *Module {
	return &Module{
		RPPRCP:      record.NewTable(nbCategories, 1, int(version), rppRCPFields()),
		RPPIFRRCP:   record.NewTable(nbIFRCategories, 1, int(version), rppIFRRCPFields()),
		IFRRCP:      record.NewTable(nbIFRCategories, 1, int(version), ifrRCPFields()),
		IFRCounters: record.NewTable(nbIFRCategories, 1, int(version), ifrCountersFields()),
		InsRCP:      record.NewTable(nbCategories, 1, int(version), insRCPFields()),
		RplRCP:      record.NewTable(nbCategories, 2, int(version), rplRCPFields()),
		RplExt:      record.NewTable(rplExtEntries, 1, int(version), rplExtFields()),
		RplRpl:      record.NewTable(rplRplEntries, 1, int(version), rplRplFields()),
		CpyRCP:      record.NewTable(nbCategories*cpyRecords, 1, int(version), cpyRCPFields()),
		HfuRCP:      record.NewTable(nbCategories, 1, int(version), hfuRCPFields()),
		CsuRCP:      record.NewTable(nbCategories, 1, int(version), csuRCPFields()),
	}
}

// ReplaceSpan resolves category idx's replace operation into the byte
// range of the replacement payload table (RplRpl) it draws from.
func (m *Module) ReplaceSpan(idx int) (rplPtr, length int, err error) {
	ptr, err := m.RplRCP.Get("rpl_ptr", idx)
	if err != nil {
		return 0, 0, err
	}
	l, err := m.RplRCP.Get("len", idx)
	if err != nil {
		return 0, 0, err
	}
	return int(ptr), int(l), nil
}
