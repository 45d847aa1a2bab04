// Package pdb implements the PDB (packet descriptor builder) pipeline
// module: per-category descriptor shape/length, TX port overrides, CRC
// handling, and timestamp format (hw_mod_pdb.c's pdb_v9_rcp_s/config_s).
package pdb

import "github.com/nxcore/roc/pipeline/record"

// TimestampFormat selects how the descriptor's timestamp field is
// populated.
type TimestampFormat uint8

const (
	TimestampNone TimestampFormat = iota
	TimestampNative
	TimestampPTP
)

func rcpFields() record.FieldSet {
	return record.FieldSet{
		"descriptor":    {Name: "descriptor", WordOff: 0, BitOff: 0, Width: 4},
		"desc_len":      {Name: "desc_len", WordOff: 0, BitOff: 4, Width: 5},
		"tx_port":       {Name: "tx_port", WordOff: 0, BitOff: 9, Width: 8},
		"tx_ignore":     {Name: "tx_ignore", WordOff: 0, BitOff: 17, Width: 1},
		"tx_now":        {Name: "tx_now", WordOff: 0, BitOff: 18, Width: 1},
		"crc_overwrite": {Name: "crc_overwrite", WordOff: 0, BitOff: 19, Width: 1},
		"align":         {Name: "align", WordOff: 0, BitOff: 20, Width: 1},
		"ofs_dyn":       {Name: "ofs_dyn", WordOff: 0, BitOff: 21, Width: 5},
		"ofs_rel":       {Name: "ofs_rel", WordOff: 0, BitOff: 26, Width: 8},
		"ts_format":     {Name: "ts_format", WordOff: 1, BitOff: 0, Width: 2},
	}
}

func configFields() record.FieldSet {
	return record.FieldSet{
		"port_ofs": {Name: "port_ofs", WordOff: 0, BitOff: 0, Width: 8},
	}
}

// Module is the PDB pipeline module.
type Module struct {
	RCP    *record.Table
	Config *record.Table
}

func NewModule(nbCategories int, version uint32) *Module {
	return &Module{
		RCP:    record.NewTable(nbCategories, 2, int(version), rcpFields()),
		Config: record.NewTable(1, 1, int(version), configFields()),
	}
}

// Descriptor is one built packet descriptor's derived fields.
type Descriptor struct {
	Length          int
	TxPort          uint16
	TxIgnore        bool
	TxNow           bool
	CRCOverwrite    bool
	TimestampFormat TimestampFormat
}

// Build derives a Descriptor for category idx.
func (m *Module) Build(idx int) (Descriptor, error) {
	get := func(field string) (uint64, error) { return m.RCP.Get(field, idx) }

	length, err := get("desc_len")
	if err != nil {
		return Descriptor{}, err
	}
	txPort, err := get("tx_port")
	if err != nil {
		return Descriptor{}, err
	}
	txIgnore, err := get("tx_ignore")
	if err != nil {
		return Descriptor{}, err
	}
	txNow, err := get("tx_now")
	if err != nil {
		return Descriptor{}, err
	}
	crc, err := get("crc_overwrite")
	if err != nil {
		return Descriptor{}, err
	}
	tsFmt, err := get("ts_format")
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{
		Length:          int(length),
		TxPort:          uint16(txPort),
		TxIgnore:        txIgnore != 0,
		TxNow:           txNow != 0,
		CRCOverwrite:    crc != 0,
		TimestampFormat: TimestampFormat(tsFmt),
	}, nil
}
