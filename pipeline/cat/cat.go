// Package cat implements the CAT (classification) pipeline module: the
// CFN classification-function record plus the KCC side table (spec.md
// §4.7). The KCE/KCS/FTE/CTE/CTS/COT/CCT/EXO/RCK/LEN side tables are not
// modeled. Version dispatch (v18 vs
// v21) follows the CFN field table's MinVersion/MaxVersion the way
// pipeline/record resolves every other module's fields.
package cat

import (
	"github.com/nxcore/roc/pipeline/record"
	"github.com/nxcore/roc/rocerr"
)

// Version names the CAT hardware generation a Module was allocated
// against (spec.md §4.7 "A common front-end API hides the difference").
type Version int

const (
	V18 Version = 18
	V21 Version = 21
)

const cfnWords = 4

func cfnFields() record.FieldSet {
	fs := record.FieldSet{
		"port":     {Name: "port", WordOff: 0, BitOff: 0, Width: 8, MinVersion: 18},
		"err_bits": {Name: "err_bits", WordOff: 0, BitOff: 8, Width: 16, MinVersion: 18},
		"ptc_isl":  {Name: "ptc_isl", WordOff: 1, BitOff: 0, Width: 2, MinVersion: 18},
		"ptc_cfp":  {Name: "ptc_cfp", WordOff: 1, BitOff: 2, Width: 2, MinVersion: 18},
		"km0_or":   {Name: "km0_or", WordOff: 1, BitOff: 4, Width: 1, MinVersion: 18},
		"flm0_or":  {Name: "flm0_or", WordOff: 1, BitOff: 5, Width: 1, MinVersion: 18},
		// v21 adds a second KM interface and extra error-check fields.
		"km1_or":          {Name: "km1_or", WordOff: 1, BitOff: 6, Width: 1, MinVersion: 21},
		"err_tnl_l3_cs":   {Name: "err_tnl_l3_cs", WordOff: 2, BitOff: 0, Width: 1, MinVersion: 21},
		"err_tnl_l4_cs":   {Name: "err_tnl_l4_cs", WordOff: 2, BitOff: 1, Width: 1, MinVersion: 21},
		"err_ttl_exp":     {Name: "err_ttl_exp", WordOff: 2, BitOff: 2, Width: 1, MinVersion: 21},
		"err_tnl_ttl_exp": {Name: "err_tnl_ttl_exp", WordOff: 2, BitOff: 3, Width: 1, MinVersion: 21},
	}
	return fs
}

// maskConventionFields are the 1-2 bit fields whose legacy "accept both
// values" idiom writes 0xFFFFFFFF: under the Go model that is always
// SetMasked(field, 0, ^uint64(0)) — every bit don't-care (spec.md §9 Open
// Question decision #1).
var maskConventionFields = map[string]bool{"ptc_isl": true, "ptc_cfp": true}

// Module is one CAT instance: its CFN table, modeled at field level, and
// its KCC table, an opaque record.Table of kccSize rows with no named
// fields. It holds no other side table.
type Module struct {
	Version Version
	CFN     *record.Table
	KCC     *record.Table
}

// NewModule allocates a CAT module with nbCatFuncs CFN rows.
func NewModule(version Version, nbCatFuncs, kccSize int) *Module {
	return &Module{
		Version: version,
		CFN:     record.NewTable(nbCatFuncs, cfnWords, int(version), cfnFields()),
		KCC:     record.NewTable(kccSize, 2, int(version), nil),
	}
}

// SetField writes a CFN field value through CFN.Set. The legacy
// accept-both-values convention is programmed separately, via AcceptBoth.
func (m *Module) SetField(idx int, field string, value uint64) error {
	return m.CFN.Set(field, idx, value)
}

// AcceptBoth programs field to accept either of its possible values, the
// Go equivalent of writing 0xFFFFFFFF under the legacy convention.
func (m *Module) AcceptBoth(idx int, field string) error {
	if !maskConventionFields[field] {
		return rocerr.ErrUnsupField
	}
	return m.CFN.SetMasked(field, idx, 0, ^uint64(0))
}

// SplitKCEFields reports whether this version stores KCE/KCS/FTE as split
// per-interface bitmaps (v21) rather than one packed bitmap (v18).
func (m *Module) SplitKCEFields() bool { return m.Version >= V21 }

// CopyPort duplicates src's CFN row into dst, used for port-split
// configurations (spec.md §4.7 COPY_FROM).
func (m *Module) CopyPort(dst, src int) error {
	return m.CFN.CopyFrom(dst, src)
}

// Flush commits dirty CFN rows in [start, start+count) via commit.
func (m *Module) Flush(start, count int, commit func(idx int, row []uint64) error) error {
	return m.CFN.Flush(start, count, commit)
}
