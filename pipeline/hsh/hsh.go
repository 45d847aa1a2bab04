// Package hsh implements the HSH (hash distributor) pipeline module: the
// RCP recipe table plus the two RSS hash functions it can select between,
// Toeplitz and a highwayhash-based simple-xor variant.
package hsh

import (
	"encoding/binary"

	"github.com/minio/highwayhash"

	"github.com/nxcore/roc/pipeline/record"
	"github.com/nxcore/roc/rocerr"
)

// HashType selects which RSS hash function an RCP entry uses.
type HashType uint8

const (
	HashTypeToeplitz HashType = iota
	HashTypeXOR
)

const toeplitzKeyWords = 10

func rcpFields() record.FieldSet {
	return record.FieldSet{
		"load_dist_type": {Name: "load_dist_type", WordOff: 0, BitOff: 0, Width: 2},
		"mac_port_mask":  {Name: "mac_port_mask", WordOff: 0, BitOff: 2, Width: 8},
		"hash_type":      {Name: "hash_type", WordOff: 0, BitOff: 10, Width: 1},
		"auto_ipv4_mask": {Name: "auto_ipv4_mask", WordOff: 0, BitOff: 11, Width: 1},
		"qw0_dyn":        {Name: "qw0_dyn", WordOff: 0, BitOff: 12, Width: 5},
		"qw0_ofs":        {Name: "qw0_ofs", WordOff: 0, BitOff: 17, Width: 8},
		"w8_dyn":         {Name: "w8_dyn", WordOff: 0, BitOff: 25, Width: 5},
		"w8_ofs":         {Name: "w8_ofs", WordOff: 1, BitOff: 0, Width: 8},
		"word_mask_lo":   {Name: "word_mask_lo", WordOff: 1, BitOff: 8, Width: 32},
	}
}

// Module is the HSH pipeline module: one RCP table plus a 10x32-bit
// Toeplitz key and a 256-bit highwayhash key shared across every
// category (hw_mod_hsh.c's hsh_v5_rcp_s, generalized to hold both key
// material sets).
type Module struct {
	RCP         *record.Table
	ToeplitzKey [toeplitzKeyWords]uint32
	HighwayKey  [32]byte
}

func NewModule(nbCategories int, version uint32) *Module {
	return &Module{RCP: record.NewTable(nbCategories, 2, int(version), rcpFields())}
}

// SetToeplitzKey installs the shared 320-bit Toeplitz key.
func (m *Module) SetToeplitzKey(key [toeplitzKeyWords]uint32) {
	m.ToeplitzKey = key
}

// SetHighwayKey installs the 256-bit key for the simple-xor RSS variant.
func (m *Module) SetHighwayKey(key [32]byte) {
	m.HighwayKey = key
}

// ToeplitzHash computes the standard Microsoft RSS Toeplitz hash over
// data using the module's installed key, matching the hardware's
// sliding-window-of-the-key construction.
func (m *Module) ToeplitzHash(data []byte) uint32 {
	keyBytes := make([]byte, toeplitzKeyWords*4+4)
	for i, w := range m.ToeplitzKey {
		binary.BigEndian.PutUint32(keyBytes[i*4:], w)
	}
	var result uint32
	for byteIdx, b := range data {
		for bit := 7; bit >= 0; bit-- {
			if b&(1<<uint(bit)) != 0 {
				result ^= keyWindow(keyBytes, byteIdx*8+(7-bit))
			}
		}
	}
	return result
}

func keyWindow(keyBytes []byte, shift int) uint32 {
	byteShift := shift / 8
	bitShift := uint(shift % 8)
	window := uint64(0)
	for i := 0; i < 5 && byteShift+i < len(keyBytes); i++ {
		window = window<<8 | uint64(keyBytes[byteShift+i])
	}
	return uint32(window >> (8 - bitShift) & 0xFFFFFFFF)
}

// XORHash computes the simple-xor RSS variant used when the FPGA lacks
// Toeplitz support (hw_mod_hsh.c's "toeplitz" capability probe), built
// on highwayhash rather than a bespoke mixing function.
func (m *Module) XORHash(data []byte) uint32 {
	sum := highwayhash.Sum64(data, m.HighwayKey[:])
	return uint32(sum) ^ uint32(sum>>32)
}

// Hash dispatches to the hash function configured in rcp[category].
func (m *Module) Hash(category int, data []byte) (uint32, error) {
	ht, err := m.RCP.Get("hash_type", category)
	if err != nil {
		return 0, err
	}
	switch HashType(ht) {
	case HashTypeToeplitz:
		return m.ToeplitzHash(data), nil
	case HashTypeXOR:
		return m.XORHash(data), nil
	default:
		return 0, rocerr.ErrNotSup
	}
}
