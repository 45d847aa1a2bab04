// Package record implements the generic record-table helpers shared by
// every pipeline module (spec.md §4.7/§9 "Macro-driven get/set... generic
// helpers parameterized over the record type"). A Table is a fixed-width
// cache of rows, each addressable by a compile-time FieldSet (name,
// word-offset, bit-offset, bit-width, and the version range the field is
// valid for); FLUSH commits only the rows mutated since the previous
// flush.
package record

import (
	"bytes"

	"github.com/nxcore/roc/rocerr"
)

// AllEntries is the "everything" sentinel for Flush's count parameter
// (spec.md §9 Open Question: the -1000 sentinel must never be mistaken
// for a valid count — Flush rejects any other negative value).
const AllEntries = -1000

// Field describes one named field within a row: its location in 64-bit
// words, its bit offset within that word, its width in bits, and the
// version range ([MinVersion, MaxVersion], MaxVersion==0 meaning
// unbounded) it is valid for.
type Field struct {
	Name       string
	WordOff    int
	BitOff     int
	Width      int
	MinVersion int
	MaxVersion int
}

func (f Field) validAt(version int) bool {
	if version < f.MinVersion {
		return false
	}
	if f.MaxVersion != 0 && version > f.MaxVersion {
		return false
	}
	return true
}

// FieldSet is a module's complete field catalogue, looked up by name.
type FieldSet map[string]Field

// Table is a generic, version-dispatched cache of fixed-width rows.
type Table struct {
	nWords  int
	version int
	fields  FieldSet

	rows  [][]uint64
	dirty []bool
}

// NewTable allocates an all-zero table of n rows, each nWords 64-bit words
// wide, dispatching field access per the given version.
func NewTable(n, nWords, version int, fields FieldSet) *Table {
	rows := make([][]uint64, n)
	for i := range rows {
		rows[i] = make([]uint64, nWords)
	}
	return &Table{
		nWords:  nWords,
		version: version,
		fields:  fields,
		rows:    rows,
		dirty:   make([]bool, n),
	}
}

func (t *Table) checkIdx(idx int) error {
	if idx < 0 || idx >= len(t.rows) {
		return rocerr.ErrIndexTooLarge
	}
	return nil
}

// PresetAll fills row idx's bytes with v and marks it dirty.
func (t *Table) PresetAll(idx int, v byte) error {
	if err := t.checkIdx(idx); err != nil {
		return err
	}
	fill := make([]byte, 8)
	for i := range fill {
		fill[i] = v
	}
	var word uint64
	for i := 0; i < 8; i++ {
		word |= uint64(fill[i]) << (8 * i)
	}
	for w := range t.rows[idx] {
		t.rows[idx][w] = word
	}
	t.dirty[idx] = true
	return nil
}

// Find returns the lowest index >= start whose row equals the row at
// value, or rocerr.ErrNotFound.
func (t *Table) Find(start, value int) (int, error) {
	if err := t.checkIdx(value); err != nil {
		return 0, err
	}
	for i := start; i < len(t.rows); i++ {
		if t.rowsEqual(i, value) {
			return i, nil
		}
	}
	return 0, rocerr.ErrNotFound
}

// Compare byte-compares rows i and j, returning immediately on mismatch.
func (t *Table) Compare(i, j int) (bool, error) {
	if err := t.checkIdx(i); err != nil {
		return false, err
	}
	if err := t.checkIdx(j); err != nil {
		return false, err
	}
	return t.rowsEqual(i, j), nil
}

func (t *Table) rowsEqual(i, j int) bool {
	if i == j {
		return true
	}
	a, b := t.rows[i], t.rows[j]
	for w := range a {
		if a[w] != b[w] {
			return false
		}
	}
	return true
}

// CopyFrom copies src's row into dst (cache-only; used for CAT port-split
// configurations, spec.md §4.7). Marks dst dirty only if the copy changed
// anything.
func (t *Table) CopyFrom(dst, src int) error {
	if err := t.checkIdx(dst); err != nil {
		return err
	}
	if err := t.checkIdx(src); err != nil {
		return err
	}
	if t.rowsEqual(dst, src) {
		return nil
	}
	copy(t.rows[dst], t.rows[src])
	t.dirty[dst] = true
	return nil
}

func (t *Table) fieldAt(name string) (Field, error) {
	f, ok := t.fields[name]
	if !ok || !f.validAt(t.version) {
		return Field{}, rocerr.ErrUnsupField
	}
	if f.WordOff < 0 || f.WordOff >= t.nWords {
		return Field{}, rocerr.ErrWordOffTooLarge
	}
	return f, nil
}

// Get reads field from row idx.
func (t *Table) Get(field string, idx int) (uint64, error) {
	if err := t.checkIdx(idx); err != nil {
		return 0, err
	}
	f, err := t.fieldAt(field)
	if err != nil {
		return 0, err
	}
	word := t.rows[idx][f.WordOff]
	mask := widthMask(f.Width)
	return (word >> uint(f.BitOff)) & mask, nil
}

// Set writes value into field of row idx, masked to the field's width,
// marking the row dirty only if the stored value actually changes.
func (t *Table) Set(field string, idx int, value uint64) error {
	if err := t.checkIdx(idx); err != nil {
		return err
	}
	f, err := t.fieldAt(field)
	if err != nil {
		return err
	}
	mask := widthMask(f.Width)
	value &= mask
	word := &t.rows[idx][f.WordOff]
	cur := (*word >> uint(f.BitOff)) & mask
	if cur == value {
		return nil
	}
	*word = (*word &^ (mask << uint(f.BitOff))) | (value << uint(f.BitOff))
	t.dirty[idx] = true
	return nil
}

// SetMasked writes value under mask into field of row idx, where a 1 bit
// in mask means "don't care" (spec.md §9 Open Question decision #1: the
// CAT v18 0xFFFFFFFF convention is a field-mask, not a literal value).
// Field bits set in mask keep their stored value; field bits clear in mask
// take value's bits. Bits of the word outside the field are left untouched.
func (t *Table) SetMasked(field string, idx int, value, mask uint64) error {
	if err := t.checkIdx(idx); err != nil {
		return err
	}
	f, err := t.fieldAt(field)
	if err != nil {
		return err
	}
	fullMask := widthMask(f.Width)
	mask &= fullMask
	value &= fullMask
	word := &t.rows[idx][f.WordOff]
	newBits := (value &^ mask) | (*word>>uint(f.BitOff))&mask&fullMask
	cur := (*word >> uint(f.BitOff)) & fullMask
	if cur == newBits {
		return nil
	}
	*word = (*word &^ (fullMask << uint(f.BitOff))) | (newBits << uint(f.BitOff))
	t.dirty[idx] = true
	return nil
}

func widthMask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(width)) - 1
}

// Flush commits rows [start, start+count) to hardware via commit, skipping
// rows that are not dirty. count==AllEntries flushes the full table; any
// other negative count is rejected.
func (t *Table) Flush(start, count int, commit func(idx int, row []uint64) error) error {
	if count == AllEntries {
		start, count = 0, len(t.rows)
	} else if count < 0 {
		return rocerr.ErrParam
	}
	if start < 0 || start+count > len(t.rows) {
		return rocerr.ErrIndexTooLarge
	}
	for i := start; i < start+count; i++ {
		if !t.dirty[i] {
			continue
		}
		if err := commit(i, t.rows[i]); err != nil {
			return err
		}
		t.dirty[i] = false
	}
	return nil
}

// BankReset fills every row of the table with pattern and marks every row
// dirty regardless of equality (spec.md §4.8 TCAM BANK_RESET; reused by
// any module with a "reset to known pattern" primitive).
func (t *Table) BankReset(pattern []uint64) {
	for i := range t.rows {
		copy(t.rows[i], pattern)
		for w := len(pattern); w < t.nWords; w++ {
			t.rows[i][w] = 0
		}
		t.dirty[i] = true
	}
}

// Dirty reports whether row idx is currently dirty.
func (t *Table) Dirty(idx int) bool {
	if idx < 0 || idx >= len(t.dirty) {
		return false
	}
	return t.dirty[idx]
}

// RowBytes returns row idx's contents as a byte slice in little-endian
// word order, used by callers that need a byte-for-byte comparison (e.g.
// testing cache/hardware coherence, spec.md §8 invariant 2).
func (t *Table) RowBytes(idx int) ([]byte, error) {
	if err := t.checkIdx(idx); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, t.nWords*8)
	for _, w := range t.rows[idx] {
		var b [8]byte
		for i := 0; i < 8; i++ {
			b[i] = byte(w >> (8 * i))
		}
		buf = append(buf, b[:]...)
	}
	return buf, nil
}

// Equal reports whether two tables have byte-identical contents, used by
// tests asserting cache/hardware coherence against a fetched snapshot.
func Equal(a, b *Table) bool {
	if len(a.rows) != len(b.rows) {
		return false
	}
	for i := range a.rows {
		ab, _ := a.RowBytes(i)
		bb, _ := b.RowBytes(i)
		if !bytes.Equal(ab, bb) {
			return false
		}
	}
	return true
}
