package record

import (
	"testing"

	"github.com/nxcore/roc/rocerr"
	"github.com/stretchr/testify/require"
)

func testFields() FieldSet {
	return FieldSet{
		"act":     {Name: "act", WordOff: 0, BitOff: 0, Width: 4, MinVersion: 1},
		"color":   {Name: "color", WordOff: 0, BitOff: 4, Width: 2, MinVersion: 1},
		"v2only":  {Name: "v2only", WordOff: 1, BitOff: 0, Width: 8, MinVersion: 2},
		"bad_off": {Name: "bad_off", WordOff: 9, BitOff: 0, Width: 8, MinVersion: 1},
	}
}

func TestGetSetRoundTrip(t *testing.T) {
	tbl := NewTable(4, 2, 1, testFields())
	require.NoError(t, tbl.Set("act", 0, 0xF))
	v, err := tbl.Get("act", 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0xF), v)
	require.True(t, tbl.Dirty(0))
}

func TestSetNoopWhenUnchanged(t *testing.T) {
	tbl := NewTable(4, 2, 1, testFields())
	require.NoError(t, tbl.Set("act", 0, 0))
	require.False(t, tbl.Dirty(0), "setting to the already-stored value must not dirty the row")
}

func TestFieldVersionDispatch(t *testing.T) {
	tbl1 := NewTable(2, 2, 1, testFields())
	_, err := tbl1.Get("v2only", 0)
	require.ErrorIs(t, err, rocerr.ErrUnsupField)

	tbl2 := NewTable(2, 2, 2, testFields())
	require.NoError(t, tbl2.Set("v2only", 0, 7))
}

func TestFieldWordOffsetOutOfRange(t *testing.T) {
	tbl := NewTable(2, 2, 1, testFields())
	_, err := tbl.Get("bad_off", 0)
	require.ErrorIs(t, err, rocerr.ErrWordOffTooLarge)
}

func TestFindAndCompare(t *testing.T) {
	tbl := NewTable(4, 2, 1, testFields())
	require.NoError(t, tbl.Set("act", 2, 5))
	idx, err := tbl.Find(0, 2)
	require.NoError(t, err)
	require.Equal(t, 2, idx)

	eq, err := tbl.Compare(0, 1)
	require.NoError(t, err)
	require.True(t, eq)

	_, err = tbl.Find(0, 99)
	require.Error(t, err)
}

func TestCopyFrom(t *testing.T) {
	tbl := NewTable(4, 2, 1, testFields())
	require.NoError(t, tbl.Set("act", 0, 9))
	require.NoError(t, tbl.CopyFrom(1, 0))
	v, err := tbl.Get("act", 1)
	require.NoError(t, err)
	require.Equal(t, uint64(9), v)
	require.True(t, tbl.Dirty(1))
}

func TestSetMaskedPreservesUnmaskedBits(t *testing.T) {
	tbl := NewTable(2, 2, 1, FieldSet{
		"wide": {Name: "wide", WordOff: 0, BitOff: 0, Width: 32, MinVersion: 1},
	})
	require.NoError(t, tbl.Set("wide", 0, 0xAAAAAAAA))
	// mask selects the low byte as "don't care" (keep existing), write 0xFF
	// into the rest.
	require.NoError(t, tbl.SetMasked("wide", 0, 0xFFFFFFFF, 0x000000FF))
	v, _ := tbl.Get("wide", 0)
	require.Equal(t, uint64(0xFFFFFFAA), v)
}

func TestFlushAllEntriesSkipsClean(t *testing.T) {
	tbl := NewTable(3, 1, 1, FieldSet{
		"f": {Name: "f", WordOff: 0, BitOff: 0, Width: 8, MinVersion: 1},
	})
	require.NoError(t, tbl.Set("f", 1, 7))

	var flushed []int
	err := tbl.Flush(0, AllEntries, func(idx int, row []uint64) error {
		flushed = append(flushed, idx)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{1}, flushed)
	require.False(t, tbl.Dirty(1), "flush must clear the dirty bit")
}

func TestFlushRejectsArbitraryNegativeCount(t *testing.T) {
	tbl := NewTable(2, 1, 1, nil)
	err := tbl.Flush(0, -2, func(int, []uint64) error { return nil })
	require.ErrorIs(t, err, rocerr.ErrParam)
}

func TestBankResetMarksEverythingDirty(t *testing.T) {
	tbl := NewTable(3, 2, 1, nil)
	tbl.BankReset([]uint64{0xDEAD, 0xBEEF})
	for i := 0; i < 3; i++ {
		require.True(t, tbl.Dirty(i))
	}
	rb, err := tbl.RowBytes(0)
	require.NoError(t, err)
	require.Len(t, rb, 16)
}

func TestEqualAcrossTables(t *testing.T) {
	a := NewTable(2, 1, 1, FieldSet{"f": {Name: "f", WordOff: 0, Width: 8, MinVersion: 1}})
	b := NewTable(2, 1, 1, FieldSet{"f": {Name: "f", WordOff: 0, Width: 8, MinVersion: 1}})
	require.True(t, Equal(a, b))
	require.NoError(t, a.Set("f", 0, 3))
	require.False(t, Equal(a, b))
}
