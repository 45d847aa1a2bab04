package tpe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReplaceSpan(t *testing.T) {
	m := NewModule(8, 4, 18)
	require.NoError(t, m.RplRCP.Set("rpl_ptr", 0, 3))
	require.NoError(t, m.RplRCP.Set("len", 0, 12))

	ptr, length, err := m.ReplaceSpan(0)
	require.NoError(t, err)
	require.Equal(t, 3, ptr)
	require.Equal(t, 12, length)
}

func TestChecksumCommandRoundTrip(t *testing.T) {
	m := NewModule(4, 2, 18)
	require.NoError(t, m.CsuRCP.Set("ol3_cmd", 1, 2))
	v, err := m.CsuRCP.Get("ol3_cmd", 1)
	require.NoError(t, err)
	require.Equal(t, uint64(2), v)
}

func TestCopyRecordsIndexedPerCategory(t *testing.T) {
	m := NewModule(4, 2, 18)
	require.NoError(t, m.CpyRCP.Set("len", 5, 40))
	v, err := m.CpyRCP.Get("len", 5)
	require.NoError(t, err)
	require.Equal(t, uint64(40), v)
}
