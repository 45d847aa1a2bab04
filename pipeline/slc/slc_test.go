package slc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrimDisabledKeepsWholePacket(t *testing.T) {
	m := NewModule(2, 20)
	start, end, err := m.Trim(0, 100)
	require.NoError(t, err)
	require.Equal(t, 0, start)
	require.Equal(t, 100, end)
}

func TestTrimHeadAndTail(t *testing.T) {
	m := NewModule(2, 20)
	require.NoError(t, m.RCP.Set("head_slice_en", 0, 1))
	require.NoError(t, m.RCP.Set("head_ofs", 0, 14))
	require.NoError(t, m.RCP.Set("tail_slice_en", 0, 1))
	require.NoError(t, m.RCP.Set("tail_ofs", 0, 4))

	start, end, err := m.Trim(0, 100)
	require.NoError(t, err)
	require.Equal(t, 14, start)
	require.Equal(t, 96, end)
}

func TestTrimClampsWhenOffsetsOverlap(t *testing.T) {
	m := NewModule(1, 20)
	require.NoError(t, m.RCP.Set("head_slice_en", 0, 1))
	require.NoError(t, m.RCP.Set("head_ofs", 0, 90))
	require.NoError(t, m.RCP.Set("tail_slice_en", 0, 1))
	require.NoError(t, m.RCP.Set("tail_ofs", 0, 90))

	start, end, err := m.Trim(0, 100)
	require.NoError(t, err)
	require.LessOrEqual(t, start, end)
}
