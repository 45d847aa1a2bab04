package npa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeNPoolsLog2(t *testing.T) {
	v, err := EncodeNPoolsLog2(128)
	require.NoError(t, err)
	require.Equal(t, uint8(1), v) // log2(128)-6 = 7-6 = 1

	v, err = EncodeNPoolsLog2(64) // below floor, clamps to 128
	require.NoError(t, err)
	require.Equal(t, uint8(1), v)

	v, err = EncodeNPoolsLog2(1 << 20)
	require.NoError(t, err)
	require.Equal(t, uint8(14), v) // log2(2^20)-6 = 20-6 = 14

	_, err = EncodeNPoolsLog2(0)
	require.Error(t, err)
}

func TestManagerAllocFreeAura(t *testing.T) {
	m, err := NewManager(128)
	require.NoError(t, err)
	require.Equal(t, 128, m.FreeCount())

	a, err := m.AllocAura(1000, 0x1000, 0x2000)
	require.NoError(t, err)
	require.Equal(t, 127, m.FreeCount())
	require.True(t, a.InRange(0x1800))
	require.False(t, a.InRange(0x2000))

	require.NoError(t, m.FreeAura(a.ID))
	require.Equal(t, 128, m.FreeCount())
	require.Error(t, m.FreeAura(a.ID), "double free must error")
}

func TestManagerExhaustion(t *testing.T) {
	m, err := NewManager(128)
	require.NoError(t, err)
	for i := 0; i < 128; i++ {
		_, err := m.AllocAura(1, 0, 1)
		require.NoError(t, err)
	}
	_, err = m.AllocAura(1, 0, 1)
	require.Error(t, err)
}
