package hsh

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashDispatchToeplitz(t *testing.T) {
	m := NewModule(4, 25)
	m.SetToeplitzKey([toeplitzKeyWords]uint32{0x6d5a56da, 0x255b0ec2, 0x4167253d, 0x43a38fb0, 0xd0ca2bcb, 0xae7b30b4, 0x77cb2da3, 0x8030f20c, 0x6a42b73b, 0xbeac01fa})
	require.NoError(t, m.RCP.Set("hash_type", 0, uint64(HashTypeToeplitz)))

	h1, err := m.Hash(0, []byte{0x01, 0x02, 0x03, 0x04})
	require.NoError(t, err)
	h2, err := m.Hash(0, []byte{0x01, 0x02, 0x03, 0x04})
	require.NoError(t, err)
	require.Equal(t, h1, h2, "hash must be deterministic for identical input and key")

	h3, err := m.Hash(0, []byte{0x01, 0x02, 0x03, 0x05})
	require.NoError(t, err)
	require.NotEqual(t, h1, h3)
}

func TestHashDispatchXOR(t *testing.T) {
	m := NewModule(4, 25)
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}
	m.SetHighwayKey(key)
	require.NoError(t, m.RCP.Set("hash_type", 1, uint64(HashTypeXOR)))

	h1, err := m.Hash(1, []byte("flow-key-bytes"))
	require.NoError(t, err)
	h2, err := m.Hash(1, []byte("flow-key-bytes"))
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestHashDispatchSwitchesPerCategory(t *testing.T) {
	m := NewModule(2, 25)
	require.NoError(t, m.RCP.Set("hash_type", 0, uint64(HashTypeToeplitz)))
	require.NoError(t, m.RCP.Set("hash_type", 1, uint64(HashTypeXOR)))

	_, err := m.Hash(0, []byte{1, 2, 3})
	require.NoError(t, err)
	_, err = m.Hash(1, []byte{1, 2, 3})
	require.NoError(t, err)
}
