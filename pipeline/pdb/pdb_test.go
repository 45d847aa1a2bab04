package pdb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildDescriptor(t *testing.T) {
	m := NewModule(4, 9)
	require.NoError(t, m.RCP.Set("desc_len", 0, 22))
	require.NoError(t, m.RCP.Set("tx_port", 0, 3))
	require.NoError(t, m.RCP.Set("crc_overwrite", 0, 1))
	require.NoError(t, m.RCP.Set("ts_format", 0, uint64(TimestampPTP)))

	d, err := m.Build(0)
	require.NoError(t, err)
	require.Equal(t, 22, d.Length)
	require.Equal(t, uint16(3), d.TxPort)
	require.True(t, d.CRCOverwrite)
	require.Equal(t, TimestampPTP, d.TimestampFormat)
	require.False(t, d.TxIgnore)
}
