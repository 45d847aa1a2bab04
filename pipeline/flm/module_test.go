package flm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModuleScrubProfileAndBufCtrl(t *testing.T) {
	m := NewModule(16, 4, 8, 25)
	require.NoError(t, m.SetScrubProfile(0, NewScrubProfile(60, true, false, true)))
	require.Error(t, m.SetScrubProfile(4, ScrubProfile{}))

	h, ok := m.Learn.GetWriteBuffer()
	require.True(t, ok)
	require.NoError(t, m.Learn.ReleaseWriteBuffer(h))

	require.NoError(t, m.RefreshBufCtrl())
	free, err := m.BufCtrl.Get("lrn_free", 0)
	require.NoError(t, err)
	require.Equal(t, uint64(m.Learn.Capacity()-1), free)
}

func TestModuleRCPLookupEnable(t *testing.T) {
	m := NewModule(4, 1, 4, 25)
	require.NoError(t, m.RCP.Set("lookup", 2, 1))
	v, err := m.RCP.Get("lookup", 2)
	require.NoError(t, err)
	require.Equal(t, uint64(1), v)
}
