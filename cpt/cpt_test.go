package cpt

import (
	"context"
	"testing"
	"time"

	"github.com/nxcore/roc"
	"github.com/stretchr/testify/require"
)

func TestEngineGroupMaskDiffersBySilicon(t *testing.T) {
	cn9k := EngineGroupMask(true, EngineSE, EngineIE)
	cn10k := EngineGroupMask(false, EngineSE, EngineIE)
	require.NotEqual(t, cn9k, cn10k)
}

func TestAllocLF(t *testing.T) {
	m := NewManager()
	lfs, err := m.AllocLF(3, EngineGroupMask(false, EngineSE), 1, 2)
	require.NoError(t, err)
	require.Len(t, lfs, 3)
	require.NoError(t, lfs[0].InitInstructionQueue(true))
	require.True(t, lfs[0].IQEnabled)
	require.True(t, lfs[0].CQEnabled)
}

func TestProbeEngineCapabilityTimesOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := ProbeEngineCapability(ctx, func() error { return nil }, func() (bool, uint64, error) {
		return false, 0, nil
	})
	require.Error(t, err)
}

func TestSAShiftCN9KDegeneratesToFence(t *testing.T) {
	var fenced bool
	reg := roc.NewRegisterHandle(0, 0,
		func(uintptr) uint64 { return 0 },
		func(uintptr, uint64) {},
		func() { fenced = true },
	)
	flt, err := Sync(reg, SyncFlush, 0x1000, true)
	require.NoError(t, err)
	require.False(t, flt)
	require.True(t, fenced)
}
