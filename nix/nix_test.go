package nix

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundNbDesc(t *testing.T) {
	require.Equal(t, uint32(1), RoundNbDesc(0))
	require.Equal(t, uint32(128), RoundNbDesc(128))
	require.Equal(t, uint32(256), RoundNbDesc(129))
}

func TestNewCQConfigDefaults(t *testing.T) {
	cfg := NewCQConfig(1, 100, false, 0)
	require.Equal(t, uint32(128), cfg.NbDesc)
	require.Equal(t, uint8(5), cfg.DropPercent)
	require.False(t, cfg.BPEnabled)

	cfg2 := NewCQConfig(1, 100, true, 9)
	require.True(t, cfg2.BPEnabled)
	require.Equal(t, uint16(9), cfg2.SharedBPID)
}

func TestSQDisableSequence(t *testing.T) {
	sqbs := []uint64{0x1000, 0x2000, 0x3000}
	sq := NewSQ(SQConfig{ID: 1}, sqbs)

	var freed []uint64
	err := sq.Disable(
		func() (int, error) { return 2, nil },
		func() error { return nil },
		func(ptr uint64) error { freed = append(freed, ptr); return nil },
	)
	require.NoError(t, err)
	require.False(t, sq.enabled)
	// 2 used buffers freed, plus the next-to-use (3rd) SQB
	require.Equal(t, []uint64{0x1000, 0x2000, 0x3000}, freed)
}

func TestPopulateSQBPool(t *testing.T) {
	var got []uint64
	err := PopulateSQBPool(0x8000, 4, 0x40, func(addr uint64) error {
		got = append(got, addr)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{0x8000, 0x8040, 0x8080, 0x80c0}, got)
}

func TestLSORegistry(t *testing.T) {
	r := NewLSORegistry()
	r.Register(2, []byte{1, 2, 3})
	f, ok := r.Lookup(2)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3}, f.Spec)
	_, ok = r.Lookup(9)
	require.False(t, ok)
}
