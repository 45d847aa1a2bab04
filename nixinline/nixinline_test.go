package nixinline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSPIToSABijection(t *testing.T) {
	// spec.md §8 invariant 3 / scenario S4: min=0x100, max=0x1ff -> 256 slots
	tbl, err := NewSATable(0x10000, 64, 0x100, 0x1FF)
	require.NoError(t, err)
	require.Equal(t, uint64(256), tbl.NumSlots())

	seen := make(map[uint64]uint32)
	for spi := uint32(0x100); spi <= 0x1FF; spi++ {
		addr := tbl.SPIToSA(spi)
		if prior, ok := seen[addr]; ok {
			t.Fatalf("collision: spi %x and %x both map to %x", prior, spi, addr)
		}
		seen[addr] = spi
		require.Equal(t, tbl.Base+(uint64(spi)&0xFF)*64, addr)
	}
}

func TestMetaAuraGlobalRefcounting(t *testing.T) {
	globalMu.Lock()
	globalMeta = nil
	globalMu.Unlock()

	calls := 0
	cfg := MetaAuraConfig{
		Mode:         MetaAuraGlobal,
		BufTypeLimit: func(string) uint64 { return 64 },
	}
	alloc := func(name string, nbBufs, bufSz uint64) (uint64, error) {
		calls++
		return 42, nil
	}

	m1, err := CreateMetaAura(cfg, alloc)
	require.NoError(t, err)
	m2, err := CreateMetaAura(cfg, alloc)
	require.NoError(t, err)
	require.Same(t, m1, m2)
	require.Equal(t, 1, calls)

	destroyed := 0
	destroy := func(id uint64) error { destroyed++; return nil }
	require.NoError(t, ReleaseMetaAura(m1, destroy))
	require.Equal(t, 0, destroyed)
	require.NoError(t, ReleaseMetaAura(m2, destroy))
	require.Equal(t, 1, destroyed)
}

func TestMetaAuraPerPortValidation(t *testing.T) {
	cfg := MetaAuraConfig{
		Mode:        MetaAuraPerPort,
		Port:        0,
		RQAuraLimit: 100,
		FirstSkip:   16,
		MetaBufSz:   10, // too small: < first_skip + META_SIZE
	}
	_, err := CreateMetaAura(cfg, func(string, uint64, uint64) (uint64, error) { return 1, nil })
	require.Error(t, err)
}

func TestRXCTimeConfigDefaultStep(t *testing.T) {
	cfg := NewRXCTimeConfig(0, 2000, 100)
	require.Equal(t, uint32(20000), cfg.Step)

	cfg2 := NewRXCTimeConfig(5, 2000, 100)
	require.Equal(t, uint32(5), cfg2.Step)
}

func TestSoftExpiryRingLazyAlloc(t *testing.T) {
	d := NewOutboundDevice()
	require.False(t, d.SoftExpiryPollEnabled())
	require.Equal(t, 0, d.SoftExpiryRingCount())

	d.EnableSoftExpiryPoll(4, 16)
	require.True(t, d.SoftExpiryPollEnabled())
	require.Equal(t, 4, d.SoftExpiryRingCount())
}
