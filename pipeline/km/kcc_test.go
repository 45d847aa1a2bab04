package km

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKCCBindLookup(t *testing.T) {
	k := NewKCC(1024, 4)
	key := []byte{1, 2, 3, 4}
	_, ok := k.Lookup(7, key)
	require.False(t, ok)

	k.Bind(7, key, 42)
	cat, ok := k.Lookup(7, key)
	require.True(t, ok)
	require.Equal(t, uint32(42), cat)

	_, ok = k.Lookup(8, key)
	require.False(t, ok, "different port must not collide")
}

func TestKCCFiniClears(t *testing.T) {
	k := NewKCC(256, 2)
	k.Bind(1, []byte{0xAA}, 9)
	k.Fini()
	_, ok := k.Lookup(1, []byte{0xAA})
	require.False(t, ok)
}

func TestKCCBankDeterministic(t *testing.T) {
	k := NewKCC(256, 4)
	key := []byte{0x01, 0x02}
	b1 := k.Bank(3, key)
	b2 := k.Bank(3, key)
	require.Equal(t, b1, b2)
	require.GreaterOrEqual(t, b1, 0)
	require.Less(t, b1, 4)
}
