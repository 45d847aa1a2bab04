package flm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeTimeoutZero(t *testing.T) {
	require.Equal(t, uint8(0), EncodeTimeout(0))
	require.Equal(t, uint32(0), DecodeTimeout(0))
}

func TestEncodeTimeout60Seconds(t *testing.T) {
	enc := EncodeTimeout(60)
	require.GreaterOrEqual(t, DecodeTimeout(enc), uint32(60))
	if enc > 0 {
		require.Less(t, DecodeTimeout(enc-1), uint32(60))
	}
}

func TestEncodeTimeoutSaturatesAt137Years(t *testing.T) {
	const years137 = uint32(137 * 365 * 24 * 3600)
	enc := EncodeTimeout(years137)
	require.Equal(t, maxTimeout, enc)
	require.GreaterOrEqual(t, DecodeTimeout(enc), years137)
}

func TestEncodeTimeoutMonotone(t *testing.T) {
	var prev uint8
	for s := uint32(1); s <= 100000; s += 977 {
		enc := EncodeTimeout(s)
		require.GreaterOrEqual(t, enc, prev)
		require.GreaterOrEqual(t, DecodeTimeout(enc), s)
		prev = enc
	}
}

func TestNewScrubProfile(t *testing.T) {
	p := NewScrubProfile(60, true, false, true)
	require.True(t, p.R)
	require.False(t, p.Del)
	require.True(t, p.Inf)
	require.GreaterOrEqual(t, DecodeTimeout(p.Timeout), uint32(60))
}
