package qsl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveUsesQSTWhenNotDiscarded(t *testing.T) {
	m := NewModule(4, 16, 7)
	require.NoError(t, m.QST.Set("queue", 3, 5))
	q, discard, err := m.Resolve(0, 3)
	require.NoError(t, err)
	require.False(t, discard)
	require.Equal(t, uint16(5), q)
}

func TestResolveHonorsDiscard(t *testing.T) {
	m := NewModule(4, 16, 7)
	require.NoError(t, m.RCP.Set("discard", 1, 1))
	_, discard, err := m.Resolve(1, 0)
	require.NoError(t, err)
	require.True(t, discard)
}

func TestUNMQEnableRoundTrip(t *testing.T) {
	m := NewModule(2, 4, 7)
	require.NoError(t, m.UNMQ.Set("dest_queue", 10, 9))
	require.NoError(t, m.UNMQ.Set("enable", 10, 1))
	v, err := m.UNMQ.Get("dest_queue", 10)
	require.NoError(t, err)
	require.Equal(t, uint64(9), v)
	v, err = m.UNMQ.Get("enable", 10)
	require.NoError(t, err)
	require.Equal(t, uint64(1), v)
}
