package sso

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnableRingRetriesThenFails(t *testing.T) {
	m := NewManager()
	attempts := 0
	err := m.EnableRing(AllocHWGrp(1, 7), func() error {
		attempts++
		return errors.New("sync fail")
	})
	require.Error(t, err)
	require.Equal(t, maxStartSyncRetries, attempts)
	require.False(t, m.IsRunning(1))
}

func TestEnableRingSucceedsFirstTry(t *testing.T) {
	m := NewManager()
	grp := AllocHWGrp(2, 9)
	require.NoError(t, m.EnableRing(grp, func() error { return nil }))
	require.True(t, m.IsRunning(2))
	require.NoError(t, m.DisableRing(grp))
	require.False(t, m.IsRunning(2))
}
