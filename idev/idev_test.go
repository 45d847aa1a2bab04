package idev

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNPARefCountMonotonic(t *testing.T) {
	r := New()
	created := 0
	destroyed := 0

	create := func(ctx context.Context) (NPAPoolRef, error) {
		created++
		return NPAPoolRef{AuraID: 1}, nil
	}
	destroy := func(ctx context.Context, ref NPAPoolRef) error {
		destroyed++
		return nil
	}

	ctx := context.Background()
	_, err := r.AttachNPAPool(ctx, create)
	require.NoError(t, err)
	_, err = r.AttachNPAPool(ctx, create)
	require.NoError(t, err)
	require.Equal(t, int32(2), r.NPARefCount())
	require.Equal(t, 1, created, "pool created exactly once across both attaches")

	require.NoError(t, r.DetachNPAPool(ctx, destroy))
	require.Equal(t, int32(1), r.NPARefCount())
	require.Equal(t, 0, destroyed)

	require.NoError(t, r.DetachNPAPool(ctx, destroy))
	require.Equal(t, int32(0), r.NPARefCount())
	require.Equal(t, 1, destroyed, "destroyed exactly once when refcount reaches zero")

	require.Error(t, r.DetachNPAPool(ctx, destroy), "detach below zero must error, never go negative")
}

func TestMCSListAddRemove(t *testing.T) {
	r := New()
	r.AddMCS(MCSEntry{ID: 1})
	r.AddMCS(MCSEntry{ID: 2})
	require.Len(t, r.MCSList(), 2)
	require.True(t, r.RemoveMCS(1))
	require.False(t, r.RemoveMCS(1))
	require.Len(t, r.MCSList(), 1)
}
