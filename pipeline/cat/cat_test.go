package cat

import (
	"testing"

	"github.com/nxcore/roc/rocerr"
	"github.com/stretchr/testify/require"
)

func TestV18HidesV21OnlyFields(t *testing.T) {
	m := NewModule(V18, 4, 8)
	require.False(t, m.SplitKCEFields())
	err := m.SetField(0, "km1_or", 1)
	require.ErrorIs(t, err, rocerr.ErrUnsupField)
}

func TestV21ExposesExtraErrorBits(t *testing.T) {
	m := NewModule(V21, 4, 8)
	require.True(t, m.SplitKCEFields())
	require.NoError(t, m.SetField(0, "err_tnl_l3_cs", 1))
}

func TestAcceptBothUsesMaskConvention(t *testing.T) {
	m := NewModule(V18, 2, 4)
	require.NoError(t, m.SetField(0, "ptc_isl", 2))
	require.NoError(t, m.AcceptBoth(0, "ptc_isl"))
	v, err := m.CFN.Get("ptc_isl", 0)
	require.NoError(t, err)
	require.Equal(t, uint64(2), v, "mask-only write must not clobber the previously stored value")
}

func TestAcceptBothRejectsNonMaskField(t *testing.T) {
	m := NewModule(V18, 2, 4)
	err := m.AcceptBoth(0, "port")
	require.ErrorIs(t, err, rocerr.ErrUnsupField)
}

func TestCopyPort(t *testing.T) {
	m := NewModule(V18, 4, 4)
	require.NoError(t, m.SetField(1, "port", 7))
	require.NoError(t, m.CopyPort(2, 1))
	v, _ := m.CFN.Get("port", 2)
	require.Equal(t, uint64(7), v)
}
