package npc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKexCapabilityMask(t *testing.T) {
	k := NewKexConfig()
	k.Configure(0, 0, LTIPv4, []Extractor{
		{LID: 0, LType: LTIPv4, ByteOffset: 12, Length: 4, KeyOffset: 0}, // src IP
	})
	require.True(t, k.CanExtract(0, 0, LTIPv4, 12, 4))
	require.False(t, k.CanExtract(0, 0, LTIPv4, 16, 4)) // dst IP not programmed
	require.False(t, k.CanExtract(0, 0, LTIPv6, 12, 4)) // different layer type
}

// TestFlowCreateDestroyWithCounter is scenario S1.
func TestFlowCreateDestroyWithCounter(t *testing.T) {
	e := NewEngine(64)
	entry, _, err := e.CreateRule(CreateRuleParams{
		Priority: 1,
		Channel:  5,
		Action: Action{
			Op:     ActionUnicast,
			PFFunc: 7,
			Index:  3,
		},
		WantCounter: true,
	})
	require.NoError(t, err)
	require.True(t, entry.Enabled)
	require.NotEqual(t, NoneID, entry.CounterID)
	require.Equal(t, uint8(1), entry.Priority)
	require.Equal(t, entry.ID, e.Alloc.MinIndex(1))

	v, err := e.Counters.Read(entry.CounterID)
	require.NoError(t, err)
	require.Zero(t, v)

	decoded := DecodeAction(entry.Action.Encode())
	require.Equal(t, ActionUnicast, decoded.Op)
	require.Equal(t, uint16(7), decoded.PFFunc)
	require.Equal(t, uint16(3), decoded.Index)

	counterID := entry.CounterID
	require.NoError(t, e.DestroyRule(entry.ID))
	_, err = e.Counters.Read(counterID)
	require.Error(t, err, "counter must be freed after destroy")
	_, ok := e.Entry(entry.ID)
	require.False(t, ok)
}

// TestPriorityShift is scenario S2.
func TestPriorityShift(t *testing.T) {
	e := NewEngine(8)
	e.Alloc.Preset(2, 10, 20)

	entry, shifts, err := e.CreateRule(CreateRuleParams{Priority: 1, Action: Action{Op: ActionDrop}})
	require.NoError(t, err)
	require.Equal(t, 10, entry.ID)
	require.Len(t, shifts, 1)
	require.Equal(t, ShiftOp{Priority: 2, FromIndex: 10, ToIndex: 21}, shifts[0])

	require.Equal(t, 11, e.Alloc.MinIndex(2))
	require.Equal(t, 21, e.Alloc.MaxIndex(2))
	require.True(t, e.Alloc.CheckZoneOrdering())
}

func TestZoneOrderingInvariantAcrossManyAllocs(t *testing.T) {
	e := NewEngine(64)
	for i := 0; i < 5; i++ {
		_, _, err := e.CreateRule(CreateRuleParams{Priority: 3, Action: Action{Op: ActionDrop}})
		require.NoError(t, err)
	}
	for i := 0; i < 5; i++ {
		_, _, err := e.CreateRule(CreateRuleParams{Priority: 1, Action: Action{Op: ActionDrop}})
		require.NoError(t, err)
	}
	for i := 0; i < 5; i++ {
		_, _, err := e.CreateRule(CreateRuleParams{Priority: 2, Action: Action{Op: ActionDrop}})
		require.NoError(t, err)
	}
	require.True(t, e.Alloc.CheckZoneOrdering())
	require.Less(t, e.Alloc.MaxIndex(1), e.Alloc.MinIndex(2))
	require.Less(t, e.Alloc.MaxIndex(2), e.Alloc.MinIndex(3))
}

func TestVFBaseRuleMergeRejectsWrongPCIFunc(t *testing.T) {
	secret := []byte("admin-function-secret")
	baseKey := [7]uint64{0xAA}
	baseMask := [7]uint64{0xFF}
	token, err := SignBaseRule(secret, 4, baseKey, baseMask, time.Now())
	require.NoError(t, err)

	entry := &Entry{KeyData: [7]uint64{0x01}, KeyMask: [7]uint64{0x0F}}
	err = MergeVFBaseRule(secret, entry, 5 /* wrong pcifunc */, baseKey, baseMask, token)
	require.Error(t, err)
}

func TestVFBaseRuleMergeAppliesKeyMask(t *testing.T) {
	secret := []byte("admin-function-secret")
	baseKey := [7]uint64{0xAA}
	baseMask := [7]uint64{0xFF}
	token, err := SignBaseRule(secret, 4, baseKey, baseMask, time.Now())
	require.NoError(t, err)

	entry := &Entry{KeyData: [7]uint64{0x01}, KeyMask: [7]uint64{0x0F}}
	require.NoError(t, MergeVFBaseRule(secret, entry, 4, baseKey, baseMask, token))
	require.Equal(t, uint64(0xAB), entry.KeyData[0])
	require.Equal(t, uint64(0xFF), entry.KeyMask[0])
}

func TestApplyLATypeFirstPassAcceptsEitherEncoding(t *testing.T) {
	var key, maskW uint64
	ApplyLAType(&key, &maskW, false)
	// the mask must not pin the bit that distinguishes ether from CPT_HDR.
	require.NotEqual(t, mask(LAKeyMaskBits)<<12, maskW&(mask(LAKeyMaskBits)<<12))
}

func TestApplyLATypeSecondPassPinsCPTHdr(t *testing.T) {
	var key, maskW uint64
	ApplyLAType(&key, &maskW, true)
	require.Equal(t, mask(LAKeyMaskBits)<<12, maskW&(mask(LAKeyMaskBits)<<12))
}
