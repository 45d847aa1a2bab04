package flowrule

import (
	"net"
	"testing"

	"github.com/nxcore/roc/flowrule/pattern"
	"github.com/nxcore/roc/npc"
	"github.com/stretchr/testify/require"
)

func programBasicKex(e *Engine) {
	e.KEX.Configure(0, 0, npc.LTEther, []npc.Extractor{{LID: 0, LType: npc.LTEther, ByteOffset: 0, Length: 12}})
	e.KEX.Configure(0, 3, npc.LTIPv4, []npc.Extractor{{LID: 3, LType: npc.LTIPv4, ByteOffset: 12, Length: 8}})
}

// TestFlowCreateDestroyS1 reproduces spec.md scenario S1 through the
// public FlowCreate/FlowDestroy surface.
func TestFlowCreateDestroyS1(t *testing.T) {
	e := NewEngine(32)
	programBasicKex(e)

	req := CreateRequest{
		Intf:     0,
		Priority: 1,
		Channel:  2,
		PFFunc:   9,
		Pattern: []pattern.Item{
			{Type: pattern.ItemEth},
			{Type: pattern.ItemIPv4, IPv4Src: net.ParseIP("10.0.0.1"), IPv4SrcMask: net.CIDRMask(32, 32)},
		},
		Actions: []ActionSpec{
			{Kind: ActionKindDispatch, Op: npc.ActionUnicast, QueueID: 3},
			{Kind: ActionKindCount},
		},
	}

	h, err := e.FlowCreate(req)
	require.NoError(t, err)
	require.Equal(t, h.MCAMID, e.NPC.Alloc.MinIndex(1))

	entry, ok := e.NPC.Entry(h.MCAMID)
	require.True(t, ok)
	require.True(t, entry.Enabled)
	require.NotEqual(t, npc.NoneID, entry.CounterID)
	decoded := npc.DecodeAction(entry.Action.Encode())
	require.Equal(t, npc.ActionUnicast, decoded.Op)
	require.Equal(t, uint16(9), decoded.PFFunc)
	require.Equal(t, uint16(3), decoded.Index)

	require.NoError(t, e.FlowDestroy(h))
	_, ok = e.NPC.Entry(h.MCAMID)
	require.False(t, ok)
}

func TestFlowParseRejectsMissingAction(t *testing.T) {
	e := NewEngine(4)
	programBasicKex(e)
	req := CreateRequest{Pattern: []pattern.Item{{Type: pattern.ItemEth}}}
	require.Error(t, e.FlowParse(req))
}

func TestFlowCreateRejectsMultipleDispatchActions(t *testing.T) {
	e := NewEngine(4)
	programBasicKex(e)
	req := CreateRequest{
		Pattern: []pattern.Item{{Type: pattern.ItemEth}},
		Actions: []ActionSpec{
			{Kind: ActionKindDispatch, Op: npc.ActionUnicast, QueueID: 1},
			{Kind: ActionKindDispatch, Op: npc.ActionDrop},
		},
	}
	_, err := e.FlowCreate(req)
	require.Error(t, err)
}

func TestFlowCreateRejectsUnextractablePattern(t *testing.T) {
	e := NewEngine(4)
	// no KEX programmed at all
	req := CreateRequest{
		Pattern: []pattern.Item{{Type: pattern.ItemEth}},
		Actions: []ActionSpec{{Kind: ActionKindDispatch, Op: npc.ActionDrop}},
	}
	_, err := e.FlowCreate(req)
	require.Error(t, err)
}
